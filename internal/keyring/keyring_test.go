package keyring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gokeyring "github.com/zalando/go-keyring"

	"github.com/lvrach/x-social-ai/internal/xapi"
)

var stored = xapi.Credentials{
	APIKey:            "k",
	APISecret:         "s",
	AccessToken:       "t",
	AccessTokenSecret: "ts",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{EnvAPIKey, EnvAPISecret, EnvAccessToken, EnvAccessTokenSecret, EnvBearerToken} {
		t.Setenv(k, "")
	}
}

func TestSetGetDelete(t *testing.T) {
	gokeyring.MockInit()

	_, err := Get()
	assert.True(t, IsNotFound(err))

	require.NoError(t, Set(stored))

	got, err := Get()
	require.NoError(t, err)
	assert.Equal(t, stored, got)

	require.NoError(t, Delete())
	_, err = Get()
	assert.True(t, IsNotFound(err))
}

func TestResolve_EnvWins(t *testing.T) {
	gokeyring.MockInit()
	require.NoError(t, Set(stored))

	t.Setenv(EnvAPIKey, "ek")
	t.Setenv(EnvAPISecret, "es")
	t.Setenv(EnvAccessToken, "et")
	t.Setenv(EnvAccessTokenSecret, "ets")
	t.Setenv(EnvBearerToken, "")

	creds, source, err := Resolve()
	require.NoError(t, err)
	assert.Equal(t, "env", source)
	assert.Equal(t, "ek", creds.APIKey)
}

func TestResolve_PartialEnvFallsBackToKeychain(t *testing.T) {
	gokeyring.MockInit()
	clearEnv(t)
	require.NoError(t, Set(stored))
	t.Setenv(EnvAPIKey, "only-one")
	t.Setenv(EnvBearerToken, "bearer")

	creds, source, err := Resolve()
	require.NoError(t, err)
	assert.Equal(t, "keychain", source)
	assert.Equal(t, "k", creds.APIKey)
	assert.Equal(t, "bearer", creds.BearerToken)
}

func TestResolve_BearerOnlyFromEnv(t *testing.T) {
	gokeyring.MockInit()
	clearEnv(t)
	t.Setenv(EnvBearerToken, "bearer")

	creds, source, err := Resolve()
	require.NoError(t, err)
	assert.Equal(t, "env", source)
	assert.False(t, creds.HasUserContext())
	assert.Equal(t, "bearer", creds.BearerToken)
}

func TestResolve_NothingConfigured(t *testing.T) {
	gokeyring.MockInit()
	clearEnv(t)

	_, _, err := Resolve()
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
}
