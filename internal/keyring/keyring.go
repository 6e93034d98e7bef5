package keyring

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	gokeyring "github.com/zalando/go-keyring"

	"github.com/lvrach/x-social-ai/internal/xapi"
)

// ErrNotFound is returned when no credentials are stored.
var ErrNotFound = gokeyring.ErrNotFound

const (
	serviceName = "x-social-ai"
	userName    = "x-credentials"
)

// Environment variables that take precedence over the keychain.
const (
	EnvAPIKey            = "X_API_KEY"
	EnvAPISecret         = "X_API_SECRET"
	EnvAccessToken       = "X_ACCESS_TOKEN"
	EnvAccessTokenSecret = "X_ACCESS_TOKEN_SECRET"
	EnvBearerToken       = "X_BEARER_TOKEN"
)

// IsNotFound reports whether err indicates a missing keyring entry.
func IsNotFound(err error) bool {
	return errors.Is(err, gokeyring.ErrNotFound)
}

// Get retrieves the stored credentials from the system keychain.
func Get() (xapi.Credentials, error) {
	raw, err := gokeyring.Get(serviceName, userName)
	if err != nil {
		return xapi.Credentials{}, err
	}
	var creds xapi.Credentials
	if err := json.Unmarshal([]byte(raw), &creds); err != nil {
		return xapi.Credentials{}, fmt.Errorf("decode stored credentials: %w", err)
	}
	return creds, nil
}

// Set stores the credentials in the system keychain.
func Set(creds xapi.Credentials) error {
	b, err := json.Marshal(creds)
	if err != nil {
		return err
	}
	return gokeyring.Set(serviceName, userName, string(b))
}

// Delete removes the credentials from the system keychain.
func Delete() error {
	return gokeyring.Delete(serviceName, userName)
}

// FromEnv reads credentials from the environment.
func FromEnv() xapi.Credentials {
	return xapi.Credentials{
		APIKey:            os.Getenv(EnvAPIKey),
		APISecret:         os.Getenv(EnvAPISecret),
		AccessToken:       os.Getenv(EnvAccessToken),
		AccessTokenSecret: os.Getenv(EnvAccessTokenSecret),
		BearerToken:       os.Getenv(EnvBearerToken),
	}
}

// Resolve returns credentials from the environment when the four OAuth 1.0a
// variables are all set, otherwise from the keychain. A bearer token from
// the environment fills in a stored set that lacks one. When neither source
// has anything, it returns ErrNotFound.
func Resolve() (xapi.Credentials, string, error) {
	env := FromEnv()
	if env.HasUserContext() {
		return env, "env", nil
	}

	stored, err := Get()
	if err != nil {
		if IsNotFound(err) && env.BearerToken != "" {
			return env, "env", nil
		}
		return xapi.Credentials{}, "", err
	}
	if stored.BearerToken == "" {
		stored.BearerToken = env.BearerToken
	}
	if stored.IsZero() {
		return xapi.Credentials{}, "", ErrNotFound
	}
	return stored, "keychain", nil
}
