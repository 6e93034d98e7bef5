package agents

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func handles(cs []Candidate) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.Handle
	}
	return out
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		want  []string
		isErr bool
	}{
		{
			name: "bare array",
			body: `[{"xOwnerHandle":"@alice"},{"xOwnerHandle":""},{"xOwnerHandle":"bob"}]`,
			want: []string{"@alice", "", "bob"},
		},
		{
			name: "items object",
			body: `{"items":[{"xOwnerHandle":"carol","subject":"0xc90e"}],"total":1}`,
			want: []string{"carol"},
		},
		{
			name: "other object",
			body: `{"data":[{"xOwnerHandle":"dave"}]}`,
			want: []string{},
		},
		{
			name: "items is not a list",
			body: `{"items":{"xOwnerHandle":"erin"}}`,
			want: []string{},
		},
		{
			name: "null and non-string handles",
			body: `[{"xOwnerHandle":null},{"name":"no handle"},{"xOwnerHandle":7},"weird",{"xOwnerHandle":"frank"}]`,
			want: []string{"", "", "", "", "frank"},
		},
		{
			name: "scalar",
			body: `"nothing"`,
			want: []string{},
		},
		{
			name:  "invalid json",
			body:  `{"items": [`,
			isErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Normalize([]byte(tt.body))
			if tt.isErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, handles(got))
		})
	}
}

func TestNormalize_KeepsRawRecord(t *testing.T) {
	got, err := Normalize([]byte(`[{"xOwnerHandle":"alice","subject":"0xabc"}]`))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.JSONEq(t, `{"xOwnerHandle":"alice","subject":"0xabc"}`, string(got[0].Raw))
}

func TestFetch_QueryAndShape(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/agents/summary", r.URL.Path)
		assert.Equal(t, "1", r.URL.Query().Get("page"))
		assert.Equal(t, "20", r.URL.Query().Get("limit"))
		_, _ = w.Write([]byte(`{"items":[{"xOwnerHandle":"alice"}]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL + "/v1/agents/summary")
	got, err := c.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"alice"}, handles(got))
}

func TestFetch_OverridesPagingInEndpoint(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "1", r.URL.Query().Get("page"))
		assert.Equal(t, "20", r.URL.Query().Get("limit"))
		assert.Equal(t, "x", r.URL.Query().Get("sort"))
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	got, err := NewClient(srv.URL + "?page=3&limit=100&sort=x").Fetch(context.Background())
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestFetch_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream down"))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).Fetch(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
	assert.Contains(t, err.Error(), "upstream down")
}

func TestFetch_BadJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>oops</html>"))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).Fetch(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode agents")
}

func TestFetch_Unreachable(t *testing.T) {
	_, err := NewClient("http://127.0.0.1:1").Fetch(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fetch agents")
}

func TestNewClient_Default(t *testing.T) {
	assert.Equal(t, DefaultEndpoint, NewClient("").Endpoint)
}
