package state

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tempStore(t *testing.T) *FileStore {
	t.Helper()
	return NewFileStore(filepath.Join(t.TempDir(), "x_welcome_state.json"))
}

func TestNormalizeHandle(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"alice", "alice"},
		{"@alice", "alice"},
		{"  @Alice ", "Alice"},
		{"@@double", "@double"},
		{"", ""},
		{"   ", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeHandle(tt.in))
		})
	}
}

func TestSet_AddHas(t *testing.T) {
	s := NewSet("bob")

	assert.True(t, s.Has("bob"))
	assert.True(t, s.Has("@bob"))
	assert.False(t, s.Has("Bob"), "membership is case-sensitive")

	assert.True(t, s.Add("@alice"))
	assert.False(t, s.Add("alice"), "duplicate after normalization")
	assert.False(t, s.Add("  "), "empty handles are ignored")

	assert.Equal(t, []string{"bob", "alice"}, s.Handles())
	assert.Equal(t, 2, s.Len())
}

func TestSet_CloneIsIndependent(t *testing.T) {
	s := NewSet("a")
	c := s.Clone()
	c.Add("b")
	assert.Equal(t, 1, s.Len())
	assert.Equal(t, 2, c.Len())
}

func TestLoad_Missing(t *testing.T) {
	s := tempStore(t)

	set, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, 0, set.Len())
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	s := tempStore(t)

	require.NoError(t, s.Save(NewSet("alice", "bob")))

	set, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "bob"}, set.Handles())

	info, err := os.Stat(s.Path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	_, err = os.Stat(s.Path + ".tmp")
	assert.True(t, os.IsNotExist(err), "temp file should be renamed away")
}

func TestSave_PrettyPrinted(t *testing.T) {
	s := tempStore(t)
	require.NoError(t, s.Save(NewSet("alice")))

	data, err := os.ReadFile(s.Path)
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"welcomed\": [\n    \"alice\"\n  ]\n}\n", string(data))
}

func TestSave_EmptySetWritesEmptyList(t *testing.T) {
	s := tempStore(t)
	require.NoError(t, s.Save(NewSet()))

	data, err := os.ReadFile(s.Path)
	require.NoError(t, err)
	assert.JSONEq(t, `{"welcomed":[]}`, string(data))
}

func TestSave_CreatesParentDir(t *testing.T) {
	s := NewFileStore(filepath.Join(t.TempDir(), "nested", "dir", "state.json"))
	require.NoError(t, s.Save(NewSet("x")))

	set, err := s.Load()
	require.NoError(t, err)
	assert.True(t, set.Has("x"))
}

func TestLoad_LegacyAtPrefixedEntries(t *testing.T) {
	s := tempStore(t)
	require.NoError(t, os.WriteFile(s.Path, []byte(`{"welcomed":["@alice","alice","bob",""]}`), 0o600))

	set, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "bob"}, set.Handles())
}

func TestLoad_Corrupt(t *testing.T) {
	s := tempStore(t)
	require.NoError(t, os.WriteFile(s.Path, []byte("{not valid json!!!"), 0o600))

	_, err := s.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse state")
}

func TestLoad_MissingKeyIsEmpty(t *testing.T) {
	s := tempStore(t)
	require.NoError(t, os.WriteFile(s.Path, []byte(`{}`), 0o600))

	set, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, 0, set.Len())
}

func TestNewFileStore_Default(t *testing.T) {
	assert.Equal(t, DefaultPath, NewFileStore("").Path)
}

func TestLock_Exclusive(t *testing.T) {
	s := tempStore(t)

	unlock, err := s.Lock()
	require.NoError(t, err)

	_, err = NewFileStore(s.Path).Lock()
	assert.ErrorIs(t, err, ErrLocked)

	require.NoError(t, unlock())

	unlock2, err := s.Lock()
	require.NoError(t, err)
	require.NoError(t, unlock2())
}
