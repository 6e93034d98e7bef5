package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lvrach/x-social-ai/internal/config"
	"github.com/lvrach/x-social-ai/internal/state"
)

func TestScheduledStatePath(t *testing.T) {
	tests := []struct {
		name      string
		stateFile string
		workDir   string
		want      string
	}{
		{"relative joined to install dir", "x_welcome_state.json", "/srv/bot", "/srv/bot/x_welcome_state.json"},
		{"empty uses default in install dir", "", "/srv/bot", filepath.Join("/srv/bot", state.DefaultPath)},
		{"absolute kept", "/var/lib/bot/state.json", "/srv/bot", "/var/lib/bot/state.json"},
		{"no install dir keeps relative", "x_welcome_state.json", "", "x_welcome_state.json"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			cfg.Welcome.StateFile = tt.stateFile
			cfg.Schedule.WorkDir = tt.workDir
			assert.Equal(t, tt.want, scheduledStatePath(cfg))
		})
	}
}

func TestScheduledStatePath_ReadsInstallDirFromAnotherDirectory(t *testing.T) {
	installDir := t.TempDir()
	store := state.NewFileStore(filepath.Join(installDir, state.DefaultPath))
	require.NoError(t, store.Save(state.NewSet("alice", "bob")))

	t.Chdir(t.TempDir())
	_, err := os.Stat(state.DefaultPath)
	require.True(t, os.IsNotExist(err), "cwd must not hold a state file")

	cfg := config.Default()
	cfg.Schedule.WorkDir = installDir
	got, err := state.NewFileStore(scheduledStatePath(cfg)).Load()
	require.NoError(t, err)
	assert.Equal(t, 2, got.Len())
}
