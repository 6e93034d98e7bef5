package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/lvrach/x-social-ai/internal/config"
	"github.com/lvrach/x-social-ai/internal/launchd"
	"github.com/lvrach/x-social-ai/internal/state"
)

// ScheduleCmd manages the periodic welcome run (macOS launchd).
type ScheduleCmd struct {
	Install   ScheduleInstallCmd   `cmd:"" help:"Install the macOS launchd welcome schedule."`
	Uninstall ScheduleUninstallCmd `cmd:"" help:"Remove the launchd welcome schedule."`
	Status    ScheduleStatusCmd    `cmd:"" help:"Show whether the schedule is active."`
}

// ScheduleInstallCmd installs the launchd job in the current directory.
type ScheduleInstallCmd struct {
	Every string `help:"Time between welcome runs (e.g. 30m, 2h). Default: 30m." short:"e"`
}

func (cmd *ScheduleInstallCmd) Run(globals *Globals) error {
	// 1. Load config and apply --every.
	cfg, err := config.Load()
	if err != nil {
		return newCLIError(ExitInvalidInput, "invalid_config",
			fmt.Sprintf("Failed to load %s: %s", config.Path(), err))
	}
	if cmd.Every != "" {
		dur, err := time.ParseDuration(cmd.Every)
		if err != nil || dur < time.Minute {
			return newCLIError(ExitInvalidInput, "invalid_every",
				fmt.Sprintf("Invalid --every value %q: must be a duration of at least 1m.", cmd.Every))
		}
		cfg.Schedule.IntervalMinutes = int(dur.Minutes())
	}
	if cfg.Schedule.IntervalMinutes <= 0 {
		cfg.Schedule = config.Default().Schedule
	}

	// 2. Resolve binary path and working directory.
	execPath, err := os.Executable()
	if err != nil {
		return fmt.Errorf("resolve executable path: %w", err)
	}
	execPath, err = filepath.EvalSymlinks(execPath)
	if err != nil {
		return fmt.Errorf("resolve symlinks: %w", err)
	}
	workDir, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("resolve working directory: %w", err)
	}

	// 3. Save config and install launchd plist.
	cfg.Schedule.WorkDir = workDir
	if err := config.Save(cfg); err != nil {
		return fmt.Errorf("save config: %w", err)
	}
	job := launchd.Job{BinaryPath: execPath, WorkDir: workDir, Interval: cfg.Schedule.Interval()}
	if err := launchd.Install(job); err != nil {
		return newCLIError(ExitRuntimeError, "install_failed",
			fmt.Sprintf("Failed to install schedule: %s", err))
	}

	summary := fmt.Sprintf("Welcoming every %s in %s.", cfg.Schedule.Interval(), workDir)
	if globals.JSON {
		printSuccessJSON("Schedule installed. " + summary)
	} else {
		fmt.Fprintf(os.Stdout, "Schedule installed. %s\n", summary)
		fmt.Fprintf(os.Stdout, "Logs: %s\n", launchd.LogPath())
		fmt.Fprintln(os.Stdout, "Note: If macOS asks for Keychain access, click 'Always Allow'.")
	}
	return nil
}

// ScheduleUninstallCmd removes the launchd job.
type ScheduleUninstallCmd struct{}

func (cmd *ScheduleUninstallCmd) Run(globals *Globals) error {
	if err := launchd.Uninstall(); err != nil {
		return fmt.Errorf("uninstall schedule: %w", err)
	}
	msg := "Schedule removed."
	if globals.JSON {
		printSuccessJSON(msg)
	} else {
		printSuccessHuman(msg)
	}
	return nil
}

// ScheduleStatusCmd shows the current schedule status.
type ScheduleStatusCmd struct{}

func (cmd *ScheduleStatusCmd) Run(globals *Globals) error { //nolint:unparam // error required by Kong cmd interface
	if !launchd.IsInstalled() {
		if globals.JSON {
			printJSON(map[string]string{"status": "not_configured"})
		} else {
			fmt.Fprintln(os.Stdout, "Not configured. Run `x-social-ai schedule install` to set up.")
		}
		return nil
	}

	cfg, err := config.Load()
	if err != nil {
		cfg = config.Default()
	}
	welcomed := -1
	if set, err := state.NewFileStore(scheduledStatePath(cfg)).Load(); err == nil {
		welcomed = set.Len()
	}

	if globals.JSON {
		resp := map[string]any{
			"status":           "active",
			"loaded":           launchd.IsLoaded(),
			"interval_minutes": cfg.Schedule.IntervalMinutes,
			"log":              launchd.LogPath(),
		}
		if cfg.Schedule.WorkDir != "" {
			resp["work_dir"] = cfg.Schedule.WorkDir
		}
		if welcomed >= 0 {
			resp["welcomed_count"] = welcomed
		}
		printJSON(resp)
		return nil
	}

	fmt.Fprintln(os.Stdout, "Status: Active")
	if !launchd.IsLoaded() {
		fmt.Fprintln(os.Stdout, "Warning: plist is installed but not loaded in launchctl.")
	}
	fmt.Fprintf(os.Stdout, "Interval: every %s\n", cfg.Schedule.Interval())
	fmt.Fprintf(os.Stdout, "Log: %s\n", launchd.LogPath())
	if welcomed >= 0 {
		fmt.Fprintf(os.Stdout, "Welcomed so far: %d\n", welcomed)
	}
	return nil
}

// scheduledStatePath resolves the state file the way the scheduled job sees it:
// relative paths are taken from the directory the job was installed in.
func scheduledStatePath(cfg config.Config) string {
	path := cfg.Welcome.StateFile
	if path == "" {
		path = state.DefaultPath
	}
	if filepath.IsAbs(path) || cfg.Schedule.WorkDir == "" {
		return path
	}
	return filepath.Join(cfg.Schedule.WorkDir, path)
}
