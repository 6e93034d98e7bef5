package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/lvrach/x-social-ai/internal/agents"
	"github.com/lvrach/x-social-ai/internal/config"
	"github.com/lvrach/x-social-ai/internal/logger"
	"github.com/lvrach/x-social-ai/internal/state"
	"github.com/lvrach/x-social-ai/internal/welcome"
)

// WelcomeCmd runs one welcome pass over the agent directory.
type WelcomeCmd struct {
	DryRun   bool   `help:"Log what would happen without calling X. Handles are still recorded." short:"n" env:"DRY_RUN"`
	Cap      int    `help:"Maximum candidates to process this run (default from config, 5)."`
	Delay    string `help:"Pause between candidates, e.g. 2s or 500ms (default from config, 2s)."`
	Endpoint string `help:"Agent directory URL (default from config)."`
	State    string `help:"Processed-handles file, relative to the working directory." type:"path"`
	LogLevel string `help:"Log level: trace, debug, info, warn, error." default:"info" env:"LOG_LEVEL"`
}

func (cmd *WelcomeCmd) Run(ctx context.Context, globals *Globals) error {
	// 1. Resolve configuration: flags over config file over defaults.
	cfg, err := config.Load()
	if err != nil {
		return newCLIError(ExitInvalidInput, "invalid_config",
			fmt.Sprintf("Failed to load %s: %s", config.Path(), err))
	}
	runCfg, statePath, err := cmd.resolve(cfg.Welcome)
	if err != nil {
		return err
	}
	reply, err := welcome.ParseReplyTemplate(cfg.Welcome.ReplyTemplate)
	if err != nil {
		return newCLIError(ExitInvalidInput, "invalid_config", err.Error())
	}

	markers := cfg.Welcome.Markers
	if len(markers) == 0 {
		markers = welcome.DefaultMarkers
	}

	log := logger.New(os.Stderr, logger.Options{Level: cmd.LogLevel, JSON: globals.JSON})

	// 2. One run at a time per state file.
	store := state.NewFileStore(statePath)
	unlock, err := store.Lock()
	if err != nil {
		if errors.Is(err, state.ErrLocked) {
			return newCLIError(ExitRuntimeError, "locked",
				fmt.Sprintf("Another welcome run is using %s.", statePath))
		}
		return newCLIError(ExitRuntimeError, "state_failed", err.Error())
	}
	defer func() { _ = unlock() }()

	runner := &welcome.Runner{
		Source: agents.NewClient(runCfg.Endpoint),
		Store:  store,
		Match:  welcome.MarkerMatcher(markers...),
		Reply:  reply,
		Config: runCfg,
		Log:    log,
	}

	// 3. Only a live run needs credentials.
	if !runCfg.DryRun {
		client, _, err := newClient()
		if err != nil {
			return err
		}
		runner.Platform = client
	}

	// 4. Run.
	report, err := runner.Run(ctx)
	if err != nil {
		return cmd.runError(err)
	}
	log.Info().Int("welcomed", report.Welcomed()).Int("eligible", report.Eligible).Msg("run finished")

	// 5. Print the report.
	if globals.JSON {
		printJSON(report)
		return nil
	}
	printReport(report)
	return nil
}

func (cmd *WelcomeCmd) resolve(w config.Welcome) (welcome.RunConfig, string, error) {
	rc := welcome.RunConfig{
		Cap:        w.Cap,
		DryRun:     cmd.DryRun,
		Delay:      w.Delay(),
		Endpoint:   w.Endpoint,
		PostWindow: welcome.DefaultPostWindow,
	}
	if cmd.Cap < 0 {
		return rc, "", newCLIError(ExitInvalidInput, "invalid_cap",
			fmt.Sprintf("Invalid --cap value %d: must be positive.", cmd.Cap))
	}
	if cmd.Cap > 0 {
		rc.Cap = cmd.Cap
	}
	if cmd.Delay != "" {
		d, err := time.ParseDuration(cmd.Delay)
		if err != nil || d < 0 {
			return rc, "", newCLIError(ExitInvalidInput, "invalid_delay",
				fmt.Sprintf("Invalid --delay value %q.", cmd.Delay))
		}
		rc.Delay = d
	}
	if cmd.Endpoint != "" {
		rc.Endpoint = cmd.Endpoint
	}
	if rc.Endpoint == "" {
		rc.Endpoint = agents.DefaultEndpoint
	}

	statePath := w.StateFile
	if cmd.State != "" {
		statePath = cmd.State
	}
	if statePath == "" {
		statePath = state.DefaultPath
	}
	return rc, statePath, nil
}

func (cmd *WelcomeCmd) runError(err error) error {
	if errors.Is(err, context.Canceled) {
		return newCLIError(ExitRuntimeError, "interrupted", "Interrupted; progress so far has been saved.")
	}
	var fe *welcome.FatalError
	if errors.As(err, &fe) {
		switch fe.Stage {
		case welcome.StageFetch:
			return newCLIError(ExitRuntimeError, "fetch_failed",
				fmt.Sprintf("Failed to fetch new agents: %s", fe.Err))
		case welcome.StageAuth:
			return newCLIError(ExitRuntimeError, "auth_failed",
				fmt.Sprintf("Failed to authenticate with X: %s", fe.Err))
		case welcome.StageState:
			return newCLIError(ExitRuntimeError, "state_failed",
				fmt.Sprintf("State file error: %s", fe.Err))
		}
	}
	return err
}

func printReport(r welcome.Report) {
	prefix := ""
	if r.DryRun {
		prefix = "[dry-run] "
	}
	if r.Eligible == 0 {
		fmt.Fprintf(os.Stdout, "%sNo new users to welcome (%d fetched).\n", prefix, r.Fetched)
		return
	}
	for _, o := range r.Outcomes {
		line := fmt.Sprintf("%s@%s: %s", prefix, o.Handle, o.Status)
		if o.Detail != "" {
			line += " (" + o.Detail + ")"
		}
		if o.ReplyID != "" {
			line += " reply " + o.ReplyID
		}
		fmt.Fprintln(os.Stdout, line)
	}
	fmt.Fprintf(os.Stdout, "%sWelcomed %d of %d eligible (%d fetched).\n",
		prefix, r.Welcomed(), r.Eligible, r.Fetched)
}

// WelcomedCmd lists the processed set.
type WelcomedCmd struct {
	State string `help:"Processed-handles file, relative to the working directory." type:"path"`
}

func (cmd *WelcomedCmd) Run(globals *Globals) error {
	path := cmd.State
	if path == "" {
		cfg, err := config.Load()
		if err != nil {
			return newCLIError(ExitInvalidInput, "invalid_config",
				fmt.Sprintf("Failed to load %s: %s", config.Path(), err))
		}
		path = cfg.Welcome.StateFile
	}
	if path == "" {
		path = state.DefaultPath
	}

	set, err := state.NewFileStore(path).Load()
	if err != nil {
		return newCLIError(ExitRuntimeError, "state_failed", err.Error())
	}

	if globals.JSON {
		printJSON(map[string]any{"welcomed": set.Handles(), "count": set.Len()})
		return nil
	}
	if set.Len() == 0 {
		fmt.Fprintln(os.Stdout, "No handles welcomed yet.")
		return nil
	}
	for _, h := range set.Handles() {
		fmt.Fprintln(os.Stdout, "@"+h)
	}
	fmt.Fprintf(os.Stdout, "(%d total)\n", set.Len())
	return nil
}
