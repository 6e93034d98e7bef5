package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/lvrach/x-social-ai/internal/keyring"
	"github.com/lvrach/x-social-ai/internal/launchd"
	"github.com/lvrach/x-social-ai/internal/xapi"
)

// envBaseURL points the X client at another host; used by tests.
const envBaseURL = "X_API_BASE_URL"

// newClient builds an X API client from the resolved credentials.
func newClient(opts ...xapi.Option) (*xapi.Client, string, error) {
	creds, source, err := keyring.Resolve()
	if err != nil {
		if keyring.IsNotFound(err) {
			return nil, "", newCLIError(ExitNotConfigured, "not_configured",
				"Not configured. Run \"x-social-ai auth login\" or set "+keyring.EnvAPIKey+" and friends.")
		}
		return nil, "", newCLIError(ExitRuntimeError, "keyring_error",
			fmt.Sprintf("Failed to read keychain: %s", err))
	}
	return clientFor(creds, source, opts...)
}

func clientFor(creds xapi.Credentials, source string, opts ...xapi.Option) (*xapi.Client, string, error) {
	if u := os.Getenv(envBaseURL); u != "" {
		opts = append(opts, xapi.WithBaseURL(u))
	}
	c, err := xapi.New(creds, opts...)
	if err != nil {
		return nil, "", newCLIError(ExitNotConfigured, "not_configured", err.Error())
	}
	return c, source, nil
}

// AuthCmd manages X API credentials.
type AuthCmd struct {
	Login  AuthLoginCmd  `cmd:"" help:"Store X API credentials (interactive or via flags)."`
	Logout AuthLogoutCmd `cmd:"" help:"Remove X API credentials from keychain."`
	Status AuthStatusCmd `cmd:"" default:"withargs" help:"Check credential status."`
}

// AuthLoginCmd stores OAuth 1.0a user credentials and an optional bearer token.
type AuthLoginCmd struct {
	APIKey            string `help:"Consumer API key." name:"api-key"`
	APISecret         string `help:"Consumer API secret." name:"api-secret"`
	AccessToken       string `help:"User access token." name:"access-token"`
	AccessTokenSecret string `help:"User access token secret." name:"access-token-secret"`
	BearerToken       string `help:"App-only bearer token (optional)." name:"bearer-token"`
	NoVerify          bool   `help:"Store without calling the API to verify."`
}

func (cmd *AuthLoginCmd) Run(ctx context.Context, globals *Globals) error {
	creds := xapi.Credentials{
		APIKey:            strings.TrimSpace(cmd.APIKey),
		APISecret:         strings.TrimSpace(cmd.APISecret),
		AccessToken:       strings.TrimSpace(cmd.AccessToken),
		AccessTokenSecret: strings.TrimSpace(cmd.AccessTokenSecret),
		BearerToken:       strings.TrimSpace(cmd.BearerToken),
	}

	// 1. Prompt for anything missing when running in a terminal.
	if !creds.HasUserContext() {
		if globals.JSON || !isTerminal(os.Stdin) {
			return newCLIError(ExitInvalidInput, "missing_credentials",
				"All of --api-key, --api-secret, --access-token and --access-token-secret are required.")
		}
		if err := cmd.interactive(&creds); err != nil {
			return err
		}
	}

	// 2. Verify against the API.
	var username string
	if !cmd.NoVerify {
		c, _, err := clientFor(creds, "flags")
		if err != nil {
			return err
		}
		if !globals.JSON {
			fmt.Print("Verifying credentials... ")
		}
		verifyCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
		defer cancel()
		me, err := c.Me(verifyCtx)
		if err != nil {
			if !globals.JSON {
				fmt.Println("failed.")
			}
			return newCLIError(ExitRuntimeError, "auth_failed",
				fmt.Sprintf("Credential verification failed: %s", err))
		}
		if !globals.JSON {
			fmt.Println("ok!")
		}
		username = me.Username
	}

	// 3. Store.
	if err := keyring.Set(creds); err != nil {
		return fmt.Errorf("store credentials in keychain: %w", err)
	}

	msg := "X credentials stored."
	if username != "" {
		msg = fmt.Sprintf("X credentials stored for @%s.", username)
	}
	if globals.JSON {
		printSuccessJSON(msg)
	} else {
		fmt.Println("\n" + msg)
		fmt.Println("\nTry it: x-social-ai welcome --dry-run")
	}
	return nil
}

func (cmd *AuthLoginCmd) interactive(creds *xapi.Credentials) error {
	portal := lipgloss.NewStyle().
		Foreground(lipgloss.Color("12")).
		Underline(true).
		Render("https://developer.x.com/en/portal/dashboard")

	fmt.Println()
	fmt.Println("  Welcome to x-social-ai!")
	fmt.Println("  Keys and tokens live under your app in " + portal)
	fmt.Println()

	fields := []struct {
		title string
		value *string
	}{
		{"API key:", &creds.APIKey},
		{"API secret:", &creds.APISecret},
		{"Access token:", &creds.AccessToken},
		{"Access token secret:", &creds.AccessTokenSecret},
	}
	for _, f := range fields {
		if *f.value != "" {
			continue
		}
		err := runField(
			huh.NewInput().
				Title(f.title).
				EchoMode(huh.EchoModePassword).
				Validate(notBlank).
				Value(f.value),
		)
		if err != nil {
			return err
		}
		*f.value = strings.TrimSpace(*f.value)
	}

	if creds.BearerToken == "" {
		err := runField(
			huh.NewInput().
				Title("Bearer token (optional, enter to skip):").
				EchoMode(huh.EchoModePassword).
				Value(&creds.BearerToken),
		)
		if err != nil {
			return err
		}
		creds.BearerToken = strings.TrimSpace(creds.BearerToken)
	}
	return nil
}

func notBlank(s string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("value cannot be empty")
	}
	return nil
}

// runField runs a single huh field as a standalone form with consistent styling.
func runField(field huh.Field) error {
	km := huh.NewDefaultKeyMap()
	km.Quit = key.NewBinding(key.WithKeys("ctrl+c", "ctrl+d"))
	t := huh.ThemeBase()
	t.Focused.Base = t.Focused.Base.MarginBottom(1)
	t.Blurred.Base = t.Blurred.Base.MarginBottom(1)
	return huh.NewForm(huh.NewGroup(field)).WithShowHelp(false).WithKeyMap(km).WithTheme(t).Run()
}

func isTerminal(f *os.File) bool {
	fi, err := f.Stat()
	return err == nil && fi.Mode()&os.ModeCharDevice != 0
}

// AuthLogoutCmd removes credentials from keychain.
type AuthLogoutCmd struct{}

func (cmd *AuthLogoutCmd) Run(globals *Globals) error {
	// Check if credentials exist first.
	_, err := keyring.Get()
	if err != nil {
		if keyring.IsNotFound(err) {
			msg := "No X credentials found."
			if globals.JSON {
				printSuccessJSON(msg)
			} else {
				printSuccessHuman(msg)
			}
			return nil
		}
		return newCLIError(ExitRuntimeError, "keyring_error",
			fmt.Sprintf("Failed to read keychain: %s", err))
	}

	// Warn if launchd timer is installed.
	if launchd.IsInstalled() && !globals.JSON {
		fmt.Fprintln(os.Stderr, "Warning: the welcome schedule is installed. It will fail without credentials.")
		fmt.Fprintln(os.Stderr, "Run `x-social-ai schedule uninstall` to remove it.")
	}

	if err := keyring.Delete(); err != nil {
		return newCLIError(ExitRuntimeError, "keyring_error",
			fmt.Sprintf("Failed to remove credentials: %s", err))
	}

	msg := "X credentials removed from keychain."
	if globals.JSON {
		printSuccessJSON(msg)
	} else {
		printSuccessHuman(msg)
	}
	return nil
}

// AuthStatusCmd reports where credentials come from.
type AuthStatusCmd struct {
	Verify bool `help:"Call the API to check the credentials work." short:"v"`
}

func (cmd *AuthStatusCmd) Run(ctx context.Context, globals *Globals) error {
	creds, source, err := keyring.Resolve()
	if err != nil {
		if keyring.IsNotFound(err) {
			return cmd.printNotConfigured(globals)
		}
		return newCLIError(ExitRuntimeError, "keyring_error",
			fmt.Sprintf("Failed to read keychain: %s", err))
	}

	resp := map[string]any{
		"configured":   true,
		"source":       source,
		"user_context": creds.HasUserContext(),
		"bearer":       creds.BearerToken != "",
	}
	if creds.APIKey != "" {
		resp["api_key"] = maskSecret(creds.APIKey)
	}

	// Optional: verify.
	var verifyErr error
	if cmd.Verify {
		c, _, cerr := clientFor(creds, source)
		verifyErr = cerr
		if cerr == nil {
			me, merr := c.Me(ctx)
			verifyErr = merr
			if merr == nil {
				resp["username"] = me.Username
			}
		}
		resp["verified"] = verifyErr == nil
	}

	if globals.JSON {
		printJSON(resp)
		return nil
	}

	fmt.Fprintf(os.Stdout, "Credentials: configured (from %s)\n", source)
	if k, ok := resp["api_key"]; ok {
		fmt.Fprintf(os.Stdout, "API key: %s\n", k)
	}
	if !creds.HasUserContext() {
		fmt.Fprintln(os.Stdout, "Warning: bearer token only. Posting, following and welcoming need user credentials.")
	}
	if cmd.Verify {
		if verifyErr == nil {
			fmt.Fprintf(os.Stdout, "Verification: ok (@%s)\n", resp["username"])
		} else {
			fmt.Fprintf(os.Stdout, "Verification: failed: %s\n", verifyErr)
		}
	}
	return nil
}

func (cmd *AuthStatusCmd) printNotConfigured(globals *Globals) error {
	if globals.JSON {
		printJSON(map[string]any{"configured": false})
	} else {
		fmt.Fprintln(os.Stdout, "Credentials: not configured")
		fmt.Fprintln(os.Stdout, "Run `x-social-ai auth login` to set up.")
	}
	return nil
}

// maskSecret keeps the first four characters of s.
func maskSecret(s string) string {
	if len(s) <= 4 {
		return "****"
	}
	return s[:4] + "..."
}
