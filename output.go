package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/lvrach/x-social-ai/internal/xapi"
)

// Exit codes.
const (
	ExitOK            = 0
	ExitRuntimeError  = 1
	ExitNotConfigured = 2
	ExitInvalidInput  = 3
)

// CLIError is a structured error with an exit code and machine-readable code.
type CLIError struct {
	ExitCode int
	Code     string
	Message  string
}

func (e *CLIError) Error() string { return e.Message }

// asCLIError unwraps err into a *CLIError.
func asCLIError(err error, target **CLIError) bool {
	return errors.As(err, target)
}

// newCLIError creates a new CLIError.
func newCLIError(exitCode int, code, message string) *CLIError {
	return &CLIError{ExitCode: exitCode, Code: code, Message: message}
}

// apiError turns an X API failure into a CLIError with a stable code.
func apiError(action string, err error) *CLIError {
	if errors.Is(err, xapi.ErrNotFound) {
		return newCLIError(ExitInvalidInput, "not_found", fmt.Sprintf("Failed to %s: %s", action, err))
	}
	return newCLIError(ExitRuntimeError, "api_error", fmt.Sprintf("Failed to %s: %s", action, err))
}

// JSON response types.
type jsonResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

func printSuccessJSON(message string) {
	resp := jsonResponse{Status: "ok", Message: message}
	b, _ := json.Marshal(resp)
	fmt.Fprintln(os.Stdout, string(b))
}

func printErrorJSON(message, code string) {
	resp := jsonResponse{Status: "error", Error: code, Message: message}
	b, _ := json.Marshal(resp)
	fmt.Fprintln(os.Stderr, string(b))
}

func printJSON(v any) {
	b, _ := json.Marshal(v)
	fmt.Fprintln(os.Stdout, string(b))
}

func printSuccessHuman(message string) {
	fmt.Fprintln(os.Stdout, message)
}

func printErrorHuman(message string) {
	fmt.Fprintln(os.Stderr, "Error: "+message)
}

// printPost prints one post the way the timeline commands list them.
func printPost(p xapi.Post, author xapi.User) {
	name := author.Username
	if name == "" {
		name = "unknown"
	}
	fmt.Fprintf(os.Stdout, "[%s] @%s (%s):\n", p.ID, name, p.CreatedAt)
	fmt.Fprintf(os.Stdout, "  %s\n", strings.ReplaceAll(p.Text, "\n", "\n  "))
	fmt.Fprintf(os.Stdout, "  likes %d | retweets %d | replies %d\n",
		p.PublicMetrics.LikeCount, p.PublicMetrics.RetweetCount, p.PublicMetrics.ReplyCount)
	fmt.Fprintln(os.Stdout, "---")
}
