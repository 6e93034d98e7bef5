package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"
)

// PostLimit is the maximum length of a single post.
const PostLimit = 280

// MessageInput provides shared message resolution (args, file, stdin, pipe).
// Embedded in PostCmd, ReplyCmd and QuoteCmd.
type MessageInput struct {
	Message []string `arg:"" optional:"" help:"Post text; multiple words are joined with spaces."`
	File    string   `help:"Read text from a file." short:"F" type:"existingfile"`
	Stdin   bool     `help:"Force reading text from stdin."`
}

// Resolve returns the text, checking args -> file -> stdin flag -> piped stdin,
// and enforces the post length limit.
func (m *MessageInput) Resolve() (string, error) {
	msg, err := m.resolve()
	if err != nil {
		return "", err
	}
	if err := checkLength(msg); err != nil {
		return "", err
	}
	return msg, nil
}

func (m *MessageInput) resolve() (string, error) {
	// 1. Positional arguments.
	if text := strings.TrimSpace(strings.Join(m.Message, " ")); text != "" {
		return text, nil
	}

	// 2. --file flag.
	if m.File != "" {
		return readFile(m.File)
	}

	// 3. --stdin flag.
	if m.Stdin {
		return readStdin()
	}

	// 4. Detect piped stdin (not a terminal).
	fi, err := os.Stdin.Stat()
	if err == nil && (fi.Mode()&os.ModeCharDevice) == 0 {
		return readStdin()
	}

	// 5. No message provided.
	return "", newCLIError(ExitInvalidInput, "empty_message",
		"No text provided. Pass it as arguments, --file, or pipe via stdin.")
}

// checkLength rejects text over PostLimit characters.
func checkLength(text string) error {
	if n := utf8.RuneCountInString(text); n > PostLimit {
		return newCLIError(ExitInvalidInput, "too_long",
			fmt.Sprintf("Post is %d characters; the limit is %d.", n, PostLimit))
	}
	return nil
}

func readFile(path string) (string, error) {
	data, err := os.ReadFile(path) //nolint:gosec // user-provided path via CLI flag
	if err != nil {
		return "", newCLIError(ExitRuntimeError, "read_file_failed",
			fmt.Sprintf("Failed to read file %q: %s", path, err))
	}
	msg := strings.TrimRight(string(data), "\n")
	if msg == "" {
		return "", newCLIError(ExitInvalidInput, "empty_message",
			fmt.Sprintf("File %q is empty.", path))
	}
	return msg, nil
}

func readStdin() (string, error) {
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	msg := strings.TrimRight(string(data), "\n")
	if msg == "" {
		return "", newCLIError(ExitInvalidInput, "empty_message",
			"No text provided (stdin was empty).")
	}
	return msg, nil
}
