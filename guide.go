package main

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/charmbracelet/glamour"
)

//go:embed x-social-ai.guide.md
var guideContent string

// GuideCmd prints the usage guide to stdout.
type GuideCmd struct {
	Raw bool `help:"Print plain markdown even on a terminal."`
}

func (cmd *GuideCmd) Run(globals *Globals) error {
	if cmd.Raw || globals.JSON || !isTerminal(os.Stdout) {
		fmt.Print(guideContent)
		return nil
	}
	fmt.Print(renderMarkdown(guideContent, 100))
	return nil
}

// renderMarkdown renders md for the terminal, falling back to the raw text.
func renderMarkdown(md string, width int) string {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
		glamour.WithEmoji(),
	)
	if err != nil {
		return md
	}
	out, err := r.Render(md)
	if err != nil {
		return md
	}
	return out
}
