package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/huh"
)

// Globals holds flags shared across all commands.
type Globals struct {
	JSON bool `help:"Output JSON for LLM/script consumption." short:"j"`
}

// CLI is the root command structure for x-social-ai.
type CLI struct {
	Globals

	Auth     AuthCmd     `cmd:"" help:"Manage X API credentials."`
	Welcome  WelcomeCmd  `cmd:"" help:"Follow and greet newly registered ClawFriend agents."`
	Welcomed WelcomedCmd `cmd:"" help:"List handles that have already been welcomed."`
	Schedule ScheduleCmd `cmd:"" help:"Run the welcome bot periodically (macOS launchd)."`

	Post   PostCmd   `cmd:"" help:"Post a new tweet."`
	Reply  ReplyCmd  `cmd:"" help:"Reply to a tweet."`
	Quote  QuoteCmd  `cmd:"" help:"Quote a tweet with a comment."`
	Thread ThreadCmd `cmd:"" help:"Post a thread; each argument becomes one tweet."`

	Like    LikeCmd    `cmd:"" help:"Like a tweet."`
	Retweet RetweetCmd `cmd:"" help:"Retweet a tweet."`
	Follow  FollowCmd  `cmd:"" help:"Follow a user."`

	Whoami    WhoamiCmd    `cmd:"" help:"Show the authenticated account."`
	Read      ReadCmd      `cmd:"" help:"Read a single tweet by ID or URL."`
	Search    SearchCmd    `cmd:"" help:"Search tweets from the last seven days."`
	Mentions  MentionsCmd  `cmd:"" help:"Read your recent mentions."`
	UserPosts UserPostsCmd `cmd:"" help:"Read a user's recent tweets."`

	Guide GuideCmd `cmd:"" help:"Print the usage guide for LLM agents driving this tool."`
}

func main() {
	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cli := CLI{}
	ctx := kong.Parse(&cli,
		kong.Name("x-social-ai"),
		kong.Description("Act on X from the terminal and welcome new ClawFriend agents."),
		kong.UsageOnError(),
		kong.BindTo(sigCtx, (*context.Context)(nil)),
	)
	err := ctx.Run(&cli.Globals)
	stop()
	if err != nil {
		// Ctrl+C / Ctrl+D exit silently.
		if isUserAbort(err) {
			os.Exit(0)
		}

		var cliErr *CLIError
		if ok := asCLIError(err, &cliErr); ok {
			if cli.JSON {
				printErrorJSON(cliErr.Message, cliErr.Code)
			} else {
				printErrorHuman(cliErr.Message)
			}
			os.Exit(cliErr.ExitCode)
		}
		if cli.JSON {
			printErrorJSON(err.Error(), "runtime_error")
		} else {
			printErrorHuman(err.Error())
		}
		os.Exit(1)
	}
}

// isUserAbort returns true for errors caused by the user
// quitting an interactive prompt (Ctrl+C, Ctrl+D).
// It intentionally does NOT match io.EOF via errors.Is because
// EOF can originate from network failures (e.g. "get me: EOF"),
// which must surface as errors rather than silent exit 0.
func isUserAbort(err error) bool {
	if errors.Is(err, huh.ErrUserAborted) {
		return true
	}
	// huh wraps bubbletea errors as "huh: <err>"
	if strings.Contains(err.Error(), "user aborted") {
		return true
	}
	return false
}
