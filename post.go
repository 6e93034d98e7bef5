package main

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/lvrach/x-social-ai/internal/xapi"
)

// threadInterval spaces the posts of a thread.
const threadInterval = time.Second

// PostCmd publishes a new post.
type PostCmd struct {
	MessageInput `embed:""`
	DryRun       bool `help:"Preview the post without publishing." short:"n"`
}

func (cmd *PostCmd) Run(ctx context.Context, globals *Globals) error {
	// 1. Resolve text.
	text, err := cmd.Resolve()
	if err != nil {
		return err
	}

	// 2. Dry run, preview only.
	if cmd.DryRun {
		return previewPost(globals, text)
	}

	// 3. Publish.
	client, _, err := newClient()
	if err != nil {
		return err
	}
	p, err := client.CreatePost(ctx, xapi.NewPost{Text: text})
	if err != nil {
		return apiError("post", err)
	}
	return printCreated(globals, "Posted", p)
}

// ReplyCmd replies to an existing post.
type ReplyCmd struct {
	PostID       string `arg:"" help:"ID or URL of the post to reply to."`
	MessageInput `embed:""`
}

func (cmd *ReplyCmd) Run(ctx context.Context, globals *Globals) error {
	id, err := parsePostID(cmd.PostID)
	if err != nil {
		return err
	}
	text, err := cmd.Resolve()
	if err != nil {
		return err
	}

	client, _, err := newClient()
	if err != nil {
		return err
	}
	p, err := client.CreatePost(ctx, xapi.NewPost{Text: text, InReplyTo: id})
	if err != nil {
		return apiError("reply", err)
	}
	return printCreated(globals, "Replied", p)
}

// QuoteCmd quotes an existing post with a comment.
type QuoteCmd struct {
	PostID       string `arg:"" help:"ID or URL of the post to quote."`
	MessageInput `embed:""`
}

func (cmd *QuoteCmd) Run(ctx context.Context, globals *Globals) error {
	id, err := parsePostID(cmd.PostID)
	if err != nil {
		return err
	}
	text, err := cmd.Resolve()
	if err != nil {
		return err
	}

	client, _, err := newClient()
	if err != nil {
		return err
	}
	p, err := client.CreatePost(ctx, xapi.NewPost{Text: text, QuoteID: id})
	if err != nil {
		return apiError("quote", err)
	}
	return printCreated(globals, "Quoted", p)
}

// ThreadCmd posts a chain where each post replies to the one before it.
type ThreadCmd struct {
	Posts  []string `arg:"" help:"Post texts, in order (at least two)."`
	DryRun bool     `help:"Preview the thread without publishing." short:"n"`
}

func (cmd *ThreadCmd) Run(ctx context.Context, globals *Globals) error {
	// 1. Validate every post before publishing any.
	if len(cmd.Posts) < 2 {
		return newCLIError(ExitInvalidInput, "thread_too_short",
			"A thread needs at least two posts.")
	}
	for i, text := range cmd.Posts {
		if strings.TrimSpace(text) == "" {
			return newCLIError(ExitInvalidInput, "empty_message",
				fmt.Sprintf("Post %d of the thread is empty.", i+1))
		}
		if err := checkLength(text); err != nil {
			return newCLIError(ExitInvalidInput, "too_long",
				fmt.Sprintf("Post %d of the thread: %s", i+1, err))
		}
	}

	if cmd.DryRun {
		if globals.JSON {
			printJSON(map[string]any{"status": "dry_run", "posts": cmd.Posts})
			return nil
		}
		for i, text := range cmd.Posts {
			fmt.Fprintf(os.Stdout, "[dry-run] %d/%d: %s\n", i+1, len(cmd.Posts), text)
		}
		return nil
	}

	// 2. Publish in order, chaining replies.
	client, _, err := newClient(xapi.WithMinInterval(threadInterval))
	if err != nil {
		return err
	}
	var posted []xapi.Post
	prev := ""
	for i, text := range cmd.Posts {
		p, err := client.CreatePost(ctx, xapi.NewPost{Text: text, InReplyTo: prev})
		if err != nil {
			if len(posted) > 0 && !globals.JSON {
				fmt.Fprintf(os.Stderr, "Thread stopped after %d of %d posts; first post: %s\n",
					len(posted), len(cmd.Posts), posted[0].URL())
			}
			return apiError(fmt.Sprintf("post %d of the thread", i+1), err)
		}
		posted = append(posted, p)
		prev = p.ID
	}

	// 3. Print.
	if globals.JSON {
		ids := make([]string, len(posted))
		for i, p := range posted {
			ids[i] = p.ID
		}
		printJSON(map[string]any{"status": "ok", "ids": ids, "url": posted[0].URL()})
		return nil
	}
	fmt.Fprintf(os.Stdout, "Thread posted (%d posts): %s\n", len(posted), posted[0].URL())
	return nil
}

func previewPost(globals *Globals, text string) error {
	n := len([]rune(text))
	if globals.JSON {
		printJSON(map[string]any{
			"status":     "dry_run",
			"message":    text,
			"char_count": n,
		})
		return nil
	}
	fmt.Fprintln(os.Stdout, "[dry-run] Post preview:")
	fmt.Fprintln(os.Stdout)
	fmt.Fprintln(os.Stdout, text)
	fmt.Fprintf(os.Stdout, "\n(%d/%d characters)\n", n, PostLimit)
	return nil
}

func printCreated(globals *Globals, verb string, p xapi.Post) error {
	if globals.JSON {
		printJSON(map[string]any{"status": "ok", "id": p.ID, "url": p.URL()})
		return nil
	}
	printSuccessHuman(fmt.Sprintf("%s: %s", verb, p.URL()))
	return nil
}

var statusURL = regexp.MustCompile(`/status(?:es)?/(\d+)`)

var numericID = regexp.MustCompile(`^\d+$`)

// parsePostID accepts a bare post ID or a status URL from x.com or twitter.com.
func parsePostID(s string) (string, error) {
	s = strings.TrimSpace(s)
	if numericID.MatchString(s) {
		return s, nil
	}
	if m := statusURL.FindStringSubmatch(s); m != nil {
		return m[1], nil
	}
	return "", newCLIError(ExitInvalidInput, "invalid_post_id",
		fmt.Sprintf("%q is not a post ID or status URL.", s))
}
