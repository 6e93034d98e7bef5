package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/lvrach/x-social-ai/internal/xapi"
)

// Count limits for timeline commands.
const (
	defaultCount = 10
	maxCount     = 100
)

// Count is the shared --count flag for timeline commands.
type Count struct {
	Count int `help:"Number of posts to fetch (max 100)." short:"c" default:"10"`
}

// clampCount returns n, or defaultCount when n is not positive, capped at maxCount.
func clampCount(n int) int {
	if n <= 0 {
		n = defaultCount
	}
	return min(n, maxCount)
}

var headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))

// WhoamiCmd prints the authenticated account.
type WhoamiCmd struct{}

func (cmd *WhoamiCmd) Run(ctx context.Context, globals *Globals) error {
	client, _, err := newClient()
	if err != nil {
		return err
	}
	me, err := client.Me(ctx)
	if err != nil {
		return newCLIError(ExitRuntimeError, "auth_failed",
			fmt.Sprintf("Failed to authenticate with X: %s", err))
	}

	if globals.JSON {
		printJSON(me)
		return nil
	}
	fmt.Fprintln(os.Stdout, headerStyle.Render(fmt.Sprintf("%s (@%s)", me.Name, me.Username)))
	fmt.Fprintf(os.Stdout, "ID: %s\n", me.ID)
	if me.Description != "" {
		fmt.Fprintf(os.Stdout, "Bio: %s\n", me.Description)
	}
	m := me.PublicMetrics
	fmt.Fprintf(os.Stdout, "Followers: %d | Following: %d | Posts: %d\n",
		m.FollowersCount, m.FollowingCount, m.TweetCount)
	if me.CreatedAt != "" {
		fmt.Fprintf(os.Stdout, "Joined: %s\n", me.CreatedAt)
	}
	return nil
}

// ReadCmd prints a single post.
type ReadCmd struct {
	PostID string `arg:"" help:"ID or URL of the post."`
}

func (cmd *ReadCmd) Run(ctx context.Context, globals *Globals) error {
	id, err := parsePostID(cmd.PostID)
	if err != nil {
		return err
	}
	client, _, err := newClient()
	if err != nil {
		return err
	}
	p, author, err := client.Post(ctx, id)
	if err != nil {
		return apiError("read post", err)
	}

	if globals.JSON {
		printJSON(map[string]any{"post": p, "author": author})
		return nil
	}
	printPost(p, author)
	return nil
}

// SearchCmd searches recent posts.
type SearchCmd struct {
	Query []string `arg:"" help:"Search query (X search syntax)."`
	Count `embed:""`
}

func (cmd *SearchCmd) Run(ctx context.Context, globals *Globals) error {
	query := strings.TrimSpace(strings.Join(cmd.Query, " "))
	if query == "" {
		return newCLIError(ExitInvalidInput, "empty_query", "Search query cannot be empty.")
	}
	client, _, err := newClient()
	if err != nil {
		return err
	}
	tl, err := client.SearchRecent(ctx, query, clampCount(cmd.Count.Count))
	if err != nil {
		return apiError("search", err)
	}
	return printTimeline(globals, tl, clampCount(cmd.Count.Count), fmt.Sprintf("No posts found for %q.", query))
}

// MentionsCmd lists recent mentions of the authenticated user.
type MentionsCmd struct {
	Count `embed:""`
}

func (cmd *MentionsCmd) Run(ctx context.Context, globals *Globals) error {
	client, _, err := newClient()
	if err != nil {
		return err
	}
	me, err := client.Me(ctx)
	if err != nil {
		return newCLIError(ExitRuntimeError, "auth_failed",
			fmt.Sprintf("Failed to authenticate with X: %s", err))
	}
	tl, err := client.Mentions(ctx, me.ID, clampCount(cmd.Count.Count))
	if err != nil {
		return apiError("read mentions", err)
	}
	return printTimeline(globals, tl, clampCount(cmd.Count.Count), "No mentions.")
}

// UserPostsCmd lists a user's recent posts.
type UserPostsCmd struct {
	Username string `arg:"" help:"Username, with or without @."`
	Count    `embed:""`
}

func (cmd *UserPostsCmd) Run(ctx context.Context, globals *Globals) error {
	client, _, err := newClient()
	if err != nil {
		return err
	}
	user, err := client.UserByUsername(ctx, cmd.Username)
	if err != nil {
		return apiError("look up user", err)
	}
	posts, err := client.UserPosts(ctx, user.ID, clampCount(cmd.Count.Count))
	if err != nil {
		return apiError("read posts", err)
	}
	tl := xapi.Timeline{Posts: posts, Authors: map[string]xapi.User{user.ID: user}}
	for i := range tl.Posts {
		if tl.Posts[i].AuthorID == "" {
			tl.Posts[i].AuthorID = user.ID
		}
	}
	return printTimeline(globals, tl, clampCount(cmd.Count.Count), fmt.Sprintf("@%s has no recent posts.", user.Username))
}

type timelineEntry struct {
	xapi.Post
	Author string `json:"author,omitempty"`
}

// printTimeline prints at most limit posts; the API has its own minimum page size.
func printTimeline(globals *Globals, tl xapi.Timeline, limit int, empty string) error {
	posts := tl.Posts
	if len(posts) > limit {
		posts = posts[:limit]
	}

	if globals.JSON {
		entries := make([]timelineEntry, 0, len(posts))
		for _, p := range posts {
			entries = append(entries, timelineEntry{Post: p, Author: tl.Author(p).Username})
		}
		printJSON(entries)
		return nil
	}

	if len(posts) == 0 {
		fmt.Fprintln(os.Stdout, empty)
		return nil
	}
	for _, p := range posts {
		printPost(p, tl.Author(p))
	}
	return nil
}
