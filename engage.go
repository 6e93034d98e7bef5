package main

import (
	"context"
	"fmt"

	"github.com/lvrach/x-social-ai/internal/xapi"
)

// LikeCmd likes a post as the authenticated user.
type LikeCmd struct {
	PostID string `arg:"" help:"ID or URL of the post."`
}

func (cmd *LikeCmd) Run(ctx context.Context, globals *Globals) error {
	return actOnPost(ctx, globals, cmd.PostID, "like", "Liked", (*xapi.Client).Like)
}

// RetweetCmd reposts a post as the authenticated user.
type RetweetCmd struct {
	PostID string `arg:"" help:"ID or URL of the post."`
}

func (cmd *RetweetCmd) Run(ctx context.Context, globals *Globals) error {
	return actOnPost(ctx, globals, cmd.PostID, "retweet", "Retweeted", (*xapi.Client).Retweet)
}

func actOnPost(ctx context.Context, globals *Globals, ref, action, verb string,
	do func(*xapi.Client, context.Context, string, string) error,
) error {
	id, err := parsePostID(ref)
	if err != nil {
		return err
	}
	client, _, err := newClient()
	if err != nil {
		return err
	}
	me, err := client.Me(ctx)
	if err != nil {
		return newCLIError(ExitRuntimeError, "auth_failed",
			fmt.Sprintf("Failed to authenticate with X: %s", err))
	}
	if err := do(client, ctx, me.ID, id); err != nil {
		return apiError(action, err)
	}

	msg := fmt.Sprintf("%s %s", verb, (xapi.Post{ID: id}).URL())
	if globals.JSON {
		printSuccessJSON(msg)
	} else {
		printSuccessHuman(msg)
	}
	return nil
}

// FollowCmd follows a user by username.
type FollowCmd struct {
	Username string `arg:"" help:"Username to follow, with or without @."`
}

func (cmd *FollowCmd) Run(ctx context.Context, globals *Globals) error {
	client, _, err := newClient()
	if err != nil {
		return err
	}
	me, err := client.Me(ctx)
	if err != nil {
		return newCLIError(ExitRuntimeError, "auth_failed",
			fmt.Sprintf("Failed to authenticate with X: %s", err))
	}
	target, err := client.UserByUsername(ctx, cmd.Username)
	if err != nil {
		return apiError("look up user", err)
	}
	if err := client.Follow(ctx, me.ID, target.ID); err != nil {
		return apiError("follow", err)
	}

	msg := fmt.Sprintf("Followed @%s.", target.Username)
	if globals.JSON {
		printSuccessJSON(msg)
	} else {
		printSuccessHuman(msg)
	}
	return nil
}
