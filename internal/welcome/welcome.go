// Package welcome follows and greets newly registered agent owners on X.
//
// A run fetches the directory, drops handles already in the processed set,
// and works through at most Cap of the rest, one at a time: resolve the handle,
// follow it, find its verification post and reply to it. The processed set is
// saved after every successful follow, so an interrupted run loses at most the
// candidate it was working on.
package welcome

import (
	"context"
	"fmt"
	"time"

	"github.com/lvrach/x-social-ai/internal/agents"
	"github.com/lvrach/x-social-ai/internal/state"
	"github.com/lvrach/x-social-ai/internal/xapi"
)

// Defaults for RunConfig.
const (
	DefaultCap        = 5
	DefaultDelay      = 2000 * time.Millisecond
	DefaultPostWindow = 5
)

// RunConfig is resolved once before a run and not changed afterwards.
type RunConfig struct {
	Cap        int
	DryRun     bool
	Delay      time.Duration
	Endpoint   string
	PostWindow int
}

// DefaultRunConfig returns the stock configuration.
func DefaultRunConfig() RunConfig {
	return RunConfig{
		Cap:        DefaultCap,
		Delay:      DefaultDelay,
		Endpoint:   agents.DefaultEndpoint,
		PostWindow: DefaultPostWindow,
	}
}

func (c RunConfig) withDefaults() RunConfig {
	if c.Cap <= 0 {
		c.Cap = DefaultCap
	}
	if c.Delay < 0 {
		c.Delay = 0
	}
	if c.PostWindow <= 0 {
		c.PostWindow = DefaultPostWindow
	}
	return c
}

// Source yields candidate agents.
type Source interface {
	Fetch(ctx context.Context) ([]agents.Candidate, error)
}

// Store loads and saves the processed set.
type Store interface {
	Load() (*state.Set, error)
	Save(set *state.Set) error
}

// Platform is the subset of the X API a run needs. *xapi.Client implements it.
type Platform interface {
	Me(ctx context.Context) (xapi.User, error)
	UserByUsername(ctx context.Context, username string) (xapi.User, error)
	Follow(ctx context.Context, actorID, targetID string) error
	UserPosts(ctx context.Context, userID string, limit int) ([]xapi.Post, error)
	CreatePost(ctx context.Context, p xapi.NewPost) (xapi.Post, error)
}

// Status classifies what happened to one candidate.
type Status string

const (
	StatusSkipped   Status = "skipped"
	StatusCompleted Status = "completed"
	StatusPartial   Status = "partial"
	StatusFailed    Status = "failed"
)

// Outcome is the per-candidate result of a run. Marked reports whether the
// handle was added to the processed set.
type Outcome struct {
	Handle    string `json:"handle"`
	Status    Status `json:"status"`
	Detail    string `json:"detail,omitempty"`
	PostID    string `json:"post_id,omitempty"`
	ReplyID   string `json:"reply_id,omitempty"`
	Simulated bool   `json:"simulated,omitempty"`
	Marked    bool   `json:"marked"`
}

// Report summarizes a run.
type Report struct {
	DryRun   bool      `json:"dry_run"`
	Fetched  int       `json:"fetched"`
	Eligible int       `json:"eligible"`
	Outcomes []Outcome `json:"outcomes"`
}

// Welcomed counts the outcomes that were added to the processed set.
func (r Report) Welcomed() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Marked {
			n++
		}
	}
	return n
}

// Stages a FatalError can come from.
const (
	StageState = "state"
	StageFetch = "fetch"
	StageAuth  = "auth"
)

// FatalError aborts a whole run.
type FatalError struct {
	Stage string
	Err   error
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("%s: %s", e.Stage, e.Err)
}

func (e *FatalError) Unwrap() error { return e.Err }

func fatal(stage string, err error) error {
	return &FatalError{Stage: stage, Err: err}
}
