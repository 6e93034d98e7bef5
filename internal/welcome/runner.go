package welcome

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/lvrach/x-social-ai/internal/agents"
	"github.com/lvrach/x-social-ai/internal/xapi"
)

// Runner executes welcome runs. Platform may be nil when Config.DryRun is set.
type Runner struct {
	Source   Source
	Store    Store
	Platform Platform
	Match    Matcher
	Reply    *ReplyTemplate
	Config   RunConfig
	Log      zerolog.Logger

	// Sleep waits between candidates. Defaults to a context-aware timer.
	Sleep func(ctx context.Context, d time.Duration) error
}

// Run performs one pass. It returns a *FatalError when the state cannot be
// read or written, the directory cannot be fetched, or the actor cannot be
// authenticated. Per-candidate failures are recorded in the report instead.
func (r *Runner) Run(ctx context.Context) (Report, error) {
	cfg := r.Config.withDefaults()
	match := r.Match
	if match == nil {
		match = MarkerMatcher(DefaultMarkers...)
	}
	reply := r.Reply
	if reply == nil {
		reply = MustReplyTemplate(DefaultReplyTemplate)
	}
	sleep := r.Sleep
	if sleep == nil {
		sleep = sleepCtx
	}

	report := Report{DryRun: cfg.DryRun, Outcomes: []Outcome{}}

	// 1. Load what earlier runs already handled.
	done, err := r.Store.Load()
	if err != nil {
		return report, fatal(StageState, err)
	}

	// 2. Fetch candidates.
	r.Log.Info().Str("endpoint", cfg.Endpoint).Msg("fetching new agents")
	candidates, err := r.Source.Fetch(ctx)
	if err != nil {
		return report, fatal(StageFetch, err)
	}
	report.Fetched = len(candidates)

	// 3. Filter.
	eligible := Eligible(candidates, done)
	report.Eligible = len(eligible)
	r.Log.Info().
		Int("fetched", report.Fetched).
		Int("processed", done.Len()).
		Int("eligible", report.Eligible).
		Msg("filtered candidates")
	if len(eligible) == 0 {
		r.Log.Info().Msg("no new users to welcome")
		return report, nil
	}

	// 4. Truncate to the cap; the rest stay eligible for the next run.
	batch := eligible
	if len(batch) > cfg.Cap {
		batch = batch[:cfg.Cap]
	}

	// 5. Authenticate once.
	var me xapi.User
	if !cfg.DryRun {
		if r.Platform == nil {
			return report, fatal(StageAuth, errors.New("no platform client configured"))
		}
		me, err = r.Platform.Me(ctx)
		if err != nil {
			return report, fatal(StageAuth, err)
		}
		r.Log.Info().Str("username", me.Username).Str("id", me.ID).Msg("authenticated")
	}

	// 6. Work through the batch. The delay only separates candidates that
	// reach the platform.
	worked := 0
	for _, c := range batch {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if done.Has(c.Handle) {
			report.Outcomes = append(report.Outcomes,
				Outcome{Handle: c.Handle, Status: StatusSkipped, Detail: "already processed"})
			continue
		}

		log := r.Log.With().Str("handle", c.Handle).Logger()

		var out Outcome
		if cfg.DryRun {
			log.Info().Msg("[dry-run] would follow and reply")
			out = Outcome{Handle: c.Handle, Status: StatusCompleted, Simulated: true, Marked: true}
		} else {
			if worked > 0 {
				if err := sleep(ctx, cfg.Delay); err != nil {
					return report, err
				}
			}
			worked++
			out = r.welcomeOne(ctx, log, me, c, match, reply, cfg.PostWindow)
		}

		if out.Marked {
			done.Add(c.Handle)
			if err := r.Store.Save(done); err != nil {
				report.Outcomes = append(report.Outcomes, out)
				return report, fatal(StageState, err)
			}
		}
		report.Outcomes = append(report.Outcomes, out)

		// A call cut short by cancellation is not a finished run.
		if err := ctx.Err(); err != nil {
			return report, err
		}
	}

	return report, nil
}

// welcomeOne runs resolve, follow, find and reply for a single candidate.
// Nothing it does can abort the run.
func (r *Runner) welcomeOne(ctx context.Context, log zerolog.Logger, me xapi.User, c agents.Candidate, match Matcher, reply *ReplyTemplate, window int) Outcome {
	out := Outcome{Handle: c.Handle}

	// a. Resolve.
	target, err := r.Platform.UserByUsername(ctx, c.Handle)
	if errors.Is(err, xapi.ErrNotFound) || (err == nil && target.ID == "") {
		log.Warn().Msg("user not found, will retry next run")
		out.Status, out.Detail = StatusSkipped, "not found"
		return out
	}
	if err != nil {
		log.Error().Err(err).Msg("resolve failed")
		out.Status, out.Detail = StatusFailed, "resolve: "+err.Error()
		return out
	}

	// b. Follow. From here on the candidate counts as welcomed.
	log.Info().Str("target_id", target.ID).Msg("following")
	if err := r.Platform.Follow(ctx, me.ID, target.ID); err != nil {
		log.Error().Err(err).Msg("follow failed")
		out.Status, out.Detail = StatusFailed, "follow: "+err.Error()
		return out
	}
	out.Marked = true

	// c. Find the verification post.
	posts, err := r.Platform.UserPosts(ctx, target.ID, window)
	if err != nil {
		log.Error().Err(err).Msg("could not read recent posts, skipping reply")
		out.Status, out.Detail = StatusPartial, "recent posts: "+err.Error()
		return out
	}
	post, ok := FirstMatch(posts, match)
	if !ok {
		log.Warn().Int("checked", len(posts)).Msg("no verify post found, skipping reply")
		out.Status, out.Detail = StatusPartial, "no qualifying post"
		return out
	}
	out.PostID = post.ID

	// d. Reply.
	text, err := reply.Render(c.Handle)
	if err != nil {
		log.Error().Err(err).Msg("reply not sent")
		out.Status, out.Detail = StatusPartial, err.Error()
		return out
	}
	log.Info().Str("post_id", post.ID).Msg("replying")
	created, err := r.Platform.CreatePost(ctx, xapi.NewPost{Text: text, InReplyTo: post.ID})
	if err != nil {
		log.Error().Err(err).Msg("reply failed")
		out.Status, out.Detail = StatusPartial, "reply: "+err.Error()
		return out
	}

	log.Info().Str("reply_id", created.ID).Msg("welcomed")
	out.Status, out.ReplyID = StatusCompleted, created.ID
	return out
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
