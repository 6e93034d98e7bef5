// Package xapi is a small client for the parts of the X API v2 this tool uses.
package xapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dghubble/oauth1"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

// DefaultBaseURL is the X API v2 root.
const DefaultBaseURL = "https://api.x.com/2"

const (
	postFields = "created_at,author_id,public_metrics,conversation_id"
	userFields = "username,name"
)

// Client calls the X API. Requests are signed with OAuth 1.0a when user-context
// credentials are present, otherwise with the app bearer token.
type Client struct {
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL points the client at a different API root (used by tests).
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithMinInterval spaces consecutive requests at least d apart. Zero disables pacing.
func WithMinInterval(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.limiter = rate.NewLimiter(rate.Every(d), 1)
		}
	}
}

// WithTimeout sets the per-request timeout (default 15s).
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

// New builds a client from credentials.
func New(creds Credentials, opts ...Option) (*Client, error) {
	var hc *http.Client
	switch {
	case creds.HasUserContext():
		cfg := oauth1.NewConfig(creds.APIKey, creds.APISecret)
		hc = cfg.Client(context.Background(), oauth1.NewToken(creds.AccessToken, creds.AccessTokenSecret))
	case creds.BearerToken != "":
		hc = oauth2.NewClient(context.Background(), oauth2.StaticTokenSource(&oauth2.Token{
			AccessToken: creds.BearerToken,
			TokenType:   "Bearer",
		}))
	default:
		return nil, errors.New("no X credentials provided")
	}
	hc.Timeout = 15 * time.Second

	c := &Client{baseURL: DefaultBaseURL, http: hc}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Me returns the authenticated user.
func (c *Client) Me(ctx context.Context) (User, error) {
	q := url.Values{"user.fields": {"id,name,username,description,public_metrics,created_at"}}
	env, err := call[User](ctx, c, http.MethodGet, "/users/me", q, nil)
	if err != nil {
		return User{}, fmt.Errorf("get me: %w", err)
	}
	return *env.Data, nil
}

// UserByUsername resolves a username (with or without a leading @).
// It returns ErrNotFound when the account does not exist.
func (c *Client) UserByUsername(ctx context.Context, username string) (User, error) {
	username = strings.TrimPrefix(strings.TrimSpace(username), "@")
	if username == "" {
		return User{}, ErrNotFound
	}
	env, err := call[User](ctx, c, http.MethodGet, "/users/by/username/"+url.PathEscape(username), nil, nil)
	if err != nil {
		return User{}, fmt.Errorf("get user %q: %w", username, err)
	}
	if env.Data.ID == "" {
		return User{}, fmt.Errorf("get user %q: %w", username, ErrNotFound)
	}
	return *env.Data, nil
}

// Follow makes actorID follow targetID.
func (c *Client) Follow(ctx context.Context, actorID, targetID string) error {
	body := map[string]string{"target_user_id": targetID}
	if _, err := call[json.RawMessage](ctx, c, http.MethodPost, "/users/"+url.PathEscape(actorID)+"/following", nil, body); err != nil {
		return fmt.Errorf("follow %s: %w", targetID, err)
	}
	return nil
}

// Like likes a post as actorID.
func (c *Client) Like(ctx context.Context, actorID, postID string) error {
	body := map[string]string{"tweet_id": postID}
	if _, err := call[json.RawMessage](ctx, c, http.MethodPost, "/users/"+url.PathEscape(actorID)+"/likes", nil, body); err != nil {
		return fmt.Errorf("like %s: %w", postID, err)
	}
	return nil
}

// Retweet reposts a post as actorID.
func (c *Client) Retweet(ctx context.Context, actorID, postID string) error {
	body := map[string]string{"tweet_id": postID}
	if _, err := call[json.RawMessage](ctx, c, http.MethodPost, "/users/"+url.PathEscape(actorID)+"/retweets", nil, body); err != nil {
		return fmt.Errorf("retweet %s: %w", postID, err)
	}
	return nil
}

// UserPosts returns up to limit of the user's most recent posts, newest first.
func (c *Client) UserPosts(ctx context.Context, userID string, limit int) ([]Post, error) {
	q := url.Values{
		"max_results":  {strconv.Itoa(clamp(limit, 5, 100))},
		"tweet.fields": {postFields},
	}
	posts, err := callList(ctx, c, "/users/"+url.PathEscape(userID)+"/tweets", q)
	if err != nil {
		return nil, fmt.Errorf("get posts of %s: %w", userID, err)
	}
	if limit > 0 && len(posts.Posts) > limit {
		posts.Posts = posts.Posts[:limit]
	}
	return posts.Posts, nil
}

// Mentions returns recent posts mentioning userID with their authors expanded.
func (c *Client) Mentions(ctx context.Context, userID string, limit int) (Timeline, error) {
	q := url.Values{
		"max_results":  {strconv.Itoa(clamp(limit, 5, 100))},
		"tweet.fields": {postFields},
		"expansions":   {"author_id"},
		"user.fields":  {userFields},
	}
	tl, err := callList(ctx, c, "/users/"+url.PathEscape(userID)+"/mentions", q)
	if err != nil {
		return Timeline{}, fmt.Errorf("get mentions: %w", err)
	}
	return tl, nil
}

// SearchRecent searches posts from the last seven days.
func (c *Client) SearchRecent(ctx context.Context, query string, limit int) (Timeline, error) {
	q := url.Values{
		"query":        {query},
		"max_results":  {strconv.Itoa(clamp(limit, 10, 100))},
		"tweet.fields": {postFields},
		"expansions":   {"author_id"},
		"user.fields":  {userFields},
	}
	tl, err := callList(ctx, c, "/tweets/search/recent", q)
	if err != nil {
		return Timeline{}, fmt.Errorf("search %q: %w", query, err)
	}
	return tl, nil
}

// Post fetches a single post and its author.
func (c *Client) Post(ctx context.Context, id string) (Post, User, error) {
	q := url.Values{
		"tweet.fields": {postFields + ",in_reply_to_user_id"},
		"expansions":   {"author_id"},
		"user.fields":  {userFields},
	}
	env, err := call[Post](ctx, c, http.MethodGet, "/tweets/"+url.PathEscape(id), q, nil)
	if err != nil {
		return Post{}, User{}, fmt.Errorf("get post %s: %w", id, err)
	}
	var author User
	if len(env.Includes.Users) > 0 {
		author = env.Includes.Users[0]
	}
	return *env.Data, author, nil
}

// CreatePost publishes a post, optionally as a reply or a quote.
func (c *Client) CreatePost(ctx context.Context, p NewPost) (Post, error) {
	type replyBody struct {
		InReplyToTweetID string `json:"in_reply_to_tweet_id"`
	}
	body := struct {
		Text         string     `json:"text"`
		Reply        *replyBody `json:"reply,omitempty"`
		QuoteTweetID string     `json:"quote_tweet_id,omitempty"`
	}{Text: p.Text, QuoteTweetID: p.QuoteID}
	if p.InReplyTo != "" {
		body.Reply = &replyBody{InReplyToTweetID: p.InReplyTo}
	}

	env, err := call[Post](ctx, c, http.MethodPost, "/tweets", nil, body)
	if err != nil {
		return Post{}, fmt.Errorf("create post: %w", err)
	}
	return *env.Data, nil
}

func callList(ctx context.Context, c *Client, path string, q url.Values) (Timeline, error) {
	env, err := call[[]Post](ctx, c, http.MethodGet, path, q, nil)
	if err != nil {
		// An empty timeline comes back with neither data nor errors.
		if errors.Is(err, errNoData) {
			return Timeline{Authors: map[string]User{}}, nil
		}
		return Timeline{}, err
	}
	tl := Timeline{Authors: make(map[string]User, len(env.Includes.Users))}
	for _, u := range env.Includes.Users {
		tl.Authors[u.ID] = u
	}
	tl.Posts = *env.Data
	return tl, nil
}

var errNoData = fmt.Errorf("empty response: %w", ErrNotFound)

func call[T any](ctx context.Context, c *Client, method, path string, q url.Values, in any) (envelope[T], error) {
	var env envelope[T]

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return env, err
		}
	}

	u := c.baseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return env, fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return env, err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return env, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return env, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var p problem
		if json.Unmarshal(data, &p) != nil || (p.Title == "" && p.Detail == "") {
			p = problem{Detail: strings.TrimSpace(string(data))}
		}
		return env, p.toError(resp.StatusCode)
	}

	if err := json.Unmarshal(data, &env); err != nil {
		return env, fmt.Errorf("decode response: %w", err)
	}
	if env.Data == nil {
		if len(env.Errors) > 0 {
			return env, env.Errors[0].toError(0)
		}
		return env, errNoData
	}
	return env, nil
}

func clamp(n, lo, hi int) int {
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}
