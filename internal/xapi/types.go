package xapi

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned when X reports that a user or post does not exist.
var ErrNotFound = errors.New("not found")

// Credentials hold the OAuth 1.0a user-context keys and an optional app bearer token.
type Credentials struct {
	APIKey            string `json:"api_key"`
	APISecret         string `json:"api_secret"`
	AccessToken       string `json:"access_token"`
	AccessTokenSecret string `json:"access_token_secret"`
	BearerToken       string `json:"bearer_token,omitempty"`
}

// HasUserContext reports whether all four OAuth 1.0a values are set.
func (c Credentials) HasUserContext() bool {
	return c.APIKey != "" && c.APISecret != "" && c.AccessToken != "" && c.AccessTokenSecret != ""
}

// IsZero reports whether no credential at all is set.
func (c Credentials) IsZero() bool {
	return !c.HasUserContext() && c.BearerToken == ""
}

// User is an X account.
type User struct {
	ID            string      `json:"id"`
	Username      string      `json:"username"`
	Name          string      `json:"name"`
	Description   string      `json:"description,omitempty"`
	CreatedAt     string      `json:"created_at,omitempty"`
	PublicMetrics UserMetrics `json:"public_metrics"`
}

// UserMetrics are the public counters of a user.
type UserMetrics struct {
	FollowersCount int `json:"followers_count"`
	FollowingCount int `json:"following_count"`
	TweetCount     int `json:"tweet_count"`
}

// Post is a single tweet.
type Post struct {
	ID             string      `json:"id"`
	Text           string      `json:"text"`
	AuthorID       string      `json:"author_id,omitempty"`
	CreatedAt      string      `json:"created_at,omitempty"`
	ConversationID string      `json:"conversation_id,omitempty"`
	PublicMetrics  PostMetrics `json:"public_metrics"`
}

// PostMetrics are the public counters of a post.
type PostMetrics struct {
	LikeCount    int `json:"like_count"`
	RetweetCount int `json:"retweet_count"`
	ReplyCount   int `json:"reply_count"`
}

// URL returns the canonical web link for the post.
func (p Post) URL() string {
	return "https://x.com/i/status/" + p.ID
}

// NewPost describes a post to create. InReplyTo and QuoteID are optional.
type NewPost struct {
	Text      string
	InReplyTo string
	QuoteID   string
}

// Timeline is a list of posts with their expanded authors keyed by user ID.
type Timeline struct {
	Posts   []Post
	Authors map[string]User
}

// Author returns the expanded author of p, or a zero User when X did not include it.
func (t Timeline) Author(p Post) User {
	return t.Authors[p.AuthorID]
}

// APIError is a problem reported by the X API.
type APIError struct {
	StatusCode int
	Title      string
	Detail     string
	Type       string
}

func (e *APIError) Error() string {
	msg := e.Title
	if e.Detail != "" {
		if msg != "" {
			msg += ": "
		}
		msg += e.Detail
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("x api returned %d: %s", e.StatusCode, msg)
	}
	return "x api: " + msg
}

// Is lets errors.Is(err, ErrNotFound) match resource-not-found problems.
func (e *APIError) Is(target error) bool {
	if target != ErrNotFound {
		return false
	}
	return e.StatusCode == 404 || strings.HasSuffix(e.Type, "/resource-not-found")
}

type problem struct {
	Title  string `json:"title"`
	Detail string `json:"detail"`
	Type   string `json:"type"`
	Status int    `json:"status"`
}

func (p problem) toError(status int) *APIError {
	if p.Status != 0 {
		status = p.Status
	}
	return &APIError{StatusCode: status, Title: p.Title, Detail: p.Detail, Type: p.Type}
}

type includes struct {
	Users []User `json:"users"`
}

type envelope[T any] struct {
	Data     *T        `json:"data"`
	Includes includes  `json:"includes"`
	Errors   []problem `json:"errors"`
}
