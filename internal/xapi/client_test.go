package xapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testCreds = Credentials{
	APIKey:            "key",
	APISecret:         "secret",
	AccessToken:       "token",
	AccessTokenSecret: "token-secret",
}

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := New(testCreds, WithBaseURL(srv.URL))
	require.NoError(t, err)
	return c
}

func TestNew_NoCredentials(t *testing.T) {
	_, err := New(Credentials{})
	require.Error(t, err)
}

func TestMe_SignsWithOAuth1(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/users/me", r.URL.Path)
		assert.True(t, strings.HasPrefix(r.Header.Get("Authorization"), "OAuth "),
			"expected OAuth 1.0a header, got %q", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"data":{"id":"42","username":"clawfriend_ai","name":"ClawFriend",
			"public_metrics":{"followers_count":10,"following_count":3,"tweet_count":99}}}`))
	})

	me, err := c.Me(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "42", me.ID)
	assert.Equal(t, "clawfriend_ai", me.Username)
	assert.Equal(t, 10, me.PublicMetrics.FollowersCount)
}

func TestBearerToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer app-token", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"data":{"id":"1","text":"hi","author_id":"7"},"includes":{"users":[{"id":"7","username":"bob"}]}}`))
	}))
	defer srv.Close()

	c, err := New(Credentials{BearerToken: "app-token"}, WithBaseURL(srv.URL))
	require.NoError(t, err)

	post, author, err := c.Post(context.Background(), "1")
	require.NoError(t, err)
	assert.Equal(t, "hi", post.Text)
	assert.Equal(t, "bob", author.Username)
	assert.Equal(t, "https://x.com/i/status/1", post.URL())
}

func TestUserByUsername_StripsAt(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/users/by/username/alice", r.URL.Path)
		_, _ = w.Write([]byte(`{"data":{"id":"100","username":"alice","name":"Alice"}}`))
	})

	u, err := c.UserByUsername(context.Background(), "@alice")
	require.NoError(t, err)
	assert.Equal(t, "100", u.ID)
}

func TestUserByUsername_NotFoundProblem(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"errors":[{"title":"Not Found Error","detail":"Could not find user with username: [ghost].",
			"type":"https://api.twitter.com/2/problems/resource-not-found"}]}`))
	})

	_, err := c.UserByUsername(context.Background(), "ghost")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.Contains(t, err.Error(), "Could not find user")
}

func TestUserByUsername_Empty(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	})

	_, err := c.UserByUsername(context.Background(), " @ ")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFollow_Body(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/users/42/following", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "100", body["target_user_id"])
		_, _ = w.Write([]byte(`{"data":{"following":true,"pending_follow":false}}`))
	})

	require.NoError(t, c.Follow(context.Background(), "42", "100"))
}

func TestFollow_HTTPError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"title":"Too Many Requests","detail":"Too Many Requests","type":"about:blank","status":429}`))
	})

	err := c.Follow(context.Background(), "42", "100")
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, 429, apiErr.StatusCode)
	assert.False(t, errors.Is(err, ErrNotFound))
	assert.Contains(t, err.Error(), "429")
}

func TestLikeAndRetweet(t *testing.T) {
	var paths []string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		var body map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "555", body["tweet_id"])
		_, _ = w.Write([]byte(`{"data":{"ok":true}}`))
	})

	require.NoError(t, c.Like(context.Background(), "42", "555"))
	require.NoError(t, c.Retweet(context.Background(), "42", "555"))
	assert.Equal(t, []string{"/users/42/likes", "/users/42/retweets"}, paths)
}

func TestUserPosts_ClampsAndTrims(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/users/100/tweets", r.URL.Path)
		assert.Equal(t, "5", r.URL.Query().Get("max_results"))
		_, _ = w.Write([]byte(`{"data":[{"id":"1","text":"a"},{"id":"2","text":"b"},{"id":"3","text":"c"},
			{"id":"4","text":"d"},{"id":"5","text":"e"}]}`))
	})

	posts, err := c.UserPosts(context.Background(), "100", 2)
	require.NoError(t, err)
	require.Len(t, posts, 2)
	assert.Equal(t, "1", posts[0].ID)
}

func TestUserPosts_EmptyTimeline(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"meta":{"result_count":0}}`))
	})

	posts, err := c.UserPosts(context.Background(), "100", 5)
	require.NoError(t, err)
	assert.Empty(t, posts)
}

func TestSearchRecent_ExpandsAuthors(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/tweets/search/recent", r.URL.Path)
		assert.Equal(t, "ClawFriend OR OpenClaw", r.URL.Query().Get("query"))
		assert.Equal(t, "10", r.URL.Query().Get("max_results"))
		assert.Equal(t, "author_id", r.URL.Query().Get("expansions"))
		_, _ = w.Write([]byte(`{"data":[{"id":"9","text":"paws","author_id":"7",
			"public_metrics":{"like_count":3,"retweet_count":1,"reply_count":0}}],
			"includes":{"users":[{"id":"7","username":"bob","name":"Bob"}]}}`))
	})

	tl, err := c.SearchRecent(context.Background(), "ClawFriend OR OpenClaw", 1)
	require.NoError(t, err)
	require.Len(t, tl.Posts, 1)
	assert.Equal(t, "bob", tl.Author(tl.Posts[0]).Username)
	assert.Equal(t, 3, tl.Posts[0].PublicMetrics.LikeCount)
}

func TestCreatePost_ReplyAndQuote(t *testing.T) {
	var body map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/tweets", r.URL.Path)
		data, _ := io.ReadAll(r.Body)
		body = nil
		assert.NoError(t, json.Unmarshal(data, &body))
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"data":{"id":"777","text":"hey"}}`))
	})

	post, err := c.CreatePost(context.Background(), NewPost{Text: "hey", InReplyTo: "555"})
	require.NoError(t, err)
	assert.Equal(t, "777", post.ID)
	assert.Equal(t, "hey", body["text"])
	assert.Equal(t, map[string]any{"in_reply_to_tweet_id": "555"}, body["reply"])
	assert.NotContains(t, body, "quote_tweet_id")

	_, err = c.CreatePost(context.Background(), NewPost{Text: "look", QuoteID: "555"})
	require.NoError(t, err)
	assert.Equal(t, "555", body["quote_tweet_id"])
	assert.NotContains(t, body, "reply")
}

func TestMinInterval_PacesRequests(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":{"id":"1","text":"x"}}`))
	}))
	defer srv.Close()

	c, err := New(testCreds, WithBaseURL(srv.URL), WithMinInterval(50*time.Millisecond))
	require.NoError(t, err)

	start := time.Now()
	for range 3 {
		_, err := c.CreatePost(context.Background(), NewPost{Text: "x"})
		require.NoError(t, err)
	}
	assert.GreaterOrEqual(t, time.Since(start), 90*time.Millisecond)
}

func TestAPIError_Message(t *testing.T) {
	err := &APIError{StatusCode: 403, Title: "Forbidden", Detail: "not permitted"}
	assert.Equal(t, "x api returned 403: Forbidden: not permitted", err.Error())
	assert.True(t, errors.Is(&APIError{StatusCode: 404}, ErrNotFound))
}
