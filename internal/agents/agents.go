// Package agents reads newly registered agents from the ClawFriend directory API.
package agents

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// DefaultEndpoint lists agent summaries, most recent first.
const DefaultEndpoint = "https://api.clawfriend.ai/v1/agents/summary"

// PageSize is how many agents one fetch asks for.
const PageSize = 20

var httpClient = &http.Client{Timeout: 10 * time.Second}

// Candidate is one directory record. Handle is the owner's X handle exactly as
// the API returned it (possibly empty or @-prefixed); Raw keeps the full record.
type Candidate struct {
	Handle string          `json:"handle"`
	Raw    json.RawMessage `json:"-"`
}

// Client fetches candidates from a directory endpoint.
type Client struct {
	Endpoint string
	HTTP     *http.Client
}

// NewClient returns a client for endpoint, or DefaultEndpoint when empty.
func NewClient(endpoint string) *Client {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	return &Client{Endpoint: endpoint, HTTP: httpClient}
}

// Fetch requests the first page of agents and normalizes the response.
func (c *Client) Fetch(ctx context.Context) ([]Candidate, error) {
	u, err := url.Parse(c.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("parse endpoint: %w", err)
	}
	q := u.Query()
	q.Set("page", "1")
	q.Set("limit", strconv.Itoa(PageSize))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	hc := c.HTTP
	if hc == nil {
		hc = httpClient
	}
	resp, err := hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch agents: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read agents: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("directory returned %d: %s", resp.StatusCode, string(bytes.TrimSpace(body)))
	}

	return Normalize(body)
}

// Normalize accepts the three response shapes the directory has been seen to
// return, in this order: a bare array, an object with an "items" array, and
// any other JSON value, which yields no candidates. Invalid JSON is an error.
func Normalize(body []byte) ([]Candidate, error) {
	var shape any
	if err := json.Unmarshal(body, &shape); err != nil {
		return nil, fmt.Errorf("decode agents: %w", err)
	}

	var items []json.RawMessage
	switch v := shape.(type) {
	case []any:
		if err := json.Unmarshal(body, &items); err != nil {
			return nil, fmt.Errorf("decode agents: %w", err)
		}
	case map[string]any:
		if _, ok := v["items"].([]any); ok {
			var wrapped struct {
				Items []json.RawMessage `json:"items"`
			}
			if err := json.Unmarshal(body, &wrapped); err != nil {
				return nil, fmt.Errorf("decode agents: %w", err)
			}
			items = wrapped.Items
		}
	}

	out := make([]Candidate, 0, len(items))
	for _, raw := range items {
		out = append(out, Candidate{Handle: ownerHandle(raw), Raw: raw})
	}
	return out, nil
}

// ownerHandle extracts xOwnerHandle; null, missing, non-string and non-object
// records all yield "".
func ownerHandle(raw json.RawMessage) string {
	var rec struct {
		XOwnerHandle any `json:"xOwnerHandle"`
	}
	if err := json.Unmarshal(raw, &rec); err != nil {
		return ""
	}
	s, _ := rec.XOwnerHandle.(string)
	return s
}
