package ddg

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client queries the DuckDuckGo instant-answer API. No authentication is
// required, which is the point: it gives the fact-checker agent a cheap,
// independent signal without another credential to manage.
type Client struct {
	Endpoint string
	http     *http.Client
}

// New creates a client for the given endpoint (empty means the public API).
func New(endpoint string, timeout time.Duration) *Client {
	if endpoint == "" {
		endpoint = "https://api.duckduckgo.com/"
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{Endpoint: endpoint, http: &http.Client{Timeout: timeout}}
}

// AbstractText returns the instant-answer abstract for the query. A query
// with no instant answer yields an empty string, not an error.
func (c *Client) AbstractText(ctx context.Context, query string) (string, error) {
	q := url.Values{}
	q.Set("q", query)
	q.Set("format", "json")
	q.Set("no_html", "1")
	q.Set("skip_disambig", "1")

	req, err := http.NewRequestWithContext(ctx, "GET", c.Endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("ddg: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("ddg: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ddg: status %d", resp.StatusCode)
	}

	var out struct {
		AbstractText  string `json:"AbstractText"`
		Answer        string `json:"Answer"`
		RelatedTopics []struct {
			Text string `json:"Text"`
		} `json:"RelatedTopics"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("ddg: decode: %w", err)
	}

	if s := strings.TrimSpace(out.AbstractText); s != "" {
		return s, nil
	}
	if s := strings.TrimSpace(out.Answer); s != "" {
		return s, nil
	}
	// Fall back to the first related topic so vague queries still produce
	// some text to score.
	for _, rt := range out.RelatedTopics {
		if s := strings.TrimSpace(rt.Text); s != "" {
			return s, nil
		}
	}
	return "", nil
}
