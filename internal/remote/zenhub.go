package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const (
	// DefaultZenhubBaseURL is the public ZenHub REST API endpoint
	DefaultZenhubBaseURL = "https://api.zenhub.io/p1"

	zenhubAPITimeout = 30 * time.Second
)

// ZenhubClient is the board side of the sync: live board layout and
// per-issue transfer event history.
type ZenhubClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
	log        *slog.Logger
}

// NewZenhubClient creates a ZenHub API client authenticated with the given
// token. An empty baseURL selects the public API; tests point it at a local
// server.
func NewZenhubClient(baseURL, token string, log *slog.Logger) *ZenhubClient {
	if baseURL == "" {
		baseURL = DefaultZenhubBaseURL
	}
	return &ZenhubClient{
		baseURL: baseURL,
		token:   token,
		httpClient: &http.Client{
			Timeout: zenhubAPITimeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		log: log,
	}
}

// GetBoard fetches the current board layout for a repository.
func (c *ZenhubClient) GetBoard(ctx context.Context, repoID int64) (*Board, error) {
	var board Board
	path := fmt.Sprintf("/repositories/%d/board", repoID)
	if err := c.get(ctx, path, &board); err != nil {
		return nil, fmt.Errorf("failed to get board for repo %d: %w", repoID, err)
	}
	return &board, nil
}

// GetIssueEvents fetches the chronological event history of one issue. The
// API does not guarantee order; callers must sort.
func (c *ZenhubClient) GetIssueEvents(ctx context.Context, repoID int64, number int) ([]IssueEvent, error) {
	var events []IssueEvent
	path := fmt.Sprintf("/repositories/%d/issues/%d/events", repoID, number)
	if err := c.get(ctx, path, &events); err != nil {
		return nil, fmt.Errorf("failed to get events for issue %d on repo %d: %w", number, repoID, err)
	}
	return events, nil
}

// GetIssueState fetches the board's current placement of one issue.
func (c *ZenhubClient) GetIssueState(ctx context.Context, repoID int64, number int) (*IssueState, error) {
	var state IssueState
	path := fmt.Sprintf("/repositories/%d/issues/%d", repoID, number)
	if err := c.get(ctx, path, &state); err != nil {
		return nil, fmt.Errorf("failed to get state for issue %d on repo %d: %w", number, repoID, err)
	}
	return &state, nil
}

// get performs an authenticated GET with bounded exponential-backoff retry
// and decodes the JSON response into v.
func (c *ZenhubClient) get(ctx context.Context, path string, v interface{}) error {
	return backoff.Retry(func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("X-Authentication-Token", c.token)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return err // transient: timeout or connection failure
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}

		if resp.StatusCode >= 500 {
			return fmt.Errorf("zenhub server error: %s", resp.Status)
		}
		if resp.StatusCode != http.StatusOK {
			return backoff.Permanent(fmt.Errorf("zenhub request failed: %s", resp.Status))
		}

		c.throttle(resp)

		if err := json.Unmarshal(body, v); err != nil {
			return backoff.Permanent(fmt.Errorf("failed to decode zenhub response: %w", err))
		}
		return nil
	}, retryPolicy(ctx))
}

// throttle sleeps until the quota window resets when the remaining request
// budget runs low. ZenHub reports usage, not remaining.
func (c *ZenhubClient) throttle(resp *http.Response) {
	limit := headerInt(resp, "X-RateLimit-Limit")
	used := headerInt(resp, "X-RateLimit-Used")
	resetAt := headerInt(resp, "X-RateLimit-Reset")
	if limit == 0 {
		return
	}

	c.log.Info("zenhub request quota", "used", used, "limit", limit)
	if limit-used <= lowQuotaThreshold {
		wait := time.Until(time.Unix(int64(resetAt), 0))
		if wait > 0 {
			c.log.Warn("zenhub quota nearly exhausted, sleeping", "wait", wait)
			time.Sleep(wait)
		}
	}
}

func headerInt(resp *http.Response, key string) int {
	value, err := strconv.Atoi(resp.Header.Get(key))
	if err != nil {
		return 0
	}
	return value
}
