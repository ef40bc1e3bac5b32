package anilist

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"tosho/internal/config"
	"tosho/internal/logging"
	"tosho/internal/services"
)

const requestSpacing = time.Second

// Client is a serialized GraphQL client. No two requests run at the same
// time and consecutive requests are at least a second apart, which keeps us
// under the API's per-minute budget.
type Client struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
	logger     *slog.Logger

	mu          sync.Mutex
	nextRequest time.Time
}

// New builds a catalog client from config.
func New(cfg *config.Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Client{
		baseURL:    cfg.Catalog.BaseURL,
		userAgent:  cfg.HTTP.UserAgent,
		httpClient: &http.Client{Timeout: cfg.CatalogRequestTimeout()},
		logger:     logging.WithComponent(logger, "anilist"),
	}
}

type graphqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

type graphqlError struct {
	Message string `json:"message"`
	Status  int    `json:"status"`
}

type graphqlResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []graphqlError  `json:"errors"`
}

type pageInfo struct {
	HasNextPage bool `json:"hasNextPage"`
}

// query performs one GraphQL request and decodes the data envelope into out.
// Rate limit responses are honored via Retry-After and retried a few times
// before surfacing as transient.
func (c *Client) query(ctx context.Context, query string, variables map[string]any, out any) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for attempt := 0; ; attempt++ {
		if err := c.pace(ctx); err != nil {
			return err
		}
		retryAfter, err := c.request(ctx, query, variables, out)
		if err == nil {
			return nil
		}
		if retryAfter < 0 || attempt >= 2 {
			return services.Wrap(services.ErrTransient, "anilist", "query", "", err)
		}
		c.logger.Warn("rate limited", logging.Duration("retry_after", retryAfter))
		if err := sleepCtx(ctx, retryAfter); err != nil {
			return err
		}
	}
}

// pace enforces the inter-request spacing.
func (c *Client) pace(ctx context.Context) error {
	if wait := time.Until(c.nextRequest); wait > 0 {
		if err := sleepCtx(ctx, wait); err != nil {
			return err
		}
	}
	c.nextRequest = time.Now().Add(requestSpacing)
	return nil
}

// request performs a single HTTP round trip. The first return value is the
// Retry-After delay when the server rate limited us, and -1 otherwise.
func (c *Client) request(ctx context.Context, query string, variables map[string]any, out any) (time.Duration, error) {
	payload, err := json.Marshal(graphqlRequest{Query: query, Variables: variables})
	if err != nil {
		return -1, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(payload))
	if err != nil {
		return -1, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return -1, err
	}
	defer resp.Body.Close()

	if header := resp.Header.Get("Retry-After"); header != "" {
		if secs, parseErr := strconv.Atoi(header); parseErr == nil {
			return time.Duration(secs)*time.Second + time.Second, fmt.Errorf("rate limited for %ds", secs)
		}
		return -1, fmt.Errorf("rate limited with unreadable Retry-After %q", header)
	}
	if resp.StatusCode != http.StatusOK {
		return -1, fmt.Errorf("unexpected status %s", resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return -1, err
	}
	var envelope graphqlResponse
	if err := json.Unmarshal(body, &envelope); err != nil {
		return -1, fmt.Errorf("decode response: %w", err)
	}
	if envelope.Data == nil || string(envelope.Data) == "null" {
		return -1, fmt.Errorf("response data is null, errors: %v", envelope.Errors)
	}
	if err := json.Unmarshal(envelope.Data, out); err != nil {
		return -1, fmt.Errorf("decode data: %w", err)
	}
	return -1, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
