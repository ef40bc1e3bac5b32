package nyaa

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"

	"tosho/internal/config"
	"tosho/internal/logging"
	"tosho/internal/services"
)

// Client fetches feed pages. Safe for concurrent use; the backfill pool runs
// several FetchPage calls at once.
type Client struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
	logger     *slog.Logger
}

// New builds a feed client from config.
func New(cfg *config.Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Client{
		baseURL:    cfg.Feed.BaseURL,
		userAgent:  cfg.HTTP.UserAgent,
		httpClient: &http.Client{Timeout: cfg.PageTimeout()},
		logger:     logging.WithComponent(logger, "nyaa"),
	}
}

// FetchPage downloads and parses one feed page. Pages are numbered from 1,
// newest records first. Transient failures are retried with capped
// exponential backoff before the error surfaces.
func (c *Client) FetchPage(ctx context.Context, page int) ([]Record, error) {
	url := fmt.Sprintf("%s/?page=rss&f=0&c=1_2&p=%d", c.baseURL, page)

	var body []byte
	fetch := func() error {
		data, err := c.get(ctx, url)
		if err != nil {
			c.logger.Warn("feed request failed",
				logging.Int(logging.FieldPage, page),
				logging.Error(err))
			return err
		}
		body = data
		return nil
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3), ctx)
	if err := backoff.Retry(fetch, policy); err != nil {
		return nil, services.Wrap(services.ErrTransient, "nyaa", "fetch",
			fmt.Sprintf("page %d", page), err)
	}

	records, err := parsePage(body)
	if err != nil {
		return nil, services.Wrap(services.ErrParse, "nyaa", "parse",
			fmt.Sprintf("page %d", page), err)
	}
	c.logger.Debug("fetched feed page",
		logging.Int(logging.FieldPage, page),
		logging.Int("records", len(records)))
	return records, nil
}

func (c *Client) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, backoff.Permanent(err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("unexpected status %s", resp.Status)
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return nil, err
		}
		return nil, backoff.Permanent(err)
	}
	return io.ReadAll(resp.Body)
}

// Record is one feed entry after parsing.
type Record struct {
	FeedID     int64
	Hash       string
	UploadedAt time.Time
	Title      string
	Size       int64
	Trusted    bool
}
