// Package neows reads close-approach data from the NASA NeoWs feed endpoint.
package neows

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/couchcryptid/neo-risk-etl/internal/domain"
	"github.com/couchcryptid/neo-risk-etl/internal/observability"
)

// DefaultBaseURL is the public NeoWs feed endpoint.
const DefaultBaseURL = "https://api.nasa.gov/neo/rest/v1/feed"

// MaxRangeDays is the widest range the feed accepts in one request.
const MaxRangeDays = 7

// maxBodyBytes bounds how much of a response is read into memory.
const maxBodyBytes = 64 << 20

// Client issues single feed requests. Retries are the caller's concern.
type Client struct {
	apiKey     string
	httpClient *http.Client
	baseURL    string
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// NewClient creates a feed client. timeout bounds each request.
func NewClient(apiKey, baseURL string, timeout time.Duration, logger *slog.Logger, metrics *observability.Metrics) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		apiKey: apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: baseURL,
		logger:  logger,
		metrics: metrics,
	}
}

// FetchRange requests one date range. Failures are *domain.AcquisitionError;
// only KindTransient is worth retrying.
func (c *Client) FetchRange(ctx context.Context, r domain.DateRange) (domain.RawFeedResult, error) {
	if c.apiKey == "" {
		c.metrics.FeedRequests.WithLabelValues(string(domain.KindAuth)).Inc()
		return nil, &domain.AcquisitionError{Kind: domain.KindAuth, Range: r, Err: errors.New("no API key configured")}
	}
	if r.Days() > MaxRangeDays {
		c.metrics.FeedRequests.WithLabelValues(string(domain.KindRejected)).Inc()
		return nil, &domain.AcquisitionError{Kind: domain.KindRejected, Range: r,
			Err: fmt.Errorf("range spans %d days, feed allows %d", r.Days(), MaxRangeDays)}
	}

	params := url.Values{
		"start_date": {domain.FormatDate(r.Start)},
		"end_date":   {domain.FormatDate(r.End)},
		"api_key":    {c.apiKey},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, &domain.AcquisitionError{Kind: domain.KindRejected, Range: r, Err: fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	c.metrics.FeedRequestDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		c.metrics.FeedRequests.WithLabelValues(string(domain.KindTransient)).Inc()
		return nil, &domain.AcquisitionError{Kind: domain.KindTransient, Range: r, Err: redactURL(err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		c.metrics.FeedRequests.WithLabelValues(string(domain.KindTransient)).Inc()
		return nil, &domain.AcquisitionError{Kind: domain.KindTransient, Range: r, StatusCode: resp.StatusCode,
			Err: fmt.Errorf("read response: %w", redactURL(err))}
	}

	if kind, failed := classifyStatus(resp.StatusCode); failed {
		c.metrics.FeedRequests.WithLabelValues(string(kind)).Inc()
		return nil, &domain.AcquisitionError{Kind: kind, Range: r, StatusCode: resp.StatusCode,
			Err: fmt.Errorf("neows API error: status %d: %s", resp.StatusCode, snippet(body))}
	}

	raw, err := domain.ParseFeedDocument(body)
	if err != nil {
		c.metrics.FeedRequests.WithLabelValues(string(domain.KindMalformed)).Inc()
		return nil, &domain.AcquisitionError{Kind: domain.KindMalformed, Range: r, StatusCode: resp.StatusCode, Err: err}
	}

	c.metrics.FeedRequests.WithLabelValues("success").Inc()
	c.logger.Debug("feed chunk fetched",
		"range", r.String(),
		"dates", len(raw),
		"objects", raw.ObjectCount(),
		"duration", time.Since(start),
	)
	return raw, nil
}

// classifyStatus maps a non-2xx status onto a failure kind.
func classifyStatus(code int) (domain.AcquisitionKind, bool) {
	switch {
	case code >= 200 && code < 300:
		return "", false
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return domain.KindAuth, true
	case code == http.StatusTooManyRequests || code == http.StatusRequestTimeout:
		return domain.KindTransient, true
	case code >= 500:
		return domain.KindTransient, true
	default:
		return domain.KindRejected, true
	}
}

// redactURL drops the request URL, which carries the API key, from
// transport errors.
func redactURL(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return fmt.Errorf("%s request: %w", urlErr.Op, urlErr.Err)
	}
	return err
}

func snippet(body []byte) string {
	const limit = 256
	if len(body) > limit {
		return string(body[:limit]) + "..."
	}
	return string(body)
}
