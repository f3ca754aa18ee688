package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/couchcryptid/storm-data-shared/retry"

	"github.com/couchcryptid/neo-risk-etl/internal/domain"
	"github.com/couchcryptid/neo-risk-etl/internal/observability"
)

// Retry backoff bounds when FetchOptions leaves them unset.
const (
	defaultRetryBackoff = 500 * time.Millisecond
	maxRetryBackoff     = 5 * time.Second
)

// FeedClient requests one bounded date range from the feed.
type FeedClient interface {
	FetchRange(ctx context.Context, r domain.DateRange) (domain.RawFeedResult, error)
}

// FetchOptions controls chunking, retries and pacing.
type FetchOptions struct {
	ChunkDays       int
	MaxAttempts     int
	RetryBackoff    time.Duration
	RequestInterval time.Duration
}

// Fetcher splits a date range into feed-sized chunks, requests them one at
// a time in date order and merges the responses.
type Fetcher struct {
	client  FeedClient
	logger  *slog.Logger
	metrics *observability.Metrics
	opts    FetchOptions
}

// NewFetcher creates a Fetcher. Zero MaxAttempts means a single attempt per chunk.
func NewFetcher(client FeedClient, logger *slog.Logger, metrics *observability.Metrics, opts FetchOptions) *Fetcher {
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = 1
	}
	if opts.RetryBackoff <= 0 {
		opts.RetryBackoff = defaultRetryBackoff
	}
	return &Fetcher{client: client, logger: logger, metrics: metrics, opts: opts}
}

// Fetch returns the merged feed for r with exactly one key per date. Any
// chunk that fails for good aborts the whole fetch.
func (f *Fetcher) Fetch(ctx context.Context, r domain.DateRange) (domain.RawFeedResult, error) {
	chunks, err := domain.PartitionRange(r, f.opts.ChunkDays)
	if err != nil {
		return nil, err
	}
	f.logger.Info("fetching feed", "range", r.String(), "chunks", len(chunks), "chunk_days", f.opts.ChunkDays)

	merged := make(domain.RawFeedResult, r.Days())
	for i, chunk := range chunks {
		// SleepWithContext returns at once for a zero interval, cancelled or not.
		if i > 0 && (ctx.Err() != nil || !retry.SleepWithContext(ctx, f.opts.RequestInterval)) {
			return nil, &domain.AcquisitionError{Kind: domain.KindTransient, Range: chunk, Err: ctx.Err()}
		}
		got, err := f.fetchChunk(ctx, chunk)
		if err != nil {
			return nil, err
		}
		domain.MergeChunk(merged, chunk, got)
	}
	return merged, nil
}

// fetchChunk retries transient failures with exponential backoff.
func (f *Fetcher) fetchChunk(ctx context.Context, chunk domain.DateRange) (domain.RawFeedResult, error) {
	backoff := f.opts.RetryBackoff
	for attempt := 1; ; attempt++ {
		got, err := f.client.FetchRange(ctx, chunk)
		if err == nil {
			return got, nil
		}

		var acqErr *domain.AcquisitionError
		if !errors.As(err, &acqErr) {
			acqErr = &domain.AcquisitionError{Kind: domain.KindTransient, Range: chunk, Err: err}
		}
		if !acqErr.Retryable() {
			return nil, acqErr
		}
		if attempt >= f.opts.MaxAttempts {
			return nil, &domain.AcquisitionError{
				Kind:       domain.KindRetriesExhausted,
				Range:      chunk,
				StatusCode: acqErr.StatusCode,
				Attempts:   attempt,
				Err:        acqErr.Err,
			}
		}

		f.logger.Warn("feed request failed, retrying",
			"error", err,
			"range", chunk.String(),
			"attempt", attempt,
			"backoff", backoff,
		)
		f.metrics.FeedRetries.Inc()
		if !retry.SleepWithContext(ctx, backoff) {
			return nil, &domain.AcquisitionError{Kind: domain.KindTransient, Range: chunk, Attempts: attempt, Err: ctx.Err()}
		}
		backoff = retry.NextBackoff(backoff, maxRetryBackoff)
	}
}
