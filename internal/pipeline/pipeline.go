package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"

	"github.com/couchcryptid/neo-risk-etl/internal/artifact"
	"github.com/couchcryptid/neo-risk-etl/internal/domain"
	"github.com/couchcryptid/neo-risk-etl/internal/observability"
)

// Stage names used in logs and metric labels.
const (
	StageFetch     = "fetch"
	StageNormalize = "normalize"
	StageAnalyze   = "analyze"
	StagePublish   = "publish"
)

// RangeFetcher returns the merged feed for a date range.
type RangeFetcher interface {
	Fetch(ctx context.Context, r domain.DateRange) (domain.RawFeedResult, error)
}

// Store persists artifacts by name. Get reports a missing artifact with
// domain.ErrArtifactNotFound.
type Store interface {
	Get(ctx context.Context, name string) ([]byte, error)
	Put(ctx context.Context, name string, data []byte) error
}

// Publisher sends scored records downstream.
type Publisher interface {
	PublishScored(ctx context.Context, records []domain.ScoredRecord) error
}

// Options controls one pipeline run.
type Options struct {
	Range        domain.DateRange
	Scoring      domain.ScoringConfig
	ForceRefresh bool
}

// Pipeline runs fetch, normalize and analyze in order, reusing the newest
// valid artifact and skipping everything upstream of it.
type Pipeline struct {
	fetcher   RangeFetcher
	store     Store
	publisher Publisher
	logger    *slog.Logger
	metrics   *observability.Metrics
	opts      Options
	ready     atomic.Bool
	current   atomic.Pointer[domain.Analysis]
}

// New creates a Pipeline. publisher may be nil.
func New(f RangeFetcher, s Store, pub Publisher, logger *slog.Logger, metrics *observability.Metrics, opts Options) *Pipeline {
	return &Pipeline{
		fetcher:   f,
		store:     s,
		publisher: pub,
		logger:    logger,
		metrics:   metrics,
		opts:      opts,
	}
}

// CheckReadiness returns nil once a run has produced a dataset and the
// artifact store, if it can be pinged, answers.
func (p *Pipeline) CheckReadiness(ctx context.Context) error {
	if !p.ready.Load() {
		return errors.New("pipeline has not produced a dataset yet")
	}
	if c, ok := p.store.(sharedobs.ReadinessChecker); ok {
		if err := c.CheckReadiness(ctx); err != nil {
			return fmt.Errorf("artifact store: %w", err)
		}
	}
	return nil
}

// Current returns the dataset of the last successful run, or nil. The
// returned value is shared and must not be modified.
func (p *Pipeline) Current() *domain.Analysis {
	return p.current.Load()
}

// Run executes one pass of the pipeline and publishes the result as the
// current dataset.
func (p *Pipeline) Run(ctx context.Context) (*domain.Analysis, error) {
	p.logger.Info("pipeline started",
		"range", p.opts.Range.String(),
		"force_refresh", p.opts.ForceRefresh,
		"risk_threshold", p.opts.Scoring.RiskThreshold,
		"anomaly_threshold", p.opts.Scoring.AnomalyThreshold,
	)
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)
	start := time.Now()

	analysis, err := p.analysis(ctx)
	if err != nil {
		return nil, err
	}

	p.current.Store(analysis)
	p.ready.Store(true)
	p.recordAnalysis(analysis)

	if p.publisher != nil {
		p.publish(ctx, analysis.Scored)
	}

	p.logger.Info("pipeline finished",
		"records", len(analysis.Scored),
		"days", len(analysis.Daily),
		"duration", time.Since(start),
	)
	return analysis, nil
}

func (p *Pipeline) analysis(ctx context.Context) (*domain.Analysis, error) {
	if !p.opts.ForceRefresh {
		scored, ok, err := loadCached(ctx, p, StageAnalyze, artifact.ScoredName, artifact.DecodeScored)
		if err != nil {
			return nil, err
		}
		if ok {
			a := domain.Reanalyze(scored, p.opts.Scoring, p.opts.Range)
			if err := p.ensureDaily(ctx, a.Daily); err != nil {
				return nil, err
			}
			return &a, nil
		}
	}

	records, report, err := p.clean(ctx)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	a := domain.Analyze(records, p.opts.Scoring, p.opts.Range)
	report.DegenerateDimensions = a.Report.DegenerateDimensions
	a.Report = report

	if err := p.put(ctx, artifact.ScoredName, func() ([]byte, error) { return artifact.EncodeScored(a.Scored) }); err != nil {
		return nil, err
	}
	if err := p.put(ctx, artifact.DailyName, func() ([]byte, error) { return artifact.EncodeDaily(a.Daily) }); err != nil {
		return nil, err
	}
	p.metrics.StageDuration.WithLabelValues(StageAnalyze).Observe(time.Since(start).Seconds())
	return &a, nil
}

func (p *Pipeline) clean(ctx context.Context) ([]domain.ApproachRecord, domain.QualityReport, error) {
	if !p.opts.ForceRefresh {
		records, ok, err := loadCached(ctx, p, StageNormalize, artifact.CleanName, artifact.DecodeClean)
		if err != nil {
			return nil, domain.QualityReport{}, err
		}
		if ok {
			return records, domain.QualityReport{InputEvents: len(records), EmittedRows: len(records)}, nil
		}
	}

	raw, err := p.raw(ctx)
	if err != nil {
		return nil, domain.QualityReport{}, err
	}

	start := time.Now()
	records, report := domain.Normalize(raw)
	p.recordQuality(report)
	if err := p.put(ctx, artifact.CleanName, func() ([]byte, error) { return artifact.EncodeClean(records) }); err != nil {
		return nil, domain.QualityReport{}, err
	}
	p.metrics.StageDuration.WithLabelValues(StageNormalize).Observe(time.Since(start).Seconds())
	return records, report, nil
}

func (p *Pipeline) raw(ctx context.Context) (domain.RawFeedResult, error) {
	if !p.opts.ForceRefresh {
		raw, ok, err := loadCached(ctx, p, StageFetch, artifact.RawName, artifact.DecodeRaw)
		if err != nil {
			return nil, err
		}
		if ok {
			return raw, nil
		}
	}

	start := time.Now()
	raw, err := p.fetcher.Fetch(ctx, p.opts.Range)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", p.opts.Range, err)
	}
	p.logger.Info("feed fetched", "dates", len(raw), "objects", raw.ObjectCount())

	if err := p.put(ctx, artifact.RawName, func() ([]byte, error) { return artifact.EncodeRaw(raw) }); err != nil {
		return nil, err
	}
	p.metrics.StageDuration.WithLabelValues(StageFetch).Observe(time.Since(start).Seconds())
	return raw, nil
}

// loadCached reads and decodes an artifact. A missing or invalid artifact
// is a cache miss; any other store failure is returned.
func loadCached[T any](ctx context.Context, p *Pipeline, stage, name string, decode func([]byte) (T, error)) (T, bool, error) {
	var zero T
	data, err := p.store.Get(ctx, name)
	if errors.Is(err, domain.ErrArtifactNotFound) {
		p.metrics.StageCache.WithLabelValues(stage, "miss").Inc()
		return zero, false, nil
	}
	if err != nil {
		return zero, false, fmt.Errorf("read cached %s: %w", name, err)
	}

	v, err := decode(data)
	if err != nil {
		p.logger.Warn("cached artifact invalid, rebuilding", "stage", stage, "artifact", name, "error", err)
		p.metrics.StageCache.WithLabelValues(stage, "invalid").Inc()
		return zero, false, nil
	}

	p.logger.Info("using cached artifact", "stage", stage, "artifact", name)
	p.metrics.StageCache.WithLabelValues(stage, "hit").Inc()
	return v, true, nil
}

func (p *Pipeline) put(ctx context.Context, name string, encode func() ([]byte, error)) error {
	data, err := encode()
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrPersistence, err)
	}
	if err := p.store.Put(ctx, name, data); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	p.logger.Debug("artifact written", "artifact", name, "bytes", len(data))
	return nil
}

// ensureDaily rewrites the daily artifact when it is missing or invalid.
func (p *Pipeline) ensureDaily(ctx context.Context, daily []domain.DailyAggregate) error {
	data, err := p.store.Get(ctx, artifact.DailyName)
	if err == nil {
		if _, err := artifact.DecodeDaily(data); err == nil {
			return nil
		}
	} else if !errors.Is(err, domain.ErrArtifactNotFound) {
		return fmt.Errorf("read cached %s: %w", artifact.DailyName, err)
	}
	return p.put(ctx, artifact.DailyName, func() ([]byte, error) { return artifact.EncodeDaily(daily) })
}

func (p *Pipeline) publish(ctx context.Context, scored []domain.ScoredRecord) {
	start := time.Now()
	if err := p.publisher.PublishScored(ctx, scored); err != nil {
		p.logger.Error("publish scored records failed", "error", err, "records", len(scored))
		return
	}
	p.metrics.RecordsPublished.Add(float64(len(scored)))
	p.metrics.StageDuration.WithLabelValues(StagePublish).Observe(time.Since(start).Seconds())
}

func (p *Pipeline) recordQuality(report domain.QualityReport) {
	p.metrics.RowsNormalized.Add(float64(report.EmittedRows))
	for reason, n := range report.DroppedByReason {
		p.metrics.RowsDropped.WithLabelValues(string(reason)).Add(float64(n))
	}
	if report.DroppedRows > 0 {
		p.logger.Warn("rows dropped during normalization",
			"input_events", report.InputEvents,
			"emitted", report.EmittedRows,
			"dropped", report.DroppedRows,
			"by_reason", report.DroppedByReason,
		)
	}
}

func (p *Pipeline) recordAnalysis(a *domain.Analysis) {
	var anomalous, highRisk int
	for _, r := range a.Scored {
		if r.IsAnomalous {
			anomalous++
		}
		if r.IsHighRisk {
			highRisk++
		}
	}
	p.metrics.RecordsScored.Set(float64(len(a.Scored)))
	p.metrics.AnomalousRecords.Set(float64(anomalous))
	p.metrics.HighRiskRecords.Set(float64(highRisk))

	for _, dim := range a.Report.DegenerateDimensions {
		p.metrics.DegenerateDimensions.WithLabelValues(dim).Inc()
		p.logger.Warn("degenerate score dimension, contribution is zero", "dimension", dim)
	}
	p.logger.Info("dataset analyzed", "records", len(a.Scored), "anomalous", anomalous, "high_risk", highRisk)
}
