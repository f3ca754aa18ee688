// Command validate performs integrity checks across the artifacts of one
// pipeline run: the raw feed, the clean table, the scored table and the
// daily series. It recomputes the derived columns from their inputs and
// verifies row counts, value ranges, ordering and cross-artifact consistency.
//
// Usage:
//
//	go run ./cmd/validate -data-dir data -risk-threshold 0.6 -anomaly-threshold 2.0
package main

import (
	"context"
	"flag"
	"fmt"
	"math"
	"os"

	"github.com/couchcryptid/neo-risk-etl/internal/adapter/filestore"
	"github.com/couchcryptid/neo-risk-etl/internal/artifact"
	"github.com/couchcryptid/neo-risk-etl/internal/domain"
)

// tolerance absorbs CSV float round-trips when comparing recomputed values.
const tolerance = 1e-9

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

// artifacts holds every decoded artifact of one run.
type artifacts struct {
	raw    domain.RawFeedResult
	clean  []domain.ApproachRecord
	scored []domain.ScoredRecord
	daily  []domain.DailyAggregate
}

func main() {
	dataDir := flag.String("data-dir", "data", "directory containing pipeline artifacts")
	riskThreshold := flag.Float64("risk-threshold", 0.6, "risk threshold the run was scored with")
	anomalyThreshold := flag.Float64("anomaly-threshold", 2.0, "anomaly threshold the run was scored with")
	flag.Parse()

	cfg := domain.ScoringConfig{RiskThreshold: *riskThreshold, AnomalyThreshold: *anomalyThreshold}
	if code := run(*dataDir, cfg); code != 0 {
		os.Exit(code)
	}
}

func run(dataDir string, cfg domain.ScoringConfig) int {
	fmt.Println("=== NEO Artifact Integrity Validation ===")
	fmt.Println()

	a, err := load(dataDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
		return 1
	}

	phases := []*phase{
		validateNormalization(a),
		validateScores(a, cfg),
		validateDaily(a),
	}

	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	fmt.Println()
	fmt.Printf("Records: %d raw objects, %d clean rows, %d scored rows, %d daily rows\n",
		a.raw.ObjectCount(), len(a.clean), len(a.scored), len(a.daily))

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

// ── Data loading ──

func load(dir string) (artifacts, error) {
	store, err := filestore.New(dir)
	if err != nil {
		return artifacts{}, err
	}
	ctx := context.Background()
	get := func(name string) ([]byte, error) {
		data, err := store.Get(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", name, err)
		}
		return data, nil
	}

	var a artifacts
	data, err := get(artifact.RawName)
	if err != nil {
		return a, err
	}
	if a.raw, err = artifact.DecodeRaw(data); err != nil {
		return a, err
	}
	if data, err = get(artifact.CleanName); err != nil {
		return a, err
	}
	if a.clean, err = artifact.DecodeClean(data); err != nil {
		return a, err
	}
	if data, err = get(artifact.ScoredName); err != nil {
		return a, err
	}
	if a.scored, err = artifact.DecodeScored(data); err != nil {
		return a, err
	}
	if data, err = get(artifact.DailyName); err != nil {
		return a, err
	}
	if a.daily, err = artifact.DecodeDaily(data); err != nil {
		return a, err
	}
	return a, nil
}

// ── Phase 1: raw → clean ──

func validateNormalization(a artifacts) *phase {
	p := &phase{name: "Phase 1: Normalization"}
	fmt.Println("Phase 1: Validating raw → clean normalization...")

	want, report := domain.Normalize(a.raw)
	if len(want) != len(a.clean) {
		p.errorf("clean rows: got %d, normalizing raw yields %d (%d dropped)",
			len(a.clean), len(want), report.DroppedRows)
		return p
	}

	for i, got := range a.clean {
		exp := want[i]
		loc := fmt.Sprintf("row %d (%s)", i, got.ObjectID)
		if got.ObjectID != exp.ObjectID || !got.ApproachDate.Equal(exp.ApproachDate) {
			p.errorf("%s: expected %s on %s", loc, exp.ObjectID, domain.FormatDate(exp.ApproachDate))
			continue
		}
		if got.MissDistanceKm < 0 || got.RelativeVelocityKmH < 0 || got.DiameterMinKm < 0 {
			p.errorf("%s: negative measurement", loc)
		}
		if got.DiameterMinKm > got.DiameterMeanKm+tolerance || got.DiameterMeanKm > got.DiameterMaxKm+tolerance {
			p.errorf("%s: diameter min %g, mean %g, max %g out of order",
				loc, got.DiameterMinKm, got.DiameterMeanKm, got.DiameterMaxKm)
		}
		if !near(got.RelativeVelocityKmS, domain.KmHToKmS(got.RelativeVelocityKmH)) {
			p.errorf("%s: velocity %g km/s does not match %g km/h", loc, got.RelativeVelocityKmS, got.RelativeVelocityKmH)
		}
		if i > 0 && got.ApproachDate.Before(a.clean[i-1].ApproachDate) {
			p.errorf("%s: not sorted by approach date", loc)
		}
	}

	fmt.Printf("  %d raw objects → %d rows, %d dropped\n", a.raw.ObjectCount(), len(a.clean), report.DroppedRows)
	return p
}

// ── Phase 2: clean → scored ──

func validateScores(a artifacts, cfg domain.ScoringConfig) *phase {
	p := &phase{name: "Phase 2: Risk scoring and classification"}
	fmt.Println("Phase 2: Validating risk scores...")

	if len(a.scored) != len(a.clean) {
		p.errorf("scored rows: got %d, clean has %d", len(a.scored), len(a.clean))
		return p
	}

	scores := make([]float64, len(a.scored))
	for i, s := range a.scored {
		scores[i] = s.RiskScore
		loc := fmt.Sprintf("row %d (%s)", i, s.ObjectID)

		if s.ObjectID != a.clean[i].ObjectID || !s.ApproachDate.Equal(a.clean[i].ApproachDate) {
			p.errorf("%s: does not line up with clean row %s", loc, a.clean[i].ObjectID)
		}
		if s.RiskScore < 0 || s.RiskScore > 1 || math.IsNaN(s.RiskScore) {
			p.errorf("%s: risk score %g outside [0, 1]", loc, s.RiskScore)
		}
		if want := domain.RiskLevelFor(s.RiskScore); s.RiskLevel != want {
			p.errorf("%s: risk level %q, score %g maps to %q", loc, s.RiskLevel, s.RiskScore, want)
		}
		if want := domain.IsHighRisk(s.RiskScore, cfg.RiskThreshold); s.IsHighRisk != want {
			p.errorf("%s: is_high_risk=%t at threshold %g (score %g)", loc, s.IsHighRisk, cfg.RiskThreshold, s.RiskScore)
		}
		if want := domain.IsAnomalous(s.RiskZScore, cfg.AnomalyThreshold); s.IsAnomalous != want {
			p.errorf("%s: is_anomalous=%t at threshold %g (z %g)", loc, s.IsAnomalous, cfg.AnomalyThreshold, s.RiskZScore)
		}
	}

	for i, z := range domain.ZScores(scores) {
		if !near(z, a.scored[i].RiskZScore) {
			p.errorf("row %d: risk z-score %g, recomputed %g", i, a.scored[i].RiskZScore, z)
		}
	}

	fmt.Printf("  %d rows checked\n", len(a.scored))
	return p
}

// ── Phase 3: scored → daily ──

// feedWindow is the date range the raw feed was fetched for, which holds one
// key per requested date, or the zero range when it has none.
func feedWindow(raw domain.RawFeedResult) domain.DateRange {
	dates := raw.Dates()
	if len(dates) == 0 {
		return domain.DateRange{}
	}
	start, err1 := domain.ParseDate(dates[0])
	end, err2 := domain.ParseDate(dates[len(dates)-1])
	if err1 != nil || err2 != nil {
		return domain.DateRange{}
	}
	return domain.DateRange{Start: start, End: end}
}

func validateDaily(a artifacts) *phase {
	p := &phase{name: "Phase 3: Daily time series"}
	fmt.Println("Phase 3: Validating daily aggregates...")

	want := domain.DailyAggregates(a.scored, feedWindow(a.raw))
	if len(want) != len(a.daily) {
		p.errorf("daily rows: got %d, expected %d", len(a.daily), len(want))
		return p
	}

	total := 0
	for i, got := range a.daily {
		exp := want[i]
		day := domain.FormatDate(got.Date)
		total += got.Count

		if !got.Date.Equal(exp.Date) {
			p.errorf("row %d: date %s, expected %s", i, day, domain.FormatDate(exp.Date))
			continue
		}
		if i > 0 && got.Date.Sub(a.daily[i-1].Date).Hours() != 24 {
			p.errorf("%s: not contiguous with previous row", day)
		}
		if got.Count != exp.Count || got.HazardousCount != exp.HazardousCount ||
			got.AnomalousCount != exp.AnomalousCount || got.HighRiskCount != exp.HighRiskCount {
			p.errorf("%s: counts %d/%d/%d/%d, expected %d/%d/%d/%d", day,
				got.Count, got.HazardousCount, got.AnomalousCount, got.HighRiskCount,
				exp.Count, exp.HazardousCount, exp.AnomalousCount, exp.HighRiskCount)
		}
		if got.Count > 0 && got.MinMissDistanceKm > got.MaxMissDistanceKm {
			p.errorf("%s: min miss distance %g above max %g", day, got.MinMissDistanceKm, got.MaxMissDistanceKm)
		}
		if !near(got.MeanRiskScore, exp.MeanRiskScore) || !near(got.Count7dAvg, exp.Count7dAvg) ||
			!near(got.MeanRiskScore7dAvg, exp.MeanRiskScore7dAvg) {
			p.errorf("%s: mean or rolling average differs from recomputation", day)
		}
	}

	if total != len(a.scored) {
		p.errorf("daily counts sum to %d, scored has %d rows", total, len(a.scored))
	}

	fmt.Printf("  %d days, %d approaches\n", len(a.daily), total)
	return p
}

func near(a, b float64) bool {
	return math.Abs(a-b) <= tolerance*math.Max(1, math.Max(math.Abs(a), math.Abs(b)))
}
