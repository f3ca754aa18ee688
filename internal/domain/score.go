package domain

import "math"

// Composite risk weights. They sum to 1 so the score stays within [0, 1].
const (
	WeightVelocity  = 0.4
	WeightSize      = 0.3
	WeightProximity = 0.3
)

// Score dimension names, as reported in QualityReport.DegenerateDimensions.
const (
	DimensionVelocity     = "velocity"
	DimensionSize         = "size"
	DimensionMissDistance = "miss_distance"
)

// zeroStdDev is the spread, relative to the column's magnitude, below which a
// column is treated as constant. Identical values can leave floating-point
// residue in the variance that grows with the values themselves.
const zeroStdDev = 1e-12

// ScoringConfig holds the thresholds applied on top of the risk score.
type ScoringConfig struct {
	// RiskThreshold marks a record high-risk when RiskScore >= RiskThreshold.
	RiskThreshold float64 `json:"risk_threshold"`

	// AnomalyThreshold marks a record anomalous when |RiskZScore| > AnomalyThreshold.
	AnomalyThreshold float64 `json:"anomaly_threshold"`

	// HazardBoost is added to the score of source-flagged hazardous objects
	// before clipping to 1. Zero disables it.
	HazardBoost float64 `json:"hazard_boost"`
}

// DefaultScoringConfig returns the stock thresholds.
func DefaultScoringConfig() ScoringConfig {
	return ScoringConfig{RiskThreshold: 0.6, AnomalyThreshold: 2.0}
}

// minMax holds the observed range of one dimension.
type minMax struct {
	min, max float64
}

func rangeOf(values []float64) minMax {
	m := minMax{min: math.Inf(1), max: math.Inf(-1)}
	for _, v := range values {
		m.min = math.Min(m.min, v)
		m.max = math.Max(m.max, v)
	}
	return m
}

func (m minMax) degenerate() bool {
	return m.max == m.min
}

// normalize maps v into [0, 1]. A degenerate range normalizes to 0.
func (m minMax) normalize(v float64) float64 {
	if m.degenerate() {
		return 0
	}
	return clamp01((v - m.min) / (m.max - m.min))
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

// Score computes risk features for every record over the full dataset and
// returns the names of degenerate dimensions (max == min). An empty input
// yields no records.
func Score(records []ApproachRecord, cfg ScoringConfig) ([]ScoredRecord, []string) {
	if len(records) == 0 {
		return nil, nil
	}

	velocity := column(records, func(r ApproachRecord) float64 { return r.RelativeVelocityKmS })
	size := column(records, func(r ApproachRecord) float64 { return r.DiameterMeanKm })
	miss := column(records, func(r ApproachRecord) float64 { return r.MissDistanceKm })

	vRange, sRange, mRange := rangeOf(velocity), rangeOf(size), rangeOf(miss)
	degenerate := degenerateDimensions(vRange, sRange, mRange)

	scored := make([]ScoredRecord, len(records))
	risk := make([]float64, len(records))
	for i, r := range records {
		s := WeightVelocity*vRange.normalize(velocity[i]) +
			WeightSize*sRange.normalize(size[i]) +
			WeightProximity*(1-mRange.normalize(miss[i]))
		if r.IsHazardous && cfg.HazardBoost > 0 {
			s += cfg.HazardBoost
		}
		risk[i] = clamp01(s)
		scored[i] = ScoredRecord{ApproachRecord: r, RiskScore: risk[i]}
	}

	riskZ := ZScores(risk)
	diameterZ := ZScores(size)
	missZ := ZScores(miss)
	velocityZ := ZScores(velocity)
	for i := range scored {
		scored[i].RiskZScore = riskZ[i]
		scored[i].DiameterZScore = diameterZ[i]
		scored[i].MissDistanceZScore = missZ[i]
		scored[i].VelocityZScore = velocityZ[i]
	}

	Classify(scored, cfg)
	return scored, degenerate
}

// DegenerateDimensions names the score dimensions with zero range over records.
func DegenerateDimensions(records []ApproachRecord) []string {
	if len(records) == 0 {
		return nil
	}
	return degenerateDimensions(
		rangeOf(column(records, func(r ApproachRecord) float64 { return r.RelativeVelocityKmS })),
		rangeOf(column(records, func(r ApproachRecord) float64 { return r.DiameterMeanKm })),
		rangeOf(column(records, func(r ApproachRecord) float64 { return r.MissDistanceKm })),
	)
}

func degenerateDimensions(velocity, size, miss minMax) []string {
	var out []string
	if velocity.degenerate() {
		out = append(out, DimensionVelocity)
	}
	if size.degenerate() {
		out = append(out, DimensionSize)
	}
	if miss.degenerate() {
		out = append(out, DimensionMissDistance)
	}
	return out
}

// Classify sets the threshold-driven fields of already-scored records: the
// statistical anomaly flag, the policy high-risk flag and the risk level.
// The two flags are independent of each other.
func Classify(scored []ScoredRecord, cfg ScoringConfig) {
	for i := range scored {
		scored[i].IsAnomalous = IsAnomalous(scored[i].RiskZScore, cfg.AnomalyThreshold)
		scored[i].IsHighRisk = IsHighRisk(scored[i].RiskScore, cfg.RiskThreshold)
		scored[i].RiskLevel = RiskLevelFor(scored[i].RiskScore)
	}
}

// IsAnomalous reports whether a z-score exceeds the anomaly threshold in magnitude.
func IsAnomalous(zscore, threshold float64) bool {
	return math.Abs(zscore) > threshold
}

// IsHighRisk reports whether a risk score meets the user risk threshold.
func IsHighRisk(score, threshold float64) bool {
	return score >= threshold
}

// ZScores returns (v - mean) / stddev for each value using the population
// standard deviation. A constant column yields all zeros.
func ZScores(values []float64) []float64 {
	out := make([]float64, len(values))
	if len(values) == 0 {
		return out
	}
	mean, std := MeanStdDev(values)
	if rangeOf(values).degenerate() || std <= zeroStdDev*math.Max(1, math.Abs(mean)) {
		return out
	}
	for i, v := range values {
		out[i] = (v - mean) / std
	}
	return out
}

// MeanStdDev returns the mean and population standard deviation of values.
func MeanStdDev(values []float64) (float64, float64) {
	if len(values) == 0 {
		return 0, 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))

	var sq float64
	for _, v := range values {
		d := v - mean
		sq += d * d
	}
	return mean, math.Sqrt(sq / float64(len(values)))
}

func column(records []ApproachRecord, get func(ApproachRecord) float64) []float64 {
	out := make([]float64, len(records))
	for i, r := range records {
		out[i] = get(r)
	}
	return out
}
