package domain

import (
	"math"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScore_Bounds(t *testing.T) {
	records := []ApproachRecord{
		approach("slow-small-far", "2024-04-01", 9_000_000, 5, 0.01),
		approach("mid", "2024-04-01", 4_000_000, 12, 0.2),
		approach("fast-big-close", "2024-04-02", 100_000, 30, 1.5),
		approach("mixed", "2024-04-02", 200_000, 6, 1.0),
	}

	scored, degenerate := Score(records, DefaultScoringConfig())
	require.Len(t, scored, len(records))
	assert.Empty(t, degenerate)

	for _, r := range scored {
		assert.GreaterOrEqual(t, r.RiskScore, 0.0, r.ObjectID)
		assert.LessOrEqual(t, r.RiskScore, 1.0, r.ObjectID)
	}
	// Closest, fastest and largest at once scores the full weight.
	assert.InDelta(t, 1.0, scored[2].RiskScore, 1e-9)
	// Farthest, slowest and smallest at once scores nothing.
	assert.InDelta(t, 0.0, scored[0].RiskScore, 1e-9)
}

func TestScore_Weights(t *testing.T) {
	records := []ApproachRecord{
		approach("base", "2024-04-01", 100, 10, 1),
		approach("fast", "2024-04-01", 100, 20, 1),
	}
	scored, degenerate := Score(records, DefaultScoringConfig())
	require.Len(t, scored, 2)
	assert.ElementsMatch(t, []string{DimensionSize, DimensionMissDistance}, degenerate)

	// Degenerate dimensions normalize to 0, so proximity contributes its full
	// weight to both and velocity separates them.
	assert.InDelta(t, WeightProximity, scored[0].RiskScore, 1e-9)
	assert.InDelta(t, WeightProximity+WeightVelocity, scored[1].RiskScore, 1e-9)
	assert.InDelta(t, 1.0, WeightVelocity+WeightSize+WeightProximity, 1e-12)
}

func TestScore_SingleRecord(t *testing.T) {
	scored, degenerate := Score([]ApproachRecord{approach("only", "2024-04-01", 500, 10, 0.3)}, DefaultScoringConfig())
	require.Len(t, scored, 1)

	r := scored[0]
	assert.False(t, math.IsNaN(r.RiskScore))
	assert.InDelta(t, WeightProximity, r.RiskScore, 1e-12)
	assert.Zero(t, r.RiskZScore)
	assert.False(t, r.IsAnomalous)
	assert.ElementsMatch(t, []string{DimensionVelocity, DimensionSize, DimensionMissDistance}, degenerate)
}

func TestScore_Empty(t *testing.T) {
	scored, degenerate := Score(nil, DefaultScoringConfig())
	assert.Empty(t, scored)
	assert.Empty(t, degenerate)
}

func TestScore_IdenticalRecords(t *testing.T) {
	records := make([]ApproachRecord, 7)
	for i := range records {
		records[i] = approach("same", "2024-04-01", 1000, 0.1, 0.3)
	}
	scored, _ := Score(records, DefaultScoringConfig())
	for _, r := range scored {
		assert.Zero(t, r.RiskZScore)
		assert.False(t, r.IsAnomalous)
	}
}

// One approach five standard deviations above the rest is the only anomaly.
func TestScore_AnomalyThreshold(t *testing.T) {
	var records []ApproachRecord
	for i := range 20 {
		v := 10.0
		if i%2 == 1 {
			v = 11.0
		}
		records = append(records, approach("normal", "2024-04-01", 1000, v, 0.3))
	}
	// The rest has mean 10.5 and standard deviation 0.5.
	records = append(records, approach("outlier", "2024-04-01", 1000, 13.0, 0.3))

	scored, _ := Score(records, DefaultScoringConfig())
	var anomalous []string
	for _, r := range scored {
		if r.IsAnomalous {
			anomalous = append(anomalous, r.ObjectID)
		}
	}
	assert.Equal(t, []string{"outlier"}, anomalous)
	assert.Greater(t, scored[20].RiskZScore, 2.0)
}

func TestClassify_FlagsAreIndependent(t *testing.T) {
	scored := []ScoredRecord{
		{RiskScore: 0.9, RiskZScore: 0.5},
		{RiskScore: 0.1, RiskZScore: -2.5},
		{RiskScore: 0.6, RiskZScore: 2.0},
	}
	Classify(scored, ScoringConfig{RiskThreshold: 0.6, AnomalyThreshold: 2.0})

	assert.True(t, scored[0].IsHighRisk)
	assert.False(t, scored[0].IsAnomalous)

	assert.False(t, scored[1].IsHighRisk)
	assert.True(t, scored[1].IsAnomalous, "negative deviations count too")

	assert.True(t, scored[2].IsHighRisk, "threshold is inclusive")
	assert.False(t, scored[2].IsAnomalous, "anomaly threshold is exclusive")

	assert.Equal(t, RiskVeryHigh, scored[0].RiskLevel)
	assert.Equal(t, RiskVeryLow, scored[1].RiskLevel)
	assert.Equal(t, RiskMedium, scored[2].RiskLevel)
}

func TestScore_HazardBoost(t *testing.T) {
	records := []ApproachRecord{
		approach("a", "2024-04-01", 100, 10, 1),
		approach("b", "2024-04-01", 100, 20, 1),
	}
	records[0].IsHazardous = true
	records[1].IsHazardous = true

	scored, _ := Score(records, ScoringConfig{RiskThreshold: 0.6, AnomalyThreshold: 2, HazardBoost: 0.2})
	assert.InDelta(t, WeightProximity+0.2, scored[0].RiskScore, 1e-9)
	assert.InDelta(t, 0.9, scored[1].RiskScore, 1e-9)

	records[1].RelativeVelocityKmS = 40
	records = append(records, approach("c", "2024-04-01", 100, 5, 1))
	scored, _ = Score(records, ScoringConfig{HazardBoost: 0.5})
	assert.Equal(t, 1.0, scored[1].RiskScore, "boosted scores are clipped")
}

func TestScore_AuxiliaryZScores(t *testing.T) {
	records := []ApproachRecord{
		approach("a", "2024-04-01", 100, 10, 1),
		approach("b", "2024-04-01", 300, 10, 1),
	}
	scored, _ := Score(records, DefaultScoringConfig())
	assert.InDelta(t, -1.0, scored[0].MissDistanceZScore, 1e-9)
	assert.InDelta(t, 1.0, scored[1].MissDistanceZScore, 1e-9)
	assert.Zero(t, scored[0].VelocityZScore)
	assert.Zero(t, scored[0].DiameterZScore)
}

func TestZScores(t *testing.T) {
	z := ZScores([]float64{2, 4, 4, 4, 5, 5, 7, 9})
	// Population mean 5, standard deviation 2.
	assert.InDelta(t, -1.5, z[0], 1e-12)
	assert.InDelta(t, 2.0, z[7], 1e-12)

	assert.Equal(t, []float64{0, 0, 0}, ZScores([]float64{0.1, 0.1, 0.1}))
	assert.Empty(t, ZScores(nil))
}

func TestZScores_LargeConstantColumn(t *testing.T) {
	tests := []struct {
		name  string
		value float64
		n     int
	}{
		{"miss distance km", 12345678.9, 10},
		{"far miss distance km", 45612345.678, 30},
		{"velocity km/h", 98765.4321, 7},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			values := make([]float64, tt.n)
			for i := range values {
				values[i] = tt.value
			}
			assert.Equal(t, make([]float64, tt.n), ZScores(values))
		})
	}
}

func TestZScoreAlerts_ConstantMissDistance(t *testing.T) {
	records := make([]ApproachRecord, 10)
	for i := range records {
		records[i] = approach(strconv.Itoa(i), "2024-04-01", 12345678.9, 5+float64(i), 0.1+0.01*float64(i))
	}
	scored, _ := Score(records, DefaultScoringConfig())

	for _, r := range scored {
		assert.Zero(t, r.MissDistanceZScore, "record %s", r.ObjectID)
	}
	assert.Empty(t, ZScoreAlerts(scored, MetricMissDistance, 0.5))
}

func TestRiskLevelFor(t *testing.T) {
	tests := []struct {
		score float64
		want  RiskLevel
	}{
		{0, RiskVeryLow},
		{0.2, RiskVeryLow},
		{0.21, RiskLow},
		{0.4, RiskLow},
		{0.5, RiskMedium},
		{0.8, RiskHigh},
		{0.81, RiskVeryHigh},
		{1, RiskVeryHigh},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, RiskLevelFor(tt.score), "score %v", tt.score)
	}
}
