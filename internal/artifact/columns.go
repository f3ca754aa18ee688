package artifact

import (
	"fmt"
	"time"

	"github.com/couchcryptid/neo-risk-etl/internal/domain"
)

type (
	approach = domain.ApproachRecord
	scored   = domain.ScoredRecord
	daily    = domain.DailyAggregate
)

var approachColumns = []column[approach]{
	stringCol("object_id", func(r *approach) *string { return &r.ObjectID }),
	stringCol("name", func(r *approach) *string { return &r.Name }),
	dateCol("approach_date", func(r *approach) *time.Time { return &r.ApproachDate }),
	floatCol("miss_distance_km", func(r *approach) *float64 { return &r.MissDistanceKm }),
	floatCol("relative_velocity_km_h", func(r *approach) *float64 { return &r.RelativeVelocityKmH }),
	floatCol("relative_velocity_km_s", func(r *approach) *float64 { return &r.RelativeVelocityKmS }),
	floatCol("diameter_min_km", func(r *approach) *float64 { return &r.DiameterMinKm }),
	floatCol("diameter_max_km", func(r *approach) *float64 { return &r.DiameterMaxKm }),
	floatCol("diameter_mean_km", func(r *approach) *float64 { return &r.DiameterMeanKm }),
	boolCol("is_hazardous", func(r *approach) *bool { return &r.IsHazardous }),
}

var scoredColumns = append(
	lift(approachColumns, func(r *scored) *approach { return &r.ApproachRecord }),
	floatCol("risk_score", func(r *scored) *float64 { return &r.RiskScore }),
	floatCol("risk_zscore", func(r *scored) *float64 { return &r.RiskZScore }),
	boolCol("is_anomalous", func(r *scored) *bool { return &r.IsAnomalous }),
	boolCol("is_high_risk", func(r *scored) *bool { return &r.IsHighRisk }),
	riskLevelCol("risk_level", func(r *scored) *domain.RiskLevel { return &r.RiskLevel }),
	floatCol("diameter_zscore", func(r *scored) *float64 { return &r.DiameterZScore }),
	floatCol("miss_distance_zscore", func(r *scored) *float64 { return &r.MissDistanceZScore }),
	floatCol("velocity_zscore", func(r *scored) *float64 { return &r.VelocityZScore }),
)

var dailyColumns = []column[daily]{
	dateCol("date", func(d *daily) *time.Time { return &d.Date }),
	intCol("count", func(d *daily) *int { return &d.Count }),
	floatCol("mean_risk_score", func(d *daily) *float64 { return &d.MeanRiskScore }),
	floatCol("mean_velocity_km_s", func(d *daily) *float64 { return &d.MeanVelocityKmS }),
	floatCol("mean_diameter_km", func(d *daily) *float64 { return &d.MeanDiameterKm }),
	floatCol("max_miss_distance_km", func(d *daily) *float64 { return &d.MaxMissDistanceKm }),
	floatCol("min_miss_distance_km", func(d *daily) *float64 { return &d.MinMissDistanceKm }),
	intCol("hazardous_count", func(d *daily) *int { return &d.HazardousCount }),
	intCol("anomalous_count", func(d *daily) *int { return &d.AnomalousCount }),
	intCol("high_risk_count", func(d *daily) *int { return &d.HighRiskCount }),
	floatCol("count_7d_avg", func(d *daily) *float64 { return &d.Count7dAvg }),
	floatCol("mean_risk_score_7d_avg", func(d *daily) *float64 { return &d.MeanRiskScore7dAvg }),
}

func riskLevelCol[T any](name string, field func(*T) *domain.RiskLevel) column[T] {
	return column[T]{
		name:   name,
		format: func(v *T) string { return string(*field(v)) },
		parse: func(v *T, s string) error {
			switch l := domain.RiskLevel(s); l {
			case domain.RiskVeryLow, domain.RiskLow, domain.RiskMedium, domain.RiskHigh, domain.RiskVeryHigh:
				*field(v) = l
				return nil
			default:
				return fmt.Errorf("unknown risk level %q", s)
			}
		},
	}
}
