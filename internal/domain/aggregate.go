package domain

import (
	"math"
	"sort"
	"time"
)

// RollingWindowDays is the trailing window of the daily rolling averages.
const RollingWindowDays = 7

// DefaultLeaderboardSize is the number of dates on the closest-miss leaderboard.
const DefaultLeaderboardSize = 10

// Analysis is the full output of the analysis stage.
type Analysis struct {
	Scored []ScoredRecord   `json:"scored"`
	Daily  []DailyAggregate `json:"daily"`
	Report QualityReport    `json:"report"`
	Config ScoringConfig    `json:"config"`
}

// Analyze scores the clean records and derives the daily time series over
// window (see DailyAggregates). Degenerate dimensions are reported, not
// treated as errors.
func Analyze(records []ApproachRecord, cfg ScoringConfig, window DateRange) Analysis {
	scored, degenerate := Score(records, cfg)
	return Analysis{
		Scored: scored,
		Daily:  DailyAggregates(scored, window),
		Report: QualityReport{DegenerateDimensions: degenerate},
		Config: cfg,
	}
}

// Reanalyze rebuilds an Analysis from previously scored records. Scores and
// z-scores are kept as stored; the threshold flags are recomputed with cfg
// and the daily series is derived again.
func Reanalyze(scored []ScoredRecord, cfg ScoringConfig, window DateRange) Analysis {
	Classify(scored, cfg)
	records := make([]ApproachRecord, len(scored))
	for i, r := range scored {
		records[i] = r.ApproachRecord
	}
	return Analysis{
		Scored: scored,
		Daily:  DailyAggregates(scored, window),
		Report: QualityReport{EmittedRows: len(scored), DegenerateDimensions: DegenerateDimensions(records)},
		Config: cfg,
	}
}

// DailyAggregates groups scored records by approach date. Every date of
// window, and of any approach outside it, appears once; dates without
// approaches carry zero counts so the series has no gaps. A zero window
// spans the first to the last approach.
func DailyAggregates(scored []ScoredRecord, window DateRange) []DailyAggregate {
	var first, last time.Time
	if !window.Start.IsZero() && !window.End.IsZero() {
		first, last = truncateDate(window.Start), truncateDate(window.End)
	} else if len(scored) == 0 {
		return nil
	} else {
		first = truncateDate(scored[0].ApproachDate)
		last = first
	}

	byDate := make(map[time.Time][]ScoredRecord)
	for _, r := range scored {
		d := truncateDate(r.ApproachDate)
		byDate[d] = append(byDate[d], r)
		if d.Before(first) {
			first = d
		}
		if d.After(last) {
			last = d
		}
	}

	var daily []DailyAggregate
	for d := first; !d.After(last); d = d.AddDate(0, 0, 1) {
		daily = append(daily, aggregateDay(d, byDate[d]))
	}
	applyRollingAverages(daily, RollingWindowDays)
	return daily
}

func aggregateDay(date time.Time, records []ScoredRecord) DailyAggregate {
	agg := DailyAggregate{Date: date, Count: len(records)}
	if len(records) == 0 {
		return agg
	}

	var risk, velocity, diameter float64
	agg.MinMissDistanceKm = math.Inf(1)
	for _, r := range records {
		risk += r.RiskScore
		velocity += r.RelativeVelocityKmS
		diameter += r.DiameterMeanKm
		agg.MaxMissDistanceKm = math.Max(agg.MaxMissDistanceKm, r.MissDistanceKm)
		agg.MinMissDistanceKm = math.Min(agg.MinMissDistanceKm, r.MissDistanceKm)
		if r.IsHazardous {
			agg.HazardousCount++
		}
		if r.IsAnomalous {
			agg.AnomalousCount++
		}
		if r.IsHighRisk {
			agg.HighRiskCount++
		}
	}
	n := float64(len(records))
	agg.MeanRiskScore = risk / n
	agg.MeanVelocityKmS = velocity / n
	agg.MeanDiameterKm = diameter / n
	return agg
}

// applyRollingAverages fills the trailing-window fields. The count average
// includes empty days; the risk average only covers days with approaches.
func applyRollingAverages(daily []DailyAggregate, window int) {
	for i := range daily {
		lo := max(0, i-window+1)
		var countSum, riskSum float64
		riskDays := 0
		for _, d := range daily[lo : i+1] {
			countSum += float64(d.Count)
			if d.Count > 0 {
				riskSum += d.MeanRiskScore
				riskDays++
			}
		}
		daily[i].Count7dAvg = countSum / float64(i-lo+1)
		if riskDays > 0 {
			daily[i].MeanRiskScore7dAvg = riskSum / float64(riskDays)
		}
	}
}

// ClosestMiss is the closest approach recorded on one date.
type ClosestMiss struct {
	Date   time.Time    `json:"date"`
	Record ScoredRecord `json:"record"`
}

// ClosestMisses picks each date's minimum-miss-distance record and ranks the
// dates ascending by that distance, ties broken by date. limit <= 0 returns
// every date.
func ClosestMisses(scored []ScoredRecord, limit int) []ClosestMiss {
	best := make(map[time.Time]ScoredRecord)
	for _, r := range scored {
		d := truncateDate(r.ApproachDate)
		if cur, ok := best[d]; !ok || r.MissDistanceKm < cur.MissDistanceKm {
			best[d] = r
		}
	}

	out := make([]ClosestMiss, 0, len(best))
	for d, r := range best {
		out = append(out, ClosestMiss{Date: d, Record: r})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Record.MissDistanceKm != out[j].Record.MissDistanceKm {
			return out[i].Record.MissDistanceKm < out[j].Record.MissDistanceKm
		}
		return out[i].Date.Before(out[j].Date)
	})

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
