package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// neoJSON renders a feed object record with one close approach on date.
func neoJSON(t *testing.T, id, date, missKm, velocityKmH string, dMin, dMax float64, hazardous bool) json.RawMessage {
	t.Helper()
	rec := map[string]any{
		"id":   id,
		"name": fmt.Sprintf("(%s)", id),
		"estimated_diameter": map[string]any{
			"kilometers": map[string]any{
				"estimated_diameter_min": dMin,
				"estimated_diameter_max": dMax,
			},
		},
		"is_potentially_hazardous_asteroid": hazardous,
		"close_approach_data": []map[string]any{
			{
				"close_approach_date":      date,
				"close_approach_date_full": date + " 12:00",
				"miss_distance":            map[string]any{"kilometers": missKm},
				"relative_velocity":        map[string]any{"kilometers_per_hour": velocityKmH},
				"orbiting_body":            "Earth",
			},
		},
	}
	data, err := json.Marshal(rec)
	require.NoError(t, err)
	return data
}

func date(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := ParseDate(s)
	require.NoError(t, err)
	return d
}

func dateRange(t *testing.T, start, end string) DateRange {
	t.Helper()
	r, err := NewDateRange(date(t, start), date(t, end))
	require.NoError(t, err)
	return r
}

// approach builds a clean record with the given scoring inputs.
func approach(id, day string, missKm, velocityKmS, diameterKm float64) ApproachRecord {
	d, _ := ParseDate(day)
	return ApproachRecord{
		ObjectID:            id,
		Name:                "(" + id + ")",
		ApproachDate:        d,
		MissDistanceKm:      missKm,
		RelativeVelocityKmH: velocityKmS * 3600,
		RelativeVelocityKmS: velocityKmS,
		DiameterMinKm:       diameterKm,
		DiameterMaxKm:       diameterKm,
		DiameterMeanKm:      diameterKm,
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
