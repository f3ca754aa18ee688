package domain

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
)

// neoRecord is the subset of a NeoWs object record the pipeline reads.
type neoRecord struct {
	ID                string        `json:"id"`
	Name              string        `json:"name"`
	EstimatedDiameter diameterSet   `json:"estimated_diameter"`
	Hazardous         flexBool      `json:"is_potentially_hazardous_asteroid"`
	CloseApproachData []approachRaw `json:"close_approach_data"`
}

type diameterSet struct {
	Kilometers struct {
		Min flexFloat `json:"estimated_diameter_min"`
		Max flexFloat `json:"estimated_diameter_max"`
	} `json:"kilometers"`
}

type approachRaw struct {
	Date         string `json:"close_approach_date"`
	MissDistance struct {
		Kilometers flexFloat `json:"kilometers"`
	} `json:"miss_distance"`
	RelativeVelocity struct {
		KilometersPerHour flexFloat `json:"kilometers_per_hour"`
	} `json:"relative_velocity"`
}

// flexFloat accepts a JSON number or a numeric string. Any other value leaves
// it invalid instead of failing the enclosing record.
type flexFloat struct {
	Value float64
	Valid bool
}

func (f *flexFloat) UnmarshalJSON(data []byte) error {
	*f = flexFloat{}
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	s := string(data)
	if data[0] == '"' {
		if err := json.Unmarshal(data, &s); err != nil {
			return nil //nolint:nilerr // unparsable values are missing, not fatal
		}
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil //nolint:nilerr // unparsable values are missing, not fatal
	}
	f.Value, f.Valid = v, true
	return nil
}

// nonNegative returns the value only if it is present and >= 0.
func (f flexFloat) nonNegative() (float64, bool) {
	if !f.Valid || f.Value < 0 {
		return 0, false
	}
	return f.Value, true
}

// flexBool accepts a JSON boolean or the strings "true"/"false". Anything
// else reads as false.
type flexBool bool

func (b *flexBool) UnmarshalJSON(data []byte) error {
	s := strings.Trim(strings.ToLower(string(bytes.TrimSpace(data))), `"`)
	*b = flexBool(s == "true")
	return nil
}

// Normalize flattens a raw feed result into one ApproachRecord per
// close-approach event, sorted by approach date and object id. It never
// fails: records that cannot be decoded or scored are dropped and counted
// in the returned report.
func Normalize(raw RawFeedResult) ([]ApproachRecord, QualityReport) {
	var report QualityReport
	records := make([]ApproachRecord, 0, raw.ObjectCount())

	for _, date := range raw.Dates() {
		for _, msg := range raw[date] {
			var rec neoRecord
			if err := json.Unmarshal(msg, &rec); err != nil || strings.TrimSpace(rec.ID) == "" {
				report.InputEvents++
				report.drop(DropMalformedRecord)
				continue
			}
			for _, ca := range rec.CloseApproachData {
				report.InputEvents++
				row, reason, ok := flattenApproach(date, rec, ca)
				if !ok {
					report.drop(reason)
					continue
				}
				records = append(records, row)
			}
		}
	}

	SortApproaches(records)
	report.EmittedRows = len(records)
	return records, report
}

// flattenApproach builds one row from an object record and one of its
// approach events, or reports why the row cannot be scored.
func flattenApproach(feedDate string, rec neoRecord, ca approachRaw) (ApproachRecord, DropReason, bool) {
	miss, ok := ca.MissDistance.Kilometers.nonNegative()
	if !ok {
		return ApproachRecord{}, DropMissingMissDistance, false
	}
	velocity, ok := ca.RelativeVelocity.KilometersPerHour.nonNegative()
	if !ok {
		return ApproachRecord{}, DropMissingVelocity, false
	}
	dMin, dMax, dMean, ok := resolveDiameter(rec.EstimatedDiameter)
	if !ok {
		return ApproachRecord{}, DropMissingDiameter, false
	}
	approachDate, ok := resolveApproachDate(ca.Date, feedDate)
	if !ok {
		return ApproachRecord{}, DropBadDate, false
	}

	return ApproachRecord{
		ObjectID:            strings.TrimSpace(rec.ID),
		Name:                strings.TrimSpace(rec.Name),
		ApproachDate:        approachDate,
		MissDistanceKm:      miss,
		RelativeVelocityKmH: velocity,
		RelativeVelocityKmS: KmHToKmS(velocity),
		DiameterMinKm:       dMin,
		DiameterMaxKm:       dMax,
		DiameterMeanKm:      dMean,
		IsHazardous:         bool(rec.Hazardous),
	}, "", true
}

// KmHToKmS converts kilometres per hour to kilometres per second.
func KmHToKmS(kmh float64) float64 {
	return kmh / 3600
}

// resolveDiameter returns min, max and mean diameter. With both bounds the
// mean is their midpoint; with one bound that bound stands in for all three.
// Reversed bounds are swapped so min <= mean <= max always holds.
func resolveDiameter(d diameterSet) (float64, float64, float64, bool) {
	dMin, hasMin := d.Kilometers.Min.nonNegative()
	dMax, hasMax := d.Kilometers.Max.nonNegative()

	switch {
	case hasMin && hasMax:
		if dMin > dMax {
			dMin, dMax = dMax, dMin
		}
		return dMin, dMax, (dMin + dMax) / 2, true
	case hasMin:
		return dMin, dMin, dMin, true
	case hasMax:
		return dMax, dMax, dMax, true
	default:
		return 0, 0, 0, false
	}
}

// resolveApproachDate prefers the event's own date and falls back to the
// feed date key it was listed under.
func resolveApproachDate(eventDate, feedDate string) (time.Time, bool) {
	if t, err := ParseDate(eventDate); err == nil {
		return t, true
	}
	if t, err := ParseDate(feedDate); err == nil {
		return t, true
	}
	return time.Time{}, false
}
