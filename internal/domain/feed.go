package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// DateLayout is the ISO 8601 calendar date format used by the feed and all artifacts.
const DateLayout = "2006-01-02"

// DateRange is an inclusive range of UTC calendar dates.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// NewDateRange truncates both bounds to UTC dates and rejects start > end.
func NewDateRange(start, end time.Time) (DateRange, error) {
	r := DateRange{Start: truncateDate(start), End: truncateDate(end)}
	if r.Start.After(r.End) {
		return DateRange{}, fmt.Errorf("%w: start date %s is after end date %s",
			ErrConfiguration, FormatDate(r.Start), FormatDate(r.End))
	}
	return r, nil
}

// LastNDays returns the range of n dates ending today (inclusive).
func LastNDays(n int) (DateRange, error) {
	if n < 1 {
		return DateRange{}, fmt.Errorf("%w: days to fetch must be at least 1, got %d", ErrConfiguration, n)
	}
	end := Today()
	return DateRange{Start: end.AddDate(0, 0, -(n - 1)), End: end}, nil
}

// Days returns the number of dates in the range.
func (r DateRange) Days() int {
	return int(r.End.Sub(r.Start).Hours()/24) + 1
}

// Dates lists every date of the range as an ISO string, in order.
func (r DateRange) Dates() []string {
	dates := make([]string, 0, r.Days())
	for d := r.Start; !d.After(r.End); d = d.AddDate(0, 0, 1) {
		dates = append(dates, FormatDate(d))
	}
	return dates
}

// Contains reports whether t falls on a date within the range.
func (r DateRange) Contains(t time.Time) bool {
	d := truncateDate(t)
	return !d.Before(r.Start) && !d.After(r.End)
}

func (r DateRange) String() string {
	return FormatDate(r.Start) + ".." + FormatDate(r.End)
}

// ParseDate parses an ISO calendar date. Feed timestamps such as
// "2024-Apr-26 15:10" are not accepted; only the date key form is.
func ParseDate(s string) (time.Time, error) {
	return time.Parse(DateLayout, strings.TrimSpace(s))
}

// FormatDate renders t as an ISO calendar date.
func FormatDate(t time.Time) string {
	return t.UTC().Format(DateLayout)
}

func truncateDate(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// RawFeedResult maps an ISO date to the object records the feed returned for
// that date, kept byte-for-byte so the raw artifact mirrors the source.
type RawFeedResult map[string][]json.RawMessage

// Dates returns the date keys in ascending order.
func (r RawFeedResult) Dates() []string {
	dates := make([]string, 0, len(r))
	for d := range r {
		dates = append(dates, d)
	}
	sort.Strings(dates)
	return dates
}

// ObjectCount returns the total number of object records across all dates.
func (r RawFeedResult) ObjectCount() int {
	n := 0
	for _, objs := range r {
		n += len(objs)
	}
	return n
}

// FeedDocument is the top-level shape of a feed response and of the raw artifact.
type FeedDocument struct {
	ElementCount     int           `json:"element_count"`
	NearEarthObjects RawFeedResult `json:"near_earth_objects"`
}

// ParseFeedDocument decodes a feed response body. A body that is not a JSON
// object with a near_earth_objects map is malformed.
func ParseFeedDocument(data []byte) (RawFeedResult, error) {
	var doc FeedDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode feed document: %w", err)
	}
	if doc.NearEarthObjects == nil {
		return nil, errors.New("decode feed document: missing near_earth_objects")
	}
	return doc.NearEarthObjects, nil
}
