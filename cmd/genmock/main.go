// Command genmock writes a synthetic NeoWs raw artifact so the pipeline and
// dashboard can run without an API key. The output mimics the feed's quirks:
// numbers encoded as strings, objects with several approaches, and a share
// of records that normalization must drop.
//
// Usage:
//
//	go run ./cmd/genmock -out-dir data -start 2024-04-01 -days 30 -per-day 12
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand/v2"
	"strconv"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/neo-risk-etl/internal/adapter/filestore"
	"github.com/couchcryptid/neo-risk-etl/internal/artifact"
	"github.com/couchcryptid/neo-risk-etl/internal/domain"
)

// baseNow fixes "today" when -start is not given, for reproducible output.
var baseNow = time.Date(2024, time.April, 30, 6, 0, 0, 0, time.UTC)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	outDir := flag.String("out-dir", "data", "directory to write "+artifact.RawName+" into")
	start := flag.String("start", "", "first date (YYYY-MM-DD); defaults to -days before a fixed reference date")
	days := flag.Int("days", 30, "number of dates")
	perDay := flag.Int("per-day", 12, "objects per date")
	seed := flag.Uint64("seed", 42, "random seed")
	invalidRate := flag.Float64("invalid-rate", 0.05, "fraction of approaches missing a required field")
	flag.Parse()

	if *days < 1 || *perDay < 0 {
		flag.Usage()
		return fmt.Errorf("-days must be >= 1 and -per-day >= 0")
	}

	domain.SetClock(clockwork.NewFakeClockAt(baseNow))
	defer domain.SetClock(nil)

	r, err := resolveRange(*start, *days)
	if err != nil {
		return err
	}

	g := generator{rng: rand.New(rand.NewPCG(*seed, *seed^0x9e3779b97f4a7c15)), invalidRate: *invalidRate}
	raw := g.feed(r, *perDay)

	data, err := artifact.EncodeRaw(raw)
	if err != nil {
		return err
	}
	store, err := filestore.New(*outDir)
	if err != nil {
		return err
	}
	if err := store.Put(context.Background(), artifact.RawName, data); err != nil {
		return err
	}

	log.Printf("wrote %s/%s: %s, %d objects", store.Dir(), artifact.RawName, r, raw.ObjectCount())
	return nil
}

func resolveRange(start string, days int) (domain.DateRange, error) {
	if start == "" {
		return domain.LastNDays(days)
	}
	s, err := domain.ParseDate(start)
	if err != nil {
		return domain.DateRange{}, fmt.Errorf("invalid -start: %w", err)
	}
	return domain.NewDateRange(s, s.AddDate(0, 0, days-1))
}

type generator struct {
	rng         *rand.Rand
	invalidRate float64
	nextID      int
}

func (g *generator) feed(r domain.DateRange, perDay int) domain.RawFeedResult {
	raw := make(domain.RawFeedResult, r.Days())
	for _, d := range r.Dates() {
		objs := make([]json.RawMessage, 0, perDay)
		for range perDay {
			objs = append(objs, g.object(d))
		}
		raw[d] = objs
	}
	return raw
}

// object renders one NeoWs object record. Diameters follow a heavy tail so
// a few large objects stand out; roughly one object in ten has a second
// approach on the same date.
func (g *generator) object(date string) json.RawMessage {
	g.nextID++
	id := strconv.Itoa(3_000_000 + g.nextID)

	dMin := 0.005 + g.rng.ExpFloat64()*0.08
	dMax := dMin * (2 + g.rng.Float64())
	approaches := []map[string]any{g.approach(date)}
	if g.rng.Float64() < 0.1 {
		approaches = append(approaches, g.approach(date))
	}

	rec := map[string]any{
		"id":                   id,
		"neo_reference_id":     id,
		"name":                 fmt.Sprintf("(%d %s%d)", 2000+g.rng.IntN(25), string(rune('A'+g.rng.IntN(26))), g.rng.IntN(100)),
		"absolute_magnitude_h": 18 + g.rng.Float64()*10,
		"estimated_diameter": map[string]any{
			"kilometers": map[string]any{
				"estimated_diameter_min": dMin,
				"estimated_diameter_max": dMax,
			},
		},
		"is_potentially_hazardous_asteroid": dMax > 0.14 && g.rng.Float64() < 0.5,
		"close_approach_data":               approaches,
	}
	if g.rng.Float64() < g.invalidRate/2 {
		delete(rec, "estimated_diameter")
	}

	data, _ := json.Marshal(rec) //nolint:errchkjson // map of plain values
	return data
}

func (g *generator) approach(date string) map[string]any {
	missKm := 50_000 + g.rng.Float64()*74_000_000
	velocityKmS := 2 + g.rng.ExpFloat64()*12

	a := map[string]any{
		"close_approach_date":      date,
		"close_approach_date_full": date + " " + fmt.Sprintf("%02d:%02d", g.rng.IntN(24), g.rng.IntN(60)),
		"miss_distance": map[string]any{
			"kilometers":   strconv.FormatFloat(missKm, 'f', 6, 64),
			"astronomical": strconv.FormatFloat(missKm/149_597_870.7, 'f', 9, 64),
		},
		"relative_velocity": map[string]any{
			"kilometers_per_second": strconv.FormatFloat(velocityKmS, 'f', 6, 64),
			"kilometers_per_hour":   strconv.FormatFloat(velocityKmS*3600, 'f', 6, 64),
		},
		"orbiting_body": "Earth",
	}
	if g.rng.Float64() < g.invalidRate/2 {
		delete(a, "miss_distance")
	}
	return a
}
