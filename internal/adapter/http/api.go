package http

import (
	"fmt"
	"net/http"
	"strconv"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"

	"github.com/couchcryptid/neo-risk-etl/internal/domain"
)

// Query limits for leaderboard-style endpoints.
const (
	defaultLimit = 10
	maxLimit     = 1000
)

// alertHighRisk selects the policy threshold instead of a z-score metric.
const alertHighRisk = "high_risk"

type approachesResponse struct {
	Count         int                   `json:"count"`
	RiskThreshold *float64              `json:"risk_threshold,omitempty"`
	Approaches    []domain.ScoredRecord `json:"approaches"`
}

type summaryResponse struct {
	Summary domain.Summary       `json:"summary"`
	Report  domain.QualityReport `json:"report"`
	Scoring domain.ScoringConfig `json:"scoring"`
}

type alertsResponse struct {
	Metric    string                `json:"metric"`
	Threshold float64               `json:"threshold"`
	Count     int                   `json:"count"`
	Alerts    []domain.ScoredRecord `json:"alerts"`
}

// dataset returns the current analysis or writes 503 when none is loaded.
func (s *Server) dataset(w http.ResponseWriter) (*domain.Analysis, bool) {
	a := s.data.Current()
	if a == nil {
		writeError(w, http.StatusServiceUnavailable, "no dataset loaded yet")
		return nil, false
	}
	return a, true
}

func (s *Server) handleApproaches(w http.ResponseWriter, r *http.Request) {
	a, ok := s.dataset(w)
	if !ok {
		return
	}
	f, thresholdSet, err := parseFilter(r, a.Config.RiskThreshold)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	records := domain.FilterByDate(a.Scored, f)
	resp := approachesResponse{}
	if thresholdSet {
		records = domain.AboveThreshold(records, f.RiskThreshold)
		resp.RiskThreshold = &f.RiskThreshold
	}
	resp.Count = len(records)
	resp.Approaches = records
	sharedobs.WriteJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	a, ok := s.dataset(w)
	if !ok {
		return
	}
	f, _, err := parseFilter(r, a.Config.RiskThreshold)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, summaryResponse{
		Summary: domain.Summarize(domain.FilterByDate(a.Scored, f), f.RiskThreshold),
		Report:  a.Report,
		Scoring: a.Config,
	})
}

func (s *Server) handleDaily(w http.ResponseWriter, r *http.Request) {
	a, ok := s.dataset(w)
	if !ok {
		return
	}
	f, _, err := parseFilter(r, a.Config.RiskThreshold)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, map[string]any{"daily": domain.FilterDaily(a.Daily, f)})
}

func (s *Server) handleClosest(w http.ResponseWriter, r *http.Request) {
	a, ok := s.dataset(w)
	if !ok {
		return
	}
	f, _, err := parseFilter(r, a.Config.RiskThreshold)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	limit, err := parseLimit(r, domain.DefaultLeaderboardSize)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, map[string]any{"closest": domain.ClosestMisses(domain.FilterByDate(a.Scored, f), limit)})
}

func (s *Server) handleTopRisk(w http.ResponseWriter, r *http.Request) {
	a, ok := s.dataset(w)
	if !ok {
		return
	}
	f, _, err := parseFilter(r, a.Config.RiskThreshold)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	limit, err := parseLimit(r, defaultLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, map[string]any{"top_risk": domain.TopRisk(domain.FilterByDate(a.Scored, f), limit)})
}

func (s *Server) handleAlerts(w http.ResponseWriter, r *http.Request) {
	a, ok := s.dataset(w)
	if !ok {
		return
	}
	f, _, err := parseFilter(r, a.Config.RiskThreshold)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	records := domain.FilterByDate(a.Scored, f)

	metric := r.URL.Query().Get("metric")
	if metric == "" {
		metric = string(domain.MetricRisk)
	}

	if metric == alertHighRisk {
		threshold, err := queryFloat(r, "threshold", a.Config.RiskThreshold)
		if err == nil && (threshold < 0 || threshold > 1) {
			err = fmt.Errorf("threshold %v outside [0, 1]", threshold)
		}
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		alerts := domain.AboveThreshold(records, threshold)
		sharedobs.WriteJSON(w, http.StatusOK, alertsResponse{Metric: metric, Threshold: threshold, Count: len(alerts), Alerts: alerts})
		return
	}

	m, err := domain.ParseMetric(metric)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	threshold, err := queryFloat(r, "threshold", a.Config.AnomalyThreshold)
	if err == nil && threshold <= 0 {
		err = fmt.Errorf("threshold must be positive, got %v", threshold)
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	alerts := domain.ZScoreAlerts(records, m, threshold)
	sharedobs.WriteJSON(w, http.StatusOK, alertsResponse{Metric: metric, Threshold: threshold, Count: len(alerts), Alerts: alerts})
}

func (s *Server) handleHighlights(w http.ResponseWriter, r *http.Request) {
	a, ok := s.dataset(w)
	if !ok {
		return
	}
	f, _, err := parseFilter(r, a.Config.RiskThreshold)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, domain.Highlight(domain.FilterByDate(a.Scored, f)))
}

// parseFilter reads start, end and risk_threshold. The boolean reports
// whether risk_threshold was given explicitly.
func parseFilter(r *http.Request, defaultThreshold float64) (domain.Filter, bool, error) {
	q := r.URL.Query()
	f := domain.Filter{RiskThreshold: defaultThreshold}

	if s := q.Get("start"); s != "" {
		d, err := domain.ParseDate(s)
		if err != nil {
			return f, false, fmt.Errorf("invalid start %q: want YYYY-MM-DD", s)
		}
		f.Start = d
	}
	if s := q.Get("end"); s != "" {
		d, err := domain.ParseDate(s)
		if err != nil {
			return f, false, fmt.Errorf("invalid end %q: want YYYY-MM-DD", s)
		}
		f.End = d
	}

	thresholdSet := q.Has("risk_threshold")
	threshold, err := queryFloat(r, "risk_threshold", defaultThreshold)
	if err != nil {
		return f, false, err
	}
	f.RiskThreshold = threshold

	if err := f.Validate(); err != nil {
		return f, false, err
	}
	return f, thresholdSet, nil
}

func parseLimit(r *http.Request, def int) (int, error) {
	s := r.URL.Query().Get("limit")
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 || n > maxLimit {
		return 0, fmt.Errorf("invalid limit %q: want 1..%d", s, maxLimit)
	}
	return n, nil
}

func queryFloat(r *http.Request, key string, def float64) (float64, error) {
	s := r.URL.Query().Get(key)
	if s == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", key, s)
	}
	return v, nil
}
