package web

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"ivcrush/internal/scanner"
	"ivcrush/internal/symbols"
	"ivcrush/pkg/model"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"provider": s.provider.Name(),
		"time":     time.Now().UTC(),
	})
}

type analyzeRequest struct {
	Ticker       string  `json:"ticker"`
	Bias         string  `json:"bias"`          // bullish, bearish or neutral
	Profile      string  `json:"profile"`       // empty means the configured default
	RiskBudget   float64 `json:"risk_budget"`   // dollars; 0 means configured default
	EarningsDate string  `json:"earnings_date"` // YYYY-MM-DD, optional
	Session      string  `json:"session"`       // BMO or AMC when earnings_date is set
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	ticker := strings.ToUpper(strings.TrimSpace(req.Ticker))
	if ticker == "" {
		writeError(w, http.StatusBadRequest, "ticker is required")
		return
	}

	bias, err := parseBias(req.Bias)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	profile, err := s.cfg.Profile(req.Profile)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	riskBudget := req.RiskBudget
	if riskBudget <= 0 {
		riskBudget = s.cfg.Analysis.RiskBudget
	}

	var event model.EarningsEvent
	if req.EarningsDate != "" {
		d, err := time.Parse("2006-01-02", req.EarningsDate)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("bad earnings_date %q", req.EarningsDate))
			return
		}
		sess := model.AfterClose
		if strings.EqualFold(req.Session, "BMO") {
			sess = model.BeforeOpen
		}
		event = model.EarningsEvent{Ticker: ticker, Date: d, Session: sess}
	} else {
		event, err = s.nextEventFor(r.Context(), ticker)
		if err != nil {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
	}

	sc := scanner.NewScanner(s.provider, s.calendar, profile, riskBudget, 1, s.cfg.Scanner.Timeout)
	result, err := sc.AnalyzeEvent(r.Context(), event, bias)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// nextEventFor finds the ticker's next calendar event within the scan window
func (s *Server) nextEventFor(ctx context.Context, ticker string) (model.EarningsEvent, error) {
	events, err := s.calendar.Upcoming(ctx, symbols.UniverseLiquid100, time.Now(), s.cfg.Scanner.DaysAhead)
	if err != nil {
		return model.EarningsEvent{}, err
	}
	for _, ev := range events {
		if ev.Ticker == ticker {
			return ev, nil
		}
	}
	return model.EarningsEvent{}, fmt.Errorf("no upcoming earnings for %s in the next %d days", ticker, s.cfg.Scanner.DaysAhead)
}

type scanRequest struct {
	Universe  string `json:"universe"`
	Profile   string `json:"profile"`
	DaysAhead int    `json:"days_ahead"`
}

type scanResponse struct {
	RunID string            `json:"run_id,omitempty"`
	Scan  *model.ScanResult `json:"scan"`
}

func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	var req scanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	universe := symbols.Universe(req.Universe)
	if universe == "" {
		universe = symbols.UniverseLiquid100
	}
	profile, err := s.cfg.Profile(req.Profile)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	daysAhead := req.DaysAhead
	if daysAhead <= 0 {
		daysAhead = s.cfg.Scanner.DaysAhead
	}

	events, err := s.calendar.Upcoming(r.Context(), universe, time.Now(), daysAhead)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	sc := scanner.NewScanner(s.provider, s.calendar, profile, s.cfg.Analysis.RiskBudget,
		s.cfg.Scanner.Workers, s.cfg.Scanner.Timeout)
	scan, err := sc.Scan(r.Context(), events)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	resp := scanResponse{Scan: scan}
	if s.store != nil {
		runID, err := s.store.SaveScan(r.Context(), string(universe), scan)
		if err != nil {
			s.log.Error().Err(err).Msg("saving scan run")
		} else {
			resp.RunID = runID
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusServiceUnavailable, "run store not configured")
		return
	}
	runs, err := s.store.ListRuns(r.Context(), 50)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, runs)
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusServiceUnavailable, "run store not configured")
		return
	}
	runID := chi.URLParam(r, "id")
	recs, err := s.store.GetRecommendations(r.Context(), runID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if len(recs) == 0 {
		writeError(w, http.StatusNotFound, "run not found or empty")
		return
	}
	writeJSON(w, http.StatusOK, recs)
}

func parseBias(raw string) (model.Bias, error) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "", "NEUTRAL":
		return model.Neutral, nil
	case "BULLISH":
		return model.Bullish, nil
	case "BEARISH":
		return model.Bearish, nil
	default:
		return "", fmt.Errorf("bad bias %q: want bullish, bearish or neutral", raw)
	}
}
