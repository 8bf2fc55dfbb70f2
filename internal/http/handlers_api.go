package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"releve/internal/core"
	applog "releve/internal/log"
	"releve/internal/middleware/trace"
)

const apiTimeout = 7 * time.Second

type statsResponse struct {
	Tags []string           `json:"tags"`
	Data []core.MonthAmount `json:"data"`
}

func (s *Server) handleAPIActivities(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), apiTimeout)
	defer cancel()

	groups, err := s.ledger.MonthGroups(ctx)
	if err != nil {
		s.apiError(w, r, "activities", err)
		return
	}
	if groups == nil {
		groups = []core.MonthGroup{}
	}
	writeJSON(w, http.StatusOK, groups)
}

func (s *Server) handleAPIBalance(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), apiTimeout)
	defer cancel()

	b, err := s.ledger.LatestBalance(ctx)
	if errors.Is(err, core.ErrNoBalance) {
		writeJSONError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		s.apiError(w, r, "balance", err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

// handleAPITags serves the tag dictionary keyed by pattern id.
func (s *Server) handleAPITags(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), apiTimeout)
	defer cancel()

	dict, err := s.ledger.TagDictionary(ctx)
	if err != nil {
		s.apiError(w, r, "tags", err)
		return
	}
	out := make(map[string][]string, len(dict))
	for id, tags := range dict {
		out[strconv.FormatInt(id, 10)] = tags
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleAPITagPatterns(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), apiTimeout)
	defer cancel()

	patterns, err := s.ledger.PatternTags(ctx)
	if err != nil {
		s.apiError(w, r, "tag patterns", err)
		return
	}
	if patterns == nil {
		patterns = []core.PatternTags{}
	}
	writeJSON(w, http.StatusOK, patterns)
}

func (s *Server) handleAPIStatsPerMonth(w http.ResponseWriter, r *http.Request) {
	tags := ParseTags(r.URL.Query())
	if len(tags) == 0 {
		writeJSONError(w, http.StatusBadRequest, "missing tag value")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), apiTimeout)
	defer cancel()

	months, err := s.ledger.StatsPerMonthByTag(ctx, tags)
	if err != nil {
		s.apiError(w, r, "stats", err)
		return
	}
	if months == nil {
		months = []core.MonthAmount{}
	}
	writeJSON(w, http.StatusOK, statsResponse{Tags: tags, Data: months})
}

func (s *Server) apiError(w http.ResponseWriter, r *http.Request, what string, err error) {
	s.structured.LogError(r.Context(), "API read failed", err, applog.ComponentHTTP, applog.OpLoad,
		applog.NewFields().WithRequestID(trace.GetRequestID(r.Context())))
	writeJSONError(w, http.StatusInternalServerError, what+" unavailable")
}
