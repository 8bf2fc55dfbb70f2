package http

import (
	"context"
	"fmt"
	"html/template"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"releve/internal/core"
	"releve/internal/export"
	applog "releve/internal/log"
	"releve/internal/view"
)

var templateFuncs = template.FuncMap{
	"join": strings.Join,
}

type indexData struct {
	Search string
	Ledger view.Model
}

type tagsData struct {
	Patterns []core.PatternTags
	Err      string
}

type barRow struct {
	Label  string
	Amount string
	Width  int
}

type statsData struct {
	Tags      []string
	Selected  []string
	Value     string
	Bars      []barRow
	Total     string
	ExportURL string
	Err       string
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, name string, data any) {
	if s.templates == nil {
		s.logger.ErrorContext(r.Context(), "Templates not loaded", applog.FieldPath, r.URL.Path)
		InternalServerError("templates not loaded").Write(w)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.templates.ExecuteTemplate(w, name, data); err != nil {
		s.structured.LogError(r.Context(), "Template execution failed", err, applog.ComponentTemplate, applog.OpRender, nil)
	}
}

// model applies the search string to the current ledger.
func (s *Server) model(ctx context.Context, q string) view.Model {
	m := s.session(ctx).OnSearchStringChanged(q)
	s.structured.LogView(ctx, q, m.State.String(), len(m.Rows))
	return m
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	q := ParseSearch(r.URL.Query())
	s.render(w, r, "index.html", indexData{Search: q, Ledger: s.model(r.Context(), q)})
}

// handleActivitiesPartial re-renders the ledger table for a new search
// string. htmx calls it on every keystroke.
func (s *Server) handleActivitiesPartial(w http.ResponseWriter, r *http.Request) {
	q := ParseSearch(r.URL.Query())
	m := s.model(r.Context(), q)

	if s.templates == nil {
		InternalServerError("templates not loaded").Write(w)
		return
	}
	var buf strings.Builder
	if err := s.templates.ExecuteTemplate(&buf, "ledger.html", m); err != nil {
		s.structured.LogError(r.Context(), "Ledger partial failed", err, applog.ComponentTemplate, applog.OpRender, nil)
		InternalServerError("rendering failed").Write(w)
		return
	}
	NewHTMXResponse().
		TriggerLedgerRendered(m.State.String(), len(m.Rows)).
		PushSearch(q).
		BodyHTML(buf.String()).
		Write(w)
}

func (s *Server) handleTagsPage(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 7*time.Second)
	defer cancel()

	var data tagsData
	patterns, err := s.ledger.PatternTags(ctx)
	if err != nil {
		s.structured.LogError(r.Context(), "Tag patterns load failed", err, applog.ComponentHTTP, applog.OpLoad, nil)
		data.Err = "Tags could not be loaded"
	}
	data.Patterns = patterns
	s.render(w, r, "tags.html", data)
}

func (s *Server) handleStatsPage(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 7*time.Second)
	defer cancel()

	selected := ParseTags(r.URL.Query())
	data := statsData{Selected: selected, Value: strings.Join(selected, ",")}

	patterns, err := s.ledger.PatternTags(ctx)
	if err != nil {
		s.structured.LogError(r.Context(), "Tag patterns load failed", err, applog.ComponentHTTP, applog.OpLoad, nil)
	}
	data.Tags = tagNames(patterns)

	if len(selected) > 0 {
		months, err := s.ledger.StatsPerMonthByTag(ctx, selected)
		if err != nil {
			s.structured.LogError(r.Context(), "Stats load failed", err, applog.ComponentHTTP, applog.OpLoad, nil)
			data.Err = "Statistics could not be loaded"
		} else {
			data.Bars, data.Total = bars(months)
			data.ExportURL = "/stats/export.xlsx?value=" + template.URLQueryEscaper(data.Value)
		}
	}
	s.render(w, r, "stats.html", data)
}

func (s *Server) handleStatsExport(w http.ResponseWriter, r *http.Request) {
	selected := ParseTags(r.URL.Query())
	if len(selected) == 0 {
		BadRequestError("missing tag value").Write(w)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 7*time.Second)
	defer cancel()
	months, err := s.ledger.StatsPerMonthByTag(ctx, selected)
	if err != nil {
		s.structured.LogError(r.Context(), "Stats load failed", err, applog.ComponentExport, applog.OpExport, nil)
		InternalServerError("statistics unavailable").Write(w)
		return
	}

	buf, err := export.SpendWorkbook(selected, months)
	if err != nil {
		s.structured.LogError(r.Context(), "Workbook export failed", err, applog.ComponentExport, applog.OpExport, nil)
		InternalServerError("export failed").Write(w)
		return
	}

	NewHTMXResponse().
		Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet").
		Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.FileName(selected))).
		Header("Content-Length", strconv.Itoa(buf.Len())).
		Body(buf.Bytes()).
		Write(w)
}

// tagNames lists the distinct tags of all patterns, sorted.
func tagNames(patterns []core.PatternTags) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, p := range patterns {
		for _, t := range p.Tags {
			if _, ok := seen[t]; ok {
				continue
			}
			seen[t] = struct{}{}
			out = append(out, t)
		}
	}
	sort.Strings(out)
	return out
}

// bars scales each month against the largest one.
func bars(months []core.MonthAmount) ([]barRow, string) {
	var maxCents, total int64
	for _, m := range months {
		if m.Amount.Cents > maxCents {
			maxCents = m.Amount.Cents
		}
		total += m.Amount.Cents
	}
	rows := make([]barRow, 0, len(months))
	for _, m := range months {
		rows = append(rows, barRow{
			Label:  m.Label(),
			Amount: formatEuros(m.Amount.Cents),
			Width:  barWidth(m.Amount.Cents, maxCents),
		})
	}
	return rows, formatEuros(total)
}
