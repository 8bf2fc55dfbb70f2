package http

import (
	"encoding/json"
	"html/template"
	"net/http"
	"net/url"
)

// HTMXResponseBuilder assembles a response for htmx: the swapped fragment
// plus the HX-* headers that tell the page what happened.
type HTMXResponseBuilder struct {
	status    int
	header    http.Header
	trigger   map[string]any
	afterSwap map[string]any
	body      []byte
}

// NewHTMXResponse starts a 200 response with no body.
func NewHTMXResponse() *HTMXResponseBuilder {
	return &HTMXResponseBuilder{status: http.StatusOK, header: make(http.Header)}
}

func (b *HTMXResponseBuilder) Status(code int) *HTMXResponseBuilder {
	b.status = code
	return b
}

// Trigger raises an event as soon as the response arrives.
func (b *HTMXResponseBuilder) Trigger(name string, detail any) *HTMXResponseBuilder {
	b.trigger = addEvent(b.trigger, name, detail)
	return b
}

// TriggerAfterSwap raises an event once the fragment is in the page.
func (b *HTMXResponseBuilder) TriggerAfterSwap(name string, detail any) *HTMXResponseBuilder {
	b.afterSwap = addEvent(b.afterSwap, name, detail)
	return b
}

// TriggerLedgerRendered reports the ledger state and row count of the
// swapped table.
func (b *HTMXResponseBuilder) TriggerLedgerRendered(state string, rows int) *HTMXResponseBuilder {
	return b.TriggerAfterSwap("ledger:rendered", map[string]any{"state": state, "rows": rows})
}

// PushSearch records the search string in the browser history so that a
// reload shows the same filtered ledger.
func (b *HTMXResponseBuilder) PushSearch(q string) *HTMXResponseBuilder {
	target := "/"
	if q != "" {
		target += "?" + url.Values{"q": {q}}.Encode()
	}
	b.header.Set("HX-Push-Url", target)
	return b
}

func (b *HTMXResponseBuilder) Header(name, value string) *HTMXResponseBuilder {
	b.header.Set(name, value)
	return b
}

func (b *HTMXResponseBuilder) Body(content []byte) *HTMXResponseBuilder {
	b.body = content
	return b
}

// BodyHTML sets an HTML fragment as the body. Fragments vary with the
// request, so they are never cached.
func (b *HTMXResponseBuilder) BodyHTML(html string) *HTMXResponseBuilder {
	b.header.Set("Content-Type", "text/html; charset=utf-8")
	b.header.Set("Cache-Control", "no-store")
	b.body = []byte(html)
	return b
}

func (b *HTMXResponseBuilder) Write(w http.ResponseWriter) {
	dst := w.Header()
	for name, values := range b.header {
		dst[name] = values
	}
	setEvents(dst, "HX-Trigger", b.trigger)
	setEvents(dst, "HX-Trigger-After-Swap", b.afterSwap)

	w.WriteHeader(b.status)
	if len(b.body) > 0 {
		_, _ = w.Write(b.body)
	}
}

func addEvent(events map[string]any, name string, detail any) map[string]any {
	if events == nil {
		events = make(map[string]any)
	}
	if detail == nil {
		detail = struct{}{}
	}
	events[name] = detail
	return events
}

func setEvents(h http.Header, key string, events map[string]any) {
	if len(events) == 0 {
		return
	}
	if raw, err := json.Marshal(events); err == nil {
		h.Set(key, string(raw))
	}
}

// ErrorResponse renders message, escaped, in the page's alert box.
func ErrorResponse(statusCode int, message string) *HTMXResponseBuilder {
	return NewHTMXResponse().
		Status(statusCode).
		BodyHTML(`<div class="error" role="alert">` + template.HTMLEscapeString(message) + `</div>`)
}

func BadRequestError(message string) *HTMXResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, message)
}

func InternalServerError(message string) *HTMXResponseBuilder {
	return ErrorResponse(http.StatusInternalServerError, message)
}
