package http

import (
	"context"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"releve/internal/cache"
	"releve/internal/core"
	applog "releve/internal/log"
	"releve/internal/middleware/security"
	"releve/internal/middleware/trace"
	"releve/internal/search"
	"releve/internal/view"
	appweb "releve/web"
)

const snapshotKey = "ledger"

// LedgerReader is everything the pages and the JSON API read.
type LedgerReader interface {
	view.ActivitySource
	view.BalanceSource
	view.TagSource
	PatternTags(ctx context.Context) ([]core.PatternTags, error)
	StatsPerMonthByTag(ctx context.Context, tags []string) ([]core.MonthAmount, error)
	Ping(ctx context.Context) error
}

// Options tune the server. Zero values select the defaults.
type Options struct {
	// CacheTTL keeps a loaded ledger snapshot; 0 reloads on every request.
	CacheTTL    time.Duration
	LoadTimeout time.Duration
	Untagged    search.SentinelPolicy
	CORSOrigins []string
	Logger      *applog.Logger
}

type Server struct {
	http.Server
	templates *template.Template
	ledger    LedgerReader
	loader    *view.Loader
	viewOpts  view.Options
	cacheTTL  time.Duration

	snapshots    *cache.LRUCache[view.Snapshot]
	cacheManager *cache.Manager

	logger     *applog.Logger
	structured *applog.StructuredLogger
	tracer     *trace.Middleware
	detector   *security.Detector

	shutdownOnce sync.Once
}

// NewServer configures routes and templates, returning a ready-to-run http.Server.
func NewServer(addr string, ledger LedgerReader, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	logger = logger.WithComponent(applog.ComponentHTTP)

	s := &Server{
		ledger:       ledger,
		loader:       view.NewLoader(ledger, ledger, ledger, opts.LoadTimeout),
		viewOpts:     view.Options{Untagged: opts.Untagged},
		cacheTTL:     opts.CacheTTL,
		snapshots:    cache.NewLRUCache[view.Snapshot](1, opts.CacheTTL),
		cacheManager: cache.NewManager(),
		logger:       logger,
		structured:   applog.NewStructuredLogger(logger),
		detector:     security.NewDetector(),
	}
	s.tracer = trace.NewMiddleware(logger, s.detector.ExtractClientIP)

	if opts.CacheTTL > 0 {
		s.cacheManager.Register(s.snapshots)
		s.cacheManager.StartCleanup(opts.CacheTTL)
	}

	// Parse embedded templates at startup.
	t, err := template.New("").Funcs(templateFuncs).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		logger.Warn("Failed parsing templates", "error", err)
	}
	s.templates = t

	mux := http.NewServeMux()

	// Static assets (served from embedded FS)
	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("GET /static/", security.StaticAssetMiddleware(3600)(static))
	} else {
		logger.Warn("Failed to mount embedded static FS", "error", err)
	}

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	// Pages and htmx partials
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /ui/activities", s.handleActivitiesPartial)
	mux.HandleFunc("GET /tags", s.handleTagsPage)
	mux.HandleFunc("GET /stats", s.handleStatsPage)
	mux.HandleFunc("GET /stats/export.xlsx", s.handleStatsExport)

	// JSON API
	cors := security.CORS(opts.CORSOrigins)
	mux.Handle("/api/", cors(s.apiRoutes()))

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	var handler http.Handler = mux
	handler = headers.Middleware(handler)
	handler = applog.RequestIDMiddleware(trace.RequestIDFromRequest)(handler)
	handler = applog.Middleware(logger)(handler)
	handler = s.tracer.Middleware(handler)
	handler = s.detector.ProbeFilter(handler)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) apiRoutes() http.Handler {
	api := http.NewServeMux()
	api.HandleFunc("GET /api/activities", s.handleAPIActivities)
	api.HandleFunc("GET /api/balance", s.handleAPIBalance)
	api.HandleFunc("GET /api/tags", s.handleAPITags)
	api.HandleFunc("GET /api/tags/pattern", s.handleAPITagPatterns)
	api.HandleFunc("GET /api/stats/per_month/tag", s.handleAPIStatsPerMonth)
	return api
}

// Shutdown gracefully shuts down the server and cleanup routines
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.cacheManager.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// Invalidate drops the cached ledger snapshot.
func (s *Server) Invalidate() {
	s.snapshots.Purge()
}

// session returns a session over the current ledger. A complete snapshot is
// served from cache; a failed load is never cached so the next request
// retries.
func (s *Server) session(ctx context.Context) *view.Session {
	if snap, ok := s.snapshots.Get(snapshotKey); ok {
		return view.NewSessionFrom(snap, s.viewOpts)
	}

	sess := view.NewSession(s.viewOpts)
	if err := s.loader.Load(ctx, sess); err != nil {
		s.structured.LogError(ctx, "Ledger load failed", err, applog.ComponentView, applog.OpLoad, nil)
		return sess
	}
	if s.cacheTTL > 0 {
		s.snapshots.Set(snapshotKey, sess.Snapshot())
	}
	return sess
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := s.ledger.Ping(ctx); err != nil {
		s.logger.WarnContext(r.Context(), "Readiness check failed", applog.FieldError, err.Error())
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("not ready"))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
