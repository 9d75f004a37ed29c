package server

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/TobiSchelling/crisisboard/internal/logging"
	"github.com/TobiSchelling/crisisboard/internal/metrics"
	"github.com/TobiSchelling/crisisboard/internal/pipeline"
	"github.com/TobiSchelling/crisisboard/internal/report"
)

//go:embed templates/*.html
var templateFS embed.FS

var md = goldmark.New(goldmark.WithExtensions(extension.Table))

// BlockListStore persists block list edits. Optional.
type BlockListStore interface {
	SaveBlockList(words []string) error
}

// Options configures a Server.
type Options struct {
	Session        *pipeline.Session
	Metrics        *metrics.Collector
	BlockList      BlockListStore
	AllowedOrigins []string
}

// Server is the HTTP server for the dashboard API and overview page.
type Server struct {
	session   *pipeline.Session
	metrics   *metrics.Collector
	blockList BlockListStore
	origins   []string
	pages     map[string]*template.Template
	router    chi.Router
	log       zerolog.Logger
}

// New creates a new Server.
func New(opts Options) (*Server, error) {
	if opts.Session == nil {
		return nil, errors.New("server needs a session")
	}

	funcMap := template.FuncMap{
		"markdown": renderMarkdown,
	}

	base, err := template.New("base.html").Funcs(funcMap).ParseFS(templateFS, "templates/base.html")
	if err != nil {
		return nil, fmt.Errorf("parsing base template: %w", err)
	}

	// Each page gets a clone of the base so its blocks stay its own.
	pageNames := []string{"index.html"}
	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		clone, err := base.Clone()
		if err != nil {
			return nil, fmt.Errorf("cloning base for %s: %w", name, err)
		}
		_, err = clone.ParseFS(templateFS, "templates/"+name)
		if err != nil {
			return nil, fmt.Errorf("parsing template %s: %w", name, err)
		}
		pages[name] = clone
	}

	s := &Server{
		session:   opts.Session,
		metrics:   opts.Metrics,
		blockList: opts.BlockList,
		origins:   opts.AllowedOrigins,
		pages:     pages,
		log:       logging.Component("server"),
	}
	s.routes()
	return s, nil
}

// Handler returns the HTTP handler for the server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(chimiddleware.Recoverer)
	if s.metrics != nil {
		r.Use(s.metrics.Middleware)
	}
	if len(s.origins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: s.origins,
			AllowedMethods: []string{"GET", "POST", "PUT", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
			ExposedHeaders: []string{"X-Request-ID"},
			MaxAge:         300,
		}))
	}

	r.Get("/", s.handleIndex)
	r.Get("/health", s.handleHealth)
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/initial", s.handleInitial)
		r.Get("/locations", s.handleLocations)
		r.Get("/state", s.handleState)

		r.Get("/filtered", s.handleFiltered)
		r.Get("/heatmap", s.handleHeatmap)
		r.Get("/wordcloud", s.handleWordCloud)
		r.Get("/special-words", s.handleSpecialWords)
		r.Get("/topics", s.handleTopics)
		r.Get("/wordgraph", s.handleWordGraph)

		r.Route("/filters", func(r chi.Router) {
			r.Put("/time", s.handleSetTimeRange)
			r.Put("/keyword", s.handleSetString(s.session.SetKeyword))
			r.Put("/location", s.handleSetString(s.session.SetLocation))
			r.Put("/word", s.handleSetString(s.session.SelectWord))
			r.Put("/topic", s.handleSetString(s.session.SelectTopic))
			r.Post("/reset", s.handleReset)
		})

		r.Get("/blocklist", s.handleGetBlockList)
		r.Put("/blocklist", s.handleSetBlockList)
	})

	s.router = r
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	snap := s.session.Snapshot()
	ds := s.session.Dataset()

	span := ""
	if start, end, ok := ds.Span(); ok {
		span = fmt.Sprintf("%s to %s", start.Format(time.DateTime), end.Format(time.DateTime))
	}

	s.render(w, "index.html", map[string]any{
		"Revision":  snap.Revision,
		"Messages":  humanize.Comma(int64(len(ds.Messages))),
		"Locations": len(ds.Locations()),
		"Span":      span,
		"Published": humanize.Time(snap.PublishedAt),
		"Report":    report.Render(snap, report.Options{}),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"revision": s.session.Snapshot().Revision,
		"phase":    s.session.Phase().String(),
	})
}

func (s *Server) render(w http.ResponseWriter, name string, data any) {
	tmpl, ok := s.pages[name]
	if !ok {
		s.log.Error().Str("template", name).Msg("template not found")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "base.html", data); err != nil {
		s.log.Error().Err(err).Str("template", name).Msg("rendering template")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	buf.WriteTo(w)
}

func renderMarkdown(text string) template.HTML {
	var buf bytes.Buffer
	if err := md.Convert([]byte(text), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(text))
	}
	return template.HTML(buf.String()) //nolint: gosec
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.log.Debug().
			Str("request_id", chimiddleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("elapsed", time.Since(started)).
			Msg("request")
	})
}

// Serve runs the server on host:port until ctx is cancelled, then shuts
// down gracefully.
func Serve(ctx context.Context, srv *Server, host string, port int) error {
	addr := net.JoinHostPort(host, strconv.Itoa(port))
	httpSrv := &http.Server{
		Addr:              addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		srv.log.Info().Str("addr", "http://"+addr).Msg("server listening")
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	srv.log.Info().Msg("shutting down")
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}
	return nil
}
