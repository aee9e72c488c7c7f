// Package httpapi exposes the pipelines over HTTP: a landing page plus the
// /load, /books and /ask JSON endpoints.
package httpapi

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"io/fs"
	"net/http"
	"slices"
	"time"

	"bookrag/internal/domain"
	"bookrag/internal/logging"
)

//go:embed static
var staticFiles embed.FS

// Loader runs one ingestion pass.
type Loader interface {
	Ingest(ctx context.Context) (domain.IngestSummary, error)
}

// SourceLister lists stored source identifiers.
type SourceLister interface {
	Sources(ctx context.Context) (map[string]struct{}, error)
}

// QuestionAnswerer answers a question from stored passages.
type QuestionAnswerer interface {
	Answer(ctx context.Context, question string) (domain.Answer, error)
}

// Server routes HTTP requests to the pipelines.
type Server struct {
	loader   Loader
	sources  SourceLister
	answerer QuestionAnswerer
	mux      *http.ServeMux
}

type askRequest struct {
	Question string `json:"question"`
}

type askResponse struct {
	Answer string `json:"answer"`
}

type booksResponse struct {
	Books []string `json:"books"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// New creates a Server.
func New(loader Loader, sources SourceLister, answerer QuestionAnswerer) *Server {
	s := &Server{loader: loader, sources: sources, answerer: answerer, mux: http.NewServeMux()}

	assets, _ := fs.Sub(staticFiles, "static")
	s.mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServerFS(assets)))
	s.mux.HandleFunc("GET /{$}", s.handleIndex)
	s.mux.HandleFunc("POST /load", s.handleLoad)
	s.mux.HandleFunc("GET /books", s.handleBooks)
	s.mux.HandleFunc("POST /ask", s.handleAsk)
	s.mux.HandleFunc("GET /healthz", handleHealth)
	return s
}

// ServeHTTP implements http.Handler with request logging.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
	s.mux.ServeHTTP(rec, r)
	logging.Debug("%s %s %d %s", r.Method, r.URL.Path, rec.status, time.Since(start).Round(time.Millisecond))
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down,
// waiting up to shutdownTimeout for in-flight requests.
func (s *Server) ListenAndServe(ctx context.Context, addr string, readTimeout, shutdownTimeout time.Duration) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: readTimeout,
	}
	errCh := make(chan error, 1)
	go func() {
		logging.Info("listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	logging.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	page, err := staticFiles.ReadFile("static/index.html")
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "landing page missing"})
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(page)
}

func (s *Server) handleLoad(w http.ResponseWriter, r *http.Request) {
	summary, err := s.loader.Ingest(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleBooks(w http.ResponseWriter, r *http.Request) {
	sources, err := s.sources.Sources(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	books := make([]string, 0, len(sources))
	for name := range sources {
		books = append(books, name)
	}
	slices.Sort(books)
	writeJSON(w, http.StatusOK, booksResponse{Books: books})
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return
	}
	ans, err := s.answerer.Answer(r.Context(), req.Question)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, askResponse{Answer: ans.Text})
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// statusFor maps pipeline errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrGeneration):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= 500 {
		logging.Error("%v", err)
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
