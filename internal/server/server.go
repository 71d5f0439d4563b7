// Package server is the browser front end: a JSON API over the tracker and
// the rendered graph images.
package server

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/charmbracelet/log"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/ldi/taskgraph/embed/web"
	"github.com/ldi/taskgraph/internal/graph"
	"github.com/ldi/taskgraph/internal/logging"
	"github.com/ldi/taskgraph/internal/tasks"
	"github.com/ldi/taskgraph/internal/tracker"
)

// maxBodySize caps uploaded CSV and JSON payloads.
const maxBodySize = 10 << 20

type Server struct {
	tracker *tracker.Tracker
	images  *lru.Cache[string, []byte]
	logger  *log.Logger
	server  *http.Server
}

// NewServer returns a server over t keeping up to cacheSize laid out images.
func NewServer(t *tracker.Tracker, cacheSize int, logger *log.Logger) (*Server, error) {
	images, err := lru.New[string, []byte](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create image cache: %w", err)
	}
	return &Server{
		tracker: t,
		images:  images,
		logger:  logging.OrDiscard(logger),
	}, nil
}

// Handler returns the routes of the server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// API endpoints
	mux.HandleFunc("GET /api/tasks", s.handleListTasks)
	mux.HandleFunc("PUT /api/tasks", s.handleReplaceTasks)
	mux.HandleFunc("POST /api/import", s.handleImport)
	mux.HandleFunc("GET /api/graph.dot", s.handleDOT)

	// Images
	mux.HandleFunc("GET /graph.png", s.handleImage("png", "image/png"))
	mux.HandleFunc("GET /graph.svg", s.handleImage("svg", "image/svg+xml"))

	// Static files
	mux.Handle("GET /", http.FileServer(http.FS(web.Assets)))

	return mux
}

func (s *Server) Start(addr string) error {
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.Handler(),
	}
	s.logger.Info("serving", "addr", addr)
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	list, err := s.tracker.Tasks(r.Context())
	s.respond(w, list, err)
}

// handleReplaceTasks accepts the whole edited collection as JSON, replaces
// the stored one and redraws the image files.
func (s *Server) handleReplaceTasks(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err != nil {
		s.fail(w, http.StatusRequestEntityTooLarge, err)
		return
	}
	list, err := tasks.DecodeJSON(body)
	if err != nil {
		s.fail(w, http.StatusBadRequest, err)
		return
	}
	rev, err := s.tracker.Replace(r.Context(), "web", list)
	if err != nil {
		s.fail(w, statusFor(err), err)
		return
	}
	s.afterChange(w, r, rev)
}

// handleImport accepts a CSV document (header row included) as the body.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	body := http.MaxBytesReader(w, r.Body, maxBodySize)
	rev, err := s.tracker.ImportCSVReader(r.Context(), "upload", body)
	if err != nil {
		s.fail(w, statusFor(err), err)
		return
	}
	s.afterChange(w, r, rev)
}

// afterChange re-renders the configured files. The collection is already
// stored, so a render failure is reported in the body with the status of
// the failure.
func (s *Server) afterChange(w http.ResponseWriter, r *http.Request, rev int64) {
	res, err := s.tracker.Render(r.Context())
	if err != nil {
		s.logger.Warn("re-render after change failed", "revision", rev, "err", err)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(statusFor(err))
		json.NewEncoder(w).Encode(map[string]any{
			"revision": rev,
			"error":    err.Error(),
		})
		return
	}
	s.respond(w, map[string]any{
		"revision": rev,
		"nodes":    res.Stats.Nodes,
		"edges":    res.Stats.Edges,
		"cycles":   res.Cycles,
		"dangling": res.Dangling,
	}, nil)
}

func (s *Server) handleDOT(w http.ResponseWriter, r *http.Request) {
	dot, err := s.tracker.DOT(r.Context())
	if err != nil {
		s.fail(w, statusFor(err), err)
		return
	}
	w.Header().Set("Content-Type", "text/vnd.graphviz; charset=utf-8")
	io.WriteString(w, dot)
}

// handleImage lays out the current collection. Images are cached by the
// digest of their DOT source, so an unchanged collection skips the backend.
func (s *Server) handleImage(format, contentType string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		dot, err := s.tracker.DOT(r.Context())
		if err != nil {
			s.fail(w, statusFor(err), err)
			return
		}

		key := cacheKey(format, dot)
		data, ok := s.images.Get(key)
		if !ok {
			data, err = s.tracker.Layout(r.Context(), dot, format)
			if err != nil {
				s.fail(w, statusFor(err), err)
				return
			}
			s.images.Add(key, data)
		}

		w.Header().Set("Content-Type", contentType)
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("ETag", `"`+key+`"`)
		w.Write(data)
	}
}

func cacheKey(format, dot string) string {
	sum := sha256.Sum256([]byte(dot))
	return format + "-" + hex.EncodeToString(sum[:12])
}

// statusFor maps core errors to HTTP statuses.
func statusFor(err error) int {
	var (
		mre *tasks.MalformedRecordError
		ve  *tasks.ValidationError
		gce *graph.GraphConstructionError
		rbe *graph.RenderBackendUnavailableError
		mbe *http.MaxBytesError
	)
	switch {
	case errors.As(err, &mre), errors.As(err, &ve):
		return http.StatusBadRequest
	case errors.As(err, &gce):
		return http.StatusUnprocessableEntity
	case errors.As(err, &rbe):
		return http.StatusServiceUnavailable
	case errors.As(err, &mbe):
		return http.StatusRequestEntityTooLarge
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) fail(w http.ResponseWriter, status int, err error) {
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "status", status, "err", err)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}

func (s *Server) respond(w http.ResponseWriter, data any, err error) {
	if err != nil {
		s.fail(w, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}
