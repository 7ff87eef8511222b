package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/aretw0/webflow"
	"github.com/aretw0/webflow/internal/logging"
	"github.com/aretw0/webflow/pkg/domain"
	"github.com/aretw0/webflow/pkg/engine"
	"github.com/aretw0/webflow/pkg/external"
	"github.com/aretw0/webflow/pkg/observability"
	"github.com/aretw0/webflow/pkg/repository"
	"github.com/aretw0/webflow/pkg/scope"
)

// DefaultBasePath is where flows are mounted.
const DefaultBasePath = "/flows"

// ExecutionParameter carries the flow execution key of a resume request.
const ExecutionParameter = "execution"

// Executor defines what the handler needs from the flow executor.
type Executor interface {
	Launch(ctx context.Context, flowID string, input map[string]any, ext external.Context) (*webflow.Result, error)
	Resume(ctx context.Context, key string, ext external.Context) (*webflow.Result, error)
}

var _ Executor = (*webflow.Executor)(nil)

// Server maps flow URLs onto an Executor.
type Server struct {
	executor    Executor
	basePath    string
	logger      *slog.Logger
	metrics     *observability.Metrics
	sessions    *SessionManager
	application *scope.SharedMap
}

// Option configures the Server.
type Option func(*Server)

// WithBasePath mounts flows under base instead of DefaultBasePath.
func WithBasePath(base string) Option {
	return func(s *Server) { s.basePath = base }
}

// WithLogger sets the logger request failures are reported to.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// WithMetrics records request durations.
func WithMetrics(m *observability.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// WithSessionManager shares browser sessions with other handlers.
func WithSessionManager(sm *SessionManager) Option {
	return func(s *Server) { s.sessions = sm }
}

// NewServer creates a server for executor.
func NewServer(executor Executor, opts ...Option) *Server {
	s := &Server{
		executor:    executor,
		basePath:    DefaultBasePath,
		logger:      logging.NewNop(),
		sessions:    NewSessionManager(),
		application: scope.NewSharedMap(nil),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewHandler creates the HTTP handler for executor:
//
//	GET|POST <base>/{flowID}                      launches a new execution
//	GET|POST <base>/{flowID}?execution=<key>      resumes a paused execution
//	GET /health
func NewHandler(executor Executor, opts ...Option) http.Handler {
	return NewServer(executor, opts...).Routes()
}

// Routes builds the chi router of the server.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.GetHealth)
	r.Route(s.basePath, func(r chi.Router) {
		r.Get("/{flowID}", s.HandleFlow)
		r.Post("/{flowID}", s.HandleFlow)
	})
	return r
}

// GetHealth handles the GET /health request.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "version": webflow.Version})
}

// HandleFlow launches or resumes a flow execution and turns the outcome of the request
// into an HTTP response. A view that rendered has already written the body.
func (s *Server) HandleFlow(w http.ResponseWriter, r *http.Request) {
	flowID := chi.URLParam(r, "flowID")
	ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
	ext := external.NewHTTPContext(ww, r,
		external.WithBasePath(s.basePath),
		external.WithSessionMap(s.sessions.Session(ww, r)),
		external.WithApplicationMap(s.application),
	)

	start := time.Now()
	key := ext.RequestParameters().Get(ExecutionParameter)
	kind := "launch"
	var (
		res *webflow.Result
		err error
	)
	if key == "" {
		res, err = s.executor.Launch(r.Context(), flowID, ext.RequestParameters().AsMap(), ext)
	} else {
		kind = "resume"
		res, err = s.executor.Resume(r.Context(), key, ext)
	}
	if err != nil {
		s.observe(flowID, kind, "error", start)
		s.fail(ww, r, err, flowID, key)
		return
	}
	s.observe(flowID, kind, outcome(res), start)

	if s.redirect(ww, r, ext, res) {
		return
	}
	if ww.BytesWritten() > 0 || ww.Status() != 0 {
		return
	}
	if res.Outcome != nil {
		writeJSON(ww, http.StatusOK, map[string]any{"flow": res.FlowID, "outcome": res.Outcome.ID, "output": res.Outcome.Output})
		return
	}
	// Paused without rendering, e.g. a view that wrote nothing.
	ww.WriteHeader(http.StatusNoContent)
}

// redirect sends the redirect recorded by the request, if any. Ajax requests get the
// target in a header instead, since the browser would follow a 3xx transparently.
func (s *Server) redirect(w http.ResponseWriter, r *http.Request, ext *external.HTTPContext, res *webflow.Result) bool {
	rd := res.Redirect
	var (
		location string
		status   int
	)
	switch rd.Kind {
	case external.FlowExecutionRedirect:
		location, status = external.ExecutionURL(s.basePath, res.FlowID, res.Key), http.StatusSeeOther
	case external.FlowDefinitionRedirect:
		location, status = external.DefinitionURL(s.basePath, rd.FlowID, rd.Input), http.StatusSeeOther
	case external.ExternalRedirect:
		location, status = rd.Location, http.StatusFound
	default:
		return false
	}
	if ext.IsAjaxRequest() {
		w.Header().Set("Flow-Redirect-URL", location)
		if rd.Popup {
			w.Header().Set("Flow-Modal-View", "true")
		}
		w.WriteHeader(http.StatusOK)
		return true
	}
	http.Redirect(w, r, location, status)
	return true
}

// fail logs err and answers with its status, unless a partial render already committed
// the response.
func (s *Server) fail(w middleware.WrapResponseWriter, r *http.Request, err error, flowID, key string) {
	status := http.StatusInternalServerError
	var noMatch *engine.NoMatchingTransitionError
	switch {
	case errors.Is(err, domain.ErrFlowNotFound), repository.IsNotFound(err):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrBadKey), errors.As(err, &noMatch):
		status = http.StatusBadRequest
	}

	attrs := []any{"flow_id", flowID, "execution", key, "request_id", middleware.GetReqID(r.Context()), "error", err}
	if status >= http.StatusInternalServerError {
		s.logger.Error("flow request failed", attrs...)
	} else {
		s.logger.Warn("flow request rejected", attrs...)
	}
	if w.BytesWritten() > 0 || w.Status() != 0 {
		return
	}
	http.Error(w, http.StatusText(status), status)
}

func (s *Server) observe(flowID, kind, result string, start time.Time) {
	if s.metrics != nil {
		s.metrics.ObserveRequest(flowID, kind, result, time.Since(start))
	}
}

func outcome(res *webflow.Result) string {
	if res.Paused {
		return "paused"
	}
	return "ended"
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("response encode failed", "error", err)
	}
}
