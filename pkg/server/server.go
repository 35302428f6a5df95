// Package server exposes the dialogue loop over HTTP.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-go-golems/hello-agent/pkg/conversation"
	"github.com/go-go-golems/hello-agent/pkg/events"
	"github.com/go-go-golems/hello-agent/pkg/inference/engine"
	"github.com/go-go-golems/hello-agent/pkg/inference/toolloop"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

const maxBodyBytes = 1 << 20

// Runner is the part of toolloop.Loop the server needs.
type Runner interface {
	Run(ctx context.Context, history conversation.Conversation, userText string) (*toolloop.Result, error)
}

var _ Runner = (*toolloop.Loop)(nil)

type Server struct {
	runner         Runner
	limiter        *rate.Limiter
	requestTimeout time.Duration
	sinks          []events.EventSink
}

type Option func(*Server)

// WithRateLimit limits /chat to r requests per second with the given burst. r <= 0 disables
// limiting.
func WithRateLimit(r float64, burst int) Option {
	return func(s *Server) {
		if r <= 0 {
			s.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(r), burst)
	}
}

func WithRequestTimeout(d time.Duration) Option {
	return func(s *Server) { s.requestTimeout = d }
}

// WithEventSinks attaches sinks to every run started by the server.
func WithEventSinks(sinks ...events.EventSink) Option {
	return func(s *Server) { s.sinks = append(s.sinks, sinks...) }
}

func New(runner Runner, opts ...Option) *Server {
	s := &Server{runner: runner}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Handler returns the routes of the API wrapped in request logging.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("POST /chat", s.rateLimit(http.HandlerFunc(s.handleChat)))
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /openapi.json", handleOpenAPI)
	mux.HandleFunc("GET /scalar", handleScalar)
	return logRequests(mux)
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		log.Info().Str("addr", addr).Msg("Starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "http server failed")
		}
		return nil
	})
	eg.Go(func() error {
		<-ctx.Done()
		log.Info().Msg("Shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return eg.Wait()
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body: "+err.Error())
		return
	}
	if req.Message == nil {
		writeError(w, http.StatusBadRequest, "missing field: message")
		return
	}
	if req.ThreadID == "" {
		req.ThreadID = uuid.NewString()
	}

	ctx := r.Context()
	if s.requestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.requestTimeout)
		defer cancel()
	}
	runID := runIDFromContext(ctx)
	ctx = events.WithMetadata(ctx, events.EventMetadata{RunID: runID, ThreadID: req.ThreadID})
	ctx = events.WithEventSinks(ctx, s.sinks...)

	res, err := s.runner.Run(ctx, nil, *req.Message)
	if err != nil {
		status := statusForError(ctx, err)
		log.Warn().Err(err).
			Str("run_id", runID).
			Str("thread_id", req.ThreadID).
			Int("status", status).
			Msg("chat run failed")
		writeError(w, status, err.Error())
		return
	}

	log.Debug().
		Str("run_id", runID).
		Str("thread_id", req.ThreadID).
		Int("iterations", res.Iterations).
		Int("messages", res.History.Len()).
		Msg("chat run finished")
	writeJSON(w, http.StatusOK, ChatResponse{Response: res.FinalText})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// statusForError maps the error taxonomy of a run to an HTTP status. The iteration cap and
// surfaced tool failures fall through to 500.
func statusForError(ctx context.Context, err error) int {
	var modelErr *engine.ModelInvocationError
	switch {
	case ctx.Err() != nil:
		return http.StatusServiceUnavailable
	case errors.As(err, &modelErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Debug().Err(err).Msg("failed to write response")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}
