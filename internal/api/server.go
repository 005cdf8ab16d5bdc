// Package api exposes ranking and profile reads over HTTP as JSON.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spigell/roomie-matcher/internal/logger"
	"github.com/spigell/roomie-matcher/internal/matching"
	"github.com/spigell/roomie-matcher/internal/metrics"
	"github.com/spigell/roomie-matcher/internal/profile"
)

const (
	requestIDHeader = "X-Request-ID"
	maxBodyBytes    = 1 << 20
)

// Config carries the request defaults of the server.
type Config struct {
	MaxResults int
	MinScore   float64
	// AIEnabled controls whether use_ai requests reach the assessor and is
	// also the default when a request does not say.
	AIEnabled bool
}

type Server struct {
	store  profile.Store
	ranker *matching.Ranker
	cfg    Config
	logger *zap.Logger
	router chi.Router
}

func NewServer(store profile.Store, ranker *matching.Ranker, cfg Config, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = matching.DefaultMaxResults
	}

	s := &Server{
		store:  store,
		ranker: ranker,
		cfg:    cfg,
		logger: log,
	}

	r := chi.NewRouter()
	r.Use(s.instrument)
	r.Use(middleware.Recoverer)

	r.Route("/api", func(api chi.Router) {
		api.Post("/matches", s.handleMatches)
		api.Route("/profiles/{id}", func(p chi.Router) {
			p.Get("/", s.handleProfile)
			p.Get("/matches", s.handleProfileMatches)
		})
	})
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	s.router = r
	return s
}

// Handler returns the routes wrapped with request id and metrics middleware.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves on addr until ctx is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	s.logger.Info("http server shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

type matchesRequest struct {
	CurrentUserID string           `json:"current_user_id"`
	CurrentUser   *profile.Profile `json:"current_user"`
	MaxResults    *int             `json:"max_results"`
	MinScore      *float64         `json:"min_score"`
	UseAI         *bool            `json:"use_ai"`
}

type matchesResponse struct {
	RequestID string                  `json:"request_id"`
	Matches   []*matching.MatchResult `json:"matches"`
}

func (s *Server) handleMatches(w http.ResponseWriter, r *http.Request) {
	var req matchesRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	current := req.CurrentUser
	if current == nil {
		if req.CurrentUserID == "" {
			writeError(w, http.StatusBadRequest, "current_user_id or current_user is required")
			return
		}
		p, err := s.store.Get(r.Context(), req.CurrentUserID)
		if err != nil {
			s.writeStoreError(w, r, err)
			return
		}
		current = p
	}

	s.rank(w, r, current, req.MaxResults, req.MinScore, req.UseAI)
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	p, err := s.store.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleProfileMatches(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	var (
		maxResults *int
		minScore   *float64
		useAI      *bool
	)
	if v := query.Get("max_results"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "max_results must be an integer")
			return
		}
		maxResults = &n
	}
	if v := query.Get("min_score"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "min_score must be a number")
			return
		}
		minScore = &f
	}
	if v := query.Get("use_ai"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "use_ai must be a boolean")
			return
		}
		useAI = &b
	}

	current, err := s.store.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}

	s.rank(w, r, current, maxResults, minScore, useAI)
}

func (s *Server) rank(w http.ResponseWriter, r *http.Request, current *profile.Profile, maxResults *int, minScore *float64, useAI *bool) {
	candidates, err := s.store.List(r.Context())
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}

	criteria := matching.Criteria{
		CurrentUser: current,
		Candidates:  candidates,
		MaxResults:  s.cfg.MaxResults,
		MinScore:    s.cfg.MinScore,
		UseAI:       s.cfg.AIEnabled,
	}
	if maxResults != nil {
		criteria.MaxResults = *maxResults
	}
	if minScore != nil {
		criteria.MinScore = *minScore
	}
	if useAI != nil {
		criteria.UseAI = *useAI && s.cfg.AIEnabled
	}

	matches, err := s.ranker.Rank(r.Context(), criteria)
	if err != nil {
		if errors.Is(err, matching.ErrNoCurrentUser) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.requestLogger(r).Error("ranking failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "ranking failed")
		return
	}

	writeJSON(w, http.StatusOK, matchesResponse{
		RequestID: requestID(r.Context()),
		Matches:   matches,
	})
}

func (s *Server) writeStoreError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, profile.ErrNotFound) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	s.requestLogger(r).Error("profile store failed", zap.Error(err))
	writeError(w, http.StatusInternalServerError, "profile store failed")
}

func (s *Server) requestLogger(r *http.Request) *zap.Logger {
	return s.logger.With(zap.String(logger.FieldRequestID, requestID(r.Context())))
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		_ = json.NewEncoder(w).Encode(payload)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

type ctxKey struct{}

func requestID(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// instrument assigns every request an id, echoes it in X-Request-ID and
// counts the response by route and status.
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)

		started := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		r = r.WithContext(context.WithValue(r.Context(), ctxKey{}, id))

		next.ServeHTTP(rec, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		metrics.HTTPRequests.WithLabelValues(route, strconv.Itoa(rec.status)).Inc()

		s.logger.Debug("http request",
			zap.String(logger.FieldRequestID, id),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("took", time.Since(started)),
		)
	})
}
