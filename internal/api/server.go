// Package api exposes the prediction pipeline over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/footy-edge/internal/models"
	"github.com/yourusername/footy-edge/internal/pipeline"
)

// Server serves prediction and resolution requests
type Server struct {
	engine   *pipeline.Engine
	validate *validator.Validate
	logger   *logrus.Logger
	server   *http.Server
	port     string
}

// Config holds the API server configuration
type Config struct {
	Port   string
	Logger *logrus.Logger
}

// NewServer creates a new API server over the pipeline engine
func NewServer(engine *pipeline.Engine, cfg Config) *Server {
	port := cfg.Port
	if port == "" {
		port = "8090"
	}
	return &Server{
		engine:   engine,
		validate: validator.New(),
		logger:   cfg.Logger,
		port:     port,
	}
}

// Start starts the API server in the background
func (s *Server) Start(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/predict", s.handlePredict)
	mux.HandleFunc("/v1/resolve", s.handleResolve)

	s.server = &http.Server{
		Addr:         ":" + s.port,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		s.logger.WithField("port", s.port).Info("API server starting")
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.WithError(err).Error("API server error")
		}
	}()

	go func() {
		<-ctx.Done()
		s.Shutdown()
	}()

	return nil
}

// Shutdown gracefully stops the API server
func (s *Server) Shutdown() error {
	if s.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req models.PredictionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.RequestedAt.IsZero() {
		req.RequestedAt = time.Now()
	}
	if err := s.validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := s.engine.Predict(r.Context(), &req)
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, models.ErrNotFound):
			status = http.StatusNotFound
		case errors.Is(err, models.ErrInsufficientData):
			status = http.StatusUnprocessableEntity
		case errors.Is(err, models.ErrInvalidOdds):
			status = http.StatusBadRequest
		}
		s.logger.WithError(err).Warn("Prediction request failed")
		writeError(w, status, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, result)
}

type resolveRequest struct {
	FixtureID  uuid.UUID `json:"fixture_id" validate:"required"`
	HomeGoals  int       `json:"home_goals" validate:"gte=0"`
	AwayGoals  int       `json:"away_goals" validate:"gte=0"`
	ResolvedAt time.Time `json:"resolved_at"`
}

func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req resolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.ResolvedAt.IsZero() {
		req.ResolvedAt = time.Now()
	}

	outcome := models.OutcomeDraw
	if req.HomeGoals > req.AwayGoals {
		outcome = models.OutcomeHome
	} else if req.AwayGoals > req.HomeGoals {
		outcome = models.OutcomeAway
	}

	result := &models.MatchResult{
		FixtureID:  req.FixtureID,
		Outcome:    outcome,
		HomeGoals:  req.HomeGoals,
		AwayGoals:  req.AwayGoals,
		ResolvedAt: req.ResolvedAt,
	}

	if err := s.engine.Resolve(r.Context(), result); err != nil {
		s.logger.WithError(err).Error("Resolve request failed")
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "resolved"})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
