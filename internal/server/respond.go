package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/hyperjump/shiori/internal/models"
	"github.com/hyperjump/shiori/internal/quiz"
	"go.uber.org/zap"
)

// statusFor maps a pipeline error to an HTTP status.
func statusFor(err error) int {
	var (
		cfgErr   *models.ConfigError
		extErr   *models.ExtractionError
		embErr   *models.EmbeddingError
		genErr   *models.GenerationError
		storeErr *models.StoreError
	)
	switch {
	case errors.Is(err, models.ErrMissingURL),
		errors.Is(err, models.ErrEmptyArticle),
		errors.Is(err, quiz.ErrInvalidChoice),
		errors.As(err, &cfgErr):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrArticleNotFound),
		errors.Is(err, quiz.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, quiz.ErrInvalidTransition),
		errors.Is(err, quiz.ErrNoArticles):
		return http.StatusConflict
	case errors.As(err, &extErr):
		return http.StatusUnprocessableEntity
	case errors.Is(err, quiz.ErrQuizGeneration),
		errors.As(err, &embErr),
		errors.As(err, &genErr):
		return http.StatusBadGateway
	case errors.As(err, &storeErr):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// fail logs err and writes it with the status statusFor picks.
func (s *Server) fail(w http.ResponseWriter, msg string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error(msg, zap.Error(err), zap.Int("status", status))
	} else {
		s.logger.Debug(msg, zap.Error(err), zap.Int("status", status))
	}
	s.respondError(w, status, err.Error())
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// decodeOptional decodes a body that may be absent.
func (s *Server) decodeOptional(r *http.Request, v interface{}) bool {
	return r.Body != nil && json.NewDecoder(r.Body).Decode(v) == nil
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
