package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func (s *Server) handleQuizStart(w http.ResponseWriter, r *http.Request) {
	view, err := s.quizzes.Start(r.Context())
	if err != nil {
		s.fail(w, "quiz start failed", err)
		return
	}
	s.logger.Debug("quiz started", zap.String("session", view.ID))
	s.respondJSON(w, http.StatusCreated, view)
}

func (s *Server) handleQuizGet(w http.ResponseWriter, r *http.Request) {
	view, err := s.quizzes.Get(chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, "quiz get failed", err)
		return
	}
	s.respondJSON(w, http.StatusOK, view)
}

func (s *Server) handleQuizCancel(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.quizzes.Cancel(id); err != nil {
		s.fail(w, "quiz cancel failed", err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"id": id, "status": "cancelled"})
}

type quizArticleRequest struct {
	Index int `json:"index"`
}

func (s *Server) handleQuizArticle(w http.ResponseWriter, r *http.Request) {
	var req quizArticleRequest
	if !s.decode(w, r, &req) {
		return
	}
	view, err := s.quizzes.SelectArticle(chi.URLParam(r, "id"), req.Index)
	if err != nil {
		s.fail(w, "quiz article selection failed", err)
		return
	}
	s.respondJSON(w, http.StatusOK, view)
}

type quizCountRequest struct {
	Count int `json:"count"`
}

func (s *Server) handleQuizCount(w http.ResponseWriter, r *http.Request) {
	var req quizCountRequest
	if !s.decode(w, r, &req) {
		return
	}
	view, err := s.quizzes.SelectCount(r.Context(), chi.URLParam(r, "id"), req.Count)
	if err != nil {
		s.fail(w, "quiz generation failed", err)
		return
	}
	s.respondJSON(w, http.StatusOK, view)
}

type quizAnswerRequest struct {
	Choice int `json:"choice"`
}

func (s *Server) handleQuizAnswer(w http.ResponseWriter, r *http.Request) {
	var req quizAnswerRequest
	if !s.decode(w, r, &req) {
		return
	}
	feedback, err := s.quizzes.Answer(chi.URLParam(r, "id"), req.Choice)
	if err != nil {
		s.fail(w, "quiz answer failed", err)
		return
	}
	s.respondJSON(w, http.StatusOK, feedback)
}
