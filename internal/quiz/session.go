// Package quiz runs interactive quiz sessions over stored articles.
//
// Each session is a small state machine:
//
//	selecting_article -> selecting_count -> (generating) -> awaiting_answer -> done
//
// Events that do not fit the current state fail with ErrInvalidTransition.
package quiz

import (
	"errors"
	"time"

	"github.com/hyperjump/shiori/internal/models"
)

// State is the position of a session in the quiz flow.
type State string

const (
	StateSelectingArticle State = "selecting_article"
	StateSelectingCount   State = "selecting_count"
	StateGenerating       State = "generating"
	StateAwaitingAnswer   State = "awaiting_answer"
	StateDone             State = "done"
)

var (
	ErrNoArticles        = errors.New("knowledge base is empty")
	ErrSessionNotFound   = errors.New("quiz session not found")
	ErrInvalidTransition = errors.New("event not allowed in current quiz state")
	ErrInvalidChoice     = errors.New("choice out of range")
	ErrQuizGeneration    = errors.New("quiz could not be generated")
)

type session struct {
	id        string
	state     State
	articles  []models.ArticleSummary
	article   *models.ArticleSummary
	count     int
	questions []models.Question
	current   int
	score     int
	updatedAt time.Time
}

// QuestionView is a question as shown to the player, without the answer.
type QuestionView struct {
	Number   int      `json:"number"`
	Total    int      `json:"total"`
	Question string   `json:"question"`
	Options  []string `json:"options"`
}

// SessionView is a snapshot of a session.
type SessionView struct {
	ID            string                  `json:"id"`
	State         State                   `json:"state"`
	Articles      []models.ArticleSummary `json:"articles,omitempty"`
	Article       *models.ArticleSummary  `json:"article,omitempty"`
	AllowedCounts []int                   `json:"allowed_counts,omitempty"`
	Question      *QuestionView           `json:"question,omitempty"`
	Score         int                     `json:"score"`
	Answered      int                     `json:"answered"`
	Total         int                     `json:"total"`
}

// Feedback is the result of answering one question.
type Feedback struct {
	Correct       bool          `json:"correct"`
	CorrectIndex  int           `json:"correct_index"`
	CorrectOption string        `json:"correct_option"`
	Score         int           `json:"score"`
	Answered      int           `json:"answered"`
	Total         int           `json:"total"`
	Done          bool          `json:"done"`
	Next          *QuestionView `json:"next,omitempty"`
}

func (s *session) questionView() *QuestionView {
	if s.state != StateAwaitingAnswer || s.current >= len(s.questions) {
		return nil
	}
	q := s.questions[s.current]
	return &QuestionView{
		Number:   s.current + 1,
		Total:    len(s.questions),
		Question: q.Question,
		Options:  append([]string(nil), q.Options...),
	}
}

func (s *session) view(counts []int) *SessionView {
	v := &SessionView{
		ID:       s.id,
		State:    s.state,
		Question: s.questionView(),
		Score:    s.score,
		Answered: s.current,
		Total:    len(s.questions),
	}
	if s.article != nil {
		a := *s.article
		v.Article = &a
	}
	switch s.state {
	case StateSelectingArticle:
		v.Articles = append([]models.ArticleSummary(nil), s.articles...)
	case StateSelectingCount:
		v.AllowedCounts = append([]int(nil), counts...)
	}
	return v
}
