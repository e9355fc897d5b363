package quiz

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hyperjump/shiori/internal/models"
	"go.uber.org/zap"
)

// ArticleSource lists articles and rebuilds their text.
type ArticleSource interface {
	ListArticles(ctx context.Context, limit int) ([]models.ArticleSummary, error)
	FullText(ctx context.Context, url string) (*models.Article, error)
}

// QuestionGenerator writes n questions about text. A nil result without an
// error means the model output was unusable.
type QuestionGenerator interface {
	Generate(ctx context.Context, text string, n int) ([]models.Question, error)
}

const defaultTTL = time.Hour

// Manager owns all quiz sessions. It is safe for concurrent use; question
// generation runs without holding the manager lock.
type Manager struct {
	source    ArticleSource
	generator QuestionGenerator
	counts    []int
	ttl       time.Duration
	now       func() time.Time
	logger    *zap.Logger

	mu       sync.Mutex
	sessions map[string]*session
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) ManagerOption {
	return func(m *Manager) { m.logger = l }
}

// WithTTL sets how long an idle session is kept.
func WithTTL(ttl time.Duration) ManagerOption {
	return func(m *Manager) { m.ttl = ttl }
}

// WithClock overrides the clock used for session expiry.
func WithClock(now func() time.Time) ManagerOption {
	return func(m *Manager) { m.now = now }
}

// NewManager creates a session manager. counts lists the allowed question
// counts; empty means 3, 5 or 7.
func NewManager(source ArticleSource, generator QuestionGenerator, counts []int, opts ...ManagerOption) *Manager {
	if len(counts) == 0 {
		counts = []int{3, 5, 7}
	}
	m := &Manager{
		source:    source,
		generator: generator,
		counts:    slices.Clone(counts),
		ttl:       defaultTTL,
		now:       time.Now,
		logger:    zap.NewNop(),
		sessions:  make(map[string]*session),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// AllowedCounts returns the question counts a player may choose.
func (m *Manager) AllowedCounts() []int {
	return slices.Clone(m.counts)
}

// Start opens a session listing the stored articles.
func (m *Manager) Start(ctx context.Context) (*SessionView, error) {
	articles, err := m.source.ListArticles(ctx, 0)
	if err != nil {
		return nil, err
	}
	if len(articles) == 0 {
		return nil, ErrNoArticles
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.pruneLocked()
	s := &session{
		id:        uuid.NewString(),
		state:     StateSelectingArticle,
		articles:  articles,
		updatedAt: m.now(),
	}
	m.sessions[s.id] = s
	m.logger.Debug("Quiz session started", zap.String("session", s.id), zap.Int("articles", len(articles)))
	return s.view(m.counts), nil
}

// Get returns the current view of a session.
func (m *Manager) Get(id string) (*SessionView, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, err := m.getLocked(id)
	if err != nil {
		return nil, err
	}
	return s.view(m.counts), nil
}

// Cancel removes a session in any state.
func (m *Manager) Cancel(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, err := m.getLocked(id); err != nil {
		return err
	}
	delete(m.sessions, id)
	return nil
}

// SelectArticle picks the article at index of the listed articles.
func (m *Manager) SelectArticle(id string, index int) (*SessionView, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, err := m.expectLocked(id, StateSelectingArticle)
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= len(s.articles) {
		return nil, fmt.Errorf("%w: article %d of %d", ErrInvalidChoice, index, len(s.articles))
	}
	a := s.articles[index]
	s.article = &a
	s.state = StateSelectingCount
	s.updatedAt = m.now()
	return s.view(m.counts), nil
}

// SelectCount fixes the number of questions, rebuilds the article text and
// generates the quiz. When generation fails the session ends.
func (m *Manager) SelectCount(ctx context.Context, id string, n int) (*SessionView, error) {
	m.mu.Lock()
	s, err := m.expectLocked(id, StateSelectingCount)
	if err != nil {
		m.mu.Unlock()
		return nil, err
	}
	if !slices.Contains(m.counts, n) {
		m.mu.Unlock()
		return nil, fmt.Errorf("%w: count %d not in %v", ErrInvalidChoice, n, m.counts)
	}
	s.state = StateGenerating
	s.count = n
	url := s.article.URL
	m.mu.Unlock()

	questions, genErr := m.generate(ctx, url, n)

	m.mu.Lock()
	defer m.mu.Unlock()
	if cur, ok := m.sessions[id]; !ok || cur != s {
		return nil, ErrSessionNotFound
	}
	if genErr != nil {
		delete(m.sessions, id)
		m.logger.Warn("Quiz generation failed", zap.String("session", id), zap.String("url", url), zap.Error(genErr))
		return nil, genErr
	}
	s.questions = questions
	s.current = 0
	s.score = 0
	s.state = StateAwaitingAnswer
	s.updatedAt = m.now()
	return s.view(m.counts), nil
}

func (m *Manager) generate(ctx context.Context, url string, n int) ([]models.Question, error) {
	article, err := m.source.FullText(ctx, url)
	if err != nil {
		return nil, err
	}
	questions, err := m.generator.Generate(ctx, article.Text, n)
	if err != nil {
		return nil, err
	}
	if len(questions) == 0 {
		return nil, ErrQuizGeneration
	}
	return questions, nil
}

// Answer scores choice against the current question and moves on. After the
// last question the session is done.
func (m *Manager) Answer(id string, choice int) (*Feedback, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, err := m.expectLocked(id, StateAwaitingAnswer)
	if err != nil {
		return nil, err
	}
	q := s.questions[s.current]
	if choice < 0 || choice >= len(q.Options) {
		return nil, fmt.Errorf("%w: option %d of %d", ErrInvalidChoice, choice, len(q.Options))
	}

	fb := &Feedback{
		Correct:       choice == q.CorrectIndex,
		CorrectIndex:  q.CorrectIndex,
		CorrectOption: q.Options[q.CorrectIndex],
		Total:         len(s.questions),
	}
	if fb.Correct {
		s.score++
	}
	s.current++
	if s.current == len(s.questions) {
		s.state = StateDone
		fb.Done = true
		m.logger.Debug("Quiz finished", zap.String("session", id), zap.Int("score", s.score), zap.Int("total", len(s.questions)))
	}
	fb.Score = s.score
	fb.Answered = s.current
	fb.Next = s.questionView()
	s.updatedAt = m.now()
	return fb, nil
}

func (m *Manager) getLocked(id string) (*session, error) {
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

func (m *Manager) expectLocked(id string, want State) (*session, error) {
	s, err := m.getLocked(id)
	if err != nil {
		return nil, err
	}
	if s.state != want {
		return nil, fmt.Errorf("%w: session is %s, want %s", ErrInvalidTransition, s.state, want)
	}
	return s, nil
}

// pruneLocked drops sessions idle for longer than the TTL.
func (m *Manager) pruneLocked() {
	if m.ttl <= 0 {
		return
	}
	cutoff := m.now().Add(-m.ttl)
	for id, s := range m.sessions {
		if s.state != StateGenerating && s.updatedAt.Before(cutoff) {
			delete(m.sessions, id)
		}
	}
}
