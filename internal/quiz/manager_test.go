package quiz

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hyperjump/shiori/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	articles []models.ArticleSummary
	texts    map[string]string
}

func (f *fakeSource) ListArticles(context.Context, int) ([]models.ArticleSummary, error) {
	return f.articles, nil
}

func (f *fakeSource) FullText(_ context.Context, url string) (*models.Article, error) {
	text, ok := f.texts[url]
	if !ok {
		return nil, models.ErrArticleNotFound
	}
	return &models.Article{URL: url, Text: text}, nil
}

type fakeGenerator struct {
	questions []models.Question
	err       error
	gotText   string
	gotN      int
}

func (f *fakeGenerator) Generate(_ context.Context, text string, n int) ([]models.Question, error) {
	f.gotText, f.gotN = text, n
	return f.questions, f.err
}

func source() *fakeSource {
	return &fakeSource{
		articles: []models.ArticleSummary{
			{URL: "https://a.example/go", Title: "Go"},
			{URL: "https://a.example/pg", Title: "Postgres"},
		},
		texts: map[string]string{
			"https://a.example/go": "go text",
			"https://a.example/pg": "pg text",
		},
	}
}

func questions() []models.Question {
	return []models.Question{
		{Question: "Q1", Options: []string{"a", "b", "c"}, CorrectIndex: 1},
		{Question: "Q2", Options: []string{"x", "y"}, CorrectIndex: 0},
		{Question: "Q3", Options: []string{"m", "n"}, CorrectIndex: 1},
	}
}

func TestManager_fullFlow(t *testing.T) {
	gen := &fakeGenerator{questions: questions()}
	m := NewManager(source(), gen, nil)
	ctx := context.Background()

	v, err := m.Start(ctx)
	require.NoError(t, err)
	assert.Equal(t, StateSelectingArticle, v.State)
	assert.Len(t, v.Articles, 2)

	v, err = m.SelectArticle(v.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, StateSelectingCount, v.State)
	assert.Equal(t, []int{3, 5, 7}, v.AllowedCounts)
	require.NotNil(t, v.Article)
	assert.Equal(t, "Postgres", v.Article.Title)

	v, err = m.SelectCount(ctx, v.ID, 3)
	require.NoError(t, err)
	assert.Equal(t, "pg text", gen.gotText)
	assert.Equal(t, 3, gen.gotN)
	assert.Equal(t, StateAwaitingAnswer, v.State)
	require.NotNil(t, v.Question)
	assert.Equal(t, "Q1", v.Question.Question)
	assert.Equal(t, 1, v.Question.Number)
	assert.Equal(t, 3, v.Question.Total)

	fb, err := m.Answer(v.ID, 1)
	require.NoError(t, err)
	assert.True(t, fb.Correct)
	assert.Equal(t, 1, fb.Score)
	require.NotNil(t, fb.Next)
	assert.Equal(t, "Q2", fb.Next.Question)

	fb, err = m.Answer(v.ID, 1)
	require.NoError(t, err)
	assert.False(t, fb.Correct)
	assert.Equal(t, "x", fb.CorrectOption)
	assert.Equal(t, 0, fb.CorrectIndex)

	fb, err = m.Answer(v.ID, 1)
	require.NoError(t, err)
	assert.True(t, fb.Done)
	assert.Nil(t, fb.Next)
	assert.Equal(t, 2, fb.Score)
	assert.Equal(t, 3, fb.Answered)

	final, err := m.Get(v.ID)
	require.NoError(t, err)
	assert.Equal(t, StateDone, final.State)
	assert.Equal(t, 2, final.Score)

	_, err = m.Answer(v.ID, 0)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestManager_emptyKnowledgeBase(t *testing.T) {
	m := NewManager(&fakeSource{}, &fakeGenerator{}, nil)
	_, err := m.Start(context.Background())
	assert.ErrorIs(t, err, ErrNoArticles)
}

func TestManager_wrongStateEvents(t *testing.T) {
	m := NewManager(source(), &fakeGenerator{questions: questions()}, nil)
	ctx := context.Background()
	v, err := m.Start(ctx)
	require.NoError(t, err)

	_, err = m.SelectCount(ctx, v.ID, 3)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	_, err = m.Answer(v.ID, 0)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = m.SelectArticle(v.ID, 0)
	require.NoError(t, err)
	_, err = m.SelectArticle(v.ID, 0)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestManager_invalidChoices(t *testing.T) {
	m := NewManager(source(), &fakeGenerator{questions: questions()}, []int{2, 4})
	ctx := context.Background()
	v, err := m.Start(ctx)
	require.NoError(t, err)

	_, err = m.SelectArticle(v.ID, 5)
	assert.ErrorIs(t, err, ErrInvalidChoice)
	_, err = m.SelectArticle(v.ID, 0)
	require.NoError(t, err)

	_, err = m.SelectCount(ctx, v.ID, 3)
	assert.ErrorIs(t, err, ErrInvalidChoice)
	v, err = m.SelectCount(ctx, v.ID, 2)
	require.NoError(t, err)

	_, err = m.Answer(v.ID, 3)
	assert.ErrorIs(t, err, ErrInvalidChoice)
	cur, err := m.Get(v.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, cur.Answered, "an invalid option must not advance the quiz")
}

func TestManager_generationFailureEndsSession(t *testing.T) {
	tests := []struct {
		name    string
		gen     *fakeGenerator
		wantErr error
	}{
		{"unparseable output", &fakeGenerator{}, ErrQuizGeneration},
		{"model error", &fakeGenerator{err: &models.GenerationError{Task: "quiz", Err: errors.New("down")}}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewManager(source(), tt.gen, nil)
			ctx := context.Background()
			v, err := m.Start(ctx)
			require.NoError(t, err)
			_, err = m.SelectArticle(v.ID, 0)
			require.NoError(t, err)

			_, err = m.SelectCount(ctx, v.ID, 5)
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				var ge *models.GenerationError
				assert.ErrorAs(t, err, &ge)
			}
			_, err = m.Get(v.ID)
			assert.ErrorIs(t, err, ErrSessionNotFound)
		})
	}
}

func TestManager_cancelAndUnknown(t *testing.T) {
	m := NewManager(source(), &fakeGenerator{}, nil)
	v, err := m.Start(context.Background())
	require.NoError(t, err)

	require.NoError(t, m.Cancel(v.ID))
	assert.ErrorIs(t, m.Cancel(v.ID), ErrSessionNotFound)
	_, err = m.SelectArticle("missing", 0)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestManager_expiresIdleSessions(t *testing.T) {
	now := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	m := NewManager(source(), &fakeGenerator{}, nil,
		WithTTL(time.Minute),
		WithClock(func() time.Time { return now }))
	ctx := context.Background()

	old, err := m.Start(ctx)
	require.NoError(t, err)
	now = now.Add(2 * time.Minute)
	fresh, err := m.Start(ctx)
	require.NoError(t, err)

	_, err = m.Get(old.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = m.Get(fresh.ID)
	assert.NoError(t, err)
}
