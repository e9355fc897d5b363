package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hyperjump/shiori/internal/models"
	"github.com/hyperjump/shiori/internal/quiz"
	"github.com/hyperjump/shiori/internal/search"
)

// APIError is a non-success response from the shiori server.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.Status, e.Message)
}

// Client talks to a running shiori server. Commands use it while the server
// holds the database and catalogue locks.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a client for the server at baseURL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 10 * time.Minute},
	}
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}, wantStatus int) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != wantStatus {
		b, _ := io.ReadAll(resp.Body)
		var e struct {
			Error string `json:"error"`
		}
		msg := strings.TrimSpace(string(b))
		if json.Unmarshal(b, &e) == nil && e.Error != "" {
			msg = e.Error
		}
		return &APIError{Status: resp.StatusCode, Message: msg}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// IngestURL asks the server to fetch and ingest rawURL.
func (c *Client) IngestURL(ctx context.Context, rawURL string) (*models.IngestResult, error) {
	var r models.IngestResult
	err := c.do(ctx, http.MethodPost, "/api/v1/articles", map[string]string{"url": rawURL}, &r, http.StatusCreated)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// Ask sends a question.
func (c *Client) Ask(ctx context.Context, req models.AskRequest) (*models.Answer, error) {
	var a models.Answer
	if err := c.do(ctx, http.MethodPost, "/api/v1/ask", req, &a, http.StatusOK); err != nil {
		return nil, err
	}
	return &a, nil
}

// Retrieve runs a raw similarity query.
func (c *Client) Retrieve(ctx context.Context, query string, k int) (*models.Retrieval, error) {
	var r models.Retrieval
	err := c.do(ctx, http.MethodPost, "/api/v1/retrieve", models.RetrieveQuery{Query: query, K: k}, &r, http.StatusOK)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// ListArticles returns the article catalogue.
func (c *Client) ListArticles(ctx context.Context, limit int) ([]models.ArticleSummary, error) {
	var out struct {
		Articles []models.ArticleSummary `json:"articles"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/articles"+limitQuery(limit, "?"), nil, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return out.Articles, nil
}

// FindArticles searches the catalogue.
func (c *Client) FindArticles(ctx context.Context, query string, limit int) ([]search.ArticleHit, error) {
	var out struct {
		Articles []search.ArticleHit `json:"articles"`
	}
	path := "/api/v1/articles?q=" + url.QueryEscape(query) + limitQuery(limit, "&")
	if err := c.do(ctx, http.MethodGet, path, nil, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return out.Articles, nil
}

func limitQuery(limit int, sep string) string {
	if limit <= 0 {
		return ""
	}
	return sep + "limit=" + strconv.Itoa(limit)
}

// FullText returns the reassembled text of the article at articleURL.
func (c *Client) FullText(ctx context.Context, articleURL string) (*models.Article, error) {
	var a models.Article
	path := "/api/v1/articles/text?url=" + url.QueryEscape(articleURL)
	if err := c.do(ctx, http.MethodGet, path, nil, &a, http.StatusOK); err != nil {
		return nil, err
	}
	return &a, nil
}

// DeleteArticle removes an article and returns the number of chunks deleted.
func (c *Client) DeleteArticle(ctx context.Context, articleURL string) (int, error) {
	var out struct {
		Chunks int `json:"chunks"`
	}
	path := "/api/v1/articles?url=" + url.QueryEscape(articleURL)
	if err := c.do(ctx, http.MethodDelete, path, nil, &out, http.StatusOK); err != nil {
		return 0, err
	}
	return out.Chunks, nil
}

// Status returns knowledge base status.
func (c *Client) Status(ctx context.Context) (*Status, error) {
	var s Status
	if err := c.do(ctx, http.MethodGet, "/api/v1/status", nil, &s, http.StatusOK); err != nil {
		return nil, err
	}
	return &s, nil
}

// InboxDirectories lists watched inbox directories.
func (c *Client) InboxDirectories(ctx context.Context) ([]string, error) {
	var out struct {
		Directories []string `json:"directories"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/inbox", nil, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return out.Directories, nil
}

// AddInboxDirectory starts watching path and ingests its files.
func (c *Client) AddInboxDirectory(ctx context.Context, path string) error {
	body := map[string]interface{}{"path": path, "sync": true}
	return c.do(ctx, http.MethodPost, "/api/v1/inbox", body, nil, http.StatusCreated)
}

// RemoveInboxDirectory stops watching path.
func (c *Client) RemoveInboxDirectory(ctx context.Context, path string) error {
	return c.do(ctx, http.MethodDelete, "/api/v1/inbox?path="+url.QueryEscape(path), nil, nil, http.StatusOK)
}

// StartQuiz opens a quiz session.
func (c *Client) StartQuiz(ctx context.Context) (*quiz.SessionView, error) {
	var v quiz.SessionView
	if err := c.do(ctx, http.MethodPost, "/api/v1/quizzes", nil, &v, http.StatusCreated); err != nil {
		return nil, err
	}
	return &v, nil
}

// SelectArticle picks the quiz article by index.
func (c *Client) SelectArticle(ctx context.Context, id string, index int) (*quiz.SessionView, error) {
	var v quiz.SessionView
	err := c.do(ctx, http.MethodPost, "/api/v1/quizzes/"+url.PathEscape(id)+"/article", map[string]int{"index": index}, &v, http.StatusOK)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// SelectCount sets the number of questions and generates the quiz.
func (c *Client) SelectCount(ctx context.Context, id string, n int) (*quiz.SessionView, error) {
	var v quiz.SessionView
	err := c.do(ctx, http.MethodPost, "/api/v1/quizzes/"+url.PathEscape(id)+"/count", map[string]int{"count": n}, &v, http.StatusOK)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// Answer submits the chosen option for the current question.
func (c *Client) Answer(ctx context.Context, id string, choice int) (*quiz.Feedback, error) {
	var fb quiz.Feedback
	err := c.do(ctx, http.MethodPost, "/api/v1/quizzes/"+url.PathEscape(id)+"/answer", map[string]int{"choice": choice}, &fb, http.StatusOK)
	if err != nil {
		return nil, err
	}
	return &fb, nil
}

// CancelQuiz ends a quiz session.
func (c *Client) CancelQuiz(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/v1/quizzes/"+url.PathEscape(id), nil, nil, http.StatusOK)
}
