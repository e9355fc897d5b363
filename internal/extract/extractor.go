// Package extract pulls a title and plain text out of a source URL:
// web pages, Habr articles, YouTube transcripts and local files.
package extract

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/shiori/internal/config"
	"github.com/hyperjump/shiori/internal/models"
)

// Extractor returns the content behind a URL. Failures are reported as
// *models.ExtractionError.
type Extractor interface {
	Extract(ctx context.Context, rawURL string) (*models.Content, error)
}

// Router picks an Extractor by URL scheme and host.
type Router struct {
	web     Extractor
	habr    Extractor
	youtube Extractor
	file    Extractor
	logger  *zap.Logger
}

// RouterOption configures a Router.
type RouterOption func(*Router)

// WithLogger sets the logger used for routing decisions.
func WithLogger(logger *zap.Logger) RouterOption {
	return func(r *Router) {
		r.logger = logger
	}
}

// WithHTTPClient replaces the HTTP client shared by the network extractors.
func WithHTTPClient(client *http.Client, cfg config.ExtractConfig) RouterOption {
	return func(r *Router) {
		r.web = NewWebExtractor(client, cfg.UserAgent)
		r.habr = NewHabrExtractor(client, cfg.UserAgent)
		r.youtube = NewYouTubeExtractor(client, cfg.UserAgent, cfg.TranscriptLanguages)
	}
}

// NewRouter builds a Router from extraction settings.
func NewRouter(cfg config.ExtractConfig, opts ...RouterOption) *Router {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	client := &http.Client{Timeout: timeout}
	r := &Router{
		web:     NewWebExtractor(client, cfg.UserAgent),
		habr:    NewHabrExtractor(client, cfg.UserAgent),
		youtube: NewYouTubeExtractor(client, cfg.UserAgent, cfg.TranscriptLanguages),
		file:    NewFileExtractor(),
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Extract dispatches rawURL to the matching extractor.
func (r *Router) Extract(ctx context.Context, rawURL string) (*models.Content, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return nil, &models.ExtractionError{URL: rawURL, Message: "invalid url", Err: err}
	}

	var ex Extractor
	kind := "web"
	switch {
	case u.Scheme == "file":
		ex, kind = r.file, "file"
	case u.Scheme != "http" && u.Scheme != "https":
		return nil, &models.ExtractionError{URL: rawURL, Message: "unsupported scheme " + quoteScheme(u.Scheme)}
	case isYouTubeHost(u.Hostname()):
		ex, kind = r.youtube, "youtube"
	case hostMatches(u.Hostname(), "habr.com"):
		ex, kind = r.habr, "habr"
	default:
		ex = r.web
	}

	r.logger.Debug("Extracting content", zap.String("url", rawURL), zap.String("extractor", kind))
	content, err := ex.Extract(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	content.URL = rawURL
	content.Title = strings.TrimSpace(content.Title)
	if content.Title == "" {
		return nil, &models.ExtractionError{URL: rawURL, Message: "title not found"}
	}
	if strings.TrimSpace(content.Text) == "" {
		return nil, &models.ExtractionError{URL: rawURL, Message: "no text found"}
	}
	return content, nil
}

func quoteScheme(s string) string {
	if s == "" {
		return `""`
	}
	return s
}

// hostMatches reports whether host is domain or a subdomain of it.
func hostMatches(host, domain string) bool {
	host = strings.ToLower(host)
	return host == domain || strings.HasSuffix(host, "."+domain)
}

func isYouTubeHost(host string) bool {
	return hostMatches(host, "youtube.com") || hostMatches(host, "youtu.be")
}
