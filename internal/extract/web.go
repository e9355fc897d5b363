package extract

import (
	"context"
	"net/http"

	"golang.org/x/net/html"

	"github.com/hyperjump/shiori/internal/models"
)

// WebExtractor handles generic HTML pages.
type WebExtractor struct {
	client    *http.Client
	userAgent string
}

// NewWebExtractor returns a WebExtractor using client.
func NewWebExtractor(client *http.Client, userAgent string) *WebExtractor {
	return &WebExtractor{client: client, userAgent: userAgent}
}

// Extract downloads the page and keeps the text of its main content area.
func (e *WebExtractor) Extract(ctx context.Context, rawURL string) (*models.Content, error) {
	body, err := fetch(ctx, e.client, e.userAgent, rawURL)
	if err != nil {
		return nil, err
	}
	root, err := parseHTML(body)
	if err != nil {
		return nil, &models.ExtractionError{URL: rawURL, Message: "parse html", Err: err}
	}
	content := &models.Content{
		URL:   rawURL,
		Title: pageTitle(root),
		Text:  blockText(findAny(root, byTag("article"), byTag("main"), byTag("body"))),
	}
	if content.Title == "" {
		return nil, &models.ExtractionError{URL: rawURL, Message: "title not found"}
	}
	if content.Text == "" {
		return nil, &models.ExtractionError{URL: rawURL, Message: "no text found"}
	}
	return content, nil
}

func pageTitle(root *html.Node) string {
	if t := metaContent(root, "og:title"); t != "" {
		return t
	}
	if t := inlineText(findFirst(root, byTag("title"))); t != "" {
		return t
	}
	return inlineText(findFirst(root, byTag("h1")))
}
