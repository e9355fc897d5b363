package extract

import (
	"context"
	"net/http"

	"github.com/hyperjump/shiori/internal/models"
)

// HabrExtractor reads articles from habr.com using its article markup.
type HabrExtractor struct {
	client    *http.Client
	userAgent string
}

// NewHabrExtractor returns a HabrExtractor using client.
func NewHabrExtractor(client *http.Client, userAgent string) *HabrExtractor {
	return &HabrExtractor{client: client, userAgent: userAgent}
}

func (e *HabrExtractor) Extract(ctx context.Context, rawURL string) (*models.Content, error) {
	body, err := fetch(ctx, e.client, e.userAgent, rawURL)
	if err != nil {
		return nil, err
	}
	root, err := parseHTML(body)
	if err != nil {
		return nil, &models.ExtractionError{URL: rawURL, Message: "parse html", Err: err}
	}

	title := inlineText(findFirst(root, byClass("h1", "tm-title")))
	if title == "" {
		return nil, &models.ExtractionError{URL: rawURL, Message: "habr title not found"}
	}
	article := findAny(root, byID("post-content-body"), byClass("", "tm-article-body"))
	if article == nil {
		return nil, &models.ExtractionError{URL: rawURL, Message: "habr article body not found"}
	}
	text := blockText(article)
	if text == "" {
		return nil, &models.ExtractionError{URL: rawURL, Message: "no text found"}
	}
	return &models.Content{URL: rawURL, Title: title, Text: text}, nil
}
