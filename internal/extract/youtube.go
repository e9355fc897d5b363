package extract

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/net/html"

	"github.com/hyperjump/shiori/internal/models"
)

const (
	defaultTimedTextURL = "https://www.youtube.com/api/timedtext"
	defaultOEmbedURL    = "https://www.youtube.com/oembed"
)

// YouTubeExtractor turns a video link into its transcript. Manual captions
// win over generated ones; languages are tried in preference order.
type YouTubeExtractor struct {
	client    *http.Client
	userAgent string
	languages []string

	// Endpoints, replaceable in tests.
	TimedTextURL string
	OEmbedURL    string
}

// NewYouTubeExtractor returns a YouTubeExtractor preferring languages.
func NewYouTubeExtractor(client *http.Client, userAgent string, languages []string) *YouTubeExtractor {
	if len(languages) == 0 {
		languages = []string{"ru", "en"}
	}
	return &YouTubeExtractor{
		client:       client,
		userAgent:    userAgent,
		languages:    languages,
		TimedTextURL: defaultTimedTextURL,
		OEmbedURL:    defaultOEmbedURL,
	}
}

type transcriptXML struct {
	Texts []string `xml:"text"`
}

func (e *YouTubeExtractor) Extract(ctx context.Context, rawURL string) (*models.Content, error) {
	id := VideoID(rawURL)
	if id == "" {
		return nil, &models.ExtractionError{URL: rawURL, Message: "youtube video id not found"}
	}

	text, err := e.transcript(ctx, id)
	if err != nil {
		return nil, &models.ExtractionError{URL: rawURL, Message: "transcript unavailable", Err: err}
	}
	return &models.Content{URL: rawURL, Title: e.title(ctx, rawURL, id), Text: text}, nil
}

func (e *YouTubeExtractor) transcript(ctx context.Context, id string) (string, error) {
	var lastErr error
	for _, kind := range []string{"", "asr"} {
		for _, lang := range e.languages {
			q := url.Values{"v": {id}, "lang": {lang}}
			if kind != "" {
				q.Set("kind", kind)
			}
			body, err := fetch(ctx, e.client, e.userAgent, e.TimedTextURL+"?"+q.Encode())
			if err != nil {
				if ctx.Err() != nil {
					return "", ctx.Err()
				}
				lastErr = err
				continue
			}
			if text := parseTranscript(body); text != "" {
				return text, nil
			}
		}
	}
	if lastErr != nil {
		return "", lastErr
	}
	return "", fmt.Errorf("no captions in %s", strings.Join(e.languages, ", "))
}

// parseTranscript joins the caption lines of a timedtext document.
func parseTranscript(body []byte) string {
	var doc transcriptXML
	if err := xml.Unmarshal(body, &doc); err != nil {
		return ""
	}
	parts := make([]string, 0, len(doc.Texts))
	for _, t := range doc.Texts {
		t = strings.Join(strings.Fields(html.UnescapeString(t)), " ")
		if t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " ")
}

func (e *YouTubeExtractor) title(ctx context.Context, rawURL, id string) string {
	fallback := fmt.Sprintf("YouTube Video (%s)", id)
	q := url.Values{"url": {rawURL}, "format": {"json"}}
	body, err := fetch(ctx, e.client, e.userAgent, e.OEmbedURL+"?"+q.Encode())
	if err != nil {
		return fallback
	}
	var meta struct {
		Title string `json:"title"`
	}
	if err := json.Unmarshal(body, &meta); err != nil || strings.TrimSpace(meta.Title) == "" {
		return fallback
	}
	return "YouTube: " + strings.TrimSpace(meta.Title)
}

// VideoID extracts the video id from youtube.com/watch?v=, youtu.be/,
// /shorts/ and /embed/ links. It returns "" when none is present.
func VideoID(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return ""
	}
	host := u.Hostname()
	path := strings.Trim(u.Path, "/")
	switch {
	case hostMatches(host, "youtu.be"):
		id, _, _ := strings.Cut(path, "/")
		return id
	case hostMatches(host, "youtube.com"):
		if v := u.Query().Get("v"); v != "" {
			return v
		}
		for _, prefix := range []string{"shorts/", "embed/", "live/"} {
			if rest, ok := strings.CutPrefix(path, prefix); ok {
				id, _, _ := strings.Cut(rest, "/")
				return id
			}
		}
	}
	return ""
}
