package extract

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/hyperjump/shiori/internal/models"
)

const maxBodyBytes = 10 << 20

// fetch GETs rawURL and returns at most maxBodyBytes of the body.
func fetch(ctx context.Context, client *http.Client, userAgent, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &models.ExtractionError{URL: rawURL, Message: "build request", Err: err}
	}
	if userAgent != "" {
		req.Header.Set("User-Agent", userAgent)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, &models.ExtractionError{URL: rawURL, Message: "download failed", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &models.ExtractionError{URL: rawURL, Message: fmt.Sprintf("unexpected status %d", resp.StatusCode)}
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &models.ExtractionError{URL: rawURL, Message: "read body", Err: err}
	}
	return body, nil
}
