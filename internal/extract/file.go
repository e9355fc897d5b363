package extract

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/hyperjump/shiori/internal/chunkid"
	"github.com/hyperjump/shiori/internal/models"
)

// FileExtractor reads local documents addressed by file:// URLs.
type FileExtractor struct{}

// NewFileExtractor returns a new FileExtractor.
func NewFileExtractor() *FileExtractor {
	return &FileExtractor{}
}

// Extract reads the file behind a file:// URL. The title is the first
// Markdown heading when there is one, otherwise the file name.
func (e *FileExtractor) Extract(ctx context.Context, rawURL string) (*models.Content, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, ok := chunkid.FilePath(rawURL)
	if !ok {
		return nil, &models.ExtractionError{URL: rawURL, Message: "not a file url"}
	}
	text, err := e.ExtractFile(path)
	if err != nil {
		return nil, &models.ExtractionError{URL: rawURL, Message: "read document", Err: err}
	}
	return &models.Content{URL: rawURL, Title: fileTitle(path, text), Text: text}, nil
}

// ExtractFile reads the file at path and returns its text content.
func (e *FileExtractor) ExtractFile(path string) (string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return e.ExtractBytes(content, strings.ToLower(filepath.Ext(path)))
}

// ExtractBytes extracts text from content based on the given extension.
// ext should include the leading dot (e.g. ".pdf").
func (e *FileExtractor) ExtractBytes(content []byte, ext string) (string, error) {
	switch ext {
	case ".pdf":
		return extractPDF(content)
	case ".docx":
		return extractDOCX(content)
	case ".xlsx":
		return extractExcel(content)
	default:
		return extractPlain(content)
	}
}

func fileTitle(path, text string) string {
	ext := filepath.Ext(path)
	if strings.EqualFold(ext, ".md") {
		for _, line := range strings.SplitN(text, "\n", 20) {
			if h, ok := strings.CutPrefix(strings.TrimSpace(line), "# "); ok && strings.TrimSpace(h) != "" {
				return strings.TrimSpace(h)
			}
		}
	}
	return strings.TrimSuffix(filepath.Base(path), ext)
}
