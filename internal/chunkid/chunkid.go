// Package chunkid derives deterministic chunk identifiers from an article's source URL.
package chunkid

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
)

const prefix = "chunk:"

// ChunkID returns the stable id of chunk index of the article at sourceURL.
// The URL is hashed so distinct URLs never share an id, even when one URL is a
// prefix of another or contains the separator.
func ChunkID(sourceURL string, index int) string {
	hash := sha256.Sum256([]byte(sourceURL))
	return prefix + hex.EncodeToString(hash[:]) + ":" + strconv.Itoa(index)
}

// FileURL returns the file:// URL used as the article identity of a local file.
// Same path always yields the same URL.
func FileURL(absolutePath string) string {
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(filepath.Clean(absolutePath))}
	return u.String()
}

// FilePath reverses FileURL. ok is false when raw is not a file:// URL.
func FilePath(raw string) (path string, ok bool) {
	if !strings.HasPrefix(raw, "file://") {
		return "", false
	}
	u, err := url.Parse(raw)
	if err != nil || u.Path == "" {
		return "", false
	}
	return filepath.FromSlash(u.Path), true
}
