package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// LoadDotEnv loads variables from the .env file at path into the process
// environment. Variables already set are not overridden. A missing file is not an error.
func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// ApplyEnv overrides config values from environment variables.
//
//	OLLAMA_HOST   base URL for both the embedding and llm providers
//	SHIORI_DEBUG  enables debug logging when set to a true value
func ApplyEnv(cfg *Config) {
	if host := strings.TrimSpace(os.Getenv("OLLAMA_HOST")); host != "" {
		if !strings.Contains(host, "://") {
			host = "http://" + host
		}
		cfg.Embedding.BaseURL = host
		cfg.LLM.BaseURL = host
	}
	if v := os.Getenv("SHIORI_DEBUG"); v != "" {
		if debug, err := strconv.ParseBool(v); err == nil {
			cfg.Debug = debug
		}
	}
}
