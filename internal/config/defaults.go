package config

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = "/usr/local/var/shiori/data/db/knowledge.db"
	}
	if cfg.Storage.KeywordIndexPath == "" {
		cfg.Storage.KeywordIndexPath = "/usr/local/var/shiori/data/indices/articles"
	}
	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = "ollama"
	}
	if cfg.Embedding.Model == "" {
		cfg.Embedding.Model = "nomic-embed-text"
	}
	if cfg.Embedding.BaseURL == "" {
		cfg.Embedding.BaseURL = "http://localhost:11434"
	}
	if cfg.Embedding.Dimensions == 0 {
		cfg.Embedding.Dimensions = 768
	}
	if cfg.Embedding.CacheSize == 0 {
		cfg.Embedding.CacheSize = 10000
	}
	if cfg.Embedding.MaxTokens == 0 {
		cfg.Embedding.MaxTokens = 256
	}
	if cfg.LLM.Provider == "" {
		cfg.LLM.Provider = "ollama"
	}
	if cfg.LLM.Model == "" {
		cfg.LLM.Model = "gemma2:9b"
	}
	if cfg.LLM.BaseURL == "" {
		cfg.LLM.BaseURL = "http://localhost:11434"
	}
	if cfg.Chunking.ChunkSize == 0 {
		cfg.Chunking.ChunkSize = 1000
	}
	if cfg.Chunking.Overlap == nil {
		o := 100
		cfg.Chunking.Overlap = &o
	}
	if cfg.Chunking.PurgeStale == nil {
		t := true
		cfg.Chunking.PurgeStale = &t
	}
	if cfg.Retrieval.TopK == 0 {
		cfg.Retrieval.TopK = 5
	}
	if cfg.Retrieval.MaxK == 0 {
		cfg.Retrieval.MaxK = 50
	}
	// Expansion runs at temperature 0, which is also the zero value.
	if cfg.Generation.Expand.NumCtx == 0 {
		cfg.Generation.Expand.NumCtx = 2048
	}
	if cfg.Generation.Answer.Temperature == 0 {
		cfg.Generation.Answer.Temperature = 0.1
	}
	if cfg.Generation.Answer.NumCtx == 0 {
		cfg.Generation.Answer.NumCtx = 8192
	}
	if cfg.Generation.Summary.Temperature == 0 {
		cfg.Generation.Summary.Temperature = 0.3
	}
	if cfg.Generation.Summary.NumCtx == 0 {
		cfg.Generation.Summary.NumCtx = 8192
	}
	if cfg.Generation.Quiz.Temperature == 0 {
		cfg.Generation.Quiz.Temperature = 0.6
	}
	if cfg.Generation.Quiz.NumCtx == 0 {
		cfg.Generation.Quiz.NumCtx = 8192
	}
	if cfg.Generation.MaxInputChars == 0 {
		cfg.Generation.MaxInputChars = 25000
	}
	if cfg.Quiz.Counts == nil {
		cfg.Quiz.Counts = []int{3, 5, 7}
	}
	if cfg.Extract.UserAgent == "" {
		cfg.Extract.UserAgent = "shiori/1.0 (+https://github.com/hyperjump/shiori)"
	}
	if cfg.Extract.TimeoutSeconds == 0 {
		cfg.Extract.TimeoutSeconds = 30
	}
	if cfg.Extract.TranscriptLanguages == nil {
		cfg.Extract.TranscriptLanguages = []string{"ru", "en"}
	}
	if cfg.Inbox.Extensions == nil {
		cfg.Inbox.Extensions = []string{".txt", ".md", ".rst", ".pdf", ".docx", ".xlsx"}
	}
	if len(cfg.Inbox.Directories) > 0 && cfg.Inbox.Recursive == nil {
		t := true
		cfg.Inbox.Recursive = &t
	}
}
