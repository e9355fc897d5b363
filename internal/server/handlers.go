package server

import (
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/hyperjump/shiori/internal/config"
	"github.com/hyperjump/shiori/internal/models"
	"github.com/hyperjump/shiori/internal/storage"
	"github.com/hyperjump/shiori/internal/watcher"
	"go.uber.org/zap"
)

type ingestURLRequest struct {
	URL string `json:"url"`
}

func (s *Server) handleIngestURL(w http.ResponseWriter, r *http.Request) {
	var req ingestURLRequest
	if !s.decode(w, r, &req) {
		return
	}
	url := strings.TrimSpace(req.URL)
	if url == "" {
		s.fail(w, "ingest url request", models.ErrMissingURL)
		return
	}
	s.logger.Debug("ingest url request", zap.String("url", url))
	unlock := s.locks.Lock(url)
	result, err := s.indexer.IngestURL(r.Context(), url)
	unlock()
	if err != nil {
		s.fail(w, "ingest failed", err)
		return
	}
	s.respondJSON(w, http.StatusCreated, result)
}

func (s *Server) handleIngestRaw(w http.ResponseWriter, r *http.Request) {
	var input models.ArticleInput
	if !s.decode(w, r, &input) {
		return
	}
	s.logger.Debug("ingest raw request", zap.String("url", input.URL), zap.String("title", input.Title))
	unlock := s.locks.Lock(strings.TrimSpace(input.URL))
	result, err := s.indexer.Ingest(r.Context(), input)
	unlock()
	if err != nil {
		s.fail(w, "ingest failed", err)
		return
	}
	s.respondJSON(w, http.StatusCreated, result)
}

func (s *Server) handleListArticles(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid limit")
		return
	}
	if q := strings.TrimSpace(r.URL.Query().Get("q")); q != "" {
		hits, err := s.engine.FindArticles(r.Context(), q, limit)
		if err != nil {
			s.fail(w, "article search failed", err)
			return
		}
		s.respondJSON(w, http.StatusOK, map[string]interface{}{"query": q, "articles": hits})
		return
	}
	articles, err := s.indexer.ListArticles(r.Context(), limit)
	if err != nil {
		s.fail(w, "list articles failed", err)
		return
	}
	if articles == nil {
		articles = []models.ArticleSummary{}
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"articles": articles})
}

func (s *Server) handleArticleText(w http.ResponseWriter, r *http.Request) {
	url := strings.TrimSpace(r.URL.Query().Get("url"))
	if url == "" {
		s.fail(w, "article text request", models.ErrMissingURL)
		return
	}
	article, err := s.indexer.FullText(r.Context(), url)
	if err != nil {
		s.fail(w, "article text failed", err)
		return
	}
	s.respondJSON(w, http.StatusOK, article)
}

func (s *Server) handleDeleteArticle(w http.ResponseWriter, r *http.Request) {
	url := strings.TrimSpace(r.URL.Query().Get("url"))
	if url == "" {
		s.fail(w, "delete article request", models.ErrMissingURL)
		return
	}
	s.logger.Debug("delete article request", zap.String("url", url))
	unlock := s.locks.Lock(url)
	n, err := s.indexer.DeleteArticle(r.Context(), url)
	unlock()
	if err != nil {
		s.fail(w, "deletion failed", err)
		return
	}
	if n == 0 {
		s.fail(w, "deletion failed", models.ErrArticleNotFound)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"url": url, "chunks": n, "status": "deleted"})
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req models.AskRequest
	if !s.decode(w, r, &req) {
		return
	}
	req.Question = strings.TrimSpace(req.Question)
	if err := req.Validate(); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.logger.Debug("ask request", zap.String("question", req.Question), zap.Bool("no_expand", req.NoExpand))
	answer, err := s.engine.Ask(r.Context(), req)
	if err != nil {
		s.fail(w, "ask failed", err)
		return
	}
	s.respondJSON(w, http.StatusOK, answer)
}

func (s *Server) handleRetrieve(w http.ResponseWriter, r *http.Request) {
	var q models.RetrieveQuery
	if !s.decode(w, r, &q) {
		return
	}
	q.Query = strings.TrimSpace(q.Query)
	if err := q.Validate(s.config.Retrieval.TopK, s.config.Retrieval.MaxK); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	retrieval, err := s.engine.Retrieve(r.Context(), q.Query, q.K)
	if err != nil {
		s.fail(w, "retrieve failed", err)
		return
	}
	if retrieval == nil {
		retrieval = &models.Retrieval{Matches: []models.Match{}}
	}
	s.respondJSON(w, http.StatusOK, retrieval)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type statusResponse struct {
	models.Stats
	DiskUsage *storage.Usage         `json:"disk_usage,omitempty"`
	Inbox     *watcher.Stats         `json:"inbox,omitempty"`
	Config    map[string]interface{} `json:"config"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.Stats(r.Context())
	if err != nil {
		s.fail(w, "status: stats failed", err)
		return
	}
	resp := statusResponse{
		Stats: stats,
		Config: map[string]interface{}{
			"embedding_provider":   s.config.Embedding.Provider,
			"embedding_model":      s.config.Embedding.Model,
			"embedding_dimensions": s.config.Embedding.Dimensions,
			"llm_model":            s.config.LLM.Model,
			"chunk_size":           s.config.Chunking.ChunkSize,
			"chunk_overlap":        s.config.Chunking.OverlapOrDefault(),
			"top_k":                s.config.Retrieval.TopK,
			"database_path":        s.config.Storage.DatabasePath,
			"keyword_index_path":   s.config.Storage.KeywordIndexPath,
		},
	}
	usage, err := storage.DiskUsage(s.config.Storage.DatabasePath, s.config.Storage.KeywordIndexPath)
	if err == nil {
		resp.DiskUsage = &usage
	} else {
		s.logger.Debug("status: disk usage failed", zap.Error(err))
	}
	if s.inbox != nil {
		inbox := s.inbox.Stats()
		resp.Inbox = &inbox
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleInboxList(w http.ResponseWriter, r *http.Request) {
	if s.inbox == nil {
		s.respondError(w, http.StatusNotImplemented, "inbox not enabled")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"directories": s.inbox.Directories()})
}

type inboxAddRequest struct {
	Path string `json:"path"`
	Sync *bool  `json:"sync,omitempty"`
}

func (s *Server) handleInboxAdd(w http.ResponseWriter, r *http.Request) {
	if s.inbox == nil {
		s.respondError(w, http.StatusNotImplemented, "inbox not enabled")
		return
	}
	var req inboxAddRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.Path == "" {
		s.respondError(w, http.StatusBadRequest, "path is required")
		return
	}
	abs, err := filepath.Abs(req.Path)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid path")
		return
	}
	info, err := os.Stat(abs)
	if err != nil {
		if os.IsNotExist(err) {
			s.respondError(w, http.StatusNotFound, "directory not found")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !info.IsDir() {
		s.respondError(w, http.StatusBadRequest, "path is not a directory")
		return
	}
	syncExisting := true
	if req.Sync != nil {
		syncExisting = *req.Sync
	}
	s.logger.Debug("inbox add directory request", zap.String("path", abs), zap.Bool("sync_existing", syncExisting))
	if err := s.inbox.AddDirectory(abs, syncExisting); err != nil {
		s.logger.Error("inbox add directory failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.persistInbox()
	s.respondJSON(w, http.StatusCreated, map[string]string{"path": abs, "status": "added"})
}

func (s *Server) handleInboxRemove(w http.ResponseWriter, r *http.Request) {
	if s.inbox == nil {
		s.respondError(w, http.StatusNotImplemented, "inbox not enabled")
		return
	}
	path := r.URL.Query().Get("path")
	if path == "" {
		var body struct {
			Path string `json:"path"`
		}
		if s.decodeOptional(r, &body) {
			path = body.Path
		}
	}
	if path == "" {
		s.respondError(w, http.StatusBadRequest, "path is required (query or body)")
		return
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid path")
		return
	}
	s.logger.Debug("inbox remove directory request", zap.String("path", abs))
	if err := s.inbox.RemoveDirectory(abs); err != nil {
		s.logger.Error("inbox remove directory failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.persistInbox()
	s.respondJSON(w, http.StatusOK, map[string]string{"path": abs, "status": "removed"})
}

// persistInbox writes the current inbox directories back to the config file.
func (s *Server) persistInbox() {
	if s.configPath == "" {
		return
	}
	s.configMu.Lock()
	defer s.configMu.Unlock()
	s.config.Inbox.Directories = s.inbox.Directories()
	if err := config.Save(s.configPath, s.config); err != nil {
		s.logger.Warn("failed to persist inbox config", zap.Error(err))
	}
}

func queryInt(r *http.Request, name string) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return 0, nil
	}
	return strconv.Atoi(v)
}
