// Package main is the Shiori CLI entry point.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/hyperjump/shiori/internal/chunkid"
	"github.com/hyperjump/shiori/internal/cli"
	"github.com/hyperjump/shiori/internal/config"
	"github.com/hyperjump/shiori/internal/models"
	"github.com/hyperjump/shiori/internal/server"
	"github.com/hyperjump/shiori/internal/storage"
	"github.com/hyperjump/shiori/internal/watcher"
	"github.com/hyperjump/shiori/pkg/utils"
	"go.uber.org/zap"
)

var version = "dev"

const (
	defaultConfigPath = "/usr/local/etc/shiori/config.yaml"
	defaultServerURL  = "http://localhost:8080"
)

// loadConfig loads config from path. When path is the default, it first looks for
// config.yaml in the current directory (for development); if that exists it is used.
// Returns the config and the path that was actually loaded (for saving, etc.).
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	if err := config.LoadDotEnv(".env"); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load .env: %v\n", err)
	}
	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "ingest":
		runIngest()
	case "ask":
		runAsk()
	case "retrieve":
		runRetrieve()
	case "articles":
		runArticles()
	case "text":
		runText()
	case "delete":
		runDelete()
	case "quiz":
		runQuiz()
	case "status":
		runStatus()
	case "inbox":
		runInbox()
	case "version", "--version", "-v":
		fmt.Printf("shiori version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func fatalf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// setupLogger loads and validates config at path and builds the logger.
func setupLogger(path string, debug bool) (*config.Config, string, *zap.Logger) {
	cfg, resolved, err := loadConfig(path)
	if err != nil {
		fatalf("Failed to load config: %v", err)
	}
	if err := config.Validate(cfg); err != nil {
		fatalf("Invalid config: %v", err)
	}
	logger, err := utils.NewLogger(cfg.Debug || debug)
	if err != nil {
		fatalf("Failed to create logger: %v", err)
	}
	return cfg, resolved, logger
}

// withComponents runs fn against in-process components built from the config
// at path. It is the direct mode used when --server is empty.
func withComponents(ctx context.Context, path string, fn func(*Components) error) error {
	cfg, _, logger := setupLogger(path, false)
	defer logger.Sync()

	components, err := initializeComponents(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize: %w", err)
	}
	defer components.Close()
	return fn(components)
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging (inbox changes, ingestion, prompts)")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, logger := setupLogger(*configPath, *debug)
	defer logger.Sync()

	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", cfg.Debug || *debug),
	)

	ctx, stop := signalContext()
	defer stop()

	components, err := initializeComponents(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	recursive := cfg.Inbox.RecursiveOrDefault()
	watchSvc := watcher.NewWatcher(
		cfg.Inbox.Directories,
		cfg.Inbox.Extensions,
		recursive,
		watcher.IndexerHandler{
			Indexer:    components.Indexer,
			Extensions: cfg.Inbox.Extensions,
			Recursive:  recursive,
		},
		watcher.WithLogger(logger),
	)
	if err := watchSvc.Start(ctx); err != nil {
		logger.Fatal("Failed to start inbox watcher", zap.Error(err))
	}
	defer watchSvc.Stop()
	go watchSvc.SyncExistingFiles()

	srv := server.NewServer(
		components.Engine,
		components.Indexer,
		components.Quizzes,
		components.Store,
		cfg,
		logger,
		server.WithInbox(watchSvc, resolvedConfigPath),
	)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("Shutting down server...")
	case err := <-errCh:
		logger.Error("Server failed", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Stop(shutdownCtx); err != nil {
		logger.Error("Server shutdown failed", zap.Error(err))
	}
}

// commonFlags are shared by every client command.
type commonFlags struct {
	configPath *string
	serverURL  *string
	output     *string
}

func addCommonFlags(fs *flag.FlagSet) commonFlags {
	return commonFlags{
		configPath: fs.String("config", defaultConfigPath, "config file path (direct mode)"),
		serverURL:  fs.String("server", defaultServerURL, `server URL; use --server "" to open the knowledge base directly`),
		output:     fs.String("output", "text", "output format: text or json"),
	}
}

func (c commonFlags) format() cli.OutputFormat {
	f, err := cli.ParseOutputFormat(*c.output)
	if err != nil {
		fatalf("%v", err)
	}
	return f
}

func (c commonFlags) client() *cli.Client {
	if *c.serverURL == "" {
		return nil
	}
	return cli.NewClient(*c.serverURL)
}

// buildQuery joins positional args into a single question or query.
func buildQuery(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

// argsReorder moves positionals after flags so "shiori ask what is x --output json" works.
func argsReorder(args []string, boolFlags map[string]bool) []string {
	var flags, positionals []string
	for i := 0; i < len(args); i++ {
		a := args[i]
		if !strings.HasPrefix(a, "-") || a == "-" {
			positionals = append(positionals, a)
			continue
		}
		flags = append(flags, a)
		name := strings.TrimLeft(a, "-")
		if strings.Contains(name, "=") || boolFlags[name] {
			continue
		}
		if i+1 < len(args) {
			flags = append(flags, args[i+1])
			i++
		}
	}
	return append(flags, positionals...)
}

func runIngest() {
	fs := flag.NewFlagSet("ingest", flag.ExitOnError)
	common := addCommonFlags(fs)
	recursive := fs.Bool("recursive", true, "descend into subdirectories (direct mode)")
	_ = fs.Parse(argsReorder(os.Args[2:], map[string]bool{"recursive": true}))
	if fs.NArg() == 0 {
		fatalf("Usage: shiori ingest [flags] <url|file|dir>...")
	}
	format := common.format()
	ctx, stop := signalContext()
	defer stop()

	targets := make([]ingestTarget, 0, fs.NArg())
	for _, arg := range fs.Args() {
		t, err := classifyTarget(arg)
		if err != nil {
			fatalf("%v", err)
		}
		targets = append(targets, t)
	}

	if client := common.client(); client != nil {
		failed := false
		for _, t := range targets {
			if t.dir {
				fmt.Fprintf(os.Stderr, "%s is a directory; use \"shiori inbox add %s\" with a running server\n", t.path, t.path)
				failed = true
				continue
			}
			result, err := client.IngestURL(ctx, t.url)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Ingest %s failed: %v\n", t.url, err)
				failed = true
				continue
			}
			_ = cli.WriteIngestResult(os.Stdout, result, format)
		}
		if failed {
			os.Exit(1)
		}
		return
	}

	err := withComponents(ctx, *common.configPath, func(c *Components) error {
		failed := false
		for _, t := range targets {
			switch {
			case t.dir:
				n, err := c.Indexer.IngestDirectory(ctx, t.path, c.Config.Inbox.Extensions, *recursive)
				if err != nil {
					fmt.Fprintf(os.Stderr, "Ingest %s failed: %v\n", t.path, err)
					failed = true
					continue
				}
				fmt.Printf("Ingested %d file(s) from %s\n", n, t.path)
			case t.path != "":
				result, err := c.Indexer.IngestFile(ctx, t.path, nil)
				if err != nil {
					fmt.Fprintf(os.Stderr, "Ingest %s failed: %v\n", t.path, err)
					failed = true
					continue
				}
				_ = cli.WriteIngestResult(os.Stdout, result, format)
			default:
				result, err := c.Indexer.IngestURL(ctx, t.url)
				if err != nil {
					fmt.Fprintf(os.Stderr, "Ingest %s failed: %v\n", t.url, err)
					failed = true
					continue
				}
				_ = cli.WriteIngestResult(os.Stdout, result, format)
			}
		}
		if failed {
			return errors.New("some sources failed to ingest")
		}
		return nil
	})
	if err != nil {
		fatalf("%v", err)
	}
}

// ingestTarget is one ingest argument: a remote URL, a local file or a
// local directory.
type ingestTarget struct {
	url  string
	path string
	dir  bool
}

// classifyTarget treats http(s) and file URLs as URLs and anything that
// exists on disk as a local path.
func classifyTarget(arg string) (ingestTarget, error) {
	lower := strings.ToLower(arg)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") || strings.HasPrefix(lower, "file://") {
		return ingestTarget{url: arg}, nil
	}
	abs, err := filepath.Abs(arg)
	if err != nil {
		return ingestTarget{}, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return ingestTarget{}, fmt.Errorf("%s is neither a URL nor an existing path", arg)
	}
	return ingestTarget{url: chunkid.FileURL(abs), path: abs, dir: info.IsDir()}, nil
}

func runAsk() {
	fs := flag.NewFlagSet("ask", flag.ExitOnError)
	common := addCommonFlags(fs)
	noExpand := fs.Bool("no-expand", false, "embed the question as written, without query expansion")
	_ = fs.Parse(argsReorder(os.Args[2:], map[string]bool{"no-expand": true}))
	req := models.AskRequest{Question: buildQuery(fs.Args()), NoExpand: *noExpand}
	if err := req.Validate(); err != nil {
		fatalf("Usage: shiori ask [flags] <question>")
	}
	format := common.format()
	ctx, stop := signalContext()
	defer stop()

	var answer *models.Answer
	if client := common.client(); client != nil {
		a, err := client.Ask(ctx, req)
		if err != nil {
			fatalf("Ask failed: %v", err)
		}
		answer = a
	} else {
		err := withComponents(ctx, *common.configPath, func(c *Components) error {
			a, err := c.Engine.Ask(ctx, req)
			answer = a
			return err
		})
		if err != nil {
			fatalf("Ask failed: %v", err)
		}
	}
	if err := cli.WriteAnswer(os.Stdout, answer, format); err != nil {
		fatalf("%v", err)
	}
}

func runRetrieve() {
	fs := flag.NewFlagSet("retrieve", flag.ExitOnError)
	common := addCommonFlags(fs)
	k := fs.Int("k", 0, "number of chunks to return (default from config)")
	_ = fs.Parse(argsReorder(os.Args[2:], nil))
	query := buildQuery(fs.Args())
	if query == "" {
		fatalf("Usage: shiori retrieve [flags] <query>")
	}
	format := common.format()
	ctx, stop := signalContext()
	defer stop()

	var result *models.Retrieval
	if client := common.client(); client != nil {
		r, err := client.Retrieve(ctx, query, *k)
		if err != nil {
			fatalf("Retrieve failed: %v", err)
		}
		result = r
	} else {
		err := withComponents(ctx, *common.configPath, func(c *Components) error {
			r, err := c.Engine.Retrieve(ctx, query, *k)
			result = r
			return err
		})
		if err != nil {
			fatalf("Retrieve failed: %v", err)
		}
	}
	if err := cli.WriteRetrieval(os.Stdout, result, format); err != nil {
		fatalf("%v", err)
	}
}

func runArticles() {
	fs := flag.NewFlagSet("articles", flag.ExitOnError)
	common := addCommonFlags(fs)
	query := fs.String("query", "", "search titles and summaries instead of listing")
	limit := fs.Int("limit", 0, "maximum number of articles (0 = all, or 10 when searching)")
	_ = fs.Parse(argsReorder(os.Args[2:], nil))
	format := common.format()
	ctx, stop := signalContext()
	defer stop()

	q := strings.TrimSpace(*query)
	client := common.client()
	var err error
	switch {
	case q != "" && client != nil:
		hits, findErr := client.FindArticles(ctx, q, *limit)
		if findErr == nil {
			err = cli.WriteArticleHits(os.Stdout, q, hits, format)
		} else {
			err = findErr
		}
	case client != nil:
		articles, listErr := client.ListArticles(ctx, *limit)
		if listErr == nil {
			err = cli.WriteArticles(os.Stdout, articles, format)
		} else {
			err = listErr
		}
	default:
		err = withComponents(ctx, *common.configPath, func(c *Components) error {
			if q != "" {
				hits, err := c.Engine.FindArticles(ctx, q, *limit)
				if err != nil {
					return err
				}
				return cli.WriteArticleHits(os.Stdout, q, hits, format)
			}
			articles, err := c.Indexer.ListArticles(ctx, *limit)
			if err != nil {
				return err
			}
			return cli.WriteArticles(os.Stdout, articles, format)
		})
	}
	if err != nil {
		fatalf("Articles failed: %v", err)
	}
}

func runText() {
	fs := flag.NewFlagSet("text", flag.ExitOnError)
	common := addCommonFlags(fs)
	_ = fs.Parse(argsReorder(os.Args[2:], nil))
	if fs.NArg() != 1 {
		fatalf("Usage: shiori text [flags] <url>")
	}
	articleURL := fs.Arg(0)
	format := common.format()
	ctx, stop := signalContext()
	defer stop()

	var article *models.Article
	if client := common.client(); client != nil {
		a, err := client.FullText(ctx, articleURL)
		if err != nil {
			fatalf("Text failed: %v", err)
		}
		article = a
	} else {
		err := withComponents(ctx, *common.configPath, func(c *Components) error {
			a, err := c.Indexer.FullText(ctx, articleURL)
			article = a
			return err
		})
		if err != nil {
			fatalf("Text failed: %v", err)
		}
	}
	if err := cli.WriteArticleText(os.Stdout, article, format); err != nil {
		fatalf("%v", err)
	}
}

func runDelete() {
	fs := flag.NewFlagSet("delete", flag.ExitOnError)
	common := addCommonFlags(fs)
	_ = fs.Parse(argsReorder(os.Args[2:], nil))
	if fs.NArg() != 1 {
		fatalf("Usage: shiori delete [flags] <url|file>")
	}
	target, err := classifyTarget(fs.Arg(0))
	if err != nil {
		// A deleted local file can still be removed by its original path.
		abs, absErr := filepath.Abs(fs.Arg(0))
		if absErr != nil {
			fatalf("%v", err)
		}
		target = ingestTarget{url: chunkid.FileURL(abs)}
	}
	ctx, stop := signalContext()
	defer stop()

	var n int
	if client := common.client(); client != nil {
		n, err = client.DeleteArticle(ctx, target.url)
	} else {
		err = withComponents(ctx, *common.configPath, func(c *Components) error {
			deleted, err := c.Indexer.DeleteArticle(ctx, target.url)
			n = deleted
			return err
		})
	}
	if err != nil {
		fatalf("Deletion failed: %v", err)
	}
	if n == 0 {
		fatalf("Article not found: %s", target.url)
	}
	fmt.Printf("Article deleted: %s (%d chunks)\n", target.url, n)
}

func runQuiz() {
	fs := flag.NewFlagSet("quiz", flag.ExitOnError)
	common := addCommonFlags(fs)
	_ = fs.Parse(os.Args[2:])
	ctx, stop := signalContext()
	defer stop()

	var err error
	if client := common.client(); client != nil {
		err = cli.RunQuiz(ctx, client, os.Stdin, os.Stdout)
	} else {
		err = withComponents(ctx, *common.configPath, func(c *Components) error {
			return cli.RunQuiz(ctx, cli.LocalQuiz{Manager: c.Quizzes}, os.Stdin, os.Stdout)
		})
	}
	if err != nil {
		fatalf("Quiz failed: %v", err)
	}
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	common := addCommonFlags(fs)
	_ = fs.Parse(os.Args[2:])
	format := common.format()
	ctx, stop := signalContext()
	defer stop()

	var status *cli.Status
	if client := common.client(); client != nil {
		s, err := client.Status(ctx)
		if err != nil {
			fatalf("Status failed: %v (is the server running? use --server \"\" for direct mode)", err)
		}
		status = s
	} else {
		err := withComponents(ctx, *common.configPath, func(c *Components) error {
			s, err := directStatus(ctx, c)
			status = s
			return err
		})
		if err != nil {
			fatalf("Status failed: %v", err)
		}
	}
	if err := cli.WriteStatus(os.Stdout, status, format); err != nil {
		fatalf("%v", err)
	}
}

func directStatus(ctx context.Context, c *Components) (*cli.Status, error) {
	stats, err := c.Store.Stats(ctx)
	if err != nil {
		return nil, err
	}
	cfg := c.Config
	status := &cli.Status{
		Stats: stats,
		Config: map[string]interface{}{
			"embedding_provider":   cfg.Embedding.Provider,
			"embedding_model":      cfg.Embedding.Model,
			"embedding_dimensions": cfg.Embedding.Dimensions,
			"llm_model":            cfg.LLM.Model,
			"chunk_size":           cfg.Chunking.ChunkSize,
			"chunk_overlap":        cfg.Chunking.OverlapOrDefault(),
			"top_k":                cfg.Retrieval.TopK,
			"database_path":        cfg.Storage.DatabasePath,
			"keyword_index_path":   cfg.Storage.KeywordIndexPath,
		},
	}
	if usage, err := storage.DiskUsage(cfg.Storage.DatabasePath, cfg.Storage.KeywordIndexPath); err == nil {
		status.DiskUsage = &usage
	}
	return status, nil
}

func runInbox() {
	if len(os.Args) < 3 {
		fatalf("Usage: shiori inbox <add|remove|list> [flags] [path]")
	}
	sub := os.Args[2]
	fs := flag.NewFlagSet("inbox "+sub, flag.ExitOnError)
	serverURL := fs.String("server", defaultServerURL, "server URL")
	_ = fs.Parse(argsReorder(os.Args[3:], nil))
	if *serverURL == "" {
		fatalf("inbox commands need a running server (--server)")
	}
	client := cli.NewClient(*serverURL)
	ctx, stop := signalContext()
	defer stop()

	switch sub {
	case "list":
		dirs, err := client.InboxDirectories(ctx)
		if err != nil {
			fatalf("Failed to list inbox directories: %v", err)
		}
		if len(dirs) == 0 {
			fmt.Println("No inbox directories.")
			return
		}
		for _, d := range dirs {
			fmt.Println(d)
		}
	case "add", "remove":
		if fs.NArg() != 1 {
			fatalf("Usage: shiori inbox %s [flags] <path>", sub)
		}
		path, err := filepath.Abs(fs.Arg(0))
		if err != nil {
			fatalf("Invalid path: %v", err)
		}
		if sub == "add" {
			if err := client.AddInboxDirectory(ctx, path); err != nil {
				fatalf("Failed to add inbox directory: %v", err)
			}
			fmt.Printf("Watching %s\n", path)
			return
		}
		if err := client.RemoveInboxDirectory(ctx, path); err != nil {
			fatalf("Failed to remove inbox directory: %v", err)
		}
		fmt.Printf("Stopped watching %s\n", path)
	default:
		fatalf("Unknown inbox command: %s (use add, remove or list)", sub)
	}
}

func printUsage() {
	fmt.Println(`shiori - Personal knowledge base with retrieval-augmented answers

Usage:
  shiori server [flags]                  Start the HTTP server and inbox watcher
  shiori ingest [flags] <url|file|dir>   Fetch, chunk and store articles
  shiori ask [flags] <question>          Answer a question from stored articles
  shiori retrieve [flags] <query>        Show the chunks most similar to a query
  shiori articles [flags]                List or search stored articles
  shiori text [flags] <url>              Print the full text of an article
  shiori delete [flags] <url|file>       Remove an article
  shiori quiz [flags]                    Take a multiple-choice quiz on an article
  shiori status [flags]                  Show knowledge base status
  shiori inbox <add|remove|list> [path]  Manage watched inbox directories
  shiori version                         Show version
  shiori help                            Show this help

Server Flags:
  --config string    Config file path (default: /usr/local/etc/shiori/config.yaml)
  --debug            Enable debug logging

Client Flags (all commands except server and inbox):
  --config string    Config file path (direct mode)
  --server string    Server URL (default: http://localhost:8080). Use --server "" to open the knowledge base directly.
  --output string    Output format: text or json (default: text)

Command Flags:
  ingest   --recursive        Descend into subdirectories (default: true, direct mode)
  ask      --no-expand        Skip query expansion
  retrieve --k int            Number of chunks (default from config)
  articles --query string     Search titles and summaries
           --limit int        Maximum number of articles

Examples:
  shiori server
  shiori ingest https://habr.com/ru/articles/123456/
  shiori ingest ~/Documents/paper.pdf
  shiori ask "how does the Go scheduler work"
  shiori articles --query scheduler
  shiori quiz --server ""
  shiori inbox add ~/Inbox`)
}
