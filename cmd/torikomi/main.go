// Package main is the Torikomi CLI entry point.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/tmc/langchaingo/llms/ollama"
	"go.uber.org/zap"
	drive "google.golang.org/api/drive/v3"
	"google.golang.org/api/option"

	"github.com/hyperjump/torikomi/internal/config"
	"github.com/hyperjump/torikomi/internal/embedding"
	"github.com/hyperjump/torikomi/internal/ingest"
	"github.com/hyperjump/torikomi/internal/keyword"
	"github.com/hyperjump/torikomi/internal/processor"
	"github.com/hyperjump/torikomi/internal/progress"
	"github.com/hyperjump/torikomi/internal/rag"
	"github.com/hyperjump/torikomi/internal/resolver"
	"github.com/hyperjump/torikomi/internal/search"
	"github.com/hyperjump/torikomi/internal/server"
	"github.com/hyperjump/torikomi/internal/vector"
	"github.com/hyperjump/torikomi/internal/watcher"
	"github.com/hyperjump/torikomi/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/torikomi/config.yaml"

const defaultServerURL = "http://localhost:8080"

// loadConfig loads config from path. When path is the default, a config.yaml
// in the current directory takes precedence so running from the project dir
// picks up the project's config.
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
	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "ingest":
		runIngest()
	case "search":
		runSearch()
	case "ask":
		runAsk()
	case "progress":
		runProgress()
	case "flush":
		runFlush()
	case "version", "--version", "-v":
		fmt.Printf("torikomi version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Print(`Torikomi - document ingestion and hybrid retrieval engine

Usage: torikomi <command> [flags]

Commands:
  server     Start the HTTP API server
  ingest     Ingest documents or a folder into the stores
  search     Hybrid search over ingested chunks
  ask        Ask a question grounded in ingested documents
  progress   Show current ingestion progress
  flush      Delete both store collections and reset progress
  version    Print version
  help       Show this help
`)
}

// components bundles everything the server and direct-mode commands need.
type components struct {
	keyword      *keyword.Store
	vector       *vector.QdrantStore
	tracker      *progress.Tracker
	orchestrator *ingest.Orchestrator
	merger       *search.Merger
	rag          *rag.Service
}

func (c *components) Close() {
	if c.keyword != nil {
		_ = c.keyword.Close()
	}
	if c.vector != nil {
		_ = c.vector.Close()
	}
}

func initializeComponents(cfg *config.Config, logger *zap.Logger) (*components, error) {
	embedder, err := embedding.NewOllamaEmbedder(cfg.Ollama.URL, cfg.Ollama.EmbedModel)
	if err != nil {
		return nil, fmt.Errorf("init embedder: %w", err)
	}

	kw, err := keyword.NewStore(cfg.Stores.BleveIndexPath)
	if err != nil {
		return nil, fmt.Errorf("init keyword store: %w", err)
	}
	vec, err := vector.NewQdrantStore(vector.QdrantConfig{
		Host:       cfg.Stores.Qdrant.Host,
		Port:       cfg.Stores.Qdrant.Port,
		Collection: cfg.Stores.Qdrant.Collection,
		VectorSize: cfg.Stores.Qdrant.VectorSize,
		UseTLS:     cfg.Stores.Qdrant.UseTLS,
	}, embedder)
	if err != nil {
		_ = kw.Close()
		return nil, fmt.Errorf("init vector store: %w", err)
	}

	tracker := progress.NewTracker(
		progress.WithLogger(logger),
		progress.WithTTL(time.Duration(cfg.Progress.TTLMinutes)*time.Minute),
	)
	proc := processor.NewProcessor(
		cfg.Ingest.MaxChunkSize,
		cfg.Ingest.ChunkOverlap,
		embedder,
		processor.WithLogger(logger),
	)
	registry := resolver.NewRegistry(resolver.NewLocalResolver())
	if creds := os.Getenv("TORIKOMI_GDRIVE_CREDENTIALS"); creds != "" {
		srv, err := drive.NewService(context.Background(), option.WithCredentialsFile(creds))
		if err != nil {
			logger.Warn("google drive unavailable", zap.Error(err))
		} else {
			registry.Register(resolver.NewGoogleDriveResolver(srv))
		}
	}
	if token := os.Getenv("TORIKOMI_ONEDRIVE_TOKEN"); token != "" {
		registry.Register(resolver.NewOneDriveResolver(nil, token))
	}
	if token := os.Getenv("TORIKOMI_DROPBOX_TOKEN"); token != "" {
		registry.Register(resolver.NewDropboxResolver(nil, token))
	}

	orch := ingest.NewOrchestrator(kw, vec, registry, proc, tracker, ingest.WithLogger(logger))
	merger := search.NewMerger(kw, vec, search.WithLogger(logger))

	var ragService *rag.Service
	if cfg.Ollama.ChatModel != "" {
		llm, err := ollama.New(ollama.WithServerURL(cfg.Ollama.URL), ollama.WithModel(cfg.Ollama.ChatModel))
		if err != nil {
			logger.Warn("chat model unavailable, ask endpoint disabled", zap.Error(err))
		} else {
			ragService = rag.NewService(merger, llm, cfg.Search.DefaultLimit, rag.WithLogger(logger))
		}
	}

	return &components{
		keyword:      kw,
		vector:       vec,
		tracker:      tracker,
		orchestrator: orch,
		merger:       merger,
		rag:          ragService,
	}, nil
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Debug || *debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", debugMode),
	)

	comps, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer comps.Close()

	watchCtx, watchCancel := context.WithCancel(context.Background())
	defer watchCancel()
	if len(cfg.Watch.Directories) > 0 {
		watchSvc := watcher.NewWatcher(
			cfg.Watch.Directories,
			cfg.Watch.RecursiveOrDefault(),
			func(path string) {
				if _, err := comps.orchestrator.IngestDocuments(context.Background(), []string{path}); err != nil {
					logger.Warn("watch ingest failed", zap.String("path", path), zap.Error(err))
				}
			},
			func(path string) {
				abs, err := filepath.Abs(path)
				if err != nil {
					abs = path
				}
				ctx := context.Background()
				if err := comps.keyword.DeleteByIdentity(ctx, abs); err != nil {
					logger.Warn("watch delete failed", zap.String("path", abs), zap.Error(err))
				}
				if err := comps.vector.DeleteByIdentity(ctx, abs); err != nil {
					logger.Warn("watch delete failed", zap.String("path", abs), zap.Error(err))
				}
			},
			watcher.WithLogger(logger),
		)
		if err := watchSvc.Start(watchCtx); err != nil {
			logger.Fatal("Failed to start watcher", zap.Error(err))
		}
		defer watchSvc.Stop()
	}

	srv := server.NewServer(comps.orchestrator, comps.merger, comps.rag, comps.tracker, cfg, logger)
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	watchCancel()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(ctx)
}

func runIngest() {
	fs := flag.NewFlagSet("ingest", flag.ExitOnError)
	serverURL := fs.String("server", defaultServerURL, "server URL")
	folder := fs.String("folder", "", "ingest every supported document under this folder")
	_ = fs.Parse(os.Args[2:])

	if *folder != "" {
		abs, err := filepath.Abs(*folder)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Invalid folder path: %v\n", err)
			os.Exit(1)
		}
		result, err := postJSON(*serverURL+"/api/v1/ingest/folder", map[string]string{"path": abs})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Ingest failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(result)
		return
	}

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: torikomi ingest [flags] <document>...")
		os.Exit(1)
	}
	docs := make([]string, 0, fs.NArg())
	for _, arg := range fs.Args() {
		// Local paths travel to the server as absolute paths; scheme
		// references (gdrive://, onedrive://, dropbox://) pass through.
		if !strings.Contains(arg, "://") {
			if abs, err := filepath.Abs(arg); err == nil {
				arg = abs
			}
		}
		docs = append(docs, arg)
	}
	result, err := postJSON(*serverURL+"/api/v1/ingest", map[string]interface{}{"documents": docs})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Ingest failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(result)
}

func runSearch() {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	serverURL := fs.String("server", defaultServerURL, "server URL")
	limit := fs.Int("limit", 10, "number of results")
	_ = fs.Parse(os.Args[2:])

	query := strings.TrimSpace(strings.Join(fs.Args(), " "))
	if query == "" {
		fmt.Fprintln(os.Stderr, "Usage: torikomi search [flags] <query>")
		os.Exit(1)
	}
	result, err := postJSON(*serverURL+"/api/v1/search", map[string]interface{}{
		"query": query,
		"limit": *limit,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Search failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(result)
}

func runAsk() {
	fs := flag.NewFlagSet("ask", flag.ExitOnError)
	serverURL := fs.String("server", defaultServerURL, "server URL")
	_ = fs.Parse(os.Args[2:])

	question := strings.TrimSpace(strings.Join(fs.Args(), " "))
	if question == "" {
		fmt.Fprintln(os.Stderr, "Usage: torikomi ask [flags] <question>")
		os.Exit(1)
	}
	result, err := postJSON(*serverURL+"/api/v1/ask", map[string]string{"question": question})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Ask failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(result)
}

func runProgress() {
	fs := flag.NewFlagSet("progress", flag.ExitOnError)
	serverURL := fs.String("server", defaultServerURL, "server URL")
	_ = fs.Parse(os.Args[2:])

	resp, err := http.Get(*serverURL + "/api/v1/progress")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Progress request failed: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		fmt.Fprintf(os.Stderr, "Server returned %d: %s\n", resp.StatusCode, string(body))
		os.Exit(1)
	}
	fmt.Println(strings.TrimSpace(string(body)))
}

func runFlush() {
	fs := flag.NewFlagSet("flush", flag.ExitOnError)
	serverURL := fs.String("server", defaultServerURL, "server URL")
	_ = fs.Parse(os.Args[2:])

	req, err := http.NewRequest(http.MethodDelete, *serverURL+"/api/v1/index", nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Flush failed: %v\n", err)
		os.Exit(1)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Flush failed: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		fmt.Fprintf(os.Stderr, "Server returned %d: %s\n", resp.StatusCode, string(body))
		os.Exit(1)
	}
	fmt.Println(strings.TrimSpace(string(body)))
}

func postJSON(url string, payload interface{}) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("server returned %d: %s", resp.StatusCode, string(respBody))
	}
	return strings.TrimSpace(string(respBody)), nil
}
