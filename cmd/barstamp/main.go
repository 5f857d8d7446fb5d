// Package main is the barstamp CLI entry point.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/akvl/barstamp/internal/annotate"
	"github.com/akvl/barstamp/internal/cli"
	"github.com/akvl/barstamp/internal/config"
	"github.com/akvl/barstamp/internal/docid"
	"github.com/akvl/barstamp/internal/importer"
	"github.com/akvl/barstamp/internal/lookup"
	"github.com/akvl/barstamp/internal/models"
	"github.com/akvl/barstamp/internal/server"
	"github.com/akvl/barstamp/internal/store"
	"github.com/akvl/barstamp/internal/watcher"
	"github.com/akvl/barstamp/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/barstamp/config.yaml"

// loadConfig loads config from path. When path is the default, it first looks for
// config.yaml in the current directory (for development); if that exists it is used,
// so that "barstamp server" from the project dir uses the project's config.
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
	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "import":
		runImport()
	case "annotate":
		runAnnotate()
	case "find":
		runFind()
	case "records":
		runRecords()
	case "status":
		runStatus()
	case "watch":
		runWatch()
	case "version", "--version", "-v":
		fmt.Printf("barstamp version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging (watch events, imports, etc.)")
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

	components, err := initializeComponents(cfg, logger, debugMode)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	imp := components.Importer
	watchOpts := []watcher.WatcherOption{}
	if debugMode {
		watchOpts = append(watchOpts, watcher.WithLogger(logger))
	}
	watchSvc := watcher.NewWatcher(
		cfg.Watch.Directories,
		cfg.Watch.Extensions,
		cfg.Watch.RecursiveOrDefault(),
		func(path string) {
			if _, err := imp.ImportFile(context.Background(), path); err != nil {
				logger.Warn("watch import failed", zap.String("path", path), zap.Error(err))
			}
		},
		func(path string) {
			if err := dropSourceEntries(context.Background(), components, path); err != nil {
				logger.Warn("watch drop source entries failed", zap.String("path", path), zap.Error(err))
			}
		},
		watchOpts...,
	)
	watchCtx, watchCancel := context.WithCancel(context.Background())
	defer watchCancel()
	if err := watchSvc.Start(watchCtx); err != nil {
		logger.Fatal("Failed to start watcher", zap.Error(err))
	}
	watchSvc.SyncExistingFiles()

	srv := server.NewServer(
		components.Store,
		components.Finder,
		components.Index,
		components.Importer,
		components.Annotator,
		&cfg.Server,
		logger,
		watchSvc,
		resolvedConfigPath,
		cfg,
	)
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

// dropSourceEntries reacts to a spreadsheet disappearing from a watched inbox:
// its lookup entries and its import fingerprint are dropped, so find stops
// returning stale hits and a re-created file is re-read. The barcode records
// stay in the store; deleting them is always an explicit operation
// (records delete, DELETE /api/v1/records/{id}).
func dropSourceEntries(ctx context.Context, components *Components, path string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	recs, err := components.Store.ListRecordsBySource(ctx, absPath)
	if err != nil {
		return err
	}
	for _, rec := range recs {
		if err := components.Index.Delete(ctx, rec.DocumentID); err != nil {
			return err
		}
	}
	return components.Store.DeleteSourceFile(ctx, absPath)
}

func parseOutputFormat(name string) (cli.OutputFormat, error) {
	switch name {
	case "json":
		return cli.OutputJSON, nil
	case "text":
		return cli.OutputText, nil
	default:
		return "", fmt.Errorf("unknown output format %q; use text or json", name)
	}
}

func runImport() {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: barstamp import [flags] <file-or-directory>...")
		os.Exit(1)
	}
	format, err := parseOutputFormat(*outputFormat)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	components, err := initializeComponents(cfg, logger, cfg.Debug)
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	defer components.Close()

	ctx := context.Background()
	var files []string
	anyFailed := false
	for _, arg := range fs.Args() {
		info, err := os.Stat(arg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to stat %s: %v\n", arg, err)
			os.Exit(1)
		}
		if info.IsDir() {
			report, err := components.Importer.ImportDirectory(ctx, arg)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Import failed: %v\n", err)
				os.Exit(1)
			}
			if err := cli.WriteImportReport(os.Stdout, report, format); err != nil {
				fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
				os.Exit(1)
			}
			anyFailed = anyFailed || report.Failed > 0
			continue
		}
		files = append(files, arg)
	}
	if len(files) > 0 {
		report := components.Importer.ImportFiles(ctx, files)
		if err := cli.WriteImportReport(os.Stdout, report, format); err != nil {
			fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
			os.Exit(1)
		}
		anyFailed = anyFailed || report.Failed > 0
	}
	if anyFailed {
		os.Exit(1)
	}
}

func runAnnotate() {
	fs := flag.NewFlagSet("annotate", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	outputDir := fs.String("out", "", "output directory (overrides config annotate.output_dir)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: barstamp annotate [flags] <documents-directory>")
		os.Exit(1)
	}
	format, err := parseOutputFormat(*outputFormat)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	docsDir := fs.Arg(0)

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *outputDir != "" {
		cfg.Annotate.OutputDir = *outputDir
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	components, err := initializeComponents(cfg, logger, cfg.Debug)
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	defer components.Close()

	report, err := components.Annotator.Run(context.Background(), docsDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Annotate failed: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteAnnotateReport(os.Stdout, report, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
	if report.Failed > 0 {
		os.Exit(1)
	}
}

// buildFindQuery joins all positional args with spaces so multi-word queries
// work the same with or without shell quoting.
func buildFindQuery(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

func runFind() {
	fs := flag.NewFlagSet("find", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "http://localhost:8080", "server URL (empty = use direct storage when server is not running)")
	limit := fs.Int("limit", 10, "number of results")
	fuzzy := fs.Bool("fuzzy", false, "enable fuzzy matching for typo tolerance")
	fuzziness := fs.Int("fuzziness", 0, "fuzzy edit distance (0 = default)")
	outputFormat := fs.String("output", "text", "output format: text (human-readable) or json (parseable)")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: barstamp find [flags] <query>")
		os.Exit(1)
	}
	queryStr := buildFindQuery(fs.Args())
	if queryStr == "" {
		fmt.Println("Usage: barstamp find [flags] <query>")
		os.Exit(1)
	}
	format, err := parseOutputFormat(*outputFormat)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}

	query := &models.FindQuery{
		Query:     queryStr,
		Limit:     *limit,
		Fuzzy:     *fuzzy,
		Fuzziness: *fuzziness,
	}

	if *serverURL != "" {
		// Use HTTP API when server is running (avoids Bleve/SQLite lock conflict).
		response, err := findViaHTTP(*serverURL, query)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Find failed: %v\n", err)
			os.Exit(1)
		}
		if err := cli.WriteFindResults(os.Stdout, response, format); err != nil {
			fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
			os.Exit(1)
		}
		return
	}

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	components, err := initializeComponents(cfg, logger, cfg.Debug)
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	defer components.Close()

	response, err := components.Finder.Find(context.Background(), query)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Find failed: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteFindResults(os.Stdout, response, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func findViaHTTP(serverURL string, query *models.FindQuery) (*models.FindResponse, error) {
	body, err := json.Marshal(query)
	if err != nil {
		return nil, err
	}
	resp, err := http.Post(serverURL+"/api/v1/find", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	var response models.FindResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &response, nil
}

func runRecords() {
	if len(os.Args) < 3 {
		fmt.Println("Usage: barstamp records <list|get|delete> [args]")
		fmt.Println("  barstamp records list [--offset N] [--limit N]  List stored records")
		fmt.Println("  barstamp records get <document-id>              Show one record")
		fmt.Println("  barstamp records delete <document-id>           Delete a record")
		fmt.Println("  barstamp records delete --source <path>         Delete every record imported from a spreadsheet")
		os.Exit(1)
	}
	sub := os.Args[2]
	fs := flag.NewFlagSet("records", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	offset := fs.Int("offset", 0, "list offset")
	limit := fs.Int("limit", 50, "list limit")
	bySource := fs.Bool("source", false, "delete: treat the argument as a spreadsheet path and delete every record imported from it")
	_ = fs.Parse(os.Args[3:])

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	components, err := initializeComponents(cfg, logger, cfg.Debug)
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	defer components.Close()

	ctx := context.Background()
	switch sub {
	case "list":
		recs, err := components.Store.ListRecords(ctx, *offset, *limit)
		if err != nil {
			fmt.Fprintf(os.Stderr, "List failed: %v\n", err)
			os.Exit(1)
		}
		for _, rec := range recs {
			fmt.Printf("%-30s %-20s %s\n", rec.DocumentID, rec.Barcode, rec.SourceFile)
		}
	case "get":
		if fs.NArg() < 1 {
			fmt.Println("Usage: barstamp records get <document-id>")
			os.Exit(1)
		}
		rec, err := components.Store.GetRecord(ctx, docid.Normalize(fs.Arg(0)))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Get failed: %v\n", err)
			os.Exit(1)
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(rec)
	case "delete":
		if fs.NArg() < 1 {
			fmt.Println("Usage: barstamp records delete [--source] <document-id|spreadsheet-path>")
			os.Exit(1)
		}
		if *bySource {
			path, err := filepath.Abs(fs.Arg(0))
			if err != nil {
				fmt.Fprintf(os.Stderr, "Delete failed: %v\n", err)
				os.Exit(1)
			}
			recs, err := components.Store.ListRecordsBySource(ctx, path)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Delete failed: %v\n", err)
				os.Exit(1)
			}
			for _, rec := range recs {
				_ = components.Index.Delete(ctx, rec.DocumentID)
			}
			n, err := components.Store.DeleteRecordsBySource(ctx, path)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Delete failed: %v\n", err)
				os.Exit(1)
			}
			fmt.Printf("Deleted %d records from %s\n", n, path)
			return
		}
		id := docid.Normalize(fs.Arg(0))
		if err := components.Store.DeleteRecord(ctx, id); err != nil {
			fmt.Fprintf(os.Stderr, "Delete failed: %v\n", err)
			os.Exit(1)
		}
		_ = components.Index.Delete(ctx, id)
		fmt.Printf("Record deleted: %s\n", id)
	default:
		fmt.Printf("Unknown records subcommand: %s\n", sub)
		os.Exit(1)
	}
}

// statusConfigResponse holds configuration info returned by status.
type statusConfigResponse struct {
	DatabasePath    string `json:"database_path,omitempty"`
	LookupIndexPath string `json:"lookup_index_path,omitempty"`
	IDColumn        string `json:"id_column,omitempty"`
	BarcodeColumn   string `json:"barcode_column,omitempty"`
	Workers         int    `json:"workers,omitempty"`
}

// statusResponse is the shape of GET /api/v1/status response.
type statusResponse struct {
	Records         int64                 `json:"records"`
	LookupIndexSize uint64                `json:"lookup_index_size,omitempty"`
	DiskUsageBytes  *int64                `json:"disk_usage_bytes,omitempty"`
	Config          *statusConfigResponse `json:"config,omitempty"`
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "http://localhost:8080", "server URL (empty = use direct storage)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	var status statusResponse
	if *serverURL != "" {
		res, err := statusViaHTTP(*serverURL)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
			os.Exit(1)
		}
		status = *res
	} else {
		cfg, _, err := loadConfig(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
			os.Exit(1)
		}
		logger, err := utils.NewLogger(cfg.Debug)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
			os.Exit(1)
		}
		defer logger.Sync()
		components, err := initializeComponents(cfg, logger, cfg.Debug)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
			os.Exit(1)
		}
		defer components.Close()
		ctx := context.Background()
		recordCount, err := components.Store.CountRecords(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Count records failed: %v\n", err)
			os.Exit(1)
		}
		status = statusResponse{
			Records: recordCount,
			Config: &statusConfigResponse{
				DatabasePath:    cfg.Storage.DatabasePath,
				LookupIndexPath: cfg.Storage.LookupIndexPath,
				IDColumn:        cfg.Import.IDColumn,
				BarcodeColumn:   cfg.Import.BarcodeColumn,
				Workers:         cfg.Annotate.Workers,
			},
		}
		if n, err := components.Index.DocCount(); err == nil {
			status.LookupIndexSize = n
		}
		diskBytes, err := store.DiskUsageBytes(cfg.Storage.DatabasePath, cfg.Storage.LookupIndexPath)
		if err == nil {
			status.DiskUsageBytes = &diskBytes
		}
	}

	switch *outputFormat {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(status); err != nil {
			fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
			os.Exit(1)
		}
	case "text":
		fmt.Printf("records:            %d   # stored barcode records\n", status.Records)
		if status.LookupIndexSize > 0 {
			fmt.Printf("lookup_index_size:  %d   # entries in the find index\n", status.LookupIndexSize)
		}
		if status.DiskUsageBytes != nil {
			fmt.Printf("disk_usage_bytes:   %d   # database + index on disk\n", *status.DiskUsageBytes)
		}
		if status.Config != nil {
			fmt.Println()
			fmt.Println("# configuration")
			if status.Config.DatabasePath != "" {
				fmt.Printf("database_path:      %s\n", status.Config.DatabasePath)
			}
			if status.Config.LookupIndexPath != "" {
				fmt.Printf("lookup_index_path:  %s\n", status.Config.LookupIndexPath)
			}
			if status.Config.IDColumn != "" {
				fmt.Printf("id_column:          %s\n", status.Config.IDColumn)
			}
			if status.Config.BarcodeColumn != "" {
				fmt.Printf("barcode_column:     %s\n", status.Config.BarcodeColumn)
			}
			if status.Config.Workers > 0 {
				fmt.Printf("workers:            %d\n", status.Config.Workers)
			}
		}
	default:
		fmt.Fprintf(os.Stderr, "Unknown output format %q; use text or json\n", *outputFormat)
		os.Exit(1)
	}
}

func statusViaHTTP(serverURL string) (*statusResponse, error) {
	resp, err := http.Get(serverURL + "/api/v1/status")
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	var s statusResponse
	if err := json.NewDecoder(resp.Body).Decode(&s); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &s, nil
}

func runWatch() {
	if len(os.Args) < 3 {
		fmt.Println("Usage: barstamp watch <add|remove|list> [path]")
		fmt.Println("  barstamp watch add <path>     Add inbox directory to watch")
		fmt.Println("  barstamp watch remove <path>  Remove inbox directory from watch")
		fmt.Println("  barstamp watch list           List watched directories")
		os.Exit(1)
	}
	sub := os.Args[2]
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	serverURL := fs.String("server", "http://localhost:8080", "server URL")
	_ = fs.Parse(os.Args[3:])
	switch sub {
	case "add":
		if fs.NArg() < 1 {
			fmt.Println("Usage: barstamp watch add <path>")
			os.Exit(1)
		}
		path, _ := filepath.Abs(fs.Arg(0))
		body, _ := json.Marshal(map[string]interface{}{"path": path, "sync": true})
		resp, err := http.Post(*serverURL+"/api/v1/watch/directories", "application/json", bytes.NewReader(body))
		if err != nil {
			fmt.Printf("Request failed: %v\n", err)
			os.Exit(1)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusCreated {
			b, _ := io.ReadAll(resp.Body)
			fmt.Printf("Add failed (%d): %s\n", resp.StatusCode, string(b))
			os.Exit(1)
		}
		fmt.Printf("Added: %s\n", path)
	case "remove":
		if fs.NArg() < 1 {
			fmt.Println("Usage: barstamp watch remove <path>")
			os.Exit(1)
		}
		path, _ := filepath.Abs(fs.Arg(0))
		req, _ := http.NewRequest(http.MethodDelete, *serverURL+"/api/v1/watch/directories?path="+url.QueryEscape(path), nil)
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			fmt.Printf("Request failed: %v\n", err)
			os.Exit(1)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			b, _ := io.ReadAll(resp.Body)
			fmt.Printf("Remove failed (%d): %s\n", resp.StatusCode, string(b))
			os.Exit(1)
		}
		fmt.Printf("Removed: %s\n", path)
	case "list":
		resp, err := http.Get(*serverURL + "/api/v1/watch/directories")
		if err != nil {
			fmt.Printf("Request failed: %v\n", err)
			os.Exit(1)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			b, _ := io.ReadAll(resp.Body)
			fmt.Printf("List failed (%d): %s\n", resp.StatusCode, string(b))
			os.Exit(1)
		}
		var out struct {
			Directories []string `json:"directories"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			fmt.Printf("Parse failed: %v\n", err)
			os.Exit(1)
		}
		for _, d := range out.Directories {
			fmt.Println(d)
		}
	default:
		fmt.Printf("Unknown watch subcommand: %s\n", sub)
		os.Exit(1)
	}
}

// Components holds initialized services.
type Components struct {
	Store     store.Store
	Index     lookup.Index
	Finder    *lookup.Finder
	Importer  *importer.Importer
	Annotator *annotate.Annotator
}

func (c *Components) Close() {
	if c.Index != nil {
		_ = c.Index.Close()
	}
	if c.Store != nil {
		_ = c.Store.Close()
	}
}

func initializeComponents(cfg *config.Config, logger *zap.Logger, debug bool) (*Components, error) {
	st, err := store.NewSQLiteStore(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize store: %w", err)
	}

	idx, err := lookup.NewBleveIndex(cfg.Storage.LookupIndexPath)
	if err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("failed to initialize lookup index: %w", err)
	}

	impOpts := []importer.Option{}
	if debug && logger != nil {
		impOpts = append(impOpts, importer.WithLogger(logger))
	}
	imp := importer.NewImporter(st, idx, &cfg.Import, impOpts...)

	annOpts := []annotate.Option{}
	if debug && logger != nil {
		annOpts = append(annOpts, annotate.WithLogger(logger))
	}
	ann, err := annotate.NewAnnotator(st, annotate.NewPDFStamper(cfg.Annotate.Stamp), &cfg.Annotate, annOpts...)
	if err != nil {
		_ = idx.Close()
		_ = st.Close()
		return nil, fmt.Errorf("failed to initialize annotator: %w", err)
	}

	return &Components{
		Store:     st,
		Index:     idx,
		Finder:    lookup.NewFinder(idx, st),
		Importer:  imp,
		Annotator: ann,
	}, nil
}

func printUsage() {
	fmt.Println(`barstamp - barcode import and document stamping for accounting exports

Usage:
  barstamp server [flags]                Start the HTTP server (with inbox watching)
  barstamp import [flags] <path>...      Import spreadsheet exports (files or directories)
  barstamp annotate [flags] <dir>        Stamp stored barcodes onto the PDFs in <dir>
  barstamp find [flags] <query>          Look up records by document ID or barcode
  barstamp records <list|get|delete>     Inspect or delete stored records
  barstamp status [flags]                Show store/index status
  barstamp watch <add|remove|list>       Manage watched inbox directories
  barstamp version                       Show version
  barstamp help                          Show this help

Server Flags:
  --config string    Config file path (default: /usr/local/etc/barstamp/config.yaml)
  --debug            Enable debug logging (watch events, imports, etc.)

Import Flags:
  --config string    Config file path
  --output string    Output format: text or json (default: text)

Annotate Flags:
  --config string    Config file path
  --out string       Output directory (overrides config annotate.output_dir)
  --output string    Output format: text or json (default: text)

Find Flags:
  --config string    Config file path (for direct storage mode)
  --server string    Server URL (default: http://localhost:8080). Use empty (--server "") to use direct storage when server is not running.
  --limit int        Number of results (default: 10)
  --fuzzy            Enable fuzzy matching for typo tolerance (default: false)
  --output string    Output format: text or json (default: text)

Status Flags:
  --config string    Config file path (for direct storage mode)
  --server string    Server URL (default: http://localhost:8080). Use empty (--server "") for direct storage.
  --output string    Output format: text or json (default: text)

Watch Flags:
  --server string    Server URL (default: http://localhost:8080)

Examples:
  barstamp server
  barstamp import exports/august.xlsx
  barstamp import exports/
  barstamp annotate scans/ --out stamped/
  barstamp find 4600000000017
  barstamp find --fuzzy "inv 042"
  barstamp records list
  barstamp records delete INV-001
  barstamp records delete --source exports/august.xlsx
  barstamp status --output json
  barstamp watch add /srv/inbox
  barstamp watch list`)
}
