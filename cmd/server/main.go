package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/afero"

	"github.com/camdumpdb/internal/api"
	"github.com/camdumpdb/internal/cache"
	"github.com/camdumpdb/internal/catalog"
	"github.com/camdumpdb/internal/config"
	"github.com/camdumpdb/internal/logging"
	"github.com/camdumpdb/internal/textenc"
	"github.com/camdumpdb/internal/version"
	"github.com/camdumpdb/internal/web"
)

func main() {
	// Command line flags
	var (
		configPath  = flag.String("config", "config.yaml", "Path to configuration file")
		port        = flag.Int("port", 0, "HTTP server port (overrides config)")
		host        = flag.String("host", "", "HTTP server host (overrides config)")
		dumpsDir    = flag.String("dumps", "", "Directory of dumpsys captures (overrides config)")
		showVersion = flag.Bool("version", false, "Show version information")
	)
	flag.Parse()

	// Handle version flag
	if *showVersion {
		fmt.Printf("CamDumpDB Server %s\n", version.GetFullVersionInfo())
		os.Exit(0)
	}

	// Load configuration first
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}
	if *host != "" {
		cfg.Server.Host = *host
	}
	if *dumpsDir != "" {
		cfg.Server.DumpsDir = *dumpsDir
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logging from configuration (using server-specific logging config)
	if err := logging.Initialize(&cfg.ServerLogging); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logging: %v\n", err)
		os.Exit(1)
	}

	logging.Info("CamDumpDB server starting",
		slog.String("version", version.GetFullVersionInfo()),
		slog.String("config", *configPath))

	encoding, err := textenc.ParseEncoding(cfg.Parser.Encoding)
	if err != nil {
		logging.Fatalf("Invalid parser encoding: %v", err)
	}

	// Initialize cache if enabled
	reportCache, err := cache.New(cfg.Cache)
	if err != nil {
		logging.Fatalf("Failed to initialize BadgerCache: %v", err)
	}
	if reportCache != nil {
		defer reportCache.Close()
		logging.Info("BadgerCache initialized successfully",
			slog.String("path", cfg.Cache.Path),
			slog.Bool("in_memory", cfg.Cache.InMemory),
			slog.Int("memory_mb", cfg.Cache.MaxMemoryMB),
			slog.Duration("report_ttl", cfg.Cache.ReportTTL))
	} else {
		logging.Info("Cache is disabled")
	}

	fs := afero.NewReadOnlyFs(afero.NewOsFs())
	reports := catalog.New(fs, cfg.Server.DumpsDir, catalog.Options{
		Recursive:  cfg.Server.Recursive,
		Extensions: cfg.Parser.Extensions,
		Encoding:   encoding,
		Cache:      reportCache,
		Logger:     logging.Component("catalog"),
	})

	apiServer := api.New(reports)
	apiServer.SetIndent(cfg.Parser.Indent)
	apiServer.SetHealthChecker(&serverHealthChecker{
		dumpsDir:  cfg.Server.DumpsDir,
		catalog:   reports,
		cache:     reportCache,
		startTime: time.Now(),
	})

	mux := http.NewServeMux()
	mux.Handle("/api/", apiServer.SetupRouter())
	web.New(reports, web.TemplatesFS, web.StaticFS).SetupRoutes(mux)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           api.LoggingMiddleware(mux),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       120 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logging.Info("Server starting",
			slog.String("address", "http://"+addr),
			slog.String("dumps_dir", cfg.Server.DumpsDir))
		logging.Info("Available endpoints:")
		logging.Infof("    http://%s/                                - Dump index", addr)
		logging.Infof("    http://%s/reports/{name}                  - Report viewer", addr)
		logging.Infof("    http://%s/api/health                      - API health check", addr)
		logging.Infof("    http://%s/api/reports                     - List dumps", addr)
		logging.Infof("    http://%s/api/reports/{name}              - Parsed report", addr)
		logging.Infof("    http://%s/api/reports/{name}/devices/{id} - One device", addr)
		logging.Infof("    http://%s/api/reports/{name}/search?q=    - Search fields", addr)

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.Fatalf("Server failed to start: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logging.Info("Server shutting down")

	// Graceful HTTP server shutdown with 15s deadline
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logging.Error("Graceful shutdown timed out, forcing close", logging.Err(err))
		if err := server.Close(); err != nil {
			logging.Error("Server force close error", logging.Err(err))
		}
	}

	logging.Info("Server stopped")
}
