package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/afero"

	"github.com/camdumpdb/internal/cache"
	"github.com/camdumpdb/internal/concurrent"
	"github.com/camdumpdb/internal/config"
	"github.com/camdumpdb/internal/logging"
	"github.com/camdumpdb/internal/models"
	"github.com/camdumpdb/internal/parser"
	"github.com/camdumpdb/internal/search"
	"github.com/camdumpdb/internal/source"
	"github.com/camdumpdb/internal/storage"
	"github.com/camdumpdb/internal/textenc"
	"github.com/camdumpdb/internal/version"
)

// Exit codes
const (
	exitOK         = 0
	exitFailure    = 1
	exitNoProvider = 2
)

type options struct {
	path        string
	output      string
	recursive   bool
	concurrent  bool
	workers     int
	search      string
	interactive bool
	encoding    textenc.Encoding
	verbose     bool
}

func main() {
	os.Exit(run())
}

func run() int {
	// Command line flags
	var (
		configPath  = flag.String("config", "config.yaml", "Path to configuration file")
		path        = flag.String("path", "", "Dump file or directory (default from config, test.txt)")
		output      = flag.String("output", "", "Output JSON file, directory in batch mode, - for stdout (default output.json)")
		recursive   = flag.Bool("recursive", false, "Scan directories recursively")
		concurrentF = flag.Bool("concurrent", false, "Parse a directory of dumps concurrently")
		workers     = flag.Int("workers", 0, "Number of concurrent workers (default from config)")
		searchTerm  = flag.String("search", "", "Only output fields matching this term")
		interactive = flag.Bool("interactive", false, "Open an interactive search shell after parsing")
		encodingF   = flag.String("encoding", "", "Input encoding: auto, utf-8, utf-16le, utf-16be, windows-1252, iso-8859-1")
		verbose     = flag.Bool("verbose", false, "Verbose output with diagnostics")
		showVersion = flag.Bool("version", false, "Show version information")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("CamDumpDB Parser %s\n", version.GetFullVersionInfo())
		return exitOK
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		return exitFailure
	}

	opts := options{
		path:        firstNonEmpty(*path, cfg.Parser.Input),
		output:      firstNonEmpty(*output, cfg.Parser.Output),
		recursive:   *recursive || cfg.Parser.Recursive,
		concurrent:  *concurrentF,
		workers:     cfg.Parser.Workers,
		search:      *searchTerm,
		interactive: *interactive,
		verbose:     *verbose,
	}
	if *workers > 0 {
		opts.workers = *workers
	}
	opts.encoding, err = textenc.ParseEncoding(firstNonEmpty(*encodingF, cfg.Parser.Encoding))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return exitFailure
	}

	// Logs go to stderr so stdout stays clean for "-output -"
	logCfg := cfg.ParserLogging
	logCfg.Stderr = true
	if opts.verbose {
		logCfg.Level = "debug"
	}
	if err := logging.Initialize(&logCfg); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logging: %v\n", err)
		return exitFailure
	}
	defer logging.GetLogger().Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := storage.Open(cfg.Storage)
	if err != nil {
		logging.Error("Failed to initialize storage", slog.String("type", cfg.Storage.Type), logging.Err(err))
		return exitFailure
	}
	if store != nil {
		defer store.Close()
		logging.Debug("Storage initialized", slog.String("type", cfg.Storage.Type))
	}

	reportCache, err := cache.New(cfg.Cache)
	if err != nil {
		logging.Error("Failed to initialize BadgerCache", logging.Err(err))
		return exitFailure
	}
	if reportCache != nil {
		defer reportCache.Close()
	}

	fs := afero.NewOsFs()
	info, err := fs.Stat(opts.path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: cannot read input %s: %v\n", opts.path, err)
		return exitFailure
	}

	procOpts := concurrent.Options{
		Workers:       opts.workers,
		BatchSize:     cfg.Parser.BatchSize,
		Encoding:      opts.encoding,
		SkipProcessed: cfg.Storage.SkipProcessed,
		Verbose:       opts.verbose,
	}

	if info.IsDir() || opts.concurrent {
		if opts.interactive {
			fmt.Fprintln(os.Stderr, "Error: -interactive works on a single dump")
			return exitFailure
		}
		return runBatch(ctx, fs, store, reportCache, procOpts, opts, cfg.Parser)
	}
	return runSingle(ctx, fs, store, reportCache, procOpts, opts, cfg.Parser.Indent)
}

// runSingle parses one dump and writes its report, or its search result, to
// the output file.
func runSingle(ctx context.Context, fs afero.Fs, store storage.Operations, rc *cache.ReportCache,
	procOpts concurrent.Options, opts options, indent int) int {
	procOpts.Workers = 1
	procOpts.SkipProcessed = false
	procOpts.Quiet = true
	procOpts.Output = os.Stderr
	proc := concurrent.New(fs, store, rc, procOpts)

	var result concurrent.Result
	proc.OnResult(func(r concurrent.Result) error {
		result = r
		return nil
	})

	if _, err := proc.ProcessFiles(ctx, []string{opts.path}); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return exitFailure
	}

	res := result.Parse
	if opts.verbose {
		printDiagnostics(os.Stderr, res, result.Cached)
	}
	if res.Report == nil {
		fmt.Fprintf(os.Stderr, "Error: %s: %v (%d lines read)\n", opts.path, parser.ErrNoProvider, res.LinesRead)
		return exitNoProvider
	}

	var incomplete *parser.IncompleteError
	if errors.As(res.Err(), &incomplete) {
		logging.Warn("Dump ended before all devices were read",
			logging.File(opts.path),
			logging.Count("declared", incomplete.Declared),
			logging.Count("processed", incomplete.Processed))
	}

	if err := writeJSON(fs, opts.output, outputValue(res.Report, opts.search), indent); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return exitFailure
	}
	if opts.output != "-" {
		fmt.Fprintf(os.Stderr, "Wrote %d devices from %s to %s\n", len(res.Report.Devices), opts.path, opts.output)
	}

	if opts.interactive {
		if err := runShell(res, os.Stdout); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return exitFailure
		}
	}
	return exitOK
}

// runBatch parses every dump under the input path and writes one JSON file
// per report into the output directory.
func runBatch(ctx context.Context, fs afero.Fs, store storage.Operations, rc *cache.ReportCache,
	procOpts concurrent.Options, opts options, parserCfg config.ParserConfig) int {
	files, err := source.FindDumpFiles(fs, opts.path, opts.recursive, parserCfg.Extensions)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return exitFailure
	}
	if len(files) == 0 {
		fmt.Fprintf(os.Stderr, "No dump files found in: %s\n", opts.path)
		return exitFailure
	}

	outDir := batchOutputDir(opts.output)
	if outDir != "-" {
		if err := fs.MkdirAll(outDir, 0755); err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to create output directory: %v\n", err)
			return exitFailure
		}
	}

	// stdout carries only the reports with -output -
	procOpts.Output = os.Stderr

	fmt.Fprintf(os.Stderr, "Found %d dump files, using %d workers\n", len(files), procOpts.Workers)
	if opts.verbose {
		for i, file := range files {
			fmt.Fprintf(os.Stderr, "  %d: %s\n", i+1, filepath.Base(file))
		}
	}

	proc := concurrent.New(fs, store, rc, procOpts)
	proc.OnResult(func(r concurrent.Result) error {
		if r.Error != nil || r.Skipped || r.Parse.Report == nil {
			return nil
		}
		target := "-"
		if outDir != "-" {
			target = filepath.Join(outDir, source.ReportName(r.FilePath)+".json")
		}
		return writeJSON(fs, target, outputValue(r.Parse.Report, opts.search), parserCfg.Indent)
	})

	start := time.Now()
	summary, err := proc.ProcessFiles(ctx, files)
	if summary != nil {
		fmt.Fprintf(os.Stderr, "Processing time: %v\n", time.Since(start).Round(time.Millisecond))
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return exitFailure
	}
	if summary.NoProvider == summary.Files {
		return exitNoProvider
	}
	return exitOK
}

// batchOutputDir maps the output flag to a directory: "reports.json" becomes
// "reports".
func batchOutputDir(output string) string {
	if strings.EqualFold(filepath.Ext(output), ".json") {
		return strings.TrimSuffix(output, filepath.Ext(output))
	}
	return output
}

func outputValue(report *models.Report, term string) any {
	if term == "" {
		return report
	}
	return search.Filter(report, term)
}

// writeJSON writes v to path, or to stdout for "-".
func writeJSON(fs afero.Fs, path string, v any, indent int) error {
	if path == "-" {
		return models.EncodeJSON(os.Stdout, v, indent)
	}

	f, err := fs.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := models.EncodeJSON(f, v, indent); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}

func printDiagnostics(w io.Writer, res *parser.Result, cached bool) {
	if cached {
		fmt.Fprintf(w, "Loaded from cache (%d lines, diagnostics not cached)\n", res.LinesRead)
		return
	}
	fmt.Fprintf(w, "Read %d lines (%s) in %v, %d diagnostics\n",
		res.LinesRead, res.Encoding, res.Duration.Round(time.Microsecond), len(res.Diagnostics))
	for _, d := range res.Diagnostics {
		fmt.Fprintf(w, "  %s\n", d)
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
