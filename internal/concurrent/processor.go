package concurrent

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/spf13/afero"

	"github.com/camdumpdb/internal/cache"
	"github.com/camdumpdb/internal/logging"
	"github.com/camdumpdb/internal/parser"
	"github.com/camdumpdb/internal/source"
	"github.com/camdumpdb/internal/storage"
	"github.com/camdumpdb/internal/textenc"
)

// Job represents a file processing job
type Job struct {
	FilePath string
	JobID    int
}

// Result represents the result of processing a job
type Result struct {
	JobID    int
	FilePath string
	Hash     string
	Parse    *parser.Result
	Cached   bool
	Skipped  bool
	Error    error
	Duration time.Duration
}

// Summary totals a ProcessFiles run.
type Summary struct {
	Files      int
	Parsed     int
	Cached     int
	Skipped    int
	Failed     int
	NoProvider int
	Incomplete int
	Stored     int
	Duration   time.Duration
}

// Options configures a Processor.
type Options struct {
	Workers       int
	BatchSize     int
	Encoding      textenc.Encoding
	SkipProcessed bool
	Verbose       bool
	// Quiet keeps progress, errors and diagnostics off Output; they go to
	// the component logger instead.
	Quiet bool
	// Output receives progress lines. Defaults to os.Stdout.
	Output io.Writer
}

// ResultHandler is called once per finished job, from a single goroutine.
type ResultHandler func(Result) error

// Processor manages concurrent dump processing
type Processor struct {
	fs       afero.Fs
	storage  storage.Operations
	cache    *cache.ReportCache
	opts     Options
	logger   *slog.Logger
	onResult ResultHandler

	outMu sync.Mutex
	out   io.Writer
}

// New creates a new concurrent processor. store and rc may be nil.
func New(fs afero.Fs, store storage.Operations, rc *cache.ReportCache, opts Options) *Processor {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.BatchSize < 1 {
		opts.BatchSize = 50
	}
	out := opts.Output
	if out == nil {
		out = os.Stdout
	}
	return &Processor{
		out:     out,
		fs:      fs,
		storage: store,
		cache:   rc,
		opts:    opts,
		logger:  logging.Component("processor"),
	}
}

// printf writes a progress line unless the processor is quiet.
func (p *Processor) printf(format string, args ...any) {
	if p.opts.Quiet {
		return
	}
	p.outMu.Lock()
	defer p.outMu.Unlock()
	fmt.Fprintf(p.out, format, args...)
}

// OnResult installs the per-result callback.
func (p *Processor) OnResult(fn ResultHandler) {
	p.onResult = fn
}

// ProcessFiles processes multiple files concurrently
func (p *Processor) ProcessFiles(ctx context.Context, filePaths []string) (*Summary, error) {
	summary := &Summary{Files: len(filePaths)}
	if len(filePaths) == 0 {
		return summary, nil
	}

	jobs := make(chan Job, len(filePaths))
	results := make(chan Result, len(filePaths))

	var wg sync.WaitGroup
	for i := 0; i < p.opts.Workers; i++ {
		wg.Add(1)
		go p.worker(ctx, i, jobs, results, &wg)
	}

	go func() {
		defer close(jobs)
		for i, filePath := range filePaths {
			select {
			case jobs <- Job{FilePath: filePath, JobID: i}:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	start := time.Now()
	err := p.collectResults(ctx, results, summary)
	summary.Duration = time.Since(start)
	if err != nil {
		return summary, err
	}
	if ctx.Err() != nil {
		return summary, ctx.Err()
	}
	if summary.Failed > 0 {
		return summary, fmt.Errorf("%d of %d dumps failed", summary.Failed, summary.Files)
	}
	return summary, nil
}

// worker processes jobs from the jobs channel
func (p *Processor) worker(ctx context.Context, workerID int, jobs <-chan Job, results chan<- Result, wg *sync.WaitGroup) {
	defer wg.Done()

	log := p.logger.With(logging.Worker(workerID))
	log.Debug("worker started")

	// one parser per worker, parse state never crosses goroutines
	workerParser := parser.New(
		parser.WithLogger(log),
		parser.WithEncoding(p.opts.Encoding),
	)

	for {
		select {
		case job, ok := <-jobs:
			if !ok {
				log.Debug("worker finished")
				return
			}

			result := p.processJob(ctx, job, workerParser)

			select {
			case results <- result:
			case <-ctx.Done():
				return
			}

		case <-ctx.Done():
			return
		}
	}
}

// processJob reads, looks up and parses a single dump
func (p *Processor) processJob(ctx context.Context, job Job, workerParser *parser.Parser) Result {
	start := time.Now()
	result := Result{JobID: job.JobID, FilePath: job.FilePath}

	p.printf("[Job %d] Processing: %s\n", job.JobID, job.FilePath)

	dump, err := source.ReadDump(p.fs, job.FilePath)
	if err != nil {
		result.Error = parser.NewFileError(job.FilePath, "read", err.Error(), err)
		result.Duration = time.Since(start)
		return result
	}
	result.Hash = dump.Hash

	if p.opts.SkipProcessed && p.storage != nil {
		processed, err := p.storage.IsReportProcessed(dump.Hash)
		if err != nil {
			p.logger.Warn("processed check failed", logging.File(job.FilePath), logging.Err(err))
		} else if processed {
			result.Skipped = true
			result.Duration = time.Since(start)
			return result
		}
	}

	if p.cache != nil {
		entry, ok, err := p.cache.Get(ctx, dump.Hash)
		if err != nil {
			p.logger.Warn("cache lookup failed", logging.File(job.FilePath), logging.Err(err))
		} else if ok {
			result.Parse = entry.Result(job.FilePath)
			result.Cached = true
			result.Duration = time.Since(start)
			return result
		}
	}

	res, err := workerParser.Parse(dump.Reader())
	if err != nil {
		result.Error = parser.NewFileError(job.FilePath, "parse", err.Error(), err)
		result.Duration = time.Since(start)
		return result
	}
	res.FilePath = job.FilePath
	result.Parse = res

	if p.cache != nil {
		if err := p.cache.Put(ctx, dump.Hash, cache.EntryFromResult(res)); err != nil {
			p.logger.Warn("cache store failed", logging.File(job.FilePath), logging.Err(err))
		}
	}

	result.Duration = time.Since(start)
	return result
}

// collectResults hands results to the callback and performs batch inserts
func (p *Processor) collectResults(ctx context.Context, results <-chan Result, summary *Summary) error {
	var batch []*storage.StoredReport
	batchCount := 0

	flush := func() error {
		if len(batch) == 0 || p.storage == nil {
			batch = nil
			return nil
		}
		batchCount++
		start := time.Now()
		if err := p.storage.InsertReports(batch); err != nil {
			return fmt.Errorf("failed to insert batch %d: %w", batchCount, err)
		}
		p.logger.Debug("batch inserted", logging.BatchSize(len(batch)), logging.Duration("insert", time.Since(start)))
		summary.Stored += len(batch)
		batch = nil
		return nil
	}

	for result := range results {
		switch {
		case result.Error != nil:
			summary.Failed++
			if p.opts.Quiet {
				p.logger.Error("processing failed", logging.File(result.FilePath), logging.Err(result.Error))
			} else {
				p.printf("ERROR processing %s: %v\n", result.FilePath, result.Error)
			}
		case result.Skipped:
			summary.Skipped++
			p.printf("[Job %d] Already stored, skipped\n", result.JobID)
		default:
			if result.Cached {
				summary.Cached++
			} else {
				summary.Parsed++
			}
			p.report(result, summary)

			if result.Parse.Report != nil && p.storage != nil {
				sr := storage.NewStoredReport(result.FilePath, result.Hash, result.Parse.Report)
				sr.LinesRead = result.Parse.LinesRead
				sr.DiagnosticCount = len(result.Parse.Diagnostics)
				batch = append(batch, sr)
			}
		}

		if p.onResult != nil {
			if err := p.onResult(result); err != nil {
				return err
			}
		}

		if len(batch) >= p.opts.BatchSize {
			if err := flush(); err != nil {
				return err
			}
		}
	}

	if err := flush(); err != nil {
		return err
	}

	p.printf("Concurrent processing complete: %d dumps, %d parsed, %d cached, %d skipped, %d stored, %d errors\n",
		summary.Files, summary.Parsed, summary.Cached, summary.Skipped, summary.Stored, summary.Failed)

	return nil
}

func (p *Processor) report(result Result, summary *Summary) {
	res := result.Parse
	switch {
	case res.Report == nil:
		summary.NoProvider++
		p.printf("[Job %d] No camera provider found\n", result.JobID)
	case !res.Report.Complete:
		summary.Incomplete++
		p.printf("[Job %d] Incomplete: %d/%d devices\n", result.JobID, res.ProcessedDevices, res.Report.DeviceCount)
	default:
		p.printf("[Job %d] ✓ Parsed %d devices\n", result.JobID, len(res.Report.Devices))
	}

	if !p.opts.Verbose {
		return
	}
	for _, d := range res.Diagnostics {
		if p.opts.Quiet {
			p.logger.Debug("diagnostic", logging.File(result.FilePath), slog.String("diagnostic", d.String()))
			continue
		}
		p.printf("    %s\n", d)
	}
}
