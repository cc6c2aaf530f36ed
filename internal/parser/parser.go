// Package parser extracts camera provider reports from dumpsys text.
package parser

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/camdumpdb/internal/models"
	"github.com/camdumpdb/internal/textenc"
)

// maxLineSize bounds a single dump line. Value lines of large lookup tables
// run to several hundred kilobytes.
const maxLineSize = 8 * 1024 * 1024

// Result is the outcome of one parse.
type Result struct {
	// Report is nil when no provider header was found.
	Report      *models.Report `json:"report"`
	State       State          `json:"state"`
	LinesRead   int            `json:"linesRead"`
	Diagnostics []Diagnostic   `json:"diagnostics,omitempty"`

	FilePath         string           `json:"filePath,omitempty"`
	Encoding         textenc.Encoding `json:"encoding,omitempty"`
	ProcessedDevices int              `json:"processedDevices"`
	Duration         time.Duration    `json:"-"`
}

// Err reports whether the parse produced a usable, complete report.
func (r *Result) Err() error {
	if r.Report == nil {
		return ErrNoProvider
	}
	if !r.Report.Complete {
		return &IncompleteError{Declared: r.Report.DeviceCount, Processed: r.ProcessedDevices}
	}
	return nil
}

// DiagnosticCount returns how many diagnostics of kind were recorded.
func (r *Result) DiagnosticCount(kind DiagnosticKind) int {
	n := 0
	for _, d := range r.Diagnostics {
		if d.Kind == kind {
			n++
		}
	}
	return n
}

// Parser turns dump text into Reports. A Parser holds configuration only, so
// one value may run any number of sequential parses; concurrent callers
// should use one Parser each.
type Parser struct {
	logger   *slog.Logger
	verbose  bool
	encoding textenc.Encoding
}

// Option configures a Parser.
type Option func(*Parser)

// WithLogger sets the logger that receives diagnostics at debug level.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Parser) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithVerbose enables progress output on stdout.
func WithVerbose(verbose bool) Option {
	return func(p *Parser) {
		p.verbose = verbose
	}
}

// WithEncoding forces the input encoding used by ParseFile and Parse.
func WithEncoding(enc textenc.Encoding) Option {
	return func(p *Parser) {
		p.encoding = enc
	}
}

// New creates a new parser instance
func New(opts ...Option) *Parser {
	p := &Parser{
		logger:   slog.Default(),
		encoding: textenc.Auto,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ParseLines runs the engine over already decoded lines.
func (p *Parser) ParseLines(lines []string) *Result {
	start := time.Now()
	e := newEngine(p.logger)
	for _, line := range lines {
		if !e.feed(line) {
			break
		}
	}
	return p.result(e, start)
}

// Parse reads UTF-8 (after encoding normalisation) lines from r until the
// provider section terminates or input runs out. Only read failures return
// an error; malformed content is reported through Result.
func (p *Parser) Parse(r io.Reader) (*Result, error) {
	start := time.Now()
	decoded, enc, err := textenc.NewReader(r, p.encoding)
	if err != nil {
		return nil, err
	}

	e := newEngine(p.logger)
	scanner := bufio.NewScanner(decoded)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)
	for scanner.Scan() {
		if !e.feed(scanner.Text()) {
			break
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read dump at line %d: %w", e.line+1, err)
	}

	res := p.result(e, start)
	res.Encoding = enc
	return res, nil
}

// ParseString is a convenience wrapper around ParseLines.
func (p *Parser) ParseString(text string) *Result {
	return p.ParseLines(strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n"))
}

// ParseFile parses a single dump file.
func (p *Parser) ParseFile(filePath string) (*Result, error) {
	if p.verbose {
		fmt.Printf("Parsing file: %s\n", filepath.Base(filePath))
	}

	file, err := os.Open(filePath)
	if err != nil {
		return nil, NewFileError(filePath, "open", fmt.Sprintf("failed to open %s", filePath), err)
	}
	defer file.Close()

	res, err := p.Parse(file)
	if err != nil {
		return nil, NewFileError(filePath, "read", err.Error(), err)
	}
	res.FilePath = filePath

	if p.verbose {
		p.printSummary(res)
	}
	return res, nil
}

func (p *Parser) result(e *engine, start time.Time) *Result {
	e.finish()
	res := &Result{
		Report:      e.report,
		State:       e.state,
		LinesRead:   e.line,
		Diagnostics: e.diags,
		Duration:    time.Since(start),
	}
	if e.report != nil {
		res.ProcessedDevices = e.ctx.ProcessedDevices
	}
	return res
}

func (p *Parser) printSummary(res *Result) {
	if res.Report == nil {
		fmt.Printf("  No camera provider found (%d lines)\n", res.LinesRead)
		return
	}
	fmt.Printf("  Provider %s: %d/%d devices, complete=%v, %d lines, %d diagnostics\n",
		res.Report.ProviderName, len(res.Report.Devices), res.Report.DeviceCount,
		res.Report.Complete, res.LinesRead, len(res.Diagnostics))
	for _, d := range res.Diagnostics {
		fmt.Printf("    %s\n", d)
	}
}
