package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"

	"github.com/camdumpdb/internal/models"
	"github.com/camdumpdb/internal/parser"
	"github.com/camdumpdb/internal/search"
)

const shellHelp = `Commands:
  <term>            search field names and values (same as "search <term>")
  search <term>     search and print the matching fields
  devices           list devices
  device <id>       print one device
  info              provider summary
  diagnostics       list parse diagnostics
  help              show this help
  exit, quit        leave the shell
`

// shell answers search commands against one parsed report.
type shell struct {
	res *parser.Result
	out *bufio.Writer
}

func newShell(res *parser.Result, w io.Writer) *shell {
	return &shell{res: res, out: bufio.NewWriter(w)}
}

// runShell reads commands with line editing and history until exit or EOF.
func runShell(res *parser.Result, w io.Writer) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "camdump> ",
		HistoryLimit:    100,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
		AutoComplete:    shellCompleter(res.Report),
	})
	if err != nil {
		return fmt.Errorf("failed to start shell: %w", err)
	}
	defer rl.Close()

	sh := newShell(res, rl.Stdout())
	fmt.Fprintf(w, "Loaded %s with %d devices. Type 'help' for commands.\n",
		res.Report.ProviderName, len(res.Report.Devices))

	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			if len(line) == 0 {
				fmt.Fprintln(w, "Use 'exit' or 'quit' to leave")
			}
			continue
		} else if errors.Is(err, io.EOF) {
			return nil
		} else if err != nil {
			return err
		}

		if sh.handle(line) {
			return nil
		}
	}
}

// handle runs one command line. It returns true when the shell should exit.
func (s *shell) handle(line string) bool {
	defer s.out.Flush()

	line = strings.TrimSpace(line)
	if line == "" {
		return false
	}
	cmd, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)

	switch strings.ToLower(cmd) {
	case "exit", "quit":
		fmt.Fprintln(s.out, "Goodbye!")
		return true
	case "help":
		fmt.Fprint(s.out, shellHelp)
	case "devices":
		s.devices()
	case "device":
		s.device(arg)
	case "info":
		s.info()
	case "diagnostics":
		s.diagnostics()
	case "search":
		s.search(arg)
	default:
		s.search(line)
	}
	return false
}

func (s *shell) devices() {
	for _, d := range s.res.Report.Devices {
		kind := "plain"
		fields := 0
		if d.IsLogicalCamera {
			kind = fmt.Sprintf("logical, %d physical", d.PhysicalCameraCount)
		}
		d.Blocks(func(_ string, block *models.FieldMap) {
			fields += block.Len()
		})
		fmt.Fprintf(s.out, "  %-12s %-24s %d fields\n", d.ID, kind, fields)
	}
}

func (s *shell) device(id string) {
	if id == "" {
		fmt.Fprintln(s.out, "Usage: device <id>")
		return
	}
	d := s.res.Report.Device(id)
	if d == nil {
		fmt.Fprintf(s.out, "No device %q\n", id)
		return
	}
	s.encode(d)
}

func (s *shell) info() {
	r := s.res.Report
	fmt.Fprintf(s.out, "Provider:    %s\n", r.ProviderName)
	fmt.Fprintf(s.out, "Devices:     %d of %d declared\n", len(r.Devices), r.DeviceCount)
	fmt.Fprintf(s.out, "Complete:    %v\n", r.Complete)
	fmt.Fprintf(s.out, "Lines read:  %d\n", s.res.LinesRead)
	if r.Metadata != nil {
		fmt.Fprintf(s.out, "Metadata:    %d fields\n", r.Metadata.Len())
	}
}

func (s *shell) diagnostics() {
	if len(s.res.Diagnostics) == 0 {
		fmt.Fprintln(s.out, "No diagnostics")
		return
	}
	for _, d := range s.res.Diagnostics {
		fmt.Fprintf(s.out, "  %s\n", d)
	}
}

func (s *shell) search(term string) {
	if term == "" {
		fmt.Fprintln(s.out, "Usage: search <term>")
		return
	}
	result := search.Filter(s.res.Report, term)
	if result.Total == 0 {
		fmt.Fprintf(s.out, "No fields match %q\n", term)
		return
	}
	s.encode(result.Report)
	for _, dm := range result.Devices {
		fmt.Fprintf(s.out, "  device %s: %d matches\n", dm.DeviceID, dm.Count)
	}
	if result.Metadata > 0 {
		fmt.Fprintf(s.out, "  metadata: %d matches\n", result.Metadata)
	}
	fmt.Fprintf(s.out, "%d matches\n", result.Total)
}

func (s *shell) encode(v any) {
	if err := models.EncodeJSON(s.out, v, 2); err != nil {
		fmt.Fprintf(s.out, "Error: %v\n", err)
	}
}

func shellCompleter(report *models.Report) *readline.PrefixCompleter {
	ids := make([]readline.PrefixCompleterInterface, 0, len(report.Devices))
	for _, id := range report.DeviceIDs() {
		ids = append(ids, readline.PcItem(id))
	}
	return readline.NewPrefixCompleter(
		readline.PcItem("search"),
		readline.PcItem("devices"),
		readline.PcItem("device", ids...),
		readline.PcItem("info"),
		readline.PcItem("diagnostics"),
		readline.PcItem("help"),
		readline.PcItem("exit"),
		readline.PcItem("quit"),
	)
}
