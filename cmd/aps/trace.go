package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"gopkg.in/urfave/cli.v1"

	"github.com/drumondpe/APS-LogComp/pkg/evaluator"
)

// traceWriter streams trace events to a file, one JSON object per line.
type traceWriter struct {
	f   *os.File
	buf *bufio.Writer
	enc *json.Encoder
	err error
}

func createTraceWriter(path string) (*traceWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	buf := bufio.NewWriter(f)
	return &traceWriter{f: f, buf: buf, enc: json.NewEncoder(buf)}, nil
}

// Write records ev. The first error is kept and reported by Close.
func (w *traceWriter) Write(ev evaluator.TraceEvent) {
	if w.err != nil {
		return
	}
	w.err = w.enc.Encode(ev)
}

func (w *traceWriter) Close() error {
	if err := w.buf.Flush(); err != nil && w.err == nil {
		w.err = err
	}
	if err := w.f.Close(); err != nil && w.err == nil {
		w.err = err
	}
	return w.err
}

// TraceSummary aggregates the events of one trace file.
type TraceSummary struct {
	RunID       string         `json:"runId"`
	TotalEvents int            `json:"totalEvents"`
	Statements  int            `json:"statements"`
	Calls       int            `json:"calls"`
	CallsByName map[string]int `json:"callsByName"`
	Loops       int            `json:"loops"`
	Iterations  int64          `json:"iterations"`
	Reads       int            `json:"reads"`
	Prints      int            `json:"prints"`
	Completed   bool           `json:"completed"`
	StartTime   string         `json:"startTime,omitempty"`
	EndTime     string         `json:"endTime,omitempty"`
	DurationMs  float64        `json:"durationMs"`
	Invalid     int            `json:"invalidLines,omitempty"`
}

func computeTraceSummary(r io.Reader) (*TraceSummary, error) {
	summary := &TraceSummary{
		CallsByName: make(map[string]int),
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var event evaluator.TraceEvent
		if err := json.Unmarshal([]byte(line), &event); err != nil {
			summary.Invalid++
			continue
		}

		summary.TotalEvents++
		if summary.RunID == "" {
			summary.RunID = event.RunID
		}

		switch event.Event {
		case evaluator.TraceRunStart:
			if summary.StartTime == "" {
				summary.StartTime = event.Timestamp
			}
		case evaluator.TraceRunEnd:
			summary.EndTime = event.Timestamp
			summary.Completed = true
			if n, err := strconv.ParseInt(event.Data["iterations"], 10, 64); err == nil {
				summary.Iterations = n
			}
		case evaluator.TraceStmtStart:
			summary.Statements++
		case evaluator.TraceFnCallStart:
			summary.Calls++
			if name := event.Data["fn"]; name != "" {
				summary.CallsByName[name]++
			}
		case evaluator.TraceLoopStart:
			summary.Loops++
		case evaluator.TraceRead:
			summary.Reads++
		case evaluator.TracePrint:
			summary.Prints++
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	if summary.StartTime != "" && summary.EndTime != "" {
		start, err1 := parseTime(summary.StartTime)
		end, err2 := parseTime(summary.EndTime)
		if err1 == nil && err2 == nil {
			summary.DurationMs = float64(end.Sub(start).Microseconds()) / 1000
		}
	}
	return summary, nil
}

func printTraceSummaryText(w io.Writer, s *TraceSummary) {
	fmt.Fprintf(w, "Run: %s\n", s.RunID)
	fmt.Fprintf(w, "Events: %d\n", s.TotalEvents)
	fmt.Fprintf(w, "Statements: %d\n", s.Statements)
	fmt.Fprintf(w, "Loops: %d (%d iterations)\n", s.Loops, s.Iterations)
	fmt.Fprintf(w, "I/O: %d reads, %d prints\n", s.Reads, s.Prints)
	if !s.Completed {
		fmt.Fprintln(w, "Status: incomplete (no run_end event)")
	}
	if s.DurationMs > 0 {
		fmt.Fprintf(w, "Duration: %.3fms\n", s.DurationMs)
	}
	fmt.Fprintf(w, "Calls: %d\n", s.Calls)
	if len(s.CallsByName) == 0 {
		return
	}

	names := make([]string, 0, len(s.CallsByName))
	for name := range s.CallsByName {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		ci, cj := s.CallsByName[names[i]], s.CallsByName[names[j]]
		if ci != cj {
			return ci > cj
		}
		return names[i] < names[j]
	})
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Function", "Calls"})
	for _, name := range names {
		table.Append([]string{name, strconv.Itoa(s.CallsByName[name])})
	}
	table.Render()
}

func traceAction(ctx *cli.Context) error {
	if ctx.NArg() == 0 {
		return usageError("trace <file.ndjson> [--json]")
	}
	if err := setup(ctx); err != nil {
		return err
	}
	file := ctx.Args().First()
	f, err := os.Open(file)
	if err != nil {
		return report(ioError(fmt.Sprintf("cannot read file: %s", file), err))
	}
	defer f.Close()

	summary, err := computeTraceSummary(f)
	if err != nil {
		return report(ioError(fmt.Sprintf("cannot read file: %s", file), err))
	}
	if ctx.Bool("json") {
		b, _ := json.Marshal(summary)
		fmt.Fprintln(stdout, string(b))
		return nil
	}
	printTraceSummaryText(stdout, summary)
	return nil
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err == nil {
		return t, nil
	}
	t, err = time.Parse(time.RFC3339, s)
	if err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("cannot parse time: %s", s)
}
