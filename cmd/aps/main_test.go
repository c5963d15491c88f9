package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/urfave/cli.v1"

	"github.com/drumondpe/APS-LogComp/pkg/config"
	"github.com/drumondpe/APS-LogComp/pkg/diagnostics"
	"github.com/drumondpe/APS-LogComp/pkg/evaluator"
	"github.com/drumondpe/APS-LogComp/pkg/runtime"
)

func TestReadSource(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ok.aps")
	require.NoError(t, os.WriteFile(path, []byte("IMPRIME 1;"), 0o644))

	src, name, err := readSource(path)
	require.NoError(t, err)
	assert.Equal(t, "IMPRIME 1;", src)
	assert.Equal(t, path, name)

	_, _, err = readSource(filepath.Join(dir, "missing.aps"))
	diags := runtime.Diagnostics(err)
	require.Len(t, diags, 1)
	assert.Equal(t, diagnostics.EIO, diags[0].Code)
	assert.Contains(t, diags[0].Message, "source file not found")
	assert.Equal(t, diagnostics.ExitUsage, diagnostics.ExitCode(diags[0].Code))
}

func TestTraceRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.ndjson")
	tw, err := createTraceWriter(path)
	require.NoError(t, err)

	var out bytes.Buffer
	rt := runtime.New(
		runtime.WithStdin(strings.NewReader("3\n")),
		runtime.WithStdout(&out),
		runtime.WithTrace(tw.Write),
		runtime.WithRunID("run-test"),
	)
	src := `
FUNCAO INT dobro(INT n) { RETORNA n * 2; }
INT x;
LEIA x;
PARA INT i DE 1 ATE x FACA IMPRIME dobro(i); FIMPARA
`
	_, err = rt.Run(context.Background(), src, "t.aps")
	require.NoError(t, err)
	require.NoError(t, tw.Close())
	assert.Equal(t, "2\n4\n6\n", out.String())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	s, err := computeTraceSummary(f)
	require.NoError(t, err)

	assert.Equal(t, "run-test", s.RunID)
	assert.True(t, s.Completed)
	assert.Equal(t, 3, s.Calls)
	assert.Equal(t, map[string]int{"dobro": 3}, s.CallsByName)
	assert.Equal(t, 1, s.Loops)
	assert.Equal(t, int64(3), s.Iterations)
	assert.Equal(t, 1, s.Reads)
	assert.Equal(t, 3, s.Prints)
	assert.Zero(t, s.Invalid)

	var text bytes.Buffer
	printTraceSummaryText(&text, s)
	assert.Contains(t, text.String(), "Run: run-test")
	assert.Contains(t, text.String(), "dobro")
}

func TestTraceSummary_SkipsInvalidLines(t *testing.T) {
	input := `{"ts":"2024-01-01T00:00:00Z","runId":"r","event":"run_start"}
not json

{"ts":"2024-01-01T00:00:00.5Z","runId":"r","event":"print","data":{"value":"1"}}
`
	s, err := computeTraceSummary(strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, 2, s.TotalEvents)
	assert.Equal(t, 1, s.Invalid)
	assert.Equal(t, 1, s.Prints)
	assert.False(t, s.Completed)
	assert.Zero(t, s.DurationMs)
}

func TestTraceWriter_EventShape(t *testing.T) {
	path := filepath.Join(t.TempDir(), "one.ndjson")
	tw, err := createTraceWriter(path)
	require.NoError(t, err)
	tw.Write(evaluator.TraceEvent{Timestamp: "2024-01-01T00:00:00Z", RunID: "r", Event: evaluator.TracePrint})
	require.NoError(t, tw.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, `{"ts":"2024-01-01T00:00:00Z","runId":"r","event":"print"}`+"\n", string(data))
}

func TestNewLogger(t *testing.T) {
	for _, format := range []string{"terminal", "logfmt", "json"} {
		l, err := newLogger(config.Log{Level: "debug", Format: format})
		require.NoError(t, err, format)
		assert.NotNil(t, l)
	}
	_, err := newLogger(config.Log{Level: "loud", Format: "json"})
	assert.Error(t, err)
	_, err = newLogger(config.Log{Level: "info", Format: "xml"})
	assert.Error(t, err)
}

func TestReport(t *testing.T) {
	prev := stderr
	var buf bytes.Buffer
	stderr = &buf
	defer func() { stderr = prev }()

	assert.Nil(t, report(nil))

	err := report(&runtime.DiagnosticError{Diagnostics: []diagnostics.Diagnostic{
		diagnostics.MakeDiag(diagnostics.EParse, "boom", nil, ""),
	}})
	var exit *cli.ExitError
	require.True(t, errors.As(err, &exit))
	assert.Equal(t, diagnostics.ExitSyntax, exit.ExitCode())
	assert.Contains(t, buf.String(), "E_PARSE")

	err = report(context.Canceled)
	require.True(t, errors.As(err, &exit))
	assert.Equal(t, diagnostics.ExitRuntime, exit.ExitCode())
}

func TestCompleteKeyword(t *testing.T) {
	assert.Equal(t, []string{"IMPRIME"}, completeKeyword("imp"))
	assert.Equal(t, []string{"SE x MAIOR", "SE x MAIORIGUAL"}, completeKeyword("SE x mai"))
	assert.Nil(t, completeKeyword("SE "))
}
