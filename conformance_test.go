package main

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drumondpe/APS-LogComp/internal/testutil"
	"github.com/drumondpe/APS-LogComp/pkg/diagnostics"
	"github.com/drumondpe/APS-LogComp/pkg/evaluator"
	"github.com/drumondpe/APS-LogComp/pkg/runtime"
)

func TestConformance(t *testing.T) {
	color.NoColor = true

	files, err := testutil.ListScenarios(testutil.ScenariosDir)
	require.NoError(t, err)
	require.NotEmpty(t, files, "no scenarios found in %s", testutil.ScenariosDir)

	for _, file := range files {
		scenario, err := testutil.LoadScenario(file)
		require.NoError(t, err)

		t.Run(scenario.Name, func(t *testing.T) {
			filename := strings.TrimSuffix(filepath.Base(file), filepath.Ext(file)) + ".aps"
			runScenario(t, scenario, filename)
		})
	}
}

func runScenario(t *testing.T, scenario *testutil.Scenario, filename string) {
	t.Helper()

	limits := evaluator.Limits{MaxCallDepth: evaluator.DefaultMaxCallDepth}
	if scenario.Limits.MaxCallDepth > 0 {
		limits.MaxCallDepth = scenario.Limits.MaxCallDepth
	}
	limits.MaxIterations = scenario.Limits.MaxIterations

	var stdout bytes.Buffer
	rt := runtime.New(
		runtime.WithStdin(strings.NewReader(scenario.Stdin)),
		runtime.WithStdout(&stdout),
		runtime.WithLimits(limits),
		runtime.WithRunID("test"),
	)
	_, err := rt.Run(context.Background(), scenario.Source, filename)

	exitCode := diagnostics.ExitOK
	var stderr string
	if err != nil {
		diags := runtime.Diagnostics(err)
		require.NotEmpty(t, diags, "unexpected error type: %v", err)
		exitCode = diagnostics.ExitCode(diags[0].Code)
		stderr = diagnostics.FormatDiagnostics(diags, true)

		assert.Equal(t, scenario.Expect.Error, diags[0].Code, "error code; stderr:\n%s", stderr)
	} else {
		assert.Empty(t, scenario.Expect.Error, "expected an error but the program succeeded")
	}

	assert.Equal(t, scenario.Expect.ExitCode, exitCode, "exit code")
	assert.Equal(t, scenario.Expect.Stdout, stdout.String(), "stdout")
	if scenario.Expect.StderrContains != "" {
		assert.Contains(t, stderr, scenario.Expect.StderrContains)
	}
}
