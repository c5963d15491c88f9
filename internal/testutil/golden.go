// Package testutil provides shared test helpers for APS Go tests.
package testutil

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// ScenariosDir is the relative path from the module root to the golden scenarios.
const ScenariosDir = "testdata/scenarios"

// Scenario is one end-to-end program run loaded from a YAML file.
type Scenario struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description,omitempty"`
	Source      string         `yaml:"source"`
	Stdin       string         `yaml:"stdin,omitempty"`
	Limits      ScenarioLimits `yaml:"limits,omitempty"`
	Expect      ExpectedResult `yaml:"expect"`
}

// ScenarioLimits overrides the interpreter limits for one scenario.
type ScenarioLimits struct {
	MaxCallDepth  int   `yaml:"maxCallDepth,omitempty"`
	MaxIterations int64 `yaml:"maxIterations,omitempty"`
}

// ExpectedResult describes the expected outcome of running a scenario.
type ExpectedResult struct {
	ExitCode       int    `yaml:"exitCode"`
	Stdout         string `yaml:"stdout"`
	Error          string `yaml:"error,omitempty"`
	StderrContains string `yaml:"stderrContains,omitempty"`
}

// LoadScenario decodes the scenario file at path. Unknown fields are rejected.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	var s Scenario
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if s.Name == "" {
		s.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	if s.Source == "" {
		return nil, fmt.Errorf("%s: scenario has no source", path)
	}
	return &s, nil
}

// ListScenarios returns all scenario files under the given root, sorted.
func ListScenarios(root string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if ext := filepath.Ext(e.Name()); ext == ".yaml" || ext == ".yml" {
			files = append(files, filepath.Join(root, e.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}
