// Package config implements loading of the APS interpreter configuration.
package config

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"reflect"

	"github.com/inconshreveable/log15"
	"github.com/naoina/toml"

	"github.com/drumondpe/APS-LogComp/pkg/diagnostics"
	"github.com/drumondpe/APS-LogComp/pkg/evaluator"
)

const (
	// ProjectFile is looked up in the working directory.
	ProjectFile = "aps.toml"
	// UserDir and UserFile form ~/.aps/config.toml.
	UserDir  = ".aps"
	UserFile = "config.toml"
)

// These settings ensure that TOML keys use the same names as Go struct fields.
var tomlSettings = toml.Config{
	NormFieldName: func(rt reflect.Type, key string) string {
		return key
	},
	FieldToKey: func(rt reflect.Type, field string) string {
		return field
	},
	MissingField: func(rt reflect.Type, field string) error {
		return fmt.Errorf("field '%s' is not defined in %s", field, rt.String())
	},
}

// Interpreter holds the execution limits.
type Interpreter struct {
	MaxCallDepth  int
	MaxIterations int64 // 0 means unlimited
}

// Output controls how diagnostics are rendered.
type Output struct {
	Pretty bool
	Color  string // auto, always or never
}

// Log configures the stderr log handler.
type Log struct {
	Level  string
	Format string // terminal, logfmt or json
}

// Config is the full interpreter configuration.
type Config struct {
	Interpreter Interpreter
	Output      Output
	Log         Log
}

// Defaults is the configuration used when no file is found.
var Defaults = Config{
	Interpreter: Interpreter{MaxCallDepth: evaluator.DefaultMaxCallDepth},
	Output:      Output{Pretty: true, Color: "auto"},
	Log:         Log{Level: "warn", Format: "terminal"},
}

// Error is a configuration failure, tied to the file it came from.
type Error struct {
	Path string
	Err  error
}

func (e *Error) Error() string {
	if e.Path == "" {
		return e.Err.Error()
	}
	return e.Path + ", " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// Diagnostic converts the error into an E_CONFIG diagnostic.
func (e *Error) Diagnostic() diagnostics.Diagnostic {
	return diagnostics.MakeDiag(diagnostics.EConfig, e.Error(), nil,
		"run 'aps dumpconfig' to see the available settings")
}

// LoadFile decodes the TOML file at path on top of cfg.
func LoadFile(path string, cfg *Config) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	err = tomlSettings.NewDecoder(bufio.NewReader(f)).Decode(cfg)
	if err != nil {
		return &Error{Path: path, Err: err}
	}
	return nil
}

// Load resolves the configuration.
// Precedence: explicit path → project (./aps.toml) → user (~/.aps/config.toml) → defaults.
// It returns the file the configuration came from, or "" for the defaults.
func Load(explicit, projectDir string) (Config, string, error) {
	cfg := Defaults

	if explicit != "" {
		if err := LoadFile(explicit, &cfg); err != nil {
			return Defaults, "", asConfigError(explicit, err)
		}
		return cfg, explicit, cfg.Validate()
	}

	candidates := []string{filepath.Join(projectDir, ProjectFile)}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, UserDir, UserFile))
	}
	for _, path := range candidates {
		err := LoadFile(path, &cfg)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return Defaults, "", asConfigError(path, err)
		}
		return cfg, path, cfg.Validate()
	}
	return cfg, "", nil
}

func asConfigError(path string, err error) error {
	var cerr *Error
	if errors.As(err, &cerr) {
		return cerr
	}
	return &Error{Path: path, Err: err}
}

// Validate rejects values outside the accepted ranges.
func (c Config) Validate() error {
	if c.Interpreter.MaxCallDepth < 1 {
		return &Error{Err: fmt.Errorf("Interpreter.MaxCallDepth must be positive, got %d", c.Interpreter.MaxCallDepth)}
	}
	if c.Interpreter.MaxIterations < 0 {
		return &Error{Err: fmt.Errorf("Interpreter.MaxIterations must not be negative, got %d", c.Interpreter.MaxIterations)}
	}
	switch c.Output.Color {
	case "auto", "always", "never":
	default:
		return &Error{Err: fmt.Errorf("Output.Color must be auto, always or never, got %q", c.Output.Color)}
	}
	if _, err := log15.LvlFromString(c.Log.Level); err != nil {
		return &Error{Err: fmt.Errorf("Log.Level: %w", err)}
	}
	switch c.Log.Format {
	case "terminal", "logfmt", "json":
	default:
		return &Error{Err: fmt.Errorf("Log.Format must be terminal, logfmt or json, got %q", c.Log.Format)}
	}
	return nil
}

// Limits returns the evaluator limits for this configuration.
func (c Config) Limits() evaluator.Limits {
	return evaluator.Limits{
		MaxCallDepth:  c.Interpreter.MaxCallDepth,
		MaxIterations: c.Interpreter.MaxIterations,
	}
}

// Dump writes cfg to w as TOML.
func Dump(w io.Writer, cfg Config) error {
	out, err := tomlSettings.Marshal(&cfg)
	if err != nil {
		return err
	}
	_, err = w.Write(out)
	return err
}
