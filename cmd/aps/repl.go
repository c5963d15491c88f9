package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/peterh/liner"
	"gopkg.in/urfave/cli.v1"

	"github.com/drumondpe/APS-LogComp/pkg/config"
	"github.com/drumondpe/APS-LogComp/pkg/diagnostics"
	"github.com/drumondpe/APS-LogComp/pkg/help"
	"github.com/drumondpe/APS-LogComp/pkg/lexer"
	"github.com/drumondpe/APS-LogComp/pkg/parser"
	"github.com/drumondpe/APS-LogComp/pkg/runtime"
)

const (
	promptMain     = "aps> "
	promptContinue = "...  "
	promptRead     = "LEIA> "
	replFile       = "<repl>"
)

// promptReader feeds LEIA from the same line editor the REPL uses.
type promptReader struct {
	line *liner.State
}

func (p *promptReader) ReadLine() (string, error) {
	s, err := p.line.Prompt(promptRead)
	if errors.Is(err, liner.ErrPromptAborted) {
		return "", io.EOF
	}
	return s, err
}

// console is an interactive session: one runtime session plus line editing.
type console struct {
	line    *liner.State
	session *runtime.Session
	history string
	buffer  []string
}

func replAction(ctx *cli.Context) error {
	if err := setup(ctx); err != nil {
		return err
	}

	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)
	line.SetMultiLineMode(true)
	line.SetCompleter(completeKeyword)

	c := &console{line: line}
	if home, err := os.UserHomeDir(); err == nil {
		c.history = filepath.Join(home, config.UserDir, "history")
		if f, err := os.Open(c.history); err == nil {
			line.ReadHistory(f)
			f.Close()
		}
	}

	rt := runtime.New(
		runtime.WithLineReader(&promptReader{line: line}),
		runtime.WithStdout(stdout),
		runtime.WithLogger(logger.New("file", replFile)),
		runtime.WithLimits(cfg.Limits()),
		runtime.WithRunID("repl"),
	)
	c.session = rt.NewSession()

	fmt.Fprintf(stdout, "APS %s. Type :help for commands, :quit to leave.\n", version)
	c.loop()
	c.saveHistory()
	return nil
}

func (c *console) loop() {
	for {
		prompt := promptMain
		if len(c.buffer) > 0 {
			prompt = promptContinue
		}
		input, err := c.line.Prompt(prompt)
		if errors.Is(err, liner.ErrPromptAborted) {
			c.buffer = nil
			continue
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				logger.Error("Failed to read input", "err", err)
			}
			fmt.Fprintln(stdout)
			return
		}

		if len(c.buffer) == 0 {
			trimmed := strings.TrimSpace(input)
			if trimmed == "" {
				continue
			}
			if strings.HasPrefix(trimmed, ":") {
				c.line.AppendHistory(trimmed)
				if !c.command(trimmed) {
					return
				}
				continue
			}
		}

		c.buffer = append(c.buffer, input)
		source := strings.Join(c.buffer, "\n")
		if _, diags := parser.Parse(source, replFile); parser.Incomplete(diags) {
			continue
		}
		c.buffer = nil
		c.line.AppendHistory(source)
		c.eval(source)
	}
}

func (c *console) eval(source string) {
	ctx, cancel := interruptible()
	defer cancel()
	if _, err := c.session.Eval(ctx, source, replFile); err != nil {
		if diags := runtime.Diagnostics(err); len(diags) > 0 {
			fmt.Fprintln(stderr, diagnostics.FormatDiagnostics(diags, true))
			return
		}
		fmt.Fprintln(stderr, err)
	}
}

// command runs a REPL meta command and reports whether to keep going.
func (c *console) command(cmd string) bool {
	fields := strings.Fields(cmd)
	switch fields[0] {
	case ":quit", ":q", ":sair":
		return false
	case ":vars":
		names := c.session.Names()
		sort.Strings(names)
		fmt.Fprintln(stdout, strings.Join(names, " "))
	case ":help":
		if len(fields) == 1 {
			fmt.Fprintln(stdout, ":help [topic]  language reference")
			fmt.Fprintln(stdout, ":vars          list global names")
			fmt.Fprintln(stdout, ":quit          leave the session")
			fmt.Fprintln(stdout, "Topics: "+strings.Join(help.TopicList, ", "))
			return true
		}
		_, content, err := help.MatchTopic(fields[1])
		if err != nil {
			fmt.Fprintln(stderr, err)
			return true
		}
		fmt.Fprint(stdout, content)
	default:
		fmt.Fprintf(stderr, "unknown command %s (try :help)\n", fields[0])
	}
	return true
}

func (c *console) saveHistory() {
	if c.history == "" {
		return
	}
	if err := os.MkdirAll(filepath.Dir(c.history), 0755); err != nil {
		logger.Debug("Cannot create history directory", "err", err)
		return
	}
	f, err := os.Create(c.history)
	if err != nil {
		logger.Debug("Cannot save history", "file", c.history, "err", err)
		return
	}
	defer f.Close()
	if _, err := c.line.WriteHistory(f); err != nil {
		logger.Debug("Cannot save history", "file", c.history, "err", err)
	}
}

// completeKeyword completes the last word of line against the reserved words.
func completeKeyword(line string) []string {
	start := strings.LastIndexAny(line, " \t(;{,") + 1
	word := line[start:]
	if word == "" {
		return nil
	}
	prefix := lexer.Normalize(word)
	var out []string
	for _, kw := range lexer.ReservedWords() {
		if strings.HasPrefix(kw, prefix) {
			out = append(out, line[:start]+kw)
		}
	}
	return out
}
