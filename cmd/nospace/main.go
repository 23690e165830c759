// Command nospace is the CLI driver for the NoSpace interpreter: it runs
// files, starts the interactive REPL, and runs the JSON test harness over
// a directory of fixtures.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/fatih/color"
	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"

	"github.com/buyoh/nospace20/diag"
	"github.com/buyoh/nospace20/eval"
	"github.com/buyoh/nospace20/harness"
	"github.com/buyoh/nospace20/lexer"
	"github.com/buyoh/nospace20/parser"
	"github.com/buyoh/nospace20/repl"
	"github.com/buyoh/nospace20/resolver"
	"github.com/buyoh/nospace20/source"
)

var (
	redColor  = color.New(color.FgRed)
	cyanColor = color.New(color.FgCyan)
)

var logger = hclog.New(&hclog.LoggerOptions{
	Name:  "nospace",
	Level: hclog.Error,
})

const (
	banner = `
  _   _        ____
 | \ | | ___  / ___| _ __   __ _  ___ ___
 |  \| |/ _ \ \___ \| '_ \ / _' |/ __/ _ \
 | |\  | (_) |___) | |_) | (_| | (_|  __/
 |_| \_|\___/|____/| .__/ \__,_|\___\___|
                    |_|
`
	version = "v1.0.0"
	license = "MIT"
	prompt  = "nospace >>> "
	lineSep = "----------------------------------------------------------------"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var debug bool

	root := &cobra.Command{
		Use:           "nospace",
		Short:         "Run and explore NoSpace programs",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if debug {
				logger.SetLevel(hclog.Debug)
			}
		},
	}
	root.PersistentFlags().BoolVar(&debug, "debug", false, "enable operational debug logging")

	root.AddCommand(newRunCmd())
	root.AddCommand(newReplCmd())
	root.AddCommand(newTestCmd())
	return root
}

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run <file>",
		Short: "Run a .ns file by calling its main function",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFile(args[0])
		},
	}
}

func newReplCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "repl",
		Short: "Start the interactive REPL",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger.Debug("starting repl")
			r := repl.NewRepl(banner, version, "", lineSep, license, prompt)
			r.Start(os.Stdin, os.Stdout)
			logger.Debug("repl stopped")
			return nil
		},
	}
}

func newTestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "test <dir>",
		Short: "Run the .ns/.check.json fixtures in a directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTestDir(args[0])
		},
	}
}

// runFile executes a single .ns file with panic recovery, presenting any
// diagnostic with a caret pointing at the offending source position.
func runFile(path string) (err error) {
	logger.Debug("opening file", "path", path)
	defer func() {
		if r := recover(); r != nil {
			logger.Error("recovered from panic", "path", path, "panic", r)
			redColor.Fprintf(os.Stderr, "error: internal error: %v\n", r)
			err = fmt.Errorf("internal error")
		}
	}()

	src, readErr := os.ReadFile(path)
	if readErr != nil {
		logger.Error("failed to read file", "path", path, "err", readErr)
		redColor.Fprintf(os.Stderr, "error: %v\n", readErr)
		return readErr
	}
	idx := source.NewIndex(string(src))

	tokens, diags := lexer.Tokenize(string(src))
	if len(diags) > 0 {
		logger.Debug("lexing failed", "path", path, "diagnostics", len(diags))
		presentDiagnostics(idx, diags)
		return fmt.Errorf("lexical errors")
	}

	stmts, diags := parser.Parse(tokens)
	if len(diags) > 0 {
		logger.Debug("parsing failed", "path", path, "diagnostics", len(diags))
		presentDiagnostics(idx, diags)
		return fmt.Errorf("syntax errors")
	}

	scope, resolveErr := resolver.Analyze(stmts)
	if resolveErr != nil {
		logger.Debug("resolution failed", "path", path, "err", resolveErr)
		redColor.Fprintf(os.Stderr, "error: %v\n", resolveErr)
		return resolveErr
	}

	result, evalErr := eval.InterpretFunc(scope, "main", func(s string) {
		fmt.Fprintln(os.Stdout, s)
	})
	if evalErr != nil {
		logger.Debug("evaluation failed", "path", path, "err", evalErr)
		redColor.Fprintf(os.Stderr, "error: %v\n", evalErr)
		return evalErr
	}
	if result != nil {
		fmt.Fprintf(os.Stdout, "%d\n", *result)
	}
	return nil
}

// presentDiagnostics renders each diagnostic as:
//
//	error: <message>
//	line:<l> column:<c>
//	<line text>
//	<spaces>^
func presentDiagnostics(idx *source.Index, diags []diag.Diagnostic) {
	for _, d := range diags {
		line, column := idx.Position(d.Offset)
		redColor.Fprintf(os.Stderr, "error: %s\n", d.Message)
		fmt.Fprintf(os.Stderr, "line:%d column:%d\n", line, column)
		text := idx.Line(line)
		fmt.Fprintln(os.Stderr, text)
		pad := column - 1
		if pad <= len(text) {
			pad = utf8.RuneCountInString(text[:pad])
		}
		fmt.Fprintln(os.Stderr, strings.Repeat(" ", pad)+"^")
	}
}

// runTestDir reads the *.ns files directly inside dir (subdirectories are
// not searched) that have a sibling .check.json and runs each through the
// harness, reporting a pass/fail summary.
func runTestDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		redColor.Fprintf(os.Stderr, "error: %v\n", err)
		return err
	}

	passed, failed := 0, 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".ns") {
			continue
		}
		nsPath := filepath.Join(dir, entry.Name())
		checkPath := strings.TrimSuffix(nsPath, ".ns") + ".check.json"
		if _, statErr := os.Stat(checkPath); statErr != nil {
			continue
		}

		logger.Debug("running fixture", "file", nsPath)
		traced, runErr := harness.RunFile(nsPath)
		if runErr != nil {
			failed++
			redColor.Fprintf(os.Stderr, "FAIL %s: %v\n", entry.Name(), runErr)
			continue
		}
		if checkErr := harness.RunCheck(traced, checkPath); checkErr != nil {
			failed++
			redColor.Fprintf(os.Stderr, "FAIL %s: %v\n", entry.Name(), checkErr)
			continue
		}
		passed++
		cyanColor.Fprintf(os.Stdout, "PASS %s\n", entry.Name())
	}

	fmt.Fprintf(os.Stdout, "%d passed, %d failed\n", passed, failed)
	if failed > 0 {
		return fmt.Errorf("%d fixture(s) failed", failed)
	}
	return nil
}
