// Package repl implements the interactive Read-Eval-Print Loop for the
// NoSpace interpreter. The REPL keeps a growing list of top-level
// function declarations so that a func: entered on one line is callable
// from every later line; each non-declaration line runs in its own
// throwaway function body, sharing that growing function library.
package repl

import (
	"io"
	"strings"

	"github.com/chzyer/readline"
	"github.com/fatih/color"

	"github.com/buyoh/nospace20/eval"
	"github.com/buyoh/nospace20/lexer"
	"github.com/buyoh/nospace20/parser"
	"github.com/buyoh/nospace20/resolver"
)

var (
	blueColor   = color.New(color.FgBlue)
	yellowColor = color.New(color.FgYellow)
	redColor    = color.New(color.FgRed)
	greenColor  = color.New(color.FgGreen)
	cyanColor   = color.New(color.FgCyan)
)

// Repl holds the banner/prompt configuration for one interactive session.
type Repl struct {
	Banner  string
	Version string
	Author  string
	Line    string
	License string
	Prompt  string
}

// NewRepl builds a Repl with the given display strings.
func NewRepl(banner, version, author, line, license, prompt string) *Repl {
	return &Repl{Banner: banner, Version: version, Author: author, Line: line, License: license, Prompt: prompt}
}

// PrintBannerInfo writes the startup banner and usage hints to writer.
func (r *Repl) PrintBannerInfo(writer io.Writer) {
	blueColor.Fprintf(writer, "%s\n", r.Line)
	greenColor.Fprintf(writer, "%s\n", r.Banner)
	blueColor.Fprintf(writer, "%s\n", r.Line)
	yellowColor.Fprintln(writer, "Version: "+r.Version+" | Author: "+r.Author+" | License: "+r.License)
	blueColor.Fprintf(writer, "%s\n", r.Line)
	cyanColor.Fprintf(writer, "%s\n", "Welcome to NoSpace!")
	cyanColor.Fprintf(writer, "%s\n", "Type your code and press enter")
	cyanColor.Fprintf(writer, "%s\n", "Type '.exit' to quit")
	cyanColor.Fprintf(writer, "%s\n", "Use up/down arrows to navigate command history")
	blueColor.Fprintf(writer, "%s\n", r.Line)
}

// session accumulates the function declarations a REPL has committed so
// far. It is replayed in full (reparsed and reresolved) on every line,
// since NoSpace has no incremental compilation unit smaller than a
// program.
type session struct {
	funcs []string
}

func (s *session) programWithDecl(decl string) string {
	var b strings.Builder
	for _, f := range s.funcs {
		b.WriteString(f)
		b.WriteString("\n")
	}
	b.WriteString(decl)
	return b.String()
}

func (s *session) programForLine(body string) string {
	var b strings.Builder
	for _, f := range s.funcs {
		b.WriteString(f)
		b.WriteString("\n")
	}
	b.WriteString("func: __line() {\n")
	b.WriteString(body)
	b.WriteString("\n}\n")
	return b.String()
}

// Start runs the REPL loop. reader is unused (readline owns stdin
// directly) and is kept to mirror the shape of a file-execution entry
// point; writer receives the banner, results, and errors.
func (r *Repl) Start(reader io.Reader, writer io.Writer) {
	r.PrintBannerInfo(writer)

	rl, err := readline.New(r.Prompt)
	if err != nil {
		panic(err)
	}
	defer rl.Close()

	sess := &session{}

	for {
		line, err := rl.Readline()
		if err != nil {
			writer.Write([]byte("Good Bye!\n"))
			break
		}

		line = strings.Trim(line, " \n\t\r")
		if line == "" {
			continue
		}
		if line == ".exit" {
			writer.Write([]byte("Good Bye!\n"))
			break
		}

		rl.SaveHistory(line)
		r.evalLineWithRecovery(writer, sess, line)
	}
}

// evalLineWithRecovery runs one line of input and never lets a panic
// escape the REPL loop: a panic raised while running the line is reported
// as a runtime error and the session continues. A Go stack overflow from
// unbounded recursion is a fatal error, not a panic, and is not caught.
func (r *Repl) evalLineWithRecovery(writer io.Writer, sess *session, line string) {
	defer func() {
		if recovered := recover(); recovered != nil {
			redColor.Fprintf(writer, "[runtime error] %v\n", recovered)
		}
	}()

	if strings.HasPrefix(line, "func:") {
		r.evalDecl(writer, sess, line)
		return
	}
	r.evalExprOrStmt(writer, sess, line)
}

func (r *Repl) evalDecl(writer io.Writer, sess *session, line string) {
	program := sess.programWithDecl(line)
	_, err := compile(program)
	if err != nil {
		redColor.Fprintf(writer, "%s\n", err)
		return
	}
	sess.funcs = append(sess.funcs, line)
}

// looksLikeExpr reports whether line is a bare expression rather than a
// statement that already carries its own keyword or block form.
func looksLikeExpr(line string) bool {
	for _, kw := range []string{"let:", "if:", "while:", "return:", "break", "continue"} {
		if strings.HasPrefix(line, kw) {
			return false
		}
	}
	return true
}

func (r *Repl) evalExprOrStmt(writer io.Writer, sess *session, line string) {
	body := line
	if looksLikeExpr(line) {
		trimmed := strings.TrimSuffix(strings.TrimSpace(line), ";")
		body = "return: " + trimmed + ";"
	} else if !strings.HasSuffix(strings.TrimSpace(line), ";") && !strings.HasSuffix(strings.TrimSpace(line), "}") {
		body = line + ";"
	}

	program := sess.programForLine(body)
	scope, err := compile(program)
	if err != nil {
		redColor.Fprintf(writer, "%s\n", err)
		return
	}

	result, err := eval.InterpretFunc(scope, "__line", func(s string) {
		cyanColor.Fprintf(writer, "%s\n", s)
	})
	if err != nil {
		redColor.Fprintf(writer, "[runtime error] %v\n", err)
		return
	}
	if result != nil {
		yellowColor.Fprintf(writer, "%d\n", *result)
	}
}

// compile runs the lex/parse/resolve pipeline over a whole synthesized
// program and returns its resolved scope, or the first diagnostic or
// resolution error encountered.
func compile(program string) (*resolver.Scope, error) {
	tokens, diags := lexer.Tokenize(program)
	if len(diags) > 0 {
		return nil, errDiag(diags[0].Message)
	}
	stmts, diags := parser.Parse(tokens)
	if len(diags) > 0 {
		return nil, errDiag(diags[0].Message)
	}
	scope, err := resolver.Analyze(stmts)
	if err != nil {
		return nil, err
	}
	return scope, nil
}

type errDiag string

func (e errDiag) Error() string { return string(e) }
