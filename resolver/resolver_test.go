package resolver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/buyoh/nospace20/lexer"
	"github.com/buyoh/nospace20/parser"
)

func mustAnalyze(t *testing.T, src string) *Scope {
	t.Helper()
	tokens, diags := lexer.Tokenize(src)
	require.Empty(t, diags)
	stmts, pdiags := parser.Parse(tokens)
	require.Empty(t, pdiags)
	scope, err := Analyze(stmts)
	require.NoError(t, err)
	return scope
}

func TestAnalyze_MainFunctionDeclaredInGlobalScope(t *testing.T) {
	scope := mustAnalyze(t, `func: main() { let: i; }`)
	assert.Equal(t, Global, scope.Kind)
	id, ok := scope.Lookup("main")
	require.True(t, ok)
	entity := scope.Entity(id)
	require.True(t, entity.IsFunction())
}

func TestAnalyze_VariableCrossFunctionAccessIsRejected(t *testing.T) {
	tokens, _ := lexer.Tokenize(`
		func: outer() {
			let: x;
			func: inner() { return: x; }
			return: 0;
		}
	`)
	stmts, _ := parser.Parse(tokens)
	_, err := Analyze(stmts)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot access variables over function scope")
}

func TestAnalyze_FunctionCanBeCalledAcrossScopeBoundary(t *testing.T) {
	tokens, _ := lexer.Tokenize(`
		func: helper() { return: 1; }
		func: main() { return: helper(); }
	`)
	stmts, _ := parser.Parse(tokens)
	_, err := Analyze(stmts)
	assert.NoError(t, err)
}

func TestAnalyze_UnknownIdentifier(t *testing.T) {
	tokens, _ := lexer.Tokenize(`func: main() { return: x; }`)
	stmts, _ := parser.Parse(tokens)
	_, err := Analyze(stmts)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown identifier: x")
}

func TestAnalyze_RedeclarationIsRejected(t *testing.T) {
	tokens, _ := lexer.Tokenize(`func: main() { let: i; let: i; return: 0; }`)
	stmts, _ := parser.Parse(tokens)
	_, err := Analyze(stmts)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already declared")
}

func TestAnalyze_BreakOutsideLoopIsRejected(t *testing.T) {
	tokens, _ := lexer.Tokenize(`func: main() { break; }`)
	stmts, _ := parser.Parse(tokens)
	_, err := Analyze(stmts)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "'break' outside a loop")
}

func TestAnalyze_ReturnOutsideFunctionIsRejected(t *testing.T) {
	tokens, _ := lexer.Tokenize(`return: 1;`)
	stmts, _ := parser.Parse(tokens)
	_, err := Analyze(stmts)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "'return' outside a function")
}

func TestAnalyze_BreakInsideIfInsideWhileIsAccepted(t *testing.T) {
	tokens, _ := lexer.Tokenize(`
		func: main() {
			let: i;
			while: i < 10 {
				if: i == 3 { break; }
				i = i + 1;
			}
			return: 0;
		}
	`)
	stmts, _ := parser.Parse(tokens)
	_, err := Analyze(stmts)
	assert.NoError(t, err)
}

func TestAnalyze_GlobalVarDeclIsRejected(t *testing.T) {
	tokens, _ := lexer.Tokenize(`let: x;`)
	stmts, _ := parser.Parse(tokens)
	_, err := Analyze(stmts)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "global scope")
}

func TestAnalyze_IntrinsicCallsNeedNoDeclaration(t *testing.T) {
	tokens, _ := lexer.Tokenize(`func: main() { __trace(1); return: 0; }`)
	stmts, _ := parser.Parse(tokens)
	_, err := Analyze(stmts)
	assert.NoError(t, err)
}
