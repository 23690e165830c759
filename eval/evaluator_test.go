package eval

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/buyoh/nospace20/lexer"
	"github.com/buyoh/nospace20/parser"
	"github.com/buyoh/nospace20/resolver"
)

func runTrace(t *testing.T, src string) map[int64]int64 {
	t.Helper()
	tokens, diags := lexer.Tokenize(src)
	require.Empty(t, diags)
	stmts, pdiags := parser.Parse(tokens)
	require.Empty(t, pdiags)
	scope, err := resolver.Analyze(stmts)
	require.NoError(t, err)
	traced, err := InterpretFuncTesting(scope, "main")
	require.NoError(t, err)
	return traced
}

func TestInterpret_CounterLoop(t *testing.T) {
	traced := runTrace(t, `
		func: main() {
			let: i;
			while: i != 10 {
				__trace(i);
				i = i + 1;
			}
		}
	`)
	want := map[int64]int64{}
	for i := int64(0); i < 10; i++ {
		want[i] = 1
	}
	assert.Equal(t, want, traced)
}

func TestInterpret_RecursiveFactorial(t *testing.T) {
	traced := runTrace(t, `
		func: fact(n) {
			if: n <= 1 { return: 1; }
			return: n * fact(n - 1);
		}
		func: main() { __trace(fact(5)); }
	`)
	assert.Equal(t, map[int64]int64{120: 1}, traced)
}

func TestInterpret_EvaluationOrderSideEffects(t *testing.T) {
	traced := runTrace(t, `
		func: side(x) { __trace(x); return: x; }
		func: main() { side(0) + side(1) + side(2); }
	`)
	assert.Equal(t, map[int64]int64{0: 1, 1: 1, 2: 1}, traced)
}

func TestInterpret_BreakAndContinue(t *testing.T) {
	traced := runTrace(t, `
		func: main() {
			let: i;
			while: i < 10 {
				i = i + 1;
				if: i == 3 { continue; }
				if: i == 7 { break; }
				__trace(i);
			}
		}
	`)
	assert.Equal(t, map[int64]int64{1: 1, 2: 1, 4: 1, 5: 1, 6: 1}, traced)
}

func TestInterpret_AssignmentAsExpression(t *testing.T) {
	traced := runTrace(t, `
		func: main() {
			let: a; let: b;
			__trace(a = (b = 5) + 2);
			__trace(a); __trace(b);
		}
	`)
	assert.Equal(t, map[int64]int64{7: 2, 5: 1}, traced)
}

func TestInterpret_ResolutionErrorNeverReachesEvaluation(t *testing.T) {
	tokens, _ := lexer.Tokenize(`func: main() { return: x; }`)
	stmts, _ := parser.Parse(tokens)
	_, err := resolver.Analyze(stmts)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown identifier: x")
}

func TestInterpret_DivisionByZeroIsRuntimeError(t *testing.T) {
	tokens, _ := lexer.Tokenize(`func: main() { return: 1 / 0; }`)
	stmts, _ := parser.Parse(tokens)
	scope, err := resolver.Analyze(stmts)
	require.NoError(t, err)
	_, err = InterpretFuncTesting(scope, "main")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "division by zero")
}

func TestInterpret_ArityMismatchIsRuntimeError(t *testing.T) {
	tokens, _ := lexer.Tokenize(`
		func: one(a) { return: a; }
		func: main() { return: one(1, 2); }
	`)
	stmts, _ := parser.Parse(tokens)
	scope, err := resolver.Analyze(stmts)
	require.NoError(t, err)
	_, err = InterpretFuncTesting(scope, "main")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "arity mismatch")
}

func TestInterpret_WhileFalseConditionRunsZeroTimes(t *testing.T) {
	traced := runTrace(t, `
		func: main() {
			while: 0 { __trace(999); }
		}
	`)
	assert.Empty(t, traced)
}

func TestInterpretFunc_ReturnsValueOnReturn(t *testing.T) {
	tokens, _ := lexer.Tokenize(`func: main() { return: 42; }`)
	stmts, _ := parser.Parse(tokens)
	scope, err := resolver.Analyze(stmts)
	require.NoError(t, err)
	result, err := InterpretFunc(scope, "main", nil)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, int64(42), *result)
}

func TestInterpretFunc_FallThroughReturnsNil(t *testing.T) {
	tokens, _ := lexer.Tokenize(`func: main() { let: i; }`)
	stmts, _ := parser.Parse(tokens)
	scope, err := resolver.Analyze(stmts)
	require.NoError(t, err)
	result, err := InterpretFunc(scope, "main", nil)
	require.NoError(t, err)
	assert.Nil(t, result)
}
