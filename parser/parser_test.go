package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/buyoh/nospace20/lexer"
)

func TestParse_FuncDeclWithParamsAndBody(t *testing.T) {
	tokens, diags := lexer.Tokenize(`func: add(a, b) { return: a + b; }`)
	require.Empty(t, diags)
	stmts, pdiags := Parse(tokens)
	require.Empty(t, pdiags)
	require.Len(t, stmts, 1)
	fn, ok := stmts[0].(*FuncDecl)
	require.True(t, ok)
	assert.Equal(t, "add", fn.Name)
	assert.Equal(t, []string{"a", "b"}, fn.Params)
	require.Len(t, fn.Body, 1)
	ret, ok := fn.Body[0].(*Return)
	require.True(t, ok)
	op, ok := ret.Value.(*Operation2)
	require.True(t, ok)
	assert.Equal(t, Plus, op.Op)
}

func TestParse_AssignmentIsRightAssociativeAndExpressionValued(t *testing.T) {
	tokens, _ := lexer.Tokenize(`a = b = 5;`)
	stmts, pdiags := Parse(tokens)
	require.Empty(t, pdiags)
	require.Len(t, stmts, 1)
	es := stmts[0].(*ExprStmt)
	outer := es.Value.(*Operation2)
	assert.Equal(t, Assign, outer.Op)
	assert.Equal(t, "a", outer.Left.(*Variable).Name)
	inner := outer.Right.(*Operation2)
	assert.Equal(t, Assign, inner.Op)
	assert.Equal(t, "b", inner.Left.(*Variable).Name)
	assert.Equal(t, int64(5), inner.Right.(*IntLiteral).Value)
}

func TestParse_CallVsVariable(t *testing.T) {
	tokens, _ := lexer.Tokenize(`f(1, 2); x;`)
	stmts, pdiags := Parse(tokens)
	require.Empty(t, pdiags)
	require.Len(t, stmts, 2)
	call := stmts[0].(*ExprStmt).Value.(*Call)
	assert.Equal(t, "f", call.Name)
	assert.Len(t, call.Args, 2)
	v := stmts[1].(*ExprStmt).Value.(*Variable)
	assert.Equal(t, "x", v.Name)
}

func TestParse_IfElseIfChainMatchesNestedIf(t *testing.T) {
	tokens, _ := lexer.Tokenize(`if: a { 1; } else: if: b { 2; } else: { 3; }`)
	stmts, pdiags := Parse(tokens)
	require.Empty(t, pdiags)
	outer := stmts[0].(*ExprStmt).Value.(*If)
	require.Len(t, outer.Else, 1)
	nested := outer.Else[0].(*ExprStmt).Value.(*If)
	assert.Equal(t, "b", nested.Cond.(*Variable).Name)
	require.Len(t, nested.Else, 1)
}

func TestParse_PrecedenceOfArithmeticAndComparison(t *testing.T) {
	tokens, _ := lexer.Tokenize(`1 + 2 * 3 == 7;`)
	stmts, pdiags := Parse(tokens)
	require.Empty(t, pdiags)
	cmp := stmts[0].(*ExprStmt).Value.(*Operation2)
	assert.Equal(t, Equal, cmp.Op)
	add := cmp.Left.(*Operation2)
	assert.Equal(t, Plus, add.Op)
	mul := add.Right.(*Operation2)
	assert.Equal(t, Multiply, mul.Op)
}

func TestParse_UnaryMinus(t *testing.T) {
	tokens, _ := lexer.Tokenize(`-5;`)
	stmts, pdiags := Parse(tokens)
	require.Empty(t, pdiags)
	neg := stmts[0].(*ExprStmt).Value.(*Operation1)
	assert.Equal(t, Negative, neg.Op)
	assert.Equal(t, int64(5), neg.Operand.(*IntLiteral).Value)
}

func TestParse_TrailingCommaIsRecoverable(t *testing.T) {
	tokens, _ := lexer.Tokenize(`f(1, 2,);`)
	stmts, pdiags := Parse(tokens)
	require.Len(t, pdiags, 1)
	require.Len(t, stmts, 1)
	call := stmts[0].(*ExprStmt).Value.(*Call)
	assert.Len(t, call.Args, 2)
}

func TestParse_MultipleDiagnosticsInOnePass(t *testing.T) {
	tokens, _ := lexer.Tokenize(`let: ; let: ;`)
	_, pdiags := Parse(tokens)
	assert.GreaterOrEqual(t, len(pdiags), 2)
}

func TestParse_EmptySource(t *testing.T) {
	tokens, _ := lexer.Tokenize(``)
	stmts, pdiags := Parse(tokens)
	assert.Empty(t, pdiags)
	assert.Empty(t, stmts)
}
