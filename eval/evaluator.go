// Package eval tree-walks a resolved NoSpace program and interprets it
// over 64-bit signed integer values.
package eval

import (
	"fmt"

	"github.com/buyoh/nospace20/parser"
	"github.com/buyoh/nospace20/resolver"
)

// RuntimeError is returned for any problem raised during interpretation:
// division by zero, arity mismatch, an assignment to a non-variable, or a
// failed __assert/__assert_not.
type RuntimeError struct {
	Message string
}

func (e *RuntimeError) Error() string { return e.Message }

func runtimeErrorf(format string, args ...any) error {
	return &RuntimeError{Message: fmt.Sprintf(format, args...)}
}

// activationRecord owns the live values of every local declared in one
// function call, keyed by the resolved Identifier the resolver assigned
// each declaration.
type activationRecord struct {
	locals map[resolver.Identifier]int64
}

func newActivationRecord(scope *resolver.Scope) *activationRecord {
	rec := &activationRecord{locals: make(map[resolver.Identifier]int64)}
	for _, id := range scope.Identifiers() {
		if scope.Entity(id).IsVariable() {
			rec.locals[id] = 0
		}
	}
	return rec
}

// Evaluator interprets a resolved scope tree. It is not safe for
// concurrent use: only one evaluation is ever in flight, matching
// SPEC_FULL.md §5's single-threaded, synchronous execution model.
type Evaluator struct {
	global *resolver.Scope
	env    *Environment
	stack  []*activationRecord
}

// NewEvaluator creates an Evaluator over a resolved global scope. writer
// receives __clog output; a nil writer discards it.
func NewEvaluator(global *resolver.Scope, writer func(string)) *Evaluator {
	return &Evaluator{global: global, env: NewEnvironment(writer)}
}

// InterpretFunc resolves name in the global scope, calls it with no
// arguments, and returns its return value, or nil if the function falls
// through without returning.
func InterpretFunc(global *resolver.Scope, name string, writer func(string)) (*int64, error) {
	e := NewEvaluator(global, writer)
	return e.Call(name, nil)
}

// InterpretFuncTesting runs name the same way InterpretFunc does and
// returns the trace map `__trace` populated, for the JSON test harness.
func InterpretFuncTesting(global *resolver.Scope, name string) (map[int64]int64, error) {
	e := NewEvaluator(global, nil)
	if _, err := e.Call(name, nil); err != nil {
		return nil, err
	}
	return e.env.Traced(), nil
}

// Call invokes the global function named name with args: empty args for
// the top-level entry point. Calls made from inside the program do not go
// through Call; evalCall invokes callFunction directly.
func (e *Evaluator) Call(name string, args []int64) (*int64, error) {
	id, ok := e.global.Lookup(name)
	if !ok {
		return nil, runtimeErrorf("no such function: %s", name)
	}
	entity := e.global.Entity(id)
	if !entity.IsFunction() {
		return nil, runtimeErrorf("%s is not a function", name)
	}
	return e.callFunction(entity.Function, args)
}

func (e *Evaluator) callFunction(fn *resolver.Function, args []int64) (*int64, error) {
	if len(args) != len(fn.Params) {
		return nil, runtimeErrorf("arity mismatch: expected %d argument(s), got %d", len(fn.Params), len(args))
	}
	rec := newActivationRecord(fn.Body.Scope)
	for i, paramID := range fn.Params {
		rec.locals[paramID] = args[i]
	}
	e.stack = append(e.stack, rec)
	defer func() { e.stack = e.stack[:len(e.stack)-1] }()

	f, err := e.evalBlock(fn.Body)
	if err != nil {
		return nil, err
	}
	if f.kind == flowReturn {
		v := f.value
		return &v, nil
	}
	return nil, nil
}

func (e *Evaluator) top() *activationRecord {
	return e.stack[len(e.stack)-1]
}

// evalBlock executes a block's statements in order, stopping at the first
// non-Proceed flow (a Return/Break/Continue bubbling up).
func (e *Evaluator) evalBlock(b resolver.Block) (flow, error) {
	for _, stmt := range b.Code {
		f, err := e.evalStmt(stmt)
		if err != nil {
			return flow{}, err
		}
		if f.isJump() {
			return f, nil
		}
	}
	return proceed(0), nil
}

func (e *Evaluator) evalStmt(stmt resolver.ExecStmt) (flow, error) {
	switch s := stmt.(type) {
	case resolver.ExecReturn:
		v, f, err := e.evalExpr(s.Value)
		if err != nil {
			return flow{}, err
		}
		if f.isJump() {
			return f, nil
		}
		return doReturn(v), nil
	case resolver.ExecBreak:
		return doBreak, nil
	case resolver.ExecContinue:
		return doContinue, nil
	case resolver.ExecExprStmt:
		_, f, err := e.evalExpr(s.Value)
		if err != nil {
			return flow{}, err
		}
		if f.isJump() {
			return f, nil
		}
		return proceed(0), nil
	default:
		return flow{}, runtimeErrorf("unhandled statement kind %T", s)
	}
}

// evalExpr evaluates e, returning either its value or a jump raised while
// evaluating it (e.g. a Return from a call nested inside the expression).
func (e *Evaluator) evalExpr(expr resolver.ExecExpr) (int64, flow, error) {
	switch x := expr.(type) {
	case resolver.ExecFactor:
		return x.Value, proceed(0), nil
	case resolver.ExecVariable:
		return e.top().locals[x.Identifier], proceed(0), nil
	case resolver.ExecOperation1:
		v, f, err := e.evalExpr(x.Operand)
		if err != nil || f.isJump() {
			return 0, f, err
		}
		return -v, proceed(0), nil
	case resolver.ExecOperation2:
		return e.evalOperation2(x)
	case resolver.ExecCall:
		return e.evalCall(x)
	case resolver.ExecIf:
		return e.evalIf(x)
	case resolver.ExecWhile:
		return e.evalWhile(x)
	default:
		return 0, flow{}, runtimeErrorf("unhandled expression kind %T", x)
	}
}

func (e *Evaluator) evalOperation2(op resolver.ExecOperation2) (int64, flow, error) {
	if op.Op == parser.Assign {
		target, ok := op.Left.(resolver.ExecVariable)
		if !ok {
			return 0, flow{}, runtimeErrorf("assignment target must be a variable")
		}
		v, f, err := e.evalExpr(op.Right)
		if err != nil || f.isJump() {
			return 0, f, err
		}
		e.top().locals[target.Identifier] = v
		return v, proceed(0), nil
	}

	left, f, err := e.evalExpr(op.Left)
	if err != nil || f.isJump() {
		return 0, f, err
	}
	right, f, err := e.evalExpr(op.Right)
	if err != nil || f.isJump() {
		return 0, f, err
	}

	switch op.Op {
	case parser.Plus:
		return left + right, proceed(0), nil
	case parser.Minus:
		return left - right, proceed(0), nil
	case parser.Multiply:
		return left * right, proceed(0), nil
	case parser.Divide:
		if right == 0 {
			return 0, flow{}, runtimeErrorf("division by zero")
		}
		return left / right, proceed(0), nil
	case parser.Equal:
		return boolToInt(left == right), proceed(0), nil
	case parser.NotEqual:
		return boolToInt(left != right), proceed(0), nil
	case parser.Less:
		return boolToInt(left < right), proceed(0), nil
	case parser.LessEqual:
		return boolToInt(left <= right), proceed(0), nil
	case parser.Greater:
		return boolToInt(left > right), proceed(0), nil
	case parser.GreaterEqual:
		return boolToInt(left >= right), proceed(0), nil
	default:
		return 0, flow{}, runtimeErrorf("unhandled binary operator %v", op.Op)
	}
}

func boolToInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

// evalCall evaluates arguments left to right before entering the callee;
// a jump raised during argument evaluation aborts the call.
func (e *Evaluator) evalCall(call resolver.ExecCall) (int64, flow, error) {
	args := make([]int64, len(call.Args))
	for i, a := range call.Args {
		v, f, err := e.evalExpr(a)
		if err != nil || f.isJump() {
			return 0, f, err
		}
		args[i] = v
	}

	if call.Intrinsic != "" {
		v, err := e.invokeIntrinsic(call.Intrinsic, args)
		return v, proceed(0), err
	}

	entity := e.scopeOf(call.Identifier).Entity(call.Identifier)
	result, err := e.callFunction(entity.Function, args)
	if err != nil {
		return 0, flow{}, err
	}
	if result == nil {
		return 0, proceed(0), nil
	}
	return *result, proceed(0), nil
}

// scopeOf finds the Scope with the given id by walking from the global
// scope down through every function reachable from it (declarations only
// ever live in Global or Function scope; see resolver.Analyze). Functions
// may be called across scope boundaries, so the scope owning a callee's
// entity is not necessarily anywhere on the live activation-record stack.
func (e *Evaluator) scopeOf(id resolver.Identifier) *resolver.Scope {
	return e.findScope(e.global, id.ScopeID)
}

func (e *Evaluator) findScope(scope *resolver.Scope, scopeID int) *resolver.Scope {
	if scope.ScopeID == scopeID {
		return scope
	}
	for _, candidate := range scope.Identifiers() {
		entity := scope.Entity(candidate)
		if !entity.IsFunction() {
			continue
		}
		if found := e.findScope(entity.Function.Body.Scope, scopeID); found != nil {
			return found
		}
	}
	return nil
}

func (e *Evaluator) evalIf(node resolver.ExecIf) (int64, flow, error) {
	cond, f, err := e.evalExpr(node.Cond)
	if err != nil || f.isJump() {
		return 0, f, err
	}
	if cond != 0 {
		f, err := e.evalBlock(node.Then)
		return 0, f, err
	}
	if node.Else != nil {
		f, err := e.evalBlock(*node.Else)
		return 0, f, err
	}
	return 0, proceed(0), nil
}

func (e *Evaluator) evalWhile(node resolver.ExecWhile) (int64, flow, error) {
	for {
		cond, f, err := e.evalExpr(node.Cond)
		if err != nil {
			return 0, flow{}, err
		}
		if f.isJump() {
			return 0, flow{}, runtimeErrorf("internal error: control transfer out of a while condition")
		}
		if cond == 0 {
			return 0, proceed(0), nil
		}
		bodyFlow, err := e.evalBlock(node.Body)
		if err != nil {
			return 0, flow{}, err
		}
		switch bodyFlow.kind {
		case flowBreak:
			return 0, proceed(0), nil
		case flowContinue, flowProceed:
			continue
		case flowReturn:
			return 0, bodyFlow, nil
		}
	}
}
