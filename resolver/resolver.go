package resolver

import (
	"fmt"

	"github.com/buyoh/nospace20/parser"
)

// intrinsics are reserved call names the resolver lets through without a
// declaration, since the evaluator implements them directly.
var intrinsics = map[string]bool{
	"__clog":       true,
	"__assert":     true,
	"__assert_not": true,
	"__trace":      true,
}

// analyzer carries the mutable state threaded through the declare/resolve
// walk: the next scope id to allocate, the stack of lexically enclosing
// scopes (outermost first), and the loop/function nesting depth used for
// break/continue/return context checks.
type analyzer struct {
	nextScopeID int
	stack       []*Scope
	loopDepth   int
	funcDepth   int
}

// Analyze runs the two-pass resolution described in SPEC_FULL.md §4.3 over
// a parsed program and returns its Global scope, or the first resolution
// error encountered.
func Analyze(stmts []parser.Stmt) (*Scope, error) {
	a := &analyzer{}
	block, _, err := a.analyzeBlock(stmts, Global, nil)
	if err != nil {
		return nil, err
	}
	return block.Scope, nil
}

func (a *analyzer) newScope(kind Kind) *Scope {
	s := newScope(a.nextScopeID, kind)
	a.nextScopeID++
	return s
}

// analyzeBlock declares every VarDecl/FuncDecl directly in stmts into a
// freshly created scope of the given kind (plus paramNames, for a
// function's own scope), then resolves every statement in source order,
// recursing into nested function bodies and if/while blocks as it goes.
// It returns the resulting Block and, when kind is FunctionScope, the
// resolved parameter identifiers in declaration order.
func (a *analyzer) analyzeBlock(stmts []parser.Stmt, kind Kind, paramNames []string) (*Block, []Identifier, error) {
	scope := a.newScope(kind)

	var paramIDs []Identifier
	for _, name := range paramNames {
		id, ok := scope.declare(name)
		if !ok {
			return nil, nil, fmt.Errorf("resolution error: duplicate parameter name %q", name)
		}
		scope.setEntity(id, Entity{Variable: &Variable{}})
		paramIDs = append(paramIDs, id)
	}

	for _, stmt := range stmts {
		switch s := stmt.(type) {
		case *parser.VarDecl:
			if kind == Global {
				return nil, nil, fmt.Errorf("resolution error: variable declarations are not permitted at global scope (offset %d)", s.Offset)
			}
			if kind != FunctionScope {
				return nil, nil, fmt.Errorf("resolution error: variable declarations are only permitted in function scope (offset %d)", s.Offset)
			}
			id, ok := scope.declare(s.Name)
			if !ok {
				return nil, nil, fmt.Errorf("resolution error: %q is already declared in this scope (offset %d)", s.Name, s.Offset)
			}
			scope.setEntity(id, Entity{Variable: &Variable{}})
		case *parser.FuncDecl:
			if kind == BlockScope {
				return nil, nil, fmt.Errorf("resolution error: function declarations are only permitted in function or global scope (offset %d)", s.Offset)
			}
			if _, ok := scope.Lookup(s.Name); ok {
				return nil, nil, fmt.Errorf("resolution error: %q is already declared in this scope (offset %d)", s.Name, s.Offset)
			}
			id, _ := scope.declare(s.Name)
			scope.setEntity(id, Entity{Function: &Function{}}) // filled in below
		}
	}

	a.stack = append(a.stack, scope)
	defer func() { a.stack = a.stack[:len(a.stack)-1] }()

	var code []ExecStmt
	for _, stmt := range stmts {
		switch s := stmt.(type) {
		case *parser.VarDecl:
			// already declared; contributes no executable statement
		case *parser.FuncDecl:
			id, _ := scope.Lookup(s.Name)
			a.funcDepth++
			savedLoop := a.loopDepth
			a.loopDepth = 0
			body, childParams, err := a.analyzeBlock(s.Body, FunctionScope, s.Params)
			a.loopDepth = savedLoop
			a.funcDepth--
			if err != nil {
				return nil, nil, err
			}
			scope.setEntity(id, Entity{Function: &Function{Params: childParams, Body: *body}})
		case *parser.Return:
			if a.funcDepth == 0 {
				return nil, nil, fmt.Errorf("resolution error: 'return' outside a function (offset %d)", s.Offset)
			}
			value, err := a.resolveExpr(s.Value)
			if err != nil {
				return nil, nil, err
			}
			code = append(code, ExecReturn{Offset: s.Offset, Value: value})
		case *parser.Break:
			if a.loopDepth == 0 {
				return nil, nil, fmt.Errorf("resolution error: 'break' outside a loop (offset %d)", s.Offset)
			}
			code = append(code, ExecBreak{Offset: s.Offset})
		case *parser.Continue:
			if a.loopDepth == 0 {
				return nil, nil, fmt.Errorf("resolution error: 'continue' outside a loop (offset %d)", s.Offset)
			}
			code = append(code, ExecContinue{Offset: s.Offset})
		case *parser.ExprStmt:
			if kind == Global {
				return nil, nil, fmt.Errorf("resolution error: expression statements are not permitted at global scope (offset %d)", s.Offset)
			}
			value, err := a.resolveExpr(s.Value)
			if err != nil {
				return nil, nil, err
			}
			code = append(code, ExecExprStmt{Offset: s.Offset, Value: value})
		case *parser.InvalidStmt:
			// suppressed: the parser already raised a diagnostic for it
		default:
			return nil, nil, fmt.Errorf("resolution error: unhandled statement kind %T", s)
		}
	}

	return &Block{Scope: scope, Code: code}, paramIDs, nil
}

func (a *analyzer) resolveExpr(e parser.Expr) (ExecExpr, error) {
	switch x := e.(type) {
	case *parser.IntLiteral:
		return ExecFactor{Offset: x.Offset, Value: x.Value}, nil
	case *parser.Variable:
		id, err := a.resolveVariable(x.Name, x.Offset)
		if err != nil {
			return nil, err
		}
		return ExecVariable{Offset: x.Offset, Identifier: id}, nil
	case *parser.Operation1:
		operand, err := a.resolveExpr(x.Operand)
		if err != nil {
			return nil, err
		}
		return ExecOperation1{Offset: x.Offset, Op: x.Op, Operand: operand}, nil
	case *parser.Operation2:
		left, err := a.resolveExpr(x.Left)
		if err != nil {
			return nil, err
		}
		right, err := a.resolveExpr(x.Right)
		if err != nil {
			return nil, err
		}
		return ExecOperation2{Offset: x.Offset, Op: x.Op, Left: left, Right: right}, nil
	case *parser.Call:
		args := make([]ExecExpr, len(x.Args))
		for i, arg := range x.Args {
			resolved, err := a.resolveExpr(arg)
			if err != nil {
				return nil, err
			}
			args[i] = resolved
		}
		if intrinsics[x.Name] {
			return ExecCall{Offset: x.Offset, Intrinsic: x.Name, Args: args}, nil
		}
		id, err := a.resolveFunction(x.Name, x.Offset)
		if err != nil {
			return nil, err
		}
		return ExecCall{Offset: x.Offset, Identifier: id, Args: args}, nil
	case *parser.If:
		cond, err := a.resolveExpr(x.Cond)
		if err != nil {
			return nil, err
		}
		then, _, err := a.analyzeBlock(x.Then, BlockScope, nil)
		if err != nil {
			return nil, err
		}
		var elseBlock *Block
		if x.Else != nil {
			elseBlock, _, err = a.analyzeBlock(x.Else, BlockScope, nil)
			if err != nil {
				return nil, err
			}
		}
		return ExecIf{Offset: x.Offset, Cond: cond, Then: *then, Else: elseBlock}, nil
	case *parser.While:
		cond, err := a.resolveExpr(x.Cond)
		if err != nil {
			return nil, err
		}
		a.loopDepth++
		body, _, err := a.analyzeBlock(x.Body, BlockScope, nil)
		a.loopDepth--
		if err != nil {
			return nil, err
		}
		return ExecWhile{Offset: x.Offset, Cond: cond, Body: *body}, nil
	case *parser.InvalidExpr:
		return ExecFactor{Offset: x.Offset, Value: 0}, nil
	default:
		return nil, fmt.Errorf("resolution error: unhandled expression kind")
	}
}

// resolveVariable walks the scope stack innermost-first looking for name,
// rejecting a match found across a function boundary. Grounded directly
// on ScopeStackResolver::resolve in the reference implementation.
func (a *analyzer) resolveVariable(name string, offset int) (Identifier, error) {
	id, entity, outOfFunc, err := a.lookup(name, offset)
	if err != nil {
		return Identifier{}, err
	}
	if !entity.IsVariable() {
		return Identifier{}, fmt.Errorf("resolution error: %q is not a variable (offset %d)", name, offset)
	}
	if outOfFunc {
		return Identifier{}, fmt.Errorf("resolution error: cannot access variables over function scope (offset %d)", offset)
	}
	return id, nil
}

// resolveFunction walks the scope stack the same way, but functions may
// be referenced across any scope boundary.
func (a *analyzer) resolveFunction(name string, offset int) (Identifier, error) {
	id, entity, _, err := a.lookup(name, offset)
	if err != nil {
		return Identifier{}, err
	}
	if !entity.IsFunction() {
		return Identifier{}, fmt.Errorf("resolution error: %q is not a function (offset %d)", name, offset)
	}
	return id, nil
}

func (a *analyzer) lookup(name string, offset int) (Identifier, Entity, bool, error) {
	outOfFunc := false
	for i := len(a.stack) - 1; i >= 0; i-- {
		s := a.stack[i]
		if id, ok := s.Lookup(name); ok {
			return id, s.Entity(id), outOfFunc, nil
		}
		if s.Kind != BlockScope {
			outOfFunc = true
		}
	}
	return Identifier{}, Entity{}, false, fmt.Errorf("resolution error: unknown identifier: %s (offset %d)", name, offset)
}
