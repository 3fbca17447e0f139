package eval

import (
	"github.com/cuemby/docql/pkg/ir"
	"github.com/cuemby/docql/pkg/value"
)

// Env binds the implicit current-row context an expression evaluates
// against. A zero Env has no row bound, which is how Get's key
// expression and a top-level Expr term are evaluated (spec.md §4.5).
type Env struct {
	Row    value.Value
	HasRow bool
}

// NoRowEnv is the environment for expressions with no enclosing row
// (Get.Key, Expr.Inner, Insert document literals).
func NoRowEnv() Env { return Env{} }

// RowEnv binds row as the current row for Field/Match resolution
// (Filter.Predicate, Update.Patch).
func RowEnv(row value.Value) Env { return Env{Row: row, HasRow: true} }

// EvalExpr evaluates an IR expression term against env. It never
// touches storage; ir.Table/ir.Get/etc. are stream or lookup terms
// handled by the plan operators, not expressions.
func (e *Engine) EvalExpr(t ir.Term, env Env) (value.Value, error) {
	switch n := t.(type) {
	case ir.Constant:
		return n.Value, nil
	case ir.Field:
		if !env.HasRow {
			return value.Null(), nil
		}
		v, ok := value.GetPath(env.Row, n.Path.Segments)
		if !ok {
			return value.Null(), nil
		}
		return v, nil
	case ir.UnaryOp:
		inner, err := e.EvalExpr(n.Expr, env)
		if err != nil {
			return value.Null(), err
		}
		return value.Not(inner), nil
	case ir.BinaryOp:
		return e.evalBinary(n, env)
	case ir.Match:
		return e.evalMatch(n, env)
	default:
		return value.Null(), newErr(KindInternal, "term %T is not an expression", t)
	}
}

func (e *Engine) evalBinary(n ir.BinaryOp, env Env) (value.Value, error) {
	// And/Or short-circuit, so the right operand is only evaluated
	// (and only errors) when it can actually affect the result.
	switch n.Op {
	case ir.And:
		l, err := e.EvalExpr(n.Left, env)
		if err != nil {
			return value.Null(), err
		}
		if !value.Truthy(l) {
			return value.Bool(false), nil
		}
		r, err := e.EvalExpr(n.Right, env)
		if err != nil {
			return value.Null(), err
		}
		return value.Bool(value.Truthy(r)), nil
	case ir.Or:
		l, err := e.EvalExpr(n.Left, env)
		if err != nil {
			return value.Null(), err
		}
		if value.Truthy(l) {
			return value.Bool(true), nil
		}
		r, err := e.EvalExpr(n.Right, env)
		if err != nil {
			return value.Null(), err
		}
		return value.Bool(value.Truthy(r)), nil
	}

	l, err := e.EvalExpr(n.Left, env)
	if err != nil {
		return value.Null(), err
	}
	r, err := e.EvalExpr(n.Right, env)
	if err != nil {
		return value.Null(), err
	}
	switch n.Op {
	case ir.Eq:
		return value.Bool(value.Equal(l, r)), nil
	case ir.Ne:
		return value.Bool(!value.Equal(l, r)), nil
	case ir.Lt:
		return value.Bool(value.Compare(l, r) < 0), nil
	case ir.Le:
		return value.Bool(value.Compare(l, r) <= 0), nil
	case ir.Gt:
		return value.Bool(value.Compare(l, r) > 0), nil
	case ir.Ge:
		return value.Bool(value.Compare(l, r) >= 0), nil
	default:
		return value.Null(), newErr(KindInternal, "unsupported binary operator %v", n.Op)
	}
}

func (e *Engine) evalMatch(n ir.Match, env Env) (value.Value, error) {
	v, err := e.EvalExpr(n.Value, env)
	if err != nil {
		return value.Null(), err
	}
	s, ok := v.AsString()
	if !ok {
		// spec.md §4.2: Match against a non-string value is false, not
		// an error.
		return value.Bool(false), nil
	}
	matched, err := e.matcher().Match(n.Pattern, n.Flags, s)
	if err != nil {
		return value.Null(), newErr(KindInternal, "invalid regular expression %q: %v", n.Pattern, err)
	}
	return value.Bool(matched), nil
}
