package plan

import (
	"github.com/cuemby/docql/pkg/ir"
	"github.com/cuemby/docql/pkg/value"
)

// maxOptimizePasses bounds the fixed-point rewrite loop (spec.md §4.4:
// "run to fixed point, bounded by a pass count, typically 3").
const maxOptimizePasses = 3

// Optimize runs expression simplification and plan rewrites to a
// fixed point, bounded at maxOptimizePasses.
func Optimize(root Node) Node {
	for i := 0; i < maxOptimizePasses; i++ {
		next, changed := pass(root)
		root = next
		if !changed {
			break
		}
	}
	return root
}

// pass performs one bottom-up rewrite pass: children first, then this
// node's embedded expressions, then structural rewrites local to this
// node (including pushdown, which mutates descendant ScanTable nodes
// directly).
func pass(n Node) (Node, bool) {
	switch v := n.(type) {
	case *Filter:
		src, sc := pass(v.Source)
		pred, pc := simplifyExpr(v.Predicate)
		v.Source, v.Predicate = src, pred
		changed := sc || pc
		if c, ok := pred.(ir.Constant); ok {
			if b, ok := c.Value.AsBool(); ok && c.Value.Kind() == value.KindBool {
				if b {
					return v.Source, true
				}
				return &EmptyStream{}, true
			}
		}
		return v, changed
	case *OrderBy:
		src, sc := pass(v.Source)
		v.Source = src
		if st, ok := src.(*ScanTable); ok && len(v.Fields) > 0 && isIDAscending(v.Fields[0]) {
			st.SortHint = v.Fields
			return st, true
		}
		return v, sc
	case *Limit:
		src, sc := pass(v.Source)
		v.Source = src
		if v.N == 0 {
			return &EmptyStream{}, true
		}
		pushed := pushLimitHint(v.Source, v.N)
		return v, sc || pushed
	case *Skip:
		src, sc := pass(v.Source)
		v.Source = src
		pushed := pushSkipHint(v.Source, v.N)
		return v, sc || pushed
	case *Pluck:
		src, sc := pass(v.Source)
		v.Source = src
		return v, sc
	case *Without:
		src, sc := pass(v.Source)
		v.Source = src
		return v, sc
	case *Count:
		src, sc := pass(v.Source)
		v.Source = src
		return v, sc
	case *Update:
		src, sc := pass(v.Source)
		patch, pc := simplifyExpr(v.Patch)
		v.Source, v.Patch = src, patch
		return v, sc || pc
	case *Delete:
		src, sc := pass(v.Source)
		v.Source = src
		return v, sc
	case *Get:
		key, kc := simplifyExpr(v.Key)
		v.Key = key
		return v, kc
	case *Insert:
		changed := false
		for i, d := range v.Docs {
			nd, dc := simplifyExpr(d)
			v.Docs[i] = nd
			changed = changed || dc
		}
		return v, changed
	case *Expr:
		inner, ic := simplifyExpr(v.Inner)
		v.Inner = inner
		return v, ic
	default:
		return n, false
	}
}

func isIDAscending(f ir.SortField) bool {
	return !f.Descending && len(f.Path.Segments) == 1 && f.Path.Segments[0] == value.IDField
}

// pushLimitHint descends through operators safe to push a Limit
// through (projection only, per spec.md §4.4) and tightens the
// target ScanTable's LimitHint. Returns whether a hint actually
// changed.
func pushLimitHint(n Node, limit int64) bool {
	switch v := n.(type) {
	case *ScanTable:
		if v.LimitHint == nil || *v.LimitHint > limit {
			v.LimitHint = &limit
			return true
		}
		return false
	case *Pluck:
		return pushLimitHint(v.Source, limit)
	case *Without:
		return pushLimitHint(v.Source, limit)
	default:
		return false
	}
}

// pushSkipHint mirrors pushLimitHint for Skip, per spec.md §4.4
// ("only when no reordering occurs between Skip and the scan").
func pushSkipHint(n Node, skip int64) bool {
	switch v := n.(type) {
	case *ScanTable:
		if v.SkipHint == nil || *v.SkipHint != skip {
			v.SkipHint = &skip
			return true
		}
		return false
	case *Pluck:
		return pushSkipHint(v.Source, skip)
	case *Without:
		return pushSkipHint(v.Source, skip)
	default:
		return false
	}
}

// simplifyExpr applies constant folding, AND/OR/NOT identities,
// conditional negation pushdown, and comparison canonicalization to
// an expression term (spec.md §4.4). It is also used, unmodified, on
// embedded expressions inside stream operators (Filter.Predicate,
// Update.Patch, Get.Key, Insert.Docs).
func simplifyExpr(t ir.Term) (ir.Term, bool) {
	switch n := t.(type) {
	case ir.BinaryOp:
		return simplifyBinaryOp(n)
	case ir.UnaryOp:
		return simplifyUnaryOp(n)
	default:
		return t, false
	}
}

func simplifyBinaryOp(n ir.BinaryOp) (ir.Term, bool) {
	left, lc := simplifyExpr(n.Left)
	right, rc := simplifyExpr(n.Right)
	changed := lc || rc

	if lConst, lok := left.(ir.Constant); lok {
		if rConst, rok := right.(ir.Constant); rok {
			if folded, ok := foldBinary(n.Op, lConst.Value, rConst.Value); ok {
				return ir.Constant{Value: folded}, true
			}
		}
	}

	if n.Op == ir.And || n.Op == ir.Or {
		if lb, ok := boolConst(left); ok {
			if (n.Op == ir.And) == lb {
				return right, true
			}
			return ir.Constant{Value: value.Bool(lb)}, true
		}
		if rb, ok := boolConst(right); ok {
			if (n.Op == ir.And) == rb {
				return left, true
			}
			return ir.Constant{Value: value.Bool(rb)}, true
		}
	}

	if isComparison(n.Op) {
		_, lok := left.(ir.Constant)
		_, rok := right.(ir.Field)
		if lok && rok {
			return ir.BinaryOp{Op: swapComparison(n.Op), Left: right, Right: left}, true
		}
	}

	if changed {
		return ir.BinaryOp{Op: n.Op, Left: left, Right: right}, true
	}
	return n, false
}

func simplifyUnaryOp(n ir.UnaryOp) (ir.Term, bool) {
	inner, ic := simplifyExpr(n.Expr)

	if innerNot, ok := inner.(ir.UnaryOp); ok && innerNot.Op == ir.Not {
		return innerNot.Expr, true
	}
	if c, ok := inner.(ir.Constant); ok {
		return ir.Constant{Value: value.Not(c.Value)}, true
	}
	if bin, ok := inner.(ir.BinaryOp); ok && (bin.Op == ir.And || bin.Op == ir.Or) {
		if enablesFold(bin.Left) || enablesFold(bin.Right) {
			newOp := ir.Or
			if bin.Op == ir.Or {
				newOp = ir.And
			}
			notLeft, _ := simplifyExpr(ir.UnaryOp{Op: ir.Not, Expr: bin.Left})
			notRight, _ := simplifyExpr(ir.UnaryOp{Op: ir.Not, Expr: bin.Right})
			result, _ := simplifyExpr(ir.BinaryOp{Op: newOp, Left: notLeft, Right: notRight})
			return result, true
		}
	}

	if ic {
		return ir.UnaryOp{Op: ir.Not, Expr: inner}, true
	}
	return n, false
}

// enablesFold reports whether negating t would immediately create a
// foldable or collapsible term, per the "only when it enables further
// folding" condition on negation pushdown (spec.md §4.4).
func enablesFold(t ir.Term) bool {
	switch n := t.(type) {
	case ir.Constant:
		return true
	case ir.UnaryOp:
		return n.Op == ir.Not
	default:
		return false
	}
}

func boolConst(t ir.Term) (bool, bool) {
	c, ok := t.(ir.Constant)
	if !ok || c.Value.Kind() != value.KindBool {
		return false, false
	}
	b, _ := c.Value.AsBool()
	return b, true
}

func isComparison(op ir.BinaryOpKind) bool {
	switch op {
	case ir.Eq, ir.Ne, ir.Lt, ir.Le, ir.Gt, ir.Ge:
		return true
	default:
		return false
	}
}

func swapComparison(op ir.BinaryOpKind) ir.BinaryOpKind {
	switch op {
	case ir.Lt:
		return ir.Gt
	case ir.Le:
		return ir.Ge
	case ir.Gt:
		return ir.Lt
	case ir.Ge:
		return ir.Le
	default:
		return op
	}
}

func foldBinary(op ir.BinaryOpKind, l, r value.Value) (value.Value, bool) {
	switch op {
	case ir.Eq:
		return value.Bool(value.Equal(l, r)), true
	case ir.Ne:
		return value.Bool(!value.Equal(l, r)), true
	case ir.Lt:
		return value.Bool(value.Compare(l, r) < 0), true
	case ir.Le:
		return value.Bool(value.Compare(l, r) <= 0), true
	case ir.Gt:
		return value.Bool(value.Compare(l, r) > 0), true
	case ir.Ge:
		return value.Bool(value.Compare(l, r) >= 0), true
	case ir.And:
		return value.Bool(value.Truthy(l) && value.Truthy(r)), true
	case ir.Or:
		return value.Bool(value.Truthy(l) || value.Truthy(r)), true
	default:
		return value.Null(), false
	}
}
