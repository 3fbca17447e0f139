package plan

import (
	"testing"

	"github.com/cuemby/docql/pkg/ir"
	"github.com/cuemby/docql/pkg/value"
	"github.com/stretchr/testify/assert"
)

func field(name string) ir.Term {
	return ir.Field{Path: ir.FieldPath{Segments: []string{name}, Separator: "."}}
}

func constInt(n int64) ir.Term { return ir.Constant{Value: value.Int(n)} }
func constBool(b bool) ir.Term { return ir.Constant{Value: value.Bool(b)} }

func TestSimplifyConstantFolding(t *testing.T) {
	got, changed := simplifyExpr(ir.BinaryOp{Op: ir.Eq, Left: constInt(1), Right: constInt(1)})
	assert.True(t, changed)
	c := got.(ir.Constant)
	b, _ := c.Value.AsBool()
	assert.True(t, b)
}

func TestSimplifyAndIdentities(t *testing.T) {
	got, changed := simplifyExpr(ir.BinaryOp{Op: ir.And, Left: field("x"), Right: constBool(true)})
	assert.True(t, changed)
	assert.Equal(t, field("x"), got)

	got, changed = simplifyExpr(ir.BinaryOp{Op: ir.And, Left: field("x"), Right: constBool(false)})
	assert.True(t, changed)
	c := got.(ir.Constant)
	b, _ := c.Value.AsBool()
	assert.False(t, b)
}

func TestSimplifyOrIdentities(t *testing.T) {
	got, changed := simplifyExpr(ir.BinaryOp{Op: ir.Or, Left: field("x"), Right: constBool(false)})
	assert.True(t, changed)
	assert.Equal(t, field("x"), got)

	got, changed = simplifyExpr(ir.BinaryOp{Op: ir.Or, Left: field("x"), Right: constBool(true)})
	assert.True(t, changed)
	c := got.(ir.Constant)
	b, _ := c.Value.AsBool()
	assert.True(t, b)
}

func TestSimplifyDoubleNegationCollapses(t *testing.T) {
	inner := ir.BinaryOp{Op: ir.Gt, Left: field("n"), Right: constInt(1)}
	got, changed := simplifyExpr(ir.UnaryOp{Op: ir.Not, Expr: ir.UnaryOp{Op: ir.Not, Expr: inner}})
	assert.True(t, changed)
	assert.Equal(t, inner, got)
}

func TestSimplifyComparisonCanonicalization(t *testing.T) {
	got, changed := simplifyExpr(ir.BinaryOp{Op: ir.Lt, Left: constInt(1), Right: field("n")})
	assert.True(t, changed)
	op := got.(ir.BinaryOp)
	assert.Equal(t, ir.Gt, op.Op)
	_, ok := op.Left.(ir.Field)
	assert.True(t, ok)
}

func TestSimplifyNegationPushdownWhenEnablesFold(t *testing.T) {
	inner := ir.BinaryOp{Op: ir.And, Left: constInt(1), Right: field("active")}
	got, changed := simplifyExpr(ir.UnaryOp{Op: ir.Not, Expr: inner})
	assert.True(t, changed)
	// NOT(1 AND active) -> NOT 1 OR NOT active -> false OR NOT active -> NOT active
	un, ok := got.(ir.UnaryOp)
	assert.True(t, ok)
	assert.Equal(t, ir.Not, un.Op)
}

func TestSimplifyNoChangeReturnsUnchanged(t *testing.T) {
	pred := ir.BinaryOp{Op: ir.Gt, Left: field("n"), Right: constInt(1)}
	got, changed := simplifyExpr(pred)
	assert.False(t, changed)
	assert.Equal(t, pred, got)
}

func TestOptimizeScenarioFromSpec(t *testing.T) {
	// Filter(Table, And(Constant(true), Eq(Field(status), Constant("active"))))
	// optimizes to Filter(Table, Eq(Field(status), Constant("active")))
	pred := ir.BinaryOp{
		Op:   ir.And,
		Left: constBool(true),
		Right: ir.BinaryOp{
			Op: ir.Eq, Left: field("status"), Right: ir.Constant{Value: value.String("active")},
		},
	}
	n, err := Lower(ir.Filter{Source: tableTerm("u", "t"), Predicate: pred})
	assert.NoError(t, err)
	got := Optimize(n)
	f, ok := got.(*Filter)
	assert.True(t, ok)
	op, ok := f.Predicate.(ir.BinaryOp)
	assert.True(t, ok)
	assert.Equal(t, ir.Eq, op.Op)
}
