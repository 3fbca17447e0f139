package plan

import (
	"testing"

	"github.com/cuemby/docql/pkg/ir"
	"github.com/cuemby/docql/pkg/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dbTerm(name string) ir.Term { return ir.Database{Name: name} }

func tableTerm(db, name string) ir.Term {
	return ir.Table{DB: dbTerm(db), Name: name}
}

func TestLowerTableToScanTable(t *testing.T) {
	n, err := Lower(tableTerm("u", "t"))
	require.NoError(t, err)
	st, ok := n.(*ScanTable)
	require.True(t, ok)
	assert.Equal(t, "u", st.DB)
	assert.Equal(t, "t", st.Table)
	assert.Equal(t, DefaultBatchSize, st.BatchSize)
}

func TestLowerTableWithOptions(t *testing.T) {
	term := ir.Table{
		DB:   dbTerm("u"),
		Name: "t",
		Options: ir.TableOptions{
			HasStartKey: true, StartKey: value.String("x"),
			HasBatchSize: true, BatchSize: 7,
		},
	}
	n, err := Lower(term)
	require.NoError(t, err)
	st := n.(*ScanTable)
	assert.True(t, st.HasStartKey)
	assert.Equal(t, 7, st.BatchSize)
}

func TestLowerFilter(t *testing.T) {
	n, err := Lower(ir.Filter{
		Source:    tableTerm("u", "t"),
		Predicate: ir.Constant{Value: value.Bool(true)},
	})
	require.NoError(t, err)
	f, ok := n.(*Filter)
	require.True(t, ok)
	_, ok = f.Source.(*ScanTable)
	assert.True(t, ok)
}

func TestLowerInsertEmptyDocsBecomesNoOp(t *testing.T) {
	n, err := Lower(ir.Insert{Table: tableTerm("u", "t"), Docs: nil})
	require.NoError(t, err)
	_, ok := n.(*InsertNoOp)
	assert.True(t, ok)
}

func TestLowerMissingTableReference(t *testing.T) {
	_, err := Lower(ir.Get{Table: ir.Database{Name: "u"}, Key: ir.Constant{Value: value.String("a")}})
	require.Error(t, err)
	assert.Equal(t, KindMissingTableReference, err.(*Error).Kind)
}

func TestOptimizeFilterTrueElidesToSource(t *testing.T) {
	n, err := Lower(ir.Filter{Source: tableTerm("u", "t"), Predicate: ir.Constant{Value: value.Bool(true)}})
	require.NoError(t, err)
	got := Optimize(n)
	_, ok := got.(*ScanTable)
	assert.True(t, ok)
}

func TestOptimizeFilterFalseBecomesEmptyStream(t *testing.T) {
	n, err := Lower(ir.Filter{Source: tableTerm("u", "t"), Predicate: ir.Constant{Value: value.Bool(false)}})
	require.NoError(t, err)
	got := Optimize(n)
	_, ok := got.(*EmptyStream)
	assert.True(t, ok)
}

func TestOptimizeLimitZeroBecomesEmptyStream(t *testing.T) {
	n, err := Lower(ir.Limit{Source: tableTerm("u", "t"), N: 0})
	require.NoError(t, err)
	got := Optimize(n)
	_, ok := got.(*EmptyStream)
	assert.True(t, ok)
}

func TestOptimizeLimitPushdownThroughPluck(t *testing.T) {
	n, err := Lower(ir.Limit{
		Source: ir.Pluck{Source: tableTerm("u", "t"), Fields: []ir.FieldPath{{Segments: []string{"id"}}}},
		N:      5,
	})
	require.NoError(t, err)
	got := Optimize(n)
	lim := got.(*Limit)
	pluck := lim.Source.(*Pluck)
	st := pluck.Source.(*ScanTable)
	require.NotNil(t, st.LimitHint)
	assert.EqualValues(t, 5, *st.LimitHint)
}

func TestOptimizeLimitNotPushedThroughFilter(t *testing.T) {
	n, err := Lower(ir.Limit{
		Source: ir.Filter{Source: tableTerm("u", "t"), Predicate: ir.BinaryOp{
			Op: ir.Gt, Left: ir.Field{Path: ir.FieldPath{Segments: []string{"n"}}}, Right: ir.Constant{Value: value.Int(1)},
		}},
		N: 5,
	})
	require.NoError(t, err)
	got := Optimize(n)
	lim := got.(*Limit)
	filter := lim.Source.(*Filter)
	st := filter.Source.(*ScanTable)
	assert.Nil(t, st.LimitHint)
}

func TestOptimizeSortPushdownDropsOrderByOnIDAscending(t *testing.T) {
	n, err := Lower(ir.OrderBy{
		Source: tableTerm("u", "t"),
		Fields: []ir.SortField{{Path: ir.FieldPath{Segments: []string{"id"}}, Descending: false}},
	})
	require.NoError(t, err)
	got := Optimize(n)
	st, ok := got.(*ScanTable)
	require.True(t, ok)
	assert.NotNil(t, st.SortHint)
}

func TestOptimizeSortNotDroppedOnDescendingID(t *testing.T) {
	n, err := Lower(ir.OrderBy{
		Source: tableTerm("u", "t"),
		Fields: []ir.SortField{{Path: ir.FieldPath{Segments: []string{"id"}}, Descending: true}},
	})
	require.NoError(t, err)
	got := Optimize(n)
	_, ok := got.(*OrderBy)
	assert.True(t, ok)
}

func TestExplainProducesNonEmptyTree(t *testing.T) {
	n, err := Lower(ir.Filter{Source: tableTerm("u", "t"), Predicate: ir.Constant{Value: value.Bool(true)}})
	require.NoError(t, err)
	out := Explain(n)
	assert.Contains(t, out, "Filter")
	assert.Contains(t, out, "ScanTable")
}
