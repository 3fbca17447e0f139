package eval

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/docql/pkg/cursor"
	"github.com/cuemby/docql/pkg/ir"
	"github.com/cuemby/docql/pkg/plan"
	"github.com/cuemby/docql/pkg/storage"
	"github.com/cuemby/docql/pkg/value"
)

func newTestEngine(t *testing.T) (*Engine, storage.Store) {
	t.Helper()
	st, err := storage.NewBoltStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.CreateDatabase("shop"))
	require.NoError(t, st.CreateTable("shop", "orders"))
	return NewEngine(st), st
}

func docTerm(fields map[string]value.Value) ir.Term {
	return ir.Constant{Value: value.Object(fields)}
}

func insertDocs(t *testing.T, e *Engine, n int) {
	t.Helper()
	docs := make([]ir.Term, n)
	for i := 0; i < n; i++ {
		docs[i] = docTerm(map[string]value.Value{
			"id":     value.Int(int64(i)),
			"amount": value.Int(int64(i * 10)),
		})
	}
	node := &plan.Insert{DB: "shop", Table: "orders", Docs: docs, Conflict: ir.ConflictError}
	res, err := e.Execute(context.Background(), node, cursor.New())
	require.NoError(t, err)
	obj, ok := res.Scalar.AsObject()
	require.True(t, ok)
	n64, _ := obj["inserted"].AsInt()
	assert.Equal(t, int64(n), n64)
}

func TestInsertGetDelete(t *testing.T) {
	e, _ := newTestEngine(t)
	insertDocs(t, e, 1)

	get := &plan.Get{DB: "shop", Table: "orders", Key: ir.Constant{Value: value.Int(0)}}
	res, err := e.Execute(context.Background(), get, cursor.New())
	require.NoError(t, err)
	amount, ok := res.Scalar.Field("amount")
	require.True(t, ok)
	i, _ := amount.AsInt()
	assert.Equal(t, int64(0), i)

	del := &plan.Delete{Source: &plan.ScanTable{DB: "shop", Table: "orders", BatchSize: 10}}
	res, err = e.Execute(context.Background(), del, cursor.New())
	require.NoError(t, err)
	obj, _ := res.Scalar.AsObject()
	deleted, _ := obj["deleted"].AsInt()
	assert.Equal(t, int64(1), deleted)

	res, err = e.Execute(context.Background(), get, cursor.New())
	require.NoError(t, err)
	assert.True(t, res.Scalar.IsNull())
}

func TestInsertConflictModes(t *testing.T) {
	e, _ := newTestEngine(t)
	insertDocs(t, e, 1)

	dup := &plan.Insert{
		DB: "shop", Table: "orders",
		Docs:     []ir.Term{docTerm(map[string]value.Value{"id": value.Int(0), "amount": value.Int(999)})},
		Conflict: ir.ConflictError,
	}
	res, err := e.Execute(context.Background(), dup, cursor.New())
	require.NoError(t, err)
	obj, _ := res.Scalar.AsObject()
	errs, _ := obj["errors"].AsInt()
	assert.Equal(t, int64(1), errs)
	_, hasFirstErr := obj["first_error"]
	assert.True(t, hasFirstErr)

	replace := &plan.Insert{
		DB: "shop", Table: "orders",
		Docs:     []ir.Term{docTerm(map[string]value.Value{"id": value.Int(0), "amount": value.Int(999)})},
		Conflict: ir.ConflictReplace,
	}
	res, err = e.Execute(context.Background(), replace, cursor.New())
	require.NoError(t, err)
	obj, _ = res.Scalar.AsObject()
	inserted, _ := obj["inserted"].AsInt()
	assert.Equal(t, int64(1), inserted)

	get := &plan.Get{DB: "shop", Table: "orders", Key: ir.Constant{Value: value.Int(0)}}
	res, err = e.Execute(context.Background(), get, cursor.New())
	require.NoError(t, err)
	amount, _ := res.Scalar.Field("amount")
	i, _ := amount.AsInt()
	assert.Equal(t, int64(999), i)

	update := &plan.Insert{
		DB: "shop", Table: "orders",
		Docs:     []ir.Term{docTerm(map[string]value.Value{"id": value.Int(0), "extra": value.Bool(true)})},
		Conflict: ir.ConflictUpdate,
	}
	_, err = e.Execute(context.Background(), update, cursor.New())
	require.NoError(t, err)
	res, err = e.Execute(context.Background(), get, cursor.New())
	require.NoError(t, err)
	amount, _ = res.Scalar.Field("amount")
	i, _ = amount.AsInt()
	assert.Equal(t, int64(999), i, "update-mode insert must preserve untouched fields")
	extra, ok := res.Scalar.Field("extra")
	require.True(t, ok)
	b, _ := extra.AsBool()
	assert.True(t, b)
}

func TestFilterAndUpdate(t *testing.T) {
	e, _ := newTestEngine(t)
	insertDocs(t, e, 5)

	filter := &plan.Filter{
		Source: &plan.ScanTable{DB: "shop", Table: "orders", BatchSize: 50},
		Predicate: ir.BinaryOp{
			Op:    ir.Ge,
			Left:  ir.Field{Path: ir.FieldPath{Segments: []string{"amount"}}},
			Right: ir.Constant{Value: value.Int(20)},
		},
	}
	res, err := e.Execute(context.Background(), filter, cursor.New())
	require.NoError(t, err)
	assert.Len(t, res.Documents, 3) // amounts 20,30,40

	update := &plan.Update{
		Source: filter,
		Patch: ir.Constant{Value: value.Object(map[string]value.Value{
			"status": value.String("reviewed"),
		})},
	}
	ures, err := e.Execute(context.Background(), update, cursor.New())
	require.NoError(t, err)
	obj, _ := ures.Scalar.AsObject()
	replaced, _ := obj["replaced"].AsInt()
	assert.Equal(t, int64(3), replaced)

	get := &plan.Get{DB: "shop", Table: "orders", Key: ir.Constant{Value: value.Int(2)}}
	gres, err := e.Execute(context.Background(), get, cursor.New())
	require.NoError(t, err)
	status, ok := gres.Scalar.Field("status")
	require.True(t, ok)
	s, _ := status.AsString()
	assert.Equal(t, "reviewed", s)
}

func TestScanTablePagination(t *testing.T) {
	e, _ := newTestEngine(t)
	insertDocs(t, e, 10)

	scan := &plan.ScanTable{DB: "shop", Table: "orders", BatchSize: 3}
	cur := cursor.Cursor{BatchSize: 3}
	var seen []int64
	for {
		res, err := e.Execute(context.Background(), scan, cur)
		require.NoError(t, err)
		for _, doc := range res.Documents {
			id, _ := value.DocumentID(doc)
			i, _ := id.AsInt()
			seen = append(seen, i)
		}
		if !res.HasNext {
			break
		}
		cur = res.Cursor
	}
	assert.Len(t, seen, 10)
	assert.ElementsMatch(t, []int64{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, seen)
}

func TestLimitAndSkipCrossSegments(t *testing.T) {
	e, _ := newTestEngine(t)
	insertDocs(t, e, 10)

	limited := &plan.Limit{
		Source: &plan.Skip{
			Source: &plan.ScanTable{DB: "shop", Table: "orders", BatchSize: 3},
			N:      2,
		},
		N: 5,
	}
	cur := cursor.Cursor{BatchSize: 3}
	var seen []int64
	for {
		res, err := e.Execute(context.Background(), limited, cur)
		require.NoError(t, err)
		for _, doc := range res.Documents {
			id, _ := value.DocumentID(doc)
			i, _ := id.AsInt()
			seen = append(seen, i)
		}
		if !res.HasNext {
			break
		}
		cur = res.Cursor
	}
	assert.Equal(t, []int64{2, 3, 4, 5, 6}, seen)
}

// TestSkipPushdownSegmentsStayWithinBatchSize drives Skip(ScanTable)
// through plan.Optimize so SkipHint is actually set (the pushdown this
// exercises only fires post-optimize), then checks every continuation
// segment still respects batch_size: once the live skip is consumed,
// pkg/eval/operators.go's compileScanTable must size its read off the
// cursor's remaining skip count, not the stale plan-time hint, or it
// over-reads and over-emits on every segment after the first.
func TestSkipPushdownSegmentsStayWithinBatchSize(t *testing.T) {
	e, _ := newTestEngine(t)
	insertDocs(t, e, 20)

	const batchSize = 3
	node := plan.Optimize(&plan.Skip{
		Source: &plan.ScanTable{DB: "shop", Table: "orders"},
		N:      5,
	})

	cur := cursor.Cursor{BatchSize: batchSize}
	var seen []int64
	for {
		res, err := e.Execute(context.Background(), node, cur)
		require.NoError(t, err)
		assert.LessOrEqualf(t, len(res.Documents), batchSize,
			"segment starting after %d seen docs returned %d, want <= %d", len(seen), len(res.Documents), batchSize)
		for _, doc := range res.Documents {
			id, _ := value.DocumentID(doc)
			i, _ := id.AsInt()
			seen = append(seen, i)
		}
		if !res.HasNext {
			break
		}
		cur = res.Cursor
	}
	assert.Len(t, seen, 15)
	assert.ElementsMatch(t, []int64{5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16, 17, 18, 19}, seen)
}

func TestOrderByStableAndPaginated(t *testing.T) {
	e, _ := newTestEngine(t)
	insertDocs(t, e, 6)

	ordered := &plan.OrderBy{
		Source: &plan.ScanTable{DB: "shop", Table: "orders", BatchSize: 50},
		Fields: []ir.SortField{{Path: ir.FieldPath{Segments: []string{"amount"}}, Descending: true}},
	}
	cur := cursor.Cursor{BatchSize: 2}
	var seen []int64
	for {
		res, err := e.Execute(context.Background(), ordered, cur)
		require.NoError(t, err)
		for _, doc := range res.Documents {
			amount, _ := doc.Field("amount")
			i, _ := amount.AsInt()
			seen = append(seen, i)
		}
		if !res.HasNext {
			break
		}
		cur = res.Cursor
	}
	assert.Equal(t, []int64{50, 40, 30, 20, 10, 0}, seen)
}

func TestOrderByResourceExhausted(t *testing.T) {
	e, _ := newTestEngine(t)
	e.OrderByCap = 3
	insertDocs(t, e, 5)

	ordered := &plan.OrderBy{
		Source: &plan.ScanTable{DB: "shop", Table: "orders", BatchSize: 50},
		Fields: []ir.SortField{{Path: ir.FieldPath{Segments: []string{"amount"}}}},
	}
	_, err := e.Execute(context.Background(), ordered, cursor.New())
	require.Error(t, err)
	evalErr, ok := err.(*Error)
	require.True(t, ok)
	assert.Equal(t, KindResourceExhausted, evalErr.Kind)
}

func TestCount(t *testing.T) {
	e, _ := newTestEngine(t)
	insertDocs(t, e, 7)

	count := &plan.Count{Source: &plan.ScanTable{DB: "shop", Table: "orders", BatchSize: 2}}
	res, err := e.Execute(context.Background(), count, cursor.New())
	require.NoError(t, err)
	n, _ := res.Scalar.AsInt()
	assert.Equal(t, int64(7), n)
}

func TestMatchPredicate(t *testing.T) {
	e, _ := newTestEngine(t)
	node := &plan.Insert{
		DB: "shop", Table: "orders",
		Docs: []ir.Term{
			docTerm(map[string]value.Value{"id": value.String("a"), "name": value.String("widget-1")}),
			docTerm(map[string]value.Value{"id": value.String("b"), "name": value.String("gadget-2")}),
		},
		Conflict: ir.ConflictError,
	}
	_, err := e.Execute(context.Background(), node, cursor.New())
	require.NoError(t, err)

	filter := &plan.Filter{
		Source: &plan.ScanTable{DB: "shop", Table: "orders", BatchSize: 50},
		Predicate: ir.Match{
			Value:   ir.Field{Path: ir.FieldPath{Segments: []string{"name"}}},
			Pattern: `^widget`,
		},
	}
	res, err := e.Execute(context.Background(), filter, cursor.New())
	require.NoError(t, err)
	require.Len(t, res.Documents, 1)
	name, _ := res.Documents[0].Field("name")
	s, _ := name.AsString()
	assert.Equal(t, "widget-1", s)
}

func TestExecuteRespectsCancelledContext(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.Execute(ctx, &plan.ScanTable{DB: "shop", Table: "orders"}, cursor.New())
	require.Error(t, err)
	evalErr, ok := err.(*Error)
	require.True(t, ok)
	assert.Equal(t, KindCancelled, evalErr.Kind)
}

func TestDatabaseAndTableDDL(t *testing.T) {
	e, _ := newTestEngine(t)

	create := &plan.DatabaseCreate{Name: "analytics"}
	res, err := e.Execute(context.Background(), create, cursor.New())
	require.NoError(t, err)
	b, _ := res.Scalar.AsBool()
	assert.True(t, b)

	tableCreate := &plan.TableCreate{DB: "analytics", Name: "events"}
	_, err = e.Execute(context.Background(), tableCreate, cursor.New())
	require.NoError(t, err)

	list := &plan.TableList{DB: "analytics"}
	res, err = e.Execute(context.Background(), list, cursor.New())
	require.NoError(t, err)
	arr, _ := res.Scalar.AsArray()
	require.Len(t, arr, 1)
	s, _ := arr[0].AsString()
	assert.Equal(t, "events", s)

	dbList := &plan.DatabaseList{}
	res, err = e.Execute(context.Background(), dbList, cursor.New())
	require.NoError(t, err)
	arr, _ = res.Scalar.AsArray()
	assert.ElementsMatch(t, []string{"shop", "analytics"}, valuesToStrings(arr))
}

func valuesToStrings(vs []value.Value) []string {
	out := make([]string, len(vs))
	for i, v := range vs {
		s, _ := v.AsString()
		out[i] = s
	}
	return out
}
