package eval

import (
	"context"
	"errors"
	"time"

	"github.com/cuemby/docql/pkg/cursor"
	"github.com/cuemby/docql/pkg/metrics"
	"github.com/cuemby/docql/pkg/plan"
	"github.com/cuemby/docql/pkg/storage"
	"github.com/cuemby/docql/pkg/value"
)

// Engine compiles and drives plan trees against a storage.Store.
type Engine struct {
	Store storage.Store

	// Matcher backs the Match term; defaults to a regexp-backed
	// implementation if nil (see matcher()).
	Matcher Matcher

	// OrderByCap bounds how many documents OrderBy will buffer in
	// memory before failing with KindResourceExhausted. Zero uses
	// defaultOrderByCap.
	OrderByCap int
}

// NewEngine returns an Engine reading and writing through store.
func NewEngine(store storage.Store) *Engine {
	return &Engine{Store: store}
}

func (e *Engine) matcher() Matcher {
	if e.Matcher != nil {
		return e.Matcher
	}
	return defaultMatcher
}

var defaultMatcher = NewRegexMatcher()

const (
	defaultOrderByCap  = 100000
	orderByDrainBatch  = 1000
	storageRetryBudget = 3
	storageRetryDelay  = 10 * time.Millisecond
)

// Execute compiles n and runs it for one segment starting at cur.
func (e *Engine) Execute(ctx context.Context, n plan.Node, cur cursor.Cursor) (SegmentResult, error) {
	if err := ctxErr(ctx); err != nil {
		return SegmentResult{}, err
	}
	op, err := e.Compile(n)
	if err != nil {
		return SegmentResult{}, err
	}
	return op(ctx, SegmentRequest{Cursor: cur})
}

// Compile turns a plan tree into a closure tree of OperatorFuncs, each
// closed over its source's own compiled func (spec.md §9 design note).
func (e *Engine) Compile(n plan.Node) (OperatorFunc, error) {
	switch v := n.(type) {
	case *plan.ScanTable:
		return e.compileScanTable(v)
	case *plan.Filter:
		return e.compileFilter(v)
	case *plan.OrderBy:
		return e.compileOrderBy(v)
	case *plan.Limit:
		return e.compileLimit(v)
	case *plan.Skip:
		return e.compileSkip(v)
	case *plan.Pluck:
		return e.compilePluck(v)
	case *plan.Without:
		return e.compileWithout(v)
	case *plan.Count:
		return e.compileCount(v)
	case *plan.Get:
		return e.compileGet(v)
	case *plan.Insert:
		return e.compileInsert(v)
	case *plan.InsertNoOp:
		return e.compileInsertNoOp()
	case *plan.Update:
		return e.compileUpdate(v)
	case *plan.Delete:
		return e.compileDelete(v)
	case *plan.Expr:
		return e.compileExpr(v)
	case *plan.EmptyStream:
		return e.compileEmptyStream()
	case *plan.DatabaseCreate:
		return e.compileDatabaseCreate(v)
	case *plan.DatabaseDrop:
		return e.compileDatabaseDrop(v)
	case *plan.DatabaseList:
		return e.compileDatabaseList()
	case *plan.TableCreate:
		return e.compileTableCreate(v)
	case *plan.TableDrop:
		return e.compileTableDrop(v)
	case *plan.TableList:
		return e.compileTableList(v)
	default:
		return nil, newErr(KindInternal, "no compiled operator for plan node %T", n)
	}
}

// ctxErr maps a cancelled or expired context into the Cancelled/
// Timeout evaluator error kinds, checked at every storage boundary and
// between segments within a draining operator (spec.md §7).
func ctxErr(ctx context.Context) error {
	select {
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return newErr(KindTimeout, "request deadline exceeded")
		}
		return newErr(KindCancelled, "request cancelled")
	default:
		return nil
	}
}

// retryStorage retries fn while it fails with a retryable
// storage.Error, up to storageRetryBudget additional attempts with
// exponential backoff starting at storageRetryDelay (spec.md §7).
func retryStorage(ctx context.Context, fn func() error) error {
	delay := storageRetryDelay
	var err error
	for attempt := 0; ; attempt++ {
		err = fn()
		if err == nil || !storage.IsRetryable(err) || attempt >= storageRetryBudget {
			return err
		}
		metrics.StorageRetriesTotal.Inc()
		select {
		case <-ctx.Done():
			return ctxErr(ctx)
		case <-time.After(delay):
		}
		delay *= 2
	}
}

func (e *Engine) scan(ctx context.Context, db, table string, startKey value.Value, batch int) ([]storage.Row, value.Value, bool, error) {
	defer metrics.NewTimer().ObserveDurationVec(metrics.StorageOpDuration, "scan")
	metrics.CursorBatchSize.Observe(float64(batch))
	var rows []storage.Row
	var next value.Value
	var hasNext bool
	err := retryStorage(ctx, func() error {
		r, n, h, err := e.Store.Scan(db, table, startKey, batch)
		rows, next, hasNext = r, n, h
		return err
	})
	return rows, next, hasNext, err
}

func (e *Engine) get(ctx context.Context, db, table string, id value.Value) (value.Value, bool, error) {
	defer metrics.NewTimer().ObserveDurationVec(metrics.StorageOpDuration, "get")
	var doc value.Value
	var found bool
	err := retryStorage(ctx, func() error {
		d, ok, err := e.Store.Get(db, table, id)
		doc, found = d, ok
		return err
	})
	return doc, found, err
}

func (e *Engine) put(ctx context.Context, db, table string, id, doc value.Value) error {
	defer metrics.NewTimer().ObserveDurationVec(metrics.StorageOpDuration, "put")
	return retryStorage(ctx, func() error { return e.Store.Put(db, table, id, doc) })
}

func (e *Engine) del(ctx context.Context, db, table string, id value.Value) (bool, error) {
	defer metrics.NewTimer().ObserveDurationVec(metrics.StorageOpDuration, "delete")
	var existed bool
	err := retryStorage(ctx, func() error {
		ex, err := e.Store.Delete(db, table, id)
		existed = ex
		return err
	})
	return existed, err
}
