package eval

import (
	"context"
	"fmt"
	"sort"

	"github.com/cuemby/docql/pkg/cursor"
	"github.com/cuemby/docql/pkg/ir"
	"github.com/cuemby/docql/pkg/plan"
	"github.com/cuemby/docql/pkg/value"
)

func (e *Engine) compileScanTable(v *plan.ScanTable) (OperatorFunc, error) {
	return func(ctx context.Context, req SegmentRequest) (SegmentResult, error) {
		if err := ctxErr(ctx); err != nil {
			return SegmentResult{}, err
		}

		startKey := value.Null()
		if req.Cursor.HasStartKey {
			startKey = req.Cursor.StartKey
		} else if v.HasStartKey {
			startKey = v.StartKey
		}

		batch := req.Cursor.BatchSize
		if batch <= 0 {
			batch = v.BatchSize
		}
		if batch <= 0 {
			batch = plan.DefaultBatchSize
		}

		readBatch := batch
		switch {
		case v.SkipHint != nil:
			// SkipHint is the skip count at plan time, correct only for
			// the first segment: the retained Skip operator consumes it
			// locally and echoes the live remainder back via
			// req.Cursor.SkipRemaining, so later segments must size the
			// read off that instead of re-reading skip+limit rows
			// forever (spec.md §4.1/§4.6 segment bound).
			skip := *v.SkipHint
			if req.Cursor.SkipRemaining != nil {
				skip = *req.Cursor.SkipRemaining
			}
			limit := int64(batch)
			if v.LimitHint != nil {
				limit = *v.LimitHint
			}
			readBatch = int(skip + limit)
		case v.LimitHint != nil && *v.LimitHint < int64(batch):
			readBatch = int(*v.LimitHint)
		}
		if readBatch <= 0 {
			readBatch = 1
		}

		rows, next, hasNext, err := e.scan(ctx, v.DB, v.Table, startKey, readBatch)
		if err != nil {
			return SegmentResult{}, err
		}
		docs := make([]value.Value, len(rows))
		for i, r := range rows {
			docs[i] = r.Doc
		}
		outCur := req.Cursor
		outCur.StartKey, outCur.HasStartKey = next, hasNext
		return SegmentResult{IsStream: true, Documents: docs, Cursor: outCur, HasNext: hasNext}, nil
	}, nil
}

func (e *Engine) compileFilter(v *plan.Filter) (OperatorFunc, error) {
	src, err := e.Compile(v.Source)
	if err != nil {
		return nil, err
	}
	return func(ctx context.Context, req SegmentRequest) (SegmentResult, error) {
		res, err := src(ctx, req)
		if err != nil {
			return SegmentResult{}, err
		}
		out := make([]value.Value, 0, len(res.Documents))
		for _, doc := range res.Documents {
			if err := ctxErr(ctx); err != nil {
				return SegmentResult{}, err
			}
			keep, err := e.EvalExpr(v.Predicate, RowEnv(doc))
			if err != nil {
				return SegmentResult{}, err
			}
			if value.Truthy(keep) {
				out = append(out, doc)
			}
		}
		return SegmentResult{IsStream: true, Documents: out, Cursor: res.Cursor, HasNext: res.HasNext}, nil
	}, nil
}

func (e *Engine) compilePluck(v *plan.Pluck) (OperatorFunc, error) {
	src, err := e.Compile(v.Source)
	if err != nil {
		return nil, err
	}
	paths := fieldPathSegments(v.Fields)
	return func(ctx context.Context, req SegmentRequest) (SegmentResult, error) {
		res, err := src(ctx, req)
		if err != nil {
			return SegmentResult{}, err
		}
		out := make([]value.Value, len(res.Documents))
		for i, doc := range res.Documents {
			out[i] = value.Pluck(doc, paths)
		}
		return SegmentResult{IsStream: true, Documents: out, Cursor: res.Cursor, HasNext: res.HasNext}, nil
	}, nil
}

func (e *Engine) compileWithout(v *plan.Without) (OperatorFunc, error) {
	src, err := e.Compile(v.Source)
	if err != nil {
		return nil, err
	}
	paths := fieldPathSegments(v.Fields)
	return func(ctx context.Context, req SegmentRequest) (SegmentResult, error) {
		res, err := src(ctx, req)
		if err != nil {
			return SegmentResult{}, err
		}
		out := make([]value.Value, len(res.Documents))
		for i, doc := range res.Documents {
			out[i] = value.Without(doc, paths)
		}
		return SegmentResult{IsStream: true, Documents: out, Cursor: res.Cursor, HasNext: res.HasNext}, nil
	}, nil
}

func fieldPathSegments(fps []ir.FieldPath) [][]string {
	out := make([][]string, len(fps))
	for i, fp := range fps {
		out[i] = fp.Segments
	}
	return out
}

func (e *Engine) compileLimit(v *plan.Limit) (OperatorFunc, error) {
	src, err := e.Compile(v.Source)
	if err != nil {
		return nil, err
	}
	return func(ctx context.Context, req SegmentRequest) (SegmentResult, error) {
		remaining := v.N
		if req.Cursor.LimitRemaining != nil {
			remaining = *req.Cursor.LimitRemaining
		}
		if remaining <= 0 {
			return SegmentResult{IsStream: true}, nil
		}
		res, err := src(ctx, req)
		if err != nil {
			return SegmentResult{}, err
		}
		take := int64(len(res.Documents))
		if take > remaining {
			take = remaining
		}
		docs := res.Documents[:take]
		remaining -= take
		hasNext := remaining > 0 && res.HasNext

		outCur := res.Cursor
		if hasNext {
			r := remaining
			outCur.LimitRemaining = &r
		} else {
			outCur.LimitRemaining = nil
		}
		return SegmentResult{IsStream: true, Documents: docs, Cursor: outCur, HasNext: hasNext}, nil
	}, nil
}

func (e *Engine) compileSkip(v *plan.Skip) (OperatorFunc, error) {
	src, err := e.Compile(v.Source)
	if err != nil {
		return nil, err
	}
	return func(ctx context.Context, req SegmentRequest) (SegmentResult, error) {
		remaining := v.N
		if req.Cursor.SkipRemaining != nil {
			remaining = *req.Cursor.SkipRemaining
		}
		res, err := src(ctx, req)
		if err != nil {
			return SegmentResult{}, err
		}
		docs := res.Documents
		if remaining > 0 {
			drop := int64(len(docs))
			if drop > remaining {
				drop = remaining
			}
			docs = docs[drop:]
			remaining -= drop
		}
		// Always carries a non-nil pointer once Skip has run once, even
		// at zero: unlike Limit, Skip keeps propagating the source's
		// HasNext after its own remaining count is exhausted, so a
		// cleared (nil) field here would be indistinguishable from "Skip
		// never saw this cursor" and re-apply the full skip on the next
		// segment.
		r := remaining
		outCur := res.Cursor
		outCur.SkipRemaining = &r
		return SegmentResult{IsStream: true, Documents: docs, Cursor: outCur, HasNext: res.HasNext}, nil
	}, nil
}

// drainAll fully re-derives a source's logical stream within a single
// request, re-driving its compiled operator segment by segment. Used
// by OrderBy and Count, the two blocking operators that cannot answer
// from a single upstream segment (spec.md §9).
func (e *Engine) drainAll(ctx context.Context, src OperatorFunc, seed cursor.Cursor, cap int) ([]value.Value, error) {
	var all []value.Value
	cur := seed
	cur.BatchSize = orderByDrainBatch
	for {
		if err := ctxErr(ctx); err != nil {
			return nil, err
		}
		res, err := src(ctx, SegmentRequest{Cursor: cur})
		if err != nil {
			return nil, err
		}
		all = append(all, res.Documents...)
		if cap > 0 && len(all) > cap {
			return nil, newErr(KindResourceExhausted, "buffered more than %d documents", cap)
		}
		if !res.HasNext {
			return all, nil
		}
		cur = res.Cursor
		cur.BatchSize = orderByDrainBatch
	}
}

func (e *Engine) compileCount(v *plan.Count) (OperatorFunc, error) {
	src, err := e.Compile(v.Source)
	if err != nil {
		return nil, err
	}
	return func(ctx context.Context, req SegmentRequest) (SegmentResult, error) {
		docs, err := e.drainAll(ctx, src, req.Cursor, 0)
		if err != nil {
			return SegmentResult{}, err
		}
		return SegmentResult{Scalar: value.Int(int64(len(docs)))}, nil
	}, nil
}

func (e *Engine) compileOrderBy(v *plan.OrderBy) (OperatorFunc, error) {
	src, err := e.Compile(v.Source)
	if err != nil {
		return nil, err
	}
	return func(ctx context.Context, req SegmentRequest) (SegmentResult, error) {
		bufCap := e.OrderByCap
		if bufCap <= 0 {
			bufCap = defaultOrderByCap
		}
		all, err := e.drainAll(ctx, src, cursor.Cursor{}, bufCap)
		if err != nil {
			return SegmentResult{}, err
		}

		type row struct {
			doc value.Value
			key value.Value
		}
		rows := make([]row, len(all))
		for i, doc := range all {
			id, _ := value.DocumentID(doc)
			rows[i] = row{doc: doc, key: cursor.SortKey(v.Fields, doc, id)}
		}
		sort.SliceStable(rows, func(i, j int) bool {
			return cursor.SortCompare(v.Fields, rows[i].key, rows[j].key) < 0
		})

		start := 0
		if req.Cursor.HasStartKey {
			for start < len(rows) && cursor.SortCompare(v.Fields, rows[start].key, req.Cursor.StartKey) <= 0 {
				start++
			}
		}
		batch := req.Cursor.BatchSize
		if batch <= 0 {
			batch = cursor.DefaultBatchSize
		}
		end := start + batch
		hasNext := end < len(rows)
		if !hasNext {
			end = len(rows)
		}

		docs := make([]value.Value, end-start)
		for i := start; i < end; i++ {
			docs[i-start] = rows[i].doc
		}

		outCur := cursor.Cursor{BatchSize: req.Cursor.BatchSize}
		if hasNext {
			outCur.StartKey, outCur.HasStartKey = rows[end-1].key, true
		}
		return SegmentResult{IsStream: true, Documents: docs, Cursor: outCur, HasNext: hasNext}, nil
	}, nil
}

func (e *Engine) compileGet(v *plan.Get) (OperatorFunc, error) {
	return func(ctx context.Context, req SegmentRequest) (SegmentResult, error) {
		key, err := e.EvalExpr(v.Key, NoRowEnv())
		if err != nil {
			return SegmentResult{}, err
		}
		doc, found, err := e.get(ctx, v.DB, v.Table, key)
		if err != nil {
			return SegmentResult{}, err
		}
		if !found {
			return SegmentResult{Scalar: value.Null()}, nil
		}
		return SegmentResult{Scalar: doc}, nil
	}, nil
}

func (e *Engine) compileInsert(v *plan.Insert) (OperatorFunc, error) {
	return func(ctx context.Context, req SegmentRequest) (SegmentResult, error) {
		var inserted, errs int
		var firstErr string
		for _, docTerm := range v.Docs {
			if err := ctxErr(ctx); err != nil {
				return SegmentResult{}, err
			}
			doc, err := e.EvalExpr(docTerm, NoRowEnv())
			if err != nil {
				return SegmentResult{}, err
			}
			id, ok := value.DocumentID(doc)
			if !ok {
				errs++
				if firstErr == "" {
					firstErr = fmt.Sprintf("%s: document missing a valid id field", KindMissingPrimaryKey)
				}
				continue
			}
			existing, found, err := e.get(ctx, v.DB, v.Table, id)
			if err != nil {
				return SegmentResult{}, err
			}
			if found {
				switch v.Conflict {
				case ir.ConflictReplace:
					if err := e.put(ctx, v.DB, v.Table, id, doc); err != nil {
						return SegmentResult{}, err
					}
					inserted++
				case ir.ConflictUpdate:
					if err := e.put(ctx, v.DB, v.Table, id, value.MergePatch(existing, doc)); err != nil {
						return SegmentResult{}, err
					}
					inserted++
				default:
					errs++
					if firstErr == "" {
						firstErr = fmt.Sprintf("%s: document with id %s already exists", KindDuplicatePrimaryKey, id.String())
					}
				}
				continue
			}
			if err := e.put(ctx, v.DB, v.Table, id, doc); err != nil {
				return SegmentResult{}, err
			}
			inserted++
		}
		return SegmentResult{Scalar: summaryValue("inserted", inserted, errs, firstErr)}, nil
	}, nil
}

func (e *Engine) compileInsertNoOp() (OperatorFunc, error) {
	return func(ctx context.Context, req SegmentRequest) (SegmentResult, error) {
		return SegmentResult{Scalar: summaryValue("inserted", 0, 0, "")}, nil
	}, nil
}

// sourceTableRef finds the (db, table) a stream ultimately scans, by
// unwrapping the projection/filter operators that may sit above a
// ScanTable. Update and Delete need this since their IR carries only
// a source stream, not an explicit table reference (spec.md §4.5
// Update{source,patch}, Delete{source}).
func sourceTableRef(n plan.Node) (db, table string, ok bool) {
	switch v := n.(type) {
	case *plan.ScanTable:
		return v.DB, v.Table, true
	case *plan.Filter:
		return sourceTableRef(v.Source)
	case *plan.OrderBy:
		return sourceTableRef(v.Source)
	case *plan.Limit:
		return sourceTableRef(v.Source)
	case *plan.Skip:
		return sourceTableRef(v.Source)
	case *plan.Pluck:
		return sourceTableRef(v.Source)
	case *plan.Without:
		return sourceTableRef(v.Source)
	default:
		return "", "", false
	}
}

func (e *Engine) compileUpdate(v *plan.Update) (OperatorFunc, error) {
	src, err := e.Compile(v.Source)
	if err != nil {
		return nil, err
	}
	db, table, ok := sourceTableRef(v.Source)
	if !ok {
		return nil, newErr(KindInternal, "Update source does not resolve to a single table scan")
	}
	return func(ctx context.Context, req SegmentRequest) (SegmentResult, error) {
		res, err := src(ctx, req)
		if err != nil {
			return SegmentResult{}, err
		}
		var replaced, errs int
		var firstErr string
		for _, doc := range res.Documents {
			if err := ctxErr(ctx); err != nil {
				return SegmentResult{}, err
			}
			id, ok := value.DocumentID(doc)
			if !ok {
				errs++
				if firstErr == "" {
					firstErr = fmt.Sprintf("%s: document missing a valid id field", KindMissingPrimaryKey)
				}
				continue
			}
			patch, err := e.EvalExpr(v.Patch, RowEnv(doc))
			if err != nil {
				return SegmentResult{}, err
			}
			merged := value.MergePatch(doc, patch)
			if err := e.put(ctx, db, table, id, merged); err != nil {
				return SegmentResult{}, err
			}
			replaced++
		}
		return SegmentResult{
			Scalar:  summaryValue("replaced", replaced, errs, firstErr),
			Cursor:  res.Cursor,
			HasNext: res.HasNext,
		}, nil
	}, nil
}

func (e *Engine) compileDelete(v *plan.Delete) (OperatorFunc, error) {
	src, err := e.Compile(v.Source)
	if err != nil {
		return nil, err
	}
	db, table, ok := sourceTableRef(v.Source)
	if !ok {
		return nil, newErr(KindInternal, "Delete source does not resolve to a single table scan")
	}
	return func(ctx context.Context, req SegmentRequest) (SegmentResult, error) {
		res, err := src(ctx, req)
		if err != nil {
			return SegmentResult{}, err
		}
		var deleted, errs int
		var firstErr string
		for _, doc := range res.Documents {
			if err := ctxErr(ctx); err != nil {
				return SegmentResult{}, err
			}
			id, ok := value.DocumentID(doc)
			if !ok {
				errs++
				if firstErr == "" {
					firstErr = fmt.Sprintf("%s: document missing a valid id field", KindMissingPrimaryKey)
				}
				continue
			}
			if _, err := e.del(ctx, db, table, id); err != nil {
				return SegmentResult{}, err
			}
			deleted++
		}
		return SegmentResult{
			Scalar:  summaryValue("deleted", deleted, errs, firstErr),
			Cursor:  res.Cursor,
			HasNext: res.HasNext,
		}, nil
	}, nil
}

func (e *Engine) compileExpr(v *plan.Expr) (OperatorFunc, error) {
	return func(ctx context.Context, req SegmentRequest) (SegmentResult, error) {
		val, err := e.EvalExpr(v.Inner, NoRowEnv())
		if err != nil {
			return SegmentResult{}, err
		}
		return SegmentResult{Scalar: val}, nil
	}, nil
}

func (e *Engine) compileEmptyStream() (OperatorFunc, error) {
	return func(ctx context.Context, req SegmentRequest) (SegmentResult, error) {
		return SegmentResult{IsStream: true}, nil
	}, nil
}

func (e *Engine) compileDatabaseCreate(v *plan.DatabaseCreate) (OperatorFunc, error) {
	return func(ctx context.Context, req SegmentRequest) (SegmentResult, error) {
		if err := retryStorage(ctx, func() error { return e.Store.CreateDatabase(v.Name) }); err != nil {
			return SegmentResult{}, err
		}
		return SegmentResult{Scalar: value.Bool(true)}, nil
	}, nil
}

func (e *Engine) compileDatabaseDrop(v *plan.DatabaseDrop) (OperatorFunc, error) {
	return func(ctx context.Context, req SegmentRequest) (SegmentResult, error) {
		if err := retryStorage(ctx, func() error { return e.Store.DropDatabase(v.Name) }); err != nil {
			return SegmentResult{}, err
		}
		return SegmentResult{Scalar: value.Bool(true)}, nil
	}, nil
}

func (e *Engine) compileDatabaseList() (OperatorFunc, error) {
	return func(ctx context.Context, req SegmentRequest) (SegmentResult, error) {
		var names []string
		err := retryStorage(ctx, func() error {
			n, err := e.Store.ListDatabases()
			names = n
			return err
		})
		if err != nil {
			return SegmentResult{}, err
		}
		return SegmentResult{Scalar: stringArray(names)}, nil
	}, nil
}

func (e *Engine) compileTableCreate(v *plan.TableCreate) (OperatorFunc, error) {
	return func(ctx context.Context, req SegmentRequest) (SegmentResult, error) {
		if err := retryStorage(ctx, func() error { return e.Store.CreateTable(v.DB, v.Name) }); err != nil {
			return SegmentResult{}, err
		}
		return SegmentResult{Scalar: value.Bool(true)}, nil
	}, nil
}

func (e *Engine) compileTableDrop(v *plan.TableDrop) (OperatorFunc, error) {
	return func(ctx context.Context, req SegmentRequest) (SegmentResult, error) {
		if err := retryStorage(ctx, func() error { return e.Store.DropTable(v.DB, v.Name) }); err != nil {
			return SegmentResult{}, err
		}
		return SegmentResult{Scalar: value.Bool(true)}, nil
	}, nil
}

func (e *Engine) compileTableList(v *plan.TableList) (OperatorFunc, error) {
	return func(ctx context.Context, req SegmentRequest) (SegmentResult, error) {
		var names []string
		err := retryStorage(ctx, func() error {
			n, err := e.Store.ListTables(v.DB)
			names = n
			return err
		})
		if err != nil {
			return SegmentResult{}, err
		}
		return SegmentResult{Scalar: stringArray(names)}, nil
	}, nil
}

func stringArray(names []string) value.Value {
	sort.Strings(names)
	out := make([]value.Value, len(names))
	for i, n := range names {
		out[i] = value.String(n)
	}
	return value.Array(out)
}
