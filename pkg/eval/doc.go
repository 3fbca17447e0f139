/*
Package eval is the streaming evaluator: it compiles a pkg/plan tree
into a nested operator closure and drives it one segment at a time
against a pkg/storage.Store (spec.md §4.5, §9).

# Segments

A query is never answered in one shot. Execute takes a cursor (spec.md
§3) describing where the previous segment left off, and returns a
SegmentResult carrying at most one batch of documents (or a scalar, for
non-streaming terms) plus the cursor the caller must send back to
continue. Every operator is compiled to a closure of shape

	func(ctx context.Context, req SegmentRequest) (SegmentResult, error)

closed over its source's own compiled closure (operators.go), so the
recursive structure of the plan tree is paid for once, at Compile time,
rather than re-walked on every segment.

# Blocking operators

OrderBy and Count cannot answer from a single upstream segment: they
drain the full source stream internally, re-driving their own source
closure segment by segment (checking ctx between each), before
producing a result. OrderBy additionally enforces Engine.OrderByCap to
bound how much it will buffer in memory.

# Storage retries

Calls into Store are wrapped in a bounded retry (retryStorage in
engine.go) that retries
only storage.KindStorageUnavailable, with exponential backoff, per
spec.md §7.
*/
package eval
