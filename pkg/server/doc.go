/*
Package server wires pkg/protocol, pkg/parser, pkg/plan, and pkg/eval
into a running query engine listening on a TCP or Unix socket
(spec.md §5–§6).

# Request lifecycle

Each accepted connection runs its own loop: ReadEnvelope, dispatch by
frame type, WriteEnvelope the response, repeat until the client closes
the connection or sends an unrecognized frame type (spec.md §6:
"unknown type ⇒ connection reset"). A TypeQuery frame is handled by
handleQuery (handler.go): decode the JSON payload into a
protocol.Query, parse its wire term, lower and optimize the resulting
plan, evaluate one segment against the engine, and encode the
SegmentResult back into a protocol.Response or protocol.Error frame.

Every request gets its own context.Context, derived from the server's
base context and bounded by the query's timeout_ms (0 meaning no
deadline beyond the server's own shutdown).

# Concurrency

Connections are served one goroutine each, mirroring the teacher's
per-RPC goroutine model minus the gRPC framework underneath it. A
panic while handling one connection is recovered and logged; it closes
that connection only, the way the teacher's ensureLeader-guarded RPC
handlers fail one request without taking down the manager process.
*/
package server
