/*
Package storage implements the persistent, ordered key-value contract
that the query evaluator runs against: namespaced databases and
tables, atomic single-key document writes, and ordered iteration with
seek-to-start-key pagination (spec.md §4.1, §4.6).

# Architecture

The only implementation is BoltStore, embedding BoltDB (bbolt) as a
single on-disk B+tree:

	┌──────────────────── BOLTDB STORAGE ──────────────────────┐
	│                                                            │
	│  ┌────────────────────────────────────────────┐          │
	│  │              BoltStore                       │          │
	│  │  - File: <dataDir>/docql.db                  │          │
	│  │  - Format: B+tree with MVCC                  │          │
	│  │  - Transactions: ACID with fsync              │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │              Bucket Structure                 │          │
	│  │  meta                 existence markers:      │          │
	│  │                        db:<name>              │          │
	│  │                        tbl:<db>:<name>        │          │
	│  │  data:<db>:<table>    one bucket per table,   │          │
	│  │                        keyed by EncodeKey(id) │          │
	│  └────────────────────────────────────────────┘           │
	└────────────────────────────────────────────────────────┘

# Key encoding

Document ids are restricted by the query language to null, bool, int,
and string (spec.md §3). EncodeKey (keys.go) maps each to a byte string
whose lexicographic order matches value.Compare, so BoltDB's native
cursor order is already the query engine's id order — no secondary
index or in-memory sort is needed to serve an ascending table scan.

# Document encoding

Rows are stored as JSON (MarshalDocument/UnmarshalDocument, codec.go),
mirroring the teacher's JSON-per-bucket-entry convention, adapted from
fixed Go structs to the dynamic value.Value tree.

# Transaction Model

  - Read transactions: db.View() - concurrent, consistent snapshots
  - Write transactions: db.Update() - serialized, atomic commits
  - Isolation: snapshot isolation (MVCC)
  - Durability: fsync on commit

# Error Model

Every exported method returns either nil or a *Error with a Kind drawn
from AlreadyExists, NoSuchDatabase, NoSuchTable, StorageUnavailable, or
Corruption (errors.go). IsRetryable reports whether the evaluator's
retry loop (pkg/eval) should attempt the operation again.
*/
package storage
