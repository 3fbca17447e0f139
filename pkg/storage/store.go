package storage

import "github.com/cuemby/docql/pkg/value"

// Row is one (id, document) pair returned from a Scan.
type Row struct {
	ID  value.Value
	Doc value.Value
}

// Store is the storage contract the evaluator is built against.
// BoltStore is the only implementation in this repository; the
// interface exists so the evaluator and its tests can be driven
// against a fake without depending on bbolt.
type Store interface {
	// CreateDatabase fails with KindAlreadyExists if name is already
	// registered.
	CreateDatabase(name string) error
	// DropDatabase removes a database and every table within it,
	// failing with KindNoSuchDatabase if it does not exist.
	DropDatabase(name string) error
	// ListDatabases returns all database names, unordered.
	ListDatabases() ([]string, error)

	// CreateTable fails with KindAlreadyExists if (db, name) already
	// exists, or KindNoSuchDatabase if db does not exist.
	CreateTable(db, name string) error
	// DropTable wipes the table's document space, failing with
	// KindNoSuchTable if it does not exist.
	DropTable(db, name string) error
	// ListTables returns all table names within db, unordered.
	ListTables(db string) ([]string, error)

	// Put writes doc at key encode(id) in the (db, table) namespace,
	// overwriting any existing document at that id.
	Put(db, table string, id, doc value.Value) error
	// Get returns the document stored at id, or ok=false if absent.
	Get(db, table string, id value.Value) (doc value.Value, ok bool, err error)
	// Delete removes the document at id, returning existed=true if a
	// row was actually removed.
	Delete(db, table string, id value.Value) (existed bool, err error)
	// Scan returns up to batchSize rows with encode(id) >=
	// encode(startKey) in ascending key order. startKey may be
	// value.Null() to start from the beginning. hasNext is true iff
	// there are more rows after the returned batch, in which case
	// nextStartKey is the key of the first of those rows.
	Scan(db, table string, startKey value.Value, batchSize int) (rows []Row, nextStartKey value.Value, hasNext bool, err error)

	// Close releases underlying resources.
	Close() error
}
