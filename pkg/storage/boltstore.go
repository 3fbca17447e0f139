package storage

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/cuemby/docql/pkg/value"
	bolt "go.etcd.io/bbolt"
)

var (
	bucketMeta = []byte("meta")
)

const (
	metaDBPrefix    = "db:"
	metaTablePrefix = "tbl:"
)

// BoltStore implements Store using BoltDB, adapted from the teacher's
// pkg/storage.BoltStore: one bucket per logical collection, JSON
// document values, db.View/db.Update transactions. Here the
// collection set is dynamic (one data bucket per (db, table) pair)
// instead of the teacher's fixed entity buckets, and a "meta" bucket
// tracks which databases/tables currently exist.
type BoltStore struct {
	db *bolt.DB
}

// NewBoltStore opens (creating if absent) a BoltDB file under
// dataDir and ensures the meta bucket exists.
func NewBoltStore(dataDir string) (*BoltStore, error) {
	dbPath := filepath.Join(dataDir, "docql.db")

	db, err := bolt.Open(dbPath, 0600, nil)
	if err != nil {
		return nil, wrapErr(KindStorageUnavailable, err, "failed to open database at %s", dbPath)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketMeta)
		return err
	})
	if err != nil {
		db.Close()
		return nil, wrapErr(KindStorageUnavailable, err, "failed to create meta bucket")
	}

	return &BoltStore{db: db}, nil
}

func (s *BoltStore) Close() error {
	if err := s.db.Close(); err != nil {
		return wrapErr(KindStorageUnavailable, err, "failed to close database")
	}
	return nil
}

func dataBucketName(db, table string) []byte {
	return []byte(fmt.Sprintf("data:%s:%s", db, table))
}

func metaDBKey(name string) []byte    { return []byte(metaDBPrefix + name) }
func metaTableKey(db, name string) []byte {
	return []byte(metaTablePrefix + db + ":" + name)
}

// --- Database operations ---

func (s *BoltStore) CreateDatabase(name string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		meta := tx.Bucket(bucketMeta)
		if meta.Get(metaDBKey(name)) != nil {
			return newErr(KindAlreadyExists, "database %q already exists", name)
		}
		return meta.Put(metaDBKey(name), []byte{1})
	})
}

func (s *BoltStore) DropDatabase(name string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		meta := tx.Bucket(bucketMeta)
		if meta.Get(metaDBKey(name)) == nil {
			return newErr(KindNoSuchDatabase, "database %q does not exist", name)
		}
		prefix := []byte(metaTablePrefix + name + ":")
		c := meta.Cursor()
		var tables []string
		for k, _ := c.Seek(prefix); k != nil && strings.HasPrefix(string(k), string(prefix)); k, _ = c.Next() {
			tables = append(tables, strings.TrimPrefix(string(k), string(prefix)))
		}
		for _, t := range tables {
			if err := meta.Delete(metaTableKey(name, t)); err != nil {
				return err
			}
			if err := tx.DeleteBucket(dataBucketName(name, t)); err != nil && err != bolt.ErrBucketNotFound {
				return err
			}
		}
		return meta.Delete(metaDBKey(name))
	})
}

func (s *BoltStore) ListDatabases() ([]string, error) {
	var names []string
	err := s.db.View(func(tx *bolt.Tx) error {
		meta := tx.Bucket(bucketMeta)
		c := meta.Cursor()
		prefix := []byte(metaDBPrefix)
		for k, _ := c.Seek(prefix); k != nil && strings.HasPrefix(string(k), string(prefix)); k, _ = c.Next() {
			names = append(names, strings.TrimPrefix(string(k), metaDBPrefix))
		}
		return nil
	})
	if err != nil {
		return nil, wrapErr(KindStorageUnavailable, err, "failed to list databases")
	}
	return names, nil
}

// --- Table operations ---

func (s *BoltStore) CreateTable(db, name string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		meta := tx.Bucket(bucketMeta)
		if meta.Get(metaDBKey(db)) == nil {
			return newErr(KindNoSuchDatabase, "database %q does not exist", db)
		}
		key := metaTableKey(db, name)
		if meta.Get(key) != nil {
			return newErr(KindAlreadyExists, "table %q.%q already exists", db, name)
		}
		if _, err := tx.CreateBucketIfNotExists(dataBucketName(db, name)); err != nil {
			return err
		}
		return meta.Put(key, []byte{1})
	})
}

func (s *BoltStore) DropTable(db, name string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		meta := tx.Bucket(bucketMeta)
		key := metaTableKey(db, name)
		if meta.Get(key) == nil {
			return newErr(KindNoSuchTable, "table %q.%q does not exist", db, name)
		}
		if err := tx.DeleteBucket(dataBucketName(db, name)); err != nil && err != bolt.ErrBucketNotFound {
			return err
		}
		return meta.Delete(key)
	})
}

func (s *BoltStore) ListTables(db string) ([]string, error) {
	var names []string
	err := s.db.View(func(tx *bolt.Tx) error {
		meta := tx.Bucket(bucketMeta)
		if meta.Get(metaDBKey(db)) == nil {
			return newErr(KindNoSuchDatabase, "database %q does not exist", db)
		}
		prefix := []byte(metaTablePrefix + db + ":")
		c := meta.Cursor()
		for k, _ := c.Seek(prefix); k != nil && strings.HasPrefix(string(k), string(prefix)); k, _ = c.Next() {
			names = append(names, strings.TrimPrefix(string(k), string(prefix)))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return names, nil
}

// --- Document operations ---

func (s *BoltStore) Put(db, table string, id, doc value.Value) error {
	key, err := EncodeKey(id)
	if err != nil {
		return wrapErr(KindStorageUnavailable, err, "failed to encode key")
	}
	data, err := MarshalDocument(doc)
	if err != nil {
		return wrapErr(KindStorageUnavailable, err, "failed to marshal document")
	}
	err = s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(dataBucketName(db, table))
		if b == nil {
			return newErr(KindNoSuchTable, "table %q.%q does not exist", db, table)
		}
		return b.Put(key, data)
	})
	if err != nil {
		return asStorageErr(err)
	}
	return nil
}

func (s *BoltStore) Get(db, table string, id value.Value) (value.Value, bool, error) {
	key, err := EncodeKey(id)
	if err != nil {
		return value.Null(), false, wrapErr(KindStorageUnavailable, err, "failed to encode key")
	}
	var found bool
	var doc value.Value
	err = s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(dataBucketName(db, table))
		if b == nil {
			return newErr(KindNoSuchTable, "table %q.%q does not exist", db, table)
		}
		data := b.Get(key)
		if data == nil {
			return nil
		}
		d, err := UnmarshalDocument(data)
		if err != nil {
			return wrapErr(KindCorruption, err, "failed to unmarshal document")
		}
		doc, found = d, true
		return nil
	})
	if err != nil {
		return value.Null(), false, asStorageErr(err)
	}
	return doc, found, nil
}

func (s *BoltStore) Delete(db, table string, id value.Value) (bool, error) {
	key, err := EncodeKey(id)
	if err != nil {
		return false, wrapErr(KindStorageUnavailable, err, "failed to encode key")
	}
	var existed bool
	err = s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(dataBucketName(db, table))
		if b == nil {
			return newErr(KindNoSuchTable, "table %q.%q does not exist", db, table)
		}
		if b.Get(key) != nil {
			existed = true
		}
		return b.Delete(key)
	})
	if err != nil {
		return false, asStorageErr(err)
	}
	return existed, nil
}

func (s *BoltStore) Scan(db, table string, startKey value.Value, batchSize int) ([]Row, value.Value, bool, error) {
	if batchSize <= 0 {
		batchSize = 1
	}
	seek := minKey
	if !startKey.IsNull() {
		k, err := EncodeKey(startKey)
		if err != nil {
			return nil, value.Null(), false, wrapErr(KindStorageUnavailable, err, "failed to encode start key")
		}
		seek = k
	}

	var rows []Row
	var nextKey []byte
	hasNext := false

	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(dataBucketName(db, table))
		if b == nil {
			return newErr(KindNoSuchTable, "table %q.%q does not exist", db, table)
		}
		c := b.Cursor()
		k, v := c.Seek(seek)
		for ; k != nil; k, v = c.Next() {
			if len(rows) == batchSize {
				nextKey = append([]byte{}, k...)
				hasNext = true
				break
			}
			id, err := DecodeKey(k)
			if err != nil {
				return wrapErr(KindCorruption, err, "failed to decode key")
			}
			doc, err := UnmarshalDocument(v)
			if err != nil {
				return wrapErr(KindCorruption, err, "failed to unmarshal document")
			}
			rows = append(rows, Row{ID: id, Doc: doc})
		}
		return nil
	})
	if err != nil {
		return nil, value.Null(), false, asStorageErr(err)
	}

	if !hasNext {
		return rows, value.Null(), false, nil
	}
	nextID, err := DecodeKey(nextKey)
	if err != nil {
		return nil, value.Null(), false, wrapErr(KindCorruption, err, "failed to decode next key")
	}
	return rows, nextID, true, nil
}

// asStorageErr normalizes an error returned from a bolt transaction
// into a *Error, preserving one already produced by this package and
// classifying anything else (I/O failures surfaced by bbolt) as
// StorageUnavailable.
func asStorageErr(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := err.(*Error); ok {
		return err
	}
	return wrapErr(KindStorageUnavailable, err, "storage operation failed")
}
