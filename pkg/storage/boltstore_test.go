package storage

import (
	"testing"

	"github.com/cuemby/docql/pkg/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *BoltStore {
	t.Helper()
	dir := t.TempDir()
	s, err := NewBoltStore(dir)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestCreateDatabaseAndTableLifecycle(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.CreateDatabase("shop"))
	err := s.CreateDatabase("shop")
	require.Error(t, err)
	assert.Equal(t, KindAlreadyExists, err.(*Error).Kind)

	dbs, err := s.ListDatabases()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"shop"}, dbs)

	require.NoError(t, s.CreateTable("shop", "orders"))
	err = s.CreateTable("shop", "orders")
	require.Error(t, err)
	assert.Equal(t, KindAlreadyExists, err.(*Error).Kind)

	err = s.CreateTable("nosuch", "orders")
	require.Error(t, err)
	assert.Equal(t, KindNoSuchDatabase, err.(*Error).Kind)

	tables, err := s.ListTables("shop")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"orders"}, tables)

	require.NoError(t, s.DropTable("shop", "orders"))
	tables, err = s.ListTables("shop")
	require.NoError(t, err)
	assert.Empty(t, tables)

	require.NoError(t, s.DropDatabase("shop"))
	dbs, err = s.ListDatabases()
	require.NoError(t, err)
	assert.Empty(t, dbs)
}

func TestDropDatabaseCascadesTables(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.CreateDatabase("shop"))
	require.NoError(t, s.CreateTable("shop", "orders"))
	require.NoError(t, s.Put("shop", "orders", value.String("a"), value.EmptyObject()))

	require.NoError(t, s.DropDatabase("shop"))
	require.NoError(t, s.CreateDatabase("shop"))
	tables, err := s.ListTables("shop")
	require.NoError(t, err)
	assert.Empty(t, tables)
}

func TestPutGetDelete(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.CreateDatabase("shop"))
	require.NoError(t, s.CreateTable("shop", "orders"))

	doc := value.Object(map[string]value.Value{
		"id":    value.String("o1"),
		"total": value.Int(42),
	})
	require.NoError(t, s.Put("shop", "orders", value.String("o1"), doc))

	got, ok, err := s.Get("shop", "orders", value.String("o1"))
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, value.Equal(doc, got))

	_, ok, err = s.Get("shop", "orders", value.String("missing"))
	require.NoError(t, err)
	assert.False(t, ok)

	existed, err := s.Delete("shop", "orders", value.String("o1"))
	require.NoError(t, err)
	assert.True(t, existed)

	existed, err = s.Delete("shop", "orders", value.String("o1"))
	require.NoError(t, err)
	assert.False(t, existed)
}

func TestScanOrderedAndPaginated(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.CreateDatabase("shop"))
	require.NoError(t, s.CreateTable("shop", "orders"))

	ids := []int64{5, 1, 3, 2, 4}
	for _, id := range ids {
		require.NoError(t, s.Put("shop", "orders", value.Int(id), value.Object(map[string]value.Value{
			"id": value.Int(id),
		})))
	}

	var seen []int64
	startKey := value.Null()
	for {
		rows, next, hasNext, err := s.Scan("shop", "orders", startKey, 2)
		require.NoError(t, err)
		for _, r := range rows {
			i, _ := r.ID.AsInt()
			seen = append(seen, i)
		}
		if !hasNext {
			break
		}
		startKey = next
	}

	assert.Equal(t, []int64{1, 2, 3, 4, 5}, seen)
}

func TestScanNoSuchTable(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.CreateDatabase("shop"))
	_, _, _, err := s.Scan("shop", "missing", value.Null(), 10)
	require.Error(t, err)
	assert.Equal(t, KindNoSuchTable, err.(*Error).Kind)
}

func TestDocumentCodecRoundTrip(t *testing.T) {
	d := value.Object(map[string]value.Value{
		"id":   value.String("x"),
		"n":    value.Int(7),
		"f":    value.Float(1.5),
		"bin":  value.Binary([]byte{1, 2, 3}),
		"arr":  value.Array([]value.Value{value.Int(1), value.String("a")}),
		"nest": value.Object(map[string]value.Value{"k": value.Bool(true)}),
		"nil":  value.Null(),
	})
	data, err := MarshalDocument(d)
	require.NoError(t, err)
	got, err := UnmarshalDocument(data)
	require.NoError(t, err)
	assert.True(t, value.Equal(d, got))
}
