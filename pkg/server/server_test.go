package server

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/docql/pkg/parser"
	"github.com/cuemby/docql/pkg/protocol"
	"github.com/cuemby/docql/pkg/storage"
	"github.com/cuemby/docql/pkg/value"
)

func term(code parser.TypeCode, args []value.Value, opts map[string]value.Value) value.Value {
	parts := []value.Value{value.Int(int64(code)), value.Array(args)}
	if opts != nil {
		parts = append(parts, value.Object(opts))
	}
	return value.Array(parts)
}

func dbTerm(name string) value.Value {
	return term(parser.CodeDatabase, []value.Value{value.String(name)}, nil)
}

func tableTerm(db, name string) value.Value {
	return term(parser.CodeTable, []value.Value{dbTerm(db), value.String(name)}, nil)
}

func startTestServer(t *testing.T) net.Conn {
	t.Helper()
	store, err := storage.NewBoltStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	srv, err := NewServer(store)
	require.NoError(t, err)

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	go func() {
		_ = srv.serveAccepted(lis)
	}()
	t.Cleanup(srv.Stop)

	conn, err := net.Dial("tcp", lis.Addr().String())
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

// serveAccepted lets tests drive a pre-bound listener without
// duplicating Start's accept loop.
func (s *Server) serveAccepted(lis net.Listener) error {
	s.mu.Lock()
	s.lis = lis
	s.mu.Unlock()
	for {
		conn, err := lis.Accept()
		if err != nil {
			return nil
		}
		s.wg.Add(1)
		go s.serveConn(conn)
	}
}

func sendQuery(t *testing.T, conn net.Conn, q protocol.Query) protocol.Response {
	t.Helper()
	body, err := protocol.MarshalQuery(q)
	require.NoError(t, err)
	require.NoError(t, protocol.WriteEnvelope(conn, protocol.TypeQuery, "t1", body))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	msgType, _, payload, err := protocol.ReadEnvelope(conn)
	require.NoError(t, err)
	require.Equal(t, protocol.TypeResponse, msgType, "expected a Response frame, got type %d: %s", msgType, payload)

	resp, err := protocol.UnmarshalResponse(payload)
	require.NoError(t, err)
	return resp
}

func sendQueryExpectError(t *testing.T, conn net.Conn, q protocol.Query) protocol.Error {
	t.Helper()
	body, err := protocol.MarshalQuery(q)
	require.NoError(t, err)
	require.NoError(t, protocol.WriteEnvelope(conn, protocol.TypeQuery, "t1", body))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	msgType, _, payload, err := protocol.ReadEnvelope(conn)
	require.NoError(t, err)
	require.Equal(t, protocol.TypeError, msgType)

	ferr, err := protocol.UnmarshalError(payload)
	require.NoError(t, err)
	return ferr
}

func TestServerDatabaseTableInsertScan(t *testing.T) {
	conn := startTestServer(t)

	resp := sendQuery(t, conn, protocol.Query{Term: protocol.EncodeValue(term(parser.CodeDatabaseCreate, []value.Value{value.String("shop")}, nil))})
	assert.False(t, resp.IsStream)

	resp = sendQuery(t, conn, protocol.Query{Term: protocol.EncodeValue(term(parser.CodeTableCreate, []value.Value{dbTerm("shop"), value.String("orders")}, nil))})
	assert.False(t, resp.IsStream)

	doc := term(parser.CodeDatum, []value.Value{value.Object(map[string]value.Value{
		"id":     value.Int(1),
		"amount": value.Int(10),
	})}, nil)
	insertTerm := term(parser.CodeInsert, []value.Value{tableTerm("shop", "orders"), value.Array([]value.Value{doc})}, nil)
	resp = sendQuery(t, conn, protocol.Query{Term: protocol.EncodeValue(insertTerm)})
	require.NotNil(t, resp.Scalar)
	decoded, err := protocol.DecodeValue(*resp.Scalar)
	require.NoError(t, err)
	inserted, ok := decoded.Field("inserted")
	require.True(t, ok)
	n, _ := inserted.AsInt()
	assert.Equal(t, int64(1), n)

	resp = sendQuery(t, conn, protocol.Query{Term: protocol.EncodeValue(tableTerm("shop", "orders"))})
	assert.True(t, resp.IsStream)
	assert.Len(t, resp.Documents, 1)
	assert.False(t, resp.HasNext)
}

func TestServerExplain(t *testing.T) {
	conn := startTestServer(t)

	sendQuery(t, conn, protocol.Query{Term: protocol.EncodeValue(term(parser.CodeDatabaseCreate, []value.Value{value.String("shop")}, nil))})
	sendQuery(t, conn, protocol.Query{Term: protocol.EncodeValue(term(parser.CodeTableCreate, []value.Value{dbTerm("shop"), value.String("orders")}, nil))})

	resp := sendQuery(t, conn, protocol.Query{
		Term:    protocol.EncodeValue(tableTerm("shop", "orders")),
		Options: protocol.QueryOptions{Explain: true},
	})
	require.NotNil(t, resp.Scalar)
	decoded, err := protocol.DecodeValue(*resp.Scalar)
	require.NoError(t, err)
	s, ok := decoded.AsString()
	require.True(t, ok)
	assert.NotEmpty(t, s)
}

func TestServerMalformedTermReturnsError(t *testing.T) {
	conn := startTestServer(t)

	ferr := sendQueryExpectError(t, conn, protocol.Query{Term: protocol.WireValue{K: "bogus"}})
	assert.Equal(t, "MalformedTerm", ferr.Kind)
	assert.NotEmpty(t, ferr.Message)
}

func TestServerUnknownFrameTypeResetsConnection(t *testing.T) {
	conn := startTestServer(t)

	require.NoError(t, protocol.WriteEnvelope(conn, 99, "t1", nil))
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))

	buf := make([]byte, 1)
	_, err := conn.Read(buf)
	assert.Error(t, err, "server should close the connection on an unknown frame type")
}
