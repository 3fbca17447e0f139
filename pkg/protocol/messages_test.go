package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/docql/pkg/cursor"
	"github.com/cuemby/docql/pkg/ir"
	"github.com/cuemby/docql/pkg/value"
)

func TestEncodeDecodeValueRoundTrip(t *testing.T) {
	cases := []value.Value{
		value.Null(),
		value.Bool(true),
		value.Int(42),
		value.Float(3.5),
		value.String("hello"),
		value.Binary([]byte{0x00, 0x01, 0xff}),
		value.Array([]value.Value{value.Int(1), value.String("a")}),
		value.Object(map[string]value.Value{"x": value.Int(1), "y": value.Bool(false)}),
	}

	for _, v := range cases {
		wv := EncodeValue(v)
		got, err := DecodeValue(wv)
		require.NoError(t, err)
		assert.True(t, value.Equal(v, got), "round-trip mismatch for %v", v)
	}
}

func TestDecodeValueUnknownKind(t *testing.T) {
	_, err := DecodeValue(WireValue{K: "nonsense"})
	assert.Error(t, err)
}

func TestDecodeValueMalformedBinary(t *testing.T) {
	_, err := DecodeValue(WireValue{K: "binary", Bin: "not-base64!!"})
	assert.Error(t, err)
}

func TestEncodeDecodeCursorRoundTrip(t *testing.T) {
	limit := int64(5)
	c := cursor.Cursor{
		StartKey:    value.Int(7),
		HasStartKey: true,
		BatchSize:   100,
		Sort: []ir.SortField{
			{Path: ir.FieldPath{Segments: []string{"amount"}, Separator: "."}, Descending: true},
		},
		LimitRemaining: &limit,
	}

	wc := EncodeCursor(c)
	got, err := DecodeCursor(wc)
	require.NoError(t, err)

	assert.True(t, got.HasStartKey)
	assert.True(t, value.Equal(c.StartKey, got.StartKey))
	assert.Equal(t, c.BatchSize, got.BatchSize)
	require.Len(t, got.Sort, 1)
	assert.Equal(t, []string{"amount"}, got.Sort[0].Path.Segments)
	assert.True(t, got.Sort[0].Descending)
	require.NotNil(t, got.LimitRemaining)
	assert.Equal(t, limit, *got.LimitRemaining)
	assert.Nil(t, got.SkipRemaining)
}

func TestEncodeCursorNoStartKey(t *testing.T) {
	wc := EncodeCursor(cursor.New())
	assert.Nil(t, wc.StartKey)

	got, err := DecodeCursor(wc)
	require.NoError(t, err)
	assert.False(t, got.HasStartKey)
}

func TestMarshalUnmarshalQuery(t *testing.T) {
	q := Query{
		Term:    EncodeValue(value.String("table(\"orders\")")),
		Cursor:  EncodeCursor(cursor.New()),
		Options: QueryOptions{TimeoutMs: 1000, Explain: true},
	}

	b, err := MarshalQuery(q)
	require.NoError(t, err)

	got, err := UnmarshalQuery(b)
	require.NoError(t, err)
	assert.Equal(t, q.Term, got.Term)
	assert.Equal(t, q.Options, got.Options)
}

func TestMarshalUnmarshalResponse(t *testing.T) {
	wv := EncodeValue(value.Int(7))
	r := Response{IsStream: false, Scalar: &wv}

	b, err := MarshalResponse(r)
	require.NoError(t, err)

	got, err := UnmarshalResponse(b)
	require.NoError(t, err)
	require.NotNil(t, got.Scalar)
	assert.Equal(t, *r.Scalar, *got.Scalar)
}

func TestMarshalUnmarshalError(t *testing.T) {
	e := Error{Kind: "NoSuchTable", Message: "no such table orders"}

	b, err := MarshalError(e)
	require.NoError(t, err)

	got, err := UnmarshalError(b)
	require.NoError(t, err)
	assert.Equal(t, e, got)
}

func TestNewQueryIDUnique(t *testing.T) {
	a := NewQueryID()
	b := NewQueryID()
	assert.NotEmpty(t, a)
	assert.NotEqual(t, a, b)
}
