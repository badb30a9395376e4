package spanner

import (
	"math/big"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"cloud.google.com/go/spanner"
	sppb "cloud.google.com/go/spanner/apiv1/spannerpb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/nu0ma/dbfixture/dataset"
)

func scalar(code sppb.TypeCode) *sppb.Type {
	return &sppb.Type{Code: code}
}

func TestParseType(t *testing.T) {
	tests := []struct {
		in   string
		want sppb.TypeCode
		elem sppb.TypeCode
	}{
		{in: "INT64", want: sppb.TypeCode_INT64},
		{in: "STRING(MAX)", want: sppb.TypeCode_STRING},
		{in: "bytes(16)", want: sppb.TypeCode_BYTES},
		{in: "TIMESTAMP", want: sppb.TypeCode_TIMESTAMP},
		{in: "ARRAY<STRING(32)>", want: sppb.TypeCode_ARRAY, elem: sppb.TypeCode_STRING},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseType(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.GetCode())
			if tt.elem != sppb.TypeCode_TYPE_CODE_UNSPECIFIED {
				assert.Equal(t, tt.elem, got.GetArrayElementType().GetCode())
			}
		})
	}

	_, err := parseType("GEOGRAPHY")
	assert.Error(t, err)
}

func TestEncodeValue(t *testing.T) {
	tests := []struct {
		name string
		typ  *sppb.Type
		in   any
		want any
	}{
		{name: "int64", typ: scalar(sppb.TypeCode_INT64), in: " 42", want: int64(42)},
		{name: "float64", typ: scalar(sppb.TypeCode_FLOAT64), in: "1.5", want: 1.5},
		{name: "bool", typ: scalar(sppb.TypeCode_BOOL), in: "true", want: true},
		{name: "string", typ: scalar(sppb.TypeCode_STRING), in: "hello", want: "hello"},
		{name: "date", typ: scalar(sppb.TypeCode_DATE), in: "2024-03-01", want: civil.Date{Year: 2024, Month: 3, Day: 1}},
		{name: "timestamp", typ: scalar(sppb.TypeCode_TIMESTAMP), in: "2024-03-01 12:30:00", want: time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC)},
		{name: "commit timestamp", typ: scalar(sppb.TypeCode_TIMESTAMP), in: "PENDING_COMMIT_TIMESTAMP()", want: spanner.CommitTimestamp},
		{name: "bytes base64", typ: scalar(sppb.TypeCode_BYTES), in: "aGVsbG8=", want: []byte("hello")},
		{name: "typed value passes through", typ: scalar(sppb.TypeCode_INT64), in: int64(7), want: int64(7)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := encodeValue(tt.typ, tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEncodeNumeric(t *testing.T) {
	got, err := encodeValue(scalar(sppb.TypeCode_NUMERIC), "12.50")
	require.NoError(t, err)
	n, ok := got.(spanner.NullNumeric)
	require.True(t, ok)
	assert.True(t, n.Valid)
	assert.Zero(t, n.Numeric.Cmp(big.NewRat(25, 2)))
}

func TestEncodeValueErrors(t *testing.T) {
	_, err := encodeValue(scalar(sppb.TypeCode_INT64), "abc")
	assert.Error(t, err)
	_, err = encodeValue(scalar(sppb.TypeCode_TIMESTAMP), "yesterday")
	assert.Error(t, err)
	_, err = encodeValue(scalar(sppb.TypeCode_JSON), "{bad")
	assert.Error(t, err)
}

func TestEncodeNull(t *testing.T) {
	typ := scalar(sppb.TypeCode_INT64)
	got, err := encodeValue(typ, nil)
	require.NoError(t, err)

	gcv, ok := got.(spanner.GenericColumnValue)
	require.True(t, ok)
	assert.Equal(t, typ, gcv.Type)
	_, isNull := gcv.Value.GetKind().(*structpb.Value_NullValue)
	assert.True(t, isNull)
}

func TestEncodeArray(t *testing.T) {
	typ := &sppb.Type{Code: sppb.TypeCode_ARRAY, ArrayElementType: scalar(sppb.TypeCode_INT64)}
	got, err := encodeValue(typ, "[1, 2, null]")
	require.NoError(t, err)

	gcv := got.(spanner.GenericColumnValue)
	values := gcv.Value.GetListValue().GetValues()
	require.Len(t, values, 3)
	assert.Equal(t, "1", values[0].GetStringValue())
	assert.Equal(t, "2", values[1].GetStringValue())

	// and back again
	decoded, err := decodeValue(gcv)
	require.NoError(t, err)
	assert.Equal(t, []any{int64(1), int64(2), nil}, decoded)

	_, err = encodeValue(typ, `["x"]`)
	assert.Error(t, err)
}

func TestDecodeValue(t *testing.T) {
	tests := []struct {
		name string
		gcv  spanner.GenericColumnValue
		want any
	}{
		{
			name: "null",
			gcv:  spanner.GenericColumnValue{Type: scalar(sppb.TypeCode_STRING), Value: structpb.NewNullValue()},
			want: nil,
		},
		{
			name: "int64",
			gcv:  spanner.GenericColumnValue{Type: scalar(sppb.TypeCode_INT64), Value: structpb.NewStringValue("9")},
			want: int64(9),
		},
		{
			name: "bool",
			gcv:  spanner.GenericColumnValue{Type: scalar(sppb.TypeCode_BOOL), Value: structpb.NewBoolValue(true)},
			want: true,
		},
		{
			name: "date",
			gcv:  spanner.GenericColumnValue{Type: scalar(sppb.TypeCode_DATE), Value: structpb.NewStringValue("2024-03-01")},
			want: civil.Date{Year: 2024, Month: 3, Day: 1},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := decodeValue(tt.gcv)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodeNumeric(t *testing.T) {
	got, err := decodeValue(spanner.GenericColumnValue{Type: scalar(sppb.TypeCode_NUMERIC), Value: structpb.NewStringValue("12.5")})
	require.NoError(t, err)
	r, ok := got.(*big.Rat)
	require.True(t, ok)
	assert.Zero(t, r.Cmp(big.NewRat(25, 2)))
}

func TestDataTypeOf(t *testing.T) {
	assert.Equal(t, dataset.TypeInteger, dataTypeOf(scalar(sppb.TypeCode_INT64)))
	assert.Equal(t, dataset.TypeNumeric, dataTypeOf(scalar(sppb.TypeCode_NUMERIC)))
	assert.Equal(t, dataset.TypeJSON, dataTypeOf(&sppb.Type{Code: sppb.TypeCode_ARRAY}))
}

func TestClassify(t *testing.T) {
	assert.Equal(t, statementDDL, classify("CREATE TABLE t (id INT64) PRIMARY KEY (id)"))
	assert.Equal(t, statementDDL, classify("  alter table t add column x STRING(MAX)"))
	assert.Equal(t, statementQuery, classify("SELECT 1"))
	assert.Equal(t, statementDML, classify("INSERT INTO t (id) VALUES (1)"))
	assert.Equal(t, statementDML, classify("DELETE FROM t WHERE true"))
}

func TestNewClientRejectsBadPath(t *testing.T) {
	_, err := NewClient(t.Context(), "test-database", Options{})
	assert.Error(t, err)
}
