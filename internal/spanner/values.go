package spanner

import (
	"encoding/base64"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"cloud.google.com/go/spanner"
	sppb "cloud.google.com/go/spanner/apiv1/spannerpb"
	"github.com/goccy/go-json"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/nu0ma/dbfixture/dataset"
)

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

func dataTypeOf(t *sppb.Type) dataset.DataType {
	switch t.GetCode() {
	case sppb.TypeCode_INT64, sppb.TypeCode_ENUM:
		return dataset.TypeInteger
	case sppb.TypeCode_FLOAT64, sppb.TypeCode_FLOAT32:
		return dataset.TypeFloat
	case sppb.TypeCode_NUMERIC:
		return dataset.TypeNumeric
	case sppb.TypeCode_BOOL:
		return dataset.TypeBoolean
	case sppb.TypeCode_STRING:
		return dataset.TypeString
	case sppb.TypeCode_BYTES, sppb.TypeCode_PROTO:
		return dataset.TypeBytes
	case sppb.TypeCode_TIMESTAMP:
		return dataset.TypeTimestamp
	case sppb.TypeCode_DATE:
		return dataset.TypeDate
	case sppb.TypeCode_JSON, sppb.TypeCode_ARRAY:
		return dataset.TypeJSON
	}
	return dataset.TypeUnknown
}

// decodeValue converts a column value to a plain Go value: nil for NULL,
// arrays as []any.
func decodeValue(gcv spanner.GenericColumnValue) (any, error) {
	if _, ok := gcv.Value.GetKind().(*structpb.Value_NullValue); ok || gcv.Value == nil {
		return nil, nil
	}

	switch gcv.Type.GetCode() {
	case sppb.TypeCode_INT64, sppb.TypeCode_ENUM:
		var v int64
		err := gcv.Decode(&v)
		return v, err
	case sppb.TypeCode_FLOAT64:
		var v float64
		err := gcv.Decode(&v)
		return v, err
	case sppb.TypeCode_FLOAT32:
		var v float32
		err := gcv.Decode(&v)
		return float64(v), err
	case sppb.TypeCode_BOOL:
		var v bool
		err := gcv.Decode(&v)
		return v, err
	case sppb.TypeCode_STRING:
		var v string
		err := gcv.Decode(&v)
		return v, err
	case sppb.TypeCode_BYTES, sppb.TypeCode_PROTO:
		var v []byte
		err := gcv.Decode(&v)
		return v, err
	case sppb.TypeCode_TIMESTAMP:
		var v time.Time
		err := gcv.Decode(&v)
		return v.UTC(), err
	case sppb.TypeCode_DATE:
		var v civil.Date
		err := gcv.Decode(&v)
		return v, err
	case sppb.TypeCode_NUMERIC:
		var v big.Rat
		if err := gcv.Decode(&v); err != nil {
			return nil, err
		}
		return &v, nil
	case sppb.TypeCode_JSON:
		var v spanner.NullJSON
		if err := gcv.Decode(&v); err != nil {
			return nil, err
		}
		return v.Value, nil
	case sppb.TypeCode_ARRAY:
		list := gcv.Value.GetListValue()
		out := make([]any, len(list.GetValues()))
		for i, elem := range list.GetValues() {
			v, err := decodeValue(spanner.GenericColumnValue{Type: gcv.Type.GetArrayElementType(), Value: elem})
			if err != nil {
				return nil, fmt.Errorf("array element %d: %w", i, err)
			}
			out[i] = v
		}
		return out, nil
	}
	return gcv.Value.AsInterface(), nil
}

// parseType reads an INFORMATION_SCHEMA SPANNER_TYPE such as "STRING(MAX)"
// or "ARRAY<INT64>".
func parseType(s string) (*sppb.Type, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if inner, ok := strings.CutPrefix(s, "ARRAY<"); ok {
		elem, err := parseType(strings.TrimSuffix(inner, ">"))
		if err != nil {
			return nil, err
		}
		return &sppb.Type{Code: sppb.TypeCode_ARRAY, ArrayElementType: elem}, nil
	}
	if i := strings.IndexByte(s, '('); i >= 0 {
		s = s[:i]
	}
	code, ok := sppb.TypeCode_value[s]
	if !ok || code == int32(sppb.TypeCode_TYPE_CODE_UNSPECIFIED) {
		return nil, fmt.Errorf("unsupported column type %q", s)
	}
	return &sppb.Type{Code: sppb.TypeCode(code)}, nil
}

// encodeValue converts a fixture value to a mutation value for a column of
// type t. Fixture strings are parsed; other values pass through.
func encodeValue(t *sppb.Type, v any) (any, error) {
	if v == nil {
		return spanner.GenericColumnValue{Type: t, Value: structpb.NewNullValue()}, nil
	}
	s, ok := v.(string)
	if !ok {
		return v, nil
	}

	switch t.GetCode() {
	case sppb.TypeCode_INT64, sppb.TypeCode_ENUM:
		return strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	case sppb.TypeCode_FLOAT64:
		return strconv.ParseFloat(strings.TrimSpace(s), 64)
	case sppb.TypeCode_FLOAT32:
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 32)
		return float32(f), err
	case sppb.TypeCode_BOOL:
		return strconv.ParseBool(strings.TrimSpace(s))
	case sppb.TypeCode_NUMERIC:
		r, ok := new(big.Rat).SetString(strings.TrimSpace(s))
		if !ok {
			return nil, fmt.Errorf("invalid NUMERIC %q", s)
		}
		return spanner.NullNumeric{Numeric: *r, Valid: true}, nil
	case sppb.TypeCode_TIMESTAMP:
		return parseTimestamp(s)
	case sppb.TypeCode_DATE:
		return civil.ParseDate(strings.TrimSpace(s))
	case sppb.TypeCode_BYTES, sppb.TypeCode_PROTO:
		if b, err := base64.StdEncoding.DecodeString(s); err == nil {
			return b, nil
		}
		return []byte(s), nil
	case sppb.TypeCode_JSON:
		var doc any
		if err := json.Unmarshal([]byte(s), &doc); err != nil {
			return nil, fmt.Errorf("invalid JSON: %w", err)
		}
		return spanner.NullJSON{Value: doc, Valid: true}, nil
	case sppb.TypeCode_ARRAY:
		return encodeArray(t, s)
	}
	return s, nil
}

// parseTimestamp accepts the commit timestamp placeholder besides the usual
// layouts. Zone-less values are UTC.
func parseTimestamp(s string) (any, error) {
	s = strings.TrimSpace(s)
	switch strings.ToUpper(s) {
	case "PENDING_COMMIT_TIMESTAMP()", "SPANNER.COMMIT_TIMESTAMP()":
		return spanner.CommitTimestamp, nil
	}
	for _, layout := range timestampLayouts {
		if ts, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return ts, nil
		}
	}
	return nil, fmt.Errorf("invalid TIMESTAMP %q", s)
}

// encodeArray reads a JSON array literal such as `[1, 2, null]` into a value
// of array type t.
func encodeArray(t *sppb.Type, s string) (any, error) {
	var elems []any
	if err := json.Unmarshal([]byte(s), &elems); err != nil {
		return nil, fmt.Errorf("invalid ARRAY literal %q: %w", s, err)
	}

	elemType := t.GetArrayElementType()
	values := make([]*structpb.Value, len(elems))
	for i, e := range elems {
		wire, err := wireValue(elemType, e)
		if err != nil {
			return nil, fmt.Errorf("array element %d: %w", i, err)
		}
		values[i] = wire
	}
	return spanner.GenericColumnValue{Type: t, Value: structpb.NewListValue(&structpb.ListValue{Values: values})}, nil
}

// wireValue encodes one array element in the Spanner wire representation.
func wireValue(t *sppb.Type, e any) (*structpb.Value, error) {
	if e == nil {
		return structpb.NewNullValue(), nil
	}
	text, _ := dataset.FormatValue(e)
	v, err := encodeValue(t, text)
	if err != nil {
		return nil, err
	}

	switch x := v.(type) {
	case int64:
		return structpb.NewStringValue(strconv.FormatInt(x, 10)), nil
	case float64:
		return structpb.NewNumberValue(x), nil
	case float32:
		return structpb.NewNumberValue(float64(x)), nil
	case bool:
		return structpb.NewBoolValue(x), nil
	case time.Time:
		return structpb.NewStringValue(x.UTC().Format(time.RFC3339Nano)), nil
	case civil.Date:
		return structpb.NewStringValue(x.String()), nil
	case []byte:
		return structpb.NewStringValue(base64.StdEncoding.EncodeToString(x)), nil
	case spanner.NullNumeric:
		return structpb.NewStringValue(spanner.NumericString(&x.Numeric)), nil
	case spanner.NullJSON:
		b, err := json.Marshal(x.Value)
		if err != nil {
			return nil, err
		}
		return structpb.NewStringValue(string(b)), nil
	case string:
		return structpb.NewStringValue(x), nil
	}
	return nil, fmt.Errorf("unsupported array element type %s", t.GetCode())
}
