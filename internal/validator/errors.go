package validator

import (
	"encoding/base64"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/nu0ma/dbfixture/dataset"
)

var (
	ErrRowCountMismatch = errors.New("row count mismatch")
	ErrColumnMismatch   = errors.New("column mismatch")
	ErrValueMismatch    = errors.New("value mismatch")
)

type MismatchKind int

const (
	MismatchRowCount MismatchKind = iota
	MismatchColumn
	MismatchValue
)

// MismatchError describes the first difference found between an expected
// and an actual table. Row is 1-based and refers to the expected table.
type MismatchError struct {
	Kind     MismatchKind
	Table    string
	Column   string
	Row      int
	Expected any
	Actual   any
	Err      error
}

func (e *MismatchError) Error() string {
	switch e.Kind {
	case MismatchRowCount:
		return fmt.Sprintf("Table %s: expected %v rows, got %v", e.Table, e.Expected, e.Actual)
	case MismatchColumn:
		msg := fmt.Sprintf("Table %s: column %s not found", e.Table, e.Column)
		if e.Err != nil {
			msg += ": " + e.Err.Error()
		}
		return msg
	}
	return fmt.Sprintf("Table %s row %d, column %s: expected %s, got %s (%T)",
		e.Table, e.Row, e.Column, formatValue(e.Expected), formatValue(e.Actual), e.Actual)
}

func (e *MismatchError) Is(target error) bool {
	switch e.Kind {
	case MismatchRowCount:
		return target == ErrRowCountMismatch
	case MismatchColumn:
		return target == ErrColumnMismatch
	}
	return target == ErrValueMismatch
}

func (e *MismatchError) Unwrap() error {
	return e.Err
}

func formatValue(value any) string {
	if value == nil {
		return "null"
	}

	switch v := value.(type) {
	case *big.Rat:
		return dataset.RatString(v)
	case time.Time:
		return v.Format(time.RFC3339Nano)
	case []byte:
		return base64.StdEncoding.EncodeToString(v)
	case string:
		if len(v) > MaxErrorMessageLength {
			return fmt.Sprintf("%q...", v[:MaxErrorMessageLength])
		}
		return fmt.Sprintf("%q", v)
	case []any:
		if len(v) > 10 {
			return fmt.Sprintf("[%d items]", len(v))
		}
		parts := make([]string, len(v))
		for i, item := range v {
			parts[i] = formatValue(item)
		}
		return fmt.Sprintf("[%s]", strings.Join(parts, ", "))
	default:
		str := fmt.Sprintf("%v", value)
		if len(str) > MaxErrorMessageLength {
			return fmt.Sprintf("%.100s...", str)
		}
		return str
	}
}
