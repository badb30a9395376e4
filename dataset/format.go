package dataset

import (
	"encoding/base64"
	"fmt"
	"math/big"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/goccy/go-json"
)

// TimestampLayout is used when writing time values to fixture files.
const TimestampLayout = "2006-01-02 15:04:05.999999999"

// Format identifies a fixture file encoding.
type Format int

const (
	FormatFlatXML Format = iota
	FormatYAML
)

func (f Format) String() string {
	if f == FormatYAML {
		return "yaml"
	}
	return "flat-xml"
}

// FormatFor picks the encoding from a file name's extension.
func FormatFor(name string) (Format, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xml":
		return FormatFlatXML, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	}
	return 0, fmt.Errorf("unsupported fixture file extension: %q", name)
}

// FormatValue renders a cell value the way it is written to fixture files.
// ok is false for NULL.
func FormatValue(v any) (s string, ok bool) {
	switch x := v.(type) {
	case nil:
		return "", false
	case string:
		return x, true
	case []byte:
		return base64.StdEncoding.EncodeToString(x), true
	case bool:
		return strconv.FormatBool(x), true
	case int64:
		return strconv.FormatInt(x, 10), true
	case int:
		return strconv.Itoa(x), true
	case int32:
		return strconv.FormatInt(int64(x), 10), true
	case uint64:
		return strconv.FormatUint(x, 10), true
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64), true
	case float32:
		return strconv.FormatFloat(float64(x), 'g', -1, 32), true
	case time.Time:
		if x.Location() == time.UTC {
			return x.Format(TimestampLayout), true
		}
		return x.Format(TimestampLayout + "Z07:00"), true
	case civil.Date:
		return x.String(), true
	case *big.Rat:
		if x == nil {
			return "", false
		}
		return RatString(x), true
	case big.Rat:
		return RatString(&x), true
	case map[string]any, []any:
		b, err := json.Marshal(x)
		if err != nil {
			return fmt.Sprint(x), true
		}
		return string(b), true
	case fmt.Stringer:
		return x.String(), true
	}
	return fmt.Sprint(v), true
}

// RatString formats r without trailing zeros, e.g. "12.5" or "3".
func RatString(r *big.Rat) string {
	if r.IsInt() {
		return r.Num().String()
	}
	s := r.FloatString(9)
	s = strings.TrimRight(s, "0")
	return strings.TrimSuffix(s, ".")
}
