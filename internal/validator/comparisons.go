package validator

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"math"
	"math/big"
	"reflect"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/nu0ma/dbfixture/dataset"
)

var timeFormats = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

// compareValues reports whether a fixture value matches a live value. The
// live value's Go type decides how the expected value is coerced.
func (v *Validator) compareValues(expected, actual any) bool {
	if expected == nil || actual == nil {
		return expected == nil && actual == nil
	}

	switch a := actual.(type) {
	case string:
		return v.compareString(expected, a)
	case bool:
		return v.compareBool(expected, a)
	case *big.Rat:
		return v.compareBigRat(expected, a)
	case big.Rat:
		return v.compareBigRat(expected, &a)
	case time.Time:
		return v.compareTimestamp(expected, a)
	case civil.Date:
		return v.compareDateValue(expected, a)
	case []byte:
		return v.compareBytes(expected, a)
	case map[string]any, []any:
		return v.compareJSON(expected, a)
	}

	actualVal := reflect.ValueOf(actual)
	if isInteger(actualVal.Kind()) {
		return v.compareInteger(expected, actualVal)
	}
	if isFloat(actualVal.Kind()) {
		return v.compareFloatValue(expected, actualVal.Float())
	}

	if reflect.TypeOf(expected) == reflect.TypeOf(actual) {
		return reflect.DeepEqual(expected, actual)
	}
	return fmt.Sprintf("%v", expected) == fmt.Sprintf("%v", actual)
}

func (v *Validator) compareString(expected any, actual string) bool {
	if e, ok := expected.(string); ok {
		if e == actual {
			return true
		}
		// JSON columns read back as text on sql backends
		return v.isJSONString(e) && v.isJSONString(actual) && v.compareJSON(e, actual)
	}
	switch expected.(type) {
	case map[string]any, []any:
		return v.isJSONString(actual) && v.compareJSON(expected, actual)
	}
	s, _ := dataset.FormatValue(expected)
	return s == actual
}

func (v *Validator) compareBool(expected any, actual bool) bool {
	switch e := expected.(type) {
	case bool:
		return e == actual
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(e))
		return err == nil && b == actual
	}
	ev := reflect.ValueOf(expected)
	if isInteger(ev.Kind()) {
		n, _ := toInt64(ev)
		return (n != 0) == actual
	}
	return false
}

func (v *Validator) compareInteger(expected any, actual reflect.Value) bool {
	actualInt, exact := toInt64(actual)

	switch e := expected.(type) {
	case string:
		s := strings.TrimSpace(e)
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return exact && n == actualInt
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f == toFloat64(actual)
		}
		return false
	case bool:
		return (actualInt != 0) == e
	}

	ev := reflect.ValueOf(expected)
	switch {
	case isInteger(ev.Kind()):
		n, ok := toInt64(ev)
		return ok && exact && n == actualInt
	case isFloat(ev.Kind()):
		return v.withinTolerance(ev.Float(), toFloat64(actual))
	}
	return fmt.Sprintf("%v", expected) == fmt.Sprintf("%v", actual.Interface())
}

func (v *Validator) compareFloatValue(expected any, actualFloat float64) bool {
	var expectedFloat float64
	switch e := expected.(type) {
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(e), 64)
		if err != nil {
			return false
		}
		expectedFloat = f
	case *big.Rat:
		expectedFloat, _ = e.Float64()
	default:
		ev := reflect.ValueOf(expected)
		if !isInteger(ev.Kind()) && !isFloat(ev.Kind()) {
			return false
		}
		expectedFloat = toFloat64(ev)
	}
	return v.withinTolerance(expectedFloat, actualFloat)
}

func (v *Validator) withinTolerance(expected, actual float64) bool {
	if math.IsNaN(expected) || math.IsNaN(actual) {
		return math.IsNaN(expected) && math.IsNaN(actual)
	}
	if expected == actual {
		return true
	}
	if v.options.FloatTolerance > 0 {
		return math.Abs(expected-actual) <= v.options.FloatTolerance
	}
	return false
}

func (v *Validator) compareBigRat(expected any, actualRat *big.Rat) bool {
	var expectedRat *big.Rat
	switch e := expected.(type) {
	case *big.Rat:
		expectedRat = e
	case big.Rat:
		expectedRat = &e
	case string:
		var ok bool
		expectedRat, ok = new(big.Rat).SetString(strings.TrimSpace(e))
		if !ok {
			return false
		}
	case float64:
		expectedRat = new(big.Rat).SetFloat64(e)
	case int64:
		expectedRat = new(big.Rat).SetInt64(e)
	case int:
		expectedRat = new(big.Rat).SetInt64(int64(e))
	default:
		var ok bool
		expectedRat, ok = new(big.Rat).SetString(fmt.Sprintf("%v", e))
		if !ok {
			return false
		}
	}
	if expectedRat == nil || actualRat == nil {
		return expectedRat == actualRat
	}

	if actualRat.Cmp(expectedRat) == 0 {
		return true
	}

	if v.options.FloatTolerance > 0 {
		diff := new(big.Rat).Sub(actualRat, expectedRat)
		diff.Abs(diff)
		tolerance := new(big.Rat).SetFloat64(v.options.FloatTolerance)
		return diff.Cmp(tolerance) <= 0
	}
	return false
}

func (v *Validator) compareTimestamp(expected any, actualTime time.Time) bool {
	var expectedTime time.Time
	switch e := expected.(type) {
	case time.Time:
		expectedTime = e
	case civil.Date:
		expectedTime = e.In(actualTime.Location())
	case string:
		t, ok := parseTime(strings.TrimSpace(e), actualTime.Location())
		if !ok {
			return false
		}
		expectedTime = t
	default:
		return false
	}

	if v.options.TimestampTruncateTo > 0 {
		actualTime = actualTime.Truncate(v.options.TimestampTruncateTo)
		expectedTime = expectedTime.Truncate(v.options.TimestampTruncateTo)
	}
	return actualTime.Equal(expectedTime)
}

// parseTime tries every known layout; layouts without a zone are read in loc.
func parseTime(s string, loc *time.Location) (time.Time, bool) {
	for _, layout := range timeFormats {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func (v *Validator) compareDateValue(expected any, actualDate civil.Date) bool {
	switch e := expected.(type) {
	case civil.Date:
		return actualDate == e
	case time.Time:
		return civil.DateOf(e) == actualDate
	case string:
		expectedDate, err := civil.ParseDate(strings.TrimSpace(e))
		if err != nil {
			return false
		}
		return actualDate == expectedDate
	}
	return false
}

func (v *Validator) compareBytes(expected any, actualBytes []byte) bool {
	switch e := expected.(type) {
	case []byte:
		return bytes.Equal(actualBytes, e)
	case string:
		if e == string(actualBytes) {
			return true
		}
		if expectedBytes, err := base64.StdEncoding.DecodeString(e); err == nil {
			return bytes.Equal(actualBytes, expectedBytes)
		}
	}
	return false
}

func (v *Validator) compareJSON(expected, actual any) bool {
	expectedValue, ok := jsonValue(expected)
	if !ok {
		return false
	}
	// the live side is round-tripped too so numbers share a representation
	actualValue, ok := jsonValue(actual)
	if !ok {
		return false
	}
	return reflect.DeepEqual(expectedValue, actualValue)
}
