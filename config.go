package dbfixture

import (
	"errors"
	"fmt"
	"reflect"
	"time"

	"github.com/nu0ma/dbfixture/internal/validator"
)

// Helper configuration properties.
const (
	PropAllowEmptyFields        = "allowEmptyFields"
	PropEscapePattern           = "escapePattern"
	PropBatchSize               = "batchSize"
	PropCaseSensitiveTableNames = "caseSensitiveTableNames"
	PropFloatTolerance          = "floatTolerance"
	PropTimestampTruncateTo     = "timestampTruncateTo"
	PropNullValueString         = "nullValueString"
	PropColumnSensing           = "columnSensing"
)

var (
	ErrUnknownProperty = errors.New("unknown property")
	ErrPropertyType    = errors.New("wrong property type")
	ErrNotNullable     = errors.New("property is not nullable")
)

type property struct {
	name     string
	typ      reflect.Type
	nullable bool
	def      any
}

var properties = []property{
	{name: PropAllowEmptyFields, typ: reflect.TypeFor[bool](), def: false},
	{name: PropEscapePattern, typ: reflect.TypeFor[string](), nullable: true},
	{name: PropBatchSize, typ: reflect.TypeFor[int](), def: 100},
	{name: PropCaseSensitiveTableNames, typ: reflect.TypeFor[bool](), def: false},
	{name: PropFloatTolerance, typ: reflect.TypeFor[float64](), def: validator.DefaultFloatTolerance},
	{name: PropTimestampTruncateTo, typ: reflect.TypeFor[time.Duration](), def: time.Duration(0)},
	{name: PropNullValueString, typ: reflect.TypeFor[string](), nullable: true},
	{name: PropColumnSensing, typ: reflect.TypeFor[bool](), def: false},
}

func lookupProperty(name string) (property, bool) {
	for _, p := range properties {
		if p.name == name {
			return p, true
		}
	}
	return property{}, false
}

// Config is a bag of named properties. The zero value has every property
// unset; getters fall back to the property default.
type Config struct {
	values map[string]any
}

func NewConfig() *Config {
	return &Config{values: make(map[string]any)}
}

// DefaultConfig has every non-nullable property set to its default, with
// empty fields allowed.
func DefaultConfig() *Config {
	c := NewConfig()
	for _, p := range properties {
		if !p.nullable {
			c.values[p.name] = p.def
		}
	}
	c.values[PropAllowEmptyFields] = true
	return c
}

// Set stores value under name. A *string is stored as its string, and a nil
// *string as nil.
func (c *Config) Set(name string, value any) error {
	p, ok := lookupProperty(name)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownProperty, name)
	}
	if s, ok := value.(*string); ok {
		if s == nil {
			value = nil
		} else {
			value = *s
		}
	}

	if value == nil {
		if !p.nullable {
			return fmt.Errorf("%w: %s", ErrNotNullable, name)
		}
	} else if reflect.TypeOf(value) != p.typ {
		return fmt.Errorf("%w: %s wants %s, got %T", ErrPropertyType, name, p.typ, value)
	}

	if c.values == nil {
		c.values = make(map[string]any)
	}
	c.values[name] = value
	return nil
}

// Property returns the stored value of name, nil when unset.
func (c *Config) Property(name string) (any, error) {
	if _, ok := lookupProperty(name); !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProperty, name)
	}
	return c.values[name], nil
}

// Apply copies each property of override into c when the override value is
// non-nil or the property is nullable.
func (c *Config) Apply(override *Config) {
	if override == nil {
		return
	}
	if c.values == nil {
		c.values = make(map[string]any)
	}
	for _, p := range properties {
		v := override.values[p.name]
		if v != nil || p.nullable {
			c.values[p.name] = v
		}
	}
}

func (c *Config) Clone() *Config {
	out := NewConfig()
	for k, v := range c.values {
		out.values[k] = v
	}
	return out
}

func (c *Config) value(name string) any {
	if v, ok := c.values[name]; ok && v != nil {
		return v
	}
	p, _ := lookupProperty(name)
	return p.def
}

func (c *Config) stringPtr(name string) *string {
	if s, ok := c.values[name].(string); ok {
		return &s
	}
	return nil
}

func (c *Config) AllowEmptyFields() bool        { return c.value(PropAllowEmptyFields).(bool) }
func (c *Config) EscapePattern() *string        { return c.stringPtr(PropEscapePattern) }
func (c *Config) BatchSize() int                { return c.value(PropBatchSize).(int) }
func (c *Config) CaseSensitiveTableNames() bool { return c.value(PropCaseSensitiveTableNames).(bool) }
func (c *Config) FloatTolerance() float64       { return c.value(PropFloatTolerance).(float64) }
func (c *Config) NullValueString() *string      { return c.stringPtr(PropNullValueString) }
func (c *Config) ColumnSensing() bool           { return c.value(PropColumnSensing).(bool) }

func (c *Config) TimestampTruncateTo() time.Duration {
	return c.value(PropTimestampTruncateTo).(time.Duration)
}
