package table

import (
	"fmt"
	"strconv"
	"time"
)

// Value represents a typed cell value with deterministic coercion
type Value struct {
	Type        ValueType  `json:"type"`
	StringVal   *string    `json:"string_val,omitempty"`
	IntVal      *int64     `json:"int_val,omitempty"`
	FloatVal    *float64   `json:"float_val,omitempty"`
	BoolVal     *bool      `json:"bool_val,omitempty"`
	DatetimeVal *time.Time `json:"datetime_val,omitempty"`
	IsNull      bool       `json:"is_null"`
}

// ValueType defines the storage type for cell values
type ValueType string

const (
	ValueTypeString   ValueType = "string"
	ValueTypeInteger  ValueType = "integer"
	ValueTypeFloat    ValueType = "float"
	ValueTypeBoolean  ValueType = "boolean"
	ValueTypeDatetime ValueType = "datetime"
	ValueTypeNull     ValueType = "null"
)

// NewStringValue creates a string value; empty strings collapse to null
func NewStringValue(s string) Value {
	if s == "" {
		return NullValue()
	}
	return Value{Type: ValueTypeString, StringVal: &s}
}

// NewIntegerValue creates an integer value
func NewIntegerValue(n int64) Value {
	return Value{Type: ValueTypeInteger, IntVal: &n}
}

// NewFloatValue creates a float value
func NewFloatValue(f float64) Value {
	return Value{Type: ValueTypeFloat, FloatVal: &f}
}

// NewBooleanValue creates a boolean value
func NewBooleanValue(b bool) Value {
	return Value{Type: ValueTypeBoolean, BoolVal: &b}
}

// NewDatetimeValue creates a datetime value
func NewDatetimeValue(t time.Time) Value {
	return Value{Type: ValueTypeDatetime, DatetimeVal: &t}
}

// NullValue creates the single null representation all missing cells share
func NullValue() Value {
	return Value{Type: ValueTypeNull, IsNull: true}
}

// String returns the display representation of the value
func (v Value) String() string {
	switch v.Type {
	case ValueTypeString:
		if v.StringVal != nil {
			return *v.StringVal
		}
	case ValueTypeInteger:
		if v.IntVal != nil {
			return strconv.FormatInt(*v.IntVal, 10)
		}
	case ValueTypeFloat:
		if v.FloatVal != nil {
			return strconv.FormatFloat(*v.FloatVal, 'f', -1, 64)
		}
	case ValueTypeBoolean:
		if v.BoolVal != nil {
			return fmt.Sprintf("%t", *v.BoolVal)
		}
	case ValueTypeDatetime:
		if v.DatetimeVal != nil {
			return v.DatetimeVal.Format(time.RFC3339)
		}
	case ValueTypeNull:
		return ""
	}
	return "<invalid>"
}

// IsNumeric returns true for integer and float values
func (v Value) IsNumeric() bool {
	return (v.Type == ValueTypeInteger && v.IntVal != nil) ||
		(v.Type == ValueTypeFloat && v.FloatVal != nil)
}

// IsDatetime returns true if the value holds a valid datetime
func (v Value) IsDatetime() bool {
	return v.Type == ValueTypeDatetime && v.DatetimeVal != nil
}

// AsFloat64 returns the numeric value as float64, or 0 if not numeric
func (v Value) AsFloat64() float64 {
	if v.IntVal != nil {
		return float64(*v.IntVal)
	}
	if v.FloatVal != nil {
		return *v.FloatVal
	}
	return 0.0
}

// AsString returns the string value, or empty string otherwise
func (v Value) AsString() string {
	if v.StringVal != nil {
		return *v.StringVal
	}
	return ""
}

// AsBool returns the boolean value, or false otherwise
func (v Value) AsBool() bool {
	if v.BoolVal != nil {
		return *v.BoolVal
	}
	return false
}

// AsTime returns the datetime value, or the zero time otherwise
func (v Value) AsTime() time.Time {
	if v.DatetimeVal != nil {
		return *v.DatetimeVal
	}
	return time.Time{}
}

// Equal compares two values by type and content
func (v Value) Equal(other Value) bool {
	if v.Type != other.Type {
		return false
	}
	switch v.Type {
	case ValueTypeNull:
		return true
	case ValueTypeString:
		return v.AsString() == other.AsString()
	case ValueTypeInteger, ValueTypeFloat:
		return v.AsFloat64() == other.AsFloat64()
	case ValueTypeBoolean:
		return v.AsBool() == other.AsBool()
	case ValueTypeDatetime:
		return v.AsTime().Equal(other.AsTime())
	}
	return false
}
