package structure

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"annotcore/internal/corpuserr"
)

// Base is the storage class of a level or attribute.
type Base string

const (
	Varchar  Base = "varchar"
	Integer  Base = "integer"
	Double   Base = "double"
	Boolean  Base = "boolean"
	DateTime Base = "datetime"
)

// DataType is a base type with an optional precision (maximum length for
// varchar).
type DataType struct {
	Base      Base
	Precision int
}

// Text is the default type of level labels.
var Text = DataType{Base: Varchar, Precision: 1024}

// ParseDataType accepts "varchar", "varchar(64)", "integer", "double",
// "boolean" and "datetime", case-insensitively. Precision may also be given
// separately; a non-zero precision argument wins over the inline one.
func ParseDataType(value string, precision int) (DataType, error) {
	raw := strings.ToLower(strings.TrimSpace(value))
	if raw == "" {
		raw = string(Varchar)
	}
	inline := 0
	if open := strings.IndexByte(raw, '('); open > 0 && strings.HasSuffix(raw, ")") {
		n, err := strconv.Atoi(raw[open+1 : len(raw)-1])
		if err != nil || n < 0 {
			return DataType{}, corpuserr.Validation("datatype", "invalid precision in %q", value)
		}
		inline = n
		raw = raw[:open]
	}
	var base Base
	switch raw {
	case "varchar", "text", "string", "char":
		base = Varchar
	case "integer", "int", "bigint":
		base = Integer
	case "double", "real", "float":
		base = Double
	case "boolean", "bool":
		base = Boolean
	case "datetime", "timestamp":
		base = DateTime
	default:
		return DataType{}, corpuserr.Validation("datatype", "unknown type %q", value)
	}
	if precision == 0 {
		precision = inline
	}
	return DataType{Base: base, Precision: precision}, nil
}

func (d DataType) String() string {
	if d.Base == Varchar && d.Precision > 0 {
		return fmt.Sprintf("varchar(%d)", d.Precision)
	}
	if d.Base == "" {
		return string(Varchar)
	}
	return string(d.Base)
}

// SQLType returns the column declaration used by SQL backends.
func (d DataType) SQLType() string {
	switch d.Base {
	case Integer, Boolean:
		return "INTEGER"
	case Double:
		return "REAL"
	case DateTime:
		return "TEXT"
	default:
		if d.Precision > 0 {
			return fmt.Sprintf("VARCHAR(%d)", d.Precision)
		}
		return "TEXT"
	}
}

// Coerce converts value to the Go representation of d: string, int64,
// float64, bool or time.Time. nil, and empty strings for non-text types,
// become nil. Values that cannot be represented return a validation error.
func (d DataType) Coerce(value any) (any, error) {
	if value == nil {
		return nil, nil
	}
	if b, ok := value.([]byte); ok {
		value = string(b)
	}
	if s, ok := value.(string); ok && s == "" && d.Base != Varchar && d.Base != "" {
		return nil, nil
	}
	switch d.Base {
	case Integer:
		return coerceInt(value)
	case Double:
		return coerceFloat(value)
	case Boolean:
		return coerceBool(value)
	case DateTime:
		return coerceTime(value)
	default:
		s := stringOf(value)
		if d.Precision > 0 && utf8.RuneCountInString(s) > d.Precision {
			return nil, corpuserr.Validation("value", "%q exceeds varchar(%d)", s, d.Precision)
		}
		return s, nil
	}
}

// CanHold reports whether every value can be coerced to d.
func (d DataType) CanHold(values []any) error {
	for _, v := range values {
		if _, err := d.Coerce(v); err != nil {
			return err
		}
	}
	return nil
}

func coerceInt(value any) (any, error) {
	switch v := value.(type) {
	case int:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case int64:
		return v, nil
	case float64:
		if v != math.Trunc(v) || math.IsInf(v, 0) || math.IsNaN(v) {
			return nil, corpuserr.Validation("value", "%v is not an integer", v)
		}
		return int64(v), nil
	case bool:
		if v {
			return int64(1), nil
		}
		return int64(0), nil
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return nil, corpuserr.Validation("value", "%q is not an integer", v)
		}
		return n, nil
	}
	return nil, corpuserr.Validation("value", "cannot convert %T to integer", value)
}

func coerceFloat(value any) (any, error) {
	switch v := value.(type) {
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case float32:
		return float64(v), nil
	case float64:
		return v, nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return nil, corpuserr.Validation("value", "%q is not a number", v)
		}
		return f, nil
	}
	return nil, corpuserr.Validation("value", "cannot convert %T to double", value)
}

func coerceBool(value any) (any, error) {
	switch v := value.(type) {
	case bool:
		return v, nil
	case int64:
		if v == 0 || v == 1 {
			return v == 1, nil
		}
	case int:
		if v == 0 || v == 1 {
			return v == 1, nil
		}
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true", "1", "yes":
			return true, nil
		case "false", "0", "no":
			return false, nil
		}
	}
	return nil, corpuserr.Validation("value", "%v is not a boolean", value)
}

func coerceTime(value any) (any, error) {
	switch v := value.(type) {
	case time.Time:
		return v.UTC(), nil
	case string:
		for _, layout := range []string{time.RFC3339Nano, "2006-01-02 15:04:05", "2006-01-02"} {
			if ts, err := time.Parse(layout, strings.TrimSpace(v)); err == nil {
				return ts.UTC(), nil
			}
		}
	}
	return nil, corpuserr.Validation("value", "%v is not a datetime", value)
}

func stringOf(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case time.Time:
		return v.UTC().Format(time.RFC3339Nano)
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}
