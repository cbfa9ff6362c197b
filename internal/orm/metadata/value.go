package metadata

import (
	"fmt"
	"strconv"
	"strings"
)

// ValueType is the storage and comparison interpretation of a value
type ValueType string

const (
	// ValueTypeAuto asks the store to detect the type from the value
	ValueTypeAuto ValueType = ""
	// ValueTypeText stores the value verbatim
	ValueTypeText ValueType = "text"
	// ValueTypeInteger stores a base-10 integer; booleans become 0/1
	ValueTypeInteger ValueType = "integer"
)

// ParseValueType accepts "", "text" or "integer" (case-insensitive)
func ParseValueType(s string) (ValueType, error) {
	switch vt := ValueType(strings.ToLower(strings.TrimSpace(s))); vt {
	case ValueTypeAuto, ValueTypeText, ValueTypeInteger:
		return vt, nil
	default:
		return "", fmt.Errorf("%w: unknown value type %q", ErrInvalidValue, s)
	}
}

// DetectValueType resolves the value type of v. A forced type wins, but a
// forced integer must hold an integer-like value.
func DetectValueType(v interface{}, forced ValueType) (ValueType, error) {
	if v == nil {
		return "", ErrValueUnset
	}

	switch forced {
	case ValueTypeText:
		return ValueTypeText, nil
	case ValueTypeInteger:
		encoded, err := EncodeValue(v)
		if err != nil {
			return "", err
		}
		if _, err := strconv.ParseInt(encoded, 10, 64); err != nil {
			return "", fmt.Errorf("%w: %q is not an integer", ErrInvalidValue, encoded)
		}
		return ValueTypeInteger, nil
	case ValueTypeAuto:
	default:
		return "", fmt.Errorf("%w: unknown value type %q", ErrInvalidValue, forced)
	}

	switch v.(type) {
	case bool, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return ValueTypeInteger, nil
	default:
		return ValueTypeText, nil
	}
}

// EncodeValue turns a scalar into its stored text form. Booleans are
// stored as 1 and 0.
func EncodeValue(v interface{}) (string, error) {
	switch val := v.(type) {
	case nil:
		return "", ErrValueUnset
	case string:
		return val, nil
	case []byte:
		return string(val), nil
	case bool:
		if val {
			return "1", nil
		}
		return "0", nil
	case int:
		return strconv.FormatInt(int64(val), 10), nil
	case int8:
		return strconv.FormatInt(int64(val), 10), nil
	case int16:
		return strconv.FormatInt(int64(val), 10), nil
	case int32:
		return strconv.FormatInt(int64(val), 10), nil
	case int64:
		return strconv.FormatInt(val, 10), nil
	case uint:
		return strconv.FormatUint(uint64(val), 10), nil
	case uint8:
		return strconv.FormatUint(uint64(val), 10), nil
	case uint16:
		return strconv.FormatUint(uint64(val), 10), nil
	case uint32:
		return strconv.FormatUint(uint64(val), 10), nil
	case uint64:
		return strconv.FormatUint(val, 10), nil
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32), nil
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64), nil
	default:
		return "", fmt.Errorf("%w: unsupported value of type %T", ErrInvalidValue, v)
	}
}

// DecodeValue turns a stored value back into string or int64
func DecodeValue(raw string, vt ValueType) (interface{}, error) {
	if vt != ValueTypeInteger {
		return raw, nil
	}
	n, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: stored integer %q: %v", ErrInvalidValue, raw, err)
	}
	return n, nil
}

// encodeTyped detects, validates and encodes v in one step
func encodeTyped(v interface{}, forced ValueType) (string, ValueType, error) {
	vt, err := DetectValueType(v, forced)
	if err != nil {
		return "", "", err
	}
	encoded, err := EncodeValue(v)
	if err != nil {
		return "", "", err
	}
	return encoded, vt, nil
}
