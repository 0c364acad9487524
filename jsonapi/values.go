package jsonapi

import (
	"encoding/json"
	"strconv"
)

// Attribute values decode as json.Number, string, bool or nested
// containers. These helpers coerce the scalar forms without losing
// precision, returning false when the value cannot represent the
// requested type.

// AsInt coerces v to an int64.
func AsInt(v any) (int64, bool) {
	switch n := v.(type) {
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, false
		}
		return i, true
	case int:
		return int64(n), true
	case int64:
		return n, true
	case float64:
		i := int64(n)
		if float64(i) != n {
			return 0, false
		}
		return i, true
	case string:
		i, err := strconv.ParseInt(n, 10, 64)
		if err != nil {
			return 0, false
		}
		return i, true
	}
	return 0, false
}

// AsFloat coerces v to a float64.
func AsFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0, false
		}
		return f, true
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

// AsString coerces v to a string. Numbers render in their decimal form.
func AsString(v any) (string, bool) {
	switch s := v.(type) {
	case string:
		return s, true
	case json.Number:
		return s.String(), true
	case bool:
		return strconv.FormatBool(s), true
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64), true
	case int64:
		return strconv.FormatInt(s, 10), true
	case int:
		return strconv.Itoa(s), true
	}
	return "", false
}

// AsBool coerces v to a bool. The numeric forms 0 and 1 are accepted
// because some vendor endpoints serialise flags that way.
func AsBool(v any) (bool, bool) {
	switch b := v.(type) {
	case bool:
		return b, true
	case json.Number:
		switch b.String() {
		case "0":
			return false, true
		case "1":
			return true, true
		}
		return false, false
	case string:
		switch b {
		case "true", "True":
			return true, true
		case "false", "False":
			return false, true
		}
		return false, false
	}
	return false, false
}
