package mapper

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// FieldError reports a value whose JSON type cannot fill its column.
type FieldError struct {
	Field string
	Want  string
	Got   string
	Err   error
}

func (e *FieldError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%v (got %s)", e.Err, e.Got)
	}
	return fmt.Sprintf("field %q: want %s, got %s", e.Field, e.Want, e.Got)
}

func (e *FieldError) Unwrap() error { return e.Err }

func fieldTypeErr(sentinel error, v any) error {
	return &FieldError{Want: "object", Got: jsonType(v), Err: sentinel}
}

// fields reads typed columns out of one JSON object. The first type error
// is kept in err and later reads become no-ops.
type fields struct {
	obj    map[string]any
	prefix string
	err    error
}

func (f *fields) fail(key, want string, v any) {
	if f.err == nil {
		f.err = &FieldError{Field: f.prefix + key, Want: want, Got: jsonType(v)}
	}
}

// str reads a string column. Numbers and booleans keep their text form.
func (f *fields) str(key string) sql.NullString {
	v, ok := f.obj[key]
	if !ok || v == nil || f.err != nil {
		return sql.NullString{}
	}
	s, ok := scalarString(v)
	if !ok {
		f.fail(key, "string", v)
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// text reads a free-text column. Compound values are stored as JSON.
func (f *fields) text(key string) sql.NullString {
	v, ok := f.obj[key]
	if !ok || v == nil || f.err != nil {
		return sql.NullString{}
	}
	if s, ok := scalarString(v); ok {
		return sql.NullString{String: s, Valid: true}
	}
	b, err := json.Marshal(v)
	if err != nil {
		f.fail(key, "text", v)
		return sql.NullString{}
	}
	return sql.NullString{String: string(b), Valid: true}
}

// integer reads an integer column. Floats truncate toward zero; numeric strings
// are parsed.
func (f *fields) integer(key string) sql.NullInt64 {
	v, ok := f.obj[key]
	if !ok || v == nil || f.err != nil {
		return sql.NullInt64{}
	}
	n, ok := toInt64(v)
	if !ok {
		f.fail(key, "integer", v)
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: n, Valid: true}
}

// boolean reads a boolean column. The numbers 0 and 1 are accepted.
func (f *fields) boolean(key string) sql.NullBool {
	v, ok := f.obj[key]
	if !ok || v == nil || f.err != nil {
		return sql.NullBool{}
	}
	switch b := v.(type) {
	case bool:
		return sql.NullBool{Bool: b, Valid: true}
	case json.Number:
		switch b.String() {
		case "0":
			return sql.NullBool{Bool: false, Valid: true}
		case "1":
			return sql.NullBool{Bool: true, Valid: true}
		}
	}
	f.fail(key, "boolean", v)
	return sql.NullBool{}
}

func scalarString(v any) (string, bool) {
	switch s := v.(type) {
	case string:
		return s, true
	case json.Number:
		return s.String(), true
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(s), true
	}
	return "", false
}

func toInt64(v any) (int64, bool) {
	var s string
	switch n := v.(type) {
	case json.Number:
		s = n.String()
	case float64:
		s = strconv.FormatFloat(n, 'f', -1, 64)
	case string:
		s = strings.TrimSpace(n)
	default:
		return 0, false
	}

	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i, true
	}
	fl, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(fl) || math.IsInf(fl, 0) || fl > math.MaxInt64 || fl < math.MinInt64 {
		return 0, false
	}
	return int64(fl), true
}

func jsonType(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case bool:
		return "boolean"
	case json.Number, float64:
		return "number"
	case string:
		return "string"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		return fmt.Sprintf("%T", v)
	}
}

func messagePrefix(i int) string {
	return fmt.Sprintf("chat.messages[%d].", i)
}

func indexPath(path string, i int) string {
	return fmt.Sprintf("%s[%d]", path, i)
}
