package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// TimestampLayout is the wire format of server-stamped times (UTC, millisecond precision).
const TimestampLayout = "2006-01-02T15:04:05.000Z"

type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindTime
	KindJSON // nested object or array, kept verbatim
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindTime:
		return "time"
	case KindJSON:
		return "json"
	default:
		return "kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Value is a single supplier field value. The zero Value is null.
type Value struct {
	kind Kind
	b    bool
	s    string // string text, number literal
	t    time.Time
	raw  json.RawMessage
}

func Null() Value { return Value{} }

func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

func String(s string) Value { return Value{kind: KindString, s: s} }

func Int(i int64) Value { return Value{kind: KindNumber, s: strconv.FormatInt(i, 10)} }

func Float(f float64) Value { return Value{kind: KindNumber, s: strconv.FormatFloat(f, 'f', -1, 64)} }

func Number(n json.Number) Value { return Value{kind: KindNumber, s: n.String()} }

// Time values are only produced server-side; clients send timestamps as strings.
func Time(t time.Time) Value { return Value{kind: KindTime, t: t.UTC()} }

// JSON wraps a nested object or array. Scalars are decoded into their own kind.
func JSON(raw json.RawMessage) (Value, error) {
	var v Value
	if err := v.UnmarshalJSON(raw); err != nil {
		return Value{}, err
	}
	return v, nil
}

func (v Value) Kind() Kind { return v.kind }

func (v Value) IsNull() bool { return v.kind == KindNull }

// Text returns the string content or the number literal.
func (v Value) Text() string { return v.s }

func (v Value) Bool() bool { return v.b }

func (v Value) Time() time.Time { return v.t }

// Raw returns the verbatim JSON of a KindJSON value.
func (v Value) Raw() json.RawMessage { return v.raw }

// Int64 reports the value as an integer when it is a whole number.
func (v Value) Int64() (int64, bool) {
	if v.kind != KindNumber {
		return 0, false
	}
	i, err := strconv.ParseInt(v.s, 10, 64)
	return i, err == nil
}

// Float64 reports the value as a float when it is a number.
func (v Value) Float64() (float64, bool) {
	if v.kind != KindNumber {
		return 0, false
	}
	f, err := strconv.ParseFloat(v.s, 64)
	return f, err == nil
}

// SQLArg converts the value into a database/sql argument.
func (v Value) SQLArg() any {
	switch v.kind {
	case KindBool:
		return v.b
	case KindNumber:
		if i, ok := v.Int64(); ok {
			return i
		}
		if f, ok := v.Float64(); ok {
			return f
		}
		return v.s
	case KindString:
		return v.s
	case KindTime:
		return v.t
	case KindJSON:
		return string(v.raw)
	default:
		return nil
	}
}

// Equal compares kind and content; JSON values compare byte-wise after compaction.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindBool:
		return v.b == o.b
	case KindTime:
		return v.t.Equal(o.t)
	case KindJSON:
		var a, b bytes.Buffer
		if json.Compact(&a, v.raw) != nil || json.Compact(&b, o.raw) != nil {
			return bytes.Equal(v.raw, o.raw)
		}
		return bytes.Equal(a.Bytes(), b.Bytes())
	case KindNumber:
		if v.s == o.s {
			return true
		}
		x, okx := v.Float64()
		y, oky := o.Float64()
		return okx && oky && x == y
	default:
		return v.s == o.s
	}
}

func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindNull:
		return []byte("null"), nil
	case KindBool:
		return strconv.AppendBool(nil, v.b), nil
	case KindNumber:
		return []byte(v.s), nil
	case KindString:
		return json.Marshal(v.s)
	case KindTime:
		return json.Marshal(v.t.UTC().Format(TimestampLayout))
	case KindJSON:
		return v.raw, nil
	default:
		return nil, fmt.Errorf("model: cannot marshal value of %s", v.kind)
	}
}

func (v *Value) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return fmt.Errorf("model: empty value")
	}
	switch data[0] {
	case 'n':
		if string(data) != "null" {
			return fmt.Errorf("model: invalid literal %q", data)
		}
		*v = Null()
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(data, &b); err != nil {
			return err
		}
		*v = Bool(b)
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = String(s)
	case '{', '[':
		if !json.Valid(data) {
			return fmt.Errorf("model: invalid nested json")
		}
		*v = Value{kind: KindJSON, raw: append(json.RawMessage(nil), data...)}
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("model: invalid number %q: %w", data, err)
		}
		*v = Number(n)
	}
	return nil
}

func (v Value) String() string {
	switch v.kind {
	case KindNull:
		return "null"
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindTime:
		return v.t.Format(TimestampLayout)
	case KindJSON:
		return string(v.raw)
	default:
		return v.s
	}
}
