package model

import "time"

const (
	FieldID        = "id"
	FieldCreatedAt = "created_at"
	FieldUpdatedAt = "updated_at"
)

// Fields is a partial set of supplier columns, e.g. the "updates" of a patch request.
type Fields map[string]Value

// Record is a full supplier row as returned by the row store.
type Record map[string]Value

// ID returns the record key, or "" when the row carries none.
func (r Record) ID() string {
	v, ok := r[FieldID]
	if !ok || v.IsNull() {
		return ""
	}
	return v.String()
}

// Clone returns a shallow copy; Values are immutable so this is a full copy.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Merge overwrites the fields present in f and keeps every other column.
func (r Record) Merge(f Fields) {
	for k, v := range f {
		r[k] = v
	}
}

// Clone returns a copy of f; a nil Fields clones to an empty, non-nil map.
func (f Fields) Clone() Fields {
	out := make(Fields, len(f)+1)
	for k, v := range f {
		out[k] = v
	}
	return out
}

// WithTimestamp returns a copy of f with field set to now, overwriting any caller value.
func (f Fields) WithTimestamp(field string, now time.Time) Fields {
	out := f.Clone()
	out[field] = Time(now)
	return out
}
