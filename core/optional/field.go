package optional

import "encoding/json"

// Field is the JSON tri-state used by partial update payloads: a field
// can be unspecified (left out of the payload entirely), explicitly
// null, or set to a value. Unspecified means "leave unchanged"; null
// and concrete values both mean "set to this".
//
// The zero value is the unspecified state, which is what
// encoding/json leaves behind for keys missing from the payload.
type Field[T any] struct {
	value     T
	specified bool
	null      bool
}

// Specified wraps a concrete value.
func Specified[T any](value T) Field[T] {
	return Field[T]{value: value, specified: true}
}

// Null is the explicit-null state.
func Null[T any]() Field[T] {
	return Field[T]{specified: true, null: true}
}

// IsSpecified reports whether the field appeared in the payload at all,
// whether as null or as a value.
func (f Field[T]) IsSpecified() bool { return f.specified }

// IsNull reports an explicit null.
func (f Field[T]) IsNull() bool { return f.specified && f.null }

// Get returns the concrete value and whether one is present (specified
// and not null).
func (f Field[T]) Get() (T, bool) {
	return f.value, f.specified && !f.null
}

// Optional converts the tri-state into an Optional: unspecified maps to
// undefined, null to null, value to presence.
func (f Field[T]) Optional() Optional[T] {
	cfg := Empty[T]()
	switch {
	case !f.specified:
		return cfg
	case f.null:
		cfg.kind = KindNull
		return cfg
	default:
		return OfUndefinable(f.value)
	}
}

func (f *Field[T]) UnmarshalJSON(data []byte) error {
	f.specified = true
	if string(data) == "null" {
		f.null = true
		return nil
	}
	return json.Unmarshal(data, &f.value)
}

func (f Field[T]) MarshalJSON() ([]byte, error) {
	if !f.specified || f.null {
		return []byte("null"), nil
	}
	return json.Marshal(f.value)
}
