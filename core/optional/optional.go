// Package optional implements a presence/absence wrapper with typed
// absence sentinels and diagnostic trace paths.
//
// Unlike a plain pointer, an Optional distinguishes between a value
// that is explicitly null and one that was never supplied at all
// (undefined). Which sentinels count as "absent" is fixed at
// construction: Of rejects both, OfNullable treats null as absence,
// OfUndefinable treats both as absence.
//
// Every Optional derived through GetFromObject or Index carries an
// accumulating dotted trace path. The trace exists purely for
// diagnostics: it names the nested field an extraction chain refers to
// when an error message is produced, and never participates in logic.
package optional

import (
	"fmt"
	"reflect"
	"strconv"

	"github.com/codewandler/userd-go/core/ds"
	"github.com/codewandler/userd-go/core/errs"
	"github.com/codewandler/userd-go/core/result"
)

// Kind classifies the wrapped value.
type Kind uint8

const (
	// KindUndefined is the total absence of a value: a missing object
	// field, an empty Optional. It is the zero Kind so that a
	// zero-value Optional is absent.
	KindUndefined Kind = iota
	// KindNull is an explicit null: a nil interface or a typed nil
	// pointer/map/slice deliberately supplied.
	KindNull
	// KindValue is a concrete, usable value.
	KindValue
)

func (k Kind) String() string {
	switch k {
	case KindValue:
		return "value"
	case KindNull:
		return "null"
	case KindUndefined:
		return "undefined"
	}
	return "unknown"
}

// Optional wraps a possibly-absent value. Presence is computed purely
// from the invalid-sentinel set fixed at construction, never from a
// separate flag.
type Optional[T any] struct {
	value   T
	kind    Kind
	invalid *ds.Set[Kind]
	allowed *ds.Set[Kind]
	trace   string
}

// Of wraps a value that must be present. A null value here is a
// programmer error and panics with *errs.InvalidValueError.
func Of[T any](value T) Optional[T] {
	return build(value, ds.NewSet(KindNull, KindUndefined), ds.NewSet[Kind](), "")
}

// OfNullable wraps a value where explicit null is a legitimate absent
// state. Undefined is not expected here.
func OfNullable[T any](value T) Optional[T] {
	cfg := ds.NewSet(KindNull)
	return build(value, cfg, cfg, "")
}

// OfUndefinable wraps a value where both null and undefined count as
// absence. This is the mode for data decoded from JSON or YAML.
func OfUndefinable[T any](value T) Optional[T] {
	cfg := ds.NewSet(KindNull, KindUndefined)
	return build(value, cfg, cfg, "")
}

// Empty returns the canonical absent Optional.
func Empty[T any]() Optional[T] {
	cfg := ds.NewSet(KindNull, KindUndefined)
	var zero T
	return Optional[T]{value: zero, kind: KindUndefined, invalid: cfg, allowed: cfg}
}

func build[T any](value T, invalid, allowed *ds.Set[Kind], trace string) Optional[T] {
	kind := kindOf(value)
	if invalid.Contains(kind) && !allowed.Contains(kind) {
		panic(errs.NewInvalidValue(value, "optional received an invalid value"))
	}
	return Optional[T]{value: value, kind: kind, invalid: invalid, allowed: allowed, trace: trace}
}

// kindOf reports whether v is a concrete value or a null sentinel.
// Undefined is never derived from a value; it only arises from missing
// fields and empty optionals.
func kindOf(v any) Kind {
	if v == nil {
		return KindNull
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
		if rv.IsNil() {
			return KindNull
		}
	}
	return KindValue
}

func (o Optional[T]) invalidKinds() *ds.Set[Kind] {
	if o.invalid == nil {
		// zero-value Optional behaves like Empty
		return ds.NewSet(KindNull, KindUndefined)
	}
	return o.invalid
}

// IsPresent reports whether the wrapped value's kind is outside the
// invalid-sentinel set.
func (o Optional[T]) IsPresent() bool {
	return !o.invalidKinds().Contains(o.kind)
}

// Kind returns the sentinel classification of the wrapped value.
func (o Optional[T]) Kind() Kind { return o.kind }

// Trace returns the accumulated dotted field path, for diagnostics.
func (o Optional[T]) Trace() string { return o.trace }

// MustGet returns the value or panics with *errs.InvalidValueError
// naming the trace path. Intended for required-by-construction data,
// never for user-facing validation.
func (o Optional[T]) MustGet() T {
	if !o.IsPresent() {
		panic(errs.NewInvalidValue(o.trace, "tried to get a value from an empty optional"))
	}
	return o.value
}

// Get returns the value and whether it is present.
func (o Optional[T]) Get() (T, bool) {
	return o.value, o.IsPresent()
}

// IfPresent runs action only when a value is present.
func (o Optional[T]) IfPresent(action func(T)) {
	if o.IsPresent() {
		action(o.value)
	}
}

// Filter keeps the value only when pred accepts it; otherwise the
// Optional becomes absent with its trace preserved.
func (o Optional[T]) Filter(pred func(T) bool) Optional[T] {
	if o.IsPresent() && pred(o.value) {
		return o
	}
	return absentLike(o)
}

// OrElse resolves absence with a fixed fallback.
func (o Optional[T]) OrElse(other T) T {
	if o.IsPresent() {
		return o.value
	}
	return other
}

// OrElseGet resolves absence with a lazily-computed fallback.
func (o Optional[T]) OrElseGet(supply func() T) T {
	if o.IsPresent() {
		return o.value
	}
	return supply()
}

// OrElseErr returns the value, or err when absent.
func (o Optional[T]) OrElseErr(err error) (T, error) {
	if o.IsPresent() {
		return o.value, nil
	}
	var zero T
	return zero, err
}

// ReplaceIfEmpty substitutes a new value when absent, preserving the
// trace. Present optionals are returned unchanged.
func (o Optional[T]) ReplaceIfEmpty(value T) Optional[T] {
	if o.IsPresent() {
		return o
	}
	next := OfUndefinable(value)
	next.trace = o.trace
	return next
}

// Validate bridges into the Result world: present becomes Ok, absent
// becomes a failure built by fail.
func (o Optional[T]) Validate(fail func() error) result.Result[T] {
	if o.IsPresent() {
		return result.Ok(o.value)
	}
	return result.Fail[T](fail())
}

func (o Optional[T]) String() string {
	if !o.IsPresent() {
		return "Optional.empty"
	}
	return fmt.Sprintf("Optional[%s][%v]", o.trace, o.value)
}

// Map transforms a present value. Absence propagates with the trace
// preserved, and a mapped result that is itself an invalid sentinel
// collapses to absence rather than wrapping the sentinel.
func Map[T, U any](o Optional[T], fn func(T) U) Optional[U] {
	if !o.IsPresent() {
		return absentLike2[T, U](o)
	}
	v := fn(o.value)
	if o.invalidKinds().Contains(kindOf(v)) {
		return absentLike2[T, U](o)
	}
	return Optional[U]{value: v, kind: KindValue, invalid: o.invalid, allowed: o.allowed, trace: o.trace}
}

// Traced derives an Optional carrying parent's sentinel configuration
// and a trace extended by the given path segments. Used when walking
// into containers whose elements need individual diagnostics.
func Traced[T, U any](parent Optional[T], value U, path ...string) Optional[U] {
	return Optional[U]{
		value:   value,
		kind:    kindOf(value),
		invalid: parent.invalidKinds().Copy(),
		allowed: parent.allowed.Copy(),
		trace:   joinTrace(parent.trace, path...),
	}
}

func joinTrace(trace string, path ...string) string {
	for _, p := range path {
		if trace == "" {
			trace = p
			continue
		}
		trace += "." + p
	}
	return trace
}

func absentLike[T any](o Optional[T]) Optional[T] {
	var zero T
	return Optional[T]{value: zero, kind: KindUndefined, invalid: o.invalidKinds().Copy(), allowed: o.allowed.Copy(), trace: o.trace}
}

func absentLike2[T, U any](o Optional[T]) Optional[U] {
	var zero U
	return Optional[U]{value: zero, kind: KindUndefined, invalid: o.invalidKinds().Copy(), allowed: o.allowed.Copy(), trace: o.trace}
}

// GetFromObject walks into a decoded map (map[string]any, as produced
// by yaml/json unmarshalling into any) and returns the field wrapped in
// a new Optional whose trace is extended by the key. A non-map value or
// a missing key yields an absent Optional carrying the extended trace.
func (o Optional[T]) GetFromObject(key string) Optional[any] {
	if !o.IsPresent() {
		return absentAt[T, any](o, key)
	}
	m, ok := any(o.value).(map[string]any)
	if !ok {
		return absentAt[T, any](o, key)
	}
	v, ok := m[key]
	if !ok {
		return absentAt[T, any](o, key)
	}
	return Traced(o, v, key)
}

// GetFromObjectOrThrow is GetFromObject for required-by-construction
// fields: it panics with *errs.InvalidValueError naming the full trace
// path when the field is absent.
func (o Optional[T]) GetFromObjectOrThrow(key string) any {
	return o.GetFromObject(key).MustGet()
}

// Index walks into a decoded slice ([]any) at position i, extending the
// trace with the index.
func (o Optional[T]) Index(i int) Optional[any] {
	seg := strconv.Itoa(i)
	if !o.IsPresent() {
		return absentAt[T, any](o, seg)
	}
	s, ok := any(o.value).([]any)
	if !ok || i < 0 || i >= len(s) {
		return absentAt[T, any](o, seg)
	}
	return Traced(o, s[i], seg)
}

func absentAt[T, U any](o Optional[T], path ...string) Optional[U] {
	var zero U
	return Optional[U]{
		value:   zero,
		kind:    KindUndefined,
		invalid: o.invalidKinds().Copy(),
		allowed: o.allowed.Copy(),
		trace:   joinTrace(o.trace, path...),
	}
}
