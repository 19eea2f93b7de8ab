// Package validate implements a fluent validation chain on top of the
// result railway.
//
// A Validator carries a dynamic value, at most one error, and an error
// mapper turning catalog codes into domain errors (BadRequest by
// default). Checks short-circuit: once failed, later steps pass the
// failure through unchanged. Checks other than Required are
// presence-aware and pass absent values through, which is how optional
// fields skip validation.
//
// Some checks coerce the carried value: Number narrows to float64,
// Date/Datetime to time.Time. A chain terminates with As, narrowing
// the dynamic value back into a typed Result.
package validate

import (
	"net/mail"
	"net/url"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/text/language"

	"github.com/codewandler/userd-go/core/ds"
	"github.com/codewandler/userd-go/core/errs"
	"github.com/codewandler/userd-go/core/optional"
	"github.com/codewandler/userd-go/core/result"
)

var (
	objectIDRe = regexp.MustCompile(`^[a-fA-F0-9]{24}$`)
	uuidRe     = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)
	numericRe  = regexp.MustCompile(`^[+-]?[0-9]+(\.[0-9]+)?$`)
	phoneRe    = regexp.MustCompile(`^\+?[1-9][0-9]{7,14}$`)
)

var datetimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
}

var timeLayouts = []string{
	"15:04:05.999999999Z07:00",
	"15:04:05.999999999",
}

// Fail builds the error attached when a check rejects a value. Use
// Code to defer construction to the validator's error mapper, or Err
// for a ready-made error.
type Fail func(value any) error

// ErrorMapper turns a catalog code into a concrete domain error.
type ErrorMapper func(code errs.ErrorCode, value any) error

// codeMarker defers error construction to the validator's mapper.
type codeMarker struct{ code errs.ErrorCode }

func (m *codeMarker) Error() string { return m.code.Value }

// Code fails with the given catalog code, wrapped by the validator's
// error mapper (BadRequest unless overridden).
func Code(code errs.ErrorCode) Fail {
	return func(any) error { return &codeMarker{code: code} }
}

// Err fails with a fixed, ready-made error.
func Err(err error) Fail {
	return func(any) error { return err }
}

func defaultMapper(code errs.ErrorCode, _ any) error {
	return errs.NewBadRequest(code)
}

// Validator is a fluent validation chain over a dynamic value.
type Validator struct {
	value  any
	err    error
	mapper ErrorMapper
}

// Option configures a Validator at construction.
type Option func(*Validator)

// WithMapper overrides the default BadRequest error mapper.
func WithMapper(m ErrorMapper) Option {
	return func(v *Validator) { v.mapper = m }
}

// Of starts a chain from a raw value. Nil is a legitimate starting
// point: it is the absent state Required rejects and other checks skip.
func Of(value any, opts ...Option) *Validator {
	v := &Validator{value: value, mapper: defaultMapper}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// FromResult starts a chain from an existing result, inheriting its
// failure if any.
func FromResult[T any](r result.Result[T], opts ...Option) *Validator {
	value, err := r.Get()
	v := Of(nil, opts...)
	if err != nil {
		v.err = err
	} else {
		v.value = value
	}
	return v
}

// FromOptional starts a chain from an Optional; absence becomes the
// nil starting state.
func FromOptional[T any](o optional.Optional[T], opts ...Option) *Validator {
	if value, ok := o.Get(); ok {
		return Of(value, opts...)
	}
	return Of(nil, opts...)
}

// IsPresent reports whether the chain has not failed and carries a
// non-null value.
func (v *Validator) IsPresent() bool {
	return v.err == nil && !isNull(v.value)
}

// Result terminates the chain without narrowing.
func (v *Validator) Result() result.Result[any] {
	if v.err != nil {
		return result.Fail[any](v.err)
	}
	return result.Ok(v.value)
}

// Failure returns the chain's error, or nil. Satisfies result.Failer
// so validators can participate in result.FirstFailure.
func (v *Validator) Failure() error { return v.err }

// As terminates the chain, narrowing the carried value to T. A type
// mismatch is a programming error (a chain that did not coerce what it
// promised) and fails with *errs.InvalidValueError.
func As[T any](v *Validator) result.Result[T] {
	if v.err != nil {
		return result.Fail[T](v.err)
	}
	typed, ok := v.value.(T)
	if !ok {
		var want T
		return result.Fail[T](errs.NewInvalidValue(v.value, "validator chain produced an unexpected type, want "+reflect.TypeOf(&want).Elem().String()))
	}
	return result.Ok(typed)
}

func (v *Validator) clone() *Validator {
	c := *v
	return &c
}

func (v *Validator) failWith(fail Fail) *Validator {
	next := v.clone()
	err := fail(v.value)
	if marker, ok := err.(*codeMarker); ok {
		err = v.mapper(marker.code, v.value)
	}
	next.err = err
	return next
}

// Check applies a predicate to a present value. Failed chains and
// absent values pass through untouched.
func (v *Validator) Check(pred func(value any) bool, fail Fail) *Validator {
	if v.err != nil || !v.IsPresent() {
		return v
	}
	if !pred(v.value) {
		return v.failWith(fail)
	}
	return v
}

// Required asserts presence. A null value or a blank string fails.
func (v *Validator) Required(fail Fail) *Validator {
	if v.err != nil {
		return v
	}
	if !v.IsPresent() {
		return v.failWith(fail)
	}
	if s, ok := v.value.(string); ok && strings.TrimSpace(s) == "" {
		return v.failWith(fail)
	}
	return v
}

// MapIfPresent transforms the value only when present.
func (v *Validator) MapIfPresent(fn func(value any) any) *Validator {
	if v.err != nil || !v.IsPresent() {
		return v
	}
	next := v.clone()
	next.value = fn(v.value)
	return next
}

// MapIfAbsent supplies a value only when absent.
func (v *Validator) MapIfAbsent(fn func() any) *Validator {
	if v.err != nil || v.IsPresent() {
		return v
	}
	next := v.clone()
	next.value = fn()
	return next
}

// === type checks ===

func (v *Validator) String(fail Fail) *Validator {
	return v.Check(func(value any) bool {
		_, ok := value.(string)
		return ok
	}, fail)
}

func (v *Validator) Boolean(fail Fail) *Validator {
	return v.Check(func(value any) bool {
		_, ok := value.(bool)
		return ok
	}, fail)
}

// Object requires a decoded JSON/YAML object.
func (v *Validator) Object(fail Fail) *Validator {
	return v.Check(func(value any) bool {
		_, ok := value.(map[string]any)
		return ok
	}, fail)
}

// Array requires a slice and coerces it to []any.
func (v *Validator) Array(fail Fail) *Validator {
	next := v.Check(func(value any) bool {
		return reflect.ValueOf(value).Kind() == reflect.Slice
	}, fail)
	return next.MapIfPresent(func(value any) any {
		if s, ok := value.([]any); ok {
			return s
		}
		rv := reflect.ValueOf(value)
		out := make([]any, rv.Len())
		for i := range out {
			out[i] = rv.Index(i).Interface()
		}
		return out
	})
}

// Number requires a numeric value or numeric string and coerces to
// float64.
func (v *Validator) Number(fail Fail) *Validator {
	next := v.Check(func(value any) bool {
		_, ok := numberOf(value)
		return ok
	}, fail)
	return next.MapIfPresent(func(value any) any {
		n, _ := numberOf(value)
		return n
	})
}

// === string format checks ===

func (v *Validator) ObjectID(fail Fail) *Validator {
	return v.String(fail).Check(func(value any) bool {
		return objectIDRe.MatchString(value.(string))
	}, fail)
}

func (v *Validator) UUID(fail Fail) *Validator {
	return v.String(fail).Check(func(value any) bool {
		return uuidRe.MatchString(value.(string))
	}, fail)
}

func (v *Validator) NumericString(fail Fail) *Validator {
	return v.String(fail).Check(func(value any) bool {
		return numericRe.MatchString(value.(string))
	}, fail)
}

// CountryCode2 requires an ISO 3166-1 alpha-2 country code.
func (v *Validator) CountryCode2(fail Fail) *Validator {
	return v.String(fail).Check(func(value any) bool {
		s := value.(string)
		if len(s) != 2 || strings.ToUpper(s) != s {
			return false
		}
		_, err := language.ParseRegion(s)
		return err == nil
	}, fail)
}

func (v *Validator) URL(fail Fail) *Validator {
	return v.String(fail).Check(func(value any) bool {
		u, err := url.Parse(value.(string))
		return err == nil && u.Scheme != "" && u.Host != ""
	}, fail)
}

func (v *Validator) Email(fail Fail) *Validator {
	return v.String(fail).Check(func(value any) bool {
		addr, err := mail.ParseAddress(value.(string))
		// reject addresses without a dot in the domain, e.g. john@doe
		return err == nil && addr.Address == value.(string) && strings.Contains(domainOf(addr.Address), ".")
	}, fail)
}

func (v *Validator) Phone(fail Fail) *Validator {
	return v.String(fail).Check(func(value any) bool {
		return phoneRe.MatchString(value.(string))
	}, fail)
}

func domainOf(addr string) string {
	if i := strings.LastIndex(addr, "@"); i >= 0 {
		return addr[i+1:]
	}
	return ""
}

// === length checks ===

func (v *Validator) MinLength(min int, fail Fail) *Validator {
	return v.Check(func(value any) bool {
		n, ok := lengthOf(value)
		return ok && n >= min
	}, fail)
}

func (v *Validator) MaxLength(max int, fail Fail) *Validator {
	return v.Check(func(value any) bool {
		n, ok := lengthOf(value)
		return ok && n <= max
	}, fail)
}

func (v *Validator) Length(length int, fail Fail) *Validator {
	return v.Check(func(value any) bool {
		n, ok := lengthOf(value)
		return ok && n == length
	}, fail)
}

// NotEmpty is MinLength(1).
func (v *Validator) NotEmpty(fail Fail) *Validator {
	return v.MinLength(1, fail)
}

// === numeric range checks (coerce via Number) ===

func (v *Validator) Min(min float64, fail Fail) *Validator {
	return v.Number(fail).Check(func(value any) bool {
		return value.(float64) >= min
	}, fail)
}

func (v *Validator) Max(max float64, fail Fail) *Validator {
	return v.Number(fail).Check(func(value any) bool {
		return value.(float64) <= max
	}, fail)
}

func (v *Validator) Range(min, max float64, fail Fail) *Validator {
	return v.Number(fail).Check(func(value any) bool {
		n := value.(float64)
		return n >= min && n <= max
	}, fail)
}

// === temporal checks ===

// Date requires a calendar date (2006-01-02) and coerces to time.Time.
func (v *Validator) Date(fail Fail) *Validator {
	return v.coerceTime([]string{time.DateOnly}, fail)
}

// Time requires a wall-clock time, with optional fraction and zone.
func (v *Validator) Time(fail Fail) *Validator {
	return v.coerceTime(timeLayouts, fail)
}

// Datetime requires a strict ISO-8601 date-time ("T" separator, full
// date and time, optional fraction and zone) and coerces to time.Time.
func (v *Validator) Datetime(fail Fail) *Validator {
	return v.coerceTime(datetimeLayouts, fail)
}

func (v *Validator) coerceTime(layouts []string, fail Fail) *Validator {
	if v.err != nil || !v.IsPresent() {
		return v
	}
	if _, ok := v.value.(time.Time); ok {
		return v
	}
	s, ok := v.value.(string)
	if !ok {
		return v.failWith(fail)
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			next := v.clone()
			next.value = t
			return next
		}
	}
	return v.failWith(fail)
}

// AfterDate requires a time.Time strictly after ref. Chain after
// Date/Datetime so the value is already coerced.
func (v *Validator) AfterDate(ref time.Time, fail Fail) *Validator {
	return v.Check(func(value any) bool {
		t, ok := value.(time.Time)
		return ok && t.After(ref)
	}, fail)
}

// === collection checks ===

// Enum requires membership in the allowed set.
func (v *Validator) Enum(fail Fail, allowed ...any) *Validator {
	return v.Check(func(value any) bool {
		for _, a := range allowed {
			if value == a {
				return true
			}
		}
		return false
	}, fail)
}

// Unique requires a slice whose elements derive pairwise-distinct keys.
func (v *Validator) Unique(key func(element any) any, fail Fail) *Validator {
	return v.Array(fail).Check(func(value any) bool {
		seen := ds.NewSet[any]()
		for _, el := range value.([]any) {
			if !seen.Add(key(el)) {
				return false
			}
		}
		return true
	}, fail)
}

// === helpers ===

func isNull(value any) bool {
	if value == nil {
		return true
	}
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}

func lengthOf(value any) (int, bool) {
	switch t := value.(type) {
	case string:
		return utf8.RuneCountInString(t), true
	}
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		return rv.Len(), true
	}
	return 0, false
}

func numberOf(value any) (float64, bool) {
	switch t := value.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int32:
		return float64(t), true
	case int64:
		return float64(t), true
	case uint:
		return float64(t), true
	case uint32:
		return float64(t), true
	case uint64:
		return float64(t), true
	case string:
		n, err := strconv.ParseFloat(t, 64)
		return n, err == nil
	}
	return 0, false
}
