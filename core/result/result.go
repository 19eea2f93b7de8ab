// Package result implements a railway-oriented success/failure union.
//
// A Result carries either a value or an error, never both. Validation
// and business logic compose over it without exceptions; a boundary
// unwraps once via Get (or MustGet when failure is impossible).
//
// Methods keep the receiver's type parameter; transformations that
// change the value type are package-level functions (Map, FlatMap),
// since Go methods cannot introduce type parameters.
package result

import (
	"github.com/codewandler/userd-go/core/errs"
)

// Void is the value type of results that carry no payload.
type Void = struct{}

// Result is a success/failure union. The zero value is a success
// holding T's zero value; prefer the Ok/Fail constructors.
type Result[T any] struct {
	value T
	err   error
}

// Ok returns a successful result holding value.
func Ok[T any](value T) Result[T] { return Result[T]{value: value} }

// Fail returns a failed result. A nil error is a programming mistake
// and panics.
func Fail[T any](err error) Result[T] {
	if err == nil {
		panic(errs.NewInvalidValue(nil, "cannot create a failed result without an error"))
	}
	return Result[T]{err: err}
}

// OK returns a successful void result.
func OK() Result[Void] { return Ok(Void{}) }

// FailVoid returns a failed void result.
func FailVoid(err error) Result[Void] { return Fail[Void](err) }

func (r Result[T]) IsSuccess() bool { return r.err == nil }
func (r Result[T]) IsFailure() bool { return r.err != nil }

// Get returns the value and the error, exactly one of which is set.
func (r Result[T]) Get() (T, error) { return r.value, r.err }

// MustGet returns the value or panics with the stored error. It is the
// single unsafe escape hatch, for call sites that have already
// established success.
func (r Result[T]) MustGet() T {
	if r.err != nil {
		panic(r.err)
	}
	return r.value
}

// Failure returns the stored error, or nil on success.
func (r Result[T]) Failure() error { return r.err }

// Validate turns a success into a failure when pred rejects the value.
// Failed results pass through untouched and pred is not invoked.
func (r Result[T]) Validate(pred func(T) bool, fail func(T) error) Result[T] {
	if r.err != nil || pred(r.value) {
		return r
	}
	return Fail[T](fail(r.value))
}

// OnSuccess taps the value for side effects and returns the receiver.
func (r Result[T]) OnSuccess(action func(T)) Result[T] {
	if r.err == nil {
		action(r.value)
	}
	return r
}

// OnFailure taps the error for side effects and returns the receiver.
func (r Result[T]) OnFailure(action func(error)) Result[T] {
	if r.err != nil {
		action(r.err)
	}
	return r
}

// Map applies fn to a successful value. Failures propagate unchanged
// and fn is not invoked.
func Map[T, U any](r Result[T], fn func(T) U) Result[U] {
	if r.err != nil {
		return Fail[U](r.err)
	}
	return Ok(fn(r.value))
}

// FlatMap chains a fallible step. Failures propagate unchanged.
func FlatMap[T, U any](r Result[T], fn func(T) Result[U]) Result[U] {
	if r.err != nil {
		return Fail[U](r.err)
	}
	return fn(r.value)
}

// Combine scans results left to right and returns the first failure.
// When all succeed it yields the unwrapped values in input order.
func Combine[T any](results []Result[T]) Result[[]T] {
	for _, r := range results {
		if r.err != nil {
			return Fail[[]T](r.err)
		}
	}
	values := make([]T, len(results))
	for i, r := range results {
		values[i] = r.value
	}
	return Ok(values)
}

// Failer is the type-erased view of a Result used by FirstFailure.
type Failer interface{ Failure() error }

// FirstFailure returns the first failed result's error, in argument
// order, or nil when every result succeeded. It is the heterogeneous
// companion of Combine, used to gate multi-field construction.
func FirstFailure(results ...Failer) error {
	for _, r := range results {
		if err := r.Failure(); err != nil {
			return err
		}
	}
	return nil
}
