// Package errs defines the stable error vocabulary of the service:
// catalog-registered error codes, domain errors carrying those codes,
// and the internal sentinels consumed by infrastructure (optimistic
// locking, programmer errors).
//
// Domain errors never carry transport semantics. The HTTP and pub/sub
// boundaries map them to their own status codes.
package errs

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
)

// ErrOptimisticLock signals that a conditional write observed a stale
// version. It is an internal concurrency signal, consumed by the update
// retry protocol, and must never surface to a client.
var ErrOptimisticLock = errors.New("optimistic lock conflict")

var placeholderRe = regexp.MustCompile(`\{(\d+)\}`)

// ErrorCode pairs a stable machine-readable code with a positional
// message template ("{0}", "{1}", ...). Codes are registered once in
// codes.go and exposed unchanged on every wire surface.
type ErrorCode struct {
	Value       string
	Description string
}

// Format interpolates args into the positional placeholders of the
// description. The argument count must match the placeholder count
// exactly; a mismatch is a code-authoring mistake and panics with an
// *InvalidValueError.
func (c ErrorCode) Format(args ...string) string {
	matches := placeholderRe.FindAllStringSubmatch(c.Description, -1)
	if len(matches) != len(args) {
		panic(NewInvalidValue(args, fmt.Sprintf(
			"not exact arguments for error code %s: expected %d but got %d",
			c.Value, len(matches), len(args),
		)))
	}
	return placeholderRe.ReplaceAllStringFunc(c.Description, func(m string) string {
		i, _ := strconv.Atoi(m[1 : len(m)-1])
		if i < 0 || i >= len(args) {
			return m
		}
		return args[i]
	})
}

// DomainError is an error with an attached catalog code. Two flavors
// exist as tags rather than distinct types: bad-request (validation or
// business rule failure) and not-found. See IsNotFound / IsBadRequest.
type DomainError struct {
	Code    string
	Message string
}

func (e *DomainError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return e.Code + ": " + e.Message
}

// Is makes errors.Is compare domain errors by code only, ignoring the
// formatted message.
func (e *DomainError) Is(target error) bool {
	if e == nil || target == nil {
		return false
	}
	t, ok := target.(*DomainError)
	if !ok || t == nil {
		return false
	}
	return e.Code == t.Code
}

// HasCode reports whether the error carries the given catalog code.
func (e *DomainError) HasCode(code ErrorCode) bool {
	return e != nil && e.Code == code.Value
}

// NewBadRequest builds a validation / business rule failure from a
// catalog code. Args must match the code's placeholder count.
func NewBadRequest(code ErrorCode, args ...string) *DomainError {
	return &DomainError{Code: code.Value, Message: code.Format(args...)}
}

// NewNotFound builds the canonical missing-entity error.
func NewNotFound(entity, id string) *DomainError {
	return &DomainError{Code: CodeNotFound.Value, Message: CodeNotFound.Format(entity, id)}
}

// NewUserDuplicated builds the unique-key collision error raised when a
// user with the same email already exists.
func NewUserDuplicated() *DomainError {
	return NewBadRequest(CodeUserDuplicated)
}

// IsNotFound reports whether err is (or wraps) a not-found domain error.
func IsNotFound(err error) bool {
	var de *DomainError
	return errors.As(err, &de) && de.Code == CodeNotFound.Value
}

// IsBadRequest reports whether err is (or wraps) a domain error other
// than not-found, i.e. something the caller can fix.
func IsBadRequest(err error) bool {
	var de *DomainError
	return errors.As(err, &de) && de.Code != CodeNotFound.Value
}

// CodeOf extracts the catalog code from err, or "" when err carries none.
func CodeOf(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// InvalidValueError marks a programmer error: malformed internal state
// such as a misconfigured validator chain or an Optional fed a value it
// was told to reject. It must never be produced by user input alone.
type InvalidValueError struct {
	Value   any
	Message string
}

func (e *InvalidValueError) Error() string {
	msg := "invalid value"
	if e.Message != "" {
		msg = e.Message
	}
	return fmt.Sprintf("%s: %v", msg, e.Value)
}

// NewInvalidValue wraps a value and a diagnostic message.
func NewInvalidValue(value any, message string) *InvalidValueError {
	return &InvalidValueError{Value: value, Message: message}
}

// IsInvalidValue reports whether err is (or wraps) an *InvalidValueError.
func IsInvalidValue(err error) bool {
	var ive *InvalidValueError
	return errors.As(err, &ive)
}
