package user

import (
	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/codewandler/userd-go/core/errs"
	"github.com/codewandler/userd-go/core/result"
	"github.com/codewandler/userd-go/core/validate"
)

const idAlphabet = "0123456789abcdef"

// ID identifies a user: 24 lowercase hex characters, the document
// store's native object id shape.
type ID struct {
	value string
}

// NewID generates a fresh random ID.
func NewID() ID {
	return ID{value: gonanoid.MustGenerate(idAlphabet, 24)}
}

// LoadID wraps a value already known to be valid, e.g. read back from
// the store. External input goes through ParseID.
func LoadID(value string) ID {
	return ID{value: value}
}

// ParseID validates external input into an ID.
func ParseID(value string) result.Result[ID] {
	var v any
	if value != "" {
		v = value
	}
	r := validate.As[string](validate.Of(v).
		Required(validate.Code(errs.CodeUserIDEmpty)).
		ObjectID(validate.Code(errs.CodeUserIDInvalid)))
	return result.Map(r, func(s string) ID { return ID{value: s} })
}

func (id ID) String() string { return id.value }

func (id ID) IsZero() bool { return id.value == "" }

func (id ID) Equals(other ID) bool { return id.value == other.value }
