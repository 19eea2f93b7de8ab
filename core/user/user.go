// Package user holds the user aggregate, its commands, queries,
// events and the handlers operating on them. State changes flow
// through validating factories and mutation methods returning results;
// persistence talks to the aggregate through Snapshot/Load only.
package user

import (
	"strings"
	"time"

	"github.com/codewandler/userd-go/core/cqrs"
	"github.com/codewandler/userd-go/core/errs"
	"github.com/codewandler/userd-go/core/result"
	"github.com/codewandler/userd-go/core/validate"
)

const (
	minNameLength = 1
	maxNameLength = 20
)

// User is the aggregate root. Construct via Create or Load; the zero
// value is not a valid user.
type User struct {
	cqrs.AggregateBase

	id                ID
	name              string
	email             string
	profilePictureURL *string
	createdAt         time.Time
	updatedAt         *time.Time
	deletedAt         *time.Time

	// version is owned by persistence: set on load, bumped by the
	// store on every successful update.
	version int64
}

// Snapshot is the persistence-facing view of a user. Repositories map
// it to their document format and rebuild aggregates via Load.
type Snapshot struct {
	ID                ID
	Name              string
	Email             string
	ProfilePictureURL *string
	CreatedAt         time.Time
	UpdatedAt         *time.Time
	DeletedAt         *time.Time
	Version           int64
}

// Create validates all parts and builds a new, active user. createdAt
// may be empty, which defaults it to now.
func Create(id ID, name, email, createdAt string) result.Result[*User] {
	nameRes := ValidateName(name)
	emailRes := ValidateEmail(email)
	createdRes := ValidateCreatedAt(createdAt)
	if err := result.FirstFailure(nameRes, emailRes, createdRes); err != nil {
		return result.Fail[*User](err)
	}
	return result.Ok(&User{
		id:        id,
		name:      nameRes.MustGet(),
		email:     emailRes.MustGet(),
		createdAt: createdRes.MustGet(),
	})
}

// Load rebuilds a user from stored state without validation.
func Load(s Snapshot) *User {
	return &User{
		id:                s.ID,
		name:              s.Name,
		email:             s.Email,
		profilePictureURL: s.ProfilePictureURL,
		createdAt:         s.CreatedAt,
		updatedAt:         s.UpdatedAt,
		deletedAt:         s.DeletedAt,
		version:           s.Version,
	}
}

// Snapshot captures the current state for persistence.
func (u *User) Snapshot() Snapshot {
	return Snapshot{
		ID:                u.id,
		Name:              u.name,
		Email:             u.email,
		ProfilePictureURL: u.profilePictureURL,
		CreatedAt:         u.createdAt,
		UpdatedAt:         u.updatedAt,
		DeletedAt:         u.deletedAt,
		Version:           u.version,
	}
}

func (u *User) ID() ID               { return u.id }
func (u *User) Name() string         { return u.name }
func (u *User) Email() string        { return u.email }
func (u *User) Version() int64       { return u.version }
func (u *User) CreatedAt() time.Time { return u.createdAt }

func (u *User) ProfilePictureURL() *string { return u.profilePictureURL }

func (u *User) UpdatedAt() *time.Time { return u.updatedAt }
func (u *User) DeletedAt() *time.Time { return u.deletedAt }

// IsActive reports whether the user has not been soft-deleted.
func (u *User) IsActive() bool { return u.deletedAt == nil }

// UpdateName validates and applies a new name, stamping UpdatedAt.
func (u *User) UpdateName(name string) result.Result[result.Void] {
	r := ValidateName(name)
	valid, err := r.Get()
	if err != nil {
		return result.FailVoid(err)
	}
	u.name = valid
	u.touch()
	return result.OK()
}

// UpdateEmail validates and applies a new email, stamping UpdatedAt.
func (u *User) UpdateEmail(email string) result.Result[result.Void] {
	r := ValidateEmail(email)
	valid, err := r.Get()
	if err != nil {
		return result.FailVoid(err)
	}
	u.email = valid
	u.touch()
	return result.OK()
}

// UpdateProfilePictureURL validates and applies a new picture URL. Nil
// clears it.
func (u *User) UpdateProfilePictureURL(url *string) result.Result[result.Void] {
	r := ValidateProfilePictureURL(url)
	valid, err := r.Get()
	if err != nil {
		return result.FailVoid(err)
	}
	u.profilePictureURL = valid
	u.touch()
	return result.OK()
}

// RaiseUpdated records an UpdatedEvent snapshot of the current state.
// Called once per update command, after all field mutations succeeded.
func (u *User) RaiseUpdated() {
	u.Raise(UpdatedEvent{
		ID:                u.id.String(),
		Name:              u.name,
		Email:             u.email,
		ProfilePictureURL: u.profilePictureURL,
		UpdatedAt:         u.stampedUpdatedAt(),
	})
}

// MarkAsDeleted soft-deletes the user and raises a DeletedEvent.
// Deleting twice fails with USER_ALREADY_DELETED.
func (u *User) MarkAsDeleted(now time.Time) result.Result[result.Void] {
	if u.deletedAt != nil {
		return result.FailVoid(errs.NewBadRequest(errs.CodeUserAlreadyDeleted))
	}
	u.deletedAt = &now
	u.Raise(DeletedEvent{
		ID:        u.id.String(),
		Name:      u.name,
		Email:     u.email,
		DeletedAt: now,
	})
	return result.OK()
}

func (u *User) touch() {
	now := time.Now().UTC()
	u.updatedAt = &now
}

func (u *User) stampedUpdatedAt() time.Time {
	if u.updatedAt != nil {
		return *u.updatedAt
	}
	return time.Now().UTC()
}

// === field validators ===

// ValidateName accepts 1 to 20 characters of non-blank text.
func ValidateName(name string) result.Result[string] {
	return validate.As[string](validate.Of(nullable(name)).
		Required(validate.Code(errs.CodeUserNameEmpty)).
		MinLength(minNameLength, validate.Code(errs.CodeUserNameTooShort)).
		MaxLength(maxNameLength, validate.Code(errs.CodeUserNameTooLong)))
}

// ValidateEmail accepts a well-formed address and lowercases it.
func ValidateEmail(email string) result.Result[string] {
	return validate.As[string](validate.Of(nullable(email)).
		Required(validate.Code(errs.CodeUserEmailEmpty)).
		Email(validate.Code(errs.CodeUserEmailInvalid)).
		MapIfPresent(func(v any) any { return strings.ToLower(v.(string)) }))
}

// ValidateCreatedAt parses a strict date-time; empty defaults to now.
func ValidateCreatedAt(createdAt string) result.Result[time.Time] {
	return validate.As[time.Time](validate.Of(nullable(createdAt)).
		MapIfAbsent(func() any { return time.Now().UTC() }).
		Datetime(validate.Code(errs.CodeUserCreatedAtInvalid)))
}

// ValidateProfilePictureURL accepts nil (no picture) or an absolute URL.
func ValidateProfilePictureURL(url *string) result.Result[*string] {
	if url == nil {
		return result.Ok[*string](nil)
	}
	r := validate.As[string](validate.Of(*url).
		Required(validate.Code(errs.CodeUserProfilePictureURLInvalid)).
		URL(validate.Code(errs.CodeUserProfilePictureURLInvalid)))
	return result.Map(r, func(s string) *string { return &s })
}

// nullable maps the empty string to the absent state so Required is
// the check that rejects it.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
