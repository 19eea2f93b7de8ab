package user

import (
	"time"

	"github.com/codewandler/userd-go/core/optional"
	"github.com/codewandler/userd-go/core/result"
)

// CreateUserCommand requests creation of a user with a known id.
// Construct via NewCreateUserCommand only.
type CreateUserCommand struct {
	id        ID
	name      string
	email     string
	createdAt time.Time
}

func (CreateUserCommand) CommandName() string { return "create-user" }

// NewCreateUserCommand validates all parts; createdAt may be empty.
func NewCreateUserCommand(id, name, email, createdAt string) result.Result[CreateUserCommand] {
	idRes := ParseID(id)
	nameRes := ValidateName(name)
	emailRes := ValidateEmail(email)
	createdRes := ValidateCreatedAt(createdAt)
	if err := result.FirstFailure(idRes, nameRes, emailRes, createdRes); err != nil {
		return result.Fail[CreateUserCommand](err)
	}
	return result.Ok(CreateUserCommand{
		id:        idRes.MustGet(),
		name:      nameRes.MustGet(),
		email:     emailRes.MustGet(),
		createdAt: createdRes.MustGet(),
	})
}

func (c CreateUserCommand) ID() ID               { return c.id }
func (c CreateUserCommand) Name() string         { return c.name }
func (c CreateUserCommand) Email() string        { return c.email }
func (c CreateUserCommand) CreatedAt() time.Time { return c.createdAt }

// UpdateUserCommand requests a partial update. Each field is
// tri-state: unspecified fields are left unchanged, the picture can
// additionally be cleared with an explicit null. Construct via
// NewUpdateUserCommand only.
type UpdateUserCommand struct {
	userID  ID
	name    optional.Optional[string]
	email   optional.Optional[string]
	picture optional.Field[string]
}

func (UpdateUserCommand) CommandName() string { return "update-user" }

// NewUpdateUserCommand validates the id plus every field that was
// specified. A specified-but-null name or email fails its EMPTY code;
// a null picture clears it.
func NewUpdateUserCommand(userID string, name, email, profilePictureURL optional.Field[string]) result.Result[UpdateUserCommand] {
	idRes := ParseID(userID)
	failers := []result.Failer{idRes}

	var nameRes, emailRes result.Result[string]
	if name.IsSpecified() {
		v, _ := name.Get()
		nameRes = ValidateName(v)
		failers = append(failers, nameRes)
	}
	if email.IsSpecified() {
		v, _ := email.Get()
		emailRes = ValidateEmail(v)
		failers = append(failers, emailRes)
	}

	var pictureRes result.Result[*string]
	if profilePictureURL.IsSpecified() && !profilePictureURL.IsNull() {
		v, _ := profilePictureURL.Get()
		pictureRes = ValidateProfilePictureURL(&v)
		failers = append(failers, pictureRes)
	}

	if err := result.FirstFailure(failers...); err != nil {
		return result.Fail[UpdateUserCommand](err)
	}

	cmd := UpdateUserCommand{userID: idRes.MustGet()}
	if name.IsSpecified() {
		cmd.name = optional.Of(nameRes.MustGet())
	}
	if email.IsSpecified() {
		cmd.email = optional.Of(emailRes.MustGet())
	}
	switch {
	case profilePictureURL.IsSpecified() && profilePictureURL.IsNull():
		cmd.picture = optional.Null[string]()
	case profilePictureURL.IsSpecified():
		cmd.picture = optional.Specified(*pictureRes.MustGet())
	}
	return result.Ok(cmd)
}

func (c UpdateUserCommand) UserID() ID                                { return c.userID }
func (c UpdateUserCommand) Name() optional.Optional[string]           { return c.name }
func (c UpdateUserCommand) Email() optional.Optional[string]          { return c.email }
func (c UpdateUserCommand) ProfilePictureURL() optional.Field[string] { return c.picture }

// HasUpdates reports whether at least one field was specified.
func (c UpdateUserCommand) HasUpdates() bool {
	return c.name.IsPresent() || c.email.IsPresent() || c.picture.IsSpecified()
}

// DeleteUserCommand requests a soft delete. Construct via
// NewDeleteUserCommand only.
type DeleteUserCommand struct {
	id ID
}

func (DeleteUserCommand) CommandName() string { return "delete-user" }

func NewDeleteUserCommand(id string) result.Result[DeleteUserCommand] {
	return result.Map(ParseID(id), func(id ID) DeleteUserCommand {
		return DeleteUserCommand{id: id}
	})
}

func (c DeleteUserCommand) ID() ID { return c.id }
