package user

import (
	"time"

	"github.com/codewandler/userd-go/core/result"
)

// GetUserByIDQuery asks for a single user. Construct via
// NewGetUserByIDQuery only.
type GetUserByIDQuery struct {
	id ID
}

func (GetUserByIDQuery) QueryName() string { return "get-user-by-id" }

func NewGetUserByIDQuery(id string) result.Result[GetUserByIDQuery] {
	return result.Map(ParseID(id), func(id ID) GetUserByIDQuery {
		return GetUserByIDQuery{id: id}
	})
}

func (q GetUserByIDQuery) ID() ID { return q.id }

// Response is the read-model answer for a user. Email is deliberately
// not exposed.
type Response struct {
	ID                string  `json:"id"`
	Name              string  `json:"name"`
	ProfilePictureURL *string `json:"profile_picture_url"`
	CreatedAt         string  `json:"created_at"`
}

// NewResponse maps an aggregate to its read model. CreatedAt is
// rendered as a calendar date.
func NewResponse(u *User) Response {
	return Response{
		ID:                u.ID().String(),
		Name:              u.Name(),
		ProfilePictureURL: u.ProfilePictureURL(),
		CreatedAt:         u.CreatedAt().Format(time.DateOnly),
	}
}
