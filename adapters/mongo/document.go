package mongo

import (
	"time"

	"github.com/codewandler/userd-go/core/user"
)

// userDocument is the stored shape of a user. The version field is
// written exclusively through $inc on update, never from client state.
type userDocument struct {
	ID                string     `bson:"_id"`
	Name              string     `bson:"name"`
	Email             string     `bson:"email"`
	ProfilePictureURL *string    `bson:"profile_picture_url,omitempty"`
	CreatedAt         time.Time  `bson:"created_at"`
	UpdatedAt         *time.Time `bson:"updated_at,omitempty"`
	DeletedAt         *time.Time `bson:"deleted_at,omitempty"`
	Version           int64      `bson:"version"`
}

func newUserDocument(s user.Snapshot) userDocument {
	return userDocument{
		ID:                s.ID.String(),
		Name:              s.Name,
		Email:             s.Email,
		ProfilePictureURL: s.ProfilePictureURL,
		CreatedAt:         s.CreatedAt,
		UpdatedAt:         s.UpdatedAt,
		DeletedAt:         s.DeletedAt,
		Version:           s.Version,
	}
}

func (d userDocument) snapshot() user.Snapshot {
	return user.Snapshot{
		ID:                user.LoadID(d.ID),
		Name:              d.Name,
		Email:             d.Email,
		ProfilePictureURL: d.ProfilePictureURL,
		CreatedAt:         d.CreatedAt,
		UpdatedAt:         d.UpdatedAt,
		DeletedAt:         d.DeletedAt,
		Version:           d.Version,
	}
}
