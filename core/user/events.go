package user

import "time"

// UpdatedEvent is an immutable snapshot of the user right after an
// update was persisted.
type UpdatedEvent struct {
	ID                string
	Name              string
	Email             string
	ProfilePictureURL *string
	UpdatedAt         time.Time
}

func (UpdatedEvent) EventName() string { return "user-updated" }

// DeletedEvent is raised when a user is soft-deleted.
type DeletedEvent struct {
	ID        string
	Name      string
	Email     string
	DeletedAt time.Time
}

func (DeletedEvent) EventName() string { return "user-deleted" }
