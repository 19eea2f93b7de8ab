package nats

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codewandler/userd-go/core/cqrs"
	"github.com/codewandler/userd-go/core/errs"
	"github.com/codewandler/userd-go/core/user"
)

type fakeSink struct {
	dispatched []cqrs.Command
	err        error
}

func (f *fakeSink) Dispatch(_ context.Context, cmd cqrs.Command) error {
	f.dispatched = append(f.dispatched, cmd)
	return f.err
}

func TestStreamAndSubjectNaming(t *testing.T) {
	assert.Equal(t, "USERS", streamNameFor("users"))
	assert.Equal(t, "TEST_USER_CREATED", streamNameFor("test-user-created"))
	assert.Equal(t, "ACME_USERS_V1", streamNameFor("acme.users-v1"))
	assert.Equal(t, "users.user-updated", subjectFor("users", "user-updated"))
}

func TestEncodeUserUpdated(t *testing.T) {
	url := "https://cdn.example.com/a.png"
	data, err := encodeUserUpdated(user.UpdatedEvent{
		ID:                "11f191b7a8e3478ab1dcf861",
		Name:              "John Doe",
		Email:             "john@doe.com",
		ProfilePictureURL: &url,
		UpdatedAt:         time.Date(2020, 1, 2, 3, 4, 5, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"id": "11f191b7a8e3478ab1dcf861",
		"name": "John Doe",
		"email": "john@doe.com",
		"updated_at": "2020-01-02T03:04:05Z",
		"profile_picture_url": "https://cdn.example.com/a.png"
	}`, string(data))
}

func TestEncodeUserUpdated_NoPicture(t *testing.T) {
	data, err := encodeUserUpdated(user.UpdatedEvent{
		ID:        "11f191b7a8e3478ab1dcf861",
		Name:      "John Doe",
		Email:     "john@doe.com",
		UpdatedAt: time.Date(2020, 1, 2, 3, 4, 5, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.Contains(t, string(data), `"profile_picture_url":null`)
}

func TestEncodeUserDeleted(t *testing.T) {
	data, err := encodeUserDeleted(user.DeletedEvent{
		ID:        "11f191b7a8e3478ab1dcf861",
		Name:      "John Doe",
		Email:     "john@doe.com",
		DeletedAt: time.Date(2021, 6, 7, 8, 9, 10, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"id": "11f191b7a8e3478ab1dcf861",
		"name": "John Doe",
		"email": "john@doe.com",
		"deleted_at": "2021-06-07T08:09:10Z"
	}`, string(data))
}

func TestHandleUserCreated(t *testing.T) {
	sink := &fakeSink{}
	c := NewConsumer(nil, sink)

	err := c.handleUserCreated(t.Context(), []byte(`{
		"id": "11f191b7a8e3478ab1dcf861",
		"name": "John Doe",
		"email": "John@Doe.com",
		"created_at": "2020-01-02T03:04:05Z"
	}`))
	require.NoError(t, err)
	require.Len(t, sink.dispatched, 1)

	cmd, ok := sink.dispatched[0].(user.CreateUserCommand)
	require.True(t, ok)
	assert.Equal(t, "11f191b7a8e3478ab1dcf861", cmd.ID().String())
	assert.Equal(t, "john@doe.com", cmd.Email())
}

func TestHandleUserCreated_MissingCreatedAtDefaults(t *testing.T) {
	sink := &fakeSink{}
	c := NewConsumer(nil, sink)

	err := c.handleUserCreated(t.Context(), []byte(`{
		"id": "11f191b7a8e3478ab1dcf861",
		"name": "John Doe",
		"email": "john@doe.com"
	}`))
	require.NoError(t, err)
	require.Len(t, sink.dispatched, 1)
	cmd := sink.dispatched[0].(user.CreateUserCommand)
	assert.WithinDuration(t, time.Now(), cmd.CreatedAt(), time.Minute)
}

func TestHandleUserCreated_InvalidPayload(t *testing.T) {
	sink := &fakeSink{}
	c := NewConsumer(nil, sink)

	err := c.handleUserCreated(t.Context(), []byte(`{"id": "nope"}`))
	require.Error(t, err)
	assert.Equal(t, errs.CodeUserIDInvalid.Value, errs.CodeOf(err))
	assert.Empty(t, sink.dispatched)
}

func TestHandleUserCreated_MalformedJSON(t *testing.T) {
	c := NewConsumer(nil, &fakeSink{})
	err := c.handleUserCreated(t.Context(), []byte(`{`))
	require.Error(t, err)
}

func TestHandleUserCreated_DuplicatePropagates(t *testing.T) {
	sink := &fakeSink{err: errs.NewUserDuplicated()}
	c := NewConsumer(nil, sink)

	err := c.handleUserCreated(t.Context(), []byte(`{
		"id": "11f191b7a8e3478ab1dcf861",
		"name": "John Doe",
		"email": "john@doe.com"
	}`))
	require.Error(t, err)
	assert.Equal(t, errs.CodeUserDuplicated.Value, errs.CodeOf(err))
}

func TestHandleUserDeleted(t *testing.T) {
	sink := &fakeSink{}
	c := NewConsumer(nil, sink)

	err := c.handleUserDeleted(t.Context(), []byte(`{"id": "11f191b7a8e3478ab1dcf861"}`))
	require.NoError(t, err)
	require.Len(t, sink.dispatched, 1)

	cmd, ok := sink.dispatched[0].(user.DeleteUserCommand)
	require.True(t, ok)
	assert.Equal(t, "11f191b7a8e3478ab1dcf861", cmd.ID().String())
}

func TestHandleUserDeleted_EmptyID(t *testing.T) {
	sink := &fakeSink{}
	c := NewConsumer(nil, sink)

	err := c.handleUserDeleted(t.Context(), []byte(`{}`))
	require.Error(t, err)
	assert.Equal(t, errs.CodeUserIDEmpty.Value, errs.CodeOf(err))
	assert.Empty(t, sink.dispatched)
}
