package user_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codewandler/userd-go/core/cqrs"
	"github.com/codewandler/userd-go/core/errs"
	"github.com/codewandler/userd-go/core/optional"
	"github.com/codewandler/userd-go/core/retry"
	"github.com/codewandler/userd-go/core/user"
)

// fakeRepo keeps snapshots in memory and can be told to conflict on
// update a number of times before succeeding.
type fakeRepo struct {
	mu            sync.Mutex
	users         map[string]user.Snapshot
	conflictsLeft int
	createErr     error

	findCalls   int
	createCalls int
	updateCalls int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{users: map[string]user.Snapshot{}}
}

func (r *fakeRepo) put(u *user.User) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[u.ID().String()] = u.Snapshot()
}

func (r *fakeRepo) CreateOne(_ context.Context, u *user.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.createCalls++
	if r.createErr != nil {
		return r.createErr
	}
	if _, ok := r.users[u.ID().String()]; ok {
		return errs.NewUserDuplicated()
	}
	r.users[u.ID().String()] = u.Snapshot()
	return nil
}

func (r *fakeRepo) UpdateOne(_ context.Context, u *user.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updateCalls++
	if r.conflictsLeft > 0 {
		r.conflictsLeft--
		return errs.ErrOptimisticLock
	}
	s := u.Snapshot()
	s.Version++
	r.users[u.ID().String()] = s
	return nil
}

func (r *fakeRepo) FindByID(_ context.Context, id user.ID) (*user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.findCalls++
	s, ok := r.users[id.String()]
	if !ok {
		return nil, nil
	}
	return user.Load(s), nil
}

// recordingDispatcher records events; async dispatches are recorded
// synchronously so tests need no waiting.
type recordingDispatcher struct {
	mu         sync.Mutex
	dispatched []cqrs.Event
	async      []cqrs.Event
	err        error
}

func (d *recordingDispatcher) Dispatch(_ context.Context, e cqrs.Event) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dispatched = append(d.dispatched, e)
	return d.err
}

func (d *recordingDispatcher) DispatchAsync(_ context.Context, e cqrs.Event) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.async = append(d.async, e)
}

var fastRetry = user.WithRetryPolicy(retry.Policy{MaxAttempts: 3, MinBackoff: time.Millisecond})

func seedUser(t *testing.T, repo *fakeRepo) user.ID {
	t.Helper()
	u, err := user.Create(user.NewID(), "John", "john@doe.io", "").Get()
	require.NoError(t, err)
	repo.put(u)
	return u.ID()
}

func TestCreateUserHandler(t *testing.T) {
	t.Run("persists new user", func(t *testing.T) {
		repo := newFakeRepo()
		dispatcher := &recordingDispatcher{}
		h := user.NewCreateUserHandler(repo, dispatcher)

		cmd, err := user.NewCreateUserCommand(user.NewID().String(), "John", "John@Doe.io", "").Get()
		require.NoError(t, err)
		require.NoError(t, h.Handle(context.Background(), cmd))

		require.Equal(t, 1, repo.createCalls)
		stored, err := repo.FindByID(context.Background(), cmd.ID())
		require.NoError(t, err)
		require.NotNil(t, stored)
		assert.Equal(t, "john@doe.io", stored.Email())
		assert.EqualValues(t, 0, stored.Version())
	})

	t.Run("duplicate propagates", func(t *testing.T) {
		repo := newFakeRepo()
		dispatcher := &recordingDispatcher{}
		h := user.NewCreateUserHandler(repo, dispatcher)

		id := seedUser(t, repo)
		cmd, err := user.NewCreateUserCommand(id.String(), "John", "john@doe.io", "").Get()
		require.NoError(t, err)

		err = h.Handle(context.Background(), cmd)
		requireCode(t, err, errs.CodeUserDuplicated)
	})
}

func TestUpdateUserHandler(t *testing.T) {
	unset := optional.Field[string]{}
	ctx := context.Background()

	updateName := func(t *testing.T, id user.ID, name string) user.UpdateUserCommand {
		t.Helper()
		cmd, err := user.NewUpdateUserCommand(id.String(), optional.Specified(name), unset, unset).Get()
		require.NoError(t, err)
		return cmd
	}

	t.Run("applies fields and dispatches async", func(t *testing.T) {
		repo := newFakeRepo()
		dispatcher := &recordingDispatcher{}
		h := user.NewUpdateUserHandler(repo, dispatcher, fastRetry)
		id := seedUser(t, repo)

		cmd, err := user.NewUpdateUserCommand(id.String(),
			optional.Specified("Jane"), optional.Specified("Jane@Doe.IO"), unset).Get()
		require.NoError(t, err)
		require.NoError(t, h.Handle(ctx, cmd))

		stored, _ := repo.FindByID(ctx, id)
		assert.Equal(t, "Jane", stored.Name())
		assert.Equal(t, "jane@doe.io", stored.Email())
		assert.EqualValues(t, 1, stored.Version())

		require.Len(t, dispatcher.async, 1)
		ev, ok := dispatcher.async[0].(user.UpdatedEvent)
		require.True(t, ok)
		assert.Equal(t, "Jane", ev.Name)
		assert.Empty(t, dispatcher.dispatched)
	})

	t.Run("clears picture on explicit null", func(t *testing.T) {
		repo := newFakeRepo()
		dispatcher := &recordingDispatcher{}
		h := user.NewUpdateUserHandler(repo, dispatcher, fastRetry)
		id := seedUser(t, repo)

		pic := "https://cdn.example.com/a.png"
		stored, _ := repo.FindByID(ctx, id)
		require.True(t, stored.UpdateProfilePictureURL(&pic).IsSuccess())
		repo.put(stored)

		cmd, err := user.NewUpdateUserCommand(id.String(), unset, unset, optional.Null[string]()).Get()
		require.NoError(t, err)
		require.NoError(t, h.Handle(ctx, cmd))

		stored, _ = repo.FindByID(ctx, id)
		assert.Nil(t, stored.ProfilePictureURL())
	})

	t.Run("no fields fails without touching the repo", func(t *testing.T) {
		repo := newFakeRepo()
		dispatcher := &recordingDispatcher{}
		h := user.NewUpdateUserHandler(repo, dispatcher, fastRetry)
		id := seedUser(t, repo)
		repo.findCalls = 0

		cmd, err := user.NewUpdateUserCommand(id.String(), unset, unset, unset).Get()
		require.NoError(t, err)

		requireCode(t, h.Handle(ctx, cmd), errs.CodeUserNoUpdateFields)
		assert.Zero(t, repo.findCalls)
		assert.Zero(t, repo.updateCalls)
	})

	t.Run("missing user", func(t *testing.T) {
		repo := newFakeRepo()
		h := user.NewUpdateUserHandler(repo, &recordingDispatcher{}, fastRetry)

		err := h.Handle(ctx, updateName(t, user.NewID(), "Jane"))
		require.True(t, errs.IsNotFound(err))
		assert.Equal(t, 1, repo.findCalls)
	})

	t.Run("deleted user", func(t *testing.T) {
		repo := newFakeRepo()
		h := user.NewUpdateUserHandler(repo, &recordingDispatcher{}, fastRetry)
		id := seedUser(t, repo)

		stored, _ := repo.FindByID(ctx, id)
		require.True(t, stored.MarkAsDeleted(time.Now().UTC()).IsSuccess())
		repo.put(stored)

		requireCode(t, h.Handle(ctx, updateName(t, id, "Jane")), errs.CodeUserDeleted)
	})

	t.Run("conflict retries with fresh loads", func(t *testing.T) {
		repo := newFakeRepo()
		dispatcher := &recordingDispatcher{}
		h := user.NewUpdateUserHandler(repo, dispatcher, fastRetry)
		id := seedUser(t, repo)
		repo.findCalls = 0
		repo.conflictsLeft = 2

		require.NoError(t, h.Handle(ctx, updateName(t, id, "Jane")))

		assert.Equal(t, 3, repo.findCalls)
		assert.Equal(t, 3, repo.updateCalls)
		require.Len(t, dispatcher.async, 1)
	})

	t.Run("conflict exhaustion propagates the lock error", func(t *testing.T) {
		repo := newFakeRepo()
		dispatcher := &recordingDispatcher{}
		h := user.NewUpdateUserHandler(repo, dispatcher, fastRetry)
		id := seedUser(t, repo)
		repo.findCalls = 0
		repo.conflictsLeft = 100

		err := h.Handle(ctx, updateName(t, id, "Jane"))
		require.ErrorIs(t, err, errs.ErrOptimisticLock)
		assert.Equal(t, 3, repo.findCalls)
		assert.Equal(t, 3, repo.updateCalls)
		assert.Empty(t, dispatcher.async)
	})
}

func TestDeleteUserHandler(t *testing.T) {
	ctx := context.Background()

	t.Run("deletes and dispatches synchronously", func(t *testing.T) {
		repo := newFakeRepo()
		dispatcher := &recordingDispatcher{}
		h := user.NewDeleteUserHandler(repo, dispatcher)
		id := seedUser(t, repo)

		cmd, err := user.NewDeleteUserCommand(id.String()).Get()
		require.NoError(t, err)
		require.NoError(t, h.Handle(ctx, cmd))

		stored, _ := repo.FindByID(ctx, id)
		assert.False(t, stored.IsActive())

		require.Len(t, dispatcher.dispatched, 1)
		_, ok := dispatcher.dispatched[0].(user.DeletedEvent)
		require.True(t, ok)
		assert.Empty(t, dispatcher.async)
	})

	t.Run("double delete", func(t *testing.T) {
		repo := newFakeRepo()
		h := user.NewDeleteUserHandler(repo, &recordingDispatcher{})
		id := seedUser(t, repo)

		cmd, err := user.NewDeleteUserCommand(id.String()).Get()
		require.NoError(t, err)
		require.NoError(t, h.Handle(ctx, cmd))
		requireCode(t, h.Handle(ctx, cmd), errs.CodeUserAlreadyDeleted)
	})

	t.Run("missing user", func(t *testing.T) {
		repo := newFakeRepo()
		h := user.NewDeleteUserHandler(repo, &recordingDispatcher{})

		cmd, err := user.NewDeleteUserCommand(user.NewID().String()).Get()
		require.NoError(t, err)
		require.True(t, errs.IsNotFound(h.Handle(ctx, cmd)))
	})

	t.Run("dispatch failure fails the command", func(t *testing.T) {
		repo := newFakeRepo()
		dispatcher := &recordingDispatcher{err: errors.New("broker down")}
		h := user.NewDeleteUserHandler(repo, dispatcher)
		id := seedUser(t, repo)

		cmd, err := user.NewDeleteUserCommand(id.String()).Get()
		require.NoError(t, err)
		require.Error(t, h.Handle(ctx, cmd))
	})
}

func TestGetUserByIDHandler(t *testing.T) {
	ctx := context.Background()

	t.Run("maps to response", func(t *testing.T) {
		repo := newFakeRepo()
		h := user.NewGetUserByIDHandler(repo)
		id := seedUser(t, repo)

		q, err := user.NewGetUserByIDQuery(id.String()).Get()
		require.NoError(t, err)

		resp, err := h.Handle(ctx, q)
		require.NoError(t, err)
		assert.Equal(t, id.String(), resp.ID)
		assert.Equal(t, "John", resp.Name)
		assert.Nil(t, resp.ProfilePictureURL)
		assert.Equal(t, time.Now().UTC().Format(time.DateOnly), resp.CreatedAt)
	})

	t.Run("missing user", func(t *testing.T) {
		repo := newFakeRepo()
		h := user.NewGetUserByIDHandler(repo)

		q, err := user.NewGetUserByIDQuery(user.NewID().String()).Get()
		require.NoError(t, err)

		_, err = h.Handle(ctx, q)
		require.True(t, errs.IsNotFound(err))
	})
}
