package user

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/codewandler/userd-go/core/cqrs"
	"github.com/codewandler/userd-go/core/errs"
	"github.com/codewandler/userd-go/core/result"
	"github.com/codewandler/userd-go/core/retry"
)

const (
	updateMaxAttempts = 3
	updateMinBackoff  = time.Second
)

// HandlerOption configures a command or query handler.
type HandlerOption func(*handlerConfig)

type handlerConfig struct {
	log     *slog.Logger
	metrics Metrics
	policy  *retry.Policy
}

func newHandlerConfig(component string, opts []HandlerOption) handlerConfig {
	cfg := handlerConfig{
		log:     slog.Default().With(slog.String("component", component)),
		metrics: NopMetrics(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// WithLogger sets the handler's logger.
func WithLogger(log *slog.Logger) HandlerOption {
	return func(c *handlerConfig) { c.log = log }
}

// WithMetrics sets the handler's metrics sink.
func WithMetrics(m Metrics) HandlerOption {
	return func(c *handlerConfig) { c.metrics = m }
}

// WithRetryPolicy overrides the update handler's conflict retry
// policy. Ignored by the other handlers.
func WithRetryPolicy(p retry.Policy) HandlerOption {
	return func(c *handlerConfig) { c.policy = &p }
}

// CreateUserHandler persists a new user and publishes its events.
type CreateUserHandler struct {
	handlerConfig
	repo       Repository
	dispatcher EventDispatcher
}

func NewCreateUserHandler(repo Repository, dispatcher EventDispatcher, opts ...HandlerOption) *CreateUserHandler {
	return &CreateUserHandler{
		handlerConfig: newHandlerConfig("create-user-handler", opts),
		repo:          repo,
		dispatcher:    dispatcher,
	}
}

func (h *CreateUserHandler) Handle(ctx context.Context, cmd CreateUserCommand) error {
	defer h.metrics.CommandDuration(cmd.CommandName()).ObserveDuration()
	err := h.handle(ctx, cmd)
	h.metrics.CommandProcessed(cmd.CommandName(), err == nil)
	return err
}

func (h *CreateUserHandler) handle(ctx context.Context, cmd CreateUserCommand) error {
	u, err := Create(cmd.ID(), cmd.Name(), cmd.Email(), cmd.CreatedAt().Format(time.RFC3339Nano)).Get()
	if err != nil {
		return err
	}
	if err := h.repo.CreateOne(ctx, u); err != nil {
		return err
	}
	h.log.InfoContext(ctx, "user created", slog.String("user_id", u.ID().String()))
	dispatchAsync(ctx, h.dispatcher, u)
	return nil
}

// UpdateUserHandler applies a partial update under optimistic locking.
//
// Each attempt works on a fresh load: read, mutate, persist with a
// version check. A version conflict retries the whole attempt up to
// updateMaxAttempts times; any other failure, including the user being
// missing or deleted, aborts immediately. Events are dispatched only
// after the persist succeeded.
type UpdateUserHandler struct {
	handlerConfig
	repo       Repository
	dispatcher EventDispatcher
	policy     retry.Policy
}

func NewUpdateUserHandler(repo Repository, dispatcher EventDispatcher, opts ...HandlerOption) *UpdateUserHandler {
	cfg := newHandlerConfig("update-user-handler", opts)
	policy := retry.Policy{MaxAttempts: updateMaxAttempts, MinBackoff: updateMinBackoff}
	if cfg.policy != nil {
		policy = *cfg.policy
	}
	return &UpdateUserHandler{
		handlerConfig: cfg,
		repo:          repo,
		dispatcher:    dispatcher,
		policy:        policy,
	}
}

func (h *UpdateUserHandler) Handle(ctx context.Context, cmd UpdateUserCommand) error {
	defer h.metrics.CommandDuration(cmd.CommandName()).ObserveDuration()
	err := h.handle(ctx, cmd)
	h.metrics.CommandProcessed(cmd.CommandName(), err == nil)
	return err
}

func (h *UpdateUserHandler) handle(ctx context.Context, cmd UpdateUserCommand) error {
	if !cmd.HasUpdates() {
		return errs.NewBadRequest(errs.CodeUserNoUpdateFields)
	}

	var updated *User
	err := retry.On(ctx, h.policy, isLockConflict, func(ctx context.Context, attempt int) error {
		u, err := h.repo.FindByID(ctx, cmd.UserID())
		if err != nil {
			return err
		}
		if u == nil {
			return errs.NewNotFound("User", cmd.UserID().String())
		}

		var updates []result.Result[result.Void]
		if name, ok := cmd.Name().Get(); ok {
			updates = append(updates, u.UpdateName(name))
		}
		if email, ok := cmd.Email().Get(); ok {
			updates = append(updates, u.UpdateEmail(email))
		}
		if pic := cmd.ProfilePictureURL(); pic.IsSpecified() {
			if pic.IsNull() {
				updates = append(updates, u.UpdateProfilePictureURL(nil))
			} else {
				v, _ := pic.Get()
				updates = append(updates, u.UpdateProfilePictureURL(&v))
			}
		}

		err = result.Combine(updates).
			Validate(
				func([]result.Void) bool { return u.IsActive() },
				func([]result.Void) error { return errs.NewBadRequest(errs.CodeUserDeleted) },
			).
			Failure()
		if err != nil {
			return err
		}

		u.RaiseUpdated()
		if err := h.repo.UpdateOne(ctx, u); err != nil {
			if isLockConflict(err) {
				h.metrics.OptimisticLockConflict()
				h.log.DebugContext(ctx, "version conflict on update",
					slog.String("user_id", u.ID().String()),
					slog.Int("attempt", attempt),
				)
			}
			return err
		}
		updated = u
		return nil
	}, retry.WithLogger(h.log))
	if err != nil {
		if isLockConflict(err) {
			h.metrics.UpdateRetryExhausted()
		}
		return err
	}

	h.log.InfoContext(ctx, "user updated", slog.String("user_id", updated.ID().String()))
	dispatchAsync(ctx, h.dispatcher, updated)
	return nil
}

// DeleteUserHandler soft-deletes a user and dispatches its events
// synchronously, so a failing side effect fails the command.
type DeleteUserHandler struct {
	handlerConfig
	repo       Repository
	dispatcher EventDispatcher
	now        func() time.Time
}

func NewDeleteUserHandler(repo Repository, dispatcher EventDispatcher, opts ...HandlerOption) *DeleteUserHandler {
	return &DeleteUserHandler{
		handlerConfig: newHandlerConfig("delete-user-handler", opts),
		repo:          repo,
		dispatcher:    dispatcher,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

func (h *DeleteUserHandler) Handle(ctx context.Context, cmd DeleteUserCommand) error {
	defer h.metrics.CommandDuration(cmd.CommandName()).ObserveDuration()
	err := h.handle(ctx, cmd)
	h.metrics.CommandProcessed(cmd.CommandName(), err == nil)
	return err
}

func (h *DeleteUserHandler) handle(ctx context.Context, cmd DeleteUserCommand) error {
	u, err := h.repo.FindByID(ctx, cmd.ID())
	if err != nil {
		return err
	}
	if u == nil {
		return errs.NewNotFound("User", cmd.ID().String())
	}
	if err := u.MarkAsDeleted(h.now()).Failure(); err != nil {
		return err
	}
	if err := h.repo.UpdateOne(ctx, u); err != nil {
		return err
	}
	h.log.InfoContext(ctx, "user deleted", slog.String("user_id", u.ID().String()))

	events := u.Uncommitted()
	u.ClearUncommitted()
	for _, e := range events {
		if err := h.dispatcher.Dispatch(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

// GetUserByIDHandler answers the read query straight from the store.
type GetUserByIDHandler struct {
	handlerConfig
	repo Repository
}

func NewGetUserByIDHandler(repo Repository, opts ...HandlerOption) *GetUserByIDHandler {
	return &GetUserByIDHandler{
		handlerConfig: newHandlerConfig("get-user-by-id-handler", opts),
		repo:          repo,
	}
}

func (h *GetUserByIDHandler) Handle(ctx context.Context, q GetUserByIDQuery) (Response, error) {
	u, err := h.repo.FindByID(ctx, q.ID())
	if err != nil {
		return Response{}, err
	}
	if u == nil {
		return Response{}, errs.NewNotFound("User", q.ID().String())
	}
	return NewResponse(u), nil
}

func isLockConflict(err error) bool {
	return errors.Is(err, errs.ErrOptimisticLock)
}

func dispatchAsync(ctx context.Context, dispatcher EventDispatcher, u *User) {
	events := u.Uncommitted()
	u.ClearUncommitted()
	for _, e := range events {
		dispatcher.DispatchAsync(ctx, e)
	}
}

var _ cqrs.Command = CreateUserCommand{}
var _ cqrs.Command = UpdateUserCommand{}
var _ cqrs.Command = DeleteUserCommand{}
var _ cqrs.Query = GetUserByIDQuery{}
