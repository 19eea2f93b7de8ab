package user

import (
	"context"

	"github.com/codewandler/userd-go/core/cqrs"
	"github.com/codewandler/userd-go/core/metrics"
)

// Repository persists user aggregates.
type Repository interface {
	// CreateOne inserts a new user at version 0. A user with the same
	// id or email already present fails with USER_DUPLICATED.
	CreateOne(ctx context.Context, u *User) error

	// UpdateOne persists the aggregate's state, conditional on the
	// stored version matching the one the aggregate was loaded with.
	// A mismatch fails with errs.ErrOptimisticLock.
	UpdateOne(ctx context.Context, u *User) error

	// FindByID returns (nil, nil) when no such user exists.
	FindByID(ctx context.Context, id ID) (*User, error)
}

// EventDispatcher fans domain events out to their subscribers.
type EventDispatcher interface {
	Dispatch(ctx context.Context, e cqrs.Event) error
	DispatchAsync(ctx context.Context, e cqrs.Event)
}

// Metrics instruments command handling. Implementations live in
// adapters; NopMetrics is the default.
type Metrics interface {
	CommandDuration(command string) metrics.Timer
	CommandProcessed(command string, success bool)
	OptimisticLockConflict()
	UpdateRetryExhausted()
}

type nopMetrics struct{}

func (nopMetrics) CommandDuration(string) metrics.Timer { return metrics.NopTimer() }
func (nopMetrics) CommandProcessed(string, bool)        {}
func (nopMetrics) OptimisticLockConflict()              {}
func (nopMetrics) UpdateRetryExhausted()                {}

// NopMetrics returns a Metrics that records nothing.
func NopMetrics() Metrics { return nopMetrics{} }
