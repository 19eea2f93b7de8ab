// Package cqrs provides name-keyed dispatchers for commands, queries
// and domain events.
//
// Handlers are registered explicitly at wiring time. Commands and
// queries have exactly one handler each; events fan out to any number
// of subscribers. Dispatching a message nobody registered for is an
// error, as is registering a second handler for the same command or
// query.
package cqrs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

var (
	ErrNoHandler        = errors.New("no handler registered")
	ErrDuplicateHandler = errors.New("handler already registered")
)

// Command is a state-changing request. CommandName must be constant
// for the type and callable on the zero value.
type Command interface {
	CommandName() string
}

// Query is a read request. QueryName must be constant for the type and
// callable on the zero value.
type Query interface {
	QueryName() string
}

// Event is a domain fact. EventName must be constant for the type and
// callable on the zero value.
type Event interface {
	EventName() string
}

// === commands ===

// CommandDispatcher routes a command to its single registered handler.
type CommandDispatcher struct {
	mu       sync.RWMutex
	handlers map[string]func(ctx context.Context, cmd Command) error
}

func NewCommandDispatcher() *CommandDispatcher {
	return &CommandDispatcher{handlers: map[string]func(context.Context, Command) error{}}
}

// RegisterCommand binds the handler for C. Registering C twice fails.
func RegisterCommand[C Command](d *CommandDispatcher, handler func(ctx context.Context, cmd C) error) error {
	var zero C
	name := zero.CommandName()

	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.handlers[name]; ok {
		return fmt.Errorf("command %q: %w", name, ErrDuplicateHandler)
	}
	d.handlers[name] = func(ctx context.Context, cmd Command) error {
		typed, ok := cmd.(C)
		if !ok {
			return fmt.Errorf("command %q: unexpected type %T", name, cmd)
		}
		return handler(ctx, typed)
	}
	return nil
}

// MustRegisterCommand is RegisterCommand that panics, for wiring code.
func MustRegisterCommand[C Command](d *CommandDispatcher, handler func(ctx context.Context, cmd C) error) {
	if err := RegisterCommand(d, handler); err != nil {
		panic(err)
	}
}

func (d *CommandDispatcher) Dispatch(ctx context.Context, cmd Command) error {
	d.mu.RLock()
	handler, ok := d.handlers[cmd.CommandName()]
	d.mu.RUnlock()
	if !ok {
		return fmt.Errorf("command %q: %w", cmd.CommandName(), ErrNoHandler)
	}
	return handler(ctx, cmd)
}

// === queries ===

// QueryDispatcher routes a query to its single registered handler.
type QueryDispatcher struct {
	mu       sync.RWMutex
	handlers map[string]func(ctx context.Context, q Query) (any, error)
}

func NewQueryDispatcher() *QueryDispatcher {
	return &QueryDispatcher{handlers: map[string]func(context.Context, Query) (any, error){}}
}

// RegisterQuery binds the handler for Q, returning R.
func RegisterQuery[Q Query, R any](d *QueryDispatcher, handler func(ctx context.Context, q Q) (R, error)) error {
	var zero Q
	name := zero.QueryName()

	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.handlers[name]; ok {
		return fmt.Errorf("query %q: %w", name, ErrDuplicateHandler)
	}
	d.handlers[name] = func(ctx context.Context, q Query) (any, error) {
		typed, ok := q.(Q)
		if !ok {
			return nil, fmt.Errorf("query %q: unexpected type %T", name, q)
		}
		return handler(ctx, typed)
	}
	return nil
}

// MustRegisterQuery is RegisterQuery that panics, for wiring code.
func MustRegisterQuery[Q Query, R any](d *QueryDispatcher, handler func(ctx context.Context, q Q) (R, error)) {
	if err := RegisterQuery(d, handler); err != nil {
		panic(err)
	}
}

func (d *QueryDispatcher) Dispatch(ctx context.Context, q Query) (any, error) {
	d.mu.RLock()
	handler, ok := d.handlers[q.QueryName()]
	d.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("query %q: %w", q.QueryName(), ErrNoHandler)
	}
	return handler(ctx, q)
}

// DispatchQuery dispatches and narrows the answer to R.
func DispatchQuery[R any](ctx context.Context, d *QueryDispatcher, q Query) (R, error) {
	var zero R
	answer, err := d.Dispatch(ctx, q)
	if err != nil {
		return zero, err
	}
	typed, ok := answer.(R)
	if !ok {
		return zero, fmt.Errorf("query %q: unexpected answer type %T", q.QueryName(), answer)
	}
	return typed, nil
}

// === events ===

// EventDispatcher fans an event out to all subscribers for its name.
type EventDispatcher struct {
	mu       sync.RWMutex
	handlers map[string][]func(ctx context.Context, e Event) error
	log      *slog.Logger
	wg       sync.WaitGroup
}

// EventDispatcherOption configures an EventDispatcher.
type EventDispatcherOption func(*EventDispatcher)

// WithLogger sets the logger used to report async handler failures.
func WithLogger(log *slog.Logger) EventDispatcherOption {
	return func(d *EventDispatcher) { d.log = log }
}

func NewEventDispatcher(opts ...EventDispatcherOption) *EventDispatcher {
	d := &EventDispatcher{
		handlers: map[string][]func(context.Context, Event) error{},
		log:      slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// SubscribeEvent adds a subscriber for E. Multiple subscribers per
// event are allowed and run in registration order.
func SubscribeEvent[E Event](d *EventDispatcher, handler func(ctx context.Context, e E) error) {
	var zero E
	name := zero.EventName()

	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[name] = append(d.handlers[name], func(ctx context.Context, e Event) error {
		typed, ok := e.(E)
		if !ok {
			return fmt.Errorf("event %q: unexpected type %T", name, e)
		}
		return handler(ctx, typed)
	})
}

// Dispatch runs all subscribers synchronously and joins their errors.
// An event without subscribers is not an error.
func (d *EventDispatcher) Dispatch(ctx context.Context, e Event) error {
	d.mu.RLock()
	handlers := d.handlers[e.EventName()]
	d.mu.RUnlock()

	var errs []error
	for _, handler := range handlers {
		if err := handler(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// DispatchAsync runs subscribers in the background. Failures are
// logged, not returned; the caller has already moved on.
func (d *EventDispatcher) DispatchAsync(ctx context.Context, e Event) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		if err := d.Dispatch(context.WithoutCancel(ctx), e); err != nil {
			d.log.ErrorContext(ctx, "async event handling failed",
				slog.String("event", e.EventName()),
				slog.String("error", err.Error()),
			)
		}
	}()
}

// Wait blocks until all async dispatches have finished. Used on
// shutdown and in tests.
func (d *EventDispatcher) Wait() {
	d.wg.Wait()
}
