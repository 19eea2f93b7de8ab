package cqrs

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pingCommand struct{ payload string }

func (pingCommand) CommandName() string { return "ping" }

type countQuery struct{ limit int }

func (countQuery) QueryName() string { return "count" }

type thingHappened struct{ id string }

func (thingHappened) EventName() string { return "thing-happened" }

func TestCommandDispatcher(t *testing.T) {
	t.Run("routes to registered handler", func(t *testing.T) {
		d := NewCommandDispatcher()
		var got string
		require.NoError(t, RegisterCommand(d, func(_ context.Context, cmd pingCommand) error {
			got = cmd.payload
			return nil
		}))

		require.NoError(t, d.Dispatch(context.Background(), pingCommand{payload: "hello"}))
		assert.Equal(t, "hello", got)
	})

	t.Run("missing handler", func(t *testing.T) {
		d := NewCommandDispatcher()
		err := d.Dispatch(context.Background(), pingCommand{})
		require.ErrorIs(t, err, ErrNoHandler)
	})

	t.Run("duplicate registration", func(t *testing.T) {
		d := NewCommandDispatcher()
		handler := func(context.Context, pingCommand) error { return nil }
		require.NoError(t, RegisterCommand(d, handler))
		require.ErrorIs(t, RegisterCommand(d, handler), ErrDuplicateHandler)
	})

	t.Run("handler error propagates", func(t *testing.T) {
		d := NewCommandDispatcher()
		boom := errors.New("boom")
		MustRegisterCommand(d, func(context.Context, pingCommand) error { return boom })
		require.ErrorIs(t, d.Dispatch(context.Background(), pingCommand{}), boom)
	})
}

func TestQueryDispatcher(t *testing.T) {
	t.Run("typed answer", func(t *testing.T) {
		d := NewQueryDispatcher()
		MustRegisterQuery(d, func(_ context.Context, q countQuery) (int, error) {
			return q.limit * 2, nil
		})

		got, err := DispatchQuery[int](context.Background(), d, countQuery{limit: 21})
		require.NoError(t, err)
		assert.Equal(t, 42, got)
	})

	t.Run("missing handler", func(t *testing.T) {
		d := NewQueryDispatcher()
		_, err := d.Dispatch(context.Background(), countQuery{})
		require.ErrorIs(t, err, ErrNoHandler)
	})

	t.Run("duplicate registration", func(t *testing.T) {
		d := NewQueryDispatcher()
		handler := func(context.Context, countQuery) (int, error) { return 0, nil }
		require.NoError(t, RegisterQuery(d, handler))
		require.ErrorIs(t, RegisterQuery(d, handler), ErrDuplicateHandler)
	})

	t.Run("answer type mismatch", func(t *testing.T) {
		d := NewQueryDispatcher()
		MustRegisterQuery(d, func(context.Context, countQuery) (int, error) { return 1, nil })
		_, err := DispatchQuery[string](context.Background(), d, countQuery{})
		require.Error(t, err)
	})
}

func TestEventDispatcher(t *testing.T) {
	t.Run("fans out in registration order", func(t *testing.T) {
		d := NewEventDispatcher()
		var order []string
		SubscribeEvent(d, func(_ context.Context, e thingHappened) error {
			order = append(order, "first:"+e.id)
			return nil
		})
		SubscribeEvent(d, func(_ context.Context, e thingHappened) error {
			order = append(order, "second:"+e.id)
			return nil
		})

		require.NoError(t, d.Dispatch(context.Background(), thingHappened{id: "e1"}))
		assert.Equal(t, []string{"first:e1", "second:e1"}, order)
	})

	t.Run("no subscribers is fine", func(t *testing.T) {
		d := NewEventDispatcher()
		require.NoError(t, d.Dispatch(context.Background(), thingHappened{}))
	})

	t.Run("joins subscriber errors", func(t *testing.T) {
		d := NewEventDispatcher()
		first := errors.New("first failed")
		SubscribeEvent(d, func(context.Context, thingHappened) error { return first })
		SubscribeEvent(d, func(context.Context, thingHappened) error { return nil })

		err := d.Dispatch(context.Background(), thingHappened{})
		require.ErrorIs(t, err, first)
	})

	t.Run("async logs failures", func(t *testing.T) {
		var buf bytes.Buffer
		log := slog.New(slog.NewTextHandler(&buf, nil))
		d := NewEventDispatcher(WithLogger(log))
		SubscribeEvent(d, func(context.Context, thingHappened) error {
			return errors.New("boom")
		})

		d.DispatchAsync(context.Background(), thingHappened{id: "e2"})
		d.Wait()

		assert.Contains(t, buf.String(), "async event handling failed")
		assert.Contains(t, buf.String(), "thing-happened")
	})

	t.Run("async survives caller cancellation", func(t *testing.T) {
		d := NewEventDispatcher()
		done := make(chan struct{})
		SubscribeEvent(d, func(ctx context.Context, _ thingHappened) error {
			require.NoError(t, ctx.Err())
			close(done)
			return nil
		})

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		d.DispatchAsync(ctx, thingHappened{})
		d.Wait()
		<-done
	})
}
