package cqrs

// AggregateBase collects domain events raised but not yet handed to a
// dispatcher. Embed it in an aggregate root; after a successful save,
// drain Uncommitted and call ClearUncommitted.
type AggregateBase struct {
	uncommitted []Event
}

// Raise records an event as uncommitted.
func (b *AggregateBase) Raise(event Event) {
	b.uncommitted = append(b.uncommitted, event)
}

// Uncommitted returns a copy of the events raised since the last clear.
func (b *AggregateBase) Uncommitted() []Event {
	out := make([]Event, len(b.uncommitted))
	copy(out, b.uncommitted)
	return out
}

// ClearUncommitted drops all recorded events.
func (b *AggregateBase) ClearUncommitted() {
	b.uncommitted = nil
}
