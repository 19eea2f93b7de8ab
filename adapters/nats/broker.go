package nats

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	natsgo "github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/codewandler/userd-go/internal/config"
)

// Broker owns the NATS connection and one JetStream stream per
// configured topic. Publishers and consumers are built on top of it.
type Broker struct {
	nc      *natsgo.Conn
	closeNc closeFunc
	js      jetstream.JetStream
	log     *slog.Logger
	streams map[string]jetstream.Stream
}

type BrokerOption func(*Broker)

func WithBrokerLogger(log *slog.Logger) BrokerOption {
	return func(b *Broker) { b.log = log }
}

// NewBroker connects and ensures a stream for every topic in pubsub.
// A nil pubsub yields a broker with no streams, usable for publishing
// to pre-existing ones only.
func NewBroker(connect Connector, pubsub *config.Pubsub, opts ...BrokerOption) (*Broker, error) {
	nc, closeNc, err := connect()
	if err != nil {
		return nil, err
	}

	js, err := jetstream.New(nc)
	if err != nil {
		closeNc()
		return nil, err
	}

	b := &Broker{
		nc:      nc,
		closeNc: closeNc,
		js:      js,
		log:     slog.Default().With(slog.String("component", "nats")),
		streams: map[string]jetstream.Stream{},
	}
	for _, opt := range opts {
		opt(b)
	}

	if pubsub != nil {
		for _, topic := range pubsub.Topics {
			stream, err := ensureStream(js, jetstream.StreamConfig{
				Name:     streamNameFor(topic.Topic),
				Subjects: []string{topic.Topic + ".>"},
				Storage:  jetstream.FileStorage,
			})
			if err != nil {
				closeNc()
				return nil, fmt.Errorf("ensure stream for topic %q: %w", topic.Topic, err)
			}
			b.streams[topic.Topic] = stream
			b.log.Debug("stream ensured",
				slog.String("topic", topic.Topic),
				slog.String("stream", streamNameFor(topic.Topic)),
			)
		}
	}

	return b, nil
}

// Close drains the connection so in-flight messages are flushed and
// delivered before the sockets go away.
func (b *Broker) Close() error {
	err := b.nc.Drain()
	b.closeNc()
	b.log.Debug("broker closed")
	return err
}

func (b *Broker) stream(topic string) (jetstream.Stream, error) {
	stream, ok := b.streams[topic]
	if !ok {
		return nil, fmt.Errorf("no stream for topic %q", topic)
	}
	return stream, nil
}

func ensureStream(js jetstream.JetStream, cfg jetstream.StreamConfig) (jetstream.Stream, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*natsgo.DefaultTimeout)
	defer cancel()
	return js.CreateOrUpdateStream(ctx, cfg)
}

// streamNameFor maps a topic to a JetStream-safe stream name: upper
// case, dots and dashes folded to underscores.
func streamNameFor(topic string) string {
	r := strings.NewReplacer(".", "_", "-", "_", " ", "_")
	return strings.ToUpper(r.Replace(topic))
}

// subjectFor builds the subject a message or subscription name lives
// on within its topic namespace.
func subjectFor(topic, name string) string {
	return topic + "." + name
}
