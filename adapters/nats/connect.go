// Package nats carries user events over NATS JetStream: publishers
// turn domain events into JSON messages on configured subjects, and
// durable consumers turn inbound messages back into commands.
package nats

import (
	natsgo "github.com/nats-io/nats.go"

	"github.com/codewandler/userd-go/internal/config"
)

type closeFunc = func()

// Connector opens a NATS connection and returns it together with the
// function that releases it.
type Connector func() (nc *natsgo.Conn, close closeFunc, err error)

func ConnectURL(natsURL string) Connector {
	return func() (*natsgo.Conn, closeFunc, error) {
		nc, err := natsgo.Connect(
			natsURL,
			natsgo.MaxReconnects(3),
		)
		if err != nil {
			return nil, nil, err
		}
		return nc, func() { nc.Close() }, nil
	}
}

func Connect(cfg config.Nats) Connector {
	return ConnectURL(cfg.URL)
}
