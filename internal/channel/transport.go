// Package channel wraps the external push-subscribe transport behind an
// adapter that owns reconnect and heartbeat policy and exposes a single
// inbound stream of raw event payloads plus a connectivity flag.
package channel

import "context"

// GlobalTopic is the single topic all lifecycle events arrive on.
// Per-pattern filtering happens downstream in the stream log, never in
// the transport.
const GlobalTopic = "/topic/events"

// MessageFunc receives one raw inbound payload per delivery.
type MessageFunc func(payload []byte)

// Conn is one live connection to the transport. Implementations deliver
// messages one at a time; the adapter never reads concurrently.
type Conn interface {
	// Subscribe registers exactly one handler for a topic. The adapter
	// calls it once per (re)connect.
	Subscribe(topic string, fn MessageFunc) error

	// Ping sends an outbound liveness frame. An error means the
	// connection is no longer usable.
	Ping() error

	// Done is closed when the connection drops, with the cause.
	Done() <-chan error

	Close() error
}

// Transport dials the external channel. It is an external collaborator:
// only this contract matters here, not how it moves bytes.
type Transport interface {
	Connect(ctx context.Context) (Conn, error)
}
