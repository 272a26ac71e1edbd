package channel

import (
	"context"
	"log"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
)

const (
	// DefaultReconnectDelay is the fixed wait before redialing after a
	// disconnect. Reconnection is the only timeout-governed behavior at
	// this layer.
	DefaultReconnectDelay = 5 * time.Second

	// DefaultHeartbeat is the liveness interval in both directions.
	DefaultHeartbeat = 4 * time.Second
)

// Adapter owns the connection lifecycle: dial, subscribe once to the
// global topic, heartbeat, and redial after a fixed delay when the
// connection drops. Events lost during a disconnect window are
// permanently lost; there is no replay (at-most-once delivery).
type Adapter struct {
	transport Transport
	handler   func(payload []byte) error

	reconnectDelay time.Duration
	heartbeat      time.Duration
	logger         *log.Logger

	connected atomic.Bool
	lastRecv  atomic.Int64 // unix nanos of the last inbound frame
}

// Option configures an Adapter.
type Option func(*Adapter)

func WithReconnectDelay(d time.Duration) Option {
	return func(a *Adapter) { a.reconnectDelay = d }
}

func WithHeartbeat(d time.Duration) Option {
	return func(a *Adapter) { a.heartbeat = d }
}

func WithLogger(l *log.Logger) Option {
	return func(a *Adapter) { a.logger = l }
}

// New wires the adapter to a transport and a payload handler. Handler
// errors mean a single malformed payload; the adapter logs and drops it
// and keeps the connection.
func New(transport Transport, handler func(payload []byte) error, opts ...Option) *Adapter {
	a := &Adapter{
		transport:      transport,
		handler:        handler,
		reconnectDelay: DefaultReconnectDelay,
		heartbeat:      DefaultHeartbeat,
		logger:         log.Default(),
	}
	for _, o := range opts {
		o(a)
	}
	return a
}

// Connected reports the current connectivity flag.
func (a *Adapter) Connected() bool {
	return a.connected.Load()
}

// Run drives the connect/heartbeat/reconnect loop until ctx is
// cancelled. It only returns ctx.Err().
func (a *Adapter) Run(ctx context.Context) error {
	for {
		if err := a.runOnce(ctx); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(a.reconnectDelay):
		}
	}
}

// runOnce performs one connect-serve cycle. A nil return means the
// connection dropped and the caller should redial; only context
// cancellation is returned as an error.
func (a *Adapter) runOnce(ctx context.Context) error {
	conn, err := a.transport.Connect(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		a.logger.Printf("channel: connect failed: %v", err)
		return nil
	}
	defer conn.Close()

	// exactly one subscription per successful connect
	if err := conn.Subscribe(GlobalTopic, a.dispatch); err != nil {
		a.logger.Printf("channel: subscribe failed: %v", err)
		return nil
	}

	a.lastRecv.Store(time.Now().UnixNano())
	a.connected.Store(true)
	defer a.connected.Store(false)
	a.logger.Printf("channel: connected")

	ticker := time.NewTicker(a.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case cause := <-conn.Done():
			a.logger.Printf("channel: disconnected: %v", cause)
			return nil
		case <-ticker.C:
			if err := a.beat(conn); err != nil {
				a.logger.Printf("channel: heartbeat failed: %v", err)
				return nil
			}
		}
	}
}

// beat sends the outbound heartbeat and checks inbound liveness: if
// nothing arrived for two full intervals the peer is considered gone.
func (a *Adapter) beat(conn Conn) error {
	if err := conn.Ping(); err != nil {
		return errors.Wrap(err, "ping")
	}
	last := time.Unix(0, a.lastRecv.Load())
	if time.Since(last) > 2*a.heartbeat {
		return errors.Errorf("no inbound frame since %s", last.Format(time.RFC3339))
	}
	return nil
}

// dispatch routes one raw inbound frame. Transport control frames are
// consumed here; failures to parse them are logged, never surfaced.
// Event payloads go to the handler; a handler error drops that single
// message and processing continues.
func (a *Adapter) dispatch(payload []byte) {
	a.lastRecv.Store(time.Now().UnixNano())

	if isControlFrame(payload) {
		if err := parseControlFrame(payload); err != nil {
			a.logger.Printf("channel: bad control frame: %v", err)
		}
		return
	}
	if err := a.handler(payload); err != nil {
		a.logger.Printf("channel: dropping event payload: %v", err)
	}
}
