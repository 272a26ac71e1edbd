package channel

import (
	"bufio"
	"context"
	"net/http"
	"strings"
	"sync"

	"github.com/pkg/errors"
)

// SSETransport connects to a server-sent-events stream of lifecycle
// events. It is the concrete transport the viewer daemon uses; tests and
// embedders may supply any other Transport.
type SSETransport struct {
	url    string
	client *http.Client
}

func NewSSETransport(url string, client *http.Client) *SSETransport {
	if client == nil {
		client = http.DefaultClient
	}
	return &SSETransport{url: url, client: client}
}

func (t *SSETransport) Connect(ctx context.Context) (Conn, error) {
	ctx, cancel := context.WithCancel(ctx)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.url, nil)
	if err != nil {
		cancel()
		return nil, errors.Wrap(err, "build stream request")
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := t.client.Do(req) //nolint:bodyclose // closed via sseConn.Close
	if err != nil {
		cancel()
		return nil, errors.Wrap(err, "dial event stream")
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		cancel()
		return nil, errors.Errorf("event stream returned %s", resp.Status)
	}

	return &sseConn{resp: resp, cancel: cancel, done: make(chan error, 1)}, nil
}

type sseConn struct {
	resp   *http.Response
	cancel context.CancelFunc
	done   chan error
	once   sync.Once
}

// Subscribe starts the single reader for the stream. The topic is
// implied by the stream URL; it is accepted for contract symmetry.
func (c *sseConn) Subscribe(_ string, fn MessageFunc) error {
	var started bool
	c.once.Do(func() {
		started = true
		go c.read(fn)
	})
	if !started {
		return errors.New("stream already subscribed")
	}
	return nil
}

// read delivers frames one at a time: data lines of an event are joined
// into one payload, comment lines pass through as control frames.
func (c *sseConn) read(fn MessageFunc) {
	scanner := bufio.NewScanner(c.resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var data []string
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "":
			if len(data) > 0 {
				fn([]byte(strings.Join(data, "\n")))
				data = data[:0]
			}
		case strings.HasPrefix(line, "data:"):
			data = append(data, strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
		case strings.HasPrefix(line, ":"):
			fn([]byte(strings.TrimSpace(line[1:])))
		}
	}

	err := scanner.Err()
	if err == nil {
		err = errors.New("event stream closed by server")
	}
	c.done <- err
}

// Ping is a no-op: the stream is server-to-client only, outbound
// liveness rides on the underlying HTTP keep-alive.
func (c *sseConn) Ping() error { return nil }

func (c *sseConn) Done() <-chan error { return c.done }

func (c *sseConn) Close() error {
	c.cancel()
	return c.resp.Body.Close()
}
