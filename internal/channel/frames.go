package channel

import (
	"bytes"

	"github.com/pkg/errors"
)

// Control frames the transport itself emits between event payloads.
// Event payloads are always JSON objects; anything else is treated as a
// control frame and never reaches the event log.
var knownControlFrames = [][]byte{
	[]byte("h"),    // server heartbeat
	[]byte("ping"), // liveness probe
	[]byte("pong"), // liveness reply
	[]byte("o"),    // session open
}

func isControlFrame(payload []byte) bool {
	trimmed := bytes.TrimSpace(payload)
	return len(trimmed) == 0 || trimmed[0] != '{'
}

func parseControlFrame(payload []byte) error {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 {
		return nil
	}
	for _, known := range knownControlFrames {
		if bytes.Equal(trimmed, known) {
			return nil
		}
	}
	return errors.Errorf("unrecognized control frame %q", trimmed)
}
