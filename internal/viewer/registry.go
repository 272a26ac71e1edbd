package viewer

import (
	"context"
	"sync"

	"github.com/matrixagents/patternview/internal/client"
	"github.com/matrixagents/patternview/internal/stream"
	"github.com/matrixagents/patternview/pkg/types"
	"github.com/pkg/errors"
)

// ErrUnknownPattern is returned for ids absent from the catalogue.
var ErrUnknownPattern = errors.New("unknown pattern")

// Registry hands out one Session per pattern id, all sharing the same
// process-wide event log. Sessions are created lazily on first view and
// live for the life of the process.
type Registry struct {
	mu        sync.Mutex
	log       *stream.Log
	backend   *client.Client
	connected func() bool

	patterns map[string]types.PatternInfo
	order    []string
	sessions map[string]*Session
}

func NewRegistry(log *stream.Log, backend *client.Client, connected func() bool) *Registry {
	return &Registry{
		log:       log,
		backend:   backend,
		connected: connected,
		patterns:  make(map[string]types.PatternInfo),
		sessions:  make(map[string]*Session),
	}
}

// LoadCatalogue fetches the pattern catalogue once. Patterns are
// read-only configuration afterwards.
func (r *Registry) LoadCatalogue(ctx context.Context) error {
	patterns, err := r.backend.FetchPatterns(ctx)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.patterns = make(map[string]types.PatternInfo, len(patterns))
	r.order = r.order[:0]
	for _, p := range patterns {
		r.patterns[p.ID] = p
		r.order = append(r.order, p.ID)
	}
	return nil
}

// Patterns returns the catalogue in backend order.
func (r *Registry) Patterns() []types.PatternInfo {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]types.PatternInfo, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.patterns[id])
	}
	return out
}

// Session returns the session for a pattern id, creating and attaching
// it on first use. Attach failures are non-fatal: the session still
// projects whatever the log already holds.
func (r *Registry) Session(ctx context.Context, patternID string) (*Session, error) {
	r.mu.Lock()
	if s, ok := r.sessions[patternID]; ok {
		r.mu.Unlock()
		return s, nil
	}
	pattern, ok := r.patterns[patternID]
	if !ok {
		r.mu.Unlock()
		return nil, errors.Wrap(ErrUnknownPattern, patternID)
	}
	s := NewSession(pattern, r.log, r.backend, r.connected)
	r.sessions[patternID] = s
	r.mu.Unlock()

	if err := s.Attach(ctx); err != nil {
		return s, err
	}
	return s, nil
}
