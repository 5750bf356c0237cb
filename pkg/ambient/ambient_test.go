package ambient

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/dan-solli/lwwgraph/pkg/clock"
	"github.com/dan-solli/lwwgraph/pkg/graph"
	"github.com/dan-solli/lwwgraph/pkg/id"
	"github.com/dan-solli/lwwgraph/pkg/label"
	"github.com/dan-solli/lwwgraph/pkg/register"
)

// memStore is a minimal Store stub, just enough to exercise Handle
// without pulling in pgraph.
type memStore struct {
	mu    sync.Mutex
	nodes map[id.Id]label.Label
}

func newMemStore() *memStore { return &memStore{nodes: make(map[id.Id]label.Label)} }

func (m *memStore) Node(ctx context.Context, i id.Id) (label.Label, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.nodes[i]
	return l, ok, nil
}

func (m *memStore) Edge(ctx context.Context, i id.Id) (graph.EdgeValue, bool, error) {
	return graph.EdgeValue{}, false, nil
}

func (m *memStore) SetNode(ctx context.Context, i id.Id, c clock.Clock, value register.Option[label.Label]) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v, ok := value.Get(); ok {
		m.nodes[i] = v
	} else {
		delete(m.nodes, i)
	}
	return nil
}

func (m *memStore) SetEdge(ctx context.Context, i id.Id, c clock.Clock, value register.Option[graph.EdgeValue]) error {
	return nil
}

func (m *memStore) QueryEdgeSrc(ctx context.Context, src id.Id) ([]id.Id, error) { return nil, nil }

func (m *memStore) QueryEdgeLabelDst(ctx context.Context, l label.Label, dst id.Id) ([]id.Id, error) {
	return nil, nil
}

func (m *memStore) LoadAtomPayload(ctx context.Context, dst id.Id) ([]byte, bool, error) {
	return nil, false, nil
}

func (m *memStore) SaveAtomPayload(ctx context.Context, dst id.Id, payload []byte) error {
	return nil
}

var _ Store = (*memStore)(nil)

func TestWithStoreRunsAndReleases(t *testing.T) {
	h := NewHandle(newMemStore())
	ctx := context.Background()
	nodeId := id.New()
	personLabel := label.Hash("Person")

	_, err := WithStore(ctx, h, func(ctx context.Context, s Store) (struct{}, error) {
		return struct{}{}, s.SetNode(ctx, nodeId, h.NextClock(), register.Some(personLabel))
	})
	if err != nil {
		t.Fatalf("WithStore: %v", err)
	}

	got, err := WithStore(ctx, h, func(ctx context.Context, s Store) (label.Label, error) {
		l, _, err := s.Node(ctx, nodeId)
		return l, err
	})
	if err != nil {
		t.Fatalf("WithStore: %v", err)
	}
	if got != personLabel {
		t.Errorf("Node label = %v, want %v", got, personLabel)
	}

	// a second call after the first returns must succeed: busy was released
	if _, err := WithStore(ctx, h, func(ctx context.Context, s Store) (struct{}, error) {
		return struct{}{}, nil
	}); err != nil {
		t.Fatalf("WithStore after release: %v", err)
	}
}

func TestWithStoreRejectsReentrant(t *testing.T) {
	h := NewHandle(newMemStore())
	ctx := context.Background()

	_, err := WithStore(ctx, h, func(ctx context.Context, s Store) (struct{}, error) {
		_, innerErr := WithStore(ctx, h, func(ctx context.Context, s Store) (struct{}, error) {
			return struct{}{}, nil
		})
		if !errors.Is(innerErr, ErrReentrant) {
			t.Errorf("nested WithStore error = %v, want ErrReentrant", innerErr)
		}
		return struct{}{}, nil
	})
	if err != nil {
		t.Fatalf("outer WithStore: %v", err)
	}
}

func TestWithStoreReleasesOnError(t *testing.T) {
	h := NewHandle(newMemStore())
	ctx := context.Background()
	sentinel := errors.New("boom")

	_, err := WithStore(ctx, h, func(ctx context.Context, s Store) (struct{}, error) {
		return struct{}{}, sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Fatalf("WithStore error = %v, want %v", err, sentinel)
	}

	// busy must have been released even though f returned an error
	if _, err := WithStore(ctx, h, func(ctx context.Context, s Store) (struct{}, error) {
		return struct{}{}, nil
	}); err != nil {
		t.Fatalf("WithStore after error: %v", err)
	}
}

func TestNextClockMonotonic(t *testing.T) {
	h := NewHandle(newMemStore())
	a := h.NextClock()
	b := h.NextClock()
	if !a.Less(b) {
		t.Errorf("clocks not monotonic: %+v then %+v", a, b)
	}
}
