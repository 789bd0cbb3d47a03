package catalog

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"canopy/explorer/internal/errors"
	"canopy/explorer/internal/graph"
)

// stubCatalog delegates to a Memory but can block or fail Children calls
type stubCatalog struct {
	*Memory
	calls   atomic.Int32
	release chan struct{}
	err     error
}

func (s *stubCatalog) Children(ctx context.Context, id string) ([]graph.Node, error) {
	s.calls.Add(1)
	if s.release != nil {
		select {
		case <-s.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if s.err != nil {
		return nil, s.err
	}
	return s.Memory.Children(ctx, id)
}

func TestGuard_PassesThrough(t *testing.T) {
	g := NewGuard(&stubCatalog{Memory: NewMemory(Sample())}, time.Second, nil)
	children, err := g.Children(context.Background(), "1")
	require.NoError(t, err)
	assert.Equal(t, []string{"2", "5", "8", "11"}, nodeIDs(children))
}

func TestGuard_TimeoutMarksDataUnavailable(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	stub := &stubCatalog{Memory: NewMemory(Sample()), release: make(chan struct{})}
	g := NewGuard(stub, 20*time.Millisecond, zap.New(core).Sugar())

	_, err := g.Children(context.Background(), "1")

	require.Error(t, err)
	assert.True(t, errors.IsDataUnavailable(err))
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.Equal(t, 1, logs.FilterMessage("catalog call failed").Len())
}

func TestGuard_FailureMarksDataUnavailable(t *testing.T) {
	stub := &stubCatalog{Memory: NewMemory(Sample()), err: errors.New("connection refused")}
	g := NewGuard(stub, time.Second, nil)

	_, err := g.Children(context.Background(), "1")
	assert.True(t, errors.IsDataUnavailable(err))
	assert.Contains(t, err.Error(), "children 1")
	assert.Contains(t, err.Error(), "connection refused")
}

func TestGuard_NotFoundIsNotUnavailable(t *testing.T) {
	g := NewGuard(NewMemory(Sample()), time.Second, nil)
	_, err := g.NodeDetail(context.Background(), "11")
	assert.True(t, errors.IsNotFound(err))
	assert.False(t, errors.IsDataUnavailable(err))
}

func TestGuard_CallerCancellation(t *testing.T) {
	stub := &stubCatalog{Memory: NewMemory(Sample()), release: make(chan struct{})}
	defer close(stub.release)
	g := NewGuard(stub, 0, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := g.Children(ctx, "1")
	assert.True(t, errors.IsDataUnavailable(err))
}

func TestGuard_DeduplicatesConcurrentCalls(t *testing.T) {
	stub := &stubCatalog{Memory: NewMemory(Sample()), release: make(chan struct{})}
	g := NewGuard(stub, time.Second, nil)

	const callers = 5
	var wg sync.WaitGroup
	results := make([][]graph.Node, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = g.Children(context.Background(), "8")
		}(i)
	}

	require.Eventually(t, func() bool { return stub.calls.Load() >= 1 }, time.Second, time.Millisecond)
	// give the remaining callers time to join the in-flight call
	time.Sleep(20 * time.Millisecond)
	close(stub.release)
	wg.Wait()

	assert.Equal(t, int32(1), stub.calls.Load())
	for _, r := range results {
		assert.Equal(t, []string{"9", "12"}, nodeIDs(r))
	}
}
