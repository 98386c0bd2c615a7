package access

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGate_TryAcquireExclusive(t *testing.T) {
	g := NewGate()

	const workers = 64
	var wins atomic.Int32
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			if g.TryAcquire(7) {
				wins.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, int32(1), wins.Load())
}

func TestGate_ReleaseAllowsReacquire(t *testing.T) {
	g := NewGate()
	require.True(t, g.TryAcquire(1))
	require.False(t, g.TryAcquire(1))
	assert.True(t, g.TryAcquire(2), "other users are independent")

	g.Release(1)
	assert.True(t, g.TryAcquire(1))

	g.Release(3)
	_, active := g.Counts()
	assert.Equal(t, 2, active)
}

func TestGate_Admit(t *testing.T) {
	g := NewGate()
	assert.ErrorIs(t, g.Admit(5), ErrNotAuthorized)

	g.Authorize(5)
	require.NoError(t, g.Admit(5))
	assert.ErrorIs(t, g.Admit(5), ErrBusy)

	g.Release(5)
	assert.NoError(t, g.Admit(5))

	authorized, active := g.Counts()
	assert.Equal(t, 1, authorized)
	assert.Equal(t, 1, active)
}
