package actorutil

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/roasbeef/ember/internal/runtime"
)

// poolTestBehavior records which pool member handled each message.
type poolTestBehavior struct {
	handled atomic.Int64

	mu       sync.Mutex
	received []uint32
}

func (b *poolTestBehavior) Receive(_ *runtime.ActorContext, msg runtime.Message) runtime.Verdict {
	b.mu.Lock()
	b.received = append(b.received, msg.Tag)
	b.mu.Unlock()

	b.handled.Add(1)
	return runtime.VerdictOK
}

func (b *poolTestBehavior) count() int64 {
	return b.handled.Load()
}

func runLoopInBackground(t *testing.T, loop *runtime.Loop) func() {
	t.Helper()

	done := make(chan error, 1)
	go func() { done <- loop.Run() }()

	return func() {
		loop.RequestStop()
		select {
		case err := <-done:
			require.NoError(t, err)
		case <-time.After(2 * time.Second):
			t.Fatal("loop did not stop")
		}
	}
}

func TestNewPool(t *testing.T) {
	t.Parallel()

	loop := runtime.NewLoop(runtime.DefaultConfig())
	defer runLoopInBackground(t, loop)()

	var behaviors []*poolTestBehavior
	pool, err := NewPool(loop, PoolConfig{
		ID:   "test-pool",
		Size: 3,
		Factory: func(int) runtime.Behavior {
			b := &poolTestBehavior{}
			behaviors = append(behaviors, b)
			return b
		},
	})
	require.NoError(t, err)

	require.Equal(t, 3, pool.Size())
	require.Equal(t, "test-pool", pool.ID())
	require.Len(t, pool.IDs(), 3)
}

func TestPoolDefaultSize(t *testing.T) {
	t.Parallel()

	loop := runtime.NewLoop(runtime.DefaultConfig())
	defer runLoopInBackground(t, loop)()

	pool, err := NewPool(loop, PoolConfig{
		ID: "test-pool-default",
		Factory: func(int) runtime.Behavior {
			return &poolTestBehavior{}
		},
	})
	require.NoError(t, err)
	require.Equal(t, 1, pool.Size())
}

func TestPoolSendAsyncRoundRobin(t *testing.T) {
	t.Parallel()

	const poolSize = 3
	const numMessages = 9

	loop := runtime.NewLoop(runtime.DefaultConfig())
	stop := runLoopInBackground(t, loop)

	var behaviors []*poolTestBehavior
	pool, err := NewPool(loop, PoolConfig{
		ID:   "test-pool-rr",
		Size: poolSize,
		Factory: func(int) runtime.Behavior {
			b := &poolTestBehavior{}
			behaviors = append(behaviors, b)
			return b
		},
	})
	require.NoError(t, err)

	for i := 0; i < numMessages; i++ {
		pool.SendAsync(runtime.Message{Tag: uint32(i + 1)})
	}

	require.Eventually(t, func() bool {
		var total int64
		for _, b := range behaviors {
			total += b.count()
		}
		return total == numMessages
	}, 2*time.Second, 5*time.Millisecond)

	for i, b := range behaviors {
		require.EqualValues(t, 3, b.count(), "member %d should handle exactly a third of the messages", i)
	}

	stop()
}

func TestPoolBroadcast(t *testing.T) {
	t.Parallel()

	const poolSize = 4

	loop := runtime.NewLoop(runtime.DefaultConfig())
	stop := runLoopInBackground(t, loop)

	var behaviors []*poolTestBehavior
	pool, err := NewPool(loop, PoolConfig{
		ID:   "test-pool-broadcast",
		Size: poolSize,
		Factory: func(int) runtime.Behavior {
			b := &poolTestBehavior{}
			behaviors = append(behaviors, b)
			return b
		},
	})
	require.NoError(t, err)

	pool.Broadcast(runtime.Message{Tag: 42})

	require.Eventually(t, func() bool {
		for _, b := range behaviors {
			if b.count() != 1 {
				return false
			}
		}
		return true
	}, 2*time.Second, 5*time.Millisecond)

	stop()
}

func TestPoolStop(t *testing.T) {
	t.Parallel()

	loop := runtime.NewLoop(runtime.DefaultConfig())

	pool, err := NewPool(loop, PoolConfig{
		ID:   "test-pool-stop",
		Size: 3,
		Factory: func(int) runtime.Behavior {
			return &poolTestBehavior{}
		},
	})
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- loop.Run() }()

	for i := 0; i < 5; i++ {
		pool.SendAsync(runtime.Message{Tag: uint32(i)})
	}

	pool.Stop()

	require.Eventually(t, loop.Idle, 2*time.Second, 5*time.Millisecond,
		"loop should quiesce once every member is stopped")

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("loop did not terminate after pool.Stop")
	}
}
