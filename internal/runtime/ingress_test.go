package runtime

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIngressDrainReturnsAndClears(t *testing.T) {
	t.Parallel()

	ig := newIngress()
	require.True(t, ig.empty())

	ig.push(ID{index: 1, generation: 1}, Message{Tag: 1})
	ig.push(ID{index: 2, generation: 1}, Message{Tag: 2})
	require.False(t, ig.empty())

	head := ig.drain()
	require.True(t, ig.empty(), "drain must detach the whole list")

	var tags []uint32
	for n := head; n != nil; n = n.next {
		tags = append(tags, n.msg.Tag)
	}
	require.Equal(t, []uint32{1, 2}, tags)

	require.Nil(t, ig.drain(), "a second drain with nothing pushed since finds nothing")
}

// TestIngressConcurrentPush exercises the one property the ingress exists
// for: pushes from many goroutines at once never panic and never lose a
// submission; a single drain afterward sees every one.
func TestIngressConcurrentPush(t *testing.T) {
	t.Parallel()

	ig := newIngress()

	const producers = 16
	const perProducer = 200

	var wg sync.WaitGroup
	wg.Add(producers)
	for p := 0; p < producers; p++ {
		go func(p int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				ig.push(ID{index: uint32(p)}, Message{Tag: uint32(i)})
			}
		}(p)
	}
	wg.Wait()

	count := 0
	for n := ig.drain(); n != nil; n = n.next {
		count++
	}
	require.Equal(t, producers*perProducer, count)
}
