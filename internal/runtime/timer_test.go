package runtime

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTimerScheduleSortedOrder(t *testing.T) {
	t.Parallel()

	ts := newTimerService(newIngress())
	clock := int64(1000)
	ts.now = func() int64 { return clock }

	ts.scheduleAfter(ID{index: 1}, 50, nil, 0, 0)
	ts.scheduleAfter(ID{index: 2}, 10, nil, 0, 0)
	ts.scheduleAfter(ID{index: 3}, 30, nil, 0, 0)

	var order []uint32
	for n := ts.head; n != nil; n = n.next {
		order = append(order, n.target.index)
	}
	require.Equal(t, []uint32{2, 3, 1}, order, "entries must be sorted by due time")
}

func TestTimerScheduleStableOrderOnTie(t *testing.T) {
	t.Parallel()

	ts := newTimerService(newIngress())
	clock := int64(0)
	ts.now = func() int64 { return clock }

	ts.scheduleAfter(ID{index: 1}, 10, nil, 0, 0)
	ts.scheduleAfter(ID{index: 2}, 10, nil, 0, 0)
	ts.scheduleAfter(ID{index: 3}, 10, nil, 0, 0)

	var order []uint32
	for n := ts.head; n != nil; n = n.next {
		order = append(order, n.target.index)
	}
	require.Equal(t, []uint32{1, 2, 3}, order, "equal due times preserve arrival order")
}

func TestTimerCancel(t *testing.T) {
	t.Parallel()

	ts := newTimerService(newIngress())
	ts.now = func() int64 { return 0 }

	id1 := ts.scheduleAfter(ID{index: 1}, 10, nil, 0, 0)
	id2 := ts.scheduleAfter(ID{index: 2}, 20, nil, 0, 0)
	require.Equal(t, 2, ts.pending())

	require.NoError(t, ts.cancel(id1))
	require.Equal(t, 1, ts.pending())

	err := ts.cancel(id1)
	require.ErrorIs(t, err, ErrTimerInvalid, "cancelling twice must fail")

	require.NoError(t, ts.cancel(id2))
	require.Equal(t, 0, ts.pending())

	err = ts.cancel(999)
	require.ErrorIs(t, err, ErrTimerInvalid)
}

func TestTimerFiresIntoIngress(t *testing.T) {
	t.Parallel()

	ig := newIngress()
	ts := newTimerService(ig)
	ts.start()
	defer ts.shutdown()

	target := ID{index: 7, generation: 1}
	ts.scheduleAfter(target, 5, []byte("hello"), 42, 0)

	require.Eventually(t, func() bool {
		return !ig.empty()
	}, 2*time.Second, 2*time.Millisecond)

	node := ig.drain()
	require.NotNil(t, node)
	require.Equal(t, target, node.target)
	require.Equal(t, uint32(42), node.msg.Tag)
	require.Equal(t, []byte("hello"), node.msg.Data)
	require.Nil(t, node.next)
}

func TestTimerSendEveryRepeats(t *testing.T) {
	t.Parallel()

	ig := newIngress()
	ts := newTimerService(ig)
	ts.start()
	defer ts.shutdown()

	target := ID{index: 3, generation: 1}
	id := ts.scheduleAfter(target, 5, nil, 9, 5)

	fired := 0
	require.Eventually(t, func() bool {
		for n := ig.drain(); n != nil; n = n.next {
			fired++
		}
		return fired >= 3
	}, 2*time.Second, 2*time.Millisecond)

	require.NoError(t, ts.cancel(id))
}
