package runtime

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIOWatcherRegisterUnregister(t *testing.T) {
	t.Parallel()

	w := newIOWatcher(2)
	require.Equal(t, 0, w.count())

	require.NoError(t, w.register(5, ID{index: 1}, InterestRead))
	require.Equal(t, 1, w.count())

	// Re-registering the same descriptor overwrites in place rather than
	// growing the table.
	require.NoError(t, w.register(5, ID{index: 2}, InterestWrite))
	require.Equal(t, 1, w.count())
	require.Equal(t, ID{index: 2}, w.entries[w.indexOf(5)].owner)

	require.NoError(t, w.unregister(5))
	require.Equal(t, 0, w.count())

	err := w.unregister(5)
	require.ErrorIs(t, err, ErrIONotWatched)
}

func TestIOWatcherNegativeFDRejected(t *testing.T) {
	t.Parallel()

	w := newIOWatcher(1)
	err := w.register(-1, ID{}, InterestRead)
	require.ErrorIs(t, err, ErrIORegFailed)
}

func TestIOWatcherRemoveOwner(t *testing.T) {
	t.Parallel()

	w := newIOWatcher(4)
	owner := ID{index: 1, generation: 1}
	other := ID{index: 2, generation: 1}

	require.NoError(t, w.register(10, owner, InterestRead))
	require.NoError(t, w.register(11, owner, InterestWrite))
	require.NoError(t, w.register(12, other, InterestRead))

	w.removeOwner(owner)
	require.Equal(t, 1, w.count())
	require.Equal(t, other, w.entries[0].owner)
}

// TestIOWatcherPollDeliversReadiness exercises a real poll(2) round trip: a
// readable pipe end must synthesize exactly one READ-tagged delivery to its
// owner.
func TestIOWatcherPollDeliversReadiness(t *testing.T) {
	t.Parallel()

	r, wr, err := os.Pipe()
	require.NoError(t, err)
	defer r.Close()
	defer wr.Close()

	w := newIOWatcher(1)
	owner := ID{index: 4, generation: 1}
	require.NoError(t, w.register(int(r.Fd()), owner, InterestRead))

	_, err = wr.Write([]byte("x"))
	require.NoError(t, err)

	var delivered []Message
	err = w.poll(1000, func(o ID, msg Message) {
		require.Equal(t, owner, o)
		delivered = append(delivered, msg)
	})
	require.NoError(t, err)
	require.Len(t, delivered, 1)
	require.Equal(t, TagIOReady, delivered[0].Tag)
}

func TestIOWatcherPollNoEntriesIsNoop(t *testing.T) {
	t.Parallel()

	w := newIOWatcher(1)
	called := false
	err := w.poll(0, func(ID, Message) { called = true })
	require.NoError(t, err)
	require.False(t, called)
}
