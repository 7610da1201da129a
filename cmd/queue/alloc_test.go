package queue

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrackingAllocator(t *testing.T) {
	a := NewTrackingAllocator(1)

	node, err := a.Alloc(BlockNode, 16)
	require.NoError(t, err)
	first, err := a.Alloc(BlockString, 6)
	require.NoError(t, err)
	second, err := a.Alloc(BlockString, 4)
	require.NoError(t, err)
	assert.NotEqual(t, first, second)

	stats := a.Stats()
	assert.Equal(t, 1, stats.Nodes.Live)
	assert.Equal(t, 2, stats.Strings.Live)
	assert.Equal(t, 26, stats.LiveBytes())
	assert.Equal(t, 26, stats.PeakBytes)

	a.Release(first)
	a.Release(node)

	stats = a.Stats()
	assert.Equal(t, 1, a.Live())
	assert.Equal(t, 4, stats.LiveBytes())
	assert.Equal(t, 26, stats.PeakBytes)
	assert.Equal(t, 1, stats.Nodes.Releases)
	assert.Equal(t, 1, stats.Strings.Releases)
	assert.Equal(t, 0, stats.InvalidReleases)
}

func TestTrackingAllocatorInvalidRelease(t *testing.T) {
	a := NewTrackingAllocator(1)
	a.Release(0)
	a.Release(BlockID(42))

	assert.Equal(t, 2, a.Stats().InvalidReleases)
	assert.Equal(t, 0, a.Stats().Nodes.Releases)
}

func TestTrackingAllocatorDoubleReleaseDoesNotHideLeak(t *testing.T) {
	a := NewTrackingAllocator(1)
	leaked, err := a.Alloc(BlockString, 3)
	require.NoError(t, err)
	freed, err := a.Alloc(BlockString, 3)
	require.NoError(t, err)

	a.Release(freed)
	a.Release(freed)

	stats := a.Stats()
	assert.Equal(t, 1, stats.Strings.Live)
	assert.Equal(t, 1, stats.Strings.Releases)
	assert.Equal(t, 1, stats.InvalidReleases)

	a.Release(leaked)
	assert.Equal(t, 0, a.Live())
}

func TestTrackingAllocatorFailures(t *testing.T) {
	a := NewTrackingAllocator(1)
	a.FailPercent = 100

	_, err := a.Alloc(BlockString, 3)
	assert.ErrorIs(t, err, ErrAllocFailed)
	assert.Contains(t, err.Error(), "string block of 3 bytes")
	assert.Equal(t, 1, a.Stats().Failures)
	assert.Equal(t, 0, a.Live())

	a.FailPercent = 0
	_, err = a.Alloc(BlockString, 3)
	assert.NoError(t, err)

	_, err = a.Alloc(BlockKind(9), 1)
	assert.Error(t, err)
}

func TestTrackingAllocatorZeroValue(t *testing.T) {
	a := &TrackingAllocator{FailPercent: 100}
	q := New(WithAllocator(a))

	require.NotPanics(t, func() {
		assert.ErrorIs(t, q.InsertTail("x"), ErrAllocFailed)
	})
	assert.Equal(t, 0, q.Size())
	assert.Equal(t, 1, a.Stats().Failures)

	a.FailPercent = 0
	require.NoError(t, q.InsertTail("x"))
	assert.Equal(t, 2, a.Live())

	q.Free()
	assert.Equal(t, 0, a.Live())
	assert.Equal(t, 0, a.Stats().InvalidReleases)
}

func TestTrackingAllocatorNilPointer(t *testing.T) {
	var a *TrackingAllocator
	q := New(WithAllocator(a))

	require.NotPanics(t, func() {
		require.NoError(t, q.InsertTail("x"))
		require.NoError(t, q.InsertHead("y"))
		v, err := q.RemoveHead()
		require.NoError(t, err)
		assert.Equal(t, "y", v)
		q.Free()
	})
	assert.Equal(t, AllocStats{}, a.Stats())
	assert.Equal(t, 0, a.Live())
}

func TestBlockKindString(t *testing.T) {
	assert.Equal(t, "node", BlockNode.String())
	assert.Equal(t, "string", BlockString.String())
	assert.Equal(t, "block(7)", BlockKind(7).String())
}
