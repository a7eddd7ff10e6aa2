package replacer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pagepool/bperr"
)

func TestHistoryFrameEvictedBeforeCacheFrame(t *testing.T) {
	// Frame 1 has a single access (infinite K-distance, history list);
	// frame 2 has reached K=2 accesses (cache list). Both evictable.
	// History must be preferred even though frame 2's access is older.
	r := New(4, 2)

	r.RecordAccess(2)
	r.RecordAccess(2)
	r.SetEvictable(2, true)

	r.RecordAccess(1)
	r.SetEvictable(1, true)

	victim, ok := r.Evict()
	require.True(t, ok)
	assert.Equal(t, 1, victim, "frame with fewer than K accesses must be evicted first")
}

func TestCacheListOrdersByOldestMostRecentAccess(t *testing.T) {
	r := New(4, 2)
	for _, f := range []int{0, 1, 2} {
		r.RecordAccess(f)
		r.RecordAccess(f) // reach K=2, migrate to cache list
		r.SetEvictable(f, true)
	}
	// Re-touch frame 1; frame 0 still has the oldest most-recent access.
	r.RecordAccess(1)

	victim, ok := r.Evict()
	require.True(t, ok)
	assert.Equal(t, 0, victim)
}

func TestSetEvictableNoopBeforeFirstAccess(t *testing.T) {
	r := New(2, 2)
	r.SetEvictable(0, true)
	assert.Equal(t, 0, r.Size())
}

func TestSetEvictableTogglesSize(t *testing.T) {
	r := New(2, 2)
	r.RecordAccess(0)
	r.SetEvictable(0, true)
	assert.Equal(t, 1, r.Size())
	r.SetEvictable(0, false)
	assert.Equal(t, 0, r.Size())
}

func TestEvictClearsHistoryAndEvictableFlag(t *testing.T) {
	r := New(2, 2)
	r.RecordAccess(0)
	r.SetEvictable(0, true)

	victim, ok := r.Evict()
	require.True(t, ok)
	assert.Equal(t, 0, victim)
	assert.Equal(t, 0, r.Size())

	_, ok = r.Evict()
	assert.False(t, ok, "nothing left to evict")
}

func TestRemoveRequiresEvictable(t *testing.T) {
	r := New(2, 2)
	r.RecordAccess(0)

	var caught *bperr.Error
	func() {
		defer func() {
			if rec := recover(); rec != nil {
				caught = rec.(*bperr.Error)
			}
		}()
		r.Remove(0)
	}()
	require.NotNil(t, caught)
	assert.Equal(t, bperr.KindIllegalUse, caught.Kind)
}

func TestRemoveEvictableFrame(t *testing.T) {
	r := New(2, 2)
	r.RecordAccess(0)
	r.SetEvictable(0, true)
	r.Remove(0)
	assert.Equal(t, 0, r.Size())
}

func TestOutOfRangeFrameIDPanics(t *testing.T) {
	r := New(2, 2)
	assert.Panics(t, func() { r.RecordAccess(2) })
	assert.Panics(t, func() { r.RecordAccess(-1) })
}

func TestSizeReflectsOnlyEvictableFrames(t *testing.T) {
	r := New(3, 2)
	r.RecordAccess(0)
	r.RecordAccess(1)
	r.SetEvictable(0, true)
	assert.Equal(t, 1, r.Size())
}
