// Package replacer implements the LRU-K victim-selection policy: frames
// with fewer than K recorded accesses are preferred for eviction over
// frames that have reached K accesses, which are then ordered by recency.
package replacer

import (
	"container/list"
	"fmt"
	"sync"

	"pagepool/bperr"
)

// LRUK tracks evictability and K-distance ordering for up to size frames.
// Frames with fewer than K recorded accesses live in the history list
// (infinite K-distance, evicted first); frames with K or more accesses
// live in the cache list, ordered by most recent access.
type LRUK struct {
	mu   sync.Mutex
	size int
	k    int

	history *list.List // frame_id values, most-recent-access at front
	cache   *list.List

	// node indexes by frame id into whichever list currently holds it.
	node    []*list.Element
	inCache []bool // whether node[f] lives in cache (vs history)

	accessCount []int
	evictable   []bool
	currSize    int
}

// New creates a replacer tracking numFrames frames with K-distance K.
func New(numFrames, k int) *LRUK {
	if numFrames <= 0 || k <= 0 {
		panic(fmt.Sprintf("replacer: numFrames and k must be > 0, got %d, %d", numFrames, k))
	}
	return &LRUK{
		size:        numFrames,
		k:           k,
		history:     list.New(),
		cache:       list.New(),
		node:        make([]*list.Element, numFrames),
		inCache:     make([]bool, numFrames),
		accessCount: make([]int, numFrames),
		evictable:   make([]bool, numFrames),
	}
}

func (r *LRUK) checkBounds(op string, frameID int) {
	if frameID < 0 || frameID >= r.size {
		panic(bperr.New(op, bperr.KindIllegalUse,
			fmt.Sprintf("frame id %d out of range [0,%d)", frameID, r.size)))
	}
}

// RecordAccess bumps frameID's access count, migrating it between lists as
// it crosses the K threshold.
func (r *LRUK) RecordAccess(frameID int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.checkBounds("RecordAccess", frameID)

	r.accessCount[frameID]++
	n := r.accessCount[frameID]

	switch {
	case n == 1 && r.k > 1:
		r.node[frameID] = r.history.PushFront(frameID)
		r.inCache[frameID] = false
	case n == r.k:
		if n > 1 {
			r.history.Remove(r.node[frameID])
		}
		r.node[frameID] = r.cache.PushFront(frameID)
		r.inCache[frameID] = true
	case n > r.k:
		r.cache.Remove(r.node[frameID])
		r.node[frameID] = r.cache.PushFront(frameID)
		r.inCache[frameID] = true
	}
}

// SetEvictable adjusts the evictable count. It never moves frameID between
// lists and is a no-op if frameID has never been accessed.
func (r *LRUK) SetEvictable(frameID int, evictable bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.checkBounds("SetEvictable", frameID)

	if r.accessCount[frameID] == 0 {
		return
	}
	if !r.evictable[frameID] && evictable {
		r.currSize++
	} else if r.evictable[frameID] && !evictable {
		r.currSize--
	}
	r.evictable[frameID] = evictable
}

// Evict picks a victim: the oldest entry in the history list (infinite
// K-distance) takes precedence over the oldest entry in the cache list.
// Returns false if no frame is evictable.
func (r *LRUK) Evict() (int, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.currSize == 0 {
		return 0, false
	}
	if frameID, ok := r.evictFromTail(r.history); ok {
		return frameID, true
	}
	if frameID, ok := r.evictFromTail(r.cache); ok {
		return frameID, true
	}
	return 0, false
}

func (r *LRUK) evictFromTail(l *list.List) (int, bool) {
	for e := l.Back(); e != nil; e = e.Prev() {
		frameID := e.Value.(int)
		if !r.evictable[frameID] {
			continue
		}
		l.Remove(e)
		r.node[frameID] = nil
		r.accessCount[frameID] = 0
		r.evictable[frameID] = false
		r.currSize--
		return frameID, true
	}
	return 0, false
}

// Remove mandatorily evicts a tracked, evictable frame from the replacer's
// bookkeeping without selecting it via the victim policy. It panics if
// frameID is currently non-evictable.
func (r *LRUK) Remove(frameID int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.checkBounds("Remove", frameID)

	if r.accessCount[frameID] == 0 {
		return
	}
	if !r.evictable[frameID] {
		panic(bperr.New("Remove", bperr.KindIllegalUse,
			fmt.Sprintf("frame %d is not evictable", frameID)))
	}
	if r.inCache[frameID] {
		r.cache.Remove(r.node[frameID])
	} else {
		r.history.Remove(r.node[frameID])
	}
	r.node[frameID] = nil
	r.accessCount[frameID] = 0
	r.evictable[frameID] = false
	r.currSize--
}

// Size reports the number of currently evictable frames.
func (r *LRUK) Size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.currSize
}
