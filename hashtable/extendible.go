// Package hashtable implements the extendible hash table used by the
// buffer pool to map page ids to frame ids: a directory of 2^global_depth
// slots referencing buckets, each with its own local depth, splitting and
// doubling the directory on overflow as needed. A single mutex guards the
// whole table; a split is atomic under it.
package hashtable

import (
	"encoding/binary"
	"sync"

	"github.com/OneOfOne/xxhash"

	"pagepool/bperr"
)

// maxDepth bounds how many times a single Insert will keep splitting
// before concluding the keys collide pathologically and signaling
// overflow. 62 leaves room for a 63-bit hash space to still discriminate
// something; it is only reached by keys whose hashes differ but agree on
// their low maxDepth bits (identical hashes are caught earlier by Insert).
const maxDepth = 62

type entry[K comparable, V any] struct {
	key K
	val V
}

type bucket[K comparable, V any] struct {
	depth   int
	entries []entry[K, V]
}

func newBucket[K comparable, V any](depth, size int) *bucket[K, V] {
	return &bucket[K, V]{depth: depth, entries: make([]entry[K, V], 0, size)}
}

func (b *bucket[K, V]) find(key K) (V, bool) {
	for _, e := range b.entries {
		if e.key == key {
			return e.val, true
		}
	}
	var zero V
	return zero, false
}

func (b *bucket[K, V]) remove(key K) bool {
	for i, e := range b.entries {
		if e.key == key {
			b.entries = append(b.entries[:i], b.entries[i+1:]...)
			return true
		}
	}
	return false
}

// upsert overwrites an existing key's value or, if the bucket has room,
// appends it. Reports whether the key is now present (false means the
// bucket was full and the key was new).
func (b *bucket[K, V]) upsert(key K, val V, size int) bool {
	for i, e := range b.entries {
		if e.key == key {
			b.entries[i].val = val
			return true
		}
	}
	if len(b.entries) >= size {
		return false
	}
	b.entries = append(b.entries, entry[K, V]{key, val})
	return true
}

func (b *bucket[K, V]) isFull(size int) bool { return len(b.entries) >= size }

// Table is a concurrent page_id -> frame_id (or any comparable key/value
// pair) extendible hash table.
type Table[K comparable, V any] struct {
	mu          sync.Mutex
	globalDepth int
	bucketSize  int
	numBuckets  int
	dir         []*bucket[K, V]
	hashFn      func(K) uint64
}

// New builds a table with the given per-bucket capacity and a hash
// function over keys. bucketSize must be > 0.
func New[K comparable, V any](bucketSize int, hashFn func(K) uint64) *Table[K, V] {
	if bucketSize <= 0 {
		panic("hashtable: bucket size must be > 0")
	}
	t := &Table[K, V]{
		globalDepth: 1,
		bucketSize:  bucketSize,
		numBuckets:  2,
		hashFn:      hashFn,
	}
	t.dir = []*bucket[K, V]{
		newBucket[K, V](1, bucketSize),
		newBucket[K, V](1, bucketSize),
	}
	return t
}

// NewInt64Keyed is the constructor the buffer pool uses: keys are page
// ids, hashed via xxhash over their little-endian encoding.
func NewInt64Keyed[V any](bucketSize int) *Table[int64, V] {
	return New[int64, V](bucketSize, func(k int64) uint64 {
		var b [8]byte
		binary.LittleEndian.PutUint64(b[:], uint64(k))
		return xxhash.Checksum64(b[:])
	})
}

func (t *Table[K, V]) hash(key K) uint64 {
	return t.hashFn(key)
}

// IndexOf returns the directory index a key maps to at the current global
// depth: hash(key) & (2^global_depth - 1).
func (t *Table[K, V]) IndexOf(key K) int {
	mask := uint64(1<<uint(t.globalDepth)) - 1
	return int(t.hash(key) & mask)
}

// Find reports whether key is present and its value.
func (t *Table[K, V]) Find(key K) (V, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.dir[t.IndexOf(key)].find(key)
}

// Remove deletes key's entry if present. It does not shrink the
// directory or merge buckets.
func (t *Table[K, V]) Remove(key K) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.dir[t.IndexOf(key)].remove(key)
}

// Insert stores (key, value), overwriting any existing entry for key.
// Splits the target bucket, possibly repeatedly and possibly doubling the
// directory, until there is room. Panics with a KindOverflow *bperr.Error
// when the full target bucket holds only keys whose hash equals key's,
// since no split can separate them.
func (t *Table[K, V]) Insert(key K, value V) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for t.dir[t.IndexOf(key)].isFull(t.bucketSize) {
		target := t.dir[t.IndexOf(key)]
		h := t.hash(key)
		separable := false
		for _, e := range target.entries {
			if t.hash(e.key) != h {
				separable = true
				break
			}
		}
		if !separable {
			panic(bperr.New("Insert", bperr.KindOverflow,
				"bucket cannot be split: every key in it has the same hash as the new key"))
		}
		t.splitBucket(target)
	}
	t.dir[t.IndexOf(key)].upsert(key, value, t.bucketSize)
}

// splitBucket implements the split algorithm for the bucket currently
// targeted by key. Caller holds t.mu.
func (t *Table[K, V]) splitBucket(target *bucket[K, V]) {
	if target.depth >= maxDepth {
		panic(bperr.New("Insert", bperr.KindOverflow,
			"bucket cannot be split further: all keys collide past maximum practical depth"))
	}

	if target.depth == t.globalDepth {
		oldLen := len(t.dir)
		t.dir = append(t.dir, make([]*bucket[K, V], oldLen)...)
		for i := 0; i < oldLen; i++ {
			t.dir[i+oldLen] = t.dir[i]
		}
		t.globalDepth++
	}

	newDepth := target.depth + 1
	b0 := newBucket[K, V](newDepth, t.bucketSize)
	b1 := newBucket[K, V](newDepth, t.bucketSize)
	mask := uint64(1) << uint(target.depth)

	for _, e := range target.entries {
		if t.hash(e.key)&mask == 0 {
			b0.entries = append(b0.entries, e)
		} else {
			b1.entries = append(b1.entries, e)
		}
	}
	t.numBuckets++

	for i := range t.dir {
		if t.dir[i] == target {
			if uint64(i)&mask == 0 {
				t.dir[i] = b0
			} else {
				t.dir[i] = b1
			}
		}
	}
}

// GlobalDepth reports log2(len(directory)).
func (t *Table[K, V]) GlobalDepth() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.globalDepth
}

// LocalDepth reports the local depth of the bucket at directory index dirIndex.
func (t *Table[K, V]) LocalDepth(dirIndex int) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.dir[dirIndex].depth
}

// NumBuckets reports the number of distinct buckets currently in the table.
func (t *Table[K, V]) NumBuckets() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.numBuckets
}
