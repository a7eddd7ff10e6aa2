// Package page defines the fixed-size in-memory unit that lives in a
// buffer pool frame. It carries a raw byte buffer and frame metadata only;
// interpreting the bytes a page holds is the caller's concern, not this
// package's.
package page

// InvalidPageID is the sentinel for "no page".
const InvalidPageID int64 = -1

// Page is a fixed-size disk page resident in one buffer pool frame. Its
// identity rotates over the process lifetime: a frame is recycled across
// many pages as pages are evicted and fetched in.
type Page struct {
	id       int64
	data     []byte
	pinCount int
	dirty    bool
	lsn      int64
}

// New allocates a page-sized buffer for one frame. The buffer is reused
// for the life of the pool; only its contents and metadata rotate.
func New(size int) *Page {
	return &Page{id: InvalidPageID, data: make([]byte, size)}
}

// ID reports the page currently resident in this frame, or InvalidPageID
// if the frame is free.
func (p *Page) ID() int64 { return p.id }

// Data exposes the raw page-sized buffer for the caller to read or mutate
// while the page is pinned. The buffer pool does not interpret it.
func (p *Page) Data() []byte { return p.data }

// PinCount reports outstanding pins on this frame.
func (p *Page) PinCount() int { return p.pinCount }

// IsDirty reports whether the frame has unflushed mutations.
func (p *Page) IsDirty() bool { return p.dirty }

// Pin increments the pin count.
func (p *Page) Pin() { p.pinCount++ }

// Unpin decrements the pin count. The caller must ensure PinCount() > 0.
func (p *Page) Unpin() { p.pinCount-- }

// MarkDirty applies sticky-dirty semantics: once dirty, a page stays dirty
// until explicitly flushed, so a later clean unpin can never mask an
// earlier mutation.
func (p *Page) MarkDirty(dirty bool) {
	p.dirty = p.dirty || dirty
}

// ClearDirty marks the page clean, called after a successful write-back.
func (p *Page) ClearDirty() { p.dirty = false }

// LSN reports the log sequence number of the last record covering this
// page's mutation, used by the buffer pool to decide how far the log
// collaborator must flush before a write-back.
func (p *Page) LSN() int64 { return p.lsn }

// SetLSN records the LSN of the log record covering the page's latest
// mutation.
func (p *Page) SetLSN(lsn int64) { p.lsn = lsn }

// ResetMemory zeroes the buffer and clears all metadata, returning the
// frame to its free state.
func (p *Page) ResetMemory() {
	for i := range p.data {
		p.data[i] = 0
	}
	p.id = InvalidPageID
	p.pinCount = 0
	p.dirty = false
	p.lsn = 0
}

// Assign installs id as the page resident in this frame.
func (p *Page) Assign(id int64) { p.id = id }
