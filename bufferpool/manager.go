// Package bufferpool implements the buffer pool manager: frame lifecycle,
// pin/unpin, fetch/flush, and coordination of the extendible hash table,
// the LRU-K replacer, and the disk collaborator. A single mutex
// serializes every public method, including calls into its collaborators.
package bufferpool

import (
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"pagepool/hashtable"
	"pagepool/page"
	"pagepool/replacer"
)

// Disk is the durable-store collaborator consumed by the pool.
type Disk interface {
	ReadPage(id int64, buf []byte) error
	WritePage(id int64, buf []byte) error
	AllocatePage() int64
	DeallocatePage(id int64) error
}

// LogCollaborator is the optional WAL hook: before writing a dirty page
// back, the pool asks it to flush up to the page's LSN.
type LogCollaborator interface {
	Flush(lsn int64)
}

// Config holds the pool's construction-time parameters.
type Config struct {
	PoolSize   int // frame count, > 0
	PageSize   int // bytes per page, > 0
	ReplacerK  int // LRU-K distance, > 0
	BucketSize int // EHT bucket capacity, > 0
}

func (c Config) validate() error {
	if c.PoolSize <= 0 {
		return fmt.Errorf("bufferpool: PoolSize must be > 0, got %d", c.PoolSize)
	}
	if c.PageSize <= 0 {
		return fmt.Errorf("bufferpool: PageSize must be > 0, got %d", c.PageSize)
	}
	if c.ReplacerK <= 0 {
		return fmt.Errorf("bufferpool: ReplacerK must be > 0, got %d", c.ReplacerK)
	}
	if c.BucketSize <= 0 {
		return fmt.Errorf("bufferpool: BucketSize must be > 0, got %d", c.BucketSize)
	}
	return nil
}

// Manager is the buffer pool. Every public method serializes on mu,
// including the transitive calls into the hash table and replacer:
// nested locking always proceeds Manager -> (hashtable | replacer),
// never the reverse.
type Manager struct {
	mu sync.Mutex

	cfg   Config
	disk  Disk
	log   LogCollaborator
	table *hashtable.Table[int64, int]
	repl  *replacer.LRUK

	frames   []*page.Page
	freeList []int

	logger *logrus.Entry
}

// New constructs a pool. log may be nil, in which case no WAL hook is
// invoked.
func New(cfg Config, disk Disk, log LogCollaborator) (*Manager, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	m := &Manager{
		cfg:    cfg,
		disk:   disk,
		log:    log,
		table:  hashtable.NewInt64Keyed[int](cfg.BucketSize),
		repl:   replacer.New(cfg.PoolSize, cfg.ReplacerK),
		frames: make([]*page.Page, cfg.PoolSize),
		logger: logrus.WithField("component", "bufferpool"),
	}
	for i := 0; i < cfg.PoolSize; i++ {
		m.frames[i] = page.New(cfg.PageSize)
		m.freeList = append(m.freeList, i)
	}
	return m, nil
}

// getAvailableFrame is the internal frame-acquisition routine: prefer the
// free list, else ask the replacer to evict, writing back a dirty victim
// before releasing its mapping. Caller holds mu.
func (m *Manager) getAvailableFrame() (int, bool) {
	if n := len(m.freeList); n > 0 {
		frameID := m.freeList[n-1]
		m.freeList = m.freeList[:n-1]
		return frameID, true
	}

	frameID, ok := m.repl.Evict()
	if !ok {
		m.logger.Debug("no evictable frame and free list empty: capacity exhausted")
		return 0, false
	}

	victim := m.frames[frameID]
	if victim.IsDirty() {
		if err := m.writeBack(victim); err != nil {
			m.logger.WithError(err).WithField("page_id", victim.ID()).
				Warn("write-back of eviction victim failed; frame left mapped and dirty")
			// Evict() already dropped frameID from the replacer's
			// bookkeeping entirely (access count zeroed, removed from its
			// list), so SetEvictable alone would be a no-op: RecordAccess
			// re-seeds it before re-marking it evictable.
			m.repl.RecordAccess(frameID)
			m.repl.SetEvictable(frameID, true)
			return 0, false
		}
	}
	m.table.Remove(victim.ID())
	m.logger.WithFields(logrus.Fields{"frame_id": frameID, "page_id": victim.ID()}).Debug("evicted frame")
	return frameID, true
}

// writeBack flushes the log collaborator up to p's LSN (if one is
// configured) and then durably writes p's contents, clearing dirty on
// success. On I/O failure, p's dirty flag and mapping are left intact.
func (m *Manager) writeBack(p *page.Page) error {
	if m.log != nil {
		m.log.Flush(p.LSN())
	}
	if err := m.disk.WritePage(p.ID(), p.Data()); err != nil {
		return err
	}
	p.ClearDirty()
	return nil
}

// NewPage allocates a fresh page in a free or evicted frame, pins it, and
// returns it along with its new id. Returns (0, nil) when no frame can be
// freed: every frame is pinned, or writing back a dirty victim failed.
func (m *Manager) NewPage() (int64, *page.Page) {
	m.mu.Lock()
	defer m.mu.Unlock()

	frameID, ok := m.getAvailableFrame()
	if !ok {
		return 0, nil
	}

	id := m.disk.AllocatePage()
	p := m.frames[frameID]
	p.ResetMemory()
	p.Assign(id)
	p.Pin()

	m.table.Insert(id, frameID)
	m.repl.RecordAccess(frameID)
	m.repl.SetEvictable(frameID, false)
	return id, p
}

// FetchPage returns the page for id, pinning it. If not already resident
// it is loaded via the disk collaborator into a free or evicted frame.
// Returns nil if no frame can be freed.
func (m *Manager) FetchPage(id int64) *page.Page {
	m.mu.Lock()
	defer m.mu.Unlock()

	if frameID, hit := m.table.Find(id); hit {
		p := m.frames[frameID]
		p.Pin()
		m.repl.RecordAccess(frameID)
		m.repl.SetEvictable(frameID, false)
		return p
	}

	frameID, ok := m.getAvailableFrame()
	if !ok {
		return nil
	}

	p := m.frames[frameID]
	p.ResetMemory()
	p.Assign(id)
	if err := m.disk.ReadPage(id, p.Data()); err != nil {
		m.logger.WithError(err).WithField("page_id", id).Warn("read failed; aborting fetch")
		p.ResetMemory()
		m.freeList = append(m.freeList, frameID)
		return nil
	}
	p.Pin()

	m.table.Insert(id, frameID)
	m.repl.RecordAccess(frameID)
	m.repl.SetEvictable(frameID, false)
	return p
}

// UnpinPage decrements id's pin count, making the frame evictable once it
// reaches zero. callerDirty is OR'd into the sticky dirty flag. Returns
// false if id is not mapped or already unpinned.
func (m *Manager) UnpinPage(id int64, callerDirty bool) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	frameID, hit := m.table.Find(id)
	if !hit {
		return false
	}
	p := m.frames[frameID]
	if p.PinCount() == 0 {
		return false
	}
	p.Unpin()
	if p.PinCount() == 0 {
		m.repl.SetEvictable(frameID, true)
	}
	p.MarkDirty(callerDirty)
	return true
}

// FlushPage writes id through to disk regardless of its dirty flag and
// clears it. Returns false if id is not mapped. Pin state is unchanged.
func (m *Manager) FlushPage(id int64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	frameID, hit := m.table.Find(id)
	if !hit {
		return false
	}
	p := m.frames[frameID]
	if m.log != nil {
		m.log.Flush(p.LSN())
	}
	if err := m.disk.WritePage(p.ID(), p.Data()); err != nil {
		m.logger.WithError(err).WithField("page_id", id).Warn("flush failed")
		return false
	}
	p.ClearDirty()
	return true
}

// FlushAllPages writes every resident frame through to disk and clears
// their dirty flags.
func (m *Manager) FlushAllPages() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, p := range m.frames {
		if p.ID() == page.InvalidPageID {
			continue
		}
		if m.log != nil {
			m.log.Flush(p.LSN())
		}
		if err := m.disk.WritePage(p.ID(), p.Data()); err != nil {
			m.logger.WithError(err).WithField("page_id", p.ID()).Warn("flush-all: write failed for page")
			continue
		}
		p.ClearDirty()
	}
}

// DeletePage removes id from the pool. Returns true if id was not mapped
// (nothing to do), false if it is still pinned, true after writing back
// (if dirty), unmapping, and returning the frame to the free list.
func (m *Manager) DeletePage(id int64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	frameID, hit := m.table.Find(id)
	if !hit {
		return true
	}
	p := m.frames[frameID]
	if p.PinCount() != 0 {
		return false
	}
	if p.IsDirty() {
		if err := m.writeBack(p); err != nil {
			m.logger.WithError(err).WithField("page_id", id).Warn("delete: write-back failed")
			return false
		}
	}
	p.ResetMemory()
	m.table.Remove(id)
	m.repl.Remove(frameID)
	m.freeList = append(m.freeList, frameID)
	if err := m.disk.DeallocatePage(id); err != nil {
		m.logger.WithError(err).WithField("page_id", id).Warn("deallocate failed")
	}
	return true
}

// PoolSize reports the configured frame count.
func (m *Manager) PoolSize() int { return m.cfg.PoolSize }
