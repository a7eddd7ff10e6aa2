// Package disk is the durable-store collaborator consumed by the buffer
// pool manager: it addresses fixed-size pages by a single monotonically
// increasing page id within one backing file, and exposes a
// ReadPage/WritePage/AllocatePage/DeallocatePage contract for a buffer
// pool to drive.
package disk

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"pagepool/page"
)

// ReadWriteLogEntry records one page-level I/O for diagnostics.
type ReadWriteLogEntry struct {
	Timestamp time.Time
	PageID    int64
	Bytes     int
}

// Manager performs blocking, durable page I/O against a single data file.
type Manager struct {
	mu         sync.Mutex
	file       *os.File
	pageSize   int
	nextPageID int64
	pagesRead  int
	pagesWrite int
	readLog    []ReadWriteLogEntry
	writeLog   []ReadWriteLogEntry
}

const dataFileName = "pagepool.db"

// New opens (creating if necessary) the backing data file for dir.
func New(dir string, pageSize int) (*Manager, error) {
	if pageSize <= 0 {
		return nil, fmt.Errorf("disk: page size must be > 0, got %d", pageSize)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("disk: create directory %s: %w", dir, err)
	}
	path := filepath.Join(dir, dataFileName)
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("disk: open %s: %w", path, err)
	}
	stat, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("disk: stat %s: %w", path, err)
	}
	return &Manager{
		file:       f,
		pageSize:   pageSize,
		nextPageID: stat.Size() / int64(pageSize),
	}, nil
}

// ReadPage fills buf (which must be pageSize bytes) with id's contents.
// Bytes of a page that lie past the end of the data file read as zeros.
func (m *Manager) ReadPage(id int64, buf []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(buf) != m.pageSize {
		return fmt.Errorf("disk: read page %d: buffer is %d bytes, want %d", id, len(buf), m.pageSize)
	}
	offset := id * int64(m.pageSize)
	n, err := m.file.ReadAt(buf, offset)
	if err == io.EOF {
		// A page allocated but never written lies (partly) past the end of
		// the file; that part reads as zeros.
		for i := n; i < len(buf); i++ {
			buf[i] = 0
		}
		n, err = len(buf), nil
	}
	if err != nil {
		return fmt.Errorf("disk: read page %d: %w", id, err)
	}
	if n != m.pageSize {
		return fmt.Errorf("disk: read page %d: short read %d/%d bytes", id, n, m.pageSize)
	}
	m.pagesRead++
	m.readLog = append(m.readLog, ReadWriteLogEntry{Timestamp: time.Now(), PageID: id, Bytes: n})
	return nil
}

// WritePage durably writes buf (pageSize bytes) to id's slot.
func (m *Manager) WritePage(id int64, buf []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(buf) != m.pageSize {
		return fmt.Errorf("disk: write page %d: buffer is %d bytes, want %d", id, len(buf), m.pageSize)
	}
	offset := id * int64(m.pageSize)
	n, err := m.file.WriteAt(buf, offset)
	if err != nil {
		return fmt.Errorf("disk: write page %d: %w", id, err)
	}
	if n != m.pageSize {
		return fmt.Errorf("disk: write page %d: short write %d/%d bytes", id, n, m.pageSize)
	}
	if err := m.file.Sync(); err != nil {
		return fmt.Errorf("disk: sync after writing page %d: %w", id, err)
	}
	m.pagesWrite++
	m.writeLog = append(m.writeLog, ReadWriteLogEntry{Timestamp: time.Now(), PageID: id, Bytes: n})
	return nil
}

// AllocatePage hands out the next page id. Reuse of ids is not required;
// this is a simple monotonic counter.
func (m *Manager) AllocatePage() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextPageID
	m.nextPageID++
	return id
}

// DeallocatePage releases a page id. Real reclamation (shrinking the file,
// recycling the id) is out of scope here; this is the hook point the
// buffer pool manager calls on DeletePage.
func (m *Manager) DeallocatePage(id int64) error {
	return nil
}

// PageSize reports the configured page size.
func (m *Manager) PageSize() int { return m.pageSize }

// PagesRead reports the number of completed ReadPage calls.
func (m *Manager) PagesRead() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pagesRead
}

// PagesWritten reports the number of completed WritePage calls.
func (m *Manager) PagesWritten() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pagesWrite
}

// ReadLog returns a copy of the read instrumentation log.
func (m *Manager) ReadLog() []ReadWriteLogEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]ReadWriteLogEntry, len(m.readLog))
	copy(out, m.readLog)
	return out
}

// WriteLog returns a copy of the write instrumentation log.
func (m *Manager) WriteLog() []ReadWriteLogEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]ReadWriteLogEntry, len(m.writeLog))
	copy(out, m.writeLog)
	return out
}

// Close releases the backing file handle.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.file.Close()
}

// NewBlankPage returns a free page.Page with a zeroed, pageSize-d buffer.
func (m *Manager) NewBlankPage() *page.Page {
	return page.New(m.pageSize)
}
