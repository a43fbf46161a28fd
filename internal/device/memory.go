package device

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"sync"
)

var errClosed = errors.New("storage closed")

// MemStorage is an in-memory Storage. It never grows, like a block device.
type MemStorage struct {
	mu     sync.Mutex
	data   []byte
	closed bool
	syncs  int
}

// NewMemStorage returns a zeroed store of size bytes.
func NewMemStorage(size int) *MemStorage {
	return &MemStorage{data: make([]byte, size)}
}

func (m *MemStorage) ReadAt(p []byte, off int64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return 0, errClosed
	}
	if off < 0 || off >= int64(len(m.data)) {
		return 0, io.EOF
	}
	n := copy(p, m.data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (m *MemStorage) WriteAt(p []byte, off int64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return 0, errClosed
	}
	if off < 0 || off > int64(len(m.data)) {
		return 0, io.ErrShortWrite
	}
	n := copy(m.data[off:], p)
	if n < len(p) {
		return n, io.ErrShortWrite
	}
	return n, nil
}

func (m *MemStorage) Size() (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.data)), nil
}

func (m *MemStorage) Sync() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.syncs++
	return nil
}

// Close marks the store closed. The data stays readable through Bytes and
// the store can be reopened by an Opener.
func (m *MemStorage) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Bytes returns a copy of the store contents.
func (m *MemStorage) Bytes() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]byte(nil), m.data...)
}

// Syncs returns how many times Sync was called.
func (m *MemStorage) Syncs() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.syncs
}

// Closed reports whether the last handle was closed.
func (m *MemStorage) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

func (m *MemStorage) reopen() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = false
}

// MemOpener serves MemStorage values keyed by path.
type MemOpener map[string]*MemStorage

// Open implements Opener. Unknown paths fail with os.ErrNotExist.
func (o MemOpener) Open(path string, _ Mode) (Storage, error) {
	m, ok := o[path]
	if !ok {
		return nil, fmt.Errorf("open %s: %w", path, fs.ErrNotExist)
	}
	m.reopen()
	return m, nil
}
