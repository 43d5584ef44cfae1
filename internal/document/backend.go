package document

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"

	"pipeline/internal/fileutil"
)

// Backend reads and writes a whole document. Read returns an error wrapping
// fs.ErrNotExist when nothing has been written yet.
type Backend interface {
	Read() ([]byte, error)
	Write(data []byte) error
	Location() string
}

// FileBackend stores the document in a single file replaced atomically on write.
type FileBackend struct {
	Path string
}

// NewFileBackend returns a backend for path.
func NewFileBackend(path string) *FileBackend {
	return &FileBackend{Path: path}
}

func (b *FileBackend) Read() ([]byte, error) {
	data, err := os.ReadFile(b.Path)
	if err != nil {
		return nil, fmt.Errorf("read document %s: %w", b.Path, err)
	}
	return data, nil
}

func (b *FileBackend) Write(data []byte) error {
	if err := fileutil.WriteFileAtomic(b.Path, data, 0o644); err != nil {
		return fmt.Errorf("write document %s: %w", b.Path, err)
	}
	return nil
}

func (b *FileBackend) Location() string { return b.Path }

// MemoryBackend keeps the document in memory. FailWrites makes every Write
// fail, which tests use to exercise persistence errors.
type MemoryBackend struct {
	mu         sync.Mutex
	data       []byte
	written    bool
	writes     int
	FailWrites error
}

// NewMemoryBackend returns a backend seeded with data; nil means empty.
func NewMemoryBackend(data []byte) *MemoryBackend {
	return &MemoryBackend{data: append([]byte(nil), data...), written: data != nil}
}

func (b *MemoryBackend) Read() ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.written {
		return nil, fmt.Errorf("read memory document: %w", fs.ErrNotExist)
	}
	return append([]byte(nil), b.data...), nil
}

func (b *MemoryBackend) Write(data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.FailWrites != nil {
		return b.FailWrites
	}
	b.data = append([]byte(nil), data...)
	b.written = true
	b.writes++
	return nil
}

func (b *MemoryBackend) Location() string { return "memory" }

// Writes reports how many successful writes happened.
func (b *MemoryBackend) Writes() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.writes
}

// Load reads a backend into a tree. A missing document yields an empty tree.
func Load(b Backend) (*Tree, bool, error) {
	data, err := b.Read()
	if errors.Is(err, fs.ErrNotExist) {
		return New(), false, nil
	}
	if err != nil {
		return nil, false, err
	}
	tree, err := Parse(data)
	if err != nil {
		return nil, true, fmt.Errorf("parse document %s: %w", b.Location(), err)
	}
	return tree, true, nil
}

// Store writes the pretty encoding of tree to the backend.
func Store(b Backend, tree *Tree) error {
	return b.Write(tree.Pretty())
}
