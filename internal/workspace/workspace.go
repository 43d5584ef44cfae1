package workspace

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"pipeline/internal/document"
	"pipeline/internal/fileutil"
)

// Layout of a project root.
const (
	PipelineDir = ".pipeline"
	ProjectFile = "project.json"
	CommandsDir = "commands"
	LogFile     = "log.log"
	LockFile    = "project.lock"
	HistoryFile = "history.db"
)

var (
	// ErrNotProject is returned when no .pipeline folder is found.
	ErrNotProject = errors.New("not a pipeline project")
	// ErrLocked is returned when another process holds the project lock.
	ErrLocked = errors.New("project is locked by another process")
)

//go:embed seed/*
var seedFS embed.FS

// Workspace resolves the files of one project on disk.
type Workspace struct {
	root string
}

// New returns the workspace rooted at root without touching the disk.
func New(root string) (*Workspace, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve project root: %w", err)
	}
	return &Workspace{root: abs}, nil
}

// Find walks up from start to the first folder holding a .pipeline folder.
func Find(start string) (*Workspace, error) {
	dir, err := filepath.Abs(start)
	if err != nil {
		return nil, fmt.Errorf("resolve project root: %w", err)
	}
	for {
		info, err := os.Stat(filepath.Join(dir, PipelineDir))
		if err == nil && info.IsDir() {
			return &Workspace{root: dir}, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return nil, fmt.Errorf("%w: no %s folder above %s", ErrNotProject, PipelineDir, start)
		}
		dir = parent
	}
}

// Init creates the project layout under root: the .pipeline folder, an empty
// document and a commands folder seeded with an example script. Existing
// files are left alone, so Init is safe to repeat.
func Init(root string) (*Workspace, error) {
	ws, err := New(root)
	if err != nil {
		return nil, err
	}
	for _, dir := range []string{ws.PipelineDir(), ws.CommandsDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create %s: %w", dir, err)
		}
	}
	if !exists(ws.ProjectFile()) {
		if err := fileutil.WriteFileAtomic(ws.ProjectFile(), []byte("{}\n"), 0o644); err != nil {
			return nil, fmt.Errorf("create project document: %w", err)
		}
	}
	if err := ws.seedCommands(); err != nil {
		return nil, err
	}
	return ws, nil
}

func (w *Workspace) seedCommands() error {
	return fs.WalkDir(seedFS, "seed", func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		target := filepath.Join(w.CommandsDir(), d.Name())
		if exists(target) {
			return nil
		}
		data, err := seedFS.ReadFile(path)
		if err != nil {
			return err
		}
		if err := fileutil.WriteFileAtomic(target, data, 0o644); err != nil {
			return fmt.Errorf("seed %s: %w", d.Name(), err)
		}
		return nil
	})
}

func (w *Workspace) Root() string        { return w.root }
func (w *Workspace) PipelineDir() string { return filepath.Join(w.root, PipelineDir) }
func (w *Workspace) ProjectFile() string { return filepath.Join(w.PipelineDir(), ProjectFile) }
func (w *Workspace) CommandsDir() string { return filepath.Join(w.root, CommandsDir) }
func (w *Workspace) LogFile() string     { return filepath.Join(w.PipelineDir(), LogFile) }
func (w *Workspace) LockFile() string    { return filepath.Join(w.PipelineDir(), LockFile) }
func (w *Workspace) HistoryFile() string { return filepath.Join(w.PipelineDir(), HistoryFile) }

// Initialized reports whether the .pipeline folder exists.
func (w *Workspace) Initialized() bool {
	info, err := os.Stat(w.PipelineDir())
	return err == nil && info.IsDir()
}

// Backend returns the file backend of the project document.
func (w *Workspace) Backend() *document.FileBackend {
	return document.NewFileBackend(w.ProjectFile())
}

// ImportScript copies src into the commands folder and returns the reference
// to store in a commands property.
func (w *Workspace) ImportScript(src string) (string, error) {
	name := filepath.Base(src)
	if err := fileutil.CopyFile(src, filepath.Join(w.CommandsDir(), name), 0o644); err != nil {
		return "", fmt.Errorf("import script: %w", err)
	}
	return name, nil
}

// Lock is the single-writer lock of a project.
type Lock struct {
	lock *flock.Flock
}

// Lock takes the project lock without waiting.
func (w *Workspace) Lock() (*Lock, error) {
	if !w.Initialized() {
		return nil, fmt.Errorf("%w: %s", ErrNotProject, w.root)
	}
	lock := flock.New(w.LockFile())
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrLocked, w.LockFile())
	}
	return &Lock{lock: lock}, nil
}

// Unlock releases the lock. It is safe to call on a nil Lock.
func (l *Lock) Unlock() error {
	if l == nil || l.lock == nil {
		return nil
	}
	return l.lock.Unlock()
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
