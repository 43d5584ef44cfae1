package testsupport

import (
	"log/slog"
	"testing"

	"pipeline/internal/document"
	"pipeline/internal/project"
)

// NewProject opens an empty in-memory project logging into a capture.
func NewProject(t testing.TB, opts ...project.Option) (*project.Project, *document.MemoryBackend, *LogCapture) {
	t.Helper()

	logger, capture := CaptureLogger()
	backend := document.NewMemoryBackend(nil)
	p, err := project.Open(backend, append([]project.Option{project.WithLogger(logger)}, opts...)...)
	if err != nil {
		t.Fatalf("open project: %v", err)
	}
	return p, backend, capture
}

// Reopen loads the last saved document of backend into a fresh project.
func Reopen(t testing.TB, backend document.Backend, logger *slog.Logger, opts ...project.Option) *project.Project {
	t.Helper()

	p, err := project.Open(backend, append([]project.Option{project.WithLogger(logger)}, opts...)...)
	if err != nil {
		t.Fatalf("reopen project: %v", err)
	}
	return p
}
