package project

import (
	"context"
	"time"

	"pipeline/internal/document"
	"pipeline/internal/logging"
)

// SaveEvent describes a committed save.
type SaveEvent struct {
	Location string
	Members  []string
	Document []byte
	SavedAt  time.Time
}

// SaveHook runs after a successful save. Hook errors are logged; the save
// itself has already been committed.
type SaveHook func(ctx context.Context, event SaveEvent) error

// AddSaveHook registers hook on an open project.
func (p *Project) AddSaveHook(hook SaveHook) {
	if hook != nil {
		p.hooks = append(p.hooks, hook)
	}
}

// Save flushes every dirty member into a copy of the document, rebuilds the
// concrete path index when steps changed and writes the whole document
// through the backend. Nothing in memory changes unless the write succeeds,
// so a failed save can simply be retried. Saving a clean project is a no-op.
func (p *Project) Save(ctx context.Context) error {
	if !p.loaded {
		return persistenceError("save", p.Location(), ErrNotLoaded)
	}
	if !p.edited {
		p.logger.Debug("save skipped, nothing changed")
		return nil
	}
	if err := ctx.Err(); err != nil {
		return persistenceError("save", p.Location(), err)
	}

	next := p.doc.Clone()
	paths := p.DirtyMembers()
	rebuild := p.indexStale
	for _, path := range paths {
		m := p.dirty[path]
		raw, err := m.Serialize()
		if err != nil {
			return p.saveFailed(err)
		}
		if err := next.SetRaw(path, raw); err != nil {
			return p.saveFailed(err)
		}
		if m.namespace != NamespaceConcept {
			rebuild = true
		}
	}
	if rebuild {
		if err := p.rebuildPathIndex(next); err != nil {
			return p.saveFailed(err)
		}
	}
	if err := document.Store(p.backend, next); err != nil {
		return p.saveFailed(err)
	}

	p.doc = next
	p.dirty = make(map[string]*Member)
	p.edited = false
	p.indexStale = false
	p.logger.Info("project saved",
		logging.String(logging.FieldProject, p.Location()),
		logging.Int("members", len(paths)),
	)

	event := SaveEvent{
		Location: p.Location(),
		Members:  paths,
		Document: next.Pretty(),
		SavedAt:  time.Now().UTC(),
	}
	for _, hook := range p.hooks {
		if err := hook(ctx, event); err != nil {
			logging.WarnWithContext(p.logger, "save hook failed", "save_hook_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "project saved, hook output missing"),
				logging.String(logging.FieldErrorHint, "check the history database"),
			)
		}
	}
	return nil
}

func (p *Project) saveFailed(err error) error {
	logging.ErrorWithContext(p.logger, "project save failed", "save_failed",
		logging.String(logging.FieldProject, p.Location()),
		logging.Error(err),
		logging.String(logging.FieldErrorKind, string(KindPersistence)),
		logging.String(logging.FieldErrorHint, "check permissions and free space, then save again"),
	)
	return persistenceError("save", p.Location(), err)
}

// rebuildPathIndex rewrites concrete.path from the live concrete steps.
func (p *Project) rebuildPathIndex(tree *document.Tree) error {
	if _, _, err := tree.Pop(pathIndexRoot); err != nil {
		return err
	}
	seen := map[string]int{}
	for _, m := range p.ConcreteSteps() {
		resolved := m.ConcretePath()
		if resolved == "" {
			continue
		}
		if other, dup := seen[resolved]; dup {
			logging.WarnWithContext(p.logger, "duplicate concrete path", "path_collision",
				logging.Member(m.Path()),
				logging.String("path", resolved),
				logging.Int("kept_id", other),
				logging.String(logging.FieldImpact, "path lookups return the first step"),
				logging.String(logging.FieldErrorHint, "rename or re-index one of the steps"),
			)
			continue
		}
		seen[resolved] = m.id
		if err := tree.Set(pathIndexKey(resolved), m.id); err != nil {
			return err
		}
	}
	return nil
}
