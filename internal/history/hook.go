package history

import (
	"context"
	"log/slog"

	"pipeline/internal/logging"
	"pipeline/internal/project"
)

// SaveHook records every committed project save and keeps at most
// maxEntries snapshots. A maxEntries of zero or less keeps everything.
func (s *Store) SaveHook(sessionID string, maxEntries int, logger *slog.Logger) project.SaveHook {
	if logger == nil {
		logger = logging.NewNop()
	}
	return func(ctx context.Context, event project.SaveEvent) error {
		entry, err := s.Record(ctx, Entry{
			SessionID: sessionID,
			Location:  event.Location,
			Members:   event.Members,
			Document:  event.Document,
			SavedAt:   event.SavedAt,
		})
		if err != nil {
			return err
		}
		logger.Debug("save recorded", logging.Any("seq", entry.Seq), logging.String("id", entry.ID))
		if maxEntries <= 0 {
			return nil
		}
		pruned, err := s.Prune(ctx, maxEntries)
		if err != nil {
			return err
		}
		if pruned > 0 {
			logger.Debug("history pruned", logging.Any("removed", pruned))
		}
		return nil
	}
}
