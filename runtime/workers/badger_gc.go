package workers

import (
	"context"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// BadgerGCWorker periodically rewrites badger value-log files whose
// discard ratio crosses the threshold. Badger never reclaims value-log
// space on its own; without this worker the append-only message log
// grows unbounded.
type BadgerGCWorker struct {
	db       *badger.DB
	log      *slog.Logger
	interval time.Duration
}

func NewBadgerGCWorker(db *badger.DB, log *slog.Logger, interval time.Duration) *BadgerGCWorker {
	return &BadgerGCWorker{db: db, log: log, interval: interval}
}

func (w *BadgerGCWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Context done, stopping value-log GC")
			return nil
		case <-ticker.C:
			// Rerun while there is something to collect; ErrNoRewrite
			// simply means this cycle found nothing.
			for {
				if err := w.db.RunValueLogGC(0.5); err != nil {
					if err != badger.ErrNoRewrite {
						w.log.Warn("Value-log GC failed", "error", err)
					}
					break
				}
				w.log.Debug("Value-log file collected")
			}
		}
	}
}
