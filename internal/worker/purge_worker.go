package worker

import (
	"context"
	"time"

	"github.com/prohmpiriya/queueme/internal/dto"
	"github.com/prohmpiriya/queueme/pkg/logger"
	"go.uber.org/zap"
)

// Purger deletes records older than a number of days; zero means the
// configured retention
type Purger interface {
	PurgeRecords(ctx context.Context, days int) (*dto.DeleteRecordsResponse, error)
}

// PurgeWorker applies the retention policy on a fixed interval
type PurgeWorker struct {
	purger   Purger
	interval time.Duration
	log      *logger.Logger
}

// NewPurgeWorker creates a purge worker. A non-positive interval disables it.
func NewPurgeWorker(purger Purger, interval time.Duration, log *logger.Logger) *PurgeWorker {
	if log == nil {
		log = logger.Get()
	}
	return &PurgeWorker{purger: purger, interval: interval, log: log}
}

// Run purges once per interval until ctx is done
func (w *PurgeWorker) Run(ctx context.Context) {
	if w.interval <= 0 {
		return
	}
	w.log.Info("Retention purge worker started", zap.Duration("interval", w.interval))

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info("Retention purge worker stopped")
			return
		case <-ticker.C:
			w.purgeOnce(ctx)
		}
	}
}

func (w *PurgeWorker) purgeOnce(ctx context.Context) {
	resp, err := w.purger.PurgeRecords(ctx, 0)
	if err != nil {
		w.log.Error("Retention purge failed", zap.Error(err))
		return
	}
	if resp.Deleted > 0 {
		w.log.Info("Retention purge completed", zap.Int64("deleted", resp.Deleted))
	}
}
