// Package pipeline contains the ingestion-to-issuance core: parallel
// ingestion workers feeding a bounded handoff channel, and the single batch
// coordinator that drains it into size- and time-bounded batches dispatched
// under a global concurrency ceiling.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/telemetrydev/propdefs/events/provider"
	"github.com/telemetrydev/propdefs/filter"
	"github.com/telemetrydev/propdefs/prom"
	"github.com/telemetrydev/propdefs/settings"
	"github.com/telemetrydev/propdefs/types"
)

// a compaction cycle flushes when it is this old even if under size
const compactionMaxAge = 10 * time.Second

// Worker converts queue messages into deduplicated updates and forwards them
// to the coordinator. Workers share only the queue, the filter cache and the
// handoff channel; the compaction set is private to one worker.
type Worker struct {
	consumer            provider.ConsumerInterface
	out                 chan<- types.Update
	seen                filter.Filter
	skipThreshold       int
	compactionBatchSize int
	compactionMaxAge    time.Duration
}

func NewWorker(consumer provider.ConsumerInterface, out chan<- types.Update, seen filter.Filter, cfg *settings.PDPipeline) *Worker {
	return &Worker{
		consumer:            consumer,
		out:                 out,
		seen:                seen,
		skipThreshold:       cfg.SkipThreshold,
		compactionBatchSize: cfg.CompactionBatchSize,
		compactionMaxAge:    compactionMaxAge,
	}
}

// Run loops until the consumer breaks or the context ends. The returned
// error is fatal: a broken consumer connection is not locally recoverable
// and the process is expected to die loudly and be restarted.
func (w *Worker) Run(ctx context.Context) error {
	compaction := make(map[string]types.Update, w.compactionBatchSize)
	lastFlush := time.Now()

	for {
		msg, err := w.consumer.Recv(ctx)
		if err != nil {
			return fmt.Errorf("queue receive: %w", err)
		}

		// malformed or uninteresting messages are expected traffic
		event, ok := types.MessageToEvent(msg.Value)
		if !ok {
			continue
		}
		prom.EventsReceived.Inc()

		updates := event.IntoUpdates(w.skipThreshold)
		if len(updates) == 0 {
			// fan-out past the skip threshold
			prom.EventsSkipped.Inc()
			continue
		}
		prom.UpdatesSeen.Add(float64(len(updates)))
		prom.UpdatesPerEvent.Observe(float64(len(updates)))

		for _, update := range updates {
			key := string(update.Key())
			if _, dup := compaction[key]; dup {
				prom.CompactedUpdates.Inc()
				continue
			}
			compaction[key] = update

			if len(compaction) >= w.compactionBatchSize || time.Since(lastFlush) > w.compactionMaxAge {
				lastFlush = time.Now()
				if err := w.flush(ctx, compaction); err != nil {
					return err
				}
			}
		}
	}
}

// flush drains the compaction set through the shared filter cache into the
// handoff channel. Drain order is unspecified; cross-cycle ordering is not a
// guarantee this pipeline provides.
func (w *Worker) flush(ctx context.Context, compaction map[string]types.Update) error {
	for key, update := range compaction {
		delete(compaction, key)

		if w.seen.CheckAndSet(update) {
			prom.UpdatesFilteredByCache.Inc()
			continue
		}

		// Optimistic insert happened above, before the downstream write is
		// confirmed. A send on a closed channel panics, which is the
		// intended fatal behaviour: never drop updates silently.
		select {
		case w.out <- update:
		default:
			// channel full: block this worker (and transitively the queue
			// consumer) instead of dropping
			settings.Logger.Warn().Msg("worker blocked")
			prom.WorkerBlocked.Inc()
			select {
			case w.out <- update:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	return nil
}
