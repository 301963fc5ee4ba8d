package pipeline

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/semaphore"

	"github.com/telemetrydev/propdefs/filter"
	"github.com/telemetrydev/propdefs/health"
	"github.com/telemetrydev/propdefs/prom"
	"github.com/telemetrydev/propdefs/settings"
	"github.com/telemetrydev/propdefs/types"
)

// ErrChannelClosed means the handoff channel producers are gone; the
// coordinator cannot make progress and the process should restart.
var ErrChannelClosed = errors.New("handoff channel closed")

// Issuer is the downstream persistence transaction for one batch. Failures
// are task-level and not retried here; updates must be idempotent per item
// since issuance tasks complete out of order.
type Issuer interface {
	Issue(ctx context.Context, batch []types.Update) error
}

// Coordinator assembles batches from the handoff channel and dispatches them
// for issuance, bounded by the transaction permit pool.
type Coordinator struct {
	in             <-chan types.Update
	issuer         Issuer
	seen           filter.Filter
	liveness       *health.Handle
	limit          *semaphore.Weighted
	held           atomic.Int64
	batchSize      int
	maxIssuePeriod time.Duration
	// decision-point tick for the time-bound check; the tick never discards data
	tick time.Duration
}

func NewCoordinator(in <-chan types.Update, issuer Issuer, seen filter.Filter, liveness *health.Handle, cfg *settings.PDPipeline) *Coordinator {
	return &Coordinator{
		in:             in,
		issuer:         issuer,
		seen:           seen,
		liveness:       liveness,
		limit:          semaphore.NewWeighted(int64(cfg.MaxConcurrentTransactions)),
		batchSize:      cfg.BatchSize,
		maxIssuePeriod: time.Duration(cfg.MaxIssuePeriodSeconds) * time.Second,
		tick:           time.Second,
	}
}

// Run is the main control loop. It is terminal only on unrecoverable receive
// failure (or context end); it never waits for a dispatched issuance task.
func (c *Coordinator) Run(ctx context.Context) error {
	for {
		batch, err := c.nextBatch(ctx)
		if err != nil {
			return err
		}

		prom.CacheConsumed.Set(float64(c.seen.Len()))
		prom.TransactionLimitSaturation.Set(float64(c.held.Load()))

		// We unconditionally wait to acquire a transaction permit - this is
		// the backpressure mechanism. If we fail to acquire one for long
		// enough we fail liveness checks, but that implies our in-flight
		// transactions have stalled, at which point store health is the
		// real concern.
		permitWait := prometheus.NewTimer(prom.PermitWaitTime)
		if err := c.limit.Acquire(ctx, 1); err != nil {
			return err
		}
		permitWait.ObserveDuration()
		c.held.Add(1)

		go c.issue(ctx, batch)
	}
}

// issue owns one permit and one batch for its lifetime.
func (c *Coordinator) issue(ctx context.Context, batch []types.Update) {
	defer func() {
		c.held.Add(-1)
		c.limit.Release(1)
	}()
	issueTime := prometheus.NewTimer(prom.UpdateIssueTime)
	defer issueTime.ObserveDuration()
	if err := c.issuer.Issue(ctx, batch); err != nil {
		prom.IssueFailures.Inc()
		settings.Logger.Error().Err(err).Int("batch_size", len(batch)).Msg("issuance failed")
	}
}

func (c *Coordinator) nextBatch(ctx context.Context) ([]types.Update, error) {
	batch := make([]types.Update, 0, c.batchSize)
	start := time.Now()
	acquire := prometheus.NewTimer(prom.BatchAcquireTime)
	defer acquire.ObserveDuration()
	ticker := time.NewTicker(c.tick)
	defer ticker.Stop()

	for len(batch) < c.batchSize {
		c.liveness.ReportHealthy()

		// race the receive against the tick so an under-full batch can
		// still be issued once the time budget runs out
		select {
		case update, ok := <-c.in:
			if !ok {
				return nil, ErrChannelClosed
			}
			batch = append(batch, update)
			prom.RecvDequeued.Set(float64(1 + c.drain(&batch)))
		case <-ticker.C:
			if time.Since(start) > c.maxIssuePeriod {
				settings.Logger.Warn().Int("size", len(batch)).Msg("forcing small batch due to time limit")
				prom.ForcedSmallBatch.Inc()
				return batch, nil
			}
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return batch, nil
}

// drain appends whatever is already buffered, without blocking, up to the
// batch target. Returns the number of updates taken.
func (c *Coordinator) drain(batch *[]types.Update) int {
	taken := 0
	for len(*batch) < c.batchSize {
		select {
		case update, ok := <-c.in:
			if !ok {
				// closed mid-drain; the outer receive reports it as fatal
				return taken
			}
			*batch = append(*batch, update)
			taken++
		default:
			return taken
		}
	}
	return taken
}
