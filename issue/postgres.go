// Package issue writes batches of definition updates to the Postgres
// definitions store. One batch is one transaction; statements are idempotent
// upserts since issuance tasks complete out of order and the filter cache
// only approximately suppresses repeats.
package issue

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/telemetrydev/propdefs/settings"
	"github.com/telemetrydev/propdefs/types"
)

const (
	insertEventDefinition = `
INSERT INTO posthog_eventdefinition (id, name, volume_30_day, query_usage_30_day, team_id, last_seen_at, created_at)
VALUES ($1, $2, NULL, NULL, $3, NOW(), NOW())
ON CONFLICT (team_id, name)
DO UPDATE SET last_seen_at = NOW()`

	insertPropertyDefinition = `
INSERT INTO posthog_propertydefinition (id, name, type, is_numerical, team_id, property_type)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (team_id, name, type)
DO UPDATE SET property_type = EXCLUDED.property_type
WHERE posthog_propertydefinition.property_type IS NULL`

	insertEventProperty = `
INSERT INTO posthog_eventproperty (event, property, team_id)
VALUES ($1, $2, $3)
ON CONFLICT DO NOTHING`
)

type PostgresIssuer struct {
	pool *pgxpool.Pool
}

func NewPostgresIssuer(ctx context.Context, cfg *settings.PDDatabase) (*PostgresIssuer, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.Url)
	if err != nil {
		return nil, fmt.Errorf("bad database url: %w", err)
	}
	poolCfg.MaxConns = cfg.MaxConns
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, err
	}
	return &PostgresIssuer{pool: pool}, nil
}

// Issue writes one batch in one transaction. Errors surface to the caller
// as a task-level failure; retry policy lives with the orchestration layer.
func (i *PostgresIssuer) Issue(ctx context.Context, batch []types.Update) error {
	if len(batch) == 0 {
		return nil
	}

	queued := &pgx.Batch{}
	for _, update := range batch {
		queueUpdate(queued, update)
	}

	tx, err := i.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin issue transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	results := tx.SendBatch(ctx, queued)
	for n := 0; n < queued.Len(); n++ {
		if _, err := results.Exec(); err != nil {
			results.Close()
			return fmt.Errorf("issue update: %w", err)
		}
	}
	if err := results.Close(); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit issue transaction: %w", err)
	}
	settings.Logger.Debug().Int("batch_size", len(batch)).Msg("issued batch")
	return nil
}

func queueUpdate(queued *pgx.Batch, update types.Update) {
	switch update.Kind {
	case types.KindEvent:
		queued.Queue(insertEventDefinition, uuid.New(), update.Event, update.TeamID)
	case types.KindProperty:
		queued.Queue(insertPropertyDefinition,
			uuid.New(), update.Property, parentCode(update.Parent), update.IsNumerical, update.TeamID, nullableType(update.ValueType))
	case types.KindEventProperty:
		queued.Queue(insertEventProperty, update.Event, update.Property, update.TeamID)
	}
}

// property definition scope as stored: 1 = event, 2 = person
func parentCode(parent types.PropertyParent) int16 {
	if parent == types.ParentPerson {
		return 2
	}
	return 1
}

func nullableType(t types.PropertyValueType) *string {
	if t == "" {
		return nil
	}
	s := string(t)
	return &s
}

func (i *PostgresIssuer) Close() {
	i.pool.Close()
}
