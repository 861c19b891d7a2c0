// Package postgres stores events and the entity directory in PostgreSQL.
package postgres

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/okian/gympulse/internal/adapters/repository"
	"github.com/okian/gympulse/internal/domain/model"
	"github.com/okian/gympulse/pkg/logger"
	"github.com/okian/gympulse/pkg/metrics"
)

const (
	insertEvent = `
		INSERT INTO events (tenant_id, id, type, subject_id, occurred_at, attributes)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (tenant_id, id) DO NOTHING`

	selectEvents = `
		SELECT id, type, subject_id, occurred_at, attributes
		FROM events
		WHERE tenant_id = $1 AND occurred_at >= $2 AND occurred_at < $3
		ORDER BY occurred_at, seq`

	upsertSubject = `
		INSERT INTO subjects (tenant_id, id, source, assigned_rep_id)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (tenant_id, id) DO UPDATE SET
			source = CASE WHEN EXCLUDED.source = '' THEN subjects.source ELSE EXCLUDED.source END,
			assigned_rep_id = CASE
				WHEN EXCLUDED.assigned_rep_id = '' THEN subjects.assigned_rep_id
				WHEN $5 AND subjects.assigned_rep_id <> '' THEN subjects.assigned_rep_id
				ELSE EXCLUDED.assigned_rep_id
			END`

	upsertRepresentative = `
		INSERT INTO representatives (tenant_id, id, display_name)
		VALUES ($1, $2, $3)
		ON CONFLICT (tenant_id, id) DO UPDATE SET
			display_name = CASE WHEN EXCLUDED.display_name = '' THEN representatives.display_name ELSE EXCLUDED.display_name END`

	selectSubjects = `SELECT id, source, assigned_rep_id FROM subjects WHERE tenant_id = $1`

	selectSubject = `SELECT source, assigned_rep_id FROM subjects WHERE tenant_id = $1 AND id = $2`

	selectRepresentatives = `SELECT id, display_name FROM representatives WHERE tenant_id = $1 ORDER BY seq`

	countEvents = `SELECT count(*) FROM events`
)

// Store implements repository.Store on a pgx pool.
type Store struct {
	pool *pgxpool.Pool
	log  logger.Logger
}

var _ repository.Store = (*Store)(nil)

// Open connects to dsn, checks the connection and, unless disabled, applies
// the embedded migrations.
func Open(ctx context.Context, dsn string, opts ...Option) (*Store, error) {
	s := defaults()
	for _, opt := range opts {
		opt(&s)
	}

	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	poolConfig.MaxConns = s.maxConns
	poolConfig.MinConns = s.minConns
	poolConfig.MaxConnLifetime = s.maxConnLifetime
	poolConfig.MaxConnIdleTime = s.maxConnIdleTime
	poolConfig.HealthCheckPeriod = s.healthCheck

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	st := &Store{pool: pool, log: s.log}
	if s.migrate {
		applied, err := Migrate(ctx, pool)
		if err != nil {
			pool.Close()
			return nil, err
		}
		if st.log != nil && len(applied) > 0 {
			st.log.Info(ctx, "database migrated", logger.Any("versions", applied))
		}
	}
	return st, nil
}

// NewStore wraps an existing pool. The schema must already be migrated.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Append implements repository.Appender. The event row and its directory
// projection are written in one transaction.
func (s *Store) Append(ctx context.Context, e model.Event) (bool, error) {
	start := time.Now()
	defer func() {
		metrics.RecordStoreAppendLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()

	if err := repository.CheckEvent(e); err != nil {
		return false, err
	}
	attrs, err := json.Marshal(e.Attributes())
	if err != nil {
		return false, fmt.Errorf("encode attributes: %w", err)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx, insertEvent, e.TenantID, e.ID, string(e.Type), e.SubjectID, e.OccurredAt.UTC(), attrs)
	if err != nil {
		return false, fmt.Errorf("insert event: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return false, nil
	}

	p := repository.Project(e)
	if c := p.Subject; c != nil {
		if _, err := tx.Exec(ctx, upsertSubject, c.TenantID, c.ID, c.Source, c.AssignedRepID, c.KeepAssigned); err != nil {
			return false, fmt.Errorf("project subject: %w", err)
		}
	}
	if r := p.Representative; r != nil {
		if _, err := tx.Exec(ctx, upsertRepresentative, r.TenantID, r.ID, r.DisplayName); err != nil {
			return false, fmt.Errorf("project representative: %w", err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return false, err
	}
	return true, nil
}

// Fetch implements repository.EventSource. Rows whose type is no longer
// known are skipped.
func (s *Store) Fetch(ctx context.Context, tenantID string, start, end time.Time) ([]model.Event, error) {
	began := time.Now()
	defer func() {
		metrics.RecordStoreFetchLatency(float64(time.Since(began).Microseconds()) / 1000)
	}()

	rows, err := s.pool.Query(ctx, selectEvents, tenantID, start.UTC(), end.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Event{}
	for rows.Next() {
		var (
			id, typ, subject string
			occurredAt       time.Time
			raw              []byte
		)
		if err := rows.Scan(&id, &typ, &subject, &occurredAt, &raw); err != nil {
			return nil, err
		}
		attrs, err := decodeAttributes(raw)
		if err != nil {
			return nil, fmt.Errorf("event %s: %w", id, err)
		}
		e, err := model.DecodeEvent(id, tenantID, model.EventType(typ), occurredAt.UTC(), subject, attrs)
		if err != nil {
			if s.log != nil {
				s.log.Warn(ctx, "skipping stored event", logger.String("event_id", id), logger.Error(err))
			}
			continue
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// decodeAttributes keeps numbers as json.Number so amounts survive exactly.
func decodeAttributes(raw []byte) (model.Attributes, error) {
	attrs := model.Attributes{}
	if len(raw) == 0 {
		return attrs, nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&attrs); err != nil {
		return nil, err
	}
	return attrs, nil
}

// Subjects implements repository.Directory.
func (s *Store) Subjects(ctx context.Context, tenantID string) (map[string]model.Subject, error) {
	rows, err := s.pool.Query(ctx, selectSubjects, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]model.Subject)
	for rows.Next() {
		subj := model.Subject{TenantID: tenantID}
		if err := rows.Scan(&subj.ID, &subj.Source, &subj.AssignedRepID); err != nil {
			return nil, err
		}
		out[subj.ID] = subj
	}
	return out, rows.Err()
}

// ResolveSubject implements repository.Directory.
func (s *Store) ResolveSubject(ctx context.Context, tenantID, id string) (model.Subject, bool, error) {
	subj := model.Subject{ID: id, TenantID: tenantID}
	err := s.pool.QueryRow(ctx, selectSubject, tenantID, id).Scan(&subj.Source, &subj.AssignedRepID)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Subject{}, false, nil
	}
	if err != nil {
		return model.Subject{}, false, err
	}
	return subj, true, nil
}

// Representatives implements repository.Directory.
func (s *Store) Representatives(ctx context.Context, tenantID string) ([]model.Representative, error) {
	rows, err := s.pool.Query(ctx, selectRepresentatives, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Representative{}
	for rows.Next() {
		r := model.Representative{TenantID: tenantID}
		if err := rows.Scan(&r.ID, &r.DisplayName); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Len implements repository.Store.
func (s *Store) Len(ctx context.Context) (int64, error) {
	var n int64
	err := s.pool.QueryRow(ctx, countEvents).Scan(&n)
	return n, err
}

// Close releases the pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}
