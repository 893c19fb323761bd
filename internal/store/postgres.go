package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/parts-cli/internal/db"
	"github.com/sells-group/parts-cli/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	part       JSONB NOT NULL,
	status     TEXT NOT NULL DEFAULT 'queued',
	result     JSONB,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS run_phases (
	id         TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	run_id     TEXT NOT NULL REFERENCES runs(id),
	name       TEXT NOT NULL,
	status     TEXT NOT NULL DEFAULT 'running',
	result     JSONB,
	started_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS catalogs (
	catalog_id        TEXT PRIMARY KEY,
	mpn               TEXT NOT NULL,
	brand             TEXT NOT NULL DEFAULT '',
	run_id            TEXT NOT NULL DEFAULT '',
	validation_status TEXT NOT NULL,
	attributes        JSONB NOT NULL,
	metadata          JSONB NOT NULL,
	created_at        TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS review_queue (
	id             TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	run_id         TEXT NOT NULL,
	mpn            TEXT NOT NULL,
	reason         TEXT NOT NULL,
	disagreements  JSONB NOT NULL DEFAULT '[]',
	notion_page_id TEXT NOT NULL DEFAULT '',
	resolved       BOOLEAN NOT NULL DEFAULT false,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_runs_part_number ON runs((part->>'part_number'));
CREATE INDEX IF NOT EXISTS idx_run_phases_run_id ON run_phases(run_id);
CREATE INDEX IF NOT EXISTS idx_catalogs_mpn ON catalogs(mpn);
CREATE INDEX IF NOT EXISTS idx_review_queue_open ON review_queue(created_at) WHERE NOT resolved;
`

// Migrate applies the schema in a single transaction.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	err := db.InTx(ctx, s.pool, func(tx pgx.Tx) error {
		_, execErr := tx.Exec(ctx, postgresMigration)
		return execErr
	})
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) CreateRun(ctx context.Context, part model.PartRequest) (*model.Run, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	partJSON, err := json.Marshal(part)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: marshal part")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO runs (id, part, status, created_at, updated_at) VALUES ($1, $2, $3, $4, $5)`,
		id, partJSON, string(model.RunStatusQueued), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert run")
	}

	return &model.Run{
		ID:        id,
		Part:      part,
		Status:    model.RunStatusQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (s *PostgresStore) UpdateRunStatus(ctx context.Context, runID string, status model.RunStatus) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE runs SET status = $1, updated_at = $2 WHERE id = $3`,
		string(status), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update run status %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("run not found: %s", runID)
	}
	return nil
}

func (s *PostgresStore) SaveRunResult(ctx context.Context, runID string, result *model.LookupResult) error {
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal result")
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE runs SET result = $1, status = $2, updated_at = $3 WHERE id = $4`,
		resultJSON, string(result.Outcome.RunStatus()), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: save run result %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("run not found: %s", runID)
	}
	return nil
}

func (s *PostgresStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, part, status, result, created_at, updated_at FROM runs WHERE id = $1`,
		runID,
	)
	r, err := scanPostgresRun(row)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get run %s", runID)
	}
	return r, nil
}

func (s *PostgresStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error) {
	query := `SELECT id, part, status, result, created_at, updated_at FROM runs WHERE true`
	args := []any{}
	argIdx := 1

	if filter.Status != "" {
		query += fmt.Sprintf(` AND status = $%d`, argIdx)
		args = append(args, string(filter.Status))
		argIdx++
	}
	if filter.PartNumber != "" {
		query += fmt.Sprintf(` AND part->>'part_number' = $%d`, argIdx)
		args = append(args, filter.PartNumber)
		argIdx++
	}
	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d`, argIdx)
	args = append(args, listLimit(filter.Limit))
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		r, err := scanPostgresRun(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan run")
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: list runs iterate")
}

func (s *PostgresStore) CreatePhase(ctx context.Context, runID string, name string) (*model.RunPhase, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO run_phases (id, run_id, name, status, started_at) VALUES ($1, $2, $3, $4, $5)`,
		id, runID, name, string(model.PhaseStatusRunning), now,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: insert phase for run %s", runID)
	}

	return &model.RunPhase{
		ID:        id,
		RunID:     runID,
		Name:      name,
		Status:    model.PhaseStatusRunning,
		StartedAt: now,
	}, nil
}

func (s *PostgresStore) CompletePhase(ctx context.Context, phaseID string, result *model.PhaseResult) error {
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal phase result")
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE run_phases SET status = $1, result = $2 WHERE id = $3`,
		string(result.Status), resultJSON, phaseID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: complete phase %s", phaseID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("phase not found: %s", phaseID)
	}
	return nil
}

func (s *PostgresStore) ListPhases(ctx context.Context, runID string) ([]model.RunPhase, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, run_id, name, status, result, started_at FROM run_phases WHERE run_id = $1 ORDER BY name`,
		runID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: list phases for run %s", runID)
	}
	defer rows.Close()

	var phases []model.RunPhase
	for rows.Next() {
		var p model.RunPhase
		var resultJSON []byte
		if err := rows.Scan(&p.ID, &p.RunID, &p.Name, &p.Status, &resultJSON, &p.StartedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan phase")
		}
		if resultJSON != nil {
			p.Result = &model.PhaseResult{}
			if err := json.Unmarshal(resultJSON, p.Result); err != nil {
				return nil, eris.Wrap(err, "postgres: unmarshal phase result")
			}
		}
		phases = append(phases, p)
	}
	return phases, eris.Wrap(rows.Err(), "postgres: list phases iterate")
}

func (s *PostgresStore) SaveCatalog(ctx context.Context, cat *model.Catalog) error {
	attrs, meta, err := marshalCatalog(cat)
	if err != nil {
		return err
	}
	if cat.CreatedAt.IsZero() {
		cat.CreatedAt = time.Now().UTC()
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO catalogs (catalog_id, mpn, brand, run_id, validation_status, attributes, metadata, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (catalog_id) DO UPDATE SET validation_status = $5, attributes = $6, metadata = $7`,
		cat.CatalogID, cat.MPN, cat.Brand, cat.RunID, cat.ValidationStatus, attrs, meta, cat.CreatedAt,
	)
	return eris.Wrapf(err, "postgres: save catalog %s", cat.CatalogID)
}

func (s *PostgresStore) GetCatalog(ctx context.Context, catalogID string) (*model.Catalog, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT catalog_id, mpn, brand, run_id, validation_status, attributes, metadata, created_at
		 FROM catalogs WHERE catalog_id = $1`,
		catalogID,
	)
	cat, err := scanPostgresCatalog(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, eris.Errorf("catalog not found: %s", catalogID)
		}
		return nil, eris.Wrapf(err, "postgres: get catalog %s", catalogID)
	}
	return cat, nil
}

func (s *PostgresStore) ListCatalogsByMPN(ctx context.Context, mpn string) ([]model.Catalog, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT catalog_id, mpn, brand, run_id, validation_status, attributes, metadata, created_at
		 FROM catalogs WHERE mpn = $1 ORDER BY created_at DESC`,
		mpn,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: list catalogs for %s", mpn)
	}
	defer rows.Close()

	var out []model.Catalog
	for rows.Next() {
		cat, err := scanPostgresCatalog(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan catalog")
		}
		out = append(out, *cat)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list catalogs iterate")
}

func (s *PostgresStore) EnqueueReview(ctx context.Context, item *model.ReviewItem) error {
	prepareReview(item)
	disagreements, err := json.Marshal(item.Disagreements)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal disagreements")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO review_queue (id, run_id, mpn, reason, disagreements, notion_page_id, resolved, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		item.ID, item.RunID, item.MPN, item.Reason, disagreements, item.NotionPageID, item.Resolved, item.CreatedAt,
	)
	return eris.Wrapf(err, "postgres: enqueue review for %s", item.MPN)
}

func (s *PostgresStore) GetReview(ctx context.Context, id string) (*model.ReviewItem, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, run_id, mpn, reason, disagreements, notion_page_id, resolved, created_at
		 FROM review_queue WHERE id = $1`,
		id,
	)
	item, err := scanPostgresReview(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, eris.Errorf("review item not found: %s", id)
		}
		return nil, eris.Wrapf(err, "postgres: get review %s", id)
	}
	return item, nil
}

func (s *PostgresStore) ListReviews(ctx context.Context, filter ReviewFilter) ([]model.ReviewItem, error) {
	query := `SELECT id, run_id, mpn, reason, disagreements, notion_page_id, resolved, created_at
	          FROM review_queue WHERE true`
	args := []any{}
	argIdx := 1

	if !filter.IncludeResolved {
		query += ` AND NOT resolved`
	}
	if filter.MPN != "" {
		query += fmt.Sprintf(` AND mpn = $%d`, argIdx)
		args = append(args, filter.MPN)
		argIdx++
	}
	query += fmt.Sprintf(` ORDER BY created_at ASC LIMIT $%d`, argIdx)
	args = append(args, listLimit(filter.Limit))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list reviews")
	}
	defer rows.Close()

	var items []model.ReviewItem
	for rows.Next() {
		item, err := scanPostgresReview(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan review item")
		}
		items = append(items, *item)
	}
	return items, eris.Wrap(rows.Err(), "postgres: list reviews iterate")
}

func (s *PostgresStore) ResolveReview(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `UPDATE review_queue SET resolved = true WHERE id = $1`, id)
	if err != nil {
		return eris.Wrapf(err, "postgres: resolve review %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("review item not found: %s", id)
	}
	return nil
}

func (s *PostgresStore) SetReviewPage(ctx context.Context, id, pageID string) error {
	tag, err := s.pool.Exec(ctx, `UPDATE review_queue SET notion_page_id = $1 WHERE id = $2`, pageID, id)
	if err != nil {
		return eris.Wrapf(err, "postgres: set review page %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("review item not found: %s", id)
	}
	return nil
}

func scanPostgresRun(row pgx.Row) (*model.Run, error) {
	var r model.Run
	var partJSON []byte
	var resultJSON []byte

	if err := row.Scan(&r.ID, &partJSON, &r.Status, &resultJSON, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(partJSON, &r.Part); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal part")
	}
	if resultJSON != nil {
		r.Result = &model.LookupResult{}
		if err := json.Unmarshal(resultJSON, r.Result); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal result")
		}
	}
	return &r, nil
}

func scanPostgresCatalog(row pgx.Row) (*model.Catalog, error) {
	var cat model.Catalog
	var attrs, meta []byte
	if err := row.Scan(&cat.CatalogID, &cat.MPN, &cat.Brand, &cat.RunID, &cat.ValidationStatus, &attrs, &meta, &cat.CreatedAt); err != nil {
		return nil, err
	}
	if err := unmarshalCatalog(&cat, attrs, meta); err != nil {
		return nil, err
	}
	return &cat, nil
}

func scanPostgresReview(row pgx.Row) (*model.ReviewItem, error) {
	var item model.ReviewItem
	var disagreements []byte
	if err := row.Scan(&item.ID, &item.RunID, &item.MPN, &item.Reason, &disagreements, &item.NotionPageID, &item.Resolved, &item.CreatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(disagreements, &item.Disagreements); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal disagreements")
	}
	return &item, nil
}
