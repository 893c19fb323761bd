package store

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/parts-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY,
	part       TEXT NOT NULL,
	status     TEXT NOT NULL DEFAULT 'queued',
	result     TEXT,
	created_at DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS run_phases (
	id         TEXT PRIMARY KEY,
	run_id     TEXT NOT NULL REFERENCES runs(id),
	name       TEXT NOT NULL,
	status     TEXT NOT NULL DEFAULT 'running',
	result     TEXT,
	started_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS catalogs (
	catalog_id        TEXT PRIMARY KEY,
	mpn               TEXT NOT NULL,
	brand             TEXT NOT NULL DEFAULT '',
	run_id            TEXT NOT NULL DEFAULT '',
	validation_status TEXT NOT NULL,
	attributes        TEXT NOT NULL,
	metadata          TEXT NOT NULL,
	created_at        DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS review_queue (
	id             TEXT PRIMARY KEY,
	run_id         TEXT NOT NULL,
	mpn            TEXT NOT NULL,
	reason         TEXT NOT NULL,
	disagreements  TEXT NOT NULL DEFAULT '[]',
	notion_page_id TEXT NOT NULL DEFAULT '',
	resolved       INTEGER NOT NULL DEFAULT 0,
	created_at     DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_run_phases_run_id ON run_phases(run_id);
CREATE INDEX IF NOT EXISTS idx_catalogs_mpn ON catalogs(mpn);
CREATE INDEX IF NOT EXISTS idx_review_queue_resolved ON review_queue(resolved);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateRun(ctx context.Context, part model.PartRequest) (*model.Run, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	partJSON, err := json.Marshal(part)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal part")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO runs (id, part, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		id, string(partJSON), string(model.RunStatusQueued), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert run")
	}

	return &model.Run{
		ID:        id,
		Part:      part,
		Status:    model.RunStatusQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (s *SQLiteStore) UpdateRunStatus(ctx context.Context, runID string, status model.RunStatus) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update run status %s", runID)
	}
	return checkRowsAffected(res, "run", runID)
}

// SaveRunResult stores the result and sets the run's terminal status from
// the outcome.
func (s *SQLiteStore) SaveRunResult(ctx context.Context, runID string, result *model.LookupResult) error {
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal result")
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET result = ?, status = ?, updated_at = ? WHERE id = ?`,
		string(resultJSON), string(result.Outcome.RunStatus()), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: save run result %s", runID)
	}
	return checkRowsAffected(res, "run", runID)
}

func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, part, status, result, created_at, updated_at FROM runs WHERE id = ?`,
		runID,
	)
	return scanRun(row)
}

func (s *SQLiteStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error) {
	query := `SELECT id, part, status, result, created_at, updated_at FROM runs WHERE 1=1`
	var args []any

	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	if filter.PartNumber != "" {
		query += ` AND json_extract(part, '$.part_number') = ?`
		args = append(args, filter.PartNumber)
	}
	query += ` ORDER BY created_at DESC LIMIT ?`
	args = append(args, listLimit(filter.Limit))

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close() //nolint:errcheck

	var runs []model.Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: list runs iterate")
}

func (s *SQLiteStore) CreatePhase(ctx context.Context, runID string, name string) (*model.RunPhase, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO run_phases (id, run_id, name, status, started_at) VALUES (?, ?, ?, ?, ?)`,
		id, runID, name, string(model.PhaseStatusRunning), now,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: insert phase for run %s", runID)
	}

	return &model.RunPhase{
		ID:        id,
		RunID:     runID,
		Name:      name,
		Status:    model.PhaseStatusRunning,
		StartedAt: now,
	}, nil
}

func (s *SQLiteStore) CompletePhase(ctx context.Context, phaseID string, result *model.PhaseResult) error {
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal phase result")
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE run_phases SET status = ?, result = ? WHERE id = ?`,
		string(result.Status), string(resultJSON), phaseID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: complete phase %s", phaseID)
	}
	return checkRowsAffected(res, "phase", phaseID)
}

func (s *SQLiteStore) ListPhases(ctx context.Context, runID string) ([]model.RunPhase, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, run_id, name, status, result, started_at FROM run_phases WHERE run_id = ? ORDER BY name`,
		runID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: list phases for run %s", runID)
	}
	defer rows.Close() //nolint:errcheck

	var phases []model.RunPhase
	for rows.Next() {
		var p model.RunPhase
		var resultJSON sql.NullString
		if err := rows.Scan(&p.ID, &p.RunID, &p.Name, &p.Status, &resultJSON, &p.StartedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan phase")
		}
		if resultJSON.Valid {
			p.Result = &model.PhaseResult{}
			if err := json.Unmarshal([]byte(resultJSON.String), p.Result); err != nil {
				return nil, eris.Wrap(err, "sqlite: unmarshal phase result")
			}
		}
		phases = append(phases, p)
	}
	return phases, eris.Wrap(rows.Err(), "sqlite: list phases iterate")
}

func (s *SQLiteStore) SaveCatalog(ctx context.Context, cat *model.Catalog) error {
	attrs, meta, err := marshalCatalog(cat)
	if err != nil {
		return err
	}
	if cat.CreatedAt.IsZero() {
		cat.CreatedAt = time.Now().UTC()
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO catalogs (catalog_id, mpn, brand, run_id, validation_status, attributes, metadata, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (catalog_id) DO UPDATE SET
		   validation_status = excluded.validation_status,
		   attributes = excluded.attributes,
		   metadata = excluded.metadata`,
		cat.CatalogID, cat.MPN, cat.Brand, cat.RunID, cat.ValidationStatus,
		string(attrs), string(meta), cat.CreatedAt,
	)
	return eris.Wrapf(err, "sqlite: save catalog %s", cat.CatalogID)
}

func (s *SQLiteStore) GetCatalog(ctx context.Context, catalogID string) (*model.Catalog, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT catalog_id, mpn, brand, run_id, validation_status, attributes, metadata, created_at
		 FROM catalogs WHERE catalog_id = ?`,
		catalogID,
	)
	cat, err := scanCatalog(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Errorf("catalog not found: %s", catalogID)
	}
	return cat, err
}

func (s *SQLiteStore) ListCatalogsByMPN(ctx context.Context, mpn string) ([]model.Catalog, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT catalog_id, mpn, brand, run_id, validation_status, attributes, metadata, created_at
		 FROM catalogs WHERE mpn = ? ORDER BY created_at DESC`,
		mpn,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: list catalogs for %s", mpn)
	}
	defer rows.Close() //nolint:errcheck

	var out []model.Catalog
	for rows.Next() {
		cat, err := scanCatalog(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *cat)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list catalogs iterate")
}

// EnqueueReview inserts item, filling in its ID and CreatedAt when unset.
func (s *SQLiteStore) EnqueueReview(ctx context.Context, item *model.ReviewItem) error {
	prepareReview(item)
	disagreements, err := json.Marshal(item.Disagreements)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal disagreements")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO review_queue (id, run_id, mpn, reason, disagreements, notion_page_id, resolved, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		item.ID, item.RunID, item.MPN, item.Reason, string(disagreements), item.NotionPageID, item.Resolved, item.CreatedAt,
	)
	return eris.Wrapf(err, "sqlite: enqueue review for %s", item.MPN)
}

func (s *SQLiteStore) GetReview(ctx context.Context, id string) (*model.ReviewItem, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, run_id, mpn, reason, disagreements, notion_page_id, resolved, created_at
		 FROM review_queue WHERE id = ?`,
		id,
	)
	item, err := scanReview(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Errorf("review item not found: %s", id)
	}
	return item, err
}

func (s *SQLiteStore) ListReviews(ctx context.Context, filter ReviewFilter) ([]model.ReviewItem, error) {
	query := `SELECT id, run_id, mpn, reason, disagreements, notion_page_id, resolved, created_at
	          FROM review_queue WHERE 1=1`
	var args []any

	if !filter.IncludeResolved {
		query += ` AND resolved = 0`
	}
	if filter.MPN != "" {
		query += ` AND mpn = ?`
		args = append(args, filter.MPN)
	}
	query += ` ORDER BY created_at ASC LIMIT ?`
	args = append(args, listLimit(filter.Limit))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list reviews")
	}
	defer rows.Close() //nolint:errcheck

	var items []model.ReviewItem
	for rows.Next() {
		item, err := scanReview(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *item)
	}
	return items, eris.Wrap(rows.Err(), "sqlite: list reviews iterate")
}

func (s *SQLiteStore) ResolveReview(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE review_queue SET resolved = 1 WHERE id = ?`, id)
	if err != nil {
		return eris.Wrapf(err, "sqlite: resolve review %s", id)
	}
	return checkRowsAffected(res, "review item", id)
}

func (s *SQLiteStore) SetReviewPage(ctx context.Context, id, pageID string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE review_queue SET notion_page_id = ? WHERE id = ?`, pageID, id)
	if err != nil {
		return eris.Wrapf(err, "sqlite: set review page %s", id)
	}
	return checkRowsAffected(res, "review item", id)
}

// helpers

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Errorf("%s not found: %s", entity, id)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanRun(row scannable) (*model.Run, error) {
	var r model.Run
	var partJSON string
	var resultJSON sql.NullString

	err := row.Scan(&r.ID, &partJSON, &r.Status, &resultJSON, &r.CreatedAt, &r.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.New("run not found")
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan run")
	}

	if err := json.Unmarshal([]byte(partJSON), &r.Part); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal part")
	}
	if resultJSON.Valid {
		r.Result = &model.LookupResult{}
		if err := json.Unmarshal([]byte(resultJSON.String), r.Result); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal result")
		}
	}
	return &r, nil
}

func scanCatalog(row scannable) (*model.Catalog, error) {
	var cat model.Catalog
	var attrs, meta string
	err := row.Scan(&cat.CatalogID, &cat.MPN, &cat.Brand, &cat.RunID, &cat.ValidationStatus, &attrs, &meta, &cat.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, eris.Wrap(err, "sqlite: scan catalog")
	}
	if err := unmarshalCatalog(&cat, []byte(attrs), []byte(meta)); err != nil {
		return nil, err
	}
	return &cat, nil
}

func scanReview(row scannable) (*model.ReviewItem, error) {
	var item model.ReviewItem
	var disagreements string
	err := row.Scan(&item.ID, &item.RunID, &item.MPN, &item.Reason, &disagreements, &item.NotionPageID, &item.Resolved, &item.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, eris.Wrap(err, "sqlite: scan review item")
	}
	if err := json.Unmarshal([]byte(disagreements), &item.Disagreements); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal disagreements")
	}
	return &item, nil
}

func marshalCatalog(cat *model.Catalog) (attrs, meta []byte, err error) {
	if cat == nil || cat.CatalogID == "" {
		return nil, nil, eris.New("store: catalog id is required")
	}
	attrs, err = json.Marshal(cat.PrimaryAttributes)
	if err != nil {
		return nil, nil, eris.Wrap(err, "store: marshal catalog attributes")
	}
	meta, err = json.Marshal(cat.Metadata)
	if err != nil {
		return nil, nil, eris.Wrap(err, "store: marshal catalog metadata")
	}
	return attrs, meta, nil
}

// unmarshalCatalog decodes stored attributes with UseNumber so numeric
// values come back with their original literal.
func unmarshalCatalog(cat *model.Catalog, attrs, meta []byte) error {
	dec := json.NewDecoder(bytes.NewReader(attrs))
	dec.UseNumber()
	if err := dec.Decode(&cat.PrimaryAttributes); err != nil {
		return eris.Wrap(err, "store: unmarshal catalog attributes")
	}
	if err := json.Unmarshal(meta, &cat.Metadata); err != nil {
		return eris.Wrap(err, "store: unmarshal catalog metadata")
	}
	return nil
}

func prepareReview(item *model.ReviewItem) {
	if item.ID == "" {
		item.ID = uuid.New().String()
	}
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now().UTC()
	}
	if item.Disagreements == nil {
		item.Disagreements = []string{}
	}
}
