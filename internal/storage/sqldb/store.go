package sqldb

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"

	"github.com/tjfontaine/enrichment-gateway/internal/core/domain"
	"github.com/tjfontaine/enrichment-gateway/internal/core/ports"
)

// Store is a SQL implementation of PipelineStore.
type Store struct {
	db  *sqlx.DB
	now func() time.Time
}

// Ensure Store implements PipelineStore
var _ ports.PipelineStore = (*Store)(nil)

// Config holds database connection configuration
type Config struct {
	Driver string // database/sql driver name, "sqlite" unless overridden
	DSN    string // Data source name / connection string
}

// pipelineRow mirrors the pipelines table.
type pipelineRow struct {
	ID          string `db:"id"`
	Label       string `db:"label"`
	Description string `db:"description"`
	OwnerID     string `db:"owner_id"`
	Visibility  string `db:"visibility"`
	CreatedAt   int64  `db:"created_at"`
	Persist     bool   `db:"persist"`
	Steps       string `db:"steps"`
}

// New creates a new SQL store with the specified configuration.
func New(cfg Config) (*Store, error) {
	driver := cfg.Driver
	if driver == "" {
		driver = "sqlite"
	}

	db, err := sqlx.Open(driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// A single connection keeps SQLite writers serialized and lets
	// ":memory:" databases survive across queries.
	db.SetMaxOpenConns(1)

	for _, stmt := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to execute pragma: %w", err)
		}
	}

	store := &Store{db: db, now: time.Now}

	// Initialize schema
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// NewSQLite creates a new SQLite store.
func NewSQLite(dbPath string) (*Store, error) {
	return New(Config{Driver: "sqlite", DSN: dbPath})
}

func (s *Store) initSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS pipelines (
			id TEXT PRIMARY KEY,
			label TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			owner_id TEXT NOT NULL DEFAULT '',
			visibility TEXT NOT NULL,
			created_at INTEGER NOT NULL,
			persist INTEGER NOT NULL DEFAULT 0,
			steps TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_pipelines_owner ON pipelines(owner_id)`,
		`CREATE INDEX IF NOT EXISTS idx_pipelines_created ON pipelines(created_at)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to execute schema statement: %w", err)
		}
	}

	return nil
}

func (s *Store) SavePipeline(ctx context.Context, def *domain.PipelineDefinition) error {
	if def.ID == "" {
		def.ID = ulid.Make().String()
	}
	if def.CreatedAt == 0 {
		def.CreatedAt = s.now().UnixMilli()
	}

	row, err := toRow(def)
	if err != nil {
		return err
	}

	query := `INSERT INTO pipelines (id, label, description, owner_id, visibility, created_at, persist, steps)
	          VALUES (:id, :label, :description, :owner_id, :visibility, :created_at, :persist, :steps)`

	if _, err := s.db.NamedExecContext(ctx, query, row); err != nil {
		return fmt.Errorf("failed to save pipeline: %w", err)
	}

	return nil
}

func (s *Store) GetPipeline(ctx context.Context, id string) (*domain.PipelineDefinition, error) {
	var row pipelineRow
	err := s.db.GetContext(ctx, &row, s.db.Rebind(`SELECT * FROM pipelines WHERE id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("pipeline %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get pipeline: %w", err)
	}

	return fromRow(row)
}

func (s *Store) UpdatePipeline(ctx context.Context, def *domain.PipelineDefinition) error {
	row, err := toRow(def)
	if err != nil {
		return err
	}

	query := `UPDATE pipelines
	          SET label = :label, description = :description, visibility = :visibility,
	              persist = :persist, steps = :steps
	          WHERE id = :id`

	res, err := s.db.NamedExecContext(ctx, query, row)
	if err != nil {
		return fmt.Errorf("failed to update pipeline: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update pipeline: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("pipeline %s: %w", def.ID, domain.ErrNotFound)
	}

	return nil
}

func (s *Store) ListPipelines(ctx context.Context, opts ports.ListOptions) ([]*domain.PipelineDefinition, error) {
	query := `SELECT * FROM pipelines WHERE 1=1`
	var args []any

	if opts.OwnerID != "" {
		query += ` AND owner_id = ?`
		args = append(args, opts.OwnerID)
	}
	if opts.Visibility != "" {
		query += ` AND visibility = ?`
		args = append(args, string(opts.Visibility))
	}

	query += ` ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`
	args = append(args, opts.PageSize(), opts.Offset)

	var rows []pipelineRow
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to query pipelines: %w", err)
	}

	return fromRows(rows)
}

func (s *Store) ListAll(ctx context.Context) ([]*domain.PipelineDefinition, error) {
	var rows []pipelineRow
	if err := s.db.SelectContext(ctx, &rows, `SELECT * FROM pipelines ORDER BY created_at ASC`); err != nil {
		return nil, fmt.Errorf("failed to query pipelines: %w", err)
	}

	return fromRows(rows)
}

func (s *Store) DeletePipeline(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, s.db.Rebind(`DELETE FROM pipelines WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("failed to delete pipeline: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete pipeline: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("pipeline %s: %w", id, domain.ErrNotFound)
	}

	return nil
}

func (s *Store) DeleteBatch(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	query, args, err := sqlx.In(`DELETE FROM pipelines WHERE id IN (?)`, ids)
	if err != nil {
		return fmt.Errorf("failed to build batch delete: %w", err)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, tx.Rebind(query), args...); err != nil {
		return fmt.Errorf("failed to delete pipelines: %w", err)
	}

	return tx.Commit()
}

func (s *Store) Close() error {
	return s.db.Close()
}

func toRow(def *domain.PipelineDefinition) (pipelineRow, error) {
	steps, err := json.Marshal(def.Steps)
	if err != nil {
		return pipelineRow{}, fmt.Errorf("failed to marshal steps: %w", err)
	}

	return pipelineRow{
		ID:          def.ID,
		Label:       def.Label,
		Description: def.Description,
		OwnerID:     def.OwnerID,
		Visibility:  string(def.Visibility),
		CreatedAt:   def.CreatedAt,
		Persist:     def.Persist,
		Steps:       string(steps),
	}, nil
}

func fromRow(row pipelineRow) (*domain.PipelineDefinition, error) {
	def := &domain.PipelineDefinition{
		ID:          row.ID,
		Label:       row.Label,
		Description: row.Description,
		OwnerID:     row.OwnerID,
		Visibility:  domain.Visibility(row.Visibility),
		CreatedAt:   row.CreatedAt,
		Persist:     row.Persist,
	}

	if err := json.Unmarshal([]byte(row.Steps), &def.Steps); err != nil {
		return nil, fmt.Errorf("failed to unmarshal steps of pipeline %s: %w", row.ID, err)
	}

	return def, nil
}

func fromRows(rows []pipelineRow) ([]*domain.PipelineDefinition, error) {
	defs := make([]*domain.PipelineDefinition, 0, len(rows))
	for _, row := range rows {
		def, err := fromRow(row)
		if err != nil {
			return nil, err
		}
		defs = append(defs, def)
	}
	return defs, nil
}
