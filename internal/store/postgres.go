package store

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/insightforge/company-intel/internal/db"
	"github.com/insightforge/company-intel/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool db.Pool
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries to prepare on each new connection for
// faster execution of the most frequently used store operations.
var preparedStatements = map[string]string{
	"insert_report": `INSERT INTO reports (id, job_id, dedup_key, company_url, tier, report, completed_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8) ON CONFLICT (job_id) DO NOTHING`,
	"get_report":       `SELECT report FROM reports WHERE dedup_key = $1 ORDER BY completed_at DESC LIMIT 1`,
	"get_report_by_id": `SELECT report FROM reports WHERE id = $1`,
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

	// Prepare frequently-used statements on each new connection.
	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

// Pool returns the underlying database pool for subsystems that need direct
// query access.
func (s *PostgresStore) Pool() db.Pool {
	return s.pool
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS reports (
	id           TEXT PRIMARY KEY,
	job_id       TEXT NOT NULL UNIQUE,
	dedup_key    TEXT NOT NULL,
	company_url  TEXT NOT NULL,
	tier         TEXT NOT NULL,
	report       JSONB NOT NULL,
	completed_at TIMESTAMPTZ NOT NULL,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS report_failures (
	report_id TEXT NOT NULL REFERENCES reports(id),
	source    TEXT NOT NULL,
	reason    TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_reports_dedup_key ON reports(dedup_key);
CREATE INDEX IF NOT EXISTS idx_reports_company_url ON reports(company_url);
CREATE INDEX IF NOT EXISTS idx_reports_tier ON reports(tier);
CREATE INDEX IF NOT EXISTS idx_report_failures_report_id ON report_failures(report_id);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) PutReport(ctx context.Context, r *model.Report) error {
	reportJSON, err := json.Marshal(r)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal report")
	}

	tag, err := s.pool.Exec(ctx,
		`INSERT INTO reports (id, job_id, dedup_key, company_url, tier, report, completed_at, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (job_id) DO NOTHING`,
		r.ID, r.JobID, r.Identity.DedupKey(r.Tier), r.Identity.Normalized().URL,
		string(r.Tier), reportJSON, r.CompletedAt, time.Now().UTC(),
	)
	if err != nil {
		return eris.Wrap(err, "postgres: insert report")
	}
	// A retried write for the same job changes nothing, including failures.
	if tag.RowsAffected() == 0 || len(r.SourceFailures) == 0 {
		return nil
	}

	rows := make([][]any, 0, len(r.SourceFailures))
	for _, f := range r.SourceFailures {
		rows = append(rows, []any{r.ID, f.Source, f.Reason})
	}
	if _, err := db.CopyFrom(ctx, s.pool, "report_failures", []string{"report_id", "source", "reason"}, rows); err != nil {
		return eris.Wrap(err, "postgres: insert report failures")
	}
	return nil
}

func (s *PostgresStore) GetReport(ctx context.Context, dedupKey string) (*model.Report, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT report FROM reports WHERE dedup_key = $1 ORDER BY completed_at DESC LIMIT 1`,
		dedupKey,
	)
	return scanPgReport(row)
}

func (s *PostgresStore) GetReportByID(ctx context.Context, id string) (*model.Report, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT report FROM reports WHERE id = $1`,
		id,
	)
	return scanPgReport(row)
}

func (s *PostgresStore) ListReports(ctx context.Context, filter ReportFilter) ([]model.Report, error) {
	query := `SELECT report FROM reports WHERE 1=1`
	var args []any

	if filter.Tier != "" {
		args = append(args, string(filter.Tier))
		query += ` AND tier = $` + strconv.Itoa(len(args))
	}
	if filter.CompanyURL != "" {
		args = append(args, filter.CompanyURL)
		query += ` AND company_url = $` + strconv.Itoa(len(args))
	}
	query += ` ORDER BY completed_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	args = append(args, limit)
	query += ` LIMIT $` + strconv.Itoa(len(args))

	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += ` OFFSET $` + strconv.Itoa(len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list reports")
	}
	defer rows.Close()

	var reports []model.Report
	for rows.Next() {
		var reportJSON []byte
		if err := rows.Scan(&reportJSON); err != nil {
			return nil, eris.Wrap(err, "postgres: scan report")
		}
		var r model.Report
		if err := json.Unmarshal(reportJSON, &r); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal report")
		}
		reports = append(reports, r)
	}
	return reports, eris.Wrap(rows.Err(), "postgres: list reports iterate")
}

func scanPgReport(row pgx.Row) (*model.Report, error) {
	var reportJSON []byte
	err := row.Scan(&reportJSON)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: scan report")
	}
	var r model.Report
	if err := json.Unmarshal(reportJSON, &r); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal report")
	}
	return &r, nil
}
