package resultstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/lib/pq" // registers the postgres driver
	"github.com/neosense/neosense/pkg/report"
)

// PostgresStore persists reports in PostgreSQL. The latest alias is a
// single-row table repointed in the same transaction as the report write.
type PostgresStore struct {
	db     *sql.DB
	logger *slog.Logger
}

func postgresMigrations() map[int]string {
	return map[int]string{
		1: `
			CREATE TABLE reports (
				run_id VARCHAR(255) PRIMARY KEY,
				report JSONB NOT NULL,
				stored_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_reports_stored_at ON reports(stored_at);

			CREATE TABLE latest_report (
				singleton INTEGER PRIMARY KEY CHECK (singleton = 1),
				run_id VARCHAR(255) NOT NULL REFERENCES reports(run_id),
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);
		`,
	}
}

// NewPostgresStore connects to PostgreSQL and runs migrations.
func NewPostgresStore(ctx context.Context, logger *slog.Logger, databaseURL string) (*PostgresStore, error) {
	database, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, &StoreError{Op: "init", Err: fmt.Errorf("failed to connect to PostgreSQL database: %w", err)}
	}

	err = database.PingContext(ctx)
	if err != nil {
		return nil, &StoreError{Op: "init", Err: fmt.Errorf("failed to ping database: %w", err)}
	}

	migrationManager := newMigrationManager(logger, database, postgresMigrations())

	err = migrationManager.RunMigrations(ctx)
	if err != nil {
		return nil, &StoreError{Op: "init", Err: fmt.Errorf("failed to run migrations: %w", err)}
	}

	return &PostgresStore{db: database, logger: logger}, nil
}

func (s *PostgresStore) Put(ctx context.Context, runID string, rep *report.Report) error {
	if err := validateRunID(runID); err != nil {
		return &StoreError{Op: "put", RunID: runID, Err: err}
	}

	data, err := json.Marshal(rep)
	if err != nil {
		return &StoreError{Op: "put", RunID: runID, Err: err}
	}

	now := time.Now().UTC()

	transaction, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return &StoreError{Op: "put", RunID: runID, Err: err}
	}

	_, err = transaction.ExecContext(ctx, `
		INSERT INTO reports (run_id, report, stored_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (run_id) DO UPDATE SET report = $2, stored_at = $3
	`, runID, data, now)
	if err != nil {
		_ = transaction.Rollback()

		return &StoreError{Op: "put", RunID: runID, Err: err}
	}

	_, err = transaction.ExecContext(ctx, `
		INSERT INTO latest_report (singleton, run_id, updated_at)
		VALUES (1, $1, $2)
		ON CONFLICT (singleton) DO UPDATE SET run_id = $1, updated_at = $2
	`, runID, now)
	if err != nil {
		_ = transaction.Rollback()

		return &StoreError{Op: "put", RunID: runID, Err: err}
	}

	err = transaction.Commit()
	if err != nil {
		return &StoreError{Op: "put", RunID: runID, Err: err}
	}

	return nil
}

func (s *PostgresStore) Get(ctx context.Context, runID string) (*report.Report, error) {
	row := s.db.QueryRowContext(ctx, "SELECT report FROM reports WHERE run_id = $1", runID)

	return s.scanReport("get", runID, row)
}

func (s *PostgresStore) Latest(ctx context.Context) (*report.Report, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT r.report
		FROM latest_report l
		JOIN reports r ON r.run_id = l.run_id
		WHERE l.singleton = 1
	`)

	return s.scanReport("latest", "", row)
}

func (s *PostgresStore) HealthCheck(ctx context.Context) error {
	err := s.db.PingContext(ctx)
	if err != nil {
		return &StoreError{Op: "healthcheck", Err: err}
	}

	return nil
}

func (s *PostgresStore) Close(ctx context.Context) error {
	if s.db != nil {
		err := s.db.Close()
		if err != nil {
			return &StoreError{Op: "close", Err: err}
		}
	}

	return nil
}

func (s *PostgresStore) scanReport(op, runID string, row *sql.Row) (*report.Report, error) {
	var data []byte

	err := row.Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &StoreError{Op: op, RunID: runID, Err: ErrReportNotFound}
		}

		return nil, &StoreError{Op: op, RunID: runID, Err: err}
	}

	var rep report.Report
	if err := json.Unmarshal(data, &rep); err != nil {
		return nil, &StoreError{Op: op, RunID: runID, Err: err}
	}

	return &rep, nil
}
