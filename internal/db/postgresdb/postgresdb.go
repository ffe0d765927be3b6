// Package postgresdb persists run reports in PostgreSQL.
// The schema is migrated with goose from migrations embedded in the binary.
package postgresdb

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/thoas/go-funk"

	"github.com/patric-chuzhbe/urlshrtload/internal/report"
	"github.com/patric-chuzhbe/urlshrtload/internal/stats"
)

//go:embed migrations/*.sql
var migrations embed.FS

const migrationsDir = "migrations"

// PostgresDB is a PostgreSQL-backed report sink.
type PostgresDB struct {
	database          *sql.DB
	connectionTimeout time.Duration
}

type initOptions struct {
	DBPreReset bool
}

// InitOption defines a functional option for configuring database initialization.
type InitOption func(*initOptions)

// WithDBPreReset enables or disables dropping every table before migration.
func WithDBPreReset(value bool) InitOption {
	return func(options *initOptions) {
		options.DBPreReset = value
	}
}

// New opens the database, runs schema migrations and returns the sink.
func New(
	ctx context.Context,
	databaseDSN string,
	connectionTimeout time.Duration,
	optionsProto ...InitOption,
) (*PostgresDB, error) {
	options := &initOptions{}
	for _, protoOption := range optionsProto {
		protoOption(options)
	}

	database, err := sql.Open("pgx", databaseDSN)
	if err != nil {
		return nil, err
	}

	result := &PostgresDB{
		database:          database,
		connectionTimeout: connectionTimeout,
	}

	if err := result.Ping(ctx); err != nil {
		_ = database.Close()
		return nil, fmt.Errorf("in internal/db/postgresdb/postgresdb.go/New(): error while `result.Ping()` calling: %w", err)
	}

	if options.DBPreReset {
		if err := result.resetDB(ctx); err != nil {
			_ = database.Close()
			return nil, fmt.Errorf("in internal/db/postgresdb/postgresdb.go/New(): error while `result.resetDB()` calling: %w", err)
		}
	}

	goose.SetBaseFS(migrations)

	if err := goose.SetDialect("postgres"); err != nil {
		_ = database.Close()
		return nil, fmt.Errorf("in internal/db/postgresdb/postgresdb.go/New(): error while `goose.SetDialect()` calling: %w", err)
	}

	if err := goose.UpContext(ctx, result.database, migrationsDir); err != nil {
		_ = database.Close()
		return nil, fmt.Errorf("in internal/db/postgresdb/postgresdb.go/New(): error while `goose.UpContext()` calling: %w", err)
	}

	return result, nil
}

func milliseconds(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

// SaveReport stores the run and its endpoints in one transaction.
func (db *PostgresDB) SaveReport(ctx context.Context, r report.Report) error {
	body, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("in internal/db/postgresdb/postgresdb.go/SaveReport(): error while `json.Marshal()` calling: %w", err)
	}

	transaction, err := db.database.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	_, err = transaction.ExecContext(
		ctx,
		`
			INSERT INTO runs (
				id, profile, host, mode, users, started_at, finished_at,
				requests, failures, check_success_rate, passed, violations, report
			)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		`,
		r.ID,
		r.Profile,
		r.Host,
		string(r.Mode),
		r.Users,
		r.Start,
		r.End,
		r.Summary.Total.Requests,
		r.Summary.Total.Failures,
		r.SuccessRate,
		r.Passed(),
		violationsArray(r.Violations),
		string(body),
	)
	if err != nil {
		return rollback(transaction, err)
	}

	if len(r.Summary.Endpoints) > 0 {
		query, args := endpointsInsert(r.ID, r.Summary.Endpoints)
		if _, err := transaction.ExecContext(ctx, query, args...); err != nil {
			return rollback(transaction, err)
		}
	}

	return transaction.Commit()
}

func endpointsInsert(runID string, endpoints []stats.Endpoint) (string, []interface{}) {
	const columns = 9

	placeholders := make([]string, len(endpoints))
	args := make([]interface{}, 0, len(endpoints)*columns)
	for i, e := range endpoints {
		values := make([]string, columns)
		for j := range values {
			values[j] = fmt.Sprintf("$%d", i*columns+j+1)
		}
		placeholders[i] = "(" + strings.Join(values, ", ") + ")"
		args = append(
			args,
			runID,
			e.Method,
			e.Name,
			e.Requests,
			e.Failures,
			milliseconds(e.P50),
			milliseconds(e.P95),
			milliseconds(e.P99),
			e.RPS,
		)
	}

	query := `
		INSERT INTO run_endpoints (run_id, method, name, requests, failures, p50_ms, p95_ms, p99_ms, rps)
		VALUES ` + strings.Join(placeholders, ", ")

	return query, args
}

// violationsArray renders a postgres text[] literal.
func violationsArray(violations []string) string {
	quoted := funk.Map(violations, func(v string) string {
		v = strings.ReplaceAll(v, `\`, `\\`)
		v = strings.ReplaceAll(v, `"`, `\"`)
		return `"` + v + `"`
	}).([]string)

	return "{" + strings.Join(quoted, ",") + "}"
}

func rollback(transaction *sql.Tx, err error) error {
	if err2 := transaction.Rollback(); err2 != nil {
		return fmt.Errorf("%w (rollback: %v)", err, err2)
	}
	return err
}

// Ping verifies connectivity with the PostgreSQL database within the configured timeout.
func (db *PostgresDB) Ping(ctx context.Context) error {
	ctxWithTimeout, cancel := context.WithTimeout(ctx, db.connectionTimeout)
	defer cancel()

	return db.database.PingContext(ctxWithTimeout)
}

// Close closes the database connection.
func (db *PostgresDB) Close() error {
	return db.database.Close()
}

func (db *PostgresDB) resetDB(ctx context.Context) error {
	_, err := db.database.ExecContext(
		ctx,
		`
			DO $$
			DECLARE
				r RECORD;
			BEGIN
				FOR r IN (SELECT tablename FROM pg_tables WHERE schemaname = 'public') LOOP
					EXECUTE 'DROP TABLE IF EXISTS ' || quote_ident(r.tablename) || ' CASCADE';
				END LOOP;
			END $$;
		`,
	)
	if err != nil {
		return fmt.Errorf(
			"in internal/db/postgresdb/postgresdb.go/resetDB(): error while `db.database.ExecContext()` calling: %w",
			err,
		)
	}
	return nil
}
