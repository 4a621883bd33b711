package storage

import (
	"context"
	"database/sql"

	sq "github.com/Masterminds/squirrel"
	"github.com/cockroachdb/errors"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"WasteReminder/internal/domain"
	"WasteReminder/internal/ports"
)

const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"

	table = "reminder_dates"
)

// SQLRepository persists reminder dates into sqlite or Postgres.
type SQLRepository struct {
	db      *sql.DB
	driver  string
	builder sq.StatementBuilderType
}

var _ ports.ReminderRepository = (*SQLRepository)(nil)

// Open connects to driver/dsn and verifies the connection.
func Open(ctx context.Context, driver, dsn string) (*sql.DB, error) {
	if driver != DriverSQLite && driver != DriverPostgres {
		return nil, errors.Newf("unsupported database driver %q", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, errors.Wrap(err, "open database")
	}

	if driver == DriverSQLite {
		// one writer; also keeps ":memory:" databases on a single connection
		db.SetMaxOpenConns(1)
		if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout = 5000"); err != nil {
			_ = db.Close()
			return nil, errors.Wrap(err, "set busy timeout")
		}
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "ping database")
	}
	return db, nil
}

// NewSQLRepository wires a sql.DB; driver selects the placeholder dialect.
func NewSQLRepository(db *sql.DB, driver string) *SQLRepository {
	builder := sq.StatementBuilder.PlaceholderFormat(sq.Question)
	if driver == DriverPostgres {
		builder = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
	}
	return &SQLRepository{db: db, driver: driver, builder: builder}
}

// EnsureSchema creates the reminder table and its date index.
func (r *SQLRepository) EnsureSchema(ctx context.Context) error {
	idColumn := "id INTEGER PRIMARY KEY AUTOINCREMENT"
	if r.driver == DriverPostgres {
		idColumn = "id BIGSERIAL PRIMARY KEY"
	}

	statements := []string{
		`CREATE TABLE IF NOT EXISTS ` + table + ` (
			` + idColumn + `,
			kind TEXT NOT NULL,
			date TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS reminder_dates_date_idx ON ` + table + ` (date)`,
	}
	for _, stmt := range statements {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return errors.Wrap(err, "ensure schema")
		}
	}
	return nil
}

// Replace clears prior rows and stores one row per (category, date) in a
// single transaction, categories in canonical order.
func (r *SQLRepository) Replace(ctx context.Context, mapping domain.ReminderMapping) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin replace")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	deleteSQL, deleteArgs, err := r.builder.Delete(table).ToSql()
	if err != nil {
		return errors.Wrap(err, "build delete")
	}
	if _, err = tx.ExecContext(ctx, deleteSQL, deleteArgs...); err != nil {
		return errors.Wrap(err, "delete reminder dates")
	}

	insert := r.builder.Insert(table).Columns("kind", "date")
	rows := 0
	for _, category := range domain.Categories {
		for _, date := range mapping[category] {
			insert = insert.Values(string(category), string(date))
			rows++
		}
	}

	if rows > 0 {
		insertSQL, insertArgs, buildErr := insert.ToSql()
		if buildErr != nil {
			err = errors.Wrap(buildErr, "build insert")
			return err
		}
		if _, err = tx.ExecContext(ctx, insertSQL, insertArgs...); err != nil {
			return errors.Wrap(err, "insert reminder dates")
		}
	}

	if err = tx.Commit(); err != nil {
		return errors.Wrap(err, "commit replace")
	}
	return nil
}

// List returns all stored rows in insertion order.
func (r *SQLRepository) List(ctx context.Context) ([]domain.StoredDate, error) {
	query, args, err := r.builder.Select("id", "kind", "date").From(table).OrderBy("id").ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "build list")
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "query reminder dates")
	}

	result := make([]domain.StoredDate, 0)
	for rows.Next() {
		var row domain.StoredDate
		if err := rows.Scan(&row.ID, &row.Kind, &row.Date); err != nil {
			_ = rows.Close()
			return nil, errors.Wrap(err, "scan reminder date")
		}
		result = append(result, row)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		_ = rows.Close()
		return nil, errors.Wrap(rowsErr, "rows iteration")
	}

	if closeErr := rows.Close(); closeErr != nil {
		return nil, errors.Wrap(closeErr, "close rows")
	}

	return result, nil
}

// FirstByDate returns the first row stored for date, or nil when there is none.
func (r *SQLRepository) FirstByDate(ctx context.Context, date domain.ReminderDate) (*domain.StoredDate, error) {
	query, args, err := r.builder.Select("id", "kind", "date").
		From(table).
		Where(sq.Eq{"date": string(date)}).
		OrderBy("id").
		Limit(1).
		ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "build first by date")
	}

	var row domain.StoredDate
	err = r.db.QueryRowContext(ctx, query, args...).Scan(&row.ID, &row.Kind, &row.Date)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "query first by date")
	}
	return &row, nil
}
