package storage

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"olx-scraper/models"
	"olx-scraper/utils"
)

// Supported values for SQLLoaderOptions.Driver.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

const defaultBatchSize = 100

// dbColumns is the business schema: the normalized columns without the
// installment_imputed bookkeeping flag.
var dbColumns = []string{
	models.ColTitle,
	models.ColPrice,
	models.ColListingURL,
	models.ColLocation,
	models.ColPostedTime,
	models.ColYear,
	models.ColLowerKm,
	models.ColUpperKm,
	models.ColInstallment,
}

var identifierRegexp = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// SQLLoaderOptions configures OpenSQLLoader.
type SQLLoaderOptions struct {
	Driver    string
	DSN       string
	Table     string
	BatchSize int
	Retry     *utils.RetryConfig
	Logger    *utils.Logger
}

// SQLLoader inserts normalized listings into a PostgreSQL or SQLite table.
type SQLLoader struct {
	db        *sql.DB
	driver    string
	table     string
	batchSize int
	builder   sq.StatementBuilderType
	logger    *utils.Logger
}

var _ ListingLoader = (*SQLLoader)(nil)

// OpenSQLLoader opens a connection and waits for the database to answer.
// The target table is created lazily on the first non-empty Load.
func OpenSQLLoader(ctx context.Context, opts SQLLoaderOptions) (*SQLLoader, error) {
	if !identifierRegexp.MatchString(opts.Table) {
		return nil, fmt.Errorf("sql: invalid table name %q", opts.Table)
	}

	var placeholder sq.PlaceholderFormat
	switch opts.Driver {
	case DriverPostgres:
		placeholder = sq.Dollar
	case DriverSQLite:
		placeholder = sq.Question
	default:
		return nil, fmt.Errorf("sql: unsupported driver %q", opts.Driver)
	}

	db, err := sql.Open(opts.Driver, opts.DSN)
	if err != nil {
		return nil, fmt.Errorf("sql: open: %w", err)
	}
	if opts.Driver == DriverSQLite {
		// A single connection keeps ":memory:" databases alive across calls.
		db.SetMaxOpenConns(1)
	}

	retry := opts.Retry
	if retry == nil {
		retry = &utils.RetryConfig{MaxAttempts: 1, Logger: opts.Logger}
	}
	err = retry.Do(ctx, "sql ping", func(ctx context.Context) error {
		return db.PingContext(ctx)
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sql: ping: %w", err)
	}

	batch := opts.BatchSize
	if batch <= 0 {
		batch = defaultBatchSize
	}

	return &SQLLoader{
		db:        db,
		driver:    opts.Driver,
		table:     opts.Table,
		batchSize: batch,
		builder:   sq.StatementBuilder.PlaceholderFormat(placeholder),
		logger:    opts.Logger,
	}, nil
}

// Load inserts all listings inside one transaction and returns them. An
// empty input issues no statement at all.
func (l *SQLLoader) Load(ctx context.Context, listings []models.NormalizedListing) ([]models.NormalizedListing, error) {
	if len(listings) == 0 {
		l.logger.Info("[load] No data to insert, skipping DB insert")
		return []models.NormalizedListing{}, nil
	}

	l.logger.Info("[load] Inserting %d rows into %q", len(listings), l.table)
	start := time.Now()

	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("sql: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, l.createTableSQL()); err != nil {
		return nil, fmt.Errorf("sql: create table %q: %w", l.table, err)
	}

	for i := 0; i < len(listings); i += l.batchSize {
		end := i + l.batchSize
		if end > len(listings) {
			end = len(listings)
		}
		if err := l.insertBatch(ctx, tx, listings[i:end]); err != nil {
			return nil, fmt.Errorf("sql: insert into %q: %w", l.table, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("sql: commit: %w", err)
	}

	l.logger.Info("[load] Inserted %d rows into %q in %v", len(listings), l.table, time.Since(start).Round(time.Millisecond))
	return append([]models.NormalizedListing(nil), listings...), nil
}

func (l *SQLLoader) insertBatch(ctx context.Context, tx *sql.Tx, batch []models.NormalizedListing) error {
	q := l.builder.Insert(l.table).Columns(dbColumns...)
	for i := range batch {
		q = q.Values(rowValues(&batch[i])...)
	}

	query, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	_, err = tx.ExecContext(ctx, query, args...)
	return err
}

// Count returns the number of rows in the target table.
func (l *SQLLoader) Count(ctx context.Context) (int, error) {
	query, args, err := l.builder.Select("COUNT(*)").From(l.table).ToSql()
	if err != nil {
		return 0, fmt.Errorf("sql: build count: %w", err)
	}
	var n int
	if err := l.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("sql: count %q: %w", l.table, err)
	}
	return n, nil
}

// FetchAll retrieves every stored listing in insertion order.
func (l *SQLLoader) FetchAll(ctx context.Context) ([]models.NormalizedListing, error) {
	query, args, err := l.builder.Select(dbColumns...).From(l.table).OrderBy("id").ToSql()
	if err != nil {
		return nil, fmt.Errorf("sql: build select: %w", err)
	}

	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sql: fetch all: %w", err)
	}
	defer rows.Close()

	var out []models.NormalizedListing
	for rows.Next() {
		var (
			title                     sql.NullString
			price, lower, upper, inst sql.NullFloat64
			listingURL, loc, posted   sql.NullString
			year                      sql.NullInt64
		)
		if err := rows.Scan(&title, &price, &listingURL, &loc, &posted, &year, &lower, &upper, &inst); err != nil {
			return nil, fmt.Errorf("sql: scan row: %w", err)
		}
		rec := models.NormalizedListing{
			Title:       title.String,
			Price:       nullFloat(price),
			ListingURL:  nullString(listingURL),
			Location:    nullString(loc),
			PostedTime:  nullString(posted),
			LowerKm:     nullFloat(lower),
			UpperKm:     nullFloat(upper),
			Installment: nullFloat(inst),
		}
		if year.Valid {
			y := int(year.Int64)
			rec.Year = &y
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Close releases the connection pool.
func (l *SQLLoader) Close() error {
	return l.db.Close()
}

func (l *SQLLoader) createTableSQL() string {
	if l.driver == DriverSQLite {
		return fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			title       TEXT,
			price       REAL,
			listing_url TEXT,
			location    TEXT,
			posted_time TEXT,
			year        INTEGER,
			lower_km    REAL,
			upper_km    REAL,
			installment REAL,
			created_at  TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`, l.table)
	}
	return fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id          SERIAL PRIMARY KEY,
			title       TEXT,
			price       DOUBLE PRECISION,
			listing_url TEXT,
			location    TEXT,
			posted_time TEXT,
			year        INTEGER,
			lower_km    DOUBLE PRECISION,
			upper_km    DOUBLE PRECISION,
			installment DOUBLE PRECISION,
			created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`, l.table)
}

// rowValues returns l's cells in dbColumns order with missing values as NULL.
func rowValues(l *models.NormalizedListing) []interface{} {
	return []interface{}{
		l.Title,
		nullable(l.Price),
		nullable(l.ListingURL),
		nullable(l.Location),
		nullable(l.PostedTime),
		nullable(l.Year),
		nullable(l.LowerKm),
		nullable(l.UpperKm),
		nullable(l.Installment),
	}
}

func nullable[T any](p *T) interface{} {
	if p == nil {
		return nil
	}
	return *p
}

func nullFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func nullString(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}
