package storage

// db.go: conexión compartida por el tier frío y el store de precios.
//
// Driver por defecto: SQLite pure Go (modernc, sin CGo). Postgres (lib/pq) es
// opcional para quien ya tenga una instancia; las queries se escriben con `?`
// y sqlx las reescribe al bindvar del driver. El upsert usa ON CONFLICT, que
// entienden ambos motores.

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"

	defaultQueryTimeout = 30 * time.Second
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS daily_bar (
    ts_code    TEXT NOT NULL,
    trade_date TEXT NOT NULL,
    open       REAL,
    high       REAL,
    low        REAL,
    close      REAL,
    pre_close  REAL,
    change     REAL,
    pct_chg    REAL,
    vol        REAL,
    amount     REAL,
    PRIMARY KEY (ts_code, trade_date)
);
CREATE INDEX IF NOT EXISTS idx_daily_bar_trade_date ON daily_bar (trade_date, ts_code);

-- Tier frío: un hit list por (feature, fecha), sin expiración
CREATE TABLE IF NOT EXISTS feature_result (
    feature_name TEXT NOT NULL,
    scan_date    TEXT NOT NULL,
    ts_codes     TEXT NOT NULL,
    PRIMARY KEY (feature_name, scan_date)
);

-- Auditoría ligera: una fila por invocación de scan
CREATE TABLE IF NOT EXISTS scan_runs (
    id          TEXT PRIMARY KEY,
    feature     TEXT     NOT NULL,
    scan_date   TEXT     NOT NULL,
    provenance  TEXT     NOT NULL,
    hits        INTEGER  NOT NULL DEFAULT 0,
    scanned     INTEGER  NOT NULL DEFAULT 0,
    skipped     INTEGER  NOT NULL DEFAULT 0,
    errors      INTEGER  NOT NULL DEFAULT 0,
    workers     INTEGER  NOT NULL DEFAULT 0,
    duration_ms INTEGER  NOT NULL DEFAULT 0,
    created_at  DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_scan_runs_at ON scan_runs(created_at DESC);
`

const postgresSchema = `
CREATE TABLE IF NOT EXISTS daily_bar (
    ts_code    TEXT NOT NULL,
    trade_date TEXT NOT NULL,
    open       DOUBLE PRECISION,
    high       DOUBLE PRECISION,
    low        DOUBLE PRECISION,
    close      DOUBLE PRECISION,
    pre_close  DOUBLE PRECISION,
    change     DOUBLE PRECISION,
    pct_chg    DOUBLE PRECISION,
    vol        DOUBLE PRECISION,
    amount     DOUBLE PRECISION,
    PRIMARY KEY (ts_code, trade_date)
);
CREATE INDEX IF NOT EXISTS idx_daily_bar_trade_date ON daily_bar (trade_date, ts_code);

CREATE TABLE IF NOT EXISTS feature_result (
    feature_name TEXT NOT NULL,
    scan_date    TEXT NOT NULL,
    ts_codes     TEXT NOT NULL,
    PRIMARY KEY (feature_name, scan_date)
);

CREATE TABLE IF NOT EXISTS scan_runs (
    id          TEXT PRIMARY KEY,
    feature     TEXT        NOT NULL,
    scan_date   TEXT        NOT NULL,
    provenance  TEXT        NOT NULL,
    hits        INTEGER     NOT NULL DEFAULT 0,
    scanned     INTEGER     NOT NULL DEFAULT 0,
    skipped     INTEGER     NOT NULL DEFAULT 0,
    errors      INTEGER     NOT NULL DEFAULT 0,
    workers     INTEGER     NOT NULL DEFAULT 0,
    duration_ms BIGINT      NOT NULL DEFAULT 0,
    created_at  TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_scan_runs_at ON scan_runs(created_at DESC);
`

// DB envuelve la conexión sqlx y el timeout por query.
type DB struct {
	db      *sqlx.DB
	driver  string
	timeout time.Duration
}

// Open abre (o crea) la base de datos y aplica el schema.
// driver: "sqlite" (dsn = ruta o ":memory:") o "postgres" (dsn = URL).
func Open(driver, dsn string) (*DB, error) {
	var schema string
	switch driver {
	case DriverSQLite, "":
		driver, schema = DriverSQLite, sqliteSchema
	case DriverPostgres:
		schema = postgresSchema
	default:
		return nil, fmt.Errorf("storage.Open: unsupported driver %q", driver)
	}

	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("storage.Open: open %q: %w", driver, err)
	}
	if driver == DriverSQLite {
		db.SetMaxOpenConns(1) // SQLite es single-writer; además ":memory:" vive en una sola conexión
		db.SetMaxIdleConns(1)
	} else {
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(30 * time.Minute)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage.Open: apply schema: %w", err)
	}

	return &DB{db: db, driver: driver, timeout: defaultQueryTimeout}, nil
}

// Wrap reutiliza una conexión existente sin aplicar el schema.
func Wrap(conn *sql.DB, driver string) *DB {
	return &DB{db: sqlx.NewDb(conn, driver), driver: driver, timeout: defaultQueryTimeout}
}

// Driver devuelve el nombre del driver en uso.
func (d *DB) Driver() string {
	return d.driver
}

// Close cierra la conexión.
func (d *DB) Close() error {
	return d.db.Close()
}

func (d *DB) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, d.timeout)
}

// rebind adapta los `?` al bindvar del driver ($1, $2... en Postgres).
func (d *DB) rebind(query string) string {
	return sqlx.Rebind(sqlx.BindType(d.driver), query)
}
