package storage

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/alejandrodnm/alphaspike/internal/domain"
)

// batchChunk acota el número de parámetros por query IN (...).
const batchChunk = 500

// PriceStore sirve el histórico diario desde la tabla daily_bar.
// Implementa ports.PriceSource.
type PriceStore struct {
	*DB
}

// NewPriceStore crea el store sobre una conexión ya abierta.
func NewPriceStore(db *DB) *PriceStore {
	return &PriceStore{DB: db}
}

type barRow struct {
	Symbol    string  `db:"ts_code"`
	Date      string  `db:"trade_date"`
	Open      float64 `db:"open"`
	High      float64 `db:"high"`
	Low       float64 `db:"low"`
	Close     float64 `db:"close"`
	PrevClose float64 `db:"pre_close"`
	Change    float64 `db:"change"`
	PctChange float64 `db:"pct_chg"`
	Volume    float64 `db:"vol"`
	Amount    float64 `db:"amount"`
}

func (r barRow) bar() domain.Bar {
	return domain.Bar{
		Symbol:    r.Symbol,
		Date:      r.Date,
		Open:      r.Open,
		High:      r.High,
		Low:       r.Low,
		Close:     r.Close,
		PrevClose: r.PrevClose,
		Change:    r.Change,
		PctChange: r.PctChange,
		Volume:    r.Volume,
		Amount:    r.Amount,
	}
}

const barColumns = `ts_code, trade_date,
	COALESCE(open, 0) AS open, COALESCE(high, 0) AS high, COALESCE(low, 0) AS low,
	COALESCE(close, 0) AS close, COALESCE(pre_close, 0) AS pre_close,
	COALESCE(change, 0) AS change, COALESCE(pct_chg, 0) AS pct_chg,
	COALESCE(vol, 0) AS vol, COALESCE(amount, 0) AS amount`

// Load devuelve las barras del símbolo hasta endDate (inclusive), ordenadas
// por fecha ascendente. endDate "" = todo el histórico.
func (s *PriceStore) Load(ctx context.Context, symbol, endDate string) (domain.Series, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	query := `SELECT ` + barColumns + ` FROM daily_bar WHERE ts_code = ?`
	args := []any{symbol}
	if endDate != "" {
		query += ` AND trade_date <= ?`
		args = append(args, endDate)
	}
	query += ` ORDER BY trade_date`

	var rows []barRow
	if err := s.db.SelectContext(ctx, &rows, s.rebind(query), args...); err != nil {
		return nil, fmt.Errorf("storage.Load: %s: %w", symbol, err)
	}
	out := make(domain.Series, len(rows))
	for i, r := range rows {
		out[i] = r.bar()
	}
	return out, nil
}

// BatchLoad carga varios símbolos con pocas queries. Los símbolos sin datos
// no aparecen en el mapa resultante.
func (s *PriceStore) BatchLoad(ctx context.Context, symbols []string, endDate string) (map[string]domain.Series, error) {
	out := make(map[string]domain.Series, len(symbols))
	for start := 0; start < len(symbols); start += batchChunk {
		end := min(start+batchChunk, len(symbols))
		if err := s.loadChunk(ctx, symbols[start:end], endDate, out); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (s *PriceStore) loadChunk(ctx context.Context, symbols []string, endDate string, out map[string]domain.Series) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	query := `SELECT ` + barColumns + ` FROM daily_bar WHERE ts_code IN (?)`
	args := []any{symbols}
	if endDate != "" {
		query += ` AND trade_date <= ?`
		args = append(args, endDate)
	}
	query += ` ORDER BY ts_code, trade_date`

	query, args, err := sqlx.In(query, args...)
	if err != nil {
		return fmt.Errorf("storage.BatchLoad: expand: %w", err)
	}

	var rows []barRow
	if err := s.db.SelectContext(ctx, &rows, s.rebind(query), args...); err != nil {
		return fmt.Errorf("storage.BatchLoad: %w", err)
	}
	for _, r := range rows {
		out[r.Symbol] = append(out[r.Symbol], r.bar())
	}
	return nil
}

// Symbols devuelve el universo: todos los símbolos con al menos una barra.
func (s *PriceStore) Symbols(ctx context.Context) ([]string, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var out []string
	if err := s.db.SelectContext(ctx, &out,
		`SELECT DISTINCT ts_code FROM daily_bar ORDER BY ts_code`); err != nil {
		return nil, fmt.Errorf("storage.Symbols: %w", err)
	}
	return out, nil
}

// SaveBars inserta o actualiza barras diarias en una transacción.
func (s *PriceStore) SaveBars(ctx context.Context, bars []domain.Bar) error {
	if len(bars) == 0 {
		return nil
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storage.SaveBars: begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PreparexContext(ctx, s.rebind(`
		INSERT INTO daily_bar
		    (ts_code, trade_date, open, high, low, close, pre_close, change, pct_chg, vol, amount)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (ts_code, trade_date) DO UPDATE SET
		    open = excluded.open, high = excluded.high, low = excluded.low,
		    close = excluded.close, pre_close = excluded.pre_close,
		    change = excluded.change, pct_chg = excluded.pct_chg,
		    vol = excluded.vol, amount = excluded.amount`))
	if err != nil {
		return fmt.Errorf("storage.SaveBars: prepare: %w", err)
	}
	defer stmt.Close()

	for _, b := range bars {
		if _, err := stmt.ExecContext(ctx,
			b.Symbol, b.Date, b.Open, b.High, b.Low, b.Close,
			b.PrevClose, b.Change, b.PctChange, b.Volume, b.Amount,
		); err != nil {
			return fmt.Errorf("storage.SaveBars: %s %s: %w", b.Symbol, b.Date, err)
		}
	}
	return tx.Commit()
}
