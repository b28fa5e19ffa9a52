package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/alejandrodnm/alphaspike/internal/domain"
	"github.com/alejandrodnm/alphaspike/internal/ports"
)

// ResultStore es el tier frío: hit lists por (feature, fecha) en la tabla
// feature_result. Implementa ports.ColdTier, ports.ScanHistory y ports.RunRecorder.
type ResultStore struct {
	*DB
}

// NewResultStore crea el store sobre una conexión ya abierta.
func NewResultStore(db *DB) *ResultStore {
	return &ResultStore{DB: db}
}

// TryCold devuelve el hit list almacenado para la clave. Un miss es (nil, false, nil).
func (s *ResultStore) TryCold(ctx context.Context, key domain.CacheKey) (domain.HitList, bool, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var raw string
	err := s.db.GetContext(ctx, &raw,
		s.rebind(`SELECT ts_codes FROM feature_result WHERE feature_name = ? AND scan_date = ?`),
		key.Feature, key.Date)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("storage.TryCold: %s: %w: %w", key, domain.ErrPersistence, err)
	}

	hits, err := decodeHits(raw)
	if err != nil {
		return nil, false, fmt.Errorf("storage.TryCold: %s: %w: %w", key, domain.ErrPersistence, err)
	}
	return hits, true, nil
}

// StoreCold reemplaza el hit list de la clave (upsert).
func (s *ResultStore) StoreCold(ctx context.Context, key domain.CacheKey, hits domain.HitList) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	raw, err := encodeHits(hits)
	if err != nil {
		return fmt.Errorf("storage.StoreCold: %s: encode: %w", key, err)
	}
	_, err = s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO feature_result (feature_name, scan_date, ts_codes)
		VALUES (?, ?, ?)
		ON CONFLICT (feature_name, scan_date) DO UPDATE SET ts_codes = excluded.ts_codes`),
		key.Feature, key.Date, raw)
	if err != nil {
		return fmt.Errorf("storage.StoreCold: %s: %w: %w", key, domain.ErrPersistence, err)
	}
	return nil
}

// StoreColdIfAbsent inserta el hit list sólo si la clave no tiene fila.
// Una escritura concurrente de StoreCold siempre gana.
func (s *ResultStore) StoreColdIfAbsent(ctx context.Context, key domain.CacheKey, hits domain.HitList) (bool, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	raw, err := encodeHits(hits)
	if err != nil {
		return false, fmt.Errorf("storage.StoreColdIfAbsent: %s: encode: %w", key, err)
	}
	res, err := s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO feature_result (feature_name, scan_date, ts_codes)
		VALUES (?, ?, ?)
		ON CONFLICT (feature_name, scan_date) DO NOTHING`),
		key.Feature, key.Date, raw)
	if err != nil {
		return false, fmt.Errorf("storage.StoreColdIfAbsent: %s: %w: %w", key, domain.ErrPersistence, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("storage.StoreColdIfAbsent: %s: %w: %w", key, domain.ErrPersistence, err)
	}
	return n > 0, nil
}

type scanRow struct {
	Feature string `db:"feature_name"`
	Date    string `db:"scan_date"`
	Codes   string `db:"ts_codes"`
}

// ListScans devuelve los hit lists persistidos que pasan el filtro,
// ordenados por (feature, fecha).
func (s *ResultStore) ListScans(ctx context.Context, f ports.ScanFilter) ([]domain.StoredScan, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var (
		where []string
		args  []any
	)
	if f.Feature != "" {
		where = append(where, "feature_name = ?")
		args = append(args, f.Feature)
	}
	if f.StartDate != "" {
		where = append(where, "scan_date >= ?")
		args = append(args, f.StartDate)
	}
	if f.EndDate != "" {
		where = append(where, "scan_date <= ?")
		args = append(args, f.EndDate)
	}
	query := `SELECT feature_name, scan_date, ts_codes FROM feature_result`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY feature_name, scan_date"

	var rows []scanRow
	if err := s.db.SelectContext(ctx, &rows, s.rebind(query), args...); err != nil {
		return nil, fmt.Errorf("storage.ListScans: %w: %w", domain.ErrPersistence, err)
	}

	out := make([]domain.StoredScan, 0, len(rows))
	for _, r := range rows {
		hits, err := decodeHits(r.Codes)
		if err != nil {
			return nil, fmt.Errorf("storage.ListScans: %s/%s: %w", r.Feature, r.Date, err)
		}
		out = append(out, domain.StoredScan{Feature: r.Feature, Date: r.Date, Hits: hits})
	}
	return out, nil
}

// FeatureNames devuelve las features con al menos un resultado persistido.
func (s *ResultStore) FeatureNames(ctx context.Context) ([]string, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var names []string
	err := s.db.SelectContext(ctx, &names,
		`SELECT DISTINCT feature_name FROM feature_result ORDER BY feature_name`)
	if err != nil {
		return nil, fmt.Errorf("storage.FeatureNames: %w: %w", domain.ErrPersistence, err)
	}
	return names, nil
}

// RecordRun guarda la fila de auditoría de un scan.
func (s *ResultStore) RecordRun(ctx context.Context, run domain.ScanRun) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	createdAt := run.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO scan_runs
		    (id, feature, scan_date, provenance, hits, scanned, skipped, errors, workers, duration_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		run.ID, run.Feature, run.Date, run.Provenance.String(),
		run.Hits, run.Scanned, run.Skipped, run.Errors, run.Workers,
		run.Duration.Milliseconds(), createdAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("storage.RecordRun: %s: %w: %w", run.ID, domain.ErrPersistence, err)
	}
	return nil
}

// CountRuns devuelve cuántas filas de auditoría hay para la feature ("" = todas).
func (s *ResultStore) CountRuns(ctx context.Context, feature string) (int, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	query := `SELECT COUNT(*) FROM scan_runs`
	var args []any
	if feature != "" {
		query += ` WHERE feature = ?`
		args = append(args, feature)
	}
	var n int
	if err := s.db.GetContext(ctx, &n, s.rebind(query), args...); err != nil {
		return 0, fmt.Errorf("storage.CountRuns: %w", err)
	}
	return n, nil
}

// Los hit lists se guardan como array JSON: mismo formato que el tier caliente.
func encodeHits(hits domain.HitList) (string, error) {
	if hits == nil {
		hits = domain.HitList{}
	}
	b, err := json.Marshal([]string(hits))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func decodeHits(raw string) (domain.HitList, error) {
	var codes []string
	if err := json.Unmarshal([]byte(raw), &codes); err != nil {
		return nil, fmt.Errorf("decode hit list: %w", err)
	}
	return domain.NewHitList(codes), nil
}
