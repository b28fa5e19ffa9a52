package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/alejandrodnm/alphaspike/config"
	"github.com/alejandrodnm/alphaspike/internal/adapters/redis"
	"github.com/alejandrodnm/alphaspike/internal/adapters/storage"
	"github.com/alejandrodnm/alphaspike/internal/domain"
	"github.com/alejandrodnm/alphaspike/internal/feature"
	"github.com/alejandrodnm/alphaspike/internal/metrics"
	"github.com/alejandrodnm/alphaspike/internal/ports"
)

// app agrupa las dependencias abiertas para un comando.
type app struct {
	cfg      *config.Config
	db       *storage.DB
	results  *storage.ResultStore
	prices   *storage.PriceStore
	hot      *redis.HotStore
	metrics  *metrics.Metrics
	features *feature.Registry

	metricsFile string
}

// open abre storage, métricas y (si está configurado y responde) Redis.
func (o *rootOptions) open(ctx context.Context) (*app, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, err
	}

	db, err := storage.Open(cfg.Storage.Driver, cfg.StorageDSN())
	if err != nil {
		return nil, fmt.Errorf("open storage: %w: %w", domain.ErrPersistence, err)
	}

	a := &app{
		cfg:         cfg,
		db:          db,
		results:     storage.NewResultStore(db),
		prices:      storage.NewPriceStore(db),
		metrics:     metrics.New(),
		features:    feature.Default(),
		metricsFile: o.metricsFile,
	}

	if cfg.Redis.Addr != "" {
		hot := redis.New(redis.Options{
			Addr:      cfg.Redis.Addr,
			Password:  cfg.Redis.Password,
			DB:        cfg.Redis.DB,
			OpTimeout: cfg.RedisTimeout(),
		})
		if err := hot.Ping(ctx); err != nil {
			slog.Warn("redis unavailable, hot tier disabled", "addr", cfg.Redis.Addr, "err", err)
			hot.Close() //nolint:errcheck
		} else {
			a.hot = hot
		}
	}

	slog.Debug("alphaspike ready",
		"driver", db.Driver(),
		"redis", a.hot != nil,
		"features", strings.Join(a.features.Names(), ","),
	)
	return a, nil
}

// hotTier devuelve el tier caliente como interfaz; nil si no hay Redis.
func (a *app) hotTier() ports.HotTier {
	if a.hot == nil {
		return nil
	}
	return a.hot
}

// Close vuelca las métricas y cierra las conexiones.
func (a *app) Close() error {
	var errs []error
	if err := a.metrics.WriteTextfile(a.metricsFile); err != nil {
		errs = append(errs, err)
	}
	if a.hot != nil {
		if err := a.hot.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close redis: %w", err))
		}
	}
	if err := a.db.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close storage: %w", err))
	}
	return errors.Join(errs...)
}

// validationError marca un error de input del usuario.
func validationError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", domain.ErrValidation, fmt.Sprintf(format, args...))
}

// splitFeatures separa "a,b , c" en nombres sin vacíos.
func splitFeatures(s string) []string {
	var out []string
	for _, f := range strings.Split(s, ",") {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}
