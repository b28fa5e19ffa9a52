// Package redis implementa el tier caliente de la cache de resultados sobre
// Redis. Cualquier fallo (conexión, timeout, breaker abierto, payload
// corrupto) se devuelve como error y el llamador lo trata como miss.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"

	"github.com/alejandrodnm/alphaspike/internal/domain"
)

const defaultOpTimeout = 2 * time.Second

// Options configura el cliente.
type Options struct {
	Addr      string
	Password  string
	DB        int
	OpTimeout time.Duration
}

// HotStore guarda hit lists como arrays JSON con TTL.
// Implementa ports.HotTier.
type HotStore struct {
	client  goredis.UniversalClient
	breaker *gobreaker.CircuitBreaker
	timeout time.Duration
}

// New crea un HotStore con su propio cliente. No comprueba la conexión:
// un Redis caído se manifiesta como errores en TryHot/StoreHot.
func New(opts Options) *HotStore {
	client := goredis.NewClient(&goredis.Options{
		Addr:         opts.Addr,
		Password:     opts.Password,
		DB:           opts.DB,
		DialTimeout:  opts.OpTimeout,
		ReadTimeout:  opts.OpTimeout,
		WriteTimeout: opts.OpTimeout,
		MaxRetries:   1,
	})
	return NewWithClient(client, opts.OpTimeout)
}

// NewWithClient reutiliza un cliente existente (tests con redismock).
func NewWithClient(client goredis.UniversalClient, opTimeout time.Duration) *HotStore {
	if opTimeout <= 0 {
		opTimeout = defaultOpTimeout
	}
	return &HotStore{
		client:  client,
		breaker: newBreaker("redis-hot-tier"),
		timeout: opTimeout,
	}
}

// Tras 3 fallos seguidos deja de intentar durante 30s: con Redis caído cada
// scan pagaría un timeout por clave.
func newBreaker(name string) *gobreaker.CircuitBreaker {
	st := gobreaker.Settings{Name: name}
	st.Interval = 60 * time.Second
	st.Timeout = 30 * time.Second
	st.ReadyToTrip = func(counts gobreaker.Counts) bool {
		return counts.ConsecutiveFailures >= 3
	}
	return gobreaker.NewCircuitBreaker(st)
}

// Ping comprueba la conexión.
func (s *HotStore) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis.Ping: %w: %w", domain.ErrTierUnavailable, err)
	}
	return nil
}

// TryHot lee la clave. Un miss es (nil, false, nil).
func (s *HotStore) TryHot(ctx context.Context, key domain.CacheKey) (domain.HitList, bool, error) {
	res, err := s.breaker.Execute(func() (any, error) {
		ctx, cancel := context.WithTimeout(ctx, s.timeout)
		defer cancel()
		raw, err := s.client.Get(ctx, key.String()).Result()
		if errors.Is(err, goredis.Nil) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		return raw, nil
	})
	if err != nil {
		return nil, false, fmt.Errorf("redis.TryHot: %s: %w: %w", key, domain.ErrTierUnavailable, err)
	}
	raw, ok := res.(string)
	if !ok {
		return nil, false, nil
	}

	var codes []string
	if err := json.Unmarshal([]byte(raw), &codes); err != nil {
		return nil, false, fmt.Errorf("redis.TryHot: %s: decode: %w", key, err)
	}
	return domain.NewHitList(codes), true, nil
}

// StoreHot escribe la clave con TTL, reemplazando el valor anterior.
func (s *HotStore) StoreHot(ctx context.Context, key domain.CacheKey, hits domain.HitList, ttl time.Duration) error {
	if hits == nil {
		hits = domain.HitList{}
	}
	b, err := json.Marshal([]string(hits))
	if err != nil {
		return fmt.Errorf("redis.StoreHot: %s: encode: %w", key, err)
	}

	_, err = s.breaker.Execute(func() (any, error) {
		ctx, cancel := context.WithTimeout(ctx, s.timeout)
		defer cancel()
		return nil, s.client.Set(ctx, key.String(), string(b), ttl).Err()
	})
	if err != nil {
		return fmt.Errorf("redis.StoreHot: %s: %w: %w", key, domain.ErrTierUnavailable, err)
	}
	return nil
}

// Close cierra el cliente.
func (s *HotStore) Close() error {
	return s.client.Close()
}
