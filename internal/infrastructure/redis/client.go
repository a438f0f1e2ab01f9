package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	goredis "github.com/redis/go-redis/v9"

	"github.com/jhoicas/produccion-api/internal/domain"
	"github.com/jhoicas/produccion-api/internal/domain/entity"
	"github.com/jhoicas/produccion-api/pkg/config"
)

// NewClient conecta a Redis y verifica la conexión con PING.
func NewClient(ctx context.Context, cfg config.RedisConfig) (*goredis.Client, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: 20,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis %s: %w", cfg.Address, err)
	}
	return rdb, nil
}

// CounterIDGenerator números de orden con INCR sobre una clave diaria. La clave expira a las
// 48 h: el contador solo importa durante su día.
type CounterIDGenerator struct {
	incr   func(ctx context.Context, key string, ttl time.Duration) (int64, error)
	prefix string
}

const sequenceTTL = 48 * time.Hour

// NewCounterIDGenerator construye el generador. prefix separa entornos que comparten Redis.
func NewCounterIDGenerator(rdb goredis.Cmdable, prefix string) *CounterIDGenerator {
	return &CounterIDGenerator{incr: pipelineIncr(rdb), prefix: prefix}
}

// pipelineIncr INCR y EXPIRE en un MULTI/EXEC.
func pipelineIncr(rdb goredis.Cmdable) func(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	return func(ctx context.Context, key string, ttl time.Duration) (int64, error) {
		pipe := rdb.TxPipeline()
		incr := pipe.Incr(ctx, key)
		pipe.Expire(ctx, key, ttl)
		if _, err := pipe.Exec(ctx); err != nil {
			return 0, err
		}
		return incr.Val(), nil
	}
}

func (g *CounterIDGenerator) Next(ctx context.Context, kind entity.OrderKind, at time.Time) (string, error) {
	key := g.prefix + "order-seq:" + entity.OrderSequenceKey(kind, at)
	seq, err := g.incr(ctx, key, sequenceTTL)
	if err != nil {
		return "", fmt.Errorf("incr %s: %w", key, err)
	}
	return entity.FormatOrderID(kind, at, seq), nil
}

// heldLock lock obtenido; *redislock.Lock lo cumple.
type heldLock interface {
	Refresh(ctx context.Context, ttl time.Duration, opt *redislock.Options) error
	Release(ctx context.Context) error
}

// Locker lock distribuido con redislock.
type Locker struct {
	obtain func(ctx context.Context, key string, ttl time.Duration) (heldLock, error)
}

// NewLocker construye el lock sobre el cliente de Redis.
func NewLocker(rdb redislock.RedisClient) *Locker {
	client := redislock.New(rdb)
	return &Locker{obtain: func(ctx context.Context, key string, ttl time.Duration) (heldLock, error) {
		lock, err := client.Obtain(ctx, key, ttl, nil)
		if err != nil {
			return nil, err
		}
		return lock, nil
	}}
}

// WithLock obtiene el lock, ejecuta fn y lo libera. Si otro proceso lo tiene devuelve
// domain.ErrConflict sin esperar. Mientras fn corre, el lock se renueva a mitad del TTL.
func (l *Locker) WithLock(ctx context.Context, key string, ttl time.Duration, fn func(ctx context.Context) error) error {
	lock, err := l.obtain(ctx, "lock:"+key, ttl)
	if errors.Is(err, redislock.ErrNotObtained) {
		return fmt.Errorf("lock %s ocupado: %w", key, domain.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("obtener lock %s: %w", key, err)
	}
	defer func() { _ = lock.Release(context.Background()) }()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		ticker := time.NewTicker(ttl / 2)
		defer ticker.Stop()
		for {
			select {
			case <-runCtx.Done():
				return
			case <-ticker.C:
				if err := lock.Refresh(runCtx, ttl, nil); err != nil {
					cancel()
					return
				}
			}
		}
	}()
	return fn(runCtx)
}
