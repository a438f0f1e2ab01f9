package config

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var managedKeys = []string{
	"STORAGE_DRIVER", "ORDER_ID_BACKEND", "REDIS_ADDRESS", "KAFKA_BROKERS", "KAFKA_ORDER_TOPIC",
	"ALLOCATION_ALLOW_PARTIAL", "ALLOCATION_BATCH_POLICY", "RM_DEFAULT_SCRAP_ALLOWANCE",
	"DEFAULT_RECEIVING_LOCATION", "RECONCILE_LOCK_TTL", "LOG_LEVEL",
	"DB_MAX_CONNS", "DB_MIN_CONNS", "DB_MAX_CONN_LIFETIME", "DB_FORCE_IPV4", "DB_AUTO_MIGRATE",
}

// clearEnv vacía las variables que leen los tests; viper trata el valor vacío como no definido.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range managedKeys {
		t.Setenv(k, "")
	}
}

func TestLoad_ValoresPorDefecto(t *testing.T) {
	clearEnv(t)
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Storage.Driver)
	assert.Equal(t, "postgres", cfg.Storage.OrderIDBackend)
	assert.Equal(t, "fifo", cfg.Allocation.BatchPolicy)
	assert.False(t, cfg.Allocation.AllowPartial)
	assert.Equal(t, "RECEIVING", cfg.Allocation.ReceivingLocation)
	assert.True(t, cfg.RM.DefaultScrapAllowance.IsZero())
	assert.Equal(t, 5*time.Minute, cfg.Reconcile.LockTTL)
	assert.False(t, cfg.Kafka.Enabled())
	assert.False(t, cfg.Redis.Enabled())
	assert.Equal(t, "info", cfg.App.LogLevel)
	assert.Equal(t, 10, cfg.DB.MaxConns)
	assert.Equal(t, 1, cfg.DB.MinConns)
	assert.Equal(t, time.Hour, cfg.DB.MaxConnLifetime)
	assert.False(t, cfg.DB.ForceIPv4)
	assert.True(t, cfg.DB.AutoMigrate)
}

func TestLoad_LeeVariablesDeEntorno(t *testing.T) {
	clearEnv(t)
	t.Setenv("STORAGE_DRIVER", "memory")
	t.Setenv("ORDER_ID_BACKEND", "redis")
	t.Setenv("REDIS_ADDRESS", "localhost:6379")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("ALLOCATION_ALLOW_PARTIAL", "true")
	t.Setenv("ALLOCATION_BATCH_POLICY", "LIFO")
	t.Setenv("RM_DEFAULT_SCRAP_ALLOWANCE", "0.05")
	t.Setenv("RECONCILE_LOCK_TTL", "30s")
	t.Setenv("DB_MAX_CONNS", "40")
	t.Setenv("DB_MIN_CONNS", "4")
	t.Setenv("DB_FORCE_IPV4", "true")
	t.Setenv("DB_AUTO_MIGRATE", "false")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "memory", cfg.Storage.Driver)
	assert.Equal(t, "redis", cfg.Storage.OrderIDBackend)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.True(t, cfg.Allocation.AllowPartial)
	assert.Equal(t, "lifo", cfg.Allocation.BatchPolicy)
	assert.True(t, cfg.RM.DefaultScrapAllowance.Equal(decimal.RequireFromString("0.05")))
	assert.Equal(t, 30*time.Second, cfg.Reconcile.LockTTL)
	assert.Equal(t, 40, cfg.DB.MaxConns)
	assert.Equal(t, 4, cfg.DB.MinConns)
	assert.True(t, cfg.DB.ForceIPv4)
	assert.False(t, cfg.DB.AutoMigrate)
}

func TestLoad_ValoresInvalidos(t *testing.T) {
	cases := []struct {
		name string
		env  map[string]string
	}{
		{"redis sin dirección", map[string]string{"ORDER_ID_BACKEND": "redis"}},
		{"driver desconocido", map[string]string{"STORAGE_DRIVER": "sqlite"}},
		{"política desconocida", map[string]string{"ALLOCATION_BATCH_POLICY": "random"}},
		{"merma no numérica", map[string]string{"RM_DEFAULT_SCRAP_ALLOWANCE": "abc"}},
		{"merma negativa", map[string]string{"RM_DEFAULT_SCRAP_ALLOWANCE": "-0.1"}},
		{"ttl inválido", map[string]string{"RECONCILE_LOCK_TTL": "cinco"}},
		{"mínimo mayor que máximo", map[string]string{"DB_MAX_CONNS": "2", "DB_MIN_CONNS": "5"}},
		{"vida de conexión inválida", map[string]string{"DB_MAX_CONN_LIFETIME": "siempre"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestDBConfig_DSNEscapaPassword(t *testing.T) {
	c := DBConfig{Host: "db", Port: 5432, User: "app", Password: "p@ss:word", DBName: "produccion", SSLMode: "disable"}
	assert.Equal(t, "postgres://app:p%40ss%3Aword@db:5432/produccion?sslmode=disable", c.DSN())
}
