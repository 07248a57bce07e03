package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(viper.New())
	require.NoError(t, err)

	assert.Equal(t, "8000", cfg.Server.Port)
	assert.Equal(t, "owner", cfg.WebSocket.BroadcastScope)
	assert.Equal(t, 256, cfg.WebSocket.SendBufferSize)
	assert.Equal(t, 5*time.Second, cfg.Tagging.Timeout)
	assert.Empty(t, cfg.Kafka.Brokers)
	assert.Equal(t, []string{"http://localhost:5173"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, "host=localhost port=5432 user=postgres password=password dbname=tasks sslmode=disable", cfg.Database.DSN())
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("TASKS_PORT", "9090")
	t.Setenv("BROADCAST_SCOPE", "ALL")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092,")
	t.Setenv("DATABASE_URL", "postgres://u:p@db:5432/tasks")
	t.Setenv("TAGGING_TIMEOUT", "750ms")

	cfg, err := Load(viper.New())
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "all", cfg.WebSocket.BroadcastScope)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "postgres://u:p@db:5432/tasks", cfg.Database.DSN())
	assert.Equal(t, 750*time.Millisecond, cfg.Tagging.Timeout)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	t.Run("empty secret", func(t *testing.T) {
		v := viper.New()
		v.Set("SECRET_KEY", "")
		_, err := Load(v)
		assert.Error(t, err)
	})

	t.Run("non-positive send buffer", func(t *testing.T) {
		v := viper.New()
		v.Set("WS_SEND_BUFFER", 0)
		_, err := Load(v)
		assert.Error(t, err)
	})
}
