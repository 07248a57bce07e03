package config

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	WebSocket WebSocketConfig
	Tagging   TaggingConfig
	Kafka     KafkaConfig
	Log       LogConfig
}

var (
	ConfigInstance *Config
	once           sync.Once
	loadErr        error
)

type ServerConfig struct {
	Host           string
	Port           string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	AllowedOrigins []string
}

type DatabaseConfig struct {
	URI      string
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// DSN returns URI when set, otherwise a keyword/value DSN built from the parts
func (d DatabaseConfig) DSN() string {
	if d.URI != "" {
		return d.URI
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode)
}

// RedisConfig is optional: an empty URI disables presence and rate limiting
type RedisConfig struct {
	URI          string
	MaxRetries   int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	PoolSize     int
	MinIdleConns int
}

type JWTConfig struct {
	Secret         string
	ExpirationTime time.Duration
}

type WebSocketConfig struct {
	BroadcastScope string
	AuthTimeout    time.Duration
	SendBufferSize int
}

type TaggingConfig struct {
	GeminiAPIKey string
	GeminiModel  string
	OpenAIAPIKey string
	OpenAIModel  string
	Timeout      time.Duration
}

// KafkaConfig is optional: no brokers disables the event mirror
type KafkaConfig struct {
	Brokers    []string
	Topic      string
	ClientID   string
	BufferSize int
}

type LogConfig struct {
	Level  string
	Format string
}

// LoadConfig returns the process-wide configuration, reading it on first use
func LoadConfig() (*Config, error) {
	once.Do(func() {
		// A missing .env is normal outside local development
		_ = godotenv.Load()
		ConfigInstance, loadErr = Load(viper.New())
	})

	return ConfigInstance, loadErr
}

// Load builds a Config from defaults and the environment seen by v
func Load(v *viper.Viper) (*Config, error) {
	v.SetDefault("TASKS_HOST", "")
	v.SetDefault("TASKS_PORT", "8000")
	v.SetDefault("TASKS_READ_TIMEOUT", 30*time.Second)
	v.SetDefault("TASKS_WRITE_TIMEOUT", 30*time.Second)
	v.SetDefault("TASKS_IDLE_TIMEOUT", 120*time.Second)
	v.SetDefault("ALLOWED_ORIGINS", "http://localhost:5173")
	v.SetDefault("SECRET_KEY", "secret")
	v.SetDefault("JWT_EXPIRE", "24h")
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("REDIS_MAX_RETRIES", 3)
	v.SetDefault("REDIS_POOL_SIZE", 100)
	v.SetDefault("REDIS_MIN_IDLE_CONNS", 10)
	v.SetDefault("REDIS_DIAL_TIMEOUT", 5*time.Second)
	v.SetDefault("REDIS_READ_TIMEOUT", 3*time.Second)
	v.SetDefault("REDIS_WRITE_TIMEOUT", 3*time.Second)
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("POSTGRES_USER", "postgres")
	v.SetDefault("POSTGRES_PASSWORD", "password")
	v.SetDefault("POSTGRES_HOST", "localhost")
	v.SetDefault("POSTGRES_PORT", "5432")
	v.SetDefault("POSTGRES_DB", "tasks")
	v.SetDefault("POSTGRES_SSLMODE", "disable")
	v.SetDefault("BROADCAST_SCOPE", "owner")
	v.SetDefault("WS_AUTH_TIMEOUT", 10*time.Second)
	v.SetDefault("WS_SEND_BUFFER", 256)
	v.SetDefault("GEMINI_MODEL", "gemini-2.0-flash")
	v.SetDefault("OPENAI_MODEL", "gpt-4o-mini")
	v.SetDefault("TAGGING_TIMEOUT", 5*time.Second)
	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("KAFKA_TOPIC", "task-events")
	v.SetDefault("KAFKA_CLIENT_ID", "task-service")
	v.SetDefault("KAFKA_BUFFER", 1024)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "text")
	v.AutomaticEnv()

	cfg := &Config{
		Server: ServerConfig{
			Host:           v.GetString("TASKS_HOST"),
			Port:           v.GetString("TASKS_PORT"),
			ReadTimeout:    v.GetDuration("TASKS_READ_TIMEOUT"),
			WriteTimeout:   v.GetDuration("TASKS_WRITE_TIMEOUT"),
			IdleTimeout:    v.GetDuration("TASKS_IDLE_TIMEOUT"),
			AllowedOrigins: splitList(v.GetString("ALLOWED_ORIGINS")),
		},
		Database: DatabaseConfig{
			URI:      v.GetString("DATABASE_URL"),
			Host:     v.GetString("POSTGRES_HOST"),
			Port:     v.GetString("POSTGRES_PORT"),
			User:     v.GetString("POSTGRES_USER"),
			Password: v.GetString("POSTGRES_PASSWORD"),
			DBName:   v.GetString("POSTGRES_DB"),
			SSLMode:  v.GetString("POSTGRES_SSLMODE"),
		},
		Redis: RedisConfig{
			URI:          v.GetString("REDIS_URL"),
			MaxRetries:   v.GetInt("REDIS_MAX_RETRIES"),
			DialTimeout:  v.GetDuration("REDIS_DIAL_TIMEOUT"),
			ReadTimeout:  v.GetDuration("REDIS_READ_TIMEOUT"),
			WriteTimeout: v.GetDuration("REDIS_WRITE_TIMEOUT"),
			PoolSize:     v.GetInt("REDIS_POOL_SIZE"),
			MinIdleConns: v.GetInt("REDIS_MIN_IDLE_CONNS"),
		},
		JWT: JWTConfig{
			Secret:         v.GetString("SECRET_KEY"),
			ExpirationTime: v.GetDuration("JWT_EXPIRE"),
		},
		WebSocket: WebSocketConfig{
			BroadcastScope: strings.ToLower(v.GetString("BROADCAST_SCOPE")),
			AuthTimeout:    v.GetDuration("WS_AUTH_TIMEOUT"),
			SendBufferSize: v.GetInt("WS_SEND_BUFFER"),
		},
		Tagging: TaggingConfig{
			GeminiAPIKey: v.GetString("GEMINI_API_KEY"),
			GeminiModel:  v.GetString("GEMINI_MODEL"),
			OpenAIAPIKey: v.GetString("OPENAI_API_KEY"),
			OpenAIModel:  v.GetString("OPENAI_MODEL"),
			Timeout:      v.GetDuration("TAGGING_TIMEOUT"),
		},
		Kafka: KafkaConfig{
			Brokers:    splitList(v.GetString("KAFKA_BROKERS")),
			Topic:      v.GetString("KAFKA_TOPIC"),
			ClientID:   v.GetString("KAFKA_CLIENT_ID"),
			BufferSize: v.GetInt("KAFKA_BUFFER"),
		},
		Log: LogConfig{
			Level:  v.GetString("LOG_LEVEL"),
			Format: v.GetString("LOG_FORMAT"),
		},
	}

	if cfg.JWT.Secret == "" {
		return nil, fmt.Errorf("SECRET_KEY must not be empty")
	}
	if cfg.WebSocket.SendBufferSize <= 0 {
		return nil, fmt.Errorf("WS_SEND_BUFFER must be positive, got %d", cfg.WebSocket.SendBufferSize)
	}

	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
