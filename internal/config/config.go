package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"rephrase-server/pkg/database"
	"rephrase-server/pkg/utils"
)

// Провайдеры генерации, допустимые в LLM_PROVIDER.
const (
	LLMProviderFake   = "fake"
	LLMProviderOpenAI = "openai"
	LLMProviderOllama = "ollama"
)

// Config - конфигурация rephrase-server.
type Config struct {
	Env             string        `envconfig:"ENV" default:"development"`
	LogLevel        string        `envconfig:"LOG_LEVEL" default:"info"`
	LogEncoding     string        `envconfig:"LOG_ENCODING" default:"json"`
	ServerPort      string        `envconfig:"SERVER_PORT" default:"8080"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"15s"`
	SecretsDir      string        `envconfig:"SECRETS_DIR" default:"/run/secrets"`

	// Database
	DBHost           string        `envconfig:"DB_HOST" required:"true"`
	DBPort           int           `envconfig:"DB_PORT" default:"5432"`
	DBUser           string        `envconfig:"DB_USER" required:"true"`
	DBName           string        `envconfig:"DB_NAME" required:"true"`
	DBSSLMode        string        `envconfig:"DB_SSL_MODE" default:"disable"`
	DBPoolSize       int           `envconfig:"DB_POOL_SIZE" default:"10"`
	DBMaxIdleMinutes int           `envconfig:"DB_MAX_IDLE_MINUTES" default:"5"`
	DBConnectRetries int           `envconfig:"DB_CONNECT_RETRIES" default:"10"`
	DBRetryDelay     time.Duration `envconfig:"DB_RETRY_DELAY" default:"3s"`
	RunMigrations    bool          `envconfig:"RUN_MIGRATIONS" default:"true"`
	DBPassword       string        `ignored:"true"`

	// Auth
	JWTSecret string `ignored:"true"`

	// LLM
	LLMProvider  string        `envconfig:"LLM_PROVIDER" required:"true"`
	LLMBaseURL   string        `envconfig:"LLM_BASE_URL"`
	LLMModel     string        `envconfig:"LLM_MODEL" default:"gpt-4o-mini"`
	LLMTimeout   time.Duration `envconfig:"LLM_TIMEOUT" default:"30s"`
	FakeLLMDelay time.Duration `envconfig:"FAKE_LLM_DELAY" default:"200ms"`
	LLMAPIKey    string        `ignored:"true"`

	// Replay cache. Пустой REDIS_ADDR отключает кэш.
	RedisAddr      string        `envconfig:"REDIS_ADDR"`
	RedisDB        int           `envconfig:"REDIS_DB" default:"0"`
	ReplayCacheTTL time.Duration `envconfig:"REPLAY_CACHE_TTL" default:"24h"`
	RedisPassword  string        `ignored:"true"`

	// Usage events. Пустой RABBITMQ_URL отключает публикацию.
	RabbitMQURL      string `envconfig:"RABBITMQ_URL"`
	UsageEventsQueue string `envconfig:"USAGE_EVENTS_QUEUE" default:"rephrase_usage_events"`
}

// Database возвращает параметры подключения к PostgreSQL.
func (c *Config) Database() database.Config {
	return database.Config{
		Host:     c.DBHost,
		Port:     c.DBPort,
		User:     c.DBUser,
		Password: c.DBPassword,
		DBName:   c.DBName,
		SSLMode:  c.DBSSLMode,
	}
}

// PoolConfig возвращает параметры пула соединений.
func (c *Config) PoolConfig() database.PoolConfig {
	return database.PoolConfig{
		DSN:             c.Database().DSN(),
		MaxConns:        int32(c.DBPoolSize),
		MaxConnIdleTime: time.Duration(c.DBMaxIdleMinutes) * time.Minute,
		ConnectRetries:  c.DBConnectRetries,
		RetryDelay:      c.DBRetryDelay,
	}
}

func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// LoadConfig читает .env (если есть), переменные окружения и Docker secrets.
func LoadConfig(envFilePath string) (*Config, error) {
	if envFilePath != "" {
		if _, err := os.Stat(envFilePath); err == nil {
			if err := godotenv.Load(envFilePath); err != nil {
				log.Printf("Warning: Could not load %s file: %v", envFilePath, err)
			} else {
				log.Printf("Loaded configuration from %s", envFilePath)
			}
		} else if !os.IsNotExist(err) {
			log.Printf("Warning: Error checking %s file: %v", envFilePath, err)
		}
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("error processing env vars: %w", err)
	}

	cfg.LLMProvider = strings.ToLower(strings.TrimSpace(cfg.LLMProvider))
	switch cfg.LLMProvider {
	case LLMProviderFake, LLMProviderOpenAI, LLMProviderOllama:
	default:
		return nil, fmt.Errorf("unsupported LLM_PROVIDER %q", cfg.LLMProvider)
	}
	if cfg.DBPoolSize < 1 {
		return nil, fmt.Errorf("DB_POOL_SIZE must be positive, got %d", cfg.DBPoolSize)
	}
	if cfg.LLMTimeout <= 0 {
		return nil, fmt.Errorf("LLM_TIMEOUT must be positive, got %s", cfg.LLMTimeout)
	}

	var err error
	if cfg.DBPassword, err = utils.ReadSecretFrom(cfg.SecretsDir, "db_password"); err != nil {
		return nil, err
	}
	if cfg.JWTSecret, err = utils.ReadSecretFrom(cfg.SecretsDir, "jwt_secret"); err != nil {
		return nil, err
	}

	// необязательные секреты
	if cfg.LLMAPIKey, err = utils.ReadOptionalSecret(cfg.SecretsDir, "llm_api_key"); err != nil {
		return nil, err
	}
	if cfg.LLMProvider == LLMProviderOpenAI && cfg.LLMAPIKey == "" {
		return nil, fmt.Errorf("secret llm_api_key is required for LLM_PROVIDER=%s", cfg.LLMProvider)
	}
	if cfg.RedisPassword, err = utils.ReadOptionalSecret(cfg.SecretsDir, "redis_password"); err != nil {
		return nil, err
	}

	log.Println("Configuration loaded successfully (secrets read from files).")
	return &cfg, nil
}
