package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	App struct {
		ENV string `yaml:"env"`
	} `yaml:"app"`

	Log struct {
		Level     string `yaml:"level"`
		Format    string `yaml:"format"`
		Component string `yaml:"component"`
		Source    bool   `yaml:"source"`
	} `yaml:"log"`

	DB struct {
		Driver   string `yaml:"driver"`
		DSN      string `yaml:"dsn"`
		Host     string `yaml:"host"`
		Port     string `yaml:"port"`
		User     string `yaml:"user"`
		Password string `yaml:"password"`
		Name     string `yaml:"name"`
	} `yaml:"db"`

	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`

	GRPC struct {
		Host string `yaml:"host"`
		Port string `yaml:"port"`
	} `yaml:"grpc"`

	HTTP struct {
		Addr           string   `yaml:"addr"`
		AllowedOrigins []string `yaml:"allowedOrigins"`
	} `yaml:"http"`

	Tree struct {
		Backend      string        `yaml:"backend"`
		Notifier     string        `yaml:"notifier"`
		PollInterval time.Duration `yaml:"pollInterval"`
	} `yaml:"tree"`

	Firebase struct {
		ProjectID       string `yaml:"projectID"`
		DatabaseURL     string `yaml:"databaseURL"`
		CredentialsJSON string `yaml:"credentialsJSON"`
	} `yaml:"firebase"`

	Auth struct {
		Mode        string        `yaml:"mode"`
		JWTSecret   string        `yaml:"jwtSecret"`
		TokenTTL    time.Duration `yaml:"tokenTTL"`
		RecentLogin time.Duration `yaml:"recentLogin"`
	} `yaml:"auth"`

	Storage struct {
		MinioEndpoint  string `yaml:"minioEndpoint"`
		MinioAccessKey string `yaml:"minioAccessKey"`
		MinioSecretKey string `yaml:"minioSecretKey"`
		MinioBucket    string `yaml:"minioBucket"`
		MinioUseSSL    bool   `yaml:"minioUseSSL"`
		InlineLimit    int64  `yaml:"inlineLimit"`
		MaxUploadBytes int64  `yaml:"maxUploadBytes"`
	} `yaml:"storage"`

	AMQP struct {
		URL      string `yaml:"url"`
		Exchange string `yaml:"exchange"`
	} `yaml:"amqp"`

	Reconcile struct {
		Interval time.Duration `yaml:"interval"`
	} `yaml:"reconcile"`
}

// New builds the configuration from defaults, an optional YAML file named by
// CONFIG_FILE and the environment. Environment variables always win.
func New() *Config {
	cfg := &Config{}

	if path := strings.TrimSpace(os.Getenv("CONFIG_FILE")); path != "" {
		if err := loadFile(path, cfg); err != nil {
			fmt.Fprintf(os.Stderr, "config: %v\n", err)
		}
	}

	// App
	cfg.App.ENV = getEnvDefault("APP_ENV", orDefault(cfg.App.ENV, "development"))

	// Logger
	cfg.Log.Level = getEnvDefault("LOG_LEVEL", orDefault(cfg.Log.Level, "info"))
	cfg.Log.Format = getEnvDefault("LOG_FORMAT", orDefault(cfg.Log.Format, "text"))
	cfg.Log.Component = getEnvDefault("LOG_COMPONENT", orDefault(cfg.Log.Component, "loveconnect"))
	if v, ok := os.LookupEnv("LOG_SOURCE"); ok {
		cfg.Log.Source = isTruthy(v)
	}

	// Database
	cfg.DB.Driver = strings.ToLower(getEnvDefault("DB_DRIVER", orDefault(cfg.DB.Driver, "mysql")))
	cfg.DB.DSN = getEnvDefault("DB_DSN", cfg.DB.DSN)
	if cfg.DB.DSN == "" && cfg.DB.Driver == "mysql" {
		cfg.DB.DSN = os.Getenv("MYSQL_DSN")
	}
	if cfg.DB.DSN == "" {
		cfg.DB.Host = getEnvDefault("DB_HOST", orDefault(cfg.DB.Host, "localhost"))
		cfg.DB.User = getEnvDefault("DB_USER", orDefault(cfg.DB.User, "root"))
		cfg.DB.Password = getEnvDefault("DB_PASSWORD", orDefault(cfg.DB.Password, "root"))
		cfg.DB.Name = getEnvDefault("DB_NAME", orDefault(cfg.DB.Name, "loveconnect"))

		switch cfg.DB.Driver {
		case "postgres":
			cfg.DB.Port = getEnvDefault("DB_PORT", orDefault(cfg.DB.Port, "5432"))
			cfg.DB.DSN = fmt.Sprintf(
				"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable TimeZone=UTC",
				cfg.DB.Host, cfg.DB.Port, cfg.DB.User, cfg.DB.Password, cfg.DB.Name,
			)
		case "sqlite":
			cfg.DB.DSN = getEnvDefault("SQLITE_PATH", "loveconnect.db")
		default:
			cfg.DB.Port = getEnvDefault("DB_PORT", orDefault(cfg.DB.Port, "3306"))
			cfg.DB.DSN = fmt.Sprintf(
				"%s:%s@tcp(%s:%s)/%s?parseTime=true&charset=utf8mb4&collation=utf8mb4_bin&loc=UTC",
				cfg.DB.User, cfg.DB.Password, cfg.DB.Host, cfg.DB.Port, cfg.DB.Name,
			)
		}
	}

	// Redis
	cfg.Redis.Addr = getEnvDefault("REDIS_ADDR", orDefault(cfg.Redis.Addr, "localhost:6379"))
	cfg.Redis.Password = getEnvDefault("REDIS_PASSWORD", cfg.Redis.Password)
	if dbStr := os.Getenv("REDIS_DB"); dbStr != "" {
		if dbInt, err := strconv.Atoi(dbStr); err == nil {
			cfg.Redis.DB = dbInt
		}
	}

	// gRPC
	cfg.GRPC.Host = getEnvDefault("GRPC_HOST", orDefault(cfg.GRPC.Host, "127.0.0.1"))
	cfg.GRPC.Port = getEnvDefault("GRPC_PORT", orDefault(cfg.GRPC.Port, "50051"))

	// HTTP gateway (empty addr disables it)
	cfg.HTTP.Addr = getEnvDefault("HTTP_ADDR", orDefault(cfg.HTTP.Addr, ":8080"))
	if v := os.Getenv("HTTP_ALLOWED_ORIGINS"); v != "" {
		cfg.HTTP.AllowedOrigins = splitCSV(v)
	}
	if len(cfg.HTTP.AllowedOrigins) == 0 {
		cfg.HTTP.AllowedOrigins = []string{"*"}
	}

	// Tree
	cfg.Tree.Backend = strings.ToLower(getEnvDefault("TREE_BACKEND", orDefault(cfg.Tree.Backend, "sql")))
	cfg.Tree.Notifier = strings.ToLower(getEnvDefault("TREE_NOTIFIER", orDefault(cfg.Tree.Notifier, "redis")))
	cfg.Tree.PollInterval = getDurationDefault("TREE_POLL_INTERVAL", cfg.Tree.PollInterval, 2*time.Second)

	// Firebase
	cfg.Firebase.ProjectID = getEnvDefault("FIREBASE_PROJECT_ID", cfg.Firebase.ProjectID)
	cfg.Firebase.DatabaseURL = getEnvDefault("FIREBASE_DATABASE_URL", cfg.Firebase.DatabaseURL)
	cfg.Firebase.CredentialsJSON = getEnvDefault("FIREBASE_CREDENTIALS_JSON", cfg.Firebase.CredentialsJSON)

	// Auth
	cfg.Auth.Mode = strings.ToLower(getEnvDefault("AUTH_MODE", orDefault(cfg.Auth.Mode, "local")))
	cfg.Auth.JWTSecret = getEnvDefault("JWT_SECRET", orDefault(cfg.Auth.JWTSecret, "change-me-in-production"))
	cfg.Auth.TokenTTL = getDurationDefault("JWT_TTL", cfg.Auth.TokenTTL, 24*time.Hour)
	cfg.Auth.RecentLogin = getDurationDefault("AUTH_RECENT_LOGIN", cfg.Auth.RecentLogin, 5*time.Minute)

	// Attachments
	cfg.Storage.MinioEndpoint = getEnvDefault("MINIO_ENDPOINT", cfg.Storage.MinioEndpoint)
	cfg.Storage.MinioAccessKey = getEnvDefault("MINIO_ACCESS_KEY", cfg.Storage.MinioAccessKey)
	cfg.Storage.MinioSecretKey = getEnvDefault("MINIO_SECRET_KEY", cfg.Storage.MinioSecretKey)
	cfg.Storage.MinioBucket = getEnvDefault("MINIO_BUCKET", orDefault(cfg.Storage.MinioBucket, "attachments"))
	if v, ok := os.LookupEnv("MINIO_USE_SSL"); ok {
		cfg.Storage.MinioUseSSL = isTruthy(v)
	}
	cfg.Storage.InlineLimit = getInt64Default("ATTACHMENT_INLINE_LIMIT", cfg.Storage.InlineLimit, 256<<10)
	cfg.Storage.MaxUploadBytes = getInt64Default("ATTACHMENT_MAX_BYTES", cfg.Storage.MaxUploadBytes, 10<<20)

	// Events
	cfg.AMQP.URL = getEnvDefault("AMQP_URL", cfg.AMQP.URL)
	cfg.AMQP.Exchange = getEnvDefault("AMQP_EXCHANGE", orDefault(cfg.AMQP.Exchange, "loveconnect.events"))

	// Reconciliation (0 disables the periodic pass)
	cfg.Reconcile.Interval = getDurationDefault("RECONCILE_INTERVAL", cfg.Reconcile.Interval, 0)

	return cfg
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	return nil
}

func getEnvDefault(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

func getDurationDefault(k string, current, def time.Duration) time.Duration {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	if current != 0 {
		return current
	}
	return def
}

func getInt64Default(k string, current, def int64) int64 {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	if current != 0 {
		return current
	}
	return def
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) != "" {
		return v
	}
	return def
}

func isTruthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "y", "on":
		return true
	}
	return false
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	return out
}
