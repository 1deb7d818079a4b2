package bootstrap

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"

	RevocationMemory = "memory"
	RevocationRedis  = "redis"
	RevocationBolt   = "bolt"
)

// Config is the resolved runtime configuration for the records service.
type Config struct {
	ServiceID string
	Stage     string
	LogLevel  string

	HTTPPort int
	GRPCPort int

	StorageBackend    string
	DatabaseURL       string
	MaxDBConns        int32
	RevocationBackend string
	RedisURL          string
	BoltPath          string

	JWTPrivateKeyPEM  string
	JWTPublicKeyPEM   string
	JWTKeyID          string
	JWTIssuer         string
	AllowEphemeralJWT bool

	BcryptCost int

	AccessTokenTTL         time.Duration
	RefreshTokenTTL        time.Duration
	LockoutDuration        time.Duration
	FailedThreshold        int
	DefaultStudentPassword string
	DefaultTeacherPassword string
	AllowAdminSignup       bool

	OutboxPollInterval time.Duration
	OutboxBatchSize    int
	OutboxClaimTTL     time.Duration
	OutboxMaxRetries   int
	KafkaBrokers       []string
	KafkaTopicPrefix   string
}

// stagePreset carries the settings that differ between deployment stages.
type stagePreset struct {
	accessTokenTTL    time.Duration
	logLevel          string
	allowEphemeralJWT bool
	allowAdminSignup  bool
}

var stagePresets = map[string]stagePreset{
	"dev":  {accessTokenTTL: 3 * time.Hour, logLevel: "debug", allowEphemeralJWT: true, allowAdminSignup: true},
	"prod": {accessTokenTTL: 30 * time.Minute, logLevel: "info", allowEphemeralJWT: false, allowAdminSignup: false},
	"test": {accessTokenTTL: 15 * time.Minute, logLevel: "warn", allowEphemeralJWT: true, allowAdminSignup: true},
}

// configFile mirrors the YAML schema used by configs/default.yaml.
type configFile struct {
	Service struct {
		ID       string `yaml:"id"`
		Stage    string `yaml:"stage"`
		HTTPPort int    `yaml:"http_port"`
		GRPCPort int    `yaml:"grpc_port"`
		LogLevel string `yaml:"log_level"`
	} `yaml:"service"`
	Storage struct {
		Backend     string `yaml:"backend"`
		PostgresURL string `yaml:"postgres_url"`
		MaxConns    int    `yaml:"max_conns"`
	} `yaml:"storage"`
	Revocation struct {
		Backend  string `yaml:"backend"`
		RedisURL string `yaml:"redis_url"`
		BoltPath string `yaml:"bolt_path"`
	} `yaml:"revocation"`
	Auth struct {
		KeyID                  string `yaml:"key_id"`
		Issuer                 string `yaml:"issuer"`
		AccessTokenTTL         string `yaml:"access_token_ttl"`
		RefreshTokenTTL        string `yaml:"refresh_token_ttl"`
		FailedLoginThreshold   int    `yaml:"failed_login_threshold"`
		LockoutDuration        string `yaml:"lockout_duration"`
		BcryptCost             int    `yaml:"bcrypt_cost"`
		DefaultStudentPassword string `yaml:"default_student_password"`
		DefaultTeacherPassword string `yaml:"default_teacher_password"`
		AllowAdminSignup       *bool  `yaml:"allow_admin_signup"`
	} `yaml:"auth"`
	Outbox struct {
		PollInterval string `yaml:"poll_interval"`
		BatchSize    int    `yaml:"batch_size"`
		ClaimTTL     string `yaml:"claim_ttl"`
		MaxRetries   int    `yaml:"max_retries"`
	} `yaml:"outbox"`
	Kafka struct {
		Brokers     []string `yaml:"brokers"`
		TopicPrefix string   `yaml:"topic_prefix"`
	} `yaml:"kafka"`
}

// LoadConfig resolves configuration in priority order: defaults, stage
// preset, file, then the process environment (seeded from an optional .env).
func LoadConfig(path string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	var f configFile
	raw, err := os.ReadFile(path)
	switch {
	case err == nil:
		if unmarshalErr := yaml.Unmarshal(raw, &f); unmarshalErr != nil {
			return Config{}, fmt.Errorf("parse config file: %w", unmarshalErr)
		}
	case errors.Is(err, fs.ErrNotExist):
	default:
		return Config{}, fmt.Errorf("read config file: %w", err)
	}

	stage := strings.ToLower(strings.TrimSpace(envOrDefault("STAGE", firstNonEmpty(f.Service.Stage, "dev"))))
	preset, ok := stagePresets[stage]
	if !ok {
		return Config{}, fmt.Errorf("unknown stage %q", stage)
	}

	cfg := Config{
		ServiceID:              "academic-records",
		Stage:                  stage,
		LogLevel:               preset.logLevel,
		HTTPPort:               8080,
		GRPCPort:               9090,
		StorageBackend:         StoragePostgres,
		MaxDBConns:             20,
		RevocationBackend:      RevocationMemory,
		BoltPath:               "data/revocations.db",
		JWTKeyID:               "records-key-1",
		JWTIssuer:              "academic-records",
		AllowEphemeralJWT:      preset.allowEphemeralJWT,
		BcryptCost:             12,
		AccessTokenTTL:         preset.accessTokenTTL,
		RefreshTokenTTL:        7 * 24 * time.Hour,
		LockoutDuration:        15 * time.Minute,
		FailedThreshold:        5,
		DefaultStudentPassword: "password123",
		DefaultTeacherPassword: "teacherpassword123",
		AllowAdminSignup:       preset.allowAdminSignup,
		OutboxPollInterval:     2 * time.Second,
		OutboxBatchSize:        100,
		OutboxClaimTTL:         30 * time.Second,
		OutboxMaxRetries:       5,
		KafkaTopicPrefix:       "records.",
	}

	if err := applyFile(&cfg, f); err != nil {
		return Config{}, err
	}
	applyEnv(&cfg)
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyFile(cfg *Config, f configFile) error {
	cfg.ServiceID = firstNonEmpty(f.Service.ID, cfg.ServiceID)
	cfg.LogLevel = firstNonEmpty(f.Service.LogLevel, cfg.LogLevel)
	if f.Service.HTTPPort > 0 {
		cfg.HTTPPort = f.Service.HTTPPort
	}
	if f.Service.GRPCPort > 0 {
		cfg.GRPCPort = f.Service.GRPCPort
	}
	cfg.StorageBackend = firstNonEmpty(f.Storage.Backend, cfg.StorageBackend)
	cfg.DatabaseURL = firstNonEmpty(f.Storage.PostgresURL, cfg.DatabaseURL)
	if f.Storage.MaxConns > 0 {
		cfg.MaxDBConns = int32(f.Storage.MaxConns)
	}
	cfg.RevocationBackend = firstNonEmpty(f.Revocation.Backend, cfg.RevocationBackend)
	cfg.RedisURL = firstNonEmpty(f.Revocation.RedisURL, cfg.RedisURL)
	cfg.BoltPath = firstNonEmpty(f.Revocation.BoltPath, cfg.BoltPath)

	cfg.JWTKeyID = firstNonEmpty(f.Auth.KeyID, cfg.JWTKeyID)
	cfg.JWTIssuer = firstNonEmpty(f.Auth.Issuer, cfg.JWTIssuer)
	if f.Auth.FailedLoginThreshold > 0 {
		cfg.FailedThreshold = f.Auth.FailedLoginThreshold
	}
	if f.Auth.BcryptCost > 0 {
		cfg.BcryptCost = f.Auth.BcryptCost
	}
	cfg.DefaultStudentPassword = firstNonEmpty(f.Auth.DefaultStudentPassword, cfg.DefaultStudentPassword)
	cfg.DefaultTeacherPassword = firstNonEmpty(f.Auth.DefaultTeacherPassword, cfg.DefaultTeacherPassword)
	if f.Auth.AllowAdminSignup != nil {
		cfg.AllowAdminSignup = *f.Auth.AllowAdminSignup
	}

	if f.Outbox.BatchSize > 0 {
		cfg.OutboxBatchSize = f.Outbox.BatchSize
	}
	if f.Outbox.MaxRetries > 0 {
		cfg.OutboxMaxRetries = f.Outbox.MaxRetries
	}
	if len(f.Kafka.Brokers) > 0 {
		cfg.KafkaBrokers = f.Kafka.Brokers
	}
	cfg.KafkaTopicPrefix = firstNonEmpty(f.Kafka.TopicPrefix, cfg.KafkaTopicPrefix)

	durations := []struct {
		name string
		raw  string
		dst  *time.Duration
	}{
		{"auth.access_token_ttl", f.Auth.AccessTokenTTL, &cfg.AccessTokenTTL},
		{"auth.refresh_token_ttl", f.Auth.RefreshTokenTTL, &cfg.RefreshTokenTTL},
		{"auth.lockout_duration", f.Auth.LockoutDuration, &cfg.LockoutDuration},
		{"outbox.poll_interval", f.Outbox.PollInterval, &cfg.OutboxPollInterval},
		{"outbox.claim_ttl", f.Outbox.ClaimTTL, &cfg.OutboxClaimTTL},
	}
	for _, d := range durations {
		if d.raw == "" {
			continue
		}
		parsed, err := time.ParseDuration(d.raw)
		if err != nil {
			return fmt.Errorf("parse %s: %w", d.name, err)
		}
		*d.dst = parsed
	}
	return nil
}

func applyEnv(cfg *Config) {
	cfg.LogLevel = envOrDefault("LOG_LEVEL", cfg.LogLevel)
	cfg.HTTPPort = envInt("HTTP_PORT", cfg.HTTPPort)
	cfg.GRPCPort = envInt("GRPC_PORT", cfg.GRPCPort)

	cfg.StorageBackend = strings.ToLower(envOrDefault("STORAGE_BACKEND", cfg.StorageBackend))
	cfg.DatabaseURL = envOrDefault("DB_URL", envOrDefault("POSTGRES_URL", cfg.DatabaseURL))
	cfg.MaxDBConns = int32(envInt("DB_MAX_CONNS", int(cfg.MaxDBConns)))
	cfg.RevocationBackend = strings.ToLower(envOrDefault("REVOCATION_BACKEND", cfg.RevocationBackend))
	cfg.RedisURL = envOrDefault("REDIS_URL", cfg.RedisURL)
	cfg.BoltPath = envOrDefault("BOLT_PATH", cfg.BoltPath)

	cfg.JWTPrivateKeyPEM = envOrDefault("JWT_PRIVATE_KEY_PEM", cfg.JWTPrivateKeyPEM)
	cfg.JWTPublicKeyPEM = envOrDefault("JWT_PUBLIC_KEY_PEM", cfg.JWTPublicKeyPEM)
	cfg.JWTKeyID = envOrDefault("JWT_KEY_ID", cfg.JWTKeyID)
	cfg.JWTIssuer = envOrDefault("JWT_ISSUER", cfg.JWTIssuer)
	cfg.AllowEphemeralJWT = envBool("JWT_ALLOW_EPHEMERAL", cfg.AllowEphemeralJWT)

	cfg.BcryptCost = envInt("BCRYPT_ROUNDS", cfg.BcryptCost)
	cfg.FailedThreshold = envInt("FAILED_LOGIN_THRESHOLD", cfg.FailedThreshold)
	cfg.LockoutDuration = time.Duration(envInt("ACCOUNT_LOCKOUT_MINUTES", int(cfg.LockoutDuration.Minutes()))) * time.Minute
	cfg.AccessTokenTTL = time.Duration(envInt("ACCESS_TOKEN_EXPIRY_MINUTES", int(cfg.AccessTokenTTL.Minutes()))) * time.Minute
	cfg.RefreshTokenTTL = time.Duration(envInt("REFRESH_TOKEN_EXPIRY_HOURS", int(cfg.RefreshTokenTTL.Hours()))) * time.Hour
	cfg.DefaultStudentPassword = envOrDefault("DEFAULT_STUDENT_PASSWORD", cfg.DefaultStudentPassword)
	cfg.DefaultTeacherPassword = envOrDefault("DEFAULT_TEACHER_PASSWORD", cfg.DefaultTeacherPassword)
	cfg.AllowAdminSignup = envBool("ALLOW_ADMIN_SIGNUP", cfg.AllowAdminSignup)

	cfg.OutboxPollInterval = time.Duration(envInt("OUTBOX_POLL_SECONDS", int(cfg.OutboxPollInterval.Seconds()))) * time.Second
	cfg.OutboxBatchSize = envInt("OUTBOX_BATCH_SIZE", cfg.OutboxBatchSize)
	cfg.OutboxClaimTTL = time.Duration(envInt("OUTBOX_CLAIM_TTL_SECONDS", int(cfg.OutboxClaimTTL.Seconds()))) * time.Second
	cfg.OutboxMaxRetries = envInt("OUTBOX_MAX_RETRIES", cfg.OutboxMaxRetries)
	cfg.KafkaBrokers = envCSV("KAFKA_BROKERS", cfg.KafkaBrokers)
	cfg.KafkaTopicPrefix = envOrDefault("KAFKA_TOPIC_PREFIX", cfg.KafkaTopicPrefix)
}

func (c Config) validate() error {
	switch c.StorageBackend {
	case StoragePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("missing DB_URL/POSTGRES_URL for postgres storage")
		}
	case StorageMemory:
	default:
		return fmt.Errorf("unknown storage backend %q", c.StorageBackend)
	}
	switch c.RevocationBackend {
	case RevocationRedis:
		if c.RedisURL == "" {
			return fmt.Errorf("missing REDIS_URL for redis revocation backend")
		}
	case RevocationBolt:
		if c.BoltPath == "" {
			return fmt.Errorf("missing BOLT_PATH for bolt revocation backend")
		}
	case RevocationMemory:
	default:
		return fmt.Errorf("unknown revocation backend %q", c.RevocationBackend)
	}
	if (c.JWTPrivateKeyPEM == "" || c.JWTPublicKeyPEM == "") && !c.AllowEphemeralJWT {
		return fmt.Errorf("missing JWT_PRIVATE_KEY_PEM or JWT_PUBLIC_KEY_PEM")
	}
	if c.AccessTokenTTL <= 0 || c.RefreshTokenTTL <= 0 {
		return fmt.Errorf("token TTLs must be positive")
	}
	if c.FailedThreshold <= 0 {
		return fmt.Errorf("failed login threshold must be positive")
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// envOrDefault returns an env var when present, otherwise the provided fallback.
func envOrDefault(name, fallback string) string {
	if value := os.Getenv(name); value != "" {
		return value
	}
	return fallback
}

// envInt parses integer env vars with safe fallback on empty/invalid values.
func envInt(name string, fallback int) int {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

func envBool(name string, fallback bool) bool {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	switch raw {
	case "1", "true", "TRUE", "yes", "YES":
		return true
	case "0", "false", "FALSE", "no", "NO":
		return false
	default:
		return fallback
	}
}

// envCSV parses comma-separated env vars and removes empty segments.
func envCSV(name string, fallback []string) []string {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	parts := make([]string, 0)
	for _, part := range strings.Split(raw, ",") {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		parts = append(parts, trimmed)
	}
	if len(parts) == 0 {
		return fallback
	}
	return parts
}
