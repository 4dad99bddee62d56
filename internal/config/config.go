package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App          AppConfig
	Postgres     PostgresConfig
	Redis        RedisConfig
	Logger       LoggerConfig
	Auth         AuthConfig
	Classifier   ClassifierConfig
	Storage      StorageConfig
	Notification NotificationConfig
	Sweeper      SweeperConfig
	Lifecycle    LifecycleConfig
	Wards        WardsConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
	TicketCodePrefix      string
}

// PostgresConfig holds DB connection values. An empty DSN selects the
// in-memory store.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	MigrationsDir  string
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
	// StatementTimeout bounds every query so a stuck ticket row lock cannot
	// hold a request or a sweep worker indefinitely.
	StatementTimeout time.Duration
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
	LockTTL  time.Duration
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AuthConfig defines authentication parameters.
type AuthConfig struct {
	JWTSecret             string
	AccessTokenTTLMinutes int
	BcryptCost            int
	BootstrapAdminEmail   string
	BootstrapAdminPass    string
	FlagLimitWindow       time.Duration
}

// ClassifierConfig selects and tunes the complaint classifier.
type ClassifierConfig struct {
	Provider          string
	OpenAIAPIKey      string
	OpenAIModel       string
	OpenAIVisionModel string
	MaxAttempts       int
	AttemptTimeout    time.Duration
	RetryBackoff      time.Duration
	DefaultDepartment string
}

// StorageConfig selects the evidence store.
type StorageConfig struct {
	Provider  string
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// NotificationConfig selects notifier backends.
type NotificationConfig struct {
	CitizenProvider  string
	OfficerProvider  string
	TwilioAccountSID string
	TwilioAuthToken  string
	TwilioFromNumber string
	KafkaBrokers     []string
	KafkaTopic       string
}

// SweeperConfig controls the periodic SLA sweep.
type SweeperConfig struct {
	Enabled            bool
	RescoreInterval    time.Duration
	EscalationInterval time.Duration
	Concurrency        int
}

// LifecycleConfig holds wall-clock windows for transitions.
type LifecycleConfig struct {
	VerificationWindow time.Duration
	LowRatingWindow    time.Duration
	NoActionGrace      time.Duration
}

// WardsConfig points at an optional ward directory file.
type WardsConfig struct {
	Path string
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	maxConns := int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10))
	minConns := int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2))
	runMigrations := getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true)
	connMaxIdle := int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30))
	connMaxLife := int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300))

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "grievance-service"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
			TicketCodePrefix:      getEnv("TICKET_CODE_PREFIX", "CIV"),
		},
		Postgres: PostgresConfig{
			DSN:              os.Getenv("POSTGRES_DSN"),
			MaxConns:         maxConns,
			MinConns:         minConns,
			RunMigrations:    runMigrations,
			MigrationsDir:    getEnv("POSTGRES_MIGRATIONS_DIR", "migrations"),
			StatementTimeout: getEnvAsDuration("POSTGRES_STATEMENT_TIMEOUT", 5*time.Second),
			ConnMaxIdleSec:   connMaxIdle,
			ConnMaxLifeSec:   connMaxLife,
		},
		Redis: RedisConfig{
			Enabled:  getEnvAsBool("REDIS_ENABLED", true),
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
			LockTTL:  getEnvAsDuration("REDIS_LOCK_TTL", 10*time.Second),
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			JWTSecret:             getEnv("AUTH_JWT_SECRET", "dev-secret"),
			AccessTokenTTLMinutes: getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60),
			BcryptCost:            getEnvAsInt("AUTH_BCRYPT_COST", 12),
			BootstrapAdminEmail:   os.Getenv("AUTH_BOOTSTRAP_ADMIN_EMAIL"),
			BootstrapAdminPass:    os.Getenv("AUTH_BOOTSTRAP_ADMIN_PASSWORD"),
			FlagLimitWindow:       getEnvAsDuration("AUTH_FLAG_LIMIT_WINDOW", 7*24*time.Hour),
		},
		Classifier: ClassifierConfig{
			Provider:          strings.ToLower(getEnv("CLASSIFIER_PROVIDER", "stub")),
			OpenAIAPIKey:      os.Getenv("OPENAI_API_KEY"),
			OpenAIModel:       getEnv("OPENAI_MODEL", "gpt-4o-mini"),
			OpenAIVisionModel: getEnv("OPENAI_VISION_MODEL", "gpt-4o"),
			MaxAttempts:       getEnvAsInt("CLASSIFIER_MAX_ATTEMPTS", 3),
			AttemptTimeout:    getEnvAsDuration("CLASSIFIER_ATTEMPT_TIMEOUT", 8*time.Second),
			RetryBackoff:      getEnvAsDuration("CLASSIFIER_RETRY_BACKOFF", 500*time.Millisecond),
			DefaultDepartment: getEnv("CLASSIFIER_DEFAULT_DEPARTMENT", "D01"),
		},
		Storage: StorageConfig{
			Provider:  strings.ToLower(getEnv("STORAGE_PROVIDER", "memory")),
			Endpoint:  getEnv("MINIO_ENDPOINT", "127.0.0.1:9000"),
			AccessKey: os.Getenv("MINIO_ACCESS_KEY"),
			SecretKey: os.Getenv("MINIO_SECRET_KEY"),
			Bucket:    getEnv("MINIO_BUCKET", "grievance-evidence"),
			UseSSL:    getEnvAsBool("MINIO_USE_SSL", false),
		},
		Notification: NotificationConfig{
			CitizenProvider:  strings.ToLower(getEnv("NOTIFY_CITIZEN_PROVIDER", "log")),
			OfficerProvider:  strings.ToLower(getEnv("NOTIFY_OFFICER_PROVIDER", "log")),
			TwilioAccountSID: os.Getenv("TWILIO_ACCOUNT_SID"),
			TwilioAuthToken:  os.Getenv("TWILIO_AUTH_TOKEN"),
			TwilioFromNumber: os.Getenv("TWILIO_FROM_NUMBER"),
			KafkaBrokers:     getEnvAsList("KAFKA_BROKERS", []string{"127.0.0.1:9092"}),
			KafkaTopic:       getEnv("KAFKA_OFFICER_TOPIC", "grievance.officer-notifications"),
		},
		Sweeper: SweeperConfig{
			Enabled:            getEnvAsBool("SWEEPER_ENABLED", true),
			RescoreInterval:    getEnvAsDuration("SWEEPER_RESCORE_INTERVAL", 5*time.Minute),
			EscalationInterval: getEnvAsDuration("SWEEPER_ESCALATION_INTERVAL", time.Hour),
			Concurrency:        getEnvAsInt("SWEEPER_CONCURRENCY", 8),
		},
		Lifecycle: LifecycleConfig{
			VerificationWindow: getEnvAsDuration("LIFECYCLE_VERIFICATION_WINDOW", 72*time.Hour),
			LowRatingWindow:    getEnvAsDuration("LIFECYCLE_LOW_RATING_WINDOW", 7*24*time.Hour),
			NoActionGrace:      getEnvAsDuration("LIFECYCLE_NO_ACTION_GRACE", 24*time.Hour),
		},
		Wards: WardsConfig{
			Path: os.Getenv("WARDS_FILE"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Classifier.Provider {
	case "stub", "openai":
	default:
		return fmt.Errorf("invalid CLASSIFIER_PROVIDER %q", c.Classifier.Provider)
	}
	if c.Classifier.Provider == "openai" && c.Classifier.OpenAIAPIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY is required for the openai classifier")
	}
	switch c.Storage.Provider {
	case "memory", "minio":
	default:
		return fmt.Errorf("invalid STORAGE_PROVIDER %q", c.Storage.Provider)
	}
	switch c.Notification.CitizenProvider {
	case "log", "twilio":
	default:
		return fmt.Errorf("invalid NOTIFY_CITIZEN_PROVIDER %q", c.Notification.CitizenProvider)
	}
	switch c.Notification.OfficerProvider {
	case "log", "kafka":
	default:
		return fmt.Errorf("invalid NOTIFY_OFFICER_PROVIDER %q", c.Notification.OfficerProvider)
	}
	if c.Classifier.MaxAttempts < 1 {
		return fmt.Errorf("CLASSIFIER_MAX_ATTEMPTS must be at least 1")
	}
	if c.Sweeper.Concurrency < 1 {
		return fmt.Errorf("SWEEPER_CONCURRENCY must be at least 1")
	}
	return nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// AccessTokenTTL returns the JWT lifetime.
func (a AuthConfig) AccessTokenTTL() time.Duration {
	return time.Duration(a.AccessTokenTTLMinutes) * time.Minute
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsList(key string, fallback []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
