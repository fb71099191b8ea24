package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all service configuration, loaded once at startup from
// the environment (optionally seeded from a .env file).
type Config struct {
	Environment string

	Server        ServerConfig
	Logging       LoggingConfig
	Redis         RedisConfig
	Scylla        ScyllaConfig
	Kafka         KafkaConfig
	Elasticsearch ElasticsearchConfig
	Clickhouse    ClickhouseConfig
	SMTP          SMTPConfig
	JWT           JWTConfig
	Cookie        CookieConfig
	OTP           OTPConfig
	Hashing       HashingConfig
	Bucketing     BucketingConfig
	Jobs          JobsConfig
}

type ServerConfig struct {
	Host         string
	Port         int
	TLSPort      int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration

	EnableTLS   bool
	AutoCert    bool
	Domain      string
	CertFile    string
	KeyFile     string
	AutoCertDir string
	Email       string
}

type LoggingConfig struct {
	Level  string
	Format string
}

type RedisConfig struct {
	URL      string
	Password string
	DB       int
	PoolSize int
}

type ScyllaConfig struct {
	Nodes    []string
	Keyspace string
	Username string
	Password string
}

type KafkaConfig struct {
	Brokers     []string
	EventsTopic string
}

type ElasticsearchConfig struct {
	URL          string
	Username     string
	Password     string
	CompanyIndex string
}

type ClickhouseConfig struct {
	URL      string
	Username string
	Password string
	Database string
}

type SMTPConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
}

type JWTConfig struct {
	AccessSecret  string
	RefreshSecret string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Issuer        string
}

type CookieConfig struct {
	Domain string
	Secure bool
}

type OTPConfig struct {
	TTL         time.Duration
	MaxAttempts int

	// Issue throttling: at most IssueLimit codes per email per IssueWindow
	IssueLimit  int
	IssueWindow time.Duration
}

type HashingConfig struct {
	BcryptCost int
}

type BucketingConfig struct {
	CompanyBuckets int
}

// JobsConfig points at the peer job service used for best-effort
// job-count lookups on the admin detail view.
type JobsConfig struct {
	BaseURL string
	Timeout time.Duration
}

var (
	globalConfig *Config
	loadOnce     sync.Once
)

// LoadConfig loads configuration from the environment. A .env file in
// the working directory is honored when present (development).
func LoadConfig() *Config {
	loadOnce.Do(func() {
		_ = godotenv.Load()

		env := getEnv("ENVIRONMENT", "development")

		globalConfig = &Config{
			Environment: env,
			Server: ServerConfig{
				Host:         getEnv("SERVER_HOST", "0.0.0.0"),
				Port:         getEnvInt("SERVER_PORT", 3001),
				TLSPort:      getEnvInt("SERVER_TLS_PORT", 8443),
				ReadTimeout:  getEnvDuration("SERVER_READ_TIMEOUT", 15*time.Second),
				WriteTimeout: getEnvDuration("SERVER_WRITE_TIMEOUT", 15*time.Second),
				IdleTimeout:  getEnvDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
				EnableTLS:    getEnvBool("SERVER_ENABLE_TLS", false),
				AutoCert:     getEnvBool("SERVER_AUTO_CERT", false),
				Domain:       getEnv("SERVER_DOMAIN", "localhost"),
				CertFile:     getEnv("SERVER_CERT_FILE", ""),
				KeyFile:      getEnv("SERVER_KEY_FILE", ""),
				AutoCertDir:  getEnv("SERVER_AUTOCERT_DIR", "./certs"),
				Email:        getEnv("SERVER_ACME_EMAIL", ""),
			},
			Logging: LoggingConfig{
				Level:  getEnv("LOG_LEVEL", "info"),
				Format: getEnv("LOG_FORMAT", "json"),
			},
			Redis: RedisConfig{
				URL:      getEnv("REDIS_URL", "redis://localhost:6379"),
				Password: getEnv("REDIS_PASSWORD", ""),
				DB:       getEnvInt("REDIS_DB", 0),
				PoolSize: getEnvInt("REDIS_POOL_SIZE", 50),
			},
			Scylla: ScyllaConfig{
				Nodes:    getEnvList("SCYLLA_NODES", "127.0.0.1:9042"),
				Keyspace: getEnv("SCYLLA_KEYSPACE", "company_service"),
				Username: getEnv("SCYLLA_USERNAME", ""),
				Password: getEnv("SCYLLA_PASSWORD", ""),
			},
			Kafka: KafkaConfig{
				Brokers:     getEnvList("KAFKA_BROKERS", "localhost:9092"),
				EventsTopic: getEnv("KAFKA_EVENTS_TOPIC", "company-events"),
			},
			Elasticsearch: ElasticsearchConfig{
				URL:          getEnv("ELASTICSEARCH_URL", "http://localhost:9200"),
				Username:     getEnv("ELASTICSEARCH_USERNAME", ""),
				Password:     getEnv("ELASTICSEARCH_PASSWORD", ""),
				CompanyIndex: getEnv("ELASTICSEARCH_COMPANY_INDEX", "companies"),
			},
			Clickhouse: ClickhouseConfig{
				URL:      getEnv("CLICKHOUSE_URL", "http://localhost:8123"),
				Username: getEnv("CLICKHOUSE_USERNAME", "default"),
				Password: getEnv("CLICKHOUSE_PASSWORD", ""),
				Database: getEnv("CLICKHOUSE_DATABASE", "company_service"),
			},
			SMTP: SMTPConfig{
				Host:     getEnv("SMTP_HOST", "smtp.example.com"),
				Port:     getEnv("SMTP_PORT", "465"),
				Username: getEnv("SMTP_USER", ""),
				Password: getEnv("SMTP_PASS", ""),
				From:     getEnv("SMTP_FROM", "Company Service <no-reply@company.com>"),
			},
			JWT: JWTConfig{
				AccessSecret:  getEnv("JWT_SECRET", "supersecret"),
				RefreshSecret: getEnv("REFRESH_TOKEN_SECRET", "refresh_secret"),
				AccessTTL:     getEnvDuration("JWT_ACCESS_TTL", 2*time.Hour),
				RefreshTTL:    getEnvDuration("JWT_REFRESH_TTL", 7*24*time.Hour),
				Issuer:        getEnv("JWT_ISSUER", "company-service"),
			},
			Cookie: CookieConfig{
				Domain: getEnv("COOKIE_DOMAIN", ""),
				Secure: env == "production",
			},
			OTP: OTPConfig{
				TTL:         getEnvDuration("OTP_TTL", 300*time.Second),
				MaxAttempts: getEnvInt("OTP_MAX_ATTEMPTS", 5),
				IssueLimit:  getEnvInt("OTP_ISSUE_LIMIT", 3),
				IssueWindow: getEnvDuration("OTP_ISSUE_WINDOW", 15*time.Minute),
			},
			Hashing: HashingConfig{
				BcryptCost: getEnvInt("BCRYPT_COST", 10),
			},
			Bucketing: BucketingConfig{
				CompanyBuckets: getEnvInt("COMPANY_BUCKETS", 64),
			},
			Jobs: JobsConfig{
				BaseURL: getEnv("JOBS_SERVICE_URL", "http://localhost:3002"),
				Timeout: getEnvDuration("JOBS_SERVICE_TIMEOUT", 3*time.Second),
			},
		}
	})

	return globalConfig
}

// Get returns the loaded config, loading it on first use.
func Get() *Config {
	if globalConfig == nil {
		return LoadConfig()
	}
	return globalConfig
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func (c *Config) GetServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvList(key, defaultValue string) []string {
	value := getEnv(key, defaultValue)
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
