package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	dErrors "warden/pkg/domain-errors"
	platformstrings "warden/pkg/platform/strings"
)

// Approval window bounds. Anything shorter gives reviewers no chance to
// react; anything longer leaves an unvetted participant in the community
// for too long.
const (
	MinApprovalTimeout = 5 * time.Second
	MaxApprovalTimeout = 300 * time.Second
)

// Config captures everything the server reads from the environment.
type Config struct {
	Approval ApprovalConfig
	HTTP     HTTPConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Auth     AuthConfig
	LogLevel string
}

// ApprovalConfig controls the workflow itself.
type ApprovalConfig struct {
	CommandPrefix string
	Timeout       time.Duration
	// ReviewerRoleID names the role whose members review approvals. The
	// concrete platform adapter resolves Directory lookups against it;
	// the in-memory gateway scripts its reviewers directly.
	ReviewerRoleID       string
	RequiredCapabilities []string
	RemovalRetries       int
	// AnnounceChannelID is where resolutions are posted. Empty disables
	// channel announcements; reviewer DMs still go out.
	AnnounceChannelID string
}

// HTTPConfig captures HTTP server level configuration.
type HTTPConfig struct {
	Addr string
}

// DatabaseConfig points at the audit store. Empty URL means the in-memory
// store serves audit reads and the trail does not survive restarts.
type DatabaseConfig struct {
	URL string
	// AuditRetentionDays prunes operations and security events older than
	// this many days. Zero keeps everything. Compliance events are never
	// pruned.
	AuditRetentionDays int
}

// RedisConfig points at the allowlist store. Empty URL means the in-memory
// allowlist is used.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig controls the best-effort audit stream. No brokers disables it.
type KafkaConfig struct {
	Brokers    []string
	AuditTopic string
}

// AuthConfig guards the ops API.
type AuthConfig struct {
	JWTSecret  string
	OpsKeyHash string
}

// FromEnv builds the config from environment variables so main stays lean.
// Defaults apply where a variable is unset; Validate catches the rest.
func FromEnv() Config {
	return Config{
		Approval: ApprovalConfig{
			CommandPrefix:        getEnv("WARDEN_COMMAND_PREFIX", "!approval"),
			Timeout:              time.Duration(getEnvInt("WARDEN_APPROVAL_TIMEOUT_SECONDS", 10)) * time.Second,
			ReviewerRoleID:       os.Getenv("WARDEN_REVIEWER_ROLE_ID"),
			RequiredCapabilities: platformstrings.DedupeAndTrimLower(strings.Split(getEnv("WARDEN_REQUIRED_CAPABILITIES", "remove_participants,send_messages"), ",")),
			RemovalRetries:       getEnvInt("WARDEN_REMOVAL_RETRIES", 3),
			AnnounceChannelID:    os.Getenv("WARDEN_ANNOUNCE_CHANNEL"),
		},
		HTTP: HTTPConfig{
			Addr: getEnv("WARDEN_HTTP_ADDR", ":8080"),
		},
		Database: DatabaseConfig{
			URL:                os.Getenv("WARDEN_DATABASE_URL"),
			AuditRetentionDays: getEnvInt("WARDEN_AUDIT_RETENTION_DAYS", 0),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("WARDEN_REDIS_URL"),
			PoolSize:     getEnvInt("WARDEN_REDIS_POOL_SIZE", 10),
			MinIdleConns: getEnvInt("WARDEN_REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		Kafka: KafkaConfig{
			Brokers:    platformstrings.DedupeAndTrim(splitNonEmpty(os.Getenv("WARDEN_KAFKA_BROKERS"))),
			AuditTopic: getEnv("WARDEN_AUDIT_TOPIC", "warden.audit"),
		},
		Auth: AuthConfig{
			JWTSecret:  os.Getenv("WARDEN_JWT_SECRET"),
			OpsKeyHash: os.Getenv("WARDEN_OPS_KEY_HASH"),
		},
		LogLevel: getEnv("WARDEN_LOG_LEVEL", "info"),
	}
}

// Validate rejects configurations the workflow cannot run with.
func (c Config) Validate() error {
	if c.Approval.Timeout < MinApprovalTimeout || c.Approval.Timeout > MaxApprovalTimeout {
		return dErrors.New(dErrors.CodeInvalidInput,
			fmt.Sprintf("approval timeout %s outside valid range %s..%s",
				c.Approval.Timeout, MinApprovalTimeout, MaxApprovalTimeout))
	}
	if c.Approval.ReviewerRoleID == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "WARDEN_REVIEWER_ROLE_ID is required")
	}
	if c.Approval.CommandPrefix == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "command prefix cannot be empty")
	}
	if c.Approval.RemovalRetries < 1 {
		return dErrors.New(dErrors.CodeInvalidInput, "removal retries must be at least 1")
	}
	if c.Database.AuditRetentionDays < 0 {
		return dErrors.New(dErrors.CodeInvalidInput, "audit retention days cannot be negative")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func splitNonEmpty(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}
