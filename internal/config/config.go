package config

import (
	"os"
	"strconv"
	"time"

	commoncfg "audit-remediation/common/config"
	"audit-remediation/internal/models"
)

// Engine holds the rule-engine thresholds. It is passed explicitly into the
// scanner, writer and escalation workflow.
type Engine struct {
	EscalationDays          int
	SLADaysBySeverity       map[models.Severity]int
	DefaultSosTargetMinutes float64
	DefaultMaxMark          float64
	TopN                    int
}

// DefaultEngine returns the stock thresholds.
func DefaultEngine() Engine {
	return Engine{
		EscalationDays: 3,
		SLADaysBySeverity: map[models.Severity]int{
			models.SeverityCritical: 3,
			models.SeverityMajor:    7,
			models.SeverityMinor:    14,
		},
		DefaultSosTargetMinutes: 2.0,
		DefaultMaxMark:          3.0,
		TopN:                    3,
	}
}

// SLADays returns the configured SLA for severity, falling back to the stock table.
func (e Engine) SLADays(s models.Severity) int {
	if d, ok := e.SLADaysBySeverity[s]; ok && d > 0 {
		return d
	}
	return DefaultEngine().SLADaysBySeverity[s]
}

// Config remediation engine service configuration
type Config struct {
	Database commoncfg.DatabaseConfig
	Redis    commoncfg.RedisConfig
	MQTT     commoncfg.MQTTConfig

	RedisEnabled bool

	Engine Engine

	Escalation struct {
		Interval time.Duration // sweep period, default 24h
		LockTTL  time.Duration // run lock TTL, default 30m
	}

	Plan struct {
		LockTTL time.Duration // per-inspection lock TTL, default 60s
	}

	Notifier struct {
		Transport string // log | http | mqtt | stream
		HTTPURL   string
		Stream    string
	}

	Streams struct {
		Inspection    string
		ConsumerGroup string
		ConsumerName  string
		BatchSize     int64
		ReplayIdle    time.Duration
		MaxDeliveries int64
	}

	Metrics struct {
		Addr string
	}

	Log struct {
		Level  string
		Format string
	}
}

// Load builds the configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}

	cfg.Database.Host = "localhost"
	cfg.Database.Port = 5432
	cfg.Database.User = "postgres"
	cfg.Database.Password = "postgres"
	cfg.Database.Database = "audits"
	cfg.Database.SSLMode = "disable"
	cfg.Database.MaxConns = 10
	cfg.Database.MaxIdle = 5
	cfg.Database.LoadFromEnv("DB")

	cfg.Redis.Addr = "localhost:6379"
	cfg.Redis.LoadFromEnv("REDIS")
	cfg.RedisEnabled = getEnv("REDIS_ENABLED", "true") == "true"

	cfg.MQTT.Broker = "tcp://localhost:1883"
	cfg.MQTT.ClientID = "remediation-engine"
	cfg.MQTT.TopicPrefix = "audits/notifications"
	cfg.MQTT.QoS = 1
	cfg.MQTT.LoadFromEnv("MQTT")

	cfg.Engine = DefaultEngine()
	cfg.Engine.EscalationDays = parseInt(getEnv("ESCALATION_DAYS", "3"), 3)
	cfg.Engine.SLADaysBySeverity[models.SeverityCritical] = parseInt(getEnv("SLA_DAYS_CRITICAL", "3"), 3)
	cfg.Engine.SLADaysBySeverity[models.SeverityMajor] = parseInt(getEnv("SLA_DAYS_MAJOR", "7"), 7)
	cfg.Engine.SLADaysBySeverity[models.SeverityMinor] = parseInt(getEnv("SLA_DAYS_MINOR", "14"), 14)
	cfg.Engine.DefaultSosTargetMinutes = parseFloat(getEnv("DEFAULT_SOS_TARGET_MINUTES", "2"), 2.0)
	cfg.Engine.DefaultMaxMark = parseFloat(getEnv("DEFAULT_MAX_MARK", "3"), 3.0)
	cfg.Engine.TopN = parseInt(getEnv("TOP_N", "3"), 3)

	cfg.Escalation.Interval = time.Duration(parseInt(getEnv("ESCALATION_INTERVAL_HOURS", "24"), 24)) * time.Hour
	cfg.Escalation.LockTTL = time.Duration(parseInt(getEnv("ESCALATION_LOCK_TTL_MINUTES", "30"), 30)) * time.Minute
	cfg.Plan.LockTTL = time.Duration(parseInt(getEnv("PLAN_LOCK_TTL_SECONDS", "60"), 60)) * time.Second

	cfg.Notifier.Transport = getEnv("NOTIFIER_TRANSPORT", "log")
	cfg.Notifier.HTTPURL = getEnv("NOTIFIER_HTTP_URL", "http://localhost:8081")
	cfg.Notifier.Stream = getEnv("NOTIFIER_STREAM", "notifications:outbound")

	cfg.Streams.Inspection = getEnv("INSPECTION_STREAM", "inspection:completed")
	cfg.Streams.ConsumerGroup = getEnv("CONSUMER_GROUP", "remediation-engine")
	cfg.Streams.ConsumerName = getEnv("CONSUMER_NAME", hostnameOr("remediation-engine-1"))
	cfg.Streams.BatchSize = int64(parseInt(getEnv("STREAM_BATCH_SIZE", "10"), 10))
	cfg.Streams.ReplayIdle = time.Duration(parseInt(getEnv("STREAM_REPLAY_IDLE_SECONDS", "30"), 30)) * time.Second
	cfg.Streams.MaxDeliveries = int64(parseInt(getEnv("STREAM_MAX_DELIVERIES", "5"), 5))

	cfg.Metrics.Addr = getEnv("METRICS_ADDR", ":9102")

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseInt(s string, def int) int {
	i, err := strconv.Atoi(s)
	if err != nil || i <= 0 {
		return def
	}
	return i
}

func parseFloat(s string, def float64) float64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f <= 0 {
		return def
	}
	return f
}

func hostnameOr(def string) string {
	if h, err := os.Hostname(); err == nil && h != "" {
		return h
	}
	return def
}
