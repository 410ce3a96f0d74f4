package config

import (
	"os"
	"testing"
	"time"

	"audit-remediation/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultValues(t *testing.T) {
	os.Clearenv()

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "audits", cfg.Database.Database)
	assert.Equal(t, "disable", cfg.Database.SSLMode)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.True(t, cfg.RedisEnabled)

	assert.Equal(t, 3, cfg.Engine.EscalationDays)
	assert.Equal(t, 3, cfg.Engine.SLADays(models.SeverityCritical))
	assert.Equal(t, 7, cfg.Engine.SLADays(models.SeverityMajor))
	assert.Equal(t, 14, cfg.Engine.SLADays(models.SeverityMinor))
	assert.Equal(t, 2.0, cfg.Engine.DefaultSosTargetMinutes)
	assert.Equal(t, 3.0, cfg.Engine.DefaultMaxMark)
	assert.Equal(t, 3, cfg.Engine.TopN)

	assert.Equal(t, 24*time.Hour, cfg.Escalation.Interval)
	assert.Equal(t, 30*time.Minute, cfg.Escalation.LockTTL)
	assert.Equal(t, time.Minute, cfg.Plan.LockTTL)

	assert.Equal(t, "log", cfg.Notifier.Transport)
	assert.Equal(t, "inspection:completed", cfg.Streams.Inspection)
	assert.Equal(t, int64(10), cfg.Streams.BatchSize)
	assert.Equal(t, 30*time.Second, cfg.Streams.ReplayIdle)
	assert.Equal(t, int64(5), cfg.Streams.MaxDeliveries)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoad_EnvironmentVariables(t *testing.T) {
	os.Clearenv()
	t.Cleanup(os.Clearenv)

	os.Setenv("DB_HOST", "db.internal")
	os.Setenv("DB_PORT", "6543")
	os.Setenv("DB_NAME", "audits_test")
	os.Setenv("REDIS_ADDR", "redis:6380")
	os.Setenv("REDIS_ENABLED", "false")
	os.Setenv("ESCALATION_DAYS", "5")
	os.Setenv("SLA_DAYS_MAJOR", "10")
	os.Setenv("DEFAULT_SOS_TARGET_MINUTES", "1.5")
	os.Setenv("TOP_N", "5")
	os.Setenv("NOTIFIER_TRANSPORT", "mqtt")
	os.Setenv("MQTT_TOPIC_PREFIX", "stores/notify")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, 6543, cfg.Database.Port)
	assert.Equal(t, "audits_test", cfg.Database.Database)
	assert.Equal(t, "redis:6380", cfg.Redis.Addr)
	assert.False(t, cfg.RedisEnabled)
	assert.Equal(t, 5, cfg.Engine.EscalationDays)
	assert.Equal(t, 10, cfg.Engine.SLADays(models.SeverityMajor))
	assert.Equal(t, 1.5, cfg.Engine.DefaultSosTargetMinutes)
	assert.Equal(t, 5, cfg.Engine.TopN)
	assert.Equal(t, "mqtt", cfg.Notifier.Transport)
	assert.Equal(t, "stores/notify", cfg.MQTT.TopicPrefix)
}

func TestLoad_InvalidNumbersFallBack(t *testing.T) {
	os.Clearenv()
	t.Cleanup(os.Clearenv)

	os.Setenv("ESCALATION_DAYS", "soon")
	os.Setenv("DEFAULT_MAX_MARK", "-1")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Engine.EscalationDays)
	assert.Equal(t, 3.0, cfg.Engine.DefaultMaxMark)
}

func TestEngine_SLADaysFallback(t *testing.T) {
	e := Engine{SLADaysBySeverity: map[models.Severity]int{models.SeverityMajor: 0}}
	assert.Equal(t, 7, e.SLADays(models.SeverityMajor))
	assert.Equal(t, 3, e.SLADays(models.SeverityCritical))
}
