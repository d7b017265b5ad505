package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"EXPECTED_CADENCE", "SCHEDULE_INTERVAL_DAYS", "DUE_HORIZON_DAYS",
		"AGGREGATE_CACHE_TTL", "TIMEZONE", "CORS_ORIGINS", "LOG_DEV"} {
		t.Setenv(key, "")
	}

	cfg := Load()

	assert.Equal(t, 4, cfg.ExpectedCadence)
	assert.Equal(t, 7*24*time.Hour, cfg.ScheduleInterval)
	assert.Equal(t, 7*24*time.Hour, cfg.DueHorizon)
	assert.Equal(t, 5*time.Minute, cfg.AggregateTTL)
	assert.Equal(t, time.UTC, cfg.Location)
	assert.Equal(t, []string{"*"}, cfg.CORSOrigins)
	assert.False(t, cfg.LogDev)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("EXPECTED_CADENCE", "6")
	t.Setenv("SCHEDULE_INTERVAL_DAYS", "14")
	t.Setenv("AGGREGATE_CACHE_TTL", "30s")
	t.Setenv("TIMEZONE", "Africa/Nairobi")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example,")
	t.Setenv("LOG_DEV", "1")
	t.Setenv("DB_MAX_CONNS", "25")

	cfg := Load()

	assert.Equal(t, 6, cfg.ExpectedCadence)
	assert.Equal(t, 14*24*time.Hour, cfg.ScheduleInterval)
	assert.Equal(t, 30*time.Second, cfg.AggregateTTL)
	assert.Equal(t, "Africa/Nairobi", cfg.Location.String())
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
	assert.True(t, cfg.LogDev)
	assert.EqualValues(t, 25, cfg.Postgres.MaxConns)
}

func TestLoadIgnoresMalformedValues(t *testing.T) {
	t.Setenv("EXPECTED_CADENCE", "zero")
	t.Setenv("DUE_HORIZON_DAYS", "-3")
	t.Setenv("TIMEZONE", "Not/AZone")

	cfg := Load()

	assert.Equal(t, 4, cfg.ExpectedCadence)
	assert.Equal(t, 7*24*time.Hour, cfg.DueHorizon)
	assert.Equal(t, time.UTC, cfg.Location)
}
