package profile

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	p, err := Load(viper.New())
	require.NoError(t, err)

	assert.Equal(t, "dev", p.Mode)
	assert.Equal(t, "sqlite", p.Driver)
	assert.Equal(t, "Asia/Kolkata", p.Timezone)
	assert.Equal(t, "samay/notification", p.MQTT.NotifyTopic)
	assert.Equal(t, byte(1), p.MQTT.QoS)
	assert.Equal(t, 5*time.Second, p.MQTT.PublishTimeout)
	assert.Equal(t, 30*time.Second, p.Daemon.Ceiling)
	assert.Equal(t, 100, p.Daemon.BatchSize)
	assert.Equal(t, "@daily", p.Retention.Cron)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("SAMAY_MQTT_BROKER", "tcp://broker:1883")
	t.Setenv("SAMAY_DAEMON_CEILING", "10s")
	t.Setenv("SAMAY_PORT", "9000")

	p, err := Load(viper.New())
	require.NoError(t, err)
	assert.Equal(t, "tcp://broker:1883", p.MQTT.Broker)
	assert.Equal(t, 10*time.Second, p.Daemon.Ceiling)
	assert.Equal(t, 9000, p.Port)
}

func TestReadConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "samay.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log_level: debug\nmqtt:\n  enabled: true\n"), 0o600))

	v := viper.New()
	require.NoError(t, ReadConfigFile(v, "", dir))
	p, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, "debug", p.LogLevel)
	assert.True(t, p.MQTT.Enabled)

	// A missing optional file is not an error.
	require.NoError(t, ReadConfigFile(viper.New(), "", t.TempDir()))
	require.Error(t, ReadConfigFile(viper.New(), filepath.Join(dir, "missing.yaml"), ""))
}

func TestValidate(t *testing.T) {
	valid := func(t *testing.T) *Profile {
		p, err := Load(viper.New())
		require.NoError(t, err)
		p.Data = t.TempDir()
		return p
	}

	t.Run("sqlite dsn defaults into data dir", func(t *testing.T) {
		p := valid(t)
		require.NoError(t, p.Validate())
		assert.Equal(t, filepath.Join(p.Data, "samay_dev.db"), p.DSN)
	})

	t.Run("unknown mode falls back to dev", func(t *testing.T) {
		p := valid(t)
		p.Mode = "staging"
		require.NoError(t, p.Validate())
		assert.Equal(t, "dev", p.Mode)
	})

	tests := []struct {
		name   string
		mutate func(p *Profile)
	}{
		{"timezone with dst", func(p *Profile) { p.Timezone = "Europe/London" }},
		{"utc timezone", func(p *Profile) { p.Timezone = "UTC" }},
		{"device notify topic", func(p *Profile) { p.MQTT.NotifyTopic = "device/lights" }},
		{"device request topic", func(p *Profile) { p.MQTT.RequestTopic = "/device/fan" }},
		{"bad cron", func(p *Profile) { p.Retention.Cron = "every day" }},
		{"postgres without dsn", func(p *Profile) { p.Driver = "postgres" }},
		{"mysql", func(p *Profile) { p.Driver = "mysql" }},
		{"bad log level", func(p *Profile) { p.LogLevel = "loud" }},
		{"zero ceiling", func(p *Profile) { p.Daemon.Ceiling = 0 }},
		{"inverted backoff", func(p *Profile) { p.Daemon.BackoffMax = time.Millisecond }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := valid(t)
			tt.mutate(p)
			assert.Error(t, p.Validate())
		})
	}

	t.Run("bad cron is fine when retention is off", func(t *testing.T) {
		p := valid(t)
		p.Retention.Window = 0
		p.Retention.Cron = "nonsense"
		assert.NoError(t, p.Validate())
	})
}

func TestParseLogLevel(t *testing.T) {
	level, err := ParseLogLevel("warn")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelWarn, level)

	level, err = ParseLogLevel(" DEBUG ")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, level)

	_, err = ParseLogLevel("verbose")
	assert.Error(t, err)
}
