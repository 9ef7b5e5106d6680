package profile

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"

	"github.com/hrygo/samay/server/timezone"
)

// DeviceNamespace is the topic prefix owned by the device-control collaborator.
// samay never publishes or subscribes below it.
const DeviceNamespace = "device/"

// Profile is the configuration to start main server.
type Profile struct {
	// Mode can be "prod" or "dev" or "demo"
	Mode string `mapstructure:"mode"`
	// Addr is the binding address for server
	Addr string `mapstructure:"addr"`
	// Port is the binding port for server
	Port int `mapstructure:"port"`
	// Data is the data directory
	Data string `mapstructure:"data"`
	// DSN points to where samay stores its own data
	DSN string `mapstructure:"dsn"`
	// Driver is the database driver (sqlite or postgres)
	Driver string `mapstructure:"driver"`
	// Version is the current version of server
	Version string `mapstructure:"version"`
	// Timezone must name a fixed UTC+05:30 zone.
	Timezone string `mapstructure:"timezone"`
	// LogLevel is one of debug, info, warn, error. It is hot-reloadable.
	LogLevel string `mapstructure:"log_level"`

	MQTT      MQTTConfig      `mapstructure:"mqtt"`
	Daemon    DaemonConfig    `mapstructure:"daemon"`
	Retention RetentionConfig `mapstructure:"retention"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
}

// MQTTConfig configures the notification bus.
type MQTTConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	Broker         string        `mapstructure:"broker"`
	ClientID       string        `mapstructure:"client_id"`
	NotifyTopic    string        `mapstructure:"notify_topic"`
	RequestTopic   string        `mapstructure:"request_topic"`
	ResponseTopic  string        `mapstructure:"response_topic"`
	QoS            byte          `mapstructure:"qos"`
	PublishTimeout time.Duration `mapstructure:"publish_timeout"`
}

// DaemonConfig tunes the scheduling loop.
type DaemonConfig struct {
	Ceiling    time.Duration `mapstructure:"ceiling"`
	BatchSize  int           `mapstructure:"batch_size"`
	BackoffMin time.Duration `mapstructure:"backoff_min"`
	BackoffMax time.Duration `mapstructure:"backoff_max"`
}

// RetentionConfig controls garbage collection of retired commitments.
// A zero Window disables the sweeper.
type RetentionConfig struct {
	Cron   string        `mapstructure:"cron"`
	Window time.Duration `mapstructure:"window"`
}

// RateLimitConfig is the per-user token bucket of the inbound API.
type RateLimitConfig struct {
	RPS   float64 `mapstructure:"rps"`
	Burst int     `mapstructure:"burst"`
}

// SetDefaults registers the built-in defaults on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("mode", "dev")
	v.SetDefault("addr", "")
	v.SetDefault("port", 8081)
	v.SetDefault("data", "")
	v.SetDefault("driver", "sqlite")
	v.SetDefault("dsn", "")
	v.SetDefault("timezone", timezone.TimezoneAsiaKolkata)
	v.SetDefault("log_level", "info")

	v.SetDefault("mqtt.enabled", false)
	v.SetDefault("mqtt.broker", "tcp://localhost:1883")
	v.SetDefault("mqtt.client_id", "samay")
	v.SetDefault("mqtt.notify_topic", "samay/notification")
	v.SetDefault("mqtt.request_topic", "samay/request")
	v.SetDefault("mqtt.response_topic", "samay/response")
	v.SetDefault("mqtt.qos", 1)
	v.SetDefault("mqtt.publish_timeout", "5s")

	v.SetDefault("daemon.ceiling", "30s")
	v.SetDefault("daemon.batch_size", 100)
	v.SetDefault("daemon.backoff_min", "1s")
	v.SetDefault("daemon.backoff_max", "30s")

	v.SetDefault("retention.cron", "@daily")
	v.SetDefault("retention.window", "720h")

	v.SetDefault("rate_limit.rps", 2.0)
	v.SetDefault("rate_limit.burst", 5)
}

// Load decodes v into a Profile. Environment variables use the SAMAY_ prefix
// with dots replaced by underscores, e.g. SAMAY_MQTT_BROKER.
func Load(v *viper.Viper) (*Profile, error) {
	SetDefaults(v)
	v.SetEnvPrefix("SAMAY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	p := &Profile{}
	if err := v.Unmarshal(p); err != nil {
		return nil, errors.Wrap(err, "failed to decode profile")
	}
	return p, nil
}

// ReadConfigFile reads an optional samay.yaml. An explicit path must exist;
// otherwise the data directory and the working directory are searched.
func ReadConfigFile(v *viper.Viper, path, dataDir string) error {
	if path != "" {
		v.SetConfigFile(path)
		return errors.Wrapf(v.ReadInConfig(), "failed to read config %s", path)
	}

	v.SetConfigName("samay")
	v.SetConfigType("yaml")
	if dataDir != "" {
		v.AddConfigPath(dataDir)
	}
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return errors.Wrap(err, "failed to read config")
	}
	return nil
}

// WatchLogLevel keeps level in sync with the log_level key of the config file.
func WatchLogLevel(v *viper.Viper, level *slog.LevelVar) {
	v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		next, err := ParseLogLevel(v.GetString("log_level"))
		if err != nil {
			slog.Warn("ignoring invalid log level on reload", slog.String("file", e.Name), slog.String("error", err.Error()))
			return
		}
		if next != level.Level() {
			slog.Info("log level changed", slog.String("from", level.Level().String()), slog.String("to", next.String()))
			level.Set(next)
		}
	})
	v.WatchConfig()
}

// ParseLogLevel maps a config string onto a slog level.
func ParseLogLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo, errors.Errorf("unknown log level %q", s)
	}
	return level, nil
}

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// Location returns the civil zone all scheduling happens in.
func (p *Profile) Location() *time.Location {
	loc, err := timezone.ParseTimezone(p.Timezone)
	if err != nil {
		return timezone.IST
	}
	return loc
}

func checkDataDir(dataDir string) (string, error) {
	// Convert to absolute path if relative path is supplied.
	if !filepath.IsAbs(dataDir) {
		absDir, err := filepath.Abs(dataDir)
		if err != nil {
			return "", err
		}
		dataDir = absDir
	}

	// Trim trailing \ or / in case user supplies
	dataDir = strings.TrimRight(dataDir, "\\/")
	if _, err := os.Stat(dataDir); err != nil {
		return "", errors.Wrapf(err, "unable to access data folder %s", dataDir)
	}
	return dataDir, nil
}

func (p *Profile) Validate() error {
	if p.Mode != "demo" && p.Mode != "dev" && p.Mode != "prod" {
		p.Mode = "dev"
	}

	if p.Data == "" {
		switch {
		case p.Mode != "prod":
			p.Data = "."
		case runtime.GOOS == "windows":
			p.Data = filepath.Join(os.Getenv("ProgramData"), "samay")
		default:
			p.Data = "/var/opt/samay"
		}
	}
	if _, err := os.Stat(p.Data); os.IsNotExist(err) {
		if err := os.MkdirAll(p.Data, 0770); err != nil {
			slog.Error("failed to create data directory", slog.String("data", p.Data), slog.String("error", err.Error()))
			return err
		}
	}

	dataDir, err := checkDataDir(p.Data)
	if err != nil {
		slog.Error("failed to check dsn", slog.String("data", dataDir), slog.String("error", err.Error()))
		return err
	}

	p.Data = dataDir
	switch p.Driver {
	case "sqlite":
		if p.DSN == "" {
			dbFile := fmt.Sprintf("samay_%s.db", p.Mode)
			p.DSN = filepath.Join(dataDir, dbFile)
		}
	case "postgres":
		if p.DSN == "" {
			return errors.New("postgres driver requires a dsn")
		}
	default:
		return errors.Errorf("unsupported driver %q", p.Driver)
	}

	loc, err := timezone.ParseTimezone(p.Timezone)
	if err != nil {
		return errors.Wrap(err, "invalid timezone")
	}
	if !timezone.IsFixedIST(loc) {
		return errors.Errorf("timezone %q is not a fixed UTC+05:30 zone", p.Timezone)
	}

	if _, err := ParseLogLevel(p.LogLevel); err != nil {
		return err
	}

	for _, topic := range []string{p.MQTT.NotifyTopic, p.MQTT.RequestTopic, p.MQTT.ResponseTopic} {
		if strings.HasPrefix(strings.TrimPrefix(topic, "/"), DeviceNamespace) {
			return errors.Errorf("topic %q is inside the device-control namespace", topic)
		}
	}
	if p.MQTT.QoS > 2 {
		return errors.Errorf("invalid mqtt qos %d", p.MQTT.QoS)
	}

	if p.Retention.Window > 0 {
		parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
		if _, err := parser.Parse(p.Retention.Cron); err != nil {
			return errors.Wrapf(err, "invalid retention cron %q", p.Retention.Cron)
		}
	}

	if p.Daemon.Ceiling <= 0 || p.Daemon.BatchSize <= 0 {
		return errors.New("daemon ceiling and batch size must be positive")
	}
	if p.Daemon.BackoffMin <= 0 || p.Daemon.BackoffMax < p.Daemon.BackoffMin {
		return errors.New("daemon backoff bounds are invalid")
	}

	return nil
}
