package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gorm.io/gorm"

	"github.com/vinylhub/eventsync/internal/adapters/database/redis"
	"github.com/vinylhub/eventsync/internal/adapters/database/store"
	"github.com/vinylhub/eventsync/internal/domain/utils/location"
	"github.com/vinylhub/eventsync/pkg/logger"
)

const envPrefix = "EVENTSYNC"

type Settings struct {
	Debug             bool
	Timezone          string
	LogToFile         bool
	LogsDir           string
	SoonWindow        time.Duration
	UpcomingLimit     int
	ReconcileSchedule string

	Database      DatabaseSettings
	Redis         RedisSettings
	Notifications NotificationSettings
	HTTP          HTTPSettings
	Session       SessionSettings
}

type DatabaseSettings struct {
	Driver   string
	Path     string
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
}

// PostgresDSN renders the postgres connection string. Sessions run in UTC so stored
// instants are never shifted.
func (d DatabaseSettings) PostgresDSN() string {
	return fmt.Sprintf("user=%s password=%s dbname=%s host=%s port=%d sslmode=%s TimeZone=UTC",
		d.User, d.Password, d.Name, d.Host, d.Port, d.SSLMode)
}

type RedisSettings struct {
	Enabled  bool
	Host     string
	Port     string
	Password string
	DB       int
	Prefix   string
}

type NotificationSettings struct {
	// Backend is "memory" or "redis".
	Backend          string
	CallTimeout      time.Duration
	DispatchInterval time.Duration
	Telegram         TelegramSettings
	SMTP             SMTPSettings
}

type TelegramSettings struct {
	Token        string
	ChatID       int64
	LogChannelID int64
	LogLevel     string
}

type SMTPSettings struct {
	Enabled  bool
	Host     string
	Port     int
	User     string
	Password string
	From     string
	Domain   string
	To       string
}

type HTTPSettings struct {
	Listen string
}

type SessionSettings struct {
	// UserID signs this user in at startup when no stored session exists. Zero disables it.
	UserID int64
}

// Load reads settings from the yaml file at path (optional), a .env file next to the
// working directory (optional) and EVENTSYNC_* environment variables, in increasing
// order of precedence.
func Load(path string) (*Settings, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	s := &Settings{
		Debug:             v.GetBool("settings.debug"),
		Timezone:          v.GetString("settings.timezone"),
		LogToFile:         v.GetBool("settings.log-to-file"),
		LogsDir:           v.GetString("settings.logs-dir"),
		SoonWindow:        v.GetDuration("settings.soon-window"),
		UpcomingLimit:     v.GetInt("settings.upcoming-limit"),
		ReconcileSchedule: v.GetString("settings.reconcile-schedule"),
		Database: DatabaseSettings{
			Driver:   v.GetString("service.database.driver"),
			Path:     v.GetString("service.database.path"),
			Host:     v.GetString("service.database.host"),
			Port:     v.GetInt("service.database.port"),
			User:     v.GetString("service.database.user"),
			Password: v.GetString("service.database.password"),
			Name:     v.GetString("service.database.name"),
			SSLMode:  v.GetString("service.database.sslmode"),
		},
		Redis: RedisSettings{
			Enabled:  v.GetBool("service.redis.enabled"),
			Host:     v.GetString("service.redis.host"),
			Port:     v.GetString("service.redis.port"),
			Password: v.GetString("service.redis.password"),
			DB:       v.GetInt("service.redis.db"),
			Prefix:   v.GetString("service.redis.prefix"),
		},
		Notifications: NotificationSettings{
			Backend:          v.GetString("notifications.backend"),
			CallTimeout:      v.GetDuration("notifications.call-timeout"),
			DispatchInterval: v.GetDuration("notifications.dispatch-interval"),
			Telegram: TelegramSettings{
				Token:        v.GetString("notifications.telegram.token"),
				ChatID:       v.GetInt64("notifications.telegram.chat-id"),
				LogChannelID: v.GetInt64("notifications.telegram.log-channel-id"),
				LogLevel:     v.GetString("notifications.telegram.log-level"),
			},
			SMTP: SMTPSettings{
				Enabled:  v.GetBool("notifications.smtp.enabled"),
				Host:     v.GetString("notifications.smtp.host"),
				Port:     v.GetInt("notifications.smtp.port"),
				User:     v.GetString("notifications.smtp.user"),
				Password: v.GetString("notifications.smtp.password"),
				From:     v.GetString("notifications.smtp.from"),
				Domain:   v.GetString("notifications.smtp.domain"),
				To:       v.GetString("notifications.smtp.to"),
			},
		},
		HTTP: HTTPSettings{
			Listen: v.GetString("http.listen"),
		},
		Session: SessionSettings{
			UserID: v.GetInt64("session.user-id"),
		},
	}
	return s, s.validate()
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("settings.timezone", "UTC")
	v.SetDefault("settings.soon-window", time.Hour)
	v.SetDefault("settings.upcoming-limit", 20)
	v.SetDefault("settings.reconcile-schedule", "@every 15m")
	v.SetDefault("service.database.driver", store.DriverSQLite)
	v.SetDefault("service.database.path", "eventsync.db")
	v.SetDefault("service.database.port", 5432)
	v.SetDefault("service.database.sslmode", "disable")
	v.SetDefault("service.redis.host", "localhost")
	v.SetDefault("service.redis.port", "6379")
	v.SetDefault("service.redis.prefix", "eventsync")
	v.SetDefault("notifications.backend", "memory")
	v.SetDefault("notifications.call-timeout", 5*time.Second)
	v.SetDefault("notifications.dispatch-interval", 30*time.Second)
	v.SetDefault("notifications.telegram.log-level", "error")
	v.SetDefault("notifications.smtp.port", 587)
	v.SetDefault("http.listen", ":8080")
}

func (s *Settings) validate() error {
	if !location.Known(s.Timezone) {
		return fmt.Errorf("settings.timezone: unknown timezone %q", s.Timezone)
	}
	switch s.Notifications.Backend {
	case "memory":
	case "redis":
		if !s.Redis.Enabled {
			return errors.New("notifications.backend is redis but service.redis.enabled is false")
		}
	default:
		return fmt.Errorf("notifications.backend: unknown backend %q", s.Notifications.Backend)
	}
	return nil
}

// Config is everything the process needs opened at start.
type Config struct {
	Settings *Settings
	Database *gorm.DB
	Redis    *redis.Client
}

// Get loads settings, initialises the logger and opens the database and redis. It
// panics on failure since nothing can run without them.
func Get(path string) *Config {
	settings, err := Load(path)
	if err != nil {
		panic(err)
	}

	loc, _ := location.Load(settings.Timezone)
	err = logger.Init(logger.Config{
		Debug:        settings.Debug,
		TimeLocation: loc,
		LogToFile:    settings.LogToFile,
		LogsDir:      settings.LogsDir,
	})
	if err != nil {
		panic(err)
	}

	database, err := store.Open(store.Options{
		Driver: settings.Database.Driver,
		Path:   settings.Database.Path,
		DSN:    settings.Database.PostgresDSN(),
		Debug:  settings.Debug,
	})
	if err != nil {
		logger.Log.Panicf("Failed to connect to the database: %v", err)
	} else {
		logger.Log.Info("Successfully connected to the database")
	}

	if errMigrate := store.Migrate(database); errMigrate != nil {
		logger.Log.Panicf("Failed to migrate database: %v", errMigrate)
	}

	cfg := &Config{
		Settings: settings,
		Database: database,
	}

	if settings.Redis.Enabled {
		cfg.Redis, err = redis.New(context.Background(), redis.Options{
			Host:     settings.Redis.Host,
			Port:     settings.Redis.Port,
			Password: settings.Redis.Password,
			DB:       settings.Redis.DB,
			Prefix:   settings.Redis.Prefix,
		})
		if err != nil {
			logger.Log.Panicf("Failed to connect to redis: %v", err)
		} else {
			logger.Log.Info("Successfully connected to redis")
		}
	}

	return cfg
}
