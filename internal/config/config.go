package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"

	applog "invtrack/internal/log"
)

type Config struct {
	Port            string
	DBDSN           string
	LogFile         string
	AuthEmailDomain string
	JWTSecret       string
	JWTTTL          time.Duration
	RedisURL        string
	AdminPassword   string
	ShutdownTimeout time.Duration
	LowStock        int
	// Location is where "today" begins for reports; TZ names it.
	Location *time.Location
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", "8080")
	v.SetDefault("db_dsn", "invtrack.db") // sqlite file in project root
	v.SetDefault("log_file", "./invtrack.log")
	v.SetDefault("auth_email_domain", "inventory.local")
	v.SetDefault("jwt_secret", "change-me-in-production")
	v.SetDefault("jwt_ttl", 15*time.Minute)
	v.SetDefault("redis_url", "")
	v.SetDefault("admin_password", "admin123")
	v.SetDefault("shutdown_timeout", 30*time.Second)
	v.SetDefault("low_stock_threshold", 10)
	v.SetDefault("tz", "Local")
}

// Load reads defaults, an optional config.yaml (./ or ./config/) and the
// environment, in increasing order of precedence. Env names are the upper-case
// keys, e.g. DB_DSN or JWT_TTL.
func Load() Config {
	v := viper.New()
	setDefaults(v)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config/")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			applog.Logger().Warn().Err(err).Msg("could not read config file")
		}
	}

	cfg := fromViper(v)
	applog.Logger().Info().
		Str("port", cfg.Port).
		Str("db_dsn", cfg.DBDSN).
		Str("log_file", cfg.LogFile).
		Str("auth_email_domain", cfg.AuthEmailDomain).
		Bool("redis", cfg.RedisURL != "").
		Dur("jwt_ttl", cfg.JWTTTL).
		Str("tz", cfg.Location.String()).
		Msg("config loaded")
	return cfg
}

func fromViper(v *viper.Viper) Config {
	low := v.GetInt("low_stock_threshold")
	if low <= 0 {
		low = 10
	}
	loc, err := time.LoadLocation(v.GetString("tz"))
	if err != nil {
		applog.Logger().Warn().Err(err).Str("tz", v.GetString("tz")).Msg("unknown time zone, using UTC")
		loc = time.UTC
	}
	return Config{
		Port:            v.GetString("port"),
		DBDSN:           v.GetString("db_dsn"),
		LogFile:         v.GetString("log_file"),
		AuthEmailDomain: v.GetString("auth_email_domain"),
		JWTSecret:       v.GetString("jwt_secret"),
		JWTTTL:          v.GetDuration("jwt_ttl"),
		RedisURL:        v.GetString("redis_url"),
		AdminPassword:   v.GetString("admin_password"),
		ShutdownTimeout: v.GetDuration("shutdown_timeout"),
		LowStock:        low,
		Location:        loc,
	}
}

// Defaults returns a Config with every default applied and nothing read from
// disk or the environment. Used by tests and tools.
func Defaults() Config {
	v := viper.New()
	setDefaults(v)
	return fromViper(v)
}
