package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/souzalinux78/gestao-organista/internal/calendar"
)

// Config captures environment driven configuration values for the rotation service.
type Config struct {
	HTTPPort            int
	SQLiteDSN           string
	RedisURL            string
	Timezone            *time.Location
	MaxGenerationMonths int
	LogLevel            string
	LogFormat           string
	DrawOrder           string
	LockTTL             time.Duration
	CacheTTL            time.Duration
}

const (
	defaultHTTPPort            = 8080
	defaultSQLiteDSN           = "data/organistas.db"
	defaultMaxGenerationMonths = 12
	defaultLockTTL             = 30 * time.Second
	defaultCacheTTL            = 30 * time.Second
)

// Load parses configuration values from the current process environment.
//
// A .env file in the working directory is read first when present; variables
// already set in the environment take precedence over it. Defaults apply to
// every key and all invalid values are reported together.
func Load() (Config, error) {
	_ = godotenv.Load()
	return parse()
}

// LoadFile is Load with an explicit env file, which must exist.
func LoadFile(path string) (Config, error) {
	if err := godotenv.Load(path); err != nil {
		return Config{}, fmt.Errorf("falha ao ler o arquivo de ambiente %s: %w", path, err)
	}
	return parse()
}

func parse() (Config, error) {
	cfg := Config{
		HTTPPort:            defaultHTTPPort,
		SQLiteDSN:           defaultSQLiteDSN,
		MaxGenerationMonths: defaultMaxGenerationMonths,
		LogLevel:            "info",
		LogFormat:           "json",
		DrawOrder:           "service_first",
		LockTTL:             defaultLockTTL,
		CacheTTL:            defaultCacheTTL,
	}

	invalid := make([]string, 0, 2)

	if portValue := env("ORGANISTAS_HTTP_PORT"); portValue != "" {
		port, err := strconv.Atoi(portValue)
		if err != nil || port <= 0 || port > 65535 {
			invalid = append(invalid, "ORGANISTAS_HTTP_PORT")
		} else {
			cfg.HTTPPort = port
		}
	}

	if dsn := env("ORGANISTAS_SQLITE_DSN"); dsn != "" {
		cfg.SQLiteDSN = dsn
	}
	cfg.RedisURL = env("ORGANISTAS_REDIS_URL")

	cfg.Timezone = calendar.DefaultLocation()
	if zone := env("ORGANISTAS_TIMEZONE"); zone != "" {
		loc, err := time.LoadLocation(zone)
		if err != nil {
			invalid = append(invalid, "ORGANISTAS_TIMEZONE")
		} else {
			cfg.Timezone = loc
		}
	}

	if monthsValue := env("ORGANISTAS_MAX_GENERATION_MONTHS"); monthsValue != "" {
		months, err := strconv.Atoi(monthsValue)
		if err != nil || months <= 0 {
			invalid = append(invalid, "ORGANISTAS_MAX_GENERATION_MONTHS")
		} else {
			cfg.MaxGenerationMonths = months
		}
	}

	if level := strings.ToLower(env("ORGANISTAS_LOG_LEVEL")); level != "" {
		switch level {
		case "debug", "info", "warn", "error":
			cfg.LogLevel = level
		default:
			invalid = append(invalid, "ORGANISTAS_LOG_LEVEL")
		}
	}

	if format := strings.ToLower(env("ORGANISTAS_LOG_FORMAT")); format != "" {
		switch format {
		case "json", "text":
			cfg.LogFormat = format
		default:
			invalid = append(invalid, "ORGANISTAS_LOG_FORMAT")
		}
	}

	if order := strings.ToLower(env("ORGANISTAS_DRAW_ORDER")); order != "" {
		switch order {
		case "service_first", "prelude_first":
			cfg.DrawOrder = order
		default:
			invalid = append(invalid, "ORGANISTAS_DRAW_ORDER")
		}
	}

	if ttl, ok := duration("ORGANISTAS_LOCK_TTL", &invalid); ok {
		cfg.LockTTL = ttl
	}
	if ttl, ok := duration("ORGANISTAS_CACHE_TTL", &invalid); ok {
		cfg.CacheTTL = ttl
	}

	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("valores inválidos nas variáveis de ambiente: %s", strings.Join(invalid, ", "))
	}
	return cfg, nil
}

func env(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func duration(key string, invalid *[]string) (time.Duration, bool) {
	value := env(key)
	if value == "" {
		return 0, false
	}
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		*invalid = append(*invalid, key)
		return 0, false
	}
	return d, true
}
