package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Availability scopes for free-teacher lookups.
const (
	ScopeSameDay = "same_day"
	ScopeWeek    = "week"
)

// Selector modes and fallback policies.
const (
	SelectorDeterministic = "deterministic"
	SelectorRemote        = "remote"

	FallbackSecondary = "secondary"
	FallbackFail      = "fail"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database     DatabaseConfig
	Redis        RedisConfig
	JWT          JWTConfig
	CORS         CORSConfig
	Log          LogConfig
	Timetable    TimetableConfig
	Absence      AbsenceConfig
	Availability AvailabilityConfig
	Selector     SelectorConfig
}

type DatabaseConfig struct {
	Enabled      bool
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
	CacheTTL time.Duration
}

type JWTConfig struct {
	Secret     string
	Expiration time.Duration
	Issuer     string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// TimetableConfig locates seed data and the institution's clock.
type TimetableConfig struct {
	SeedFile string
	Timezone string
}

// AbsenceConfig governs the absence workflow.
type AbsenceConfig struct {
	ReportCutoff  Clock
	AutoResolve   bool
	SweepSchedule string
	Workers       int
	WorkerRetries int
}

// AvailabilityConfig selects how free teachers are computed.
type AvailabilityConfig struct {
	Scope string
}

// SelectorConfig configures the substitute ranking collaborator.
type SelectorConfig struct {
	Mode     string
	URL      string
	APIKey   string
	Timeout  time.Duration
	Fallback string
}

// Clock is a time of day in minutes precision.
type Clock struct {
	Hour   int
	Minute int
}

// Before reports whether t's wall clock is strictly before c.
func (c Clock) Before(t time.Time) bool {
	return t.Hour()*60+t.Minute() < c.Hour*60+c.Minute
}

// String renders the clock as HH:MM.
func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !isMissingFile(err) {
			return nil, err
		}
	}

	return fromViper(v), nil
}

func fromViper(v *viper.Viper) *Config {
	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Enabled:      v.GetBool("ENABLE_AUDIT_STORE"),
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Enabled:  v.GetBool("ENABLE_TIMETABLE_CACHE"),
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
		CacheTTL: parseDuration(v.GetString("TIMETABLE_CACHE_TTL"), 5*time.Minute),
	}

	cfg.JWT = JWTConfig{
		Secret:     v.GetString("JWT_SECRET"),
		Expiration: parseDuration(v.GetString("JWT_EXPIRATION"), 24*time.Hour),
		Issuer:     v.GetString("JWT_ISSUER"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Timetable = TimetableConfig{
		SeedFile: v.GetString("TIMETABLE_SEED_FILE"),
		Timezone: v.GetString("TIMETABLE_TIMEZONE"),
	}

	cfg.Absence = AbsenceConfig{
		ReportCutoff:  parseClock(v.GetString("ABSENCE_REPORT_CUTOFF"), Clock{Hour: 9}),
		AutoResolve:   v.GetBool("ABSENCE_AUTO_RESOLVE"),
		SweepSchedule: v.GetString("ABSENCE_SWEEP_SCHEDULE"),
		Workers:       v.GetInt("ABSENCE_WORKERS"),
		WorkerRetries: v.GetInt("ABSENCE_WORKER_RETRIES"),
	}

	cfg.Availability = AvailabilityConfig{
		Scope: oneOf(v.GetString("AVAILABILITY_SCOPE"), ScopeSameDay, ScopeSameDay, ScopeWeek),
	}

	cfg.Selector = SelectorConfig{
		Mode:     oneOf(v.GetString("SELECTOR_MODE"), SelectorDeterministic, SelectorDeterministic, SelectorRemote),
		URL:      v.GetString("SELECTOR_URL"),
		APIKey:   v.GetString("SELECTOR_API_KEY"),
		Timeout:  parseDuration(v.GetString("SELECTOR_TIMEOUT"), 10*time.Second),
		Fallback: oneOf(v.GetString("SELECTOR_FALLBACK"), FallbackSecondary, FallbackSecondary, FallbackFail),
	}

	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("ENABLE_AUDIT_STORE", false)
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "sma_substitution")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("ENABLE_TIMETABLE_CACHE", false)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("TIMETABLE_CACHE_TTL", "5m")

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRATION", "24h")
	v.SetDefault("JWT_ISSUER", "sma-substitution-api")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("TIMETABLE_SEED_FILE", "")
	v.SetDefault("TIMETABLE_TIMEZONE", "Local")

	v.SetDefault("ABSENCE_REPORT_CUTOFF", "09:00")
	v.SetDefault("ABSENCE_AUTO_RESOLVE", false)
	v.SetDefault("ABSENCE_SWEEP_SCHEDULE", "*/5 * * * *")
	v.SetDefault("ABSENCE_WORKERS", 2)
	v.SetDefault("ABSENCE_WORKER_RETRIES", 1)

	v.SetDefault("AVAILABILITY_SCOPE", ScopeSameDay)

	v.SetDefault("SELECTOR_MODE", SelectorDeterministic)
	v.SetDefault("SELECTOR_URL", "")
	v.SetDefault("SELECTOR_API_KEY", "")
	v.SetDefault("SELECTOR_TIMEOUT", "10s")
	v.SetDefault("SELECTOR_FALLBACK", FallbackSecondary)
}

// Location resolves the configured timezone, defaulting to the server's local zone.
func (c TimetableConfig) Location() *time.Location {
	if c.Timezone == "" || strings.EqualFold(c.Timezone, "Local") {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

func isMissingFile(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func parseClock(raw string, fallback Clock) Clock {
	t, err := time.Parse("15:04", strings.TrimSpace(raw))
	if err != nil {
		return fallback
	}
	return Clock{Hour: t.Hour(), Minute: t.Minute()}
}

func oneOf(raw, fallback string, allowed ...string) string {
	value := strings.ToLower(strings.TrimSpace(raw))
	for _, a := range allowed {
		if value == a {
			return value
		}
	}
	return fallback
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
