package config

import (
	"errors"
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

type Config struct {
	Env      string
	Port     int
	Timezone string

	Backend  BackendConfig
	Session  SessionConfig
	Redis    RedisConfig
	CORS     CORSConfig
	Log      LogConfig
	Roster   RosterConfig
	Exit     ExitConfig
	Analysis AnalysisConfig
	Exports  ExportsConfig
	Upload   UploadConfig
}

// BackendConfig points the kiosk at the exit registration API.
type BackendConfig struct {
	BaseURL string
	Timeout time.Duration
}

// SessionConfig controls the signed kiosk session cookie.
type SessionConfig struct {
	Secret     string
	TTL        time.Duration
	CookieName string
	SignInPath string
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// RosterConfig tunes the roster view and its exit-count badges.
type RosterConfig struct {
	SearchDebounce      time.Duration
	RecurrenceThreshold int
	BadgeCacheEnabled   bool
	BadgeCacheTTL       time.Duration
	BadgeWorkers        int
}

// ExitConfig lists the motives offered by the sign-out form.
type ExitConfig struct {
	Motives       []string
	DefaultMotive string
}

// AnalysisConfig holds the school-specific session table (label=HH:MM-HH:MM entries).
type AnalysisConfig struct {
	SessionBuckets []string
}

// ExportsConfig controls where history exports are written and how long download links live.
type ExportsConfig struct {
	StorageDir      string
	SignedURLSecret string
	SignedURLTTL    time.Duration
	CleanupInterval time.Duration
}

// UploadConfig bounds roster spreadsheet uploads.
type UploadConfig struct {
	MaxFileSizeBytes int64
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
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.Timezone = v.GetString("TIMEZONE")

	cfg.Backend = BackendConfig{
		BaseURL: strings.TrimRight(v.GetString("BACKEND_BASE_URL"), "/"),
		Timeout: parseDuration(v.GetString("BACKEND_TIMEOUT"), 8*time.Second),
	}

	cfg.Session = SessionConfig{
		Secret:     v.GetString("SESSION_SECRET"),
		TTL:        parseDuration(v.GetString("SESSION_TTL"), 12*time.Hour),
		CookieName: v.GetString("SESSION_COOKIE"),
		SignInPath: v.GetString("SIGN_IN_PATH"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	threshold := v.GetInt("RECURRENCE_THRESHOLD")
	if threshold <= 0 {
		threshold = 3
	}
	cfg.Roster = RosterConfig{
		SearchDebounce:      parseDuration(v.GetString("SEARCH_DEBOUNCE"), 300*time.Millisecond),
		RecurrenceThreshold: threshold,
		BadgeCacheEnabled:   v.GetBool("ENABLE_BADGE_CACHE"),
		BadgeCacheTTL:       parseDuration(v.GetString("BADGE_CACHE_TTL"), 30*time.Second),
		BadgeWorkers:        v.GetInt("BADGE_WORKERS"),
	}

	cfg.Exit = ExitConfig{
		Motives:       splitAndTrim(v.GetString("MOTIVES")),
		DefaultMotive: v.GetString("DEFAULT_MOTIVE"),
	}

	cfg.Analysis = AnalysisConfig{SessionBuckets: splitAndTrim(v.GetString("SESSION_BUCKETS"))}

	cfg.Exports = ExportsConfig{
		StorageDir:      v.GetString("EXPORTS_STORAGE_DIR"),
		SignedURLSecret: v.GetString("EXPORTS_SIGNED_URL_SECRET"),
		SignedURLTTL:    parseDuration(v.GetString("EXPORTS_SIGNED_URL_TTL"), 15*time.Minute),
		CleanupInterval: parseDuration(v.GetString("EXPORTS_CLEANUP_INTERVAL"), time.Hour),
	}

	maxUpload := v.GetInt64("UPLOAD_MAX_BYTES")
	if maxUpload <= 0 {
		maxUpload = 10 * 1024 * 1024
	}
	cfg.Upload = UploadConfig{MaxFileSizeBytes: maxUpload}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 3000)
	v.SetDefault("TIMEZONE", "Europe/Madrid")

	v.SetDefault("BACKEND_BASE_URL", "http://localhost:8000")
	v.SetDefault("BACKEND_TIMEOUT", "8s")

	v.SetDefault("SESSION_SECRET", "dev_kiosk_secret")
	v.SetDefault("SESSION_TTL", "12h")
	v.SetDefault("SESSION_COOKIE", "kiosk_session")
	v.SetDefault("SIGN_IN_PATH", "/login")

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("SEARCH_DEBOUNCE", "300ms")
	v.SetDefault("RECURRENCE_THRESHOLD", 3)
	v.SetDefault("ENABLE_BADGE_CACHE", false)
	v.SetDefault("BADGE_CACHE_TTL", "30s")
	v.SetDefault("BADGE_WORKERS", 4)

	v.SetDefault("MOTIVES", "Personal,Médico,Enfermedad,Familiar,Otro")
	v.SetDefault("DEFAULT_MOTIVE", "Personal")
	v.SetDefault("SESSION_BUCKETS", "1ª=08:00-09:25,2ª=09:25-10:20,3ª=10:20-11:15,Recreo=11:15-11:45,4ª=11:45-12:40,5ª=12:40-13:35,6ª=13:35-14:30")

	v.SetDefault("EXPORTS_STORAGE_DIR", "./exports")
	v.SetDefault("EXPORTS_SIGNED_URL_SECRET", "dev_exports_secret")
	v.SetDefault("EXPORTS_SIGNED_URL_TTL", "15m")
	v.SetDefault("EXPORTS_CLEANUP_INTERVAL", "1h")

	v.SetDefault("UPLOAD_MAX_BYTES", 10*1024*1024)
}

// Location resolves the configured timezone, falling back to the process local zone.
func (c *Config) Location() *time.Location {
	if c == nil || c.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
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
