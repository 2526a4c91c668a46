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
	Env       string
	Port      int
	APIPrefix string

	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	CORS     CORSConfig
	Log      LogConfig
	Reports  ReportsConfig
}

type DatabaseConfig struct {
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
}

type JWTConfig struct {
	Secret   string
	Issuer   string
	Audience []string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// ReportsConfig configures the on-demand report panel and its upstream.
type ReportsConfig struct {
	UpstreamBaseURL     string
	UpstreamToken       string
	UpstreamTimeout     time.Duration
	UpstreamRetries     int
	MaxListSize         int
	Types               []ReportTypeConfig
	EnforceBatchEndDate bool
	InFlightTTL         time.Duration
	PanelTTL            time.Duration
	OpenLinkSecret      string
	OpenLinkTTL         time.Duration
	NotifyChannel       string
	NotifyWorkers       int
	AuditEnabled        bool
	Locale              string
	AllowedRoles        []string
}

// ReportTypeConfig is a report type offered to the panel, parsed from
// REPORTS_TYPES entries of the form dataset[:encrypt[:title]].
type ReportTypeConfig struct {
	Dataset string
	Encrypt string
	Title   string
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

	return fromViper(v), nil
}

func fromViper(v *viper.Viper) *Config {
	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
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
		Enabled:  v.GetBool("ENABLE_REDIS"),
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret:   v.GetString("JWT_SECRET"),
		Issuer:   v.GetString("JWT_ISSUER"),
		Audience: splitAndTrim(v.GetString("JWT_AUDIENCE")),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	maxList := v.GetInt("REPORTS_MAX_LIST_SIZE")
	if maxList <= 0 {
		maxList = 10
	}
	cfg.Reports = ReportsConfig{
		UpstreamBaseURL:     strings.TrimRight(v.GetString("REPORTS_UPSTREAM_BASE_URL"), "/"),
		UpstreamToken:       v.GetString("REPORTS_UPSTREAM_TOKEN"),
		UpstreamTimeout:     parseDuration(v.GetString("REPORTS_UPSTREAM_TIMEOUT"), 10*time.Second),
		UpstreamRetries:     v.GetInt("REPORTS_UPSTREAM_RETRIES"),
		MaxListSize:         maxList,
		Types:               ParseReportTypes(v.GetString("REPORTS_TYPES")),
		EnforceBatchEndDate: v.GetBool("REPORTS_ENFORCE_BATCH_END_DATE"),
		InFlightTTL:         parseDuration(v.GetString("REPORTS_IN_FLIGHT_TTL"), 2*time.Minute),
		PanelTTL:            parseDuration(v.GetString("REPORTS_PANEL_TTL"), 30*time.Minute),
		OpenLinkSecret:      v.GetString("REPORTS_OPEN_LINK_SECRET"),
		OpenLinkTTL:         parseDuration(v.GetString("REPORTS_OPEN_LINK_TTL"), 5*time.Minute),
		NotifyChannel:       v.GetString("REPORTS_NOTIFY_CHANNEL"),
		NotifyWorkers:       v.GetInt("REPORTS_NOTIFY_WORKERS"),
		AuditEnabled:        v.GetBool("ENABLE_REPORT_AUDIT"),
		Locale:              v.GetString("REPORTS_LOCALE"),
		AllowedRoles:        splitAndTrim(v.GetString("REPORTS_ALLOWED_ROLES")),
	}

	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "ondemand_reports")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("ENABLE_REDIS", false)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_ISSUER", "")
	v.SetDefault("JWT_AUDIENCE", "")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("REPORTS_UPSTREAM_BASE_URL", "http://localhost:9000/api/data/v1")
	v.SetDefault("REPORTS_UPSTREAM_TOKEN", "")
	v.SetDefault("REPORTS_UPSTREAM_TIMEOUT", "10s")
	v.SetDefault("REPORTS_UPSTREAM_RETRIES", 2)
	v.SetDefault("REPORTS_MAX_LIST_SIZE", 10)
	v.SetDefault("REPORTS_TYPES", "course-progress-reports:false:Course progress exhaust,user-assessment-reports:false:Question set report,userinfo-exhaust:true:User profile exhaust")
	v.SetDefault("REPORTS_ENFORCE_BATCH_END_DATE", false)
	v.SetDefault("REPORTS_IN_FLIGHT_TTL", "2m")
	v.SetDefault("REPORTS_PANEL_TTL", "30m")
	v.SetDefault("REPORTS_OPEN_LINK_SECRET", "dev_open_link_secret")
	v.SetDefault("REPORTS_OPEN_LINK_TTL", "5m")
	v.SetDefault("REPORTS_NOTIFY_CHANNEL", "reports:notifications")
	v.SetDefault("REPORTS_NOTIFY_WORKERS", 1)
	v.SetDefault("ENABLE_REPORT_AUDIT", false)
	v.SetDefault("REPORTS_LOCALE", "en")
	v.SetDefault("REPORTS_ALLOWED_ROLES", "ADMIN,COURSE_MENTOR")
}

// ParseReportTypes decodes a comma separated list of dataset[:encrypt[:title]] entries.
func ParseReportTypes(raw string) []ReportTypeConfig {
	entries := splitAndTrim(raw)
	if len(entries) == 0 {
		return nil
	}
	result := make([]ReportTypeConfig, 0, len(entries))
	for _, entry := range entries {
		parts := strings.SplitN(entry, ":", 3)
		item := ReportTypeConfig{Dataset: strings.TrimSpace(parts[0])}
		if item.Dataset == "" {
			continue
		}
		if len(parts) > 1 {
			item.Encrypt = strings.TrimSpace(parts[1])
		}
		if len(parts) > 2 {
			item.Title = strings.TrimSpace(parts[2])
		}
		result = append(result, item)
	}
	return result
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
