package config

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Discovery  DiscoveryConfig  `mapstructure:"discovery"`
	Enrich     EnrichConfig     `mapstructure:"enrich"`
	Generation GenerationConfig `mapstructure:"generation"`
	Gateway    GatewayConfig    `mapstructure:"gateway"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Schedule   ScheduleConfig   `mapstructure:"schedule"`
}

type ServerConfig struct {
	Port       int        `mapstructure:"port"`
	Mode       string     `mapstructure:"mode"`
	AdminToken string     `mapstructure:"admin_token"`
	CORS       CORSConfig `mapstructure:"cors"`

	// RunScheduler starts the publish scheduler inside the API process.
	RunScheduler bool `mapstructure:"run_scheduler"`
}

type CORSConfig struct {
	AllowedOrigins  []string `mapstructure:"allowed_origins"`
	AllowAllOrigins bool     `mapstructure:"allow_all_origins"`
}

type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"`
	Path            string        `mapstructure:"path"`
	URL             string        `mapstructure:"url"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// DSN returns the connection string for the configured driver.
func (c DatabaseConfig) DSN() string {
	if c.Driver == "postgres" {
		return c.URL
	}
	return c.Path
}

type DiscoveryConfig struct {
	APIKey              string        `mapstructure:"api_key"`
	BaseURL             string        `mapstructure:"base_url"`
	Language            string        `mapstructure:"language"`
	Region              string        `mapstructure:"region"`
	ImageBaseURL        string        `mapstructure:"image_base_url"`
	TargetProviders     []string      `mapstructure:"target_providers"`
	PerPageLimit        int           `mapstructure:"per_page_limit"`
	LatestDailyPages    int           `mapstructure:"latest_daily_pages"`
	BackfillPagesPerRun int           `mapstructure:"backfill_pages_per_run"`
	BackfillSortBy      string        `mapstructure:"backfill_sort_by"`
	MinStills           int           `mapstructure:"min_stills"`
	MaxStills           int           `mapstructure:"max_stills"`
	RequestsPerSecond   float64       `mapstructure:"requests_per_second"`
	Timeout             time.Duration `mapstructure:"timeout"`
}

// TargetProviderSet returns the lower-cased, trimmed provider names.
func (c DiscoveryConfig) TargetProviderSet() map[string]struct{} {
	set := make(map[string]struct{}, len(c.TargetProviders))
	for _, raw := range c.TargetProviders {
		for _, name := range strings.Split(raw, ",") {
			name = strings.ToLower(strings.TrimSpace(name))
			if name != "" {
				set[name] = struct{}{}
			}
		}
	}
	return set
}

type EnrichConfig struct {
	Enabled           bool          `mapstructure:"enabled"`
	OverviewMinLength int           `mapstructure:"overview_min_length"`
	MaxSnippets       int           `mapstructure:"max_snippets"`
	AISummary         bool          `mapstructure:"ai_summary"`
	TavilyAPIKey      string        `mapstructure:"tavily_api_key"`
	TavilyBaseURL     string        `mapstructure:"tavily_base_url"`
	OpenAIAPIKey      string        `mapstructure:"openai_api_key"`
	OpenAIBaseURL     string        `mapstructure:"openai_base_url"`
	OpenAIModel       string        `mapstructure:"openai_model"`
	Timeout           time.Duration `mapstructure:"timeout"`
}

type GenerationConfig struct {
	DailyLimit                 int    `mapstructure:"daily_limit"`
	PerRunSubmitLimit          int    `mapstructure:"per_run_submit_limit"`
	SchedulerMinOverviewLength int    `mapstructure:"scheduler_min_overview_length"`
	SchedulerEnrichOverview    bool   `mapstructure:"scheduler_enrich_overview"`
	PromptTemplate             string `mapstructure:"prompt_template"`
	RenderTemplate             string `mapstructure:"render_template"`
	AutoPublish                bool   `mapstructure:"auto_publish"`
	SystemRole                 string `mapstructure:"system_role"`
}

type GatewayConfig struct {
	// SubmitMode is "api" (POST /generate-post) or "db_queue" (insert into the posts table).
	SubmitMode string        `mapstructure:"submit_mode"`
	BaseURL    string        `mapstructure:"base_url"`
	AdminToken string        `mapstructure:"admin_token"`
	Timeout    time.Duration `mapstructure:"timeout"`
	QueueDSN   string        `mapstructure:"queue_dsn"`
}

// StorageConfig configures the optional S3-compatible payload archive.
type StorageConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	UseSSL    bool   `mapstructure:"use_ssl"`
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
	Prefix    string `mapstructure:"prefix"`
}

type ScheduleConfig struct {
	Timezone      string `mapstructure:"timezone"`
	ParseHour     int    `mapstructure:"parse_hour"`
	ParseMinute   int    `mapstructure:"parse_minute"`
	PublishHours  []int  `mapstructure:"publish_hours"`
	PublishMinute int    `mapstructure:"publish_minute"`
}

// Location resolves the configured timezone, falling back to UTC.
func (c ScheduleConfig) Location() *time.Location {
	if c.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func Load(configPath string) (*Config, error) {
	// Load .env file if exists
	_ = godotenv.Load()

	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Secrets come from the environment only
	_ = v.BindEnv("database.url", "DATABASE_URL")
	_ = v.BindEnv("server.admin_token", "ADMIN_TOKEN")
	_ = v.BindEnv("discovery.api_key", "TMDB_API_KEY")
	_ = v.BindEnv("enrich.tavily_api_key", "TAVILY_API_KEY")
	_ = v.BindEnv("enrich.openai_api_key", "OPENAI_API_KEY")
	_ = v.BindEnv("enrich.openai_base_url", "OPENAI_BASE_URL")
	_ = v.BindEnv("gateway.base_url", "GATEWAY_BASE_URL")
	_ = v.BindEnv("gateway.admin_token", "GATEWAY_ADMIN_TOKEN")
	_ = v.BindEnv("gateway.queue_dsn", "GATEWAY_QUEUE_DSN")
	_ = v.BindEnv("storage.access_key", "STORAGE_ACCESS_KEY")
	_ = v.BindEnv("storage.secret_key", "STORAGE_SECRET_KEY")
	_ = v.BindEnv("schedule.timezone", "TIMEZONE")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8010)
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.cors.allow_all_origins", true)
	v.SetDefault("server.cors.allowed_origins", []string{})
	v.SetDefault("server.run_scheduler", false)

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "./data/ottgen.db")
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.conn_max_lifetime", time.Hour)

	v.SetDefault("discovery.base_url", "https://api.themoviedb.org/3")
	v.SetDefault("discovery.language", "ko-KR")
	v.SetDefault("discovery.region", "KR")
	v.SetDefault("discovery.image_base_url", "https://image.tmdb.org/t/p/original")
	v.SetDefault("discovery.target_providers", []string{"Netflix", "Disney Plus"})
	v.SetDefault("discovery.per_page_limit", 10)
	v.SetDefault("discovery.latest_daily_pages", 1)
	v.SetDefault("discovery.backfill_pages_per_run", 3)
	v.SetDefault("discovery.backfill_sort_by", "popularity.desc")
	v.SetDefault("discovery.min_stills", 2)
	v.SetDefault("discovery.max_stills", 4)
	v.SetDefault("discovery.requests_per_second", 20.0)
	v.SetDefault("discovery.timeout", 20*time.Second)

	v.SetDefault("enrich.enabled", true)
	v.SetDefault("enrich.overview_min_length", 120)
	v.SetDefault("enrich.max_snippets", 5)
	v.SetDefault("enrich.ai_summary", true)
	v.SetDefault("enrich.tavily_base_url", "https://api.tavily.com")
	v.SetDefault("enrich.openai_base_url", "https://api.openai.com/v1")
	v.SetDefault("enrich.openai_model", "gpt-4.1-mini")
	v.SetDefault("enrich.timeout", 25*time.Second)

	v.SetDefault("generation.daily_limit", 3)
	v.SetDefault("generation.per_run_submit_limit", 1)
	v.SetDefault("generation.scheduler_min_overview_length", 200)
	v.SetDefault("generation.scheduler_enrich_overview", true)
	v.SetDefault("generation.prompt_template", DefaultPromptTemplate)
	v.SetDefault("generation.render_template", "ott_review.html")
	v.SetDefault("generation.auto_publish", true)
	v.SetDefault("generation.system_role", "")

	v.SetDefault("gateway.submit_mode", "api")
	v.SetDefault("gateway.base_url", "http://127.0.0.1:8000")
	v.SetDefault("gateway.timeout", 60*time.Second)

	v.SetDefault("storage.enabled", false)
	v.SetDefault("storage.endpoint", "localhost:9000")
	v.SetDefault("storage.use_ssl", false)
	v.SetDefault("storage.bucket", "ottgen")
	v.SetDefault("storage.region", "us-east-1")
	v.SetDefault("storage.prefix", "payloads")

	v.SetDefault("schedule.timezone", "Asia/Seoul")
	v.SetDefault("schedule.parse_hour", 9)
	v.SetDefault("schedule.parse_minute", 5)
	v.SetDefault("schedule.publish_hours", []int{10, 15, 21})
	v.SetDefault("schedule.publish_minute", 0)
}

// Validate rejects settings the pipeline cannot run with and normalizes
// out-of-range schedule values to their defaults.
func (c *Config) Validate() error {
	var errs []error

	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		errs = append(errs, fmt.Errorf("unsupported database driver %q", c.Database.Driver))
	}
	if c.Database.Driver == "postgres" && c.Database.URL == "" {
		errs = append(errs, errors.New("database.url is required for postgres"))
	}
	if c.Generation.DailyLimit <= 0 {
		errs = append(errs, fmt.Errorf("generation.daily_limit must be positive, got %d", c.Generation.DailyLimit))
	}
	if c.Generation.PerRunSubmitLimit <= 0 {
		c.Generation.PerRunSubmitLimit = 1
	}
	if c.Discovery.MinStills > c.Discovery.MaxStills {
		errs = append(errs, fmt.Errorf("discovery.min_stills (%d) exceeds max_stills (%d)",
			c.Discovery.MinStills, c.Discovery.MaxStills))
	}
	switch c.Gateway.SubmitMode {
	case "api":
	case "db_queue":
		if c.Gateway.QueueDSN == "" {
			errs = append(errs, errors.New("gateway.queue_dsn is required for db_queue submit mode"))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported gateway submit mode %q", c.Gateway.SubmitMode))
	}
	if c.Discovery.PerPageLimit <= 0 {
		c.Discovery.PerPageLimit = 10
	}

	c.Schedule.normalize()

	return errors.Join(errs...)
}

func (c *ScheduleConfig) normalize() {
	if c.ParseHour < 0 || c.ParseHour > 23 {
		c.ParseHour = 9
	}
	if c.ParseMinute < 0 || c.ParseMinute > 59 {
		c.ParseMinute = 5
	}
	if c.PublishMinute < 0 || c.PublishMinute > 59 {
		c.PublishMinute = 0
	}

	seen := make(map[int]struct{}, len(c.PublishHours))
	hours := make([]int, 0, len(c.PublishHours))
	for _, h := range c.PublishHours {
		if h < 0 || h > 23 {
			continue
		}
		if _, dup := seen[h]; dup {
			continue
		}
		seen[h] = struct{}{}
		hours = append(hours, h)
	}
	sort.Ints(hours)
	if len(hours) == 0 {
		hours = []int{10, 15, 21}
	}
	c.PublishHours = hours
}
