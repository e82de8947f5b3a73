package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port        string `mapstructure:"PORT"`
	Env         string `mapstructure:"ENV"`
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	DBMaxConns  int32  `mapstructure:"DB_MAX_CONNS"`
	DBMinConns  int32  `mapstructure:"DB_MIN_CONNS"`
	RedisURL    string `mapstructure:"REDIS_URL"`
	JWTSecret   string `mapstructure:"JWT_SECRET"`

	RateLimitRPS   float64 `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst int     `mapstructure:"RATE_LIMIT_BURST"`

	// Analytics feature toggles.
	EnableTimeSeriesForecasting bool     `mapstructure:"ENABLE_TIME_SERIES_FORECASTING"`
	ForecastingModels           []string `mapstructure:"FORECASTING_MODELS"`
	EnableAnomalyDetection      bool     `mapstructure:"ENABLE_ANOMALY_DETECTION"`
	AnomalyDetectionAlgorithms  []string `mapstructure:"ANOMALY_DETECTION_ALGORITHMS"`
	EnableCircadianAnalysis     bool     `mapstructure:"ENABLE_CIRCADIAN_ANALYSIS"`
	EnablePersonalizedBaselines bool     `mapstructure:"ENABLE_PERSONALIZED_BASELINES"`

	// Numeric limits.
	MaxDataPointsPerRequest int `mapstructure:"MAX_DATA_POINTS_PER_REQUEST"`
	MaxForecastHorizonDays  int `mapstructure:"MAX_FORECAST_HORIZON_DAYS"`
	MaxConcurrentJobs       int `mapstructure:"MAX_CONCURRENT_JOBS"`

	// Cache TTLs. A zero TTL means the cached artifact never goes stale.
	ForecastCacheTTL time.Duration `mapstructure:"FORECAST_CACHE_TTL"`
	AnomalyCacheTTL  time.Duration `mapstructure:"ANOMALY_CACHE_TTL"`
	BaselineCacheTTL time.Duration `mapstructure:"BASELINE_CACHE_TTL"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 5)
	v.SetDefault("RATE_LIMIT_RPS", 100)
	v.SetDefault("RATE_LIMIT_BURST", 200)
	v.SetDefault("ENABLE_TIME_SERIES_FORECASTING", true)
	v.SetDefault("FORECASTING_MODELS", "linear,arima,prophet")
	v.SetDefault("ENABLE_ANOMALY_DETECTION", true)
	v.SetDefault("ANOMALY_DETECTION_ALGORITHMS", "zscore")
	v.SetDefault("ENABLE_CIRCADIAN_ANALYSIS", true)
	v.SetDefault("ENABLE_PERSONALIZED_BASELINES", true)
	v.SetDefault("MAX_DATA_POINTS_PER_REQUEST", 10000)
	v.SetDefault("MAX_FORECAST_HORIZON_DAYS", 90)
	v.SetDefault("MAX_CONCURRENT_JOBS", 4)
	v.SetDefault("FORECAST_CACHE_TTL", "1h")
	v.SetDefault("ANOMALY_CACHE_TTL", "30m")
	v.SetDefault("BASELINE_CACHE_TTL", "0")

	// Bind env vars explicitly so Unmarshal picks them up
	for _, key := range []string{
		"PORT", "ENV", "DATABASE_URL", "DB_MAX_CONNS", "DB_MIN_CONNS",
		"REDIS_URL", "JWT_SECRET", "RATE_LIMIT_RPS", "RATE_LIMIT_BURST",
		"ENABLE_TIME_SERIES_FORECASTING", "FORECASTING_MODELS",
		"ENABLE_ANOMALY_DETECTION", "ANOMALY_DETECTION_ALGORITHMS",
		"ENABLE_CIRCADIAN_ANALYSIS", "ENABLE_PERSONALIZED_BASELINES",
		"MAX_DATA_POINTS_PER_REQUEST", "MAX_FORECAST_HORIZON_DAYS",
		"MAX_CONCURRENT_JOBS", "FORECAST_CACHE_TTL", "ANOMALY_CACHE_TTL",
		"BASELINE_CACHE_TTL",
	} {
		v.BindEnv(key)
	}

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.ForecastingModels == nil {
		if models := v.GetString("FORECASTING_MODELS"); models != "" {
			cfg.ForecastingModels = strings.Split(models, ",")
		}
	}
	if cfg.AnomalyDetectionAlgorithms == nil {
		if algos := v.GetString("ANOMALY_DETECTION_ALGORITHMS"); algos != "" {
			cfg.AnomalyDetectionAlgorithms = strings.Split(algos, ",")
		}
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the server is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Validate checks that the configuration is safe to run. Production requires
// a JWT secret so the caller identity on analytics requests is authenticated,
// and the numeric limits must be positive when their feature is enabled.
func (c *Config) Validate() error {
	if c.IsProduction() && c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required in production")
	}

	if c.MaxDataPointsPerRequest <= 0 {
		return fmt.Errorf("MAX_DATA_POINTS_PER_REQUEST must be positive, got %d", c.MaxDataPointsPerRequest)
	}
	if c.MaxForecastHorizonDays <= 0 && c.EnableTimeSeriesForecasting {
		return fmt.Errorf("MAX_FORECAST_HORIZON_DAYS must be positive when forecasting is enabled, got %d", c.MaxForecastHorizonDays)
	}
	if c.MaxConcurrentJobs <= 0 {
		return fmt.Errorf("MAX_CONCURRENT_JOBS must be positive, got %d", c.MaxConcurrentJobs)
	}

	if c.ForecastCacheTTL < 0 || c.AnomalyCacheTTL < 0 || c.BaselineCacheTTL < 0 {
		return fmt.Errorf("cache TTLs must not be negative")
	}

	for _, m := range c.ForecastingModels {
		switch strings.TrimSpace(m) {
		case "linear", "arima", "prophet":
		default:
			return fmt.Errorf("unknown forecasting model %q", m)
		}
	}

	return nil
}
