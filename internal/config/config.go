package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"rfmseg/internal/core"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App        App        `mapstructure:"app"`
	Data       Data       `mapstructure:"data"`
	Cohort     Cohort     `mapstructure:"cohort"`
	Clustering Clustering `mapstructure:"clustering"`
	Server     Server     `mapstructure:"server"`
	Logging    Logging    `mapstructure:"logging"`
}

// App holds general application configuration
type App struct {
	Debug      bool   `mapstructure:"debug"`
	DataDir    string `mapstructure:"data_dir"`
	ConfigFile string `mapstructure:"config_file"`
}

// Data describes where the orders, customers and items tables come from
type Data struct {
	Source        string         `mapstructure:"source"` // csv or database
	Dir           string         `mapstructure:"dir"`
	OrdersFile    string         `mapstructure:"orders_file"`
	CustomersFile string         `mapstructure:"customers_file"`
	ItemsFile     string         `mapstructure:"items_file"`
	Database      DatabaseConfig `mapstructure:"database"`
}

// DatabaseConfig holds the connection for the database source
type DatabaseConfig struct {
	Driver  string `mapstructure:"driver"` // sqlite3 or postgres
	DSN     string `mapstructure:"dsn"`
	Timeout string `mapstructure:"timeout"`
}

// Cohort holds the population filter settings
type Cohort struct {
	CutoffDate    string `mapstructure:"cutoff_date"`
	ReferenceDate string `mapstructure:"reference_date"` // empty means today at startup
	Predicate     string `mapstructure:"predicate"`      // optional CEL expression
}

// Clustering holds k-means settings
type Clustering struct {
	DefaultK           int   `mapstructure:"default_k"`
	KOptions           []int `mapstructure:"k_options"`
	Seed               int64 `mapstructure:"seed"`
	MaxIterations      int   `mapstructure:"max_iterations"`
	SilhouetteWarnSize int   `mapstructure:"silhouette_warn_size"`
}

// Server holds HTTP server configuration
type Server struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	CORS         CORS          `mapstructure:"cors"`
}

// CORS holds cross-origin settings for the API
type CORS struct {
	Enabled        bool     `mapstructure:"enabled"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// Logging holds logging configuration
type Logging struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

var (
	globalConfig *Config
	globalMu     sync.Mutex
)

// Load loads the configuration from various sources
func Load(configFile string) (*Config, error) {
	globalMu.Lock()
	defer globalMu.Unlock()

	if globalConfig != nil {
		return globalConfig, nil
	}

	config, err := load(configFile)
	if err != nil {
		return nil, err
	}

	globalConfig = config
	return config, nil
}

func load(configFile string) (*Config, error) {
	// Load .env file if it exists
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: Error loading .env file: %v\n", err)
		}
	}

	v := viper.New()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME")
		v.SetConfigName(".rfmseg")
		v.SetConfigType("yaml")
	}

	setDefaults(v)

	v.SetEnvPrefix("RFMSEG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnvironmentVariables(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	config.App.ConfigFile = v.ConfigFileUsed()

	postProcessConfig(config)

	if err := validateConfig(config); err != nil {
		return nil, err
	}

	return config, nil
}

// Get returns the global configuration, loading it if necessary
func Get() *Config {
	config, err := Load("")
	if err != nil {
		panic(fmt.Sprintf("Failed to load configuration: %v", err))
	}
	return config
}

// Reset drops the cached configuration so the next Load reads it again
func Reset() {
	globalMu.Lock()
	globalConfig = nil
	globalMu.Unlock()
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("app.debug", false)
	v.SetDefault("app.data_dir", ".rfmseg")

	// Data defaults follow the public Olist dataset layout
	v.SetDefault("data.source", "csv")
	v.SetDefault("data.dir", "data")
	v.SetDefault("data.orders_file", "olist_orders_dataset.csv")
	v.SetDefault("data.customers_file", "olist_customers_dataset.csv")
	v.SetDefault("data.items_file", "olist_order_items_dataset.csv")
	v.SetDefault("data.database.driver", "sqlite3")
	v.SetDefault("data.database.dsn", "")
	v.SetDefault("data.database.timeout", "30s")

	v.SetDefault("cohort.cutoff_date", "2018-08-01")
	v.SetDefault("cohort.reference_date", "")
	v.SetDefault("cohort.predicate", "")

	v.SetDefault("clustering.default_k", 4)
	v.SetDefault("clustering.k_options", []int{3, 4, 5, 6})
	v.SetDefault("clustering.seed", 1)
	v.SetDefault("clustering.max_iterations", 300)
	v.SetDefault("clustering.silhouette_warn_size", 5000)

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8050)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "120s")
	v.SetDefault("server.cors.enabled", false)
	v.SetDefault("server.cors.allowed_origins", []string{"*"})

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// bindEnvironmentVariables sets up flexible environment variable binding
func bindEnvironmentVariables(v *viper.Viper) {
	bindEnvKeys(v, "data.database.dsn", []string{
		"RFMSEG_DATABASE_DSN",
		"DATABASE_URL",
	})

	bindEnvKeys(v, "app.debug", []string{
		"DEBUG",
		"RFMSEG_DEBUG",
	})

	bindEnvKeys(v, "logging.level", []string{
		"LOG_LEVEL",
	})
}

// bindEnvKeys binds the first found environment variable to a viper key
func bindEnvKeys(v *viper.Viper, viperKey string, envKeys []string) {
	for _, envKey := range envKeys {
		if value := os.Getenv(envKey); value != "" {
			v.Set(viperKey, value)
			return
		}
	}
}

// postProcessConfig applies post-processing to configuration values
func postProcessConfig(config *Config) {
	if config.App.DataDir != "" {
		config.App.DataDir = expandPath(config.App.DataDir)
	}
	if config.Data.Dir != "" {
		config.Data.Dir = expandPath(config.Data.Dir)
	}
	if config.App.Debug {
		config.Logging.Level = "debug"
	}
}

// expandPath expands ~ and environment variables in paths
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return os.ExpandEnv(path)
}

// validateConfig ensures required configuration is present
func validateConfig(config *Config) error {
	var errors []string

	switch config.Data.Source {
	case "csv":
		if config.Data.Dir == "" {
			errors = append(errors, "data.dir is required for the csv source")
		}
	case "database":
		if config.Data.Database.DSN == "" {
			errors = append(errors, "data.database.dsn is required for the database source. Set DATABASE_URL or data.database.dsn")
		}
		switch config.Data.Database.Driver {
		case "sqlite3", "postgres":
		default:
			errors = append(errors, fmt.Sprintf("Unknown database driver: %s. Supported: sqlite3, postgres", config.Data.Database.Driver))
		}
	default:
		errors = append(errors, fmt.Sprintf("Unknown data source: %s. Supported: csv, database", config.Data.Source))
	}

	if _, err := time.Parse(core.DateLayout, config.Cohort.CutoffDate); err != nil {
		errors = append(errors, fmt.Sprintf("cohort.cutoff_date must be YYYY-MM-DD, got %q", config.Cohort.CutoffDate))
	}
	if config.Cohort.ReferenceDate != "" {
		if _, err := time.Parse(core.DateLayout, config.Cohort.ReferenceDate); err != nil {
			errors = append(errors, fmt.Sprintf("cohort.reference_date must be YYYY-MM-DD, got %q", config.Cohort.ReferenceDate))
		}
	}

	if len(config.Clustering.KOptions) == 0 {
		errors = append(errors, "clustering.k_options must not be empty")
	}
	for _, k := range config.Clustering.KOptions {
		if k < 1 {
			errors = append(errors, fmt.Sprintf("clustering.k_options contains invalid k %d", k))
		}
	}
	if !slices.Contains(config.Clustering.KOptions, config.Clustering.DefaultK) {
		errors = append(errors, fmt.Sprintf("clustering.default_k %d is not one of clustering.k_options %v", config.Clustering.DefaultK, config.Clustering.KOptions))
	}
	if config.Clustering.MaxIterations < 1 {
		errors = append(errors, "clustering.max_iterations must be positive")
	}

	if _, err := time.ParseDuration(config.Data.Database.Timeout); config.Data.Database.Timeout != "" && err != nil {
		errors = append(errors, fmt.Sprintf("invalid duration for data.database.timeout: %s", config.Data.Database.Timeout))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration errors:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// CutoffTime returns the parsed cohort cutoff date
func (c Cohort) CutoffTime() time.Time {
	t, _ := time.Parse(core.DateLayout, c.CutoffDate)
	return t
}

// ReferenceTime returns the date recency is measured from. An empty
// reference date resolves to the UTC calendar date of now.
func (c Cohort) ReferenceTime(now time.Time) time.Time {
	if c.ReferenceDate != "" {
		t, _ := time.Parse(core.DateLayout, c.ReferenceDate)
		return t
	}
	now = now.UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}

// TimeoutDuration returns the parsed database timeout, defaulting to 30s
func (d DatabaseConfig) TimeoutDuration() time.Duration {
	if dur, err := time.ParseDuration(d.Timeout); err == nil && dur > 0 {
		return dur
	}
	return 30 * time.Second
}

// Addr returns host:port for the HTTP listener
func (s Server) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// Convenience getters for commonly used configuration values
func GetData() Data             { return Get().Data }
func GetCohort() Cohort         { return Get().Cohort }
func GetClustering() Clustering { return Get().Clustering }
func GetServer() Server         { return Get().Server }
func GetLogging() Logging       { return Get().Logging }
func IsDebugMode() bool         { return Get().App.Debug }
