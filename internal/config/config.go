// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Security SecurityConfig `mapstructure:"security"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Terminal TerminalConfig `mapstructure:"terminal"`
	Token    TokenConfig    `mapstructure:"token"`
	MDNS     MDNSConfig     `mapstructure:"mdns"`
	App      AppConfig      `mapstructure:"app"`
}

// ServerConfig represents HTTP server configuration
type ServerConfig struct {
	Host         string        `mapstructure:"host" validate:"required"`
	Port         string        `mapstructure:"port" validate:"required"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
	TLS          TLSConfig     `mapstructure:"tls"`
}

// TLSConfig represents TLS configuration
type TLSConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	CertFile string `mapstructure:"cert_file"`
	KeyFile  string `mapstructure:"key_file"`
}

// DatabaseConfig represents the command journal database configuration.
// When disabled the journal is kept in memory.
type DatabaseConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	Host          string        `mapstructure:"host"`
	Port          int           `mapstructure:"port"`
	User          string        `mapstructure:"user"`
	Password      string        `mapstructure:"password"`
	DBName        string        `mapstructure:"dbname"`
	SSLMode       string        `mapstructure:"sslmode"`
	MaxOpenConns  int           `mapstructure:"max_open_conns"`
	MaxIdleConns  int           `mapstructure:"max_idle_conns"`
	MaxLifetime   time.Duration `mapstructure:"max_lifetime"`
	Retention     time.Duration `mapstructure:"retention"`
	CleanupPeriod time.Duration `mapstructure:"cleanup_period"`
	MemoryLimit   int           `mapstructure:"memory_limit"`
}

// SecurityConfig represents security configuration
type SecurityConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level      string `mapstructure:"level" validate:"required"`
	Format     string `mapstructure:"format"`
	Output     string `mapstructure:"output"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
	Compress   bool   `mapstructure:"compress"`
}

// TerminalConfig represents card reader bridge configuration
type TerminalConfig struct {
	Driver            string          `mapstructure:"driver"`
	HandlePolicy      string          `mapstructure:"handle_policy"`
	DefaultLocationID string          `mapstructure:"default_location_id"`
	Simulator         SimulatorConfig `mapstructure:"simulator"`
}

// SimulatorConfig configures the built-in simulated reader SDK
type SimulatorConfig struct {
	ReaderCount       int           `mapstructure:"reader_count"`
	DiscoveryDelay    time.Duration `mapstructure:"discovery_delay"`
	ConnectDelay      time.Duration `mapstructure:"connect_delay"`
	CollectDelay      time.Duration `mapstructure:"collect_delay"`
	ProcessDelay      time.Duration `mapstructure:"process_delay"`
	TapToPaySupported bool          `mapstructure:"tap_to_pay_supported"`
	LocationID        string        `mapstructure:"location_id"`
	PaymentAmount     int64         `mapstructure:"payment_amount"`
	PaymentCurrency   string        `mapstructure:"payment_currency"`
}

// TokenConfig configures the connection token endpoint
type TokenConfig struct {
	URL     string        `mapstructure:"url"`
	Secret  string        `mapstructure:"secret"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// MDNSConfig configures advertisement of the channel endpoint
type MDNSConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Instance string `mapstructure:"instance"`
	Service  string `mapstructure:"service"`
	Domain   string `mapstructure:"domain"`
}

// AppConfig represents application metadata
type AppConfig struct {
	Name        string `mapstructure:"name" validate:"required"`
	Version     string `mapstructure:"version" validate:"required"`
	Environment string `mapstructure:"environment" validate:"required"`
	Debug       bool   `mapstructure:"debug"`
}

// Load loads configuration from file and environment variables. A missing
// config file is not an error; defaults and environment apply.
func Load() (*Config, error) {
	return LoadFile("")
}

// LoadFile loads configuration from path, or from the search paths when path is empty
func LoadFile(path string) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("../../internal/config")
	}

	// Environment variable support
	v.SetEnvPrefix("TERMINAL_BRIDGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Set defaults
	setDefaults(v)

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	// Validate configuration
	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.port", "4242")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.tls.enabled", false)

	// Database defaults
	v.SetDefault("database.enabled", false)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.dbname", "terminal_bridge")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 2)
	v.SetDefault("database.max_lifetime", "5m")
	v.SetDefault("database.retention", "168h")
	v.SetDefault("database.cleanup_period", "1h")
	v.SetDefault("database.memory_limit", 500)

	// Security defaults
	v.SetDefault("security.allowed_origins", []string{"*"})

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")
	v.SetDefault("logging.max_size", 100)
	v.SetDefault("logging.max_backups", 3)
	v.SetDefault("logging.max_age", 28)
	v.SetDefault("logging.compress", true)

	// Terminal defaults
	v.SetDefault("terminal.driver", "simulator")
	v.SetDefault("terminal.handle_policy", "replace")
	v.SetDefault("terminal.default_location_id", "")
	v.SetDefault("terminal.simulator.reader_count", 2)
	v.SetDefault("terminal.simulator.discovery_delay", "500ms")
	v.SetDefault("terminal.simulator.connect_delay", "1s")
	v.SetDefault("terminal.simulator.collect_delay", "2s")
	v.SetDefault("terminal.simulator.process_delay", "1s")
	v.SetDefault("terminal.simulator.tap_to_pay_supported", false)
	v.SetDefault("terminal.simulator.location_id", "tml_simulated")
	v.SetDefault("terminal.simulator.payment_amount", 1000)
	v.SetDefault("terminal.simulator.payment_currency", "usd")

	// Token defaults
	v.SetDefault("token.url", "")
	v.SetDefault("token.timeout", "10s")

	// mDNS defaults
	v.SetDefault("mdns.enabled", false)
	v.SetDefault("mdns.instance", "terminal-bridge")
	v.SetDefault("mdns.service", "_terminal-bridge._tcp")
	v.SetDefault("mdns.domain", "local.")

	// App defaults
	v.SetDefault("app.name", "terminal-bridge")
	v.SetDefault("app.version", "1.0.0")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.debug", false)
}

// validate validates the configuration
func validate(config *Config) error {
	// Basic validation
	if config.Server.Host == "" {
		return fmt.Errorf("server.host is required")
	}
	if config.Server.Port == "" {
		return fmt.Errorf("server.port is required")
	}
	if config.Database.Enabled && config.Database.Host == "" {
		return fmt.Errorf("database.host is required when the database is enabled")
	}
	if config.Server.TLS.Enabled && (config.Server.TLS.CertFile == "" || config.Server.TLS.KeyFile == "") {
		return fmt.Errorf("server.tls.cert_file and server.tls.key_file are required when tls is enabled")
	}

	// Validate environment
	validEnvs := []string{"development", "staging", "production", "test"}
	if !contains(validEnvs, config.App.Environment) {
		return fmt.Errorf("app.environment must be one of: %v", validEnvs)
	}

	// Validate logging level
	validLevels := []string{"debug", "info", "warn", "error", "fatal"}
	if !contains(validLevels, config.Logging.Level) {
		return fmt.Errorf("logging.level must be one of: %v", validLevels)
	}

	if config.Terminal.Driver == "" {
		return fmt.Errorf("terminal.driver is required")
	}

	// Validate handle policy
	validPolicies := []string{"replace", "reject"}
	if !contains(validPolicies, config.Terminal.HandlePolicy) {
		return fmt.Errorf("terminal.handle_policy must be one of: %v", validPolicies)
	}

	if config.Database.CleanupPeriod <= 0 || config.Database.Retention <= 0 {
		return fmt.Errorf("database.cleanup_period and database.retention must be positive")
	}

	if config.Terminal.Simulator.ReaderCount < 0 {
		return fmt.Errorf("terminal.simulator.reader_count must not be negative")
	}

	return nil
}

func contains(values []string, value string) bool {
	for _, v := range values {
		if v == value {
			return true
		}
	}
	return false
}

// DSN returns the lib/pq connection string
func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode)
}

// GetDatabaseDSN returns the database connection string
func (c *Config) GetDatabaseDSN() string {
	return c.Database.DSN()
}

// GetServerAddr returns the server address
func (c *Config) GetServerAddr() string {
	return fmt.Sprintf("%s:%s", c.Server.Host, c.Server.Port)
}

// IsProduction checks if the environment is production
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// IsDevelopment checks if the environment is development
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

// IsDebugEnabled checks if debug mode is enabled
func (c *Config) IsDebugEnabled() bool {
	return c.App.Debug || c.IsDevelopment()
}
