// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/spf13/viper"

	"sqm-service/internal/protocol"
)

// Config represents the application configuration
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Sensor    SensorConfig    `mapstructure:"sensor"`
	Discovery DiscoveryConfig `mapstructure:"discovery"`
	App       AppConfig       `mapstructure:"app"`
}

// ServerConfig represents HTTP server configuration
type ServerConfig struct {
	Host           string        `mapstructure:"host"`
	Port           string        `mapstructure:"port"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	IdleTimeout    time.Duration `mapstructure:"idle_timeout"`
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
	StreamInterval time.Duration `mapstructure:"stream_interval"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Output     string `mapstructure:"output"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
	Compress   bool   `mapstructure:"compress"`
}

// SensorConfig describes the photometer and how to talk to it
type SensorConfig struct {
	DeviceType      string        `mapstructure:"device_type"`
	Address         string        `mapstructure:"address"`
	Tries           int           `mapstructure:"tries"`
	Debug           bool          `mapstructure:"debug"`
	Encoding        string        `mapstructure:"encoding"`
	ConnectOnStart  bool          `mapstructure:"connect_on_start"`
	LongSettle      time.Duration `mapstructure:"long_settle"`
	MidSettle       time.Duration `mapstructure:"mid_settle"`
	ShortSettle     time.Duration `mapstructure:"short_settle"`
	PollInterval    time.Duration `mapstructure:"poll_interval"`
	CloseDrainLimit int           `mapstructure:"close_drain_limit"`

	Serial  SerialConfig  `mapstructure:"serial"`
	Network NetworkConfig `mapstructure:"network"`
}

// SerialConfig represents SQM-LU line settings
type SerialConfig struct {
	BaudRate      int           `mapstructure:"baud_rate"`
	DataBits      int           `mapstructure:"data_bits"`
	StopBits      int           `mapstructure:"stop_bits"`
	Parity        string        `mapstructure:"parity"`
	Timeout       time.Duration `mapstructure:"timeout"`
	MaxLineLength int           `mapstructure:"max_line_length"`
}

// NetworkConfig represents SQM-LE socket settings
type NetworkConfig struct {
	Port           int           `mapstructure:"port"`
	BufferSize     int           `mapstructure:"buffer_size"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
}

// DiscoveryConfig configures the search run when the configured address fails
type DiscoveryConfig struct {
	Enabled bool                   `mapstructure:"enabled"`
	Network NetworkDiscoveryConfig `mapstructure:"network"`
	Serial  SerialDiscoveryConfig  `mapstructure:"serial"`
}

// NetworkDiscoveryConfig represents the UDP broadcast probe
type NetworkDiscoveryConfig struct {
	BroadcastAddr string        `mapstructure:"broadcast_addr"`
	Port          int           `mapstructure:"port"`
	Probe         string        `mapstructure:"probe"`
	Window        time.Duration `mapstructure:"window"`
	MarkerOffset  int           `mapstructure:"marker_offset"`
	Marker        int           `mapstructure:"marker"`
	MACStart      int           `mapstructure:"mac_start"`
	MACEnd        int           `mapstructure:"mac_end"`
}

// SerialDiscoveryConfig represents the port enumeration probe
type SerialDiscoveryConfig struct {
	Pattern       string        `mapstructure:"pattern"`
	Count         int           `mapstructure:"count"`
	UseSystemList bool          `mapstructure:"use_system_list"`
	Probe         string        `mapstructure:"probe"`
	Marker        string        `mapstructure:"marker"`
	Timeout       time.Duration `mapstructure:"timeout"`
}

// AppConfig represents application metadata
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

// Load loads configuration from path (if non-empty) or from config.yaml in
// the usual locations, with SQM_SERVICE_* environment overrides.
// A missing config file is not an error; defaults apply.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/sqm-service")
	}

	// Environment variable support
	v.SetEnvPrefix("SQM_SERVICE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", "8085")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "90s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("server.stream_interval", "1s")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")
	v.SetDefault("logging.max_size", 100)
	v.SetDefault("logging.max_backups", 3)
	v.SetDefault("logging.max_age", 28)
	v.SetDefault("logging.compress", true)

	// Sensor defaults
	v.SetDefault("sensor.device_type", "SQM-LU")
	v.SetDefault("sensor.address", "/dev/ttyUSB0")
	v.SetDefault("sensor.tries", 3)
	v.SetDefault("sensor.debug", false)
	v.SetDefault("sensor.encoding", "utf-8")
	v.SetDefault("sensor.connect_on_start", true)
	v.SetDefault("sensor.long_settle", "2s")
	v.SetDefault("sensor.mid_settle", "1s")
	v.SetDefault("sensor.short_settle", "500ms")
	v.SetDefault("sensor.poll_interval", "500ms")
	v.SetDefault("sensor.close_drain_limit", 1000)

	v.SetDefault("sensor.serial.baud_rate", 115200)
	v.SetDefault("sensor.serial.data_bits", 8)
	v.SetDefault("sensor.serial.stop_bits", 1)
	v.SetDefault("sensor.serial.parity", "none")
	v.SetDefault("sensor.serial.timeout", "2s")
	v.SetDefault("sensor.serial.max_line_length", 1024)

	v.SetDefault("sensor.network.port", 10001)
	v.SetDefault("sensor.network.buffer_size", 256)
	v.SetDefault("sensor.network.connect_timeout", "20s")
	v.SetDefault("sensor.network.read_timeout", "20s")
	v.SetDefault("sensor.network.write_timeout", "5s")

	// Discovery defaults
	v.SetDefault("discovery.enabled", true)
	v.SetDefault("discovery.network.broadcast_addr", "255.255.255.255")
	v.SetDefault("discovery.network.port", 30718)
	v.SetDefault("discovery.network.probe", "000000f6")
	v.SetDefault("discovery.network.window", "3s")
	v.SetDefault("discovery.network.marker_offset", 3)
	v.SetDefault("discovery.network.marker", 0xf7)
	v.SetDefault("discovery.network.mac_start", 24)
	v.SetDefault("discovery.network.mac_end", 30)

	// empty pattern means the host's usual USB serial names
	v.SetDefault("discovery.serial.pattern", "")
	v.SetDefault("discovery.serial.count", 100)
	v.SetDefault("discovery.serial.use_system_list", false)
	v.SetDefault("discovery.serial.probe", "ix")
	v.SetDefault("discovery.serial.marker", "i")
	v.SetDefault("discovery.serial.timeout", "1s")

	// App defaults
	v.SetDefault("app.name", "sqm-service")
	v.SetDefault("app.version", "1.0.0")
	v.SetDefault("app.environment", "development")
}

// validate validates the configuration
func validate(config *Config) error {
	if config.Server.Port == "" {
		return fmt.Errorf("server.port is required")
	}

	if _, err := protocol.ParseDeviceType(config.Sensor.DeviceType); err != nil {
		return fmt.Errorf("sensor.device_type: %w", err)
	}
	if config.Sensor.Tries < 0 {
		return fmt.Errorf("sensor.tries must not be negative")
	}
	if config.Sensor.Address == "" && !config.Discovery.Enabled {
		return fmt.Errorf("sensor.address is required when discovery is disabled")
	}
	if _, err := protocol.NewCodec(config.Sensor.Encoding); err != nil {
		return fmt.Errorf("sensor.encoding: %w", err)
	}

	if config.Discovery.Network.Marker < 0 || config.Discovery.Network.Marker > 0xff {
		return fmt.Errorf("discovery.network.marker must fit in one byte")
	}
	if len(config.Discovery.Serial.Marker) != 1 {
		return fmt.Errorf("discovery.serial.marker must be a single character")
	}

	validEnvs := []string{"development", "staging", "production", "test"}
	if !slices.Contains(validEnvs, config.App.Environment) {
		return fmt.Errorf("app.environment must be one of: %v", validEnvs)
	}

	validLevels := []string{"debug", "info", "warn", "error", "fatal"}
	if !slices.Contains(validLevels, config.Logging.Level) {
		return fmt.Errorf("logging.level must be one of: %v", validLevels)
	}

	return nil
}

// GetServerAddr returns the server address
func (c *Config) GetServerAddr() string {
	return fmt.Sprintf("%s:%s", c.Server.Host, c.Server.Port)
}

// IsProduction checks if the environment is production
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}
