// Package config loads daemon and CLI settings from defaults, an optional
// YAML file, CELERIX_* environment variables and bound command-line flags,
// in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/viper"

	"github.com/celerix-dev/celerix-bugs/internal/logging"
	"github.com/celerix-dev/celerix-bugs/internal/vault"
)

// EnvPrefix is prepended to every environment variable, e.g. CELERIX_DATA_DIR.
const EnvPrefix = "CELERIX"

// Config is the daemon configuration.
type Config struct {
	DataDir    string `mapstructure:"data_dir"`
	Port       string `mapstructure:"port"`
	HTTPPort   string `mapstructure:"http_port"`
	DisableTLS bool   `mapstructure:"disable_tls"`
	UsersFile  string `mapstructure:"users_file"`
	DataKey    string `mapstructure:"data_key"`
	LogLevel   string `mapstructure:"log_level"`
	LogFormat  string `mapstructure:"log_format"`
	Telemetry  bool   `mapstructure:"telemetry"`
	Seed       bool   `mapstructure:"seed"`
}

// ClientConfig is the CLI configuration.
type ClientConfig struct {
	StoreAddr  string `mapstructure:"store_addr"`
	Actor      string `mapstructure:"actor"`
	DisableTLS bool   `mapstructure:"disable_tls"`
	DataDir    string `mapstructure:"data_dir"`
	DataKey    string `mapstructure:"data_key"`
	UsersFile  string `mapstructure:"users_file"`
}

// New returns a viper instance wired for the CELERIX_ environment.
func New() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	v.SetDefault("data_dir", "./data")
	v.SetDefault("port", "7001")
	v.SetDefault("http_port", "7002")
	v.SetDefault("disable_tls", false)
	v.SetDefault("users_file", "")
	v.SetDefault("data_key", "")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
	v.SetDefault("telemetry", false)
	v.SetDefault("seed", false)
	v.SetDefault("store_addr", "")
	v.SetDefault("actor", "")
	return v
}

func readFile(v *viper.Viper, file string) error {
	if file == "" {
		return nil
	}
	v.SetConfigFile(file)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}
	return nil
}

// Load reads file (if any) into v and decodes the daemon configuration.
func Load(v *viper.Viper, file string) (*Config, error) {
	if err := readFile(v, file); err != nil {
		return nil, err
	}
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadClient reads file (if any) into v and decodes the CLI configuration.
func LoadClient(v *viper.Viper, file string) (*ClientConfig, error) {
	if err := readFile(v, file); err != nil {
		return nil, err
	}
	var cfg ClientConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return &cfg, nil
}

// Validate reports every invalid field at once.
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.DataDir) == "" {
		errs = append(errs, errors.New("data_dir must not be empty"))
	}
	for name, port := range map[string]string{"port": c.Port, "http_port": c.HTTPPort} {
		if n, err := strconv.Atoi(port); err != nil || n < 0 || n > 65535 {
			errs = append(errs, fmt.Errorf("%s %q is not a valid port", name, port))
		}
	}
	if c.DataKey != "" {
		if _, err := vault.ParseKey(c.DataKey); err != nil {
			errs = append(errs, err)
		}
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log_format %q must be text or json", c.LogFormat))
	}
	return errors.Join(errs...)
}

// Key returns the decoded data key, or nil when encryption is off.
func (c *Config) Key() ([]byte, error) {
	if c.DataKey == "" {
		return nil, nil
	}
	return vault.ParseKey(c.DataKey)
}
