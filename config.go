package hdi

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// DefaultLibraryDir is where implementation libraries are installed.
const DefaultLibraryDir = "/vendor/lib"

// Config holds broker settings. It is passed by value and treated as
// immutable once a Broker is built from it.
type Config struct {
	// LibraryDir is the trusted library directory, without the 64-bit suffix.
	LibraryDir string `mapstructure:"library_dir"`
	// Lib64 selects the "64" directory variant.
	Lib64 bool `mapstructure:"lib64"`
	// ServiceManagerAddr is the gRPC target of the remote service manager.
	ServiceManagerAddr string `mapstructure:"service_manager_addr"`
	// LogLevel is debug, info, warn or error.
	LogLevel string `mapstructure:"log_level"`
	// WatchInterval is how often the status watcher polls the service manager.
	WatchInterval time.Duration `mapstructure:"watch_interval"`
}

func DefaultConfig() Config {
	return Config{
		LibraryDir:         DefaultLibraryDir,
		Lib64:              strconv.IntSize == 64,
		ServiceManagerAddr: "unix:///dev/unix/socket/hdi_servmgr.sock",
		LogLevel:           "info",
		WatchInterval:      2 * time.Second,
	}
}

// TrustedDir returns the directory libraries must resolve into.
func (c Config) TrustedDir() string {
	dir := filepath.Clean(c.LibraryDir)
	if c.Lib64 {
		dir += "64"
	}
	return dir
}

// LoadConfig reads configuration from path (any format viper understands;
// skipped when empty) and from HDI_* environment variables, on top of
// DefaultConfig.
func LoadConfig(path string) (Config, error) {
	v := viper.New()

	defaults := DefaultConfig()
	v.SetDefault("library_dir", defaults.LibraryDir)
	v.SetDefault("lib64", defaults.Lib64)
	v.SetDefault("service_manager_addr", defaults.ServiceManagerAddr)
	v.SetDefault("log_level", defaults.LogLevel)
	v.SetDefault("watch_interval", defaults.WatchInterval)

	v.SetEnvPrefix("HDI")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decoding config: %w", err)
	}
	if strings.TrimSpace(cfg.LibraryDir) == "" {
		return Config{}, fmt.Errorf("%w: library_dir is empty", ErrInvalidArgument)
	}
	return cfg, nil
}
