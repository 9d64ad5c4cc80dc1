package envconfig

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"
)

// Config represents the TOML configuration structure
type Config struct {
	Server struct {
		Host        string   `toml:"host"`
		Origins     []string `toml:"origins"`
		NumParallel int      `toml:"num_parallel"`
	} `toml:"server"`

	Grammar struct {
		Whitespace string `toml:"whitespace"`
	} `toml:"grammar"`

	Logging struct {
		Debug  int    `toml:"debug"`
		Format string `toml:"format"`
	} `toml:"logging"`
}

var (
	configOnce sync.Once
	config     *Config
	configPath string
)

// GetConfigPaths returns the list of possible config file paths for the current OS.
// JSONGRAMMAR_CONFIG, when set, is the only candidate.
func GetConfigPaths() []string {
	if path := strings.Trim(os.Getenv("JSONGRAMMAR_CONFIG"), "\"' "); path != "" {
		return []string{path}
	}

	var paths []string

	switch runtime.GOOS {
	case "windows":
		if appData := os.Getenv("APPDATA"); appData != "" {
			paths = append(paths, filepath.Join(appData, "jsongrammar", "config.toml"))
		}
		if userProfile := os.Getenv("USERPROFILE"); userProfile != "" {
			paths = append(paths, filepath.Join(userProfile, ".jsongrammar", "config.toml"))
		}
	case "darwin":
		home, err := os.UserHomeDir()
		if err == nil {
			paths = append(paths,
				filepath.Join(home, "Library", "Application Support", "jsongrammar", "config.toml"),
				filepath.Join(home, ".config", "jsongrammar", "config.toml"),
				filepath.Join(home, ".jsongrammar", "config.toml"),
			)
		}
	default: // Linux and others
		if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
			paths = append(paths, filepath.Join(xdgConfig, "jsongrammar", "config.toml"))
		}
		home, err := os.UserHomeDir()
		if err == nil {
			paths = append(paths,
				filepath.Join(home, ".config", "jsongrammar", "config.toml"),
				filepath.Join(home, ".jsongrammar", "config.toml"),
			)
		}
		paths = append(paths, "/etc/jsongrammar/config.toml")
	}

	return paths
}

// loadConfig loads the first available configuration file
func loadConfig() (*Config, string, error) {
	for _, path := range GetConfigPaths() {
		if _, err := os.Stat(path); err == nil {
			var cfg Config
			if _, err := toml.DecodeFile(path, &cfg); err != nil {
				return nil, "", fmt.Errorf("error parsing config file %s: %w", path, err)
			}
			return &cfg, path, nil
		}
	}
	return nil, "", nil
}

// ConfigPath returns the path of the loaded configuration file, or "" if
// none was found.
func ConfigPath() string {
	GetConfigValue("")
	return configPath
}

// GetConfigValue returns the value for a given environment variable key from the config file
func GetConfigValue(key string) string {
	configOnce.Do(func() {
		var err error
		config, configPath, err = loadConfig()
		if err != nil {
			slog.Warn("failed to load config file", "error", err)
		} else if config != nil {
			slog.Debug("loaded config file", "path", configPath)
		}
	})

	if config == nil {
		return ""
	}

	// Map environment variables to config values
	switch key {
	case "JSONGRAMMAR_HOST":
		return config.Server.Host
	case "JSONGRAMMAR_ORIGINS":
		if len(config.Server.Origins) > 0 {
			return strings.Join(config.Server.Origins, ",")
		}
	case "JSONGRAMMAR_NUM_PARALLEL":
		if config.Server.NumParallel > 0 {
			return fmt.Sprintf("%d", config.Server.NumParallel)
		}
	case "JSONGRAMMAR_WHITESPACE":
		return config.Grammar.Whitespace
	case "JSONGRAMMAR_DEBUG":
		if config.Logging.Debug > 0 {
			return fmt.Sprintf("%d", config.Logging.Debug)
		}
	case "JSONGRAMMAR_LOG_FORMAT":
		return config.Logging.Format
	}

	return ""
}

// reloadConfigFile forgets the loaded configuration file so the next
// lookup reads it again.
func reloadConfigFile() {
	configOnce = sync.Once{}
	config, configPath = nil, ""
}

// ReloadServerConfig rereads the configuration file and the environment.
func ReloadServerConfig() {
	reloadConfigFile()
	LoadConfig()
}

// GenerateExampleConfig returns a commented example TOML configuration
func GenerateExampleConfig() string {
	return `# jsongrammar configuration file
# Environment variables take precedence over the values below.

[server]
# Network binding address (default: "127.0.0.1:11435")
host = "127.0.0.1:11435"
# Additional allowed CORS origins
origins = ["http://localhost:3000"]
# Maximum number of schemas compiled at once (default: 4)
num_parallel = 4

[grammar]
# Whitespace allowed at every join point: "single", "none" or "flexible" (default: "single")
whitespace = "single"

[logging]
# 1 enables debug logging, 2 enables trace logging (default: 0)
debug = 0
# "text" or "json" (default: "text")
format = "text"
`
}
