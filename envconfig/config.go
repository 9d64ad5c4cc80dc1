package envconfig

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"strconv"
	"strings"

	"github.com/ai-den/jsongrammar/logutil"
)

var ErrInvalidHostPort = errors.New("invalid port specified in JSONGRAMMAR_HOST")

const (
	defaultHost = "127.0.0.1"
	defaultPort = "11435"
)

var (
	// Set via JSONGRAMMAR_ORIGINS in the environment
	AllowOrigins []string
	// Set via JSONGRAMMAR_DEBUG in the environment
	Debug bool
	// LogLevel is derived from JSONGRAMMAR_DEBUG: 1, true or "debug" selects debug; 2 or "trace" selects trace
	LogLevel slog.Level
	// Set via JSONGRAMMAR_LOG_FORMAT in the environment
	LogFormat string
	// Set via JSONGRAMMAR_NUM_PARALLEL in the environment
	NumParallel int
	// Set via JSONGRAMMAR_WHITESPACE in the environment
	Whitespace string
)

type EnvVar struct {
	Name        string
	Value       any
	Description string
}

func AsMap() map[string]EnvVar {
	return map[string]EnvVar{
		"JSONGRAMMAR_CONFIG":       {"JSONGRAMMAR_CONFIG", os.Getenv("JSONGRAMMAR_CONFIG"), "Path to a TOML configuration file"},
		"JSONGRAMMAR_DEBUG":        {"JSONGRAMMAR_DEBUG", Debug, "Show additional debug information (e.g. JSONGRAMMAR_DEBUG=1, 2 for trace)"},
		"JSONGRAMMAR_HOST":         {"JSONGRAMMAR_HOST", "", "IP Address for the jsongrammar server (default 127.0.0.1:11435)"},
		"JSONGRAMMAR_LOG_FORMAT":   {"JSONGRAMMAR_LOG_FORMAT", LogFormat, "Log output format, text or json (default text)"},
		"JSONGRAMMAR_NUM_PARALLEL": {"JSONGRAMMAR_NUM_PARALLEL", NumParallel, "Maximum number of schemas compiled at once (default 4)"},
		"JSONGRAMMAR_ORIGINS":      {"JSONGRAMMAR_ORIGINS", AllowOrigins, "A comma separated list of allowed origins"},
		"JSONGRAMMAR_WHITESPACE":   {"JSONGRAMMAR_WHITESPACE", Whitespace, "Default whitespace policy: single, none or flexible (default single)"},
	}
}

func Values() map[string]string {
	vals := make(map[string]string)
	for k, v := range AsMap() {
		vals[k] = fmt.Sprintf("%v", v.Value)
	}
	return vals
}

var defaultAllowOrigins = []string{
	"localhost",
	"127.0.0.1",
	"0.0.0.0",
}

// Clean quotes and spaces from the value. Unset variables fall back to the
// configuration file.
func clean(key string) string {
	if v := strings.Trim(os.Getenv(key), "\"' "); v != "" {
		return v
	}
	return strings.Trim(GetConfigValue(key), "\"' ")
}

func init() {
	LoadConfig()
}

func LoadConfig() {
	Debug = false
	LogLevel = slog.LevelInfo
	if debug := clean("JSONGRAMMAR_DEBUG"); debug != "" {
		if n, err := strconv.Atoi(debug); err == nil && n > 1 {
			Debug = true
			LogLevel = logutil.LevelTrace
		} else if d, err := strconv.ParseBool(debug); err == nil {
			Debug = d
		} else if level, err := logutil.ParseLevel(debug); err == nil && level <= slog.LevelDebug {
			Debug = true
			LogLevel = level
		} else {
			Debug = true
		}

		if Debug && LogLevel > slog.LevelDebug {
			LogLevel = slog.LevelDebug
		}
	}

	LogFormat = "text"
	if format := clean("JSONGRAMMAR_LOG_FORMAT"); format != "" {
		switch strings.ToLower(format) {
		case "text", "json":
			LogFormat = strings.ToLower(format)
		default:
			slog.Error("invalid setting, ignoring", "JSONGRAMMAR_LOG_FORMAT", format)
		}
	}

	NumParallel = 4
	if onp := clean("JSONGRAMMAR_NUM_PARALLEL"); onp != "" {
		val, err := strconv.Atoi(onp)
		if err != nil || val <= 0 {
			slog.Error("invalid setting must be greater than zero", "JSONGRAMMAR_NUM_PARALLEL", onp, "error", err)
		} else {
			NumParallel = val
		}
	}

	Whitespace = clean("JSONGRAMMAR_WHITESPACE")

	AllowOrigins = nil
	if origins := clean("JSONGRAMMAR_ORIGINS"); origins != "" {
		AllowOrigins = strings.Split(origins, ",")
	}
	for _, allowOrigin := range defaultAllowOrigins {
		AllowOrigins = append(AllowOrigins,
			fmt.Sprintf("http://%s", allowOrigin),
			fmt.Sprintf("https://%s", allowOrigin),
			fmt.Sprintf("http://%s:*", allowOrigin),
			fmt.Sprintf("https://%s:*", allowOrigin),
		)
	}
}

type ServerHost struct {
	Scheme string
	Host   string
	Port   string
}

func (h ServerHost) String() string {
	return net.JoinHostPort(h.Host, h.Port)
}

// Host returns the scheme and address of the server, as configured by
// JSONGRAMMAR_HOST.
func Host() (*ServerHost, error) {
	defaultPort := defaultPort

	hostVar := clean("JSONGRAMMAR_HOST")
	scheme, hostport, ok := strings.Cut(hostVar, "://")
	switch {
	case !ok:
		scheme, hostport = "http", hostVar
	case scheme == "http":
		defaultPort = "80"
	case scheme == "https":
		defaultPort = "443"
	}

	// trim trailing slashes
	hostport = strings.TrimRight(hostport, "/")

	host, port, err := net.SplitHostPort(hostport)
	if err != nil {
		host, port = defaultHost, defaultPort
		if ip := net.ParseIP(strings.Trim(hostport, "[]")); ip != nil {
			host = ip.String()
		} else if hostport != "" {
			host = hostport
		}
	}

	if portNum, err := strconv.ParseInt(port, 10, 32); err != nil || portNum > 65535 || portNum < 0 {
		return nil, ErrInvalidHostPort
	}

	return &ServerHost{
		Scheme: scheme,
		Host:   host,
		Port:   port,
	}, nil
}
