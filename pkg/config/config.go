package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	slogmulti "github.com/samber/slog-multi"
)

const (
	TransportStdio = "stdio"
	TransportHTTP  = "http"
)

// GitHubTokenEnvVars lists the GitHub credential variables in priority order.
var GitHubTokenEnvVars = []string{"GITHUB_PERSONAL_ACCESS_TOKEN", "GITHUB_TOKEN"}

type Config struct {
	ClusterName  string
	Transport    string
	Port         int
	LogLevel     string
	ToolTimeout  time.Duration
	Kubeconfig   string
	KubeContext  string
	HelmBinary   string
	GitHubAPIURL string
	ReadOnly     bool
}

func Load() (*Config, error) {
	clusterName := os.Getenv("CLUSTER_NAME")
	if clusterName == "" {
		clusterName = "default"
	}

	transport := strings.ToLower(os.Getenv("MCP_TRANSPORT"))
	if transport == "" {
		transport = TransportStdio
	}

	port := 8080
	if p := os.Getenv("PORT"); p != "" {
		if v, err := strconv.Atoi(p); err == nil {
			port = v
		}
	}

	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}

	var toolTimeout time.Duration
	if v := os.Getenv("TOOL_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			toolTimeout = d
		}
	}

	helmBinary := os.Getenv("HELM_BINARY")
	if helmBinary == "" {
		helmBinary = "helm"
	}

	readOnly := false
	if v := os.Getenv("READ_ONLY"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			readOnly = b
		}
	}

	cfg := &Config{
		ClusterName:  clusterName,
		Transport:    transport,
		Port:         port,
		LogLevel:     logLevel,
		ToolTimeout:  toolTimeout,
		Kubeconfig:   os.Getenv("KUBECONFIG"),
		KubeContext:  os.Getenv("KUBE_CONTEXT"),
		HelmBinary:   helmBinary,
		GitHubAPIURL: os.Getenv("GITHUB_API_URL"),
		ReadOnly:     readOnly,
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that may also have been set from command-line flags.
func (c *Config) Validate() error {
	switch c.Transport {
	case TransportStdio, TransportHTTP:
	default:
		return fmt.Errorf("unsupported transport %q, must be one of [%s, %s]", c.Transport, TransportStdio, TransportHTTP)
	}
	if c.Transport == TransportHTTP && (c.Port < 1 || c.Port > 65534) {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.ToolTimeout < 0 {
		return fmt.Errorf("tool timeout must not be negative, got %s", c.ToolTimeout)
	}
	return nil
}

// ResolveCredential returns the value of the first non-empty environment
// variable in names.
func ResolveCredential(names ...string) (string, bool) {
	for _, name := range names {
		if v := os.Getenv(name); v != "" {
			return v, true
		}
	}
	return "", false
}

// ParseLevel maps a LOG_LEVEL string onto a slog level, defaulting to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// SetupLogging initializes the global slog logger with JSON output at the
// specified level. Logs go to w; with the stdio transport stdout belongs to
// the protocol, so callers pass os.Stderr.
func SetupLogging(w io.Writer, level string, extra ...slog.Handler) {
	var handler slog.Handler = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: ParseLevel(level)})
	if len(extra) > 0 {
		handler = slogmulti.Fanout(append([]slog.Handler{handler}, extra...)...)
	}
	slog.SetDefault(slog.New(handler))
}
