package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/isitobservable/platform-ops-mcp/pkg/config"
)

var (
	VERSION = "0.0.0-dev.0"
)

var rootCmd = &cobra.Command{
	Use:               "platform-ops-mcp",
	Version:           VERSION,
	SilenceUsage:      true,
	SilenceErrors:     true,
	DisableAutoGenTag: true,
	Short:             "MCP server for GitHub Actions, Kubernetes and Helm operations",
}

type rootFlags struct {
	transport    string
	port         int
	logLevel     string
	timeout      time.Duration
	kubeconfig   string
	kubeContext  string
	helmBinary   string
	githubAPIURL string
	readOnly     bool
}

var rootArgs rootFlags

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&rootArgs.transport, "transport", config.TransportStdio,
		"The transport protocol to use for the MCP server. Options: [stdio, http].")
	flags.IntVar(&rootArgs.port, "port", 8080,
		"The port to use for the MCP server when the transport is 'http'. Health checks are served on port+1.")
	flags.StringVar(&rootArgs.logLevel, "log-level", "info",
		"Log level. Options: [debug, info, warn, error].")
	flags.DurationVar(&rootArgs.timeout, "timeout", 0,
		"Upper bound for a single tool call. Zero keeps the client and CLI defaults.")
	flags.StringVar(&rootArgs.kubeconfig, "kubeconfig", "",
		"Path to the kubeconfig file. Falls back to the in-cluster service account.")
	flags.StringVar(&rootArgs.kubeContext, "kube-context", "",
		"The name of the kubeconfig context to use.")
	flags.StringVar(&rootArgs.helmBinary, "helm-binary", "helm",
		"The helm executable, resolved on PATH.")
	flags.StringVar(&rootArgs.githubAPIURL, "github-api-url", "",
		"GitHub Enterprise API base URL. Empty means github.com.")
	flags.BoolVar(&rootArgs.readOnly, "read-only", false,
		"Do not register tools that trigger workflows, scale or restart deployments, or uninstall releases.")

	rootCmd.SetOut(os.Stdout)
	rootCmd.AddCommand(serveCmd, versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the server version",
	Run: func(cmd *cobra.Command, _ []string) {
		cmd.Println(VERSION)
	},
}

// loadConfig reads the environment and lets explicitly set flags win.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	applyFlags(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyFlags(cmd *cobra.Command, cfg *config.Config) {
	changed := cmd.Flags().Changed
	if changed("transport") {
		cfg.Transport = rootArgs.transport
	}
	if changed("port") {
		cfg.Port = rootArgs.port
	}
	if changed("log-level") {
		cfg.LogLevel = rootArgs.logLevel
	}
	if changed("timeout") {
		cfg.ToolTimeout = rootArgs.timeout
	}
	if changed("kubeconfig") {
		cfg.Kubeconfig = rootArgs.kubeconfig
	}
	if changed("kube-context") {
		cfg.KubeContext = rootArgs.kubeContext
	}
	if changed("helm-binary") {
		cfg.HelmBinary = rootArgs.helmBinary
	}
	if changed("github-api-url") {
		cfg.GitHubAPIURL = rootArgs.githubAPIURL
	}
	if changed("read-only") {
		cfg.ReadOnly = rootArgs.readOnly
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}
