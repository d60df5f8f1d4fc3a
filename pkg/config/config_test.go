package config

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	. "github.com/onsi/gomega"
)

func TestResolveCredential(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		want    string
		wantSet bool
	}{
		{
			name:    "personal access token wins",
			env:     map[string]string{"GITHUB_PERSONAL_ACCESS_TOKEN": "pat", "GITHUB_TOKEN": "ci"},
			want:    "pat",
			wantSet: true,
		},
		{
			name:    "falls back to GITHUB_TOKEN",
			env:     map[string]string{"GITHUB_PERSONAL_ACCESS_TOKEN": "", "GITHUB_TOKEN": "ci"},
			want:    "ci",
			wantSet: true,
		},
		{
			name:    "absent",
			env:     map[string]string{"GITHUB_PERSONAL_ACCESS_TOKEN": "", "GITHUB_TOKEN": ""},
			wantSet: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewWithT(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			got, ok := ResolveCredential(GitHubTokenEnvVars...)
			g.Expect(ok).To(Equal(tt.wantSet))
			g.Expect(got).To(Equal(tt.want))
		})
	}
}

func TestLoadDefaults(t *testing.T) {
	g := NewWithT(t)
	for _, k := range []string{"CLUSTER_NAME", "MCP_TRANSPORT", "PORT", "LOG_LEVEL", "TOOL_TIMEOUT", "HELM_BINARY", "READ_ONLY", "GITHUB_API_URL", "KUBE_CONTEXT"} {
		t.Setenv(k, "")
	}

	cfg, err := Load()
	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(cfg.ClusterName).To(Equal("default"))
	g.Expect(cfg.Transport).To(Equal(TransportStdio))
	g.Expect(cfg.Port).To(Equal(8080))
	g.Expect(cfg.LogLevel).To(Equal("info"))
	g.Expect(cfg.ToolTimeout).To(BeZero())
	g.Expect(cfg.HelmBinary).To(Equal("helm"))
	g.Expect(cfg.ReadOnly).To(BeFalse())
}

func TestLoadOverrides(t *testing.T) {
	g := NewWithT(t)
	t.Setenv("MCP_TRANSPORT", "HTTP")
	t.Setenv("PORT", "9090")
	t.Setenv("TOOL_TIMEOUT", "45s")
	t.Setenv("HELM_BINARY", "/usr/local/bin/helm")
	t.Setenv("READ_ONLY", "true")

	cfg, err := Load()
	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(cfg.Transport).To(Equal(TransportHTTP))
	g.Expect(cfg.Port).To(Equal(9090))
	g.Expect(cfg.ToolTimeout).To(Equal(45 * time.Second))
	g.Expect(cfg.HelmBinary).To(Equal("/usr/local/bin/helm"))
	g.Expect(cfg.ReadOnly).To(BeTrue())
}

func TestLoadRejectsUnknownTransport(t *testing.T) {
	g := NewWithT(t)
	t.Setenv("MCP_TRANSPORT", "sse")

	_, err := Load()
	g.Expect(err).To(MatchError(ContainSubstring(`unsupported transport "sse"`)))
}

func TestSetupLoggingFanout(t *testing.T) {
	g := NewWithT(t)
	prev := slog.Default()
	defer slog.SetDefault(prev)

	var primary, secondary bytes.Buffer
	SetupLogging(&primary, "warn", slog.NewTextHandler(&secondary, &slog.HandlerOptions{Level: slog.LevelDebug}))

	slog.Info("routine")
	slog.Warn("degraded", "component", "k8s")

	g.Expect(primary.String()).ToNot(ContainSubstring("routine"))
	g.Expect(primary.String()).To(ContainSubstring(`"msg":"degraded"`))
	g.Expect(secondary.String()).To(ContainSubstring("routine"))
	g.Expect(secondary.String()).To(ContainSubstring("component=k8s"))
	g.Expect(slog.Default().Handler().Enabled(context.Background(), slog.LevelDebug)).To(BeTrue())

	slog.With("session", "s-1").Error("tool failed")
	g.Expect(primary.String()).To(ContainSubstring(`"session":"s-1"`))
	g.Expect(secondary.String()).To(ContainSubstring("session=s-1"))
}

func TestParseLevel(t *testing.T) {
	g := NewWithT(t)
	g.Expect(ParseLevel("DEBUG")).To(Equal(slog.LevelDebug))
	g.Expect(ParseLevel("warning")).To(Equal(slog.LevelWarn))
	g.Expect(ParseLevel("error")).To(Equal(slog.LevelError))
	g.Expect(ParseLevel("bogus")).To(Equal(slog.LevelInfo))
}
