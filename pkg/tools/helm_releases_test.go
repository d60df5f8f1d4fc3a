package tools

import (
	"context"
	"strings"
	"testing"

	. "github.com/onsi/gomega"

	"github.com/isitobservable/platform-ops-mcp/pkg/helm"
	"github.com/isitobservable/platform-ops-mcp/pkg/types"
)

// scriptedRunner replays canned helm output.
type scriptedRunner struct {
	calls  [][]string
	stdout string
	err    error
}

func (s *scriptedRunner) Run(_ context.Context, args ...string) ([]byte, error) {
	s.calls = append(s.calls, args)
	if s.err != nil {
		return nil, s.err
	}
	return []byte(s.stdout), nil
}

func helmRegistry(runner *scriptedRunner) *Registry {
	reg := NewRegistry(0)
	reg.RegisterAll(HelmTools(BaseTool{Helm: helm.NewClient(runner)}), false)
	return reg
}

func TestListHelmReleases(t *testing.T) {
	g := NewWithT(t)
	runner := &scriptedRunner{stdout: `[
  {"name":"ingress","namespace":"edge","revision":"3","updated":"2026-01-02 10:00:00 +0000 UTC","status":"deployed","chart":"ingress-nginx-4.10.0","app_version":"1.10.0"},
  {"name":"cache","namespace":"edge","revision":"1","updated":"2026-01-02 11:00:00 +0000 UTC","status":"failed","chart":"redis-19.0.1","app_version":""}
]`}

	res := helmRegistry(runner).Invoke(context.Background(), "list_helm_releases", map[string]any{"namespace": "edge"})
	g.Expect(res.IsError()).To(BeFalse())
	g.Expect(runner.calls).To(Equal([][]string{{"list", "-n", "edge", "--output", "json"}}))

	lines := strings.Split(res.Text, "\n")
	g.Expect(strings.Fields(lines[0])).To(Equal([]string{"NAME", "NAMESPACE", "REVISION", "STATUS", "CHART", "APP", "VERSION"}))
	g.Expect(rowFields(res.Text)).To(Equal([][]string{
		{"ingress", "edge", "3", "deployed", "ingress-nginx-4.10.0", "1.10.0"},
		{"cache", "edge", "1", "failed", "redis-19.0.1", "Unknown"},
	}))
}

func TestListHelmReleasesProcessError(t *testing.T) {
	g := NewWithT(t)
	runner := &scriptedRunner{
		stdout: "{not json",
		err:    types.NewProcessError("Helm Error", "Error: release not found\n"),
	}

	res := helmRegistry(runner).Invoke(context.Background(), "list_helm_releases", nil)
	g.Expect(res.Err.Code).To(Equal(types.ErrCodeProcess))
	g.Expect(res.Render()).To(Equal("Error [PROCESS_ERROR]: Helm Error: Error: release not found"))
	g.Expect(runner.calls).To(Equal([][]string{{"list", "-n", "default", "--output", "json"}}))
}

func TestGetHelmRelease(t *testing.T) {
	g := NewWithT(t)
	runner := &scriptedRunner{stdout: `{
  "name": "ingress",
  "namespace": "edge",
  "version": 3,
  "info": {
    "first_deployed": "2026-01-01T10:00:00Z",
    "last_deployed": "2026-01-02T10:00:00Z",
    "status": "deployed",
    "notes": "Visit https://ingress.example.com\n"
  },
  "chart": {"metadata": {"name": "ingress-nginx", "version": "4.10.0"}}
}`}

	res := helmRegistry(runner).Invoke(context.Background(), "get_helm_release", map[string]any{"name": "ingress", "namespace": "edge"})
	g.Expect(res.IsError()).To(BeFalse())
	g.Expect(res.Text).To(Equal(strings.Join([]string{
		"Name: ingress",
		"Namespace: edge",
		"Status: deployed",
		"Revision: 3",
		"Chart: ingress-nginx-4.10.0",
		"First Deployed: 2026-01-01T10:00:00Z",
		"Last Deployed: 2026-01-02T10:00:00Z",
		"Notes:",
		"Visit https://ingress.example.com",
	}, "\n")))
}

func TestGetHelmReleaseWithoutNotes(t *testing.T) {
	g := NewWithT(t)
	runner := &scriptedRunner{stdout: `{"name":"cache","namespace":"edge","version":1,"info":{"status":"failed"}}`}

	res := helmRegistry(runner).Invoke(context.Background(), "get_helm_release", map[string]any{"name": "cache"})
	g.Expect(res.IsError()).To(BeFalse())
	g.Expect(res.Text).To(ContainSubstring("Chart: Unknown\nFirst Deployed: Unknown"))
	g.Expect(res.Text).To(HaveSuffix("Notes:\nNo notes"))
}

func TestUninstallHelmRelease(t *testing.T) {
	g := NewWithT(t)
	runner := &scriptedRunner{stdout: "release \"cache\" uninstalled\n"}

	res := helmRegistry(runner).Invoke(context.Background(), "uninstall_helm_release", map[string]any{"name": "cache", "namespace": "edge"})
	g.Expect(res.Render()).To(Equal(`release "cache" uninstalled`))
	g.Expect(runner.calls).To(Equal([][]string{{"uninstall", "cache", "-n", "edge"}}))
}

func TestHelmToolsRequireName(t *testing.T) {
	g := NewWithT(t)
	runner := &scriptedRunner{}
	reg := helmRegistry(runner)

	for _, name := range []string{"get_helm_release", "uninstall_helm_release"} {
		res := reg.Invoke(context.Background(), name, map[string]any{"name": "  "})
		g.Expect(res.Render()).To(Equal("Error [INVALID_INPUT]: name is required"), name)
	}
	g.Expect(runner.calls).To(BeEmpty())
}
