package helm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"helm.sh/helm/v3/pkg/release"
)

// ReleaseSummary is one element of `helm list --output json`.
type ReleaseSummary struct {
	Name       string `json:"name"`
	Namespace  string `json:"namespace"`
	Revision   string `json:"revision"`
	Updated    string `json:"updated"`
	Status     string `json:"status"`
	Chart      string `json:"chart"`
	AppVersion string `json:"app_version"`
}

// Client wraps the helm subcommands used by the tools.
type Client struct {
	runner Runner
}

// NewClient returns a Client that executes helm through runner.
func NewClient(runner Runner) *Client {
	return &Client{runner: runner}
}

// List returns the releases installed in namespace.
func (c *Client) List(ctx context.Context, namespace string) ([]ReleaseSummary, error) {
	out, err := c.runner.Run(ctx, "list", "-n", namespace, "--output", "json")
	if err != nil {
		return nil, err
	}
	var releases []ReleaseSummary
	if err := json.Unmarshal(out, &releases); err != nil {
		return nil, fmt.Errorf("decoding helm list output: %w", err)
	}
	return releases, nil
}

// Status returns the current state of the named release.
func (c *Client) Status(ctx context.Context, name, namespace string) (*release.Release, error) {
	out, err := c.runner.Run(ctx, "status", name, "-n", namespace, "--output", "json")
	if err != nil {
		return nil, err
	}
	rel := &release.Release{}
	if err := json.Unmarshal(out, rel); err != nil {
		return nil, fmt.Errorf("decoding helm status output: %w", err)
	}
	return rel, nil
}

// Uninstall removes the named release and returns the CLI's stdout.
func (c *Client) Uninstall(ctx context.Context, name, namespace string) (string, error) {
	out, err := c.runner.Run(ctx, "uninstall", name, "-n", namespace)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}
