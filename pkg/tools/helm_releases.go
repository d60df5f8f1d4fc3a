package tools

import (
	"context"
	"strconv"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"
	"helm.sh/helm/v3/pkg/release"

	"github.com/isitobservable/platform-ops-mcp/pkg/format"
)

func helmReleaseSchema() *jsonschema.Schema {
	return objectSchema([]string{"name"}, map[string]*jsonschema.Schema{
		"name":      stringProp("Helm release name"),
		"namespace": namespaceProp(),
	})
}

// --- list_helm_releases ---

type ListHelmReleasesTool struct{ BaseTool }

func (t *ListHelmReleasesTool) Name() string        { return "list_helm_releases" }
func (t *ListHelmReleasesTool) Description() string { return "List Helm releases installed in a namespace" }
func (t *ListHelmReleasesTool) InputSchema() *jsonschema.Schema {
	return objectSchema(nil, map[string]*jsonschema.Schema{"namespace": namespaceProp()})
}

func (t *ListHelmReleasesTool) Run(ctx context.Context, args map[string]any) (string, error) {
	ns := getStringArg(args, "namespace", defaultNamespace)
	client, err := t.helm()
	if err != nil {
		return "", err
	}
	releases, err := client.List(ctx, ns)
	if err != nil {
		return "", err
	}

	rows := make([][]string, 0, len(releases))
	for _, r := range releases {
		rows = append(rows, []string{r.Name, r.Namespace, r.Revision, r.Status, r.Chart, r.AppVersion})
	}
	return format.Table([]format.Column{
		{Name: "NAME", Width: 30},
		{Name: "NAMESPACE", Width: 15},
		{Name: "REVISION", Width: 10},
		{Name: "STATUS", Width: 15},
		{Name: "CHART", Width: 30},
		{Name: "APP VERSION"},
	}, rows), nil
}

// --- get_helm_release ---

type GetHelmReleaseTool struct{ BaseTool }

func (t *GetHelmReleaseTool) Name() string { return "get_helm_release" }
func (t *GetHelmReleaseTool) Description() string {
	return "Get the status, revision, chart and notes of a Helm release"
}
func (t *GetHelmReleaseTool) InputSchema() *jsonschema.Schema { return helmReleaseSchema() }

func (t *GetHelmReleaseTool) Run(ctx context.Context, args map[string]any) (string, error) {
	name, err := requireString(args, "name")
	if err != nil {
		return "", err
	}
	ns := getStringArg(args, "namespace", defaultNamespace)
	client, err := t.helm()
	if err != nil {
		return "", err
	}
	rel, err := client.Status(ctx, name, ns)
	if err != nil {
		return "", err
	}
	return describeRelease(rel), nil
}

func describeRelease(rel *release.Release) string {
	status, firstDeployed, lastDeployed, notes := format.Unknown, format.Unknown, format.Unknown, ""
	if rel.Info != nil {
		status = format.OrUnknown(rel.Info.Status.String())
		first, last := rel.Info.FirstDeployed.Time, rel.Info.LastDeployed.Time
		firstDeployed = format.Timestamp(&first)
		lastDeployed = format.Timestamp(&last)
		notes = strings.TrimSpace(rel.Info.Notes)
	}
	chart := format.Unknown
	if rel.Chart != nil && rel.Chart.Metadata != nil {
		chart = rel.Chart.Metadata.Name + "-" + rel.Chart.Metadata.Version
	}
	if notes == "" {
		notes = "No notes"
	}

	return format.Detail([]format.Field{
		{Label: "Name", Value: format.OrUnknown(rel.Name)},
		{Label: "Namespace", Value: format.OrUnknown(rel.Namespace)},
		{Label: "Status", Value: status},
		{Label: "Revision", Value: strconv.Itoa(rel.Version)},
		{Label: "Chart", Value: chart},
		{Label: "First Deployed", Value: firstDeployed},
		{Label: "Last Deployed", Value: lastDeployed},
	}) + "\nNotes:\n" + notes
}

// --- uninstall_helm_release ---

type UninstallHelmReleaseTool struct{ BaseTool }

func (t *UninstallHelmReleaseTool) Name() string { return "uninstall_helm_release" }
func (t *UninstallHelmReleaseTool) Description() string {
	return "Uninstall a Helm release and return the helm CLI output"
}
func (t *UninstallHelmReleaseTool) Destructive() bool               { return true }
func (t *UninstallHelmReleaseTool) Idempotent() bool                { return true }
func (t *UninstallHelmReleaseTool) InputSchema() *jsonschema.Schema { return helmReleaseSchema() }

func (t *UninstallHelmReleaseTool) Run(ctx context.Context, args map[string]any) (string, error) {
	name, err := requireString(args, "name")
	if err != nil {
		return "", err
	}
	ns := getStringArg(args, "namespace", defaultNamespace)
	client, err := t.helm()
	if err != nil {
		return "", err
	}
	return client.Uninstall(ctx, name, ns)
}
