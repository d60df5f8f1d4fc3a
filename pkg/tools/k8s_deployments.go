package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/google/jsonschema-go/jsonschema"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	k8stypes "k8s.io/apimachinery/pkg/types"

	"github.com/isitobservable/platform-ops-mcp/pkg/format"
	"github.com/isitobservable/platform-ops-mcp/pkg/types"
)

// RestartedAtAnnotation is stamped on the pod template to force a rollout,
// the same key kubectl rollout restart uses.
const RestartedAtAnnotation = "kubectl.kubernetes.io/restartedAt"

// --- list_deployments ---

type ListDeploymentsTool struct{ BaseTool }

func (t *ListDeploymentsTool) Name() string { return "list_deployments" }
func (t *ListDeploymentsTool) Description() string {
	return "List deployments in a namespace with ready, up-to-date and available replicas"
}
func (t *ListDeploymentsTool) InputSchema() *jsonschema.Schema {
	return objectSchema(nil, map[string]*jsonschema.Schema{"namespace": namespaceProp()})
}

func (t *ListDeploymentsTool) Run(ctx context.Context, args map[string]any) (string, error) {
	ns := getStringArg(args, "namespace", defaultNamespace)
	clients, err := t.kube()
	if err != nil {
		return "", err
	}
	list, err := clients.Clientset.AppsV1().Deployments(ns).List(ctx, metav1.ListOptions{})
	if err != nil {
		return "", fmt.Errorf("failed to list deployments in %s: %w", ns, err)
	}

	now := t.now()
	rows := make([][]string, 0, len(list.Items))
	for i := range list.Items {
		d := &list.Items[i]
		rows = append(rows, []string{
			d.Name,
			fmt.Sprintf("%d/%d", d.Status.ReadyReplicas, d.Status.Replicas),
			strconv.Itoa(int(d.Status.UpdatedReplicas)),
			strconv.Itoa(int(d.Status.AvailableReplicas)),
			format.Age(&d.CreationTimestamp.Time, now),
		})
	}
	return format.Table([]format.Column{
		{Name: "NAME", Width: 30},
		{Name: "READY", Width: 10},
		{Name: "UP-TO-DATE", Width: 12},
		{Name: "AVAILABLE", Width: 10},
		{Name: "AGE", Width: 10},
	}, rows), nil
}

// --- scale_deployment ---

type ScaleDeploymentTool struct{ BaseTool }

func (t *ScaleDeploymentTool) Name() string { return "scale_deployment" }
func (t *ScaleDeploymentTool) Description() string {
	return "Set the desired replica count of a deployment"
}
func (t *ScaleDeploymentTool) Destructive() bool { return true }
func (t *ScaleDeploymentTool) Idempotent() bool  { return true }
func (t *ScaleDeploymentTool) InputSchema() *jsonschema.Schema {
	return objectSchema([]string{"name", "replicas"}, map[string]*jsonschema.Schema{
		"name":      stringProp("Deployment name"),
		"replicas":  integerProp("Desired number of replicas", 0),
		"namespace": namespaceProp(),
	})
}

func (t *ScaleDeploymentTool) Run(ctx context.Context, args map[string]any) (string, error) {
	name, err := requireString(args, "name")
	if err != nil {
		return "", err
	}
	replicas, err := requireInt(args, "replicas")
	if err != nil {
		return "", err
	}
	if replicas < 0 || replicas > math.MaxInt32 {
		return "", types.NewInputError("replicas must be a non-negative integer")
	}
	ns := getStringArg(args, "namespace", defaultNamespace)
	clients, err := t.kube()
	if err != nil {
		return "", err
	}

	patch, err := json.Marshal(map[string]any{
		"spec": map[string]any{"replicas": replicas},
	})
	if err != nil {
		return "", err
	}
	// scale subresource: the patch cannot reach any other Deployment field
	_, err = clients.Clientset.AppsV1().Deployments(ns).Patch(ctx, name, k8stypes.MergePatchType, patch, metav1.PatchOptions{}, "scale")
	if err != nil {
		return "", fmt.Errorf("failed to scale deployment %s/%s: %w", ns, name, err)
	}
	return fmt.Sprintf("Deployment '%s' in namespace '%s' scaled to %d replicas.", name, ns, replicas), nil
}

// --- restart_deployment ---

type RestartDeploymentTool struct{ BaseTool }

func (t *RestartDeploymentTool) Name() string { return "restart_deployment" }
func (t *RestartDeploymentTool) Description() string {
	return "Trigger a rolling restart of a deployment, like kubectl rollout restart"
}
func (t *RestartDeploymentTool) Destructive() bool { return true }
func (t *RestartDeploymentTool) Idempotent() bool  { return false }
func (t *RestartDeploymentTool) InputSchema() *jsonschema.Schema {
	return objectSchema([]string{"name"}, map[string]*jsonschema.Schema{
		"name":      stringProp("Deployment name"),
		"namespace": namespaceProp(),
	})
}

func (t *RestartDeploymentTool) Run(ctx context.Context, args map[string]any) (string, error) {
	name, err := requireString(args, "name")
	if err != nil {
		return "", err
	}
	ns := getStringArg(args, "namespace", defaultNamespace)
	clients, err := t.kube()
	if err != nil {
		return "", err
	}

	patch, err := json.Marshal(map[string]any{
		"spec": map[string]any{
			"template": map[string]any{
				"metadata": map[string]any{
					"annotations": map[string]string{
						RestartedAtAnnotation: t.now().UTC().Format(time.RFC3339),
					},
				},
			},
		},
	})
	if err != nil {
		return "", err
	}
	_, err = clients.Clientset.AppsV1().Deployments(ns).Patch(ctx, name, k8stypes.StrategicMergePatchType, patch, metav1.PatchOptions{})
	if err != nil {
		return "", fmt.Errorf("failed to restart deployment %s/%s: %w", ns, name, err)
	}
	return fmt.Sprintf("Deployment '%s' in namespace '%s' restarted.", name, ns), nil
}
