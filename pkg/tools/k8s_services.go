package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"github.com/isitobservable/platform-ops-mcp/pkg/format"
)

// --- list_services ---

type ListServicesTool struct{ BaseTool }

func (t *ListServicesTool) Name() string { return "list_services" }
func (t *ListServicesTool) Description() string {
	return "List services in a namespace with type, cluster IP, external IP and ports"
}
func (t *ListServicesTool) InputSchema() *jsonschema.Schema {
	return objectSchema(nil, map[string]*jsonschema.Schema{"namespace": namespaceProp()})
}

func (t *ListServicesTool) Run(ctx context.Context, args map[string]any) (string, error) {
	ns := getStringArg(args, "namespace", defaultNamespace)
	clients, err := t.kube()
	if err != nil {
		return "", err
	}
	list, err := clients.Clientset.CoreV1().Services(ns).List(ctx, metav1.ListOptions{})
	if err != nil {
		return "", fmt.Errorf("failed to list services in %s: %w", ns, err)
	}

	rows := make([][]string, 0, len(list.Items))
	for i := range list.Items {
		svc := &list.Items[i]
		rows = append(rows, []string{
			svc.Name,
			string(svc.Spec.Type),
			svc.Spec.ClusterIP,
			externalIP(svc),
			servicePorts(svc),
		})
	}
	return format.Table([]format.Column{
		{Name: "NAME", Width: 30},
		{Name: "TYPE", Width: 15},
		{Name: "CLUSTER-IP", Width: 15},
		{Name: "EXTERNAL-IP", Width: 15},
		{Name: "PORTS"},
	}, rows), nil
}

// externalIP prefers the first load-balancer ingress, then spec.externalIPs.
func externalIP(svc *corev1.Service) string {
	if ingress := svc.Status.LoadBalancer.Ingress; len(ingress) > 0 {
		if ingress[0].IP != "" {
			return ingress[0].IP
		}
		return format.OrNone(ingress[0].Hostname)
	}
	if len(svc.Spec.ExternalIPs) > 0 {
		return strings.Join(svc.Spec.ExternalIPs, ",")
	}
	return format.None
}

func servicePorts(svc *corev1.Service) string {
	ports := make([]string, 0, len(svc.Spec.Ports))
	for _, p := range svc.Spec.Ports {
		ports = append(ports, fmt.Sprintf("%d/%s", p.Port, p.Protocol))
	}
	return format.OrNone(strings.Join(ports, ","))
}
