package tools

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/jsonschema-go/jsonschema"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"github.com/isitobservable/platform-ops-mcp/pkg/format"
)

const (
	maxEvents      = 20
	nodeRolePrefix = "node-role.kubernetes.io/"
)

// --- list_namespaces ---

type ListNamespacesTool struct{ BaseTool }

func (t *ListNamespacesTool) Name() string        { return "list_namespaces" }
func (t *ListNamespacesTool) Description() string { return "List all namespaces in the cluster" }
func (t *ListNamespacesTool) InputSchema() *jsonschema.Schema {
	return objectSchema(nil, nil)
}

func (t *ListNamespacesTool) Run(ctx context.Context, _ map[string]any) (string, error) {
	clients, err := t.kube()
	if err != nil {
		return "", err
	}
	list, err := clients.Clientset.CoreV1().Namespaces().List(ctx, metav1.ListOptions{})
	if err != nil {
		return "", fmt.Errorf("failed to list namespaces: %w", err)
	}

	now := t.now()
	rows := make([][]string, 0, len(list.Items))
	for i := range list.Items {
		ns := &list.Items[i]
		rows = append(rows, []string{ns.Name, string(ns.Status.Phase), format.Age(&ns.CreationTimestamp.Time, now)})
	}
	return format.Table([]format.Column{
		{Name: "NAME", Width: 20},
		{Name: "STATUS", Width: 10},
		{Name: "AGE", Width: 10},
	}, rows), nil
}

// --- list_nodes ---

type ListNodesTool struct{ BaseTool }

func (t *ListNodesTool) Name() string { return "list_nodes" }
func (t *ListNodesTool) Description() string {
	return "List cluster nodes with readiness, roles, age and kubelet version"
}
func (t *ListNodesTool) InputSchema() *jsonschema.Schema {
	return objectSchema(nil, nil)
}

func (t *ListNodesTool) Run(ctx context.Context, _ map[string]any) (string, error) {
	clients, err := t.kube()
	if err != nil {
		return "", err
	}
	list, err := clients.Clientset.CoreV1().Nodes().List(ctx, metav1.ListOptions{})
	if err != nil {
		return "", fmt.Errorf("failed to list nodes: %w", err)
	}

	now := t.now()
	rows := make([][]string, 0, len(list.Items))
	for i := range list.Items {
		node := &list.Items[i]
		rows = append(rows, []string{
			node.Name,
			nodeReadiness(node),
			nodeRoles(node),
			format.Age(&node.CreationTimestamp.Time, now),
			node.Status.NodeInfo.KubeletVersion,
		})
	}
	return format.Table([]format.Column{
		{Name: "NAME", Width: 30},
		{Name: "STATUS", Width: 15},
		{Name: "ROLES", Width: 20},
		{Name: "AGE", Width: 10},
		{Name: "VERSION", Width: 10},
	}, rows), nil
}

func nodeReadiness(node *corev1.Node) string {
	for _, c := range node.Status.Conditions {
		if c.Type != corev1.NodeReady {
			continue
		}
		if c.Status == corev1.ConditionTrue {
			return "Ready"
		}
		return "NotReady"
	}
	return format.Unknown
}

func nodeRoles(node *corev1.Node) string {
	var roles []string
	for label := range node.Labels {
		if role, ok := strings.CutPrefix(label, nodeRolePrefix); ok && role != "" {
			roles = append(roles, role)
		}
	}
	if len(roles) == 0 {
		return format.None
	}
	sort.Strings(roles)
	return strings.Join(roles, ",")
}

// --- list_events ---

type ListEventsTool struct{ BaseTool }

func (t *ListEventsTool) Name() string { return "list_events" }
func (t *ListEventsTool) Description() string {
	return "List the 20 most recent events in a namespace, newest first"
}
func (t *ListEventsTool) InputSchema() *jsonschema.Schema {
	return objectSchema(nil, map[string]*jsonschema.Schema{"namespace": namespaceProp()})
}

func (t *ListEventsTool) Run(ctx context.Context, args map[string]any) (string, error) {
	ns := getStringArg(args, "namespace", defaultNamespace)
	clients, err := t.kube()
	if err != nil {
		return "", err
	}
	list, err := clients.Clientset.CoreV1().Events(ns).List(ctx, metav1.ListOptions{})
	if err != nil {
		return "", fmt.Errorf("failed to list events in %s: %w", ns, err)
	}

	events := newestEvents(list.Items, maxEvents)
	now := t.now()
	rows := make([][]string, 0, len(events))
	for _, ev := range events {
		rows = append(rows, []string{
			ev.Type,
			ev.Reason,
			ev.InvolvedObject.Kind + "/" + ev.InvolvedObject.Name,
			format.Age(eventTime(ev), now),
			ev.Message,
		})
	}
	return format.Table([]format.Column{
		{Name: "TYPE", Width: 10},
		{Name: "REASON", Width: 20},
		{Name: "OBJECT", Width: 30},
		{Name: "AGE", Width: 10},
		{Name: "MESSAGE"},
	}, rows), nil
}

// newestEvents sorts the whole set by eventTime descending, then keeps the
// first n. Events without a timestamp sort last.
func newestEvents(items []corev1.Event, n int) []*corev1.Event {
	events := make([]*corev1.Event, len(items))
	for i := range items {
		events[i] = &items[i]
	}
	sort.SliceStable(events, func(i, j int) bool {
		ti, tj := eventTime(events[i]), eventTime(events[j])
		switch {
		case ti == nil:
			return false
		case tj == nil:
			return true
		default:
			return ti.After(*tj)
		}
	})
	if len(events) > n {
		events = events[:n]
	}
	return events
}

// eventTime returns lastTimestamp, falling back to eventTime, or nil when the
// event carries neither.
func eventTime(ev *corev1.Event) *time.Time {
	if !ev.LastTimestamp.IsZero() {
		t := ev.LastTimestamp.Time
		return &t
	}
	if !ev.EventTime.IsZero() {
		t := ev.EventTime.Time
		return &t
	}
	return nil
}
