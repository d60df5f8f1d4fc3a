package tools

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/fields"

	"github.com/isitobservable/platform-ops-mcp/pkg/format"
	"github.com/isitobservable/platform-ops-mcp/pkg/k8s"
	"github.com/isitobservable/platform-ops-mcp/pkg/types"
)

const (
	maxLogBytes      = 102400 // 100KB
	defaultTailLines = 100
	truncatedMarker  = "\n... [log output truncated at 100KB]"
)

// --- list_pods ---

type ListPodsTool struct{ BaseTool }

func (t *ListPodsTool) Name() string { return "list_pods" }
func (t *ListPodsTool) Description() string {
	return "List pods in a namespace with readiness, phase, restart count and age"
}
func (t *ListPodsTool) InputSchema() *jsonschema.Schema {
	return objectSchema(nil, map[string]*jsonschema.Schema{"namespace": namespaceProp()})
}

func (t *ListPodsTool) Run(ctx context.Context, args map[string]any) (string, error) {
	ns := getStringArg(args, "namespace", defaultNamespace)
	clients, err := t.kube()
	if err != nil {
		return "", err
	}

	pods, err := clients.Clientset.CoreV1().Pods(ns).List(ctx, metav1.ListOptions{})
	if err != nil {
		return "", fmt.Errorf("failed to list pods in %s: %w", ns, err)
	}

	now := t.now()
	rows := make([][]string, 0, len(pods.Items))
	for i := range pods.Items {
		pod := &pods.Items[i]
		ready, restarts := 0, int32(0)
		for _, cs := range pod.Status.ContainerStatuses {
			if cs.Ready {
				ready++
			}
			restarts += cs.RestartCount
		}
		rows = append(rows, []string{
			pod.Name,
			fmt.Sprintf("%d/%d", ready, len(pod.Spec.Containers)),
			string(pod.Status.Phase),
			strconv.Itoa(int(restarts)),
			format.Age(&pod.CreationTimestamp.Time, now),
		})
	}

	return format.Table([]format.Column{
		{Name: "NAME", Width: 30},
		{Name: "READY", Width: 10},
		{Name: "STATUS", Width: 15},
		{Name: "RESTARTS", Width: 10},
		{Name: "AGE", Width: 10},
	}, rows), nil
}

// --- describe_pod ---

type DescribePodTool struct{ BaseTool }

func (t *DescribePodTool) Name() string { return "describe_pod" }
func (t *DescribePodTool) Description() string {
	return "Describe a pod: node, IP, containers and the events recorded for it"
}
func (t *DescribePodTool) InputSchema() *jsonschema.Schema {
	return objectSchema([]string{"pod_name"}, map[string]*jsonschema.Schema{
		"pod_name":  stringProp("Pod name"),
		"namespace": namespaceProp(),
	})
}

func (t *DescribePodTool) Run(ctx context.Context, args map[string]any) (string, error) {
	name, err := requireString(args, "pod_name")
	if err != nil {
		return "", err
	}
	ns := getStringArg(args, "namespace", defaultNamespace)
	clients, err := t.kube()
	if err != nil {
		return "", err
	}

	pod, err := clients.Clientset.CoreV1().Pods(ns).Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		return "", fmt.Errorf("failed to get pod %s/%s: %w", ns, name, err)
	}

	selector := fields.Set{
		"involvedObject.name":      name,
		"involvedObject.namespace": ns,
		"involvedObject.uid":       string(pod.UID),
	}.AsSelector().String()
	events, err := clients.Clientset.CoreV1().Events(ns).List(ctx, metav1.ListOptions{FieldSelector: selector})
	if err != nil {
		return "", fmt.Errorf("failed to list events for pod %s/%s: %w", ns, name, err)
	}

	var sb strings.Builder
	sb.WriteString(format.Detail([]format.Field{
		{Label: "Name", Value: pod.Name},
		{Label: "Namespace", Value: pod.Namespace},
		{Label: "Status", Value: format.OrUnknown(string(pod.Status.Phase))},
		{Label: "Node", Value: format.OrNone(pod.Spec.NodeName)},
		{Label: "IP", Value: format.OrNone(pod.Status.PodIP)},
	}))

	sb.WriteString("\n\n--- Containers ---")
	for _, c := range pod.Spec.Containers {
		fmt.Fprintf(&sb, "\n- %s (%s)", c.Name, c.Image)
	}

	sb.WriteString("\n\n--- Events ---\n")
	if len(events.Items) == 0 {
		sb.WriteString(format.None)
		return sb.String(), nil
	}
	now := t.now()
	rows := make([][]string, 0, len(events.Items))
	for i := range events.Items {
		ev := &events.Items[i]
		rows = append(rows, []string{ev.Type, ev.Reason, format.Age(eventTime(ev), now), ev.Message})
	}
	sb.WriteString(format.Table([]format.Column{
		{Name: "TYPE", Width: 10},
		{Name: "REASON", Width: 20},
		{Name: "AGE", Width: 10},
		{Name: "MESSAGE"},
	}, rows))
	return sb.String(), nil
}

// --- get_pod_logs ---

type GetPodLogsTool struct{ BaseTool }

func (t *GetPodLogsTool) Name() string { return "get_pod_logs" }
func (t *GetPodLogsTool) Description() string {
	return "Fetch the last lines of a pod's logs, optionally for a specific container"
}
func (t *GetPodLogsTool) InputSchema() *jsonschema.Schema {
	return objectSchema([]string{"pod_name"}, map[string]*jsonschema.Schema{
		"pod_name":   stringProp("Pod name"),
		"namespace":  namespaceProp(),
		"container":  stringProp("Container name (required for multi-container pods)"),
		"tail_lines": integerProp("Number of lines from the end of the log (defaults to 100)", 1),
	})
}

func (t *GetPodLogsTool) Run(ctx context.Context, args map[string]any) (string, error) {
	name, err := requireString(args, "pod_name")
	if err != nil {
		return "", err
	}
	ns := getStringArg(args, "namespace", defaultNamespace)
	container := getStringArg(args, "container", "")
	tail, err := getIntArg(args, "tail_lines", defaultTailLines)
	if err != nil {
		return "", err
	}
	if tail < 1 {
		return "", types.NewInputError("tail_lines must be a positive integer")
	}
	clients, err := t.kube()
	if err != nil {
		return "", err
	}

	logs, err := getPodLogs(ctx, clients, ns, name, container, tail)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(logs) == "" {
		return "no logs found for pod " + name, nil
	}
	return logs, nil
}

// getPodLogs streams the container log, capped at maxLogBytes.
func getPodLogs(ctx context.Context, clients *k8s.Clients, namespace, podName, container string, tailLines int64) (string, error) {
	opts := &corev1.PodLogOptions{
		Container: container,
		TailLines: &tailLines,
	}

	req := clients.Clientset.CoreV1().Pods(namespace).GetLogs(podName, opts)
	stream, err := req.Stream(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to get logs for %s/%s: %w", namespace, podName, err)
	}
	defer stream.Close()

	return readCappedLogs(stream, maxLogBytes)
}

// readCappedLogs reads at most limit bytes. Cut output ends on the last whole
// line followed by truncatedMarker.
func readCappedLogs(r io.Reader, limit int) (string, error) {
	data, err := io.ReadAll(io.LimitReader(r, int64(limit)+1))
	if err != nil {
		return "", fmt.Errorf("failed to read log stream: %w", err)
	}

	if len(data) > limit {
		data = data[:limit]
		if i := bytes.LastIndexByte(data, '\n'); i > 0 {
			data = data[:i]
		}
		return string(data) + truncatedMarker, nil
	}
	return string(data), nil
}
