package tools

import "log/slog"

// GitHubTools returns the GitHub Actions tools bound to base.
func GitHubTools(base BaseTool) []Tool {
	return []Tool{
		&ListWorkflowsTool{base},
		&TriggerWorkflowTool{base},
		&ListWorkflowRunsTool{base},
		&GetWorkflowRunTool{base},
	}
}

// KubernetesTools returns the cluster inspection and mutation tools bound to base.
func KubernetesTools(base BaseTool) []Tool {
	return []Tool{
		&ListPodsTool{base},
		&DescribePodTool{base},
		&GetPodLogsTool{base},
		&ListNamespacesTool{base},
		&ListNodesTool{base},
		&ListEventsTool{base},
		&ListDeploymentsTool{base},
		&ScaleDeploymentTool{base},
		&RestartDeploymentTool{base},
		&ListServicesTool{base},
	}
}

// HelmTools returns the Helm release tools bound to base.
func HelmTools(base BaseTool) []Tool {
	return []Tool{
		&ListHelmReleasesTool{base},
		&GetHelmReleaseTool{base},
		&UninstallHelmReleaseTool{base},
	}
}

// AllTools returns every tool the server exposes.
func AllTools(base BaseTool) []Tool {
	all := GitHubTools(base)
	all = append(all, KubernetesTools(base)...)
	return append(all, HelmTools(base)...)
}

// RegisterAll registers tools, skipping the ones that change remote state
// when readOnly is set. It returns the names of the skipped tools.
func (r *Registry) RegisterAll(tools []Tool, readOnly bool) []string {
	var skipped []string
	for _, t := range tools {
		if readOnly && IsMutating(t) {
			skipped = append(skipped, t.Name())
			continue
		}
		r.Register(t)
	}
	if len(skipped) > 0 {
		slog.Info("tools: read-only mode, mutating tools not registered", "tools", skipped)
	}
	return skipped
}
