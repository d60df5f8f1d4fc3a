package tools

import (
	"context"
	"strconv"
	"strings"

	"github.com/google/go-github/v81/github"
	"github.com/google/jsonschema-go/jsonschema"

	"github.com/isitobservable/platform-ops-mcp/pkg/format"
	"github.com/isitobservable/platform-ops-mcp/pkg/gh"
	"github.com/isitobservable/platform-ops-mcp/pkg/types"
)

const (
	defaultRunLimit = 10
	// maxPages bounds how many upstream pages a listing walks.
	maxPages   = 10
	maxPerPage = 100
)

// workflowRef identifies a workflow by numeric id or by file name.
type workflowRef struct {
	ID       int64
	FileName string
	raw      string
}

func (w workflowRef) String() string { return w.raw }

func parseWorkflowRef(args map[string]any, key string, required bool) (*workflowRef, error) {
	v, ok := args[key]
	if !ok || v == nil {
		if required {
			return nil, types.NewInputError("%s is required", key)
		}
		return nil, nil
	}
	switch val := v.(type) {
	case float64:
		id, err := getIntArg(args, key, 0)
		if err != nil {
			return nil, err
		}
		if id <= 0 {
			return nil, types.NewInputError("%s must be a positive workflow id or a file name", key)
		}
		return &workflowRef{ID: id, raw: strconv.FormatInt(id, 10)}, nil
	case string:
		s := strings.TrimSpace(val)
		if s == "" {
			if required {
				return nil, types.NewInputError("%s is required", key)
			}
			return nil, nil
		}
		if id, err := strconv.ParseInt(s, 10, 64); err == nil && id > 0 {
			return &workflowRef{ID: id, raw: s}, nil
		}
		return &workflowRef{FileName: s, raw: s}, nil
	}
	return nil, types.NewInputError("%s must be a workflow id or a file name", key)
}

func repoArgs(args map[string]any) (owner, repo string, err error) {
	if owner, err = requireString(args, "owner"); err != nil {
		return "", "", err
	}
	if repo, err = requireString(args, "repo"); err != nil {
		return "", "", err
	}
	return owner, repo, nil
}

func repoProps(extra map[string]*jsonschema.Schema) map[string]*jsonschema.Schema {
	props := map[string]*jsonschema.Schema{
		"owner": stringProp("Repository owner (user or organization)"),
		"repo":  stringProp("Repository name"),
	}
	for k, v := range extra {
		props[k] = v
	}
	return props
}

func workflowProp() *jsonschema.Schema {
	return &jsonschema.Schema{
		Types:       []string{"string", "integer"},
		Description: "Workflow numeric id or file name (e.g. ci.yml)",
	}
}

func ghTime(ts github.Timestamp) string {
	t := ts.Time
	return format.Timestamp(&t)
}

// --- list_workflows ---

type ListWorkflowsTool struct{ BaseTool }

func (t *ListWorkflowsTool) Name() string { return "list_workflows" }
func (t *ListWorkflowsTool) Description() string {
	return "List all GitHub Actions workflows in a repository"
}
func (t *ListWorkflowsTool) InputSchema() *jsonschema.Schema {
	return objectSchema([]string{"owner", "repo"}, repoProps(nil))
}

func (t *ListWorkflowsTool) Run(ctx context.Context, args map[string]any) (string, error) {
	owner, repo, err := repoArgs(args)
	if err != nil {
		return "", err
	}
	actions, err := t.actions()
	if err != nil {
		return "", err
	}

	var rows [][]string
	opts := &github.ListOptions{PerPage: maxPerPage}
	for page := 0; page < maxPages; page++ {
		wfs, resp, err := actions.ListWorkflows(ctx, owner, repo, opts)
		if err != nil {
			if types.IsNotFound(err) {
				return "", types.NewNotFoundError("Repository %s/%s not found.", owner, repo)
			}
			return "", err
		}
		for _, wf := range wfs.Workflows {
			rows = append(rows, []string{
				strconv.FormatInt(wf.GetID(), 10),
				wf.GetName(),
				wf.GetState(),
				wf.GetPath(),
			})
		}
		if resp == nil || resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return format.Table([]format.Column{
		{Name: "ID", Width: 10},
		{Name: "NAME", Width: 30},
		{Name: "STATE", Width: 10},
		{Name: "PATH"},
	}, rows), nil
}

// --- trigger_workflow ---

type TriggerWorkflowTool struct{ BaseTool }

func (t *TriggerWorkflowTool) Name() string { return "trigger_workflow" }
func (t *TriggerWorkflowTool) Description() string {
	return "Trigger a GitHub Actions workflow_dispatch event on a branch, tag or SHA"
}
func (t *TriggerWorkflowTool) Destructive() bool { return false }
func (t *TriggerWorkflowTool) Idempotent() bool  { return false }
func (t *TriggerWorkflowTool) InputSchema() *jsonschema.Schema {
	return objectSchema([]string{"owner", "repo", "workflow_id_or_filename"}, repoProps(map[string]*jsonschema.Schema{
		"workflow_id_or_filename": workflowProp(),
		"ref":                     stringProp("Git ref to run the workflow on (defaults to \"main\")"),
		"inputs": {
			Type:        "object",
			Description: "Workflow inputs as key/value pairs",
		},
	}))
}

func (t *TriggerWorkflowTool) Run(ctx context.Context, args map[string]any) (string, error) {
	owner, repo, err := repoArgs(args)
	if err != nil {
		return "", err
	}
	wf, err := parseWorkflowRef(args, "workflow_id_or_filename", true)
	if err != nil {
		return "", err
	}
	ref := getStringArg(args, "ref", "main")
	inputs, err := getMapArg(args, "inputs")
	if err != nil {
		return "", err
	}
	actions, err := t.actions()
	if err != nil {
		return "", err
	}

	event := github.CreateWorkflowDispatchEventRequest{Ref: ref, Inputs: inputs}
	if wf.ID != 0 {
		_, err = actions.CreateWorkflowDispatchEventByID(ctx, owner, repo, wf.ID, event)
	} else {
		_, err = actions.CreateWorkflowDispatchEventByFileName(ctx, owner, repo, wf.FileName, event)
	}
	if err != nil {
		if types.IsNotFound(err) {
			return "", types.NewNotFoundError("Repository %s/%s or workflow %s not found.", owner, repo, wf)
		}
		return "", err
	}
	return "Successfully triggered workflow '" + wf.String() + "' on ref '" + ref + "'.", nil
}

// --- list_workflow_runs ---

type ListWorkflowRunsTool struct{ BaseTool }

func (t *ListWorkflowRunsTool) Name() string { return "list_workflow_runs" }
func (t *ListWorkflowRunsTool) Description() string {
	return "List recent workflow runs, optionally for one workflow and filtered by exact status"
}
func (t *ListWorkflowRunsTool) InputSchema() *jsonschema.Schema {
	return objectSchema([]string{"owner", "repo"}, repoProps(map[string]*jsonschema.Schema{
		"workflow_id_or_filename": workflowProp(),
		"status":                  stringProp("Only return runs whose status equals this value (e.g. completed, in_progress, queued)"),
		"limit":                   integerProp("Maximum number of runs to return (defaults to 10)", 1),
	}))
}

func (t *ListWorkflowRunsTool) Run(ctx context.Context, args map[string]any) (string, error) {
	owner, repo, err := repoArgs(args)
	if err != nil {
		return "", err
	}
	wf, err := parseWorkflowRef(args, "workflow_id_or_filename", false)
	if err != nil {
		return "", err
	}
	status := getStringArg(args, "status", "")
	limit, err := getIntArg(args, "limit", defaultRunLimit)
	if err != nil {
		return "", err
	}
	if limit < 1 {
		return "", types.NewInputError("limit must be a positive integer")
	}
	actions, err := t.actions()
	if err != nil {
		return "", err
	}

	perPage := maxPerPage
	if status == "" && limit < maxPerPage {
		perPage = int(limit)
	}
	opts := &github.ListWorkflowRunsOptions{ListOptions: github.ListOptions{PerPage: perPage}}

	var rows [][]string
	for page := 0; page < maxPages && int64(len(rows)) < limit; page++ {
		runs, resp, err := listRuns(ctx, actions, owner, repo, wf, opts)
		if err != nil {
			if types.IsNotFound(err) {
				if wf != nil {
					return "", types.NewNotFoundError("Repository %s/%s or workflow %s not found.", owner, repo, wf)
				}
				return "", types.NewNotFoundError("Repository %s/%s not found.", owner, repo)
			}
			return "", err
		}
		for _, run := range runs.WorkflowRuns {
			if status != "" && run.GetStatus() != status {
				continue
			}
			rows = append(rows, []string{
				strconv.FormatInt(run.GetID(), 10),
				run.GetName(),
				run.GetStatus(),
				format.OrNone(run.GetConclusion()),
				run.GetHeadBranch(),
				ghTime(run.GetCreatedAt()),
			})
			if int64(len(rows)) >= limit {
				break
			}
		}
		if resp == nil || resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return format.Table([]format.Column{
		{Name: "ID", Width: 15},
		{Name: "WORKFLOW", Width: 25, Truncate: true},
		{Name: "STATUS", Width: 15},
		{Name: "CONCLUSION", Width: 15},
		{Name: "BRANCH", Width: 15, Truncate: true},
		{Name: "CREATED AT"},
	}, rows), nil
}

func listRuns(ctx context.Context, actions gh.ActionsAPI, owner, repo string, wf *workflowRef, opts *github.ListWorkflowRunsOptions) (*github.WorkflowRuns, *github.Response, error) {
	switch {
	case wf == nil:
		return actions.ListRepositoryWorkflowRuns(ctx, owner, repo, opts)
	case wf.ID != 0:
		return actions.ListWorkflowRunsByID(ctx, owner, repo, wf.ID, opts)
	default:
		return actions.ListWorkflowRunsByFileName(ctx, owner, repo, wf.FileName, opts)
	}
}

// --- get_workflow_run ---

type GetWorkflowRunTool struct{ BaseTool }

func (t *GetWorkflowRunTool) Name() string { return "get_workflow_run" }
func (t *GetWorkflowRunTool) Description() string {
	return "Get detailed information about a specific workflow run"
}
func (t *GetWorkflowRunTool) InputSchema() *jsonschema.Schema {
	return objectSchema([]string{"owner", "repo", "run_id"}, repoProps(map[string]*jsonschema.Schema{
		"run_id": integerProp("Workflow run id", 1),
	}))
}

func (t *GetWorkflowRunTool) Run(ctx context.Context, args map[string]any) (string, error) {
	owner, repo, err := repoArgs(args)
	if err != nil {
		return "", err
	}
	runID, err := requireInt(args, "run_id")
	if err != nil {
		return "", err
	}
	if runID < 1 {
		return "", types.NewInputError("run_id must be a positive integer")
	}
	actions, err := t.actions()
	if err != nil {
		return "", err
	}

	run, _, err := actions.GetWorkflowRunByID(ctx, owner, repo, runID)
	if err != nil {
		if types.IsNotFound(err) {
			return "", types.NewNotFoundError("Repository %s/%s or Run ID %d not found.", owner, repo, runID)
		}
		return "", err
	}

	return format.Detail([]format.Field{
		{Label: "Run ID", Value: strconv.FormatInt(run.GetID(), 10)},
		{Label: "Name", Value: format.OrUnknown(run.GetName())},
		{Label: "Status", Value: format.OrUnknown(run.GetStatus())},
		{Label: "Conclusion", Value: format.OrNone(run.GetConclusion())},
		{Label: "Branch", Value: format.OrUnknown(run.GetHeadBranch())},
		{Label: "Commit", Value: format.OrUnknown(run.GetHeadSHA())},
		{Label: "Event", Value: format.OrUnknown(run.GetEvent())},
		{Label: "Created At", Value: ghTime(run.GetCreatedAt())},
		{Label: "Updated At", Value: ghTime(run.GetUpdatedAt())},
		{Label: "URL", Value: format.OrUnknown(run.GetHTMLURL())},
	}), nil
}
