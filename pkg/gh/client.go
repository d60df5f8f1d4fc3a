package gh

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/google/go-github/v81/github"
	"golang.org/x/oauth2"

	"github.com/isitobservable/platform-ops-mcp/pkg/config"
	"github.com/isitobservable/platform-ops-mcp/pkg/types"
)

// MissingCredentialMessage is returned by every GitHub tool when no token is configured.
var MissingCredentialMessage = strings.Join(config.GitHubTokenEnvVars, " or ") + " environment variable is not set."

// ActionsAPI is the subset of the GitHub Actions REST API used by the tools.
// *github.ActionsService satisfies it.
type ActionsAPI interface {
	ListWorkflows(ctx context.Context, owner, repo string, opts *github.ListOptions) (*github.Workflows, *github.Response, error)
	CreateWorkflowDispatchEventByID(ctx context.Context, owner, repo string, workflowID int64, event github.CreateWorkflowDispatchEventRequest) (*github.Response, error)
	CreateWorkflowDispatchEventByFileName(ctx context.Context, owner, repo, workflowFileName string, event github.CreateWorkflowDispatchEventRequest) (*github.Response, error)
	ListWorkflowRunsByID(ctx context.Context, owner, repo string, workflowID int64, opts *github.ListWorkflowRunsOptions) (*github.WorkflowRuns, *github.Response, error)
	ListWorkflowRunsByFileName(ctx context.Context, owner, repo, workflowFileName string, opts *github.ListWorkflowRunsOptions) (*github.WorkflowRuns, *github.Response, error)
	ListRepositoryWorkflowRuns(ctx context.Context, owner, repo string, opts *github.ListWorkflowRunsOptions) (*github.WorkflowRuns, *github.Response, error)
	GetWorkflowRunByID(ctx context.Context, owner, repo string, runID int64) (*github.WorkflowRun, *github.Response, error)
}

// Options configures the GitHub client.
type Options struct {
	// Token is the bearer credential; empty means anonymous.
	Token string
	// BaseURL points at a GitHub Enterprise API endpoint; empty means github.com.
	BaseURL string
	// HTTPClient is the transport used for anonymous clients and as the base
	// transport for authenticated ones.
	HTTPClient *http.Client
}

// Factory lazily builds a single GitHub client for the process lifetime.
type Factory struct {
	opts Options

	once    sync.Once
	actions ActionsAPI
	err     error
}

// NewFactory returns a Factory for opts.
func NewFactory(opts Options) *Factory {
	return &Factory{opts: opts}
}

// NewFactoryForActions returns a Factory that serves actions, authenticated
// with token. Used to inject a fake Actions API.
func NewFactoryForActions(token string, actions ActionsAPI) *Factory {
	f := &Factory{opts: Options{Token: token}}
	f.once.Do(func() {
		f.actions = actions
	})
	return f
}

// HasCredential reports whether a token was configured.
func (f *Factory) HasCredential() bool {
	return f.opts.Token != ""
}

// Actions returns the Actions API. It fails with a configuration error, and
// without building a client, when no credential is available.
func (f *Factory) Actions() (ActionsAPI, error) {
	if !f.HasCredential() {
		return nil, types.NewConfigError(MissingCredentialMessage, "")
	}
	f.init()
	if f.err != nil {
		return nil, f.err
	}
	return f.actions, nil
}

func (f *Factory) init() {
	f.once.Do(func() {
		client, err := newClient(f.opts)
		if err != nil {
			f.err = types.NewConfigError("GitHub client could not be created", err.Error())
			return
		}
		f.actions = client.Actions
	})
}

func newClient(opts Options) (*github.Client, error) {
	httpClient := opts.HTTPClient
	if opts.Token != "" {
		ctx := context.Background()
		if httpClient != nil {
			ctx = context.WithValue(ctx, oauth2.HTTPClient, httpClient)
		}
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: opts.Token})
		httpClient = oauth2.NewClient(ctx, ts)
	}

	client := github.NewClient(httpClient)
	if opts.BaseURL == "" {
		return client, nil
	}

	client, err := client.WithEnterpriseURLs(opts.BaseURL, opts.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("could not create enterprise GitHub client: %w", err)
	}
	return client, nil
}
