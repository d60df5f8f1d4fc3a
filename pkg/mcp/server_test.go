package mcp

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	. "github.com/onsi/gomega"

	"github.com/isitobservable/platform-ops-mcp/pkg/tools"
)

type echoTool struct{ name string }

func (e *echoTool) Name() string        { return e.name }
func (e *echoTool) Description() string { return "echoes its message" }
func (e *echoTool) InputSchema() *jsonschema.Schema {
	return &jsonschema.Schema{Type: "object", Properties: map[string]*jsonschema.Schema{
		"message": {Type: "string"},
	}}
}
func (e *echoTool) Run(_ context.Context, args map[string]any) (string, error) {
	msg, _ := args["message"].(string)
	return "echo: " + msg, nil
}

func connect(t *testing.T, s *Server) *mcp.ClientSession {
	t.Helper()
	ctx := context.Background()
	s.SyncTools()

	clientTransport, serverTransport := mcp.NewInMemoryTransports()
	ss, err := s.mcpServer.Connect(ctx, serverTransport, nil)
	if err != nil {
		t.Fatalf("server connect: %v", err)
	}
	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "0.0.1"}, nil)
	cs, err := client.Connect(ctx, clientTransport, nil)
	if err != nil {
		t.Fatalf("client connect: %v", err)
	}
	t.Cleanup(func() {
		_ = cs.Close()
		_ = ss.Wait()
	})
	return cs
}

func callText(g *WithT, res *mcp.CallToolResult) string {
	g.Expect(res.Content).To(HaveLen(1))
	text, ok := res.Content[0].(*mcp.TextContent)
	g.Expect(ok).To(BeTrue())
	return text.Text
}

func TestListToolsAnnotations(t *testing.T) {
	g := NewWithT(t)
	reg := tools.NewRegistry(0)
	reg.RegisterAll(tools.AllTools(tools.BaseTool{}), false)
	cs := connect(t, NewServer(reg, "test"))

	res, err := cs.ListTools(context.Background(), &mcp.ListToolsParams{})
	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(res.Tools).To(HaveLen(17))

	byName := map[string]*mcp.Tool{}
	for _, tool := range res.Tools {
		byName[tool.Name] = tool
		g.Expect(tool.Annotations).ToNot(BeNil(), tool.Name)
	}

	g.Expect(byName["list_pods"].Annotations.ReadOnlyHint).To(BeTrue())
	g.Expect(byName["list_pods"].Annotations.DestructiveHint).To(BeNil())

	scale := byName["scale_deployment"].Annotations
	g.Expect(scale.ReadOnlyHint).To(BeFalse())
	g.Expect(*scale.DestructiveHint).To(BeTrue())
	g.Expect(scale.IdempotentHint).To(BeTrue())

	trigger := byName["trigger_workflow"].Annotations
	g.Expect(*trigger.DestructiveHint).To(BeFalse())
	g.Expect(trigger.IdempotentHint).To(BeFalse())

	schema, err := json.Marshal(byName["get_workflow_run"].InputSchema)
	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(string(schema)).To(ContainSubstring(`"required":["owner","repo","run_id"]`))
}

func TestListToolsReadOnly(t *testing.T) {
	g := NewWithT(t)
	reg := tools.NewRegistry(0)
	reg.RegisterAll(tools.AllTools(tools.BaseTool{}), true)
	cs := connect(t, NewServer(reg, "test"))

	res, err := cs.ListTools(context.Background(), &mcp.ListToolsParams{})
	g.Expect(err).ToNot(HaveOccurred())
	for _, tool := range res.Tools {
		g.Expect(tool.Annotations.ReadOnlyHint).To(BeTrue(), tool.Name)
	}
}

func TestCallToolSuccess(t *testing.T) {
	g := NewWithT(t)
	reg := tools.NewRegistry(0)
	reg.Register(&echoTool{name: "echo"})
	cs := connect(t, NewServer(reg, "test"))

	res, err := cs.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      "echo",
		Arguments: map[string]any{"message": "hello"},
	})
	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(res.IsError).To(BeFalse())
	g.Expect(callText(g, res)).To(Equal("echo: hello"))
}

func TestCallToolErrors(t *testing.T) {
	reg := tools.NewRegistry(0)
	reg.RegisterAll(tools.AllTools(tools.BaseTool{}), false)
	cs := connect(t, NewServer(reg, "test"))

	cases := []struct {
		name string
		tool string
		args map[string]any
		want string
	}{
		{
			name: "missing required argument",
			tool: "list_workflows",
			args: map[string]any{},
			want: "Error [INVALID_INPUT]: owner is required",
		},
		{
			name: "no GitHub credential",
			tool: "list_workflows",
			args: map[string]any{"owner": "octo", "repo": "hello"},
			want: "Error [CONFIGURATION_ERROR]: GITHUB_PERSONAL_ACCESS_TOKEN or GITHUB_TOKEN environment variable is not set.",
		},
		{
			name: "no cluster",
			tool: "list_pods",
			args: nil,
			want: "Error [CONFIGURATION_ERROR]: Kubernetes configuration could not be loaded: no cluster client configured",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			g := NewWithT(t)
			res, err := cs.CallTool(context.Background(), &mcp.CallToolParams{Name: tc.tool, Arguments: tc.args})
			g.Expect(err).ToNot(HaveOccurred())
			g.Expect(res.IsError).To(BeTrue())
			g.Expect(callText(g, res)).To(Equal(tc.want))
		})
	}
}

func TestCallToolNonObjectArguments(t *testing.T) {
	g := NewWithT(t)
	reg := tools.NewRegistry(0)
	reg.Register(&echoTool{name: "echo"})
	cs := connect(t, NewServer(reg, "test"))

	res, err := cs.CallTool(context.Background(), &mcp.CallToolParams{Name: "echo", Arguments: []string{"a"}})
	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(res.IsError).To(BeTrue())
	g.Expect(callText(g, res)).To(HavePrefix("Error [INVALID_INPUT]: arguments must be a JSON object"))
}

func TestSyncToolsAddsOnlyNewTools(t *testing.T) {
	g := NewWithT(t)
	reg := tools.NewRegistry(0)
	reg.Register(&echoTool{name: "echo"})
	s := NewServer(reg, "test")
	cs := connect(t, s)

	s.SyncTools()
	reg.Register(&echoTool{name: "echo_too"})
	s.SyncTools()
	s.SyncTools()

	g.Expect(s.registeredTools).To(HaveLen(2))
	res, err := cs.ListTools(context.Background(), &mcp.ListToolsParams{})
	g.Expect(err).ToNot(HaveOccurred())
	names := []string{}
	for _, tool := range res.Tools {
		names = append(names, tool.Name)
	}
	g.Expect(names).To(ConsistOf("echo", "echo_too"))
}

func TestSanitizeArgs(t *testing.T) {
	g := NewWithT(t)
	out := sanitizeArgs(map[string]any{"owner": "octo", "api_token": "s3cr3t", "inputs": map[string]any{"env": "prod"}})
	g.Expect(out).To(Equal(`{"api_token":"[REDACTED]","inputs":{"env":"prod"},"owner":"octo"}`))
	g.Expect(sanitizeArgs(nil)).To(Equal("{}"))
}
