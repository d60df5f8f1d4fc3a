package tools

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/jsonschema-go/jsonschema"
	. "github.com/onsi/gomega"

	"github.com/isitobservable/platform-ops-mcp/pkg/types"
)

type stubTool struct {
	name string
	run  func(ctx context.Context, args map[string]any) (string, error)
}

func (s *stubTool) Name() string                    { return s.name }
func (s *stubTool) Description() string             { return "stub" }
func (s *stubTool) InputSchema() *jsonschema.Schema { return objectSchema(nil, nil) }
func (s *stubTool) Run(ctx context.Context, args map[string]any) (string, error) {
	return s.run(ctx, args)
}

func TestInvokeUnknownTool(t *testing.T) {
	g := NewWithT(t)

	res := NewRegistry(0).Invoke(context.Background(), "does_not_exist", nil)
	g.Expect(res.Err.Code).To(Equal(types.ErrCodeInvalidInput))
	g.Expect(res.Err.Tool).To(Equal("does_not_exist"))
	g.Expect(res.Render()).To(Equal(`Error [INVALID_INPUT]: unknown tool "does_not_exist"`))
}

func TestInvokeRecoversPanics(t *testing.T) {
	g := NewWithT(t)
	reg := NewRegistry(0)
	reg.Register(&stubTool{name: "boom", run: func(context.Context, map[string]any) (string, error) {
		var m map[string]int
		m["x"] = 1
		return "", nil
	}})

	res := reg.Invoke(context.Background(), "boom", nil)
	g.Expect(res.Err.Code).To(Equal(types.ErrCodeInternalError))
	g.Expect(res.Render()).To(HavePrefix("Error [INTERNAL_ERROR]: Error executing boom: panic: assignment to entry in nil map"))
}

func TestInvokeClassifiesUnknownErrors(t *testing.T) {
	g := NewWithT(t)
	reg := NewRegistry(0)
	reg.Register(&stubTool{name: "flaky", run: func(context.Context, map[string]any) (string, error) {
		return "partial", errors.New("connection reset by peer")
	}})

	res := reg.Invoke(context.Background(), "flaky", map[string]any{})
	g.Expect(res.Text).To(BeEmpty())
	g.Expect(res.Err.Tool).To(Equal("flaky"))
	g.Expect(res.Render()).To(Equal("Error [INTERNAL_ERROR]: Error executing flaky: connection reset by peer"))
}

func TestInvokeAppliesTimeout(t *testing.T) {
	g := NewWithT(t)
	reg := NewRegistry(20 * time.Millisecond)
	reg.Register(&stubTool{name: "slow", run: func(ctx context.Context, _ map[string]any) (string, error) {
		_, ok := ctx.Deadline()
		if !ok {
			return "no deadline", nil
		}
		<-ctx.Done()
		return "", ctx.Err()
	}})

	res := reg.Invoke(context.Background(), "slow", nil)
	g.Expect(res.Render()).To(Equal("Error [INTERNAL_ERROR]: Error executing slow: context deadline exceeded"))
}

func TestInvokePassesArguments(t *testing.T) {
	g := NewWithT(t)
	reg := NewRegistry(0)
	reg.Register(&stubTool{name: "echo", run: func(_ context.Context, args map[string]any) (string, error) {
		return getStringArg(args, "msg", "none"), nil
	}})

	g.Expect(reg.Invoke(context.Background(), "echo", nil).Render()).To(Equal("none"))
	g.Expect(reg.Invoke(context.Background(), "echo", map[string]any{"msg": "hi"}).Render()).To(Equal("hi"))
}

func TestRegisterAllReadOnly(t *testing.T) {
	g := NewWithT(t)
	reg := NewRegistry(0)

	skipped := reg.RegisterAll(AllTools(BaseTool{}), true)
	g.Expect(skipped).To(ConsistOf("trigger_workflow", "scale_deployment", "restart_deployment", "uninstall_helm_release"))
	g.Expect(reg.List()).To(HaveLen(13))
	_, ok := reg.Get("scale_deployment")
	g.Expect(ok).To(BeFalse())

	full := NewRegistry(0)
	g.Expect(full.RegisterAll(AllTools(BaseTool{}), false)).To(BeEmpty())
	g.Expect(full.List()).To(HaveLen(17))
	g.Expect(full.List()[0].Name()).To(Equal("describe_pod"))
}

func TestToolSchemas(t *testing.T) {
	g := NewWithT(t)
	for _, tool := range AllTools(BaseTool{}) {
		schema := tool.InputSchema()
		g.Expect(schema.Type).To(Equal("object"), tool.Name())
		for _, req := range schema.Required {
			g.Expect(schema.Properties).To(HaveKey(req), tool.Name())
		}
	}
}

func TestArgumentHelpers(t *testing.T) {
	g := NewWithT(t)
	args := map[string]any{"n": float64(3), "s": "7", "bad": "x", "frac": 1.5, "obj": map[string]any{"a": "b"}, "null": nil}

	n, err := getIntArg(args, "n", 0)
	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(n).To(Equal(int64(3)))

	n, err = getIntArg(args, "s", 0)
	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(n).To(Equal(int64(7)))

	n, err = getIntArg(args, "missing", 10)
	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(n).To(Equal(int64(10)))

	_, err = getIntArg(args, "bad", 0)
	g.Expect(err).To(MatchError(ContainSubstring("bad must be an integer")))
	_, err = getIntArg(args, "frac", 0)
	g.Expect(err).To(HaveOccurred())

	m, err := getMapArg(args, "null")
	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(m).ToNot(BeNil())
	g.Expect(m).To(BeEmpty())

	m, err = getMapArg(args, "obj")
	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(m).To(HaveKeyWithValue("a", "b"))

	_, err = requireString(args, "n")
	g.Expect(err).To(MatchError(ContainSubstring("n must be a string")))
}
