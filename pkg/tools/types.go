package tools

import (
	"context"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/isitobservable/platform-ops-mcp/pkg/config"
	"github.com/isitobservable/platform-ops-mcp/pkg/gh"
	"github.com/isitobservable/platform-ops-mcp/pkg/helm"
	"github.com/isitobservable/platform-ops-mcp/pkg/k8s"
	"github.com/isitobservable/platform-ops-mcp/pkg/types"
)

const defaultNamespace = "default"

type Tool interface {
	Name() string
	Description() string
	InputSchema() *jsonschema.Schema
	Run(ctx context.Context, args map[string]any) (string, error)
}

// Mutator is implemented by tools that change remote state. Tools that do not
// implement it are read-only.
type Mutator interface {
	Destructive() bool
	Idempotent() bool
}

// IsMutating reports whether t changes remote state.
func IsMutating(t Tool) bool {
	_, ok := t.(Mutator)
	return ok
}

type BaseTool struct {
	Cfg    *config.Config
	Kube   *k8s.Factory
	GitHub *gh.Factory
	Helm   *helm.Client
	// Now is the clock used for ages and restart stamps; nil means time.Now.
	Now func() time.Time
}

func (b *BaseTool) now() time.Time {
	if b.Now != nil {
		return b.Now()
	}
	return time.Now()
}

func (b *BaseTool) kube() (*k8s.Clients, error) {
	if b.Kube == nil {
		return nil, types.NewConfigError("Kubernetes configuration could not be loaded", "no cluster client configured")
	}
	return b.Kube.Clients()
}

func (b *BaseTool) actions() (gh.ActionsAPI, error) {
	if b.GitHub == nil {
		return nil, types.NewConfigError(gh.MissingCredentialMessage, "")
	}
	return b.GitHub.Actions()
}

func (b *BaseTool) helm() (*helm.Client, error) {
	if b.Helm == nil {
		return nil, types.NewConfigError("helm executable is not configured", "")
	}
	return b.Helm, nil
}

// --- argument helpers ---

func requireString(args map[string]any, key string) (string, error) {
	v, ok := args[key]
	if !ok || v == nil {
		return "", types.NewInputError("%s is required", key)
	}
	s, ok := v.(string)
	if !ok {
		return "", types.NewInputError("%s must be a string", key)
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return "", types.NewInputError("%s is required", key)
	}
	return s, nil
}

func getStringArg(args map[string]any, key string, defaultVal string) string {
	if v, ok := args[key]; ok {
		if s, ok := v.(string); ok && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}
	return defaultVal
}

// getIntArg accepts JSON numbers and decimal strings. Missing or null values
// yield defaultVal.
func getIntArg(args map[string]any, key string, defaultVal int64) (int64, error) {
	v, ok := args[key]
	if !ok || v == nil {
		return defaultVal, nil
	}
	switch n := v.(type) {
	case float64:
		if n != math.Trunc(n) || math.IsInf(n, 0) || n > math.MaxInt64 || n < math.MinInt64 {
			return 0, types.NewInputError("%s must be an integer", key)
		}
		return int64(n), nil
	case int:
		return int64(n), nil
	case int64:
		return n, nil
	case string:
		i, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64)
		if err != nil {
			return 0, types.NewInputError("%s must be an integer", key)
		}
		return i, nil
	}
	return 0, types.NewInputError("%s must be an integer", key)
}

func requireInt(args map[string]any, key string) (int64, error) {
	if v, ok := args[key]; !ok || v == nil {
		return 0, types.NewInputError("%s is required", key)
	}
	return getIntArg(args, key, 0)
}

// getMapArg returns the object under key, or an empty map when it is absent
// or null.
func getMapArg(args map[string]any, key string) (map[string]any, error) {
	v, ok := args[key]
	if !ok || v == nil {
		return map[string]any{}, nil
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, types.NewInputError("%s must be an object", key)
	}
	return m, nil
}

// --- schema helpers ---

func objectSchema(required []string, props map[string]*jsonschema.Schema) *jsonschema.Schema {
	if props == nil {
		props = map[string]*jsonschema.Schema{}
	}
	return &jsonschema.Schema{Type: "object", Properties: props, Required: required}
}

func stringProp(description string) *jsonschema.Schema {
	return &jsonschema.Schema{Type: "string", Description: description}
}

func integerProp(description string, minimum float64) *jsonschema.Schema {
	return &jsonschema.Schema{Type: "integer", Description: description, Minimum: &minimum}
}

func namespaceProp() *jsonschema.Schema {
	return stringProp("Kubernetes namespace (defaults to \"default\")")
}
