package k8s

import (
	"fmt"
	"log/slog"
	"sync"

	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"

	"github.com/isitobservable/platform-ops-mcp/pkg/types"
)

// Clients holds the Kubernetes API handles shared by all tools.
type Clients struct {
	Clientset kubernetes.Interface
}

// ConfigLoader produces the REST configuration used to build Clients.
type ConfigLoader func() (*rest.Config, error)

// Factory loads the ambient cluster configuration once and hands out the
// resulting Clients. A failed load is remembered; every later call returns
// the same configuration error without touching the network.
type Factory struct {
	load ConfigLoader

	once    sync.Once
	clients *Clients
	err     error
}

// NewFactory returns a Factory that builds its clients with load.
func NewFactory(load ConfigLoader) *Factory {
	return &Factory{load: load}
}

// NewFactoryForClientset returns a Factory that always serves clientset.
func NewFactoryForClientset(clientset kubernetes.Interface) *Factory {
	f := &Factory{}
	f.once.Do(func() {
		f.clients = &Clients{Clientset: clientset}
	})
	return f
}

// DefaultLoader resolves kubeconfig the way kubectl does (explicit path,
// KUBECONFIG, ~/.kube/config) and falls back to the in-cluster service
// account when no kubeconfig is present.
func DefaultLoader(kubeconfig, context string) ConfigLoader {
	return func() (*rest.Config, error) {
		rules := clientcmd.NewDefaultClientConfigLoadingRules()
		if kubeconfig != "" {
			rules.ExplicitPath = kubeconfig
		}
		overrides := &clientcmd.ConfigOverrides{}
		if context != "" {
			overrides.CurrentContext = context
		}
		cfg, err := clientcmd.NewNonInteractiveDeferredLoadingClientConfig(rules, overrides).ClientConfig()
		if err != nil {
			return nil, fmt.Errorf("loading kubeconfig failed: %w", err)
		}
		return cfg, nil
	}
}

// Clients returns the cached clients, loading the configuration on first use.
func (f *Factory) Clients() (*Clients, error) {
	f.once.Do(func() {
		cfg, err := f.load()
		if err != nil {
			f.err = err
			return
		}
		clientset, err := kubernetes.NewForConfig(cfg)
		if err != nil {
			f.err = fmt.Errorf("creating clientset failed: %w", err)
			return
		}
		f.clients = &Clients{Clientset: clientset}
	})
	if f.err != nil {
		return nil, types.NewConfigError("Kubernetes configuration could not be loaded", f.err.Error())
	}
	return f.clients, nil
}

// Preload triggers the configuration load and logs a failure instead of
// returning it, so the process keeps serving the tools that do not need a
// cluster.
func (f *Factory) Preload() bool {
	if _, err := f.Clients(); err != nil {
		slog.Warn("k8s: cluster configuration unavailable, Kubernetes tools will fail", "error", f.err)
		return false
	}
	return true
}

// Ready reports whether the clients were built successfully.
func (f *Factory) Ready() bool {
	_, err := f.Clients()
	return err == nil
}
