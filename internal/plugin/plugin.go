package plugin

import (
	"fmt"
	"os"
	"path/filepath"
	"plugin"
	"sort"
	"strings"
	"sync"
)

// Plugin is the symbol a shared object must export under the name "Plugin".
type Plugin interface {
	Name() string
}

// PromptProvider is implemented by plugins contributing a prompt fragment.
type PromptProvider interface {
	PromptFragment() string
}

type Registry struct {
	mu      sync.Mutex
	plugins []Plugin
}

func NewRegistry() *Registry {
	return &Registry{}
}

func (r *Registry) Register(p Plugin) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.plugins = append(r.plugins, p)
}

func (r *Registry) Plugins() []Plugin {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Plugin(nil), r.plugins...)
}

// BuildPrompt concatenates the fragments of every registered prompt
// provider in registration order, or returns fallback when none contributes.
func (r *Registry) BuildPrompt(fallback string) string {
	var b strings.Builder
	found := false
	for _, p := range r.Plugins() {
		pp, ok := p.(PromptProvider)
		if !ok {
			continue
		}
		found = true
		b.WriteString(pp.PromptFragment())
	}
	if !found {
		return fallback
	}
	return b.String()
}

// LoadDir loads every *.so file in dir, in lexical order, and registers it.
func (r *Registry) LoadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("reading plugin directory: %w", err)
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".so" {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	for _, name := range names {
		p, err := Load(filepath.Join(dir, name))
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		r.Register(p)
	}
	return nil
}

func Load(path string) (Plugin, error) {
	p, err := plugin.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open plugin: %w", err)
	}

	symPlugin, err := p.Lookup("Plugin")
	if err != nil {
		return nil, fmt.Errorf("plugin does not export 'Plugin' symbol: %w", err)
	}

	plug, ok := symPlugin.(Plugin)
	if !ok {
		return nil, fmt.Errorf("plugin does not implement Plugin interface")
	}

	return plug, nil
}
