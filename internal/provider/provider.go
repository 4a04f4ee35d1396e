// Package provider registers every LAStools tool the CLI and the remote
// service can run: the single-file tools, their folder-processing
// variants and the multi-stage pipelines.
package provider

import (
	"fmt"
	"sort"
	"sync"

	"github.com/banshee-data/lasrun/internal/lastools"
	"github.com/banshee-data/lasrun/internal/pipeline"
)

// groupOrder fixes the listing order of tool groups.
var groupOrder = map[string]int{
	lastools.GroupTools:      0,
	lastools.GroupProduction: 1,
	lastools.GroupPipelines:  2,
}

// Registry holds tools by name. It is safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]*lastools.Tool
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]*lastools.Tool)}
}

// Default returns a registry with every built-in tool.
func Default() *Registry {
	r := NewRegistry()
	for _, group := range [][]*lastools.Tool{
		lastools.BaseTools(),
		lastools.ProductionTools(),
		pipeline.Builtins(),
	} {
		for _, t := range group {
			if err := r.Register(t); err != nil {
				panic(err)
			}
		}
	}
	return r
}

// Register adds t. Names must be unique.
func (r *Registry) Register(t *lastools.Tool) error {
	if t == nil || t.Name == "" {
		return fmt.Errorf("register: tool has no name")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tools[t.Name]; ok {
		return fmt.Errorf("register: duplicate tool %q", t.Name)
	}
	r.tools[t.Name] = t
	return nil
}

// Lookup returns the tool called name or an error wrapping
// lastools.ErrUnknownTool.
func (r *Registry) Lookup(name string) (*lastools.Tool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", lastools.ErrUnknownTool, name)
	}
	return t, nil
}

// List returns every tool ordered by group, then name.
func (r *Registry) List() []*lastools.Tool {
	r.mu.RLock()
	out := make([]*lastools.Tool, 0, len(r.tools))
	for _, t := range r.tools {
		out = append(out, t)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		gi, gj := groupRank(out[i].Group), groupRank(out[j].Group)
		if gi != gj {
			return gi < gj
		}
		if out[i].Group != out[j].Group {
			return out[i].Group < out[j].Group
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// Groups returns the tools of List keyed by group, with the group names in
// listing order.
func (r *Registry) Groups() ([]string, map[string][]*lastools.Tool) {
	var names []string
	byGroup := make(map[string][]*lastools.Tool)
	for _, t := range r.List() {
		if _, ok := byGroup[t.Group]; !ok {
			names = append(names, t.Group)
		}
		byGroup[t.Group] = append(byGroup[t.Group], t)
	}
	return names, byGroup
}

func groupRank(g string) int {
	if rank, ok := groupOrder[g]; ok {
		return rank
	}
	return len(groupOrder)
}
