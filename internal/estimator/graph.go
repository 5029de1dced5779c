package estimator

import (
	"fmt"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// PageContext describes what the current page contains, e.g. {"has_variations": true}.
type PageContext map[string]interface{}

// ModuleSpec is one node of the static module graph. When is an expr-lang boolean expression
// over PageContext; an empty When means the module is only loaded on demand.
type ModuleSpec struct {
	Name     string
	URL      string
	Requires []string
	When     string
}

// Module names used by the estimator itself.
const (
	ModuleCore        = "core"
	ModuleModal       = "modal"
	ModuleVariations  = "variations"
	ModuleSuggestions = "suggestions"
)

// ModuleGraph is the build-time set of optional feature modules.
type ModuleGraph struct {
	specs    map[string]ModuleSpec
	order    []string
	programs map[string]*vm.Program
}

// NewModuleGraph validates specs, compiles their conditions and rejects unknown or cyclic
// dependencies.
func NewModuleGraph(specs ...ModuleSpec) (*ModuleGraph, error) {
	g := &ModuleGraph{
		specs:    make(map[string]ModuleSpec, len(specs)),
		programs: make(map[string]*vm.Program),
	}
	for _, s := range specs {
		if s.Name == "" || s.URL == "" {
			return nil, &ModuleGraphError{Module: s.Name, Reason: "name and url are required"}
		}
		if _, dup := g.specs[s.Name]; dup {
			return nil, &ModuleGraphError{Module: s.Name, Reason: "declared twice"}
		}
		g.specs[s.Name] = s
		g.order = append(g.order, s.Name)
		if strings.TrimSpace(s.When) == "" {
			continue
		}
		program, err := expr.Compile(s.When, expr.Env(map[string]interface{}{}), expr.AllowUndefinedVariables(), expr.AsBool())
		if err != nil {
			return nil, &ModuleGraphError{Module: s.Name, Reason: fmt.Sprintf("invalid condition: %v", err)}
		}
		g.programs[s.Name] = program
	}
	for _, name := range g.order {
		for _, dep := range g.specs[name].Requires {
			if _, ok := g.specs[dep]; !ok {
				return nil, &ModuleGraphError{Module: name, Reason: fmt.Sprintf("requires unknown module %q", dep)}
			}
		}
		if _, err := g.resolve(name, nil, map[string]bool{}, map[string]bool{}); err != nil {
			return nil, err
		}
	}
	return g, nil
}

// DefaultModuleGraph is the estimator's module layout served from base (e.g. "/modules").
func DefaultModuleGraph(base string) *ModuleGraph {
	base = strings.TrimRight(base, "/")
	g, err := NewModuleGraph(
		ModuleSpec{Name: ModuleCore, URL: base + "/estimator-core.js", When: "has_estimator_button == true || page_type == 'estimator'"},
		ModuleSpec{Name: ModuleModal, URL: base + "/estimator-modal.js", Requires: []string{ModuleCore}},
		ModuleSpec{Name: ModuleVariations, URL: base + "/estimator-variations.js", Requires: []string{ModuleCore}, When: "has_variations == true"},
		ModuleSpec{Name: ModuleSuggestions, URL: base + "/estimator-suggestions.js", Requires: []string{ModuleCore}, When: "has_suggestions == true"},
	)
	if err != nil {
		panic(err)
	}
	return g
}

// URL returns the url of a named module.
func (g *ModuleGraph) URL(name string) (string, bool) {
	s, ok := g.specs[name]
	return s.URL, ok
}

// LoadOrder returns the urls needed to load name, dependencies first.
func (g *ModuleGraph) LoadOrder(name string) ([]string, error) {
	if _, ok := g.specs[name]; !ok {
		return nil, &ModuleGraphError{Module: name, Reason: "unknown module"}
	}
	names, err := g.resolve(name, nil, map[string]bool{}, map[string]bool{})
	if err != nil {
		return nil, err
	}
	return g.urls(names), nil
}

// Plan returns the urls this page needs, dependencies first, each once.
func (g *ModuleGraph) Plan(page PageContext) ([]string, error) {
	env := map[string]interface{}(page)
	if env == nil {
		env = map[string]interface{}{}
	}
	var names []string
	seen := map[string]bool{}
	for _, name := range g.order {
		program, ok := g.programs[name]
		if !ok {
			continue
		}
		out, err := expr.Run(program, env)
		if err != nil {
			return nil, &ModuleGraphError{Module: name, Reason: fmt.Sprintf("evaluate condition: %v", err)}
		}
		if enabled, _ := out.(bool); !enabled {
			continue
		}
		names, err = g.resolve(name, names, seen, map[string]bool{})
		if err != nil {
			return nil, err
		}
	}
	return g.urls(names), nil
}

func (g *ModuleGraph) resolve(name string, acc []string, seen, visiting map[string]bool) ([]string, error) {
	if seen[name] {
		return acc, nil
	}
	if visiting[name] {
		return nil, &ModuleGraphError{Module: name, Reason: "dependency cycle"}
	}
	visiting[name] = true
	var err error
	for _, dep := range g.specs[name].Requires {
		if acc, err = g.resolve(dep, acc, seen, visiting); err != nil {
			return nil, err
		}
	}
	visiting[name] = false
	seen[name] = true
	return append(acc, name), nil
}

func (g *ModuleGraph) urls(names []string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = g.specs[n].URL
	}
	return out
}
