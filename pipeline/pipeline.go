// Package pipeline implements the collector plugin pipeline (component C9):
// a two-phase run over a finished extraction — per-declaration collectors
// first, per-graph collectors second — with the exact ordering guarantees
// and crash isolation described by the reference tool's Plugin base class:
// every per-decl computation finishes before any per-graph computation
// starts, but no ordering is guaranteed among collectors of the same kind,
// and one collector's panic must not take down the others.
//
// Grounded on original_source/tools/cgcollector2/include/Plugin.h (the
// computeForDecl/computeForGraph contract) and cage's plugin-descriptor
// idea (original_source/tools/cage), reshaped as a YAML-loadable selection
// list instead of a dynamically-loaded shared object — this module loads no
// shared objects, so a "plugin" is a statically linked Go type that self-registers
// into the process-wide Registry via init(), the same pattern package
// metadata already uses for its built-in types.
package pipeline

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/viant/metacg/frontend"
	"github.com/viant/metacg/graph"
	"github.com/viant/metacg/metadata"
)

// DeclCollector computes metadata for a single function declaration. A nil
// return means "nothing to attach" (the reference tool's computeForDecl
// returning a null MetaData pointer).
type DeclCollector interface {
	Name() string
	ComputeForDecl(d frontend.Decl) metadata.Value
}

// GraphCollector computes metadata once every per-decl collector has run
// over every declaration, with the whole graph (and the metadata those
// collectors attached) available to read.
type GraphCollector interface {
	Name() string
	ComputeForGraph(g *graph.Store)
}

// PluginDescriptor is one entry in a YAML collector-selection list (cgconfig
// "collectors:"), naming a registered collector and an optional ordering
// hint. The hint breaks ties deterministically for output reproducibility;
// it is not a semantic guarantee — Plugin.h is explicit that same-typed
// collectors have no ordering guarantee, and nothing here should make a
// collector depend on another collector's result within the same phase.
type PluginDescriptor struct {
	Name         string `yaml:"name"`
	OrderingHint int    `yaml:"orderingHint"`
}

// Registry is the process-wide table of collector factories, built up by
// each collector package's own init() (see package collectors).
type Registry struct {
	mu    sync.Mutex
	decl  map[string]func() DeclCollector
	graph map[string]func() GraphCollector
}

// NewRegistry creates an empty registry. Production code registers built-in
// collectors into Default(); tests may want an isolated instance instead.
func NewRegistry() *Registry {
	return &Registry{decl: map[string]func() DeclCollector{}, graph: map[string]func() GraphCollector{}}
}

// RegisterDecl adds a per-decl collector factory under name.
func (r *Registry) RegisterDecl(name string, factory func() DeclCollector) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.decl[name]; exists {
		slog.Warn("collector re-registered, overwriting previous factory", "name", name, "kind", "decl")
	}
	r.decl[name] = factory
}

// RegisterGraph adds a per-graph collector factory under name.
func (r *Registry) RegisterGraph(name string, factory func() GraphCollector) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.graph[name]; exists {
		slog.Warn("collector re-registered, overwriting previous factory", "name", name, "kind", "graph")
	}
	r.graph[name] = factory
}

// Names reports every collector name registered, decl and graph together,
// for config validation and `cgcollect --list-collectors`-style reporting.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	seen := map[string]bool{}
	var names []string
	for n := range r.decl {
		if !seen[n] {
			seen[n] = true
			names = append(names, n)
		}
	}
	for n := range r.graph {
		if !seen[n] {
			seen[n] = true
			names = append(names, n)
		}
	}
	sort.Strings(names)
	return names
}

// Build resolves descriptors into a runnable Pipeline. An empty descriptor
// list selects every registered collector, ordered by name for
// determinism; a non-empty list selects
// exactly those names, ordered by OrderingHint then name, and fails if any
// name is unregistered.
func (r *Registry) Build(descriptors []PluginDescriptor) (*Pipeline, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(descriptors) == 0 {
		for _, name := range r.sortedNamesLocked() {
			descriptors = append(descriptors, PluginDescriptor{Name: name})
		}
	} else {
		sort.SliceStable(descriptors, func(i, j int) bool {
			if descriptors[i].OrderingHint != descriptors[j].OrderingHint {
				return descriptors[i].OrderingHint < descriptors[j].OrderingHint
			}
			return descriptors[i].Name < descriptors[j].Name
		})
	}

	p := &Pipeline{}
	for _, d := range descriptors {
		declFactory, hasDecl := r.decl[d.Name]
		graphFactory, hasGraph := r.graph[d.Name]
		if !hasDecl && !hasGraph {
			return nil, fmt.Errorf("pipeline: unknown collector %q", d.Name)
		}
		if hasDecl {
			p.decl = append(p.decl, declFactory())
		}
		if hasGraph {
			p.graph = append(p.graph, graphFactory())
		}
	}
	return p, nil
}

func (r *Registry) sortedNamesLocked() []string {
	seen := map[string]bool{}
	var names []string
	for n := range r.decl {
		if !seen[n] {
			seen[n] = true
			names = append(names, n)
		}
	}
	for n := range r.graph {
		if !seen[n] {
			seen[n] = true
			names = append(names, n)
		}
	}
	sort.Strings(names)
	return names
}

var defaultRegistry = NewRegistry()

// Default returns the process-wide registry built-in collectors register
// into via init().
func Default() *Registry { return defaultRegistry }

// Pipeline is a resolved, ready-to-run set of collector instances.
type Pipeline struct {
	decl  []DeclCollector
	graph []GraphCollector
}

// RunForDecl attaches every per-decl collector's output to the graph node
// named d.Name(), if one exists (a decl the extractor never turned into a
// node — e.g. a declaration-only prototype — is silently skipped). A
// collector that panics is logged and skipped; it does not stop the
// collectors that follow it, matching Plugin.h's isolation expectation.
func (p *Pipeline) RunForDecl(g *graph.Store, d frontend.Decl) {
	if !d.HasBody() {
		return
	}
	node := g.NodeNamed(d.Name())
	if node == nil {
		return
	}
	for _, c := range p.decl {
		runDeclCollector(c, d, node)
	}
}

func runDeclCollector(c DeclCollector, d frontend.Decl, node *graph.Node) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("collector panicked computing decl metadata, skipping", "collector", c.Name(), "decl", d.Name(), "panic", r)
		}
	}()
	v := c.ComputeForDecl(d)
	if v == nil {
		return
	}
	node.Meta[v.Key()] = v
}

// RunForGraph runs every per-graph collector over g. Called only after
// RunForDecl has been invoked for every declaration in the program (C9
// guarantee (a)).
func (p *Pipeline) RunForGraph(g *graph.Store) {
	for _, c := range p.graph {
		runGraphCollector(c, g)
	}
}

func runGraphCollector(c GraphCollector, g *graph.Store) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("collector panicked computing graph metadata, skipping", "collector", c.Name(), "panic", r)
		}
	}()
	c.ComputeForGraph(g)
}

// Run executes the full two-phase pipeline over decls and g: every
// per-decl collector over every declaration, then every per-graph
// collector once.
func (p *Pipeline) Run(g *graph.Store, decls []frontend.Decl) {
	for _, d := range decls {
		p.RunForDecl(g, d)
	}
	p.RunForGraph(g)
}
