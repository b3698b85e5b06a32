package pipeline_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/metacg/frontend"
	"github.com/viant/metacg/graph"
	"github.com/viant/metacg/metadata"
	"github.com/viant/metacg/pipeline"
)

type fakeDecl struct {
	name  string
	stats frontend.DeclStats
}

func (d *fakeDecl) Kind() frontend.DeclKind      { return frontend.DeclFunction }
func (d *fakeDecl) MangledNames() []string       { return []string{d.name} }
func (d *fakeDecl) Name() string                 { return d.name }
func (d *fakeDecl) Origin() string               { return "test.cpp" }
func (d *fakeDecl) Location() frontend.Location  { return frontend.Location{} }
func (d *fakeDecl) Params() []frontend.Decl      { return nil }
func (d *fakeDecl) Body() []frontend.Expr        { return nil }
func (d *fakeDecl) Overrides() []frontend.Decl   { return nil }
func (d *fakeDecl) ParentRecord() frontend.Decl  { return nil }
func (d *fakeDecl) IsStatic() bool               { return false }
func (d *fakeDecl) IsVariadic() bool             { return false }
func (d *fakeDecl) HasBody() bool                { return true }
func (d *fakeDecl) Stats() frontend.DeclStats    { return d.stats }

type orderRecorder struct {
	name  string
	order *[]string
}

func (c *orderRecorder) Name() string { return c.name }
func (c *orderRecorder) ComputeForDecl(d frontend.Decl) metadata.Value {
	*c.order = append(*c.order, "decl:"+c.name)
	return &metadata.NumStatements{Count: d.Stats().NumStatements}
}

type graphRecorder struct {
	name  string
	order *[]string
}

func (c *graphRecorder) Name() string { return c.name }
func (c *graphRecorder) ComputeForGraph(g *graph.Store) {
	*c.order = append(*c.order, "graph:"+c.name)
}

type panickingCollector struct{}

func (panickingCollector) Name() string { return "Panics" }
func (panickingCollector) ComputeForDecl(frontend.Decl) metadata.Value {
	panic("collector bug")
}

func newGraphWith(t *testing.T, names ...string) *graph.Store {
	t.Helper()
	g := graph.NewStore(graph.IDByName)
	for _, name := range names {
		n, err := g.GetOrInsert(name, "test.cpp")
		require.NoError(t, err)
		n.HasBody = true
	}
	return g
}

// C9 guarantee (a): every per-decl collector finishes over every decl
// before any per-graph collector starts.
func TestDeclPhaseCompletesBeforeGraphPhase(t *testing.T) {
	var order []string
	reg := pipeline.NewRegistry()
	reg.RegisterDecl("DeclA", func() pipeline.DeclCollector { return &orderRecorder{name: "DeclA", order: &order} })
	reg.RegisterDecl("DeclB", func() pipeline.DeclCollector { return &orderRecorder{name: "DeclB", order: &order} })
	reg.RegisterGraph("GraphC", func() pipeline.GraphCollector { return &graphRecorder{name: "GraphC", order: &order} })

	p, err := reg.Build(nil)
	require.NoError(t, err)

	g := newGraphWith(t, "f", "g")
	decls := []frontend.Decl{
		&fakeDecl{name: "f", stats: frontend.DeclStats{NumStatements: 1}},
		&fakeDecl{name: "g", stats: frontend.DeclStats{NumStatements: 2}},
	}
	p.Run(g, decls)

	require.Len(t, order, 5)
	assert.Equal(t, "graph:GraphC", order[len(order)-1])
	for _, entry := range order[:4] {
		assert.Contains(t, entry, "decl:")
	}
}

func TestDeclCollectorAttachesMetadata(t *testing.T) {
	var order []string
	reg := pipeline.NewRegistry()
	reg.RegisterDecl("NumStatements", func() pipeline.DeclCollector { return &orderRecorder{name: "NumStatements", order: &order} })

	p, err := reg.Build([]pipeline.PluginDescriptor{{Name: "NumStatements"}})
	require.NoError(t, err)

	g := newGraphWith(t, "f")
	p.Run(g, []frontend.Decl{&fakeDecl{name: "f", stats: frontend.DeclStats{NumStatements: 7}}})

	ns, ok := g.NodeNamed("f").Meta[metadata.NumStatementsKey].(*metadata.NumStatements)
	require.True(t, ok)
	assert.Equal(t, 7, ns.Count)
}

// C9 guarantee (c): a crashing collector is isolated; the ones after it
// still run.
func TestPanickingCollectorIsIsolated(t *testing.T) {
	var order []string
	reg := pipeline.NewRegistry()
	reg.RegisterDecl("APanics", func() pipeline.DeclCollector { return panickingCollector{} })
	reg.RegisterDecl("ZRuns", func() pipeline.DeclCollector { return &orderRecorder{name: "ZRuns", order: &order} })

	p, err := reg.Build(nil)
	require.NoError(t, err)

	g := newGraphWith(t, "f")
	p.Run(g, []frontend.Decl{&fakeDecl{name: "f", stats: frontend.DeclStats{NumStatements: 1}}})

	assert.Equal(t, []string{"decl:ZRuns"}, order)
	assert.Contains(t, g.NodeNamed("f").Meta, metadata.NumStatementsKey)
}

func TestBuildRejectsUnknownCollector(t *testing.T) {
	reg := pipeline.NewRegistry()
	_, err := reg.Build([]pipeline.PluginDescriptor{{Name: "NoSuchCollector"}})
	require.Error(t, err)
}

func TestOrderingHintBreaksTies(t *testing.T) {
	var order []string
	reg := pipeline.NewRegistry()
	reg.RegisterDecl("Zed", func() pipeline.DeclCollector { return &orderRecorder{name: "Zed", order: &order} })
	reg.RegisterDecl("Alpha", func() pipeline.DeclCollector { return &orderRecorder{name: "Alpha", order: &order} })

	p, err := reg.Build([]pipeline.PluginDescriptor{
		{Name: "Zed", OrderingHint: 1},
		{Name: "Alpha", OrderingHint: 2},
	})
	require.NoError(t, err)

	g := newGraphWith(t, "f")
	p.Run(g, []frontend.Decl{&fakeDecl{name: "f"}})
	assert.Equal(t, []string{"decl:Zed", "decl:Alpha"}, order)
}
