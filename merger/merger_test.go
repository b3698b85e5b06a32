package merger_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/metacg/graph"
	"github.com/viant/metacg/merger"
	"github.com/viant/metacg/metadata"
)

func tuGraph(t *testing.T, origin string, callee string) *graph.Store {
	t.Helper()
	g := graph.NewStore(graph.IDByNameAndOrigin)
	foo, err := g.GetOrInsert("foo", origin)
	require.NoError(t, err)
	foo.HasBody = true
	c, err := g.GetOrInsert(callee, "")
	require.NoError(t, err)
	_, err = g.AddEdge(foo.ID, c.ID)
	require.NoError(t, err)
	return g
}

// Spec §8 scenario 6: same name, different origins, under both strategies.
func TestMergeByNameCollapsesAcrossOrigins(t *testing.T) {
	dest := graph.NewStore(graph.IDByName)
	require.NoError(t, merger.MergeInto(dest, tuGraph(t, "a.cpp", "bar"), merger.MergeByName))
	require.NoError(t, merger.MergeInto(dest, tuGraph(t, "b.cpp", "baz"), merger.MergeByName))

	foo := dest.NodeNamed("foo")
	require.NotNil(t, foo)
	assert.Equal(t, "a.cpp", foo.Origin, "first non-empty origin wins")

	calleeNames := []string{}
	for _, c := range dest.Callees(foo.ID) {
		calleeNames = append(calleeNames, c.Name)
	}
	assert.ElementsMatch(t, []string{"bar", "baz"}, calleeNames, "callee set is the union")
}

func TestMergeByNameAndOriginKeepsDistinctNodes(t *testing.T) {
	dest := graph.NewStore(graph.IDByNameAndOrigin)
	require.NoError(t, merger.MergeInto(dest, tuGraph(t, "a.cpp", "bar"), merger.MergeByNameAndOrigin))
	require.NoError(t, merger.MergeInto(dest, tuGraph(t, "b.cpp", "baz"), merger.MergeByNameAndOrigin))

	fooCount := 0
	for _, n := range dest.Nodes() {
		if n.Name == "foo" {
			fooCount++
		}
	}
	assert.Equal(t, 2, fooCount)
}

// Spec §8 idempotence: merge(G, G) under MergeByName leaves the node and
// edge sets unchanged; additive metadata doubles, max-type stays equal.
func TestMergeIdempotenceOnSets(t *testing.T) {
	src := tuGraph(t, "a.cpp", "bar")
	foo := src.NodeNamed("foo")
	foo.Meta[metadata.NumStatementsKey] = &metadata.NumStatements{Count: 5}
	foo.Meta[metadata.LoopDepthKey] = &metadata.LoopDepth{Depth: 3}
	foo.Meta[metadata.InlineKey] = &metadata.Inline{MarkedInline: true}

	dest := graph.NewStore(graph.IDByName)
	require.NoError(t, merger.MergeInto(dest, src, merger.MergeByName))
	nodesAfterFirst, edgesAfterFirst := dest.NodeCount(), dest.Size()

	require.NoError(t, merger.MergeInto(dest, src, merger.MergeByName))
	assert.Equal(t, nodesAfterFirst, dest.NodeCount())
	assert.Equal(t, edgesAfterFirst, dest.Size())

	meta := dest.NodeNamed("foo").Meta
	assert.Equal(t, 10, meta[metadata.NumStatementsKey].(*metadata.NumStatements).Count)
	assert.Equal(t, 3, meta[metadata.LoopDepthKey].(*metadata.LoopDepth).Depth)
	assert.True(t, meta[metadata.InlineKey].(*metadata.Inline).MarkedInline)
}

func TestOverrideIDsRemappedAcrossMerge(t *testing.T) {
	src := graph.NewStore(graph.IDByNameAndOrigin)
	base, err := src.GetOrInsert("Base::foo", "a.cpp")
	require.NoError(t, err)
	base.HasBody = true
	child, err := src.GetOrInsert("Child1::foo", "a.cpp")
	require.NoError(t, err)
	child.HasBody = true
	child.Meta[metadata.OverrideKey] = &metadata.Override{Overrides: []uint64{base.ID}}

	// Destination keys by name only, so every id differs from the source's.
	dest := graph.NewStore(graph.IDByName)
	require.NoError(t, merger.MergeInto(dest, src, merger.MergeByName))

	destBase := dest.NodeNamed("Base::foo")
	destChild := dest.NodeNamed("Child1::foo")
	require.NotNil(t, destBase)
	require.NotNil(t, destChild)
	ov, ok := destChild.Meta[metadata.OverrideKey].(*metadata.Override)
	require.True(t, ok)
	assert.Equal(t, []uint64{destBase.ID}, ov.Overrides)
}

// Spec §4.7 step 4: a node whose AllAlias lists a signature gains an edge
// to every node whose FunctionSignature matches it, across TU boundaries.
func TestOverApproximateMatchesSignatures(t *testing.T) {
	g := graph.NewStore(graph.IDByName)
	caller, err := g.GetOrInsert("dispatch", "a.cpp")
	require.NoError(t, err)
	caller.HasBody = true
	caller.Meta[metadata.AllAliasKey] = &metadata.AllAlias{Signatures: []string{"i32(i32)"}}

	match, err := g.GetOrInsert("handler", "b.cpp")
	require.NoError(t, err)
	match.HasBody = true
	match.Meta[metadata.FunctionSignatureKey] = &metadata.FunctionSignature{Signature: "i32(i32)", ParameterCount: 1}

	other, err := g.GetOrInsert("unrelated", "b.cpp")
	require.NoError(t, err)
	other.Meta[metadata.FunctionSignatureKey] = &metadata.FunctionSignature{Signature: "void()"}

	merger.OverApproximate(g)

	assert.True(t, g.HasEdge(caller.ID, match.ID))
	assert.False(t, g.HasEdge(caller.ID, other.ID))
}

func TestRecomputeGlobalLoopDepth(t *testing.T) {
	g := graph.NewStore(graph.IDByName)
	main, err := g.GetOrInsert("main", "")
	require.NoError(t, err)
	main.HasBody = true
	f, err := g.GetOrInsert("f", "")
	require.NoError(t, err)
	f.HasBody = true
	f.Meta[metadata.LoopDepthKey] = &metadata.LoopDepth{Depth: 2}
	_, err = g.AddEdge(main.ID, f.ID)
	require.NoError(t, err)

	merger.RecomputeGlobalLoopDepth(g)

	gd, ok := main.Meta[metadata.GlobalLoopDepthKey].(*metadata.GlobalLoopDepth)
	require.True(t, ok)
	assert.Equal(t, 2, gd.Depth, "loop depth reachable through callees")
}

func TestPruneDropsBodylessEdgelessNodes(t *testing.T) {
	g := graph.NewStore(graph.IDByName)
	main, err := g.GetOrInsert("main", "")
	require.NoError(t, err)
	main.HasBody = true
	called, err := g.GetOrInsert("printf", "")
	require.NoError(t, err)
	_, err = g.AddEdge(main.ID, called.ID)
	require.NoError(t, err)
	_, err = g.GetOrInsert("unused_extern", "")
	require.NoError(t, err)

	dropped := merger.Prune(g)

	assert.Equal(t, 1, dropped)
	assert.True(t, g.HasNodeNamed("printf"), "bodyless but referenced stays")
	assert.False(t, g.HasNodeNamed("unused_extern"))
}
