package collectors

import (
	"github.com/viant/metacg/graph"
	"github.com/viant/metacg/merger"
	"github.com/viant/metacg/pipeline"
)

// GlobalLoopDepthCollector attaches the transitive loop depth reachable by
// walking a function's callees, grounded on GlobalLoopDepthCollector
// (collector/GlobalLoopDepthCollector.h), whose reference implementation is
// a graph-wide computation rather than a per-decl one (its computeForDecl
// is a no-op in the original too). The computation itself lives in package
// merger, since a merge must redo exactly the same pass over the merged
// graph (spec §4.2/§4.7); this collector just invokes it as part of the
// default collection run.
type GlobalLoopDepthCollector struct{}

func (GlobalLoopDepthCollector) Name() string { return "GlobalLoopDepthCollector" }

func (GlobalLoopDepthCollector) ComputeForGraph(g *graph.Store) {
	merger.RecomputeGlobalLoopDepth(g)
}

func init() {
	pipeline.Default().RegisterGraph("GlobalLoopDepthCollector", func() pipeline.GraphCollector {
		return GlobalLoopDepthCollector{}
	})
}
