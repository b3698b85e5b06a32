package collectors

import (
	"github.com/viant/metacg/graph"
	"github.com/viant/metacg/metadata"
	"github.com/viant/metacg/pipeline"
)

// LoopCallDepthCollector records, for every node, the loop depth at which it
// calls each of its direct callees. The reference tool has no published
// header for this one (it only documents the metadata's merge rule in
// LoopMD.h); lacking per-call-site loop nesting from the frontend, this
// approximates "the depth at which N calls callee" with N's own loop depth,
// which is exact when every call in N sits at N's deepest loop nesting and
// an over-approximation otherwise (a call outside N's loops still gets N's
// full depth) — consistent with this
// project's general over-approximate philosophy for everything the
// frontend cannot resolve precisely.
type LoopCallDepthCollector struct{}

func (LoopCallDepthCollector) Name() string { return "LoopCallDepthCollector" }

func (LoopCallDepthCollector) ComputeForGraph(g *graph.Store) {
	for _, n := range g.Nodes() {
		depth := 0
		if ld, ok := n.Meta[metadata.LoopDepthKey].(*metadata.LoopDepth); ok {
			depth = ld.Depth
		}
		if depth == 0 {
			continue
		}
		callees := g.Callees(n.ID)
		if len(callees) == 0 {
			continue
		}
		lcd := &metadata.LoopCallDepth{Depths: make(map[string]int, len(callees))}
		for _, callee := range callees {
			lcd.Depths[callee.Name] = depth
		}
		n.Meta[metadata.LoopCallDepthKey] = lcd
	}
}

func init() {
	pipeline.Default().RegisterGraph("LoopCallDepthCollector", func() pipeline.GraphCollector {
		return LoopCallDepthCollector{}
	})
}
