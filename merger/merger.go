// Package merger implements the Graph Merger (component C7): combining
// per-TU graphs into a whole-program graph under a chosen node-identity
// strategy, with per-metadata merge semantics and a cross-TU indirect-call
// over-approximation pass.
//
// Grounded on Callgraph::merge (original_source/graph/src/Callgraph.cpp):
// the node walk / edge walk / metadata walk structure here mirrors its
// copyNode lambda exactly, split into the three explicit passes spec §4.7
// describes instead of one recursive closure.
package merger

import (
	"log/slog"

	"github.com/viant/metacg/graph"
	"github.com/viant/metacg/metadata"
)

// Strategy decides, for a source node, which destination node it
// corresponds to (spec §4.7).
type Strategy int

const (
	// MergeByName collapses same-named functions into one destination node
	// regardless of origin; first non-empty origin wins.
	MergeByName Strategy = iota
	// MergeByNameAndOrigin only collapses nodes whose name AND origin both
	// match; otherwise source and destination nodes stay distinct.
	MergeByNameAndOrigin
)

// idMapper implements metadata.IDMapper over one merge's source->destination
// node-id translation table.
type idMapper struct{ table map[uint64]uint64 }

func (m idMapper) MapNodeID(foreign uint64) (uint64, bool) {
	id, ok := m.table[foreign]
	return id, ok
}

// MergeInto combines source into destination under strategy, per spec
// §4.7's three-pass procedure plus the over-approximation pass.
func MergeInto(destination, source *graph.Store, strategy Strategy) error {
	idMap := idMapper{table: make(map[uint64]uint64, source.NodeCount())}

	// Pass 1: node walk.
	for _, n := range source.Nodes() {
		origin := n.Origin
		if strategy == MergeByName {
			origin = ""
		}
		dst, err := destinationNode(destination, strategy, n.Name, n.Origin, origin)
		if err != nil {
			return err
		}
		idMap.table[n.ID] = dst.ID
		if n.HasBody {
			dst.HasBody = true
		}
	}

	// Pass 2: edge walk.
	for _, e := range source.Edges() {
		from, ok1 := idMap.table[e.From]
		to, ok2 := idMap.table[e.To]
		if !ok1 || !ok2 {
			continue
		}
		if _, err := destination.AddEdge(from, to); err != nil {
			return err
		}
	}

	// Pass 3: metadata merge, node then edge, id-remapped through idMap.
	for _, n := range source.Nodes() {
		dstID := idMap.table[n.ID]
		dstMeta := destination.NodeMetadata(dstID)
		if dstMeta == nil {
			continue
		}
		if err := metadata.Merge(dstMeta, n.Meta, metadata.ActionNodeMerge, idMap); err != nil {
			return err
		}
	}
	for _, e := range source.Edges() {
		from, ok1 := idMap.table[e.From]
		to, ok2 := idMap.table[e.To]
		if !ok1 || !ok2 {
			continue
		}
		dstMeta := destination.EdgeMetadata(from, to)
		if dstMeta == nil {
			continue
		}
		if err := metadata.Merge(dstMeta, e.Meta, metadata.ActionEdgeMerge, idMap); err != nil {
			return err
		}
	}

	if err := metadata.Merge(destination.GraphMeta, source.GraphMeta, metadata.ActionNone, idMap); err != nil {
		return err
	}

	OverApproximate(destination)
	return nil
}

// destinationNode resolves or creates the destination node for a source
// node under strategy. lookupOrigin is "" for MergeByName (name-only
// lookup) and the real origin for MergeByNameAndOrigin.
func destinationNode(destination *graph.Store, strategy Strategy, name, realOrigin, lookupOrigin string) (*graph.Node, error) {
	if strategy == MergeByName {
		if existing := destination.NodeNamed(name); existing != nil {
			if existing.Origin == "" {
				existing.Origin = realOrigin
			}
			return existing, nil
		}
		return destination.GetOrInsert(name, realOrigin)
	}
	return destination.GetOrInsert(name, lookupOrigin)
}

// OverApproximate implements spec §4.7 step 4: for every node carrying an
// AllAlias list of "might call" signatures, add an edge to every node in
// the graph whose FunctionSignature matches one of those signatures. This
// is the cross-TU substitute for points-to analysis across translation
// units, where an indirect call's callee escaped the originating TU's own
// alias analysis.
func OverApproximate(g *graph.Store) {
	bySignature := map[string][]uint64{}
	for _, n := range g.Nodes() {
		meta := g.NodeMetadata(n.ID)
		if meta == nil {
			continue
		}
		if fs, ok := meta[metadata.FunctionSignatureKey].(*metadata.FunctionSignature); ok && fs.Signature != "" {
			bySignature[fs.Signature] = append(bySignature[fs.Signature], n.ID)
		}
	}
	if len(bySignature) == 0 {
		return
	}
	for _, n := range g.Nodes() {
		meta := g.NodeMetadata(n.ID)
		if meta == nil {
			continue
		}
		aa, ok := meta[metadata.AllAliasKey].(*metadata.AllAlias)
		if !ok {
			continue
		}
		for _, sig := range aa.Signatures {
			for _, calleeID := range bySignature[sig] {
				if _, err := g.AddEdge(n.ID, calleeID); err != nil {
					slog.Warn("over-approximation: failed to add indirect edge", "from", n.ID, "to", calleeID, "error", err)
				}
			}
		}
	}
}

// Prune implements the supplemented --prune behavior (SPEC_FULL.md
// SUPPLEMENTED FEATURES), grounded on original_source/tools/cgformat's and
// cgcollector2's prune pass: drop nodes with no body and no incident edges,
// and any metadata attached only to pruned nodes disappears with them since
// metadata lives on the node/edge map itself.
func Prune(g *graph.Store) int {
	pruned := 0
	for _, n := range g.Nodes() {
		if n.HasBody {
			continue
		}
		if len(g.Callees(n.ID)) > 0 || len(g.Callers(n.ID)) > 0 {
			continue
		}
		g.Erase(n.ID)
		pruned++
	}
	return pruned
}

// RecomputeGlobalLoopDepth recomputes GlobalLoopDepth from scratch across
// the merged graph instead of merging it pointwise, per spec §4.2/§4.7: the
// global depth of a function is the maximum loop depth reachable by walking
// its callees transitively.
func RecomputeGlobalLoopDepth(g *graph.Store) {
	memo := map[uint64]int{}
	var visit func(id uint64, visiting map[uint64]bool) int
	visit = func(id uint64, visiting map[uint64]bool) int {
		if d, ok := memo[id]; ok {
			return d
		}
		if visiting[id] {
			return 0 // cycle guard; recursive call chains contribute no further depth
		}
		visiting[id] = true
		defer delete(visiting, id)

		depth := 0
		if meta := g.NodeMetadata(id); meta != nil {
			if ld, ok := meta[metadata.LoopDepthKey].(*metadata.LoopDepth); ok {
				depth = ld.Depth
			}
		}
		for _, callee := range g.Callees(id) {
			if cd := visit(callee.ID, visiting); cd > depth {
				depth = cd
			}
		}
		memo[id] = depth
		return depth
	}

	for _, n := range g.Nodes() {
		depth := visit(n.ID, map[uint64]bool{})
		meta := g.NodeMetadata(n.ID)
		if meta == nil {
			continue
		}
		meta[metadata.GlobalLoopDepthKey] = &metadata.GlobalLoopDepth{Depth: depth}
	}
}
