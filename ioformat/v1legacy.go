package ioformat

import (
	"encoding/json"
	"fmt"

	"github.com/viant/metacg/graph"
)

// v1NodeJSON is one function's entry in a v1 file, keyed by function name
// directly at the JSON top level (no "_MetaCG"/"_CG" envelope at all).
// Grounded on VersionOneMetaCGReader::read
// (original_source/pgis/lib/src/libIPCG/MCGReader.cpp): note the key is
// "parents", not "callers" — the rename spec §9 asks to confirm is real.
type v1NodeJSON struct {
	Callees             []string `json:"callees"`
	Parents             []string `json:"parents"`
	OverriddenFunctions []string `json:"overriddenFunctions"`
	OverriddenBy        []string `json:"overriddenBy"`
	IsVirtual           bool     `json:"isVirtual"`
	DoesOverride        bool     `json:"doesOverride"`
	HasBody             bool     `json:"hasBody"`
	NumStatements       int      `json:"numStatements"`
}

// ReadV1 reads a legacy v1 file. v1 is read-only — this module never
// writes it (spec §9's "two legacy reader versions ... v3 removes that
// ambiguity"). Unlike v2/v3, a v1 file that never marks doesOverride/
// overriddenFunctions still needs its virtual-dispatch hierarchy
// reconstructed post-hoc from the immediate-overridden-function lists,
// exactly as VersionOneMetaCGReader::buildVirtualFunctionHierarchy does by
// walking each function's overriddenFunctions transitively and recording
// every virtual function reachable that way as a "potential target" of
// every call site naming one of its ancestors.
func ReadV1(raw []byte) (*graph.Store, error) {
	var cg map[string]v1NodeJSON
	if err := json.Unmarshal(raw, &cg); err != nil {
		return nil, fmt.Errorf("ioformat v1: %w", err)
	}

	g := graph.NewStore(graph.IDByName)
	for name, n := range cg {
		node, err := g.GetOrInsert(name, "")
		if err != nil {
			return nil, err
		}
		node.HasBody = n.HasBody
	}
	for name, n := range cg {
		for _, callee := range n.Callees {
			if _, err := g.AddEdgeByName(name, callee); err != nil {
				return nil, err
			}
		}
	}

	// Every call site naming an ancestor may dispatch to any override
	// reachable down the hierarchy, so each ancestor's callers gain an
	// edge to every potential target.
	potentialTargets := buildVirtualFunctionHierarchy(cg)
	for ancestor, targets := range potentialTargets {
		node := g.NodeNamed(ancestor)
		if node == nil {
			continue
		}
		for _, caller := range g.Callers(node.ID) {
			for target := range targets {
				if _, err := g.AddEdgeByName(caller.Name, target); err != nil {
					return nil, err
				}
			}
		}
	}
	return g, nil
}

// buildVirtualFunctionHierarchy mirrors
// MetaCGReader::buildVirtualFunctionHierarchy: for every virtual function
// that overrides another, record it (and transitively, every function
// further up the override chain) as a potential call target of any call
// site naming an ancestor in that chain.
func buildVirtualFunctionHierarchy(cg map[string]v1NodeJSON) map[string]map[string]bool {
	potentialTargets := map[string]map[string]bool{}
	for name, fi := range cg {
		if !fi.IsVirtual || !fi.DoesOverride {
			continue
		}
		for _, overridden := range fi.OverriddenFunctions {
			queue := []string{overridden}
			visited := map[string]bool{}
			for len(queue) > 0 {
				next := queue[0]
				queue = queue[1:]
				if visited[next] {
					continue
				}
				visited[next] = true
				if potentialTargets[next] == nil {
					potentialTargets[next] = map[string]bool{}
				}
				potentialTargets[next][name] = true
				if nfi, ok := cg[next]; ok {
					queue = append(queue, nfi.OverriddenFunctions...)
				}
			}
		}
	}
	return potentialTargets
}
