package ioformat

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/viant/metacg/graph"
	"github.com/viant/metacg/metadata"
)

// v2NodeJSON is one function's entry in v2's "_CG" object, keyed by
// function name (spec §4.8 v2).
type v2NodeJSON struct {
	Callees             []string                   `json:"callees"`
	Callers             []string                   `json:"callers"`
	IsVirtual           bool                        `json:"isVirtual"`
	DoesOverride        bool                        `json:"doesOverride"`
	OverriddenFunctions []string                    `json:"overriddenFunctions,omitempty"`
	OverriddenBy        []string                    `json:"overriddenBy,omitempty"`
	HasBody             bool                        `json:"hasBody"`
	Meta                map[string]json.RawMessage `json:"meta"`
}

// ReadV2 parses a v2 container into a graph.Store keyed by name only (spec
// §4.8: "Node id is hash(name)").
func ReadV2(raw []byte) (*graph.Store, error) {
	return readV2(raw, false)
}

func readV2(raw []byte, lenient bool) (*graph.Store, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("ioformat v2: %w", err)
	}
	var cg map[string]v2NodeJSON
	if err := json.Unmarshal(env.CG, &cg); err != nil {
		return nil, fmt.Errorf("ioformat v2: decoding _CG: %w", err)
	}

	g := graph.NewStore(graph.IDByName)
	reg := metadata.Default()

	// Pass 1: create every node so edges in any order resolve.
	for name, n := range cg {
		node, err := g.GetOrInsert(name, "")
		if err != nil {
			return nil, err
		}
		node.HasBody = n.HasBody
	}

	// Pass 2: edges, overrides (synthesized back into OverrideMD, the
	// inverse of v2's write-side synthesis), and opaque/typed metadata.
	for name, n := range cg {
		node := g.NodeNamed(name)
		for _, callee := range n.Callees {
			if _, err := g.AddEdgeByName(name, callee); err != nil {
				return nil, err
			}
		}
		if len(n.OverriddenFunctions) > 0 || len(n.OverriddenBy) > 0 || n.IsVirtual || n.DoesOverride {
			ov := &metadata.Override{}
			for _, on := range n.OverriddenFunctions {
				other, err := g.GetOrInsert(on, "")
				if err != nil {
					return nil, err
				}
				ov.Overrides = append(ov.Overrides, other.ID)
			}
			for _, on := range n.OverriddenBy {
				other, err := g.GetOrInsert(on, "")
				if err != nil {
					return nil, err
				}
				ov.OverriddenBy = append(ov.OverriddenBy, other.ID)
			}
			node.Meta[metadata.OverrideKey] = ov
		}
		for key, raw := range n.Meta {
			v, err := reg.Create(key, raw, metadata.IdentityIDMapper{})
			if err != nil {
				if lenient {
					dropMetadata(key, name, err)
					continue
				}
				return nil, fmt.Errorf("ioformat v2: metadata %q on %s: %w", key, name, err)
			}
			node.Meta[key] = v
		}
	}
	return g, nil
}

// WriteV2 serializes g into a v2 container. isVirtual/doesOverride are
// synthesized from the presence/contents of OverrideMD, per spec §4.8.
func WriteV2(g *graph.Store, generator GeneratorInfo) ([]byte, error) {
	cg := make(map[string]v2NodeJSON, g.NodeCount())

	names := map[uint64]string{}
	for _, n := range g.Nodes() {
		names[n.ID] = n.Name
	}

	for _, n := range g.Nodes() {
		entry := v2NodeJSON{Meta: map[string]json.RawMessage{}, HasBody: n.HasBody}
		for _, c := range g.Callees(n.ID) {
			entry.Callees = append(entry.Callees, c.Name)
		}
		for _, c := range g.Callers(n.ID) {
			entry.Callers = append(entry.Callers, c.Name)
		}
		sort.Strings(entry.Callees)
		sort.Strings(entry.Callers)

		for key, v := range n.Meta {
			if ov, ok := v.(*metadata.Override); ok {
				entry.IsVirtual = true
				entry.DoesOverride = len(ov.Overrides) > 0
				for _, id := range ov.Overrides {
					entry.OverriddenFunctions = append(entry.OverriddenFunctions, names[id])
				}
				for _, id := range ov.OverriddenBy {
					entry.OverriddenBy = append(entry.OverriddenBy, names[id])
				}
				sort.Strings(entry.OverriddenFunctions)
				sort.Strings(entry.OverriddenBy)
				continue
			}
			raw, err := v.ToJSON(metadata.IdentityIDMapper{})
			if err != nil {
				return nil, fmt.Errorf("ioformat v2: metadata %q on %s: %w", key, n.Name, err)
			}
			entry.Meta[key] = raw
		}
		cg[n.Name] = entry
	}

	out := struct {
		MetaCG Header                `json:"_MetaCG"`
		CG     map[string]v2NodeJSON `json:"_CG"`
	}{
		MetaCG: Header{Generator: generator, Version: V2.String()},
		CG:     cg,
	}
	return json.MarshalIndent(out, "", "  ")
}
