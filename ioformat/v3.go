package ioformat

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/viant/metacg/graph"
	"github.com/viant/metacg/metadata"
)

// v3NodeJSON is one node's value in v3's "nodes" array (spec §4.8 v3).
type v3NodeJSON struct {
	FunctionName string                     `json:"functionName"`
	Origin       string                     `json:"origin"`
	HasBody      bool                       `json:"hasBody"`
	Meta         map[string]json.RawMessage `json:"meta"`
}

// v3CG is the "_CG" body for v3: nodes keyed by stable id, edges keyed by
// endpoint-id pairs, both carrying their own metadata.
type v3CG struct {
	Nodes [][2]json.RawMessage `json:"nodes"`
	Edges [][2]json.RawMessage `json:"edges"`
}

// ReadV3 parses a v3 container into a graph.Store keyed by name+origin
// (spec §4.8: "Id is hash(name + origin)").
func ReadV3(raw []byte) (*graph.Store, error) {
	return readV3(raw, false)
}

func readV3(raw []byte, lenient bool) (*graph.Store, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("ioformat v3: %w", err)
	}
	var body v3CG
	if err := json.Unmarshal(env.CG, &body); err != nil {
		return nil, fmt.Errorf("ioformat v3: decoding _CG: %w", err)
	}

	g := graph.NewStore(graph.IDByNameAndOrigin)
	reg := metadata.Default()

	foreignToLocal := map[uint64]uint64{}
	for _, pair := range body.Nodes {
		var foreignID uint64
		if err := json.Unmarshal(pair[0], &foreignID); err != nil {
			return nil, fmt.Errorf("ioformat v3: node id: %w", err)
		}
		var nj v3NodeJSON
		if err := json.Unmarshal(pair[1], &nj); err != nil {
			return nil, fmt.Errorf("ioformat v3: node body: %w", err)
		}
		node, err := g.GetOrInsert(nj.FunctionName, nj.Origin)
		if err != nil {
			return nil, err
		}
		node.HasBody = nj.HasBody
		for key, raw := range nj.Meta {
			v, err := reg.Create(key, raw, metadata.IdentityIDMapper{})
			if err != nil {
				if lenient {
					dropMetadata(key, nj.FunctionName, err)
					continue
				}
				return nil, fmt.Errorf("ioformat v3: metadata %q on %s: %w", key, nj.FunctionName, err)
			}
			node.Meta[key] = v
		}
		foreignToLocal[foreignID] = node.ID
	}

	idMap := metadata.IdentityIDMapper{}
	for _, pair := range body.Edges {
		var endpoints [2]uint64
		if err := json.Unmarshal(pair[0], &endpoints); err != nil {
			return nil, fmt.Errorf("ioformat v3: edge endpoints: %w", err)
		}
		from, ok1 := foreignToLocal[endpoints[0]]
		to, ok2 := foreignToLocal[endpoints[1]]
		if !ok1 || !ok2 {
			return nil, fmt.Errorf("ioformat v3: edge references unknown node id %d or %d", endpoints[0], endpoints[1])
		}
		if _, err := g.AddEdge(from, to); err != nil {
			return nil, err
		}
		var meta map[string]json.RawMessage
		if len(pair[1]) > 0 {
			if err := json.Unmarshal(pair[1], &meta); err != nil {
				return nil, fmt.Errorf("ioformat v3: edge meta: %w", err)
			}
		}
		em := g.EdgeMetadata(from, to)
		for key, raw := range meta {
			v, err := reg.Create(key, raw, idMap)
			if err != nil {
				if lenient {
					dropMetadata(key, fmt.Sprintf("edge %d->%d", endpoints[0], endpoints[1]), err)
					continue
				}
				return nil, fmt.Errorf("ioformat v3: edge metadata %q: %w", key, err)
			}
			em[key] = v
		}
	}
	return g, nil
}

// WriteV3 serializes g into a v3 container, using each node's own stable
// id (consistent under the name+origin scheme, so no detection of a lossy
// export is needed for a v3-native graph). Nodes and edges are emitted in
// ascending id order so two writes of equal graphs are byte-identical,
// which is what cgformat's canonicalization relies on.
func WriteV3(g *graph.Store, generator GeneratorInfo) ([]byte, error) {
	all := g.Nodes()
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	nodes := make([][2]json.RawMessage, 0, len(all))
	for _, n := range all {
		meta := map[string]json.RawMessage{}
		for key, v := range n.Meta {
			raw, err := v.ToJSON(metadata.IdentityIDMapper{})
			if err != nil {
				return nil, fmt.Errorf("ioformat v3: metadata %q on %s: %w", key, n.Name, err)
			}
			meta[key] = raw
		}
		idRaw, _ := json.Marshal(n.ID)
		bodyRaw, err := json.Marshal(v3NodeJSON{FunctionName: n.Name, Origin: n.Origin, HasBody: n.HasBody, Meta: meta})
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, [2]json.RawMessage{idRaw, bodyRaw})
	}

	allEdges := g.Edges()
	sort.Slice(allEdges, func(i, j int) bool {
		if allEdges[i].From != allEdges[j].From {
			return allEdges[i].From < allEdges[j].From
		}
		return allEdges[i].To < allEdges[j].To
	})
	edges := make([][2]json.RawMessage, 0, len(allEdges))
	for _, e := range allEdges {
		meta := map[string]json.RawMessage{}
		for key, v := range e.Meta {
			raw, err := v.ToJSON(metadata.IdentityIDMapper{})
			if err != nil {
				return nil, fmt.Errorf("ioformat v3: edge metadata %q: %w", key, err)
			}
			meta[key] = raw
		}
		endpointsRaw, _ := json.Marshal([2]uint64{e.From, e.To})
		metaRaw, err := json.Marshal(meta)
		if err != nil {
			return nil, err
		}
		edges = append(edges, [2]json.RawMessage{endpointsRaw, metaRaw})
	}

	out := struct {
		MetaCG Header `json:"_MetaCG"`
		CG     v3CG   `json:"_CG"`
	}{
		MetaCG: Header{Generator: generator, Version: V3.String()},
		CG:     v3CG{Nodes: nodes, Edges: edges},
	}
	return json.MarshalIndent(out, "", "  ")
}
