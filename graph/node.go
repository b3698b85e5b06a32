package graph

import "github.com/viant/metacg/metadata"

// Node is a call-graph node: a function identity plus its per-node metadata
// (spec §3 "Graph node").
type Node struct {
	ID      uint64
	Name    string
	Origin  string
	HasBody bool
	Meta    map[string]metadata.Value
}

func newNode(id uint64, name, origin string) *Node {
	return &Node{ID: id, Name: name, Origin: origin, Meta: map[string]metadata.Value{}}
}

// edgeKey identifies a directed edge by endpoint ids.
type edgeKey struct {
	From, To uint64
}

// Edge is a caller→callee relation with its own metadata map (spec §3
// "Graph edge").
type Edge struct {
	From, To uint64
	Meta     map[string]metadata.Value
}

func newEdge(from, to uint64) *Edge {
	return &Edge{From: from, To: to, Meta: map[string]metadata.Value{}}
}
