// Package graph implements the graph data model (component C3): a node/edge
// store keyed by a stable hash-based id, with a name index and caller/callee
// adjacency caches, reused and adapted from the teacher's
// inspector/graph/hash.go HighwayHash recipe.
package graph

import "github.com/minio/highwayhash"

// hashKey is the fixed 32-byte HighwayHash key, identical to the teacher's
// inspector/graph/hash.go — the callgraph format only needs a stable hash,
// not a keyed/secret one, so a fixed key is correct here too.
var hashKey = []byte("0123456789ABCDEF0123456789ABCDEF")

// Hash computes the stable 64-bit id used to key graph nodes.
func Hash(data []byte) (uint64, error) {
	h, err := highwayhash.New64(hashKey)
	if err != nil {
		return 0, err
	}
	if _, err := h.Write(data); err != nil {
		return 0, err
	}
	return h.Sum64(), nil
}

// IDScheme selects which fields feed the stable node-id hash, per spec §4.8.
type IDScheme int

const (
	// IDByName hashes only the function name (format v2).
	IDByName IDScheme = iota
	// IDByNameAndOrigin hashes name+origin (format v3), distinguishing
	// same-named functions defined in different translation units.
	IDByNameAndOrigin
)

// NodeID computes the stable id for (name, origin) under scheme.
func NodeID(scheme IDScheme, name, origin string) (uint64, error) {
	switch scheme {
	case IDByNameAndOrigin:
		return Hash([]byte(name + "\x00" + origin))
	default:
		return Hash([]byte(name))
	}
}
