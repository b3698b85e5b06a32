package graph

import (
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/viant/metacg/metadata"
)

// mangledMainVariants are the names getMain() searches after "main" itself,
// grounded on Callgraph::getMain() in the original C++ source.
var mangledMainVariants = []string{"main", "_Z4main", "_ZSt4mainiPPc"}

// ErrIDHashCollision is returned by Insert when two distinct names hash to
// the same stable id and empirical collision tracking is not enabled (spec
// §7 IdHashCollision).
type ErrIDHashCollision struct {
	ID               uint64
	ExistingName     string
	ExistingOrigin   string
	IncomingName     string
	IncomingOrigin   string
}

func (e *ErrIDHashCollision) Error() string {
	return fmt.Sprintf("node id %d collision: existing name %q (origin %q) vs incoming %q (origin %q)",
		e.ID, e.ExistingName, e.ExistingOrigin, e.IncomingName, e.IncomingOrigin)
}

// Store is the graph data model (component C3): a node set keyed by a
// stable id, an edge set with per-edge metadata, caller/callee adjacency
// caches, and a name→id index. Grounded on the original Callgraph class
// (graph/src/Callgraph.cpp) and the teacher's map+cache style
// (inspector/graph/types.go).
type Store struct {
	mu sync.RWMutex

	scheme IDScheme

	nodes map[uint64]*Node
	// nameIndex supports name-only lookups (format v2) and name+origin
	// disambiguation (format v3), where more than one id can share a name.
	nameIndex map[string][]uint64

	edges   map[edgeKey]*Edge
	callees map[uint64][]uint64
	callers map[uint64][]uint64

	mainNode *Node

	// GraphMeta holds metadata attached to the graph as a whole (e.g.
	// EntryFunctionMD), as opposed to a single node or edge.
	GraphMeta map[string]metadata.Value

	collisionCounter           int
	empiricalCollisionTracking bool
}

// NewStore constructs an empty store using scheme to derive node ids.
// empiricalCollisionTracking mirrors METACG_EMPIRICAL_COLLISION_TRACKING=1
// (spec §6 Environment): when true, a hash collision is logged instead of
// fatal.
func NewStore(scheme IDScheme) *Store {
	return &Store{
		scheme:                     scheme,
		nodes:                      map[uint64]*Node{},
		nameIndex:                  map[string][]uint64{},
		edges:                      map[edgeKey]*Edge{},
		callees:                    map[uint64][]uint64{},
		callers:                    map[uint64][]uint64{},
		GraphMeta:                  map[string]metadata.Value{},
		empiricalCollisionTracking: os.Getenv("METACG_EMPIRICAL_COLLISION_TRACKING") == "1",
	}
}

// Insert adds a new node for (name, origin) and returns its stable id. If a
// node with the same derived id already exists under a different
// name/origin, this is a hash collision (spec §4.3 Insert contract); if the
// id already names the same (name, origin) pair, the insert is a no-op.
func (s *Store) Insert(name, origin string) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertLocked(name, origin)
}

func (s *Store) insertLocked(name, origin string) (uint64, error) {
	id, err := NodeID(s.scheme, name, origin)
	if err != nil {
		return 0, err
	}
	if existing, ok := s.nodes[id]; ok {
		if existing.Name != name || (s.scheme == IDByNameAndOrigin && existing.Origin != origin) {
			s.collisionCounter++
			slog.Warn("node id collision detected", "id", id, "existingName", existing.Name, "incomingName", name)
			if !s.empiricalCollisionTracking {
				return 0, &ErrIDHashCollision{ID: id, ExistingName: existing.Name, ExistingOrigin: existing.Origin, IncomingName: name, IncomingOrigin: origin}
			}
			return id, nil
		}
		slog.Debug("node already exists, skipping insertion", "id", id, "name", name)
		return id, nil
	}
	n := newNode(id, name, origin)
	s.nodes[id] = n
	s.nameIndex[name] = append(s.nameIndex[name], id)
	return id, nil
}

// GetOrInsert returns the existing node for (name, origin) or creates one.
func (s *Store) GetOrInsert(name, origin string) (*Node, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ids, ok := s.nameIndex[name]; ok {
		for _, id := range ids {
			n := s.nodes[id]
			if s.scheme != IDByNameAndOrigin || n.Origin == origin {
				return n, nil
			}
		}
	}
	id, err := s.insertLocked(name, origin)
	if err != nil {
		return nil, err
	}
	return s.nodes[id], nil
}

// AddEdge inserts the edge (from, to), set semantics. Returns false without
// error if the edge already exists; returns an error if either endpoint is
// unknown, matching the fatal "unrecoverable graph error" of the original
// addEdge(size_t, size_t) overload.
func (s *Store) AddEdge(from, to uint64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.nodes[from]; !ok {
		return false, fmt.Errorf("graph: source node %d does not exist", from)
	}
	if _, ok := s.nodes[to]; !ok {
		return false, fmt.Errorf("graph: target node %d does not exist", to)
	}
	key := edgeKey{From: from, To: to}
	if _, exists := s.edges[key]; exists {
		return false, nil
	}
	s.edges[key] = newEdge(from, to)
	s.callees[from] = append(s.callees[from], to)
	s.callers[to] = append(s.callers[to], from)
	return true, nil
}

// AddEdgeByName resolves from/to by name, inserting either endpoint (with
// origin "unknownOrigin") if missing, matching the original's
// addEdge(string, string) leniency.
func (s *Store) AddEdgeByName(fromName, toName string) (bool, error) {
	s.mu.Lock()
	fromID, ok := s.firstIDLocked(fromName)
	if !ok {
		slog.Warn("source node does not exist in graph, inserting", "name", fromName)
		var err error
		fromID, err = s.insertLocked(fromName, "unknownOrigin")
		if err != nil {
			s.mu.Unlock()
			return false, err
		}
	}
	toID, ok := s.firstIDLocked(toName)
	if !ok {
		slog.Warn("target node does not exist in graph, inserting", "name", toName)
		var err error
		toID, err = s.insertLocked(toName, "unknownOrigin")
		if err != nil {
			s.mu.Unlock()
			return false, err
		}
	}
	s.mu.Unlock()
	return s.AddEdge(fromID, toID)
}

func (s *Store) firstIDLocked(name string) (uint64, bool) {
	ids, ok := s.nameIndex[name]
	if !ok || len(ids) == 0 {
		return 0, false
	}
	return ids[0], true
}

// RemoveEdge deletes the edge (from, to) if present, reporting whether it
// existed.
func (s *Store) RemoveEdge(from, to uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := edgeKey{From: from, To: to}
	if _, ok := s.edges[key]; !ok {
		return false
	}
	delete(s.edges, key)
	s.callees[from] = removeID(s.callees[from], to)
	s.callers[to] = removeID(s.callers[to], from)
	return true
}

func removeID(ids []uint64, target uint64) []uint64 {
	for i, id := range ids {
		if id == target {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	return ids
}

// Erase removes a node and every edge incident to it.
func (s *Store) Erase(id uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.nodes[id]
	if !ok {
		return false
	}
	for _, to := range append([]uint64(nil), s.callees[id]...) {
		delete(s.edges, edgeKey{From: id, To: to})
		s.callers[to] = removeID(s.callers[to], id)
	}
	for _, from := range append([]uint64(nil), s.callers[id]...) {
		delete(s.edges, edgeKey{From: from, To: id})
		s.callees[from] = removeID(s.callees[from], id)
	}
	delete(s.callees, id)
	delete(s.callers, id)
	delete(s.nodes, id)
	s.nameIndex[n.Name] = removeID(s.nameIndex[n.Name], id)
	if s.mainNode == n {
		s.mainNode = nil
	}
	return true
}

// Callees returns the nodes id directly calls.
func (s *Store) Callees(id uint64) []*Node {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.resolveLocked(s.callees[id])
}

// Callers returns the nodes that directly call id.
func (s *Store) Callers(id uint64) []*Node {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.resolveLocked(s.callers[id])
}

func (s *Store) resolveLocked(ids []uint64) []*Node {
	out := make([]*Node, 0, len(ids))
	for _, id := range ids {
		if n, ok := s.nodes[id]; ok {
			out = append(out, n)
		}
	}
	return out
}

func (s *Store) HasNode(id uint64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.nodes[id]
	return ok
}

func (s *Store) HasNodeNamed(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids, ok := s.nameIndex[name]
	return ok && len(ids) > 0
}

func (s *Store) HasEdge(from, to uint64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.edges[edgeKey{From: from, To: to}]
	return ok
}

// Node returns the node for id, or nil if absent.
func (s *Store) Node(id uint64) *Node {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nodes[id]
}

// NodeNamed returns the first node registered under name, or nil.
func (s *Store) NodeNamed(name string) *Node {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if id, ok := s.firstIDLocked(name); ok {
		return s.nodes[id]
	}
	return nil
}

func (s *Store) Size() int { s.mu.RLock(); defer s.mu.RUnlock(); return len(s.edges) }

func (s *Store) NodeCount() int { s.mu.RLock(); defer s.mu.RUnlock(); return len(s.nodes) }

// Nodes returns every node, for callers that need to walk the full set
// (serialization, merging).
func (s *Store) Nodes() []*Node {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Node, 0, len(s.nodes))
	for _, n := range s.nodes {
		out = append(out, n)
	}
	return out
}

// Edges returns every edge.
func (s *Store) Edges() []*Edge {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Edge, 0, len(s.edges))
	for _, e := range s.edges {
		out = append(out, e)
	}
	return out
}

// GetMain resolves the program entry point: an explicit EntryFunctionMD
// (graph-level metadata) takes precedence, then "main" and its mangled
// variants (spec §4.3).
func (s *Store) GetMain() *Node {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.mainNode != nil {
		return s.mainNode
	}
	if entry, ok := s.GraphMeta[metadata.EntryFunctionKey]; ok {
		if ef, ok := entry.(*metadata.EntryFunction); ok && ef.NodeID != nil {
			if n, ok := s.nodes[*ef.NodeID]; ok {
				s.mainNode = n
				return n
			}
		}
	}
	for _, name := range mangledMainVariants {
		if id, ok := s.firstIDLocked(name); ok {
			s.mainNode = s.nodes[id]
			return s.mainNode
		}
	}
	return nil
}

// EdgeMetadata returns the metadata map of the given edge, or nil if the
// edge is absent.
func (s *Store) EdgeMetadata(from, to uint64) map[string]metadata.Value {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if e, ok := s.edges[edgeKey{From: from, To: to}]; ok {
		return e.Meta
	}
	return nil
}

// NodeMetadata returns the metadata map of the given node, or nil if the
// node is absent.
func (s *Store) NodeMetadata(id uint64) map[string]metadata.Value {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if n, ok := s.nodes[id]; ok {
		return n.Meta
	}
	return nil
}

// CollisionCount reports how many id collisions Insert has observed, for
// diagnostics / tests.
func (s *Store) CollisionCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collisionCounter
}

// Clear resets the store to empty, matching Callgraph::clear().
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nodes = map[uint64]*Node{}
	s.nameIndex = map[string][]uint64{}
	s.edges = map[edgeKey]*Edge{}
	s.callees = map[uint64][]uint64{}
	s.callers = map[uint64][]uint64{}
	s.GraphMeta = map[string]metadata.Value{}
	s.mainNode = nil
}
