// Package solver implements the equivalence-class solver (component C5),
// the central algorithm of the system: Steensgaard-style alias analysis
// extended with member/dereference prefix classes and function-call
// parameter/return binding.
//
// Grounded directly on
// original_source/cgcollector/lib/include/AliasAnalysis.h's
// EquivClass/Prefix/FunctionInfo/CallInfo/EquivClassContainer and its
// mergeRecurisve/merge/GetFunctionsToMerge/mergeFunctionCall free
// functions — reshaped from C++'s recursive merge cascade into an explicit
// worklist per spec §9 ("Recursive merge cascade is reshaped from
// recursion to a worklist to bound stack depth").
package solver

import (
	"log/slog"

	"github.com/viant/metacg/objectname"
)

// Prefix describes "this class is reachable by dereferencing, or
// member-accessing, Object" (spec §3 "Prefix"). An empty Member encodes a
// pure deref step.
type Prefix struct {
	Object objectname.ID
	Member string
}

// EquivClass is a non-empty set of object names believed to alias the same
// memory, plus its prefix set (spec §3 "Equivalence class").
type EquivClass struct {
	Objects  []objectname.ID
	Prefixes []Prefix
}

// FunctionInfo is the auxiliary record carrying a function's parameter
// list, symbolic/referenced return objects, and variadic flag (spec §3
// "Function info").
type FunctionInfo struct {
	MangledNames []string
	Parameters   []objectname.ID
	ReturnRefs   []objectname.ID
	Variadic     bool
}

// CallInfo is the auxiliary record carrying a call site's callee
// references and per-argument source sets (spec §3 "Call info").
type CallInfo struct {
	ParentFn  objectname.ID
	Callees   []objectname.ID
	Arguments [][]objectname.ID
}

// EdgeSink receives a caller→callee binding each time the solver resolves
// one (component C6 inserts edges; the solver only requests them).
type EdgeSink interface {
	AddCallEdge(callerFn, calleeFn objectname.ID)
}

type obligation struct{ A, B objectname.ID }

// Solver holds the full equivalence-class state for one translation unit.
type Solver struct {
	classes    map[int64]*EquivClass
	find       map[objectname.ID]int64
	nextHandle int64

	functions         map[objectname.ID]*FunctionInfo
	calls             map[objectname.ID]*CallInfo
	referencedInCalls map[objectname.ID][]objectname.ID // object -> call sites that reference it as callee

	bindingCache map[string]bool
	queue        []obligation

	sink EdgeSink
}

// New creates an empty solver. sink receives resolved call edges; pass nil
// to run the solver without edge emission (e.g. in isolated tests of the
// class structure).
func New(sink EdgeSink) *Solver {
	return &Solver{
		classes:           map[int64]*EquivClass{},
		find:              map[objectname.ID]int64{},
		functions:         map[objectname.ID]*FunctionInfo{},
		calls:             map[objectname.ID]*CallInfo{},
		referencedInCalls: map[objectname.ID][]objectname.ID{},
		bindingCache:      map[string]bool{},
		sink:              sink,
	}
}

// RegisterObject ensures id has an initial singleton class, per spec §4.5
// "Initial state".
func (s *Solver) RegisterObject(id objectname.ID) { s.ensureSingleton(id) }

// AddPrefix attaches a prefix to id's current class, applying spec §4.5's
// prefix-initialization rules 1 and 2. Call this once per recorded object
// during AST extraction, before any merges are requested.
func (s *Solver) AddPrefix(id objectname.ID, p Prefix) {
	h := s.ensureSingleton(id)
	c := s.classes[h]
	for _, existing := range c.Prefixes {
		if existing == p {
			return
		}
	}
	c.Prefixes = append(c.Prefixes, p)
}

// RegisterFunction records fn's FunctionInfo, keyed by one of its own
// mangled-name object ids (the canonical one the extractor chose to
// identify it by).
func (s *Solver) RegisterFunction(fn objectname.ID, info *FunctionInfo) {
	h := s.ensureSingleton(fn)
	s.functions[fn] = info
	// A call site may already reference this function's class (registered
	// before or after, order is unspecified) — resolve immediately rather
	// than waiting for a merge event that may never happen.
	s.bindFunctionCalls(h)
}

// RegisterCall records a call site's CallInfo and indexes its callee
// references, mirroring EquivClassContainer::InitReferencedInCalls.
func (s *Solver) RegisterCall(callSite objectname.ID, info *CallInfo) {
	s.ensureSingleton(callSite)
	s.calls[callSite] = info
	for _, callee := range info.Callees {
		s.referencedInCalls[callee] = append(s.referencedInCalls[callee], callSite)
		s.bindFunctionCalls(s.ensureSingleton(callee))
	}
}

func (s *Solver) ensureSingleton(id objectname.ID) int64 {
	if h, ok := s.find[id]; ok {
		return h
	}
	h := s.nextHandle
	s.nextHandle++
	s.classes[h] = &EquivClass{Objects: []objectname.ID{id}}
	s.find[id] = h
	return h
}

// Find returns the current equivalence class containing id.
func (s *Solver) Find(id objectname.ID) *EquivClass {
	h, ok := s.find[id]
	if !ok {
		return nil
	}
	return s.classes[h]
}

// Union requests that a and b's classes be merged, then drains the
// resulting worklist to a fixed point (spec §4.5 "Driver").
func (s *Solver) Union(a, b objectname.ID) {
	s.queue = append(s.queue, obligation{A: a, B: b})
	s.drain()
}

func (s *Solver) drain() {
	for len(s.queue) > 0 {
		ob := s.queue[0]
		s.queue = s.queue[1:]
		s.mergeOne(ob.A, ob.B)
	}
}

// mergeOne implements the core `merge` primitive (spec §4.5 steps 1-6).
func (s *Solver) mergeOne(a, b objectname.ID) {
	ha := s.ensureSingleton(a)
	hb := s.ensureSingleton(b)
	if ha == hb {
		// Self-merge is a no-op (spec §4.5 edge-case policy).
		return
	}
	c1, c2 := s.classes[ha], s.classes[hb]

	// Step 4: prefixes describing the same access shape across the two
	// classes emit recursive merge obligations before we finish building
	// the merged class.
	for _, p1 := range c1.Prefixes {
		for _, p2 := range c2.Prefixes {
			if p1.Member == p2.Member {
				s.queue = append(s.queue, obligation{A: p1.Object, B: p2.Object})
			}
		}
	}

	merged := &EquivClass{
		Objects:  append(append([]objectname.ID{}, c1.Objects...), c2.Objects...),
		Prefixes: dedupePrefixes(c1.Prefixes, c2.Prefixes),
	}

	handle := s.nextHandle
	s.nextHandle++
	delete(s.classes, ha)
	delete(s.classes, hb)
	s.classes[handle] = merged
	for _, o := range merged.Objects {
		s.find[o] = handle
	}

	// Step 5/6: function-call binding for every (function, referencing
	// call site) pair now sharing this class.
	s.bindFunctionCalls(handle)
}

func dedupePrefixes(a, b []Prefix) []Prefix {
	out := make([]Prefix, 0, len(a)+len(b))
	seen := map[Prefix]bool{}
	for _, p := range append(append([]Prefix{}, a...), b...) {
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	return out
}

// bindFunctionCalls is the Call-Edge Resolver's hook into the solver (spec
// §4.6): it walks the merged class, pairs each function identity with each
// call site that references the class as its callee, and performs function
// call binding at most once per (function, call site) pair.
func (s *Solver) bindFunctionCalls(handle int64) {
	c := s.classes[handle]

	var callSites []objectname.ID
	for _, o := range c.Objects {
		callSites = append(callSites, s.referencedInCalls[o]...)
	}
	if len(callSites) == 0 {
		return
	}

	for _, o := range c.Objects {
		info, ok := s.functions[o]
		if !ok {
			continue
		}
		for _, callSite := range callSites {
			s.bindFunctionCall(o, info, callSite)
		}
	}
}

// bindFunctionCall implements spec §4.5 "Function-call binding": parameter
// merges, return-value merges, and the caller→callee edge, applied at most
// once per (callee, call site) pair (step 5 of merge / the process-wide
// cache in the original).
func (s *Solver) bindFunctionCall(fn objectname.ID, info *FunctionInfo, callSite objectname.ID) {
	key := string(fn) + "|" + string(callSite)
	if s.bindingCache[key] {
		return
	}
	s.bindingCache[key] = true

	call, ok := s.calls[callSite]
	if !ok {
		return
	}

	n := len(info.Parameters)
	if len(call.Arguments) < n {
		n = len(call.Arguments)
	}
	for i := 0; i < n; i++ {
		for _, argRef := range call.Arguments[i] {
			s.queue = append(s.queue, obligation{A: argRef, B: info.Parameters[i]})
		}
	}
	if !info.Variadic && len(call.Arguments) > len(info.Parameters) {
		slog.Debug("call site passes more arguments than the callee declares; extra arguments ignored",
			"callee", fn, "callSite", callSite)
	} else if info.Variadic && len(call.Arguments) > len(info.Parameters) {
		slog.Debug("variadic surplus arguments are not bound to any parameter class", "callee", fn, "callSite", callSite)
	}

	for _, retRef := range info.ReturnRefs {
		s.queue = append(s.queue, obligation{A: retRef, B: callSite})
	}

	if s.sink != nil && call.ParentFn != "" {
		s.sink.AddCallEdge(call.ParentFn, fn)
	}
}

// Drain runs the worklist to completion without adding a new obligation
// first; used after all RegisterObject/RegisterCall/AddPrefix calls and
// initial constraint unions have been queued via Union, to make sure every
// already-enqueued obligation up to this point is fully processed before
// the caller inspects Find results.
func (s *Solver) Drain() { s.drain() }
