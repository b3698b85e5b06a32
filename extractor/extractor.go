// Package extractor implements the AST Information Extractor (component
// C4): one depth-first walk per translation unit that records objects,
// assignments, direct/indirect calls, and prefix-initialization facts,
// without performing any merging itself (that is the solver's job).
//
// Grounded on
// original_source/cgcollector/lib/include/AliasAnalysis.h's
// ASTInformationExtractor and its companion .cpp's visitor methods —
// reshaped to consume the frontend trait (frontend.Decl/frontend.Expr)
// instead of a Clang RecursiveASTVisitor, since the parser itself is out
// of the core's scope (spec §1).
package extractor

import (
	"fmt"
	"strings"

	"github.com/viant/metacg/frontend"
	"github.com/viant/metacg/objectname"
	"github.com/viant/metacg/resolver"
	"github.com/viant/metacg/solver"
)

// FunctionFact is everything C4 records about one function declaration.
type FunctionFact struct {
	ID      objectname.ID
	Name    string
	Origin  string
	HasBody bool
	Info    *solver.FunctionInfo
}

// PrefixFact is one prefix-initialization obligation (spec §4.5 rules 1-2).
type PrefixFact struct {
	Object objectname.ID
	Prefix solver.Prefix
}

// CallFact is everything C4 records about one call expression.
type CallFact struct {
	CallSite objectname.ID
	Info     *solver.CallInfo
}

// Assignment is one LHS := {RHS...} constraint (spec §4.4 "Constraints
// recorded").
type Assignment struct {
	LHS objectname.ID
	RHS []objectname.ID
}

// OverrideFact records one (overriding method, overridden method) pair
// discovered via frontend.Decl.Overrides(), for the OverrideMD per-graph
// collector (package collectors) to attach to the finished graph (spec §8
// scenario 3).
type OverrideFact struct {
	Method objectname.ID
	Base   objectname.ID
}

// Program is the complete set of facts extracted from one translation
// unit, ready to be seeded into a solver.Solver.
type Program struct {
	Functions   map[objectname.ID]*FunctionFact
	Prefixes    []PrefixFact
	Calls       []CallFact
	Assignments []Assignment
	Overrides   []OverrideFact
}

// Extractor walks a translation unit's top-level declarations.
type Extractor struct{}

// New creates an Extractor.
func New() *Extractor { return &Extractor{} }

// Extract walks every decl (expected to be the function/method definitions
// of one translation unit, as returned by a frontend.Inspector) and
// produces the Program of facts the solver needs. Two passes: every
// function is registered before any body is walked, so a decl-ref naming a
// function defined later in the TU still resolves to its function identity.
func (e *Extractor) Extract(decls []frontend.Decl) *Program {
	prog := &Program{Functions: map[objectname.ID]*FunctionFact{}}
	for _, d := range decls {
		e.registerFunction(d, prog)
	}
	for _, d := range decls {
		e.walkFunctionBody(d, prog)
	}
	e.bindLambdaInvokers(prog)
	return prog
}

// bindLambdaInvokers emits the lambda static-invoker obligations: a
// captureless lambda's __invoke and its operator() are interchangeable
// call targets, so their identities and their parameters merge pairwise. A
// call site reaching either identity's class then yields edges to both.
func (e *Extractor) bindLambdaInvokers(prog *Program) {
	const invokeSuffix = "::__invoke"
	for id, fn := range prog.Functions {
		if !strings.HasSuffix(fn.Name, invokeSuffix) {
			continue
		}
		opID := objectname.DeclID(strings.TrimSuffix(fn.Name, invokeSuffix) + "::operator()")
		op, ok := prog.Functions[opID]
		if !ok {
			continue
		}
		prog.Assignments = append(prog.Assignments, Assignment{LHS: id, RHS: []objectname.ID{opID}})
		n := len(fn.Info.Parameters)
		if len(op.Info.Parameters) < n {
			n = len(op.Info.Parameters)
		}
		for i := 0; i < n; i++ {
			prog.Assignments = append(prog.Assignments, Assignment{
				LHS: fn.Info.Parameters[i],
				RHS: []objectname.ID{op.Info.Parameters[i]},
			})
		}
	}
}

func refKey(r objectname.Ref) objectname.ID { return objectname.ID(r.String()) }

func (e *Extractor) registerFunction(d frontend.Decl, prog *Program) {
	fnID := objectname.DeclID(d.Name())

	var params []objectname.ID
	for i, p := range d.Params() {
		params = append(params, paramObjectID(fnID, d.Name(), p, i))
	}

	variadic := d.IsVariadic()
	symbolicReturn := objectname.SymbolicReturnID(fnID)

	fact := &FunctionFact{
		ID:      fnID,
		Name:    d.Name(),
		Origin:  d.Origin(),
		HasBody: d.HasBody(),
		Info: &solver.FunctionInfo{
			MangledNames: d.MangledNames(),
			Parameters:   params,
			Variadic:     variadic,
			ReturnRefs:   []objectname.ID{symbolicReturn},
		},
	}
	prog.Functions[fnID] = fact
}

func (e *Extractor) walkFunctionBody(d frontend.Decl, prog *Program) {
	fnID := objectname.DeclID(d.Name())
	symbolicReturn := objectname.SymbolicReturnID(fnID)

	isMember := d.Kind() == frontend.DeclMethod || d.Kind() == frontend.DeclConstructor || d.Kind() == frontend.DeclDestructor
	var thisID objectname.ID
	if isMember && !d.IsStatic() {
		thisID = objectname.ThisID(fnID)
	}

	for _, base := range d.Overrides() {
		recordOverride(d, fnID, thisID, symbolicReturn, base, prog)
	}

	ctx := &fnContext{fnID: fnID, thisID: thisID, prog: prog}
	for _, expr := range d.Body() {
		ctx.walkExpr(expr)
	}
}

// recordOverride implements spec §4.4 "Virtual overrides": for every
// overridden method, a this-merge obligation, a param-merge obligation per
// parameter, and a symbolic-return-merge obligation, expressed as plain
// Assignment facts so Seed's existing Union-driving loop resolves them the
// same way it resolves ordinary assignments. It also records the
// (overrider, overridden) pair for the OverrideMD per-graph collector
// (package collectors) to attach to the finished graph.
func recordOverride(d frontend.Decl, fnID, thisID, symbolicReturn objectname.ID, base frontend.Decl, prog *Program) {
	baseID := objectname.DeclID(base.Name())
	prog.Overrides = append(prog.Overrides, OverrideFact{Method: fnID, Base: baseID})

	if thisID != "" {
		baseThis := objectname.ThisID(baseID)
		prog.Assignments = append(prog.Assignments, Assignment{LHS: thisID, RHS: []objectname.ID{baseThis}})
	}

	params := d.Params()
	baseParams := base.Params()
	n := len(params)
	if len(baseParams) < n {
		n = len(baseParams)
	}
	for i := 0; i < n; i++ {
		paramID := paramObjectID(fnID, d.Name(), params[i], i)
		baseParamID := paramObjectID(baseID, base.Name(), baseParams[i], i)
		prog.Assignments = append(prog.Assignments, Assignment{LHS: paramID, RHS: []objectname.ID{baseParamID}})
	}

	baseReturn := objectname.SymbolicReturnID(baseID)
	prog.Assignments = append(prog.Assignments, Assignment{LHS: symbolicReturn, RHS: []objectname.ID{baseReturn}})
}

// paramObjectID composes the object-name identity for a function's i-th
// parameter, shared between the main extraction pass and the override
// binding above so both land on the same id for the same parameter.
func paramObjectID(fnID objectname.ID, fnName string, p frontend.Decl, i int) objectname.ID {
	if p.Name() != "" {
		return objectname.DeclID(fmt.Sprintf("%s::%s", fnName, p.Name()))
	}
	return objectname.UnnamedParamID(fnID, i)
}

// fnContext accumulates facts while walking one function's body.
type fnContext struct {
	fnID   objectname.ID
	thisID objectname.ID
	prog   *Program
}

// ref translates a frontend.Expr into its object reference, applying the
// deref-level bookkeeping rules of spec §4.4: unary `&` decrements, unary
// `*` (and subscript) increments, arrow member access increases the base
// level by 1 before forming the member id.
func (c *fnContext) ref(e frontend.Expr) objectname.Ref {
	switch e.Kind() {
	case frontend.ExprThis:
		return objectname.Ref{Base: c.thisID, Level: 0}
	case frontend.ExprDeclRef:
		if rd := e.ReferencedDecl(); rd != nil {
			// A name that matches a known function resolves to the
			// function identity itself, so `&g` and `table = {&f, &g}`
			// bind the function, not a scoped shadow object. Locals win
			// only by not colliding with a function name — acceptable
			// over-approximation for a frontend without scope resolution.
			if global := objectname.DeclID(rd.Name()); c.prog.Functions[global] != nil {
				return objectname.Ref{Base: global, Level: 0}
			}
			return objectname.Ref{Base: objectname.DeclID(fmt.Sprintf("%s::%s", c.fnID, rd.Name())), Level: 0}
		}
		return objectname.Ref{Base: objectname.DeclID(string(c.fnID) + "::<unknown>")}
	case frontend.ExprNew:
		loc := e.Location()
		n := objectname.NewID(c.fnID, loc.Begin, loc.End)
		// The allocated object sits at level 0; `new` itself evaluates to
		// the pointer, at level -1 (spec §4.5 edge-case policy).
		return objectname.Ref{Base: n, Level: -1}
	case frontend.ExprMember:
		subs := e.SubExprs()
		var base objectname.Ref
		if len(subs) > 0 {
			base = c.ref(subs[0])
		}
		if e.Operator() == "->" {
			base = base.Deref()
		}
		member := "<unknown>"
		if rd := e.ReferencedDecl(); rd != nil {
			member = rd.Name()
		}
		memberID := objectname.MemberID(base, objectname.DeclID(member))
		c.prog.Prefixes = append(c.prog.Prefixes, PrefixFact{
			Object: refKey(objectname.Ref{Base: base.Base, Level: base.Level}),
			Prefix: solver.Prefix{Object: memberID, Member: member},
		})
		return objectname.Ref{Base: memberID, Level: 0}
	case frontend.ExprUnaryOp:
		subs := e.SubExprs()
		if len(subs) == 0 {
			return objectname.Ref{}
		}
		base := c.ref(subs[0])
		switch e.Operator() {
		case "&":
			// A function designator already decays to a pointer value;
			// `&g` and `g` denote the same thing for a function g.
			if base.Level == 0 && c.prog.Functions[refKey(base)] != nil {
				return base
			}
			return base.AddrOf()
		default: // "*" and other unary deref spellings
			result := base.Deref()
			c.prog.Prefixes = append(c.prog.Prefixes, PrefixFact{
				Object: refKey(result),
				Prefix: solver.Prefix{Object: refKey(base), Member: ""},
			})
			return result
		}
	case frontend.ExprSubscript:
		subs := e.SubExprs()
		if len(subs) == 0 {
			return objectname.Ref{}
		}
		base := c.ref(subs[0])
		result := base.Deref()
		c.prog.Prefixes = append(c.prog.Prefixes, PrefixFact{
			Object: refKey(result),
			Prefix: solver.Prefix{Object: refKey(base), Member: ""},
		})
		return result
	case frontend.ExprMaterializeTemp, frontend.ExprBindTemp:
		loc := e.Location()
		return objectname.Ref{Base: objectname.MaterializedTempID(c.fnID, loc.Begin, loc.End)}
	case frontend.ExprCall, frontend.ExprConstruct:
		loc := e.Location()
		return objectname.Ref{Base: objectname.CallSiteID(c.fnID, loc.Begin, loc.End, loc.MacroArgSpelling)}
	default:
		subs := e.SubExprs()
		if len(subs) > 0 {
			return c.ref(subs[0])
		}
		return objectname.Ref{}
	}
}

// walkExpr records the constraints described by spec §4.4 for e and
// recurses into its sub-expressions.
func (c *fnContext) walkExpr(e frontend.Expr) {
	switch e.Kind() {
	case frontend.ExprBinaryOp:
		if isAssignmentOp(e.Operator()) {
			subs := e.SubExprs()
			if len(subs) >= 2 {
				rhs := make([]objectname.ID, 0, len(subs)-1)
				for _, sub := range subs[1:] {
					rhs = append(rhs, refKey(c.ref(sub)))
				}
				lhs := c.ref(subs[0])
				if len(subs) > 2 {
					// Aggregate initializer: the sources initialize the
					// elements, one deref step below the aggregate itself,
					// so `table = {&f, &g}` makes `table[i]` alias f and g.
					element := lhs.Deref()
					c.prog.Prefixes = append(c.prog.Prefixes, PrefixFact{
						Object: refKey(element),
						Prefix: solver.Prefix{Object: refKey(lhs), Member: ""},
					})
					lhs = element
				}
				c.prog.Assignments = append(c.prog.Assignments, Assignment{
					LHS: refKey(lhs),
					RHS: rhs,
				})
			}
		}
	case frontend.ExprCall:
		c.recordCall(e, false)
	case frontend.ExprConstruct:
		c.recordCall(e, true)
	case frontend.ExprNew:
		// The allocated object and its returned pointer both enter the
		// universe as soon as `new` is referenced from anywhere (e.g. an
		// assignment); nothing further to record standalone.
	}
	for _, sub := range e.SubExprs() {
		c.walkExpr(sub)
	}
}

func isAssignmentOp(op string) bool {
	switch op {
	case "=", "+=", "-=", "*=", "/=", "%=", "&=", "|=", "^=", "<<=", ">>=":
		return true
	default:
		return false
	}
}

// recordCall handles both direct calls (CalledDecl() resolved statically)
// and indirect calls (callee known only as an object reference), per spec
// §4.4 "Direct call" / "Indirect call".
func (c *fnContext) recordCall(e frontend.Expr, isConstruct bool) {
	loc := e.Location()
	callSite := objectname.CallSiteID(c.fnID, loc.Begin, loc.End, loc.MacroArgSpelling)

	subs := e.SubExprs()
	var argExprs []frontend.Expr
	var callees []objectname.ID

	if called := e.CalledDecl(); called != nil {
		callees = append(callees, objectname.DeclID(called.Name()))
		argExprs = subs
		if !isConstruct && len(subs) > 0 {
			// subs[0] is the callee-naming expression itself for a call
			// through an identifier/member; the remainder are the actual
			// arguments. The identifier may name a function directly or a
			// function-pointer variable — the frontend cannot tell the two
			// apart, so both the global function identity and the
			// function-scoped object go in as callee candidates; whichever
			// never materializes is skipped at binding time.
			if subs[0].Kind() == frontend.ExprDeclRef || subs[0].Kind() == frontend.ExprMember {
				if local := refKey(c.ref(subs[0])); local != callees[0] {
					callees = append(callees, local)
				}
			}
			argExprs = subs[1:]
		}
	} else if len(subs) > 0 {
		callees = append(callees, refKey(c.ref(subs[0])))
		argExprs = subs[1:]
	} else {
		return
	}

	args := make([][]objectname.ID, 0, len(argExprs))
	for _, a := range argExprs {
		args = append(args, []objectname.ID{refKey(c.ref(a))})
	}

	c.prog.Calls = append(c.prog.Calls, CallFact{
		CallSite: callSite,
		Info: &solver.CallInfo{
			ParentFn:  c.fnID,
			Callees:   callees,
			Arguments: args,
		},
	})
}

// Seed loads a Program into s and returns the resolver identity table built
// from every recorded function, ready to back a resolver.GraphSink.
func Seed(prog *Program, s *solver.Solver) map[objectname.ID]resolver.Identity {
	return seed(prog, s, true)
}

// SeedDirect loads only the function and call-site facts, skipping the
// prefix and assignment constraints that drive alias propagation. This is
// the `--alias-model none` mode: a call resolves only when its callee
// expression names a function identity directly.
func SeedDirect(prog *Program, s *solver.Solver) map[objectname.ID]resolver.Identity {
	return seed(prog, s, false)
}

func seed(prog *Program, s *solver.Solver, aliases bool) map[objectname.ID]resolver.Identity {
	identities := make(map[objectname.ID]resolver.Identity, len(prog.Functions))
	for id, fn := range prog.Functions {
		s.RegisterFunction(id, fn.Info)
		identities[id] = resolver.Identity{Name: fn.Name, Origin: fn.Origin, HasBody: fn.HasBody}
	}
	if aliases {
		for _, p := range prog.Prefixes {
			s.AddPrefix(p.Object, p.Prefix)
		}
	}
	for _, call := range prog.Calls {
		s.RegisterCall(call.CallSite, call.Info)
	}
	if aliases {
		for _, a := range prog.Assignments {
			for _, rhs := range a.RHS {
				s.Union(a.LHS, rhs)
			}
		}
	}
	return identities
}
