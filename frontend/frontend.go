// Package frontend defines the abstract AST trait the core consumes (spec
// §6 "Frontend interface"). The parser itself is explicitly out of scope of
// the core design — any source of the same tree shape satisfies this
// interface. The concrete adapter lives in frontend/treesitter.
package frontend

// DeclKind tags the variety of declaration a Decl represents.
type DeclKind int

const (
	DeclFunction DeclKind = iota
	DeclMethod
	DeclConstructor
	DeclDestructor
	DeclVar
	DeclField
	DeclParam
	DeclTypedef
)

// ExprKind tags the variety of expression an Expr represents.
type ExprKind int

const (
	ExprCall ExprKind = iota
	ExprConstruct
	ExprNew
	ExprDelete
	ExprThis
	ExprMember
	ExprDeclRef
	ExprUnaryOp
	ExprBinaryOp
	ExprSubscript
	ExprMaterializeTemp
	ExprBindTemp
	ExprDefaultInit
	ExprDefaultArg
)

// Location is a begin/end offset pair in the expansion source, used to seed
// object-name location hashes (spec §4.1).
type Location struct {
	Begin, End int
	// MacroArgSpelling disambiguates token-paste duplicates produced by
	// macro argument expansion; empty when not inside a macro argument.
	MacroArgSpelling string
}

// Decl is a declaration node: function, method, constructor/destructor,
// variable, field, or parameter.
type Decl interface {
	Kind() DeclKind
	// MangledNames returns every standard-mangled symbol this decl is
	// callable under. Constructors/destructors report multiple variants
	// (complete, base, deleting, comdat); ordinary functions report one.
	MangledNames() []string
	Name() string
	Origin() string
	Location() Location
	Params() []Decl
	Body() []Expr
	// Overrides lists the methods this method overrides, if any (spec §4.4
	// "Virtual overrides").
	Overrides() []Decl
	ParentRecord() Decl
	IsStatic() bool
	IsVariadic() bool
	HasBody() bool
	// Stats reports the structural facts the built-in collectors attach as
	// metadata: statement/branch counts, loop nesting, operation tallies,
	// and the other figures a per-function static analysis pass derives by
	// walking a function's body. A frontend that cannot determine one of
	// these cheaply may return its zero value; collectors attach the value
	// as reported, so such a zero is indistinguishable from a real zero.
	Stats() DeclStats
}

// OperationCounts tallies the kinds of operation a function body performs.
type OperationCounts struct {
	IntOps         int
	FloatOps       int
	ControlFlowOps int
	MemoryAccesses int
}

// DeclStats bundles the structural facts collectors turn into metadata.
// Grouping them on Decl lets a frontend compute everything in one pass over
// its own concrete AST, rather than forcing the core trait to expose a
// full statement tree just to support a handful of derived counts.
type DeclStats struct {
	NumStatements          int
	NumVars                int
	LoopDepth              int
	NumConditionalBranches int
	Operations             OperationCounts
	// MallocAllocs maps a variable name to the source text of the
	// declaration that initializes it with the result of
	// malloc/calloc/realloc or `new`.
	MallocAllocs map[string]string
	UniqueTypes  int
}

// Expr is an expression node.
type Expr interface {
	Kind() ExprKind
	Location() Location
	SubExprs() []Expr
	// Operator returns the operator token for unary/binary ops (e.g. "*",
	// "&", "=", "->").
	Operator() string
	// ReferencedDecl returns the decl a decl-ref/member/this expression
	// names.
	ReferencedDecl() Decl
	// CalledDecl returns the statically known callee of a direct call or
	// construct expression, or nil for an indirect call.
	CalledDecl() Decl
}
