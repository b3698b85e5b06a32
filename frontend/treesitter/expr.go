package treesitter

import (
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/viant/metacg/frontend"
)

// exprNodeTypes maps tree-sitter cpp grammar node types to frontend.ExprKind.
// Node types not listed here are transparent: walkExprs recurses through
// them without emitting a node, matching spec §4.4's "deliberately skipped"
// syntactic-only constructs.
var exprNodeTypes = map[string]frontend.ExprKind{
	"call_expression":        frontend.ExprCall,
	"new_expression":         frontend.ExprNew,
	"delete_expression":      frontend.ExprDelete,
	"this":                   frontend.ExprThis,
	"field_expression":       frontend.ExprMember,
	"identifier":             frontend.ExprDeclRef,
	"qualified_identifier":   frontend.ExprDeclRef,
	"pointer_expression":     frontend.ExprUnaryOp,
	"unary_expression":       frontend.ExprUnaryOp,
	"binary_expression":      frontend.ExprBinaryOp,
	"assignment_expression":  frontend.ExprBinaryOp,
	"subscript_expression":   frontend.ExprSubscript,
	// A lambda expression used as a value denotes its closure's call
	// operator; the body itself is walked by the synthetic lambdaDecl,
	// not by the enclosing function.
	"lambda_expression": frontend.ExprDeclRef,
}

// walkExprs performs the one depth-first traversal described in spec §4.4,
// appending every recognized expression node it finds.
func walkExprs(ins *Inspector, n *sitter.Node, out *[]frontend.Expr) {
	if n == nil {
		return
	}
	if kind, ok := exprNodeTypes[n.Type()]; ok {
		*out = append(*out, &tsExpr{ins: ins, node: n, kind: kind})
		if n.Type() == "lambda_expression" {
			// The body belongs to the lambda's own decls; recursing here
			// would attribute its calls to the enclosing function.
			return
		}
	} else if n.Type() == "init_declarator" && n.ChildByFieldName("value") != nil {
		// A declarator with an initializer is an assignment in all but
		// syntax: surfaced as a binary "=" so the same constraint path
		// handles `int (*p)() = &g;` and `p = &g;` alike.
		*out = append(*out, &tsExpr{ins: ins, node: n, kind: frontend.ExprBinaryOp})
	}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		walkExprs(ins, n.NamedChild(i), out)
	}
}

// tsExpr adapts a tree-sitter expression node.
type tsExpr struct {
	ins  *Inspector
	node *sitter.Node
	kind frontend.ExprKind
}

func (e *tsExpr) Kind() frontend.ExprKind { return e.kind }

func (e *tsExpr) Location() frontend.Location {
	return frontend.Location{Begin: int(e.node.StartByte()), End: int(e.node.EndByte())}
}

func (e *tsExpr) SubExprs() []frontend.Expr {
	if e.node.Type() == "init_declarator" {
		return e.initDeclaratorSubExprs()
	}
	var out []frontend.Expr
	for i := 0; i < int(e.node.NamedChildCount()); i++ {
		child := e.node.NamedChild(i)
		if kind, ok := exprNodeTypes[child.Type()]; ok {
			out = append(out, &tsExpr{ins: e.ins, node: child, kind: kind})
			continue
		}
		// Transparent node (e.g. argument_list): descend one level so a
		// call's arguments still surface as direct sub-expressions.
		for j := 0; j < int(child.NamedChildCount()); j++ {
			grandchild := child.NamedChild(j)
			if kind, ok := exprNodeTypes[grandchild.Type()]; ok {
				out = append(out, &tsExpr{ins: e.ins, node: grandchild, kind: kind})
			}
		}
	}
	return out
}

// initDeclaratorSubExprs models `T x = init;` as [x, init...]: the declared
// name (dug out of however many pointer/function/parenthesized declarator
// layers wrap it) followed by each initializing expression — one for a
// plain initializer, one per element for a brace-initializer list, so an
// aggregate init binds every element source to the declared object.
func (e *tsExpr) initDeclaratorSubExprs() []frontend.Expr {
	var out []frontend.Expr
	if id := firstIdentifier(e.node.ChildByFieldName("declarator")); id != nil {
		out = append(out, &tsExpr{ins: e.ins, node: id, kind: frontend.ExprDeclRef})
	}
	value := e.node.ChildByFieldName("value")
	if value == nil {
		return out
	}
	if kind, ok := exprNodeTypes[value.Type()]; ok {
		return append(out, &tsExpr{ins: e.ins, node: value, kind: kind})
	}
	if value.Type() == "initializer_list" {
		for i := 0; i < int(value.NamedChildCount()); i++ {
			child := value.NamedChild(i)
			if kind, ok := exprNodeTypes[child.Type()]; ok {
				out = append(out, &tsExpr{ins: e.ins, node: child, kind: kind})
			}
		}
	}
	return out
}

// firstIdentifier finds the declared name inside a declarator subtree.
func firstIdentifier(n *sitter.Node) *sitter.Node {
	if n == nil {
		return nil
	}
	if n.Type() == "identifier" || n.Type() == "field_identifier" {
		return n
	}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		if found := firstIdentifier(n.NamedChild(i)); found != nil {
			return found
		}
	}
	return nil
}

func (e *tsExpr) Operator() string {
	if e.node.Type() == "init_declarator" {
		return "="
	}
	switch e.kind {
	case frontend.ExprUnaryOp, frontend.ExprBinaryOp:
		if op := e.node.ChildByFieldName("operator"); op != nil {
			return op.Content(e.ins.src)
		}
	case frontend.ExprMember:
		if op := e.node.ChildByFieldName("operator"); op != nil {
			return op.Content(e.ins.src)
		}
	}
	return ""
}

// ReferencedDecl resolves decl-ref/member/this expressions to a minimal
// synthetic Decl carrying just the name — the extractor only needs a stable
// name to compose an object-name identity from (spec §4.4), not the full
// declaration.
func (e *tsExpr) ReferencedDecl() frontend.Decl {
	switch e.kind {
	case frontend.ExprDeclRef:
		if e.node.Type() == "lambda_expression" {
			return &namedRefDecl{name: lambdaBaseName(e.node) + "::operator()", origin: e.ins.origin}
		}
		return &namedRefDecl{name: e.node.Content(e.ins.src), origin: e.ins.origin}
	case frontend.ExprMember:
		if field := e.node.ChildByFieldName("field"); field != nil {
			return &namedRefDecl{name: field.Content(e.ins.src), origin: e.ins.origin}
		}
	case frontend.ExprThis:
		return &namedRefDecl{name: "this", origin: e.ins.origin}
	}
	return nil
}

// CalledDecl reports the statically named callee of a direct call, or nil
// for an indirect call through a non-identifier expression (spec §4.4
// "Direct call" vs "Indirect call").
func (e *tsExpr) CalledDecl() frontend.Decl {
	if e.kind != frontend.ExprCall && e.kind != frontend.ExprConstruct {
		return nil
	}
	fn := e.node.ChildByFieldName("function")
	if fn == nil {
		return nil
	}
	switch fn.Type() {
	case "identifier", "qualified_identifier":
		return &namedRefDecl{name: fn.Content(e.ins.src), origin: e.ins.origin}
	case "field_expression":
		if field := fn.ChildByFieldName("field"); field != nil {
			return &namedRefDecl{name: field.Content(e.ins.src), origin: e.ins.origin}
		}
	}
	return nil
}

// namedRefDecl is a bare-name Decl used where the frontend can name a
// referenced symbol without resolving its full declaration.
type namedRefDecl struct {
	name, origin string
}

func (n *namedRefDecl) Kind() frontend.DeclKind        { return frontend.DeclVar }
func (n *namedRefDecl) MangledNames() []string         { return []string{n.name} }
func (n *namedRefDecl) Name() string                   { return n.name }
func (n *namedRefDecl) Origin() string                 { return n.origin }
func (n *namedRefDecl) Location() frontend.Location    { return frontend.Location{} }
func (n *namedRefDecl) Params() []frontend.Decl        { return nil }
func (n *namedRefDecl) Body() []frontend.Expr          { return nil }
func (n *namedRefDecl) Overrides() []frontend.Decl     { return nil }
func (n *namedRefDecl) ParentRecord() frontend.Decl    { return nil }
func (n *namedRefDecl) IsStatic() bool                 { return false }
func (n *namedRefDecl) IsVariadic() bool               { return false }
func (n *namedRefDecl) HasBody() bool                  { return false }
func (n *namedRefDecl) Stats() frontend.DeclStats      { return frontend.DeclStats{} }
