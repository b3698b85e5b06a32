package treesitter

import (
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/cpp"

	"github.com/viant/metacg/frontend"
)

// statsOf runs the statVisitor over an arbitrary body node, shared between
// funcDecl.Stats and the synthetic lambda decls.
func statsOf(ins *Inspector, body *sitter.Node) frontend.DeclStats {
	if body == nil {
		return frontend.DeclStats{}
	}
	s := &statVisitor{ins: ins, mallocAllocs: map[string]string{}, types: map[string]bool{}}
	s.walk(body, 0)
	return frontend.DeclStats{
		NumStatements:          s.numStatements,
		NumVars:                s.numVars,
		LoopDepth:              s.maxLoopDepth,
		NumConditionalBranches: s.numConditionalBranches,
		Operations:             s.ops,
		MallocAllocs:           s.mallocAllocs,
		UniqueTypes:            len(s.types),
	}
}

// lambdaDecl is a synthetic declaration for one lambda expression. Each
// lambda surfaces twice, the way a frontend with full semantic information
// would present a closure type: once as its call operator and once as the
// static invoker a captureless lambda converts to a function pointer
// through. Both share the lambda's parameter list; the extractor unifies
// their identities so a call through either reaches both.
type lambdaDecl struct {
	ins     *Inspector
	node    *sitter.Node
	invoker bool
}

func lambdaBaseName(n *sitter.Node) string {
	return fmt.Sprintf("__lambda_%d_%d", n.StartByte(), n.EndByte())
}

func (l *lambdaDecl) Kind() frontend.DeclKind {
	if l.invoker {
		return frontend.DeclFunction
	}
	return frontend.DeclMethod
}

func (l *lambdaDecl) Name() string {
	if l.invoker {
		return lambdaBaseName(l.node) + "::__invoke"
	}
	return lambdaBaseName(l.node) + "::operator()"
}

func (l *lambdaDecl) MangledNames() []string {
	return []string{fmt.Sprintf("%s(%d)", l.Name(), len(l.Params()))}
}

func (l *lambdaDecl) Origin() string { return l.ins.origin }

func (l *lambdaDecl) Location() frontend.Location {
	return frontend.Location{Begin: int(l.node.StartByte()), End: int(l.node.EndByte())}
}

func (l *lambdaDecl) Params() []frontend.Decl {
	paramsNode := findParameterList(l.node.ChildByFieldName("declarator"))
	if paramsNode == nil {
		return nil
	}
	var params []frontend.Decl
	for i := 0; i < int(paramsNode.NamedChildCount()); i++ {
		child := paramsNode.NamedChild(i)
		if child.Type() != "parameter_declaration" {
			continue
		}
		params = append(params, &paramDecl{ins: l.ins, node: child, index: i})
	}
	return params
}

// Body is only surfaced on the call operator; the invoker is a synthetic
// forwarding stub and walking the same body twice would double every
// constraint and call fact inside it.
func (l *lambdaDecl) Body() []frontend.Expr {
	if l.invoker {
		return nil
	}
	body := l.node.ChildByFieldName("body")
	if body == nil {
		return nil
	}
	var exprs []frontend.Expr
	walkExprs(l.ins, body, &exprs)
	return exprs
}

func (l *lambdaDecl) Overrides() []frontend.Decl  { return nil }
func (l *lambdaDecl) ParentRecord() frontend.Decl { return nil }
func (l *lambdaDecl) IsStatic() bool              { return l.invoker }
func (l *lambdaDecl) IsVariadic() bool            { return false }
func (l *lambdaDecl) HasBody() bool               { return !l.invoker }

func (l *lambdaDecl) Stats() frontend.DeclStats {
	if l.invoker {
		return frontend.DeclStats{}
	}
	return statsOf(l.ins, l.node.ChildByFieldName("body"))
}

// findParameterList digs the parameter_list out of however the grammar
// nests the lambda's declarator (abstract_function_declarator wrapping, or
// none at all for a parameterless lambda).
func findParameterList(n *sitter.Node) *sitter.Node {
	if n == nil {
		return nil
	}
	if n.Type() == "parameter_list" {
		return n
	}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		if found := findParameterList(n.NamedChild(i)); found != nil {
			return found
		}
	}
	return nil
}

// collectLambdas finds every lambda_expression in the translation unit and
// synthesizes its call-operator and static-invoker decls.
func (ins *Inspector) collectLambdas(root *sitter.Node) []frontend.Decl {
	q, err := sitter.NewQuery([]byte("(lambda_expression) @lambda"), cpp.GetLanguage())
	if err != nil {
		return nil
	}
	cursor := sitter.NewQueryCursor()
	cursor.Exec(q, root)
	var decls []frontend.Decl
	for {
		match, ok := cursor.NextMatch()
		if !ok {
			break
		}
		for _, capture := range match.Captures {
			decls = append(decls,
				&lambdaDecl{ins: ins, node: capture.Node, invoker: false},
				&lambdaDecl{ins: ins, node: capture.Node, invoker: true})
		}
	}
	return decls
}
