package treesitter

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/viant/metacg/frontend"
)

// statementNodeTypes are the tree-sitter cpp grammar node types counted as
// one statement each: every executable statement, not its enclosing block.
var statementNodeTypes = map[string]bool{
	"expression_statement": true,
	"declaration":           true,
	"return_statement":      true,
	"if_statement":          true,
	"for_statement":         true,
	"for_range_loop":        true,
	"while_statement":       true,
	"do_statement":          true,
	"switch_statement":      true,
	"case_statement":        true,
	"break_statement":       true,
	"continue_statement":    true,
	"labeled_statement":     true,
	"goto_statement":        true,
}

var loopNodeTypes = map[string]bool{
	"for_statement":  true,
	"for_range_loop": true,
	"while_statement": true,
	"do_statement":    true,
}

var conditionalNodeTypes = map[string]bool{
	"if_statement":         true,
	"switch_statement":     true,
	"case_statement":       true,
	"conditional_expression": true,
}

// statVisitor accumulates the figures funcDecl.Stats reports — statement and
// branch counts, loop nesting, operation tallies, declared-variable count,
// heap-allocation assignments, and distinct declared types — in one
// recursive descent over a function body.
type statVisitor struct {
	ins *Inspector

	numStatements          int
	numVars                int
	maxLoopDepth           int
	numConditionalBranches int
	ops                    frontend.OperationCounts
	mallocAllocs           map[string]string
	types                  map[string]bool
}

func (s *statVisitor) walk(n *sitter.Node, loopDepth int) {
	if n == nil {
		return
	}
	typ := n.Type()

	if statementNodeTypes[typ] {
		s.numStatements++
	}
	if conditionalNodeTypes[typ] {
		s.numConditionalBranches++
	}
	if typ == "goto_statement" || conditionalNodeTypes[typ] || loopNodeTypes[typ] {
		s.ops.ControlFlowOps++
	}

	nextDepth := loopDepth
	if loopNodeTypes[typ] {
		nextDepth = loopDepth + 1
		if nextDepth > s.maxLoopDepth {
			s.maxLoopDepth = nextDepth
		}
	}

	switch typ {
	case "declaration", "field_declaration", "parameter_declaration":
		s.numVars++
		s.recordDeclaredType(n)
		s.recordAllocInit(n)
	case "binary_expression", "assignment_expression", "update_expression":
		s.classifyOperation(n)
	case "pointer_expression", "subscript_expression":
		s.ops.MemoryAccesses++
	case "field_expression":
		if op := n.ChildByFieldName("operator"); op != nil && op.Content(s.ins.src) == "->" {
			s.ops.MemoryAccesses++
		}
	case "new_expression":
		s.ops.MemoryAccesses++
	}

	for i := 0; i < int(n.NamedChildCount()); i++ {
		s.walk(n.NamedChild(i), nextDepth)
	}
}

// recordDeclaredType records the spelled type of a declaration/parameter,
// approximating the set of distinct types referenced in the body. Without
// semantic type resolution, the surface spelling stands in for the
// canonical type — unique-enough within one translation unit.
func (s *statVisitor) recordDeclaredType(n *sitter.Node) {
	ty := n.ChildByFieldName("type")
	if ty == nil {
		return
	}
	spelling := strings.TrimSpace(ty.Content(s.ins.src))
	if spelling != "" {
		s.types[spelling] = true
	}
}

// recordAllocInit detects `T* v = (T*) malloc(...)`/`calloc`/`realloc` and
// `T* v = new T(...)` initializers.
func (s *statVisitor) recordAllocInit(n *sitter.Node) {
	declarator := n.ChildByFieldName("declarator")
	if declarator == nil {
		return
	}
	name, init := declInitializer(declarator, s.ins.src)
	if name == "" || init == nil {
		return
	}
	if isAllocExpr(init, s.ins.src) {
		s.mallocAllocs[name] = strings.TrimSpace(n.Content(s.ins.src))
	}
}

// declInitializer unwraps an init_declarator to its bare name and
// initializer expression, if any.
func declInitializer(n *sitter.Node, src []byte) (string, *sitter.Node) {
	if n.Type() != "init_declarator" {
		return "", nil
	}
	nameNode := n.ChildByFieldName("declarator")
	value := n.ChildByFieldName("value")
	if nameNode == nil || value == nil {
		return "", nil
	}
	name := strings.TrimLeft(nameNode.Content(src), "*&")
	return name, value
}

func isAllocExpr(n *sitter.Node, src []byte) bool {
	target := n
	if target.Type() == "cast_expression" {
		if val := target.ChildByFieldName("value"); val != nil {
			target = val
		}
	}
	switch target.Type() {
	case "new_expression":
		return true
	case "call_expression":
		fn := target.ChildByFieldName("function")
		if fn == nil {
			return false
		}
		switch fn.Content(src) {
		case "malloc", "calloc", "realloc":
			return true
		}
	}
	return false
}

// classifyOperation buckets an arithmetic/assignment/increment operator as
// an int or float op. Tree-sitter carries no type information, so a
// floating-point literal anywhere among the node's children is treated as
// evidence of float arithmetic; otherwise the operation counts as an int
// op, the same kind of syntactic approximation Overrides() makes for
// virtual dispatch.
func (s *statVisitor) classifyOperation(n *sitter.Node) {
	op := ""
	if o := n.ChildByFieldName("operator"); o != nil {
		op = o.Content(s.ins.src)
	}
	switch op {
	case "+", "-", "*", "/", "%", "++", "--", "+=", "-=", "*=", "/=", "%=":
	default:
		return
	}
	if containsFloatLiteral(n, s.ins.src) {
		s.ops.FloatOps++
	} else {
		s.ops.IntOps++
	}
}

func containsFloatLiteral(n *sitter.Node, src []byte) bool {
	if n.Type() == "number_literal" {
		text := n.Content(src)
		if strings.ContainsAny(text, ".fF") && !strings.HasPrefix(text, "0x") {
			return true
		}
	}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		if containsFloatLiteral(n.NamedChild(i), src) {
			return true
		}
	}
	return false
}
