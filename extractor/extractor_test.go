package extractor_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/metacg/extractor"
	"github.com/viant/metacg/frontend/treesitter"
	"github.com/viant/metacg/objectname"
	"github.com/viant/metacg/solver"
)

type recordingSink struct{ edges [][2]objectname.ID }

func (r *recordingSink) AddCallEdge(caller, callee objectname.ID) {
	r.edges = append(r.edges, [2]objectname.ID{caller, callee})
}

func TestExtractFunctionsRecordsBothDecls(t *testing.T) {
	src := []byte(`
int f() { return 0; }
int main() { return f(); }
`)
	insp := treesitter.NewInspector("main.cpp")
	decls, err := insp.InspectSource(src)
	require.NoError(t, err)
	require.Len(t, decls, 2)

	prog := extractor.New().Extract(decls)
	assert.Len(t, prog.Functions, 2)
	assert.GreaterOrEqual(t, len(prog.Calls), 1)

	f := objectname.DeclID("f")
	main := objectname.DeclID("main")
	require.Contains(t, prog.Functions, f)
	require.Contains(t, prog.Functions, main)
}

// TestSeedProducesDirectCallEdge wires a real tree-sitter inspection through
// the extractor into the solver and resolver, reproducing spec §8 scenario 1
// end to end: int f(){return 0;} int main(){return f();} yields main->f.
func TestSeedProducesDirectCallEdge(t *testing.T) {
	src := []byte(`
int f() { return 0; }
int main() { return f(); }
`)
	insp := treesitter.NewInspector("main.cpp")
	decls, err := insp.InspectSource(src)
	require.NoError(t, err)

	prog := extractor.New().Extract(decls)

	sink := &recordingSink{}
	s := solver.New(sink)
	identities := extractor.Seed(prog, s)
	s.Drain()

	require.Contains(t, identities, objectname.DeclID("f"))
	require.Contains(t, identities, objectname.DeclID("main"))

	require.Len(t, sink.edges, 1)
	assert.Equal(t, objectname.DeclID("main"), sink.edges[0][0])
	assert.Equal(t, objectname.DeclID("f"), sink.edges[0][1])
}

// TestSeedDirectSkipsAliasPropagation: under the none alias model a call
// through a function pointer produces no edge, while the direct call in the
// same program still resolves.
func TestSeedDirectSkipsAliasPropagation(t *testing.T) {
	src := []byte(`
int g() { return 1; }
int main() {
	int (*p)() = &g;
	g();
	return p();
}
`)
	insp := treesitter.NewInspector("main.cpp")
	decls, err := insp.InspectSource(src)
	require.NoError(t, err)

	prog := extractor.New().Extract(decls)

	direct := &recordingSink{}
	s := solver.New(direct)
	extractor.SeedDirect(prog, s)
	s.Drain()
	assert.Len(t, direct.edges, 1, "only the direct g() call resolves")

	full := &recordingSink{}
	s2 := solver.New(full)
	extractor.Seed(prog, s2)
	s2.Drain()
	assert.GreaterOrEqual(t, len(full.edges), 2, "the aliased p() call resolves too")
}

// TestFunctionPointerTable follows spec §8 scenario 2's shape: a table of
// function pointers, indexed and called — both table entries must become
// callees of the calling function under the all-alias model.
func TestFunctionPointerTable(t *testing.T) {
	src := []byte(`
int func1() { return 1; }
int func2() { return 2; }
int main() {
	int (*table[2])() = { &func1, &func2 };
	return table[0]();
}
`)
	insp := treesitter.NewInspector("main.cpp")
	decls, err := insp.InspectSource(src)
	require.NoError(t, err)

	prog := extractor.New().Extract(decls)

	sink := &recordingSink{}
	s := solver.New(sink)
	extractor.Seed(prog, s)
	s.Drain()

	targets := map[objectname.ID]bool{}
	for _, e := range sink.edges {
		if e[0] == objectname.DeclID("main") {
			targets[e[1]] = true
		}
	}
	assert.True(t, targets[objectname.DeclID("func1")], "table entry func1 reachable")
	assert.True(t, targets[objectname.DeclID("func2")], "table entry func2 reachable")
}

// TestLambdaStaticInvoker follows spec §8 scenario 5: a captureless lambda
// assigned to a function pointer; calling through the pointer reaches both
// the lambda's call operator and its static invoker, which share their
// identity class.
func TestLambdaStaticInvoker(t *testing.T) {
	src := []byte(`
int main() {
	auto L = [](int a) { return a + 1; };
	int (*p)(int) = L;
	return p(5);
}
`)
	insp := treesitter.NewInspector("main.cpp")
	decls, err := insp.InspectSource(src)
	require.NoError(t, err)
	require.Len(t, decls, 3, "main plus the lambda's operator() and __invoke")

	prog := extractor.New().Extract(decls)

	sink := &recordingSink{}
	s := solver.New(sink)
	extractor.Seed(prog, s)
	s.Drain()

	var operatorCallee, invokeCallee bool
	for _, e := range sink.edges {
		if e[0] != objectname.DeclID("main") {
			continue
		}
		name := string(e[1])
		if strings.HasSuffix(name, "::operator()") {
			operatorCallee = true
		}
		if strings.HasSuffix(name, "::__invoke") {
			invokeCallee = true
		}
	}
	assert.True(t, operatorCallee, "call through the pointer reaches operator()")
	assert.True(t, invokeCallee, "call through the pointer reaches __invoke")
}
