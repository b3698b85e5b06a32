package treesitter_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/metacg/frontend"
	"github.com/viant/metacg/frontend/treesitter"
)

func TestInspectDirectCall(t *testing.T) {
	src := []byte(`
int f() { return 0; }
int main() { return f(); }
`)
	ins := treesitter.NewInspector("direct_call.cpp")
	decls, err := ins.InspectSource(src)
	require.NoError(t, err)
	require.Len(t, decls, 2)

	names := map[string]frontend.Decl{}
	for _, d := range decls {
		names[d.Name()] = d
	}
	require.Contains(t, names, "f")
	require.Contains(t, names, "main")
	assert.True(t, names["main"].HasBody())

	var foundCall bool
	for _, e := range names["main"].Body() {
		if e.Kind() == frontend.ExprCall {
			foundCall = true
			require.NotNil(t, e.CalledDecl())
			assert.Equal(t, "f", e.CalledDecl().Name())
		}
	}
	assert.True(t, foundCall)
}

func TestInspectMethodQualifiedName(t *testing.T) {
	src := []byte(`
struct A {
  int foo();
};
int A::foo() { return 0; }
`)
	ins := treesitter.NewInspector("method.cpp")
	decls, err := ins.InspectSource(src)
	require.NoError(t, err)
	require.Len(t, decls, 1)
	assert.Equal(t, "A::foo", decls[0].Name())
	assert.Equal(t, frontend.DeclMethod, decls[0].Kind())
}

func TestInspectLambdaSynthesizesInvokerPair(t *testing.T) {
	src := []byte(`
int main() {
	auto L = [](int a) { return a + 1; };
	return L(2);
}
`)
	ins := treesitter.NewInspector("lambda.cpp")
	decls, err := ins.InspectSource(src)
	require.NoError(t, err)
	require.Len(t, decls, 3)

	var op, invoke frontend.Decl
	for _, d := range decls {
		if strings.HasSuffix(d.Name(), "::operator()") {
			op = d
		}
		if strings.HasSuffix(d.Name(), "::__invoke") {
			invoke = d
		}
	}
	require.NotNil(t, op)
	require.NotNil(t, invoke)
	assert.True(t, op.HasBody())
	assert.False(t, invoke.HasBody())
	assert.True(t, invoke.IsStatic())
	require.Len(t, op.Params(), 1)
	require.Len(t, invoke.Params(), 1)
	assert.Equal(t, "a", op.Params()[0].Name())
}
