package objectname_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/viant/metacg/objectname"
)

func TestCanonicalIdentity(t *testing.T) {
	tests := []struct {
		name string
		a    objectname.ID
		b    objectname.ID
	}{
		{
			name: "this id is stable for same parent",
			a:    objectname.ThisID(objectname.DeclID("_ZN1A3fooEv")),
			b:    objectname.ThisID(objectname.DeclID("_ZN1A3fooEv")),
		},
		{
			name: "call site id is stable for same offsets",
			a:    objectname.CallSiteID(objectname.DeclID("main"), 10, 20, ""),
			b:    objectname.CallSiteID(objectname.DeclID("main"), 10, 20, ""),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.a, tt.b)
		})
	}
}

func TestCallSiteMacroDisambiguation(t *testing.T) {
	plain := objectname.CallSiteID(objectname.DeclID("f"), 1, 2, "")
	fromMacro := objectname.CallSiteID(objectname.DeclID("f"), 1, 2, "ARG1")
	assert.NotEqual(t, plain, fromMacro)
}

func TestRefDerefAddrOf(t *testing.T) {
	base := objectname.Ref{Base: objectname.DeclID("x"), Level: 0}
	assert.Equal(t, 1, base.Deref().Level)
	assert.Equal(t, -1, base.AddrOf().Level)
	assert.True(t, objectname.Less(base, base.Deref()))
}

func TestMemberRoundTrip(t *testing.T) {
	base := objectname.Ref{Base: objectname.DeclID("a"), Level: 0}
	member := objectname.MemberID(base, objectname.DeclID("f"))
	b, m, ok := objectname.IsMemberOf(member)
	assert.True(t, ok)
	assert.Equal(t, "a", b)
	assert.Equal(t, "f", m)
}

func TestNewExprLevels(t *testing.T) {
	// The allocated object sits at level 0 of the New id; the returned
	// pointer sits at level -1, per spec §4.5.
	n := objectname.NewID(objectname.DeclID("main"), 5, 9)
	allocated := objectname.Ref{Base: n, Level: 0}
	pointer := allocated.AddrOf()
	assert.Equal(t, -1, pointer.Level)
}
