package metadata_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/metacg/metadata"
)

func TestNumStatementsMergeSums(t *testing.T) {
	a := &metadata.NumStatements{Count: 3}
	b := &metadata.NumStatements{Count: 4}
	require.NoError(t, a.Merge(b, metadata.ActionNodeMerge, nil))
	assert.Equal(t, 7, a.Count)
}

func TestLoopDepthMergeTakesMax(t *testing.T) {
	a := &metadata.LoopDepth{Depth: 2}
	b := &metadata.LoopDepth{Depth: 5}
	require.NoError(t, a.Merge(b, metadata.ActionNodeMerge, nil))
	assert.Equal(t, 5, a.Depth)

	require.NoError(t, a.Merge(&metadata.LoopDepth{Depth: 1}, metadata.ActionNodeMerge, nil))
	assert.Equal(t, 5, a.Depth)
}

func TestLoopCallDepthMergePointwiseMaxUnionOfKeys(t *testing.T) {
	a := &metadata.LoopCallDepth{Depths: map[string]int{"f": 1, "g": 3}}
	b := &metadata.LoopCallDepth{Depths: map[string]int{"f": 2, "h": 1}}
	require.NoError(t, a.Merge(b, metadata.ActionNodeMerge, nil))
	assert.Equal(t, map[string]int{"f": 2, "g": 3, "h": 1}, a.Depths)
}

func TestFilePropertiesMerge(t *testing.T) {
	a := &metadata.FileProperties{SystemInclude: false, Origin: ""}
	b := &metadata.FileProperties{SystemInclude: true, Origin: "a.cpp"}
	require.NoError(t, a.Merge(b, metadata.ActionNodeMerge, nil))
	assert.True(t, a.SystemInclude)
	assert.Equal(t, "a.cpp", a.Origin)

	// First non-empty origin wins over later values.
	require.NoError(t, a.Merge(&metadata.FileProperties{Origin: "b.cpp"}, metadata.ActionNodeMerge, nil))
	assert.Equal(t, "a.cpp", a.Origin)
}

func TestInlineMergeBooleanOR(t *testing.T) {
	a := &metadata.Inline{MarkedInline: true}
	b := &metadata.Inline{AlwaysInline: true}
	require.NoError(t, a.Merge(b, metadata.ActionNodeMerge, nil))
	assert.True(t, a.MarkedInline)
	assert.True(t, a.AlwaysInline)
	assert.False(t, a.LikelyInline)
}

type shiftMapper struct{ offset uint64 }

func (m shiftMapper) MapNodeID(foreign uint64) (uint64, bool) { return foreign + m.offset, true }

func TestOverrideMergeUnionsWithIDRemap(t *testing.T) {
	a := &metadata.Override{Overrides: []uint64{1}}
	b := &metadata.Override{Overrides: []uint64{1, 2}, OverriddenBy: []uint64{9}}
	require.NoError(t, a.Merge(b, metadata.ActionNodeMerge, shiftMapper{offset: 100}))
	assert.ElementsMatch(t, []uint64{1, 101, 102}, a.Overrides)
	assert.ElementsMatch(t, []uint64{109}, a.OverriddenBy)
}

func TestEntryFunctionMergeKeepsExisting(t *testing.T) {
	one, two := uint64(1), uint64(2)
	a := &metadata.EntryFunction{NodeID: &one}
	b := &metadata.EntryFunction{NodeID: &two}
	require.NoError(t, a.Merge(b, metadata.ActionNodeMerge, nil))
	require.NotNil(t, a.NodeID)
	assert.Equal(t, one, *a.NodeID)

	empty := &metadata.EntryFunction{}
	require.NoError(t, empty.Merge(b, metadata.ActionNodeMerge, nil))
	require.NotNil(t, empty.NodeID)
	assert.Equal(t, two, *empty.NodeID)
}

func TestUnknownKeyLoadsAsOpaqueAndRoundTrips(t *testing.T) {
	raw := json.RawMessage(`{"custom":[1,2,3],"pi":3.5}`)
	v, err := metadata.Default().Create("someFutureMetadata", raw, metadata.IdentityIDMapper{})
	require.NoError(t, err)

	op, ok := v.(*metadata.Opaque)
	require.True(t, ok)
	assert.Equal(t, "someFutureMetadata", op.Key())

	out, err := v.ToJSON(metadata.IdentityIDMapper{})
	require.NoError(t, err)
	assert.JSONEq(t, string(raw), string(out))
}

func TestMergeMapCopiesMissingAndMergesPresent(t *testing.T) {
	dst := map[string]metadata.Value{
		metadata.NumStatementsKey: &metadata.NumStatements{Count: 2},
	}
	src := map[string]metadata.Value{
		metadata.NumStatementsKey: &metadata.NumStatements{Count: 3},
		metadata.LoopDepthKey:     &metadata.LoopDepth{Depth: 4},
	}
	require.NoError(t, metadata.Merge(dst, src, metadata.ActionNodeMerge, metadata.IdentityIDMapper{}))

	assert.Equal(t, 5, dst[metadata.NumStatementsKey].(*metadata.NumStatements).Count)
	assert.Equal(t, 4, dst[metadata.LoopDepthKey].(*metadata.LoopDepth).Depth)

	// The copied value is a clone, not an aliased pointer.
	src[metadata.LoopDepthKey].(*metadata.LoopDepth).Depth = 99
	assert.Equal(t, 4, dst[metadata.LoopDepthKey].(*metadata.LoopDepth).Depth)
}

func TestNumStatementsSerializesAsBareInteger(t *testing.T) {
	v := &metadata.NumStatements{Count: 42}
	raw, err := v.ToJSON(metadata.IdentityIDMapper{})
	require.NoError(t, err)
	assert.Equal(t, "42", string(raw))

	back, err := metadata.Default().Create(metadata.NumStatementsKey, raw, metadata.IdentityIDMapper{})
	require.NoError(t, err)
	assert.Equal(t, 42, back.(*metadata.NumStatements).Count)
}
