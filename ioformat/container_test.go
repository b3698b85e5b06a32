package ioformat_test

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/metacg/graph"
	"github.com/viant/metacg/ioformat"
	"github.com/viant/metacg/metadata"
)

func buildSample(t *testing.T, scheme graph.IDScheme, origin string) *graph.Store {
	t.Helper()
	g := graph.NewStore(scheme)
	main, err := g.GetOrInsert("main", origin)
	require.NoError(t, err)
	main.HasBody = true
	f, err := g.GetOrInsert("f", origin)
	require.NoError(t, err)
	f.HasBody = true
	_, err = g.AddEdge(main.ID, f.ID)
	require.NoError(t, err)

	main.Meta[metadata.NumStatementsKey] = &metadata.NumStatements{Count: 5}
	f.Meta["someFutureMetadata"] = &metadata.Opaque{TypeKey: "someFutureMetadata", Raw: json.RawMessage(`{"x":[1,2]}`)}
	return g
}

func TestRoundTripV3(t *testing.T) {
	g := buildSample(t, graph.IDByNameAndOrigin, "a.cpp")
	raw, err := ioformat.WriteV3(g, ioformat.Generator("test"))
	require.NoError(t, err)

	back, err := ioformat.Load(raw)
	require.NoError(t, err)

	require.Equal(t, 2, back.NodeCount())
	main := back.NodeNamed("main")
	require.NotNil(t, main)
	assert.Equal(t, "a.cpp", main.Origin)
	assert.True(t, main.HasBody)

	f := back.NodeNamed("f")
	require.NotNil(t, f)
	assert.True(t, back.HasEdge(main.ID, f.ID))

	ns, ok := main.Meta[metadata.NumStatementsKey].(*metadata.NumStatements)
	require.True(t, ok)
	assert.Equal(t, 5, ns.Count)

	op, ok := f.Meta["someFutureMetadata"].(*metadata.Opaque)
	require.True(t, ok)
	assert.JSONEq(t, `{"x":[1,2]}`, string(op.Raw))

	// Ids survive the trip: v3 carries them explicitly and they re-derive
	// from name+origin on load.
	assert.Equal(t, g.NodeNamed("main").ID, main.ID)
}

func TestRoundTripV2(t *testing.T) {
	g := buildSample(t, graph.IDByName, "")
	raw, err := ioformat.WriteV2(g, ioformat.Generator("test"))
	require.NoError(t, err)

	v, err := ioformat.DetectVersion(raw)
	require.NoError(t, err)
	assert.Equal(t, ioformat.V2, v)

	back, err := ioformat.Load(raw)
	require.NoError(t, err)

	main := back.NodeNamed("main")
	f := back.NodeNamed("f")
	require.NotNil(t, main)
	require.NotNil(t, f)
	assert.True(t, back.HasEdge(main.ID, f.ID))
	assert.True(t, main.HasBody)

	ns, ok := main.Meta[metadata.NumStatementsKey].(*metadata.NumStatements)
	require.True(t, ok)
	assert.Equal(t, 5, ns.Count)
}

func TestV2SynthesizesOverrideFields(t *testing.T) {
	g := graph.NewStore(graph.IDByName)
	base, err := g.GetOrInsert("Base::foo", "")
	require.NoError(t, err)
	base.HasBody = true
	child, err := g.GetOrInsert("Child1::foo", "")
	require.NoError(t, err)
	child.HasBody = true
	base.Meta[metadata.OverrideKey] = &metadata.Override{OverriddenBy: []uint64{child.ID}}
	child.Meta[metadata.OverrideKey] = &metadata.Override{Overrides: []uint64{base.ID}}

	raw, err := ioformat.WriteV2(g, ioformat.Generator("test"))
	require.NoError(t, err)

	var envelope struct {
		CG map[string]struct {
			IsVirtual           bool     `json:"isVirtual"`
			DoesOverride        bool     `json:"doesOverride"`
			OverriddenFunctions []string `json:"overriddenFunctions"`
			OverriddenBy        []string `json:"overriddenBy"`
		} `json:"_CG"`
	}
	require.NoError(t, json.Unmarshal(raw, &envelope))
	assert.True(t, envelope.CG["Child1::foo"].IsVirtual)
	assert.True(t, envelope.CG["Child1::foo"].DoesOverride)
	assert.Equal(t, []string{"Base::foo"}, envelope.CG["Child1::foo"].OverriddenFunctions)
	assert.True(t, envelope.CG["Base::foo"].IsVirtual)
	assert.False(t, envelope.CG["Base::foo"].DoesOverride)
	assert.Equal(t, []string{"Child1::foo"}, envelope.CG["Base::foo"].OverriddenBy)

	// And the read side reconstructs OverrideMD from the synthesized keys.
	back, err := ioformat.Load(raw)
	require.NoError(t, err)
	ov, ok := back.NodeNamed("Child1::foo").Meta[metadata.OverrideKey].(*metadata.Override)
	require.True(t, ok)
	assert.Equal(t, []uint64{back.NodeNamed("Base::foo").ID}, ov.Overrides)
}

func TestDetectVersionV1BareMap(t *testing.T) {
	raw := []byte(`{"main":{"callees":["f"],"parents":[],"hasBody":true},"f":{"callees":[],"parents":["main"],"hasBody":true}}`)
	v, err := ioformat.DetectVersion(raw)
	require.NoError(t, err)
	assert.Equal(t, ioformat.V1, v)

	g, err := ioformat.Load(raw)
	require.NoError(t, err)
	main := g.NodeNamed("main")
	f := g.NodeNamed("f")
	require.NotNil(t, main)
	require.NotNil(t, f)
	assert.True(t, g.HasEdge(main.ID, f.ID))
}

func TestV1VirtualHierarchyExpandsCallerEdges(t *testing.T) {
	raw := []byte(`{
		"main": {"callees": ["Base::foo"], "parents": [], "hasBody": true},
		"Base::foo": {"callees": [], "parents": ["main"], "hasBody": true, "isVirtual": true},
		"Child1::foo": {"callees": [], "parents": [], "hasBody": true, "isVirtual": true, "doesOverride": true, "overriddenFunctions": ["Base::foo"]}
	}`)
	g, err := ioformat.Load(raw)
	require.NoError(t, err)

	main := g.NodeNamed("main")
	child := g.NodeNamed("Child1::foo")
	require.NotNil(t, main)
	require.NotNil(t, child)
	assert.True(t, g.HasEdge(main.ID, child.ID), "a call site naming Base::foo may dispatch to Child1::foo")
}

func TestFormatVersionMismatch(t *testing.T) {
	raw := []byte(`{"_MetaCG":{"generator":{"name":"x","version":"9.9.9"},"version":"7.0"},"_CG":{}}`)
	_, err := ioformat.Load(raw)
	var mismatch *ioformat.ErrFormatVersionMismatch
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, "7.0", mismatch.Found)
}

func TestLoadLenientDropsBadPayloadKeepsRest(t *testing.T) {
	g := buildSample(t, graph.IDByNameAndOrigin, "a.cpp")
	raw, err := ioformat.WriteV3(g, ioformat.Generator("test"))
	require.NoError(t, err)

	// Corrupt the known numStatements payload; the unknown key must
	// survive either way.
	require.Contains(t, string(raw), `"numStatements": 5`)
	corrupted := []byte(strings.Replace(string(raw), `"numStatements": 5`, `"numStatements": "boom"`, 1))

	_, err = ioformat.Load(corrupted)
	require.Error(t, err)

	back, err := ioformat.LoadLenient(corrupted)
	require.NoError(t, err)
	main := back.NodeNamed("main")
	require.NotNil(t, main)
	_, hasBad := main.Meta[metadata.NumStatementsKey]
	assert.False(t, hasBad)
	_, hasOpaque := back.NodeNamed("f").Meta["someFutureMetadata"]
	assert.True(t, hasOpaque)
}

func TestConvertRefusesLossyV2Export(t *testing.T) {
	g := graph.NewStore(graph.IDByNameAndOrigin)
	a, err := g.GetOrInsert("foo", "a.cpp")
	require.NoError(t, err)
	a.HasBody = true
	_, err = g.GetOrInsert("foo", "b.cpp")
	require.NoError(t, err)

	dir := t.TempDir()
	src := filepath.Join(dir, "in.mcg")
	dst := filepath.Join(dir, "out.mcg")
	require.NoError(t, ioformat.SaveFile(context.Background(), src, g, ioformat.V3, ioformat.Generator("test")))

	err = ioformat.Convert(context.Background(), src, dst, ioformat.V2, ioformat.Generator("test"), false)
	var lossy *ioformat.ErrLossyExport
	require.ErrorAs(t, err, &lossy)

	// With the discard flag the conversion proceeds.
	require.NoError(t, ioformat.Convert(context.Background(), src, dst, ioformat.V2, ioformat.Generator("test"), true))
	_, err = os.Stat(dst)
	require.NoError(t, err)
}

func TestWriteV3Deterministic(t *testing.T) {
	g := buildSample(t, graph.IDByNameAndOrigin, "a.cpp")
	first, err := ioformat.WriteV3(g, ioformat.Generator("test"))
	require.NoError(t, err)
	second, err := ioformat.WriteV3(g, ioformat.Generator("test"))
	require.NoError(t, err)
	assert.Equal(t, string(first), string(second))
}

func TestRewriteOrigins(t *testing.T) {
	g := graph.NewStore(graph.IDByNameAndOrigin)
	base, err := g.GetOrInsert("Base::foo", "/src/a.cpp")
	require.NoError(t, err)
	base.HasBody = true
	child, err := g.GetOrInsert("Child1::foo", "/src/b.cpp")
	require.NoError(t, err)
	child.HasBody = true
	_, err = g.GetOrInsert("ext", "/vendor/x.cpp")
	require.NoError(t, err)
	_, err = g.AddEdge(child.ID, base.ID)
	require.NoError(t, err)
	child.Meta[metadata.OverrideKey] = &metadata.Override{Overrides: []uint64{base.ID}}

	out, mismatches, err := ioformat.RewriteOrigins(g, graph.IDByNameAndOrigin, "/src/", "")
	require.NoError(t, err)
	require.Len(t, mismatches, 1)
	assert.Contains(t, mismatches[0], "ext")

	nb := out.NodeNamed("Base::foo")
	nc := out.NodeNamed("Child1::foo")
	require.NotNil(t, nb)
	require.NotNil(t, nc)
	assert.Equal(t, "a.cpp", nb.Origin)
	assert.Equal(t, "b.cpp", nc.Origin)
	assert.NotEqual(t, base.ID, nb.ID, "origin feeds the v3 id hash, so the id must shift")
	assert.True(t, out.HasEdge(nc.ID, nb.ID))

	ov, ok := nc.Meta[metadata.OverrideKey].(*metadata.Override)
	require.True(t, ok)
	assert.Equal(t, []uint64{nb.ID}, ov.Overrides, "override id references follow the rewritten ids")

	// Untouched origin survives on the mismatching node.
	assert.Equal(t, "/vendor/x.cpp", out.NodeNamed("ext").Origin)
}

func TestFormatFileCanonicalizes(t *testing.T) {
	g := buildSample(t, graph.IDByNameAndOrigin, "a.cpp")
	raw, err := ioformat.WriteV3(g, ioformat.Generator("test"))
	require.NoError(t, err)

	dir := t.TempDir()
	src := filepath.Join(dir, "messy.ipcg")
	dst := filepath.Join(dir, "clean.ipcg")

	// Re-indent wildly; only whitespace changes, ids stay intact.
	var messy bytes.Buffer
	require.NoError(t, json.Indent(&messy, raw, "   ", "\t"))
	require.NoError(t, os.WriteFile(src, messy.Bytes(), 0644))

	_, err = ioformat.FormatFile(context.Background(), src, dst, ioformat.FormatOptions{})
	require.NoError(t, err)

	cleaned, err := os.ReadFile(dst)
	require.NoError(t, err)
	expected, err := ioformat.WriteV3(g, ioformat.Generator("cgformat"))
	require.NoError(t, err)
	assert.Equal(t, string(expected), string(cleaned), "canonical form is exactly what the writer emits")
}
