package collectors

import (
	"log/slog"

	"github.com/viant/metacg/extractor"
	"github.com/viant/metacg/graph"
	"github.com/viant/metacg/metadata"
	"github.com/viant/metacg/pipeline"
)

// OverrideCollector attaches OverrideMD to every node involved in a virtual
// override relationship, grounded on OverrideCollector
// (collector/OverrideCollector.h): for every (overrider, overridden) pair,
// the overrider's node gets the overridden node's id appended to
// Overrides, and the overridden node gets the overrider's id appended to
// OverriddenBy.
//
// Unlike the other built-ins, this one cannot work from frontend.Decl or
// the graph alone — the override relationship is discovered during
// extraction (frontend.Decl.Overrides(), spec §4.4) and recorded as
// extractor.OverrideFact, keyed by object-name id rather than graph node
// id. OverrideCollector is built per translation-unit Program instead of
// registered into the global pipeline.Registry, since the pipeline's
// self-registration pattern assumes a zero-argument constructor and this
// collector needs the Program it is attaching facts from.
type OverrideCollector struct {
	Program *extractor.Program
}

var _ pipeline.GraphCollector = (*OverrideCollector)(nil)

func (c *OverrideCollector) Name() string { return "OverrideCollector" }

func (c *OverrideCollector) ComputeForGraph(g *graph.Store) {
	for _, fact := range c.Program.Overrides {
		overriderFn, ok := c.Program.Functions[fact.Method]
		if !ok {
			continue
		}
		overriddenFn, ok := c.Program.Functions[fact.Base]
		if !ok {
			continue
		}
		overriderNode := g.NodeNamed(overriderFn.Name)
		overriddenNode := g.NodeNamed(overriddenFn.Name)
		if overriderNode == nil || overriddenNode == nil {
			slog.Warn("override collector: node missing for override pair", "overrider", overriderFn.Name, "overridden", overriddenFn.Name)
			continue
		}

		overrides := overriderNode.Meta[metadata.OverrideKey]
		if overrides == nil {
			overrides = &metadata.Override{}
			overriderNode.Meta[metadata.OverrideKey] = overrides
		}
		overrides.(*metadata.Override).Overrides = appendUnique(overrides.(*metadata.Override).Overrides, overriddenNode.ID)

		overriddenBy := overriddenNode.Meta[metadata.OverrideKey]
		if overriddenBy == nil {
			overriddenBy = &metadata.Override{}
			overriddenNode.Meta[metadata.OverrideKey] = overriddenBy
		}
		overriddenBy.(*metadata.Override).OverriddenBy = appendUnique(overriddenBy.(*metadata.Override).OverriddenBy, overriderNode.ID)
	}
}

func appendUnique(ids []uint64, id uint64) []uint64 {
	for _, existing := range ids {
		if existing == id {
			return ids
		}
	}
	return append(ids, id)
}
