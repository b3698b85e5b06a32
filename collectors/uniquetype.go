package collectors

import (
	"github.com/viant/metacg/frontend"
	"github.com/viant/metacg/metadata"
	"github.com/viant/metacg/pipeline"
)

// UniqueTypeCollector attaches the count of distinct types referenced in a
// function's body, grounded on UniqueTypeCollector
// (collector/UniqueTypeCollector.h), which keeps a running set of every
// type seen across the whole collection run and reports that running total
// instead of the per-function count for `main`.
//
// frontend.DeclStats exposes only the per-function distinct-type *count*,
// not the type set itself, so the running total below is a sum of
// per-function counts rather than a true cross-function set union — an
// over-count whenever the same type recurs across functions, but exact for
// a program where it doesn't. This collector is stateful across decls by
// construction (the factory in init() below returns one instance reused for
// the whole pipeline run), the same shape as the reference tool's Plugin
// instance accumulating globalTypes across every computeForDecl call.
type UniqueTypeCollector struct {
	runningTotal int
}

func (c *UniqueTypeCollector) Name() string { return "UniqueTypeCollector" }

func (c *UniqueTypeCollector) ComputeForDecl(d frontend.Decl) metadata.Value {
	stats := d.Stats()
	c.runningTotal += stats.UniqueTypes
	if d.Name() == "main" {
		return &metadata.UniqueType{Count: c.runningTotal}
	}
	return &metadata.UniqueType{Count: stats.UniqueTypes}
}

func init() {
	pipeline.Default().RegisterDecl("UniqueTypeCollector", func() pipeline.DeclCollector {
		return &UniqueTypeCollector{}
	})
}
