// Package collectors implements the built-in per-decl and per-graph
// metadata collectors (component C9's default plugin set): statement and
// branch counts, loop nesting, operation tallies, heap-allocation tracking,
// distinct-type counts, and virtual-override linking, each grounded on the
// matching collector header under
// original_source/tools/cgcollector2/include/collector/.
//
// Every collector here except OverrideCollector self-registers into
// pipeline.Default() via init(), the same self-registration idiom package
// metadata uses for its built-in types; cgcollect runs the ones its
// collector selection names (the default selection is None, which runs
// none of them).
package collectors

import (
	"github.com/viant/metacg/frontend"
	"github.com/viant/metacg/metadata"
	"github.com/viant/metacg/pipeline"
)

// NumStatementsCollector attaches the statement count tallied while walking
// a function's body, grounded on NumberOfStatementsCollector
// (collector/NumStatementsCollector.h).
type NumStatementsCollector struct{}

func (NumStatementsCollector) Name() string { return "NumStatementsCollector" }

func (NumStatementsCollector) ComputeForDecl(d frontend.Decl) metadata.Value {
	return &metadata.NumStatements{Count: d.Stats().NumStatements}
}

func init() {
	pipeline.Default().RegisterDecl("NumStatementsCollector", func() pipeline.DeclCollector {
		return NumStatementsCollector{}
	})
}
