package collectors

import (
	"github.com/viant/metacg/frontend"
	"github.com/viant/metacg/metadata"
	"github.com/viant/metacg/pipeline"
)

// CodeStatisticsCollector attaches the declared-variable count, grounded on
// CodeStatisticsCollector (collector/CodeStatisticsCollector.h), which
// walks a FunctionDecl's direct child VarDecls; tree-sitter's equivalent is
// every declaration statement reachable in the body.
type CodeStatisticsCollector struct{}

func (CodeStatisticsCollector) Name() string { return "CodeStatisticsCollector" }

func (CodeStatisticsCollector) ComputeForDecl(d frontend.Decl) metadata.Value {
	return &metadata.CodeStatistics{NumVars: d.Stats().NumVars}
}

func init() {
	pipeline.Default().RegisterDecl("CodeStatisticsCollector", func() pipeline.DeclCollector {
		return CodeStatisticsCollector{}
	})
}
