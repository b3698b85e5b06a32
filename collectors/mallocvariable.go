package collectors

import (
	"github.com/viant/metacg/frontend"
	"github.com/viant/metacg/metadata"
	"github.com/viant/metacg/pipeline"
)

// MallocVariableCollector attaches the set of local variables assigned the
// result of a heap allocation, grounded on MallocVariableCollector
// (collector/MallocVariableCollector.h). The reference tool walks the
// clang AST for CXXNewExpr and cast-wrapped malloc/calloc/realloc calls
// assigned to a DeclStmt or BinaryOperator; the frontend's Stats() walks the
// tree-sitter CST for declarations whose initializer is such an allocation.
// A plain assignment (`p = malloc(...)`) is not recorded.
type MallocVariableCollector struct{}

func (MallocVariableCollector) Name() string { return "MallocVariableCollector" }

func (MallocVariableCollector) ComputeForDecl(d frontend.Decl) metadata.Value {
	return &metadata.MallocVariable{Allocs: d.Stats().MallocAllocs}
}

func init() {
	pipeline.Default().RegisterDecl("MallocVariableCollector", func() pipeline.DeclCollector {
		return MallocVariableCollector{}
	})
}
