package collectors

import (
	"github.com/viant/metacg/frontend"
	"github.com/viant/metacg/metadata"
	"github.com/viant/metacg/pipeline"
)

// NumConditionalBranchCollector attaches the count of conditional branches
// (if/switch/case/ternary) in the body, grounded on
// NumConditionalBranchCollector (collector/NumConditionalBranchCollector.h).
type NumConditionalBranchCollector struct{}

func (NumConditionalBranchCollector) Name() string { return "NumConditionalBranchCollector" }

func (NumConditionalBranchCollector) ComputeForDecl(d frontend.Decl) metadata.Value {
	return &metadata.NumConditionalBranches{Count: d.Stats().NumConditionalBranches}
}

func init() {
	pipeline.Default().RegisterDecl("NumConditionalBranchCollector", func() pipeline.DeclCollector {
		return NumConditionalBranchCollector{}
	})
}
