package collectors

import (
	"github.com/viant/metacg/frontend"
	"github.com/viant/metacg/metadata"
	"github.com/viant/metacg/pipeline"
)

// NumOperationsCollector attaches int/float/control-flow/memory-access
// operation tallies, grounded on NumOperationsCollector
// (collector/NumOperationsCollector.h).
type NumOperationsCollector struct{}

func (NumOperationsCollector) Name() string { return "NumOperationsCollector" }

func (NumOperationsCollector) ComputeForDecl(d frontend.Decl) metadata.Value {
	ops := d.Stats().Operations
	return &metadata.NumOperations{
		NumberOfIntOps:         ops.IntOps,
		NumberOfFloatOps:       ops.FloatOps,
		NumberOfControlFlowOps: ops.ControlFlowOps,
		NumberOfMemoryAccesses: ops.MemoryAccesses,
	}
}

func init() {
	pipeline.Default().RegisterDecl("NumOperationsCollector", func() pipeline.DeclCollector {
		return NumOperationsCollector{}
	})
}
