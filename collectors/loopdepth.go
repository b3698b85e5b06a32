package collectors

import (
	"github.com/viant/metacg/frontend"
	"github.com/viant/metacg/metadata"
	"github.com/viant/metacg/pipeline"
)

// LoopDepthCollector attaches the maximum loop nesting depth within the
// function's own body, grounded on LoopDepthCollector
// (collector/LoopDepthCollector.h).
type LoopDepthCollector struct{}

func (LoopDepthCollector) Name() string { return "LoopDepthCollector" }

func (LoopDepthCollector) ComputeForDecl(d frontend.Decl) metadata.Value {
	return &metadata.LoopDepth{Depth: d.Stats().LoopDepth}
}

func init() {
	pipeline.Default().RegisterDecl("LoopDepthCollector", func() pipeline.DeclCollector {
		return LoopDepthCollector{}
	})
}
