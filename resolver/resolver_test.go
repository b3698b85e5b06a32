package resolver_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/metacg/graph"
	"github.com/viant/metacg/objectname"
	"github.com/viant/metacg/resolver"
)

func TestAddCallEdgeInsertsAndLinksNodes(t *testing.T) {
	store := graph.NewStore(graph.IDByName)
	mainID := objectname.DeclID("main")
	fID := objectname.DeclID("f")

	sink := resolver.NewGraphSink(store, map[objectname.ID]resolver.Identity{
		mainID: {Name: "main", Origin: "main.cpp", HasBody: true},
		fID:    {Name: "f", Origin: "main.cpp", HasBody: true},
	})

	sink.AddCallEdge(mainID, fID)

	mainNode := store.NodeNamed("main")
	fNode := store.NodeNamed("f")
	require.NotNil(t, mainNode)
	require.NotNil(t, fNode)
	assert.True(t, store.HasEdge(mainNode.ID, fNode.ID))
	assert.True(t, mainNode.HasBody)
	assert.True(t, fNode.HasBody)
}
