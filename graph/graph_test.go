package graph_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"pipelined.dev/node"
	"pipelined.dev/node/graph"
)

func kinds(g *graph.Graph) map[string]int {
	m := make(map[string]int)
	for _, n := range g.Nodes {
		m[n.Kind]++
	}
	return m
}

func TestSeriesStructure(t *testing.T) {
	g := graph.New(node.Series(node.Const(1.0), node.Gain(0.5), node.Gain(2)))

	assert.Len(t, g.Nodes, 4)
	assert.Equal(t, map[string]int{"series": 1, "const": 1, "gain": 2}, kinds(g))

	// root node sits at the empty path, children below it
	assert.Equal(t, "root", g.Nodes[0].Path.String())
	assert.Equal(t, "0", g.Nodes[1].Path.String())
	assert.Equal(t, 0, g.Nodes[0].Inputs)
	assert.Equal(t, 1, g.Nodes[0].Outputs)

	// inter-stage edges plus the output boundary; the source child has
	// no inputs, so there is no input boundary edge
	assert.Len(t, g.Edges, 3)
}

func TestFeedbackLoopEdge(t *testing.T) {
	g := graph.New(node.Feedback(node.Pass(2), nil))

	loops := 0
	for _, e := range g.Edges {
		if e.From.Path.String() == e.To.Path.String() {
			loops++
		}
	}
	assert.Equal(t, 2, loops, "one loop edge per channel")
}

func TestNestedPaths(t *testing.T) {
	g := graph.New(node.Series(
		node.Stack(node.Sine(440), node.Noise()),
		node.Join(1, 2),
	))

	paths := make([]string, len(g.Nodes))
	for i, n := range g.Nodes {
		paths[i] = n.Path.String()
	}
	assert.Equal(t, []string{"root", "0", "0.0", "0.1", "1"}, paths)
}

func TestMixEdgesShareOutput(t *testing.T) {
	g := graph.New(node.Sum(node.Const(0.5), node.Const(0.5)))

	// both children drive the same parent output channel
	drivers := 0
	for _, e := range g.Edges {
		if e.To.Path.String() == "root" && e.To.Channel == 0 {
			drivers++
		}
	}
	assert.Equal(t, 2, drivers)
}

func TestString(t *testing.T) {
	s := graph.New(node.Series(node.Const(1.0), node.Gain(0.5))).String()
	assert.Contains(t, s, "const")
	assert.Contains(t, s, "gain")
	assert.Contains(t, s, "->")
}
