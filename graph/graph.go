// Package graph extracts a structural representation from a composed
// node tree: nodes, directed edges and hierarchical path identifiers.
// It is built by walking the tree once and is read-only thereafter,
// meant for debugging and visualization, never for execution.
package graph

import (
	"fmt"
	"strings"

	"pipelined.dev/node"
)

type (
	// Path identifies a node's position inside a composite tree as the
	// sequence of child indexes from the root.
	Path []int

	// Port addresses one channel of a node at a path.
	Port struct {
		Path    Path
		Channel int
	}

	// Edge connects a (node-path, output-index) to a
	// (node-path, input-index).
	Edge struct {
		From Port
		To   Port
	}

	// Node records a node's kind and arities at a given path.
	Node struct {
		Path    Path
		Kind    string
		Inputs  int
		Outputs int
	}

	// Graph is the extracted structure.
	Graph struct {
		Nodes []Node
		Edges []Edge
	}
)

// Container is implemented by composite nodes that expose their
// children for introspection.
type Container interface {
	Children() []node.Node
}

// New walks a composed tree and returns its structure.
func New(root node.Node) *Graph {
	g := &Graph{}
	g.walk(Path{}, root)
	return g
}

func (g *Graph) walk(path Path, n node.Node) {
	g.Nodes = append(g.Nodes, Node{
		Path:    path,
		Kind:    kindOf(n),
		Inputs:  n.Inputs(),
		Outputs: n.Outputs(),
	})
	switch t := n.(type) {
	case *node.SeriesNode:
		children := t.Children()
		for i, c := range children {
			g.walk(path.child(i), c)
		}
		// boundary pass-through plus inter-stage edges
		g.connect(path, path.child(0), children[0].Inputs())
		for i := 0; i < len(children)-1; i++ {
			g.connect(path.child(i), path.child(i+1), children[i].Outputs())
		}
		g.connect(path.child(len(children)-1), path, n.Outputs())
	case *node.StackNode:
		inOff, outOff := 0, 0
		for i, c := range t.Children() {
			child := path.child(i)
			g.walk(child, c)
			g.connectAt(path, inOff, child, 0, c.Inputs())
			g.connectAt(child, 0, path, outOff, c.Outputs())
			inOff += c.Inputs()
			outOff += c.Outputs()
		}
	case *node.BranchNode:
		outOff := 0
		for i, c := range t.Children() {
			child := path.child(i)
			g.walk(child, c)
			g.connectAt(path, 0, child, 0, c.Inputs())
			g.connectAt(child, 0, path, outOff, c.Outputs())
			outOff += c.Outputs()
		}
	case *node.SumNode, *node.ProductNode:
		inOff := 0
		for i, c := range n.(Container).Children() {
			child := path.child(i)
			g.walk(child, c)
			g.connectAt(path, inOff, child, 0, c.Inputs())
			g.connectAt(child, 0, path, 0, c.Outputs())
			inOff += c.Inputs()
		}
	case *node.FeedbackNode:
		child := path.child(0)
		c := t.Children()[0]
		g.walk(child, c)
		g.connect(path, child, c.Inputs())
		g.connect(child, path, c.Outputs())
		// the loop itself: output fed back to input with one tick delay
		g.connect(child, child, c.Outputs())
	case Container:
		for i, c := range t.Children() {
			g.walk(path.child(i), c)
		}
	}
}

// connect emits channel-wise edges between two paths starting at
// channel zero on both sides.
func (g *Graph) connect(from, to Path, channels int) {
	g.connectAt(from, 0, to, 0, channels)
}

func (g *Graph) connectAt(from Path, fromOff int, to Path, toOff int, channels int) {
	for ch := 0; ch < channels; ch++ {
		g.Edges = append(g.Edges, Edge{
			From: Port{Path: from, Channel: fromOff + ch},
			To:   Port{Path: to, Channel: toOff + ch},
		})
	}
}

// child returns a copied path extended with a child index.
func (p Path) child(i int) Path {
	c := make(Path, len(p), len(p)+1)
	copy(c, p)
	return append(c, i)
}

// String renders the path as a dotted index sequence.
func (p Path) String() string {
	if len(p) == 0 {
		return "root"
	}
	parts := make([]string, len(p))
	for i, idx := range p {
		parts[i] = fmt.Sprintf("%d", idx)
	}
	return strings.Join(parts, ".")
}

// String renders the graph in a DOT-like textual form.
func (g *Graph) String() string {
	var b strings.Builder
	b.WriteString("graph {\n")
	for _, n := range g.Nodes {
		fmt.Fprintf(&b, "\t%v [%v %dx%d]\n", n.Path, n.Kind, n.Inputs, n.Outputs)
	}
	for _, e := range g.Edges {
		fmt.Fprintf(&b, "\t%v:%d -> %v:%d\n", e.From.Path, e.From.Channel, e.To.Path, e.To.Channel)
	}
	b.WriteString("}\n")
	return b.String()
}

func kindOf(n node.Node) string {
	switch n.(type) {
	case *node.SeriesNode:
		return "series"
	case *node.StackNode:
		return "stack"
	case *node.BranchNode:
		return "branch"
	case *node.SumNode:
		return "sum"
	case *node.ProductNode:
		return "product"
	case *node.FeedbackNode:
		return "feedback"
	case *node.SplitNode:
		return "split"
	case *node.JoinNode:
		return "join"
	case *node.ConstNode:
		return "const"
	case *node.GainNode:
		return "gain"
	case *node.PassNode:
		return "pass"
	case *node.SinkNode:
		return "sink"
	case *node.DelayNode:
		return "delay"
	case *node.SineNode:
		return "sine"
	case *node.NoiseNode:
		return "noise"
	}
	return strings.TrimPrefix(fmt.Sprintf("%T", n), "*")
}
