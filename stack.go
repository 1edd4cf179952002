package node

import (
	"pipelined.dev/node/flow"
)

type (
	// StackNode runs children in parallel: input and output channels of
	// all children are concatenated, unconnected to each other.
	StackNode struct {
		children []Node
		inOff    []int
		outOff   []int
		inputs   int
		outputs  int
	}

	// BranchNode feeds one input to every child and concatenates their
	// outputs.
	BranchNode struct {
		children []Node
		outOff   []int
		outputs  int
	}
)

// Stack returns a node running children in parallel. Arities add up.
func Stack(children ...Node) *StackNode {
	if len(children) == 0 {
		panic("node: stack: no children")
	}
	s := &StackNode{
		children: children,
		inOff:    make([]int, len(children)),
		outOff:   make([]int, len(children)),
	}
	for i, c := range children {
		s.inOff[i] = s.inputs
		s.outOff[i] = s.outputs
		s.inputs += c.Inputs()
		s.outputs += c.Outputs()
	}
	ping(s)
	return s
}

// Inputs returns the total input count.
func (s *StackNode) Inputs() int { return s.inputs }

// Outputs returns the total output count.
func (s *StackNode) Outputs() int { return s.outputs }

// Children returns the stacked nodes.
func (s *StackNode) Children() []Node { return s.children }

// Tick runs one frame through every child over its channel window.
func (s *StackNode) Tick(in, out Frame) {
	for i, c := range s.children {
		c.Tick(
			in[s.inOff[i]:s.inOff[i]+c.Inputs()],
			out[s.outOff[i]:s.outOff[i]+c.Outputs()],
		)
	}
}

// Process runs a block through every child over its channel window.
func (s *StackNode) Process(in, out Block) {
	for i, c := range s.children {
		c.Process(
			in[s.inOff[i]:s.inOff[i]+c.Inputs()],
			out[s.outOff[i]:s.outOff[i]+c.Outputs()],
		)
	}
}

// Reset resets all children.
func (s *StackNode) Reset() {
	for _, c := range s.children {
		c.Reset()
	}
}

// SetSampleRate propagates the rate to all children.
func (s *StackNode) SetSampleRate(rate float64) {
	for _, c := range s.children {
		c.SetSampleRate(rate)
	}
}

// Latency is constant only if every contributing child agrees on it.
func (s *StackNode) Latency() (float64, bool) {
	return commonLatency(s.children)
}

// Analyze propagates every child's channel window independently.
func (s *StackNode) Analyze(in flow.Vector) flow.Vector {
	out := in.Emit()
	for i, c := range s.children {
		sub := in.Slice(s.inOff[i], s.inOff[i]+c.Inputs())
		out = out.Append(c.Analyze(sub))
	}
	return out
}

// Ping threads the hash through children in order.
func (s *StackNode) Ping(probe bool, hash uint64) uint64 {
	next := mix(hash, kindStack)
	for _, c := range s.children {
		next = c.Ping(probe, next)
	}
	return next
}

// Branch returns a node feeding the same input to every child. All
// children must declare the same input count; outputs concatenate.
func Branch(children ...Node) *BranchNode {
	if len(children) == 0 {
		panic("node: branch: no children")
	}
	b := &BranchNode{
		children: children,
		outOff:   make([]int, len(children)),
	}
	for i, c := range children {
		mustArity("branch", c.Inputs(), children[0].Inputs())
		b.outOff[i] = b.outputs
		b.outputs += c.Outputs()
	}
	ping(b)
	return b
}

// Inputs returns the shared input count.
func (b *BranchNode) Inputs() int { return b.children[0].Inputs() }

// Outputs returns the total output count.
func (b *BranchNode) Outputs() int { return b.outputs }

// Children returns the branched nodes.
func (b *BranchNode) Children() []Node { return b.children }

// Tick feeds the input frame to every child.
func (b *BranchNode) Tick(in, out Frame) {
	for i, c := range b.children {
		c.Tick(in, out[b.outOff[i]:b.outOff[i]+c.Outputs()])
	}
}

// Process feeds the input block to every child.
func (b *BranchNode) Process(in, out Block) {
	for i, c := range b.children {
		c.Process(in, out[b.outOff[i]:b.outOff[i]+c.Outputs()])
	}
}

// Reset resets all children.
func (b *BranchNode) Reset() {
	for _, c := range b.children {
		c.Reset()
	}
}

// SetSampleRate propagates the rate to all children.
func (b *BranchNode) SetSampleRate(rate float64) {
	for _, c := range b.children {
		c.SetSampleRate(rate)
	}
}

// Latency is constant only if every contributing child agrees on it.
func (b *BranchNode) Latency() (float64, bool) {
	return commonLatency(b.children)
}

// Analyze replicates the input descriptors to every child.
func (b *BranchNode) Analyze(in flow.Vector) flow.Vector {
	out := in.Emit()
	for _, c := range b.children {
		out = out.Append(c.Analyze(in))
	}
	return out
}

// Ping threads the hash through children in order.
func (b *BranchNode) Ping(probe bool, hash uint64) uint64 {
	next := mix(hash, kindBranch)
	for _, c := range b.children {
		next = c.Ping(probe, next)
	}
	return next
}

// commonLatency reports the shared scalar latency of children that
// produce output, if they all agree on one.
func commonLatency(children []Node) (float64, bool) {
	var latency float64
	seen := false
	for _, c := range children {
		if c.Outputs() == 0 {
			continue
		}
		l, ok := c.Latency()
		if !ok {
			return 0, false
		}
		if seen && l != latency {
			return 0, false
		}
		latency, seen = l, true
	}
	return latency, seen
}
