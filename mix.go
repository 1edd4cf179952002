package node

import (
	"pipelined.dev/node/flow"
)

type (
	// SumNode mixes children by adding their outputs channel-wise.
	// Inputs of all children are concatenated.
	SumNode struct {
		children []Node
		inOff    []int
		inputs   int
		frame    Frame
		block    Block
		window   Block
	}

	// ProductNode mixes children by multiplying their outputs
	// channel-wise. Inputs of all children are concatenated.
	ProductNode struct {
		children []Node
		inOff    []int
		inputs   int
		frame    Frame
		block    Block
		window   Block
	}
)

// Sum returns a node adding children outputs channel-wise. All children
// must declare the same output count. Addition is the only mixing that
// preserves linear signal descriptors.
func Sum(children ...Node) *SumNode {
	if len(children) == 0 {
		panic("node: sum: no children")
	}
	s := &SumNode{children: children, inOff: make([]int, len(children))}
	outputs := children[0].Outputs()
	for i, c := range children {
		mustArity("sum", c.Outputs(), outputs)
		s.inOff[i] = s.inputs
		s.inputs += c.Inputs()
	}
	s.frame = make(Frame, outputs)
	s.block = EmptyBlock(outputs, MaxBlockSize)
	s.window = make(Block, outputs)
	ping(s)
	return s
}

// Inputs returns the total input count.
func (s *SumNode) Inputs() int { return s.inputs }

// Outputs returns the shared output count.
func (s *SumNode) Outputs() int { return s.children[0].Outputs() }

// Children returns the mixed nodes.
func (s *SumNode) Children() []Node { return s.children }

// Tick mixes one frame.
func (s *SumNode) Tick(in, out Frame) {
	for i, c := range s.children {
		sub := in[s.inOff[i] : s.inOff[i]+c.Inputs()]
		if i == 0 {
			c.Tick(sub, out)
			continue
		}
		c.Tick(sub, s.frame)
		for ch := range out {
			out[ch] += s.frame[ch]
		}
	}
}

// Process mixes a block.
func (s *SumNode) Process(in, out Block) {
	size := out.Size()
	for i, c := range s.children {
		sub := in[s.inOff[i] : s.inOff[i]+c.Inputs()]
		if i == 0 {
			c.Process(sub, out)
			continue
		}
		for ch := range s.window {
			s.window[ch] = s.block[ch][:size]
		}
		c.Process(sub, s.window)
		for ch := range out {
			for j := range out[ch] {
				out[ch][j] += s.window[ch][j]
			}
		}
	}
}

// Reset resets all children.
func (s *SumNode) Reset() {
	for _, c := range s.children {
		c.Reset()
	}
}

// SetSampleRate propagates the rate to all children.
func (s *SumNode) SetSampleRate(rate float64) {
	for _, c := range s.children {
		c.SetSampleRate(rate)
	}
}

// Latency is constant only if every child agrees on it.
func (s *SumNode) Latency() (float64, bool) {
	return commonLatency(s.children)
}

// Analyze sums children descriptors channel-wise, preserving linearity.
func (s *SumNode) Analyze(in flow.Vector) flow.Vector {
	var acc []flow.Signal
	for i, c := range s.children {
		sub := in.Slice(s.inOff[i], s.inOff[i]+c.Inputs())
		out := c.Analyze(sub).Signals
		if i == 0 {
			acc = append(acc, out...)
			continue
		}
		for ch := range acc {
			acc[ch] = flow.Sum(acc[ch], out[ch])
		}
	}
	return in.Emit(acc...)
}

// Ping threads the hash through children in order.
func (s *SumNode) Ping(probe bool, hash uint64) uint64 {
	next := mix(hash, kindSum)
	for _, c := range s.children {
		next = c.Ping(probe, next)
	}
	return next
}

// Product returns a node multiplying children outputs channel-wise. All
// children must declare the same output count. Multiplication by
// another signal is nonlinear: descriptors degrade to pure delay at
// best.
func Product(children ...Node) *ProductNode {
	if len(children) == 0 {
		panic("node: product: no children")
	}
	p := &ProductNode{children: children, inOff: make([]int, len(children))}
	outputs := children[0].Outputs()
	for i, c := range children {
		mustArity("product", c.Outputs(), outputs)
		p.inOff[i] = p.inputs
		p.inputs += c.Inputs()
	}
	p.frame = make(Frame, outputs)
	p.block = EmptyBlock(outputs, MaxBlockSize)
	p.window = make(Block, outputs)
	ping(p)
	return p
}

// Inputs returns the total input count.
func (p *ProductNode) Inputs() int { return p.inputs }

// Outputs returns the shared output count.
func (p *ProductNode) Outputs() int { return p.children[0].Outputs() }

// Children returns the mixed nodes.
func (p *ProductNode) Children() []Node { return p.children }

// Tick mixes one frame.
func (p *ProductNode) Tick(in, out Frame) {
	for i, c := range p.children {
		sub := in[p.inOff[i] : p.inOff[i]+c.Inputs()]
		if i == 0 {
			c.Tick(sub, out)
			continue
		}
		c.Tick(sub, p.frame)
		for ch := range out {
			out[ch] *= p.frame[ch]
		}
	}
}

// Process mixes a block.
func (p *ProductNode) Process(in, out Block) {
	size := out.Size()
	for i, c := range p.children {
		sub := in[p.inOff[i] : p.inOff[i]+c.Inputs()]
		if i == 0 {
			c.Process(sub, out)
			continue
		}
		for ch := range p.window {
			p.window[ch] = p.block[ch][:size]
		}
		c.Process(sub, p.window)
		for ch := range out {
			for j := range out[ch] {
				out[ch][j] *= p.window[ch][j]
			}
		}
	}
}

// Reset resets all children.
func (p *ProductNode) Reset() {
	for _, c := range p.children {
		c.Reset()
	}
}

// SetSampleRate propagates the rate to all children.
func (p *ProductNode) SetSampleRate(rate float64) {
	for _, c := range p.children {
		c.SetSampleRate(rate)
	}
}

// Latency is constant only if every child agrees on it.
func (p *ProductNode) Latency() (float64, bool) {
	return commonLatency(p.children)
}

// Analyze combines children descriptors conservatively: multiplication
// is data-dependent, so value and response information is discarded.
func (p *ProductNode) Analyze(in flow.Vector) flow.Vector {
	var acc []flow.Signal
	for i, c := range p.children {
		sub := in.Slice(p.inOff[i], p.inOff[i]+c.Inputs())
		out := c.Analyze(sub).Signals
		if i == 0 {
			acc = append(acc, out...)
			continue
		}
		for ch := range acc {
			acc[ch] = flow.Combine(acc[ch], out[ch])
		}
	}
	return in.Emit(acc...)
}

// Ping threads the hash through children in order.
func (p *ProductNode) Ping(probe bool, hash uint64) uint64 {
	next := mix(hash, kindProduct)
	for _, c := range p.children {
		next = c.Ping(probe, next)
	}
	return next
}
