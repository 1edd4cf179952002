package node

import (
	"pipelined.dev/node/flow"
)

// SeriesNode chains children: the output of each child feeds the input
// of the next one.
type SeriesNode struct {
	children []Node
	frames   []Frame
	blocks   []Block
	windows  []Block
}

// Series returns a node chaining children in order. Adjacent arities
// must match: output count of each child equals input count of the
// next. Latencies add up, responses multiply.
func Series(children ...Node) *SeriesNode {
	if len(children) == 0 {
		panic("node: series: no children")
	}
	for i := 0; i < len(children)-1; i++ {
		mustArity("series", children[i+1].Inputs(), children[i].Outputs())
	}
	s := &SeriesNode{
		children: children,
		frames:   make([]Frame, len(children)),
		blocks:   make([]Block, len(children)),
		windows:  make([]Block, len(children)),
	}
	for i, c := range children {
		s.frames[i] = make(Frame, c.Outputs())
		s.blocks[i] = EmptyBlock(c.Outputs(), MaxBlockSize)
		s.windows[i] = make(Block, c.Outputs())
	}
	ping(s)
	return s
}

// Inputs returns the first child's input count.
func (s *SeriesNode) Inputs() int { return s.children[0].Inputs() }

// Outputs returns the last child's output count.
func (s *SeriesNode) Outputs() int { return s.children[len(s.children)-1].Outputs() }

// Children returns the chained nodes.
func (s *SeriesNode) Children() []Node { return s.children }

// Tick runs one frame through the chain.
func (s *SeriesNode) Tick(in, out Frame) {
	cur := in
	last := len(s.children) - 1
	for i, c := range s.children {
		if i == last {
			c.Tick(cur, out)
			return
		}
		c.Tick(cur, s.frames[i])
		cur = s.frames[i]
	}
}

// Process runs a block through the chain using pre-sized intermediate
// buffers.
func (s *SeriesNode) Process(in, out Block) {
	size := out.Size()
	if out.NumChannels() == 0 {
		size = in.Size()
	}
	if len(s.children) == 1 {
		s.children[0].Process(in, out)
		return
	}
	cur := in
	last := len(s.children) - 1
	for i, c := range s.children {
		if i == last {
			c.Process(cur, out)
			return
		}
		w := s.windows[i]
		for ch := range w {
			w[ch] = s.blocks[i][ch][:size]
		}
		c.Process(cur, w)
		cur = w
	}
}

// Reset resets all children.
func (s *SeriesNode) Reset() {
	for _, c := range s.children {
		c.Reset()
	}
}

// SetSampleRate propagates the rate to all children.
func (s *SeriesNode) SetSampleRate(rate float64) {
	for _, c := range s.children {
		c.SetSampleRate(rate)
	}
}

// Latency adds up children latencies.
func (s *SeriesNode) Latency() (float64, bool) {
	var total float64
	for _, c := range s.children {
		l, ok := c.Latency()
		if !ok {
			return 0, false
		}
		total += l
	}
	return total, true
}

// Analyze propagates descriptors through the chain.
func (s *SeriesNode) Analyze(in flow.Vector) flow.Vector {
	v := in
	for _, c := range s.children {
		v = c.Analyze(v)
	}
	return v
}

// Ping threads the hash through children in order.
func (s *SeriesNode) Ping(probe bool, hash uint64) uint64 {
	next := mix(hash, kindSeries)
	for _, c := range s.children {
		next = c.Ping(probe, next)
	}
	return next
}
