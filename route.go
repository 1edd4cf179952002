package node

import (
	"pipelined.dev/node/flow"
)

type (
	// SplitNode replicates its input channels a number of times.
	SplitNode struct {
		Base
		channels int
		copies   int
	}

	// JoinNode downmixes groups of channels into one group by
	// averaging.
	JoinNode struct {
		Base
		channels int
		copies   int
		scale    float64
	}
)

// Split returns a router replicating channels input channels copies
// times: descriptors and samples are duplicated unchanged.
func Split(channels, copies int) *SplitNode {
	if channels < 1 || copies < 1 {
		panic("node: split: channels and copies must be positive")
	}
	n := &SplitNode{
		Base:     MakeBase(kindSplit, channels, channels*copies),
		channels: channels,
		copies:   copies,
	}
	ping(n)
	return n
}

// Tick replicates the input frame.
func (n *SplitNode) Tick(in, out Frame) {
	for i := 0; i < n.copies; i++ {
		copy(out[i*n.channels:(i+1)*n.channels], in)
	}
}

// Process replicates the input block.
func (n *SplitNode) Process(in, out Block) {
	for i := 0; i < n.copies; i++ {
		for ch := 0; ch < n.channels; ch++ {
			copy(out[i*n.channels+ch], in[ch])
		}
	}
}

// Analyze replicates descriptors unchanged.
func (n *SplitNode) Analyze(in flow.Vector) flow.Vector {
	return flow.Broadcast(in, n.copies)
}

// Join returns a router downmixing copies groups of channels channels
// into one group, scaled by 1/copies so mixing equal signals preserves
// level. The input count is channels*copies, a multiple of the output
// count.
func Join(channels, copies int) *JoinNode {
	if channels < 1 || copies < 1 {
		panic("node: join: channels and copies must be positive")
	}
	n := &JoinNode{
		Base:     MakeBase(kindJoin, channels*copies, channels),
		channels: channels,
		copies:   copies,
		scale:    1 / float64(copies),
	}
	ping(n)
	return n
}

// Tick downmixes the input frame.
func (n *JoinNode) Tick(in, out Frame) {
	for ch := 0; ch < n.channels; ch++ {
		var sum float64
		for i := 0; i < n.copies; i++ {
			sum += in[ch+i*n.channels]
		}
		out[ch] = sum * n.scale
	}
}

// Process downmixes the input block.
func (n *JoinNode) Process(in, out Block) {
	for ch := 0; ch < n.channels; ch++ {
		for j := range out[ch] {
			var sum float64
			for i := 0; i < n.copies; i++ {
				sum += in[ch+i*n.channels][j]
			}
			out[ch][j] = sum * n.scale
		}
	}
}

// Analyze sums linear descriptors with energy normalization, falling
// back to pure-delay propagation otherwise.
func (n *JoinNode) Analyze(in flow.Vector) flow.Vector {
	return flow.Downmix(in, n.channels)
}
