package network

import (
	"fmt"

	"github.com/agilira/go-errors"

	"pipelined.dev/node"
	"pipelined.dev/node/flow"
)

// source addresses where a channel value comes from during execution:
// an output channel of a scheduled node, or a network input channel
// when the node index is negative.
type source struct {
	node    int
	channel int
}

const (
	fromNetwork = -1
	unset       = -2
)

// snapshot is one fully validated, immutable execution schedule. All
// buffers are pre-sized at build time; running a snapshot allocates
// nothing and takes no locks.
type snapshot struct {
	nodes     []node.Node
	sources   [][]source // per node, per input channel
	outs      []source   // per network output channel
	inFrames  []node.Frame
	outFrames []node.Frame
	inBlocks  []node.Block
	outBlocks []node.Block
	inWin     []node.Block
	outWin    []node.Block
	outWinNet node.Block
}

// build validates the staged topology and compiles it into a snapshot.
// Callers hold the control mutex.
func (n *Network) build() (*snapshot, error) {
	index := make(map[ID]int, len(n.order))
	for i, id := range n.order {
		index[id] = i
	}

	// resolve edges into per-input sources, rejecting dangling
	// endpoints, out-of-range channels and double-driven inputs
	sources := make([][]source, len(n.order))
	for i, id := range n.order {
		sources[i] = make([]source, n.nodes[id].Inputs())
		for ch := range sources[i] {
			sources[i][ch] = source{node: unset}
		}
	}
	outs := make([]source, n.outputs)
	for ch := range outs {
		outs[ch] = source{node: unset}
	}

	for _, e := range n.edges {
		src := source{node: fromNetwork, channel: e.from.channel}
		if e.from.id != "" {
			i, ok := index[e.from.id]
			if !ok {
				return nil, errors.New(ErrCodeDanglingEdge, fmt.Sprintf("edge from removed node %v", e.from.id))
			}
			if e.from.channel < 0 || e.from.channel >= n.nodes[e.from.id].Outputs() {
				return nil, errors.New(ErrCodeArityMismatch, fmt.Sprintf(
					"edge from %v channel %d, node has %d outputs",
					e.from.id, e.from.channel, n.nodes[e.from.id].Outputs(),
				))
			}
			src = source{node: i, channel: e.from.channel}
		} else if e.from.channel < 0 || e.from.channel >= n.inputs {
			return nil, errors.New(ErrCodeArityMismatch, fmt.Sprintf(
				"edge from network input %d, network has %d inputs", e.from.channel, n.inputs,
			))
		}

		if e.to.id == "" {
			if e.to.channel < 0 || e.to.channel >= n.outputs {
				return nil, errors.New(ErrCodeArityMismatch, fmt.Sprintf(
					"edge to network output %d, network has %d outputs", e.to.channel, n.outputs,
				))
			}
			if outs[e.to.channel].node != unset {
				return nil, errors.New(ErrCodeDuplicateInput, fmt.Sprintf(
					"network output %d driven twice", e.to.channel,
				))
			}
			outs[e.to.channel] = src
			continue
		}
		i, ok := index[e.to.id]
		if !ok {
			return nil, errors.New(ErrCodeDanglingEdge, fmt.Sprintf("edge to removed node %v", e.to.id))
		}
		if e.to.channel < 0 || e.to.channel >= n.nodes[e.to.id].Inputs() {
			return nil, errors.New(ErrCodeArityMismatch, fmt.Sprintf(
				"edge to %v channel %d, node has %d inputs",
				e.to.id, e.to.channel, n.nodes[e.to.id].Inputs(),
			))
		}
		if sources[i][e.to.channel].node != unset {
			return nil, errors.New(ErrCodeDuplicateInput, fmt.Sprintf(
				"input %d of %v driven twice", e.to.channel, e.to.id,
			))
		}
		sources[i][e.to.channel] = src
	}

	// every input that must be driven is driven
	for i, id := range n.order {
		for ch, s := range sources[i] {
			if s.node == unset {
				return nil, errors.New(ErrCodeUnconnectedInput, fmt.Sprintf(
					"input %d of %v is not connected", ch, id,
				))
			}
		}
	}
	for ch, s := range outs {
		if s.node == unset {
			return nil, errors.New(ErrCodeUnconnectedInput, fmt.Sprintf(
				"network output %d is not connected", ch,
			))
		}
	}

	schedule, err := n.schedule(index, sources)
	if err != nil {
		return nil, err
	}

	// compile: reorder nodes and remap sources to schedule positions
	pos := make([]int, len(schedule))
	for newIdx, oldIdx := range schedule {
		pos[oldIdx] = newIdx
	}
	snap := &snapshot{
		nodes:     make([]node.Node, len(schedule)),
		sources:   make([][]source, len(schedule)),
		outs:      make([]source, len(outs)),
		inFrames:  make([]node.Frame, len(schedule)),
		outFrames: make([]node.Frame, len(schedule)),
		inBlocks:  make([]node.Block, len(schedule)),
		outBlocks: make([]node.Block, len(schedule)),
		inWin:     make([]node.Block, len(schedule)),
		outWin:    make([]node.Block, len(schedule)),
		outWinNet: make(node.Block, n.outputs),
	}
	for newIdx, oldIdx := range schedule {
		nd := n.nodes[n.order[oldIdx]]
		snap.nodes[newIdx] = nd
		remapped := make([]source, len(sources[oldIdx]))
		for ch, s := range sources[oldIdx] {
			if s.node >= 0 {
				s.node = pos[s.node]
			}
			remapped[ch] = s
		}
		snap.sources[newIdx] = remapped
		snap.inFrames[newIdx] = make(node.Frame, nd.Inputs())
		snap.outFrames[newIdx] = make(node.Frame, nd.Outputs())
		snap.inBlocks[newIdx] = node.EmptyBlock(nd.Inputs(), node.MaxBlockSize)
		snap.outBlocks[newIdx] = node.EmptyBlock(nd.Outputs(), node.MaxBlockSize)
		snap.inWin[newIdx] = make(node.Block, nd.Inputs())
		snap.outWin[newIdx] = make(node.Block, nd.Outputs())
	}
	for ch, s := range outs {
		if s.node >= 0 {
			s.node = pos[s.node]
		}
		snap.outs[ch] = s
	}
	return snap, nil
}

// seed runs the two-pass ping protocol over the schedule: the probe
// pass assigns every node a position-derived hash, the final pass
// delivers it. Nodes occupying different schedule positions receive
// distinct, reproducible seeds even when they are structurally
// identical.
func (snap *snapshot) seed(hash uint64) {
	snap.ping(true, hash)
	snap.ping(false, hash)
}

// ping threads the hash through the schedule in order.
func (snap *snapshot) ping(probe bool, hash uint64) uint64 {
	next := hash
	for _, nd := range snap.nodes {
		next = nd.Ping(probe, next)
	}
	return next
}

// schedule topologically orders nodes, rejecting cycles: loops belong
// in explicit feedback nodes, never in network wiring.
func (n *Network) schedule(index map[ID]int, sources [][]source) ([]int, error) {
	indegree := make([]int, len(n.order))
	dependents := make([][]int, len(n.order))
	for i := range sources {
		for _, s := range sources[i] {
			if s.node >= 0 {
				indegree[i]++
				dependents[s.node] = append(dependents[s.node], i)
			}
		}
	}
	queue := make([]int, 0, len(n.order))
	for i, d := range indegree {
		if d == 0 {
			queue = append(queue, i)
		}
	}
	schedule := make([]int, 0, len(n.order))
	for len(queue) > 0 {
		i := queue[0]
		queue = queue[1:]
		schedule = append(schedule, i)
		for _, d := range dependents[i] {
			if indegree[d]--; indegree[d] == 0 {
				queue = append(queue, d)
			}
		}
	}
	if len(schedule) != len(n.order) {
		return nil, errors.New(ErrCodeCycle, "staged topology contains a cycle")
	}
	return schedule, nil
}

// Tick processes one frame through the active snapshot. Before the
// first commit the output is silence. The snapshot pointer is read
// once, so an edit committed mid-frame takes effect on the next one.
func (n *Network) Tick(in, out node.Frame) {
	// arities are only known dynamically here, so the check is explicit
	if len(in) != n.inputs || len(out) != n.outputs {
		panic(fmt.Sprintf(
			"network: tick: arity mismatch: got %dx%d frames, network is %dx%d",
			len(in), len(out), n.inputs, n.outputs,
		))
	}
	snap := n.active.Load()
	if snap == nil {
		out.Clear()
		return
	}
	for i, nd := range snap.nodes {
		dst := snap.inFrames[i]
		for ch, s := range snap.sources[i] {
			if s.node == fromNetwork {
				dst[ch] = in[s.channel]
			} else {
				dst[ch] = snap.outFrames[s.node][s.channel]
			}
		}
		nd.Tick(dst, snap.outFrames[i])
	}
	for ch, s := range snap.outs {
		if s.node == fromNetwork {
			out[ch] = in[s.channel]
		} else {
			out[ch] = snap.outFrames[s.node][s.channel]
		}
	}
}

// Process processes a block through the active snapshot. The snapshot
// pointer is read once per block, which gives the visibility
// guarantee: edits committed before the block start are picked up, an
// edit committed during the block is picked up by the next one.
func (n *Network) Process(in, out node.Block) {
	if in.NumChannels() != n.inputs || out.NumChannels() != n.outputs {
		panic(fmt.Sprintf(
			"network: process: arity mismatch: got %dx%d blocks, network is %dx%d",
			in.NumChannels(), out.NumChannels(), n.inputs, n.outputs,
		))
	}
	snap := n.active.Load()
	if snap == nil {
		for ch := range out {
			for i := range out[ch] {
				out[ch][i] = 0
			}
		}
		return
	}
	size := out.Size()
	if size == 0 && in.NumChannels() > 0 {
		size = in.Size()
	}
	for i, nd := range snap.nodes {
		inw := snap.inWin[i]
		for ch, s := range snap.sources[i] {
			if s.node == fromNetwork {
				inw[ch] = in[s.channel][:size]
			} else {
				inw[ch] = snap.outBlocks[s.node][s.channel][:size]
			}
		}
		outw := snap.outWin[i]
		for ch := range outw {
			outw[ch] = snap.outBlocks[i][ch][:size]
		}
		nd.Process(inw, outw)
	}
	for ch, s := range snap.outs {
		if s.node == fromNetwork {
			copy(out[ch], in[s.channel][:size])
		} else {
			copy(out[ch], snap.outBlocks[s.node][s.channel][:size])
		}
	}
}

// Reset reinitializes all nodes of the active snapshot.
func (n *Network) Reset() {
	if snap := n.active.Load(); snap != nil {
		for _, nd := range snap.nodes {
			nd.Reset()
		}
	}
}

// SetSampleRate adapts all nodes of the active snapshot to a new rate.
func (n *Network) SetSampleRate(rate float64) {
	if snap := n.active.Load(); snap != nil {
		for _, nd := range snap.nodes {
			nd.SetSampleRate(rate)
		}
	}
}

// analyze propagates descriptors through the schedule.
func (snap *snapshot) analyze(in flow.Vector, outputs int) flow.Vector {
	vectors := make([]flow.Vector, len(snap.nodes))
	for i, nd := range snap.nodes {
		signals := make([]flow.Signal, nd.Inputs())
		for ch, s := range snap.sources[i] {
			if s.node == fromNetwork {
				signals[ch] = in.Signals[s.channel]
			} else {
				signals[ch] = vectors[s.node].Signals[s.channel]
			}
		}
		vectors[i] = nd.Analyze(in.Emit(signals...))
	}
	signals := make([]flow.Signal, outputs)
	for ch, s := range snap.outs {
		if s.node == fromNetwork {
			signals[ch] = in.Signals[s.channel]
		} else {
			signals[ch] = vectors[s.node].Signals[s.channel]
		}
	}
	return in.Emit(signals...)
}
