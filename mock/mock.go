// Package mock provides instrumented nodes for tests.
package mock

import (
	"pipelined.dev/node"
	"pipelined.dev/node/flow"
)

// mock nodes mix a private kind into position hashes.
const kind uint64 = 0x6d6f636b

// Node is a test node with configurable arity. Every output channel
// emits Value plus the matching input channel when one exists. All
// contract calls are counted.
type Node struct {
	node.Base
	Value float64

	Ticks    int
	Blocks   int
	Resets   int
	Rates    []float64
	Hashes   []uint64
	Analyzed int
	FailTick func() // called before every tick when set
}

// New returns a mock node with the given arity.
func New(inputs, outputs int, value float64) *Node {
	n := &Node{
		Base:  node.MakeBase(kind, inputs, outputs),
		Value: value,
	}
	return n
}

// Tick counts the call and emits the configured value.
func (n *Node) Tick(in, out node.Frame) {
	if n.FailTick != nil {
		n.FailTick()
	}
	n.Ticks++
	for ch := range out {
		out[ch] = n.Value
		if ch < len(in) {
			out[ch] += in[ch]
		}
	}
}

// Process counts the call and emits the configured value.
func (n *Node) Process(in, out node.Block) {
	n.Blocks++
	for ch := range out {
		for i := range out[ch] {
			out[ch][i] = n.Value
			if ch < in.NumChannels() {
				out[ch][i] += in[ch][i]
			}
		}
	}
}

// Reset counts the call.
func (n *Node) Reset() {
	n.Resets++
}

// SetSampleRate records the rate.
func (n *Node) SetSampleRate(rate float64) {
	n.Base.SetSampleRate(rate)
	n.Rates = append(n.Rates, rate)
}

// Analyze counts the call and propagates conservatively.
func (n *Node) Analyze(in flow.Vector) flow.Vector {
	n.Analyzed++
	return flow.Conservative(in, n.Outputs())
}

// Ping records the hash delivered on the final pass.
func (n *Node) Ping(probe bool, hash uint64) uint64 {
	h := n.Base.Ping(probe, hash)
	if !probe {
		n.Hashes = append(n.Hashes, n.Hash())
	}
	return h
}
