// Package node provides an audio node composition engine. It allows to:
//	- implement elementary signal generators and transformers as Nodes
//	- combine Nodes into graphs with series, stack, mix and feedback
//	  combinators that run sample-accurately without allocation
//	- analyze latency and frequency response of a graph symbolically,
//	  without processing samples
package node

import (
	"fmt"

	"pipelined.dev/node/flow"
)

// DefaultSampleRate is used until a node is given an explicit rate.
const DefaultSampleRate = 44100

// DefaultSeed is the root hash every two-pass ping starts from.
const DefaultSeed uint64 = 0x853c49e6748fea9b

// Node is a processing unit with fixed input and output channel counts.
// Passing frames or blocks that disagree with the declared arity is a
// contract violation and panics, it is never a recoverable failure.
type Node interface {
	// Inputs returns the input channel count.
	Inputs() int
	// Outputs returns the output channel count.
	Outputs() int
	// Tick processes one frame. It must not allocate and must be
	// deterministic given internal state.
	Tick(in, out Frame)
	// Process processes a block of up to MaxBlockSize samples.
	Process(in, out Block)
	// Reset reinitializes internal state.
	Reset()
	// SetSampleRate adapts sample-rate-dependent state to a new rate
	// and resets it deterministically.
	SetSampleRate(rate float64)
	// Latency reports the pure, frequency-independent delay of the
	// node in samples, if constant.
	Latency() (float64, bool)
	// Analyze propagates symbolic channel descriptors through the node.
	Analyze(in flow.Vector) flow.Vector
	// Ping threads the deterministic position hash through the graph.
	// With probe set the pass only computes hashes; without it the node
	// stores the delivered hash and derives its reproducible
	// randomness from it. Returns the hash for the next sibling.
	Ping(probe bool, hash uint64) uint64
}

// Base carries the bookkeeping every leaf node needs. Embed it and
// override the methods that the node cares about.
type Base struct {
	inputs     int
	outputs    int
	kind       uint64
	sampleRate float64
	hash       uint64
	rnd        Rand
}

// MakeBase returns initialized base for a leaf of the given kind.
func MakeBase(kind uint64, inputs, outputs int) Base {
	return Base{
		inputs:     inputs,
		outputs:    outputs,
		kind:       kind,
		sampleRate: DefaultSampleRate,
		hash:       DefaultSeed,
	}
}

// Inputs returns the input channel count.
func (b *Base) Inputs() int { return b.inputs }

// Outputs returns the output channel count.
func (b *Base) Outputs() int { return b.outputs }

// Reset is a no-op for stateless nodes.
func (b *Base) Reset() {}

// SetSampleRate stores the new rate.
func (b *Base) SetSampleRate(rate float64) { b.sampleRate = rate }

// SampleRate returns the current sample rate.
func (b *Base) SampleRate() float64 { return b.sampleRate }

// Latency reports zero delay. Nodes that delay their signal override it.
func (b *Base) Latency() (float64, bool) { return 0, true }

// Analyze propagates conservatively: known latencies survive, value and
// response information does not. Linear nodes override it.
func (b *Base) Analyze(in flow.Vector) flow.Vector {
	return flow.Conservative(in, b.outputs)
}

// Ping mixes the node kind into the hash and, on the final pass, stores
// it and reseeds the node's randomness.
func (b *Base) Ping(probe bool, hash uint64) uint64 {
	h := mix(hash, b.kind)
	if !probe {
		b.hash = h
		b.rnd = NewRand(h)
	}
	return h
}

// Hash returns the position hash delivered by the last ping.
func (b *Base) Hash() uint64 { return b.hash }

// Rand returns the node's deterministic generator.
func (b *Base) Rand() *Rand { return &b.rnd }

// ping performs the two-pass seeding protocol over a freshly
// constructed graph: the probe pass assigns position-derived hashes,
// the final pass delivers them.
func ping(n Node) {
	n.Ping(true, DefaultSeed)
	n.Ping(false, DefaultSeed)
}

// mustArity panics unless got channels match want.
func mustArity(op string, got, want int) {
	if got != want {
		panic(fmt.Sprintf("node: %s: arity mismatch: got %d channels, want %d", op, got, want))
	}
}

// processByTick is the default block implementation: it ticks every
// sample through scratch frames owned by the caller.
func processByTick(n Node, in, out Block, scratchIn, scratchOut Frame) {
	size := out.Size()
	if in.NumChannels() > 0 && in.Size() < size {
		size = in.Size()
	}
	for i := 0; i < size; i++ {
		in.frame(i, scratchIn)
		n.Tick(scratchIn, scratchOut)
		out.setFrame(i, scratchOut)
	}
}

// LatencyOf reports the end-to-end latency of a graph derived by
// symbolic analysis with zero-latency inputs. It is known only if all
// outputs agree on a single constant value.
func LatencyOf(n Node) (float64, bool) {
	signals := make([]flow.Signal, n.Inputs())
	for i := range signals {
		signals[i] = flow.Delay(0)
	}
	out := n.Analyze(flow.NewVector(DefaultSampleRate, 0, signals...))
	var latency float64
	for i, s := range out.Signals {
		l, ok := s.Latency()
		if !ok {
			return 0, false
		}
		if i == 0 {
			latency = l
		} else if l != latency {
			return 0, false
		}
	}
	return latency, n.Outputs() > 0
}

// ResponseAt reports the complex frequency response of every output of
// a graph at the given frequency and sample rate, derived by symbolic
// analysis with unit-response inputs. The second value is false if any
// output is not provably linear.
func ResponseAt(n Node, frequency, rate float64) ([]complex128, bool) {
	signals := make([]flow.Signal, n.Inputs())
	for i := range signals {
		signals[i] = flow.Response(1, 0)
	}
	out := n.Analyze(flow.NewVector(rate, frequency, signals...))
	gains := make([]complex128, len(out.Signals))
	for i, s := range out.Signals {
		g, ok := s.Gain()
		if !ok {
			return nil, false
		}
		gains[i] = g
	}
	return gains, true
}
