package node_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"pipelined.dev/node"
	"pipelined.dev/node/mock"
)

// tick runs one frame through a node and returns the output.
func tick(n node.Node, in ...float64) node.Frame {
	out := make(node.Frame, n.Outputs())
	n.Tick(in, out)
	return out
}

func TestArityLaws(t *testing.T) {
	tests := []struct {
		description string
		node        node.Node
		inputs      int
		outputs     int
	}{
		{
			description: "series arity is first in, last out",
			node:        node.Series(mock.New(2, 3, 0), mock.New(3, 1, 0)),
			inputs:      2,
			outputs:     1,
		},
		{
			description: "stack arities add",
			node:        node.Stack(mock.New(1, 2, 0), mock.New(2, 1, 0)),
			inputs:      3,
			outputs:     3,
		},
		{
			description: "branch shares inputs, outputs add",
			node:        node.Branch(mock.New(2, 1, 0), mock.New(2, 3, 0)),
			inputs:      2,
			outputs:     4,
		},
		{
			description: "sum inputs add, outputs shared",
			node:        node.Sum(mock.New(1, 2, 0), mock.New(3, 2, 0)),
			inputs:      4,
			outputs:     2,
		},
		{
			description: "product inputs add, outputs shared",
			node:        node.Product(mock.New(1, 2, 0), mock.New(0, 2, 0)),
			inputs:      1,
			outputs:     2,
		},
		{
			description: "feedback mirrors the child",
			node:        node.Feedback(mock.New(2, 2, 0), nil),
			inputs:      2,
			outputs:     2,
		},
		{
			description: "split multiplies outputs",
			node:        node.Split(2, 3),
			inputs:      2,
			outputs:     6,
		},
		{
			description: "join divides inputs",
			node:        node.Join(2, 3),
			inputs:      6,
			outputs:     2,
		},
	}

	for _, test := range tests {
		assert.Equal(t, test.inputs, test.node.Inputs(), test.description)
		assert.Equal(t, test.outputs, test.node.Outputs(), test.description)
	}
}

func TestArityViolations(t *testing.T) {
	assert.Panics(t, func() { node.Series(mock.New(0, 2, 0), mock.New(3, 1, 0)) })
	assert.Panics(t, func() { node.Branch(mock.New(1, 1, 0), mock.New(2, 1, 0)) })
	assert.Panics(t, func() { node.Sum(mock.New(0, 1, 0), mock.New(0, 2, 0)) })
	assert.Panics(t, func() { node.Feedback(mock.New(1, 2, 0), nil) })
	assert.Panics(t, func() { node.Feedback(node.Pass(3), node.Hadamard()) })
}

func TestRoundTrip(t *testing.T) {
	// constant through a gain
	s := node.Series(node.Const(1.0), node.Gain(0.5))
	assert.Equal(t, node.Frame{0.5}, tick(s))

	// the gain inside an identity feedback loop accumulates the prior
	// output: 0.5, then (1 + 0.5) * 0.5
	f := node.Series(node.Const(1.0), node.Feedback(node.Gain(0.5), nil))
	assert.Equal(t, node.Frame{0.5}, tick(f))
	assert.Equal(t, node.Frame{0.75}, tick(f))
}

func TestStackAndBranch(t *testing.T) {
	s := node.Stack(node.Const(0.1), node.Const(0.2, 0.3))
	assert.Equal(t, node.Frame{0.1, 0.2, 0.3}, tick(s))

	b := node.Branch(node.Gain(2), node.Gain(3))
	assert.Equal(t, node.Frame{2, 3}, tick(b, 1))
}

func TestSumAndProduct(t *testing.T) {
	sum := node.Sum(node.Const(0.25), node.Const(0.5))
	assert.Equal(t, node.Frame{0.75}, tick(sum))

	product := node.Product(node.Const(0.5), node.Const(0.5))
	assert.Equal(t, node.Frame{0.25}, tick(product))
}

func TestSplitJoin(t *testing.T) {
	split := node.Split(2, 2)
	assert.Equal(t, node.Frame{1, 2, 1, 2}, tick(split, 1, 2))

	join := node.Join(2, 2)
	assert.Equal(t, node.Frame{2, 3}, tick(join, 1, 2, 3, 4))
}

func TestLatencyAdditivity(t *testing.T) {
	s := node.Series(node.Delay(3), node.Delay(2))
	reported, ok := s.Latency()
	assert.True(t, ok)
	assert.Equal(t, 5.0, reported)

	analyzed, ok := node.LatencyOf(s)
	assert.True(t, ok)
	assert.Equal(t, reported, analyzed)

	// feed an impulse and measure the actual offset of the response
	measured := -1
	for i := 0; i < 16; i++ {
		in := node.Frame{0}
		if i == 0 {
			in[0] = 1
		}
		if out := tick(s, in...); out[0] != 0 && measured < 0 {
			measured = i
		}
	}
	assert.Equal(t, int(reported), measured)
}

func TestProcessMatchesTick(t *testing.T) {
	const size = 64
	build := func() node.Node {
		return node.Series(
			node.Stack(node.Sine(440), node.Noise()),
			node.Stack(node.Gain(0.5), node.Delay(7)),
			node.Join(1, 2),
		)
	}

	ticked := build()
	want := make([]float64, size)
	for i := range want {
		want[i] = tick(ticked)[0]
	}

	processed := build()
	out := node.EmptyBlock(1, size)
	processed.Process(nil, out)
	assert.Equal(t, want, out[0])
}

func TestDeterminism(t *testing.T) {
	build := func() node.Node {
		return node.Sum(
			node.Stack(node.Sine(440), node.Sine(440)),
			node.Stack(node.Noise(), node.Noise()),
		)
	}
	a, b := build(), build()
	for i := 0; i < 128; i++ {
		assert.Equal(t, tick(a), tick(b))
	}
}

func TestSeedDistinctness(t *testing.T) {
	// structurally identical siblings occupy different positions and
	// must receive different hashes
	left := mock.New(0, 1, 0)
	right := mock.New(0, 1, 0)
	node.Stack(left, right)
	assert.NotEmpty(t, left.Hashes)
	assert.NotEmpty(t, right.Hashes)
	assert.NotEqual(t, left.Hashes[len(left.Hashes)-1], right.Hashes[len(right.Hashes)-1])

	// two co-located oscillators stay decorrelated
	out := tick(node.Stack(node.Sine(440), node.Sine(440)))
	assert.NotEqual(t, out[0], out[1])
}

func TestResetAndSampleRate(t *testing.T) {
	child := mock.New(1, 1, 0)
	f := node.Series(node.Stack(child), node.Gain(1))
	f.Reset()
	assert.Equal(t, 1, child.Resets)
	f.SetSampleRate(48000)
	assert.Equal(t, []float64{48000}, child.Rates)

	// a sine restarts from its seeded phase
	s := node.Sine(440)
	first := tick(s)[0]
	tick(s)
	s.Reset()
	assert.Equal(t, first, tick(s)[0])
}

func TestDelayResize(t *testing.T) {
	d := node.DelaySeconds(0.001)
	l, ok := d.Latency()
	assert.True(t, ok)
	assert.Equal(t, 44.0, l, "44.1kHz default rate")

	d.SetSampleRate(48000)
	l, _ = d.Latency()
	assert.Equal(t, 48.0, l)
}
