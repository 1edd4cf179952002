package flow_test

import (
	"math"
	"math/cmplx"
	"testing"

	"github.com/stretchr/testify/assert"

	"pipelined.dev/node/flow"
)

func TestSignalKinds(t *testing.T) {
	tests := []struct {
		description string
		signal      flow.Signal
		kind        flow.Kind
		latency     float64
		known       bool
	}{
		{
			description: "unknown carries nothing",
			signal:      flow.Unknown(),
			kind:        flow.KindUnknown,
		},
		{
			description: "constant has zero latency",
			signal:      flow.Value(0.5),
			kind:        flow.KindValue,
			known:       true,
		},
		{
			description: "delay keeps its latency",
			signal:      flow.Delay(12),
			kind:        flow.KindDelay,
			latency:     12,
			known:       true,
		},
		{
			description: "response keeps its latency",
			signal:      flow.Response(1i, 3),
			kind:        flow.KindResponse,
			latency:     3,
			known:       true,
		},
	}

	for _, test := range tests {
		assert.Equal(t, test.kind, test.signal.Kind(), test.description)
		l, ok := test.signal.Latency()
		assert.Equal(t, test.known, ok, test.description)
		assert.Equal(t, test.latency, l, test.description)
	}
}

func TestFilter(t *testing.T) {
	halve := func(g complex128) complex128 { return g * 0.5 }

	// linear stages track responses and accumulate latency
	s := flow.Response(1, 2).Filter(3, halve)
	g, ok := s.Gain()
	assert.True(t, ok)
	assert.Equal(t, complex128(0.5), g)
	l, _ := s.Latency()
	assert.Equal(t, 5.0, l)

	// constants remain trackable through filters
	s = flow.Value(1).Filter(0, halve)
	g, ok = s.Gain()
	assert.True(t, ok)
	assert.Equal(t, complex128(0.5), g)

	// pure delays only accumulate latency
	s = flow.Delay(2).Filter(3, halve)
	assert.Equal(t, flow.Delay(5), s)

	// unknown stays unknown
	assert.Equal(t, flow.Unknown(), flow.Unknown().Filter(3, halve))
}

func TestDistort(t *testing.T) {
	assert.Equal(t, flow.Delay(7), flow.Response(1i, 4).Distort(3))
	assert.Equal(t, flow.Delay(3), flow.Value(1).Distort(3))
	assert.Equal(t, flow.Unknown(), flow.Unknown().Distort(3))
}

func TestSum(t *testing.T) {
	// constants add
	assert.Equal(t, flow.Value(0.75), flow.Sum(flow.Value(0.5), flow.Value(0.25)))

	// coherent responses add
	s := flow.Sum(flow.Response(0.5, 2), flow.Response(0.25, 2))
	g, ok := s.Gain()
	assert.True(t, ok)
	assert.Equal(t, complex128(0.75), g)

	// incoherent latencies degrade to the smaller delay
	s = flow.Sum(flow.Response(0.5, 2), flow.Response(0.25, 7))
	assert.Equal(t, flow.Delay(2), s)

	// nonlinear operands degrade
	assert.Equal(t, flow.Delay(1), flow.Sum(flow.Delay(1), flow.Delay(4)))
}

func TestCombine(t *testing.T) {
	// the constant operand has zero latency, which is the minimum
	assert.Equal(t, flow.Delay(0), flow.Combine(flow.Response(1, 2), flow.Value(1)))
	assert.Equal(t, flow.Delay(4), flow.Combine(flow.Unknown(), flow.Delay(4)))
	assert.Equal(t, flow.Unknown(), flow.Combine(flow.Unknown(), flow.Unknown()))
}

func TestConservative(t *testing.T) {
	in := flow.NewVector(44100, 0, flow.Delay(3), flow.Response(1, 8), flow.Unknown())
	out := flow.Conservative(in, 2)
	assert.Equal(t, 2, out.NumChannels())
	for _, s := range out.Signals {
		assert.Equal(t, flow.Delay(3), s)
	}

	out = flow.Conservative(flow.NewVector(44100, 0, flow.Unknown()), 1)
	assert.Equal(t, flow.Unknown(), out.Signals[0])
}

func TestBroadcast(t *testing.T) {
	in := flow.NewVector(44100, 0, flow.Value(1), flow.Delay(2))
	out := flow.Broadcast(in, 2)
	assert.Equal(t,
		[]flow.Signal{flow.Value(1), flow.Delay(2), flow.Value(1), flow.Delay(2)},
		out.Signals,
	)
}

func TestAppend(t *testing.T) {
	a := flow.NewVector(44100, 440, flow.Value(1))
	b := a.Append(flow.NewVector(44100, 440, flow.Delay(2), flow.Unknown()))
	assert.Equal(t, []flow.Signal{flow.Value(1), flow.Delay(2), flow.Unknown()}, b.Signals)
	assert.Equal(t, 1, a.NumChannels(), "appending copies, the receiver keeps its channels")
}

func TestDownmix(t *testing.T) {
	// all-linear groups sum with energy normalization
	in := flow.NewVector(44100, 0, flow.Value(1), flow.Value(2), flow.Value(3), flow.Value(5))
	out := flow.Downmix(in, 2)
	assert.Equal(t, []flow.Signal{flow.Value(2), flow.Value(3.5)}, out.Signals)

	// a nonlinear contributor degrades its group to a pure delay
	in = flow.NewVector(44100, 0, flow.Value(1), flow.Delay(4))
	out = flow.Downmix(in, 1)
	assert.Equal(t, flow.KindDelay, out.Signals[0].Kind())

	// input count must divide evenly, otherwise routing is conservative
	in = flow.NewVector(44100, 0, flow.Value(1), flow.Value(2), flow.Value(3))
	out = flow.Downmix(in, 2)
	assert.Equal(t, 2, out.NumChannels())
	for _, s := range out.Signals {
		assert.Equal(t, flow.Delay(0), s)
	}
}

func TestDelayResponse(t *testing.T) {
	v := flow.NewVector(8, 1) // one hertz at eight samples per second
	g := v.DelayResponse(2)   // a quarter of the period
	assert.InDelta(t, 0, real(g), 1e-12)
	assert.InDelta(t, -1, imag(g), 1e-12)
	assert.InDelta(t, 1, cmplx.Abs(g), 1e-12)

	phase := cmplx.Phase(v.DelayResponse(1))
	assert.InDelta(t, -math.Pi/4, phase, 1e-12)
}
