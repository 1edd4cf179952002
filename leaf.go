package node

import (
	"math"

	"pipelined.dev/node/flow"
)

type (
	// ConstNode emits fixed values, one per channel.
	ConstNode struct {
		Base
		values []float64
	}

	// GainNode scales a single channel by a constant factor.
	GainNode struct {
		Base
		gain float64
	}

	// PassNode passes its channels through unchanged.
	PassNode struct {
		Base
	}

	// SinkNode consumes its channels and emits nothing.
	SinkNode struct {
		Base
	}

	// DelayNode delays a single channel by a fixed number of samples.
	DelayNode struct {
		Base
		samples int
		seconds float64
		buf     []float64
		pos     int
	}

	// SineNode generates a sine wave with a position-seeded initial
	// phase.
	SineNode struct {
		Base
		freq  float64
		phase float64
	}

	// NoiseNode generates position-seeded white noise in [-1, 1).
	NoiseNode struct {
		Base
		rnd Rand
	}
)

// Const returns a source node emitting the provided values.
func Const(values ...float64) *ConstNode {
	n := &ConstNode{
		Base:   MakeBase(kindConst, 0, len(values)),
		values: values,
	}
	ping(n)
	return n
}

// Tick copies the constant values to the output frame.
func (n *ConstNode) Tick(_, out Frame) {
	copy(out, n.values)
}

// Process fills the block with the constant values.
func (n *ConstNode) Process(_, out Block) {
	for i := range out {
		for j := range out[i] {
			out[i][j] = n.values[i]
		}
	}
}

// Analyze reports a constant value per channel.
func (n *ConstNode) Analyze(in flow.Vector) flow.Vector {
	signals := make([]flow.Signal, len(n.values))
	for i, v := range n.values {
		signals[i] = flow.Value(v)
	}
	return in.Emit(signals...)
}

// Gain returns a node scaling one channel by gain.
func Gain(gain float64) *GainNode {
	n := &GainNode{
		Base: MakeBase(kindGain, 1, 1),
		gain: gain,
	}
	ping(n)
	return n
}

// Tick scales the input sample.
func (n *GainNode) Tick(in, out Frame) {
	out[0] = in[0] * n.gain
}

// Process scales the block.
func (n *GainNode) Process(in, out Block) {
	for i := range out[0] {
		out[0][i] = in[0][i] * n.gain
	}
}

// Analyze scales the channel descriptor, a linear operation.
func (n *GainNode) Analyze(in flow.Vector) flow.Vector {
	gain := complex(n.gain, 0)
	return in.Emit(in.Signals[0].Filter(0, func(g complex128) complex128 {
		return g * gain
	}))
}

// Pass returns an identity node over channels.
func Pass(channels int) *PassNode {
	n := &PassNode{Base: MakeBase(kindPass, channels, channels)}
	ping(n)
	return n
}

// Tick copies input to output.
func (n *PassNode) Tick(in, out Frame) {
	copy(out, in)
}

// Process copies the block.
func (n *PassNode) Process(in, out Block) {
	for i := range out {
		copy(out[i], in[i])
	}
}

// Analyze passes the descriptors through unchanged.
func (n *PassNode) Analyze(in flow.Vector) flow.Vector {
	return in.Emit(in.Signals...)
}

// NewSink returns a node consuming channels.
func NewSink(channels int) *SinkNode {
	n := &SinkNode{Base: MakeBase(kindSink, channels, 0)}
	ping(n)
	return n
}

// Tick consumes the input frame.
func (n *SinkNode) Tick(_, _ Frame) {}

// Process consumes the block.
func (n *SinkNode) Process(_, _ Block) {}

// Analyze reports no outputs.
func (n *SinkNode) Analyze(in flow.Vector) flow.Vector {
	return in.Emit()
}

// Delay returns a node delaying one channel by a fixed number of
// samples.
func Delay(samples int) *DelayNode {
	n := &DelayNode{
		Base:    MakeBase(kindDelay, 1, 1),
		samples: samples,
		buf:     make([]float64, samples),
	}
	ping(n)
	return n
}

// DelaySeconds returns a delay node sized from the sample rate. The
// buffer is resized deterministically whenever the rate changes.
func DelaySeconds(seconds float64) *DelayNode {
	n := &DelayNode{
		Base:    MakeBase(kindDelay, 1, 1),
		seconds: seconds,
	}
	n.resize(DefaultSampleRate)
	ping(n)
	return n
}

func (n *DelayNode) resize(rate float64) {
	n.samples = int(math.Round(n.seconds * rate))
	n.buf = make([]float64, n.samples)
	n.pos = 0
}

// Tick emits the sample delayed by the buffer length.
func (n *DelayNode) Tick(in, out Frame) {
	if n.samples == 0 {
		out[0] = in[0]
		return
	}
	out[0] = n.buf[n.pos]
	n.buf[n.pos] = in[0]
	if n.pos++; n.pos == n.samples {
		n.pos = 0
	}
}

// Process delays the block.
func (n *DelayNode) Process(in, out Block) {
	for i := range out[0] {
		if n.samples == 0 {
			out[0][i] = in[0][i]
			continue
		}
		out[0][i] = n.buf[n.pos]
		n.buf[n.pos] = in[0][i]
		if n.pos++; n.pos == n.samples {
			n.pos = 0
		}
	}
}

// Reset clears the delay line.
func (n *DelayNode) Reset() {
	for i := range n.buf {
		n.buf[i] = 0
	}
	n.pos = 0
}

// SetSampleRate resizes the delay line when it was constructed from a
// duration.
func (n *DelayNode) SetSampleRate(rate float64) {
	n.Base.SetSampleRate(rate)
	if n.seconds > 0 {
		n.resize(rate)
	}
}

// Latency reports the delay length.
func (n *DelayNode) Latency() (float64, bool) {
	return float64(n.samples), true
}

// Analyze reports a pure delay, a linear operation.
func (n *DelayNode) Analyze(in flow.Vector) flow.Vector {
	latency := float64(n.samples)
	response := in.DelayResponse(latency)
	return in.Emit(in.Signals[0].Filter(latency, func(g complex128) complex128 {
		return g * response
	}))
}

// Sine returns a generator of a sine wave at freq hertz. The initial
// phase derives from the node's position hash, so structurally
// identical graphs sound identical while co-located oscillators stay
// decorrelated.
func Sine(freq float64) *SineNode {
	n := &SineNode{
		Base: MakeBase(kindSine, 0, 1),
		freq: freq,
	}
	ping(n)
	return n
}

// Tick emits the next sine sample.
func (n *SineNode) Tick(_, out Frame) {
	out[0] = math.Sin(2 * math.Pi * n.phase)
	n.phase += n.freq / n.SampleRate()
	if n.phase >= 1 {
		n.phase -= math.Floor(n.phase)
	}
}

// Process fills the block with the sine wave.
func (n *SineNode) Process(_, out Block) {
	for i := range out[0] {
		n.Tick(nil, out[0][i:i+1])
	}
}

// Analyze reports a generator: nothing is known about the waveform,
// but it starts with zero latency.
func (n *SineNode) Analyze(in flow.Vector) flow.Vector {
	return in.Emit(flow.Delay(0))
}

// Reset restores the seeded initial phase.
func (n *SineNode) Reset() {
	r := NewRand(n.Hash())
	n.phase = r.Float64()
}

// SetSampleRate updates the rate and restores the seeded phase.
func (n *SineNode) SetSampleRate(rate float64) {
	n.Base.SetSampleRate(rate)
	n.Reset()
}

// Ping seeds the initial phase on the final pass.
func (n *SineNode) Ping(probe bool, hash uint64) uint64 {
	h := n.Base.Ping(probe, hash)
	if !probe {
		n.Reset()
	}
	return h
}

// Noise returns a generator of position-seeded white noise.
func Noise() *NoiseNode {
	n := &NoiseNode{Base: MakeBase(kindNoise, 0, 1)}
	ping(n)
	return n
}

// Tick emits the next noise sample.
func (n *NoiseNode) Tick(_, out Frame) {
	out[0] = n.rnd.Float64()*2 - 1
}

// Process fills the block with noise.
func (n *NoiseNode) Process(_, out Block) {
	for i := range out[0] {
		out[0][i] = n.rnd.Float64()*2 - 1
	}
}

// Analyze reports a generator with zero latency.
func (n *NoiseNode) Analyze(in flow.Vector) flow.Vector {
	return in.Emit(flow.Delay(0))
}

// Reset restarts the seeded sequence.
func (n *NoiseNode) Reset() {
	n.rnd = NewRand(n.Hash())
}

// Ping restarts the sequence on the final pass.
func (n *NoiseNode) Ping(probe bool, hash uint64) uint64 {
	h := n.Base.Ping(probe, hash)
	if !probe {
		n.Reset()
	}
	return h
}
