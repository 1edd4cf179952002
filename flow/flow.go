// Package flow provides symbolic signal-flow analysis. It allows to:
//	- describe what is statically known about every channel of a signal
//	- propagate those descriptions through a graph without processing samples
//	- derive end-to-end latency and frequency response of an assembled graph
package flow

import (
	"math"
	"math/cmplx"
)

// Kind enumerates what is known about a channel.
type Kind int

const (
	// KindUnknown means nothing is known about the channel.
	KindUnknown Kind = iota
	// KindValue means the channel carries a constant value.
	KindValue
	// KindDelay means the channel is a pure delay of its source with
	// known latency in samples.
	KindDelay
	// KindResponse means the channel is a linear function of its source
	// with known complex response at the probe frequency and known
	// latency in samples.
	KindResponse
)

// Signal describes a single channel.
type Signal struct {
	kind    Kind
	value   float64
	gain    complex128
	latency float64
}

// Unknown returns a descriptor that carries no information.
func Unknown() Signal {
	return Signal{kind: KindUnknown}
}

// Value returns a constant-value descriptor.
func Value(v float64) Signal {
	return Signal{kind: KindValue, value: v}
}

// Delay returns a pure-delay descriptor with latency in samples.
func Delay(latency float64) Signal {
	return Signal{kind: KindDelay, latency: latency}
}

// Response returns a linear-response descriptor: complex gain at the
// probe frequency and latency in samples.
func Response(gain complex128, latency float64) Signal {
	return Signal{kind: KindResponse, gain: gain, latency: latency}
}

// Kind returns the descriptor kind.
func (s Signal) Kind() Kind {
	return s.kind
}

// Constant returns the constant value if the channel carries one.
func (s Signal) Constant() (float64, bool) {
	return s.value, s.kind == KindValue
}

// Gain returns the complex response at the probe frequency, if linear.
// A constant value is reported as a zero-frequency response.
func (s Signal) Gain() (complex128, bool) {
	switch s.kind {
	case KindResponse:
		return s.gain, true
	case KindValue:
		return complex(s.value, 0), true
	}
	return 0, false
}

// Latency returns the channel latency in samples, if known. Constant
// values have zero latency.
func (s Signal) Latency() (float64, bool) {
	switch s.kind {
	case KindDelay, KindResponse:
		return s.latency, true
	case KindValue:
		return 0, true
	}
	return 0, false
}

// Filter propagates the descriptor through a linear, time-invariant
// stage that adds latency samples of delay and multiplies the response
// by fn at the probe frequency. A constant value is treated as a
// response with zero frequency content, so constant sources remain
// trackable through filters.
func (s Signal) Filter(latency float64, fn func(complex128) complex128) Signal {
	switch s.kind {
	case KindValue:
		return Response(fn(complex(s.value, 0)), latency)
	case KindResponse:
		return Response(fn(s.gain), s.latency+latency)
	case KindDelay:
		return Delay(s.latency + latency)
	}
	return Unknown()
}

// Distort propagates the descriptor through a nonlinear or
// data-dependent stage: value and response information is discarded,
// latency is preserved and increased by the stage's own delay.
func (s Signal) Distort(latency float64) Signal {
	if l, ok := s.Latency(); ok {
		return Delay(l + latency)
	}
	return Unknown()
}

// Scale multiplies a linear descriptor by a real factor. Non-linear
// descriptors pass through unchanged.
func (s Signal) Scale(k float64) Signal {
	switch s.kind {
	case KindValue:
		return Value(s.value * k)
	case KindResponse:
		return Response(s.gain*complex(k, 0), s.latency)
	}
	return s
}

// Sum combines two descriptors additively. Addition is the only linear
// combination: constant values add, coherent responses add. Responses
// with different latencies cannot be summed symbolically and degrade to
// a pure delay of the smaller latency.
func Sum(a, b Signal) Signal {
	if a.kind == KindValue && b.kind == KindValue {
		return Value(a.value + b.value)
	}
	ga, aok := a.Gain()
	gb, bok := b.Gain()
	if aok && bok {
		la, _ := a.Latency()
		lb, _ := b.Latency()
		if la == lb {
			return Response(ga+gb, la)
		}
	}
	return Combine(a, b)
}

// Combine merges two descriptors through a nonlinear or arbitrary
// operation: all value and response information is discarded, the
// smaller known latency survives.
func Combine(a, b Signal) Signal {
	la, aok := a.Latency()
	lb, bok := b.Latency()
	switch {
	case aok && bok:
		return Delay(math.Min(la, lb))
	case aok:
		return Delay(la)
	case bok:
		return Delay(lb)
	}
	return Unknown()
}

// Vector describes all channels of a signal at one point of a graph,
// probed at Frequency hertz for a graph running at Rate samples per
// second. Its length always equals the channel count of the
// corresponding frame.
type Vector struct {
	Frequency float64
	Rate      float64
	Signals   []Signal
}

// NewVector returns a vector with the given probe parameters.
func NewVector(rate, frequency float64, signals ...Signal) Vector {
	return Vector{Frequency: frequency, Rate: rate, Signals: signals}
}

// NumChannels returns the number of channels described by the vector.
func (v Vector) NumChannels() int {
	return len(v.Signals)
}

// Emit returns a vector with the same probe parameters and new signals.
func (v Vector) Emit(signals ...Signal) Vector {
	return Vector{Frequency: v.Frequency, Rate: v.Rate, Signals: signals}
}

// Slice returns a sub-vector of channels [from, to).
func (v Vector) Slice(from, to int) Vector {
	return v.Emit(v.Signals[from:to]...)
}

// Append concatenates channels of another vector.
func (v Vector) Append(source Vector) Vector {
	return v.Emit(append(append([]Signal{}, v.Signals...), source.Signals...)...)
}

// DelayResponse returns the complex response of a pure delay of the
// given length in samples at the vector's probe frequency.
func (v Vector) DelayResponse(samples float64) complex128 {
	if v.Rate == 0 {
		return 1
	}
	omega := 2 * math.Pi * v.Frequency / v.Rate
	return cmplx.Exp(complex(0, -omega*samples))
}

// Conservative describes arbitrary routing of all inputs to outs
// channels: value and response information is discarded, the minimum
// known input latency survives on every output.
func Conservative(in Vector, outs int) Vector {
	known := false
	latency := 0.0
	for _, s := range in.Signals {
		if l, ok := s.Latency(); ok {
			if !known || l < latency {
				latency = l
			}
			known = true
		}
	}
	signals := make([]Signal, outs)
	for i := range signals {
		if known {
			signals[i] = Delay(latency)
		} else {
			signals[i] = Unknown()
		}
	}
	return in.Emit(signals...)
}

// Broadcast describes split routing: every input channel is replicated
// copies times, descriptors unchanged.
func Broadcast(in Vector, copies int) Vector {
	channels := in.NumChannels()
	signals := make([]Signal, 0, channels*copies)
	for i := 0; i < copies; i++ {
		signals = append(signals, in.Signals...)
	}
	return in.Emit(signals...)
}

// Downmix describes join routing: the input channel count must be a
// multiple of outs. Each output sums its contributing inputs scaled by
// outs/inputs when all of them are linear; otherwise it falls back to
// pure-delay propagation of the group.
func Downmix(in Vector, outs int) Vector {
	channels := in.NumChannels()
	if outs == 0 || channels%outs != 0 {
		return Conservative(in, outs)
	}
	groups := channels / outs
	scale := 1 / float64(groups)
	signals := make([]Signal, outs)
	for i := 0; i < outs; i++ {
		linear := true
		for j := 0; j < groups; j++ {
			if _, ok := in.Signals[i+j*outs].Gain(); !ok {
				linear = false
				break
			}
		}
		acc := in.Signals[i].Scale(scale)
		for j := 1; j < groups; j++ {
			next := in.Signals[i+j*outs].Scale(scale)
			if linear {
				acc = Sum(acc, next)
			} else {
				acc = Combine(acc, next)
			}
		}
		signals[i] = acc
	}
	return in.Emit(signals...)
}
