package node

import (
	"fmt"
	"math"

	"pipelined.dev/node/flow"
)

// FeedbackOp recomputes the feedback register from the child output.
// It must operate in place and must not allocate.
type FeedbackOp interface {
	Apply(f Frame)
}

// FeedbackNode closes a child's output back into its input with one
// tick of delay: on every tick the child consumes the external input
// plus the stored prior output, then the register is recomputed by the
// mixing operator. The loop is explicit state, never a reference cycle.
type FeedbackNode struct {
	child    Node
	op       FeedbackOp
	register Frame
	sum      Frame
	inFrame  Frame
	outFrame Frame
}

// maxHadamard is the largest supported butterfly width, the largest
// power of two below the 511-channel cap.
const maxHadamard = 256

// Feedback returns a feedback loop around child, whose input and output
// counts must be equal. A nil op means identity mixing. Latency mirrors
// the child's: the loop itself adds no round-trip delay beyond what the
// child introduces.
func Feedback(child Node, op FeedbackOp) *FeedbackNode {
	mustArity("feedback", child.Inputs(), child.Outputs())
	if op == nil {
		op = Identity()
	}
	if h, ok := op.(*hadamardOp); ok {
		if err := h.check(child.Outputs()); err != nil {
			panic(err)
		}
	}
	channels := child.Outputs()
	f := &FeedbackNode{
		child:    child,
		op:       op,
		register: make(Frame, channels),
		sum:      make(Frame, channels),
		inFrame:  make(Frame, channels),
		outFrame: make(Frame, channels),
	}
	ping(f)
	return f
}

// Inputs returns the child's input count.
func (f *FeedbackNode) Inputs() int { return f.child.Inputs() }

// Outputs returns the child's output count.
func (f *FeedbackNode) Outputs() int { return f.child.Outputs() }

// Children returns the looped child.
func (f *FeedbackNode) Children() []Node { return []Node{f.child} }

// Tick feeds the child the external input plus the register, then
// recomputes the register from the child output.
func (f *FeedbackNode) Tick(in, out Frame) {
	for i := range f.sum {
		f.sum[i] = in[i] + f.register[i]
	}
	f.child.Tick(f.sum, out)
	copy(f.register, out)
	f.op.Apply(f.register)
}

// Process ticks the block sample by sample: feedback is inherently
// serial.
func (f *FeedbackNode) Process(in, out Block) {
	processByTick(f, in, out, f.inFrame, f.outFrame)
}

// Reset clears the register and resets the child.
func (f *FeedbackNode) Reset() {
	f.register.Clear()
	f.child.Reset()
}

// SetSampleRate propagates the rate and clears the register.
func (f *FeedbackNode) SetSampleRate(rate float64) {
	f.child.SetSampleRate(rate)
	f.register.Clear()
}

// Latency mirrors the child's.
func (f *FeedbackNode) Latency() (float64, bool) {
	return f.child.Latency()
}

// Analyze reports the child's propagation only: loop iteration is a
// runtime property not captured symbolically.
func (f *FeedbackNode) Analyze(in flow.Vector) flow.Vector {
	return f.child.Analyze(in)
}

// Ping threads the hash through the child.
func (f *FeedbackNode) Ping(probe bool, hash uint64) uint64 {
	return f.child.Ping(probe, mix(hash, kindFeedback))
}

type identityOp struct{}

// Identity returns the default mixing operator: the register keeps the
// child output unchanged.
func Identity() FeedbackOp {
	return identityOp{}
}

// Apply keeps the frame as is.
func (identityOp) Apply(Frame) {}

type hadamardOp struct {
	scale float64
}

// Hadamard returns a diffusive mixing operator: a normalized fast
// Walsh-Hadamard butterfly that decorrelates feedback across channels
// while preserving total signal energy. The loop's channel count must
// be a power of two no larger than 256.
func Hadamard() FeedbackOp {
	return &hadamardOp{}
}

func (h *hadamardOp) check(channels int) error {
	if channels < 1 || channels > maxHadamard || channels&(channels-1) != 0 {
		return fmt.Errorf("node: hadamard: %d channels, want a power of two up to %d", channels, maxHadamard)
	}
	h.scale = 1 / math.Sqrt(float64(channels))
	return nil
}

// Apply runs the butterfly network in place and rescales so that the
// sum of squared channel values is preserved.
func (h *hadamardOp) Apply(f Frame) {
	if h.scale == 0 {
		if err := h.check(len(f)); err != nil {
			panic(err)
		}
	}
	n := len(f)
	for span := 1; span < n; span <<= 1 {
		for i := 0; i < n; i += span << 1 {
			for j := i; j < i+span; j++ {
				a, b := f[j], f[j+span]
				f[j], f[j+span] = a+b, a-b
			}
		}
	}
	for i := range f {
		f[i] *= h.scale
	}
}
