package node

// Node kind identifiers mixed into position hashes. Two structurally
// identical graphs must produce identical per-node hashes, so kinds are
// stable constants, never derived from runtime type information.
const (
	kindConst uint64 = iota + 1
	kindGain
	kindPass
	kindSink
	kindDelay
	kindSine
	kindNoise
	kindSeries
	kindStack
	kindBranch
	kindSum
	kindProduct
	kindSplit
	kindJoin
	kindFeedback
)

// mix derives a child hash from a parent hash and a local salt using
// the splitmix64 finalizer.
func mix(hash, salt uint64) uint64 {
	z := hash + salt*0x9e3779b97f4a7c15
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}

// Rand is a small deterministic generator seeded from a node's position
// hash. It is the only source of randomness a node may use.
type Rand struct {
	state uint64
}

// NewRand returns a generator seeded with the provided hash.
func NewRand(seed uint64) Rand {
	return Rand{state: seed}
}

// Uint64 returns the next value of the sequence.
func (r *Rand) Uint64() uint64 {
	r.state += 0x9e3779b97f4a7c15
	return mix(r.state, 1)
}

// Float64 returns the next value in [0, 1).
func (r *Rand) Float64() float64 {
	return float64(r.Uint64()>>11) / (1 << 53)
}
