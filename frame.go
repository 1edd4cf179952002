package node

// Frame is one instant's sample values across all channels of a node's
// input or output. Its length always equals the declared channel count.
type Frame []float64

// Clear zeroes the frame.
func (f Frame) Clear() {
	for i := range f {
		f[i] = 0
	}
}

// Block is a non-interleaved block of samples: Block[channel][sample].
type Block [][]float64

// MaxBlockSize is the largest block a node is required to process in a
// single call. All internal block buffers are pre-sized to it during
// construction, so the hot path never allocates. Callers with longer
// buffers chunk them.
const MaxBlockSize = 512

// EmptyBlock returns a zeroed block of specified dimensions.
func EmptyBlock(numChannels, bufferSize int) Block {
	b := make([][]float64, numChannels)
	for i := range b {
		b[i] = make([]float64, bufferSize)
	}
	return b
}

// NumChannels returns number of channels in the block.
func (b Block) NumChannels() int {
	return len(b)
}

// Size returns number of samples per channel in the block.
func (b Block) Size() int {
	if b.NumChannels() == 0 {
		return 0
	}
	return len(b[0])
}

// Slice returns a block window of samples [from, to) without copying.
func (b Block) Slice(from, to int) Block {
	result := make([][]float64, b.NumChannels())
	for i := range b {
		result[i] = b[i][from:to]
	}
	return result
}

// frame copies sample pos of every channel into dst.
func (b Block) frame(pos int, dst Frame) {
	for i := range b {
		dst[i] = b[i][pos]
	}
}

// setFrame copies src into sample pos of every channel.
func (b Block) setFrame(pos int, src Frame) {
	for i := range b {
		b[i][pos] = src[i]
	}
}
