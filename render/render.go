// Package render pulls samples from a zero-input node into a buffer
// and exports buffers to wav.
package render

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"pipelined.dev/node"
)

// ErrUnsupportedBitDepth is returned when unsupported bit depth is used.
var ErrUnsupportedBitDepth = errors.New("only 16, 24 and 32 bit depth is supported")

// Render resets the node to the given rate and pulls duration worth of
// samples from it, block by block. The node must report zero inputs
// and a positive output count.
func Render(n node.Node, sampleRate float64, duration time.Duration) (node.Block, error) {
	if n.Inputs() != 0 {
		return nil, fmt.Errorf("render: node has %d inputs, want 0", n.Inputs())
	}
	if n.Outputs() == 0 {
		return nil, errors.New("render: node has no outputs")
	}
	n.SetSampleRate(sampleRate)
	n.Reset()
	samples := int(duration.Seconds() * sampleRate)
	out := node.EmptyBlock(n.Outputs(), samples)
	for pos := 0; pos < samples; pos += node.MaxBlockSize {
		end := pos + node.MaxBlockSize
		if end > samples {
			end = samples
		}
		n.Process(nil, out.Slice(pos, end))
	}
	return out, nil
}

// EncodeWAV writes the block as a PCM wav stream.
func EncodeWAV(w io.WriteSeeker, b node.Block, sampleRate, bitDepth int) error {
	multiplier, err := multiplier(bitDepth)
	if err != nil {
		return err
	}
	numChannels := b.NumChannels()
	ints := make([]int, b.Size()*numChannels)
	for ch := range b {
		for i, v := range b[ch] {
			ints[i*numChannels+ch] = int(v * multiplier)
		}
	}
	e := wav.NewEncoder(w, sampleRate, bitDepth, numChannels, 1)
	buf := &audio.IntBuffer{
		Format: &audio.Format{
			NumChannels: numChannels,
			SampleRate:  sampleRate,
		},
		Data:           ints,
		SourceBitDepth: bitDepth,
	}
	if err := e.Write(buf); err != nil {
		return err
	}
	return e.Close()
}

// multiplier is used when float to int conversion is done.
func multiplier(bitDepth int) (float64, error) {
	switch bitDepth {
	case 16:
		return float64(1<<15 - 1), nil
	case 24:
		return float64(1<<23 - 1), nil
	case 32:
		return float64(1<<31 - 1), nil
	}
	return 0, ErrUnsupportedBitDepth
}
