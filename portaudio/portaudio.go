// Package portaudio plays node output on the default audio device.
package portaudio

import (
	"context"
	"fmt"

	"github.com/gordonklaus/portaudio"

	"pipelined.dev/node"
)

// Sink represents portaudio sink which allows to play node output
// using the default device.
type Sink struct {
	buf         []float32
	out         node.Block
	stream      *portaudio.Stream
	sampleRate  float64
	bufferSize  int
	numChannels int
}

// NewSink returns a new initialized sink for the given stream shape.
func NewSink(sampleRate float64, numChannels, bufferSize int) *Sink {
	return &Sink{
		sampleRate:  sampleRate,
		bufferSize:  bufferSize,
		numChannels: numChannels,
	}
}

// Start initializes portaudio and opens the default stream.
func (s *Sink) Start() error {
	s.buf = make([]float32, s.bufferSize*s.numChannels)
	s.out = node.EmptyBlock(s.numChannels, s.bufferSize)
	if err := portaudio.Initialize(); err != nil {
		return err
	}
	stream, err := portaudio.OpenDefaultStream(0, s.numChannels, s.sampleRate, s.bufferSize, &s.buf)
	if err != nil {
		return err
	}
	s.stream = stream
	return s.stream.Start()
}

// Write interleaves the block into the stream buffer and writes it to
// the device.
func (s *Sink) Write(b node.Block) error {
	for i := range b[0] {
		for j := range b {
			s.buf[i*s.numChannels+j] = float32(b[j][i])
		}
	}
	return s.stream.Write()
}

// Flush terminates portaudio structures.
func (s *Sink) Flush() error {
	if err := s.stream.Stop(); err != nil {
		return err
	}
	if err := s.stream.Close(); err != nil {
		return err
	}
	return portaudio.Terminate()
}

// Play pulls blocks from a zero-input node and writes them to the
// default device until the context is done. The node is adapted to the
// sink's rate first.
func Play(ctx context.Context, n node.Node, sampleRate float64, bufferSize int) error {
	if n.Inputs() != 0 {
		return fmt.Errorf("portaudio: node has %d inputs, want 0", n.Inputs())
	}
	if bufferSize > node.MaxBlockSize {
		return fmt.Errorf("portaudio: buffer size %d exceeds %d", bufferSize, node.MaxBlockSize)
	}
	s := NewSink(sampleRate, n.Outputs(), bufferSize)
	if err := s.Start(); err != nil {
		return err
	}
	n.SetSampleRate(sampleRate)
	n.Reset()
	for {
		select {
		case <-ctx.Done():
			return s.Flush()
		default:
		}
		n.Process(nil, s.out)
		if err := s.Write(s.out); err != nil {
			_ = s.Flush()
			return err
		}
	}
}
