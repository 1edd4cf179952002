package render_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-audio/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pipelined.dev/node"
	"pipelined.dev/node/render"
)

func TestRender(t *testing.T) {
	b, err := render.Render(node.Const(0.25, -0.25), 8000, 250*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, 2, b.NumChannels())
	assert.Equal(t, 2000, b.Size())
	for i := range b[0] {
		assert.Equal(t, 0.25, b[0][i])
		assert.Equal(t, -0.25, b[1][i])
	}
}

func TestRenderSine(t *testing.T) {
	b, err := render.Render(node.Sine(440), 44100, 100*time.Millisecond)
	require.NoError(t, err)

	// a sine stays within unit amplitude and actually oscillates
	peak, sum := 0.0, 0.0
	for _, v := range b[0] {
		if v > peak {
			peak = v
		}
		sum += v * v
	}
	assert.LessOrEqual(t, peak, 1.0)
	assert.Greater(t, peak, 0.9)
	power := sum / float64(b.Size())
	assert.InDelta(t, 0.5, power, 0.01)
}

func TestRenderRejectsArity(t *testing.T) {
	_, err := render.Render(node.Gain(1), 44100, time.Second)
	assert.Error(t, err)
	_, err = render.Render(node.Series(node.Const(1.0), node.NewSink(1)), 44100, time.Second)
	assert.Error(t, err)
}

func TestEncodeWAV(t *testing.T) {
	b, err := render.Render(node.Const(0.5), 8000, 100*time.Millisecond)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "out.wav")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, render.EncodeWAV(f, b, 8000, 16))
	require.NoError(t, f.Close())

	f, err = os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	d := wav.NewDecoder(f)
	buf, err := d.FullPCMBuffer()
	require.NoError(t, err)
	assert.Equal(t, 1, buf.Format.NumChannels)
	assert.Equal(t, 8000, buf.Format.SampleRate)
	assert.Equal(t, 800, len(buf.Data))
	assert.Equal(t, 16383, buf.Data[0])
}

func TestEncodeWAVBitDepth(t *testing.T) {
	b := node.EmptyBlock(1, 8)
	f, err := os.Create(filepath.Join(t.TempDir(), "out.wav"))
	require.NoError(t, err)
	defer f.Close()
	assert.ErrorIs(t, render.EncodeWAV(f, b, 8000, 12), render.ErrUnsupportedBitDepth)
}
