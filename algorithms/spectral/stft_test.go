package spectral

import (
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acousticlab/featex/algorithms/windowing"
)

func TestReflectPad(t *testing.T) {
	padded, err := reflectPad([]float64{1, 2, 3, 4, 5}, 2)
	require.NoError(t, err)
	assert.Equal(t, []float64{3, 2, 1, 2, 3, 4, 5, 4, 3}, padded)

	// Pad must be strictly smaller than the signal
	_, err = reflectPad([]float64{1, 2}, 2)
	assert.Error(t, err)
}

func TestNumCenteredFrames(t *testing.T) {
	assert.Equal(t, 11, NumCenteredFrames(1600, 160))
	assert.Equal(t, 3, NumCenteredFrames(400, 160))
	assert.Equal(t, 1, NumCenteredFrames(100, 160))
	assert.Equal(t, 0, NumCenteredFrames(100, 0))
}

func TestSTFTFrameAndBinCounts(t *testing.T) {
	stft := NewSTFT()
	signal := make([]float64, 1600)
	for i := range signal {
		signal[i] = math.Sin(2 * math.Pi * 440 * float64(i) / 16000)
	}

	result, err := stft.ComputeWithWindow(signal, 400, 160, 16000, windowing.NewHann(400, true))
	require.NoError(t, err)

	assert.Equal(t, 11, result.TimeFrames)
	assert.Equal(t, 201, result.FreqBins)
	assert.Len(t, result.Complex, 11)
	assert.Len(t, result.Complex[0], 201)
	assert.InDelta(t, 0.01, result.TimeResolution, 1e-12)
}

func TestSTFTConstantSignalDCBin(t *testing.T) {
	stft := NewSTFT()
	signal := make([]float64, 1600)
	for i := range signal {
		signal[i] = 1.0
	}

	result, err := stft.ComputeWithWindow(signal, 400, 160, 16000, windowing.NewHann(400, true))
	require.NoError(t, err)

	// Reflect padding keeps a constant signal constant, so every
	// frame's DC bin is the window's coefficient sum: N/2 for a
	// periodic Hann window.
	for frame := 0; frame < result.TimeFrames; frame++ {
		dc := result.Complex[frame][0]
		assert.InDelta(t, 200.0, real(dc), 1e-6, "frame %d", frame)
		assert.InDelta(t, 0.0, imag(dc), 1e-6, "frame %d", frame)
	}
}

func TestSTFTSineEnergyConcentration(t *testing.T) {
	stft := NewSTFT()

	// Bin 20 of a 400-point FFT at 16 kHz is exactly 800 Hz
	signal := make([]float64, 16000)
	for i := range signal {
		signal[i] = math.Sin(2 * math.Pi * 800 * float64(i) / 16000)
	}

	result, err := stft.ComputeWithWindow(signal, 400, 160, 16000, windowing.NewHann(400, true))
	require.NoError(t, err)

	// Check an interior frame: the strongest bin must be the sine's
	mid := result.TimeFrames / 2
	best, bestMag := 0, 0.0
	for k, c := range result.Complex[mid] {
		re, im := real(c), imag(c)
		mag := re*re + im*im
		if mag > bestMag {
			best, bestMag = k, mag
		}
	}
	assert.Equal(t, 20, best)
}

// rejectingWindow fails on every frame, standing in for a window whose
// size disagrees with the transform's
type rejectingWindow struct{}

func (rejectingWindow) ApplyInPlace(signal []float64) error {
	return fmt.Errorf("window size mismatch: got frame of %d samples", len(signal))
}

func TestSTFTWindowErrorPropagates(t *testing.T) {
	stft := NewSTFT()

	_, err := stft.ComputeWithWindow(make([]float64, 1600), 400, 160, 16000, rejectingWindow{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "windowing frame")
}

func TestSTFTValidation(t *testing.T) {
	stft := NewSTFT()
	win := windowing.NewHann(400, true)

	_, err := stft.ComputeWithWindow(nil, 400, 160, 16000, win)
	assert.Error(t, err)

	_, err = stft.ComputeWithWindow(make([]float64, 1600), 0, 160, 16000, win)
	assert.Error(t, err)

	_, err = stft.ComputeWithWindow(make([]float64, 1600), 400, 0, 16000, win)
	assert.Error(t, err)

	// Too short for the reflection pad
	_, err = stft.ComputeWithWindow(make([]float64, 200), 400, 160, 16000, win)
	assert.Error(t, err)
}
