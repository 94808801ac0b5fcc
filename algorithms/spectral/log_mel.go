package spectral

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/acousticlab/featex/algorithms/windowing"
	"github.com/acousticlab/featex/tensor"
)

// LogMelParams carries the parameters of the log-mel spectrogram
// pipeline.
type LogMelParams struct {
	NumMelBins int           `json:"num_mel_bins"` // Mel filterbank size (rows of the output)
	FFTSize    int           `json:"fft_size"`     // Analysis window / FFT length
	HopLength  int           `json:"hop_length"`   // Samples advanced per frame
	SampleRate int           `json:"sample_rate"`  // Sampling rate the filterbank is built for
	PadSamples int           `json:"pad_samples"`  // Zero samples appended before analysis
	Device     tensor.Device `json:"device"`       // Compute target
}

// melEnergyFloor guards the base-10 logarithm against zero energies.
const melEnergyFloor = 1e-10

// logMelDynamicRange limits the spread below the loudest bin, in
// base-10 log units.
const logMelDynamicRange = 8.0

// LogMelSpectrogram computes a log-compressed, normalized mel
// spectrogram of shape (NumMelBins, numFrames).
//
// Pipeline: optional right zero-padding, periodic-Hann centered STFT,
// squared magnitudes with the final STFT frame discarded, mel
// filterbank projection, 1e-10 energy floor, log10, clamping at the
// global maximum minus 8, then (x+4)/4.
//
// The final STFT frame is discarded on purpose: pretrained models
// consuming these features expect exactly floor(len/hop) frames, and
// changing that breaks their input shape.
func LogMelSpectrogram(waveform []float64, params LogMelParams) ([][]float64, error) {
	if len(waveform) == 0 {
		return nil, fmt.Errorf("empty waveform")
	}
	if params.NumMelBins <= 0 {
		return nil, fmt.Errorf("number of mel bins must be positive, got %d", params.NumMelBins)
	}
	if params.FFTSize <= 0 {
		return nil, fmt.Errorf("FFT size must be positive, got %d", params.FFTSize)
	}
	if params.HopLength <= 0 {
		return nil, fmt.Errorf("hop length must be positive, got %d", params.HopLength)
	}
	if params.FFTSize < params.HopLength {
		return nil, fmt.Errorf("FFT size (%d) must be at least the hop length (%d)", params.FFTSize, params.HopLength)
	}
	if params.SampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %d", params.SampleRate)
	}
	if params.PadSamples < 0 {
		return nil, fmt.Errorf("pad samples must be non-negative, got %d", params.PadSamples)
	}
	if err := params.Device.Validate(); err != nil {
		return nil, err
	}

	signal := waveform
	if params.PadSamples > 0 {
		signal = make([]float64, len(waveform)+params.PadSamples)
		copy(signal, waveform)
	}

	window := windowing.NewHann(params.FFTSize, true)

	stftResult, err := NewSTFT().ComputeWithWindow(signal, params.FFTSize, params.HopLength, params.SampleRate, window)
	if err != nil {
		return nil, fmt.Errorf("STFT failed: %w", err)
	}

	// Drop the trailing frame; squared magnitude per remaining bin
	numFrames := stftResult.TimeFrames - 1
	if numFrames <= 0 {
		return nil, fmt.Errorf("waveform too short: %d samples yields no frames at hop %d", len(signal), params.HopLength)
	}

	power := make([][]float64, numFrames)
	for t := 0; t < numFrames; t++ {
		frame := stftResult.Complex[t]
		power[t] = make([]float64, stftResult.FreqBins)
		for k, c := range frame {
			re, im := real(c), imag(c)
			power[t][k] = re*re + im*im
		}
	}

	// The filterbank is derived from the call parameters every time so
	// that sample rate and FFT size can never drift apart from it.
	filterBank, err := NewMelScale().CreateMelFilterBank(
		params.NumMelBins,
		params.FFTSize,
		params.SampleRate,
		0.0,
		float64(params.SampleRate)/2.0,
	)
	if err != nil {
		return nil, fmt.Errorf("mel filterbank construction failed: %w", err)
	}

	logMel := make([][]float64, params.NumMelBins)
	for m := 0; m < params.NumMelBins; m++ {
		logMel[m] = make([]float64, numFrames)
		for t := 0; t < numFrames; t++ {
			energy := floats.Dot(filterBank[m], power[t])
			logMel[m][t] = math.Log10(math.Max(energy, melEnergyFloor))
		}
	}

	// Dynamic range clamp relative to the loudest bin of the whole
	// matrix, then the affine normalization the downstream models expect
	globalMax := math.Inf(-1)
	for m := range logMel {
		globalMax = math.Max(globalMax, floats.Max(logMel[m]))
	}

	floor := globalMax - logMelDynamicRange
	for m := range logMel {
		for t := range logMel[m] {
			logMel[m][t] = (math.Max(logMel[m][t], floor) + 4.0) / 4.0
		}
	}

	return logMel, nil
}
