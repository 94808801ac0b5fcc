package spectral

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaultLogMelParams() LogMelParams {
	return LogMelParams{
		NumMelBins: 80,
		FFTSize:    400,
		HopLength:  160,
		SampleRate: 16000,
	}
}

func sineWave(freq float64, sampleRate, n int) []float64 {
	signal := make([]float64, n)
	for i := range signal {
		signal[i] = math.Sin(2 * math.Pi * freq * float64(i) / float64(sampleRate))
	}
	return signal
}

func TestLogMelSpectrogramShape(t *testing.T) {
	feats, err := LogMelSpectrogram(sineWave(440, 16000, 16000), defaultLogMelParams())
	require.NoError(t, err)

	// 1 + len/hop frames from the centered STFT, minus the dropped
	// trailing frame
	require.Len(t, feats, 80)
	for _, row := range feats {
		assert.Len(t, row, 100)
	}
}

func TestLogMelSpectrogramFrameCountIndependentOfBins(t *testing.T) {
	signal := sineWave(440, 16000, 1600)

	for _, bins := range []int{40, 80, 128} {
		params := defaultLogMelParams()
		params.NumMelBins = bins

		feats, err := LogMelSpectrogram(signal, params)
		require.NoError(t, err)
		require.Len(t, feats, bins)
		assert.Len(t, feats[0], 10, "bins=%d", bins)
	}
}

func TestLogMelSpectrogramPadSamples(t *testing.T) {
	params := defaultLogMelParams()
	params.PadSamples = 160

	feats, err := LogMelSpectrogram(sineWave(440, 16000, 1600), params)
	require.NoError(t, err)
	assert.Len(t, feats[0], 11)
}

func TestLogMelSpectrogramSilence(t *testing.T) {
	feats, err := LogMelSpectrogram(make([]float64, 400), defaultLogMelParams())
	require.NoError(t, err)

	// Every mel energy hits the 1e-10 floor, so after log10, the
	// global clamp (a no-op on a flat matrix) and (x+4)/4 every value
	// is exactly (-10+4)/4
	for m, row := range feats {
		for _, v := range row {
			require.False(t, math.IsNaN(v) || math.IsInf(v, 0), "non-finite value in row %d", m)
			assert.InDelta(t, -1.5, v, 1e-12)
		}
	}
}

func TestLogMelSpectrogramDynamicRange(t *testing.T) {
	feats, err := LogMelSpectrogram(sineWave(440, 16000, 16000), defaultLogMelParams())
	require.NoError(t, err)

	lo, hi := math.Inf(1), math.Inf(-1)
	for _, row := range feats {
		for _, v := range row {
			require.False(t, math.IsNaN(v) || math.IsInf(v, 0))
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
		}
	}

	// The clamp limits spread to 8 log10 units, which the affine
	// normalization divides by 4
	assert.LessOrEqual(t, hi-lo, 2.0+1e-9)
}

func TestLogMelSpectrogramDeterministic(t *testing.T) {
	signal := sineWave(523.25, 16000, 8000)

	a, err := LogMelSpectrogram(signal, defaultLogMelParams())
	require.NoError(t, err)
	b, err := LogMelSpectrogram(signal, defaultLogMelParams())
	require.NoError(t, err)

	assert.Equal(t, a, b)
}

func TestLogMelSpectrogramValidation(t *testing.T) {
	signal := sineWave(440, 16000, 1600)

	cases := []struct {
		name   string
		mutate func(*LogMelParams)
	}{
		{"zero mel bins", func(p *LogMelParams) { p.NumMelBins = 0 }},
		{"zero fft size", func(p *LogMelParams) { p.FFTSize = 0 }},
		{"zero hop", func(p *LogMelParams) { p.HopLength = 0 }},
		{"fft smaller than hop", func(p *LogMelParams) { p.FFTSize = 100 }},
		{"zero sample rate", func(p *LogMelParams) { p.SampleRate = 0 }},
		{"negative padding", func(p *LogMelParams) { p.PadSamples = -1 }},
		{"unknown device", func(p *LogMelParams) { p.Device = "cuda:0" }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			params := defaultLogMelParams()
			tc.mutate(&params)
			_, err := LogMelSpectrogram(signal, params)
			assert.Error(t, err)
		})
	}

	_, err := LogMelSpectrogram(nil, defaultLogMelParams())
	assert.Error(t, err)

	// Shorter than one hop: no frames survive the trailing-frame drop
	_, err = LogMelSpectrogram(make([]float64, 320), LogMelParams{
		NumMelBins: 80,
		FFTSize:    400,
		HopLength:  400,
		SampleRate: 16000,
	})
	assert.Error(t, err)
}
