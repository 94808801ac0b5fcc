package spectral

import (
	"fmt"
	"math"
)

// Slaney mel scale constants: linear below the break frequency,
// logarithmic above it.
const (
	melLinearStep = 200.0 / 3.0
	melBreakHz    = 1000.0
	melBreakMel   = melBreakHz / melLinearStep
	melLogStep    = 0.06875177742094912 // ln(6.4) / 27
)

// MelScale provides mel frequency conversion and filterbank
// construction following the Slaney convention (linear up to 1 kHz,
// logarithmic above), which is what pretrained speech models expect
// their filterbanks to be built with.
type MelScale struct {
	// No state needed
}

// NewMelScale creates a new mel scale converter
func NewMelScale() *MelScale {
	return &MelScale{}
}

// HzToMel converts frequency in Hz to the Slaney mel scale
func (ms *MelScale) HzToMel(hz float64) float64 {
	if hz >= melBreakHz {
		return melBreakMel + math.Log(hz/melBreakHz)/melLogStep
	}
	return hz / melLinearStep
}

// MelToHz converts the Slaney mel scale back to frequency in Hz
func (ms *MelScale) MelToHz(mel float64) float64 {
	if mel >= melBreakMel {
		return melBreakHz * math.Exp(melLogStep*(mel-melBreakMel))
	}
	return mel * melLinearStep
}

// CreateMelFilterBank creates a mel-scale filter bank of shape
// (numFilters, fftSize/2+1).
//
// The triangles are evaluated as continuous ramps at each FFT bin
// frequency rather than quantized to bin indices, and each filter is
// area-normalized by 2/(bandwidth). Both choices are required for
// parity with the filterbanks the reference models were trained with.
func (ms *MelScale) CreateMelFilterBank(numFilters int, fftSize int, sampleRate int, lowFreq, highFreq float64) ([][]float64, error) {
	if numFilters <= 0 {
		return nil, fmt.Errorf("number of filters must be positive, got %d", numFilters)
	}
	if fftSize <= 0 {
		return nil, fmt.Errorf("FFT size must be positive, got %d", fftSize)
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %d", sampleRate)
	}
	if highFreq <= lowFreq {
		return nil, fmt.Errorf("high frequency (%g) must exceed low frequency (%g)", highFreq, lowFreq)
	}

	numBins := fftSize/2 + 1

	// Filter edge frequencies, equally spaced on the mel scale
	lowMel := ms.HzToMel(lowFreq)
	highMel := ms.HzToMel(highFreq)
	melStep := (highMel - lowMel) / float64(numFilters+1)

	hzPoints := make([]float64, numFilters+2)
	for i := range hzPoints {
		hzPoints[i] = ms.MelToHz(lowMel + float64(i)*melStep)
	}

	// Center frequency of each FFT bin
	binFreqs := make([]float64, numBins)
	for k := 0; k < numBins; k++ {
		binFreqs[k] = float64(k) * float64(sampleRate) / float64(fftSize)
	}

	filterBank := make([][]float64, numFilters)
	for m := 0; m < numFilters; m++ {
		left := hzPoints[m]
		center := hzPoints[m+1]
		right := hzPoints[m+2]

		// Bandwidth normalization keeps per-filter energy comparable
		// across the spectrum
		enorm := 2.0 / (right - left)

		filterBank[m] = make([]float64, numBins)
		for k, f := range binFreqs {
			rising := (f - left) / (center - left)
			falling := (right - f) / (right - center)

			weight := min(rising, falling)
			if weight <= 0 {
				continue
			}
			filterBank[m][k] = weight * enorm
		}
	}

	return filterBank, nil
}
