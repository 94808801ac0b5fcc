package spectral

import (
	"fmt"
	"runtime"
	"sync"
)

// STFT provides Short-Time Fourier Transform functionality with
// centered frames: the signal is reflect-padded by windowSize/2 on each
// side so that frame t is centered on sample t*hopSize. This is the
// framing convention pretrained speech models are trained against.
type STFT struct {
	fft *FFT
}

// STFTResult holds the result of STFT analysis
type STFTResult struct {
	Complex        [][]complex128 `json:"-"`               // Time x Frequency complex spectrogram
	TimeFrames     int            `json:"time_frames"`     // Number of time frames
	FreqBins       int            `json:"freq_bins"`       // Number of positive-frequency bins
	WindowSize     int            `json:"window_size"`     // FFT window size
	HopSize        int            `json:"hop_size"`        // Hop size between frames
	TimeResolution float64        `json:"time_resolution"` // Seconds per frame at the given sample rate
}

// Window interface for windowing functions
type Window interface {
	ApplyInPlace(signal []float64) error
}

// NewSTFT creates a new STFT calculator
func NewSTFT() *STFT {
	return &STFT{
		fft: NewFFT(),
	}
}

// NumCenteredFrames returns the frame count produced by centered
// framing: 1 + floor(signalLen/hopSize).
func NumCenteredFrames(signalLen, hopSize int) int {
	if signalLen < 0 || hopSize <= 0 {
		return 0
	}
	return signalLen/hopSize + 1
}

// reflectPad pads the signal by pad samples on each side, mirroring
// around the boundary samples without repeating them.
func reflectPad(signal []float64, pad int) ([]float64, error) {
	if pad >= len(signal) {
		return nil, fmt.Errorf("signal length (%d) must exceed reflection pad (%d)", len(signal), pad)
	}

	padded := make([]float64, len(signal)+2*pad)
	for i := 0; i < pad; i++ {
		padded[i] = signal[pad-i]
	}
	copy(padded[pad:], signal)
	for i := 0; i < pad; i++ {
		padded[pad+len(signal)+i] = signal[len(signal)-2-i]
	}
	return padded, nil
}

// ComputeWithWindow computes the centered STFT with parallel frame
// processing and a custom window.
func (s *STFT) ComputeWithWindow(signal []float64, windowSize int, hopSize int, sampleRate int, window Window) (*STFTResult, error) {
	if len(signal) == 0 {
		return nil, fmt.Errorf("empty signal")
	}

	if windowSize <= 0 {
		return nil, fmt.Errorf("window size must be positive")
	}

	if hopSize <= 0 {
		return nil, fmt.Errorf("hop size must be positive")
	}

	padded, err := reflectPad(signal, windowSize/2)
	if err != nil {
		return nil, err
	}

	numFrames := NumCenteredFrames(len(signal), hopSize)

	// Positive frequencies only
	freqBins := windowSize/2 + 1

	complexSpectrum := make([][]complex128, numFrames)
	for i := 0; i < numFrames; i++ {
		complexSpectrum[i] = make([]complex128, freqBins)
	}

	frameErrs := make([]error, numFrames)

	numWorkers := s.getOptimalWorkerCount(numFrames)

	type frameJob struct {
		frameIdx int
		startIdx int
	}

	jobs := make(chan frameJob, numFrames)

	var wg sync.WaitGroup

	for _i := 0; _i < numWorkers; _i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			// Reuse frame buffer for this worker
			frameBuffer := make([]float64, windowSize)

			for job := range jobs {
				if job.startIdx+windowSize > len(padded) {
					continue
				}

				copy(frameBuffer, padded[job.startIdx:job.startIdx+windowSize])

				if window != nil {
					if err := window.ApplyInPlace(frameBuffer); err != nil {
						frameErrs[job.frameIdx] = err
						continue
					}
				}

				fftResult := s.fft.Compute(frameBuffer)

				copy(complexSpectrum[job.frameIdx], fftResult[:freqBins])
			}
		}()
	}

	go func() {
		defer close(jobs)
		for frameIdx := 0; frameIdx < numFrames; frameIdx++ {
			jobs <- frameJob{
				frameIdx: frameIdx,
				startIdx: frameIdx * hopSize,
			}
		}
	}()

	wg.Wait()

	for i, err := range frameErrs {
		if err != nil {
			return nil, fmt.Errorf("windowing frame %d failed: %w", i, err)
		}
	}

	result := &STFTResult{
		Complex:        complexSpectrum,
		TimeFrames:     numFrames,
		FreqBins:       freqBins,
		WindowSize:     windowSize,
		HopSize:        hopSize,
		TimeResolution: float64(hopSize) / float64(sampleRate),
	}

	return result, nil
}

// getOptimalWorkerCount determines the optimal number of workers based on workload
func (s *STFT) getOptimalWorkerCount(numFrames int) int {
	numCPU := runtime.NumCPU()

	// For small workloads, don't over-parallelize
	if numFrames < 100 {
		return max(min(numCPU/2, numFrames), 1)
	}

	if numFrames < 1000 {
		return min(numCPU, 8)
	}

	return numCPU
}
