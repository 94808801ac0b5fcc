package features

import (
	"fmt"
	"math"

	"github.com/go-viper/mapstructure/v2"
	"gonum.org/v1/gonum/floats"

	"github.com/acousticlab/featex/algorithms/spectral"
	"github.com/acousticlab/featex/logging"
	"github.com/acousticlab/featex/tensor"
)

// WhisperFbankName is the registry name of the Whisper log-mel
// filterbank extractor.
const WhisperFbankName = "whisper-fbank"

// WhisperFbankConfig configures the Whisper log-mel filterbank
// extractor. Apart from Device, which To may retarget later, the
// config is immutable for the lifetime of the extractor.
type WhisperFbankConfig struct {
	SamplingRate int           `json:"sampling_rate" mapstructure:"sampling_rate,omitempty"`
	NumFilters   int           `json:"num_filters" mapstructure:"num_filters,omitempty"`
	HopLength    int           `json:"hop_length" mapstructure:"hop_length,omitempty"`
	NFFT         int           `json:"n_fft" mapstructure:"n_fft,omitempty"`
	Device       tensor.Device `json:"device" mapstructure:"device,omitempty"`
}

// DefaultWhisperFbankConfig returns the configuration matching the
// pretrained Whisper models' expected input statistics: 16 kHz audio,
// 80 mel bins, 10 ms hop, 25 ms window.
func DefaultWhisperFbankConfig() WhisperFbankConfig {
	return WhisperFbankConfig{
		SamplingRate: 16000,
		NumFilters:   80,
		HopLength:    160,
		NFFT:         400,
		Device:       tensor.CPU,
	}
}

// Validate checks the configuration invariants
func (c WhisperFbankConfig) Validate() error {
	if c.SamplingRate <= 0 {
		return fmt.Errorf("sampling rate must be positive, got %d", c.SamplingRate)
	}
	if c.NumFilters <= 0 {
		return fmt.Errorf("number of filters must be positive, got %d", c.NumFilters)
	}
	if c.HopLength <= 0 {
		return fmt.Errorf("hop length must be positive, got %d", c.HopLength)
	}
	if c.NFFT < c.HopLength {
		return fmt.Errorf("n_fft (%d) must be at least the hop length (%d)", c.NFFT, c.HopLength)
	}
	return c.Device.Validate()
}

// ToMap converts the configuration to a generic key-value mapping,
// omitting empty fields, for persistence by the surrounding framework.
func (c WhisperFbankConfig) ToMap() (map[string]any, error) {
	out := make(map[string]any)
	if err := mapstructure.Decode(c, &out); err != nil {
		return nil, fmt.Errorf("failed to encode config: %w", err)
	}
	return out, nil
}

// WhisperFbankConfigFromMap reconstructs a configuration from a
// generic key-value mapping. Missing keys fall back to defaults;
// unknown keys are an error.
func WhisperFbankConfigFromMap(data map[string]any) (WhisperFbankConfig, error) {
	cfg := DefaultWhisperFbankConfig()

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:      &cfg,
		ErrorUnused: true,
	})
	if err != nil {
		return WhisperFbankConfig{}, fmt.Errorf("failed to build config decoder: %w", err)
	}
	if err := decoder.Decode(data); err != nil {
		return WhisperFbankConfig{}, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return WhisperFbankConfig{}, err
	}
	return cfg, nil
}

// WhisperFbank computes Whisper-compatible log-mel filterbank
// features.
//
// Extract is safe for concurrent use; To mutates the bound config's
// device and must be externally synchronized against concurrent
// Extract calls (or use one extractor per worker).
type WhisperFbank struct {
	config *WhisperFbankConfig
	logger logging.Logger
}

// NewWhisperFbank creates the extractor. A nil config selects the
// defaults.
func NewWhisperFbank(config *WhisperFbankConfig) (*WhisperFbank, error) {
	if config == nil {
		cfg := DefaultWhisperFbankConfig()
		config = &cfg
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid %s config: %w", WhisperFbankName, err)
	}

	return &WhisperFbank{
		config: config,
		logger: logging.WithFields(logging.Fields{
			"component": "whisper_fbank",
		}),
	}, nil
}

// Name returns the registry name of the extractor
func (f *WhisperFbank) Name() string {
	return WhisperFbankName
}

// Config returns a copy of the bound configuration
func (f *WhisperFbank) Config() WhisperFbankConfig {
	return *f.config
}

// Device returns the compute device used for extraction
func (f *WhisperFbank) Device() tensor.Device {
	return f.config.Device
}

// To retargets future Extract calls to the given device. Features
// already produced are unaffected. Caller-synchronized: see the type
// comment.
func (f *WhisperFbank) To(device tensor.Device) {
	f.config.Device = device
}

// FeatureDim returns the number of mel bins. The sampling rate is
// ignored; the parameter exists for symmetry with sibling extractors.
func (f *WhisperFbank) FeatureDim(samplingRate int) int {
	return f.config.NumFilters
}

// FrameShift returns the time advanced per output frame
func (f *WhisperFbank) FrameShift() Seconds {
	return Seconds(float64(f.config.HopLength) / float64(f.config.SamplingRate))
}

// Extract computes a (num_filters, num_frames) log-mel feature matrix
// from a 1-D waveform buffer. The sampling rate must equal the
// configured one exactly; resample upstream otherwise. The output uses
// the same numeric representation as the input.
func (f *WhisperFbank) Extract(samples NumericBuffer, samplingRate int) (NumericBuffer, error) {
	if samplingRate != f.config.SamplingRate {
		return nil, fmt.Errorf(
			"%s was instantiated for sampling rate %d, but sampling rate %d was passed to Extract; resample the audio upstream before extraction",
			WhisperFbankName, f.config.SamplingRate, samplingRate,
		)
	}

	shape := samples.Shape()
	if len(shape) != 1 {
		return nil, fmt.Errorf("expected a 1-D waveform buffer, got shape %v", shape)
	}

	moved, err := samples.ToDevice(f.config.Device)
	if err != nil {
		return nil, err
	}

	feats, err := spectral.LogMelSpectrogram(moved.PlainArray(), spectral.LogMelParams{
		NumMelBins: f.config.NumFilters,
		FFTSize:    f.config.NFFT,
		HopLength:  f.config.HopLength,
		SampleRate: f.config.SamplingRate,
		Device:     f.config.Device,
	})
	if err != nil {
		return nil, err
	}

	numFrames := 0
	if len(feats) > 0 {
		numFrames = len(feats[0])
	}

	f.logger.Debug("extracted log-mel features", logging.Fields{
		"num_filters": len(feats),
		"num_frames":  numFrames,
		"samples":     shape[0],
	})

	return moved.FromMatrix(feats)
}

// Mix recombines two log-domain feature matrices as if their
// underlying signals had been mixed additively in linear energy space:
// log(max(EPSILON, exp(a) + k*exp(b))) element-wise, where k scales
// the second signal's energy. The shapes must match exactly.
func Mix(featuresA, featuresB [][]float64, energyScalingFactorB float64) ([][]float64, error) {
	if len(featuresA) != len(featuresB) {
		return nil, fmt.Errorf("feature shape mismatch: %d rows vs %d rows", len(featuresA), len(featuresB))
	}

	mixed := make([][]float64, len(featuresA))
	for i := range featuresA {
		if len(featuresA[i]) != len(featuresB[i]) {
			return nil, fmt.Errorf("feature shape mismatch at row %d: %d columns vs %d columns", i, len(featuresA[i]), len(featuresB[i]))
		}

		mixed[i] = make([]float64, len(featuresA[i]))
		for j := range featuresA[i] {
			energy := math.Exp(featuresA[i][j]) + energyScalingFactorB*math.Exp(featuresB[i][j])
			mixed[i][j] = math.Log(math.Max(EPSILON, energy))
		}
	}

	return mixed, nil
}

// ComputeEnergy returns the total linear energy represented by a
// log-domain feature matrix: the sum of exp over all elements.
func ComputeEnergy(features [][]float64) float64 {
	total := 0.0
	for _, row := range features {
		exps := make([]float64, len(row))
		for j, v := range row {
			exps[j] = math.Exp(v)
		}
		total += floats.Sum(exps)
	}
	return total
}
