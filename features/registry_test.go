package features

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryHasBuiltins(t *testing.T) {
	r := NewRegistry()
	assert.Contains(t, r.Names(), WhisperFbankName)
}

func TestRegistryCreateWithDefaults(t *testing.T) {
	r := NewRegistry()

	ex, err := r.Create(WhisperFbankName, nil)
	require.NoError(t, err)

	assert.Equal(t, WhisperFbankName, ex.Name())
	assert.Equal(t, 80, ex.FeatureDim(16000))
	assert.Equal(t, Seconds(0.01), ex.FrameShift())
}

func TestRegistryCreateWithConfig(t *testing.T) {
	r := NewRegistry()

	ex, err := r.Create(WhisperFbankName, map[string]any{
		"num_filters": 40,
	})
	require.NoError(t, err)
	assert.Equal(t, 40, ex.FeatureDim(16000))

	_, err = r.Create(WhisperFbankName, map[string]any{
		"num_filters": -1,
	})
	assert.Error(t, err)
}

func TestRegistryUnknownName(t *testing.T) {
	r := NewRegistry()

	_, err := r.Create("mfcc", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mfcc")
}

func TestRegistryRegisterValidation(t *testing.T) {
	r := NewRegistry()

	err := r.Register(WhisperFbankName, func(map[string]any) (Extractor, error) { return nil, nil })
	assert.Error(t, err, "duplicate registration must fail")

	err = r.Register("", func(map[string]any) (Extractor, error) { return nil, nil })
	assert.Error(t, err)

	err = r.Register("custom-fbank", nil)
	assert.Error(t, err)

	err = r.Register("custom-fbank", func(map[string]any) (Extractor, error) {
		return NewWhisperFbank(nil)
	})
	require.NoError(t, err)

	ex, err := r.Create("custom-fbank", nil)
	require.NoError(t, err)
	assert.Equal(t, 80, ex.FeatureDim(16000))
}
