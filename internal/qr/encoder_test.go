package qr

import (
	"bytes"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncode(t *testing.T) {
	payload, err := Encode(ModelPicking, 42)
	require.NoError(t, err)
	assert.Equal(t, "42.1", payload)

	payload, err = Encode(ModelLocation, 7)
	require.NoError(t, err)
	assert.Equal(t, "7.2", payload)
}

func TestEncodeRejectsBadInput(t *testing.T) {
	_, err := Encode(ModelPicking, 0)
	assert.Error(t, err)

	_, err = Encode(Model("partner"), 5)
	assert.Error(t, err)
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	payload, err := Encode(ModelLocation, 128)
	require.NoError(t, err)

	result := Decode(payload)
	assert.True(t, result.Valid)
	assert.Equal(t, ModelLocation, result.Model)
	assert.Equal(t, int64(128), result.RecordID)
}

func TestGenerateImage(t *testing.T) {
	data, err := GenerateImage("42.1", 256)
	require.NoError(t, err)
	require.NotEmpty(t, data)

	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 256, img.Bounds().Dx())
	assert.Equal(t, 256, img.Bounds().Dy())
}

func TestGenerateImageEmptyPayload(t *testing.T) {
	_, err := GenerateImage("", 256)
	assert.Error(t, err)
}
