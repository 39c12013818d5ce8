package qr

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDecodeCompact(t *testing.T) {
	tests := []struct {
		name       string
		raw        string
		wantValid  bool
		wantModel  Model
		wantRecord int64
	}{
		{
			name:       "picking payload",
			raw:        "5.1",
			wantValid:  true,
			wantModel:  ModelPicking,
			wantRecord: 5,
		},
		{
			name:       "location payload",
			raw:        "12.2",
			wantValid:  true,
			wantModel:  ModelLocation,
			wantRecord: 12,
		},
		{
			name:      "unknown model code",
			raw:       "5.9",
			wantValid: false,
		},
		{
			name:      "zero id",
			raw:       "0.1",
			wantValid: false,
		},
		{
			name:      "negative id",
			raw:       "-3.1",
			wantValid: false,
		},
		{
			name:      "non-numeric id",
			raw:       "abc.1",
			wantValid: false,
		},
		{
			name:       "surrounding whitespace",
			raw:        "  42.1  ",
			wantValid:  true,
			wantModel:  ModelPicking,
			wantRecord: 42,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Decode(tt.raw)

			assert.Equal(t, tt.wantValid, result.Valid)
			assert.Equal(t, tt.raw, result.Raw)
			if tt.wantValid {
				assert.Equal(t, tt.wantModel, result.Model)
				assert.Equal(t, tt.wantRecord, result.RecordID)
			}
		})
	}
}

func TestDecodeLegacy(t *testing.T) {
	tests := []struct {
		name       string
		raw        string
		wantValid  bool
		wantModel  Model
		wantRecord int64
	}{
		{
			name:       "full legacy payload",
			raw:        "Model: stock.picking\nID: 7",
			wantValid:  true,
			wantModel:  ModelPicking,
			wantRecord: 7,
		},
		{
			name:       "legacy location",
			raw:        "Model: stock.location\nID: 33\nName: Shelf A",
			wantValid:  true,
			wantModel:  ModelLocation,
			wantRecord: 33,
		},
		{
			name:      "missing id keeps model but stays invalid",
			raw:       "Model: stock.picking",
			wantValid: false,
			wantModel: ModelPicking,
		},
		{
			name:      "missing model",
			raw:       "ID: 7",
			wantValid: false,
		},
		{
			name:      "unknown model name",
			raw:       "Model: res.partner\nID: 7",
			wantValid: false,
		},
		{
			name:      "garbage lines are skipped",
			raw:       "whatever\nModel: stock.picking\nID: 9",
			wantValid: true,
			wantModel: ModelPicking,
			wantRecord: 9,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Decode(tt.raw)

			assert.Equal(t, tt.wantValid, result.Valid)
			assert.Equal(t, tt.wantModel, result.Model)
			if tt.wantValid {
				assert.Equal(t, tt.wantRecord, result.RecordID)
			}
		})
	}
}

func TestDecodeEmpty(t *testing.T) {
	for _, raw := range []string{"", "   ", "\n\t"} {
		result := Decode(raw)
		assert.False(t, result.Valid)
	}
}

func TestDecodeNeverPanics(t *testing.T) {
	payloads := []string{
		".", "..", ".1", "5.", ":", "a:b:c", "Model:", "\x00\xff",
		"999999999999999999999999.1",
	}

	for _, raw := range payloads {
		assert.NotPanics(t, func() {
			result := Decode(raw)
			assert.False(t, result.Valid)
		}, "payload %q", raw)
	}
}
