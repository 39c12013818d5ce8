package qr

import (
	"bytes"
	"fmt"
	"image/png"

	"github.com/boombuler/barcode"
	qrcode "github.com/boombuler/barcode/qr"
)

// Encode renders the compact payload for a record.
func Encode(model Model, id int64) (string, error) {
	if id <= 0 {
		return "", fmt.Errorf("invalid record id: %d", id)
	}

	var code string
	switch model {
	case ModelPicking:
		code = codePicking
	case ModelLocation:
		code = codeLocation
	default:
		return "", fmt.Errorf("unknown model: %q", model)
	}

	return fmt.Sprintf("%d.%s", id, code), nil
}

// GenerateImage renders a payload as a PNG QR code of size x size pixels.
func GenerateImage(payload string, size int) ([]byte, error) {
	if payload == "" {
		return nil, fmt.Errorf("empty payload")
	}
	if size <= 0 {
		size = 256
	}

	code, err := qrcode.Encode(payload, qrcode.M, qrcode.Auto)
	if err != nil {
		return nil, fmt.Errorf("failed to encode payload: %w", err)
	}

	scaled, err := barcode.Scale(code, size, size)
	if err != nil {
		return nil, fmt.Errorf("failed to scale QR code: %w", err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, scaled); err != nil {
		return nil, fmt.Errorf("failed to render PNG: %w", err)
	}

	return buf.Bytes(), nil
}
