package qr

import (
	"strconv"
	"strings"
)

// Model identifies the kind of warehouse record a QR payload points at.
type Model string

const (
	ModelPicking  Model = "picking"
	ModelLocation Model = "location"
)

// Compact payload codes. The label printer emits "<id>.<code>".
const (
	codePicking  = "1"
	codeLocation = "2"
)

// ScanResult is the outcome of decoding one QR payload. Valid is false for
// anything the decoder cannot make sense of; Decode never returns an error.
type ScanResult struct {
	Valid    bool
	Model    Model
	RecordID int64
	Raw      string
}

// Decode parses a QR payload in either the compact "<id>.<code>" format or
// the legacy multi-line "Key: Value" format.
func Decode(raw string) ScanResult {
	result := ScanResult{Raw: raw}

	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return result
	}

	if strings.Contains(trimmed, ".") && !strings.Contains(trimmed, ":") {
		return decodeCompact(trimmed, result)
	}

	return decodeLegacy(trimmed, result)
}

func decodeCompact(payload string, result ScanResult) ScanResult {
	parts := strings.SplitN(payload, ".", 2)
	if len(parts) != 2 {
		return result
	}

	id, err := strconv.ParseInt(strings.TrimSpace(parts[0]), 10, 64)
	if err != nil || id <= 0 {
		return result
	}

	model, ok := modelForCode(strings.TrimSpace(parts[1]))
	if !ok {
		return result
	}

	result.Valid = true
	result.Model = model
	result.RecordID = id
	return result
}

func decodeLegacy(payload string, result ScanResult) ScanResult {
	var model Model
	var haveModel bool
	var id int64

	for _, line := range strings.Split(payload, "\n") {
		key, value, found := strings.Cut(line, ":")
		if !found {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)

		switch strings.ToLower(key) {
		case "model":
			model, haveModel = modelForName(value)
		case "id":
			parsed, err := strconv.ParseInt(value, 10, 64)
			if err == nil {
				id = parsed
			}
		}
	}

	if haveModel {
		// Keep the model on the result even when the ID is missing so the
		// caller can report what kind of label it was.
		result.Model = model
	}
	if !haveModel || id <= 0 {
		return result
	}

	result.Valid = true
	result.RecordID = id
	return result
}

func modelForCode(code string) (Model, bool) {
	switch code {
	case codePicking:
		return ModelPicking, true
	case codeLocation:
		return ModelLocation, true
	}
	return "", false
}

func modelForName(name string) (Model, bool) {
	switch strings.ToLower(name) {
	case "stock.picking", "picking":
		return ModelPicking, true
	case "stock.location", "location":
		return ModelLocation, true
	}
	return "", false
}
