package application

import (
	"context"
	"fmt"

	"github.com/wms-platform/scan-service/internal/domain"
	"github.com/wms-platform/scan-service/internal/qr"
	"github.com/wms-platform/scan-service/pkg/errors"
)

// ValidatorConfig sets the picking categories the shipping and checking
// workflows accept.
type ValidatorConfig struct {
	ShippingCategory domain.PickingCategory
	CheckingCategory domain.PickingCategory
}

func DefaultValidatorConfig() *ValidatorConfig {
	return &ValidatorConfig{
		ShippingCategory: domain.CategoryOutgoing,
		CheckingCategory: domain.CategoryIncoming,
	}
}

// ValidatedRecord is the outcome of a successful scan validation. Exactly
// one of Picking and Location is set, matching the decoded model.
type ValidatedRecord struct {
	Picking  *domain.Picking
	Location *domain.Location
}

// RecordValidator checks scanned records against the active mode's
// preconditions. Failures never mutate session state.
type RecordValidator struct {
	gateway RemoteGateway
	config  *ValidatorConfig
}

func NewRecordValidator(gateway RemoteGateway, config *ValidatorConfig) *RecordValidator {
	if config == nil {
		config = DefaultValidatorConfig()
	}
	return &RecordValidator{gateway: gateway, config: config}
}

// ValidateRecord fetches the scanned record and applies the mode's
// preconditions.
func (v *RecordValidator) ValidateRecord(ctx context.Context, mode domain.ScanMode, result qr.ScanResult) (*ValidatedRecord, error) {
	if !result.Valid {
		return nil, errors.ErrDecode("unreadable QR payload")
	}

	if mode == domain.ModeLocation {
		if result.Model != qr.ModelLocation {
			return nil, errors.ErrValidation("scan a location label to count inventory")
		}
		location, err := v.gateway.FindLocation(ctx, result.RecordID)
		if err != nil {
			return nil, err
		}
		return &ValidatedRecord{Location: location}, nil
	}

	if result.Model != qr.ModelPicking {
		return nil, errors.ErrValidation(fmt.Sprintf("a %s label cannot be used in %s mode", result.Model, mode))
	}

	picking, err := v.gateway.FindPicking(ctx, result.RecordID)
	if err != nil {
		return nil, err
	}

	if picking.State.IsTerminal() {
		return nil, errors.ErrValidation(fmt.Sprintf("transfer %s is already %s", picking.Name, picking.State))
	}

	switch mode {
	case domain.ModePrepare:
		if picking.Category != domain.CategoryOutgoing {
			return nil, errors.ErrValidation(fmt.Sprintf("transfer %s is not an outgoing transfer", picking.Name))
		}
		if picking.MoveCount == 0 {
			return nil, errors.ErrValidation(fmt.Sprintf("transfer %s has no products to prepare", picking.Name))
		}
	case domain.ModeShipping:
		if picking.Category != v.config.ShippingCategory {
			return nil, errors.ErrValidation(fmt.Sprintf("transfer %s cannot be shipped from this flow", picking.Name))
		}
		if !picking.IsScanned {
			return nil, errors.ErrValidation(fmt.Sprintf("transfer %s has not been prepared yet", picking.Name))
		}
		if picking.IsShipped {
			return nil, errors.ErrValidation(fmt.Sprintf("transfer %s has already been shipped", picking.Name))
		}
	case domain.ModeReceive:
		if picking.Category != domain.CategoryIncoming {
			return nil, errors.ErrValidation(fmt.Sprintf("transfer %s is not an incoming transfer", picking.Name))
		}
		if picking.IsReceived {
			return nil, errors.ErrValidation(fmt.Sprintf("transfer %s has already been received", picking.Name))
		}
	case domain.ModeChecking:
		if picking.Category != v.config.CheckingCategory {
			return nil, errors.ErrValidation(fmt.Sprintf("transfer %s cannot be checked in this flow", picking.Name))
		}
		if !picking.IsReceived {
			return nil, errors.ErrValidation(fmt.Sprintf("transfer %s must be received before checking", picking.Name))
		}
	default:
		return nil, domain.ErrUnknownMode
	}

	return &ValidatedRecord{Picking: picking}, nil
}
