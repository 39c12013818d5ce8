package application

import (
	"context"
	"fmt"

	"github.com/wms-platform/scan-service/internal/domain"
	"github.com/wms-platform/scan-service/internal/infrastructure/erp"
	"github.com/wms-platform/scan-service/pkg/errors"
	"github.com/wms-platform/scan-service/pkg/logging"
)

func imagePayloads(session *domain.ScanSession) []string {
	if len(session.Images) == 0 {
		return nil
	}
	images := make([]string, 0, len(session.Images))
	for _, img := range session.Images {
		images = append(images, img.Data)
	}
	return images
}

// liveStock fetches the available quantity for every product on the
// session's move lines.
func liveStock(ctx context.Context, gateway RemoteGateway, session *domain.ScanSession) (map[int64]float64, error) {
	available := make(map[int64]float64, len(session.MoveLines))
	for _, line := range session.MoveLines {
		if _, ok := available[line.ProductID]; ok {
			continue
		}
		stock, err := gateway.AvailableQuantity(ctx, line.ProductID)
		if err != nil {
			return nil, err
		}
		available[line.ProductID] = stock
	}
	return available, nil
}

// PrepareHandler runs the outgoing preparation workflow: confirm
// quantities per line, persist the scan data, then validate the transfer.
type PrepareHandler struct {
	gateway RemoteGateway
	logger  *logging.Logger
}

func NewPrepareHandler(gateway RemoteGateway, logger *logging.Logger) *PrepareHandler {
	return &PrepareHandler{gateway: gateway, logger: logger.WithComponent("prepare_handler")}
}

func (h *PrepareHandler) Mode() domain.ScanMode { return domain.ModePrepare }
func (h *PrepareHandler) Finalizes() bool       { return true }

func (h *PrepareHandler) Load(ctx context.Context, session *domain.ScanSession, record *ValidatedRecord) error {
	lines, err := h.gateway.ReadMoveLines(ctx, record.Picking.ID)
	if err != nil {
		return err
	}
	return session.AttachPicking(record.Picking.ID, record.Picking.Name, lines)
}

func (h *PrepareHandler) Confirm(ctx context.Context, session *domain.ScanSession) (*ConfirmResult, error) {
	if session.RecordID == 0 {
		return nil, domain.ErrNoRecord
	}

	available, err := liveStock(ctx, h.gateway, session)
	if err != nil {
		return nil, err
	}
	if !session.CheckQuantities(available) {
		return nil, errors.ErrValidation("one or more lines exceed the demanded or available quantity")
	}

	recordID := session.RecordID
	if err := h.gateway.UpdateScanInfo(ctx, recordID, &erp.UpdateScanInfoRequest{
		Note:      session.ScanNote,
		Images:    imagePayloads(session),
		Lines:     session.LineConfirms(),
		IsScanned: true,
	}); err != nil {
		return nil, err
	}

	if err := h.gateway.FinalizeRecord(ctx, recordID); err != nil {
		return nil, errors.ErrValidation(fmt.Sprintf("scan data saved but the transfer could not be validated: %s", err))
	}

	if err := session.ConfirmWorkflow(true, 0); err != nil {
		return nil, err
	}
	return &ConfirmResult{Message: "transfer prepared and validated", Finalized: true}, nil
}

// CheckingHandler re-confirms a received transfer. Lines start at the
// demanded quantity and the transfer is not validated upstream.
type CheckingHandler struct {
	gateway RemoteGateway
	logger  *logging.Logger
}

func NewCheckingHandler(gateway RemoteGateway, logger *logging.Logger) *CheckingHandler {
	return &CheckingHandler{gateway: gateway, logger: logger.WithComponent("checking_handler")}
}

func (h *CheckingHandler) Mode() domain.ScanMode { return domain.ModeChecking }
func (h *CheckingHandler) Finalizes() bool       { return false }

func (h *CheckingHandler) Load(ctx context.Context, session *domain.ScanSession, record *ValidatedRecord) error {
	lines, err := h.gateway.ReadMoveLines(ctx, record.Picking.ID)
	if err != nil {
		return err
	}
	for i := range lines {
		lines[i].Confirmed = lines[i].Demand
	}
	return session.AttachPicking(record.Picking.ID, record.Picking.Name, lines)
}

func (h *CheckingHandler) Confirm(ctx context.Context, session *domain.ScanSession) (*ConfirmResult, error) {
	if session.RecordID == 0 {
		return nil, domain.ErrNoRecord
	}

	available, err := liveStock(ctx, h.gateway, session)
	if err != nil {
		return nil, err
	}
	if !session.CheckQuantities(available) {
		return nil, errors.ErrValidation("one or more lines exceed the demanded or available quantity")
	}

	if err := h.gateway.UpdateScanInfo(ctx, session.RecordID, &erp.UpdateScanInfoRequest{
		Note:   session.ScanNote,
		Images: imagePayloads(session),
		Lines:  session.LineConfirms(),
	}); err != nil {
		return nil, err
	}

	if err := session.ConfirmWorkflow(false, 0); err != nil {
		return nil, err
	}
	return &ConfirmResult{Message: "transfer checked"}, nil
}

// ShippingHandler marks a prepared transfer as shipped. Delivery requires
// at least one captured image; both sub-flows require a note.
type ShippingHandler struct {
	gateway RemoteGateway
	logger  *logging.Logger
}

func NewShippingHandler(gateway RemoteGateway, logger *logging.Logger) *ShippingHandler {
	return &ShippingHandler{gateway: gateway, logger: logger.WithComponent("shipping_handler")}
}

func (h *ShippingHandler) Mode() domain.ScanMode { return domain.ModeShipping }
func (h *ShippingHandler) Finalizes() bool       { return false }

func (h *ShippingHandler) Load(ctx context.Context, session *domain.ScanSession, record *ValidatedRecord) error {
	return session.AttachPicking(record.Picking.ID, record.Picking.Name, nil)
}

func (h *ShippingHandler) Confirm(ctx context.Context, session *domain.ScanSession) (*ConfirmResult, error) {
	if session.RecordID == 0 {
		return nil, domain.ErrNoRecord
	}
	if session.ShippingType == "" {
		return nil, domain.ErrShippingTypeRequired
	}
	if session.ScanNote == "" {
		return nil, domain.ErrNoteRequired
	}
	if session.ShippingType == domain.ShippingDelivery && len(session.Images) == 0 {
		return nil, domain.ErrShippingImageRequired
	}

	if err := h.gateway.UpdateScanInfo(ctx, session.RecordID, &erp.UpdateScanInfoRequest{
		Note:         session.ScanNote,
		ShippingType: string(session.ShippingType),
		Phone:        session.ShippingPhone,
		Company:      session.ShippingCompany,
		Images:       imagePayloads(session),
		IsShipped:    true,
	}); err != nil {
		return nil, err
	}

	if err := session.ConfirmWorkflow(false, 0); err != nil {
		return nil, err
	}
	return &ConfirmResult{Message: "transfer shipped"}, nil
}

// ReceiveHandler marks an incoming transfer as received with a note.
type ReceiveHandler struct {
	gateway RemoteGateway
	logger  *logging.Logger
}

func NewReceiveHandler(gateway RemoteGateway, logger *logging.Logger) *ReceiveHandler {
	return &ReceiveHandler{gateway: gateway, logger: logger.WithComponent("receive_handler")}
}

func (h *ReceiveHandler) Mode() domain.ScanMode { return domain.ModeReceive }
func (h *ReceiveHandler) Finalizes() bool       { return false }

func (h *ReceiveHandler) Load(ctx context.Context, session *domain.ScanSession, record *ValidatedRecord) error {
	return session.AttachPicking(record.Picking.ID, record.Picking.Name, nil)
}

func (h *ReceiveHandler) Confirm(ctx context.Context, session *domain.ScanSession) (*ConfirmResult, error) {
	if session.RecordID == 0 {
		return nil, domain.ErrNoRecord
	}
	if session.ScanNote == "" {
		return nil, domain.ErrNoteRequired
	}

	if err := h.gateway.UpdateScanInfo(ctx, session.RecordID, &erp.UpdateScanInfoRequest{
		Note:       session.ScanNote,
		IsReceived: true,
	}); err != nil {
		return nil, err
	}

	if err := session.ConfirmWorkflow(false, 0); err != nil {
		return nil, err
	}
	return &ConfirmResult{Message: "transfer received"}, nil
}
