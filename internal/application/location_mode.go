package application

import (
	"context"
	"fmt"
	"strconv"

	"github.com/google/uuid"

	"github.com/wms-platform/scan-service/internal/domain"
	"github.com/wms-platform/scan-service/internal/infrastructure/erp"
	"github.com/wms-platform/scan-service/pkg/logging"
)

// LocationHandler runs the location inventory count. Confirm applies every
// changed line upstream, continuing past per-item failures, then records a
// scan history document.
type LocationHandler struct {
	gateway   RemoteGateway
	histories domain.HistoryRepository
	logger    *logging.Logger
}

func NewLocationHandler(gateway RemoteGateway, histories domain.HistoryRepository, logger *logging.Logger) *LocationHandler {
	return &LocationHandler{
		gateway:   gateway,
		histories: histories,
		logger:    logger.WithComponent("location_handler"),
	}
}

func (h *LocationHandler) Mode() domain.ScanMode { return domain.ModeLocation }
func (h *LocationHandler) Finalizes() bool       { return false }

func (h *LocationHandler) Load(ctx context.Context, session *domain.ScanSession, record *ValidatedRecord) error {
	quants, err := h.gateway.LocationProducts(ctx, record.Location.ID)
	if err != nil {
		return err
	}
	for i := range quants {
		quants[i].Counted = quants[i].OnHand
		quants[i].Difference = 0
	}
	name := record.Location.CompleteName
	if name == "" {
		name = record.Location.Name
	}
	return session.AttachLocation(record.Location.ID, name, quants)
}

func (h *LocationHandler) Confirm(ctx context.Context, session *domain.ScanSession) (*ConfirmResult, error) {
	if session.RecordID == 0 {
		return nil, domain.ErrNoRecord
	}

	locationID := session.RecordID
	changed := session.ChangedQuants()
	lineErrors := make(map[int64]string)

	for _, q := range changed {
		var err error
		if q.IsNew {
			err = h.gateway.AddProductToInventory(ctx, locationID, q.ProductID, q.Counted)
		} else {
			err = h.gateway.UpdateInventoryCount(ctx, locationID, q.ProductID, q.Counted)
		}
		if err != nil {
			lineErrors[q.ProductID] = err.Error()
			h.logger.WithContext(ctx).WithError(err).Warn("inventory line failed",
				"locationId", locationID,
				"productId", q.ProductID,
			)
		}
	}

	if len(changed) > 0 {
		scanLines := make([]erp.InventoryScanLine, 0, len(changed))
		for _, q := range changed {
			scanLines = append(scanLines, erp.InventoryScanLine{
				ProductID: q.ProductID,
				Counted:   q.Counted,
				IsNew:     q.IsNew,
			})
		}
		results, err := h.gateway.SaveInventoryScan(ctx, &erp.InventoryScanRequest{
			LocationID: locationID,
			Note:       session.ScanNote,
			Lines:      scanLines,
		})
		if err != nil {
			h.logger.WithContext(ctx).WithError(err).Warn("inventory scan save failed", "locationId", locationID)
		}
		for _, r := range results {
			if r.Error != "" {
				if _, seen := lineErrors[r.ProductID]; !seen {
					lineErrors[r.ProductID] = r.Error
				}
			}
		}
	}

	history := domain.BuildScanHistory(uuid.New().String(), session, session.ScanNote, session.RemovedCount, lineErrors)
	if err := h.histories.Save(ctx, history); err != nil {
		return nil, err
	}
	if err := h.gateway.CreateScanHistory(ctx, history); err != nil {
		h.logger.WithContext(ctx).WithError(err).Warn("scan history upstream save failed", "historyId", history.HistoryID)
	}

	session.AddDomainEvent(&domain.InventoryCountConfirmedEvent{
		SessionID:           session.SessionID,
		LocationID:          locationID,
		TotalProducts:       history.Stats.TotalProducts,
		ProductsWithChanges: history.Stats.ProductsWithChanges,
		ProductsAdded:       history.Stats.ProductsAdded,
		ProductsRemoved:     history.Stats.ProductsRemoved,
		Errors:              history.Stats.Errors,
		ConfirmedAt:         history.CreatedAt,
	})

	if err := session.ConfirmWorkflow(false, len(lineErrors)); err != nil {
		return nil, err
	}

	result := &ConfirmResult{
		Message:    "inventory count completed",
		LineErrors: len(lineErrors),
	}
	if len(lineErrors) > 0 {
		result.Message = fmt.Sprintf("inventory count completed with %d errors", len(lineErrors))
		result.Errors = make(map[string]string, len(lineErrors))
		for productID, msg := range lineErrors {
			result.Errors[strconv.FormatInt(productID, 10)] = msg
		}
	}
	return result, nil
}
