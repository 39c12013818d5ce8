package application

import (
	"context"

	"github.com/wms-platform/scan-service/internal/domain"
	"github.com/wms-platform/scan-service/internal/infrastructure/erp"
)

// RemoteGateway is the slice of the ERP the scan workflows need.
// internal/infrastructure/erp.Client implements it.
type RemoteGateway interface {
	FindPicking(ctx context.Context, id int64) (*domain.Picking, error)
	FindLocation(ctx context.Context, id int64) (*domain.Location, error)
	ReadMoveLines(ctx context.Context, pickingID int64) ([]domain.MoveLine, error)
	AvailableQuantity(ctx context.Context, productID int64) (float64, error)
	UpdateScanInfo(ctx context.Context, pickingID int64, req *erp.UpdateScanInfoRequest) error
	FinalizeRecord(ctx context.Context, pickingID int64) error
	LocationProducts(ctx context.Context, locationID int64) ([]domain.InventoryQuant, error)
	SearchProducts(ctx context.Context, term string, limit int) ([]domain.ProductHit, error)
	AddProductToInventory(ctx context.Context, locationID, productID int64, counted float64) error
	UpdateInventoryCount(ctx context.Context, locationID, productID int64, counted float64) error
	RemoveProduct(ctx context.Context, locationID, productID int64) error
	ProductOtherLocations(ctx context.Context, productID, excludeLocationID int64) ([]domain.ProductLocation, error)
	SaveInventoryScan(ctx context.Context, req *erp.InventoryScanRequest) ([]erp.InventoryLineResult, error)
	CreateScanHistory(ctx context.Context, history *domain.ScanHistory) error
}
