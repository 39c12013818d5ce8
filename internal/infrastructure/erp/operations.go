package erp

import (
	"context"
	"fmt"
	"net/url"

	"github.com/wms-platform/scan-service/internal/domain"
)

// UpdateScanInfoRequest carries everything a scan workflow collected for a
// picking: confirmed quantities, captured images and shipping metadata.
type UpdateScanInfoRequest struct {
	Note         string                   `json:"note,omitempty"`
	ShippingType string                   `json:"shippingType,omitempty"`
	Phone        string                   `json:"phone,omitempty"`
	Company      string                   `json:"company,omitempty"`
	Images       []string                 `json:"images,omitempty"`
	Lines        []domain.MoveLineConfirm `json:"lines,omitempty"`
	IsScanned    bool                     `json:"isScanned"`
	IsReceived   bool                     `json:"isReceived"`
	IsShipped    bool                     `json:"isShipped"`
}

// InventoryScanLine is one counted product in a location inventory save.
type InventoryScanLine struct {
	ProductID int64   `json:"productId"`
	Counted   float64 `json:"counted"`
	IsNew     bool    `json:"isNew"`
}

// InventoryScanRequest applies a batch of counted quantities to a location.
type InventoryScanRequest struct {
	LocationID int64               `json:"locationId"`
	Note       string              `json:"note,omitempty"`
	Lines      []InventoryScanLine `json:"lines"`
}

// InventoryLineResult reports the outcome of a single line in a batch save.
// Error is empty when the line applied cleanly.
type InventoryLineResult struct {
	ProductID int64  `json:"productId"`
	Error     string `json:"error,omitempty"`
}

// FindPicking fetches a transfer by id. Returns NOT_FOUND when the ERP does
// not know the id.
func (c *Client) FindPicking(ctx context.Context, id int64) (*domain.Picking, error) {
	var resp struct {
		Data domain.Picking `json:"data"`
	}
	if err := c.get(ctx, "find_picking", fmt.Sprintf("/api/v1/pickings/%d", id), &resp); err != nil {
		return nil, err
	}
	return &resp.Data, nil
}

// FindLocation fetches a stock location by id.
func (c *Client) FindLocation(ctx context.Context, id int64) (*domain.Location, error) {
	var resp struct {
		Data domain.Location `json:"data"`
	}
	if err := c.get(ctx, "find_location", fmt.Sprintf("/api/v1/locations/%d", id), &resp); err != nil {
		return nil, err
	}
	return &resp.Data, nil
}

// ReadMoveLines returns the move lines of a picking with demanded and
// currently confirmed quantities.
func (c *Client) ReadMoveLines(ctx context.Context, pickingID int64) ([]domain.MoveLine, error) {
	var resp struct {
		Data []domain.MoveLine `json:"data"`
	}
	if err := c.get(ctx, "read_move_lines", fmt.Sprintf("/api/v1/pickings/%d/move-lines", pickingID), &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// AvailableQuantity returns the live on-hand quantity for a product.
func (c *Client) AvailableQuantity(ctx context.Context, productID int64) (float64, error) {
	var resp struct {
		Data struct {
			Available float64 `json:"available"`
		} `json:"data"`
	}
	if err := c.get(ctx, "available_quantity", fmt.Sprintf("/api/v1/products/%d/available", productID), &resp); err != nil {
		return 0, err
	}
	return resp.Data.Available, nil
}

// UpdateScanInfo persists the collected workflow data on a picking.
func (c *Client) UpdateScanInfo(ctx context.Context, pickingID int64, req *UpdateScanInfoRequest) error {
	return c.post(ctx, "update_scan_info", fmt.Sprintf("/api/v1/pickings/%d/scan-info", pickingID), req, nil)
}

// FinalizeRecord validates the picking in the ERP, moving it to done.
func (c *Client) FinalizeRecord(ctx context.Context, pickingID int64) error {
	return c.post(ctx, "finalize_record", fmt.Sprintf("/api/v1/pickings/%d/validate", pickingID), nil, nil)
}

// LocationProducts lists the quants currently stored at a location.
func (c *Client) LocationProducts(ctx context.Context, locationID int64) ([]domain.InventoryQuant, error) {
	var resp struct {
		Data []domain.InventoryQuant `json:"data"`
	}
	if err := c.get(ctx, "location_products", fmt.Sprintf("/api/v1/locations/%d/products", locationID), &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// SearchProducts searches the product catalog by name or code.
func (c *Client) SearchProducts(ctx context.Context, term string, limit int) ([]domain.ProductHit, error) {
	var resp struct {
		Data []domain.ProductHit `json:"data"`
	}
	path := fmt.Sprintf("/api/v1/products?search=%s&limit=%d", url.QueryEscape(term), limit)
	if err := c.get(ctx, "search_products", path, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// AddProductToInventory registers a product at a location with an initial
// counted quantity.
func (c *Client) AddProductToInventory(ctx context.Context, locationID, productID int64, counted float64) error {
	body := map[string]interface{}{
		"productId": productID,
		"counted":   counted,
	}
	return c.post(ctx, "add_product", fmt.Sprintf("/api/v1/locations/%d/products", locationID), body, nil)
}

// UpdateInventoryCount sets the counted quantity for a product at a location.
func (c *Client) UpdateInventoryCount(ctx context.Context, locationID, productID int64, counted float64) error {
	body := map[string]interface{}{
		"counted": counted,
	}
	return c.post(ctx, "update_inventory_count", fmt.Sprintf("/api/v1/locations/%d/products/%d/count", locationID, productID), body, nil)
}

// RemoveProduct removes a product from a location's count.
func (c *Client) RemoveProduct(ctx context.Context, locationID, productID int64) error {
	return c.delete(ctx, "remove_product", fmt.Sprintf("/api/v1/locations/%d/products/%d", locationID, productID))
}

// ProductOtherLocations returns the other locations where a product is
// stocked, excluding the one being counted.
func (c *Client) ProductOtherLocations(ctx context.Context, productID, excludeLocationID int64) ([]domain.ProductLocation, error) {
	var resp struct {
		Data []domain.ProductLocation `json:"data"`
	}
	path := fmt.Sprintf("/api/v1/products/%d/locations?exclude=%d", productID, excludeLocationID)
	if err := c.get(ctx, "product_other_locations", path, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// SaveInventoryScan records the batch summary of a completed count; the
// per-line quantities have already been applied individually. Lines the
// server rejects are reported individually; a non-nil error means the
// batch itself failed.
func (c *Client) SaveInventoryScan(ctx context.Context, req *InventoryScanRequest) ([]InventoryLineResult, error) {
	var resp struct {
		Data struct {
			Results []InventoryLineResult `json:"results"`
		} `json:"data"`
	}
	if err := c.post(ctx, "save_inventory_scan", "/api/v1/inventory/scans", req, &resp); err != nil {
		return nil, err
	}
	return resp.Data.Results, nil
}

// CreateScanHistory records an inventory scan summary in the ERP.
func (c *Client) CreateScanHistory(ctx context.Context, history *domain.ScanHistory) error {
	return c.post(ctx, "create_scan_history", "/api/v1/inventory/scan-history", history, nil)
}
