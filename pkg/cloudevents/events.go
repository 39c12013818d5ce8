package cloudevents

import (
	"time"
)

// EventType constants for scan domain events
const (
	SessionStarted    = "wms.scan.session-started"
	ModeSelected      = "wms.scan.mode-selected"
	RecordScanned     = "wms.scan.record-scanned"
	ScanRejected      = "wms.scan.rejected"
	WorkflowConfirmed = "wms.scan.workflow-confirmed"
	SessionReset      = "wms.scan.session-reset"

	InventoryCountConfirmed = "wms.inventory.count-confirmed"
	InventoryAdjusted       = "wms.inventory.adjusted"
)

// Source constants for event sources
const (
	SourceScanService = "/wms/scan-service"
)

// WMSCloudEvent represents a CloudEvents v1.0 compliant event
type WMSCloudEvent struct {
	SpecVersion     string      `json:"specversion"`
	Type            string      `json:"type"`
	Source          string      `json:"source"`
	Subject         string      `json:"subject,omitempty"`
	ID              string      `json:"id"`
	Time            time.Time   `json:"time"`
	DataContentType string      `json:"datacontenttype"`
	Data            interface{} `json:"data"`

	// WMS-specific extensions
	CorrelationID string `json:"wmscorrelationid,omitempty"`
	SessionID     string `json:"wmssessionid,omitempty"`
	DeviceID      string `json:"wmsdeviceid,omitempty"`
}

// RecordScannedData is the payload for RecordScanned events
type RecordScannedData struct {
	SessionID  string    `json:"sessionId"`
	Mode       string    `json:"mode"`
	Model      string    `json:"model"`
	RecordID   int64     `json:"recordId"`
	RecordName string    `json:"recordName"`
	ScannedAt  time.Time `json:"scannedAt"`
}

// WorkflowConfirmedData is the payload for WorkflowConfirmed events
type WorkflowConfirmedData struct {
	SessionID   string    `json:"sessionId"`
	Mode        string    `json:"mode"`
	RecordID    int64     `json:"recordId"`
	Finalized   bool      `json:"finalized"`
	LineErrors  int       `json:"lineErrors"`
	ConfirmedAt time.Time `json:"confirmedAt"`
}

// InventoryCountConfirmedData is the payload for InventoryCountConfirmed events
type InventoryCountConfirmedData struct {
	SessionID           string    `json:"sessionId"`
	LocationID          int64     `json:"locationId"`
	TotalProducts       int       `json:"totalProducts"`
	ProductsWithChanges int       `json:"productsWithChanges"`
	ProductsAdded       int       `json:"productsAdded"`
	ProductsRemoved     int       `json:"productsRemoved"`
	Errors              int       `json:"errors"`
	ConfirmedAt         time.Time `json:"confirmedAt"`
}
