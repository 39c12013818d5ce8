package domain

import "time"

// DomainEvent is the interface for all domain events
type DomainEvent interface {
	EventType() string
	OccurredAt() time.Time
}

// SessionStartedEvent is published when a device opens a scan session
type SessionStartedEvent struct {
	SessionID string    `json:"sessionId"`
	DeviceID  string    `json:"deviceId"`
	StartedAt time.Time `json:"startedAt"`
}

func (e *SessionStartedEvent) EventType() string     { return "wms.scan.session-started" }
func (e *SessionStartedEvent) OccurredAt() time.Time { return e.StartedAt }

// ModeSelectedEvent is published when a session activates a scan mode
type ModeSelectedEvent struct {
	SessionID  string    `json:"sessionId"`
	Mode       string    `json:"mode"`
	SelectedAt time.Time `json:"selectedAt"`
}

func (e *ModeSelectedEvent) EventType() string     { return "wms.scan.mode-selected" }
func (e *ModeSelectedEvent) OccurredAt() time.Time { return e.SelectedAt }

// RecordScannedEvent is published when a scanned record passes validation
type RecordScannedEvent struct {
	SessionID  string    `json:"sessionId"`
	Mode       string    `json:"mode"`
	Model      string    `json:"model"`
	RecordID   int64     `json:"recordId"`
	RecordName string    `json:"recordName"`
	ScannedAt  time.Time `json:"scannedAt"`
}

func (e *RecordScannedEvent) EventType() string     { return "wms.scan.record-scanned" }
func (e *RecordScannedEvent) OccurredAt() time.Time { return e.ScannedAt }

// WorkflowConfirmedEvent is published when a mode's save workflow completes
type WorkflowConfirmedEvent struct {
	SessionID   string    `json:"sessionId"`
	Mode        string    `json:"mode"`
	RecordID    int64     `json:"recordId"`
	Finalized   bool      `json:"finalized"`
	LineErrors  int       `json:"lineErrors"`
	ConfirmedAt time.Time `json:"confirmedAt"`
}

func (e *WorkflowConfirmedEvent) EventType() string     { return "wms.scan.workflow-confirmed" }
func (e *WorkflowConfirmedEvent) OccurredAt() time.Time { return e.ConfirmedAt }

// SessionResetEvent is published when a session returns to mode selection
type SessionResetEvent struct {
	SessionID string    `json:"sessionId"`
	ResetAt   time.Time `json:"resetAt"`
}

func (e *SessionResetEvent) EventType() string     { return "wms.scan.session-reset" }
func (e *SessionResetEvent) OccurredAt() time.Time { return e.ResetAt }

// InventoryCountConfirmedEvent is published when a location count is saved
type InventoryCountConfirmedEvent struct {
	SessionID           string    `json:"sessionId"`
	LocationID          int64     `json:"locationId"`
	TotalProducts       int       `json:"totalProducts"`
	ProductsWithChanges int       `json:"productsWithChanges"`
	ProductsAdded       int       `json:"productsAdded"`
	ProductsRemoved     int       `json:"productsRemoved"`
	Errors              int       `json:"errors"`
	ConfirmedAt         time.Time `json:"confirmedAt"`
}

func (e *InventoryCountConfirmedEvent) EventType() string     { return "wms.inventory.count-confirmed" }
func (e *InventoryCountConfirmedEvent) OccurredAt() time.Time { return e.ConfirmedAt }
