package domain

import "time"

// RecordState is the lifecycle state a warehouse record reports
type RecordState string

const (
	RecordStateDraft     RecordState = "draft"
	RecordStateConfirmed RecordState = "confirmed"
	RecordStateAssigned  RecordState = "assigned"
	RecordStateDone      RecordState = "done"
	RecordStateCancel    RecordState = "cancel"
)

// IsTerminal reports whether the record can no longer be scanned against
func (s RecordState) IsTerminal() bool {
	return s == RecordStateDone || s == RecordStateCancel
}

// PickingCategory is the operation direction of a picking record
type PickingCategory string

const (
	CategoryOutgoing PickingCategory = "outgoing"
	CategoryIncoming PickingCategory = "incoming"
	CategoryInternal PickingCategory = "internal"
)

// Picking is the slice of an upstream transfer record the scan workflows need
type Picking struct {
	ID         int64           `json:"id" bson:"id"`
	Name       string          `json:"name" bson:"name"`
	State      RecordState     `json:"state" bson:"state"`
	Category   PickingCategory `json:"category" bson:"category"`
	IsScanned  bool            `json:"isScanned" bson:"isScanned"`
	IsReceived bool            `json:"isReceived" bson:"isReceived"`
	IsShipped  bool            `json:"isShipped" bson:"isShipped"`
	MoveCount  int             `json:"moveCount" bson:"moveCount"`
}

// Location is the slice of an upstream stock location the scan workflows need
type Location struct {
	ID           int64  `json:"id" bson:"id"`
	Name         string `json:"name" bson:"name"`
	CompleteName string `json:"completeName" bson:"completeName"`
}

// MoveLine is one product line of a picking under confirmation
type MoveLine struct {
	ID          int64   `json:"id" bson:"id"`
	ProductID   int64   `json:"productId" bson:"productId"`
	ProductName string  `json:"productName" bson:"productName"`
	Demand      float64 `json:"demand" bson:"demand"`
	Confirmed   float64 `json:"confirmed" bson:"confirmed"`
	UOM         string  `json:"uom" bson:"uom"`
	ConfirmNote string  `json:"confirmNote" bson:"confirmNote"`
	IsInvalid   bool    `json:"isInvalid" bson:"isInvalid"`
}

// InventoryQuant is one product line of a location count. Difference is
// always Counted - OnHand.
type InventoryQuant struct {
	ID          string  `json:"id" bson:"id"`
	ProductID   int64   `json:"productId" bson:"productId"`
	ProductName string  `json:"productName" bson:"productName"`
	ProductCode string  `json:"productCode" bson:"productCode"`
	OnHand      float64 `json:"onHand" bson:"onHand"`
	Counted     float64 `json:"counted" bson:"counted"`
	UOM         string  `json:"uom" bson:"uom"`
	Difference  float64 `json:"difference" bson:"difference"`
	IsNew       bool    `json:"isNew" bson:"isNew"`
}

// ProductHit is a product search result used when adding lines to a count
type ProductHit struct {
	ID      int64   `json:"id"`
	Name    string  `json:"name"`
	Code    string  `json:"code"`
	UOM     string  `json:"uom"`
	OnHand  float64 `json:"onHand"`
}

// ProductLocation describes where else a product is stocked
type ProductLocation struct {
	LocationID   int64   `json:"locationId"`
	LocationName string  `json:"locationName"`
	Quantity     float64 `json:"quantity"`
	Reserved     float64 `json:"reserved"`
}

// CapturedImage is a photo attached to a scan workflow
type CapturedImage struct {
	ID         string    `json:"id" bson:"id"`
	Data       string    `json:"data" bson:"data"` // base64, data-URL prefix stripped
	SizeBytes  int       `json:"sizeBytes" bson:"sizeBytes"`
	CapturedAt time.Time `json:"capturedAt" bson:"capturedAt"`
}

// MoveLineConfirm is the persisted confirmation for one move line
type MoveLineConfirm struct {
	LineID    int64   `json:"lineId"`
	ProductID int64   `json:"productId"`
	Confirmed float64 `json:"confirmed"`
	Note      string  `json:"note"`
}
