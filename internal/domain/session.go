package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/wms-platform/scan-service/internal/qr"
)

// Domain errors
var (
	ErrNoMode                = errors.New("no scan mode selected")
	ErrUnknownMode           = errors.New("unknown scan mode")
	ErrNoRecord              = errors.New("no record scanned")
	ErrWrongPhase            = errors.New("operation not allowed in the current phase")
	ErrQuantityNegative      = errors.New("confirmed quantity cannot be negative")
	ErrQuantityRequired      = errors.New("counted quantity must be greater than zero")
	ErrLineNotFound          = errors.New("move line not found")
	ErrDuplicateProduct      = errors.New("product already in the count")
	ErrProductNotInCount     = errors.New("product not found in the count")
	ErrImageTooLarge         = errors.New("image exceeds maximum size")
	ErrShippingTypeRequired  = errors.New("shipping type is required")
	ErrNoteRequired          = errors.New("scan note is required")
	ErrShippingImageRequired = errors.New("at least one image is required for delivery")
)

// MaxImageSize caps a single captured image at 5 MB of decoded payload
const MaxImageSize = 5 * 1024 * 1024

// ScanMode is one of the five scan workflows
type ScanMode string

const (
	ModePrepare  ScanMode = "prepare"
	ModeShipping ScanMode = "shipping"
	ModeReceive  ScanMode = "receive"
	ModeChecking ScanMode = "checking"
	ModeLocation ScanMode = "location"
)

// ParseScanMode validates a mode string
func ParseScanMode(s string) (ScanMode, error) {
	mode := ScanMode(strings.ToLower(s))
	switch mode {
	case ModePrepare, ModeShipping, ModeReceive, ModeChecking, ModeLocation:
		return mode, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownMode, s)
}

// Phase is the step of the workflow the session currently shows
type Phase string

const (
	PhaseModeSelect        Phase = "mode_select"
	PhaseScanning          Phase = "scanning"
	PhaseCapture           Phase = "capture"
	PhaseShippingType      Phase = "shipping_type"
	PhaseReceiveNote       Phase = "receive_note"
	PhaseLocationInventory Phase = "location_inventory"
)

// NextPhase returns the phase a mode advances to after a successful scan
func NextPhase(mode ScanMode) Phase {
	switch mode {
	case ModeShipping:
		return PhaseShippingType
	case ModeReceive:
		return PhaseReceiveNote
	case ModeLocation:
		return PhaseLocationInventory
	default:
		return PhaseCapture
	}
}

// ShippingType is the shipping sub-flow
type ShippingType string

const (
	ShippingDelivery ShippingType = "delivery"
	ShippingPickup   ShippingType = "pickup"
)

// ScanSession is the aggregate holding one device's scan workflow state.
// Exactly one mode is active at a time; Reset returns every workflow field
// to its zero value.
type ScanSession struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	SessionID string             `bson:"sessionId" json:"sessionId"`
	DeviceID  string             `bson:"deviceId" json:"deviceId"`

	Mode     ScanMode `bson:"mode" json:"mode"`
	Phase    Phase    `bson:"phase" json:"phase"`
	Scanning bool     `bson:"scanning" json:"scanning"`

	RecordModel qr.Model `bson:"recordModel" json:"recordModel"`
	RecordID    int64    `bson:"recordId" json:"recordId"`
	RecordName  string   `bson:"recordName" json:"recordName"`

	Images    []CapturedImage  `bson:"images" json:"images"`
	MoveLines []MoveLine       `bson:"moveLines" json:"moveLines"`
	Quants    []InventoryQuant `bson:"quants" json:"quants"`

	ShippingType    ShippingType `bson:"shippingType" json:"shippingType"`
	ShippingPhone   string       `bson:"shippingPhone" json:"shippingPhone"`
	ShippingCompany string       `bson:"shippingCompany" json:"shippingCompany"`
	ScanNote        string       `bson:"scanNote" json:"scanNote"`

	// RemovedCount tracks products dropped from the count for the history
	// statistics. LastError keeps the most recent scan failure visible to
	// the client until the next successful scan or reset.
	RemovedCount int    `bson:"removedCount" json:"removedCount"`
	LastError    string `bson:"lastError" json:"lastError"`

	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`

	DomainEvents []DomainEvent `bson:"-" json:"-"`
}

// NewScanSession creates a session in mode selection
func NewScanSession(sessionID, deviceID string) (*ScanSession, error) {
	if sessionID == "" {
		return nil, errors.New("session ID is required")
	}
	if deviceID == "" {
		return nil, errors.New("device ID is required")
	}

	now := time.Now()
	session := &ScanSession{
		SessionID: sessionID,
		DeviceID:  deviceID,
		Phase:     PhaseModeSelect,
		CreatedAt: now,
		UpdatedAt: now,
	}

	session.AddDomainEvent(&SessionStartedEvent{
		SessionID: sessionID,
		DeviceID:  deviceID,
		StartedAt: now,
	})

	return session, nil
}

// SelectMode resets the session and activates a mode
func (s *ScanSession) SelectMode(mode ScanMode) error {
	if _, err := ParseScanMode(string(mode)); err != nil {
		return err
	}

	s.clearWorkflowState()
	s.Mode = mode
	s.Phase = PhaseScanning
	s.UpdatedAt = time.Now()

	s.AddDomainEvent(&ModeSelectedEvent{
		SessionID:  s.SessionID,
		Mode:       string(mode),
		SelectedAt: s.UpdatedAt,
	})

	return nil
}

// StartScanning marks the session as actively decoding frames
func (s *ScanSession) StartScanning() error {
	if s.Mode == "" {
		return ErrNoMode
	}
	s.Scanning = true
	s.UpdatedAt = time.Now()
	return nil
}

// StopScanning is idempotent
func (s *ScanSession) StopScanning() {
	s.Scanning = false
	s.UpdatedAt = time.Now()
}

// RecordScanError stops scanning and keeps the failure visible to the
// client until the next successful scan or reset.
func (s *ScanSession) RecordScanError(msg string) {
	s.Scanning = false
	s.LastError = msg
	s.UpdatedAt = time.Now()
}

// Reset returns the session to mode selection, dropping all workflow state
// in one step. Resetting a fresh session is a no-op.
func (s *ScanSession) Reset() {
	s.clearWorkflowState()
	s.UpdatedAt = time.Now()

	s.AddDomainEvent(&SessionResetEvent{
		SessionID: s.SessionID,
		ResetAt:   s.UpdatedAt,
	})
}

func (s *ScanSession) clearWorkflowState() {
	s.Mode = ""
	s.Phase = PhaseModeSelect
	s.Scanning = false
	s.RecordModel = ""
	s.RecordID = 0
	s.RecordName = ""
	s.Images = nil
	s.MoveLines = nil
	s.Quants = nil
	s.ShippingType = ""
	s.ShippingPhone = ""
	s.ShippingCompany = ""
	s.ScanNote = ""
	s.RemovedCount = 0
	s.LastError = ""
}

// AttachPicking stores a validated picking scan and advances the phase
func (s *ScanSession) AttachPicking(recordID int64, name string, lines []MoveLine) error {
	if s.Mode == "" {
		return ErrNoMode
	}
	if s.Mode == ModeLocation {
		return fmt.Errorf("%w: picking scanned in location mode", ErrWrongPhase)
	}

	s.Scanning = false
	s.LastError = ""
	s.RecordModel = qr.ModelPicking
	s.RecordID = recordID
	s.RecordName = name
	s.MoveLines = lines
	s.Phase = NextPhase(s.Mode)
	s.UpdatedAt = time.Now()

	s.AddDomainEvent(&RecordScannedEvent{
		SessionID:  s.SessionID,
		Mode:       string(s.Mode),
		Model:      string(qr.ModelPicking),
		RecordID:   recordID,
		RecordName: name,
		ScannedAt:  s.UpdatedAt,
	})

	return nil
}

// AttachLocation stores a validated location scan with its current quants
func (s *ScanSession) AttachLocation(recordID int64, name string, quants []InventoryQuant) error {
	if s.Mode != ModeLocation {
		return fmt.Errorf("%w: location scanned in %s mode", ErrWrongPhase, s.Mode)
	}

	s.Scanning = false
	s.LastError = ""
	s.RecordModel = qr.ModelLocation
	s.RecordID = recordID
	s.RecordName = name
	s.Quants = quants
	s.Phase = PhaseLocationInventory
	s.UpdatedAt = time.Now()

	s.AddDomainEvent(&RecordScannedEvent{
		SessionID:  s.SessionID,
		Mode:       string(s.Mode),
		Model:      string(qr.ModelLocation),
		RecordID:   recordID,
		RecordName: name,
		ScannedAt:  s.UpdatedAt,
	})

	return nil
}

// AddImage attaches a captured image to the workflow
func (s *ScanSession) AddImage(img CapturedImage) error {
	if s.RecordID == 0 {
		return ErrNoRecord
	}
	if img.SizeBytes > MaxImageSize {
		return fmt.Errorf("%w: %d bytes", ErrImageTooLarge, img.SizeBytes)
	}

	s.Images = append(s.Images, img)
	s.UpdatedAt = time.Now()
	return nil
}

// SetLineConfirmed updates the confirmed quantity and note of one move line
func (s *ScanSession) SetLineConfirmed(lineID int64, confirmed float64, note string) error {
	if confirmed < 0 {
		return ErrQuantityNegative
	}

	for i := range s.MoveLines {
		if s.MoveLines[i].ID == lineID {
			s.MoveLines[i].Confirmed = confirmed
			s.MoveLines[i].ConfirmNote = note
			s.MoveLines[i].IsInvalid = false
			s.UpdatedAt = time.Now()
			return nil
		}
	}

	return fmt.Errorf("%w: %d", ErrLineNotFound, lineID)
}

// CheckQuantities flags lines whose confirmed quantity exceeds the demand or
// the available stock, and reports overall validity. available maps product
// ID to live on-hand quantity.
func (s *ScanSession) CheckQuantities(available map[int64]float64) bool {
	valid := true
	for i := range s.MoveLines {
		line := &s.MoveLines[i]
		line.IsInvalid = false

		if line.Confirmed > line.Demand {
			line.IsInvalid = true
		}
		if stock, ok := available[line.ProductID]; ok && line.Confirmed > stock {
			line.IsInvalid = true
		}
		if line.IsInvalid {
			valid = false
		}
	}
	s.UpdatedAt = time.Now()
	return valid
}

// LineConfirms returns the persisted form of the move line confirmations
func (s *ScanSession) LineConfirms() []MoveLineConfirm {
	confirms := make([]MoveLineConfirm, 0, len(s.MoveLines))
	for _, line := range s.MoveLines {
		confirms = append(confirms, MoveLineConfirm{
			LineID:    line.ID,
			ProductID: line.ProductID,
			Confirmed: line.Confirmed,
			Note:      line.ConfirmNote,
		})
	}
	return confirms
}

// SetShipping stores the shipping sub-flow details
func (s *ScanSession) SetShipping(shippingType ShippingType, phone, company string) error {
	if s.RecordID == 0 {
		return ErrNoRecord
	}
	if shippingType != ShippingDelivery && shippingType != ShippingPickup {
		return ErrShippingTypeRequired
	}

	s.ShippingType = shippingType
	s.ShippingPhone = phone
	s.ShippingCompany = company
	s.UpdatedAt = time.Now()
	return nil
}

// SetNote stores the free-form scan note
func (s *ScanSession) SetNote(note string) {
	s.ScanNote = note
	s.UpdatedAt = time.Now()
}

// UpdateCount sets the counted quantity of a product and recomputes its
// difference. Safe to call repeatedly with the same value.
func (s *ScanSession) UpdateCount(productID int64, counted float64) error {
	if counted < 0 {
		return ErrQuantityNegative
	}

	for i := range s.Quants {
		if s.Quants[i].ProductID == productID {
			s.Quants[i].Counted = counted
			s.Quants[i].Difference = counted - s.Quants[i].OnHand
			s.UpdatedAt = time.Now()
			return nil
		}
	}

	return fmt.Errorf("%w: product %d", ErrProductNotInCount, productID)
}

// AddProduct adds a product that is not yet stocked at the location. A
// zero or negative quantity is rejected, and a duplicate leaves the count
// untouched.
func (s *ScanSession) AddProduct(hit ProductHit, counted float64) error {
	if counted <= 0 {
		return ErrQuantityRequired
	}
	for _, q := range s.Quants {
		if q.ProductID == hit.ID {
			return fmt.Errorf("%w: product %d", ErrDuplicateProduct, hit.ID)
		}
	}

	s.Quants = append(s.Quants, InventoryQuant{
		ID:          fmt.Sprintf("new_%d", time.Now().UnixMilli()),
		ProductID:   hit.ID,
		ProductName: hit.Name,
		ProductCode: hit.Code,
		OnHand:      0,
		Counted:     counted,
		UOM:         hit.UOM,
		Difference:  counted,
		IsNew:       true,
	})
	s.UpdatedAt = time.Now()
	return nil
}

// RemoveProduct drops a product from the count
func (s *ScanSession) RemoveProduct(productID int64) error {
	for i, q := range s.Quants {
		if q.ProductID == productID {
			s.Quants = append(s.Quants[:i], s.Quants[i+1:]...)
			s.RemovedCount++
			s.UpdatedAt = time.Now()
			return nil
		}
	}
	return fmt.Errorf("%w: product %d", ErrProductNotInCount, productID)
}

// ChangedQuants returns the lines that need an upstream adjustment
func (s *ScanSession) ChangedQuants() []InventoryQuant {
	var changed []InventoryQuant
	for _, q := range s.Quants {
		if q.IsNew || q.Counted != q.OnHand {
			changed = append(changed, q)
		}
	}
	return changed
}

// ConfirmWorkflow records the completion of the active mode's save workflow
// and resets the session.
func (s *ScanSession) ConfirmWorkflow(finalized bool, lineErrors int) error {
	if s.Mode == "" {
		return ErrNoMode
	}
	if s.RecordID == 0 {
		return ErrNoRecord
	}

	s.AddDomainEvent(&WorkflowConfirmedEvent{
		SessionID:   s.SessionID,
		Mode:        string(s.Mode),
		RecordID:    s.RecordID,
		Finalized:   finalized,
		LineErrors:  lineErrors,
		ConfirmedAt: time.Now(),
	})

	s.Reset()
	return nil
}

// AddDomainEvent appends a domain event to the aggregate
func (s *ScanSession) AddDomainEvent(event DomainEvent) {
	s.DomainEvents = append(s.DomainEvents, event)
}

// GetDomainEvents returns pending domain events
func (s *ScanSession) GetDomainEvents() []DomainEvent {
	return s.DomainEvents
}

// ClearDomainEvents drops pending domain events after publishing
func (s *ScanSession) ClearDomainEvents() {
	s.DomainEvents = nil
}
