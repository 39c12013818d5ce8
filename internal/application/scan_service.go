package application

import (
	"context"
	"encoding/base64"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wms-platform/scan-service/internal/domain"
	"github.com/wms-platform/scan-service/internal/qr"
	"github.com/wms-platform/scan-service/internal/scanner"
	"github.com/wms-platform/scan-service/pkg/errors"
	"github.com/wms-platform/scan-service/pkg/logging"
	"github.com/wms-platform/scan-service/pkg/metrics"
)

// ScanService owns the per-device scan sessions and orchestrates the
// decode, validate and mode workflows around them.
type ScanService struct {
	sessions  domain.SessionRepository
	publisher domain.EventPublisher
	gateway   RemoteGateway
	validator *RecordValidator
	registry  *Registry
	bus       *scanner.Bus
	logger    *logging.Logger
	metrics   *metrics.Metrics

	mu       sync.Mutex
	scanners map[string]*scanner.Scanner
}

func NewScanService(
	sessions domain.SessionRepository,
	publisher domain.EventPublisher,
	gateway RemoteGateway,
	validator *RecordValidator,
	registry *Registry,
	bus *scanner.Bus,
	logger *logging.Logger,
	m *metrics.Metrics,
) *ScanService {
	return &ScanService{
		sessions:  sessions,
		publisher: publisher,
		gateway:   gateway,
		validator: validator,
		registry:  registry,
		bus:       bus,
		logger:    logger.WithComponent("scan_service"),
		metrics:   m,
		scanners:  make(map[string]*scanner.Scanner),
	}
}

// CreateSession opens a session for a device. An existing session for the
// same device is returned instead of creating a second one.
func (s *ScanService) CreateSession(ctx context.Context, deviceID string) (*domain.ScanSession, error) {
	existing, err := s.sessions.FindActiveByDeviceID(ctx, deviceID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	session, err := domain.NewScanSession(uuid.New().String(), deviceID)
	if err != nil {
		return nil, errors.ErrBadRequest(err.Error())
	}

	if err := s.persist(ctx, session); err != nil {
		return nil, err
	}
	s.updateSessionsGauge(ctx)

	s.logger.WithContext(ctx).WithSessionID(session.SessionID).Info("session created", "deviceId", deviceID)
	return session, nil
}

// GetSession returns the session snapshot
func (s *ScanService) GetSession(ctx context.Context, sessionID string) (*domain.ScanSession, error) {
	return s.load(ctx, sessionID)
}

// DeleteSession closes a session and its scanner
func (s *ScanService) DeleteSession(ctx context.Context, sessionID string) error {
	s.stopScanner(sessionID)
	s.bus.Drop(sessionID)
	if err := s.sessions.Delete(ctx, sessionID); err != nil {
		return err
	}
	s.updateSessionsGauge(ctx)
	return nil
}

// SelectMode activates a scan mode, dropping any previous workflow state
func (s *ScanService) SelectMode(ctx context.Context, sessionID, mode string) (*domain.ScanSession, error) {
	session, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	parsed, err := domain.ParseScanMode(mode)
	if err != nil {
		return nil, errors.ErrValidation(err.Error())
	}

	s.stopScanner(sessionID)
	if err := session.SelectMode(parsed); err != nil {
		return nil, errors.ErrValidation(err.Error())
	}
	if err := s.persist(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// ArmScanner starts the session's frame subscription. The client calls
// this once its capture device is ready; payloads pushed afterwards are
// handled asynchronously.
func (s *ScanService) ArmScanner(ctx context.Context, sessionID string) (*domain.ScanSession, error) {
	session, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := session.StartScanning(); err != nil {
		return nil, errors.ErrValidation(err.Error())
	}

	source := s.bus.SourceFor(sessionID)
	sc := s.scannerFor(sessionID)

	// The subscription outlives the arming request.
	if err := sc.Start(context.Background(), source, func(payload string) {
		if _, err := s.HandleScan(context.Background(), sessionID, payload); err != nil {
			s.logger.WithSessionID(sessionID).WithError(err).Warn("scan rejected")
		}
	}); err != nil {
		return nil, err
	}

	if err := s.persist(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// StopScanner stops the frame subscription; safe when never armed
func (s *ScanService) StopScanner(ctx context.Context, sessionID string) (*domain.ScanSession, error) {
	session, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	s.stopScanner(sessionID)
	session.StopScanning()
	if err := s.persist(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// IngestFrame feeds a payload to an armed scanner. Returns false when the
// session has no active subscription.
func (s *ScanService) IngestFrame(sessionID, payload string) bool {
	s.mu.Lock()
	sc, ok := s.scanners[sessionID]
	s.mu.Unlock()
	if !ok || !sc.Running() {
		return false
	}
	return s.bus.Push(sessionID, payload) == nil
}

// HandleScan decodes a raw payload, validates the record for the active
// mode and advances the session. Failures stop scanning and stick to the
// session until the next successful scan or reset.
func (s *ScanService) HandleScan(ctx context.Context, sessionID, raw string) (*domain.ScanSession, error) {
	session, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Mode == "" {
		return nil, errors.ErrValidation(domain.ErrNoMode.Error())
	}

	result := qr.Decode(raw)
	record, err := s.validator.ValidateRecord(ctx, session.Mode, result)
	if err != nil {
		s.metrics.RecordScan(string(session.Mode), "rejected")
		session.RecordScanError(err.Error())
		s.stopScanner(sessionID)
		if persistErr := s.persist(ctx, session); persistErr != nil {
			return nil, persistErr
		}
		return session, err
	}

	handler, err := s.registry.Get(session.Mode)
	if err != nil {
		return nil, err
	}
	if err := handler.Load(ctx, session, record); err != nil {
		s.metrics.RecordScan(string(session.Mode), "rejected")
		return nil, errors.MapDomainError(err)
	}

	s.stopScanner(sessionID)
	if err := s.persist(ctx, session); err != nil {
		return nil, err
	}

	s.metrics.RecordScan(string(session.Mode), "accepted")
	s.logger.WithContext(ctx).WithSessionID(sessionID).Info("record scanned",
		"mode", session.Mode,
		"recordId", session.RecordID,
		"recordName", session.RecordName,
	)
	return session, nil
}

// Reset returns the session to mode selection in one step
func (s *ScanService) Reset(ctx context.Context, sessionID string) (*domain.ScanSession, error) {
	session, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	s.stopScanner(sessionID)
	session.Reset()
	if err := s.persist(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// AttachImage normalizes a base64 image payload and attaches it
func (s *ScanService) AttachImage(ctx context.Context, sessionID, data string) (*domain.ScanSession, error) {
	session, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	payload := stripDataURL(data)
	decoded, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, errors.ErrBadRequest("image payload is not valid base64")
	}

	img := domain.CapturedImage{
		ID:         uuid.New().String(),
		Data:       payload,
		SizeBytes:  len(decoded),
		CapturedAt: time.Now(),
	}
	if err := session.AddImage(img); err != nil {
		return nil, errors.MapDomainError(err)
	}
	if err := s.persist(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// SetLine updates a move line's confirmed quantity and note
func (s *ScanService) SetLine(ctx context.Context, sessionID string, lineID int64, confirmed float64, note string) (*domain.ScanSession, error) {
	session, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := session.SetLineConfirmed(lineID, confirmed, note); err != nil {
		return nil, errors.MapDomainError(err)
	}
	if err := s.persist(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// QuantityCheck flags lines that exceed the demand or the live stock
func (s *ScanService) QuantityCheck(ctx context.Context, sessionID string) (*domain.ScanSession, bool, error) {
	session, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, false, err
	}
	if session.RecordID == 0 {
		return nil, false, errors.ErrValidation(domain.ErrNoRecord.Error())
	}

	available, err := liveStock(ctx, s.gateway, session)
	if err != nil {
		return nil, false, err
	}
	valid := session.CheckQuantities(available)
	if err := s.persist(ctx, session); err != nil {
		return nil, false, err
	}
	return session, valid, nil
}

// SetShipping stores the shipping sub-flow details
func (s *ScanService) SetShipping(ctx context.Context, sessionID, shippingType, phone, company string) (*domain.ScanSession, error) {
	session, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := session.SetShipping(domain.ShippingType(shippingType), phone, company); err != nil {
		return nil, errors.MapDomainError(err)
	}
	if err := s.persist(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// SetNote stores the free-form scan note
func (s *ScanService) SetNote(ctx context.Context, sessionID, note string) (*domain.ScanSession, error) {
	session, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	session.SetNote(note)
	if err := s.persist(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// SearchProducts looks up catalog products for the add-product flow
func (s *ScanService) SearchProducts(ctx context.Context, sessionID, query string, limit int) ([]domain.ProductHit, error) {
	if _, err := s.load(ctx, sessionID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 20
	}
	return s.gateway.SearchProducts(ctx, query, limit)
}

// AddInventoryProduct adds a catalog product to the running count. The
// product is resolved through the ERP catalog; a duplicate leaves the
// count untouched.
func (s *ScanService) AddInventoryProduct(ctx context.Context, sessionID string, productID int64, query string, counted float64) (*domain.ScanSession, error) {
	session, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Mode != domain.ModeLocation || session.RecordID == 0 {
		return nil, errors.ErrValidation("no location count in progress")
	}

	hits, err := s.gateway.SearchProducts(ctx, query, 20)
	if err != nil {
		return nil, err
	}
	var hit *domain.ProductHit
	for i := range hits {
		if hits[i].ID == productID {
			hit = &hits[i]
			break
		}
	}
	if hit == nil && productID == 0 && len(hits) == 1 {
		hit = &hits[0]
	}
	if hit == nil {
		return nil, errors.ErrNotFound("product")
	}

	if err := session.AddProduct(*hit, counted); err != nil {
		return nil, errors.MapDomainError(err)
	}
	if err := s.persist(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// UpdateInventoryProduct sets the counted quantity of a product in the count
func (s *ScanService) UpdateInventoryProduct(ctx context.Context, sessionID string, productID int64, counted float64) (*domain.ScanSession, error) {
	session, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := session.UpdateCount(productID, counted); err != nil {
		return nil, errors.MapDomainError(err)
	}
	if err := s.persist(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// RemoveInventoryProduct removes a product from the count. The upstream
// removal runs first so a reserved product is rejected before the session
// changes.
func (s *ScanService) RemoveInventoryProduct(ctx context.Context, sessionID string, productID int64) (*domain.ScanSession, error) {
	session, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Mode != domain.ModeLocation || session.RecordID == 0 {
		return nil, errors.ErrValidation("no location count in progress")
	}

	if err := s.gateway.RemoveProduct(ctx, session.RecordID, productID); err != nil {
		return nil, err
	}
	if err := session.RemoveProduct(productID); err != nil {
		return nil, errors.MapDomainError(err)
	}
	if err := s.persist(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// ProductOtherLocations reports where else a counted product is stocked
func (s *ScanService) ProductOtherLocations(ctx context.Context, sessionID string, productID int64) ([]domain.ProductLocation, error) {
	session, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.RecordID == 0 {
		return nil, errors.ErrValidation(domain.ErrNoRecord.Error())
	}
	return s.gateway.ProductOtherLocations(ctx, productID, session.RecordID)
}

// Confirm runs the active mode's save workflow
func (s *ScanService) Confirm(ctx context.Context, sessionID string) (*ConfirmResult, error) {
	session, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Mode == "" {
		return nil, errors.ErrValidation(domain.ErrNoMode.Error())
	}

	handler, err := s.registry.Get(session.Mode)
	if err != nil {
		return nil, errors.ErrValidation(err.Error())
	}

	mode := string(session.Mode)
	result, err := handler.Confirm(ctx, session)
	if err != nil {
		s.metrics.RecordWorkflowConfirmed(mode, "failed")
		return nil, errors.MapDomainError(err)
	}

	s.stopScanner(sessionID)
	if err := s.persist(ctx, session); err != nil {
		return nil, err
	}

	status := "completed"
	if result.LineErrors > 0 {
		status = "completed_with_errors"
		s.metrics.RecordInventoryLineErrors(result.LineErrors)
	}
	s.metrics.RecordWorkflowConfirmed(mode, status)
	s.logger.WithContext(ctx).WithSessionID(sessionID).Info("workflow confirmed",
		"mode", mode,
		"finalized", result.Finalized,
		"lineErrors", result.LineErrors,
	)
	return result, nil
}

func (s *ScanService) load(ctx context.Context, sessionID string) (*domain.ScanSession, error) {
	session, err := s.sessions.FindBySessionID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, errors.ErrNotFoundWithID("session", sessionID)
	}
	return session, nil
}

// persist saves the session and publishes its pending domain events. A
// publish failure is logged, not surfaced; the stored session is the
// source of truth.
func (s *ScanService) persist(ctx context.Context, session *domain.ScanSession) error {
	if err := s.sessions.Save(ctx, session); err != nil {
		return err
	}

	events := session.GetDomainEvents()
	if len(events) > 0 {
		if err := s.publisher.PublishAll(ctx, events); err != nil {
			s.logger.WithContext(ctx).WithSessionID(session.SessionID).WithError(err).Warn("event publish failed")
		}
		session.ClearDomainEvents()
	}
	return nil
}

func (s *ScanService) scannerFor(sessionID string) *scanner.Scanner {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sc, ok := s.scanners[sessionID]; ok {
		return sc
	}
	sc := scanner.New(s.logger)
	s.scanners[sessionID] = sc
	return sc
}

// stopScanner cancels without waiting; HandleScan may be running inside
// the subscription's own hit callback.
func (s *ScanService) stopScanner(sessionID string) {
	s.mu.Lock()
	sc, ok := s.scanners[sessionID]
	s.mu.Unlock()
	if ok {
		sc.Cancel()
	}
}

func (s *ScanService) updateSessionsGauge(ctx context.Context) {
	count, err := s.sessions.Count(ctx)
	if err != nil {
		return
	}
	s.metrics.SetSessionsActive(int(count))
}

// stripDataURL drops a "data:<mime>;base64," prefix when present
func stripDataURL(data string) string {
	if strings.HasPrefix(data, "data:") {
		if idx := strings.Index(data, ","); idx >= 0 {
			return data[idx+1:]
		}
	}
	return data
}
