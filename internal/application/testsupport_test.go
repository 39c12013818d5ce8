package application

import (
	"context"
	"sync"

	"github.com/wms-platform/scan-service/internal/domain"
	"github.com/wms-platform/scan-service/internal/infrastructure/erp"
	"github.com/wms-platform/scan-service/internal/scanner"
	"github.com/wms-platform/scan-service/pkg/errors"
	"github.com/wms-platform/scan-service/pkg/logging"
	"github.com/wms-platform/scan-service/pkg/metrics"
)

// fakeGateway lets each test override just the calls it cares about
type fakeGateway struct {
	findPicking           func(ctx context.Context, id int64) (*domain.Picking, error)
	findLocation          func(ctx context.Context, id int64) (*domain.Location, error)
	readMoveLines         func(ctx context.Context, pickingID int64) ([]domain.MoveLine, error)
	availableQuantity     func(ctx context.Context, productID int64) (float64, error)
	updateScanInfo        func(ctx context.Context, pickingID int64, req *erp.UpdateScanInfoRequest) error
	finalizeRecord        func(ctx context.Context, pickingID int64) error
	locationProducts      func(ctx context.Context, locationID int64) ([]domain.InventoryQuant, error)
	searchProducts        func(ctx context.Context, term string, limit int) ([]domain.ProductHit, error)
	addProduct            func(ctx context.Context, locationID, productID int64, counted float64) error
	updateInventoryCount  func(ctx context.Context, locationID, productID int64, counted float64) error
	removeProduct         func(ctx context.Context, locationID, productID int64) error
	productOtherLocations func(ctx context.Context, productID, excludeLocationID int64) ([]domain.ProductLocation, error)
	saveInventoryScan     func(ctx context.Context, req *erp.InventoryScanRequest) ([]erp.InventoryLineResult, error)
	createScanHistory     func(ctx context.Context, history *domain.ScanHistory) error
}

func (g *fakeGateway) FindPicking(ctx context.Context, id int64) (*domain.Picking, error) {
	if g.findPicking == nil {
		return nil, errors.ErrNotFound("record")
	}
	return g.findPicking(ctx, id)
}

func (g *fakeGateway) FindLocation(ctx context.Context, id int64) (*domain.Location, error) {
	if g.findLocation == nil {
		return nil, errors.ErrNotFound("record")
	}
	return g.findLocation(ctx, id)
}

func (g *fakeGateway) ReadMoveLines(ctx context.Context, pickingID int64) ([]domain.MoveLine, error) {
	if g.readMoveLines == nil {
		return nil, nil
	}
	return g.readMoveLines(ctx, pickingID)
}

func (g *fakeGateway) AvailableQuantity(ctx context.Context, productID int64) (float64, error) {
	if g.availableQuantity == nil {
		return 1000, nil
	}
	return g.availableQuantity(ctx, productID)
}

func (g *fakeGateway) UpdateScanInfo(ctx context.Context, pickingID int64, req *erp.UpdateScanInfoRequest) error {
	if g.updateScanInfo == nil {
		return nil
	}
	return g.updateScanInfo(ctx, pickingID, req)
}

func (g *fakeGateway) FinalizeRecord(ctx context.Context, pickingID int64) error {
	if g.finalizeRecord == nil {
		return nil
	}
	return g.finalizeRecord(ctx, pickingID)
}

func (g *fakeGateway) LocationProducts(ctx context.Context, locationID int64) ([]domain.InventoryQuant, error) {
	if g.locationProducts == nil {
		return nil, nil
	}
	return g.locationProducts(ctx, locationID)
}

func (g *fakeGateway) SearchProducts(ctx context.Context, term string, limit int) ([]domain.ProductHit, error) {
	if g.searchProducts == nil {
		return nil, nil
	}
	return g.searchProducts(ctx, term, limit)
}

func (g *fakeGateway) AddProductToInventory(ctx context.Context, locationID, productID int64, counted float64) error {
	if g.addProduct == nil {
		return nil
	}
	return g.addProduct(ctx, locationID, productID, counted)
}

func (g *fakeGateway) UpdateInventoryCount(ctx context.Context, locationID, productID int64, counted float64) error {
	if g.updateInventoryCount == nil {
		return nil
	}
	return g.updateInventoryCount(ctx, locationID, productID, counted)
}

func (g *fakeGateway) RemoveProduct(ctx context.Context, locationID, productID int64) error {
	if g.removeProduct == nil {
		return nil
	}
	return g.removeProduct(ctx, locationID, productID)
}

func (g *fakeGateway) ProductOtherLocations(ctx context.Context, productID, excludeLocationID int64) ([]domain.ProductLocation, error) {
	if g.productOtherLocations == nil {
		return nil, nil
	}
	return g.productOtherLocations(ctx, productID, excludeLocationID)
}

func (g *fakeGateway) SaveInventoryScan(ctx context.Context, req *erp.InventoryScanRequest) ([]erp.InventoryLineResult, error) {
	if g.saveInventoryScan == nil {
		return nil, nil
	}
	return g.saveInventoryScan(ctx, req)
}

func (g *fakeGateway) CreateScanHistory(ctx context.Context, history *domain.ScanHistory) error {
	if g.createScanHistory == nil {
		return nil
	}
	return g.createScanHistory(ctx, history)
}

// memorySessionRepo is a map-backed SessionRepository
type memorySessionRepo struct {
	mu       sync.Mutex
	sessions map[string]*domain.ScanSession
}

func newMemorySessionRepo() *memorySessionRepo {
	return &memorySessionRepo{sessions: make(map[string]*domain.ScanSession)}
}

func (r *memorySessionRepo) Save(ctx context.Context, session *domain.ScanSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[session.SessionID] = session
	return nil
}

func (r *memorySessionRepo) FindBySessionID(ctx context.Context, sessionID string) (*domain.ScanSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sessions[sessionID], nil
}

func (r *memorySessionRepo) FindActiveByDeviceID(ctx context.Context, deviceID string) (*domain.ScanSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.sessions {
		if s.DeviceID == deviceID {
			return s, nil
		}
	}
	return nil, nil
}

func (r *memorySessionRepo) Delete(ctx context.Context, sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, sessionID)
	return nil
}

func (r *memorySessionRepo) Count(ctx context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.sessions)), nil
}

// memoryHistoryRepo collects saved histories
type memoryHistoryRepo struct {
	mu        sync.Mutex
	histories []*domain.ScanHistory
	saveErr   error
}

func (r *memoryHistoryRepo) Save(ctx context.Context, history *domain.ScanHistory) error {
	if r.saveErr != nil {
		return r.saveErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.histories = append(r.histories, history)
	return nil
}

func (r *memoryHistoryRepo) FindByLocationID(ctx context.Context, locationID int64, limit int) ([]*domain.ScanHistory, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.ScanHistory
	for _, h := range r.histories {
		if h.LocationID == locationID {
			out = append(out, h)
		}
	}
	return out, nil
}

// recordingPublisher collects published domain events
type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.DomainEvent
}

func (p *recordingPublisher) Publish(ctx context.Context, event domain.DomainEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) PublishAll(ctx context.Context, events []domain.DomainEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, events...)
	return nil
}

func (p *recordingPublisher) eventTypes() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	types := make([]string, 0, len(p.events))
	for _, e := range p.events {
		types = append(types, e.EventType())
	}
	return types
}

type fixture struct {
	service   *ScanService
	sessions  *memorySessionRepo
	histories *memoryHistoryRepo
	publisher *recordingPublisher
	gateway   *fakeGateway
}

func newFixture(gateway *fakeGateway) *fixture {
	if gateway == nil {
		gateway = &fakeGateway{}
	}
	logger := logging.New(&logging.Config{Level: logging.LevelError, ServiceName: "scan-service-test"})
	m := metrics.New(metrics.DefaultConfig("scan-service-test"))

	sessions := newMemorySessionRepo()
	histories := &memoryHistoryRepo{}
	publisher := &recordingPublisher{}

	registry := NewRegistry(
		NewPrepareHandler(gateway, logger),
		NewCheckingHandler(gateway, logger),
		NewShippingHandler(gateway, logger),
		NewReceiveHandler(gateway, logger),
		NewLocationHandler(gateway, histories, logger),
	)

	service := NewScanService(
		sessions,
		publisher,
		gateway,
		NewRecordValidator(gateway, nil),
		registry,
		scanner.NewBus(),
		logger,
		m,
	)

	return &fixture{
		service:   service,
		sessions:  sessions,
		histories: histories,
		publisher: publisher,
		gateway:   gateway,
	}
}
