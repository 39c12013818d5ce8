package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wms-platform/scan-service/internal/application"
	"github.com/wms-platform/scan-service/internal/domain"
	"github.com/wms-platform/scan-service/internal/infrastructure/erp"
	"github.com/wms-platform/scan-service/internal/scanner"
	apperrors "github.com/wms-platform/scan-service/pkg/errors"
	"github.com/wms-platform/scan-service/pkg/logging"
	"github.com/wms-platform/scan-service/pkg/metrics"
	"github.com/wms-platform/scan-service/pkg/middleware"
)

type fakeGateway struct {
	findPickingFn    func(context.Context, int64) (*domain.Picking, error)
	findLocationFn   func(context.Context, int64) (*domain.Location, error)
	readMoveLinesFn  func(context.Context, int64) ([]domain.MoveLine, error)
	availableFn      func(context.Context, int64) (float64, error)
	updateScanInfoFn func(context.Context, int64, *erp.UpdateScanInfoRequest) error
	finalizeFn       func(context.Context, int64) error
	locationProdsFn  func(context.Context, int64) ([]domain.InventoryQuant, error)
	searchFn         func(context.Context, string, int) ([]domain.ProductHit, error)
	removeFn         func(context.Context, int64, int64) error
}

func (f *fakeGateway) FindPicking(ctx context.Context, id int64) (*domain.Picking, error) {
	if f.findPickingFn != nil {
		return f.findPickingFn(ctx, id)
	}
	return nil, apperrors.ErrNotFound("record")
}

func (f *fakeGateway) FindLocation(ctx context.Context, id int64) (*domain.Location, error) {
	if f.findLocationFn != nil {
		return f.findLocationFn(ctx, id)
	}
	return nil, apperrors.ErrNotFound("record")
}

func (f *fakeGateway) ReadMoveLines(ctx context.Context, pickingID int64) ([]domain.MoveLine, error) {
	if f.readMoveLinesFn != nil {
		return f.readMoveLinesFn(ctx, pickingID)
	}
	return nil, nil
}

func (f *fakeGateway) AvailableQuantity(ctx context.Context, productID int64) (float64, error) {
	if f.availableFn != nil {
		return f.availableFn(ctx, productID)
	}
	return 1000, nil
}

func (f *fakeGateway) UpdateScanInfo(ctx context.Context, pickingID int64, req *erp.UpdateScanInfoRequest) error {
	if f.updateScanInfoFn != nil {
		return f.updateScanInfoFn(ctx, pickingID, req)
	}
	return nil
}

func (f *fakeGateway) FinalizeRecord(ctx context.Context, pickingID int64) error {
	if f.finalizeFn != nil {
		return f.finalizeFn(ctx, pickingID)
	}
	return nil
}

func (f *fakeGateway) LocationProducts(ctx context.Context, locationID int64) ([]domain.InventoryQuant, error) {
	if f.locationProdsFn != nil {
		return f.locationProdsFn(ctx, locationID)
	}
	return nil, nil
}

func (f *fakeGateway) SearchProducts(ctx context.Context, term string, limit int) ([]domain.ProductHit, error) {
	if f.searchFn != nil {
		return f.searchFn(ctx, term, limit)
	}
	return nil, nil
}

func (f *fakeGateway) AddProductToInventory(ctx context.Context, locationID, productID int64, counted float64) error {
	return nil
}

func (f *fakeGateway) UpdateInventoryCount(ctx context.Context, locationID, productID int64, counted float64) error {
	return nil
}

func (f *fakeGateway) RemoveProduct(ctx context.Context, locationID, productID int64) error {
	if f.removeFn != nil {
		return f.removeFn(ctx, locationID, productID)
	}
	return nil
}

func (f *fakeGateway) ProductOtherLocations(ctx context.Context, productID, excludeLocationID int64) ([]domain.ProductLocation, error) {
	return nil, nil
}

func (f *fakeGateway) SaveInventoryScan(ctx context.Context, req *erp.InventoryScanRequest) ([]erp.InventoryLineResult, error) {
	return nil, nil
}

func (f *fakeGateway) CreateScanHistory(ctx context.Context, history *domain.ScanHistory) error {
	return nil
}

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
	copied := *session
	r.sessions[session.SessionID] = &copied
	return nil
}

func (r *memorySessionRepo) FindBySessionID(ctx context.Context, sessionID string) (*domain.ScanSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	session, ok := r.sessions[sessionID]
	if !ok {
		return nil, nil
	}
	copied := *session
	return &copied, nil
}

func (r *memorySessionRepo) FindActiveByDeviceID(ctx context.Context, deviceID string) (*domain.ScanSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, session := range r.sessions {
		if session.DeviceID == deviceID {
			copied := *session
			return &copied, nil
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

type memoryHistoryRepo struct{}

func (r *memoryHistoryRepo) Save(ctx context.Context, history *domain.ScanHistory) error {
	return nil
}

func (r *memoryHistoryRepo) FindByLocationID(ctx context.Context, locationID int64, limit int) ([]*domain.ScanHistory, error) {
	return nil, nil
}

type noopPublisher struct{}

func (p *noopPublisher) Publish(ctx context.Context, event domain.DomainEvent) error {
	return nil
}

func (p *noopPublisher) PublishAll(ctx context.Context, events []domain.DomainEvent) error {
	return nil
}

func testLogger() *logging.Logger {
	cfg := logging.DefaultConfig("scan-handler-test")
	cfg.Output = io.Discard
	return logging.New(cfg)
}

func newRouter(gateway *fakeGateway) *gin.Engine {
	gin.SetMode(gin.TestMode)
	middleware.InitValidator()

	logger := testLogger()
	m := metrics.New(metrics.DefaultConfig("scan-handler-test"))
	registry := application.NewRegistry(
		application.NewPrepareHandler(gateway, logger),
		application.NewShippingHandler(gateway, logger),
		application.NewReceiveHandler(gateway, logger),
		application.NewCheckingHandler(gateway, logger),
		application.NewLocationHandler(gateway, &memoryHistoryRepo{}, logger),
	)
	service := application.NewScanService(
		newMemorySessionRepo(),
		&noopPublisher{},
		gateway,
		application.NewRecordValidator(gateway, nil),
		registry,
		scanner.NewBus(),
		logger,
		m,
	)

	router := gin.New()
	handler := NewScanHandler(service, logger)
	handler.RegisterRoutes(router.Group("/api/v1"))
	return router
}

func makeRequest(router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}

	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var envelope struct {
		Data map[string]interface{} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	return envelope.Data
}

func createSession(t *testing.T, router *gin.Engine) string {
	t.Helper()
	rec := makeRequest(router, http.MethodPost, "/api/v1/sessions", map[string]interface{}{
		"deviceId": "HANDHELD-01",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	data := decodeData(t, rec)
	sessionID, _ := data["sessionId"].(string)
	require.NotEmpty(t, sessionID)
	return sessionID
}

func TestCreateSessionValidation(t *testing.T) {
	router := newRouter(&fakeGateway{})

	rec := makeRequest(router, http.MethodPost, "/api/v1/sessions", map[string]interface{}{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = makeRequest(router, http.MethodPost, "/api/v1/sessions", map[string]interface{}{
		"deviceId": "HANDHELD-01",
	})
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestGetSessionNotFound(t *testing.T) {
	router := newRouter(&fakeGateway{})

	rec := makeRequest(router, http.MethodGet, "/api/v1/sessions/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSelectModeRejectsUnknownMode(t *testing.T) {
	router := newRouter(&fakeGateway{})
	sessionID := createSession(t, router)

	rec := makeRequest(router, http.MethodPost, "/api/v1/sessions/"+sessionID+"/mode", map[string]interface{}{
		"mode": "teleport",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = makeRequest(router, http.MethodPost, "/api/v1/sessions/"+sessionID+"/mode", map[string]interface{}{
		"mode": "prepare",
	})
	assert.Equal(t, http.StatusOK, rec.Code)
	data := decodeData(t, rec)
	assert.Equal(t, "prepare", data["mode"])
	assert.Equal(t, "scanning", data["phase"])
}

func TestScanFlowLoadsPicking(t *testing.T) {
	gateway := &fakeGateway{
		findPickingFn: func(_ context.Context, id int64) (*domain.Picking, error) {
			return &domain.Picking{
				ID:        id,
				Name:      "WH/OUT/00042",
				State:     domain.RecordStateAssigned,
				Category:  domain.CategoryOutgoing,
				MoveCount: 1,
			}, nil
		},
		readMoveLinesFn: func(_ context.Context, _ int64) ([]domain.MoveLine, error) {
			return []domain.MoveLine{{ID: 10, ProductID: 100, Demand: 5, Confirmed: 5}}, nil
		},
	}
	router := newRouter(gateway)
	sessionID := createSession(t, router)

	rec := makeRequest(router, http.MethodPost, "/api/v1/sessions/"+sessionID+"/mode", map[string]interface{}{
		"mode": "prepare",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = makeRequest(router, http.MethodPost, "/api/v1/sessions/"+sessionID+"/scan", map[string]interface{}{
		"payload": "42.1",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	data := decodeData(t, rec)
	assert.Equal(t, float64(42), data["recordId"])
	assert.Equal(t, "WH/OUT/00042", data["recordName"])
	assert.Equal(t, "capture", data["phase"])
}

func TestScanRejectedRecordReturnsError(t *testing.T) {
	gateway := &fakeGateway{
		findPickingFn: func(_ context.Context, id int64) (*domain.Picking, error) {
			return &domain.Picking{ID: id, State: domain.RecordStateDone, Category: domain.CategoryOutgoing}, nil
		},
	}
	router := newRouter(gateway)
	sessionID := createSession(t, router)

	rec := makeRequest(router, http.MethodPost, "/api/v1/sessions/"+sessionID+"/mode", map[string]interface{}{
		"mode": "prepare",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = makeRequest(router, http.MethodPost, "/api/v1/sessions/"+sessionID+"/scan", map[string]interface{}{
		"payload": "42.1",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = makeRequest(router, http.MethodGet, "/api/v1/sessions/"+sessionID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	data := decodeData(t, rec)
	assert.Contains(t, data["lastError"], "already")
}

func TestScanRequiresPayload(t *testing.T) {
	router := newRouter(&fakeGateway{})
	sessionID := createSession(t, router)

	rec := makeRequest(router, http.MethodPost, "/api/v1/sessions/"+sessionID+"/scan", map[string]interface{}{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSetLineRejectsBadLineID(t *testing.T) {
	router := newRouter(&fakeGateway{})
	sessionID := createSession(t, router)

	rec := makeRequest(router, http.MethodPut, "/api/v1/sessions/"+sessionID+"/lines/abc", map[string]interface{}{
		"confirmed": 3,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestShippingTypeValidated(t *testing.T) {
	router := newRouter(&fakeGateway{})
	sessionID := createSession(t, router)

	rec := makeRequest(router, http.MethodPost, "/api/v1/sessions/"+sessionID+"/shipping", map[string]interface{}{
		"shippingType": "drone",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSearchRequiresQuery(t *testing.T) {
	router := newRouter(&fakeGateway{})
	sessionID := createSession(t, router)

	rec := makeRequest(router, http.MethodGet, "/api/v1/sessions/"+sessionID+"/inventory/search", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAddProductRequiresPositiveCount(t *testing.T) {
	router := newRouter(&fakeGateway{})
	sessionID := createSession(t, router)

	rec := makeRequest(router, http.MethodPost, "/api/v1/sessions/"+sessionID+"/inventory/products", map[string]interface{}{
		"query":   "sprocket",
		"counted": 0,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestConfirmWithoutRecord(t *testing.T) {
	router := newRouter(&fakeGateway{})
	sessionID := createSession(t, router)

	rec := makeRequest(router, http.MethodPost, "/api/v1/sessions/"+sessionID+"/mode", map[string]interface{}{
		"mode": "receive",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = makeRequest(router, http.MethodPost, "/api/v1/sessions/"+sessionID+"/confirm", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeleteSession(t *testing.T) {
	router := newRouter(&fakeGateway{})
	sessionID := createSession(t, router)

	rec := makeRequest(router, http.MethodDelete, "/api/v1/sessions/"+sessionID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = makeRequest(router, http.MethodGet, "/api/v1/sessions/"+sessionID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestEncodeQR(t *testing.T) {
	router := newRouter(&fakeGateway{})

	rec := makeRequest(router, http.MethodPost, "/api/v1/qr/encode", map[string]interface{}{
		"model": "picking",
		"id":    42,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	data := decodeData(t, rec)
	assert.Equal(t, "42.1", data["payload"])
	assert.NotEmpty(t, data["image"])

	rec = makeRequest(router, http.MethodPost, "/api/v1/qr/encode", map[string]interface{}{
		"model": "carton",
		"id":    42,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
