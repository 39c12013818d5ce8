package handlers

import (
	"encoding/base64"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/wms-platform/scan-service/internal/application"
	"github.com/wms-platform/scan-service/internal/qr"
	"github.com/wms-platform/scan-service/pkg/logging"
	"github.com/wms-platform/scan-service/pkg/middleware"
)

// ScanHandler handles HTTP requests for scan sessions
type ScanHandler struct {
	service *application.ScanService
	logger  *logging.Logger
}

// NewScanHandler creates a new ScanHandler
func NewScanHandler(service *application.ScanService, logger *logging.Logger) *ScanHandler {
	return &ScanHandler{
		service: service,
		logger:  logger,
	}
}

// RegisterRoutes mounts the scan API under the given group
func (h *ScanHandler) RegisterRoutes(api *gin.RouterGroup) {
	sessions := api.Group("/sessions")
	{
		sessions.POST("", h.CreateSession)
		sessions.GET("/:sessionId", h.GetSession)
		sessions.DELETE("/:sessionId", h.DeleteSession)
		sessions.POST("/:sessionId/mode", h.SelectMode)
		sessions.POST("/:sessionId/scanner/arm", h.ArmScanner)
		sessions.POST("/:sessionId/scanner/stop", h.StopScanner)
		sessions.POST("/:sessionId/scan", h.Scan)
		sessions.POST("/:sessionId/reset", h.Reset)
		sessions.POST("/:sessionId/images", h.AttachImage)
		sessions.PUT("/:sessionId/lines/:lineId", h.SetLine)
		sessions.POST("/:sessionId/quantity-check", h.QuantityCheck)
		sessions.POST("/:sessionId/shipping", h.SetShipping)
		sessions.POST("/:sessionId/note", h.SetNote)
		sessions.GET("/:sessionId/inventory/search", h.SearchProducts)
		sessions.POST("/:sessionId/inventory/products", h.AddProduct)
		sessions.PUT("/:sessionId/inventory/products/:productId", h.UpdateCount)
		sessions.DELETE("/:sessionId/inventory/products/:productId", h.RemoveProduct)
		sessions.GET("/:sessionId/inventory/products/:productId/locations", h.ProductOtherLocations)
		sessions.POST("/:sessionId/confirm", h.Confirm)
	}
	api.POST("/qr/encode", h.EncodeQR)
}

// CreateSessionRequest opens a session for a handheld device
type CreateSessionRequest struct {
	DeviceID string `json:"deviceId" binding:"required,safe_string"`
}

// SelectModeRequest activates a scan mode
type SelectModeRequest struct {
	Mode string `json:"mode" binding:"required,scan_mode"`
}

// ScanRequest submits a raw QR payload
type ScanRequest struct {
	Payload string `json:"payload" binding:"required"`
}

// AttachImageRequest attaches a captured image (base64, data-URL allowed)
type AttachImageRequest struct {
	Data string `json:"data" binding:"required"`
}

// SetLineRequest updates a move line confirmation
type SetLineRequest struct {
	Confirmed *float64 `json:"confirmed" binding:"required,gte=0"`
	Note      string   `json:"note"`
}

// SetShippingRequest stores the shipping sub-flow details
type SetShippingRequest struct {
	ShippingType string `json:"shippingType" binding:"required,shipping_type"`
	Phone        string `json:"phone"`
	Company      string `json:"company"`
}

// SetNoteRequest stores the free-form scan note
type SetNoteRequest struct {
	Note string `json:"note" binding:"required"`
}

// AddProductRequest adds a catalog product to a running count
type AddProductRequest struct {
	ProductID int64   `json:"productId"`
	Query     string  `json:"query" binding:"required"`
	Counted   float64 `json:"counted" binding:"required,gt=0"`
}

// UpdateCountRequest sets a counted quantity
type UpdateCountRequest struct {
	Counted *float64 `json:"counted" binding:"required,gte=0"`
}

// EncodeQRRequest generates a QR payload and PNG for a record
type EncodeQRRequest struct {
	Model string `json:"model" binding:"required,oneof=picking location"`
	ID    int64  `json:"id" binding:"required,gt=0"`
	Size  int    `json:"size" binding:"gte=0,lte=1024"`
}

// CreateSession handles POST /api/v1/sessions
func (h *ScanHandler) CreateSession(c *gin.Context) {
	responder := middleware.NewErrorResponder(c, h.logger)

	var req CreateSessionRequest
	if appErr := middleware.BindAndValidate(c, &req); appErr != nil {
		responder.RespondWithAppError(appErr)
		return
	}

	middleware.AddSpanAttributes(c, map[string]interface{}{
		"device.id": req.DeviceID,
	})

	session, err := h.service.CreateSession(c.Request.Context(), req.DeviceID)
	if err != nil {
		responder.RespondWithError(err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": session})
}

// GetSession handles GET /api/v1/sessions/:sessionId
func (h *ScanHandler) GetSession(c *gin.Context) {
	responder := middleware.NewErrorResponder(c, h.logger)

	session, err := h.service.GetSession(c.Request.Context(), c.Param("sessionId"))
	if err != nil {
		responder.RespondWithError(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": session})
}

// DeleteSession handles DELETE /api/v1/sessions/:sessionId
func (h *ScanHandler) DeleteSession(c *gin.Context) {
	responder := middleware.NewErrorResponder(c, h.logger)

	if err := h.service.DeleteSession(c.Request.Context(), c.Param("sessionId")); err != nil {
		responder.RespondWithError(err)
		return
	}

	c.Status(http.StatusNoContent)
}

// SelectMode handles POST /api/v1/sessions/:sessionId/mode
func (h *ScanHandler) SelectMode(c *gin.Context) {
	responder := middleware.NewErrorResponder(c, h.logger)

	var req SelectModeRequest
	if appErr := middleware.BindAndValidate(c, &req); appErr != nil {
		responder.RespondWithAppError(appErr)
		return
	}

	middleware.AddSpanAttributes(c, map[string]interface{}{
		"scan.mode": req.Mode,
	})

	session, err := h.service.SelectMode(c.Request.Context(), c.Param("sessionId"), req.Mode)
	if err != nil {
		responder.RespondWithError(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": session})
}

// ArmScanner handles POST /api/v1/sessions/:sessionId/scanner/arm
func (h *ScanHandler) ArmScanner(c *gin.Context) {
	responder := middleware.NewErrorResponder(c, h.logger)

	session, err := h.service.ArmScanner(c.Request.Context(), c.Param("sessionId"))
	if err != nil {
		responder.RespondWithError(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": session})
}

// StopScanner handles POST /api/v1/sessions/:sessionId/scanner/stop
func (h *ScanHandler) StopScanner(c *gin.Context) {
	responder := middleware.NewErrorResponder(c, h.logger)

	session, err := h.service.StopScanner(c.Request.Context(), c.Param("sessionId"))
	if err != nil {
		responder.RespondWithError(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": session})
}

// Scan handles POST /api/v1/sessions/:sessionId/scan. When the session's
// scanner is armed the payload is fed to it and handled asynchronously;
// otherwise the scan is processed in the request.
func (h *ScanHandler) Scan(c *gin.Context) {
	responder := middleware.NewErrorResponder(c, h.logger)
	sessionID := c.Param("sessionId")

	var req ScanRequest
	if appErr := middleware.BindAndValidate(c, &req); appErr != nil {
		responder.RespondWithAppError(appErr)
		return
	}

	if h.service.IngestFrame(sessionID, req.Payload) {
		c.JSON(http.StatusAccepted, gin.H{"data": gin.H{"queued": true}})
		return
	}

	session, err := h.service.HandleScan(c.Request.Context(), sessionID, req.Payload)
	if err != nil {
		responder.RespondWithError(err)
		return
	}

	middleware.AddSpanAttributes(c, map[string]interface{}{
		"scan.record_id":   session.RecordID,
		"scan.record_name": session.RecordName,
	})

	c.JSON(http.StatusOK, gin.H{"data": session})
}

// Reset handles POST /api/v1/sessions/:sessionId/reset
func (h *ScanHandler) Reset(c *gin.Context) {
	responder := middleware.NewErrorResponder(c, h.logger)

	session, err := h.service.Reset(c.Request.Context(), c.Param("sessionId"))
	if err != nil {
		responder.RespondWithError(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": session})
}

// AttachImage handles POST /api/v1/sessions/:sessionId/images
func (h *ScanHandler) AttachImage(c *gin.Context) {
	responder := middleware.NewErrorResponder(c, h.logger)

	var req AttachImageRequest
	if appErr := middleware.BindAndValidate(c, &req); appErr != nil {
		responder.RespondWithAppError(appErr)
		return
	}

	session, err := h.service.AttachImage(c.Request.Context(), c.Param("sessionId"), req.Data)
	if err != nil {
		responder.RespondWithError(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": session})
}

// SetLine handles PUT /api/v1/sessions/:sessionId/lines/:lineId
func (h *ScanHandler) SetLine(c *gin.Context) {
	responder := middleware.NewErrorResponder(c, h.logger)

	lineID, err := strconv.ParseInt(c.Param("lineId"), 10, 64)
	if err != nil {
		responder.RespondBadRequest("invalid line id")
		return
	}

	var req SetLineRequest
	if appErr := middleware.BindAndValidate(c, &req); appErr != nil {
		responder.RespondWithAppError(appErr)
		return
	}

	session, err := h.service.SetLine(c.Request.Context(), c.Param("sessionId"), lineID, *req.Confirmed, req.Note)
	if err != nil {
		responder.RespondWithError(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": session})
}

// QuantityCheck handles POST /api/v1/sessions/:sessionId/quantity-check
func (h *ScanHandler) QuantityCheck(c *gin.Context) {
	responder := middleware.NewErrorResponder(c, h.logger)

	session, valid, err := h.service.QuantityCheck(c.Request.Context(), c.Param("sessionId"))
	if err != nil {
		responder.RespondWithError(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{
		"valid": valid,
		"lines": session.MoveLines,
	}})
}

// SetShipping handles POST /api/v1/sessions/:sessionId/shipping
func (h *ScanHandler) SetShipping(c *gin.Context) {
	responder := middleware.NewErrorResponder(c, h.logger)

	var req SetShippingRequest
	if appErr := middleware.BindAndValidate(c, &req); appErr != nil {
		responder.RespondWithAppError(appErr)
		return
	}

	session, err := h.service.SetShipping(c.Request.Context(), c.Param("sessionId"), req.ShippingType, req.Phone, req.Company)
	if err != nil {
		responder.RespondWithError(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": session})
}

// SetNote handles POST /api/v1/sessions/:sessionId/note
func (h *ScanHandler) SetNote(c *gin.Context) {
	responder := middleware.NewErrorResponder(c, h.logger)

	var req SetNoteRequest
	if appErr := middleware.BindAndValidate(c, &req); appErr != nil {
		responder.RespondWithAppError(appErr)
		return
	}

	session, err := h.service.SetNote(c.Request.Context(), c.Param("sessionId"), req.Note)
	if err != nil {
		responder.RespondWithError(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": session})
}

// SearchProducts handles GET /api/v1/sessions/:sessionId/inventory/search
func (h *ScanHandler) SearchProducts(c *gin.Context) {
	responder := middleware.NewErrorResponder(c, h.logger)

	query := c.Query("query")
	if query == "" {
		responder.RespondBadRequest("query parameter is required")
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	hits, err := h.service.SearchProducts(c.Request.Context(), c.Param("sessionId"), query, limit)
	if err != nil {
		responder.RespondWithError(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": hits})
}

// AddProduct handles POST /api/v1/sessions/:sessionId/inventory/products
func (h *ScanHandler) AddProduct(c *gin.Context) {
	responder := middleware.NewErrorResponder(c, h.logger)

	var req AddProductRequest
	if appErr := middleware.BindAndValidate(c, &req); appErr != nil {
		responder.RespondWithAppError(appErr)
		return
	}

	session, err := h.service.AddInventoryProduct(c.Request.Context(), c.Param("sessionId"), req.ProductID, req.Query, req.Counted)
	if err != nil {
		responder.RespondWithError(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": session})
}

// UpdateCount handles PUT /api/v1/sessions/:sessionId/inventory/products/:productId
func (h *ScanHandler) UpdateCount(c *gin.Context) {
	responder := middleware.NewErrorResponder(c, h.logger)

	productID, err := strconv.ParseInt(c.Param("productId"), 10, 64)
	if err != nil {
		responder.RespondBadRequest("invalid product id")
		return
	}

	var req UpdateCountRequest
	if appErr := middleware.BindAndValidate(c, &req); appErr != nil {
		responder.RespondWithAppError(appErr)
		return
	}

	session, err := h.service.UpdateInventoryProduct(c.Request.Context(), c.Param("sessionId"), productID, *req.Counted)
	if err != nil {
		responder.RespondWithError(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": session})
}

// RemoveProduct handles DELETE /api/v1/sessions/:sessionId/inventory/products/:productId
func (h *ScanHandler) RemoveProduct(c *gin.Context) {
	responder := middleware.NewErrorResponder(c, h.logger)

	productID, err := strconv.ParseInt(c.Param("productId"), 10, 64)
	if err != nil {
		responder.RespondBadRequest("invalid product id")
		return
	}

	session, err := h.service.RemoveInventoryProduct(c.Request.Context(), c.Param("sessionId"), productID)
	if err != nil {
		responder.RespondWithError(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": session})
}

// ProductOtherLocations handles GET /api/v1/sessions/:sessionId/inventory/products/:productId/locations
func (h *ScanHandler) ProductOtherLocations(c *gin.Context) {
	responder := middleware.NewErrorResponder(c, h.logger)

	productID, err := strconv.ParseInt(c.Param("productId"), 10, 64)
	if err != nil {
		responder.RespondBadRequest("invalid product id")
		return
	}

	locations, err := h.service.ProductOtherLocations(c.Request.Context(), c.Param("sessionId"), productID)
	if err != nil {
		responder.RespondWithError(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": locations})
}

// Confirm handles POST /api/v1/sessions/:sessionId/confirm
func (h *ScanHandler) Confirm(c *gin.Context) {
	responder := middleware.NewErrorResponder(c, h.logger)

	result, err := h.service.Confirm(c.Request.Context(), c.Param("sessionId"))
	if err != nil {
		responder.RespondWithError(err)
		return
	}

	middleware.AddSpanAttributes(c, map[string]interface{}{
		"workflow.finalized":   result.Finalized,
		"workflow.line_errors": result.LineErrors,
	})

	c.JSON(http.StatusOK, gin.H{"data": result})
}

// EncodeQR handles POST /api/v1/qr/encode
func (h *ScanHandler) EncodeQR(c *gin.Context) {
	responder := middleware.NewErrorResponder(c, h.logger)

	var req EncodeQRRequest
	if appErr := middleware.BindAndValidate(c, &req); appErr != nil {
		responder.RespondWithAppError(appErr)
		return
	}

	payload, err := qr.Encode(qr.Model(req.Model), req.ID)
	if err != nil {
		responder.RespondBadRequest(err.Error())
		return
	}

	image, err := qr.GenerateImage(payload, req.Size)
	if err != nil {
		responder.RespondInternalError(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{
		"payload": payload,
		"image":   base64.StdEncoding.EncodeToString(image),
	}})
}
