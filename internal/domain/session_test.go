package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wms-platform/scan-service/internal/qr"
)

func newTestSession(t *testing.T) *ScanSession {
	t.Helper()
	session, err := NewScanSession("sess-001", "device-001")
	require.NoError(t, err)
	session.ClearDomainEvents()
	return session
}

func testMoveLines() []MoveLine {
	return []MoveLine{
		{ID: 10, ProductID: 100, ProductName: "Widget", Demand: 5, Confirmed: 5, UOM: "Units"},
		{ID: 11, ProductID: 101, ProductName: "Gadget", Demand: 3, Confirmed: 2, UOM: "Units"},
	}
}

func testQuants() []InventoryQuant {
	return []InventoryQuant{
		{ID: "1", ProductID: 100, ProductName: "Widget", OnHand: 8, Counted: 8, UOM: "Units"},
		{ID: "2", ProductID: 101, ProductName: "Gadget", OnHand: 2, Counted: 2, UOM: "Units"},
	}
}

func TestNewScanSession(t *testing.T) {
	tests := []struct {
		name        string
		sessionID   string
		deviceID    string
		expectError bool
	}{
		{
			name:      "valid session",
			sessionID: "sess-001",
			deviceID:  "device-001",
		},
		{
			name:        "missing session ID",
			deviceID:    "device-001",
			expectError: true,
		},
		{
			name:        "missing device ID",
			sessionID:   "sess-001",
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			session, err := NewScanSession(tt.sessionID, tt.deviceID)

			if tt.expectError {
				assert.Error(t, err)
				assert.Nil(t, session)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, PhaseModeSelect, session.Phase)
			assert.False(t, session.Scanning)
			assert.Len(t, session.GetDomainEvents(), 1)
			assert.Equal(t, "wms.scan.session-started", session.GetDomainEvents()[0].EventType())
		})
	}
}

func TestSelectMode(t *testing.T) {
	session := newTestSession(t)

	require.NoError(t, session.SelectMode(ModePrepare))
	assert.Equal(t, ModePrepare, session.Mode)
	assert.Equal(t, PhaseScanning, session.Phase)

	// Switching modes drops everything from the previous one
	require.NoError(t, session.AttachPicking(42, "WH/OUT/00042", testMoveLines()))
	session.SetNote("leftover")

	require.NoError(t, session.SelectMode(ModeReceive))
	assert.Equal(t, ModeReceive, session.Mode)
	assert.Zero(t, session.RecordID)
	assert.Empty(t, session.MoveLines)
	assert.Empty(t, session.ScanNote)
}

func TestSelectModeUnknown(t *testing.T) {
	session := newTestSession(t)
	err := session.SelectMode(ScanMode("teleport"))
	assert.ErrorIs(t, err, ErrUnknownMode)
}

func TestStartScanningRequiresMode(t *testing.T) {
	session := newTestSession(t)

	err := session.StartScanning()
	assert.ErrorIs(t, err, ErrNoMode)

	require.NoError(t, session.SelectMode(ModeChecking))
	require.NoError(t, session.StartScanning())
	assert.True(t, session.Scanning)

	session.StopScanning()
	session.StopScanning()
	assert.False(t, session.Scanning)
}

func TestResetRestoresEveryField(t *testing.T) {
	session := newTestSession(t)

	require.NoError(t, session.SelectMode(ModeShipping))
	require.NoError(t, session.StartScanning())
	require.NoError(t, session.AttachPicking(42, "WH/OUT/00042", testMoveLines()))
	require.NoError(t, session.SetShipping(ShippingDelivery, "555-0100", "ACME"))
	require.NoError(t, session.AddImage(CapturedImage{ID: "img-1", Data: "aGk=", SizeBytes: 2}))
	session.SetNote("fragile")

	session.Reset()

	fresh := newTestSession(t)
	assert.Equal(t, fresh.Mode, session.Mode)
	assert.Equal(t, fresh.Phase, session.Phase)
	assert.Equal(t, fresh.Scanning, session.Scanning)
	assert.Equal(t, fresh.RecordModel, session.RecordModel)
	assert.Equal(t, fresh.RecordID, session.RecordID)
	assert.Equal(t, fresh.RecordName, session.RecordName)
	assert.Equal(t, fresh.Images, session.Images)
	assert.Equal(t, fresh.MoveLines, session.MoveLines)
	assert.Equal(t, fresh.Quants, session.Quants)
	assert.Equal(t, fresh.ShippingType, session.ShippingType)
	assert.Equal(t, fresh.ShippingPhone, session.ShippingPhone)
	assert.Equal(t, fresh.ShippingCompany, session.ShippingCompany)
	assert.Equal(t, fresh.ScanNote, session.ScanNote)
}

func TestResetIsIdempotent(t *testing.T) {
	session := newTestSession(t)
	require.NoError(t, session.SelectMode(ModePrepare))
	require.NoError(t, session.AttachPicking(42, "WH/OUT/00042", testMoveLines()))

	session.Reset()
	once := *session
	session.Reset()

	assert.Equal(t, once.Mode, session.Mode)
	assert.Equal(t, once.Phase, session.Phase)
	assert.Equal(t, once.RecordID, session.RecordID)
	assert.Equal(t, once.MoveLines, session.MoveLines)
	assert.Equal(t, once.Quants, session.Quants)
}

func TestAttachPickingAdvancesPhase(t *testing.T) {
	tests := []struct {
		mode      ScanMode
		wantPhase Phase
	}{
		{ModePrepare, PhaseCapture},
		{ModeChecking, PhaseCapture},
		{ModeShipping, PhaseShippingType},
		{ModeReceive, PhaseReceiveNote},
	}

	for _, tt := range tests {
		t.Run(string(tt.mode), func(t *testing.T) {
			session := newTestSession(t)
			require.NoError(t, session.SelectMode(tt.mode))
			require.NoError(t, session.StartScanning())

			require.NoError(t, session.AttachPicking(42, "WH/OUT/00042", testMoveLines()))

			assert.Equal(t, tt.wantPhase, session.Phase)
			assert.False(t, session.Scanning, "successful scan stops scanning")
			assert.Equal(t, int64(42), session.RecordID)
			assert.Equal(t, qr.ModelPicking, session.RecordModel)
		})
	}
}

func TestAttachLocationOnlyInLocationMode(t *testing.T) {
	session := newTestSession(t)
	require.NoError(t, session.SelectMode(ModePrepare))

	err := session.AttachLocation(7, "WH/Stock/Shelf 1", testQuants())
	assert.ErrorIs(t, err, ErrWrongPhase)

	require.NoError(t, session.SelectMode(ModeLocation))
	require.NoError(t, session.AttachLocation(7, "WH/Stock/Shelf 1", testQuants()))
	assert.Equal(t, PhaseLocationInventory, session.Phase)
	assert.Len(t, session.Quants, 2)
}

func TestSetLineConfirmed(t *testing.T) {
	session := newTestSession(t)
	require.NoError(t, session.SelectMode(ModePrepare))
	require.NoError(t, session.AttachPicking(42, "WH/OUT/00042", testMoveLines()))

	require.NoError(t, session.SetLineConfirmed(10, 4, "short picked"))
	assert.Equal(t, 4.0, session.MoveLines[0].Confirmed)
	assert.Equal(t, "short picked", session.MoveLines[0].ConfirmNote)

	err := session.SetLineConfirmed(10, -1, "")
	assert.ErrorIs(t, err, ErrQuantityNegative)

	err = session.SetLineConfirmed(999, 1, "")
	assert.ErrorIs(t, err, ErrLineNotFound)
}

func TestCheckQuantities(t *testing.T) {
	tests := []struct {
		name      string
		confirmed map[int64]float64 // line ID -> confirmed
		available map[int64]float64 // product ID -> stock
		wantValid bool
		wantFlags []bool
	}{
		{
			name:      "all within bounds",
			available: map[int64]float64{100: 10, 101: 10},
			wantValid: true,
			wantFlags: []bool{false, false},
		},
		{
			name:      "exceeds demand",
			confirmed: map[int64]float64{10: 6},
			available: map[int64]float64{100: 10, 101: 10},
			wantValid: false,
			wantFlags: []bool{true, false},
		},
		{
			name:      "exceeds live stock",
			confirmed: map[int64]float64{11: 3},
			available: map[int64]float64{100: 10, 101: 1},
			wantValid: false,
			wantFlags: []bool{false, true},
		},
		{
			name:      "equal to demand and stock is fine",
			confirmed: map[int64]float64{10: 5, 11: 3},
			available: map[int64]float64{100: 5, 101: 3},
			wantValid: true,
			wantFlags: []bool{false, false},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			session := newTestSession(t)
			require.NoError(t, session.SelectMode(ModePrepare))
			require.NoError(t, session.AttachPicking(42, "WH/OUT/00042", testMoveLines()))

			for lineID, qty := range tt.confirmed {
				require.NoError(t, session.SetLineConfirmed(lineID, qty, ""))
			}

			valid := session.CheckQuantities(tt.available)

			assert.Equal(t, tt.wantValid, valid)
			for i, want := range tt.wantFlags {
				assert.Equal(t, want, session.MoveLines[i].IsInvalid, "line %d", i)
			}
		})
	}
}

func TestUpdateCountRecomputesDifference(t *testing.T) {
	session := newTestSession(t)
	require.NoError(t, session.SelectMode(ModeLocation))
	require.NoError(t, session.AttachLocation(7, "Shelf 1", testQuants()))

	require.NoError(t, session.UpdateCount(100, 5))
	assert.Equal(t, -3.0, session.Quants[0].Difference)

	// Re-applying the same count leaves the difference unchanged
	require.NoError(t, session.UpdateCount(100, 5))
	assert.Equal(t, -3.0, session.Quants[0].Difference)

	require.NoError(t, session.UpdateCount(100, 11))
	assert.Equal(t, 3.0, session.Quants[0].Difference)

	err := session.UpdateCount(100, -2)
	assert.ErrorIs(t, err, ErrQuantityNegative)

	err = session.UpdateCount(999, 1)
	assert.ErrorIs(t, err, ErrProductNotInCount)
}

func TestAddProduct(t *testing.T) {
	session := newTestSession(t)
	require.NoError(t, session.SelectMode(ModeLocation))
	require.NoError(t, session.AttachLocation(7, "Shelf 1", testQuants()))

	hit := ProductHit{ID: 200, Name: "Sprocket", Code: "SPR-200", UOM: "Units"}
	require.NoError(t, session.AddProduct(hit, 4))

	added := session.Quants[len(session.Quants)-1]
	assert.True(t, added.IsNew)
	assert.Zero(t, added.OnHand)
	assert.Equal(t, 4.0, added.Counted)
	assert.Equal(t, 4.0, added.Difference)

	// Duplicates leave the count untouched
	before := len(session.Quants)
	err := session.AddProduct(ProductHit{ID: 100, Name: "Widget"}, 1)
	assert.ErrorIs(t, err, ErrDuplicateProduct)
	assert.Len(t, session.Quants, before)
}

func TestAddProductRejectsZeroQuantity(t *testing.T) {
	session := newTestSession(t)
	require.NoError(t, session.SelectMode(ModeLocation))
	require.NoError(t, session.AttachLocation(7, "Shelf 1", testQuants()))

	before := len(session.Quants)

	err := session.AddProduct(ProductHit{ID: 42, Name: "Gasket"}, 0)
	assert.ErrorIs(t, err, ErrQuantityRequired)
	assert.Len(t, session.Quants, before)

	err = session.AddProduct(ProductHit{ID: 42, Name: "Gasket"}, -1)
	assert.ErrorIs(t, err, ErrQuantityRequired)
	assert.Len(t, session.Quants, before)
}

func TestRemoveProduct(t *testing.T) {
	session := newTestSession(t)
	require.NoError(t, session.SelectMode(ModeLocation))
	require.NoError(t, session.AttachLocation(7, "Shelf 1", testQuants()))

	require.NoError(t, session.RemoveProduct(100))
	assert.Len(t, session.Quants, 1)
	assert.Equal(t, int64(101), session.Quants[0].ProductID)

	err := session.RemoveProduct(100)
	assert.ErrorIs(t, err, ErrProductNotInCount)
}

func TestAddImage(t *testing.T) {
	session := newTestSession(t)
	require.NoError(t, session.SelectMode(ModePrepare))

	err := session.AddImage(CapturedImage{ID: "img-1", SizeBytes: 10})
	assert.ErrorIs(t, err, ErrNoRecord)

	require.NoError(t, session.AttachPicking(42, "WH/OUT/00042", testMoveLines()))
	require.NoError(t, session.AddImage(CapturedImage{ID: "img-1", SizeBytes: 10}))
	assert.Len(t, session.Images, 1)

	err = session.AddImage(CapturedImage{ID: "img-2", SizeBytes: MaxImageSize + 1})
	assert.ErrorIs(t, err, ErrImageTooLarge)
}

func TestSetShipping(t *testing.T) {
	session := newTestSession(t)
	require.NoError(t, session.SelectMode(ModeShipping))

	err := session.SetShipping(ShippingDelivery, "", "")
	assert.ErrorIs(t, err, ErrNoRecord)

	require.NoError(t, session.AttachPicking(42, "WH/OUT/00042", nil))

	err = session.SetShipping(ShippingType("drone"), "", "")
	assert.ErrorIs(t, err, ErrShippingTypeRequired)

	require.NoError(t, session.SetShipping(ShippingPickup, "555-0100", "ACME"))
	assert.Equal(t, ShippingPickup, session.ShippingType)
}

func TestConfirmWorkflowResets(t *testing.T) {
	session := newTestSession(t)
	require.NoError(t, session.SelectMode(ModePrepare))
	require.NoError(t, session.AttachPicking(42, "WH/OUT/00042", testMoveLines()))
	session.ClearDomainEvents()

	require.NoError(t, session.ConfirmWorkflow(true, 0))

	assert.Equal(t, PhaseModeSelect, session.Phase)
	assert.Zero(t, session.RecordID)

	events := session.GetDomainEvents()
	require.Len(t, events, 2)
	confirmed, ok := events[0].(*WorkflowConfirmedEvent)
	require.True(t, ok)
	assert.True(t, confirmed.Finalized)
	assert.Equal(t, int64(42), confirmed.RecordID)
	assert.Equal(t, "wms.scan.session-reset", events[1].EventType())
}

func TestConfirmWorkflowRequiresRecord(t *testing.T) {
	session := newTestSession(t)

	err := session.ConfirmWorkflow(false, 0)
	assert.ErrorIs(t, err, ErrNoMode)

	require.NoError(t, session.SelectMode(ModeReceive))
	err = session.ConfirmWorkflow(false, 0)
	assert.ErrorIs(t, err, ErrNoRecord)
}

func TestChangedQuants(t *testing.T) {
	session := newTestSession(t)
	require.NoError(t, session.SelectMode(ModeLocation))
	require.NoError(t, session.AttachLocation(7, "Shelf 1", testQuants()))

	assert.Empty(t, session.ChangedQuants())

	require.NoError(t, session.UpdateCount(100, 5))
	require.NoError(t, session.AddProduct(ProductHit{ID: 200, Name: "Sprocket"}, 2))

	changed := session.ChangedQuants()
	require.Len(t, changed, 2)
	assert.Equal(t, int64(100), changed[0].ProductID)
	assert.Equal(t, int64(200), changed[1].ProductID)
}

func TestBuildScanHistory(t *testing.T) {
	session := newTestSession(t)
	require.NoError(t, session.SelectMode(ModeLocation))
	require.NoError(t, session.AttachLocation(7, "Shelf 1", testQuants()))
	require.NoError(t, session.UpdateCount(100, 5))
	require.NoError(t, session.AddProduct(ProductHit{ID: 200, Name: "Sprocket"}, 2))

	history := BuildScanHistory("hist-001", session, "cycle count", 1, map[int64]string{200: "reserved stock"})

	assert.Equal(t, int64(7), history.LocationID)
	assert.Equal(t, 3, history.Stats.TotalProducts)
	assert.Equal(t, 2, history.Stats.ProductsWithChanges)
	assert.Equal(t, 1, history.Stats.ProductsAdded)
	assert.Equal(t, 1, history.Stats.ProductsRemoved)
	assert.Equal(t, 1, history.Stats.Errors)

	require.Len(t, history.Lines, 3)
	assert.Equal(t, "reserved stock", history.Lines[2].Error)
}
