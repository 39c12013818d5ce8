package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ScanHistory is the persisted record of one completed location count
type ScanHistory struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	HistoryID  string             `bson:"historyId" json:"historyId"`
	SessionID  string             `bson:"sessionId" json:"sessionId"`
	DeviceID   string             `bson:"deviceId" json:"deviceId"`
	LocationID int64              `bson:"locationId" json:"locationId"`
	Note       string             `bson:"note" json:"note"`
	Stats      ScanHistoryStats   `bson:"stats" json:"stats"`
	Lines      []ScanHistoryLine  `bson:"lines" json:"lines"`
	CreatedAt  time.Time          `bson:"createdAt" json:"createdAt"`
}

// ScanHistoryStats summarizes what a count changed
type ScanHistoryStats struct {
	TotalProducts       int `bson:"totalProducts" json:"totalProducts"`
	ProductsWithChanges int `bson:"productsWithChanges" json:"productsWithChanges"`
	ProductsAdded       int `bson:"productsAdded" json:"productsAdded"`
	ProductsRemoved     int `bson:"productsRemoved" json:"productsRemoved"`
	Errors              int `bson:"errors" json:"errors"`
}

// ScanHistoryLine is one product outcome within a count
type ScanHistoryLine struct {
	ProductID   int64   `bson:"productId" json:"productId"`
	ProductName string  `bson:"productName" json:"productName"`
	OnHand      float64 `bson:"onHand" json:"onHand"`
	Counted     float64 `bson:"counted" json:"counted"`
	Difference  float64 `bson:"difference" json:"difference"`
	IsNew       bool    `bson:"isNew" json:"isNew"`
	Error       string  `bson:"error,omitempty" json:"error,omitempty"`
}

// BuildScanHistory assembles the history record for a confirmed count.
// lineErrors maps product ID to the error message its adjustment hit.
func BuildScanHistory(historyID string, session *ScanSession, note string, removed int, lineErrors map[int64]string) *ScanHistory {
	history := &ScanHistory{
		HistoryID:  historyID,
		SessionID:  session.SessionID,
		DeviceID:   session.DeviceID,
		LocationID: session.RecordID,
		Note:       note,
		CreatedAt:  time.Now(),
	}

	for _, q := range session.Quants {
		line := ScanHistoryLine{
			ProductID:   q.ProductID,
			ProductName: q.ProductName,
			OnHand:      q.OnHand,
			Counted:     q.Counted,
			Difference:  q.Difference,
			IsNew:       q.IsNew,
		}
		if msg, ok := lineErrors[q.ProductID]; ok {
			line.Error = msg
		}
		history.Lines = append(history.Lines, line)

		if q.IsNew {
			history.Stats.ProductsAdded++
		}
		if q.IsNew || q.Counted != q.OnHand {
			history.Stats.ProductsWithChanges++
		}
	}

	history.Stats.TotalProducts = len(session.Quants)
	history.Stats.ProductsRemoved = removed
	history.Stats.Errors = len(lineErrors)

	return history
}
