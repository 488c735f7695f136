package inventory

import "time"

// ===== Requests =====

// 数量は小数で来ることがあるので float で受けて Service 側で floor する
type AdjustRequest struct {
	Reason             string   `json:"reason" binding:"required"`
	AdjustmentQuantity *float64 `json:"adjustmentQuantity,omitempty"`
	MinimumThreshold   *float64 `json:"minimumThreshold,omitempty"`
	Description        *string  `json:"description,omitempty"`
}

type CreateInventoryRequest struct {
	AssetID          string `json:"assetId" binding:"required"` // asset_ulid
	TotalStock       int    `json:"totalStock"`
	AvailableStock   int    `json:"availableStock"`
	MinimumThreshold int    `json:"minimumThreshold"`
}

// ===== Responses =====

type LedgerResponse struct {
	InventoryID      string    `json:"inventoryId"`
	AssetID          string    `json:"assetId"`
	AssetName        string    `json:"assetName"`
	TotalStock       int       `json:"totalStock"`
	AvailableStock   int       `json:"availableStock"`
	IssuedStock      int       `json:"issuedStock"`
	MinimumThreshold int       `json:"minimumThreshold"`
	BelowThreshold   bool      `json:"belowThreshold"`
	LastUpdatedAt    time.Time `json:"lastUpdatedAt"`
	UpdatedBy        *string   `json:"updatedBy,omitempty"`
}

type SnapshotResponse struct {
	TotalStock       int `json:"totalStock"`
	AvailableStock   int `json:"availableStock"`
	IssuedStock      int `json:"issuedStock"`
	MinimumThreshold int `json:"minimumThreshold"`
}

type HistoryResponse struct {
	HistoryID          string           `json:"historyId"`
	InventoryID        string           `json:"inventoryId"`
	Reason             Reason           `json:"reason"`
	AdjustmentQuantity int              `json:"adjustmentQuantity"`
	Description        *string          `json:"description,omitempty"`
	PreviousValues     SnapshotResponse `json:"previousValues"`
	NewValues          SnapshotResponse `json:"newValues"`
	UpdatedBy          *string          `json:"updatedBy,omitempty"`
	CreatedAt          time.Time        `json:"createdAt"`
}

type AdjustResponse struct {
	Inventory LedgerResponse  `json:"inventory"`
	History   HistoryResponse `json:"history"`
}

func toLedgerResponse(l *Ledger) LedgerResponse {
	out := LedgerResponse{
		InventoryID:      l.LedgerULID,
		AssetID:          l.AssetULID,
		AssetName:        l.AssetName,
		TotalStock:       l.Snapshot.Total,
		AvailableStock:   l.Snapshot.Available,
		IssuedStock:      l.Snapshot.Issued,
		MinimumThreshold: l.Snapshot.MinimumThreshold,
		BelowThreshold:   l.Snapshot.BelowThreshold(),
		LastUpdatedAt:    l.LastUpdatedAt,
	}
	if l.UpdatedBy.Valid {
		v := l.UpdatedBy.String
		out.UpdatedBy = &v
	}
	return out
}

func toSnapshotResponse(s Snapshot) SnapshotResponse {
	return SnapshotResponse{
		TotalStock:       s.Total,
		AvailableStock:   s.Available,
		IssuedStock:      s.Issued,
		MinimumThreshold: s.MinimumThreshold,
	}
}

func toHistoryResponse(h *History, ledgerULID string) HistoryResponse {
	out := HistoryResponse{
		HistoryID:          h.AdjustmentULID,
		InventoryID:        ledgerULID,
		Reason:             h.Reason,
		AdjustmentQuantity: h.AdjustmentQuantity,
		PreviousValues:     toSnapshotResponse(h.Previous),
		NewValues:          toSnapshotResponse(h.New),
		CreatedAt:          h.CreatedAt,
	}
	if h.Description.Valid {
		v := h.Description.String
		out.Description = &v
	}
	if h.UpdatedBy.Valid {
		v := h.UpdatedBy.String
		out.UpdatedBy = &v
	}
	return out
}
