package assets

import (
	"time"

	"github.com/shopspring/decimal"
)

// ===== Requests =====

type CreateAssetRequest struct {
	Name       string          `json:"name" binding:"required"`
	CategoryID int64           `json:"categoryId" binding:"required"`
	UnitWeight decimal.Decimal `json:"unitWeight"` // kg
	IsEwaste   bool            `json:"isEwaste"`
}

// ===== Responses =====

type AssetResponse struct {
	AssetID      string          `json:"assetId"`
	Name         string          `json:"name"`
	CategoryID   *int64          `json:"categoryId,omitempty"`
	CategoryName *string         `json:"categoryName,omitempty"`
	UnitWeight   decimal.Decimal `json:"unitWeight"`
	IsEwaste     bool            `json:"isEwaste"`
	CreatedAt    time.Time       `json:"createdAt"`
}

func toResponse(a *Asset) AssetResponse {
	out := AssetResponse{
		AssetID:    a.AssetULID,
		Name:       a.Name,
		UnitWeight: a.UnitWeight,
		IsEwaste:   a.IsEwaste,
		CreatedAt:  a.CreatedAt,
	}
	if a.CategoryID.Valid {
		v := a.CategoryID.Int64
		out.CategoryID = &v
	}
	if a.CategoryName.Valid {
		v := a.CategoryName.String
		out.CategoryName = &v
	}
	return out
}
