package assets

import (
	"database/sql"
	"time"

	"github.com/shopspring/decimal"
)

// Asset は assets テーブルの1行（カテゴリ名は JOIN 済み）
type Asset struct {
	AssetID      int64
	AssetULID    string
	Name         string
	CategoryID   sql.NullInt64 // 未分類なら NULL
	CategoryName sql.NullString
	// 1個あたりの重量(kg)
	UnitWeight decimal.Decimal
	IsEwaste   bool
	CreatedAt  time.Time
}

type AssetSearchQuery struct {
	CategoryID *int64
	IsEwaste   *bool
	Name       *string // 部分一致
}

type Page struct {
	Limit  int
	Offset int
	Order  string // asc / desc
}
