package inventory

import (
	"database/sql"
	"time"
)

// Snapshot は台帳の4項目。Issued は常に Total - Available から再計算する。
type Snapshot struct {
	Total            int
	Available        int
	Issued           int
	MinimumThreshold int
}

// Ledger は stock_ledgers テーブルの1行（assets を JOIN 済み）
type Ledger struct {
	LedgerID      int64
	LedgerULID    string
	AssetID       int64
	AssetULID     string
	AssetName     string
	Snapshot      Snapshot
	LastUpdatedAt time.Time
	UpdatedBy     sql.NullString
}

// History は stock_adjustments テーブルの1行。追記のみ。
type History struct {
	AdjustmentID       int64
	AdjustmentULID     string
	LedgerID           int64
	AssetID            int64
	Reason             Reason
	AdjustmentQuantity int
	Description        sql.NullString
	Previous           Snapshot
	New                Snapshot
	UpdatedBy          sql.NullString
	CreatedAt          time.Time
}

type LedgerFilter struct {
	AssetULID      *string
	BelowThreshold bool
}

type Page struct {
	Limit  int
	Offset int
}

func (p Page) normalize() Page {
	if p.Limit <= 0 || p.Limit > 200 {
		p.Limit = 50
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}

func (p Page) next(total int64) int {
	n := p.Offset + p.Limit
	if n >= int(total) {
		return 0 // 0=終端
	}
	return n
}
