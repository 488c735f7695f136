package ewaste

import (
	"database/sql"
	"time"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusGenerated Status = "generated"
	StatusCollected Status = "collected"
)

// Record は ewaste_records テーブルの1行。作成後は更新しない。
type Record struct {
	RecordID      int64
	RecordULID    string
	TransactionID sql.NullInt64 // 払い出し由来でない記録は NULL
	AssetID       int64
	Quantity      int
	TotalWeight   decimal.Decimal
	ReceiveDate   time.Time
	Status        Status
	// 取引が無い記録のための自前スコープ
	LocationID   sql.NullInt64
	DepartmentID sql.NullInt64
	SectionID    sql.NullInt64
	CreatedBy    sql.NullString
}

// Scope は拠点・部署・課の ID。nil は未設定。
type Scope struct {
	LocationID   *int64
	DepartmentID *int64
	SectionID    *int64
}

// ReportRow はレポート用に assets / transactions を JOIN した1行。
type ReportRow struct {
	RecordID     int64
	Status       Status
	Quantity     int
	TotalWeight  decimal.Decimal
	ReceiveDate  time.Time
	Own          Scope
	HasTx        bool
	Tx           Scope
	UnitWeight   decimal.Decimal
	CategoryName sql.NullString
}

// Names は部署・課の表示名。レポート集計の前に別クエリで引いておく。
type Names struct {
	Departments map[int64]string
	Sections    map[int64]string
}
