package issuance

import (
	"database/sql"
	"time"
)

type RequestStatus string

const (
	StatusPending  RequestStatus = "pending"
	StatusIssued   RequestStatus = "issued"
	StatusRejected RequestStatus = "rejected"
)

// Request: pending → issued / rejected。どちらも終端。
type Request struct {
	RequestID       int64
	RequestULID     string
	AssetID         int64
	AssetULID       string
	Quantity        int
	RequestedBy     string
	LocationID      int64
	DepartmentID    sql.NullInt64
	SectionID       sql.NullInt64
	Status          RequestStatus
	ReviewedBy      sql.NullString
	ReviewedAt      sql.NullTime
	RejectionReason sql.NullString
	CreatedAt       time.Time
}

type TransactionType string

const (
	TypeIssue  TransactionType = "issue"
	TypeReturn TransactionType = "return"
)

// Transaction は払い出し・返却の記録。作成後は不変。
type Transaction struct {
	TransactionID       int64
	TransactionULID     string
	Type                TransactionType
	AssetID             int64
	AssetULID           string
	RequestID           sql.NullInt64 // issue のみ
	ParentTransactionID sql.NullInt64 // return のみ
	RequestedBy         string
	IssuedBy            string
	LocationID          int64
	DepartmentID        sql.NullInt64
	SectionID           sql.NullInt64
	Quantity            int
	Note                sql.NullString
	TransactionDate     time.Time
}

type RequestFilter struct {
	Status     *RequestStatus
	LocationID *int64
}

type TransactionFilter struct {
	Type       *TransactionType
	AssetULID  *string
	LocationID *int64
	From       *time.Time
	To         *time.Time
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

func nextOffset(total int64, p Page) int {
	n := p.Offset + p.Limit
	if n >= int(total) {
		return 0
	}
	return n
}
