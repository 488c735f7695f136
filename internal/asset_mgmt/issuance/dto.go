package issuance

import "time"

// ===== Requests =====

type CreateRequestRequest struct {
	AssetID      string `json:"assetId" binding:"required"` // asset_ulid
	Quantity     int    `json:"quantity"`
	LocationID   *int64 `json:"locationId,omitempty"` // superAdmin のみ有効
	DepartmentID *int64 `json:"departmentId,omitempty"`
	SectionID    *int64 `json:"sectionId,omitempty"`
}

type IssueRequest struct {
	EwasteReceived bool `json:"ewasteReceived"`
	EwasteQuantity *int `json:"ewasteQuantity,omitempty"`
}

type RejectRequest struct {
	RejectionReason string `json:"rejectionReason"`
}

type ReturnRequest struct {
	Quantity int     `json:"quantity"`
	Note     *string `json:"note,omitempty"`
}

// ===== Responses =====

type IssueResponse struct {
	Success       bool    `json:"success"`
	RequestID     string  `json:"requestId"`
	TransactionID string  `json:"transactionId"`
	EwasteStatus  *string `json:"ewasteStatus,omitempty"`
}

type RejectResponse struct {
	Success   bool   `json:"success"`
	RequestID string `json:"requestId"`
}

type RequestResponse struct {
	RequestID       string        `json:"requestId"`
	AssetID         string        `json:"assetId"`
	Quantity        int           `json:"quantity"`
	RequestedBy     string        `json:"requestedBy"`
	LocationID      int64         `json:"locationId"`
	DepartmentID    *int64        `json:"departmentId,omitempty"`
	SectionID       *int64        `json:"sectionId,omitempty"`
	Status          RequestStatus `json:"status"`
	ReviewedBy      *string       `json:"reviewedBy,omitempty"`
	ReviewedAt      *time.Time    `json:"reviewedAt,omitempty"`
	RejectionReason *string       `json:"rejectionReason,omitempty"`
	CreatedAt       time.Time     `json:"createdAt"`
}

type TransactionResponse struct {
	TransactionID   string          `json:"transactionId"`
	TransactionType TransactionType `json:"transactionType"`
	AssetID         string          `json:"assetId"`
	Quantity        int             `json:"quantity"`
	RequestedBy     string          `json:"requestedBy"`
	IssuedBy        string          `json:"issuedBy"`
	LocationID      int64           `json:"locationId"`
	DepartmentID    *int64          `json:"departmentId,omitempty"`
	SectionID       *int64          `json:"sectionId,omitempty"`
	Note            *string         `json:"note,omitempty"`
	TransactionDate time.Time       `json:"transactionDate"`
}

type ReturnResponse struct {
	Transaction         TransactionResponse `json:"transaction"`
	ParentTransactionID string              `json:"parentTransactionId"`
	ReturnedQuantity    int                 `json:"returnedQuantity"`
	OutstandingQuantity int                 `json:"outstandingQuantity"`
}

func toRequestResponse(r *Request) RequestResponse {
	out := RequestResponse{
		RequestID:   r.RequestULID,
		AssetID:     r.AssetULID,
		Quantity:    r.Quantity,
		RequestedBy: r.RequestedBy,
		LocationID:  r.LocationID,
		Status:      r.Status,
		CreatedAt:   r.CreatedAt,
	}
	out.DepartmentID = int64Ptr(r.DepartmentID.Int64, r.DepartmentID.Valid)
	out.SectionID = int64Ptr(r.SectionID.Int64, r.SectionID.Valid)
	if r.ReviewedBy.Valid {
		v := r.ReviewedBy.String
		out.ReviewedBy = &v
	}
	if r.ReviewedAt.Valid {
		v := r.ReviewedAt.Time
		out.ReviewedAt = &v
	}
	if r.RejectionReason.Valid {
		v := r.RejectionReason.String
		out.RejectionReason = &v
	}
	return out
}

func toTransactionResponse(t *Transaction) TransactionResponse {
	out := TransactionResponse{
		TransactionID:   t.TransactionULID,
		TransactionType: t.Type,
		AssetID:         t.AssetULID,
		Quantity:        t.Quantity,
		RequestedBy:     t.RequestedBy,
		IssuedBy:        t.IssuedBy,
		LocationID:      t.LocationID,
		TransactionDate: t.TransactionDate,
	}
	out.DepartmentID = int64Ptr(t.DepartmentID.Int64, t.DepartmentID.Valid)
	out.SectionID = int64Ptr(t.SectionID.Int64, t.SectionID.Valid)
	if t.Note.Valid {
		v := t.Note.String
		out.Note = &v
	}
	return out
}

func int64Ptr(v int64, ok bool) *int64 {
	if !ok {
		return nil
	}
	return &v
}
