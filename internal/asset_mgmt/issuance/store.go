package issuance

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"EWIS-backend/internal/platform/apierr"
	"EWIS-backend/internal/platform/db"
)

type Store struct{}

func NewStore() *Store { return &Store{} }

type rowScanner interface {
	Scan(dest ...any) error
}

// ===== requests =====

const requestColumns = `
	r.request_id, r.request_ulid, r.asset_id, a.asset_ulid, r.quantity, r.requested_by,
	r.location_id, r.department_id, r.section_id, r.status,
	r.reviewed_by, r.reviewed_at, r.rejection_reason, r.created_at`

func scanRequest(s rowScanner) (*Request, error) {
	var r Request
	var status string
	if err := s.Scan(
		&r.RequestID, &r.RequestULID, &r.AssetID, &r.AssetULID, &r.Quantity, &r.RequestedBy,
		&r.LocationID, &r.DepartmentID, &r.SectionID, &status,
		&r.ReviewedBy, &r.ReviewedAt, &r.RejectionReason, &r.CreatedAt,
	); err != nil {
		return nil, err
	}
	r.Status = RequestStatus(status)
	return &r, nil
}

func (s *Store) getRequest(ctx context.Context, q db.DBTX, requestULID string, lock bool) (*Request, error) {
	query := `SELECT` + requestColumns + `
	FROM requests r
	JOIN assets a ON a.asset_id = r.asset_id
	WHERE r.request_ulid = ?`
	if lock {
		query += ` FOR UPDATE`
	}
	r, err := scanRequest(q.QueryRowContext(ctx, query, requestULID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apierr.ErrNotFound("request not found")
		}
		return nil, err
	}
	return r, nil
}

// LockRequest は Tx 内で申請行を FOR UPDATE で取得する。
func (s *Store) LockRequest(ctx context.Context, q db.DBTX, requestULID string) (*Request, error) {
	return s.getRequest(ctx, q, requestULID, true)
}

func (s *Store) GetRequest(ctx context.Context, q db.DBTX, requestULID string) (*Request, error) {
	return s.getRequest(ctx, q, requestULID, false)
}

func (s *Store) InsertRequest(ctx context.Context, q db.DBTX, r *Request) (int64, error) {
	const query = `
	INSERT INTO requests
	(request_ulid, asset_id, quantity, requested_by, location_id, department_id, section_id, status, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := q.ExecContext(ctx, query,
		r.RequestULID, r.AssetID, r.Quantity, r.RequestedBy,
		r.LocationID, r.DepartmentID, r.SectionID, string(r.Status), r.CreatedAt,
	)
	if err != nil {
		return 0, apierr.FromMySQL(err, "request already exists")
	}
	return res.LastInsertId()
}

// MarkIssued / MarkRejected は pending の行だけを更新する。
func (s *Store) MarkIssued(ctx context.Context, q db.DBTX, requestID int64, reviewer string, at time.Time) error {
	const query = `
	UPDATE requests SET status = ?, reviewed_by = ?, reviewed_at = ?
	WHERE request_id = ? AND status = ?`
	return expectOne(q.ExecContext(ctx, query, string(StatusIssued), reviewer, at, requestID, string(StatusPending)))
}

func (s *Store) MarkRejected(ctx context.Context, q db.DBTX, requestID int64, reviewer, reason string, at time.Time) error {
	const query = `
	UPDATE requests SET status = ?, reviewed_by = ?, reviewed_at = ?, rejection_reason = ?
	WHERE request_id = ? AND status = ?`
	return expectOne(q.ExecContext(ctx, query, string(StatusRejected), reviewer, at, reason, requestID, string(StatusPending)))
}

func (s *Store) ListRequests(ctx context.Context, q db.DBTX, f RequestFilter, p Page) ([]Request, int64, error) {
	where := " WHERE 1=1"
	args := []any{}
	if f.Status != nil {
		where += " AND r.status = ?"
		args = append(args, string(*f.Status))
	}
	if f.LocationID != nil {
		where += " AND r.location_id = ?"
		args = append(args, *f.LocationID)
	}

	var total int64
	if err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM requests r`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT` + requestColumns + `
	FROM requests r
	JOIN assets a ON a.asset_id = r.asset_id` + where + `
	ORDER BY r.created_at DESC, r.request_id DESC
	LIMIT ? OFFSET ?`
	rows, err := q.QueryContext(ctx, query, append(args, p.Limit, p.Offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := []Request{}
	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *r)
	}
	return out, total, rows.Err()
}

// ===== transactions =====

const transactionColumns = `
	t.transaction_id, t.transaction_ulid, t.transaction_type, t.asset_id, a.asset_ulid,
	t.request_id, t.parent_transaction_id, t.requested_by, t.issued_by,
	t.location_id, t.department_id, t.section_id, t.quantity, t.note, t.transaction_date`

func scanTransaction(s rowScanner) (*Transaction, error) {
	var t Transaction
	var typ string
	if err := s.Scan(
		&t.TransactionID, &t.TransactionULID, &typ, &t.AssetID, &t.AssetULID,
		&t.RequestID, &t.ParentTransactionID, &t.RequestedBy, &t.IssuedBy,
		&t.LocationID, &t.DepartmentID, &t.SectionID, &t.Quantity, &t.Note, &t.TransactionDate,
	); err != nil {
		return nil, err
	}
	t.Type = TransactionType(typ)
	return &t, nil
}

func (s *Store) LockTransaction(ctx context.Context, q db.DBTX, transactionULID string) (*Transaction, error) {
	query := `SELECT` + transactionColumns + `
	FROM transactions t
	JOIN assets a ON a.asset_id = t.asset_id
	WHERE t.transaction_ulid = ?
	FOR UPDATE`
	t, err := scanTransaction(q.QueryRowContext(ctx, query, transactionULID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apierr.ErrNotFound("transaction not found")
		}
		return nil, err
	}
	return t, nil
}

func (s *Store) InsertTransaction(ctx context.Context, q db.DBTX, t *Transaction) (int64, error) {
	const query = `
	INSERT INTO transactions
	(transaction_ulid, transaction_type, asset_id, request_id, parent_transaction_id, requested_by, issued_by,
	 location_id, department_id, section_id, quantity, note, transaction_date)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := q.ExecContext(ctx, query,
		t.TransactionULID, string(t.Type), t.AssetID, t.RequestID, t.ParentTransactionID, t.RequestedBy, t.IssuedBy,
		t.LocationID, t.DepartmentID, t.SectionID, t.Quantity, t.Note, t.TransactionDate,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// SumReturned は issue 取引に対する返却済み数量の合計。
func (s *Store) SumReturned(ctx context.Context, q db.DBTX, parentID int64) (int, error) {
	const query = `
	SELECT COALESCE(SUM(quantity), 0) FROM transactions
	WHERE parent_transaction_id = ? AND transaction_type = ?`
	var n int
	if err := q.QueryRowContext(ctx, query, parentID, string(TypeReturn)).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func (s *Store) ListTransactions(ctx context.Context, q db.DBTX, f TransactionFilter, p Page) ([]Transaction, int64, error) {
	var conds []string
	var args []any
	if f.Type != nil {
		conds = append(conds, "t.transaction_type = ?")
		args = append(args, string(*f.Type))
	}
	if f.AssetULID != nil {
		conds = append(conds, "a.asset_ulid = ?")
		args = append(args, *f.AssetULID)
	}
	if f.LocationID != nil {
		conds = append(conds, "t.location_id = ?")
		args = append(args, *f.LocationID)
	}
	if f.From != nil {
		conds = append(conds, "t.transaction_date >= ?")
		args = append(args, *f.From)
	}
	if f.To != nil {
		conds = append(conds, "t.transaction_date < ?")
		args = append(args, *f.To)
	}
	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}
	from := `
	FROM transactions t
	JOIN assets a ON a.asset_id = t.asset_id` + where

	var total int64
	if err := q.QueryRowContext(ctx, `SELECT COUNT(*)`+from, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := q.QueryContext(ctx, `SELECT`+transactionColumns+from+`
	ORDER BY t.transaction_date DESC, t.transaction_id DESC
	LIMIT ? OFFSET ?`, append(args, p.Limit, p.Offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := []Transaction{}
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *t)
	}
	return out, total, rows.Err()
}

func expectOne(res sql.Result, err error) error {
	if err != nil {
		return err
	}
	if aff, _ := res.RowsAffected(); aff != 1 {
		return apierr.ErrConflict("request was modified concurrently")
	}
	return nil
}
