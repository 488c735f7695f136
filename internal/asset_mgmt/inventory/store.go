package inventory

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"EWIS-backend/internal/platform/apierr"
	"EWIS-backend/internal/platform/db"
)

// Store のメソッドは q に *sql.DB でも *sql.Tx でも受け取れる。
// issuance からも同じ台帳ロック・更新を使うため、Tx の外に出している。
type Store struct{}

func NewStore() *Store { return &Store{} }

const ledgerColumns = `
	l.ledger_id, l.ledger_ulid, l.asset_id, a.asset_ulid, a.name,
	l.total_stock, l.available_stock, l.issued_stock, l.minimum_threshold,
	l.last_updated_at, l.updated_by`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLedger(r rowScanner) (*Ledger, error) {
	var l Ledger
	if err := r.Scan(
		&l.LedgerID, &l.LedgerULID, &l.AssetID, &l.AssetULID, &l.AssetName,
		&l.Snapshot.Total, &l.Snapshot.Available, &l.Snapshot.Issued, &l.Snapshot.MinimumThreshold,
		&l.LastUpdatedAt, &l.UpdatedBy,
	); err != nil {
		return nil, err
	}
	return &l, nil
}

func (s *Store) getLedger(ctx context.Context, q db.DBTX, where string, arg any, lock bool) (*Ledger, error) {
	query := `SELECT` + ledgerColumns + `
	FROM stock_ledgers l
	JOIN assets a ON a.asset_id = l.asset_id
	WHERE ` + where
	if lock {
		query += ` FOR UPDATE`
	}
	l, err := scanLedger(q.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apierr.ErrNotFound("inventory not found")
		}
		return nil, err
	}
	return l, nil
}

// LockLedgerByULID は台帳行を FOR UPDATE で取得する。Tx 内で呼ぶこと。
func (s *Store) LockLedgerByULID(ctx context.Context, q db.DBTX, ledgerULID string) (*Ledger, error) {
	return s.getLedger(ctx, q, "l.ledger_ulid = ?", ledgerULID, true)
}

func (s *Store) LockLedgerByAssetID(ctx context.Context, q db.DBTX, assetID int64) (*Ledger, error) {
	return s.getLedger(ctx, q, "l.asset_id = ?", assetID, true)
}

func (s *Store) GetLedgerByULID(ctx context.Context, q db.DBTX, ledgerULID string) (*Ledger, error) {
	return s.getLedger(ctx, q, "l.ledger_ulid = ?", ledgerULID, false)
}

// UpdateLedger は読み取り時の値を条件にした更新。1行以外なら同時更新とみなす。
func (s *Store) UpdateLedger(ctx context.Context, q db.DBTX, cur *Ledger, next Snapshot, updatedBy string, at time.Time) error {
	const query = `
	UPDATE stock_ledgers
	SET total_stock = ?, available_stock = ?, issued_stock = ?, minimum_threshold = ?,
	    last_updated_at = ?, updated_by = ?
	WHERE ledger_id = ? AND total_stock = ? AND available_stock = ?`
	res, err := q.ExecContext(ctx, query,
		next.Total, next.Available, next.Issued, next.MinimumThreshold,
		at, nullString(updatedBy),
		cur.LedgerID, cur.Snapshot.Total, cur.Snapshot.Available,
	)
	if err != nil {
		return err
	}
	if aff, _ := res.RowsAffected(); aff != 1 {
		return apierr.ErrConflict("inventory was modified concurrently")
	}
	return nil
}

func (s *Store) InsertLedger(ctx context.Context, q db.DBTX, l *Ledger) (int64, error) {
	const query = `
	INSERT INTO stock_ledgers
	(ledger_ulid, asset_id, total_stock, available_stock, issued_stock, minimum_threshold, last_updated_at, updated_by)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := q.ExecContext(ctx, query,
		l.LedgerULID, l.AssetID,
		l.Snapshot.Total, l.Snapshot.Available, l.Snapshot.Issued, l.Snapshot.MinimumThreshold,
		l.LastUpdatedAt, l.UpdatedBy,
	)
	if err != nil {
		return 0, apierr.FromMySQL(err, "inventory already exists for asset")
	}
	return res.LastInsertId()
}

func (s *Store) InsertHistory(ctx context.Context, q db.DBTX, h *History) error {
	const query = `
	INSERT INTO stock_adjustments
	(adjustment_ulid, ledger_id, asset_id, reason, adjustment_quantity, description,
	 prev_total_stock, prev_available_stock, prev_issued_stock, prev_minimum_threshold,
	 new_total_stock, new_available_stock, new_issued_stock, new_minimum_threshold,
	 updated_by, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := q.ExecContext(ctx, query,
		h.AdjustmentULID, h.LedgerID, h.AssetID, string(h.Reason), h.AdjustmentQuantity, h.Description,
		h.Previous.Total, h.Previous.Available, h.Previous.Issued, h.Previous.MinimumThreshold,
		h.New.Total, h.New.Available, h.New.Issued, h.New.MinimumThreshold,
		h.UpdatedBy, h.CreatedAt,
	)
	return err
}

// ResolveAssetID: asset_ulid -> asset_id
func (s *Store) ResolveAssetID(ctx context.Context, q db.DBTX, assetULID string) (int64, error) {
	const query = `SELECT asset_id FROM assets WHERE asset_ulid = ?`
	var id int64
	if err := q.QueryRowContext(ctx, query, assetULID).Scan(&id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, apierr.ErrNotFound("asset not found")
		}
		return 0, err
	}
	return id, nil
}

func (s *Store) ListLedgers(ctx context.Context, q db.DBTX, f LedgerFilter, p Page) ([]Ledger, int64, error) {
	var where []string
	var args []any
	if f.AssetULID != nil && *f.AssetULID != "" {
		where = append(where, "a.asset_ulid = ?")
		args = append(args, *f.AssetULID)
	}
	if f.BelowThreshold {
		where = append(where, "l.minimum_threshold > 0 AND l.available_stock <= l.minimum_threshold")
	}
	cond := ""
	if len(where) > 0 {
		cond = " WHERE " + strings.Join(where, " AND ")
	}

	var total int64
	countQ := `SELECT COUNT(*) FROM stock_ledgers l JOIN assets a ON a.asset_id = l.asset_id` + cond
	if err := q.QueryRowContext(ctx, countQ, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	listQ := `SELECT` + ledgerColumns + `
	FROM stock_ledgers l
	JOIN assets a ON a.asset_id = l.asset_id` + cond + `
	ORDER BY l.ledger_id ASC
	LIMIT ? OFFSET ?`
	rows, err := q.QueryContext(ctx, listQ, append(args, p.Limit, p.Offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]Ledger, 0, p.Limit)
	for rows.Next() {
		l, err := scanLedger(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *l)
	}
	return out, total, rows.Err()
}

// ListLowStock は閾値監視対象（閾値 > 0）のうち利用可能数が閾値以下の台帳。
func (s *Store) ListLowStock(ctx context.Context, q db.DBTX) ([]Ledger, error) {
	query := `SELECT` + ledgerColumns + `
	FROM stock_ledgers l
	JOIN assets a ON a.asset_id = l.asset_id
	WHERE l.minimum_threshold > 0 AND l.available_stock <= l.minimum_threshold
	ORDER BY l.available_stock ASC, l.ledger_id ASC`
	rows, err := q.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Ledger
	for rows.Next() {
		l, err := scanLedger(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *l)
	}
	return out, rows.Err()
}

// 新しい順
func (s *Store) ListHistory(ctx context.Context, q db.DBTX, ledgerID int64, p Page) ([]History, int64, error) {
	var total int64
	if err := q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM stock_adjustments WHERE ledger_id = ?`, ledgerID,
	).Scan(&total); err != nil {
		return nil, 0, err
	}

	const query = `
	SELECT adjustment_id, adjustment_ulid, ledger_id, asset_id, reason, adjustment_quantity, description,
	       prev_total_stock, prev_available_stock, prev_issued_stock, prev_minimum_threshold,
	       new_total_stock, new_available_stock, new_issued_stock, new_minimum_threshold,
	       updated_by, created_at
	FROM stock_adjustments
	WHERE ledger_id = ?
	ORDER BY created_at DESC, adjustment_id DESC
	LIMIT ? OFFSET ?`
	rows, err := q.QueryContext(ctx, query, ledgerID, p.Limit, p.Offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]History, 0, p.Limit)
	for rows.Next() {
		var h History
		var reason string
		if err := rows.Scan(
			&h.AdjustmentID, &h.AdjustmentULID, &h.LedgerID, &h.AssetID, &reason, &h.AdjustmentQuantity, &h.Description,
			&h.Previous.Total, &h.Previous.Available, &h.Previous.Issued, &h.Previous.MinimumThreshold,
			&h.New.Total, &h.New.Available, &h.New.Issued, &h.New.MinimumThreshold,
			&h.UpdatedBy, &h.CreatedAt,
		); err != nil {
			return nil, 0, err
		}
		h.Reason = Reason(reason)
		out = append(out, h)
	}
	return out, total, rows.Err()
}

func nullString(s string) sql.NullString {
	s = strings.TrimSpace(s)
	return sql.NullString{String: s, Valid: s != ""}
}
