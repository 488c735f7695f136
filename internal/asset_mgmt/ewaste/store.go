package ewaste

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"EWIS-backend/internal/platform/db"
)

type Store struct{ db *sql.DB }

func NewStore(db *sql.DB) *Store { return &Store{db: db} }

// InsertRecordTx は払い出し Tx の中から呼ばれる。
func InsertRecordTx(ctx context.Context, q db.DBTX, r *Record) (int64, error) {
	const query = `
	INSERT INTO ewaste_records
	(record_ulid, transaction_id, asset_id, quantity, total_weight, receive_date, status,
	 location_id, department_id, section_id, created_by)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := q.ExecContext(ctx, query,
		r.RecordULID, r.TransactionID, r.AssetID, r.Quantity, r.TotalWeight, r.ReceiveDate, string(r.Status),
		r.LocationID, r.DepartmentID, r.SectionID, r.CreatedBy,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// ListReportRows は status と受領日の範囲だけで絞り込む。
// スコープの判定は取引側へのフォールバック後に Go 側で行うので、ここでは両方を返す。
func (s *Store) ListReportRows(ctx context.Context, statuses []Status, from, to time.Time) ([]ReportRow, error) {
	if len(statuses) == 0 {
		return nil, nil
	}
	ph := strings.TrimSuffix(strings.Repeat("?, ", len(statuses)), ", ")
	args := []any{from, to}
	for _, st := range statuses {
		args = append(args, string(st))
	}

	query := `
	SELECT e.record_id, e.status, e.quantity, e.total_weight, e.receive_date,
	       e.location_id, e.department_id, e.section_id,
	       t.transaction_id, t.location_id, t.department_id, t.section_id,
	       a.unit_weight, c.category_name
	FROM ewaste_records e
	JOIN assets a ON a.asset_id = e.asset_id
	LEFT JOIN asset_categories c ON c.category_id = a.category_id
	LEFT JOIN transactions t ON t.transaction_id = e.transaction_id
	WHERE e.receive_date >= ? AND e.receive_date < ?
	  AND e.status IN (` + ph + `)
	ORDER BY e.receive_date ASC, e.record_id ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ReportRow
	for rows.Next() {
		var (
			r                         ReportRow
			status                    string
			ownLoc, ownDep, ownSec    sql.NullInt64
			txID, txLoc, txDep, txSec sql.NullInt64
		)
		if err := rows.Scan(
			&r.RecordID, &status, &r.Quantity, &r.TotalWeight, &r.ReceiveDate,
			&ownLoc, &ownDep, &ownSec,
			&txID, &txLoc, &txDep, &txSec,
			&r.UnitWeight, &r.CategoryName,
		); err != nil {
			return nil, err
		}
		r.Status = Status(status)
		r.Own = Scope{LocationID: ptr(ownLoc), DepartmentID: ptr(ownDep), SectionID: ptr(ownSec)}
		if txID.Valid {
			r.HasTx = true
			r.Tx = Scope{LocationID: ptr(txLoc), DepartmentID: ptr(txDep), SectionID: ptr(txSec)}
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// LookupNames は集計対象に現れた部署・課の名前だけを引く。
func (s *Store) LookupNames(ctx context.Context, departmentIDs, sectionIDs []int64) (Names, error) {
	n := Names{Departments: map[int64]string{}, Sections: map[int64]string{}}
	if err := s.lookup(ctx, `SELECT department_id, department_name FROM departments WHERE department_id IN `, departmentIDs, n.Departments); err != nil {
		return Names{}, err
	}
	if err := s.lookup(ctx, `SELECT section_id, section_name FROM sections WHERE section_id IN `, sectionIDs, n.Sections); err != nil {
		return Names{}, err
	}
	return n, nil
}

func (s *Store) lookup(ctx context.Context, prefix string, ids []int64, dst map[int64]string) error {
	if len(ids) == 0 {
		return nil
	}
	args := make([]any, 0, len(ids))
	for _, id := range ids {
		args = append(args, id)
	}
	query := prefix + `(` + strings.TrimSuffix(strings.Repeat("?, ", len(ids)), ", ") + `)`
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var id int64
		var name string
		if err := rows.Scan(&id, &name); err != nil {
			return err
		}
		dst[id] = name
	}
	return rows.Err()
}

func ptr(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	x := v.Int64
	return &x
}
