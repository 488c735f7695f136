package assets

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"EWIS-backend/internal/platform/apierr"
	"EWIS-backend/internal/platform/db"
)

type Store struct{ db *sql.DB }

func NewStore(db *sql.DB) *Store { return &Store{db: db} }

const assetSelect = `
	SELECT a.asset_id, a.asset_ulid, a.name, a.category_id, c.category_name, a.unit_weight, a.is_ewaste, a.created_at
	FROM assets a
	LEFT JOIN asset_categories c ON c.category_id = a.category_id`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAsset(r rowScanner) (*Asset, error) {
	var a Asset
	if err := r.Scan(
		&a.AssetID, &a.AssetULID, &a.Name, &a.CategoryID, &a.CategoryName,
		&a.UnitWeight, &a.IsEwaste, &a.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &a, nil
}

// GetAssetTx は Tx 内（issuance など）から資産を引くための関数。
func GetAssetTx(ctx context.Context, q db.DBTX, assetID int64) (*Asset, error) {
	a, err := scanAsset(q.QueryRowContext(ctx, assetSelect+` WHERE a.asset_id = ?`, assetID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apierr.ErrNotFound("asset not found")
		}
		return nil, err
	}
	return a, nil
}

func (s *Store) GetByULID(ctx context.Context, assetULID string) (*Asset, error) {
	a, err := scanAsset(s.db.QueryRowContext(ctx, assetSelect+` WHERE a.asset_ulid = ?`, assetULID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apierr.ErrNotFound("asset not found")
		}
		return nil, err
	}
	return a, nil
}

func (s *Store) Insert(ctx context.Context, a *Asset) (int64, error) {
	const q = `
	INSERT INTO assets (asset_ulid, name, category_id, unit_weight, is_ewaste, created_at)
	VALUES (?, ?, ?, ?, ?, ?)`
	res, err := s.db.ExecContext(ctx, q, a.AssetULID, a.Name, a.CategoryID, a.UnitWeight, a.IsEwaste, a.CreatedAt)
	if err != nil {
		return 0, apierr.FromMySQL(err, "asset already exists")
	}
	return res.LastInsertId()
}

func (s *Store) List(ctx context.Context, q AssetSearchQuery, p Page) ([]Asset, int64, error) {
	order := "DESC"
	if strings.ToLower(p.Order) == "asc" {
		order = "ASC"
	}

	where := " WHERE 1=1"
	args := []any{}
	if q.CategoryID != nil {
		where += " AND a.category_id = ?"
		args = append(args, *q.CategoryID)
	}
	if q.IsEwaste != nil {
		where += " AND a.is_ewaste = ?"
		args = append(args, *q.IsEwaste)
	}
	if q.Name != nil && *q.Name != "" {
		where += " AND a.name LIKE ?"
		args = append(args, "%"+*q.Name+"%")
	}

	var total int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM assets a`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	listSQL := assetSelect + where + `
	ORDER BY a.created_at ` + order + `, a.asset_id ` + order + `
	LIMIT ? OFFSET ?`
	rows, err := s.db.QueryContext(ctx, listSQL, append(args, p.Limit, p.Offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := []Asset{}
	for rows.Next() {
		a, err := scanAsset(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *a)
	}
	return out, total, rows.Err()
}
