package assets

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"go.uber.org/zap"

	"EWIS-backend/internal/platform/apierr"
)

// Category は asset_categories の1行。E-waste レポートの集計キーにもなる。
type Category struct {
	CategoryID   int64  `json:"id"`
	CategoryName string `json:"name"`
	IsDisabled   bool   `json:"isDisabled"`
}

type CreateCategoryRequest struct {
	Name string `json:"name" binding:"required"`
}

type UpdateCategoryRequest struct {
	Name       string `json:"name" binding:"required"`
	IsDisabled bool   `json:"isDisabled"`
}

// ===== store =====

// GET /asset-categories?all=1
func (s *Store) ListCategories(ctx context.Context, includeDisabled bool) ([]Category, error) {
	q := `SELECT category_id, category_name, is_disabled FROM asset_categories`
	if !includeDisabled {
		q += ` WHERE is_disabled = 0`
	}
	q += ` ORDER BY category_id`

	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	res := make([]Category, 0, 16)
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.CategoryID, &c.CategoryName, &c.IsDisabled); err != nil {
			return nil, err
		}
		res = append(res, c)
	}
	return res, rows.Err()
}

func (s *Store) GetCategory(ctx context.Context, id int64) (*Category, error) {
	const q = `SELECT category_id, category_name, is_disabled FROM asset_categories WHERE category_id = ?`
	var c Category
	if err := s.db.QueryRowContext(ctx, q, id).Scan(&c.CategoryID, &c.CategoryName, &c.IsDisabled); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apierr.ErrNotFound("category not found")
		}
		return nil, err
	}
	return &c, nil
}

func (s *Store) InsertCategory(ctx context.Context, name string) (int64, error) {
	const q = `INSERT INTO asset_categories (category_name, is_disabled) VALUES (?, 0)`
	r, err := s.db.ExecContext(ctx, q, name)
	if err != nil {
		return 0, apierr.FromMySQL(err, "category name already exists")
	}
	return r.LastInsertId()
}

// UpdateCategory: 削除は is_disabled=1 で表す。既存資産が参照しているので物理削除はしない。
// 存在確認は呼び出し側（Service）で行う。
func (s *Store) UpdateCategory(ctx context.Context, id int64, name string, disabled bool) error {
	const q = `UPDATE asset_categories SET category_name = ?, is_disabled = ? WHERE category_id = ?`
	if _, err := s.db.ExecContext(ctx, q, name, disabled, id); err != nil {
		return apierr.FromMySQL(err, "category name already exists")
	}
	return nil
}

// ===== service =====

func normalizeCategoryName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", apierr.ErrValidation("name is required")
	}
	return name, nil
}

func parseBoolish(s string) bool {
	s = strings.TrimSpace(strings.ToLower(s))
	return s == "1" || s == "true" || s == "yes" || s == "all"
}

func (s *Service) ListCategories(ctx context.Context, all string) ([]Category, error) {
	return s.store.ListCategories(ctx, parseBoolish(all))
}

func (s *Service) GetCategory(ctx context.Context, id int64) (*Category, error) {
	return s.store.GetCategory(ctx, id)
}

func (s *Service) CreateCategory(ctx context.Context, in CreateCategoryRequest) (*Category, error) {
	name, err := normalizeCategoryName(in.Name)
	if err != nil {
		return nil, err
	}
	id, err := s.store.InsertCategory(ctx, name)
	if err != nil {
		return nil, err
	}
	s.log.Info("category created", zap.Int64("category", id), zap.String("name", name))
	return &Category{CategoryID: id, CategoryName: name}, nil
}

func (s *Service) UpdateCategory(ctx context.Context, id int64, in UpdateCategoryRequest) (*Category, error) {
	name, err := normalizeCategoryName(in.Name)
	if err != nil {
		return nil, err
	}
	if _, err := s.store.GetCategory(ctx, id); err != nil {
		return nil, err
	}
	if err := s.store.UpdateCategory(ctx, id, name, in.IsDisabled); err != nil {
		return nil, err
	}
	return &Category{CategoryID: id, CategoryName: name, IsDisabled: in.IsDisabled}, nil
}

func (s *Service) DisableCategory(ctx context.Context, id int64) error {
	c, err := s.store.GetCategory(ctx, id)
	if err != nil {
		return err
	}
	if c.IsDisabled {
		return nil
	}
	s.log.Info("category disabled", zap.Int64("category", id))
	return s.store.UpdateCategory(ctx, id, c.CategoryName, true)
}
