package assets

import (
	"context"
	"database/sql"
	"strings"

	"go.uber.org/zap"

	"EWIS-backend/internal/platform/apierr"
	"EWIS-backend/internal/platform/idgen"
)

type Service struct {
	store *Store
	clock idgen.Clock
	id    idgen.IDGen
	log   *zap.Logger
}

func NewService(db *sql.DB, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		store: NewStore(db),
		clock: idgen.RealClock{},
		id:    idgen.ULIDGen{},
		log:   log,
	}
}

func (s *Service) CreateAsset(ctx context.Context, in CreateAssetRequest) (*AssetResponse, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, apierr.ErrValidation("name is required")
	}
	if in.CategoryID <= 0 {
		return nil, apierr.ErrValidation("categoryId must be > 0")
	}
	if in.UnitWeight.IsNegative() {
		return nil, apierr.ErrValidation("unitWeight must be >= 0")
	}

	now := s.clock.Now()
	a := &Asset{
		AssetULID:  s.id.NewULID(now),
		Name:       name,
		CategoryID: sql.NullInt64{Int64: in.CategoryID, Valid: true},
		UnitWeight: in.UnitWeight,
		IsEwaste:   in.IsEwaste,
		CreatedAt:  now,
	}
	id, err := s.store.Insert(ctx, a)
	if err != nil {
		return nil, err
	}
	a.AssetID = id

	s.log.Info("asset created", zap.String("asset", a.AssetULID), zap.Bool("ewaste", a.IsEwaste))
	res := toResponse(a)
	return &res, nil
}

func (s *Service) GetAsset(ctx context.Context, assetULID string) (*AssetResponse, error) {
	a, err := s.store.GetByULID(ctx, assetULID)
	if err != nil {
		return nil, err
	}
	res := toResponse(a)
	return &res, nil
}

func (s *Service) ListAssets(ctx context.Context, q AssetSearchQuery, p Page) ([]AssetResponse, int64, error) {
	if p.Limit <= 0 || p.Limit > 200 {
		p.Limit = 50
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	rows, total, err := s.store.List(ctx, q, p)
	if err != nil {
		return nil, 0, err
	}
	out := make([]AssetResponse, 0, len(rows))
	for i := range rows {
		out = append(out, toResponse(&rows[i]))
	}
	return out, total, nil
}
