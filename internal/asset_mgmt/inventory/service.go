package inventory

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"EWIS-backend/internal/platform/apierr"
	"EWIS-backend/internal/platform/db"
	"EWIS-backend/internal/platform/idgen"
	"EWIS-backend/internal/platform/metrics"
)

type Service struct {
	db      *sql.DB
	store   *Store
	clock   idgen.Clock
	id      idgen.IDGen
	log     *zap.Logger
	metrics *metrics.Metrics
}

func NewService(conn *sql.DB, log *zap.Logger, m *metrics.Metrics) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		db:      conn,
		store:   NewStore(),
		clock:   idgen.RealClock{},
		id:      idgen.ULIDGen{},
		log:     log,
		metrics: m,
	}
}

// PUT /inventory/update-inventory/:id
//
// 台帳更新と履歴追記は同一 Tx。履歴が書けなければ台帳更新ごと巻き戻す。
func (s *Service) Adjust(ctx context.Context, ledgerULID string, req AdjustRequest, updatedBy string) (*AdjustResponse, error) {
	adj, err := ParseAdjustment(strings.TrimSpace(req.Reason), req.AdjustmentQuantity, req.MinimumThreshold)
	if err != nil {
		return nil, err
	}

	var (
		cur  *Ledger
		hist *History
	)
	err = db.RunInTx(ctx, s.db, nil, func(ctx context.Context, tx db.DBTX) error {
		var err error
		cur, err = s.store.LockLedgerByULID(ctx, tx, ledgerULID)
		if err != nil {
			return err
		}

		next, err := Apply(cur.Snapshot, adj)
		if err != nil {
			if apierr.Is(err, apierr.CodeInvariantViolation) {
				s.metrics.InvariantViolated("adjustment")
				s.log.Warn("adjustment rejected by stock invariant",
					zap.String("ledger", ledgerULID),
					zap.String("reason", string(adj.Reason())),
					zap.Int("quantity", adj.Quantity()),
					zap.Error(err))
			}
			return err
		}

		now := s.clock.Now()
		if err := s.store.UpdateLedger(ctx, tx, cur, next, updatedBy, now); err != nil {
			return err
		}

		hist = &History{
			AdjustmentULID:     s.id.NewULID(now),
			LedgerID:           cur.LedgerID,
			AssetID:            cur.AssetID,
			Reason:             adj.Reason(),
			AdjustmentQuantity: adj.Quantity(),
			Description:        nullStringPtr(req.Description),
			Previous:           cur.Snapshot,
			New:                next,
			UpdatedBy:          nullString(updatedBy),
			CreatedAt:          now,
		}
		if err := s.store.InsertHistory(ctx, tx, hist); err != nil {
			s.metrics.HistoryAppendFailed()
			s.log.Error("history append failed; rolling back ledger update",
				zap.String("ledger", ledgerULID),
				zap.String("reason", string(adj.Reason())),
				zap.Error(err))
			return fmt.Errorf("append adjustment history: %w", err)
		}

		cur.Snapshot = next
		cur.LastUpdatedAt = now
		cur.UpdatedBy = hist.UpdatedBy
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.AdjustmentCommitted(string(adj.Reason()))
	s.log.Info("inventory adjusted",
		zap.String("ledger", ledgerULID),
		zap.String("reason", string(adj.Reason())),
		zap.Int("total", cur.Snapshot.Total),
		zap.Int("available", cur.Snapshot.Available))

	return &AdjustResponse{
		Inventory: toLedgerResponse(cur),
		History:   toHistoryResponse(hist, cur.LedgerULID),
	}, nil
}

// POST /inventory/create-inventory
func (s *Service) CreateInventory(ctx context.Context, req CreateInventoryRequest, updatedBy string) (*LedgerResponse, error) {
	if strings.TrimSpace(req.AssetID) == "" {
		return nil, apierr.ErrValidation("assetId is required")
	}
	if req.TotalStock < 0 || req.AvailableStock < 0 || req.MinimumThreshold < 0 {
		return nil, apierr.ErrValidation("stock values must be >= 0")
	}
	if req.AvailableStock > req.TotalStock {
		return nil, apierr.ErrValidation("availableStock must be <= totalStock")
	}
	snap, err := NewSnapshot(req.TotalStock, req.AvailableStock, req.MinimumThreshold)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	l := &Ledger{
		LedgerULID:    s.id.NewULID(now),
		AssetULID:     req.AssetID,
		Snapshot:      snap,
		LastUpdatedAt: now,
		UpdatedBy:     nullString(updatedBy),
	}

	err = db.RunInTx(ctx, s.db, nil, func(ctx context.Context, tx db.DBTX) error {
		assetID, err := s.store.ResolveAssetID(ctx, tx, req.AssetID)
		if err != nil {
			return err
		}
		l.AssetID = assetID

		ledgerID, err := s.store.InsertLedger(ctx, tx, l)
		if err != nil {
			return err
		}
		l.LedgerID = ledgerID

		return s.store.InsertHistory(ctx, tx, &History{
			AdjustmentULID:     s.id.NewULID(now),
			LedgerID:           ledgerID,
			AssetID:            assetID,
			Reason:             ReasonInitial,
			AdjustmentQuantity: snap.Total,
			Previous:           Snapshot{},
			New:                snap,
			UpdatedBy:          l.UpdatedBy,
			CreatedAt:          now,
		})
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("inventory created", zap.String("ledger", l.LedgerULID), zap.String("asset", req.AssetID))
	res := toLedgerResponse(l)
	return &res, nil
}

func (s *Service) GetInventory(ctx context.Context, ledgerULID string) (*LedgerResponse, error) {
	l, err := s.store.GetLedgerByULID(ctx, s.db, ledgerULID)
	if err != nil {
		return nil, err
	}
	res := toLedgerResponse(l)
	return &res, nil
}

func (s *Service) ListInventories(ctx context.Context, f LedgerFilter, p Page) ([]LedgerResponse, int64, int, error) {
	p = p.normalize()
	rows, total, err := s.store.ListLedgers(ctx, s.db, f, p)
	if err != nil {
		return nil, 0, 0, err
	}
	out := make([]LedgerResponse, 0, len(rows))
	for i := range rows {
		out = append(out, toLedgerResponse(&rows[i]))
	}
	return out, total, p.next(total), nil
}

func (s *Service) ListHistory(ctx context.Context, ledgerULID string, p Page) ([]HistoryResponse, int64, int, error) {
	p = p.normalize()
	l, err := s.store.GetLedgerByULID(ctx, s.db, ledgerULID)
	if err != nil {
		return nil, 0, 0, err
	}
	rows, total, err := s.store.ListHistory(ctx, s.db, l.LedgerID, p)
	if err != nil {
		return nil, 0, 0, err
	}
	out := make([]HistoryResponse, 0, len(rows))
	for i := range rows {
		out = append(out, toHistoryResponse(&rows[i], l.LedgerULID))
	}
	return out, total, p.next(total), nil
}

// LowStock は定期ジョブから呼ばれる。
func (s *Service) LowStock(ctx context.Context) ([]LedgerResponse, error) {
	rows, err := s.store.ListLowStock(ctx, s.db)
	if err != nil {
		return nil, err
	}
	out := make([]LedgerResponse, 0, len(rows))
	for i := range rows {
		out = append(out, toLedgerResponse(&rows[i]))
	}
	return out, nil
}

func nullStringPtr(p *string) sql.NullString {
	if p == nil {
		return sql.NullString{}
	}
	return nullString(*p)
}
