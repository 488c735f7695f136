// Package scheduler は定期ジョブ（現在は低在庫チェックのみ）を管理する。
package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"EWIS-backend/internal/asset_mgmt/inventory"
	"EWIS-backend/internal/platform/metrics"
)

// LowStockSource は inventory.Service が満たす。
type LowStockSource interface {
	LowStock(ctx context.Context) ([]inventory.LedgerResponse, error)
}

type Scheduler struct {
	cron    *cron.Cron
	expr    string
	source  LowStockSource
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// New: expr が空なら Start しても何もしない
func New(expr string, source LowStockSource, m *metrics.Metrics, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		cron:    cron.New(cron.WithLocation(time.UTC)),
		expr:    expr,
		source:  source,
		metrics: m,
		logger:  logger,
	}
}

func (s *Scheduler) Start() error {
	if s.expr == "" {
		s.logger.Info("low stock check disabled")
		return nil
	}
	if _, err := s.cron.AddFunc(s.expr, s.CheckLowStock); err != nil {
		return err
	}
	s.logger.Info("starting scheduler", zap.String("low_stock_cron", s.expr))
	s.cron.Start()
	return nil
}

// Stop は実行中のジョブの完了を待つ。
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("scheduler stopped")
}

// CheckLowStock は閾値以下の台帳を数えてログとゲージに出す。台帳は書き換えない。
func (s *Scheduler) CheckLowStock() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	items, err := s.source.LowStock(ctx)
	if err != nil {
		s.logger.Error("low stock check failed", zap.Error(err))
		return
	}
	s.metrics.SetLowStockAssets(len(items))
	if len(items) == 0 {
		s.logger.Debug("no assets below threshold")
		return
	}
	for _, it := range items {
		s.logger.Warn("asset below minimum threshold",
			zap.String("inventory", it.InventoryID),
			zap.String("asset", it.AssetID),
			zap.Int("available", it.AvailableStock),
			zap.Int("threshold", it.MinimumThreshold))
	}
}
