package issuance

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"EWIS-backend/internal/asset_mgmt/assets"
	"EWIS-backend/internal/asset_mgmt/ewaste"
	"EWIS-backend/internal/asset_mgmt/inventory"
	"EWIS-backend/internal/platform/apierr"
	"EWIS-backend/internal/platform/auth"
	"EWIS-backend/internal/platform/db"
	"EWIS-backend/internal/platform/idgen"
	"EWIS-backend/internal/platform/metrics"
)

type Service struct {
	db      *sql.DB
	store   *Store
	ledger  *inventory.Store
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
		ledger:  inventory.NewStore(),
		clock:   idgen.RealClock{},
		id:      idgen.ULIDGen{},
		log:     log,
		metrics: m,
	}
}

// POST /transaction/issue/:requestId
//
// 申請のロックから E-waste 記録までを 1 Tx で行う。途中で失敗すれば台帳も申請も元のまま。
func (s *Service) Issue(ctx context.Context, requestULID string, in IssueRequest, caller auth.Caller) (*IssueResponse, error) {
	issuerID := caller.UserID
	if strings.TrimSpace(issuerID) == "" {
		return nil, apierr.ErrValidation("issuer is required")
	}

	res := &IssueResponse{Success: true, RequestID: requestULID}
	var ewasteStatus ewaste.Status

	err := db.RunInTx(ctx, s.db, nil, func(ctx context.Context, tx db.DBTX) error {
		req, err := s.store.LockRequest(ctx, tx, requestULID)
		if err != nil {
			return err
		}
		if !inScope(caller, req.LocationID) {
			return apierr.ErrNotFound("request not found")
		}
		if req.Status != StatusPending {
			return apierr.ErrInvalidState(fmt.Sprintf("request is %s, only pending requests can be issued", req.Status))
		}

		asset, err := assets.GetAssetTx(ctx, tx, req.AssetID)
		if err != nil {
			return err
		}

		led, err := s.ledger.LockLedgerByAssetID(ctx, tx, req.AssetID)
		if err != nil {
			return err
		}
		if led.Snapshot.Available < req.Quantity {
			return apierr.ErrInsufficientStock(led.Snapshot.Available, req.Quantity)
		}

		// 在庫確認の後、書き込み前に E-waste 数量を検証
		ewasteQty := 0
		if in.EwasteQuantity != nil {
			ewasteQty = *in.EwasteQuantity
		}
		if asset.IsEwaste && (ewasteQty < 0 || ewasteQty > req.Quantity) {
			return apierr.ErrInvalidEwasteQuantity(ewasteQty, req.Quantity)
		}

		next, err := inventory.ApplyDelta(led.Snapshot, inventory.Delta{Available: -req.Quantity})
		if err != nil {
			s.metrics.InvariantViolated("issue")
			s.log.Error("issue delta broke stock invariant",
				zap.String("request", requestULID),
				zap.String("ledger", led.LedgerULID),
				zap.Error(err))
			return err
		}

		now := s.clock.Now()
		if err := s.ledger.UpdateLedger(ctx, tx, led, next, issuerID, now); err != nil {
			return err
		}

		txn := &Transaction{
			TransactionULID: s.id.NewULID(now),
			Type:            TypeIssue,
			AssetID:         req.AssetID,
			RequestID:       sql.NullInt64{Int64: req.RequestID, Valid: true},
			RequestedBy:     req.RequestedBy,
			IssuedBy:        issuerID,
			LocationID:      req.LocationID,
			DepartmentID:    req.DepartmentID,
			SectionID:       req.SectionID,
			Quantity:        req.Quantity,
			TransactionDate: now,
		}
		txnID, err := s.store.InsertTransaction(ctx, tx, txn)
		if err != nil {
			return err
		}
		res.TransactionID = txn.TransactionULID

		if err := s.store.MarkIssued(ctx, tx, req.RequestID, issuerID, now); err != nil {
			return err
		}

		if !asset.IsEwaste {
			return nil
		}
		// 未回収なら数量・重量とも 0 で記録する
		recordQty := 0
		if in.EwasteReceived {
			recordQty = ewasteQty
		}
		ewasteStatus = ewaste.StatusGenerated
		if recordQty > 0 {
			ewasteStatus = ewaste.StatusCollected
		}
		_, err = ewaste.InsertRecordTx(ctx, tx, &ewaste.Record{
			RecordULID:    s.id.NewULID(now),
			TransactionID: sql.NullInt64{Int64: txnID, Valid: true},
			AssetID:       req.AssetID,
			Quantity:      recordQty,
			TotalWeight:   asset.UnitWeight.Mul(decimal.NewFromInt(int64(recordQty))),
			ReceiveDate:   now,
			Status:        ewasteStatus,
			LocationID:    sql.NullInt64{Int64: req.LocationID, Valid: true},
			DepartmentID:  req.DepartmentID,
			SectionID:     req.SectionID,
			CreatedBy:     sql.NullString{String: issuerID, Valid: true},
		})
		return err
	})
	if err != nil {
		s.metrics.RequestReviewed("failed")
		return nil, err
	}

	s.metrics.RequestReviewed("issued")
	fields := []zap.Field{zap.String("request", requestULID), zap.String("transaction", res.TransactionID)}
	if ewasteStatus != "" {
		st := string(ewasteStatus)
		res.EwasteStatus = &st
		s.metrics.EwasteRecorded(st)
		fields = append(fields, zap.String("ewaste_status", st))
	}
	s.log.Info("request issued", fields...)
	return res, nil
}

// POST /request/reject/:requestId
func (s *Service) Reject(ctx context.Context, requestULID string, in RejectRequest, caller auth.Caller) (*RejectResponse, error) {
	reviewerID := caller.UserID
	reason := strings.TrimSpace(in.RejectionReason)
	if reason == "" {
		return nil, apierr.ErrValidation("rejectionReason is required")
	}

	err := db.RunInTx(ctx, s.db, nil, func(ctx context.Context, tx db.DBTX) error {
		req, err := s.store.LockRequest(ctx, tx, requestULID)
		if err != nil {
			return err
		}
		if !inScope(caller, req.LocationID) {
			return apierr.ErrNotFound("request not found")
		}
		if req.Status != StatusPending {
			return apierr.ErrInvalidState(fmt.Sprintf("request is %s, only pending requests can be rejected", req.Status))
		}
		return s.store.MarkRejected(ctx, tx, req.RequestID, reviewerID, reason, s.clock.Now())
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RequestReviewed("rejected")
	s.log.Info("request rejected", zap.String("request", requestULID), zap.String("reviewer", reviewerID))
	return &RejectResponse{Success: true, RequestID: requestULID}, nil
}

// POST /request
func (s *Service) CreateRequest(ctx context.Context, in CreateRequestRequest, caller auth.Caller) (*RequestResponse, error) {
	if in.Quantity <= 0 {
		return nil, apierr.ErrValidation("quantity must be > 0")
	}
	if strings.TrimSpace(caller.UserID) == "" {
		return nil, apierr.ErrValidation("requester is required")
	}
	loc := caller.ScopeLocation(in.LocationID)
	if loc == nil {
		return nil, apierr.ErrValidation("locationId is required")
	}

	now := s.clock.Now()
	r := &Request{
		RequestULID:  s.id.NewULID(now),
		AssetULID:    in.AssetID,
		Quantity:     in.Quantity,
		RequestedBy:  caller.UserID,
		LocationID:   *loc,
		DepartmentID: nullInt64(in.DepartmentID),
		SectionID:    nullInt64(in.SectionID),
		Status:       StatusPending,
		CreatedAt:    now,
	}

	err := db.RunInTx(ctx, s.db, nil, func(ctx context.Context, tx db.DBTX) error {
		assetID, err := s.ledger.ResolveAssetID(ctx, tx, in.AssetID)
		if err != nil {
			return err
		}
		r.AssetID = assetID
		id, err := s.store.InsertRequest(ctx, tx, r)
		if err != nil {
			return err
		}
		r.RequestID = id
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("request created", zap.String("request", r.RequestULID), zap.String("asset", in.AssetID), zap.Int("quantity", in.Quantity))
	out := toRequestResponse(r)
	return &out, nil
}

// GetRequest: scope が非 nil なら他拠点の申請は存在しないものとして扱う
func (s *Service) GetRequest(ctx context.Context, requestULID string, scope *int64) (*RequestResponse, error) {
	r, err := s.store.GetRequest(ctx, s.db, requestULID)
	if err != nil {
		return nil, err
	}
	if scope != nil && r.LocationID != *scope {
		return nil, apierr.ErrNotFound("request not found")
	}
	out := toRequestResponse(r)
	return &out, nil
}

func (s *Service) ListRequests(ctx context.Context, f RequestFilter, p Page) ([]RequestResponse, int64, int, error) {
	p = p.normalize()
	rows, total, err := s.store.ListRequests(ctx, s.db, f, p)
	if err != nil {
		return nil, 0, 0, err
	}
	out := make([]RequestResponse, 0, len(rows))
	for i := range rows {
		out = append(out, toRequestResponse(&rows[i]))
	}
	return out, total, nextOffset(total, p), nil
}

// POST /transaction/return/:transactionId
//
// 部分返却可。過去の返却との合計が払い出し数量を超えたら QUANTITY_OVER_RETURN。
func (s *Service) Return(ctx context.Context, transactionULID string, in ReturnRequest, caller auth.Caller) (*ReturnResponse, error) {
	processedBy := caller.UserID
	if in.Quantity <= 0 {
		return nil, apierr.ErrValidation("quantity must be > 0")
	}

	var out ReturnResponse
	err := db.RunInTx(ctx, s.db, nil, func(ctx context.Context, tx db.DBTX) error {
		parent, err := s.store.LockTransaction(ctx, tx, transactionULID)
		if err != nil {
			return err
		}
		if !inScope(caller, parent.LocationID) {
			return apierr.ErrNotFound("transaction not found")
		}
		if parent.Type != TypeIssue {
			return apierr.ErrInvalidState("only issue transactions can be returned")
		}

		returned, err := s.store.SumReturned(ctx, tx, parent.TransactionID)
		if err != nil {
			return err
		}
		if returned+in.Quantity > parent.Quantity {
			return apierr.ErrQuantityOverReturn()
		}

		led, err := s.ledger.LockLedgerByAssetID(ctx, tx, parent.AssetID)
		if err != nil {
			return err
		}
		next, err := inventory.ApplyDelta(led.Snapshot, inventory.Delta{Available: in.Quantity})
		if err != nil {
			s.metrics.InvariantViolated("return")
			s.log.Error("return delta broke stock invariant",
				zap.String("transaction", transactionULID),
				zap.String("ledger", led.LedgerULID),
				zap.Error(err))
			return err
		}

		now := s.clock.Now()
		if err := s.ledger.UpdateLedger(ctx, tx, led, next, processedBy, now); err != nil {
			return err
		}

		ret := &Transaction{
			TransactionULID:     s.id.NewULID(now),
			Type:                TypeReturn,
			AssetID:             parent.AssetID,
			AssetULID:           parent.AssetULID,
			ParentTransactionID: sql.NullInt64{Int64: parent.TransactionID, Valid: true},
			RequestedBy:         parent.RequestedBy,
			IssuedBy:            processedBy,
			LocationID:          parent.LocationID,
			DepartmentID:        parent.DepartmentID,
			SectionID:           parent.SectionID,
			Quantity:            in.Quantity,
			Note:                nullStringPtr(in.Note),
			TransactionDate:     now,
		}
		id, err := s.store.InsertTransaction(ctx, tx, ret)
		if err != nil {
			return err
		}
		ret.TransactionID = id

		out = ReturnResponse{
			Transaction:         toTransactionResponse(ret),
			ParentTransactionID: parent.TransactionULID,
			ReturnedQuantity:    returned + in.Quantity,
			OutstandingQuantity: parent.Quantity - returned - in.Quantity,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("return recorded",
		zap.String("parent", transactionULID),
		zap.String("transaction", out.Transaction.TransactionID),
		zap.Int("quantity", in.Quantity))
	return &out, nil
}

func (s *Service) ListTransactions(ctx context.Context, f TransactionFilter, p Page) ([]TransactionResponse, int64, int, error) {
	p = p.normalize()
	rows, total, err := s.store.ListTransactions(ctx, s.db, f, p)
	if err != nil {
		return nil, 0, 0, err
	}
	out := make([]TransactionResponse, 0, len(rows))
	for i := range rows {
		out = append(out, toTransactionResponse(&rows[i]))
	}
	return out, total, nextOffset(total, p), nil
}

// inScope: superAdmin 以外は自拠点の行だけ操作できる。拠点未割当は常に範囲外。
func inScope(c auth.Caller, loc int64) bool {
	if c.IsSuperAdmin() {
		return true
	}
	return c.LocationID != nil && *c.LocationID == loc
}

func nullInt64(p *int64) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *p, Valid: true}
}

func nullStringPtr(p *string) sql.NullString {
	if p == nil || strings.TrimSpace(*p) == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: strings.TrimSpace(*p), Valid: true}
}
