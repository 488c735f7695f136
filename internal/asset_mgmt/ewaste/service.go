package ewaste

import (
	"context"
	"database/sql"
	"sort"

	"go.uber.org/zap"

	"EWIS-backend/internal/platform/idgen"
)

type ReportQuery struct {
	Type   ReportType
	Period Period
	Filter Scope // LocationID は呼び出し側で権限に応じて解決済みであること
}

type Service struct {
	store *Store
	clock idgen.Clock
	log   *zap.Logger
}

func NewService(db *sql.DB, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{store: NewStore(db), clock: idgen.RealClock{}, log: log}
}

// GET /ewaste/reports
func (s *Service) Report(ctx context.Context, q ReportQuery) (*Report, error) {
	statuses, err := q.Type.statuses()
	if err != nil {
		return nil, err
	}
	from, to, err := q.Period.Range(s.clock.Now())
	if err != nil {
		return nil, err
	}

	rows, err := s.store.ListReportRows(ctx, statuses, from, to)
	if err != nil {
		return nil, err
	}

	// 名前は実効スコープに現れる ID だけ引く
	depIDs, secIDs := effectiveIDs(rows)
	names, err := s.store.LookupNames(ctx, depIDs, secIDs)
	if err != nil {
		return nil, err
	}

	rep := Aggregate(rows, names, q.Filter)
	s.log.Debug("ewaste report built",
		zap.Time("from", from),
		zap.Time("to", to),
		zap.Int("records", len(rows)),
		zap.Int("generated_groups", len(rep.Generated)),
		zap.Int("collected_groups", len(rep.Collected)))
	return &rep, nil
}

func effectiveIDs(rows []ReportRow) ([]int64, []int64) {
	deps := map[int64]struct{}{}
	secs := map[int64]struct{}{}
	for _, r := range rows {
		eff := r.EffectiveScope()
		if eff.DepartmentID != nil {
			deps[*eff.DepartmentID] = struct{}{}
		}
		if eff.SectionID != nil {
			secs[*eff.SectionID] = struct{}{}
		}
	}
	return sortedKeys(deps), sortedKeys(secs)
}

func sortedKeys(m map[int64]struct{}) []int64 {
	out := make([]int64, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
