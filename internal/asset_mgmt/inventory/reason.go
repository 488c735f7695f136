package inventory

import (
	"math"

	"EWIS-backend/internal/platform/apierr"
)

type Reason string

const (
	ReasonRestock            Reason = "restock"
	ReasonCorrectionIncrease Reason = "correction_increase"
	ReasonCorrectionDecrease Reason = "correction_decrease"
	ReasonDamage             Reason = "damage"
	ReasonMaintenance        Reason = "maintenance"
	ReasonThresholdUpdate    Reason = "threshold_update"

	// 台帳作成時の初期履歴専用。Adjust では受け付けない。
	ReasonInitial Reason = "initial"
)

// Adjustment は理由ごとの調整。実装はこのパッケージ内の6種類に閉じている。
type Adjustment interface {
	Reason() Reason
	// Quantity は履歴に残す調整数量（threshold_update は 0）
	Quantity() int
	apply(s Snapshot) (Snapshot, error)
}

type Restock struct {
	Qty int
	// nil なら閾値は据え置き
	MinimumThreshold *int
}

type CorrectionIncrease struct{ Qty int }
type CorrectionDecrease struct{ Qty int }
type Damage struct{ Qty int }
type Maintenance struct{ Qty int }
type ThresholdUpdate struct{ MinimumThreshold int }

func (Restock) Reason() Reason            { return ReasonRestock }
func (CorrectionIncrease) Reason() Reason { return ReasonCorrectionIncrease }
func (CorrectionDecrease) Reason() Reason { return ReasonCorrectionDecrease }
func (Damage) Reason() Reason             { return ReasonDamage }
func (Maintenance) Reason() Reason        { return ReasonMaintenance }
func (ThresholdUpdate) Reason() Reason    { return ReasonThresholdUpdate }

func (a Restock) Quantity() int            { return a.Qty }
func (a CorrectionIncrease) Quantity() int { return a.Qty }
func (a CorrectionDecrease) Quantity() int { return a.Qty }
func (a Damage) Quantity() int             { return a.Qty }
func (a Maintenance) Quantity() int        { return a.Qty }
func (ThresholdUpdate) Quantity() int      { return 0 }

func (a Restock) apply(s Snapshot) (Snapshot, error) {
	next, err := ApplyDelta(s, Delta{Total: a.Qty, Available: a.Qty})
	if err != nil || a.MinimumThreshold == nil {
		return next, err
	}
	return WithThreshold(next, *a.MinimumThreshold)
}

func (a CorrectionIncrease) apply(s Snapshot) (Snapshot, error) {
	return ApplyDelta(s, Delta{Available: a.Qty})
}

func (a CorrectionDecrease) apply(s Snapshot) (Snapshot, error) {
	return ApplyDelta(s, Delta{Available: -min(a.Qty, s.Available)})
}

// 破損は総数・利用可能数の両方から引く。どちらも 0 で止める。
func (a Damage) apply(s Snapshot) (Snapshot, error) {
	return ApplyDelta(s, Delta{
		Total:     -min(a.Qty, s.Total),
		Available: -min(a.Qty, s.Available),
	})
}

func (a Maintenance) apply(s Snapshot) (Snapshot, error) {
	return ApplyDelta(s, Delta{Available: -min(a.Qty, s.Available)})
}

func (a ThresholdUpdate) apply(s Snapshot) (Snapshot, error) {
	return WithThreshold(s, a.MinimumThreshold)
}

// Apply は調整後の Snapshot を返す。元の値は変更しない。
func Apply(s Snapshot, adj Adjustment) (Snapshot, error) {
	return adj.apply(s)
}

// ParseAdjustment はリクエストの reason と数値を型付きの Adjustment に変換する。
// 数量は floor して 0 未満は 0 に丸めた上で > 0 を要求する。
func ParseAdjustment(reason string, quantity, threshold *float64) (Adjustment, error) {
	r := Reason(reason)
	switch r {
	case ReasonThresholdUpdate:
		t, err := requireThreshold(threshold)
		if err != nil {
			return nil, err
		}
		return ThresholdUpdate{MinimumThreshold: t}, nil
	case ReasonRestock, ReasonCorrectionIncrease, ReasonCorrectionDecrease, ReasonDamage, ReasonMaintenance:
	default:
		return nil, apierr.ErrInvalidReason(reason)
	}

	if quantity == nil {
		return nil, apierr.ErrValidation("adjustmentQuantity is required")
	}
	q := clampQuantity(*quantity)
	if q <= 0 {
		return nil, apierr.ErrValidation("adjustmentQuantity must be > 0")
	}

	switch r {
	case ReasonRestock:
		a := Restock{Qty: q}
		if threshold != nil {
			t, err := requireThreshold(threshold)
			if err != nil {
				return nil, err
			}
			a.MinimumThreshold = &t
		}
		return a, nil
	case ReasonCorrectionIncrease:
		return CorrectionIncrease{Qty: q}, nil
	case ReasonCorrectionDecrease:
		return CorrectionDecrease{Qty: q}, nil
	case ReasonDamage:
		return Damage{Qty: q}, nil
	default:
		return Maintenance{Qty: q}, nil
	}
}

func requireThreshold(v *float64) (int, error) {
	if v == nil {
		return 0, apierr.ErrValidation("minimumThreshold is required")
	}
	if math.IsNaN(*v) || *v < 0 {
		return 0, apierr.ErrValidation("minimumThreshold must be >= 0")
	}
	return clampQuantity(*v), nil
}

// q = max(0, floor(x))
func clampQuantity(x float64) int {
	if math.IsNaN(x) || x <= 0 {
		return 0
	}
	if x >= math.MaxInt32 {
		return math.MaxInt32
	}
	return int(math.Floor(x))
}
