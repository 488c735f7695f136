package inventory

import (
	"fmt"

	"EWIS-backend/internal/platform/apierr"
)

// Delta は台帳に加える符号付き差分。Total と Available は常に同時に適用される。
type Delta struct {
	Total     int
	Available int
}

// ApplyDelta は候補値を計算し、不変条件を満たす場合のみ新しい Snapshot を返す。
// 違反時は元の Snapshot に一切触れずに INVARIANT_VIOLATION を返す。
func ApplyDelta(s Snapshot, d Delta) (Snapshot, error) {
	next := Snapshot{
		Total:            s.Total + d.Total,
		Available:        s.Available + d.Available,
		MinimumThreshold: s.MinimumThreshold,
	}
	next.Issued = next.Total - next.Available
	if err := next.Validate(); err != nil {
		return s, err
	}
	return next, nil
}

// WithThreshold は閾値だけを差し替えた Snapshot を返す。
func WithThreshold(s Snapshot, threshold int) (Snapshot, error) {
	next := s
	next.MinimumThreshold = threshold
	if err := next.Validate(); err != nil {
		return s, err
	}
	return next, nil
}

// NewSnapshot は初期在庫の登録用。
func NewSnapshot(total, available, threshold int) (Snapshot, error) {
	s := Snapshot{
		Total:            total,
		Available:        available,
		Issued:           total - available,
		MinimumThreshold: threshold,
	}
	if err := s.Validate(); err != nil {
		return Snapshot{}, err
	}
	return s, nil
}

func (s Snapshot) Validate() error {
	switch {
	case s.Total < 0:
		return apierr.ErrInvariant(fmt.Sprintf("total stock cannot be negative (got %d)", s.Total))
	case s.Available < 0:
		return apierr.ErrInvariant(fmt.Sprintf("available stock cannot be negative (got %d)", s.Available))
	case s.MinimumThreshold < 0:
		return apierr.ErrInvariant(fmt.Sprintf("minimum threshold cannot be negative (got %d)", s.MinimumThreshold))
	case s.Available > s.Total:
		return apierr.ErrInvariant(fmt.Sprintf("available exceeds total (%d > %d)", s.Available, s.Total))
	case s.Issued != s.Total-s.Available:
		return apierr.ErrInvariant("issued stock must equal total minus available")
	}
	return nil
}

// BelowThreshold: 閾値 0 は「監視しない」扱い
func (s Snapshot) BelowThreshold() bool {
	return s.MinimumThreshold > 0 && s.Available <= s.MinimumThreshold
}
