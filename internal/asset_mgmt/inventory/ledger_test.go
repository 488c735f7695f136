package inventory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"EWIS-backend/internal/platform/apierr"
)

func TestApplyDelta(t *testing.T) {
	base := Snapshot{Total: 50, Available: 30, Issued: 20, MinimumThreshold: 5}

	t.Run("recomputes issued", func(t *testing.T) {
		next, err := ApplyDelta(base, Delta{Total: 20, Available: 20})
		require.NoError(t, err)
		assert.Equal(t, Snapshot{Total: 70, Available: 50, Issued: 20, MinimumThreshold: 5}, next)
	})

	t.Run("issue moves available into issued", func(t *testing.T) {
		next, err := ApplyDelta(base, Delta{Available: -10})
		require.NoError(t, err)
		assert.Equal(t, 50, next.Total)
		assert.Equal(t, 20, next.Available)
		assert.Equal(t, 30, next.Issued)
	})

	t.Run("negative available is rejected and input is untouched", func(t *testing.T) {
		next, err := ApplyDelta(base, Delta{Available: -31})
		require.Error(t, err)
		assert.True(t, apierr.Is(err, apierr.CodeInvariantViolation))
		assert.Equal(t, base, next)
	})

	t.Run("available above total is rejected", func(t *testing.T) {
		_, err := ApplyDelta(base, Delta{Available: 21})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "available exceeds total (51 > 50)")
	})

	t.Run("negative total is rejected", func(t *testing.T) {
		_, err := ApplyDelta(base, Delta{Total: -51, Available: -30})
		assert.True(t, apierr.Is(err, apierr.CodeInvariantViolation))
	})
}

func TestWithThreshold(t *testing.T) {
	s := Snapshot{Total: 10, Available: 4, Issued: 6}

	next, err := WithThreshold(s, 5)
	require.NoError(t, err)
	assert.Equal(t, 5, next.MinimumThreshold)
	assert.Equal(t, 0, s.MinimumThreshold)

	_, err = WithThreshold(s, -1)
	assert.True(t, apierr.Is(err, apierr.CodeInvariantViolation))
}

func TestNewSnapshot(t *testing.T) {
	s, err := NewSnapshot(10, 7, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, s.Issued)

	_, err = NewSnapshot(5, 6, 0)
	assert.Error(t, err)
}

func TestSnapshot_BelowThreshold(t *testing.T) {
	cases := []struct {
		name string
		s    Snapshot
		want bool
	}{
		{"threshold zero is not watched", Snapshot{Total: 1, Available: 0, Issued: 1}, false},
		{"equal to threshold", Snapshot{Total: 10, Available: 3, Issued: 7, MinimumThreshold: 3}, true},
		{"above threshold", Snapshot{Total: 10, Available: 4, Issued: 6, MinimumThreshold: 3}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.s.BelowThreshold())
		})
	}
}
