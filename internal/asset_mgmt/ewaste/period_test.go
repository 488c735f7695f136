package ewaste

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"EWIS-backend/internal/platform/apierr"
)

func day(y int, m time.Month, d int) time.Time { return time.Date(y, m, d, 0, 0, 0, 0, time.UTC) }

func TestPeriod_Range(t *testing.T) {
	now := time.Date(2024, 7, 15, 10, 30, 0, 0, time.UTC)

	cases := []struct {
		name     string
		p        Period
		from, to time.Time
	}{
		{"month", Period{Kind: "month", Year: 2024, Month: 2}, day(2024, 2, 1), day(2024, 3, 1)},
		{"december rolls into next year", Period{Kind: "month", Year: 2023, Month: 12}, day(2023, 12, 1), day(2024, 1, 1)},
		{"month defaults to now", Period{Kind: "month"}, day(2024, 7, 1), day(2024, 8, 1)},
		{"year", Period{Kind: "year", Year: 2024}, day(2024, 1, 1), day(2025, 1, 1)},
		{"year defaults to now", Period{Kind: "year"}, day(2024, 1, 1), day(2025, 1, 1)},
		{"custom includes end date", Period{Kind: "custom", StartDate: "2024-03-01", EndDate: "2024-03-31"}, day(2024, 3, 1), day(2024, 4, 1)},
		{"custom single day", Period{Kind: "custom", StartDate: "2024-03-05", EndDate: "2024-03-05"}, day(2024, 3, 5), day(2024, 3, 6)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			from, to, err := tc.p.Range(now)
			require.NoError(t, err)
			assert.Equal(t, tc.from, from)
			assert.Equal(t, tc.to, to)
		})
	}
}

func TestPeriod_Range_YearExcludesPreviousNewYearsEve(t *testing.T) {
	from, to, err := Period{Kind: "year", Year: 2024}.Range(time.Now())
	require.NoError(t, err)

	nye := time.Date(2023, 12, 31, 23, 59, 59, 0, time.UTC)
	assert.True(t, nye.Before(from))
	assert.True(t, day(2024, 12, 31).Before(to))
}

func TestPeriod_Range_Errors(t *testing.T) {
	cases := []Period{
		{Kind: "week"},
		{Kind: "month", Month: 13},
		{Kind: "custom", StartDate: "2024-01-01"},
		{Kind: "custom", StartDate: "2024/01/01", EndDate: "2024-01-02"},
		{Kind: "custom", StartDate: "2024-02-01", EndDate: "2024-01-31"},
	}
	for _, p := range cases {
		_, _, err := p.Range(time.Now())
		assert.True(t, apierr.Is(err, apierr.CodeValidation), "%+v", p)
	}
}

func TestReportType_Statuses(t *testing.T) {
	st, err := TypeGenerated.statuses()
	require.NoError(t, err)
	assert.Equal(t, []Status{StatusGenerated}, st)

	st, err = ReportType("").statuses()
	require.NoError(t, err)
	assert.Len(t, st, 2)

	_, err = ReportType("disposed").statuses()
	assert.Error(t, err)
}
