package ewaste

import (
	"time"

	"EWIS-backend/internal/platform/apierr"
)

const dateLayout = "2006-01-02"

type ReportType string

const (
	TypeGenerated ReportType = "generated"
	TypeCollected ReportType = "collected"
	TypeBoth      ReportType = "both"
)

func (t ReportType) statuses() ([]Status, error) {
	switch t {
	case TypeGenerated:
		return []Status{StatusGenerated}, nil
	case TypeCollected:
		return []Status{StatusCollected}, nil
	case TypeBoth, "":
		return []Status{StatusGenerated, StatusCollected}, nil
	}
	return nil, apierr.ErrValidation("type must be one of generated, collected, both")
}

type Period struct {
	Kind      string // month / year / custom
	Year      int
	Month     int
	StartDate string
	EndDate   string
}

// Range は [from, to) の UTC 範囲を返す。year/month 未指定は now の年月。
// custom は終了日を含むので to は endDate の翌日 0 時。
func (p Period) Range(now time.Time) (time.Time, time.Time, error) {
	now = now.UTC()
	year := p.Year
	if year == 0 {
		year = now.Year()
	}

	switch p.Kind {
	case "month", "":
		month := p.Month
		if month == 0 {
			month = int(now.Month())
		}
		if month < 1 || month > 12 {
			return time.Time{}, time.Time{}, apierr.ErrValidation("month must be between 1 and 12")
		}
		from := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
		return from, from.AddDate(0, 1, 0), nil

	case "year":
		from := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
		return from, from.AddDate(1, 0, 0), nil

	case "custom":
		if p.StartDate == "" || p.EndDate == "" {
			return time.Time{}, time.Time{}, apierr.ErrValidation("startDate and endDate are required for custom period")
		}
		from, err := time.Parse(dateLayout, p.StartDate)
		if err != nil {
			return time.Time{}, time.Time{}, apierr.ErrValidation("invalid startDate, expected YYYY-MM-DD")
		}
		end, err := time.Parse(dateLayout, p.EndDate)
		if err != nil {
			return time.Time{}, time.Time{}, apierr.ErrValidation("invalid endDate, expected YYYY-MM-DD")
		}
		if end.Before(from) {
			return time.Time{}, time.Time{}, apierr.ErrValidation("startDate must be on or before endDate")
		}
		return from, end.AddDate(0, 0, 1), nil
	}
	return time.Time{}, time.Time{}, apierr.ErrValidation("period must be one of month, year, custom")
}
