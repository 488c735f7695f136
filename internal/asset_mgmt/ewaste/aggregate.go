package ewaste

import (
	"sort"

	"github.com/shopspring/decimal"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

const (
	UnknownDepartment     = "Unknown"
	AllSections           = "All Sections"
	UncategorizedCategory = "Uncategorized"
)

type Group struct {
	Department    string          `json:"department"`
	Section       string          `json:"section"`
	Category      string          `json:"category"`
	Year          int             `json:"year"`
	Month         int             `json:"month"`
	TotalQuantity int             `json:"totalQuantity"`
	TotalWeight   decimal.Decimal `json:"totalWeight"`
	RecordCount   int             `json:"recordCount"`
}

type Summary struct {
	TotalGeneratedWeight   decimal.Decimal `json:"totalGeneratedWeight"`
	TotalGeneratedQuantity int             `json:"totalGeneratedQuantity"`
	TotalCollectedWeight   decimal.Decimal `json:"totalCollectedWeight"`
	TotalCollectedQuantity int             `json:"totalCollectedQuantity"`
}

type Report struct {
	Generated []Group `json:"generated"`
	Collected []Group `json:"collected"`
	Summary   Summary `json:"summary"`
}

type groupKey struct {
	status     Status
	department string
	section    string
	category   string
	year       int
	month      int
}

// EffectiveScope: 取引があれば取引側、無ければ記録自身のスコープ。
func (r ReportRow) EffectiveScope() Scope {
	if r.HasTx {
		return r.Tx
	}
	return r.Own
}

// Weight: 保存済み重量が正ならそれ、無ければ数量 × 単位重量で再計算。
func (r ReportRow) Weight() decimal.Decimal {
	if r.TotalWeight.IsPositive() {
		return r.TotalWeight
	}
	return r.UnitWeight.Mul(decimal.NewFromInt(int64(r.Quantity)))
}

// Matches は filter の各項目（nil は全件）を実効スコープに対して判定する。
func (s Scope) Matches(filter Scope) bool {
	return idMatches(s.LocationID, filter.LocationID) &&
		idMatches(s.DepartmentID, filter.DepartmentID) &&
		idMatches(s.SectionID, filter.SectionID)
}

func idMatches(v, want *int64) bool {
	if want == nil {
		return true
	}
	return v != nil && *v == *want
}

func (n Names) department(id *int64) string {
	if id != nil {
		if name, ok := n.Departments[*id]; ok && name != "" {
			return name
		}
	}
	return UnknownDepartment
}

func (n Names) section(id *int64) string {
	if id != nil {
		if name, ok := n.Sections[*id]; ok && name != "" {
			return name
		}
	}
	return AllSections
}

// Aggregate は純粋関数。同じ入力には常に同じ Report を返す。
// スコープ絞り込みはフォールバック解決の後で行う（取引なしの記録を落とさないため）。
func Aggregate(rows []ReportRow, names Names, filter Scope) Report {
	groups := map[groupKey]*Group{}
	for _, r := range rows {
		eff := r.EffectiveScope()
		if !eff.Matches(filter) {
			continue
		}

		category := UncategorizedCategory
		if r.CategoryName.Valid && r.CategoryName.String != "" {
			category = r.CategoryName.String
		}
		d := r.ReceiveDate.UTC()
		k := groupKey{
			status:     r.Status,
			department: names.department(eff.DepartmentID),
			section:    names.section(eff.SectionID),
			category:   category,
			year:       d.Year(),
			month:      int(d.Month()),
		}

		g, ok := groups[k]
		if !ok {
			g = &Group{
				Department:  k.department,
				Section:     k.section,
				Category:    k.category,
				Year:        k.year,
				Month:       k.month,
				TotalWeight: decimal.Zero,
			}
			groups[k] = g
		}
		g.TotalQuantity += r.Quantity
		g.TotalWeight = g.TotalWeight.Add(r.Weight())
		g.RecordCount++
	}

	out := Report{
		Generated: []Group{},
		Collected: []Group{},
		Summary: Summary{
			TotalGeneratedWeight: decimal.Zero,
			TotalCollectedWeight: decimal.Zero,
		},
	}
	for k, g := range groups {
		switch k.status {
		case StatusGenerated:
			out.Generated = append(out.Generated, *g)
			out.Summary.TotalGeneratedQuantity += g.TotalQuantity
			out.Summary.TotalGeneratedWeight = out.Summary.TotalGeneratedWeight.Add(g.TotalWeight)
		case StatusCollected:
			out.Collected = append(out.Collected, *g)
			out.Summary.TotalCollectedQuantity += g.TotalQuantity
			out.Summary.TotalCollectedWeight = out.Summary.TotalCollectedWeight.Add(g.TotalWeight)
		}
	}

	sortGroups(out.Generated)
	sortGroups(out.Collected)
	return out
}

// 年・月は降順、部署・課・カテゴリはロケール照合順。
func sortGroups(gs []Group) {
	cl := collate.New(language.Und)
	cmp := func(a, b string) int {
		if c := cl.CompareString(a, b); c != 0 {
			return c
		}
		switch {
		case a < b:
			return -1
		case a > b:
			return 1
		}
		return 0
	}
	sort.Slice(gs, func(i, j int) bool {
		a, b := gs[i], gs[j]
		if a.Year != b.Year {
			return a.Year > b.Year
		}
		if a.Month != b.Month {
			return a.Month > b.Month
		}
		if c := cmp(a.Department, b.Department); c != 0 {
			return c < 0
		}
		if c := cmp(a.Section, b.Section); c != 0 {
			return c < 0
		}
		return cmp(a.Category, b.Category) < 0
	})
}
