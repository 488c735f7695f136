package ewaste

import (
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func id(v int64) *int64 { return &v }

func cat(name string) sql.NullString { return sql.NullString{String: name, Valid: true} }

var testNames = Names{
	Departments: map[int64]string{1: "IT", 2: "Finance"},
	Sections:    map[int64]string{10: "Helpdesk", 20: "Payroll"},
}

func sampleRows() []ReportRow {
	return []ReportRow{
		{ // 払い出し由来：取引のスコープが優先される
			RecordID: 1, Status: StatusCollected, Quantity: 3,
			TotalWeight:  decimal.RequireFromString("1.5"),
			ReceiveDate:  time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC),
			Own:          Scope{LocationID: id(99)},
			HasTx:        true,
			Tx:           Scope{LocationID: id(7), DepartmentID: id(1), SectionID: id(10)},
			UnitWeight:   decimal.RequireFromString("0.5"),
			CategoryName: cat("Toner"),
		},
		{ // 取引なし：自前スコープ
			RecordID: 2, Status: StatusGenerated, Quantity: 4,
			ReceiveDate:  time.Date(2024, 5, 20, 0, 0, 0, 0, time.UTC),
			Own:          Scope{LocationID: id(7), DepartmentID: id(2)},
			UnitWeight:   decimal.RequireFromString("0.25"),
			CategoryName: cat("Toner"),
		},
		{ // 別拠点
			RecordID: 3, Status: StatusGenerated, Quantity: 2,
			TotalWeight:  decimal.RequireFromString("4"),
			ReceiveDate:  time.Date(2024, 4, 2, 0, 0, 0, 0, time.UTC),
			HasTx:        true,
			Tx:           Scope{LocationID: id(8), DepartmentID: id(1), SectionID: id(20)},
			UnitWeight:   decimal.RequireFromString("2"),
			CategoryName: cat("Battery"),
		},
	}
}

func TestAggregate_Basic(t *testing.T) {
	rep := Aggregate(sampleRows(), testNames, Scope{})

	require.Len(t, rep.Collected, 1)
	c := rep.Collected[0]
	assert.Equal(t, "IT", c.Department)
	assert.Equal(t, "Helpdesk", c.Section)
	assert.Equal(t, "Toner", c.Category)
	assert.Equal(t, 2024, c.Year)
	assert.Equal(t, 5, c.Month)
	assert.Equal(t, 3, c.TotalQuantity)
	assert.Equal(t, "1.5", c.TotalWeight.String())
	assert.Equal(t, 1, c.RecordCount)

	require.Len(t, rep.Generated, 2)
	// 月の降順
	assert.Equal(t, 5, rep.Generated[0].Month)
	assert.Equal(t, "Finance", rep.Generated[0].Department)
	assert.Equal(t, AllSections, rep.Generated[0].Section)
	// 保存重量が 0 なので 4 × 0.25 で再計算
	assert.Equal(t, "1", rep.Generated[0].TotalWeight.String())
	assert.Equal(t, 4, rep.Generated[1].Month)

	assert.Equal(t, 6, rep.Summary.TotalGeneratedQuantity)
	assert.Equal(t, "5", rep.Summary.TotalGeneratedWeight.String())
	assert.Equal(t, 3, rep.Summary.TotalCollectedQuantity)
	assert.Equal(t, "1.5", rep.Summary.TotalCollectedWeight.String())
}

func TestAggregate_FilterAppliesToEffectiveScope(t *testing.T) {
	rows := sampleRows()

	t.Run("record without transaction is kept when its own scope matches", func(t *testing.T) {
		rep := Aggregate(rows, testNames, Scope{LocationID: id(7), DepartmentID: id(2)})
		require.Len(t, rep.Generated, 1)
		assert.Equal(t, "Finance", rep.Generated[0].Department)
		assert.Empty(t, rep.Collected)
	})

	t.Run("record without transaction is dropped when its own scope differs", func(t *testing.T) {
		rep := Aggregate(rows, testNames, Scope{LocationID: id(8)})
		require.Len(t, rep.Generated, 1)
		assert.Equal(t, "Battery", rep.Generated[0].Category)
	})

	t.Run("transaction scope wins over the record's own scope", func(t *testing.T) {
		rep := Aggregate(rows, testNames, Scope{LocationID: id(99)})
		assert.Empty(t, rep.Collected)
		assert.Empty(t, rep.Generated)
	})

	t.Run("section filter excludes rows without section", func(t *testing.T) {
		rep := Aggregate(rows, testNames, Scope{SectionID: id(10)})
		assert.Len(t, rep.Collected, 1)
		assert.Empty(t, rep.Generated)
	})
}

func TestAggregate_PlaceholdersForUnresolvedScope(t *testing.T) {
	rows := []ReportRow{{
		RecordID: 1, Status: StatusGenerated, Quantity: 1,
		ReceiveDate: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Own:         Scope{DepartmentID: id(404)},
		UnitWeight:  decimal.RequireFromString("0.1"),
	}}
	rep := Aggregate(rows, testNames, Scope{})

	require.Len(t, rep.Generated, 1)
	assert.Equal(t, UnknownDepartment, rep.Generated[0].Department)
	assert.Equal(t, AllSections, rep.Generated[0].Section)
	assert.Equal(t, UncategorizedCategory, rep.Generated[0].Category)
}

func TestAggregate_GroupsSameKey(t *testing.T) {
	base := sampleRows()[0]
	second := base
	second.RecordID = 9
	second.Quantity = 1
	second.TotalWeight = decimal.Zero

	rep := Aggregate([]ReportRow{base, second}, testNames, Scope{})
	require.Len(t, rep.Collected, 1)
	assert.Equal(t, 4, rep.Collected[0].TotalQuantity)
	assert.Equal(t, "2", rep.Collected[0].TotalWeight.String())
	assert.Equal(t, 2, rep.Collected[0].RecordCount)
}

func TestAggregate_SortOrder(t *testing.T) {
	mk := func(dep int64, cat string, month time.Month) ReportRow {
		return ReportRow{
			Status: StatusGenerated, Quantity: 1,
			ReceiveDate:  time.Date(2024, month, 1, 0, 0, 0, 0, time.UTC),
			Own:          Scope{DepartmentID: id(dep)},
			UnitWeight:   decimal.NewFromInt(1),
			CategoryName: sql.NullString{String: cat, Valid: true},
		}
	}
	rows := []ReportRow{
		mk(1, "Toner", 3), mk(2, "Battery", 3), mk(1, "Battery", 3), mk(2, "Toner", 6),
	}
	rep := Aggregate(rows, testNames, Scope{})

	require.Len(t, rep.Generated, 4)
	got := make([][3]any, 0, 4)
	for _, g := range rep.Generated {
		got = append(got, [3]any{g.Month, g.Department, g.Category})
	}
	assert.Equal(t, [][3]any{
		{6, "Finance", "Toner"},
		{3, "Finance", "Battery"},
		{3, "IT", "Battery"},
		{3, "IT", "Toner"},
	}, got)
}

func TestAggregate_Idempotent(t *testing.T) {
	rows := sampleRows()
	a, err := json.Marshal(Aggregate(rows, testNames, Scope{LocationID: id(7)}))
	require.NoError(t, err)
	b, err := json.Marshal(Aggregate(rows, testNames, Scope{LocationID: id(7)}))
	require.NoError(t, err)
	assert.JSONEq(t, string(a), string(b))
}

func TestAggregate_Empty(t *testing.T) {
	rep := Aggregate(nil, Names{}, Scope{})
	assert.NotNil(t, rep.Generated)
	assert.NotNil(t, rep.Collected)
	assert.Empty(t, rep.Generated)
	assert.Empty(t, rep.Collected)
	assert.True(t, rep.Summary.TotalGeneratedWeight.IsZero())
	assert.Zero(t, rep.Summary.TotalCollectedQuantity)
}
