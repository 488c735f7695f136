package inventory

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"EWIS-backend/internal/platform/auth"
)

func newTestRouter(svc *Service, role string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(auth.CtxUserIDKey, "admin-1")
		c.Set(auth.CtxRoleKey, role)
		c.Next()
	})
	RegisterRoutes(r, svc)
	return r
}

func TestHandler_UpdateInventory_DataIsLedger(t *testing.T) {
	svc, mock, _ := newTestService(t)

	mock.ExpectBegin()
	mock.ExpectQuery(lockLedgerSQL).WithArgs("LEDGER1").WillReturnRows(ledgerRow(50, 30, 0))
	mock.ExpectExec(`UPDATE stock_ledgers SET`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO stock_adjustments`).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	r := newTestRouter(svc, auth.RoleAdmin)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPut, "/inventory/update-inventory/LEDGER1",
		strings.NewReader(`{"reason":"restock","adjustmentQuantity":20}`)))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var body struct {
		Success bool            `json:"success"`
		Data    LedgerResponse  `json:"data"`
		History HistoryResponse `json:"history"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.True(t, body.Success)
	assert.Equal(t, "LEDGER1", body.Data.InventoryID)
	assert.Equal(t, 70, body.Data.TotalStock)
	assert.Equal(t, 50, body.Data.AvailableStock)
	assert.Equal(t, 20, body.Data.IssuedStock)
	require.NotNil(t, body.Data.UpdatedBy)
	assert.Equal(t, "admin-1", *body.Data.UpdatedBy)

	assert.Equal(t, "ULID01", body.History.HistoryID)
	assert.Equal(t, ReasonRestock, body.History.Reason)
	assert.Equal(t, 50, body.History.PreviousValues.TotalStock)
	assert.Equal(t, 70, body.History.NewValues.TotalStock)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandler_UpdateInventory_InvalidReason(t *testing.T) {
	svc, mock, _ := newTestService(t)

	r := newTestRouter(svc, auth.RoleAdmin)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPut, "/inventory/update-inventory/LEDGER1",
		strings.NewReader(`{"reason":"stolen","adjustmentQuantity":1}`)))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), `"code":"INVALID_REASON"`)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandler_UpdateInventory_RequiresAdmin(t *testing.T) {
	svc, mock, _ := newTestService(t)

	r := newTestRouter(svc, auth.RoleUser)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPut, "/inventory/update-inventory/LEDGER1",
		strings.NewReader(`{"reason":"restock","adjustmentQuantity":1}`)))

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

var historyCols = []string{
	"adjustment_id", "adjustment_ulid", "ledger_id", "asset_id", "reason", "adjustment_quantity", "description",
	"prev_total_stock", "prev_available_stock", "prev_issued_stock", "prev_minimum_threshold",
	"new_total_stock", "new_available_stock", "new_issued_stock", "new_minimum_threshold",
	"updated_by", "created_at",
}

func TestHandler_ListHistory_NewestFirstWithNextOffset(t *testing.T) {
	svc, mock, _ := newTestService(t)

	mock.ExpectQuery(`FROM stock_ledgers l JOIN assets a ON a.asset_id = l.asset_id WHERE l.ledger_ulid = \?$`).
		WithArgs("LEDGER1").
		WillReturnRows(ledgerRow(70, 50, 0))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM stock_adjustments WHERE ledger_id = \?`).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(3)))
	// DB が新しい順で返した並びをそのまま維持すること
	mock.ExpectQuery(`FROM stock_adjustments WHERE ledger_id = \? ORDER BY created_at DESC, adjustment_id DESC LIMIT \? OFFSET \?`).
		WithArgs(int64(1), 2, 0).
		WillReturnRows(sqlmock.NewRows(historyCols).
			AddRow(int64(3), "HIST3", int64(1), int64(10), "restock", int64(20), nil,
				int64(50), int64(30), int64(20), int64(0),
				int64(70), int64(50), int64(20), int64(0),
				"admin-1", testNow).
			AddRow(int64(2), "HIST2", int64(1), int64(10), "damage", int64(2), "dropped",
				int64(52), int64(32), int64(20), int64(0),
				int64(50), int64(30), int64(20), int64(0),
				"admin-1", testNow.Add(-time.Hour)))

	r := newTestRouter(svc, auth.RoleUser)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/inventory/LEDGER1/history?limit=2", nil))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var body struct {
		Items      []HistoryResponse `json:"items"`
		Total      int64             `json:"total"`
		NextOffset int               `json:"next_offset"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, int64(3), body.Total)
	assert.Equal(t, 2, body.NextOffset)
	require.Len(t, body.Items, 2)
	assert.Equal(t, "HIST3", body.Items[0].HistoryID)
	assert.Equal(t, "HIST2", body.Items[1].HistoryID)
	assert.True(t, body.Items[0].CreatedAt.After(body.Items[1].CreatedAt))
	assert.Equal(t, "LEDGER1", body.Items[0].InventoryID)
	require.NotNil(t, body.Items[1].Description)
	assert.Equal(t, "dropped", *body.Items[1].Description)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandler_ListHistory_LastPage(t *testing.T) {
	svc, mock, _ := newTestService(t)

	mock.ExpectQuery(`WHERE l.ledger_ulid = \?$`).WillReturnRows(ledgerRow(70, 50, 0))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM stock_adjustments`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(3)))
	mock.ExpectQuery(`FROM stock_adjustments WHERE ledger_id = \?`).
		WithArgs(int64(1), 2, 2).
		WillReturnRows(sqlmock.NewRows(historyCols).
			AddRow(int64(1), "HIST1", int64(1), int64(10), "initial", int64(52), nil,
				int64(0), int64(0), int64(0), int64(0),
				int64(52), int64(32), int64(20), int64(0),
				nil, testNow.Add(-2*time.Hour)))

	r := newTestRouter(svc, auth.RoleUser)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/inventory/LEDGER1/history?limit=2&offset=2", nil))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"next_offset":0`)
	assert.Contains(t, w.Body.String(), `"historyId":"HIST1"`)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandler_ListInventories_BelowThreshold(t *testing.T) {
	svc, mock, _ := newTestService(t)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM stock_ledgers l JOIN assets a ON a.asset_id = l.asset_id WHERE l.minimum_threshold > 0 AND l.available_stock <= l.minimum_threshold$`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(1)))
	mock.ExpectQuery(`WHERE l.minimum_threshold > 0 AND l.available_stock <= l.minimum_threshold ORDER BY l.ledger_id ASC LIMIT \? OFFSET \?`).
		WithArgs(50, 0).
		WillReturnRows(ledgerRow(10, 2, 5))

	r := newTestRouter(svc, auth.RoleUser)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/inventory?below_threshold=true", nil))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var body struct {
		Items      []LedgerResponse `json:"items"`
		Total      int64            `json:"total"`
		NextOffset int              `json:"next_offset"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, int64(1), body.Total)
	assert.Equal(t, 0, body.NextOffset)
	require.Len(t, body.Items, 1)
	assert.True(t, body.Items[0].BelowThreshold)
	assert.Equal(t, 2, body.Items[0].AvailableStock)
	assert.NoError(t, mock.ExpectationsWereMet())
}
