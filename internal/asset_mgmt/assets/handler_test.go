package assets

import (
	"database/sql"
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
	"go.uber.org/zap"
)

var testNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

type fixedClock struct{}

func (fixedClock) Now() time.Time { return testNow }

type fixedID struct{}

func (fixedID) NewULID(time.Time) string { return "01HASSET" }

func newTestRouter(t *testing.T) (*gin.Engine, sqlmock.Sqlmock) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	svc := NewService(conn, zap.NewNop())
	svc.clock = fixedClock{}
	svc.id = fixedID{}

	r := gin.New()
	RegisterRoutes(r, svc)
	return r, mock
}

func TestHandler_CreateAsset(t *testing.T) {
	r, mock := newTestRouter(t)

	mock.ExpectExec(`INSERT INTO assets`).
		WithArgs("01HASSET", "Toner cartridge", int64(3), "0.5", true, testNow).
		WillReturnResult(sqlmock.NewResult(42, 1))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/assets",
		strings.NewReader(`{"name":" Toner cartridge ","categoryId":3,"unitWeight":0.5,"isEwaste":true}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "/assets/01HASSET", w.Header().Get("Location"))

	var body struct {
		Success bool          `json:"success"`
		Data    AssetResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.True(t, body.Success)
	assert.Equal(t, "Toner cartridge", body.Data.Name)
	assert.Equal(t, "0.5", body.Data.UnitWeight.String())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandler_CreateAsset_NegativeWeight(t *testing.T) {
	r, mock := newTestRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/assets",
		strings.NewReader(`{"name":"Toner","categoryId":3,"unitWeight":-1}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), `"code":"VALIDATION_ERROR"`)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandler_GetAsset_NotFound(t *testing.T) {
	r, mock := newTestRouter(t)

	mock.ExpectQuery(`FROM assets a LEFT JOIN asset_categories c ON c.category_id = a.category_id WHERE a.asset_ulid = \?`).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/assets/missing", nil))

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"success":false,"code":"NOT_FOUND","msg":"asset not found"}`, w.Body.String())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandler_GetAsset_NullCategory(t *testing.T) {
	r, mock := newTestRouter(t)

	// カテゴリ未設定の既存資産も読めること
	mock.ExpectQuery(`WHERE a.asset_ulid = \?`).
		WithArgs("01HOLD").
		WillReturnRows(sqlmock.NewRows([]string{
			"asset_id", "asset_ulid", "name", "category_id", "category_name", "unit_weight", "is_ewaste", "created_at",
		}).AddRow(int64(5), "01HOLD", "CRT monitor", nil, nil, "12.5", true, testNow))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/assets/01HOLD", nil))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var body struct {
		Data map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "CRT monitor", body.Data["name"])
	assert.NotContains(t, body.Data, "categoryId")
	assert.NotContains(t, body.Data, "categoryName")
	assert.NoError(t, mock.ExpectationsWereMet())
}
