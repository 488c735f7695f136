package ewaste

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"EWIS-backend/internal/platform/apierr"
	"EWIS-backend/internal/platform/auth"
)

type Handler struct{ svc *Service }

func RegisterRoutes(r gin.IRoutes, svc *Service) {
	h := &Handler{svc: svc}

	r.GET("/ewaste/reports", h.GetReport)
}

func (h *Handler) GetReport(c *gin.Context) {
	q, err := reportQueryFrom(c)
	if err != nil {
		apierr.Abort(c, err)
		return
	}

	// superAdmin 以外はクライアント指定の location を無視して自拠点に固定
	caller := auth.CallerFrom(c)
	q.Filter.LocationID = caller.ScopeLocation(q.Filter.LocationID)
	if !caller.IsSuperAdmin() && q.Filter.LocationID == nil {
		apierr.Abort(c, apierr.ErrValidation("caller has no assigned location"))
		return
	}

	rep, err := h.svc.Report(c.Request.Context(), q)
	if err != nil {
		apierr.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": rep})
}

func reportQueryFrom(c *gin.Context) (ReportQuery, error) {
	q := ReportQuery{
		Type: ReportType(strings.ToLower(c.Query("type"))),
		Period: Period{
			Kind:      strings.ToLower(c.Query("period")),
			StartDate: c.Query("startDate"),
			EndDate:   c.Query("endDate"),
		},
	}

	var err error
	if q.Period.Year, err = optInt(c.Query("year"), "year"); err != nil {
		return q, err
	}
	if q.Period.Month, err = optInt(c.Query("month"), "month"); err != nil {
		return q, err
	}
	if q.Filter.LocationID, err = scopeID(c.Query("location"), "location"); err != nil {
		return q, err
	}
	if q.Filter.DepartmentID, err = scopeID(c.Query("department"), "department"); err != nil {
		return q, err
	}
	if q.Filter.SectionID, err = scopeID(c.Query("section"), "section"); err != nil {
		return q, err
	}
	return q, nil
}

func optInt(v, name string) (int, error) {
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, apierr.ErrValidation(name + " must be a positive number")
	}
	return n, nil
}

// scopeID: 空文字と "all" は絞り込みなし
func scopeID(v, name string) (*int64, error) {
	v = strings.TrimSpace(v)
	if v == "" || strings.EqualFold(v, "all") {
		return nil, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return nil, apierr.ErrValidation(name + " must be a numeric id or \"all\"")
	}
	return &n, nil
}
