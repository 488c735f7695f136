package issuance

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"EWIS-backend/internal/platform/apierr"
	"EWIS-backend/internal/platform/auth"
)

type Handler struct{ svc *Service }

func RegisterRoutes(r gin.IRoutes, svc *Service) {
	h := &Handler{svc: svc}
	reviewer := auth.RequireRole(auth.RoleAdmin, auth.RoleSuperAdmin)

	// 申請
	r.POST("/request", h.CreateRequest)
	r.GET("/request", h.ListRequests)
	r.GET("/request/:requestId", h.GetRequest)
	r.POST("/request/reject/:requestId", reviewer, h.Reject)

	// 払い出し・返却（管理者のみ）
	r.POST("/transaction/issue/:requestId", reviewer, h.Issue)
	r.POST("/transaction/return/:transactionId", reviewer, h.Return)
	r.GET("/transaction", h.ListTransactions)
}

func (h *Handler) Issue(c *gin.Context) {
	var req IssueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierr.AbortInvalidJSON(c, err)
		return
	}
	res, err := h.svc.Issue(c.Request.Context(), c.Param("requestId"), req, auth.CallerFrom(c))
	if err != nil {
		apierr.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) Reject(c *gin.Context) {
	var req RejectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierr.AbortInvalidJSON(c, err)
		return
	}
	res, err := h.svc.Reject(c.Request.Context(), c.Param("requestId"), req, auth.CallerFrom(c))
	if err != nil {
		apierr.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) CreateRequest(c *gin.Context) {
	var req CreateRequestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierr.AbortInvalidJSON(c, err)
		return
	}
	res, err := h.svc.CreateRequest(c.Request.Context(), req, auth.CallerFrom(c))
	if err != nil {
		apierr.Abort(c, err)
		return
	}
	c.Header("Location", "/request/"+res.RequestID)
	c.JSON(http.StatusCreated, gin.H{"success": true, "data": res})
}

func (h *Handler) GetRequest(c *gin.Context) {
	caller := auth.CallerFrom(c)
	res, err := h.svc.GetRequest(c.Request.Context(), c.Param("requestId"), caller.ScopeLocation(nil))
	if err != nil {
		apierr.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": res})
}

func (h *Handler) ListRequests(c *gin.Context) {
	var f RequestFilter
	if v := c.Query("status"); v != "" {
		st := RequestStatus(v)
		f.Status = &st
	}
	f.LocationID = auth.CallerFrom(c).ScopeLocation(queryInt64(c, "location"))

	items, total, next, err := h.svc.ListRequests(c.Request.Context(), f, pageFromQuery(c))
	if err != nil {
		apierr.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "items": items, "total": total, "next_offset": next})
}

func (h *Handler) Return(c *gin.Context) {
	var req ReturnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierr.AbortInvalidJSON(c, err)
		return
	}
	res, err := h.svc.Return(c.Request.Context(), c.Param("transactionId"), req, auth.CallerFrom(c))
	if err != nil {
		apierr.Abort(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "data": res})
}

func (h *Handler) ListTransactions(c *gin.Context) {
	var f TransactionFilter
	if v := c.Query("type"); v != "" {
		tt := TransactionType(v)
		f.Type = &tt
	}
	if v := c.Query("asset_id"); v != "" {
		f.AssetULID = &v
	}
	if v := c.Query("from"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			f.From = &t
		}
	}
	if v := c.Query("to"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			f.To = &t
		}
	}
	f.LocationID = auth.CallerFrom(c).ScopeLocation(queryInt64(c, "location"))

	items, total, next, err := h.svc.ListTransactions(c.Request.Context(), f, pageFromQuery(c))
	if err != nil {
		apierr.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "items": items, "total": total, "next_offset": next})
}

// ---------- helpers ----------

func queryInt64(c *gin.Context, key string) *int64 {
	v := c.Query(key)
	if v == "" || v == "all" {
		return nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return nil
	}
	return &n
}

func pageFromQuery(c *gin.Context) Page {
	return Page{
		Limit:  atoiDef(c.Query("limit"), 50),
		Offset: atoiDef(c.Query("offset"), 0),
	}
}

func atoiDef(s string, d int) int {
	if s == "" {
		return d
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return d
	}
	return n
}
