package inventory

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"EWIS-backend/internal/platform/apierr"
	"EWIS-backend/internal/platform/auth"
)

type Handler struct{ svc *Service }

func RegisterRoutes(r gin.IRoutes, svc *Service) {
	h := &Handler{svc: svc}
	admin := auth.RequireRole(auth.RoleAdmin, auth.RoleSuperAdmin)

	r.POST("/inventory/create-inventory", admin, h.CreateInventory)
	r.PUT("/inventory/update-inventory/:id", admin, h.UpdateInventory)

	r.GET("/inventory", h.ListInventories)
	r.GET("/inventory/:id", h.GetInventory)
	r.GET("/inventory/:id/history", h.ListHistory)
}

func (h *Handler) UpdateInventory(c *gin.Context) {
	var req AdjustRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierr.AbortInvalidJSON(c, err)
		return
	}
	caller := auth.CallerFrom(c)
	res, err := h.svc.Adjust(c.Request.Context(), c.Param("id"), req, caller.UserID)
	if err != nil {
		apierr.Abort(c, err)
		return
	}
	// data は更新後の台帳。追記した履歴は history に別で返す
	c.JSON(http.StatusOK, gin.H{"success": true, "data": res.Inventory, "history": res.History})
}

func (h *Handler) CreateInventory(c *gin.Context) {
	var req CreateInventoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierr.AbortInvalidJSON(c, err)
		return
	}
	caller := auth.CallerFrom(c)
	res, err := h.svc.CreateInventory(c.Request.Context(), req, caller.UserID)
	if err != nil {
		apierr.Abort(c, err)
		return
	}
	c.Header("Location", "/inventory/"+res.InventoryID)
	c.JSON(http.StatusCreated, gin.H{"success": true, "data": res})
}

func (h *Handler) GetInventory(c *gin.Context) {
	res, err := h.svc.GetInventory(c.Request.Context(), c.Param("id"))
	if err != nil {
		apierr.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": res})
}

func (h *Handler) ListInventories(c *gin.Context) {
	var f LedgerFilter
	if v := c.Query("asset_id"); v != "" {
		f.AssetULID = &v
	}
	if v := c.Query("below_threshold"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			f.BelowThreshold = b
		}
	}
	p := pageFromQuery(c)
	items, total, next, err := h.svc.ListInventories(c.Request.Context(), f, p)
	if err != nil {
		apierr.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "items": items, "total": total, "next_offset": next})
}

func (h *Handler) ListHistory(c *gin.Context) {
	items, total, next, err := h.svc.ListHistory(c.Request.Context(), c.Param("id"), pageFromQuery(c))
	if err != nil {
		apierr.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "items": items, "total": total, "next_offset": next})
}

func pageFromQuery(c *gin.Context) Page {
	return Page{
		Limit:  atoiDef(c.Query("limit"), 50),
		Offset: atoiDef(c.Query("offset"), 0),
	}
}

func atoiDef(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
