package assets

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"EWIS-backend/internal/platform/apierr"
)

type Handler struct{ svc *Service }

func RegisterRoutes(r gin.IRoutes, svc *Service) {
	h := &Handler{svc: svc}

	r.POST("/assets", h.CreateAsset)
	r.GET("/assets", h.ListAssets)
	r.GET("/assets/:asset_id", h.GetAsset)

	// カテゴリマスタ
	r.POST("/asset-categories", h.CreateCategory)
	r.GET("/asset-categories", h.ListCategories)
	r.GET("/asset-categories/:id", h.GetCategory)
	r.PUT("/asset-categories/:id", h.UpdateCategory)
	r.DELETE("/asset-categories/:id", h.DisableCategory)
}

func (h *Handler) CreateAsset(c *gin.Context) {
	var req CreateAssetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierr.AbortInvalidJSON(c, err)
		return
	}
	res, err := h.svc.CreateAsset(c.Request.Context(), req)
	if err != nil {
		apierr.Abort(c, err)
		return
	}
	c.Header("Location", "/assets/"+res.AssetID)
	c.JSON(http.StatusCreated, gin.H{"success": true, "data": res})
}

func (h *Handler) GetAsset(c *gin.Context) {
	res, err := h.svc.GetAsset(c.Request.Context(), c.Param("asset_id"))
	if err != nil {
		apierr.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": res})
}

func (h *Handler) ListAssets(c *gin.Context) {
	var q AssetSearchQuery
	if v := c.Query("category_id"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			q.CategoryID = &n
		}
	}
	if v := c.Query("is_ewaste"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			q.IsEwaste = &b
		}
	}
	if v := c.Query("name"); v != "" {
		q.Name = &v
	}

	p := Page{
		Limit:  atoiDef(c.Query("limit"), 50),
		Offset: atoiDef(c.Query("offset"), 0),
		Order:  strings.ToLower(c.DefaultQuery("order", "desc")),
	}
	items, total, err := h.svc.ListAssets(c.Request.Context(), q, p)
	if err != nil {
		apierr.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "items": items, "total": total, "next_offset": nextOffset(total, p)})
}

func (h *Handler) ListCategories(c *gin.Context) {
	items, err := h.svc.ListCategories(c.Request.Context(), c.Query("all"))
	if err != nil {
		apierr.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "items": items})
}

func (h *Handler) GetCategory(c *gin.Context) {
	id, ok := categoryID(c)
	if !ok {
		return
	}
	res, err := h.svc.GetCategory(c.Request.Context(), id)
	if err != nil {
		apierr.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": res})
}

func (h *Handler) CreateCategory(c *gin.Context) {
	var req CreateCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierr.AbortInvalidJSON(c, err)
		return
	}
	res, err := h.svc.CreateCategory(c.Request.Context(), req)
	if err != nil {
		apierr.Abort(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "data": res})
}

func (h *Handler) UpdateCategory(c *gin.Context) {
	id, ok := categoryID(c)
	if !ok {
		return
	}
	var req UpdateCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierr.AbortInvalidJSON(c, err)
		return
	}
	res, err := h.svc.UpdateCategory(c.Request.Context(), id, req)
	if err != nil {
		apierr.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": res})
}

func (h *Handler) DisableCategory(c *gin.Context) {
	id, ok := categoryID(c)
	if !ok {
		return
	}
	if err := h.svc.DisableCategory(c.Request.Context(), id); err != nil {
		apierr.Abort(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ===== helpers =====

func categoryID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		apierr.Abort(c, apierr.ErrValidation("invalid id"))
		return 0, false
	}
	return id, true
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

func nextOffset(total int64, p Page) int {
	if p.Limit <= 0 || p.Limit > 200 {
		p.Limit = 50
	}
	n := p.Offset + p.Limit
	if n >= int(total) {
		return 0
	}
	return n
}
