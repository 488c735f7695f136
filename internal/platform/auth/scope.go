package auth

import "github.com/gin-gonic/gin"

// Caller はリクエスト元ユーザ。RequireAuth 通過後に CallerFrom で取り出す。
type Caller struct {
	UserID     string
	Role       string
	LocationID *int64
}

func CallerFrom(c *gin.Context) Caller {
	caller := Caller{
		UserID: c.GetString(CtxUserIDKey),
		Role:   c.GetString(CtxRoleKey),
	}
	if v, ok := c.Get(CtxLocationIDKey); ok {
		if loc, ok := v.(int64); ok {
			caller.LocationID = &loc
		}
	}
	return caller
}

func (c Caller) IsSuperAdmin() bool { return c.Role == RoleSuperAdmin }

// ScopeLocation はクライアント指定の location を、権限に応じてサーバ側で絞り込む。
// superAdmin 以外は常に自分の拠点。拠点未割当なら nil（＝呼び出し側で拒否すること）。
func (c Caller) ScopeLocation(requested *int64) *int64 {
	if c.IsSuperAdmin() {
		return requested
	}
	return c.LocationID
}
