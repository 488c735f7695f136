package apierr

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

type ErrorBody struct {
	Success bool   `json:"success"`
	Code    Code   `json:"code"`
	Msg     string `json:"msg"`
}

func Body(code Code, msg string) ErrorBody {
	return ErrorBody{Success: false, Code: code, Msg: msg}
}

// BodyFrom は 500 系の内部メッセージを外に出さない。
func BodyFrom(err error) ErrorBody {
	var api *APIError
	if errors.As(err, &api) && api.Code != CodeInternal {
		return Body(api.Code, api.Message)
	}
	return Body(CodeInternal, "internal server error")
}

// Abort はエラーをレスポンスへ書き、ログ用に c.Errors にも積む。
func Abort(c *gin.Context, err error) {
	_ = c.Error(err)
	c.AbortWithStatusJSON(ToHTTPStatus(err), BodyFrom(err))
}

// AbortInvalidJSON は ShouldBindJSON 失敗時の定型応答。
func AbortInvalidJSON(c *gin.Context, err error) {
	_ = c.Error(err)
	c.AbortWithStatusJSON(http.StatusBadRequest, Body(CodeValidation, "invalid json or missing required fields"))
}
