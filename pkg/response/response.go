package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const (
	CodeSuccess       = 0
	CodeParamError    = 400
	CodeNotLoggedIn   = 401
	CodeForbidden     = 403
	CodeNotFound      = 404
	CodeServerError   = 500
	CodeBusinessError = 1000
)

// 业务错误码
// 对外是稳定契约：前端和调用方按 code 分支，message 只用于展示
const (
	CodeMissionNotFound    = 1001
	CodeSubmissionNotFound = 1002
	CodeInvalidVerdict     = 1003
	CodeAlreadyGraded      = 1004
	CodeAccountNotFound    = 1005
	CodeBalanceNotEnough   = 1006
	CodeProductNotFound    = 1007
	CodeCoinUpdateFailed   = 1008
	CodeRewardNotReady     = 1009
	CodeRewardMissing      = 1010
	CodeDuplicateAccount   = 1011
	CodeLoginFailed        = 1012
)

type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    CodeSuccess,
		Message: "success",
		Data:    data,
	})
}

func Error(c *gin.Context, code int, message string) {
	c.JSON(http.StatusOK, Response{
		Code:    code,
		Message: message,
	})
}

func ParamError(c *gin.Context, message string) {
	Error(c, CodeParamError, message)
}

func NotLoggedIn(c *gin.Context) {
	c.JSON(http.StatusUnauthorized, Response{
		Code:    CodeNotLoggedIn,
		Message: "请先登录",
	})
}

func Forbidden(c *gin.Context) {
	c.JSON(http.StatusForbidden, Response{
		Code:    CodeForbidden,
		Message: "没有操作权限",
	})
}

func ServerError(c *gin.Context, message string) {
	Error(c, CodeServerError, message)
}

func BusinessError(c *gin.Context, code int, message string) {
	Error(c, code, message)
}
