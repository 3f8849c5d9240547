package response

import (
	"net/http"

	cErr "opsboard/internal/pkg/error"

	"github.com/gin-gonic/gin"
)

// errorDataKey 失敗回應仍要帶出的部分結果
const errorDataKey = "errorData"

type Response struct {
	RequestID   string `json:"requestID"`
	Code        int    `json:"code"`
	Data        any    `json:"data"`
	Message     string `json:"message"`
	Description string `json:"description"`
}

// Success 由 Response middleware 統一包裝輸出
func Success(c *gin.Context, data any, message ...string) {
	msg := "Request Success"
	if len(message) > 0 && message[0] != "" {
		msg = message[0]
	}
	c.Set("data", data)
	c.Set("message", msg)
	c.Abort()
}

func AbortWithError(c *gin.Context, err error) {
	c.Error(err)
	c.Abort()
}

// AbortWithErrorData 與 AbortWithError 相同，但錯誤回應的 data 帶出 data
func AbortWithErrorData(c *gin.Context, err error, data any) {
	c.Set(errorDataKey, data)
	AbortWithError(c, err)
}

func Fail(c *gin.Context, RequestID string, httpCode int, errorCode int, msg string, desc string) {
	data, _ := c.Get(errorDataKey)
	c.JSON(httpCode, Response{
		RequestID:   RequestID,
		Code:        errorCode,
		Data:        data,
		Message:     msg,
		Description: desc,
	})
	c.Abort()
}

func FailByErr(c *gin.Context, RequestID string, err error) {
	if v, ok := err.(*cErr.Error); ok {
		Fail(c, RequestID, v.HttpCode(), v.ErrorCode(), v.Error(), v.ErrorDesc())
		return
	}
	Fail(c, RequestID, http.StatusInternalServerError, cErr.INTERNAL_ERROR, err.Error(), "internal error")
}
