package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	resp "ajeu-backend/internal/transport/http/response"
)

// MaxBodyBytes 限制请求体大小；声明长度超限直接 413，分块上传由绑定 / 上传处理方报 413
func MaxBodyBytes(n int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > n {
			resp.Abort(c, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, n)
		c.Next()
	}
}
