package middleware

import (
	"net/http"
	"slices"
	"strings"

	"github.com/gin-gonic/gin"

	"ajeu-backend/internal/core/auth"
	"ajeu-backend/internal/transport/http/ez"
	resp "ajeu-backend/internal/transport/http/response"
)

// AuthJWT 校验 Bearer token，把 uid / email / roles 写入上下文；requireRole 为空时只要求登录
func AuthJWT(j *auth.JWTer, requireRole string) gin.HandlerFunc {
	return func(c *gin.Context) {
		ah := c.GetHeader("Authorization")
		if !strings.HasPrefix(ah, "Bearer ") {
			resp.Abort(c, http.StatusUnauthorized, "missing token")
			return
		}
		claims, err := j.Parse(strings.TrimPrefix(ah, "Bearer "))
		if err != nil {
			resp.Abort(c, http.StatusUnauthorized, "invalid token")
			return
		}
		if requireRole != "" && !slices.Contains(claims.Roles, requireRole) {
			resp.Abort(c, http.StatusForbidden, "forbidden")
			return
		}
		c.Set("claims", claims)
		c.Set(ez.KeyUserID, claims.UID)
		c.Set(ez.KeyEmail, claims.Email)
		c.Set(ez.KeyRoles, claims.Roles)
		c.Next()
	}
}
