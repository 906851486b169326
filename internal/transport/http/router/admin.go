package router

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"ajeu-backend/internal/core/auth"
	"ajeu-backend/internal/core/server"
	"ajeu-backend/internal/domain"
	"ajeu-backend/internal/transport/http/ez"
	mdw "ajeu-backend/internal/transport/http/middleware"
)

// NewAdminEngine 管理端：/admin/v1 统一要求 ROLE_ADMIN
func NewAdminEngine(l *zap.Logger, jwter *auth.JWTer, reg *Registry, o Options) *gin.Engine {
	o = o.withDefaults()
	r := server.NewRouter(l)
	r.Use(baseChain(l, o)...)
	mountProbes(r)

	admin := r.Group("/admin/v1", mdw.AuthJWT(jwter, domain.RoleAdmin))
	reg.MountAdmin(ez.New(admin, l))
	return r
}
