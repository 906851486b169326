package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"ajeu-backend/internal/core/auth"
	"ajeu-backend/internal/core/server"
	"ajeu-backend/internal/transport/http/ez"
	mdw "ajeu-backend/internal/transport/http/middleware"
)

type Options struct {
	UploadsDir    string // 本地上传目录
	UploadsPrefix string // 对外静态前缀，如 /uploads
	MaxBodyBytes  int64
	Timeout       time.Duration
}

func (o Options) withDefaults() Options {
	if o.MaxBodyBytes <= 0 {
		o.MaxBodyBytes = 16 << 20
	}
	if o.Timeout <= 0 {
		o.Timeout = 10 * time.Second
	}
	return o
}

func baseChain(l *zap.Logger, o Options) []gin.HandlerFunc {
	return []gin.HandlerFunc{
		mdw.RequestID(),
		mdw.RateLimit(200, 400),
		mdw.ConcurrencyLimit(300),
		mdw.MaxBodyBytes(o.MaxBodyBytes),
		mdw.Timeout(o.Timeout),
		mdw.Recovery(l),
		mdw.Metrics(),
		mdw.AccessLog(l),
	}
}

func mountProbes(r *gin.Engine) {
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": 1}) })
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

// NewAPIEngine 用户端：/api 下公开路由 + JWT 分组，/uploads 静态文件
func NewAPIEngine(l *zap.Logger, jwter *auth.JWTer, reg *Registry, o Options) *gin.Engine {
	o = o.withDefaults()
	r := server.NewRouter(l)
	r.Use(baseChain(l, o)...)
	mountProbes(r)

	if o.UploadsDir != "" && o.UploadsPrefix != "" {
		r.Static(o.UploadsPrefix, o.UploadsDir)
	}

	api := r.Group("/api")
	authed := api.Group("", mdw.AuthJWT(jwter, ""))
	reg.MountAPI(ez.New(api, l), ez.New(authed, l))
	return r
}
