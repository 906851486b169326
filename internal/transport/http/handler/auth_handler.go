package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"ajeu-backend/internal/service"
	"ajeu-backend/internal/transport/http/ez"
	mdw "ajeu-backend/internal/transport/http/middleware"
)

type AuthHandler struct {
	svc *service.AuthService
}

func NewAuthHandler(svc *service.AuthService) *AuthHandler { return &AuthHandler{svc: svc} }

// Priority 认证路由最先挂
func (h *AuthHandler) Priority() int { return 10 }

func (h *AuthHandler) MountAPI(public, authed ez.EZ) {
	// 口令类接口按 IP 限速
	limited := public.Group("", mdw.RateLimitPerIP(1, 10))

	ez.RegisterAction(limited, ez.Action[service.RegisterInput, *service.RegisterOutput]{
		Method: http.MethodPost, Path: "/register", Binder: ez.BindJSON, Status: http.StatusCreated,
		Handler: func(c *gin.Context, in *service.RegisterInput) (*service.RegisterOutput, error) {
			return h.svc.Register(c.Request.Context(), *in)
		},
	})
	ez.RegisterAction(limited, ez.Action[service.LoginInput, *service.LoginOutput]{
		Method: http.MethodPost, Path: "/login", Binder: ez.BindJSON,
		Handler: func(c *gin.Context, in *service.LoginInput) (*service.LoginOutput, error) {
			return h.svc.Login(c.Request.Context(), *in)
		},
	})
	ez.RegisterAction(limited, ez.Action[service.RefreshInput, *service.RefreshOutput]{
		Method: http.MethodPost, Path: "/token/refresh", Binder: ez.BindJSON,
		Handler: func(c *gin.Context, in *service.RefreshInput) (*service.RefreshOutput, error) {
			return h.svc.Refresh(c.Request.Context(), *in)
		},
	})

	ez.RegisterAction(authed, ez.Action[struct{}, *service.AccountView]{
		Method: http.MethodGet, Path: "/me", Auth: true,
		Handler: h.me,
	})
	ez.RegisterAction(authed, ez.Action[service.LogoutInput, *service.LogoutOutput]{
		Method: http.MethodPost, Path: "/logout", Auth: true,
		Handler: func(c *gin.Context, in *service.LogoutInput) (*service.LogoutOutput, error) {
			// body 可省略
			if c.Request.ContentLength > 0 {
				if err := c.ShouldBindJSON(in); err != nil {
					return nil, badInput(err, "invalid request body")
				}
			}
			return h.svc.Logout(c.Request.Context(), c.GetString(ez.KeyEmail), *in)
		},
	})
}

func (h *AuthHandler) me(c *gin.Context, _ *struct{}) (*service.AccountView, error) {
	uid, err := ez.UserID(c)
	if err != nil {
		return nil, err
	}
	return h.svc.Me(c.Request.Context(), uid)
}
