package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"ajeu-backend/internal/service"
	"ajeu-backend/internal/transport/http/ez"
)

type UserHandler struct {
	users *service.UserService
	auth  *service.AuthService
}

func NewUserHandler(users *service.UserService, auth *service.AuthService) *UserHandler {
	return &UserHandler{users: users, auth: auth}
}

func (h *UserHandler) MountAPI(_, authed ez.EZ) {
	g := authed.Group("/users")

	ez.RegisterAction(g, ez.Action[struct{}, []service.UserSummary]{
		Method: http.MethodGet, Path: "", Auth: true,
		Handler: func(c *gin.Context, _ *struct{}) ([]service.UserSummary, error) {
			return h.users.List(c.Request.Context())
		},
	})
	ez.RegisterAction(g, ez.Action[struct{}, *service.AccountView]{
		Method: http.MethodGet, Path: "/me", Auth: true,
		Handler: func(c *gin.Context, _ *struct{}) (*service.AccountView, error) {
			uid, err := ez.UserID(c)
			if err != nil {
				return nil, err
			}
			return h.auth.Me(c.Request.Context(), uid)
		},
	})
	ez.RegisterAction(g, ez.Action[struct{}, *service.UserSummary]{
		Method: http.MethodGet, Path: "/:id", Auth: true,
		Handler: func(c *gin.Context, _ *struct{}) (*service.UserSummary, error) {
			id, err := ez.ParamID(c, "id")
			if err != nil {
				return nil, err
			}
			return h.users.Get(c.Request.Context(), id)
		},
	})
}
