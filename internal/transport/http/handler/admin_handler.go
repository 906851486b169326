package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"ajeu-backend/internal/domain"
	"ajeu-backend/internal/service"
	"ajeu-backend/internal/transport/http/ez"
)

type AdminHandler struct {
	svc *service.AdminService
}

func NewAdminHandler(svc *service.AdminService) *AdminHandler { return &AdminHandler{svc: svc} }

// MountAdmin 分组已走 AuthJWT(ROLE_ADMIN)，这里再按角色校验一次
func (h *AdminHandler) MountAdmin(admin ez.EZ) {
	roles := []string{domain.RoleAdmin}

	// --- 用户列表 ---
	ez.RegisterAction(admin, ez.Action[service.UserListQuery, *service.UserListOutput]{
		Method: http.MethodGet, Path: "/users", Binder: ez.BindQuery, Auth: true, Roles: roles,
		Handler: func(c *gin.Context, in *service.UserListQuery) (*service.UserListOutput, error) {
			return h.svc.ListUsers(c.Request.Context(), *in)
		},
	})

	// --- 授予 / 撤销角色 ---
	ez.RegisterAction(admin, ez.Action[service.RolesInput, *service.AdminUserRow]{
		Method: http.MethodPost, Path: "/users/:id/roles", Binder: ez.BindJSON, Auth: true, Roles: roles,
		Handler: func(c *gin.Context, in *service.RolesInput) (*service.AdminUserRow, error) {
			id, err := ez.ParamID(c, "id")
			if err != nil {
				return nil, err
			}
			return h.svc.SetRoles(c.Request.Context(), id, *in)
		},
	})

	// --- 开一个会费年度 ---
	ez.RegisterAction(admin, ez.Action[service.OpenCotisationInput, *service.CotisationView]{
		Method: http.MethodPost, Path: "/matricules/:id/cotisations", Binder: ez.BindJSON, Auth: true, Roles: roles,
		Status: http.StatusCreated,
		Handler: func(c *gin.Context, in *service.OpenCotisationInput) (*service.CotisationView, error) {
			id, err := ez.ParamID(c, "id")
			if err != nil {
				return nil, err
			}
			return h.svc.OpenCotisation(c.Request.Context(), id, *in)
		},
	})

	// --- 标记已缴 / 改金额 ---
	ez.RegisterAction(admin, ez.Action[service.CotisationPatch, *service.CotisationView]{
		Method: http.MethodPatch, Path: "/cotisations/:id", Binder: ez.BindJSON, Auth: true, Roles: roles,
		Handler: func(c *gin.Context, in *service.CotisationPatch) (*service.CotisationView, error) {
			id, err := ez.ParamID(c, "id")
			if err != nil {
				return nil, err
			}
			return h.svc.UpdateCotisation(c.Request.Context(), id, *in)
		},
	})
}
