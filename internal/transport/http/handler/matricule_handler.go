package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"ajeu-backend/internal/service"
	"ajeu-backend/internal/transport/http/ez"
)

type MatriculeHandler struct {
	svc *service.MatriculeService
}

func NewMatriculeHandler(svc *service.MatriculeService) *MatriculeHandler {
	return &MatriculeHandler{svc: svc}
}

func (h *MatriculeHandler) MountAPI(_, authed ez.EZ) {
	g := authed.Group("/matricules")

	ez.RegisterAction(g, ez.Action[struct{}, []service.MatriculeView]{
		Method: http.MethodGet, Path: "", Auth: true,
		Handler: func(c *gin.Context, _ *struct{}) ([]service.MatriculeView, error) {
			return h.svc.List(c.Request.Context())
		},
	})
	ez.RegisterAction(g, ez.Action[service.CreateMatriculeInput, *service.CreateMatriculeOutput]{
		Method: http.MethodPost, Path: "/create", Binder: ez.BindJSON, Auth: true, Status: http.StatusCreated,
		Handler: func(c *gin.Context, in *service.CreateMatriculeInput) (*service.CreateMatriculeOutput, error) {
			return h.svc.Create(c.Request.Context(), *in)
		},
	})
	ez.RegisterAction(g, ez.Action[service.UpdateMatriculeInput, []service.MatriculeView]{
		Method: http.MethodPut, Path: "/update/:id", Binder: ez.BindJSON, Auth: true,
		Handler: func(c *gin.Context, in *service.UpdateMatriculeInput) ([]service.MatriculeView, error) {
			id, err := ez.ParamID(c, "id")
			if err != nil {
				return nil, err
			}
			return h.svc.Update(c.Request.Context(), id, *in)
		},
	})
	ez.RegisterAction(g, ez.Action[struct{}, []service.MatriculeView]{
		Method: http.MethodDelete, Path: "/delete/:id", Auth: true,
		Handler: func(c *gin.Context, _ *struct{}) ([]service.MatriculeView, error) {
			id, err := ez.ParamID(c, "id")
			if err != nil {
				return nil, err
			}
			return h.svc.Delete(c.Request.Context(), id)
		},
	})
}
