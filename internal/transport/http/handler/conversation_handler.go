package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"ajeu-backend/internal/service"
	"ajeu-backend/internal/transport/http/ez"
)

type ConversationHandler struct {
	convs *service.ConversationService
	msgs  *service.MessageService
}

func NewConversationHandler(convs *service.ConversationService, msgs *service.MessageService) *ConversationHandler {
	return &ConversationHandler{convs: convs, msgs: msgs}
}

func (h *ConversationHandler) MountAPI(_, authed ez.EZ) {
	g := authed.Group("/conversations")

	ez.RegisterAction(g, ez.Action[struct{}, []service.ConversationView]{
		Method: http.MethodGet, Path: "", Auth: true,
		Handler: func(c *gin.Context, _ *struct{}) ([]service.ConversationView, error) {
			return h.convs.List(c.Request.Context())
		},
	})
	ez.RegisterAction(g, ez.Action[service.ConversationInput, *service.ConversationView]{
		Method: http.MethodPost, Path: "", Binder: ez.BindJSON, Auth: true, Status: http.StatusCreated,
		Handler: func(c *gin.Context, in *service.ConversationInput) (*service.ConversationView, error) {
			return h.convs.Create(c.Request.Context(), *in)
		},
	})
	ez.RegisterAction(g, ez.Action[struct{}, *service.ConversationView]{
		Method: http.MethodGet, Path: "/:id", Auth: true,
		Handler: func(c *gin.Context, _ *struct{}) (*service.ConversationView, error) {
			id, err := ez.ParamID(c, "id")
			if err != nil {
				return nil, err
			}
			return h.convs.Get(c.Request.Context(), id)
		},
	})
	for _, m := range []string{http.MethodPut, http.MethodPatch} {
		ez.RegisterAction(g, ez.Action[service.ConversationPatch, *service.ConversationView]{
			Method: m, Path: "/:id", Binder: ez.BindJSON, Auth: true,
			Handler: func(c *gin.Context, in *service.ConversationPatch) (*service.ConversationView, error) {
				id, err := ez.ParamID(c, "id")
				if err != nil {
					return nil, err
				}
				return h.convs.Update(c.Request.Context(), id, *in)
			},
		})
	}
	ez.RegisterAction(g, ez.Action[service.StatusPatch, *service.ConversationView]{
		Method: http.MethodPatch, Path: "/:id/status", Binder: ez.BindJSON, Auth: true,
		Handler: func(c *gin.Context, in *service.StatusPatch) (*service.ConversationView, error) {
			id, err := ez.ParamID(c, "id")
			if err != nil {
				return nil, err
			}
			return h.convs.PatchStatus(c.Request.Context(), id, *in)
		},
	})
	ez.RegisterAction(g, ez.Action[struct{}, struct{}]{
		Method: http.MethodDelete, Path: "/:id", Auth: true, Status: http.StatusNoContent,
		Handler: func(c *gin.Context, _ *struct{}) (struct{}, error) {
			id, err := ez.ParamID(c, "id")
			if err != nil {
				return struct{}{}, err
			}
			return struct{}{}, h.convs.Delete(c.Request.Context(), id)
		},
	})

	// 消息
	ez.RegisterAction(g, ez.Action[struct{}, []service.MessageView]{
		Method: http.MethodGet, Path: "/:id/messages", Auth: true,
		Handler: func(c *gin.Context, _ *struct{}) ([]service.MessageView, error) {
			id, err := ez.ParamID(c, "id")
			if err != nil {
				return nil, err
			}
			return h.msgs.List(c.Request.Context(), id)
		},
	})
	ez.RegisterAction(g, ez.Action[service.MessageInput, *service.MessageView]{
		Method: http.MethodPost, Path: "/:id/messages", Binder: ez.BindJSON, Auth: true, Status: http.StatusCreated,
		Handler: func(c *gin.Context, in *service.MessageInput) (*service.MessageView, error) {
			id, err := ez.ParamID(c, "id")
			if err != nil {
				return nil, err
			}
			return h.msgs.Create(c.Request.Context(), id, c.GetString(ez.KeyUserID), *in)
		},
	})
	ez.RegisterAction(g, ez.Action[struct{}, struct{}]{
		Method: http.MethodDelete, Path: "/:id/messages/:messageId", Auth: true, Status: http.StatusNoContent,
		Handler: func(c *gin.Context, _ *struct{}) (struct{}, error) {
			id, err := ez.ParamID(c, "id")
			if err != nil {
				return struct{}{}, err
			}
			mid, err := ez.ParamID(c, "messageId")
			if err != nil {
				return struct{}{}, err
			}
			return struct{}{}, h.msgs.Delete(c.Request.Context(), id, mid)
		},
	})
}
