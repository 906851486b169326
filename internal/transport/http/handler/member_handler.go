package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"ajeu-backend/internal/service"
	"ajeu-backend/internal/transport/http/ez"
)

// AvatarField multipart 字段名
const AvatarField = "avatar"

type MemberHandler struct {
	svc *service.MemberService
}

func NewMemberHandler(svc *service.MemberService) *MemberHandler { return &MemberHandler{svc: svc} }

func (h *MemberHandler) MountAPI(_, authed ez.EZ) {
	ez.RegisterAction(authed, ez.Action[service.MembersQuery, *service.MembersOutput]{
		Method: http.MethodGet, Path: "/members", Binder: ez.BindQuery, Auth: true,
		Handler: func(c *gin.Context, in *service.MembersQuery) (*service.MembersOutput, error) {
			return h.svc.Members(c.Request.Context(), *in)
		},
	})

	ez.RegisterAction(authed, ez.Action[struct{}, *service.ProfileOutput]{
		Method: http.MethodGet, Path: "/profile", Auth: true,
		Handler: func(c *gin.Context, _ *struct{}) (*service.ProfileOutput, error) {
			uid, err := ez.UserID(c)
			if err != nil {
				return nil, err
			}
			return h.svc.Profile(c.Request.Context(), uid)
		},
	})
	ez.RegisterAction(authed, ez.Action[service.ProfileInput, *service.ProfileUpdateOutput]{
		Method: http.MethodPut, Path: "/profile", Binder: ez.BindJSON, Auth: true,
		Handler: func(c *gin.Context, in *service.ProfileInput) (*service.ProfileUpdateOutput, error) {
			uid, err := ez.UserID(c)
			if err != nil {
				return nil, err
			}
			return h.svc.UpdateProfile(c.Request.Context(), uid, *in)
		},
	})
	ez.RegisterAction(authed, ez.Action[struct{}, *service.AvatarOutput]{
		Method: http.MethodPost, Path: "/profile/avatar", Auth: true,
		Handler: h.uploadAvatar,
	})
}

func (h *MemberHandler) uploadAvatar(c *gin.Context, _ *struct{}) (*service.AvatarOutput, error) {
	uid, err := ez.UserID(c)
	if err != nil {
		return nil, err
	}
	fh, err := c.FormFile(AvatarField)
	if err != nil {
		return nil, badInput(err, `multipart field "avatar" is required`)
	}
	f, err := fh.Open()
	if err != nil {
		return nil, badInput(err, "cannot read uploaded file")
	}
	defer f.Close()
	return h.svc.UploadAvatar(c.Request.Context(), uid, f)
}
