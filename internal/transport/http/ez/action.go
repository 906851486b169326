package ez

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"slices"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
	"go.uber.org/zap"

	"ajeu-backend/internal/core/apperr"
	resp "ajeu-backend/internal/transport/http/response"
)

// 上下文 key，由 middleware.AuthJWT 写入
const (
	KeyUserID = "userId"
	KeyEmail  = "email"
	KeyRoles  = "roles"
)

func init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("notblank", validators.NotBlank)
		// 校验错误里用 json 字段名
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			for _, tag := range []string{"json", "form"} {
				name := strings.SplitN(f.Tag.Get(tag), ",", 2)[0]
				if name != "" && name != "-" {
					return name
				}
			}
			return f.Name
		})
	}
}

type EZ struct {
	g   *gin.RouterGroup
	log *zap.Logger
}

func New(g *gin.RouterGroup, l *zap.Logger) EZ {
	if l == nil {
		l = zap.NewNop()
	}
	return EZ{g: g, log: l}
}

// 绑定方式
type Binder string

const (
	BindJSON  Binder = "json"  // 从 JSON 绑定
	BindQuery Binder = "query" // 从 URL ?a=b 绑定
	BindNone  Binder = "none"  // 不绑定，自己从 c.Param / c.FormFile 取
)

// 动作定义：I 入参，O 出参
type Action[I any, O any] struct {
	Method  string   // GET | POST | PUT | PATCH | DELETE
	Path    string   // 例："/login"、"/conversations/:id/messages"
	Binder  Binder   // 绑定方式
	Auth    bool     // 是否要求登录（检查 userId）
	Roles   []string // 任一角色命中即可（可选）
	Status  int      // 成功状态码，默认 200；204 不写 body
	Handler func(c *gin.Context, in *I) (O, error)
}

// RegisterAction 在当前分组下注册动作接口；事务由 service 自己管理
func RegisterAction[I any, O any](e EZ, a Action[I, O]) {
	status := a.Status
	if status == 0 {
		status = http.StatusOK
	}
	h := func(c *gin.Context) {
		// 1) 鉴权/角色
		if a.Auth && c.GetString(KeyUserID) == "" {
			resp.Abort(c, http.StatusUnauthorized, "authentication required")
			return
		}
		if len(a.Roles) > 0 && !HasAnyRole(c, a.Roles...) {
			resp.Abort(c, http.StatusForbidden, "access denied")
			return
		}

		// 2) 绑定入参
		var in I
		var bindErr error
		switch a.Binder {
		case BindJSON:
			bindErr = c.ShouldBindJSON(&in)
		case BindQuery:
			bindErr = c.ShouldBindQuery(&in)
		}
		if bindErr != nil {
			writeBindError(c, bindErr)
			return
		}

		// 3) 执行
		out, err := a.Handler(c, &in)
		if err != nil {
			e.Fail(c, err)
			return
		}
		if status == http.StatusNoContent {
			c.Status(status)
			return
		}
		c.JSON(status, resp.OK(out))
	}

	e.g.Handle(strings.ToUpper(a.Method), a.Path, h)
}

// Fail 统一错误映射：*apperr.Error 按类别出状态码，其余一律 500 且不外泄细节
func (e EZ) Fail(c *gin.Context, err error) {
	var ae *apperr.Error
	if errors.As(err, &ae) {
		if ae.Kind == apperr.KindInternal || ae.Kind == apperr.KindUnavailable {
			e.log.Error(ae.Msg, zap.Error(ae.Err), zap.String("path", c.FullPath()))
		}
		resp.Abort(c, ae.Status(), ae.Error())
		return
	}
	e.log.Error("unhandled error", zap.Error(err), zap.String("path", c.FullPath()))
	resp.Abort(c, http.StatusInternalServerError, "")
}

func writeBindError(c *gin.Context, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		resp.Abort(c, http.StatusRequestEntityTooLarge, "request body too large")
		return
	}
	var ves validator.ValidationErrors
	if errors.As(err, &ves) && len(ves) > 0 {
		fe := ves[0]
		resp.Abort(c, http.StatusBadRequest, fmt.Sprintf("field %q failed on %q", fe.Field(), fe.Tag()))
		return
	}
	resp.Abort(c, http.StatusBadRequest, "invalid request: "+err.Error())
}

// HasAnyRole 登录用户是否持有任一角色
func HasAnyRole(c *gin.Context, roles ...string) bool {
	have := c.GetStringSlice(KeyRoles)
	for _, r := range roles {
		if slices.Contains(have, r) {
			return true
		}
	}
	return false
}

// UserID 当前登录用户 id
func UserID(c *gin.Context) (uint, error) {
	id, err := strconv.ParseUint(c.GetString(KeyUserID), 10, 64)
	if err != nil || id == 0 {
		return 0, apperr.Unauthorized("authentication required")
	}
	return uint(id), nil
}

// ParamID 路径里的数字 id
func ParamID(c *gin.Context, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, apperr.BadRequest(fmt.Sprintf("invalid %s", name))
	}
	return uint(id), nil
}

// Group 在当前分组下开子分组（可带中间件）
func (e EZ) Group(path string, mw ...gin.HandlerFunc) EZ {
	return EZ{g: e.g.Group(path, mw...), log: e.log}
}
