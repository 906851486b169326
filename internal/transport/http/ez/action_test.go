package ez

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"ajeu-backend/internal/core/apperr"
	resp "ajeu-backend/internal/transport/http/response"
)

type greetIn struct {
	Name string `json:"name" binding:"required,notblank"`
}

type greetOut struct {
	Hello string `json:"hello"`
}

func newEngine(setup func(c *gin.Context)) (*gin.Engine, EZ) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	if setup != nil {
		r.Use(setup)
	}
	return r, New(r.Group(""), nil)
}

func do(r http.Handler, method, path, body string) (*httptest.ResponseRecorder, resp.Resp) {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	var out resp.Resp
	_ = json.Unmarshal(w.Body.Bytes(), &out)
	return w, out
}

func TestActionBindsAndWrapsEnvelope(t *testing.T) {
	r, e := newEngine(nil)
	RegisterAction(e, Action[greetIn, greetOut]{
		Method: http.MethodPost, Path: "/greet", Binder: BindJSON, Status: http.StatusCreated,
		Handler: func(c *gin.Context, in *greetIn) (greetOut, error) {
			return greetOut{Hello: in.Name}, nil
		},
	})

	w, out := do(r, http.MethodPost, "/greet", `{"name":"Aya"}`)
	if w.Code != http.StatusCreated || out.Code != 0 {
		t.Fatalf("status = %d body = %s", w.Code, w.Body)
	}
	if data, _ := out.Data.(map[string]any); data["hello"] != "Aya" {
		t.Fatalf("data = %v", out.Data)
	}
}

func TestActionValidation(t *testing.T) {
	r, e := newEngine(nil)
	RegisterAction(e, Action[greetIn, greetOut]{
		Method: http.MethodPost, Path: "/greet", Binder: BindJSON,
		Handler: func(c *gin.Context, in *greetIn) (greetOut, error) {
			t.Fatal("handler must not run")
			return greetOut{}, nil
		},
	})

	for _, body := range []string{`{}`, `{"name":"   "}`, `{"name":`} {
		w, out := do(r, http.MethodPost, "/greet", body)
		if w.Code != http.StatusBadRequest || out.Code != 400 {
			t.Errorf("%s: status = %d body = %s", body, w.Code, w.Body)
		}
	}
	_, out := do(r, http.MethodPost, "/greet", `{"name":" "}`)
	if !strings.Contains(out.Message, `"name"`) || !strings.Contains(out.Message, "notblank") {
		t.Errorf("message = %q", out.Message)
	}
}

func TestActionAuthAndRoles(t *testing.T) {
	r, e := newEngine(func(c *gin.Context) {
		if c.GetHeader("X-Test-User") != "" {
			c.Set(KeyUserID, c.GetHeader("X-Test-User"))
			c.Set(KeyRoles, strings.Split(c.GetHeader("X-Test-Roles"), ","))
		}
	})
	RegisterAction(e, Action[struct{}, uint]{
		Method: http.MethodGet, Path: "/admin", Auth: true, Roles: []string{"ROLE_ADMIN"},
		Handler: func(c *gin.Context, _ *struct{}) (uint, error) { return UserID(c) },
	})

	w, _ := do(r, http.MethodGet, "/admin", "")
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous status = %d", w.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("X-Test-User", "7")
	req.Header.Set("X-Test-Roles", "ROLE_USER,ROLE_MEMBER")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusForbidden {
		t.Fatalf("member status = %d", w.Code)
	}

	req.Header.Set("X-Test-Roles", "ROLE_USER,ROLE_ADMIN")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"data":7`) {
		t.Fatalf("admin status = %d body = %s", w.Code, w.Body)
	}
}

func TestActionErrorMapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
		msg    string
	}{
		{apperr.NotFound("matricule not found"), http.StatusNotFound, "matricule not found"},
		{apperr.Conflict("email already in use"), http.StatusConflict, "email already in use"},
		{apperr.UnsupportedMedia("jpeg or png only"), http.StatusUnsupportedMediaType, "jpeg or png only"},
		{apperr.Unavailable("code space exhausted", nil), http.StatusServiceUnavailable, "code space exhausted"},
		{errors.New("sql: connection refused"), http.StatusInternalServerError, "Internal Server Error"},
	}
	for _, tc := range cases {
		r, e := newEngine(nil)
		err := tc.err
		RegisterAction(e, Action[struct{}, struct{}]{
			Method: http.MethodDelete, Path: "/x/:id",
			Handler: func(c *gin.Context, _ *struct{}) (struct{}, error) { return struct{}{}, err },
		})
		w, out := do(r, http.MethodDelete, "/x/1", "")
		if w.Code != tc.status || out.Code != tc.status || out.Message != tc.msg {
			t.Errorf("%v: status = %d body = %s", tc.err, w.Code, w.Body)
		}
	}
}

func TestActionNoContent(t *testing.T) {
	r, e := newEngine(nil)
	RegisterAction(e, Action[struct{}, struct{}]{
		Method: http.MethodDelete, Path: "/x/:id", Status: http.StatusNoContent,
		Handler: func(c *gin.Context, _ *struct{}) (struct{}, error) {
			_, err := ParamID(c, "id")
			return struct{}{}, err
		},
	})
	w, _ := do(r, http.MethodDelete, "/x/3", "")
	if w.Code != http.StatusNoContent || w.Body.Len() != 0 {
		t.Fatalf("status = %d body = %q", w.Code, w.Body)
	}
	w, _ = do(r, http.MethodDelete, "/x/abc", "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("bad id status = %d", w.Code)
	}
}
