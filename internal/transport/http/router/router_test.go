package router

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"ajeu-backend/internal/core/auth"
	"ajeu-backend/internal/transport/http/ez"
)

type orderMod struct {
	name     string
	priority int
	seen     *[]string
}

func (m orderMod) Priority() int { return m.priority }

func (m orderMod) MountAPI(public, _ ez.EZ) {
	*m.seen = append(*m.seen, m.name)
	ez.RegisterAction(public, ez.Action[struct{}, string]{
		Method: http.MethodGet, Path: "/" + m.name,
		Handler: func(*gin.Context, *struct{}) (string, error) { return m.name, nil },
	})
}

type adminMod struct{ seen *[]string }

func (m adminMod) MountAPI(_, _ ez.EZ) { *m.seen = append(*m.seen, "both-api") }
func (m adminMod) MountAdmin(ez.EZ)    { *m.seen = append(*m.seen, "both-admin") }

type usersMod struct{}

func (usersMod) MountAdmin(admin ez.EZ) {
	ez.RegisterAction(admin, ez.Action[struct{}, int]{
		Method: http.MethodGet, Path: "/users", Auth: true,
		Handler: func(*gin.Context, *struct{}) (int, error) { return 0, nil },
	})
}

func TestRegistryOrdersByPriority(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var seen []string
	reg := &Registry{}
	reg.Register(
		orderMod{name: "late", priority: 200, seen: &seen},
		adminMod{seen: &seen},
		orderMod{name: "early", priority: 1, seen: &seen},
	)

	j := &auth.JWTer{Secret: []byte("k"), Issuer: "ajeu", TTL: time.Minute}
	r := NewAPIEngine(zap.NewNop(), j, reg, Options{})
	NewAdminEngine(zap.NewNop(), j, reg, Options{})

	want := []string{"early", "both-api", "late", "both-admin"}
	if len(seen) != len(want) {
		t.Fatalf("seen = %v", seen)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Fatalf("seen = %v, want %v", seen, want)
		}
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/early", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("public route status = %d", w.Code)
	}
}

func TestAdminEngineRejectsAnonymous(t *testing.T) {
	gin.SetMode(gin.TestMode)
	j := &auth.JWTer{Secret: []byte("k"), Issuer: "ajeu", TTL: time.Minute}
	reg := &Registry{}
	reg.Register(usersMod{})
	r := NewAdminEngine(zap.NewNop(), j, reg, Options{})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/admin/v1/users", nil))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d", w.Code)
	}
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("health = %d", w.Code)
	}
}
