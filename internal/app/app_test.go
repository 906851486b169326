package app

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"ajeu-backend/internal/core/config"
	"ajeu-backend/internal/service"
	"ajeu-backend/internal/testutil"
)

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type harness struct {
	t     *testing.T
	app   *App
	api   *gin.Engine
	admin *gin.Engine
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{
		App: config.App{BaseURL: "http://api.test", HTTP: config.HTTP{WriteTimeoutSec: 5}},
		JWT: config.JWT{Secret: "test-secret", Issuer: "ajeu", AccessTokenTTLMin: 60, RefreshTokenTTLDay: 30},
		Uploads: config.Uploads{
			Dir: t.TempDir(), PublicPrefix: "/uploads", MaxAvatarBytes: 1 << 20,
		},
		Code: config.Code{Prefix: "AJEU", MaxAttempts: 25},
	}
	a := New(cfg, zap.NewNop(), testutil.NewDB(t))
	t.Cleanup(a.Close)
	return &harness{t: t, app: a, api: a.APIEngine(), admin: a.AdminEngine()}
}

func (h *harness) do(r http.Handler, method, path, token string, body any) (*httptest.ResponseRecorder, envelope) {
	h.t.Helper()
	var rd *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			h.t.Fatal(err)
		}
		rd = bytes.NewReader(b)
	} else {
		rd = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return h.serve(r, req)
}

func (h *harness) serve(r http.Handler, req *http.Request) (*httptest.ResponseRecorder, envelope) {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	var env envelope
	if w.Body.Len() > 0 && strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
			h.t.Fatalf("decode %s: %v", w.Body, err)
		}
	}
	return w, env
}

func (h *harness) decode(env envelope, v any) {
	h.t.Helper()
	if err := json.Unmarshal(env.Data, v); err != nil {
		h.t.Fatalf("decode data %s: %v", env.Data, err)
	}
}

func (h *harness) seedCode(nom, prenom string, year int) string {
	h.t.Helper()
	out, err := h.app.Matricules.Create(context.Background(), service.CreateMatriculeInput{
		Nom: nom, Prenom: prenom, MontantAdhesion: 500, AnneeAdhesion: year,
	})
	if err != nil {
		h.t.Fatal(err)
	}
	return out.Matricule.Code
}

// register 注册并返回 JWT
func (h *harness) register(code, email string) string {
	h.t.Helper()
	w, env := h.do(h.api, http.MethodPost, "/api/register", "", map[string]string{
		"firstName": "Aya", "lastName": "Koffi", "matricule": code, "email": email, "password": "secret-pw",
	})
	if w.Code != http.StatusCreated {
		h.t.Fatalf("register status = %d body = %s", w.Code, w.Body)
	}
	var out service.RegisterOutput
	h.decode(env, &out)
	return out.Token
}

func TestHealthAndMetrics(t *testing.T) {
	h := newHarness(t)
	if w, _ := h.do(h.api, http.MethodGet, "/health", "", nil); w.Code != http.StatusOK {
		t.Fatalf("health = %d", w.Code)
	}
	if w, _ := h.do(h.api, http.MethodGet, "/metrics", "", nil); w.Code != http.StatusOK {
		t.Fatalf("metrics = %d", w.Code)
	}
}

func TestRegisterLoginFlow(t *testing.T) {
	h := newHarness(t)
	code := h.seedCode("Brou", "Yao", 2024)

	w, env := h.do(h.api, http.MethodPost, "/api/register", "", map[string]string{
		"firstName": "Aya", "lastName": "Koffi", "matricule": "AJEU1999ZZ000", "email": "aya@example.com", "password": "pw",
	})
	if w.Code != http.StatusBadRequest || env.Code != http.StatusBadRequest {
		t.Fatalf("unknown code status = %d body = %s", w.Code, w.Body)
	}
	w, _ = h.do(h.api, http.MethodPost, "/api/register", "", map[string]string{
		"firstName": "  ", "lastName": "Koffi", "matricule": code, "email": "aya@example.com", "password": "pw",
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("blank name status = %d", w.Code)
	}

	h.register(code, "aya@example.com")

	other := h.seedCode("Zadi", "Marc", 2024)
	w, env = h.do(h.api, http.MethodPost, "/api/register", "", map[string]string{
		"firstName": "Marc", "lastName": "Zadi", "matricule": other, "email": "aya@example.com", "password": "pw",
	})
	if w.Code != http.StatusConflict || env.Code != http.StatusConflict {
		t.Fatalf("duplicate email status = %d body = %s", w.Code, w.Body)
	}

	w, env = h.do(h.api, http.MethodPost, "/api/login", "", map[string]string{"email": "aya@example.com", "password": "secret-pw"})
	if w.Code != http.StatusOK {
		t.Fatalf("login status = %d body = %s", w.Code, w.Body)
	}
	var login service.LoginOutput
	h.decode(env, &login)
	if login.Token == "" || len(login.RefreshToken) != 128 || len(login.User.Cotisations) != 1 {
		t.Fatalf("login = %+v", login)
	}

	w, _ = h.do(h.api, http.MethodPost, "/api/login", "", map[string]string{"email": "aya@example.com", "password": "nope"})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("bad login status = %d", w.Code)
	}

	w, env = h.do(h.api, http.MethodGet, "/api/me", login.Token, nil)
	var me service.AccountView
	h.decode(env, &me)
	if w.Code != http.StatusOK || me.Email != "aya@example.com" || me.Matricule == nil {
		t.Fatalf("me status = %d body = %s", w.Code, w.Body)
	}
	if w, _ := h.do(h.api, http.MethodGet, "/api/users/me", login.Token, nil); w.Code != http.StatusOK {
		t.Fatalf("users/me status = %d", w.Code)
	}
	if w, _ := h.do(h.api, http.MethodGet, "/api/me", "", nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous me status = %d", w.Code)
	}

	w, env = h.do(h.api, http.MethodPost, "/api/token/refresh", "", map[string]string{"refresh_token": login.RefreshToken})
	if w.Code != http.StatusOK {
		t.Fatalf("refresh status = %d body = %s", w.Code, w.Body)
	}
	if w, _ := h.do(h.api, http.MethodPost, "/api/logout", login.Token, map[string]string{"refresh_token": login.RefreshToken}); w.Code != http.StatusOK {
		t.Fatalf("logout status = %d", w.Code)
	}
	w, _ = h.do(h.api, http.MethodPost, "/api/token/refresh", "", map[string]string{"refresh_token": login.RefreshToken})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("refresh after logout status = %d", w.Code)
	}
}

func TestMatriculesAndMembers(t *testing.T) {
	h := newHarness(t)
	tok := h.register(h.seedCode("Koffi", "Aya", 2023), "aya@example.com")

	w, env := h.do(h.api, http.MethodPost, "/api/matricules/create", tok, map[string]any{
		"nom": "Bamba", "prenom": "Awa", "montantAdhesion": 1000, "anneeAdhesion": 2024,
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d body = %s", w.Code, w.Body)
	}
	var created service.CreateMatriculeOutput
	h.decode(env, &created)
	if !strings.HasPrefix(created.Matricule.Code, "AJEU2024BA") {
		t.Fatalf("code = %q", created.Matricule.Code)
	}

	w, _ = h.do(h.api, http.MethodPost, "/api/matricules/create", tok, map[string]any{
		"nom": "Bamba", "prenom": "Awa", "montantAdhesion": 0, "anneeAdhesion": 2024,
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("zero amount status = %d", w.Code)
	}

	w, env = h.do(h.api, http.MethodGet, "/api/members?year=2024", tok, nil)
	var members service.MembersOutput
	h.decode(env, &members)
	if w.Code != http.StatusOK || members.Total != 2 || len(members.Data) != 1 {
		t.Fatalf("members status = %d body = %s", w.Code, w.Body)
	}

	w, env = h.do(h.api, http.MethodDelete, "/api/matricules/delete/"+uintStr(created.Matricule.ID), tok, nil)
	var list []service.MatriculeView
	h.decode(env, &list)
	if w.Code != http.StatusOK || len(list) != 1 {
		t.Fatalf("delete status = %d body = %s", w.Code, w.Body)
	}
	if w, _ := h.do(h.api, http.MethodDelete, "/api/matricules/delete/"+uintStr(created.Matricule.ID), tok, nil); w.Code != http.StatusNotFound {
		t.Fatalf("second delete status = %d", w.Code)
	}

	w, env = h.do(h.api, http.MethodGet, "/api/profile", tok, nil)
	var profile service.ProfileOutput
	h.decode(env, &profile)
	if w.Code != http.StatusOK || profile.Stats.TotalMembers != 1 {
		t.Fatalf("profile status = %d body = %s", w.Code, w.Body)
	}
}

func TestConversationRoutes(t *testing.T) {
	h := newHarness(t)
	tok := h.register(h.seedCode("Koffi", "Aya", 2023), "aya@example.com")

	w, env := h.do(h.api, http.MethodPost, "/api/conversations", tok, map[string]any{
		"participantsId": []string{"1", "2"}, "nameParticipant": "Aya", "nameRecipient": "Yao",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d body = %s", w.Code, w.Body)
	}
	var conv service.ConversationView
	h.decode(env, &conv)
	base := "/api/conversations/" + uintStr(conv.ID)

	w, env = h.do(h.api, http.MethodPost, base+"/messages", tok, map[string]string{"content": "bonjour"})
	if w.Code != http.StatusCreated {
		t.Fatalf("message status = %d body = %s", w.Code, w.Body)
	}
	var msg service.MessageView
	h.decode(env, &msg)
	if msg.EnvoyeurID == "" {
		t.Fatal("sender not stamped from token")
	}

	w, env = h.do(h.api, http.MethodPatch, base+"/status", tok, map[string]any{"status": "read", "unreadCount": 0})
	h.decode(env, &conv)
	if w.Code != http.StatusOK || conv.MessageStatus != "read" || conv.UnreadCount != 0 {
		t.Fatalf("status patch = %d body = %s", w.Code, w.Body)
	}
	if w, _ := h.do(h.api, http.MethodPatch, base+"/status", tok, map[string]any{"status": "lost"}); w.Code != http.StatusBadRequest {
		t.Fatalf("bad status = %d", w.Code)
	}

	if w, _ := h.do(h.api, http.MethodDelete, base+"/messages/"+uintStr(msg.ID), tok, nil); w.Code != http.StatusNoContent {
		t.Fatalf("delete message = %d", w.Code)
	}
	if w, _ := h.do(h.api, http.MethodDelete, base, tok, nil); w.Code != http.StatusNoContent {
		t.Fatalf("delete conversation = %d", w.Code)
	}
	if w, _ := h.do(h.api, http.MethodGet, base, tok, nil); w.Code != http.StatusNotFound {
		t.Fatalf("get deleted = %d", w.Code)
	}
}

func avatarRequest(t *testing.T, token string, content []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("avatar", "me.bin")
	if err != nil {
		t.Fatal(err)
	}
	_, _ = fw.Write(content)
	_ = mw.Close()
	req := httptest.NewRequest(http.MethodPost, "/api/profile/avatar", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func TestAvatarUpload(t *testing.T) {
	h := newHarness(t)
	tok := h.register(h.seedCode("Koffi", "Aya", 2023), "aya@example.com")
	png := []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A, 0, 0, 0, 0x0D, 'I', 'H', 'D', 'R'}

	w, env := h.serve(h.api, avatarRequest(t, tok, png))
	if w.Code != http.StatusOK {
		t.Fatalf("upload status = %d body = %s", w.Code, w.Body)
	}
	var out service.AvatarOutput
	h.decode(env, &out)
	if !strings.HasPrefix(out.AvatarURL, "http://api.test/uploads/avatars/avatar_") {
		t.Fatalf("avatarUrl = %q", out.AvatarURL)
	}
	served := httptest.NewRecorder()
	h.api.ServeHTTP(served, httptest.NewRequest(http.MethodGet, strings.TrimPrefix(out.AvatarURL, "http://api.test"), nil))
	if served.Code != http.StatusOK || !bytes.Equal(served.Body.Bytes(), png) {
		t.Fatalf("static status = %d", served.Code)
	}

	if w, _ := h.serve(h.api, avatarRequest(t, tok, []byte("plain text is not an image"))); w.Code != http.StatusUnsupportedMediaType {
		t.Fatalf("text upload status = %d", w.Code)
	}
}

func TestAdminEngineRequiresAdmin(t *testing.T) {
	h := newHarness(t)
	code := h.seedCode("Koffi", "Aya", 2023)
	member := h.register(code, "aya@example.com")

	if w, _ := h.do(h.admin, http.MethodGet, "/admin/v1/users", member, nil); w.Code != http.StatusForbidden {
		t.Fatalf("member on admin = %d", w.Code)
	}
	if _, err := h.app.Admin.Promote(context.Background(), "aya@example.com"); err != nil {
		t.Fatal(err)
	}
	_, env := h.do(h.api, http.MethodPost, "/api/login", "", map[string]string{"email": "aya@example.com", "password": "secret-pw"})
	var login service.LoginOutput
	h.decode(env, &login)

	w, env := h.do(h.admin, http.MethodGet, "/admin/v1/users?q=aya", login.Token, nil)
	var users service.UserListOutput
	h.decode(env, &users)
	if w.Code != http.StatusOK || users.Total != 1 || users.Items[0].Matricule != code {
		t.Fatalf("admin users = %d body = %s", w.Code, w.Body)
	}

	m, err := h.app.Matricules.List(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	path := "/admin/v1/matricules/" + uintStr(m[0].ID) + "/cotisations"
	if w, _ := h.do(h.admin, http.MethodPost, path, login.Token, map[string]any{"annee": 2024, "montant": 500}); w.Code != http.StatusCreated {
		t.Fatalf("open cotisation = %d", w.Code)
	}
	if w, _ := h.do(h.admin, http.MethodPost, path, login.Token, map[string]any{"annee": 2024}); w.Code != http.StatusConflict {
		t.Fatalf("duplicate cotisation = %d", w.Code)
	}
}
