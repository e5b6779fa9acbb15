package router

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/swiftmeta/internal/authz"
	"github.com/swiftmeta/internal/cache"
	"github.com/swiftmeta/internal/config"
	"github.com/swiftmeta/internal/logger"
	"github.com/swiftmeta/internal/models"
	"github.com/swiftmeta/internal/provider"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type apiEnvelope struct {
	StatusCode int             `json:"status_code"`
	Message    string          `json:"message"`
	Data       json.RawMessage `json:"data"`
}

type testServer struct {
	engine    *gin.Engine
	container *provider.Container
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger.L = zap.NewNop()

	v := viper.New()
	config.SetDefaults(v)
	var cfg config.Config
	if err := v.Unmarshal(&cfg); err != nil {
		t.Fatalf("unmarshal default config: %v", err)
	}
	cfg.Redis.Enabled = false
	cfg.Queue.Enabled = false
	cfg.Storage.BucketURL = "mem://"
	cfg.Storage.PublicBaseURL = "https://cdn.swiftmeta.test"
	cfg.OTP.ExposeInResponse = true
	cfg.OTP.SendIntervalSeconds = 0
	cfg.Metrics.Enabled = true
	cfg.Ticket.AdminEmail = ""
	cache.UseClient(nil, "")

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	models.DB = db
	if err := models.AutoMigrate(); err != nil {
		t.Fatalf("migrate failed: %v", err)
	}

	container, err := provider.NewContainer(context.Background(), &cfg)
	if err != nil {
		t.Fatalf("new container failed: %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = container.NotificationService.Wait(ctx)
		_ = container.Close()
	})
	engine, err := SetupRouter(&cfg, container)
	if err != nil {
		t.Fatalf("setup router failed: %v", err)
	}
	return &testServer{engine: engine, container: container}
}

func (s *testServer) do(t *testing.T, method, path, token string, body interface{}) (*httptest.ResponseRecorder, apiEnvelope) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)

	var env apiEnvelope
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
			t.Fatalf("decode %s %s: %v body=%s", method, path, err, w.Body.String())
		}
		if env.StatusCode != 0 && env.StatusCode != w.Code {
			t.Fatalf("%s %s: status_code %d differs from http status %d", method, path, env.StatusCode, w.Code)
		}
	}
	return w, env
}

func decodeData(t *testing.T, env apiEnvelope, dest interface{}) {
	t.Helper()
	if err := json.Unmarshal(env.Data, dest); err != nil {
		t.Fatalf("decode data: %v raw=%s", err, string(env.Data))
	}
}

func (s *testServer) adminToken(t *testing.T, username string, isSuper bool) (uint, string) {
	t.Helper()
	admin, err := s.container.AuthService.CreateAdmin(username, "Sup3rSecret", isSuper)
	if err != nil {
		t.Fatalf("create admin: %v", err)
	}
	w, env := s.do(t, http.MethodPost, "/api/v1/admin/login", "", gin.H{"username": username, "password": "Sup3rSecret"})
	if w.Code != http.StatusOK {
		t.Fatalf("admin login want 200 got %d: %s", w.Code, w.Body.String())
	}
	var login struct {
		Token string `json:"token"`
	}
	decodeData(t, env, &login)
	if login.Token == "" {
		t.Fatalf("admin token should not be empty")
	}
	return admin.ID, login.Token
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t)
	w, _ := s.do(t, http.MethodGet, "/healthz", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("healthz want 200 got %d", w.Code)
	}
	w, _ = s.do(t, http.MethodGet, "/metrics", "", nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "http_requests_total") {
		t.Fatalf("metrics should expose request counters, got %d", w.Code)
	}
}

func TestTicketLifecycleOverHTTP(t *testing.T) {
	s := newTestServer(t)

	w, env := s.do(t, http.MethodPost, "/api/v1/tickets", "", gin.H{
		"email":   "User@Example.com",
		"subject": "Login problem",
		"message": "I cannot sign in",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create ticket want 201 got %d: %s", w.Code, w.Body.String())
	}
	var ticket struct {
		TicketID string `json:"ticket_id"`
		Status   string `json:"status"`
		Email    string `json:"email"`
	}
	decodeData(t, env, &ticket)
	if len(ticket.TicketID) != 12 || ticket.Status != "open" || ticket.Email != "user@example.com" {
		t.Fatalf("unexpected ticket %+v", ticket)
	}

	if w, _ := s.do(t, http.MethodPost, "/api/v1/tickets", "", gin.H{"email": "nope", "message": "x"}); w.Code != http.StatusBadRequest {
		t.Fatalf("invalid email want 400 got %d", w.Code)
	}

	w, env = s.do(t, http.MethodPost, "/api/v1/tickets/"+ticket.TicketID+"/reply", "", gin.H{"message": "any update?"})
	if w.Code != http.StatusOK {
		t.Fatalf("user reply want 200 got %d: %s", w.Code, w.Body.String())
	}
	decodeData(t, env, &ticket)
	if ticket.Status != "pending" {
		t.Fatalf("user reply should move ticket to pending, got %s", ticket.Status)
	}

	if w, _ := s.do(t, http.MethodPost, "/api/v1/tickets/"+ticket.TicketID+"/reply", "", gin.H{"message": "hi", "sender": "admin"}); w.Code != http.StatusForbidden {
		t.Fatalf("admin sender on public route want 403 got %d", w.Code)
	}

	_, token := s.adminToken(t, "root", true)

	w, env = s.do(t, http.MethodPost, "/api/v1/admin/tickets/"+ticket.TicketID+"/reply", token, gin.H{"message": "Reset link sent"})
	if w.Code != http.StatusOK {
		t.Fatalf("admin reply want 200 got %d: %s", w.Code, w.Body.String())
	}
	decodeData(t, env, &ticket)
	if ticket.Status != "open" {
		t.Fatalf("admin reply should reopen ticket, got %s", ticket.Status)
	}

	for i := 0; i < 2; i++ {
		w, env = s.do(t, http.MethodPatch, "/api/v1/admin/tickets/"+ticket.TicketID+"/close", token, nil)
		if w.Code != http.StatusOK {
			t.Fatalf("close #%d want 200 got %d: %s", i, w.Code, w.Body.String())
		}
		decodeData(t, env, &ticket)
		if ticket.Status != "closed" {
			t.Fatalf("close should be idempotent, got %s", ticket.Status)
		}
	}

	if w, _ := s.do(t, http.MethodPost, "/api/v1/tickets/"+ticket.TicketID+"/reply", "", gin.H{"message": "still there?"}); w.Code != http.StatusForbidden {
		t.Fatalf("reply on closed ticket want 403 got %d", w.Code)
	}

	w, env = s.do(t, http.MethodGet, "/api/v1/admin/tickets?status=closed&limit=500", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list tickets want 200 got %d", w.Code)
	}
	var page struct {
		Pagination struct {
			Limit int   `json:"limit"`
			Total int64 `json:"total"`
		} `json:"pagination"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &page); err != nil {
		t.Fatalf("decode page: %v", err)
	}
	if page.Pagination.Total != 1 || page.Pagination.Limit != 100 {
		t.Fatalf("unexpected pagination %+v", page.Pagination)
	}

	w, env = s.do(t, http.MethodGet, "/api/v1/admin/audit-logs", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("audit logs want 200 got %d", w.Code)
	}
	var logs []struct {
		Action   string `json:"action"`
		TargetID string `json:"target_id"`
	}
	decodeData(t, env, &logs)
	if len(logs) != 3 {
		t.Fatalf("reply and two closes should be audited, got %+v", logs)
	}
	for _, item := range logs {
		if item.TargetID != ticket.TicketID {
			t.Fatalf("audit target mismatch %+v", item)
		}
	}

	if w, _ := s.do(t, http.MethodGet, "/api/v1/tickets/AAA-AAA-AAAA", "", nil); w.Code != http.StatusNotFound {
		t.Fatalf("unknown ticket want 404 got %d", w.Code)
	}
}

func TestAdminRolesGateRoutes(t *testing.T) {
	s := newTestServer(t)
	_, superToken := s.adminToken(t, "root", true)
	staffID, staffToken := s.adminToken(t, "staff", false)

	if w, _ := s.do(t, http.MethodGet, "/api/v1/admin/contacts", staffToken, nil); w.Code != http.StatusForbidden {
		t.Fatalf("admin without roles want 403 got %d", w.Code)
	}
	if w, _ := s.do(t, http.MethodGet, "/api/v1/admin/me", staffToken, nil); w.Code != http.StatusOK {
		t.Fatalf("me should not require roles, got %d", w.Code)
	}

	path := fmt.Sprintf("/api/v1/admin/authz/admins/%d/roles", staffID)
	if w, _ := s.do(t, http.MethodPut, path, superToken, gin.H{"roles": []string{"ghost"}}); w.Code != http.StatusBadRequest {
		t.Fatalf("unknown role want 400 got %d", w.Code)
	}
	w, _ := s.do(t, http.MethodPut, path, superToken, gin.H{"roles": []string{authz.RoleRecruiter}})
	if w.Code != http.StatusOK {
		t.Fatalf("grant recruiter want 200 got %d: %s", w.Code, w.Body.String())
	}

	if w, _ := s.do(t, http.MethodGet, "/api/v1/admin/applications", staffToken, nil); w.Code != http.StatusOK {
		t.Fatalf("recruiter should list applications, got %d", w.Code)
	}
	if w, _ := s.do(t, http.MethodDelete, "/api/v1/admin/contacts/1", staffToken, nil); w.Code != http.StatusForbidden {
		t.Fatalf("recruiter must not delete contacts, got %d", w.Code)
	}
	if w, _ := s.do(t, http.MethodPut, path, staffToken, gin.H{"roles": []string{authz.RoleModerator}}); w.Code != http.StatusForbidden {
		t.Fatalf("recruiter must not grant roles, got %d", w.Code)
	}
}

func TestAccountSessionRevokedAfterLogout(t *testing.T) {
	s := newTestServer(t)

	w, env := s.do(t, http.MethodPost, "/api/v1/auth/register", "", gin.H{
		"phone": "+27 82 555 0101",
		"email": "Lerato@Example.com",
		"name":  "Lerato",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("register want 201 got %d: %s", w.Code, w.Body.String())
	}
	var issued struct {
		OTP string `json:"otp"`
	}
	decodeData(t, env, &issued)

	if w, _ := s.do(t, http.MethodPost, "/api/v1/auth/register", "", gin.H{"phone": "+27825550101", "email": "lerato@example.com"}); w.Code != http.StatusConflict {
		t.Fatalf("duplicate register want 409 got %d", w.Code)
	}

	if w, _ := s.do(t, http.MethodPost, "/api/v1/auth/verify-email", "", gin.H{"email": "lerato@example.com", "code": issued.OTP}); w.Code != http.StatusOK {
		t.Fatalf("verify email want 200 got %d: %s", w.Code, w.Body.String())
	}

	w, env = s.do(t, http.MethodPost, "/api/v1/auth/request-login-otp", "", gin.H{"email": "lerato@example.com"})
	if w.Code != http.StatusOK {
		t.Fatalf("request login otp want 200 got %d: %s", w.Code, w.Body.String())
	}
	decodeData(t, env, &issued)

	w, env = s.do(t, http.MethodPost, "/api/v1/auth/verify-login-otp", "", gin.H{"email": "lerato@example.com", "code": issued.OTP})
	if w.Code != http.StatusOK {
		t.Fatalf("verify login otp want 200 got %d: %s", w.Code, w.Body.String())
	}
	var session struct {
		Token string `json:"token"`
	}
	decodeData(t, env, &session)

	if w, _ := s.do(t, http.MethodGet, "/api/v1/me", session.Token, nil); w.Code != http.StatusOK {
		t.Fatalf("me want 200 got %d", w.Code)
	}
	if w, _ := s.do(t, http.MethodPost, "/api/v1/me/logout", session.Token, nil); w.Code != http.StatusOK {
		t.Fatalf("logout want 200 got %d", w.Code)
	}
	w, env = s.do(t, http.MethodGet, "/api/v1/me", session.Token, nil)
	if w.Code != http.StatusUnauthorized || env.Message != "token revoked" {
		t.Fatalf("revoked token want 401 token revoked, got %d %q", w.Code, env.Message)
	}
	if w, _ := s.do(t, http.MethodGet, "/api/v1/me", "", nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("missing bearer want 401 got %d", w.Code)
	}
}

func TestSetupRouterFailsWhenValidatorsFail(t *testing.T) {
	prevLogger := logger.L
	logger.L = zap.NewNop()
	prevRegister := registerValidators
	registerValidators = func() error { return fmt.Errorf("engine unavailable") }
	t.Cleanup(func() {
		logger.L = prevLogger
		registerValidators = prevRegister
	})

	engine, err := SetupRouter(&config.Config{}, nil)
	if err == nil || engine != nil {
		t.Fatalf("setup should fail when validators cannot be registered: %v", err)
	}
	if !strings.Contains(err.Error(), "engine unavailable") {
		t.Fatalf("error should wrap registration failure: %v", err)
	}
}
