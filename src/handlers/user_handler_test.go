package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/pigstyle/records/backend/src/database"
	"github.com/pigstyle/records/backend/src/models"
	"github.com/pigstyle/records/backend/src/security"
	"github.com/pigstyle/records/backend/src/utils"
)

func newAuthFixture(t *testing.T) *UserHandler {
	t.Helper()
	database.InitDB(t.TempDir() + "/store.db")
	return NewUserHandler(security.NewAuthService("test-secret-that-is-long-enough-0123"))
}

func createTestUser(t *testing.T, h *UserHandler, username, password, role string) *models.User {
	t.Helper()
	hashed, err := h.authService.HashPassword(password)
	if err != nil {
		t.Fatal(err)
	}
	user := &models.User{Username: username, Password: hashed, Role: role}
	if err := models.CreateUser(database.DB, user); err != nil {
		t.Fatal(err)
	}
	return user
}

func loginToken(t *testing.T, h *UserHandler, username, password string) string {
	t.Helper()
	body := `{"username":"` + username + `","password":"` + password + `"}`
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(body))
	rr := httptest.NewRecorder()
	h.LoginUserHandler(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("login status = %d, body %s", rr.Code, rr.Body.String())
	}
	var resp struct {
		AccessToken string `json:"access_token"`
		User        struct {
			Role string `json:"role"`
		} `json:"user"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.AccessToken == "" {
		t.Fatal("login returned empty access token")
	}
	return resp.AccessToken
}

func TestLoginRejectsBadPassword(t *testing.T) {
	h := newAuthFixture(t)
	createTestUser(t, h, "clerk", "right-password", models.RoleEmployee)

	body := `{"username":"clerk","password":"wrong"}`
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(body))
	rr := httptest.NewRecorder()
	h.LoginUserHandler(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rr.Code)
	}
}

func TestAuthMiddleware(t *testing.T) {
	h := newAuthFixture(t)
	createTestUser(t, h, "clerk", "pw123456", models.RoleEmployee)
	token := loginToken(t, h, "clerk", "pw123456")

	protected := h.AuthMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, ok := GetUserIDFromContext(r.Context())
		if !ok || userID == 0 {
			t.Error("user id missing from context")
		}
		role, _ := GetUserRoleFromContext(r.Context())
		if role != models.RoleEmployee {
			t.Errorf("role in context = %q", role)
		}
		utils.WriteJSON(w, http.StatusOK, map[string]string{"ok": "yes"})
	}))

	// No header.
	rr := httptest.NewRecorder()
	protected.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/records", nil))
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("no header: status = %d, want 401", rr.Code)
	}

	// Garbage token.
	req := httptest.NewRequest(http.MethodGet, "/api/records", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	rr = httptest.NewRecorder()
	protected.ServeHTTP(rr, req)
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("bad token: status = %d, want 401", rr.Code)
	}

	// Valid token.
	req = httptest.NewRequest(http.MethodGet, "/api/records", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr = httptest.NewRecorder()
	protected.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Errorf("valid token: status = %d, body %s", rr.Code, rr.Body.String())
	}
}

func TestLogoutInvalidatesSession(t *testing.T) {
	h := newAuthFixture(t)
	createTestUser(t, h, "clerk", "pw123456", models.RoleEmployee)
	token := loginToken(t, h, "clerk", "pw123456")

	req := httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	h.LogoutUserHandler(rr, req)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("logout status = %d", rr.Code)
	}

	// The token still carries a valid signature but the session is gone.
	protected := h.AuthMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	req = httptest.NewRequest(http.MethodGet, "/api/records", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr = httptest.NewRecorder()
	protected.ServeHTTP(rr, req)
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("after logout: status = %d, want 401", rr.Code)
	}
}

func TestRequireRole(t *testing.T) {
	h := newAuthFixture(t)
	createTestUser(t, h, "boss", "pw123456", models.RoleAdmin)
	createTestUser(t, h, "clerk", "pw123456", models.RoleEmployee)
	createTestUser(t, h, "seller", "pw123456", models.RoleConsignor)

	adminOnly := h.AuthMiddleware(RequireRole(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})))
	staffOnly := h.AuthMiddleware(RequireRole(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}), models.RoleEmployee))

	cases := []struct {
		name     string
		username string
		handler  http.Handler
		wantCode int
	}{
		{"admin passes admin gate", "boss", adminOnly, http.StatusOK},
		{"employee blocked from admin gate", "clerk", adminOnly, http.StatusForbidden},
		{"consignor blocked from admin gate", "seller", adminOnly, http.StatusForbidden},
		{"admin passes staff gate", "boss", staffOnly, http.StatusOK},
		{"employee passes staff gate", "clerk", staffOnly, http.StatusOK},
		{"consignor blocked from staff gate", "seller", staffOnly, http.StatusForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			token := loginToken(t, h, tc.username, "pw123456")
			req := httptest.NewRequest(http.MethodGet, "/api/whatever", nil)
			req.Header.Set("Authorization", "Bearer "+token)
			rr := httptest.NewRecorder()
			tc.handler.ServeHTTP(rr, req)
			if rr.Code != tc.wantCode {
				t.Errorf("status = %d, want %d", rr.Code, tc.wantCode)
			}
		})
	}
}

func TestRegisterUserValidation(t *testing.T) {
	h := newAuthFixture(t)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/register",
		strings.NewReader(`{"username":"newbie","password":"pw123456","role":"superuser"}`))
	rr := httptest.NewRecorder()
	h.RegisterUserHandler(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("invalid role: status = %d, want 400", rr.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/auth/register",
		strings.NewReader(`{"username":"newbie","password":"pw123456","role":"consignor"}`))
	rr = httptest.NewRecorder()
	h.RegisterUserHandler(rr, req)
	if rr.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rr.Code, rr.Body.String())
	}

	// Duplicate username.
	req = httptest.NewRequest(http.MethodPost, "/api/auth/register",
		strings.NewReader(`{"username":"newbie","password":"pw123456"}`))
	rr = httptest.NewRecorder()
	h.RegisterUserHandler(rr, req)
	if rr.Code != http.StatusConflict {
		t.Errorf("duplicate: status = %d, want 409", rr.Code)
	}
}
