package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/tripstack/attractions-api/internal/domain"
	"github.com/tripstack/attractions-api/internal/dto"
	"github.com/tripstack/attractions-api/internal/service"
)

// mockAuthService is a mock implementation of service.AuthService
type mockAuthService struct {
	refreshUserID int64
	refreshPair   *domain.TokenPair
	refreshErr    error
	gotCreds      domain.Credentials
}

func (m *mockAuthService) Signup(ctx context.Context, req *dto.SignupRequest) (*domain.User, error) {
	return nil, nil
}

func (m *mockAuthService) Login(ctx context.Context, req *dto.LoginRequest) (*domain.User, *domain.TokenPair, error) {
	return nil, nil, nil
}

func (m *mockAuthService) Logout(ctx context.Context, userID int64) error { return nil }

func (m *mockAuthService) GetUser(ctx context.Context, userID int64) (*domain.User, error) {
	return nil, nil
}

func (m *mockAuthService) Refresh(ctx context.Context, creds domain.Credentials) (int64, *domain.TokenPair, error) {
	m.gotCreds = creds
	if m.refreshErr != nil {
		return 0, nil, m.refreshErr
	}
	return m.refreshUserID, m.refreshPair, nil
}

func newTestRouter(auth service.AuthService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Session(auth, SessionConfig{}, zap.NewNop()))
	handler := func(c *gin.Context) {
		id, _ := UserID(c)
		c.JSON(http.StatusOK, gin.H{"user_id": id})
	}
	r.GET("/attractions", handler)
	r.POST("/auth/login", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func validAuth() *mockAuthService {
	return &mockAuthService{
		refreshUserID: 42,
		refreshPair:   &domain.TokenPair{AccessToken: "new-access", RefreshToken: "new-refresh"},
	}
}

func TestSession_HeaderChannel(t *testing.T) {
	auth := validAuth()
	router := newTestRouter(auth)

	req := httptest.NewRequest(http.MethodGet, "/attractions", nil)
	req.Header.Set(AccessTokenKey, "old-access")
	req.Header.Set(RefreshTokenKey, "old-refresh")
	req.Header.Set(UserIDKey, "42")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if got := w.Header().Get(AccessTokenKey); got != "new-access" {
		t.Errorf("access header = %q, want new-access", got)
	}
	if got := w.Header().Get(RefreshTokenKey); got != "new-refresh" {
		t.Errorf("refresh header = %q, want new-refresh", got)
	}
	if got := w.Header().Get(UserIDKey); got != "42" {
		t.Errorf("user id header = %q, want 42", got)
	}
	if len(w.Result().Cookies()) != 0 {
		t.Error("header channel must not set cookies")
	}
	if auth.gotCreds.AccessToken != "old-access" {
		t.Errorf("creds passed = %+v", auth.gotCreds)
	}
}

func TestSession_CookieChannel(t *testing.T) {
	auth := validAuth()
	router := newTestRouter(auth)

	req := httptest.NewRequest(http.MethodGet, "/attractions", nil)
	req.AddCookie(&http.Cookie{Name: AccessTokenKey, Value: "old-access"})
	req.AddCookie(&http.Cookie{Name: RefreshTokenKey, Value: "old-refresh"})
	req.AddCookie(&http.Cookie{Name: UserIDKey, Value: "42"})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	cookies := map[string]*http.Cookie{}
	for _, ck := range w.Result().Cookies() {
		cookies[ck.Name] = ck
	}
	access, ok := cookies[AccessTokenKey]
	if !ok {
		t.Fatal("access cookie missing")
	}
	if access.Value != "new-access" {
		t.Errorf("access cookie = %q", access.Value)
	}
	if !access.HttpOnly {
		t.Error("cookies must be httponly")
	}
	if access.MaxAge != accessCookieMaxAge {
		t.Errorf("access max-age = %d, want %d", access.MaxAge, accessCookieMaxAge)
	}
	refresh, ok := cookies[RefreshTokenKey]
	if !ok {
		t.Fatal("refresh cookie missing")
	}
	if refresh.MaxAge != refreshCookieMaxAge {
		t.Errorf("refresh max-age = %d, want %d", refresh.MaxAge, refreshCookieMaxAge)
	}
	if w.Header().Get(AccessTokenKey) != "" {
		t.Error("cookie channel must not set auth headers")
	}
}

func TestSession_MixedChannelsRejected(t *testing.T) {
	router := newTestRouter(validAuth())

	req := httptest.NewRequest(http.MethodGet, "/attractions", nil)
	req.Header.Set(RefreshTokenKey, "header-refresh")
	req.AddCookie(&http.Cookie{Name: AccessTokenKey, Value: "cookie-access"})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestSession_MissingCredentials(t *testing.T) {
	router := newTestRouter(validAuth())

	req := httptest.NewRequest(http.MethodGet, "/attractions", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestSession_PublicPathsBypass(t *testing.T) {
	auth := validAuth()
	auth.refreshErr = errors.New("must not be called")
	router := newTestRouter(auth)

	for _, path := range []string{"/auth/login", "/"} {
		var req *http.Request
		if path == "/" {
			req = httptest.NewRequest(http.MethodGet, path, nil)
		} else {
			req = httptest.NewRequest(http.MethodPost, path, nil)
		}
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Errorf("path %s status = %d, want 200 without credentials", path, w.Code)
		}
	}
}

func TestSession_RootPrefixIsNotPublic(t *testing.T) {
	router := newTestRouter(validAuth())

	// "/attractions" starts with "/" but only the exact root is public.
	req := httptest.NewRequest(http.MethodGet, "/attractions", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestSession_ErrorMapping(t *testing.T) {
	cases := []struct {
		err  error
		code int
	}{
		{service.ErrSessionExpired, http.StatusUnauthorized},
		{service.ErrIdentityMismatch, http.StatusUnauthorized},
		{service.ErrUnknownIdentity, http.StatusUnauthorized},
		{service.ErrRevokedSession, http.StatusUnauthorized},
	}
	for _, tc := range cases {
		auth := validAuth()
		auth.refreshErr = tc.err
		router := newTestRouter(auth)

		req := httptest.NewRequest(http.MethodGet, "/attractions", nil)
		req.Header.Set(RefreshTokenKey, "whatever")
		req.Header.Set(UserIDKey, "1")

		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		if w.Code != tc.code {
			t.Errorf("%v: status = %d, want %d", tc.err, w.Code, tc.code)
		}
	}
}

func TestSession_UserIDInContext(t *testing.T) {
	auth := validAuth()
	auth.refreshUserID = 7
	router := newTestRouter(auth)

	req := httptest.NewRequest(http.MethodGet, "/attractions", nil)
	req.Header.Set(RefreshTokenKey, "r")
	req.Header.Set(UserIDKey, strconv.Itoa(7))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if body := w.Body.String(); body != `{"user_id":7}` {
		t.Errorf("body = %s", body)
	}
}
