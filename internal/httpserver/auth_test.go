package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/Skotchmaster/storefront/internal/logging"
	"github.com/Skotchmaster/storefront/internal/middleware/auth"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/notify"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/internal/service"
	"github.com/Skotchmaster/storefront/internal/tokens"
)

var jwtSecret = []byte("test-jwt-secret")

type recordingMailer struct {
	mu   sync.Mutex
	urls []string
	err  error
}

func (m *recordingMailer) SendPasswordReset(_ context.Context, _, resetURL string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.urls = append(m.urls, resetURL)
	return nil
}

type envelope struct {
	Error   bool            `json:"error"`
	Errors  []string        `json:"errors"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
	Status  int             `json:"status"`
}

type testServer struct {
	e      *echo.Echo
	db     *gorm.DB
	mailer *recordingMailer
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Token{}))
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	rp := repo.New(db)
	mailer := &recordingMailer{}
	signer := tokens.NewSigner(jwtSecret, []byte("test-reset-secret"), time.Hour, 900*time.Second)
	svc := service.NewAuthService(rp.Users(), rp.Tokens(), signer, mailer, nil, service.Config{
		ResetURLBase: "https://shop.example/reset-password",
	})

	e := New(ServerOptions{Logger: logging.NewWithWriter(&strings.Builder{}, "error")}, &Deps{
		AuthHandler: &AuthHTTP{Svc: svc},
		JWTSecret:   jwtSecret,
		Ready:       func(ctx context.Context) error { return sqlDB.PingContext(ctx) },
	})
	return &testServer{e: e, db: db, mailer: mailer}
}

func (s *testServer) do(t *testing.T, method, path, body string, prepare ...func(*http.Request)) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	for _, p := range prepare {
		p(req)
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)

	var env envelope
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	}
	return rec, env
}

const registerBody = `{"email":"a@b.com","password":"Secret1!","firstName":"Ada","lastName":"Lovelace"}`

func bearer(tok string) func(*http.Request) {
	return func(r *http.Request) { r.Header.Set(echo.HeaderAuthorization, "Bearer "+tok) }
}

func (s *testServer) login(t *testing.T, email, pw string) string {
	t.Helper()
	rec, env := s.do(t, http.MethodPost, "/auth/login", `{"email":"`+email+`","password":"`+pw+`"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var data struct {
		AuthToken string `json:"authToken"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	return data.AuthToken
}

func TestAuthHTTP_Register(t *testing.T) {
	s := newTestServer(t)

	rec, env := s.do(t, http.MethodPost, "/auth/register", registerBody)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, env.Error)
	assert.Equal(t, http.StatusOK, env.Status)
	assert.Empty(t, env.Errors)
	assert.NotContains(t, string(env.Data), "assword")

	var user map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &user))
	assert.Equal(t, "a@b.com", user["email"])
	assert.Equal(t, true, user["isUser"])

	rec, env = s.do(t, http.MethodPost, "/auth/register", registerBody)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.True(t, env.Error)
	assert.Equal(t, http.StatusForbidden, env.Status)
	assert.Equal(t, "null", string(env.Data))
}

func TestAuthHTTP_Register_ValidationLists(t *testing.T) {
	s := newTestServer(t)

	rec, env := s.do(t, http.MethodPost, "/auth/register", `{"email":"bad"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.True(t, env.Error)
	assert.Equal(t, []string{"email is invalid", "password is required", "firstName is required", "lastName is required"}, env.Errors)
}

func TestAuthHTTP_Register_MalformedJSON(t *testing.T) {
	s := newTestServer(t)

	rec, env := s.do(t, http.MethodPost, "/auth/register", `{"email":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.True(t, env.Error)
	assert.Equal(t, "invalid body", env.Message)
}

func TestAuthHTTP_Login(t *testing.T) {
	s := newTestServer(t)
	s.do(t, http.MethodPost, "/auth/register", registerBody)

	rec, env := s.do(t, http.MethodPost, "/auth/login", `{"email":"a@b.com","password":"Secret1!"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var data map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &data))
	tok, _ := data["authToken"].(string)
	require.NotEmpty(t, tok)
	assert.Equal(t, "a@b.com", data["email"])
	assert.NotContains(t, data, "password")
	assert.NotContains(t, data, "passwordHash")

	var cookie *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == auth.CookieName {
			cookie = c
		}
	}
	require.NotNil(t, cookie)
	assert.Equal(t, tok, cookie.Value)
	assert.True(t, cookie.HttpOnly)
}

func TestAuthHTTP_Login_Failures(t *testing.T) {
	s := newTestServer(t)
	s.do(t, http.MethodPost, "/auth/register", registerBody)

	tests := []struct {
		name    string
		body    string
		status  int
		message string
	}{
		{name: "missing password", body: `{"email":"a@b.com"}`, status: http.StatusBadRequest},
		{name: "wrong password", body: `{"email":"a@b.com","password":"nope"}`, status: http.StatusBadRequest, message: "invalid email or password"},
		{name: "unknown email", body: `{"email":"x@b.com","password":"Secret1!"}`, status: http.StatusBadRequest, message: "invalid email or password"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, env := s.do(t, http.MethodPost, "/auth/login", tt.body)
			assert.Equal(t, tt.status, rec.Code)
			assert.True(t, env.Error)
			assert.Equal(t, tt.status, env.Status)
			if tt.message != "" {
				assert.Equal(t, tt.message, env.Message)
			}
		})
	}
}

func TestAuthHTTP_LogOut(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	h := &AuthHTTP{}
	require.NoError(t, h.LogOut(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, auth.CookieName, cookies[0].Name)
	assert.Empty(t, cookies[0].Value)
	assert.Equal(t, -1, cookies[0].MaxAge)
}

func TestAuthHTTP_ChangePassword(t *testing.T) {
	s := newTestServer(t)
	s.do(t, http.MethodPost, "/auth/register", registerBody)
	tok := s.login(t, "a@b.com", "Secret1!")

	rec, _ := s.do(t, http.MethodPost, "/auth/change-password", `{"oldPassword":"Secret1!","newPassword":"Longer-pass1"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, env := s.do(t, http.MethodPost, "/auth/change-password", `{"oldPassword":"Secret1!","newPassword":"Abcdefgh!"}`, bearer(tok))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, env.Message, "digit")

	rec, _ = s.do(t, http.MethodPost, "/api/v1/auth/change-password", `{"oldPassword":"Secret1!","newPassword":"Longer-pass1"}`,
		func(r *http.Request) { r.AddCookie(&http.Cookie{Name: auth.CookieName, Value: tok}) })
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	s.login(t, "a@b.com", "Longer-pass1")
}

func TestAuthHTTP_ForgotAndResetPassword(t *testing.T) {
	s := newTestServer(t)
	s.do(t, http.MethodPost, "/auth/register", registerBody)

	rec, env := s.do(t, http.MethodPost, "/auth/forgot-password", `{"email":"ghost@b.com"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.True(t, env.Error)

	rec, env = s.do(t, http.MethodPost, "/auth/forgot-password", `{"email":"a@b.com"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{}`, string(env.Data))
	require.Len(t, s.mailer.urls, 1)

	link, err := url.Parse(s.mailer.urls[0])
	require.NoError(t, err)
	body, err := json.Marshal(map[string]string{
		"userId":      link.Query().Get("id"),
		"token":       link.Query().Get("token"),
		"newPassword": "Brand-new1",
	})
	require.NoError(t, err)

	rec, _ = s.do(t, http.MethodPost, "/auth/reset-password", string(body))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	s.login(t, "a@b.com", "Brand-new1")

	rec, _ = s.do(t, http.MethodPost, "/auth/reset-password", string(body))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAuthHTTP_ForgotPassword_SendFailureStatus(t *testing.T) {
	s := newTestServer(t)
	s.do(t, http.MethodPost, "/auth/register", registerBody)
	s.mailer.err = &notify.SendError{Status: http.StatusServiceUnavailable, Message: "could not send password reset email", Err: errors.New("broker down")}

	rec, env := s.do(t, http.MethodPost, "/auth/forgot-password", `{"email":"a@b.com"}`)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "could not send password reset email", env.Message)
	assert.Equal(t, http.StatusServiceUnavailable, env.Status)
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)

	for _, path := range []string{"/health/live", "/health/ready"} {
		rec := httptest.NewRecorder()
		s.e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}
}

func TestUnknownRouteUsesEnvelope(t *testing.T) {
	s := newTestServer(t)

	rec, env := s.do(t, http.MethodGet, "/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.True(t, env.Error)
	assert.Equal(t, http.StatusNotFound, env.Status)
}
