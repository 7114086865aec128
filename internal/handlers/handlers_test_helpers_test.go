package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	iauth "github.com/sellercentry/centry/internal/auth"
	"github.com/sellercentry/centry/internal/database/testutil"
	"github.com/sellercentry/centry/internal/directory"
	"github.com/sellercentry/centry/internal/middleware"
	"github.com/sellercentry/centry/internal/services"
	"github.com/sellercentry/centry/internal/tenancy"
	"github.com/sellercentry/centry/pkg/mail"
)

var directoryRows = [][]string{
	{"Acme Goods", "ACME1", "owner@acme.com", "https://docs.google.com/spreadsheets/d/acme-sheet/edit"},
	{"Blue Harbor", "BLUE2", "team@blueharbor.com", "https://docs.google.com/spreadsheets/d/blue-sheet/edit"},
}

type fakeSource struct {
	rows [][]string
	err  error
}

func (s *fakeSource) Rows(context.Context) ([][]string, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.rows, nil
}

type captureMailer struct {
	mu       sync.Mutex
	messages []mail.Message
	err      error
}

func (m *captureMailer) Send(_ context.Context, msg mail.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.messages = append(m.messages, msg)
	return nil
}

// testEnv wires real services over an in-memory database and a static
// directory source, the same shape the router assembles in production.
type testEnv struct {
	router  *gin.Engine
	jwt     *iauth.JWTService
	access  *services.AccessService
	invites *services.InviteService
	mailer  *captureMailer
}

func newTestEnv(t *testing.T, source directory.Source) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.MustOpenTestDB(t)

	jwt, err := iauth.NewJWTService(iauth.JWTConfig{Secret: "test-secret", Issuer: "centry"})
	require.NoError(t, err)

	access, err := services.NewAccessService(db)
	require.NoError(t, err)

	mailer := &captureMailer{}
	invites, err := services.NewInviteService(db, mailer,
		services.WithInviteBaseURL("https://app.sellercentry.test"))
	require.NoError(t, err)

	dir, err := directory.New(source)
	require.NoError(t, err)

	accounts, err := services.NewAccountService(access, dir)
	require.NoError(t, err)

	resolver := tenancy.NewResolver(tenancy.ResolverConfig{})
	builder, err := tenancy.NewBuilder(resolver, dir, access)
	require.NoError(t, err)

	r := gin.New()
	api := r.Group("/api")
	api.GET("/tenant", middleware.OptionalAuth(jwt), NewTenantHandler(builder).Current)
	api.POST("/invites/validate", NewInviteHandler(invites).Validate)

	authed := api.Group("")
	authed.Use(middleware.Auth(jwt))
	authed.GET("/accounts", NewAccountHandler(accounts).List)
	authed.POST("/invites", NewInviteHandler(invites).Create)
	authed.POST("/invites/redeem", NewInviteHandler(invites).Redeem)
	authed.POST("/tickets", NewTicketHandler(mailer, "support@sellercentry.test").Create)

	return &testEnv{router: r, jwt: jwt, access: access, invites: invites, mailer: mailer}
}

func (e *testEnv) token(t *testing.T, userID, email string) string {
	t.Helper()
	token, err := e.jwt.GenerateAccessToken(userID, email)
	require.NoError(t, err)
	return token
}

func (e *testEnv) do(t *testing.T, method, path, host, token string, payload any) *httptest.ResponseRecorder {
	t.Helper()

	var body *bytes.Buffer
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewBuffer(raw)
	} else {
		body = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, path, body)
	if host != "" {
		req.Host = host
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var envelope struct {
		Success bool           `json:"success"`
		Data    map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.True(t, envelope.Success, "expected success envelope, got %s", w.Body.String())
	return envelope.Data
}

func requireErrorCode(t *testing.T, w *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	require.Equal(t, status, w.Code, w.Body.String())

	var envelope struct {
		Success bool `json:"success"`
		Error   struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.False(t, envelope.Success)
	require.Equal(t, code, envelope.Error.Code)
}
