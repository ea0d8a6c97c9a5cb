package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/calcount/calcount-api/internal/application"
	"github.com/calcount/calcount-api/internal/infrastructure/memory"
	handlers "github.com/calcount/calcount-api/internal/interface/http"
	"github.com/calcount/calcount-api/internal/interface/middleware"
	"github.com/calcount/calcount-api/internal/router"
	"github.com/calcount/calcount-api/internal/router/modules"
	"github.com/calcount/calcount-api/pkg/helpers"
	"github.com/calcount/calcount-api/pkg/validation"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	validation.Init()
	helpers.PasswordCost = bcrypt.MinCost
	os.Exit(m.Run())
}

type envelope struct {
	Status  int             `json:"status"`
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   struct {
		Code    string            `json:"code"`
		Details map[string]string `json:"details"`
	} `json:"error"`
}

type testServer struct {
	t      *testing.T
	engine *gin.Engine
	store  *memory.UserRepository
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	store := memory.NewUserRepository()
	users := application.NewService(store, store, helpers.NewJWTManager("test-secret"), nil, logger, nil)
	friends := application.NewFriendService(store, store, nil, logger)

	r := gin.New()
	r.Use(middleware.RequestIDMiddleware())
	reg := router.NewRegistry(r)
	reg.Add(modules.NewDebugModule(r, true))
	reg.Add(modules.NewAuthModule(handlers.NewAuthHandler(users, logger, "localhost", false), users, nil))
	reg.Add(modules.NewUserModule(handlers.NewUserHandler(users, logger), users, nil))
	reg.Add(modules.NewFriendModule(handlers.NewFriendHandler(friends, logger), users, nil))
	reg.RegisterAll()

	return &testServer{t: t, engine: r, store: store}
}

func (s *testServer) do(method, path, token string, body any) (*httptest.ResponseRecorder, envelope) {
	s.t.Helper()
	var rdr io.Reader
	if body != nil {
		switch b := body.(type) {
		case string:
			rdr = bytes.NewBufferString(b)
		default:
			raw, err := json.Marshal(b)
			require.NoError(s.t, err)
			rdr = bytes.NewReader(raw)
		}
	}
	req := httptest.NewRequest(method, path, rdr)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.engine.ServeHTTP(rec, req)

	var env envelope
	if rec.Body.Len() > 0 && rec.Header().Get("Content-Type") != "" {
		_ = json.Unmarshal(rec.Body.Bytes(), &env)
	}
	return rec, env
}

type account struct {
	ID             string   `json:"id"`
	Username       string   `json:"username"`
	Email          string   `json:"email"`
	Friends        []string `json:"friends"`
	SentRequests   []string `json:"sent_requests"`
	FriendRequests []string `json:"friend_requests"`
}

func registerBody(username string) map[string]any {
	return map[string]any{
		"username": username,
		"full_name": map[string]string{
			"first_name": "Test",
			"last_name":  "User",
		},
		"email":    username + "@example.com",
		"password": "password123",
	}
}

// signup registers and logs in username, returning its id and bearer token.
func (s *testServer) signup(username string) (string, string) {
	s.t.Helper()
	rec, _ := s.do(http.MethodPost, "/api/auth/register", "", registerBody(username))
	require.Equal(s.t, http.StatusCreated, rec.Code, rec.Body.String())

	rec, env := s.do(http.MethodPost, "/api/auth/login", "", map[string]string{"username": username, "password": "password123"})
	require.Equal(s.t, http.StatusOK, rec.Code, rec.Body.String())
	var login struct {
		AccessToken string  `json:"access_token"`
		User        account `json:"user"`
	}
	require.NoError(s.t, json.Unmarshal(env.Data, &login))
	require.NotEmpty(s.t, login.AccessToken)
	return login.User.ID, login.AccessToken
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v))
	return v
}

func TestRegister(t *testing.T) {
	s := newTestServer(t)

	rec, env := s.do(http.MethodPost, "/api/auth/register", "", registerBody("nora"))
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.True(t, env.Success)
	acc := decode[account](t, env.Data)
	assert.Equal(t, "nora", acc.Username)
	assert.NotEmpty(t, acc.ID)
	assert.Equal(t, []string{}, acc.Friends)
	assert.NotContains(t, rec.Body.String(), "password")

	rec, env = s.do(http.MethodPost, "/api/auth/register", "", registerBody("nora"))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "username_taken", env.Error.Code)

	other := registerBody("nora2")
	other["email"] = "nora@example.com"
	rec, env = s.do(http.MethodPost, "/api/auth/register", "", other)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "email_taken", env.Error.Code)
}

func TestRegister_ValidationDetails(t *testing.T) {
	s := newTestServer(t)

	bad := registerBody("no spaces allowed")
	bad["password"] = "123"
	bad["full_name"] = map[string]string{"first_name": "R2D2", "last_name": "Droid"}
	rec, env := s.do(http.MethodPost, "/api/auth/register", "", bad)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_payload", env.Error.Code)
	assert.Contains(t, env.Error.Details, "username")
	assert.Contains(t, env.Error.Details, "password")
	assert.Contains(t, env.Error.Details, "full_name.first_name")

	rec, env = s.do(http.MethodPost, "/api/auth/register", "", "{broken")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid json", env.Error.Details["payload"])
}

func TestLogin(t *testing.T) {
	s := newTestServer(t)
	s.do(http.MethodPost, "/api/auth/register", "", registerBody("nora"))

	rec, env := s.do(http.MethodPost, "/api/auth/login", "", map[string]string{"username": "nora", "password": "password123"})
	require.Equal(t, http.StatusOK, rec.Code)
	var found bool
	for _, c := range rec.Result().Cookies() {
		if c.Name == helpers.AccessTokenCookie {
			found = true
			assert.True(t, c.HttpOnly)
			assert.NotEmpty(t, c.Value)
		}
	}
	assert.True(t, found, "access token cookie set")
	assert.Contains(t, string(env.Data), `"token_type":"Bearer"`)

	rec, env = s.do(http.MethodPost, "/api/auth/login", "", map[string]string{"username": "nora", "password": "wrong-password"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "invalid_credentials", env.Error.Code)

	rec, env = s.do(http.MethodPost, "/api/auth/login", "", map[string]string{"username": "ghost", "password": "password123"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "invalid_credentials", env.Error.Code)
}

func TestAuthRequired(t *testing.T) {
	s := newTestServer(t)

	rec, env := s.do(http.MethodGet, "/api/friends", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "missing_token", env.Error.Code)

	rec, env = s.do(http.MethodGet, "/api/friends", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "invalid_token", env.Error.Code)

	foreign, err := helpers.NewJWTManager("other-secret").GenerateToken("nora")
	require.NoError(t, err)
	rec, _ = s.do(http.MethodGet, "/api/friends", foreign, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCookieAuthAndLogout(t *testing.T) {
	s := newTestServer(t)
	_, token := s.signup("nora")

	req := httptest.NewRequest(http.MethodGet, "/api/user/weight-log", nil)
	req.AddCookie(&http.Cookie{Name: helpers.AccessTokenCookie, Value: token})
	rec := httptest.NewRecorder()
	s.engine.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = s.do(http.MethodPost, "/api/auth/logout", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	for _, c := range rec.Result().Cookies() {
		if c.Name == helpers.AccessTokenCookie {
			assert.Empty(t, c.Value)
		}
	}
}

func TestWeightLog(t *testing.T) {
	s := newTestServer(t)
	_, token := s.signup("nora")

	rec, env := s.do(http.MethodPost, "/api/user/weight-log", token, map[string]any{"weight": 72.5, "date": "2024-03-01"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "Weight log entry added successfully", env.Message)
	s.do(http.MethodPost, "/api/user/weight-log", token, map[string]any{"weight": 72.1, "date": "2024-03-02"})

	rec, env = s.do(http.MethodGet, "/api/user/weight-log", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	entries := decode[[]struct {
		Weight float64 `json:"weight"`
		Date   string  `json:"date"`
	}](t, env.Data)
	require.Len(t, entries, 2)
	assert.Equal(t, 72.5, entries[0].Weight)
	assert.Equal(t, "2024-03-01", entries[0].Date)
	assert.Equal(t, "2024-03-02", entries[1].Date)
}

func TestWeightLog_Rejections(t *testing.T) {
	s := newTestServer(t)
	_, token := s.signup("nora")

	for name, body := range map[string]any{
		"zero weight":  map[string]any{"weight": 0, "date": "2024-03-01"},
		"null weight":  map[string]any{"weight": nil, "date": "2024-03-01"},
		"missing date": map[string]any{"weight": 70},
	} {
		rec, env := s.do(http.MethodPost, "/api/user/weight-log", token, body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, name)
		assert.Equal(t, "empty_entry", env.Error.Code, name)
	}

	rec, env := s.do(http.MethodPost, "/api/user/weight-log", token, map[string]any{"weight": -3, "date": "2024-03-01"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_payload", env.Error.Code)

	rec, env = s.do(http.MethodPost, "/api/user/weight-log", token, map[string]any{"weight": "heavy", "date": "2024-03-01"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_payload", env.Error.Code)
}

func TestUserLookups(t *testing.T) {
	s := newTestServer(t)
	noraID, token := s.signup("nora")
	s.signup("norbert")
	s.signup("alice")

	rec, env := s.do(http.MethodGet, "/api/users/id/"+noraID, token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "nora", decode[account](t, env.Data).Username)

	rec, env = s.do(http.MethodGet, "/api/users/alice", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "alice", decode[account](t, env.Data).Username)

	rec, env = s.do(http.MethodGet, "/api/users/ghost", token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "user_not_found", env.Error.Code)

	rec, env = s.do(http.MethodGet, "/api/users/search?username=NOR", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	found := decode[[]account](t, env.Data)
	names := make([]string, 0, len(found))
	for _, u := range found {
		names = append(names, u.Username)
	}
	assert.ElementsMatch(t, []string{"nora", "norbert"}, names)

	rec, env = s.do(http.MethodGet, "/api/users/usernames", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.ElementsMatch(t, []string{"nora", "norbert", "alice"}, decode[[]string](t, env.Data))
}

func TestFriendFlow(t *testing.T) {
	s := newTestServer(t)
	aliceID, alice := s.signup("alice")
	bobID, bob := s.signup("bob")

	rec, _ := s.do(http.MethodPost, "/api/friends/requests/"+bobID, alice, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec, env := s.do(http.MethodPost, "/api/friends/requests/"+bobID, alice, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "request_already_sent", env.Error.Code)

	rec, env = s.do(http.MethodPost, "/api/friends/requests/"+aliceID, bob, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "request_pending_from_other", env.Error.Code)

	_, env = s.do(http.MethodGet, "/api/friends/requests/sent", alice, nil)
	assert.Equal(t, []string{bobID}, decode[[]string](t, env.Data))
	_, env = s.do(http.MethodGet, "/api/friends/requests/received", bob, nil)
	assert.Equal(t, []string{aliceID}, decode[[]string](t, env.Data))

	rec, _ = s.do(http.MethodPut, "/api/friends/requests?_id="+aliceID, bob, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec, env = s.do(http.MethodPut, "/api/friends/requests?_id="+aliceID, bob, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "already_friends", env.Error.Code)

	_, env = s.do(http.MethodGet, "/api/friends", alice, nil)
	assert.Equal(t, []string{bobID}, decode[[]string](t, env.Data))

	s.do(http.MethodPost, "/api/user/weight-log", bob, map[string]any{"weight": 80.2, "date": "2024-05-01"})
	rec, env = s.do(http.MethodGet, "/api/friends/weight-logs", alice, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	data := decode[[]struct {
		FriendID  string `json:"friend_id"`
		WeightLog []struct {
			Weight float64 `json:"weight"`
		} `json:"weight_log"`
	}](t, env.Data)
	require.Len(t, data, 1)
	assert.Equal(t, bobID, data[0].FriendID)
	require.Len(t, data[0].WeightLog, 1)
	assert.Equal(t, 80.2, data[0].WeightLog[0].Weight)

	rec, _ = s.do(http.MethodDelete, "/api/friends/"+bobID, alice, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec, env = s.do(http.MethodDelete, "/api/friends/"+bobID, alice, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "not_friends", env.Error.Code)
}

func TestFriendErrors(t *testing.T) {
	s := newTestServer(t)
	aliceID, alice := s.signup("alice")
	bobID, bob := s.signup("bob")

	rec, env := s.do(http.MethodPost, "/api/friends/requests/"+aliceID, alice, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "self_request", env.Error.Code)

	rec, env = s.do(http.MethodPost, "/api/friends/requests/missing-id", alice, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "receiver_not_found", env.Error.Code)

	rec, env = s.do(http.MethodPut, "/api/friends/requests", bob, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "is required", env.Error.Details["_id"])

	rec, env = s.do(http.MethodPut, "/api/friends/requests?_id="+aliceID, bob, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "no_request_found", env.Error.Code)

	rec, env = s.do(http.MethodPut, "/api/friends/requests?_id=missing-id", bob, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "requester_not_found", env.Error.Code)

	rec, env = s.do(http.MethodDelete, "/api/friends/missing-id", alice, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "friend_not_found", env.Error.Code)

	// the caller's own record vanished after the token was issued
	s.store.Delete(aliceID)
	rec, env = s.do(http.MethodDelete, "/api/friends/"+bobID, alice, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "invalid_token", env.Error.Code)
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t)

	rec, env := s.do(http.MethodGet, "/api/health", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, env.Success)
	assert.NotEmpty(t, rec.Header().Get(middleware.RequestIDHeader))

	rec, _ = s.do(http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = s.do(http.MethodGet, "/api/debug/vars", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHealth_DegradedDependency(t *testing.T) {
	r := gin.New()
	reg := router.NewRegistry(r)
	reg.Add(modules.NewDebugModule(r, false).
		WithCheck("postgres", func(context.Context) error { return nil }).
		WithCheck("redis", func(context.Context) error { return errors.New("dial tcp: refused") }))
	reg.RegisterAll()

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), `"redis":"down"`)
	assert.Contains(t, rec.Body.String(), `"postgres":"up"`)
	assert.NotContains(t, rec.Body.String(), "refused")

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
