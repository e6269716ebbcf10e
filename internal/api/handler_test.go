package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/yakoovad/babylog/internal/auth"
	"github.com/yakoovad/babylog/internal/chat"
	"github.com/yakoovad/babylog/internal/model"
	"github.com/yakoovad/babylog/internal/ratelimit"
	"github.com/yakoovad/babylog/internal/repository"
	"github.com/yakoovad/babylog/internal/service"
	"go.uber.org/zap"
)

const (
	testSecret = "test-secret"
	testCookie = "session-token"
	testBabyID = "0b6f2c1e-5d7a-4e39-9a51-7c3f1d2e8b40"
)

type testEnv struct {
	e        *echo.Echo
	verifier *auth.Verifier

	users    *service.MockUserRepository
	families *service.MockFamilyRepository
	babies   *service.MockBabyRepository
	chats    *service.MockChatRepository
	answerer *service.MockAnswerer
}

func newTestEnv(t *testing.T, limiters ...*ratelimit.Limiter) *testEnv {
	t.Helper()

	env := &testEnv{
		e:        echo.New(),
		verifier: auth.NewVerifier(testSecret),
		users:    new(service.MockUserRepository),
		families: new(service.MockFamilyRepository),
		babies:   new(service.MockBabyRepository),
		chats:    new(service.MockChatRepository),
		answerer: new(service.MockAnswerer),
	}
	env.users.On("Upsert", mock.Anything, mock.Anything).Return(nil).Maybe()

	tx := new(service.MockTransactor)
	h := NewHandler(zap.NewNop()).
		WithAuth(env.verifier, testCookie).
		WithUserService(service.NewUserService(tx).WithUserRepo(env.users).WithFamilyRepo(env.families)).
		WithBabyService(service.NewBabyService(tx).WithFamilyRepo(env.families).WithBabyRepo(env.babies)).
		WithNoteService(service.NewNoteService()).
		WithChatService(service.NewChatService(100).
			WithFamilyRepo(env.families).
			WithBabyRepo(env.babies).
			WithChatRepo(env.chats).
			WithAnswerer(env.answerer)).
		WithMetricsService(service.NewMetricsService().WithChatRepo(env.chats))

	if len(limiters) == 2 {
		h = h.WithRateLimits(limiters[0], limiters[1])
	}

	h.RegisterRoutes(env.e)
	return env
}

func (env *testEnv) token(t *testing.T, typ auth.TokenType) string {
	t.Helper()

	token, err := env.verifier.Issue(auth.SessionClaims{
		Type:             typ,
		Email:            "mom@example.com",
		Name:             "엄마",
		RegisteredClaims: jwt.RegisteredClaims{Subject: "u1"},
	}, time.Hour)
	require.NoError(t, err)
	return token
}

func (env *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	env.e.ServeHTTP(rec, req)
	return rec
}

func (env *testEnv) expectBaby() {
	env.babies.On("Get", mock.Anything, testBabyID).Return(&repository.Baby{
		ID: testBabyID, FamilyID: "f1", Name: "하늘", BirthDate: time.Date(2024, 11, 2, 0, 0, 0, 0, time.UTC),
	}, nil)
	env.families.On("GetMembership", mock.Anything, "u1").Return(&repository.FamilyMember{
		FamilyID: "f1", UserID: "u1", Role: model.FamilyRoleOwner,
	}, nil)
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		code     service.ErrorCode
		expected int
	}{
		{service.ErrorCodeNotFound, http.StatusNotFound},
		{service.ErrorCodeInvalidBody, http.StatusBadRequest},
		{service.ErrorCodeUnauthorized, http.StatusUnauthorized},
		{service.ErrorCodeForbidden, http.StatusForbidden},
		{service.ErrorCodeConflict, http.StatusConflict},
		{service.ErrorCodeAlreadyInFamily, http.StatusConflict},
		{service.ErrorCodeInviteExpired, http.StatusGone},
		{service.ErrorCodeRateLimited, http.StatusTooManyRequests},
		{service.ErrorCodeUnspecified, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.expected, httpStatus(tt.code))
		})
	}
}

func TestAuthMiddleware(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name     string
		setup    func(*http.Request)
		expected int
	}{
		{
			name:     "missing session",
			setup:    func(*http.Request) {},
			expected: http.StatusUnauthorized,
		},
		{
			name: "invalid token",
			setup: func(r *http.Request) {
				r.Header.Set(echo.HeaderAuthorization, "Bearer not-a-jwt")
			},
			expected: http.StatusUnauthorized,
		},
		{
			name: "token signed with another secret",
			setup: func(r *http.Request) {
				other, _ := auth.NewVerifier("other").Issue(auth.SessionClaims{
					RegisteredClaims: jwt.RegisteredClaims{Subject: "u1"},
				}, time.Hour)
				r.Header.Set(echo.HeaderAuthorization, "Bearer "+other)
			},
			expected: http.StatusUnauthorized,
		},
		{
			name: "bearer token",
			setup: func(r *http.Request) {
				r.Header.Set(echo.HeaderAuthorization, "Bearer "+env.token(t, auth.TokenTypeUser))
			},
			expected: http.StatusOK,
		},
		{
			name: "session cookie",
			setup: func(r *http.Request) {
				r.AddCookie(&http.Cookie{Name: testCookie, Value: env.token(t, auth.TokenTypeUser)})
			},
			expected: http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/note-templates", nil)
			tt.setup(req)

			rec := env.do(req)

			assert.Equal(t, tt.expected, rec.Code)
			if tt.expected == http.StatusUnauthorized {
				assert.Contains(t, rec.Body.String(), `"code":"UNAUTHORIZED"`)
			}
		})
	}

	env.users.AssertCalled(t, "Upsert", mock.Anything, mock.MatchedBy(func(u *repository.User) bool {
		return u.ID == "u1" && u.Email == "mom@example.com"
	}))
}

func TestAdminMiddleware(t *testing.T) {
	env := newTestEnv(t)
	env.chats.On("ListMetrics", mock.Anything, mock.Anything, mock.Anything).Return([]*repository.ChatMetrics{
		{Complexity: "simple", HistoryTier: 1, LatencyMS: 500},
	}, nil)

	tests := []struct {
		name     string
		typ      auth.TokenType
		expected int
	}{
		{name: "user session", typ: auth.TokenTypeUser, expected: http.StatusForbidden},
		{name: "admin session", typ: auth.TokenTypeAdmin, expected: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/admin/chat-metrics?from=2025-03-01&to=2025-03-08", nil)
			req.Header.Set(echo.HeaderAuthorization, "Bearer "+env.token(t, tt.typ))

			rec := env.do(req)

			assert.Equal(t, tt.expected, rec.Code)
			if tt.expected == http.StatusOK {
				assert.Contains(t, rec.Body.String(), `"total":1`)
			}
		})
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	env := newTestEnv(t,
		ratelimit.New(client, "api", 2, time.Minute),
		ratelimit.New(client, "chat", 1, time.Minute))
	token := env.token(t, auth.TokenTypeUser)

	codes := make([]int, 0, 3)
	for range 3 {
		req := httptest.NewRequest(http.MethodGet, "/api/note-templates", nil)
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
		codes = append(codes, env.do(req).Code)
	}

	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestChat(t *testing.T) {
	env := newTestEnv(t)
	env.expectBaby()

	env.answerer.On("Answer", mock.Anything, mock.MatchedBy(func(req chat.Request) bool {
		return req.Message == "안녕" && req.Baby.ID == testBabyID
	}), mock.Anything).Run(func(args mock.Arguments) {
		emit := args.Get(2).(func(string) error)
		_ = emit("안녕하세요! ")
		_ = emit("무엇을 도와드릴까요?")
	}).Return(&chat.Result{
		Reply:      "안녕하세요! 무엇을 도와드릴까요?",
		Complexity: chat.Simple,
		History:    chat.HistoryDecision{Count: 0, Tier: 1},
	}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/babies/"+testBabyID+"/chat", strings.NewReader(`{"message":"안녕"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+env.token(t, auth.TokenTypeUser))

	rec := env.do(req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get(echo.HeaderContentType))

	body := rec.Body.String()
	assert.Contains(t, body, `data: {"text":"안녕하세요! "}`+"\n\n")
	assert.Contains(t, body, `data: {"text":"무엇을 도와드릴까요?"}`+"\n\n")
	assert.Contains(t, body, "event: done\n")
	assert.Contains(t, body, `"complexity":"simple"`)
	assert.Contains(t, body, `"history_tier":1`)
	assert.Less(t, strings.Index(body, "무엇을"), strings.Index(body, "event: done"))

	env.answerer.AssertExpectations(t)
}

func TestChat_Errors(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		setup    func(*testEnv)
		expected int
		contains string
	}{
		{
			name:     "missing message",
			body:     `{}`,
			setup:    func(*testEnv) {},
			expected: http.StatusBadRequest,
			contains: `"code":"INVALID_BODY"`,
		},
		{
			name:     "message too long",
			body:     `{"message":"` + strings.Repeat("가", 101) + `"}`,
			setup:    func(*testEnv) {},
			expected: http.StatusBadRequest,
			contains: `"code":"INVALID_BODY"`,
		},
		{
			name: "baby of another family",
			body: `{"message":"안녕"}`,
			setup: func(env *testEnv) {
				env.babies.On("Get", mock.Anything, testBabyID).Return(&repository.Baby{ID: testBabyID, FamilyID: "f2"}, nil)
				env.families.On("GetMembership", mock.Anything, "u1").Return(&repository.FamilyMember{FamilyID: "f1", UserID: "u1"}, nil)
			},
			expected: http.StatusForbidden,
			contains: `"code":"FORBIDDEN"`,
		},
		{
			name: "failure after streaming started",
			body: `{"message":"안녕"}`,
			setup: func(env *testEnv) {
				env.expectBaby()
				env.answerer.On("Answer", mock.Anything, mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
					_ = args.Get(2).(func(string) error)("부분 응답")
				}).Return(nil, context.DeadlineExceeded)
			},
			expected: http.StatusOK,
			contains: "event: error\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			tt.setup(env)

			req := httptest.NewRequest(http.MethodPost, "/api/babies/"+testBabyID+"/chat", strings.NewReader(tt.body))
			req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
			req.Header.Set(echo.HeaderAuthorization, "Bearer "+env.token(t, auth.TokenTypeUser))

			rec := env.do(req)

			assert.Equal(t, tt.expected, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.contains)
		})
	}
}

func TestCreateBaby(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		setup    func(*testEnv)
		expected int
	}{
		{
			name: "success",
			body: `{"name":"하늘","birth_date":"2024-11-02","gender":"girl"}`,
			setup: func(env *testEnv) {
				env.families.On("GetMembership", mock.Anything, "u1").Return(&repository.FamilyMember{FamilyID: "f1", UserID: "u1"}, nil)
				env.babies.On("Create", mock.Anything, mock.MatchedBy(func(b *repository.Baby) bool {
					return b.BirthDate.Equal(time.Date(2024, 11, 2, 0, 0, 0, 0, time.UTC))
				})).Return(nil)
			},
			expected: http.StatusCreated,
		},
		{
			name:     "invalid birth date",
			body:     `{"name":"하늘","birth_date":"02.11.2024"}`,
			setup:    func(*testEnv) {},
			expected: http.StatusBadRequest,
		},
		{
			name:     "unknown gender",
			body:     `{"name":"하늘","birth_date":"2024-11-02","gender":"robot"}`,
			setup:    func(*testEnv) {},
			expected: http.StatusBadRequest,
		},
		{
			name: "no family",
			body: `{"name":"하늘","birth_date":"2024-11-02"}`,
			setup: func(env *testEnv) {
				env.families.On("GetMembership", mock.Anything, "u1").Return(nil, repository.ErrNotFound)
			},
			expected: http.StatusForbidden,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			tt.setup(env)

			req := httptest.NewRequest(http.MethodPost, "/api/babies", strings.NewReader(tt.body))
			req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
			req.Header.Set(echo.HeaderAuthorization, "Bearer "+env.token(t, auth.TokenTypeUser))

			rec := env.do(req)

			assert.Equal(t, tt.expected, rec.Code)
		})
	}
}

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error {
	return f(ctx)
}

func TestHealthCheck(t *testing.T) {
	tests := []struct {
		name     string
		db       error
		redis    error
		expected int
	}{
		{name: "all up", expected: http.StatusOK},
		{name: "redis down degrades", redis: errors.New("connection refused"), expected: http.StatusOK},
		{name: "postgres down", db: errors.New("connection refused"), expected: http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checker := MustNewHealthChecker("test",
				PingCheck("postgres", pingerFunc(func(context.Context) error { return tt.db }), false),
				PingCheck("redis", pingerFunc(func(context.Context) error { return tt.redis }), true),
			)

			e := echo.New()
			NewHandler(zap.NewNop()).WithHealthChecker(checker).RegisterRoutes(e)

			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

			assert.Equal(t, tt.expected, rec.Code)
		})
	}
}

func TestMalformedPathID(t *testing.T) {
	tests := []struct {
		name   string
		method string
		path   string
	}{
		{name: "baby", method: http.MethodGet, path: "/api/babies/not-a-uuid"},
		{name: "baby stats", method: http.MethodGet, path: "/api/babies/123/stats/daily"},
		{name: "activity", method: http.MethodDelete, path: "/api/activities/a1"},
		{name: "note", method: http.MethodPatch, path: "/api/notes/n1"},
		{name: "chat", method: http.MethodPost, path: "/api/babies/b1/chat"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)

			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(`{}`))
			req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
			req.Header.Set(echo.HeaderAuthorization, "Bearer "+env.token(t, auth.TokenTypeUser))

			rec := env.do(req)

			assert.Equal(t, http.StatusNotFound, rec.Code)
			assert.Contains(t, rec.Body.String(), `"code":"NOT_FOUND"`)
			env.babies.AssertNotCalled(t, "Get", mock.Anything, mock.Anything)
		})
	}
}

func TestGetBaby(t *testing.T) {
	env := newTestEnv(t)
	env.expectBaby()

	req := httptest.NewRequest(http.MethodGet, "/api/babies/"+testBabyID, nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+env.token(t, auth.TokenTypeUser))

	rec := env.do(req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"name":"하늘"`)
}
