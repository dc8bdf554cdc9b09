package auth_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"

	"github.com/snd-erp/snd-erp/internal/auth"
	"github.com/snd-erp/snd-erp/internal/authz"
	"github.com/snd-erp/snd-erp/internal/shared"
	_ "github.com/snd-erp/snd-erp/testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newRouter(handler *auth.Handler) http.Handler {
	r := chi.NewRouter()
	r.Route("/auth", handler.MountRoutes)
	return r
}

type stubRepo struct {
	user     *auth.User
	sessions map[string]int64
}

func (s *stubRepo) FindByEmail(ctx context.Context, email string) (*auth.User, error) {
	if s.user == nil || s.user.Email != email {
		return nil, shared.ErrNotFound
	}
	return s.user, nil
}

func (s *stubRepo) FindByID(ctx context.Context, id int64) (*auth.User, error) {
	if s.user == nil || s.user.ID != id {
		return nil, shared.ErrNotFound
	}
	return s.user, nil
}

func (s *stubRepo) CreateSession(ctx context.Context, id string, userID int64, expiresAt time.Time, ip, ua string) error {
	if s.sessions == nil {
		s.sessions = make(map[string]int64)
	}
	s.sessions[id] = userID
	return nil
}

func (s *stubRepo) DeleteSession(ctx context.Context, id string) error {
	delete(s.sessions, id)
	return nil
}

type stubStore struct {
	perms map[int64][]string
}

func (s *stubStore) GetUser(ctx context.Context, userID int64) (authz.User, error) {
	if _, ok := s.perms[userID]; !ok {
		return authz.User{}, authz.ErrNotFound
	}
	return authz.User{ID: userID, IsActive: true}, nil
}

func (s *stubStore) GetRolesForUser(ctx context.Context, userID int64) ([]authz.Role, error) {
	return []authz.Role{{ID: userID}}, nil
}

func (s *stubStore) GetPermissionsForRoles(ctx context.Context, roleIDs []int64) ([]string, error) {
	var out []string
	for _, id := range roleIDs {
		out = append(out, s.perms[id]...)
	}
	return out, nil
}

func (s *stubStore) GetDirectPermissions(ctx context.Context, userID int64) ([]string, error) {
	return nil, nil
}

func newAuthHandler(t *testing.T, repo auth.Repository, perms map[int64][]string) (*auth.Handler, *shared.SessionManager) {
	t.Helper()
	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	sessionManager := shared.NewSessionManager(redisClient, "test_session", "secret", time.Hour, false)
	csrfManager := shared.NewCSRFManager("csrfsecret")
	evaluator := authz.NewEvaluator(&stubStore{perms: perms}, authz.NewCache(time.Minute), nil, nil)
	handler := auth.NewHandler(testLogger(), auth.NewService(repo), evaluator, sessionManager, csrfManager)
	return handler, sessionManager
}

func activeUser(t *testing.T, id int64, email, password string) *auth.User {
	t.Helper()
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	return &auth.User{ID: id, Email: email, Name: "Test User", PasswordHash: string(hashed), IsActive: true}
}

func doJSON(t *testing.T, sessionManager *shared.SessionManager, router http.Handler, method, target, body string) (*httptest.ResponseRecorder, *shared.Session) {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	sess, err := sessionManager.Load(context.Background(), req)
	if err != nil {
		t.Fatalf("load session: %v", err)
	}
	req = req.WithContext(shared.ContextWithSession(req.Context(), sess))
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)
	return res, sess
}

func TestLoginSuccess(t *testing.T) {
	repo := &stubRepo{user: activeUser(t, 1, "user@test.local", "correctpass")}
	handler, sessionManager := newAuthHandler(t, repo, map[int64][]string{1: {"read.employee"}})
	router := newRouter(handler)

	res, sess := doJSON(t, sessionManager, router, http.MethodPost, "/auth/login", `{"email":"user@test.local","password":"correctpass"}`)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
	if sess.User() != "1" {
		t.Fatalf("expected session user 1, got %q", sess.User())
	}
	if _, ok := repo.sessions[sess.ID]; !ok {
		t.Fatalf("expected session record persisted")
	}
	if !strings.Contains(res.Body.String(), `"email":"user@test.local"`) {
		t.Fatalf("expected email in response, got %s", res.Body.String())
	}
}

func TestLoginInvalidCredentials(t *testing.T) {
	repo := &stubRepo{user: activeUser(t, 1, "user@test.local", "correctpass")}
	handler, sessionManager := newAuthHandler(t, repo, nil)
	router := newRouter(handler)

	res, sess := doJSON(t, sessionManager, router, http.MethodPost, "/auth/login", `{"email":"user@test.local","password":"wrongpass1"}`)

	if res.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", res.Code)
	}
	if sess.User() != "" {
		t.Fatalf("expected anonymous session, got %q", sess.User())
	}
}

func TestLoginInactiveUser(t *testing.T) {
	user := activeUser(t, 1, "user@test.local", "correctpass")
	user.IsActive = false
	handler, sessionManager := newAuthHandler(t, &stubRepo{user: user}, nil)
	router := newRouter(handler)

	res, _ := doJSON(t, sessionManager, router, http.MethodPost, "/auth/login", `{"email":"user@test.local","password":"correctpass"}`)

	if res.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for inactive user, got %d", res.Code)
	}
}

func TestLoginValidation(t *testing.T) {
	handler, sessionManager := newAuthHandler(t, &stubRepo{}, nil)
	router := newRouter(handler)

	res, _ := doJSON(t, sessionManager, router, http.MethodPost, "/auth/login", `{"email":"not-an-email","password":"short"}`)
	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}

func TestMeReturnsEffectivePermissions(t *testing.T) {
	repo := &stubRepo{user: activeUser(t, 1, "user@test.local", "correctpass")}
	handler, sessionManager := newAuthHandler(t, repo, map[int64][]string{1: {"read.employee", "manage.rental"}})
	router := newRouter(handler)

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	sess, err := sessionManager.Load(context.Background(), req)
	if err != nil {
		t.Fatalf("load session: %v", err)
	}
	sess.SetUser("1")
	req = req.WithContext(shared.ContextWithSession(req.Context(), sess))
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
	body := res.Body.String()
	for _, want := range []string{`"user_id":"1"`, "read.employee", "manage.rental"} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected %q in body, got %s", want, body)
		}
	}
}

func TestMeUnauthenticated(t *testing.T) {
	handler, sessionManager := newAuthHandler(t, &stubRepo{}, nil)
	router := newRouter(handler)

	res, _ := doJSON(t, sessionManager, router, http.MethodGet, "/auth/me", "")
	if res.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", res.Code)
	}
}

func TestLogoutDestroysSession(t *testing.T) {
	repo := &stubRepo{user: activeUser(t, 1, "user@test.local", "correctpass"), sessions: map[string]int64{}}
	handler, sessionManager := newAuthHandler(t, repo, nil)
	router := newRouter(handler)

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	sess, err := sessionManager.Load(context.Background(), req)
	if err != nil {
		t.Fatalf("load session: %v", err)
	}
	sess.SetUser("1")
	repo.sessions[sess.ID] = 1
	req = req.WithContext(shared.ContextWithSession(req.Context(), sess))
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	if res.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", res.Code)
	}
	if _, ok := repo.sessions[sess.ID]; ok {
		t.Fatalf("expected session record removed")
	}
}
