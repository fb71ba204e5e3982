package httpapi

import (
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"

	"github.com/dmitrijs2005/brestid/internal/common"
	"github.com/dmitrijs2005/brestid/internal/dbx"
	"github.com/dmitrijs2005/brestid/internal/logging"
	"github.com/dmitrijs2005/brestid/internal/server/config"
	"github.com/dmitrijs2005/brestid/internal/server/models"
	sessionsrepo "github.com/dmitrijs2005/brestid/internal/server/repositories/sessions"
	usersrepo "github.com/dmitrijs2005/brestid/internal/server/repositories/users"
	"github.com/dmitrijs2005/brestid/internal/server/services"
)

// --- in-memory backing store for the auth service ---

type fakeStore struct {
	mu       sync.Mutex
	byEmail  map[string]*models.User
	byID     map[string]*models.User
	order    []string
	sessions map[string]fakeSession
}

type fakeSession struct {
	userID    string
	expiresAt time.Time
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		byEmail:  make(map[string]*models.User),
		byID:     make(map[string]*models.User),
		sessions: make(map[string]fakeSession),
	}
}

type fakeUsersRepo struct{ s *fakeStore }

func (r *fakeUsersRepo) Create(ctx context.Context, user *models.User) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, exists := r.s.byEmail[user.Email]; exists {
		return nil, common.ErrEmailTaken
	}
	u := *user
	u.ID = "u-" + user.Email
	u.CreatedAt = time.Now()
	r.s.byEmail[u.Email] = &u
	r.s.byID[u.ID] = &u
	r.s.order = append(r.s.order, u.ID)
	out := u
	return &out, nil
}

func (r *fakeUsersRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.byEmail[email]
	if !ok {
		return nil, common.ErrorNotFound
	}
	out := *u
	return &out, nil
}

func (r *fakeUsersRepo) UpdateName(ctx context.Context, userID string, name string) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.byID[userID]
	if !ok {
		return nil, common.ErrorNotFound
	}
	u.Name = sql.NullString{String: name, Valid: true}
	out := *u
	return &out, nil
}

func (r *fakeUsersRepo) Count(ctx context.Context) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return int64(len(r.s.byID)), nil
}

func (r *fakeUsersRepo) Recent(ctx context.Context, limit int) ([]models.RecentUser, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	result := []models.RecentUser{}
	for i := len(r.s.order) - 1; i >= 0 && len(result) < limit; i-- {
		u := r.s.byID[r.s.order[i]]
		ru := models.RecentUser{Email: u.Email, CreatedAt: u.CreatedAt}
		if u.Name.Valid {
			n := u.Name.String
			ru.Name = &n
		}
		result = append(result, ru)
	}
	return result, nil
}

type fakeSessionsRepo struct{ s *fakeStore }

func (r *fakeSessionsRepo) Create(ctx context.Context, userID string, token string, expiresAt time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.sessions[token] = fakeSession{userID: userID, expiresAt: expiresAt}
	return nil
}

func (r *fakeSessionsRepo) FindActiveWithUser(ctx context.Context, token string, now time.Time) (*models.SessionUser, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	sess, ok := r.s.sessions[token]
	if !ok || !sess.expiresAt.After(now) {
		return nil, common.ErrorNotFound
	}
	u, ok := r.s.byID[sess.userID]
	if !ok {
		return nil, common.ErrorNotFound
	}
	su := &models.SessionUser{ExpiresAt: sess.expiresAt, UserID: u.ID, Email: u.Email}
	if u.Name.Valid {
		n := u.Name.String
		su.Name = &n
	}
	return su, nil
}

func (r *fakeSessionsRepo) DeleteByToken(ctx context.Context, token string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.sessions, token)
	return nil
}

func (r *fakeSessionsRepo) CountActive(ctx context.Context, now time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for _, sess := range r.s.sessions {
		if sess.expiresAt.After(now) {
			n++
		}
	}
	return n, nil
}

func (r *fakeSessionsRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for token, sess := range r.s.sessions {
		if !sess.expiresAt.After(now) {
			delete(r.s.sessions, token)
			n++
		}
	}
	return n, nil
}

type fakeRepoManager struct{ s *fakeStore }

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error  { return nil }
func (m *fakeRepoManager) Users(dbx.DBTX) usersrepo.Repository          { return &fakeUsersRepo{s: m.s} }
func (m *fakeRepoManager) Sessions(dbx.DBTX) sessionsrepo.Repository    { return &fakeSessionsRepo{s: m.s} }

// --- helpers ---

func newTestServer(t *testing.T) (*Server, *gin.Engine) {
	t.Helper()

	cfg := &config.Config{
		SecretKey:             "test-secret",
		TokenValidityDuration: time.Hour,
		AllowedOrigins:        []string{"http://localhost:3000"},
		GinMode:               gin.TestMode,
	}
	auth := services.NewAuthService(nil, &fakeRepoManager{s: newFakeStore()}, cfg)
	logger := logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
	srv := NewServer(cfg, logger, auth, nil)
	return srv, srv.Router()
}

func doJSON(t *testing.T, router *gin.Engine, method, path, body, token string) *httptest.ResponseRecorder {
	t.Helper()

	var reader *strings.Reader
	if body != "" {
		reader = strings.NewReader(body)
	} else {
		reader = strings.NewReader("")
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set(common.AuthorizationHeaderName, common.BearerPrefix+token)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON response: %v (%s)", err, w.Body.String())
	}
	return body
}

func register(t *testing.T, router *gin.Engine, email, password, name string) {
	t.Helper()
	w := doJSON(t, router, http.MethodPost, "/auth/register",
		`{"email":"`+email+`","password":"`+password+`","name":"`+name+`"}`, "")
	if w.Code != http.StatusCreated {
		t.Fatalf("register status = %d: %s", w.Code, w.Body.String())
	}
}

func login(t *testing.T, router *gin.Engine, email, password string) string {
	t.Helper()
	w := doJSON(t, router, http.MethodPost, "/auth/login",
		`{"email":"`+email+`","password":"`+password+`"}`, "")
	if w.Code != http.StatusOK {
		t.Fatalf("login status = %d: %s", w.Code, w.Body.String())
	}
	body := decodeBody(t, w)
	token, _ := body["token"].(string)
	if token == "" {
		t.Fatal("login response carries no token")
	}
	return token
}

// --- tests ---

func TestRegister_Created(t *testing.T) {
	_, router := newTestServer(t)

	w := doJSON(t, router, http.MethodPost, "/auth/register",
		`{"email":"alice@example.com","password":"secret1","name":"Alice"}`, "")

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	body := decodeBody(t, w)
	user, _ := body["user"].(map[string]any)
	if user == nil || user["email"] != "alice@example.com" {
		t.Fatalf("unexpected user in response: %v", body)
	}
	if _, leaked := user["password"]; leaked {
		t.Fatal("response must not carry password material")
	}
}

func TestRegister_ValidationErrors(t *testing.T) {
	_, router := newTestServer(t)

	w := doJSON(t, router, http.MethodPost, "/auth/register",
		`{"email":"nope","password":"123"}`, "")

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	body := decodeBody(t, w)
	fields, _ := body["errors"].([]any)
	if len(fields) != 2 {
		t.Fatalf("errors = %v, want two field entries", body["errors"])
	}
}

func TestRegister_DuplicateEmail(t *testing.T) {
	_, router := newTestServer(t)
	register(t, router, "alice@example.com", "secret1", "")

	w := doJSON(t, router, http.MethodPost, "/auth/register",
		`{"email":"alice@example.com","password":"secret2"}`, "")

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestRegister_MalformedBody(t *testing.T) {
	_, router := newTestServer(t)

	w := doJSON(t, router, http.MethodPost, "/auth/register", `{not json`, "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestLogin_InvalidCredentials(t *testing.T) {
	_, router := newTestServer(t)
	register(t, router, "alice@example.com", "secret1", "")

	wWrongPassword := doJSON(t, router, http.MethodPost, "/auth/login",
		`{"email":"alice@example.com","password":"wrong"}`, "")
	wUnknownEmail := doJSON(t, router, http.MethodPost, "/auth/login",
		`{"email":"nobody@example.com","password":"secret1"}`, "")

	if wWrongPassword.Code != http.StatusBadRequest || wUnknownEmail.Code != http.StatusBadRequest {
		t.Fatalf("statuses = %d, %d, want 400 for both", wWrongPassword.Code, wUnknownEmail.Code)
	}
	if wWrongPassword.Body.String() != wUnknownEmail.Body.String() {
		t.Fatal("failure responses must be indistinguishable")
	}
}

func TestVerifyFlow(t *testing.T) {
	_, router := newTestServer(t)
	register(t, router, "alice@example.com", "secret1", "Alice")
	token := login(t, router, "alice@example.com", "secret1")

	w := doJSON(t, router, http.MethodGet, "/auth/verify", "", token)
	if w.Code != http.StatusOK {
		t.Fatalf("verify status = %d: %s", w.Code, w.Body.String())
	}
	body := decodeBody(t, w)
	if body["valid"] != true {
		t.Fatalf("valid = %v, want true", body["valid"])
	}

	// Logout revokes the session; the same token is rejected afterwards.
	w = doJSON(t, router, http.MethodPost, "/auth/logout", "", token)
	if w.Code != http.StatusOK {
		t.Fatalf("logout status = %d: %s", w.Code, w.Body.String())
	}

	w = doJSON(t, router, http.MethodGet, "/auth/verify", "", token)
	if w.Code != http.StatusForbidden {
		t.Fatalf("verify after logout = %d, want 403", w.Code)
	}
}

func TestRequireAuth_MissingToken(t *testing.T) {
	_, router := newTestServer(t)

	for _, path := range []string{"/auth/verify", "/api/profile", "/admin/stats"} {
		w := doJSON(t, router, http.MethodGet, path, "", "")
		if w.Code != http.StatusUnauthorized {
			t.Errorf("%s without token = %d, want 401", path, w.Code)
		}
	}
}

func TestRequireAuth_GarbageToken(t *testing.T) {
	_, router := newTestServer(t)

	w := doJSON(t, router, http.MethodGet, "/auth/verify", "", "garbage")
	if w.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", w.Code)
	}
}

func TestProfile_UpdateReflectedInGet(t *testing.T) {
	_, router := newTestServer(t)
	register(t, router, "alice@example.com", "secret1", "Alice")
	token := login(t, router, "alice@example.com", "secret1")

	w := doJSON(t, router, http.MethodPut, "/api/profile", `{"name":"Alicia"}`, token)
	if w.Code != http.StatusOK {
		t.Fatalf("update status = %d: %s", w.Code, w.Body.String())
	}

	w = doJSON(t, router, http.MethodGet, "/api/profile", "", token)
	if w.Code != http.StatusOK {
		t.Fatalf("get status = %d: %s", w.Code, w.Body.String())
	}
	body := decodeBody(t, w)
	user, _ := body["user"].(map[string]any)
	if user == nil || user["name"] != "Alicia" {
		t.Fatalf("profile name = %v, want Alicia", body)
	}
}

func TestProfile_UpdateRejectsShortName(t *testing.T) {
	_, router := newTestServer(t)
	register(t, router, "alice@example.com", "secret1", "")
	token := login(t, router, "alice@example.com", "secret1")

	w := doJSON(t, router, http.MethodPut, "/api/profile", `{"name":"A"}`, token)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestAdminStats(t *testing.T) {
	_, router := newTestServer(t)
	register(t, router, "alice@example.com", "secret1", "")
	register(t, router, "bob@example.com", "secret1", "")
	token := login(t, router, "alice@example.com", "secret1")

	w := doJSON(t, router, http.MethodGet, "/admin/stats", "", token)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	body := decodeBody(t, w)
	if body["users"] != float64(2) {
		t.Errorf("users = %v, want 2", body["users"])
	}
	if body["activeSessions"] != float64(1) {
		t.Errorf("activeSessions = %v, want 1", body["activeSessions"])
	}
	recent, _ := body["recentUsers"].([]any)
	if len(recent) != 2 {
		t.Errorf("recentUsers = %v, want two rows", body["recentUsers"])
	}
}

func TestHealth(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	srv, _ := newTestServer(t)
	srv.db = db
	router := srv.Router()

	mock.ExpectPing()
	w := doJSON(t, router, http.MethodGet, "/health", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	body := decodeBody(t, w)
	if body["database"] != "connected" {
		t.Errorf("database = %v, want connected", body["database"])
	}

	mock.ExpectPing().WillReturnError(sql.ErrConnDone)
	w = doJSON(t, router, http.MethodGet, "/health", "", "")
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", w.Code)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestNoRoute(t *testing.T) {
	_, router := newTestServer(t)

	w := doJSON(t, router, http.MethodGet, "/nope", "", "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
	body := decodeBody(t, w)
	if body["error"] == "" {
		t.Fatal("expected a JSON error body")
	}
}
