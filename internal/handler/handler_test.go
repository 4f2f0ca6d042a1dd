package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"mood-diary-go/internal/model"
	"mood-diary-go/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeUserService struct {
	registerErr error
	loginErr    error
	refreshErr  error
	logoutErr   error
	loggedOut   string
}

func (f *fakeUserService) Register(_ context.Context, username, _ string) (*model.User, error) {
	if f.registerErr != nil {
		return nil, f.registerErr
	}
	return &model.User{ID: 1, Username: username, Role: "USER"}, nil
}

func (f *fakeUserService) Login(context.Context, string, string) (string, string, error) {
	return "access", "refresh", f.loginErr
}

func (f *fakeUserService) GetProfile(_ context.Context, username string) (*model.User, error) {
	return &model.User{ID: 1, Username: username}, nil
}

func (f *fakeUserService) Logout(_ context.Context, tokenString string) error {
	f.loggedOut = tokenString
	return f.logoutErr
}

func (f *fakeUserService) IsTokenRevoked(context.Context, string) (bool, error) {
	return false, nil
}

func (f *fakeUserService) RefreshToken(context.Context, string) (string, string, error) {
	return "new-access", "new-refresh", f.refreshErr
}

func doJSON(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func newUserRouter(svc service.UserService, user *model.User) *gin.Engine {
	r := gin.New()
	h := NewUserHandler(svc)
	r.POST("/register", h.Register)
	r.POST("/login", h.Login)
	r.POST("/refresh", NewAuthHandler(svc).RefreshToken)
	authed := r.Group("/", withUser(user))
	authed.GET("/me", h.GetProfile)
	authed.POST("/logout", h.Logout)
	return r
}

func TestRegister(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		err    error
		status int
	}{
		{"ok", `{"username":"bob","password":"secret1"}`, nil, http.StatusOK},
		{"short password", `{"username":"bob","password":"123"}`, nil, http.StatusBadRequest},
		{"missing username", `{"password":"secret1"}`, nil, http.StatusBadRequest},
		{"taken", `{"username":"bob","password":"secret1"}`, service.ErrUserExists, http.StatusConflict},
		{"db error", `{"username":"bob","password":"secret1"}`, errors.New("db"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newUserRouter(&fakeUserService{registerErr: tt.err}, nil)
			w := doJSON(r, http.MethodPost, "/register", tt.body)
			assert.Equal(t, tt.status, w.Code)
		})
	}
}

func TestRegister_HidesPassword(t *testing.T) {
	r := newUserRouter(&fakeUserService{}, nil)
	w := doJSON(r, http.MethodPost, "/register", `{"username":"bob","password":"secret1"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "password")
}

func TestLogin(t *testing.T) {
	r := newUserRouter(&fakeUserService{}, nil)
	w := doJSON(r, http.MethodPost, "/login", `{"username":"bob","password":"pw"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"token":"access","refreshToken":"refresh"}`, string(decode(t, w).Data))

	r = newUserRouter(&fakeUserService{loginErr: service.ErrInvalidCredentials}, nil)
	w = doJSON(r, http.MethodPost, "/login", `{"username":"bob","password":"bad"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRefreshToken(t *testing.T) {
	r := newUserRouter(&fakeUserService{}, nil)
	w := doJSON(r, http.MethodPost, "/refresh", `{"refreshToken":"r"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"token":"new-access","refreshToken":"new-refresh"}`, string(decode(t, w).Data))

	r = newUserRouter(&fakeUserService{refreshErr: service.ErrInvalidRefreshToken}, nil)
	w = doJSON(r, http.MethodPost, "/refresh", `{"refreshToken":"r"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doJSON(r, http.MethodPost, "/refresh", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestProfileAndLogout(t *testing.T) {
	svc := &fakeUserService{}
	r := newUserRouter(svc, testUser)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/me", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var user model.User
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &user))
	assert.Equal(t, "alice", user.Username)

	req := httptest.NewRequest(http.MethodPost, "/logout", nil)
	req.Header.Set("Authorization", "Bearer tok-123")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "tok-123", svc.loggedOut)
}

type fakeSearchService struct {
	hits []model.MoodSearchHit
	err  error
	topK int
}

func (f *fakeSearchService) SearchEntries(_ context.Context, _ *model.User, _ string, topK int) ([]model.MoodSearchHit, error) {
	f.topK = topK
	return f.hits, f.err
}

func TestSearch(t *testing.T) {
	svc := &fakeSearchService{hits: []model.MoodSearchHit{{EntryID: 3, Mood: "joy", HitScore: 1.5}}}
	r := gin.New()
	r.GET("/search", withUser(testUser), NewSearchHandler(svc).Search)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/search?query=hike&topK=3", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 3, svc.topK)
	var hits []model.MoodSearchHit
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &hits))
	require.Len(t, hits, 1)
	assert.Equal(t, uint(3), hits[0].EntryID)

	svc.err = service.ErrEmptyQuery
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/search?query=", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	svc.err = errors.New("es down")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/search?query=x&topK=abc", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, 0, svc.topK)
}

type fakeExportService struct {
	res *service.ExportResult
	err error
}

func (f *fakeExportService) ExportHistory(context.Context, *model.User) (*service.ExportResult, error) {
	return f.res, f.err
}

func TestExport(t *testing.T) {
	svc := &fakeExportService{res: &service.ExportResult{ObjectName: "exports/1/x.json", URL: "https://minio/x", Entries: 2}}
	r := gin.New()
	r.POST("/export", withUser(testUser), NewExportHandler(svc).Export)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/export", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var res service.ExportResult
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &res))
	assert.Equal(t, "https://minio/x", res.URL)

	svc.err = errors.New("minio down")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/export", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestHome(t *testing.T) {
	r := gin.New()
	r.GET("/", NewHomeHandler("mood-diary-go", 5).Home)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"service":"mood-diary-go","maxQuestions":5,"questionnaire":"/api/v1/mood/log"}`, string(decode(t, w).Data))
}
