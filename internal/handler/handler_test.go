package handler_test

import (
	"bytes"
	"encoding/gob"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/user/movierec/internal/config"
	"github.com/user/movierec/internal/handler"
	"github.com/user/movierec/internal/middleware"
	"github.com/user/movierec/internal/model"
	"github.com/user/movierec/internal/repository"
	"github.com/user/movierec/internal/router"
	"github.com/user/movierec/internal/service"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestApp(t *testing.T) (*gin.Engine, *repository.Repositories, *config.Config) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	gob.Register(model.SessionUser{})

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, repository.Migrate(db))

	cfg := &config.Config{
		AppSecret: "test-secret",
		JWTExpiry: time.Hour,
	}

	repos := repository.NewRepositories(db)
	recommend := service.NewRecommendService(repos.Movie, repos.Recommendation, nil)
	h := handler.NewHandler(cfg, repos, recommend, nil)

	r := gin.New()
	store := cookie.NewStore([]byte(cfg.AppSecret))
	r.Use(sessions.Sessions("mysession", store))
	router.RegisterRoutes(r, h, cfg.AppSecret, repos.User)
	return r, repos, cfg
}

func doJSON(t *testing.T, r *gin.Engine, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	r, _, _ := newTestApp(t)
	w := doJSON(t, r, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRegisterAndToken(t *testing.T) {
	r, _, _ := newTestApp(t)

	w := doJSON(t, r, http.MethodPost, "/auth/register", "", gin.H{
		"email":    "alice@example.com",
		"password": "correct-horse",
	})
	require.Equal(t, http.StatusOK, w.Code)

	// 重复注册
	w = doJSON(t, r, http.MethodPost, "/auth/register", "", gin.H{
		"email":    "alice@example.com",
		"password": "correct-horse",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// 密码太短
	w = doJSON(t, r, http.MethodPost, "/auth/register", "", gin.H{
		"email":    "bob@example.com",
		"password": "short",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// 登录
	w = doJSON(t, r, http.MethodPost, "/auth/token", "", gin.H{
		"email":    "alice@example.com",
		"password": "correct-horse",
	})
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data struct {
			AccessToken string `json:"access_token"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Data.AccessToken)

	// 错误密码
	w = doJSON(t, r, http.MethodPost, "/auth/token", "", gin.H{
		"email":    "alice@example.com",
		"password": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func loginToken(t *testing.T, r *gin.Engine, email, password string) string {
	t.Helper()
	w := doJSON(t, r, http.MethodPost, "/auth/register", "", gin.H{"email": email, "password": password})
	require.Equal(t, http.StatusOK, w.Code)
	w = doJSON(t, r, http.MethodPost, "/auth/token", "", gin.H{"email": email, "password": password})
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data struct {
			AccessToken string `json:"access_token"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Data.AccessToken
}

func TestSearchRequiresAuth(t *testing.T) {
	r, _, _ := newTestApp(t)

	w := doJSON(t, r, http.MethodPost, "/api/v1/movies/search", "", gin.H{})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestSearchMovies(t *testing.T) {
	r, repos, _ := newTestApp(t)
	token := loginToken(t, r, "carol@example.com", "password123")

	require.NoError(t, repos.DB.Create(&model.Movie{
		TmdbID: 1, Title: "Hit", VoteAverage: 7.5, VoteCount: 1000, Runtime: 100,
	}).Error)

	w := doJSON(t, r, http.MethodPost, "/api/v1/movies/search", token, gin.H{})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Hit")
}

func TestSearchRejectsBadDate(t *testing.T) {
	r, _, _ := newTestApp(t)
	token := loginToken(t, r, "dave@example.com", "password123")

	w := doJSON(t, r, http.MethodPost, "/api/v1/movies/search", token, gin.H{
		"release_date_from": "03/30/1999",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRecommendAndHistory(t *testing.T) {
	r, repos, _ := newTestApp(t)
	token := loginToken(t, r, "erin@example.com", "password123")

	require.NoError(t, repos.DB.Create(&model.Movie{
		TmdbID: 2, Title: "Recommended", VoteAverage: 7.5, VoteCount: 1000, Runtime: 100,
	}).Error)

	w := doJSON(t, r, http.MethodPost, "/api/v2/movies/recommend", token, gin.H{})
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, r, http.MethodGet, "/api/v2/user/recommendations", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Recommended")

	w = doJSON(t, r, http.MethodPost, "/api/v2/user/recommendations/2/score", token, gin.H{"score": 8})
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, r, http.MethodPost, "/api/v2/user/recommendations/999/score", token, gin.H{"score": 8})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAdminRequiresRole(t *testing.T) {
	r, repos, cfg := newTestApp(t)
	token := loginToken(t, r, "frank@example.com", "password123")

	// 普通用户
	w := doJSON(t, r, http.MethodGet, "/admin/queue", token, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	// 提升为管理员后重新签发令牌
	require.NoError(t, repos.DB.Model(&model.User{}).
		Where("email = ?", "frank@example.com").
		Update("role", "admin").Error)

	admin, err := repos.User.FindByEmail("frank@example.com")
	require.NoError(t, err)
	adminToken, err := middleware.GenerateToken(admin.ID, admin.Email, "admin", admin.Scopes, cfg.AppSecret, cfg.JWTExpiry)
	require.NoError(t, err)

	w = doJSON(t, r, http.MethodGet, "/admin/queue", adminToken, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestDisabledUserRejected(t *testing.T) {
	r, repos, _ := newTestApp(t)
	token := loginToken(t, r, "grace@example.com", "password123")

	_, err := repos.User.UpdateDisabled("grace@example.com", true)
	require.NoError(t, err)

	w := doJSON(t, r, http.MethodGet, "/auth/me", token, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}
