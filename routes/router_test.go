package routes

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"

	"github.com/verselabs/verse/config"
	"github.com/verselabs/verse/models"
)

func setupTest(t *testing.T) (*gin.Engine, *gorm.DB) {
	t.Helper()

	staticDir := t.TempDir()
	err := os.WriteFile(filepath.Join(staticDir, "index.html"), []byte("<!doctype html><div id=\"app\"></div>"), 0o644)
	assert.NoError(t, err)

	config.SetForTesting(config.AppConfig{
		AppPort:        "3000",
		GinMode:        "test",
		JWTSecret:      "test-secret-12345678901234567890",
		StaticDir:      staticDir,
		AllowedOrigins: []string{"*"},
		CookieSecure:   true,
		// Unreachable on purpose: caching degrades to pass-through.
		RedisHost: "localhost",
		RedisPort: 1,
	})

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	assert.NoError(t, err)
	sqlDB, err := db.DB()
	assert.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	assert.NoError(t, db.AutoMigrate(&models.User{}, &models.Post{}, &models.Stat{}))
	assert.NoError(t, config.SeedStats(db))

	return SetupRouter(db), db
}

func doJSON(r *gin.Engine, method, path string, body interface{}, cookie *http.Cookie) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req, _ := http.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if cookie != nil {
		req.AddCookie(cookie)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func sessionCookie(w *httptest.ResponseRecorder) *http.Cookie {
	res := http.Response{Header: w.Header()}
	for _, c := range res.Cookies() {
		if c.Name == "token" {
			return c
		}
	}
	return nil
}

func signup(t *testing.T, r *gin.Engine, email, password, username string) (*http.Cookie, map[string]interface{}) {
	t.Helper()
	w := doJSON(r, "POST", "/api/auth/signup", gin.H{
		"email": email, "password": password, "username": username,
	}, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var body struct {
		User map[string]interface{} `json:"user"`
	}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return sessionCookie(w), body.User
}

func TestSignup(t *testing.T) {
	r, db := setupTest(t)

	t.Run("success sets cookie and returns user", func(t *testing.T) {
		w := doJSON(r, "POST", "/api/auth/signup", gin.H{
			"email": "a@x.com", "password": "pw123456", "username": "alice",
		}, nil)
		assert.Equal(t, http.StatusOK, w.Code)

		var body struct {
			User struct {
				ID        uint   `json:"id"`
				Email     string `json:"email"`
				Username  string `json:"username"`
				AvatarURL string `json:"avatarUrl"`
			} `json:"user"`
		}
		assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.NotZero(t, body.User.ID)
		assert.Equal(t, "a@x.com", body.User.Email)
		assert.Equal(t, "alice", body.User.Username)
		assert.Equal(t, "https://api.dicebear.com/7.x/avataaars/svg?seed=alice", body.User.AvatarURL)
		assert.NotContains(t, w.Body.String(), "pw123456")

		c := sessionCookie(w)
		assert.NotNil(t, c)
		assert.NotEmpty(t, c.Value)
		assert.True(t, c.HttpOnly)
		assert.True(t, c.Secure)
		assert.Equal(t, http.SameSiteNoneMode, c.SameSite)
		assert.Zero(t, c.MaxAge) // session-scoped

		// The stored hash is never the plaintext.
		var user models.User
		assert.NoError(t, db.Where("email = ?", "a@x.com").First(&user).Error)
		assert.NotEqual(t, "pw123456", user.PasswordHash)
	})

	t.Run("duplicate email is rejected without a second row", func(t *testing.T) {
		w := doJSON(r, "POST", "/api/auth/signup", gin.H{
			"email": "a@x.com", "password": "other", "username": "mallory",
		}, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "Email already exists or invalid data")
		assert.Nil(t, sessionCookie(w))

		var count int64
		assert.NoError(t, db.Model(&models.User{}).Where("email = ?", "a@x.com").Count(&count).Error)
		assert.Equal(t, int64(1), count)
	})

	t.Run("missing fields are rejected", func(t *testing.T) {
		w := doJSON(r, "POST", "/api/auth/signup", gin.H{"email": "b@x.com"}, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestLogin(t *testing.T) {
	r, _ := setupTest(t)
	_, created := signup(t, r, "a@x.com", "pw123456", "alice")

	t.Run("correct credentials", func(t *testing.T) {
		w := doJSON(r, "POST", "/api/auth/login", gin.H{
			"email": "a@x.com", "password": "pw123456",
		}, nil)
		assert.Equal(t, http.StatusOK, w.Code)

		var body struct {
			User map[string]interface{} `json:"user"`
		}
		assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, created["id"], body.User["id"])
		assert.NotNil(t, sessionCookie(w))
	})

	t.Run("wrong password", func(t *testing.T) {
		w := doJSON(r, "POST", "/api/auth/login", gin.H{
			"email": "a@x.com", "password": "wrong",
		}, nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "Invalid credentials")
		assert.Nil(t, sessionCookie(w))
	})

	t.Run("unknown email", func(t *testing.T) {
		w := doJSON(r, "POST", "/api/auth/login", gin.H{
			"email": "nobody@x.com", "password": "pw123456",
		}, nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Nil(t, sessionCookie(w))
	})
}

func TestSessionGate(t *testing.T) {
	r, _ := setupTest(t)
	cookie, _ := signup(t, r, "a@x.com", "pw123456", "alice")
	assert.NotNil(t, cookie)

	t.Run("me with valid cookie", func(t *testing.T) {
		w := doJSON(r, "GET", "/api/auth/me", nil, cookie)
		assert.Equal(t, http.StatusOK, w.Code)

		var body struct {
			User struct {
				ID       uint   `json:"id"`
				Email    string `json:"email"`
				Username string `json:"username"`
			} `json:"user"`
		}
		assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, "a@x.com", body.User.Email)
		assert.Equal(t, "alice", body.User.Username)
	})

	t.Run("me without cookie", func(t *testing.T) {
		w := doJSON(r, "GET", "/api/auth/me", nil, nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "Unauthorized")
	})

	t.Run("me with a flipped signature byte", func(t *testing.T) {
		parts := strings.Split(cookie.Value, ".")
		assert.Len(t, parts, 3)
		sig := []byte(parts[2])
		if sig[len(sig)-1] == 'A' {
			sig[len(sig)-1] = 'B'
		} else {
			sig[len(sig)-1] = 'A'
		}
		tampered := &http.Cookie{Name: "token", Value: parts[0] + "." + parts[1] + "." + string(sig)}

		w := doJSON(r, "GET", "/api/auth/me", nil, tampered)
		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Contains(t, w.Body.String(), "Forbidden")
	})

	t.Run("logout clears the cookie", func(t *testing.T) {
		w := doJSON(r, "POST", "/api/auth/logout", nil, cookie)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"success":true`)

		c := sessionCookie(w)
		assert.NotNil(t, c)
		assert.Empty(t, c.Value)
		assert.Negative(t, c.MaxAge)
	})
}

func TestFeed(t *testing.T) {
	r, db := setupTest(t)
	cookie, _ := signup(t, r, "a@x.com", "pw123456", "alice")

	t.Run("empty feed", func(t *testing.T) {
		w := doJSON(r, "GET", "/api/posts", nil, nil)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "[]", strings.TrimSpace(w.Body.String()))
	})

	t.Run("create requires auth", func(t *testing.T) {
		w := doJSON(r, "POST", "/api/posts", gin.H{"content": "hello"}, nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("create returns the denormalized row", func(t *testing.T) {
		w := doJSON(r, "POST", "/api/posts", gin.H{"content": "hello"}, cookie)
		assert.Equal(t, http.StatusOK, w.Code)

		var row models.PostWithAuthor
		assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &row))
		assert.NotZero(t, row.ID)
		assert.Equal(t, "hello", row.Content)
		assert.Equal(t, "alice", row.Username)
		assert.Equal(t, "https://api.dicebear.com/7.x/avataaars/svg?seed=alice", row.AvatarURL)
		assert.False(t, row.CreatedAt.IsZero())
	})

	t.Run("new post is first in the feed", func(t *testing.T) {
		w := doJSON(r, "POST", "/api/posts", gin.H{"content": "second"}, cookie)
		assert.Equal(t, http.StatusOK, w.Code)

		w = doJSON(r, "GET", "/api/posts", nil, nil)
		assert.Equal(t, http.StatusOK, w.Code)

		var rows []models.PostWithAuthor
		assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &rows))
		assert.Len(t, rows, 2)
		assert.Equal(t, "second", rows[0].Content)
		assert.Equal(t, "hello", rows[1].Content)
	})

	t.Run("feed is ordered by created_at descending", func(t *testing.T) {
		var author models.User
		assert.NoError(t, db.Where("email = ?", "a@x.com").First(&author).Error)

		base := time.Now().Add(-time.Hour)
		for i := 0; i < 5; i++ {
			post := models.Post{
				UserID:    author.ID,
				Content:   fmt.Sprintf("backfill %d", i),
				CreatedAt: base.Add(time.Duration(i) * time.Minute),
			}
			assert.NoError(t, db.Create(&post).Error)
		}

		w := doJSON(r, "GET", "/api/posts", nil, nil)
		assert.Equal(t, http.StatusOK, w.Code)

		var rows []models.PostWithAuthor
		assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &rows))
		assert.Len(t, rows, 7)
		for i := 1; i < len(rows); i++ {
			assert.False(t, rows[i-1].CreatedAt.Before(rows[i].CreatedAt),
				"feed out of order at index %d", i)
		}
	})

	t.Run("missing content is rejected", func(t *testing.T) {
		w := doJSON(r, "POST", "/api/posts", gin.H{}, cookie)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestViewCounter(t *testing.T) {
	r, db := setupTest(t)

	t.Run("first view returns 1", func(t *testing.T) {
		w := doJSON(r, "GET", "/api/stats/views", nil, nil)
		assert.Equal(t, http.StatusOK, w.Code)

		var body struct {
			Views int64 `json:"views"`
		}
		assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, int64(1), body.Views)
	})

	t.Run("concurrent views lose no updates", func(t *testing.T) {
		const n = 32

		var wg sync.WaitGroup
		wg.Add(n)
		for i := 0; i < n; i++ {
			go func() {
				defer wg.Done()
				w := doJSON(r, "GET", "/api/stats/views", nil, nil)
				assert.Equal(t, http.StatusOK, w.Code)
			}()
		}
		wg.Wait()

		var stat models.Stat
		assert.NoError(t, db.Where("`key` = ?", models.ViewsKey).First(&stat).Error)
		assert.Equal(t, int64(1+n), stat.Value)
	})
}

func TestNoRouteFallback(t *testing.T) {
	r, _ := setupTest(t)

	t.Run("unknown api route is a JSON 404", func(t *testing.T) {
		w := doJSON(r, "GET", "/api/nope", nil, nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Contains(t, w.Body.String(), "route not found")
	})

	t.Run("unknown page serves the app shell", func(t *testing.T) {
		w := doJSON(r, "GET", "/some/client/route", nil, nil)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `id="app"`)
	})
}

func TestEndToEnd(t *testing.T) {
	r, _ := setupTest(t)

	cookie, user := signup(t, r, "a@x.com", "pw123456", "alice")
	assert.Equal(t, "alice", user["username"])

	w := doJSON(r, "POST", "/api/auth/login", gin.H{"email": "a@x.com", "password": "pw123456"}, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	var loginBody struct {
		User map[string]interface{} `json:"user"`
	}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &loginBody))
	assert.Equal(t, user["id"], loginBody.User["id"])

	w = doJSON(r, "POST", "/api/auth/login", gin.H{"email": "a@x.com", "password": "wrong"}, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doJSON(r, "POST", "/api/posts", gin.H{"content": "hello"}, cookie)
	assert.Equal(t, http.StatusOK, w.Code)
	var created models.PostWithAuthor
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, "hello", created.Content)
	assert.Equal(t, "alice", created.Username)

	w = doJSON(r, "GET", "/api/posts", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	var rows []models.PostWithAuthor
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &rows))
	assert.NotEmpty(t, rows)
	assert.Equal(t, created.ID, rows[0].ID)
	assert.Equal(t, created.Content, rows[0].Content)
}
