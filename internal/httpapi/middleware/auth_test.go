package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/edustack/edustack/internal/auth"
	"github.com/gin-gonic/gin"
)

const testSecret = "test-secret"

func newAuthRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(AuthRequired(testSecret))
	r.GET("/whoami", func(c *gin.Context) {
		uid, _ := c.Get(UserIDKey)
		c.String(http.StatusOK, "%v", uid)
	})
	return r
}

func TestAuthRequired_ValidToken(t *testing.T) {
	r := newAuthRouter()

	token, err := auth.SignJWT("user-42", testSecret, time.Minute)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if w.Body.String() != "user-42" {
		t.Fatalf("expected user id on context, got %q", w.Body.String())
	}
}

func TestAuthRequired_MissingHeader(t *testing.T) {
	r := newAuthRouter()

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestAuthRequired_WrongSecret(t *testing.T) {
	r := newAuthRouter()

	token, err := auth.SignJWT("user-42", "other-secret", time.Minute)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestAuthRequired_ExpiredToken(t *testing.T) {
	r := newAuthRouter()

	token, err := auth.SignJWT("user-42", testSecret, -time.Minute)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}
