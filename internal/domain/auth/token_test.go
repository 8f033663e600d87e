package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/arth-1/socialpost/internal/platform/errors"
)

func TestAuthToken_RoundTrip(t *testing.T) {
	tokens, err := NewAuthToken("secret", "socialpost")
	if err != nil {
		t.Fatalf("NewAuthToken: %v", err)
	}
	signed, expires, err := tokens.WithTTL(time.Hour).GenerateToken("studio-ui")
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	if time.Until(expires) <= 59*time.Minute {
		t.Fatalf("unexpected expiry %v", expires)
	}

	claims, err := tokens.VerifyToken(signed)
	if err != nil {
		t.Fatalf("VerifyToken: %v", err)
	}
	if claims.Subject != "studio-ui" || claims.Issuer != "socialpost" {
		t.Fatalf("unexpected claims %+v", claims)
	}
}

func TestAuthToken_Rejects(t *testing.T) {
	tokens, _ := NewAuthToken("secret", "socialpost")
	other, _ := NewAuthToken("other-secret", "socialpost")
	foreign, _ := NewAuthToken("secret", "someone-else")

	signed, _, _ := other.GenerateToken("x")
	if _, err := tokens.VerifyToken(signed); !errors.IsKind(err, errors.KindAuthentication) {
		t.Fatalf("wrong secret accepted: %v", err)
	}

	signed, _, _ = foreign.GenerateToken("x")
	if _, err := tokens.VerifyToken(signed); err == nil {
		t.Fatal("wrong issuer accepted")
	}

	expired, _ := NewAuthToken("secret", "socialpost")
	expired.now = func() time.Time { return time.Now().Add(-48 * time.Hour) }
	signed, _, _ = expired.GenerateToken("x")
	if _, err := tokens.VerifyToken(signed); err == nil {
		t.Fatal("expired token accepted")
	}

	if _, err := tokens.VerifyToken("not-a-jwt"); err == nil {
		t.Fatal("garbage accepted")
	}
	if _, err := NewAuthToken("", ""); !errors.IsKind(err, errors.KindConfig) {
		t.Fatalf("empty secret accepted: %v", err)
	}
}

func TestMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	tokens, _ := NewAuthToken("secret", "socialpost")
	engine := gin.New()
	engine.POST("/guarded", Middleware(tokens, nil), func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(ContextSubjectKey))
	})

	signed, _, _ := tokens.GenerateToken("studio-ui")
	cases := []struct {
		header string
		status int
	}{
		{"", http.StatusUnauthorized},
		{"Basic abc", http.StatusUnauthorized},
		{"Bearer nope", http.StatusUnauthorized},
		{"Bearer " + signed, http.StatusOK},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodPost, "/guarded", nil)
		if tc.header != "" {
			req.Header.Set("Authorization", tc.header)
		}
		rec := httptest.NewRecorder()
		engine.ServeHTTP(rec, req)
		if rec.Code != tc.status {
			t.Fatalf("header %q: status %d, want %d", tc.header, rec.Code, tc.status)
		}
		if tc.status == http.StatusOK && rec.Body.String() != "studio-ui" {
			t.Fatalf("subject not propagated: %q", rec.Body.String())
		}
	}
}
