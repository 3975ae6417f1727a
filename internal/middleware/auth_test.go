package middleware

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/verdant-network/reward-layer/internal/logging"
)

func generateTestKeys(t *testing.T) (*rsa.PrivateKey, *rsa.PublicKey) {
	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("Failed to generate RSA key: %v", err)
	}
	return privateKey, &privateKey.PublicKey
}

func generateTestToken(t *testing.T, privateKey *rsa.PrivateKey, userID, role string, expired bool) string {
	claims := &Claims{
		UserID:     userID,
		AuthMethod: "test",
		Role:       role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(1 * time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	if expired {
		claims.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-1 * time.Hour))
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	tokenString, err := token.SignedString(privateKey)
	if err != nil {
		t.Fatalf("Failed to sign token: %v", err)
	}
	return tokenString
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthMiddleware_Handler_SkipPaths(t *testing.T) {
	_, publicKey := generateTestKeys(t)
	logger := logging.NewDefault("test")

	middleware := NewAuthMiddleware(publicKey, logger, []string{"/health"})
	handler := middleware.Handler(okHandler())

	req := httptest.NewRequest("GET", "/health", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("Status code = %d, want %d", rec.Code, http.StatusOK)
	}
}

func TestAuthMiddleware_Handler_MissingAuthHeader(t *testing.T) {
	_, publicKey := generateTestKeys(t)
	middleware := NewAuthMiddleware(publicKey, logging.NewDefault("test"), nil)
	handler := middleware.Handler(okHandler())

	req := httptest.NewRequest("GET", "/api/test", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("Status code = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestAuthMiddleware_Handler_InvalidAuthHeaderFormat(t *testing.T) {
	_, publicKey := generateTestKeys(t)
	middleware := NewAuthMiddleware(publicKey, logging.NewDefault("test"), nil)
	handler := middleware.Handler(okHandler())

	tests := []struct {
		name   string
		header string
	}{
		{"no bearer prefix", "token123"},
		{"wrong prefix", "Basic token123"},
		{"malformed token", "Bearer not.a.jwt"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/api/test", nil)
			req.Header.Set("Authorization", tt.header)
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != http.StatusUnauthorized {
				t.Errorf("Status code = %d, want %d", rec.Code, http.StatusUnauthorized)
			}
		})
	}
}

func TestAuthMiddleware_Handler_ValidToken(t *testing.T) {
	privateKey, publicKey := generateTestKeys(t)
	middleware := NewAuthMiddleware(publicKey, logging.NewDefault("test"), nil)

	var capturedUserID string
	handler := middleware.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		capturedUserID = GetUserID(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	token := generateTestToken(t, privateKey, "user-123", "", false)
	req := httptest.NewRequest("GET", "/api/test", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("Status code = %d, want %d", rec.Code, http.StatusOK)
	}
	if capturedUserID != "user-123" {
		t.Errorf("User ID = %v, want user-123", capturedUserID)
	}
}

func TestAuthMiddleware_Handler_ExpiredToken(t *testing.T) {
	privateKey, publicKey := generateTestKeys(t)
	middleware := NewAuthMiddleware(publicKey, logging.NewDefault("test"), nil)
	handler := middleware.Handler(okHandler())

	token := generateTestToken(t, privateKey, "user-123", "", true)
	req := httptest.NewRequest("GET", "/api/test", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("Status code = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestAuthMiddleware_Handler_WrongSigningKey(t *testing.T) {
	privateKey1, _ := generateTestKeys(t)
	_, publicKey2 := generateTestKeys(t)
	middleware := NewAuthMiddleware(publicKey2, logging.NewDefault("test"), nil)
	handler := middleware.Handler(okHandler())

	token := generateTestToken(t, privateKey1, "user-123", "", false)
	req := httptest.NewRequest("GET", "/api/test", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("Status code = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestRequireAdmin(t *testing.T) {
	handler := RequireAdmin(okHandler())

	tests := []struct {
		name       string
		ctx        context.Context
		wantStatus int
	}{
		{
			name:       "admin role",
			ctx:        logging.WithRole(context.Background(), RoleAdmin),
			wantStatus: http.StatusOK,
		},
		{
			name:       "non-admin role",
			ctx:        logging.WithRole(context.Background(), "user"),
			wantStatus: http.StatusForbidden,
		},
		{
			name:       "no role",
			ctx:        context.Background(),
			wantStatus: http.StatusForbidden,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/api/v1/admin/rewards/batch", nil)
			req = req.WithContext(tt.ctx)
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("Status code = %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}
}

func TestRequireUserID(t *testing.T) {
	handler := RequireUserID(okHandler())

	tests := []struct {
		name       string
		ctx        context.Context
		wantStatus int
	}{
		{
			name:       "with user ID",
			ctx:        logging.WithUserID(context.Background(), "user-123"),
			wantStatus: http.StatusOK,
		},
		{
			name:       "without user ID",
			ctx:        context.Background(),
			wantStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/api/test", nil)
			req = req.WithContext(tt.ctx)
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("Status code = %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}
}

func TestAuthMiddleware_Handler_PreservesTraceID(t *testing.T) {
	privateKey, publicKey := generateTestKeys(t)
	middleware := NewAuthMiddleware(publicKey, logging.NewDefault("test"), nil)

	var capturedTraceID string
	handler := middleware.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		capturedTraceID = logging.GetTraceID(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	token := generateTestToken(t, privateKey, "user-123", "", false)
	req := httptest.NewRequest("GET", "/api/test", nil)
	req = req.WithContext(logging.WithTraceID(req.Context(), "trace-456"))
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if capturedTraceID != "trace-456" {
		t.Errorf("Trace ID = %v, want trace-456", capturedTraceID)
	}
}
