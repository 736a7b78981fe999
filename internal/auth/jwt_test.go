package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

func TestGenerateAndValidate(t *testing.T) {
	a := NewAuthenticator("secret", time.Hour, zap.NewNop())

	token, expiresAt, err := a.GenerateDeviceToken("device-1")
	if err != nil {
		t.Fatal(err)
	}
	if time.Until(expiresAt) <= 59*time.Minute {
		t.Errorf("Unexpected expiry %s", expiresAt)
	}

	claims, err := a.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken failed: %v", err)
	}
	if claims.DeviceID != "device-1" || claims.Role != RoleDevice {
		t.Errorf("Unexpected claims %+v", claims)
	}

	other := NewAuthenticator("other", time.Hour, zap.NewNop())
	if _, err := other.ValidateToken(token); err == nil {
		t.Error("Token signed with another secret should be rejected")
	}
}

func TestValidateRejectsExpiredAndWrongRole(t *testing.T) {
	a := NewAuthenticator("secret", time.Hour, zap.NewNop())

	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, &JWTClaims{
		DeviceID: "d",
		Role:     RoleDevice,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	})
	signed, _ := expired.SignedString([]byte("secret"))
	if _, err := a.ValidateToken(signed); err == nil {
		t.Error("Expired token should be rejected")
	}

	user := jwt.NewWithClaims(jwt.SigningMethodHS256, &JWTClaims{DeviceID: "d", Role: "user"})
	signed, _ = user.SignedString([]byte("secret"))
	if _, err := a.ValidateToken(signed); err != ErrInvalidRole {
		t.Errorf("Expected ErrInvalidRole, got %v", err)
	}
}

func TestMiddleware(t *testing.T) {
	e := echo.New()
	handler := func(c echo.Context) error {
		id, _ := c.Get(DeviceIDKey).(string)
		return c.String(http.StatusOK, id)
	}

	a := NewAuthenticator("secret", time.Hour, zap.NewNop())
	token, _, _ := a.GenerateDeviceToken("device-7")

	cases := []struct {
		name   string
		header string
		status int
		body   string
	}{
		{"missing", "", http.StatusUnauthorized, ""},
		{"garbage", "Bearer nope", http.StatusUnauthorized, ""},
		{"valid", "Bearer " + token, http.StatusOK, "device-7"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/process", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)

			if err := a.Middleware()(handler)(c); err != nil {
				t.Fatal(err)
			}
			if rec.Code != tc.status {
				t.Errorf("Expected %d, got %d", tc.status, rec.Code)
			}
			if tc.body != "" && rec.Body.String() != tc.body {
				t.Errorf("Expected body %q, got %q", tc.body, rec.Body.String())
			}
		})
	}

	t.Run("disabled", func(t *testing.T) {
		open := NewAuthenticator("", 0, zap.NewNop())
		rec := httptest.NewRecorder()
		c := e.NewContext(httptest.NewRequest(http.MethodPost, "/process", nil), rec)
		if err := open.Middleware()(handler)(c); err != nil {
			t.Fatal(err)
		}
		if rec.Code != http.StatusOK {
			t.Errorf("Disabled auth should pass requests through, got %d", rec.Code)
		}
	})
}
