package service

import (
	"net/http"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-risk-api/internal/models"
)

func signTestToken(t *testing.T, method jwt.SigningMethod, secret interface{}, claims models.JWTClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(method, claims).SignedString(secret)
	require.NoError(t, err)
	return token
}

func tutorClaims(issuer string, expires time.Time) models.JWTClaims {
	return models.JWTClaims{
		UserID: "u-1",
		Role:   models.RoleTutor,
		Email:  "tutor@example.com",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
}

func TestTokenServiceValidateToken(t *testing.T) {
	svc := NewTokenService("secret", "identity")
	token := signTestToken(t, jwt.SigningMethodHS256, []byte("secret"), tutorClaims("identity", time.Now().Add(time.Hour)))

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "u-1", claims.UserID)
	assert.Equal(t, models.RoleTutor, claims.Role)
}

func TestTokenServiceRejectsInvalidTokens(t *testing.T) {
	svc := NewTokenService("secret", "identity")
	future := time.Now().Add(time.Hour)

	cases := map[string]string{
		"wrong secret": signTestToken(t, jwt.SigningMethodHS256, []byte("other"), tutorClaims("identity", future)),
		"wrong issuer": signTestToken(t, jwt.SigningMethodHS256, []byte("secret"), tutorClaims("someone-else", future)),
		"expired":      signTestToken(t, jwt.SigningMethodHS256, []byte("secret"), tutorClaims("identity", time.Now().Add(-time.Minute))),
		"wrong alg":    signTestToken(t, jwt.SigningMethodHS512, []byte("secret"), tutorClaims("identity", future)),
		"garbage":      "not-a-token",
	}
	for name, token := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.ValidateToken(token)
			requireAppStatus(t, err, http.StatusUnauthorized)
		})
	}
}

func TestTokenServiceWithoutIssuer(t *testing.T) {
	svc := NewTokenService("secret", "")
	token := signTestToken(t, jwt.SigningMethodHS256, []byte("secret"), tutorClaims("anyone", time.Now().Add(time.Hour)))

	_, err := svc.ValidateToken(token)
	require.NoError(t, err)
}
