package tokenx

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

var unsignedHeader = base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"none","typ":"JWT"}`))

// EncodeUnsigned packs claims into a compact token with an "alg: none"
// header and an empty signature segment. Only useful for local tooling and tests.
func EncodeUnsigned(claims ClaimsMap) (string, error) {
	if claims == nil {
		return "", errors.New("claims are required")
	}
	payload, err := json.Marshal(claims)
	if err != nil {
		return "", fmt.Errorf("marshal claims: %w", err)
	}
	return unsignedHeader + "." + base64.RawURLEncoding.EncodeToString(payload) + ".", nil
}

// SignHS256 mints an HMAC-SHA256 token carrying claims.
func SignHS256(claims ClaimsMap, secret string) (string, error) {
	if secret == "" {
		return "", errors.New("secret is required")
	}
	if claims == nil {
		return "", errors.New("claims are required")
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims(claims))
	return token.SignedString([]byte(secret))
}

// DevBypassClaims holds attributes used when issuing a synthetic caller in dev mode.
type DevBypassClaims struct {
	UserID      string
	Name        string
	Email       string
	Role        string
	PhoneNumber string
}

// Claims renders the dev claims with the backend's key casing.
func (d DevBypassClaims) Claims() ClaimsMap {
	claims := ClaimsMap{"Role": d.Role}
	if d.UserID != "" {
		claims["UserId"] = d.UserID
	}
	if d.Name != "" {
		claims["UserName"] = d.Name
	}
	if d.Email != "" {
		claims["Email"] = d.Email
	}
	if d.PhoneNumber != "" {
		claims["PhoneNumber"] = d.PhoneNumber
	}
	return claims
}

// ToCaller converts the dev bypass configuration into a caller.
func (d DevBypassClaims) ToCaller() Caller {
	return Caller{
		Identity:  defaultReader.IdentityFromClaims(d.Claims()),
		DevBypass: true,
	}
}

// DefaultDevBypassClaims returns a baseline identity suitable for local development.
func DefaultDevBypassClaims(role string) DevBypassClaims {
	if role == "" {
		role = "admin"
	}
	return DevBypassClaims{
		UserID: "dev-bypass",
		Name:   "Dev Bypass",
		Email:  "dev@tutorlink.local",
		Role:   role,
	}
}
