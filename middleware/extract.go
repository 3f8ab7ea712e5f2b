package middleware

import (
	"net/http"
	"strings"
)

// TokenExtractor pulls a raw token out of a request. It returns "" when absent.
type TokenExtractor func(r *http.Request) string

// FromAuthHeader reads a bearer token from the Authorization header.
func FromAuthHeader() TokenExtractor {
	return func(r *http.Request) string {
		auth := strings.TrimSpace(r.Header.Get("Authorization"))
		if auth == "" {
			return ""
		}
		const bearerPrefix = "bearer "
		if len(auth) > len(bearerPrefix) && strings.EqualFold(auth[:len(bearerPrefix)], bearerPrefix) {
			return strings.TrimSpace(auth[len(bearerPrefix):])
		}
		return auth
	}
}

// FromCookie reads the token from the named cookie.
func FromCookie(name string) TokenExtractor {
	return func(r *http.Request) string {
		cookie, err := r.Cookie(name)
		if err != nil {
			return ""
		}
		return cookie.Value
	}
}

// FromQuery reads the token from a URL query parameter.
func FromQuery(name string) TokenExtractor {
	return func(r *http.Request) string {
		return r.URL.Query().Get(name)
	}
}

// FromFirst tries each extractor in order and returns the first non-empty token.
func FromFirst(extractors ...TokenExtractor) TokenExtractor {
	return func(r *http.Request) string {
		for _, extract := range extractors {
			if token := extract(r); token != "" {
				return token
			}
		}
		return ""
	}
}
