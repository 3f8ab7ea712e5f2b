package tokenx

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Reader decodes compact tokens into claims and normalized identities.
// It never verifies signatures. A Reader is immutable and safe for concurrent use.
type Reader struct {
	cfg ReaderConfig
}

var defaultReader = mustDefaultReader()

func mustDefaultReader() *Reader {
	r, err := NewReader(ReaderConfig{})
	if err != nil {
		panic(err)
	}
	return r
}

// DefaultReader returns the reader used by the package-level functions.
func DefaultReader() *Reader {
	return defaultReader
}

// NewReader builds a reader from the given configuration.
func NewReader(cfg ReaderConfig) (*Reader, error) {
	cfg.normalize()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Reader{cfg: cfg}, nil
}

// ParseClaims decodes the payload segment of token and reports why it failed.
func (r *Reader) ParseClaims(token string) (ClaimsMap, error) {
	if token == "" {
		return nil, newError(ErrCodeEmptyToken, nil)
	}
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return nil, newError(ErrCodeMalformed, fmt.Errorf("expected 3 segments, got %d", len(parts)))
	}

	payload := strings.NewReplacer("-", "+", "_", "/").Replace(parts[1])
	payload += strings.Repeat("=", (4-len(payload)%4)%4)

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, newError(ErrCodeInvalidEncoding, err)
	}
	if !utf8.Valid(data) {
		return nil, newError(ErrCodeInvalidEncoding, errors.New("payload is not valid utf-8"))
	}

	var claims ClaimsMap
	if err := json.Unmarshal(data, &claims); err != nil {
		return nil, newError(ErrCodeInvalidPayload, err)
	}
	if claims == nil {
		return nil, newError(ErrCodeInvalidPayload, errors.New("payload is not a json object"))
	}
	return claims, nil
}

// DecodeToken returns the token's claims, or nil when the token cannot be decoded.
func (r *Reader) DecodeToken(token string) ClaimsMap {
	claims, err := r.ParseClaims(token)
	if err != nil {
		return nil
	}
	return claims
}

// DecodeValue decodes a loosely typed token, such as one read back from
// session storage. Values that are not strings or bytes yield nil.
func (r *Reader) DecodeValue(v any) ClaimsMap {
	switch t := v.(type) {
	case string:
		return r.DecodeToken(t)
	case *string:
		if t == nil {
			return nil
		}
		return r.DecodeToken(*t)
	case []byte:
		return r.DecodeToken(string(t))
	default:
		return nil
	}
}

// ExtractRole returns the lower-cased role claim, or "" when unavailable.
func (r *Reader) ExtractRole(token string) string {
	claims := r.DecodeToken(token)
	if claims == nil {
		return ""
	}
	return r.role(claims)
}

// BuildIdentity returns the normalized identity carried by token, or nil
// when the token cannot be decoded.
func (r *Reader) BuildIdentity(token string) *Identity {
	claims := r.DecodeToken(token)
	if claims == nil {
		return nil
	}
	return r.IdentityFromClaims(claims)
}

// IdentityFromClaims normalizes an already decoded claims map.
func (r *Reader) IdentityFromClaims(claims ClaimsMap) *Identity {
	if claims == nil {
		return nil
	}
	policy := r.cfg.NullPolicy
	return &Identity{
		ID:          claims.lookup(r.cfg.IDKeys, policy),
		Name:        claims.lookup(r.cfg.NameKeys, policy),
		Email:       claims.lookup(r.cfg.EmailKeys, policy),
		Role:        r.role(claims),
		PhoneNumber: claims.lookup(r.cfg.PhoneKeys, policy),
		Raw:         claims,
	}
}

// role never reports null, so a null role key always falls through.
func (r *Reader) role(claims ClaimsMap) string {
	claim := claims.lookup(r.cfg.RoleKeys, NullIsAbsent)
	return normalizeRole(claim.String())
}

func normalizeRole(role string) string {
	return cases.Lower(language.Und).String(role)
}

// DecodeToken decodes token with the default reader.
func DecodeToken(token string) ClaimsMap {
	return defaultReader.DecodeToken(token)
}

// DecodeValue decodes a loosely typed token with the default reader.
func DecodeValue(v any) ClaimsMap {
	return defaultReader.DecodeValue(v)
}

// ParseClaims decodes token with the default reader and reports failures.
func ParseClaims(token string) (ClaimsMap, error) {
	return defaultReader.ParseClaims(token)
}

// ExtractRole extracts the lower-cased role with the default reader.
func ExtractRole(token string) string {
	return defaultReader.ExtractRole(token)
}

// BuildIdentity builds the normalized identity with the default reader.
func BuildIdentity(token string) *Identity {
	return defaultReader.BuildIdentity(token)
}
