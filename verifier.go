package tokenx

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	gojwt "github.com/golang-jwt/jwt/v5"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/lestrrat-go/jwx/v2/jwt"
	"google.golang.org/api/idtoken"
)

var googleValidate = idtoken.Validate

var hmacMethods = []string{
	gojwt.SigningMethodHS256.Alg(),
	gojwt.SigningMethodHS384.Alg(),
	gojwt.SigningMethodHS512.Alg(),
}

// Verifier checks token signatures and registered claims before building an
// identity. Use it where the identity drives authorization; the Reader alone
// is only fit for display. Issuers are fixed at construction, so a Verifier
// is safe for concurrent use.
type Verifier struct {
	issuers       map[string]*issuerState
	defaultIssuer string
	reader        *Reader
}

type issuerState struct {
	cfg          IssuerConfig
	mode         issuerMode
	cache        *jwk.Cache
	allowedRoles map[string]struct{}
}

// NewVerifier builds a verifier from the given configuration.
func NewVerifier(cfg VerifierConfig) (*Verifier, error) {
	index, err := cfg.issuerIndex()
	if err != nil {
		return nil, err
	}

	defaultIssuer := ""
	if len(cfg.Issuers) == 1 {
		defaultIssuer = cfg.Issuers[0].Name
	}
	reader := cfg.Reader
	if reader == nil {
		reader = defaultReader
	}

	v := &Verifier{
		issuers:       make(map[string]*issuerState, len(index)),
		defaultIssuer: defaultIssuer,
		reader:        reader,
	}
	for name, issuerCfg := range index {
		state := &issuerState{
			cfg:          issuerCfg,
			mode:         issuerCfg.mode(),
			allowedRoles: roleSet(issuerCfg.AllowedRoles),
		}
		if state.mode == modeJWKS {
			cache := jwk.NewCache(context.Background())
			httpClient := &http.Client{
				Timeout: issuerCfg.HTTPTimeout,
				Transport: &http.Transport{
					Proxy: http.ProxyFromEnvironment,
				},
			}
			if err := cache.Register(
				issuerCfg.JWKSURL,
				jwk.WithMinRefreshInterval(issuerCfg.MinRefresh),
				jwk.WithHTTPClient(httpClient),
			); err != nil {
				return nil, fmt.Errorf("register jwks for %q: %w", name, err)
			}
			state.cache = cache
		}
		v.issuers[name] = state
	}

	return v, nil
}

// Warmup refreshes JWKS for the specified issuer. Other modes need no warmup.
func (v *Verifier) Warmup(ctx context.Context, issuerName string) error {
	state, ok := v.lookupIssuer(issuerName)
	if !ok {
		return newError(ErrCodeIssuerNotRegistered, fmt.Errorf("issuer %q not found", issuerName))
	}
	if state.mode != modeJWKS {
		return nil
	}
	refreshCtx, cancel := context.WithTimeout(ctx, state.cfg.HTTPTimeout)
	defer cancel()
	if _, err := state.cache.Refresh(refreshCtx, state.cfg.JWKSURL); err != nil {
		return newError(ErrCodeJWKSUnavailable, err)
	}
	return nil
}

// Verify checks token against the issuer identified by issuerName and
// returns the identity it carries. An empty issuerName selects the only
// configured issuer.
func (v *Verifier) Verify(ctx context.Context, token, issuerName string) (*Identity, error) {
	if issuerName == "" {
		issuerName = v.defaultIssuer
	}
	if issuerName == "" {
		return nil, newError(ErrCodeIssuerNotRegistered, errors.New("issuer not specified"))
	}
	if token == "" {
		return nil, newError(ErrCodeEmptyToken, nil)
	}
	state, ok := v.lookupIssuer(issuerName)
	if !ok {
		return nil, newError(ErrCodeIssuerNotRegistered, fmt.Errorf("issuer %q not found", issuerName))
	}

	var err error
	switch state.mode {
	case modeSecret:
		err = verifySecret(token, state)
	case modeJWKS:
		err = verifyJWKS(ctx, token, state)
	default:
		err = verifyGoogle(ctx, token, state)
	}
	if err != nil {
		return nil, err
	}

	claims, err := v.reader.ParseClaims(token)
	if err != nil {
		return nil, newError(ErrCodeInvalidToken, err)
	}
	identity := v.reader.IdentityFromClaims(claims)
	if !state.roleAllowed(identity) {
		return nil, newError(ErrCodeRoleNotAllowed, fmt.Errorf("role %q not allowed", identity.Role))
	}
	return identity, nil
}

func verifySecret(token string, state *issuerState) error {
	opts := []gojwt.ParserOption{
		gojwt.WithValidMethods(hmacMethods),
		gojwt.WithLeeway(state.cfg.ClockSkew),
	}
	if state.cfg.Issuer != "" {
		opts = append(opts, gojwt.WithIssuer(state.cfg.Issuer))
	}
	if state.cfg.Audience != "" {
		opts = append(opts, gojwt.WithAudience(state.cfg.Audience))
	}
	secret := []byte(state.cfg.Secret)
	_, err := gojwt.Parse(token, func(*gojwt.Token) (any, error) {
		return secret, nil
	}, opts...)
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, gojwt.ErrTokenMalformed):
		return newError(ErrCodeMalformed, err)
	case errors.Is(err, gojwt.ErrTokenSignatureInvalid), errors.Is(err, gojwt.ErrTokenUnverifiable):
		return newError(ErrCodeInvalidSignature, err)
	case errors.Is(err, gojwt.ErrTokenExpired):
		return newError(ErrCodeExpired, err)
	case errors.Is(err, gojwt.ErrTokenNotValidYet), errors.Is(err, gojwt.ErrTokenUsedBeforeIssued):
		return newError(ErrCodeNotYetValid, err)
	case errors.Is(err, gojwt.ErrTokenInvalidIssuer):
		return newError(ErrCodeInvalidIssuer, err)
	case errors.Is(err, gojwt.ErrTokenInvalidAudience):
		return newError(ErrCodeInvalidAudience, err)
	default:
		return newError(ErrCodeInvalidToken, err)
	}
}

func verifyJWKS(ctx context.Context, token string, state *issuerState) error {
	keySet, err := state.cache.Get(ctx, state.cfg.JWKSURL)
	if err != nil {
		return newError(ErrCodeJWKSUnavailable, err)
	}

	parsed, err := jwt.Parse([]byte(token), jwt.WithKeySet(keySet))
	if err != nil {
		if mapped := classifyJWKSValidationError(err); mapped != nil {
			return mapped
		}
		return newError(ErrCodeInvalidToken, err)
	}

	validateOpts := []jwt.ValidateOption{
		jwt.WithAcceptableSkew(state.cfg.ClockSkew),
		jwt.WithIssuer(state.cfg.Issuer),
	}
	if state.cfg.Audience != "" {
		validateOpts = append(validateOpts, jwt.WithAudience(state.cfg.Audience))
	}
	if err := jwt.Validate(parsed, validateOpts...); err != nil {
		switch {
		case errors.Is(err, jwt.ErrInvalidIssuer()):
			return newError(ErrCodeInvalidIssuer, err)
		case errors.Is(err, jwt.ErrInvalidAudience()):
			return newError(ErrCodeInvalidAudience, err)
		case errors.Is(err, jwt.ErrTokenExpired()):
			return newError(ErrCodeExpired, err)
		case errors.Is(err, jwt.ErrTokenNotYetValid()):
			return newError(ErrCodeNotYetValid, err)
		default:
			if mapped := classifyJWKSValidationError(err); mapped != nil {
				return mapped
			}
			return newError(ErrCodeInvalidToken, err)
		}
	}
	return nil
}

func verifyGoogle(ctx context.Context, token string, state *issuerState) error {
	validateCtx, cancel := context.WithTimeout(ctx, state.cfg.HTTPTimeout)
	defer cancel()

	payload, err := googleValidate(validateCtx, token, state.cfg.Audience)
	if err != nil {
		return mapGoogleError(err)
	}
	if !state.issuerAllowed(payload.Issuer) {
		return newError(ErrCodeInvalidIssuer, fmt.Errorf("issuer mismatch: got %s, want %s", payload.Issuer, state.cfg.Issuer))
	}
	return nil
}

func (v *Verifier) lookupIssuer(name string) (*issuerState, bool) {
	if name == "" {
		name = v.defaultIssuer
	}
	if name == "" {
		return nil, false
	}
	state, ok := v.issuers[name]
	return state, ok
}

// issuerAllowed accepts both spellings Google uses for its own issuer.
func (s *issuerState) issuerAllowed(issuer string) bool {
	if strings.EqualFold(issuer, s.cfg.Issuer) {
		return true
	}
	if !strings.EqualFold(s.cfg.Issuer, defaultGoogleIssuer) {
		return false
	}
	return strings.EqualFold(issuer, bareGoogleIssuer)
}

func (s *issuerState) roleAllowed(identity *Identity) bool {
	if len(s.allowedRoles) == 0 {
		return true
	}
	_, ok := s.allowedRoles[identity.Role]
	return ok
}

func roleSet(roles []string) map[string]struct{} {
	if len(roles) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(roles))
	for _, r := range roles {
		if r == "" {
			continue
		}
		set[normalizeRole(r)] = struct{}{}
	}
	return set
}

func mapGoogleError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return newError(ErrCodeJWKSUnavailable, err)
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "audience provided does not match"):
		return newError(ErrCodeInvalidAudience, err)
	case strings.Contains(msg, "token expired"):
		return newError(ErrCodeExpired, err)
	case strings.Contains(msg, "could not find matching cert"):
		return newError(ErrCodeInvalidSignature, err)
	case strings.Contains(msg, "unable to decode JWT"):
		return newError(ErrCodeMalformed, err)
	}
	return newError(ErrCodeInvalidToken, err)
}

func classifyJWKSValidationError(err error) error {
	if err == nil {
		return nil
	}
	lower := strings.ToLower(err.Error())
	switch {
	case strings.Contains(lower, "token expired") || strings.Contains(lower, `"exp" not satisfied`):
		return newError(ErrCodeExpired, err)
	case strings.Contains(lower, `"nbf" not satisfied`):
		return newError(ErrCodeNotYetValid, err)
	case strings.Contains(lower, "could not verify message"):
		return newError(ErrCodeInvalidSignature, err)
	}
	return nil
}
