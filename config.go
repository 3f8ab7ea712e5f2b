package tokenx

import (
	"errors"
	"fmt"
	"time"
)

const (
	defaultClockSkew    = 30 * time.Second
	defaultMinRefresh   = 5 * time.Minute
	defaultHTTPTimeout  = 5 * time.Second
	defaultGoogleIssuer = "https://accounts.google.com"
	bareGoogleIssuer    = "accounts.google.com"
)

var (
	defaultRoleKeys  = []string{"Role", "role"}
	defaultIDKeys    = []string{"UserId", "sub", "userId"}
	defaultNameKeys  = []string{"UserName", "FullName", "name"}
	defaultEmailKeys = []string{"Email", "email"}
	defaultPhoneKeys = []string{"PhoneNumber", "phoneNumber"}
)

// NullPolicy controls how an explicit JSON null interacts with a key fallback chain.
type NullPolicy int

const (
	// NullIsPresent stops the chain at a null value.
	NullIsPresent NullPolicy = iota
	// NullIsAbsent skips null values and keeps looking.
	NullIsAbsent
)

// ReaderConfig lists the claim keys consulted for each identity field, in
// precedence order. Empty lists fall back to the backend's known key casings.
type ReaderConfig struct {
	RoleKeys   []string
	IDKeys     []string
	NameKeys   []string
	EmailKeys  []string
	PhoneKeys  []string
	NullPolicy NullPolicy
}

// normalize copies key lists and fills defaults for empty ones.
func (c *ReaderConfig) normalize() {
	c.RoleKeys = keysOrDefault(c.RoleKeys, defaultRoleKeys)
	c.IDKeys = keysOrDefault(c.IDKeys, defaultIDKeys)
	c.NameKeys = keysOrDefault(c.NameKeys, defaultNameKeys)
	c.EmailKeys = keysOrDefault(c.EmailKeys, defaultEmailKeys)
	c.PhoneKeys = keysOrDefault(c.PhoneKeys, defaultPhoneKeys)
}

// validate ensures the reader configuration is usable.
func (c ReaderConfig) validate() error {
	switch c.NullPolicy {
	case NullIsPresent, NullIsAbsent:
	default:
		return fmt.Errorf("unknown null policy %d", c.NullPolicy)
	}
	for field, keys := range map[string][]string{
		"role":  c.RoleKeys,
		"id":    c.IDKeys,
		"name":  c.NameKeys,
		"email": c.EmailKeys,
		"phone": c.PhoneKeys,
	} {
		for _, k := range keys {
			if k == "" {
				return fmt.Errorf("%s keys: empty claim key", field)
			}
		}
	}
	return nil
}

func keysOrDefault(keys, fallback []string) []string {
	if len(keys) == 0 {
		keys = fallback
	}
	return append([]string(nil), keys...)
}

// VerifierConfig describes all issuers the verifier should trust.
type VerifierConfig struct {
	Issuers []IssuerConfig
	// Reader builds identities from verified tokens. Nil uses the default reader.
	Reader *Reader
}

// IssuerConfig contains verification parameters for a specific issuer.
// Secret selects HMAC verification, JWKSURL selects key-set verification,
// and leaving both empty verifies Google sign-in ID tokens.
type IssuerConfig struct {
	Name         string
	Secret       string
	JWKSURL      string
	Issuer       string
	Audience     string
	AllowedRoles []string
	ClockSkew    time.Duration
	MinRefresh   time.Duration
	HTTPTimeout  time.Duration
}

type issuerMode int

const (
	modeGoogle issuerMode = iota
	modeSecret
	modeJWKS
)

func (c IssuerConfig) mode() issuerMode {
	switch {
	case c.Secret != "":
		return modeSecret
	case c.JWKSURL != "":
		return modeJWKS
	default:
		return modeGoogle
	}
}

// normalize sets default values for optional fields.
func (c *IssuerConfig) normalize() {
	if c.mode() == modeGoogle && c.Issuer == "" {
		c.Issuer = defaultGoogleIssuer
	}
	if c.ClockSkew <= 0 {
		c.ClockSkew = defaultClockSkew
	}
	if c.MinRefresh <= 0 {
		c.MinRefresh = defaultMinRefresh
	}
	if c.HTTPTimeout <= 0 {
		c.HTTPTimeout = defaultHTTPTimeout
	}
}

// validate ensures the issuer configuration is usable.
func (c IssuerConfig) validate() error {
	switch {
	case c.Name == "":
		return errors.New("issuer name is required")
	case c.Secret != "" && c.JWKSURL != "":
		return errors.New("secret and jwks url are mutually exclusive")
	case c.mode() == modeGoogle && c.Audience == "":
		return errors.New("audience is required for google id tokens")
	case c.mode() == modeJWKS && c.Issuer == "":
		return errors.New("issuer claim expected value is required")
	}
	return nil
}

// issuerIndex returns the config mapped by issuer name.
func (c VerifierConfig) issuerIndex() (map[string]IssuerConfig, error) {
	if len(c.Issuers) == 0 {
		return nil, errors.New("at least one issuer must be configured")
	}
	index := make(map[string]IssuerConfig, len(c.Issuers))
	for _, issuer := range c.Issuers {
		if err := issuer.validate(); err != nil {
			return nil, fmt.Errorf("issuer %q: %w", issuer.Name, err)
		}
		if _, exists := index[issuer.Name]; exists {
			return nil, fmt.Errorf("duplicate issuer name %q", issuer.Name)
		}
		clone := issuer
		clone.AllowedRoles = append([]string(nil), issuer.AllowedRoles...)
		clone.normalize()
		index[clone.Name] = clone
	}
	return index, nil
}
