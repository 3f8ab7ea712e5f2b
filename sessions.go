package tokenx

import (
	"context"
	"errors"
	"strings"
	"sync"

	"golang.org/x/oauth2"
)

// SourceFactory creates the token source backing a session, typically by
// reading the stored access and refresh tokens for sessionID.
type SourceFactory func(ctx context.Context, sessionID string) (oauth2.TokenSource, error)

// SessionsConfig configures a Sessions store.
type SessionsConfig struct {
	Factory SourceFactory
	// Reader decodes session tokens. Nil uses the default reader.
	Reader *Reader
}

// Sessions hands out the current token and identity for each session.
// Token sources are created once per session id and reused until Forget.
type Sessions struct {
	mu      sync.RWMutex
	factory SourceFactory
	reader  *Reader
	entries map[string]oauth2.TokenSource
}

// NewSessions constructs a Sessions store.
func NewSessions(cfg SessionsConfig) (*Sessions, error) {
	if cfg.Factory == nil {
		return nil, errors.New("source factory is required")
	}
	reader := cfg.Reader
	if reader == nil {
		reader = defaultReader
	}
	return &Sessions{
		factory: cfg.Factory,
		reader:  reader,
		entries: make(map[string]oauth2.TokenSource),
	}, nil
}

// Put registers src for sessionID, replacing any existing source.
func (s *Sessions) Put(sessionID string, src oauth2.TokenSource) error {
	if src == nil {
		return errors.New("token source is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[sessionID] = oauth2.ReuseTokenSource(nil, src)
	return nil
}

// Forget drops the source cached for sessionID.
func (s *Sessions) Forget(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, sessionID)
}

// Token returns the current access token for sessionID.
func (s *Sessions) Token(ctx context.Context, sessionID string) (string, error) {
	if strings.TrimSpace(sessionID) == "" {
		return "", newError(ErrCodeSessionUnavailable, errors.New("session id is required"))
	}

	src, err := s.getOrCreate(ctx, sessionID)
	if err != nil {
		return "", newError(ErrCodeSessionUnavailable, err)
	}

	tok, err := src.Token()
	if err != nil {
		return "", newError(ErrCodeSessionUnavailable, err)
	}
	if tok.AccessToken == "" {
		return "", newError(ErrCodeEmptyToken, errors.New("empty access token returned"))
	}
	return tok.AccessToken, nil
}

// Identity returns the identity carried by the session's current token.
func (s *Sessions) Identity(ctx context.Context, sessionID string) (*Identity, error) {
	token, err := s.Token(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	claims, err := s.reader.ParseClaims(token)
	if err != nil {
		return nil, newError(ErrCodeInvalidToken, err)
	}
	return s.reader.IdentityFromClaims(claims), nil
}

func (s *Sessions) getOrCreate(ctx context.Context, sessionID string) (oauth2.TokenSource, error) {
	s.mu.RLock()
	src, ok := s.entries[sessionID]
	s.mu.RUnlock()
	if ok {
		return src, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if src, ok = s.entries[sessionID]; ok {
		return src, nil
	}

	ts, err := s.factory(persistentContext(ctx), sessionID)
	if err != nil {
		return nil, err
	}
	src = oauth2.ReuseTokenSource(nil, ts)
	s.entries[sessionID] = src
	return src, nil
}

// persistentContext keeps request values but drops cancellation, since the
// created source outlives the request that triggered it.
func persistentContext(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return context.WithoutCancel(ctx)
}
