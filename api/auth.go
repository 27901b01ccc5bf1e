package api

import (
	"errors"
	"sync"
	"time"

	"github.com/MicahParks/keyfunc"
	"github.com/golang-jwt/jwt/v4"
)

const defaultKeyCacheTTL = 15 * time.Minute

// AuthConfig selects how bearer tokens are verified. A non-empty TestSecret
// switches to HS256 tokens signed with that secret.
type AuthConfig struct {
	Audience    string
	Issuer      string
	TestSecret  string
	KeyCacheTTL time.Duration
}

// Auth validates the bearer token of the signed-in team member.
type Auth struct {
	jwks     *keyfunc.JWKS
	audience string
	issuer   string
	secret   []byte

	parser  *jwt.Parser
	keys    sync.Map
	keysTTL time.Duration
	now     func() time.Time
}

type cachedKey struct {
	key       any
	expiresAt time.Time
}

// NewAuth creates the session gate. jwks may be nil in test mode.
func NewAuth(jwks *keyfunc.JWKS, cfg AuthConfig) *Auth {
	a := &Auth{
		jwks:     jwks,
		audience: cfg.Audience,
		issuer:   cfg.Issuer,
		keysTTL:  cfg.KeyCacheTTL,
		now:      time.Now,
	}
	if a.keysTTL <= 0 {
		a.keysTTL = defaultKeyCacheTTL
	}
	if cfg.TestSecret != "" {
		a.secret = []byte(cfg.TestSecret)
		a.parser = jwt.NewParser(jwt.WithValidMethods([]string{"HS256"}))
	} else {
		a.parser = jwt.NewParser(jwt.WithValidMethods([]string{"RS256"}))
	}
	return a
}

// UserIDFromAuthHeader returns the subject of a valid "Bearer <jwt>" header.
func (a *Auth) UserIDFromAuthHeader(h string) (string, error) {
	token, err := bearerToken(h)
	if err != nil {
		return "", err
	}
	return a.subject(token)
}

func (a *Auth) subject(raw string) (string, error) {
	token, err := a.parser.Parse(raw, a.key)
	if err != nil {
		return "", err
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", errors.New("invalid claims")
	}

	now := a.now().Add(time.Minute).Unix()
	if !claims.VerifyExpiresAt(now, true) {
		return "", errors.New("token expired")
	}
	if !claims.VerifyNotBefore(now, false) {
		return "", errors.New("token not valid yet")
	}
	if a.audience != "" && !claims.VerifyAudience(a.audience, true) {
		return "", errors.New("invalid audience")
	}
	if a.issuer != "" && !claims.VerifyIssuer(a.issuer, true) {
		return "", errors.New("invalid issuer")
	}
	sub, _ := claims["sub"].(string)
	if sub == "" {
		return "", errors.New("missing sub")
	}
	return sub, nil
}

func (a *Auth) key(token *jwt.Token) (any, error) {
	if a.secret != nil {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return a.secret, nil
	}
	if a.jwks == nil {
		return nil, errors.New("jwks not configured")
	}

	kid, _ := token.Header["kid"].(string)
	if kid != "" {
		if cached, ok := a.keys.Load(kid); ok {
			entry := cached.(cachedKey)
			if a.now().Before(entry.expiresAt) {
				return entry.key, nil
			}
			a.keys.Delete(kid)
		}
	}
	key, err := a.jwks.Keyfunc(token)
	if err != nil {
		return nil, err
	}
	if kid != "" {
		a.keys.Store(kid, cachedKey{key: key, expiresAt: a.now().Add(a.keysTTL)})
	}
	return key, nil
}
