// Package identity verifies bearer tokens issued by the external identity
// provider. It never issues tokens for real users.
package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/karlseguin/ccache/v3"

	"staybook/internal/app/policies"
	domainuser "staybook/internal/domain/user"
)

var ErrMisconfigured = errors.New("identity: secret required")

// Claims carries the roles next to the standard claims. The subject is the user id.
type Claims struct {
	Roles []string `json:"roles,omitempty"`
	jwt.RegisteredClaims
}

type JWTVerifier struct {
	secret   []byte
	issuer   string
	cacheTTL time.Duration
	cache    *ccache.Cache[policies.Principal]
	now      func() time.Time
}

type Options struct {
	Secret string
	Issuer string
	// CacheTTL bounds how long a verified token is trusted without parsing it
	// again. Zero disables the cache.
	CacheTTL time.Duration
	// CacheSize caps cached tokens.
	CacheSize int64
}

func NewJWTVerifier(opts Options) (*JWTVerifier, error) {
	if opts.Secret == "" {
		return nil, ErrMisconfigured
	}
	v := &JWTVerifier{
		secret:   []byte(opts.Secret),
		issuer:   opts.Issuer,
		cacheTTL: opts.CacheTTL,
		now:      time.Now,
	}
	if opts.CacheTTL > 0 {
		size := opts.CacheSize
		if size <= 0 {
			size = 1000
		}
		v.cache = ccache.New(ccache.Configure[policies.Principal]().MaxSize(size))
	}
	return v, nil
}

// Verify parses and checks the token, answering from the cache when the
// token was seen recently.
func (v *JWTVerifier) Verify(ctx context.Context, token string) (policies.Principal, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return policies.Principal{}, policies.ErrUnauthenticated
	}
	if v.cache != nil {
		if item := v.cache.Get(token); item != nil && !item.Expired() {
			return item.Value(), nil
		}
	}

	claims := &Claims{}
	parserOpts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg(), jwt.SigningMethodHS384.Alg(), jwt.SigningMethodHS512.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(v.now),
	}
	if v.issuer != "" {
		parserOpts = append(parserOpts, jwt.WithIssuer(v.issuer))
	}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.secret, nil
	}, parserOpts...)
	if err != nil {
		return policies.Principal{}, fmt.Errorf("%w: %v", policies.ErrUnauthenticated, err)
	}
	if !parsed.Valid || claims.Subject == "" {
		return policies.Principal{}, policies.ErrUnauthenticated
	}

	principal := policies.Principal{UserID: claims.Subject}
	for _, r := range claims.Roles {
		principal.Roles = append(principal.Roles, domainuser.Role(strings.ToLower(strings.TrimSpace(r))))
	}
	if v.cache != nil {
		ttl := v.cacheTTL
		if left := claims.ExpiresAt.Time.Sub(v.now()); left < ttl {
			ttl = left
		}
		if ttl > 0 {
			v.cache.Set(token, principal, ttl)
		}
	}
	return principal, nil
}

// Close stops the cache janitor.
func (v *JWTVerifier) Close() {
	if v.cache != nil {
		v.cache.Stop()
	}
}

// Sign produces an HS256 token for the given principal. Used by tests and
// local tooling that stands in for the identity provider.
func Sign(secret, issuer string, p policies.Principal, now time.Time, ttl time.Duration) (string, error) {
	roles := make([]string, 0, len(p.Roles))
	for _, r := range p.Roles {
		roles = append(roles, string(r))
	}
	claims := Claims{
		Roles: roles,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.UserID,
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

var _ policies.Verifier = (*JWTVerifier)(nil)
