// Package policies holds the ports onto the external identity provider and the
// authorization rules applied before commands reach their handlers.
package policies

import (
	"context"
	"errors"
	"strings"

	"staybook/internal/domain/shared/errs"
	domainuser "staybook/internal/domain/user"
)

var (
	// ErrUnauthenticated means no verified principal is available. It is not a
	// domain kind; transports answer it with 401.
	ErrUnauthenticated = errors.New("policies: authentication required")
	ErrForbiddenRole   = errs.New(errs.ErrForbidden, "policies: role not permitted")
)

// Principal is the verified identity supplied by the identity provider.
type Principal struct {
	UserID string
	Roles  []domainuser.Role
}

func (p Principal) HasRole(role domainuser.Role) bool {
	for _, r := range p.Roles {
		if strings.EqualFold(string(r), string(role)) {
			return true
		}
	}
	return false
}

// Verifier turns a bearer token into a principal. Implementations never issue tokens.
type Verifier interface {
	Verify(ctx context.Context, token string) (Principal, error)
}

type principalKey struct{}

func ContextWithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	if !ok || p.UserID == "" {
		return Principal{}, false
	}
	return p, true
}
