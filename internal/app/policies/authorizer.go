package policies

import (
	"context"

	domainuser "staybook/internal/domain/user"
)

// ActorCommand is implemented by messages that act on behalf of a user.
type ActorCommand interface {
	Actor() string
}

// RoleRestricted is implemented by messages limited to a role.
type RoleRestricted interface {
	RequiredRole() domainuser.Role
}

// Authorizer checks that the acting user matches the verified principal and
// holds any role the message demands. Ownership rules stay in the handlers.
type Authorizer struct{}

func (Authorizer) Authorize(ctx context.Context, message any) error {
	actorCmd, ok := message.(ActorCommand)
	if !ok {
		return nil
	}
	principal, ok := PrincipalFromContext(ctx)
	if !ok {
		return ErrUnauthenticated
	}
	if actorCmd.Actor() != principal.UserID {
		return ErrUnauthenticated
	}
	if restricted, ok := message.(RoleRestricted); ok {
		if !principal.HasRole(restricted.RequiredRole()) {
			return ErrForbiddenRole
		}
	}
	return nil
}
