package middleware

import (
	"context"
	"errors"

	"availsync/internal/app/commands"
	"availsync/internal/app/queries"
)

var ErrUnauthorized = errors.New("middleware: caller is not authorized")

type Authorizer interface {
	Authorize(ctx context.Context, message any) error
}

type principalKey struct{}

// WithPrincipal tags ctx with the authenticated caller (API client, consumer group, ...).
func WithPrincipal(ctx context.Context, principal string) context.Context {
	return context.WithValue(ctx, principalKey{}, principal)
}

func PrincipalFromContext(ctx context.Context) (string, bool) {
	p, ok := ctx.Value(principalKey{}).(string)
	return p, ok && p != ""
}

// RequirePrincipal accepts any message whose context carries a principal.
type RequirePrincipal struct{}

func (RequirePrincipal) Authorize(ctx context.Context, _ any) error {
	if _, ok := PrincipalFromContext(ctx); !ok {
		return ErrUnauthorized
	}
	return nil
}

func Authorization(a Authorizer) CommandMiddleware {
	if a == nil {
		panic("middleware: authorizer required")
	}
	return func(next commands.Bus) commands.Bus {
		return commands.BusFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			if err := a.Authorize(ctx, cmd); err != nil {
				return nil, err
			}
			return next.Dispatch(ctx, cmd)
		})
	}
}

func QueryAuthorization(a Authorizer) QueryMiddleware {
	if a == nil {
		panic("middleware: authorizer required")
	}
	return func(next queries.Bus) queries.Bus {
		return queries.BusFunc(func(ctx context.Context, q queries.Query) (any, error) {
			if err := a.Authorize(ctx, q); err != nil {
				return nil, err
			}
			return next.Ask(ctx, q)
		})
	}
}
