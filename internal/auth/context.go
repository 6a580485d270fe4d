package auth

import "context"

type contextKey struct{}

// AuthContext identifies the authenticated caller. Every data access in the
// request path is scoped to UserID.
type AuthContext struct {
	UserID    int64
	Role      string
	SessionID int64
	Timezone  string
}

func WithAuth(ctx context.Context, ac AuthContext) context.Context {
	return context.WithValue(ctx, contextKey{}, ac)
}

func FromContext(ctx context.Context) (AuthContext, bool) {
	ac, ok := ctx.Value(contextKey{}).(AuthContext)
	return ac, ok
}

func UserID(ctx context.Context) int64 {
	ac, ok := FromContext(ctx)
	if !ok {
		return 0
	}
	return ac.UserID
}

// Timezone returns the caller's IANA timezone name, defaulting to UTC when
// the context carries no identity or no stored zone.
func Timezone(ctx context.Context) string {
	ac, ok := FromContext(ctx)
	if !ok || ac.Timezone == "" {
		return "UTC"
	}
	return ac.Timezone
}

func IsAdmin(ctx context.Context) bool {
	ac, ok := FromContext(ctx)
	if !ok {
		return false
	}
	return ac.Role == "admin"
}
