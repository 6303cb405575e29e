// ABOUTME: Per-request trust context receiving usernames verified by a logon module
// ABOUTME: Confirms the local user record before reporting the request as authenticated

package auth

import (
	"context"

	"github.com/2389/logon-gateway/internal/logon"
	"github.com/2389/logon-gateway/internal/store"
)

// UserLookup finds local user records.
type UserLookup interface {
	GetUserByUsername(ctx context.Context, username string) (*store.User, error)
}

// Trust implements logon.TrustContext for one request.
type Trust struct {
	users         UserLookup
	username      string
	logoutAllowed bool
	user          *store.User
}

var _ logon.TrustContext = (*Trust)(nil)

// NewTrust returns an empty trust context. Logout is allowed until a module
// says otherwise.
func NewTrust(users UserLookup) *Trust {
	return &Trust{users: users, logoutAllowed: true}
}

// TrustUsername accepts username without asking for credentials.
func (t *Trust) TrustUsername(_ context.Context, username string) {
	t.username = username
	t.user = nil
}

// DisallowLogout marks the session as not closable from this side.
func (t *Trust) DisallowLogout() {
	t.logoutAllowed = false
}

// IsAuthenticated is true once a username was trusted and its user record exists.
func (t *Trust) IsAuthenticated(ctx context.Context) bool {
	if t.username == "" {
		return false
	}
	if t.user != nil {
		return true
	}
	if t.users == nil {
		return false
	}
	u, err := t.users.GetUserByUsername(ctx, t.username)
	if err != nil {
		return false
	}
	t.user = u
	return true
}

// AuthContext returns the established identity, or nil if none.
func (t *Trust) AuthContext(module string) *AuthContext {
	if t.username == "" || t.user == nil {
		return nil
	}
	return &AuthContext{
		Username:      t.username,
		Role:          t.user.Role,
		Module:        module,
		LogoutAllowed: t.logoutAllowed,
	}
}
