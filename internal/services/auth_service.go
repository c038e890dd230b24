package services

import (
	"context"
	"errors"
	"strings"
	"sync"

	"cdrive/internal/api"
	"cdrive/internal/domain"
	applog "cdrive/internal/log"
	"cdrive/internal/storage"
)

var ErrBadCreds = errors.New("invalid email or password")

// AuthAPI is the part of the remote client used for sign-in.
type AuthAPI interface {
	Login(ctx context.Context, email, password string) (domain.LoginPayload, error)
	Register(ctx context.Context, r api.RegisterRequest) error
}

// AuthState keeps the in-memory session. Storage is only its durable mirror.
type AuthState struct {
	mu      sync.Mutex
	kv      *storage.Adapter
	api     AuthAPI
	session domain.AuthSession
}

func NewAuthState(kv *storage.Adapter, client AuthAPI) *AuthState {
	return &AuthState{kv: kv, api: client}
}

// Restore rebuilds the session from storage. The session is live only when a
// user record and a non-empty normalized role are both present. A stored role
// in a legacy form is rewritten in normalized form.
func (a *AuthState) Restore(ctx context.Context) domain.AuthSession {
	var raw map[string]any
	hasUser := a.kv.GetJSON(ctx, storage.KeyUser, &raw) && raw != nil

	rawRole, hasRole := a.kv.GetString(ctx, storage.KeyRole)
	role := domain.NormalizeRole(rawRole)
	if hasRole && rawRole != role {
		if role == "" {
			a.kv.Remove(ctx, storage.KeyRole)
		} else {
			a.kv.SetString(ctx, storage.KeyRole, role)
		}
		applog.Info(nil, "auth.role.normalized", map[string]any{"from": rawRole, "to": role})
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if hasUser && role != "" {
		a.session = domain.AuthSession{User: domain.NormalizeUser(raw), Role: role}
	} else {
		a.session = domain.AuthSession{}
	}
	return a.session
}

// Login signs in remotely and mirrors the session to storage.
func (a *AuthState) Login(ctx context.Context, email, password string) (domain.AuthSession, error) {
	res, err := a.api.Login(ctx, strings.TrimSpace(email), password)
	if err != nil {
		applog.Warn(nil, "auth.login.fail", err, map[string]any{"email": email})
		if s := api.StatusOf(err); s == 400 || s == 401 || s == 403 {
			return domain.AuthSession{}, ErrBadCreds
		}
		return domain.AuthSession{}, err
	}

	role := domain.NormalizeRole(res.Role)
	user := domain.NormalizeUser(res.User)
	if user == nil {
		user = domain.NormalizeUser(map[string]any{"email": strings.TrimSpace(email)})
	}

	if res.Token != "" {
		a.kv.SetString(ctx, storage.KeyToken, res.Token)
	}
	a.kv.SetJSON(ctx, storage.KeyUser, user)
	if role != "" {
		a.kv.SetString(ctx, storage.KeyRole, role)
	} else {
		a.kv.Remove(ctx, storage.KeyRole)
	}
	a.kv.SetString(ctx, storage.KeyIsLoggedIn, "true")

	a.mu.Lock()
	a.session = domain.AuthSession{User: user, Role: role}
	s := a.session
	a.mu.Unlock()

	applog.Audit(nil, "auth.login.success", map[string]any{"email": user.Email, "role": s.Kind().String()})
	return s, nil
}

func (a *AuthState) Register(ctx context.Context, r api.RegisterRequest) error {
	if err := a.api.Register(ctx, r); err != nil {
		applog.Warn(nil, "auth.register.fail", err, map[string]any{"email": r.Email})
		return err
	}
	applog.Audit(nil, "auth.register", map[string]any{"email": r.Email})
	return nil
}

// Logout wipes every persisted session key and the in-memory session.
func (a *AuthState) Logout(ctx context.Context) {
	for _, k := range []string{storage.KeyUser, storage.KeyToken, storage.KeyRole, storage.KeyIsLoggedIn} {
		a.kv.Remove(ctx, k)
	}
	a.mu.Lock()
	a.session = domain.AuthSession{}
	a.mu.Unlock()
	applog.Audit(nil, "auth.logout", nil)
}

func (a *AuthState) Session() domain.AuthSession {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.session
}

// Token is the persisted bearer token, or "".
func (a *AuthState) Token(ctx context.Context) string {
	tok, _ := a.kv.GetString(ctx, storage.KeyToken)
	return strings.TrimSpace(tok)
}

// Authenticated requires both a session user and a persisted token.
func (a *AuthState) Authenticated(ctx context.Context) bool {
	if a.Session().User == nil {
		return false
	}
	return a.Token(ctx) != ""
}

// AdminID is the signed-in account id, or a numeric id claim from the token.
func (a *AuthState) AdminID(ctx context.Context) string {
	if u := a.Session().User; u != nil && u.ID != "" {
		return u.ID
	}
	return api.AdminIDFromToken(a.Token(ctx))
}
