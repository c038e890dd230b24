package api

import (
	"context"
	"strconv"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"cdrive/internal/domain"
)

// Login posts credentials and resolves the account, token and raw role from
// whichever response shape the server used.
func (c *Client) Login(ctx context.Context, email, password string) (domain.LoginPayload, error) {
	data, err := c.postJSON(ctx, "", "/auth/login", map[string]string{
		"email":    email,
		"password": password,
	})
	if err != nil {
		return domain.LoginPayload{}, err
	}
	payload, err := domain.DecodeObject(data)
	if err != nil {
		return domain.LoginPayload{}, err
	}
	return domain.ParseLoginPayload(payload), nil
}

type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

func (c *Client) Register(ctx context.Context, r RegisterRequest) error {
	if strings.TrimSpace(r.Role) == "" {
		r.Role = "USER"
	}
	_, err := c.postJSON(ctx, "", "/auth/register", r)
	return err
}

var adminClaimKeys = []string{"id", "userId", "adminId", "uid"}

// AdminIDFromToken reads a numeric account id out of the token payload. The
// signature is not checked; the value is only used to label requests.
func AdminIDFromToken(token string) string {
	token = strings.TrimSpace(token)
	if token == "" {
		return ""
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return ""
	}
	for _, k := range adminClaimKeys {
		v, ok := claims[k]
		if !ok || v == nil {
			continue
		}
		s := claimString(v)
		if isDigits(s) {
			return s
		}
	}
	return ""
}

func claimString(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		if t == float64(int64(t)) && t >= 0 {
			return strconv.FormatInt(int64(t), 10)
		}
	}
	return ""
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
