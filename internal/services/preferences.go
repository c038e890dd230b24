package services

import (
	"context"
	"errors"
	"strings"

	"cdrive/internal/storage"
)

const (
	ThemeLight = "light"
	ThemeDark  = "dark"
)

var ErrBadTheme = errors.New("theme must be light or dark")

type Preferences struct {
	kv *storage.Adapter
}

func NewPreferences(kv *storage.Adapter) *Preferences { return &Preferences{kv: kv} }

// Theme returns the stored theme, light unless dark was saved.
func (p *Preferences) Theme(ctx context.Context) string {
	if v, _ := p.kv.GetString(ctx, storage.KeyTheme); v == ThemeDark {
		return ThemeDark
	}
	return ThemeLight
}

func (p *Preferences) SetTheme(ctx context.Context, theme string) error {
	theme = strings.ToLower(strings.TrimSpace(theme))
	if theme != ThemeLight && theme != ThemeDark {
		return ErrBadTheme
	}
	p.kv.SetString(ctx, storage.KeyTheme, theme)
	return nil
}
