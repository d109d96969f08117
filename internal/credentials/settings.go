package credentials

import (
	"context"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// SettingsUpdate changes the stored credentials of a user. A nil field is
// left as it is; an empty string clears it.
type SettingsUpdate struct {
	GeminiAPIKey       *string `json:"geminiApiKey" validate:"omitempty,max=512,printascii"`
	OpenAIAPIKey       *string `json:"openaiApiKey" validate:"omitempty,max=512,printascii"`
	GoogleClientID     *string `json:"googleClientId" validate:"omitempty,max=512,printascii"`
	GoogleClientSecret *string `json:"googleClientSecret" validate:"omitempty,max=512,printascii"`
	GoogleRefreshToken *string `json:"googleRefreshToken" validate:"omitempty,max=2048,printascii"`
}

// touchesCalendar reports whether u changes anything the calendar client
// authenticates with.
func (u SettingsUpdate) touchesCalendar() bool {
	return u.GoogleClientID != nil || u.GoogleClientSecret != nil || u.GoogleRefreshToken != nil
}

// SettingsRepository reads and writes user settings.
type SettingsRepository interface {
	SettingsStore
	SaveSettings(ctx context.Context, userID string, u SettingsUpdate) error
}

// SettingsView is what a user sees of their own settings. Secrets are
// masked; only the Google client ID is shown in full.
type SettingsView struct {
	GeminiAPIKey       string `json:"geminiApiKey"`
	OpenAIAPIKey       string `json:"openaiApiKey"`
	GoogleClientID     string `json:"googleClientId"`
	GoogleClientSecret string `json:"googleClientSecret"`
	CalendarConnected  bool   `json:"calendarConnected"`
}

// Redact returns the masked view of s. A nil s yields an empty view.
func Redact(s *Settings) SettingsView {
	if s == nil {
		return SettingsView{}
	}
	return SettingsView{
		GeminiAPIKey:       mask(s.GeminiAPIKey),
		OpenAIAPIKey:       mask(s.OpenAIAPIKey),
		GoogleClientID:     s.GoogleClientID,
		GoogleClientSecret: mask(s.GoogleClientSecret),
		CalendarConnected:  s.GoogleRefreshToken != "",
	}
}

// mask keeps the last four characters of keys long enough to hide the rest.
func mask(v string) string {
	switch {
	case v == "":
		return ""
	case len(v) <= 12:
		return "********"
	default:
		return "********" + v[len(v)-4:]
	}
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		return name
	})
	return v
}
