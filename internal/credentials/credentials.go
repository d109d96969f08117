// Package credentials resolves the API keys and OAuth client used on behalf
// of a recruiter. A key saved in the recruiter's settings wins over the
// service-wide key from the environment.
package credentials

import (
	"context"
	"errors"
	"fmt"
)

// Kind names a credential.
type Kind string

const (
	KindGemini      Kind = "gemini"
	KindOpenAI      Kind = "openai"
	KindGoogleOAuth Kind = "google_oauth"
)

// Source tells where a credential came from.
type Source string

const (
	SourceUser Source = "user"
	SourceEnv  Source = "env"
)

// ErrNotConfigured is returned when neither the user nor the environment
// provides the credential.
var ErrNotConfigured = errors.New("credential not configured")

// Credentials is a resolved credential. Secret is only set for OAuth clients.
type Credentials struct {
	Key    string
	Secret string
	Source Source
}

// Settings is the per-user row of stored credentials.
type Settings struct {
	UserID             string
	GeminiAPIKey       string
	OpenAIAPIKey       string
	GoogleClientID     string
	GoogleClientSecret string
	GoogleRefreshToken string
}

// SettingsStore loads user settings. It returns (nil, nil) when the user has
// none.
type SettingsStore interface {
	GetSettings(ctx context.Context, userID string) (*Settings, error)
}

// Env holds the service-wide fallbacks.
type Env struct {
	GeminiAPIKey       string
	OpenAIAPIKey       string
	GoogleClientID     string
	GoogleClientSecret string
}

// Resolver implements the user-then-environment lookup.
type Resolver struct {
	settings SettingsStore
	env      Env
}

// NewResolver returns a Resolver. settings may be nil, in which case only
// the environment is consulted.
func NewResolver(settings SettingsStore, env Env) *Resolver {
	return &Resolver{settings: settings, env: env}
}

// Resolve returns the credential of kind for userID.
func (r *Resolver) Resolve(ctx context.Context, userID string, kind Kind) (Credentials, error) {
	s, err := r.load(ctx, userID)
	if err != nil {
		return Credentials{}, err
	}

	var user, env Credentials
	switch kind {
	case KindGemini:
		user.Key, env.Key = s.GeminiAPIKey, r.env.GeminiAPIKey
	case KindOpenAI:
		user.Key, env.Key = s.OpenAIAPIKey, r.env.OpenAIAPIKey
	case KindGoogleOAuth:
		user = Credentials{Key: s.GoogleClientID, Secret: s.GoogleClientSecret}
		env = Credentials{Key: r.env.GoogleClientID, Secret: r.env.GoogleClientSecret}
		// A client ID without its secret is unusable.
		if user.Secret == "" {
			user.Key = ""
		}
	default:
		return Credentials{}, fmt.Errorf("unknown credential kind %q", kind)
	}

	switch {
	case user.Key != "":
		user.Source = SourceUser
		return user, nil
	case env.Key != "":
		env.Source = SourceEnv
		return env, nil
	}
	return Credentials{}, fmt.Errorf("%s: %w", kind, ErrNotConfigured)
}

// RefreshToken returns the stored calendar refresh token of userID.
func (r *Resolver) RefreshToken(ctx context.Context, userID string) (string, error) {
	s, err := r.load(ctx, userID)
	if err != nil {
		return "", err
	}
	if s.GoogleRefreshToken == "" {
		return "", fmt.Errorf("calendar not connected: %w", ErrNotConfigured)
	}
	return s.GoogleRefreshToken, nil
}

func (r *Resolver) load(ctx context.Context, userID string) (*Settings, error) {
	if r.settings == nil || userID == "" {
		return &Settings{}, nil
	}
	s, err := r.settings.GetSettings(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	if s == nil {
		return &Settings{}, nil
	}
	return s, nil
}
