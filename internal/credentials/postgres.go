package credentials

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresSettings reads and writes the user_settings table.
type PostgresSettings struct {
	pool *pgxpool.Pool
}

// NewPostgresSettings returns a SettingsRepository backed by pool.
func NewPostgresSettings(pool *pgxpool.Pool) *PostgresSettings {
	return &PostgresSettings{pool: pool}
}

func (p *PostgresSettings) GetSettings(ctx context.Context, userID string) (*Settings, error) {
	s := Settings{UserID: userID}
	err := p.pool.QueryRow(ctx,
		`SELECT COALESCE(gemini_api_key, ''), COALESCE(openai_api_key, ''),
		        COALESCE(google_client_id, ''), COALESCE(google_client_secret, ''),
		        COALESCE(google_refresh_token, '')
		 FROM user_settings
		 WHERE user_id = $1`,
		userID,
	).Scan(&s.GeminiAPIKey, &s.OpenAIAPIKey, &s.GoogleClientID, &s.GoogleClientSecret, &s.GoogleRefreshToken)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// SaveSettings upserts the row of userID. Columns whose field in u is nil
// keep their stored value.
func (p *PostgresSettings) SaveSettings(ctx context.Context, userID string, u SettingsUpdate) error {
	_, err := p.pool.Exec(ctx,
		`INSERT INTO user_settings
		   (user_id, gemini_api_key, openai_api_key, google_client_id, google_client_secret, google_refresh_token)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (user_id) DO UPDATE SET
		   gemini_api_key       = COALESCE(EXCLUDED.gemini_api_key, user_settings.gemini_api_key),
		   openai_api_key       = COALESCE(EXCLUDED.openai_api_key, user_settings.openai_api_key),
		   google_client_id     = COALESCE(EXCLUDED.google_client_id, user_settings.google_client_id),
		   google_client_secret = COALESCE(EXCLUDED.google_client_secret, user_settings.google_client_secret),
		   google_refresh_token = COALESCE(EXCLUDED.google_refresh_token, user_settings.google_refresh_token),
		   updated_at           = now()`,
		userID, u.GeminiAPIKey, u.OpenAIAPIKey, u.GoogleClientID, u.GoogleClientSecret, u.GoogleRefreshToken,
	)
	return err
}

var _ SettingsRepository = (*PostgresSettings)(nil)
