package cli

import (
	"context"
	"errors"
	"fmt"
	"io/fs"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"google.golang.org/genai"

	"github.com/fpang/orthoview/internal/auth"
	"github.com/fpang/orthoview/internal/chat"
)

// LoadDotEnv loads KEY=value pairs from the given files (default ".env")
// into the environment and returns the files it loaded. Variables already
// set win; missing files are skipped. It runs before logging.Init so that a
// .env file can set GEMINI_LOG_LEVEL, which is why it does not log.
func LoadDotEnv(files ...string) (loaded []string, err error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		loadErr := godotenv.Load(f)
		switch {
		case loadErr == nil:
			loaded = append(loaded, f)
		case errors.Is(loadErr, fs.ErrNotExist):
		default:
			err = errors.Join(err, fmt.Errorf("parse %s: %w", f, loadErr))
		}
	}
	return loaded, err
}

// InitGeminiClient resolves the API key and creates a Gemini client. When
// validate is set, the key is checked with one cheap request first.
// Exits fatally on failure.
func InitGeminiClient(ctx context.Context, validate bool) *genai.Client {
	apiKey, source, err := auth.ResolveAPIKey()
	if err != nil {
		HandleValidationError(err)
	}

	client, err := chat.NewGeminiClient(ctx, apiKey)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create Gemini client")
	}
	log.Debug().Str("key_source", string(source)).Msg("Gemini client initialized")

	if validate {
		if err := auth.ValidateAPIKey(ctx, client); err != nil {
			HandleValidationError(err)
		}
	}

	return client
}
