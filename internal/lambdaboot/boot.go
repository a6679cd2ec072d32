// Package lambdaboot holds the cold-start steps of the Lambda binary:
// AWS config, the Gemini API key from SSM Parameter Store, and startup logging.
package lambdaboot

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/rs/zerolog/log"

	"github.com/fpang/orthoview/internal/auth"
	"github.com/fpang/orthoview/internal/logging"
)

const (
	// GeminiKeyParamEnv overrides the SSM parameter holding the Gemini API key.
	GeminiKeyParamEnv = "SSM_GEMINI_API_KEY_PARAM"
	// DefaultGeminiKeyParam is used when GeminiKeyParamEnv is unset.
	DefaultGeminiKeyParam = "/orthoview/prod/gemini-api-key"
)

// ParameterStore is the subset of the SSM client used here.
type ParameterStore interface {
	GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

// AWSClients holds the AWS SDK config and the SSM client.
type AWSClients struct {
	Config aws.Config
	SSM    *ssm.Client
}

// InitAWS loads the default AWS config and creates the SSM client.
func InitAWS(ctx context.Context) (AWSClients, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return AWSClients{}, fmt.Errorf("failed to load AWS config: %w", err)
	}
	log.Debug().Str("region", cfg.Region).Msg("AWS config loaded")
	return AWSClients{
		Config: cfg,
		SSM:    ssm.NewFromConfig(cfg),
	}, nil
}

// GeminiKeyParam returns the SSM parameter name for the Gemini API key.
func GeminiKeyParam() string {
	return logging.EnvOrDefault(GeminiKeyParamEnv, DefaultGeminiKeyParam)
}

// LoadGeminiKey returns GEMINI_API_KEY when set, otherwise reads and decrypts
// paramName from store. A missing or empty parameter is reported as an
// auth.ValidationError of type ErrTypeNoKey.
func LoadGeminiKey(ctx context.Context, store ParameterStore, paramName string) (string, error) {
	if key := strings.TrimSpace(os.Getenv(auth.APIKeyEnv)); key != "" {
		log.Debug().Msg("Using Gemini API key from environment variable")
		return key, nil
	}

	start := time.Now()
	result, err := store.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           aws.String(paramName),
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		return "", &auth.ValidationError{
			Type:    auth.ErrTypeNoKey,
			Message: fmt.Sprintf("failed to read Gemini API key from SSM parameter %s", paramName),
			Err:     err,
		}
	}

	if result.Parameter == nil || strings.TrimSpace(aws.ToString(result.Parameter.Value)) == "" {
		return "", &auth.ValidationError{
			Type:    auth.ErrTypeNoKey,
			Message: fmt.Sprintf("SSM parameter %s is empty", paramName),
			Err:     auth.ErrNoAPIKey,
		}
	}

	log.Debug().Str("param", paramName).Dur("elapsed", time.Since(start)).Msg("Gemini API key loaded from SSM")
	return strings.TrimSpace(aws.ToString(result.Parameter.Value)), nil
}

// IsMissingKey reports whether err means no API key could be resolved.
func IsMissingKey(err error) bool {
	var valErr *auth.ValidationError
	return errors.As(err, &valErr) && valErr.Type == auth.ErrTypeNoKey
}

// StartupLog is a convenience wrapper for the startup logger.
func StartupLog(name string, initStart time.Time) *logging.StartupLogger {
	return logging.NewStartupLogger(name).InitDuration(time.Since(initStart))
}
