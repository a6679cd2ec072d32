// Package main provides the Lambda entry point for the orthographic views
// HTTP API behind API Gateway (HTTP API, payload v2).
//
// The Gemini API key is read once at cold start from GEMINI_API_KEY or, when
// unset, from SSM Parameter Store (SSM_GEMINI_API_KEY_PARAM).
//
// Memory: 1 GB
// Timeout: 5 minutes
package main

import (
	"context"
	"net/http"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/awslabs/aws-lambda-go-api-proxy/httpadapter"
	"github.com/rs/zerolog/log"

	"github.com/fpang/orthoview/internal/chat"
	"github.com/fpang/orthoview/internal/lambdaboot"
	"github.com/fpang/orthoview/internal/logging"
	"github.com/fpang/orthoview/internal/web"
)

// handler is built at cold start and shared by every invocation.
var handler http.Handler

var coldStart = true

func init() {
	initStart := time.Now()
	logging.Init()
	ctx := context.Background()

	aws, err := lambdaboot.InitAWS(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("AWS init failed")
	}

	param := lambdaboot.GeminiKeyParam()
	apiKey, err := lambdaboot.LoadGeminiKey(ctx, aws.SSM, param)
	if err != nil {
		log.Fatal().Err(err).Str("param", param).Msg("Gemini API key unavailable")
	}

	client, err := chat.NewGeminiClient(ctx, apiKey)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create Gemini client")
	}
	generator := chat.NewGeminiImageClient(client, "")
	// API Gateway buffers responses, so Server-Sent Events are served only by orthoview-web.
	handler = web.NewHandler(
		chat.NewViewOrchestrator(generator, generator.Model()),
		generator.Model(),
		web.WithoutStreaming(),
	)

	lambdaboot.StartupLog("orthoview-lambda", initStart).
		CommitHash(commitHash).
		BuildTime(buildTime).
		SSMParam("geminiApiKey", param).
		Config("model", generator.Model()).
		Config("region", aws.Config.Region).
		Feature("sseStream", false).
		Log()
}

func main() {
	adapter := httpadapter.NewV2(withColdStartLog(handler))
	lambda.Start(adapter.ProxyWithContext)
}

func withColdStartLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if coldStart {
			coldStart = false
			log.Info().Str("function", "orthoview-lambda").Msg("Cold start, first invocation")
		}
		next.ServeHTTP(w, r)
	})
}
