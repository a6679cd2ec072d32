package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/fpang/orthoview/internal/chat"
	"github.com/fpang/orthoview/internal/cli"
	"github.com/fpang/orthoview/internal/logging"
	"github.com/fpang/orthoview/internal/web"
)

// CLI flags
var (
	portFlag     int
	modelFlag    string
	validateFlag bool
	envFlag      []string
)

var rootCmd = &cobra.Command{
	Use:   "orthoview-web",
	Short: "Local HTTP API for orthographic view generation",
	Long: `OrthoView Web starts a local HTTP server that accepts an image upload and
returns the background-removed image plus its six orthographic views.

Endpoints:
  POST /api/views         multipart "image" field, JSON result
  POST /api/views/stream  same input, Server-Sent Events progress then result
  POST /api/views/zip     same input, ZIP bundle with manifest.json
  GET  /healthz

Examples:
  orthoview-web
  orthoview-web --port 9090
  orthoview-web --model gemini-3-pro-image-preview`,
	Version: fmt.Sprintf("%s (built %s)", commitHash, buildTime),
	Run:     runMain,
}

func init() {
	rootCmd.Flags().IntVar(&portFlag, "port", 0, "Port to listen on (default: $ORTHOVIEW_PORT or 8080)")
	rootCmd.Flags().StringVarP(&modelFlag, "model", "m", "", "Gemini image model to use (default: $ORTHOVIEW_IMAGE_MODEL or "+chat.DefaultImageModelName+")")
	rootCmd.Flags().BoolVar(&validateFlag, "validate", true, "Validate the API key at startup")
	rootCmd.Flags().StringSliceVar(&envFlag, "env", []string{".env"}, "Dotenv files to load before reading configuration")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runMain(cmd *cobra.Command, args []string) {
	initStart := time.Now()
	loaded, envErr := cli.LoadDotEnv(envFlag...)
	logging.Init()
	if envErr != nil {
		log.Fatal().Err(envErr).Msg("Failed to load dotenv file")
	}

	port := portFlag
	if port == 0 {
		p, err := strconv.Atoi(logging.EnvOrDefault("ORTHOVIEW_PORT", "8080"))
		if err != nil {
			log.Fatal().Err(err).Msg("Invalid ORTHOVIEW_PORT")
		}
		port = p
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client := cli.InitGeminiClient(ctx, validateFlag)
	generator := chat.NewGeminiImageClient(client, modelFlag)
	handler := web.NewHandler(chat.NewViewOrchestrator(generator, generator.Model()), generator.Model())

	srv := &http.Server{
		Addr:        fmt.Sprintf(":%d", port),
		Handler:     handler,
		ReadTimeout: 30 * time.Second,
		// Seven sequential-then-parallel model calls can take minutes.
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		<-ctx.Done()
		log.Info().Msg("Shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	logging.NewStartupLogger("orthoview-web").
		CommitHash(commitHash).
		BuildTime(buildTime).
		Config("model", generator.Model()).
		Config("port", strconv.Itoa(port)).
		Config("dotenv", fmt.Sprint(loaded)).
		Feature("keyValidation", validateFlag).
		InitDuration(time.Since(initStart)).
		Log()
	fmt.Printf("\n  OrthoView API: http://localhost:%d\n\n", port)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("Server failed")
	}
	log.Info().Msg("Server stopped")
}
