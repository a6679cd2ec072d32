package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/fpang/orthoview/internal/chat"
	"github.com/fpang/orthoview/internal/cli"
	"github.com/fpang/orthoview/internal/logging"
	"github.com/fpang/orthoview/internal/mcpserver"
	"github.com/fpang/orthoview/internal/metrics"
)

// CLI flags
var (
	modelFlag    string
	validateFlag bool
	envFlag      []string
)

var rootCmd = &cobra.Command{
	Use:   "orthoview-mcp",
	Short: "MCP server exposing orthographic view generation as a tool",
	Long: `OrthoView MCP serves the Model Context Protocol over stdin/stdout with one
tool, generate_orthographic_views, which takes a local image path and returns
the background-removed image plus its six orthographic views.

Logs go to stderr; stdout carries only protocol messages.

Examples:
  orthoview-mcp
  orthoview-mcp --model gemini-3-pro-image-preview`,
	Version: fmt.Sprintf("%s (built %s)", commitHash, buildTime),
	Run:     runMain,
}

func init() {
	rootCmd.Flags().StringVarP(&modelFlag, "model", "m", "", "Gemini image model to use (default: $ORTHOVIEW_IMAGE_MODEL or "+chat.DefaultImageModelName+")")
	rootCmd.Flags().BoolVar(&validateFlag, "validate", false, "Validate the API key at startup")
	rootCmd.Flags().StringSliceVar(&envFlag, "env", []string{".env"}, "Dotenv files to load before reading configuration")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runMain(cmd *cobra.Command, args []string) {
	initStart := time.Now()
	_, envErr := cli.LoadDotEnv(envFlag...)
	logging.Init()
	if envErr != nil {
		log.Fatal().Err(envErr).Msg("Failed to load dotenv file")
	}
	// stdout is the MCP transport.
	metrics.SetOutput(io.Discard)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client := cli.InitGeminiClient(ctx, validateFlag)
	generator := chat.NewGeminiImageClient(client, modelFlag)
	server := mcpserver.NewServer(
		chat.NewViewOrchestrator(generator, generator.Model()),
		generator.Model(),
		commitHash,
	)

	logging.NewStartupLogger("orthoview-mcp").
		CommitHash(commitHash).
		BuildTime(buildTime).
		Config("model", generator.Model()).
		Config("tool", mcpserver.ToolName).
		InitDuration(time.Since(initStart)).
		Log()

	if err := server.Run(ctx, &mcp.StdioTransport{}); err != nil && ctx.Err() == nil {
		log.Fatal().Err(err).Msg("MCP server failed")
	}
}
