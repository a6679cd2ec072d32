package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/fpang/orthoview/internal/bundle"
	"github.com/fpang/orthoview/internal/chat"
	"github.com/fpang/orthoview/internal/cli"
	"github.com/fpang/orthoview/internal/filehandler"
	"github.com/fpang/orthoview/internal/logging"
	"github.com/fpang/orthoview/internal/metrics"
)

// CLI flags
var (
	imageFlag    string
	outFlag      string
	zipFlag      string
	modelFlag    string
	validateFlag bool
	envFlag      []string
)

// rootCmd is the main Cobra command for the CLI.
var rootCmd = &cobra.Command{
	Use:   "orthoview [image]",
	Short: "Generate orthographic views of an object from one photo",
	Long: `OrthoView removes the background of a photo with Gemini, then generates the
object's six orthographic views (top, bottom, front, back, left, right) in parallel.

The background-removed image and every view that succeeded are written to the
output directory together with a manifest.json. Views the model fails to
produce are left out.

Examples:
  orthoview mug.png
  orthoview -i ./photos/chair.jpg -o ./chair-views --zip chair.zip
  orthoview --model gemini-3-pro-image-preview mug.png
  orthoview  # Interactive mode - opens a file picker`,
	Args:    cobra.MaximumNArgs(1),
	Version: fmt.Sprintf("%s (built %s)", commitHash, buildTime),
	Run:     runMain,
}

func init() {
	rootCmd.Flags().StringVarP(&imageFlag, "image", "i", "", "Image to process (PNG, JPEG or WebP)")
	rootCmd.Flags().StringVarP(&outFlag, "out", "o", "", "Output directory (default: <image name>-views next to the image)")
	rootCmd.Flags().StringVar(&zipFlag, "zip", "", "Also write a ZIP bundle of the results to this path")
	rootCmd.Flags().StringVarP(&modelFlag, "model", "m", chat.GetImageModelName(), "Gemini image model to use")
	rootCmd.Flags().BoolVar(&validateFlag, "validate", false, "Validate the API key before processing")
	rootCmd.Flags().StringSliceVar(&envFlag, "env", []string{".env"}, "Dotenv files to load before reading configuration")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// runMain is the main execution logic called by Cobra.
func runMain(cmd *cobra.Command, args []string) {
	loaded, envErr := cli.LoadDotEnv(envFlag...)
	logging.Init()
	if envErr != nil {
		log.Fatal().Err(envErr).Msg("Failed to load dotenv file")
	}
	if len(loaded) > 0 {
		log.Debug().Strs("files", loaded).Msg("Loaded dotenv files")
	}
	// EMF lines are for CloudWatch; keep the terminal clean.
	metrics.SetOutput(io.Discard)

	arg := imageFlag
	if arg == "" && len(args) > 0 {
		arg = args[0]
	}
	imagePath, err := cli.ResolveImagePath(arg)
	if err != nil {
		log.Fatal().Err(err).Msg("No image to process")
	}
	imagePath, err = cli.ValidateImagePath(imagePath)
	if err != nil {
		log.Fatal().Err(err).Str("path", imagePath).Msg("Invalid image")
	}

	blob, err := filehandler.LoadImageBlob(imagePath)
	if err != nil {
		var readErr *filehandler.ReadError
		if errors.As(err, &readErr) {
			fmt.Fprintln(os.Stderr, chat.UserMessage(err))
			os.Exit(1)
		}
		log.Fatal().Err(err).Str("path", imagePath).Msg("Failed to load image")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client := cli.InitGeminiClient(ctx, validateFlag)
	generator := chat.NewGeminiImageClient(client, modelFlag)
	orchestrator := chat.NewViewOrchestrator(generator, generator.Model())

	printHeader(imagePath, generator.Model())

	start := time.Now()
	results, err := orchestrator.GenerateAllViews(ctx, blob, cli.NewProgressPrinter(os.Stdout))
	if err != nil {
		log.Debug().Err(err).Msg("Pipeline aborted")
		fmt.Fprintln(os.Stderr, chat.UserMessage(err))
		os.Exit(1)
	}

	if err := writeResults(results, imagePath, generator.Model()); err != nil {
		log.Fatal().Err(err).Msg("Failed to write results")
	}
	fmt.Printf("Done in %s.\n", cli.FormatDurationShort(time.Since(start)))
}

func printHeader(imagePath, model string) {
	fmt.Println()
	fmt.Println("============================================")
	fmt.Println("Orthographic Views")
	fmt.Println("============================================")
	fmt.Printf("Image: %s\n", imagePath)
	fmt.Printf("Model: %s\n", model)
	fmt.Println("--------------------------------------------")
}

// writeResults saves the result set to the output directory and, when
// requested, a ZIP bundle.
func writeResults(results chat.ViewResultSet, imagePath, model string) error {
	b, err := bundle.Build(results, filepath.Base(imagePath), model)
	if err != nil {
		return err
	}

	outDir := outFlag
	if outDir == "" {
		outDir = defaultOutDir(imagePath)
	}
	paths, err := b.WriteDir(outDir)
	if err != nil {
		return err
	}

	fmt.Println("--------------------------------------------")
	fmt.Printf("Generated %d of %d views.\n", len(results)-1, len(chat.DirectionalViewKinds()))
	for i, f := range b.Files {
		fmt.Printf("   %d. %-20s %s\n", i+1, f.Label, paths[i])
	}

	if zipFlag != "" {
		if err := b.WriteZipFile(zipFlag); err != nil {
			return err
		}
		fmt.Printf("ZIP bundle: %s\n", zipFlag)
	}
	return nil
}

// defaultOutDir returns "<dir>/<name>-views" for "<dir>/<name>.<ext>".
func defaultOutDir(imagePath string) string {
	base := strings.TrimSuffix(filepath.Base(imagePath), filepath.Ext(imagePath))
	return filepath.Join(filepath.Dir(imagePath), base+"-views")
}
