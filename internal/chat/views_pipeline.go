package chat

// views_pipeline.go drives the orthographic views pipeline:
//   1. encode the upload
//   2. remove the background (one call; failure aborts)
//   3. generate six directional views concurrently from the background-removed
//      image (failures drop the view, never the run)

import (
	"context"
	"fmt"
	"time"

	"github.com/fpang/orthoview/internal/filehandler"
	"github.com/fpang/orthoview/internal/jobs"
	"github.com/fpang/orthoview/internal/metrics"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// ProgressSink receives human-readable progress messages. Implementations
// must return promptly; the pipeline never waits on or inspects the sink.
type ProgressSink interface {
	Progress(message string)
}

// ProgressFunc adapts a plain function to ProgressSink.
type ProgressFunc func(message string)

// Progress calls f(message).
func (f ProgressFunc) Progress(message string) { f(message) }

// NoProgress discards all progress messages.
var NoProgress ProgressSink = ProgressFunc(func(string) {})

// PipelineState is the conceptual stage of one pipeline run.
type PipelineState int

const (
	StateIdle PipelineState = iota
	StateReadingInput
	StateRemovingBackground
	StateGeneratingViews
	StateDone
	StateError
)

func (s PipelineState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateReadingInput:
		return "reading_input"
	case StateRemovingBackground:
		return "removing_background"
	case StateGeneratingViews:
		return "generating_views"
	case StateDone:
		return "done"
	case StateError:
		return "error"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Progress messages, in the order a successful run emits them.
const (
	progressReading            = "Reading image..."
	progressRemovingBackground = "Removing background..."
	progressGeneratingViewFmt  = "Generating view (%d/%d): %s..."
)

// ViewOrchestrator runs the background-removal → six-view pipeline against an
// ImageGenerator. It holds no per-run state and is safe for concurrent use.
type ViewOrchestrator struct {
	generator ImageGenerator
	model     string
	views     []directionalView
}

// NewViewOrchestrator creates an orchestrator. model is only used to label
// logs and metrics.
func NewViewOrchestrator(generator ImageGenerator, model string) *ViewOrchestrator {
	return &ViewOrchestrator{
		generator: generator,
		model:     model,
		views:     directionalViews,
	}
}

// viewOutcome is what one fan-out goroutine reports back.
type viewOutcome struct {
	kind ViewKind
	view *GeneratedView
	err  error
	took time.Duration
}

// pipelineRun carries the per-call bookkeeping for logs and metrics.
type pipelineRun struct {
	id     string
	state  PipelineState
	logger zerolog.Logger
	start  time.Time
}

func (r *pipelineRun) transition(to PipelineState) {
	r.logger.Debug().
		Stringer("from", r.state).
		Stringer("to", to).
		Msg("Pipeline state change")
	r.state = to
}

// GenerateAllViews runs the full pipeline for one image.
//
// It returns an error only when the image cannot be read or background
// removal fails; in both cases no directional view is attempted. Otherwise
// the result holds the background-removed image first, followed by every
// directional view that succeeded in the order they finished.
//
// Once the fan-out starts, the six calls run to completion even if ctx is
// cancelled.
func (o *ViewOrchestrator) GenerateAllViews(ctx context.Context, blob *filehandler.ImageBlob, progress ProgressSink) (ViewResultSet, error) {
	if progress == nil {
		progress = NoProgress
	}

	run := &pipelineRun{
		id:    jobs.GenerateID("views-"),
		state: StateIdle,
		start: time.Now(),
	}
	run.logger = log.With().Str("run", run.id).Str("model", o.model).Logger()

	// Idle → ReadingInput
	run.transition(StateReadingInput)
	progress.Progress(progressReading)
	encoded, err := filehandler.Encode(blob)
	if err != nil {
		run.transition(StateError)
		run.logger.Error().Err(err).Msg("Failed to read input image")
		o.flushMetrics(run, 0, 0)
		return nil, err
	}

	// ReadingInput → RemovingBackground
	run.transition(StateRemovingBackground)
	progress.Progress(progressRemovingBackground)
	noBackground, err := o.generator.GenerateImage(ctx, *encoded, backgroundRemovalInstruction)
	if err != nil {
		run.transition(StateError)
		run.logger.Error().Err(err).Msg("Background removal failed, aborting")
		o.flushMetrics(run, 0, 0)
		return nil, err
	}

	results := ViewResultSet{{
		Kind:         ViewBackgroundRemoved,
		ImageDataURI: filehandler.DataURI(encoded.MIMEType, noBackground.Base64),
	}}

	// RemovingBackground → GeneratingViews
	run.transition(StateGeneratingViews)
	seed := filehandler.EncodedImage{Base64: noBackground.Base64, MIMEType: encoded.MIMEType}
	generated, failed := o.generateDirectionalViews(context.WithoutCancel(ctx), run, seed, progress)
	results = append(results, generated...)

	// GeneratingViews → Done
	run.transition(StateDone)
	run.logger.Info().
		Int("views_generated", len(generated)).
		Int("views_failed", failed).
		Dur("duration", time.Since(run.start)).
		Msg("Orthographic views pipeline complete")
	o.flushMetrics(run, len(generated), failed)

	return results, nil
}

// generateDirectionalViews fans out one goroutine per directional view. Every
// goroutine returns nil so a failure never cancels its siblings; outcomes are
// collected from a buffered channel, which preserves completion order.
func (o *ViewOrchestrator) generateDirectionalViews(ctx context.Context, run *pipelineRun, seed filehandler.EncodedImage, progress ProgressSink) ([]GeneratedView, int) {
	outcomes := make(chan viewOutcome, len(o.views))

	var g errgroup.Group
	for i, view := range o.views {
		progress.Progress(fmt.Sprintf(progressGeneratingViewFmt, i+1, len(o.views), view.Kind))

		g.Go(func() error {
			start := time.Now()
			out, err := o.generator.GenerateImage(ctx, seed, view.Instruction)
			if err != nil {
				outcomes <- viewOutcome{kind: view.Kind, err: err, took: time.Since(start)}
				return nil
			}
			outcomes <- viewOutcome{
				kind: view.Kind,
				view: &GeneratedView{
					Kind:         view.Kind,
					ImageDataURI: filehandler.DataURI(seed.MIMEType, out.Base64),
				},
				took: time.Since(start),
			}
			return nil
		})
	}

	_ = g.Wait()
	close(outcomes)

	var generated []GeneratedView
	failed := 0
	for outcome := range outcomes {
		if outcome.err != nil {
			failed++
			run.logger.Warn().
				Err(outcome.err).
				Str("view", string(outcome.kind)).
				Dur("duration", outcome.took).
				Msg("Failed to generate view, omitting it")
			continue
		}
		run.logger.Debug().
			Str("view", string(outcome.kind)).
			Dur("duration", outcome.took).
			Msg("View generated")
		generated = append(generated, *outcome.view)
	}

	return generated, failed
}

func (o *ViewOrchestrator) flushMetrics(run *pipelineRun, generated, failed int) {
	metrics.New(metrics.Namespace).
		Dimension("Model", o.model).
		Dimension("Outcome", run.state.String()).
		Metric("ViewsGenerated", float64(generated), metrics.UnitCount).
		Metric("ViewsFailed", float64(failed), metrics.UnitCount).
		Duration("PipelineMs", time.Since(run.start)).
		Property("runId", run.id).
		Flush()
}
