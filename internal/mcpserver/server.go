// Package mcpserver exposes the orthographic views pipeline as a Model
// Context Protocol tool.
package mcpserver

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog/log"

	"github.com/fpang/orthoview/internal/bundle"
	"github.com/fpang/orthoview/internal/chat"
	"github.com/fpang/orthoview/internal/filehandler"
)

// ToolName is the name clients call.
const ToolName = "generate_orthographic_views"

// progressSteps is the number of progress messages a successful run emits.
const progressSteps = 8

// Pipeline runs one image through background removal and view generation.
type Pipeline interface {
	GenerateAllViews(ctx context.Context, blob *filehandler.ImageBlob, progress chat.ProgressSink) (chat.ViewResultSet, error)
}

// ViewsInput is the tool's argument object.
type ViewsInput struct {
	Path      string `json:"path" jsonschema:"path to a PNG, JPEG or WebP image on the server's filesystem"`
	OutputDir string `json:"outputDir,omitempty" jsonschema:"optional directory to also write the images and manifest.json into"`
}

// ViewSummary describes one returned image.
type ViewSummary struct {
	Kind     string `json:"kind"`
	Label    string `json:"label"`
	MIMEType string `json:"mimeType"`
	Bytes    int    `json:"bytes"`
	File     string `json:"file,omitempty"`
}

// ViewsOutput is the structured result of the tool.
type ViewsOutput struct {
	Model     string        `json:"model"`
	Generated int           `json:"generated"`
	Requested int           `json:"requested"`
	Views     []ViewSummary `json:"views"`
}

// NewServer creates an MCP server with the views tool registered.
func NewServer(pipeline Pipeline, model, version string) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{Name: "orthoview", Version: version}, nil)

	t := &tool{pipeline: pipeline, model: model}
	mcp.AddTool(server, &mcp.Tool{
		Name: ToolName,
		Description: "Remove the background of an image and generate its six orthographic views " +
			"(top, bottom, front, back, left, right). Returns the background-removed image first, " +
			"then every view that succeeded.",
	}, t.handle)

	return server
}

type tool struct {
	pipeline Pipeline
	model    string
}

func (t *tool) handle(ctx context.Context, req *mcp.CallToolRequest, in ViewsInput) (*mcp.CallToolResult, ViewsOutput, error) {
	path := strings.TrimSpace(in.Path)
	if path == "" {
		return nil, ViewsOutput{}, errors.New("path is required")
	}

	blob, err := filehandler.LoadImageBlob(path)
	if err != nil {
		var readErr *filehandler.ReadError
		if errors.As(err, &readErr) {
			return nil, ViewsOutput{}, errors.New(chat.UserMessage(err))
		}
		return nil, ViewsOutput{}, err
	}

	sink, stop := t.progressForwarder(ctx, req)
	results, err := t.pipeline.GenerateAllViews(ctx, blob, sink)
	stop()
	if err != nil {
		log.Warn().Err(err).Str("path", path).Msg("Pipeline aborted for MCP call")
		return nil, ViewsOutput{}, errors.New(chat.UserMessage(err))
	}

	b, err := bundle.Build(results, filepath.Base(path), t.model)
	if err != nil {
		return nil, ViewsOutput{}, err
	}

	out := ViewsOutput{
		Model:     t.model,
		Generated: len(results) - 1,
		Requested: len(chat.DirectionalViewKinds()),
		Views:     make([]ViewSummary, 0, len(results)),
	}
	var content []mcp.Content
	for _, f := range b.Files {
		content = append(content, &mcp.ImageContent{Data: f.Data, MIMEType: f.MIMEType})
		out.Views = append(out.Views, ViewSummary{
			Kind:     string(f.Kind),
			Label:    f.Label,
			MIMEType: f.MIMEType,
			Bytes:    f.Bytes,
		})
	}

	if dir := strings.TrimSpace(in.OutputDir); dir != "" {
		if _, err := b.WriteDir(dir); err != nil {
			return nil, ViewsOutput{}, err
		}
		for i := range out.Views {
			out.Views[i].File = filepath.Join(dir, b.Files[i].File)
		}
	}

	content = append(content, &mcp.TextContent{Text: summaryText(out)})
	return &mcp.CallToolResult{Content: content}, out, nil
}

// progressForwarder returns a non-blocking sink that relays messages as MCP
// progress notifications, and a stop function that waits for the relay to
// drain. Without a progress token the sink discards everything.
func (t *tool) progressForwarder(ctx context.Context, req *mcp.CallToolRequest) (chat.ProgressSink, func()) {
	if req == nil || req.Session == nil || req.Params == nil || req.Params.GetProgressToken() == nil {
		return chat.NoProgress, func() {}
	}
	token := req.Params.GetProgressToken()

	messages := make(chan string, progressSteps*2)
	done := make(chan struct{})
	go func() {
		defer close(done)
		step := 0
		for msg := range messages {
			step++
			err := req.Session.NotifyProgress(ctx, &mcp.ProgressNotificationParams{
				ProgressToken: token,
				Message:       msg,
				Progress:      float64(step),
				Total:         progressSteps,
			})
			if err != nil {
				log.Debug().Err(err).Msg("Failed to send MCP progress notification")
			}
		}
	}()

	sink := chat.ProgressFunc(func(msg string) {
		select {
		case messages <- msg:
		default:
		}
	})
	stop := func() {
		close(messages)
		<-done
	}
	return sink, stop
}

func summaryText(out ViewsOutput) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Generated %d of %d orthographic views.", out.Generated, out.Requested)
	for _, v := range out.Views {
		fmt.Fprintf(&sb, "\n- %s (%s)", v.Kind, v.Label)
		if v.File != "" {
			fmt.Fprintf(&sb, ": %s", v.File)
		}
	}
	return sb.String()
}
