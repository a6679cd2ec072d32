package mcpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog"

	"github.com/fpang/orthoview/internal/chat"
	"github.com/fpang/orthoview/internal/filehandler"
	"github.com/fpang/orthoview/internal/metrics"
)

func TestMain(m *testing.M) {
	zerolog.SetGlobalLevel(zerolog.Disabled)
	metrics.SetOutput(io.Discard)
	os.Exit(m.Run())
}

type echoGenerator struct {
	failAll bool
}

func (g *echoGenerator) GenerateImage(ctx context.Context, img filehandler.EncodedImage, instruction string) (*filehandler.EncodedImage, error) {
	if g.failAll {
		return nil, &chat.GenerationError{Instruction: instruction, Err: chat.ErrNoImage}
	}
	return &filehandler.EncodedImage{Base64: img.Base64, MIMEType: img.MIMEType}, nil
}

func writeTestPNG(t *testing.T) (string, []byte) {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 4, 4))); err != nil {
		t.Fatal(err)
	}
	p := filepath.Join(t.TempDir(), "mug.png")
	if err := os.WriteFile(p, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
	return p, buf.Bytes()
}

// connect starts the server in memory and returns a connected client session.
func connect(t *testing.T, gen chat.ImageGenerator, opts *mcp.ClientOptions) *mcp.ClientSession {
	t.Helper()
	ctx := context.Background()

	server := NewServer(chat.NewViewOrchestrator(gen, "test-model"), "test-model", "test")
	serverTransport, clientTransport := mcp.NewInMemoryTransports()

	ss, err := server.Connect(ctx, serverTransport, nil)
	if err != nil {
		t.Fatalf("server connect: %v", err)
	}
	t.Cleanup(func() { ss.Close() })

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "test"}, opts)
	cs, err := client.Connect(ctx, clientTransport, nil)
	if err != nil {
		t.Fatalf("client connect: %v", err)
	}
	t.Cleanup(func() { cs.Close() })
	return cs
}

func TestListTools(t *testing.T) {
	cs := connect(t, &echoGenerator{}, nil)

	res, err := cs.ListTools(context.Background(), nil)
	if err != nil {
		t.Fatalf("ListTools: %v", err)
	}
	if len(res.Tools) != 1 || res.Tools[0].Name != ToolName {
		t.Fatalf("tools = %+v", res.Tools)
	}
}

func TestCallTool_ReturnsImages(t *testing.T) {
	path, data := writeTestPNG(t)
	cs := connect(t, &echoGenerator{}, nil)

	res, err := cs.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      ToolName,
		Arguments: map[string]any{"path": path},
	})
	if err != nil {
		t.Fatalf("CallTool: %v", err)
	}
	if res.IsError {
		t.Fatalf("tool reported an error: %+v", res.Content)
	}

	var images int
	var text string
	for _, c := range res.Content {
		switch c := c.(type) {
		case *mcp.ImageContent:
			images++
			if c.MIMEType != "image/png" || !bytes.Equal(c.Data, data) {
				t.Errorf("image content mime=%q bytes=%d", c.MIMEType, len(c.Data))
			}
		case *mcp.TextContent:
			text = c.Text
		}
	}
	if images != 7 {
		t.Errorf("expected 7 images, got %d", images)
	}
	if !strings.Contains(text, "Generated 6 of 6") {
		t.Errorf("summary = %q", text)
	}

	raw, err := json.Marshal(res.StructuredContent)
	if err != nil {
		t.Fatal(err)
	}
	var out ViewsOutput
	if err := json.Unmarshal(raw, &out); err != nil {
		t.Fatalf("structured content: %v", err)
	}
	if out.Generated != 6 || len(out.Views) != 7 || out.Views[0].Kind != string(chat.ViewBackgroundRemoved) {
		t.Errorf("structured output = %+v", out)
	}
}

func TestCallTool_WritesOutputDir(t *testing.T) {
	path, _ := writeTestPNG(t)
	outDir := filepath.Join(t.TempDir(), "out")
	cs := connect(t, &echoGenerator{}, nil)

	res, err := cs.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      ToolName,
		Arguments: map[string]any{"path": path, "outputDir": outDir},
	})
	if err != nil || res.IsError {
		t.Fatalf("CallTool: err=%v result=%+v", err, res)
	}

	if _, err := os.Stat(filepath.Join(outDir, "01-background-removed.png")); err != nil {
		t.Errorf("expected background-removed image on disk: %v", err)
	}
	if _, err := os.Stat(filepath.Join(outDir, "manifest.json")); err != nil {
		t.Errorf("expected manifest on disk: %v", err)
	}
}

func TestCallTool_Errors(t *testing.T) {
	path, _ := writeTestPNG(t)

	tests := []struct {
		name string
		gen  chat.ImageGenerator
		args map[string]any
		want string
	}{
		{"missing file", &echoGenerator{}, map[string]any{"path": filepath.Join(t.TempDir(), "nope.png")}, ""},
		{"blank path", &echoGenerator{}, map[string]any{"path": "  "}, "path is required"},
		{"background failure", &echoGenerator{failAll: true}, map[string]any{"path": path}, "Background removal failed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cs := connect(t, tt.gen, nil)
			res, err := cs.CallTool(context.Background(), &mcp.CallToolParams{Name: ToolName, Arguments: tt.args})
			if err != nil {
				t.Fatalf("CallTool transport error: %v", err)
			}
			if !res.IsError {
				t.Fatal("expected a tool error result")
			}
			if tt.want == "" {
				return
			}
			var text string
			for _, c := range res.Content {
				if tc, ok := c.(*mcp.TextContent); ok {
					text += tc.Text
				}
			}
			if !strings.Contains(text, tt.want) {
				t.Errorf("error text = %q, want %q", text, tt.want)
			}
		})
	}
}

func TestCallTool_ProgressNotifications(t *testing.T) {
	path, _ := writeTestPNG(t)

	var mu sync.Mutex
	var messages []string
	cs := connect(t, &echoGenerator{}, &mcp.ClientOptions{
		ProgressNotificationHandler: func(ctx context.Context, req *mcp.ProgressNotificationClientRequest) {
			mu.Lock()
			defer mu.Unlock()
			messages = append(messages, req.Params.Message)
		},
	})

	// SetProgressToken only records the token in an existing Meta map.
	params := &mcp.CallToolParams{Meta: mcp.Meta{}, Name: ToolName, Arguments: map[string]any{"path": path}}
	params.SetProgressToken("views-1")
	if params.GetProgressToken() == nil {
		t.Fatal("progress token was not set on the request")
	}
	if _, err := cs.CallTool(context.Background(), params); err != nil {
		t.Fatalf("CallTool: %v", err)
	}

	// Notifications are delivered asynchronously to the client handler.
	deadline := 200
	for i := 0; i < deadline; i++ {
		mu.Lock()
		n := len(messages)
		mu.Unlock()
		if n == progressSteps {
			break
		}
		sleepBriefly()
	}

	mu.Lock()
	defer mu.Unlock()
	if len(messages) != progressSteps {
		t.Fatalf("expected %d progress notifications, got %d: %v", progressSteps, len(messages), messages)
	}
	if messages[0] != "Reading image..." {
		t.Errorf("first progress = %q", messages[0])
	}
	if last := messages[len(messages)-1]; last != "Generating view (6/6): back..." {
		t.Errorf("last progress = %q", last)
	}
}

func sleepBriefly() { time.Sleep(5 * time.Millisecond) }
