package chat

// gemini_image.go wraps a single image-in/image-out call to a Gemini image
// model. One call is one network round trip: no caching and no retry.

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/fpang/orthoview/internal/filehandler"
	"github.com/rs/zerolog/log"
	"google.golang.org/genai"
)

// ImageGenerator turns an input image plus an instruction into one new image.
type ImageGenerator interface {
	GenerateImage(ctx context.Context, image filehandler.EncodedImage, instruction string) (*filehandler.EncodedImage, error)
}

// ErrNoImage is wrapped by GenerationError when the model answered without
// any inline image part.
var ErrNoImage = errors.New("model returned no image")

// GenerationError reports a failed image generation. Instruction is kept for
// diagnostics so a failed view can be traced back to its prompt.
type GenerationError struct {
	Instruction string
	Err         error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("image generation failed (%s): %v", truncateString(e.Instruction, 80), e.Err)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

// NewGeminiClient creates a genai client for the Gemini Developer API.
func NewGeminiClient(ctx context.Context, apiKey string) (*genai.Client, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return client, nil
}

// GeminiImageClient calls a Gemini image model through the genai SDK.
type GeminiImageClient struct {
	client *genai.Client
	model  string
}

// NewGeminiImageClient creates an image client bound to one model.
// An empty model falls back to GetImageModelName.
func NewGeminiImageClient(client *genai.Client, model string) *GeminiImageClient {
	if model == "" {
		model = GetImageModelName()
	}
	return &GeminiImageClient{client: client, model: model}
}

// Model returns the model ID used for generation.
func (c *GeminiImageClient) Model() string {
	return c.model
}

// GenerateImage sends the image and instruction in one request that accepts
// both image and text back, then returns the first inline image part of the
// answer. The result keeps the input's MIME type: the model is never asked to
// change format.
func (c *GeminiImageClient) GenerateImage(ctx context.Context, image filehandler.EncodedImage, instruction string) (*filehandler.EncodedImage, error) {
	if instruction == "" {
		return nil, &GenerationError{Err: errors.New("instruction is empty")}
	}

	data, err := image.Bytes()
	if err != nil {
		return nil, &GenerationError{Instruction: instruction, Err: fmt.Errorf("invalid base64 payload: %w", err)}
	}
	if len(data) == 0 {
		return nil, &GenerationError{Instruction: instruction, Err: errors.New("image payload is empty")}
	}

	startTime := time.Now()
	log.Debug().
		Str("model", c.model).
		Int("image_bytes", len(data)).
		Str("image_mime", image.MIMEType).
		Str("instruction", truncateString(instruction, 100)).
		Msg("Sending image to Gemini for generation")

	contents := []*genai.Content{{
		Role: "user",
		Parts: []*genai.Part{
			{InlineData: &genai.Blob{MIMEType: image.MIMEType, Data: data}},
			{Text: instruction},
		},
	}}
	config := &genai.GenerateContentConfig{
		ResponseModalities: []string{string(genai.ModalityImage), string(genai.ModalityText)},
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, contents, config)
	if err != nil {
		log.Error().Err(err).Dur("duration", time.Since(startTime)).Msg("Gemini image generation call failed")
		return nil, &GenerationError{Instruction: instruction, Err: err}
	}

	blob := firstInlineImage(resp)
	if blob == nil {
		log.Warn().
			Str("model", c.model).
			Str("text", truncateString(responseText(resp), 200)).
			Msg("Gemini response carried no image")
		return nil, &GenerationError{Instruction: instruction, Err: ErrNoImage}
	}

	if blob.MIMEType != "" && blob.MIMEType != image.MIMEType {
		log.Debug().
			Str("requested_mime", image.MIMEType).
			Str("returned_mime", blob.MIMEType).
			Msg("Gemini returned a different image type, keeping the upload's type")
	}

	log.Info().
		Str("model", c.model).
		Int("output_bytes", len(blob.Data)).
		Dur("duration", time.Since(startTime)).
		Msg("Gemini image generation complete")

	return &filehandler.EncodedImage{
		Base64:   base64.StdEncoding.EncodeToString(blob.Data),
		MIMEType: image.MIMEType,
	}, nil
}

// firstInlineImage walks the first candidate's parts in order and returns the
// first one carrying inline image bytes.
func firstInlineImage(resp *genai.GenerateContentResponse) *genai.Blob {
	if resp == nil || len(resp.Candidates) == 0 {
		return nil
	}
	content := resp.Candidates[0].Content
	if content == nil {
		return nil
	}
	for _, part := range content.Parts {
		if part != nil && part.InlineData != nil && len(part.InlineData.Data) > 0 {
			return part.InlineData
		}
	}
	return nil
}

// responseText joins the text parts of the first candidate, for diagnostics.
func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var text string
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil && part.Text != "" {
			text += part.Text
		}
	}
	return text
}

// truncateString truncates a string to maxLen, appending "..." if truncated.
// truncateString cuts s to at most maxLen bytes without splitting a rune.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	cut := maxLen
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
