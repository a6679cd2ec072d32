package chat

import "os"

// Gemini image model IDs
//
// | Model Name                       | API Model ID                      | Use Case                         |
// |----------------------------------|-----------------------------------|----------------------------------|
// | Gemini 2.5 Flash Image (Preview) | gemini-2.5-flash-image-preview    | Fast image edit/generation       |
// | Gemini 2.5 Flash Image           | gemini-2.5-flash-image            | Stable image edit/generation     |
// | Gemini 3 Pro Image               | gemini-3-pro-image-preview        | Advanced image generation        |
const (
	// ModelGemini25FlashImagePreview is the fast image model the pipeline was tuned against.
	ModelGemini25FlashImagePreview = "gemini-2.5-flash-image-preview"

	// ModelGemini25FlashImage is the stable release of the fast image model.
	ModelGemini25FlashImage = "gemini-2.5-flash-image"

	// ModelGemini3ProImage is for advanced image generation/edit.
	ModelGemini3ProImage = "gemini-3-pro-image-preview"
)

// DefaultImageModelName is the default Gemini image model to use.
// Can be overridden via ORTHOVIEW_IMAGE_MODEL environment variable.
const DefaultImageModelName = ModelGemini25FlashImagePreview

// GetImageModelName returns the Gemini image model to use, resolved from:
// 1. ORTHOVIEW_IMAGE_MODEL environment variable (if set)
// 2. Default: gemini-2.5-flash-image-preview
func GetImageModelName() string {
	if env := os.Getenv("ORTHOVIEW_IMAGE_MODEL"); env != "" {
		return env
	}
	return DefaultImageModelName
}
