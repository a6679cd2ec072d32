package chat

import (
	"errors"

	"github.com/fpang/orthoview/internal/auth"
	"github.com/fpang/orthoview/internal/filehandler"
)

// UserMessage turns an aborting pipeline error into the one line shown to
// the user. Partial directional failures never reach here.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}

	var readErr *filehandler.ReadError
	if errors.As(err, &readErr) {
		if errors.Is(err, filehandler.ErrEmptyImage) {
			return "The image is empty. Choose another file."
		}
		return "The image could not be read. Choose another file."
	}

	if errors.Is(err, ErrNoImage) {
		return "Background removal failed: the model did not return an image. Try another photo."
	}

	switch auth.Classify(err).Type {
	case auth.ErrTypeNoKey:
		return "No Gemini API key is configured."
	case auth.ErrTypeInvalidKey:
		return "Background removal failed: the Gemini API key was rejected."
	case auth.ErrTypeQuotaExceeded:
		return "Background removal failed: the Gemini quota is exhausted. Try again later."
	case auth.ErrTypeNetworkError:
		return "Background removal failed: Gemini could not be reached. Try again later."
	default:
		return "Background removal failed. Try again."
	}
}
