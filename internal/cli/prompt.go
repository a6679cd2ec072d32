package cli

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/ncruces/zenity"
	"github.com/rs/zerolog/log"

	"github.com/fpang/orthoview/internal/filehandler"
)

// ErrNoSelection is returned when the user dismisses the file picker.
var ErrNoSelection = errors.New("no image selected")

// PickImage opens the native file picker filtered to supported image types
// and returns the chosen path.
func PickImage() (string, error) {
	patterns := make([]string, 0, len(filehandler.SupportedImageExtensions)*2)
	for ext := range filehandler.SupportedImageExtensions {
		patterns = append(patterns, "*"+ext, "*"+strings.ToUpper(ext))
	}
	sort.Strings(patterns)

	path, err := zenity.SelectFile(
		zenity.Title("Choose an image"),
		zenity.FileFilters{
			{Name: "Images", Patterns: patterns},
		},
	)
	if errors.Is(err, zenity.ErrCanceled) {
		return "", ErrNoSelection
	}
	if err != nil {
		return "", fmt.Errorf("file picker failed: %w", err)
	}

	log.Debug().Str("path", path).Msg("Image selected from picker")
	return path, nil
}

// ResolveImagePath returns arg when given, otherwise asks through the picker.
func ResolveImagePath(arg string) (string, error) {
	if p := strings.TrimSpace(arg); p != "" {
		return p, nil
	}
	return PickImage()
}
