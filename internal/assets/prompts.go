// Package assets provides embedded static assets for the application.
//
// Prompt templates are stored as text files under prompts/ and embedded at compile time.
package assets

import (
	"bytes"
	_ "embed"
	"strings"
	"text/template"
)

// BackgroundRemovalPrompt asks the image model to cut the main object out of
// the uploaded photo onto a transparent background.
//
//go:embed prompts/background-removal.txt
var BackgroundRemovalPrompt string

//go:embed prompts/orthographic-view.txt
var orthographicViewTemplate string

var orthographicViewTmpl = template.Must(template.New("orthographic-view").Parse(orthographicViewTemplate))

// OrthographicViewData fills the orthographic view template.
type OrthographicViewData struct {
	// ViewName is the projection to draw, e.g. "top view".
	ViewName string
	// Viewpoint optionally clarifies where the viewer stands, e.g. "viewed from the left side".
	Viewpoint string
}

// RenderOrthographicViewPrompt renders the instruction for one directional view.
func RenderOrthographicViewPrompt(data OrthographicViewData) string {
	var buf bytes.Buffer
	// The template is embedded and only references string fields, so
	// execution cannot fail on well-formed data.
	_ = orthographicViewTmpl.Execute(&buf, data)
	return strings.TrimSpace(buf.String())
}
