package chat

import (
	"strings"

	"github.com/fpang/orthoview/internal/assets"
)

// ViewKind labels one output image of the pipeline.
type ViewKind string

const (
	ViewBackgroundRemoved ViewKind = "background-removed"
	ViewTop               ViewKind = "top"
	ViewBottom            ViewKind = "bottom"
	ViewFront             ViewKind = "front"
	ViewBack              ViewKind = "back"
	ViewLeft              ViewKind = "left"
	ViewRight             ViewKind = "right"
)

// viewLabels are the captions shown by the web UI for each kind.
var viewLabels = map[ViewKind]string{
	ViewBackgroundRemoved: "去背主圖",
	ViewTop:               "俯視圖",
	ViewBottom:            "仰視圖",
	ViewFront:             "主視圖",
	ViewBack:              "後視圖",
	ViewLeft:              "左視圖",
	ViewRight:             "右視圖",
}

// Label returns the display caption for the kind.
func (k ViewKind) Label() string {
	if label, ok := viewLabels[k]; ok {
		return label
	}
	return string(k)
}

// Valid reports whether k is one of the seven known kinds.
func (k ViewKind) Valid() bool {
	_, ok := viewLabels[k]
	return ok
}

// ParseViewKind resolves a kind from its string form, case-insensitively.
func ParseViewKind(s string) (ViewKind, bool) {
	k := ViewKind(strings.ToLower(strings.TrimSpace(s)))
	return k, k.Valid()
}

// directionalView pairs a directional kind with the instruction sent to the model.
type directionalView struct {
	Kind        ViewKind
	Instruction string
}

// directionalViews is the dispatch table for the fan-out phase. Order here
// is dispatch order only; results arrive in completion order. Adding a view
// is one new row.
var directionalViews = []directionalView{
	{ViewTop, assets.RenderOrthographicViewPrompt(assets.OrthographicViewData{ViewName: "top view"})},
	{ViewBottom, assets.RenderOrthographicViewPrompt(assets.OrthographicViewData{ViewName: "bottom view"})},
	{ViewRight, assets.RenderOrthographicViewPrompt(assets.OrthographicViewData{ViewName: "right view", Viewpoint: "viewed from the right side"})},
	{ViewFront, assets.RenderOrthographicViewPrompt(assets.OrthographicViewData{ViewName: "front view"})},
	{ViewLeft, assets.RenderOrthographicViewPrompt(assets.OrthographicViewData{ViewName: "left view", Viewpoint: "viewed from the left side"})},
	{ViewBack, assets.RenderOrthographicViewPrompt(assets.OrthographicViewData{ViewName: "back view"})},
}

// backgroundRemovalInstruction is sent once, before the fan-out.
var backgroundRemovalInstruction = strings.TrimSpace(assets.BackgroundRemovalPrompt)

// DirectionalViewKinds returns the six directional kinds in dispatch order.
func DirectionalViewKinds() []ViewKind {
	kinds := make([]ViewKind, len(directionalViews))
	for i, v := range directionalViews {
		kinds[i] = v.Kind
	}
	return kinds
}

// InstructionFor returns the model instruction for a kind, or "" if unknown.
func InstructionFor(kind ViewKind) string {
	if kind == ViewBackgroundRemoved {
		return backgroundRemovalInstruction
	}
	for _, v := range directionalViews {
		if v.Kind == kind {
			return v.Instruction
		}
	}
	return ""
}

// GeneratedView is one successfully generated image.
type GeneratedView struct {
	Kind         ViewKind `json:"kind"`
	ImageDataURI string   `json:"imageDataUri"`
}

// ViewResultSet holds the background-removed image first, followed by the
// directional views that succeeded, in the order they finished.
type ViewResultSet []GeneratedView

// Get returns the view of the given kind, if present.
func (s ViewResultSet) Get(kind ViewKind) (GeneratedView, bool) {
	for _, v := range s {
		if v.Kind == kind {
			return v, true
		}
	}
	return GeneratedView{}, false
}

// Kinds lists the kinds present, in result order.
func (s ViewResultSet) Kinds() []ViewKind {
	kinds := make([]ViewKind, len(s))
	for i, v := range s {
		kinds[i] = v.Kind
	}
	return kinds
}
