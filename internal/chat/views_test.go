package chat

import (
	"strings"
	"testing"
)

func TestDirectionalViewKinds(t *testing.T) {
	kinds := DirectionalViewKinds()
	if len(kinds) != 6 {
		t.Fatalf("expected 6 directional views, got %d", len(kinds))
	}

	seen := make(map[ViewKind]bool)
	for _, k := range kinds {
		if k == ViewBackgroundRemoved {
			t.Error("background-removed must not be a directional view")
		}
		if seen[k] {
			t.Errorf("duplicate directional view %s", k)
		}
		seen[k] = true
	}
}

func TestInstructionFor(t *testing.T) {
	if got := InstructionFor(ViewBackgroundRemoved); !strings.Contains(got, "background") {
		t.Errorf("background removal instruction = %q", got)
	}

	tests := []struct {
		kind ViewKind
		want []string
	}{
		{ViewTop, []string{"orthographic projection", "top view"}},
		{ViewBottom, []string{"bottom view"}},
		{ViewFront, []string{"front view"}},
		{ViewBack, []string{"back view"}},
		{ViewLeft, []string{"left view", "left side"}},
		{ViewRight, []string{"right view", "right side"}},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			got := InstructionFor(tt.kind)
			for _, w := range tt.want {
				if !strings.Contains(got, w) {
					t.Errorf("instruction %q missing %q", got, w)
				}
			}
			if !strings.Contains(got, "no text") {
				t.Errorf("instruction %q should forbid text in the image", got)
			}
		})
	}

	if got := InstructionFor("isometric"); got != "" {
		t.Errorf("unknown kind instruction = %q, want empty", got)
	}
}

func TestParseViewKind(t *testing.T) {
	tests := []struct {
		in    string
		want  ViewKind
		valid bool
	}{
		{"top", ViewTop, true},
		{" Front ", ViewFront, true},
		{"BACKGROUND-REMOVED", ViewBackgroundRemoved, true},
		{"isometric", "isometric", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := ParseViewKind(tt.in)
		if got != tt.want || ok != tt.valid {
			t.Errorf("ParseViewKind(%q) = (%q, %v), want (%q, %v)", tt.in, got, ok, tt.want, tt.valid)
		}
	}
}

func TestViewKindLabel(t *testing.T) {
	if got := ViewFront.Label(); got != "主視圖" {
		t.Errorf("front label = %q", got)
	}
	if got := ViewKind("isometric").Label(); got != "isometric" {
		t.Errorf("unknown kind label = %q, want the kind itself", got)
	}
}

func TestViewResultSet(t *testing.T) {
	set := ViewResultSet{
		{Kind: ViewBackgroundRemoved, ImageDataURI: "data:image/png;base64,AA=="},
		{Kind: ViewLeft, ImageDataURI: "data:image/png;base64,AQ=="},
	}

	if v, ok := set.Get(ViewLeft); !ok || v.ImageDataURI != "data:image/png;base64,AQ==" {
		t.Errorf("Get(left) = %+v, %v", v, ok)
	}
	if _, ok := set.Get(ViewTop); ok {
		t.Error("Get(top) should miss")
	}
	kinds := set.Kinds()
	if len(kinds) != 2 || kinds[0] != ViewBackgroundRemoved || kinds[1] != ViewLeft {
		t.Errorf("Kinds() = %v", kinds)
	}
}
