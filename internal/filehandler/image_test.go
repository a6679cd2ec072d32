package filehandler

import "testing"

func TestDescribeImage(t *testing.T) {
	info, err := DescribeImage(redSquarePNG(t, 10))
	if err != nil {
		t.Fatalf("DescribeImage: %v", err)
	}
	if info.Format != "png" {
		t.Errorf("Format = %q, want png", info.Format)
	}
	if info.Width != 10 || info.Height != 10 {
		t.Errorf("dimensions = %dx%d, want 10x10", info.Width, info.Height)
	}
}

func TestDescribeImageRejectsGarbage(t *testing.T) {
	if _, err := DescribeImage([]byte("not an image")); err == nil {
		t.Error("expected error for non-image bytes")
	}
}
