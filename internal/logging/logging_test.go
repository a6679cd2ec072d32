package logging

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]zerolog.Level{
		"debug":   zerolog.DebugLevel,
		"WARN":    zerolog.WarnLevel,
		" error ": zerolog.ErrorLevel,
		"info":    zerolog.InfoLevel,
		"":        zerolog.InfoLevel,
		"verbose": zerolog.InfoLevel,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestUseJSON(t *testing.T) {
	tests := []struct {
		name   string
		format string
		lambda string
		want   bool
	}{
		{"local default", "", "", false},
		{"lambda default", "", "orthoview-lambda", true},
		{"forced json", "json", "", true},
		{"forced console in lambda", "console", "orthoview-lambda", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(FormatEnv, tt.format)
			t.Setenv("AWS_LAMBDA_FUNCTION_NAME", tt.lambda)
			if got := useJSON(); got != tt.want {
				t.Errorf("useJSON() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEnvOrDefault(t *testing.T) {
	t.Setenv("ORTHOVIEW_TEST_VAR", "")
	if got := EnvOrDefault("ORTHOVIEW_TEST_VAR", "fallback"); got != "fallback" {
		t.Errorf("got %q, want fallback", got)
	}
	t.Setenv("ORTHOVIEW_TEST_VAR", "set")
	if got := EnvOrDefault("ORTHOVIEW_TEST_VAR", "fallback"); got != "set" {
		t.Errorf("got %q, want set", got)
	}
}

func TestStartupLoggerEvent(t *testing.T) {
	t.Setenv("AWS_LAMBDA_FUNCTION_NAME", "orthoview-lambda")
	t.Setenv("AWS_REGION", "us-west-2")

	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	s := NewStartupLogger("orthoview-lambda").
		CommitHash("abc123").
		SSMParam("geminiApiKey", "/orthoview/prod/gemini-api-key").
		Feature("zip", true).
		Config("model", "gemini-2.5-flash-image-preview").
		InitDuration(150 * time.Millisecond)
	s.event(logger.Info()).Msg("Startup complete")

	var got map[string]any
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("invalid JSON log line %q: %v", buf.String(), err)
	}

	build, _ := got["build"].(map[string]any)
	if build["name"] != "orthoview-lambda" || build["commitHash"] != "abc123" {
		t.Errorf("build = %v", build)
	}
	lambda, _ := got["lambda"].(map[string]any)
	if lambda["region"] != "us-west-2" {
		t.Errorf("lambda = %v", lambda)
	}
	ssm, _ := got["ssmParams"].(map[string]any)
	if ssm["geminiApiKey"] != "/orthoview/prod/gemini-api-key" {
		t.Errorf("ssmParams = %v", ssm)
	}
	features, _ := got["features"].(map[string]any)
	if features["zip"] != true {
		t.Errorf("features = %v", features)
	}
	if _, ok := got["initDuration"]; !ok {
		t.Error("initDuration missing")
	}
}

func TestStartupLoggerOmitsLambdaOutsideLambda(t *testing.T) {
	t.Setenv("AWS_LAMBDA_FUNCTION_NAME", "")

	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	NewStartupLogger("orthoview-web").event(logger.Info()).Msg("Startup complete")

	var got map[string]any
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if _, ok := got["lambda"]; ok {
		t.Error("lambda identity should be omitted outside Lambda")
	}
	if _, ok := got["config"]; ok {
		t.Error("empty config should be omitted")
	}
}
