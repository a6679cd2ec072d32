package metrics

import (
	"bytes"
	"encoding/json"
	"io"
	"testing"
	"time"
)

// captureOutput redirects flushed documents into a buffer for the test's duration.
func captureOutput(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := SetOutput(&buf)
	t.Cleanup(func() { SetOutput(prev) })
	return &buf
}

func TestNew_AutoDimension(t *testing.T) {
	initOnce.Do(func() {})
	functionName = "orthoview-lambda"
	t.Cleanup(func() { functionName = "" })

	r := New(Namespace)
	if r.namespace != "OrthoView" {
		t.Errorf("expected namespace OrthoView, got %s", r.namespace)
	}
	if r.dimensions["FunctionName"] != "orthoview-lambda" {
		t.Errorf("expected FunctionName dimension orthoview-lambda, got %s", r.dimensions["FunctionName"])
	}
}

func TestRecorder_FlushOutput(t *testing.T) {
	buf := captureOutput(t)
	functionName = ""

	New(Namespace).
		Dimension("Model", "gemini-2.5-flash-image-preview").
		Metric("ViewsGenerated", 5, UnitCount).
		Duration("PipelineMs", 1500*time.Millisecond).
		Property("runId", "views-abc").
		Flush()

	var doc map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatalf("failed to parse EMF output as JSON: %v\nOutput: %s", err, buf.String())
	}

	awsMap, ok := doc["_aws"].(map[string]interface{})
	if !ok {
		t.Fatal("missing _aws directive in EMF output")
	}
	if _, ok := awsMap["Timestamp"]; !ok {
		t.Error("missing Timestamp in _aws directive")
	}

	cwArr, ok := awsMap["CloudWatchMetrics"].([]interface{})
	if !ok || len(cwArr) == 0 {
		t.Fatal("CloudWatchMetrics should be a non-empty array")
	}
	cw := cwArr[0].(map[string]interface{})
	if cw["Namespace"] != "OrthoView" {
		t.Errorf("expected namespace OrthoView, got %v", cw["Namespace"])
	}

	metricsArr := cw["Metrics"].([]interface{})
	if len(metricsArr) != 2 {
		t.Fatalf("expected 2 metric definitions, got %d", len(metricsArr))
	}
	if first := metricsArr[0].(map[string]interface{}); first["Name"] != "PipelineMs" {
		t.Errorf("metric definitions should be sorted, first = %v", first["Name"])
	}

	if doc["Model"] != "gemini-2.5-flash-image-preview" {
		t.Errorf("expected Model dimension, got %v", doc["Model"])
	}
	if doc["ViewsGenerated"] != float64(5) {
		t.Errorf("expected ViewsGenerated=5, got %v", doc["ViewsGenerated"])
	}
	if doc["PipelineMs"] != float64(1500) {
		t.Errorf("expected PipelineMs=1500, got %v", doc["PipelineMs"])
	}
	if doc["runId"] != "views-abc" {
		t.Errorf("expected runId property, got %v", doc["runId"])
	}
}

func TestRecorder_FlushEmpty(t *testing.T) {
	buf := captureOutput(t)

	New("Test").Flush()

	if buf.Len() != 0 {
		t.Errorf("expected no output for empty recorder, got: %s", buf.String())
	}
}

func TestRecorder_Count(t *testing.T) {
	functionName = ""
	rec := New("Test")
	rec.Count("ViewFailures")

	if v, ok := rec.values["ViewFailures"]; !ok || v != float64(1) {
		t.Errorf("expected ViewFailures=1, got %v", v)
	}
	if m, ok := rec.metrics["ViewFailures"]; !ok || m.Unit != UnitCount {
		t.Errorf("expected unit Count, got %v", m.Unit)
	}
}

func TestSetOutputDiscard(t *testing.T) {
	prev := SetOutput(io.Discard)
	defer SetOutput(prev)

	// Must not panic or write anywhere observable.
	New("Test").Count("Calls").Flush()
}
