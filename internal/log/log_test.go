// ABOUTME: Tests for the leveled logging wrapper
// ABOUTME: Verifies level filtering and output capture

package log

import (
	"bytes"
	"os"
	"strings"
	"testing"
)

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(os.Stderr)

	SetLevel(LevelInfo)
	defer SetLevel(LevelInfo)

	Debug("hidden %d", 1)
	Info("visible %d", 2)

	got := buf.String()
	if strings.Contains(got, "hidden") {
		t.Errorf("debug message leaked at info level: %q", got)
	}
	if !strings.Contains(got, "[INFO] visible 2") {
		t.Errorf("info message missing: %q", got)
	}
}

func TestErrorAlwaysEmitted(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(os.Stderr)

	SetLevel(LevelError)
	defer SetLevel(LevelInfo)

	Error("boom: %s", "pipe")
	if !strings.Contains(buf.String(), "[ERROR] boom: pipe") {
		t.Errorf("error message missing: %q", buf.String())
	}
}

func TestSetLevelRoundTrip(t *testing.T) {
	SetLevel(LevelDebug)
	defer SetLevel(LevelInfo)
	if GetLevel() != LevelDebug {
		t.Errorf("GetLevel = %v, want debug", GetLevel())
	}
}
