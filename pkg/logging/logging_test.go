package logging

import (
	"log/slog"
	"testing"
)

var _ Logger = (*slog.Logger)(nil)

func TestOrNopFallsBack(t *testing.T) {
	if OrNop(nil) == nil {
		t.Fatalf("expected nop logger for nil input")
	}
	capture := &CaptureLogger{}
	if OrNop(capture) != Logger(capture) {
		t.Fatalf("expected capture logger returned unchanged")
	}
}

func TestCaptureLoggerRendersArgs(t *testing.T) {
	capture := &CaptureLogger{}
	capture.Warn("stale overrides removed", "domain", "feature-flags", "ids", []string{"dark-mode"})
	capture.Info("ignored")

	if !capture.Contains("warn", "ids=[dark-mode]") {
		t.Fatalf("expected rendered ids, got %v", capture.Entries())
	}
	if capture.Contains("warn", "ignored") {
		t.Fatalf("info entry leaked into warn level")
	}
	capture.Reset()
	if len(capture.Entries()) != 0 {
		t.Fatalf("expected reset to drop entries")
	}
}
