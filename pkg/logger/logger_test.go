package logger

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestInitConfiguresGlobalLogger(t *testing.T) {
	t.Cleanup(func() {
		Replace(nil)
	})

	if err := Init("debug"); err != nil {
		t.Fatalf("Init returned error: %v", err)
	}

	logger := Logger()
	if logger == nil {
		t.Fatal("expected Logger to return non-nil logger")
	}
	if !logger.Core().Enabled(zap.DebugLevel) {
		t.Fatal("expected logger to enable debug level")
	}
}

func TestInitFallsBackToInfoOnUnknownLevel(t *testing.T) {
	t.Cleanup(func() {
		Replace(nil)
	})

	if err := InitWithOptions(Options{Level: "chatty", Encoding: "console"}); err != nil {
		t.Fatalf("InitWithOptions returned error: %v", err)
	}

	logger := Logger()
	if logger.Core().Enabled(zap.DebugLevel) {
		t.Fatal("expected debug to be disabled for unknown level")
	}
	if !logger.Core().Enabled(zap.InfoLevel) {
		t.Fatal("expected info level to be enabled")
	}
}

func TestLoggingHelpersEmitEntries(t *testing.T) {
	core, recorded := observer.New(zap.DebugLevel)
	t.Cleanup(func() {
		Replace(nil)
	})
	Replace(zap.New(core))

	Info("info message", zap.String("k", "v"))
	Error("error message")
	Warn("warn message")
	Debug("debug message")

	if recorded.Len() != 4 {
		t.Fatalf("expected 4 log entries, got %d", recorded.Len())
	}

	messages := recorded.All()
	want := []string{"info message", "error message", "warn message", "debug message"}
	for i, entry := range messages {
		if entry.Message != want[i] {
			t.Fatalf("entry %d message = %q, want %q", i, entry.Message, want[i])
		}
	}
	if field := messages[0].ContextMap()["k"]; field != "v" {
		t.Fatalf("expected field \"k\" to equal \"v\", got %v", field)
	}
}

func TestWithModuleAttachesModuleField(t *testing.T) {
	core, recorded := observer.New(zap.InfoLevel)
	t.Cleanup(func() {
		Replace(nil)
	})
	Replace(zap.New(core))

	logger := WithModule("permissions")
	logger.Info("module test")

	entries := recorded.All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if module := entries[0].ContextMap()["module"]; module != "permissions" {
		t.Fatalf("expected module field to be \"permissions\", got %v", module)
	}
}
