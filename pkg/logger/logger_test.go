package logger

import (
	"errors"
	"path/filepath"
	"testing"
)

func TestNew(t *testing.T) {
	log, err := New(&Config{Level: "debug"})
	if err != nil {
		t.Fatalf("Failed to create logger: %v", err)
	}
	if log == nil {
		t.Fatal("Expected logger, got nil")
	}
	if log.GetZerolog() == nil {
		t.Error("Expected underlying zerolog instance")
	}
}

func TestNewInvalidLevel(t *testing.T) {
	if _, err := New(&Config{Level: "chatty"}); err == nil {
		t.Error("Expected error for invalid level")
	}
}

func TestNewFileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "jirasync.log")
	log, err := New(&Config{Level: "info", File: path})
	if err != nil {
		t.Fatalf("Failed to create file logger: %v", err)
	}

	log.Info("hello")
}

func TestParseLogLevel(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "warning", "error", "fatal", "disabled", "INFO"} {
		if _, err := parseLogLevel(level); err != nil {
			t.Errorf("Level %q should parse: %v", level, err)
		}
	}
	if _, err := parseLogLevel("nope"); err == nil {
		t.Error("Expected error for unknown level")
	}
}

func TestGetLoggerLazyDefault(t *testing.T) {
	globalLogger = nil
	if GetLogger() == nil {
		t.Error("GetLogger should lazily create a default logger")
	}
}

func TestTestLoggerCapture(t *testing.T) {
	log := NewTestLogger()

	log.Info("plain message")
	log.WarnWithFields("with fields", map[string]interface{}{"key": "PROJ-1"})
	log.WithError(errors.New("boom")).Error("with error")
	log.WithField("page", 3).Debug("context field")

	if !log.HasMessage("plain message") {
		t.Error("Expected captured message")
	}

	warns := log.GetMessagesByLevel("WARN")
	if len(warns) != 1 || warns[0].Fields["key"] != "PROJ-1" {
		t.Errorf("Unexpected warn capture: %+v", warns)
	}

	errs := log.GetMessagesByLevel("ERROR")
	if len(errs) != 1 || errs[0].Error == nil {
		t.Errorf("Expected error context captured: %+v", errs)
	}

	debugs := log.GetMessagesByLevel("DEBUG")
	if len(debugs) != 1 || debugs[0].Fields["page"] != 3 {
		t.Errorf("Expected field context captured: %+v", debugs)
	}

	log.Clear()
	if len(log.GetMessages()) != 0 {
		t.Error("Clear should drop captured messages")
	}
}
