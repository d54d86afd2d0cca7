package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
)

func TestConfigErrorMessage(t *testing.T) {
	err := &ConfigError{
		Field:   "comparator.margin",
		Message: "must be in (0, 1)",
	}
	expected := "config error in comparator.margin: must be in (0, 1)"
	if err.Error() != expected {
		t.Errorf("Error() = %q, want %q", err.Error(), expected)
	}

	bare := NewConfigError("", "failed to load config")
	if bare.Error() != "config error: failed to load config" {
		t.Errorf("Error() = %q", bare.Error())
	}
}

func TestCommandErrorUnwrap(t *testing.T) {
	underlying := errors.New("store locked")
	err := NewCommandError("check", underlying)

	expected := "command check failed: store locked"
	if err.Error() != expected {
		t.Errorf("Error() = %q, want %q", err.Error(), expected)
	}
	if !errors.Is(err, underlying) {
		t.Error("errors.Is() should see the cause through Unwrap()")
	}
}

func TestJSONFormatter(t *testing.T) {
	var buf bytes.Buffer
	f := NewFormatter(FormatJSON)
	if err := f.FormatTo(&buf, map[string]int{"services": 3}); err != nil {
		t.Fatalf("FormatTo() error: %v", err)
	}

	var decoded map[string]int
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if decoded["services"] != 3 {
		t.Errorf("decoded = %v", decoded)
	}
}

func TestTextFormatterIsDefault(t *testing.T) {
	if _, ok := NewFormatter("csv").(*TextFormatter); !ok {
		t.Error("unknown format should fall back to text")
	}

	var buf bytes.Buffer
	if err := NewFormatter(FormatText).FormatTo(&buf, "ok"); err != nil {
		t.Fatalf("FormatTo() error: %v", err)
	}
	if buf.String() != "ok\n" {
		t.Errorf("output = %q", buf.String())
	}
}
