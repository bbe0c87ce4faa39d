package utils

import (
	"bytes"
	"strings"
	"testing"
)

func TestLoggerDefaultLevelSkipsDebug(t *testing.T) {
	buf := &bytes.Buffer{}
	l := NewLoggerWithOptions(LoggerOptions{Output: buf})

	l.Debug("[test] hidden %d", 1)
	if buf.Len() != 0 {
		t.Errorf("debug message should not be logged at info level, got %q", buf.String())
	}

	l.Info("[test] shown %d", 2)
	if !strings.Contains(buf.String(), "[test] shown 2") {
		t.Errorf("info message missing from output: %q", buf.String())
	}
}

func TestLoggerDebugLevel(t *testing.T) {
	buf := &bytes.Buffer{}
	l := NewLoggerWithOptions(LoggerOptions{Output: buf, Level: "debug"})

	l.Debug("[test] value=%q", "x")
	if !strings.Contains(buf.String(), `value=`) {
		t.Errorf("debug message missing from output: %q", buf.String())
	}
}

func TestLoggerJSON(t *testing.T) {
	buf := &bytes.Buffer{}
	l := NewLoggerWithOptions(LoggerOptions{Output: buf, JSON: true})

	l.With("component", "parser").Warn("[test] careful")
	out := buf.String()
	if !strings.Contains(out, `"level":"WARN"`) {
		t.Errorf("expected JSON level field, got %q", out)
	}
	if !strings.Contains(out, `"component":"parser"`) {
		t.Errorf("expected component attribute, got %q", out)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"debug", "DEBUG"},
		{" WARNING ", "WARN"},
		{"error", "ERROR"},
		{"", "INFO"},
		{"verbose", "INFO"},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in).String(); got != tt.want {
			t.Errorf("ParseLevel(%q) = %s; want %s", tt.in, got, tt.want)
		}
	}
}

func TestNilLoggerIsSafe(t *testing.T) {
	var l *Logger
	l.Info("nothing happens")
}
