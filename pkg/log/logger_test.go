package log

import (
	"bytes"
	"os"
	"strings"
	"testing"
)

func TestLoggerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	SetSink(&buf)
	defer SetSink(os.Stderr)

	logger := New("quads")
	SetLevel(Notice)
	logger.Debugf("hidden %d", 1)
	logger.Noticef("visible %d", 2)

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("Debug message emitted at notice level: %q", out)
	}
	if !strings.Contains(out, "visible 2") || !strings.Contains(out, "[quads]") {
		t.Errorf("Expected notice message with module name, got %q", out)
	}

	buf.Reset()
	SetLevel(Debug)
	logger.Debugf("now shown")
	if !strings.Contains(buf.String(), "now shown") {
		t.Errorf("Expected debug message after SetLevel(Debug), got %q", buf.String())
	}
	SetLevel(Notice)
}

func TestModuleLevel(t *testing.T) {
	var buf bytes.Buffer
	SetSink(&buf)
	defer SetSink(os.Stderr)

	SetLevel(Notice)
	SetModuleLevel("verbose-module", Debug)
	New("verbose-module").Debug("module debug")
	New("quiet-module").Debug("quiet debug")

	out := buf.String()
	if !strings.Contains(out, "module debug") {
		t.Errorf("Expected module-level debug output, got %q", out)
	}
	if strings.Contains(out, "quiet debug") {
		t.Errorf("Unexpected debug output from quiet module: %q", out)
	}
}

func TestSetModuleLevels(t *testing.T) {
	tests := []struct {
		name    string
		levels  string
		visible []string
		hidden  []string
		wantErr bool
	}{
		{"empty", "", nil, []string{"alpha", "beta"}, false},
		{"single module", "alpha=debug", []string{"alpha"}, []string{"beta"}, false},
		{"two modules", "alpha=debug, beta=DEBUG", []string{"alpha", "beta"}, nil, false},
		{"raised level", "alpha=error", nil, []string{"alpha", "beta"}, false},
		{"missing level", "alpha", nil, []string{"alpha"}, true},
		{"unknown level", "alpha=loud", nil, []string{"alpha"}, true},
		{"invalid pair keeps valid ones unset", "alpha=debug,beta=loud", nil, []string{"alpha", "beta"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			SetSink(&buf)
			defer SetSink(os.Stderr)

			err := SetModuleLevels(tt.levels)
			if (err != nil) != tt.wantErr {
				t.Fatalf("SetModuleLevels(%q) error = %v", tt.levels, err)
			}
			for _, module := range append(tt.visible, tt.hidden...) {
				New(module).Debugf("debug from %s", module)
			}

			out := buf.String()
			for _, module := range tt.visible {
				if !strings.Contains(out, "debug from "+module) {
					t.Errorf("Expected debug output from %s, got %q", module, out)
				}
			}
			for _, module := range tt.hidden {
				if strings.Contains(out, "debug from "+module) {
					t.Errorf("Unexpected debug output from %s: %q", module, out)
				}
			}
		})
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name    string
		want    Level
		wantErr bool
	}{
		{"debug", Debug, false},
		{"Info", Info, false},
		{"notice", Notice, false},
		{"warn", Warning, false},
		{"error", Error, false},
		{"verbose", Notice, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseLevel(tt.name)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLevel(%q) error = %v", tt.name, err)
			}
			if got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.name, got, tt.want)
			}
		})
	}
}
