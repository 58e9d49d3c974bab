package theme

import (
	"testing"

	"github.com/classdeck/classdeck/internal/document"
)

// TestDerive_ExplicitModes verifies light and dark settings resolve
// without consulting the terminal.
func TestDerive_ExplicitModes(t *testing.T) {
	s := document.DefaultSettings()

	s.Theme = "dark"
	if got := Derive(s); !got.Dark {
		t.Error("theme=dark must resolve dark")
	}

	s.Theme = "light"
	if got := Derive(s); got.Dark {
		t.Error("theme=light must resolve light")
	}
}

// TestDerive_AccentFallback verifies an empty accent color falls back to
// the settings default.
func TestDerive_AccentFallback(t *testing.T) {
	s := document.DefaultSettings()
	s.AccentColor = ""

	got := Derive(s)
	if got.Accent != document.DefaultSettings().AccentColor {
		t.Errorf("expected default accent, got %q", got.Accent)
	}
}

// TestDerive_AccentApplied verifies a configured accent carries through.
func TestDerive_AccentApplied(t *testing.T) {
	s := document.DefaultSettings()
	s.AccentColor = "#ff0000"

	if got := Derive(s); got.Accent != "#ff0000" {
		t.Errorf("expected configured accent, got %q", got.Accent)
	}
}
