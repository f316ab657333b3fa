package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skipf("no home directory: %v", err)
	}

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"absolute", "/var/lib/triage.db", "/var/lib/triage.db"},
		{"tilde prefix", "~/triage.db", filepath.Join(home, "triage.db")},
		{"bare tilde", "~", home},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExpandPath(tt.in); got != tt.want {
				t.Errorf("ExpandPath(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestExpandPathEnvironment(t *testing.T) {
	t.Setenv("TRIAGE_TEST_DIR", "/data")

	got := ExpandPath("$TRIAGE_TEST_DIR/triage.db")
	if got != "/data/triage.db" {
		t.Errorf("ExpandPath() = %q, want /data/triage.db", got)
	}
}
