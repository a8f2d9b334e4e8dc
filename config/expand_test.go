package config

import (
	"errors"
	"strings"
	"testing"
)

func TestExpandEnvStrict(t *testing.T) {
	lookup := env(map[string]string{"X": "y", "EMPTY": ""})
	tests := []struct {
		in, want string
	}{
		{"plain", "plain"},
		{"${X}/z", "y/z"},
		{"$X/z", "y/z"},
		{"$$${X}", "$y"},
		{"a${EMPTY}b", "ab"},
		{"$UNSET_BARE", ""},
	}
	for _, tt := range tests {
		got, err := ExpandEnvStrict(tt.in, lookup)
		if err != nil {
			t.Errorf("ExpandEnvStrict(%q) error = %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ExpandEnvStrict(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

// TestExpandEnvStrict_MissingVarErrors verifies every missing name is reported.
func TestExpandEnvStrict_MissingVarErrors(t *testing.T) {
	_, err := ExpandEnvStrict("a=${X} b=${MISSING} c=${ALSO}", env(map[string]string{"X": "ok"}))
	if !errors.Is(err, ErrMissingEnv) {
		t.Fatalf("error = %v, want ErrMissingEnv", err)
	}
	if !strings.Contains(err.Error(), "ALSO, MISSING") {
		t.Errorf("error = %v, want sorted missing names", err)
	}
}

func TestExpandEnvStrict_ProcessEnv(t *testing.T) {
	t.Setenv("EVALCACHE_TEST_DIR", "/tmp/x")
	got, err := ExpandEnvStrict("${EVALCACHE_TEST_DIR}/db", nil)
	if err != nil || got != "/tmp/x/db" {
		t.Errorf("ExpandEnvStrict() = %q, %v", got, err)
	}
}
