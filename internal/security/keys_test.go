package security

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadSecret_Inline(t *testing.T) {
	secret := strings.Repeat("k", MinSecretBytes)
	b, err := LoadSecret("  " + secret + " ")
	if err != nil {
		t.Fatalf("LoadSecret: %v", err)
	}
	if string(b) != secret {
		t.Errorf("LoadSecret = %q, want %q", b, secret)
	}
}

func TestLoadSecret_FilePath(t *testing.T) {
	secret := strings.Repeat("f", MinSecretBytes+8)
	path := filepath.Join(t.TempDir(), "access.key")
	if err := os.WriteFile(path, []byte(secret+"\n"), 0600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	b, err := LoadSecret("file:" + path)
	if err != nil {
		t.Fatalf("LoadSecret: %v", err)
	}
	if string(b) != secret {
		t.Errorf("LoadSecret did not trim trailing newline: %q", b)
	}
}

func TestLoadSecret_Invalid(t *testing.T) {
	testCases := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"whitespace only", "   "},
		{"too short", "short-secret"},
		{"missing file", "file:/nonexistent/secret.key"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := LoadSecret(tc.input); err == nil {
				t.Errorf("LoadSecret(%q): want error, got nil", tc.input)
			}
		})
	}
}
