package security

import (
	"bytes"
	"errors"
	"os"
	"strings"
)

// ErrInvalidKey is returned when a signing secret is missing or too short.
var ErrInvalidKey = errors.New("invalid key")

// MinSecretBytes is the minimum HMAC secret length accepted for signing.
const MinSecretBytes = 32

const filePrefix = "file:"

// LoadSecret returns the signing secret for s. A value of the form "file:/path" is read from disk
// (trailing newline trimmed); anything else is used inline.
func LoadSecret(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, ErrInvalidKey
	}
	var b []byte
	if strings.HasPrefix(s, filePrefix) {
		raw, err := os.ReadFile(strings.TrimPrefix(s, filePrefix))
		if err != nil {
			return nil, err
		}
		b = bytes.TrimRight(raw, "\r\n")
	} else {
		b = []byte(s)
	}
	if len(b) < MinSecretBytes {
		return nil, ErrInvalidKey
	}
	return b, nil
}
