// Package token converts device push tokens between wire bytes and hex strings
package token

import (
	"encoding/hex"
	"fmt"
	"strings"
	"unicode"

	"notification-bridge/internal/bridgeerr"
)

const previewLength = 16

// Decode converts a hex-encoded device token into its wire bytes.
// Whitespace and the angle brackets of the platform's description format
// ("<1a2b 3c4d>") are stripped first.
func Decode(s string) ([]byte, error) {
	cleaned := strip(s)
	if cleaned == "" {
		return nil, fmt.Errorf("empty token: %w", bridgeerr.ErrInvalidTokenFormat)
	}
	if len(cleaned)%2 != 0 {
		return nil, fmt.Errorf("odd token length %d: %w", len(cleaned), bridgeerr.ErrInvalidTokenFormat)
	}

	data, err := hex.DecodeString(cleaned)
	if err != nil {
		return nil, fmt.Errorf("%v: %w", err, bridgeerr.ErrInvalidTokenFormat)
	}
	return data, nil
}

// Encode renders token bytes as lower-case hex with no separators
func Encode(data []byte) string {
	return hex.EncodeToString(data)
}

// Normalize returns the canonical form of a hex token
func Normalize(s string) (string, error) {
	data, err := Decode(s)
	if err != nil {
		return "", err
	}
	return Encode(data), nil
}

// Preview shortens a token for logs and debug records
func Preview(s string) string {
	if len(s) <= previewLength {
		return s
	}
	return s[:previewLength] + "..."
}

func strip(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) || r == '<' || r == '>' {
			return -1
		}
		return r
	}, s)
}
