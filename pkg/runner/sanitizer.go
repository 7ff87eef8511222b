package runner

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	// DefaultMaxInputSize is 4KB (conservative default)
	DefaultMaxInputSize = 4096
	// EnvMaxInputSize is the environment variable overriding the default
	EnvMaxInputSize = "WEBFLOW_MAX_INPUT_SIZE"
)

var (
	ErrInputTooLarge = errors.New("input exceeds maximum allowed size")
	ErrInvalidUTF8   = errors.New("input contains invalid UTF-8 sequences")
)

// SanitizeLine cleans one console line before it becomes request parameters.
// Lines longer than limit are rejected rather than truncated, and control characters
// other than tab are dropped so they cannot reach logs or the terminal.
func SanitizeLine(line string, limit int) (string, error) {
	if limit <= 0 {
		limit = MaxInputSize()
	}
	if len(line) > limit {
		return "", fmt.Errorf("%w: size=%d limit=%d", ErrInputTooLarge, len(line), limit)
	}
	if !utf8.ValidString(line) {
		return "", ErrInvalidUTF8
	}
	line = strings.TrimRight(line, "\r\n")
	return strings.Map(func(r rune) rune {
		if unicode.IsControl(r) && r != '\t' {
			return -1
		}
		return r
	}, line), nil
}

// MaxInputSize returns the limit from EnvMaxInputSize, or DefaultMaxInputSize.
func MaxInputSize() int {
	if val := os.Getenv(EnvMaxInputSize); val != "" {
		if size, err := strconv.Atoi(val); err == nil && size > 0 {
			return size
		}
	}
	return DefaultMaxInputSize
}

// ParseCommand splits a sanitized line into request parameters. The first word not
// containing "=" is the event id; every "name=value" word is a parameter.
func ParseCommand(line string) map[string]string {
	params := make(map[string]string)
	for _, word := range strings.Fields(line) {
		if name, value, ok := strings.Cut(word, "="); ok {
			if name != "" {
				params[name] = value
			}
			continue
		}
		if _, set := params[EventParameter]; !set {
			params[EventParameter] = word
		}
	}
	return params
}
