// ABOUTME: Dot-segment subscription patterns with single and trailing wildcards
// ABOUTME: '*' matches exactly one segment, a final '**' matches the rest

package events

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidPattern is returned for malformed subscription patterns.
var ErrInvalidPattern = errors.New("invalid event pattern")

const (
	wildcardOne  = "*"
	wildcardRest = "**"
)

// pattern is a parsed subscription pattern.
type pattern []string

func parsePattern(s string) (pattern, error) {
	if s == "" {
		return nil, fmt.Errorf("%w: empty pattern", ErrInvalidPattern)
	}
	segs := strings.Split(s, ".")
	for i, seg := range segs {
		switch {
		case seg == "":
			return nil, fmt.Errorf("%w: empty segment in %q", ErrInvalidPattern, s)
		case seg == wildcardRest && i != len(segs)-1:
			return nil, fmt.Errorf("%w: %q must be the last segment in %q", ErrInvalidPattern, wildcardRest, s)
		}
	}
	return pattern(segs), nil
}

// ValidatePattern returns an ErrInvalidPattern error when s is malformed.
func ValidatePattern(s string) error {
	_, err := parsePattern(s)
	return err
}

// Match reports whether path matches the pattern s. Malformed patterns
// match nothing.
func Match(s, path string) bool {
	p, err := parsePattern(s)
	if err != nil {
		return false
	}
	return p.match(path)
}

func (p pattern) match(path string) bool {
	segs := strings.Split(path, ".")
	for i, want := range p {
		if want == wildcardRest {
			return len(segs) > i
		}
		if i >= len(segs) {
			return false
		}
		if want != wildcardOne && want != segs[i] {
			return false
		}
	}
	return len(segs) == len(p)
}
