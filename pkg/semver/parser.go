// Package semver provides action reference parsing and server version range checks.
package semver

import (
	"fmt"
	"regexp"
	"strings"

	masterminds "github.com/Masterminds/semver/v3"
)

const logPrefix = "semver:parser"

// ParsedActionRef holds the parsed components of an action reference string.
type ParsedActionRef struct {
	// Action name (e.g., "package_show")
	Name string
	// Version part as written (e.g., "2", "v2", "2.0.0"); empty string means no version
	Range string
	// API version extracted from Range; -1 when no version was given
	Major int
	// Raw input string
	Raw string
}

var majorOnlyRegex = regexp.MustCompile(`^v?\d+$`)

// ParseActionRef parses an action reference string.
//
// Supported formats:
//   - package_show           (no version)
//   - package_show@2         (API version)
//   - package_show@v2        (API version, prefixed)
//   - package_show@2.0.0     (full version, only the major is used)
//
// The name itself is never validated. A suffix after the last "@" that is not
// a version belongs to the name, so "user@example.org" is a plain name.
func ParseActionRef(input string) (*ParsedActionRef, error) {
	raw := strings.TrimSpace(input)
	if raw == "" {
		return nil, fmt.Errorf("%s - invalid action reference, missing name: %q", logPrefix, input)
	}

	ref := &ParsedActionRef{Name: raw, Major: -1, Raw: raw}
	atIndex := strings.LastIndex(raw, "@")
	if atIndex == -1 {
		return ref, nil
	}

	rangeStr := raw[atIndex+1:]
	v, err := masterminds.NewVersion(rangeStr)
	if rangeStr == "" || err != nil {
		return ref, nil
	}
	if atIndex == 0 {
		return nil, fmt.Errorf("%s - invalid action reference, missing name: %q", logPrefix, input)
	}

	ref.Name = raw[:atIndex]
	ref.Range = rangeStr
	ref.Major = int(v.Major())
	return ref, nil
}

// IsMajorOnly checks if a range is a major-only specifier (e.g., "3" or "v3").
func IsMajorOnly(rangeStr string) bool {
	return majorOnlyRegex.MatchString(rangeStr)
}

// ExtractMajorFromRange extracts the major version if the range is major-only.
// Returns -1 if not a major-only range.
func ExtractMajorFromRange(rangeStr string) int {
	if !IsMajorOnly(rangeStr) {
		return -1
	}
	var major int
	fmt.Sscanf(strings.TrimPrefix(rangeStr, "v"), "%d", &major)
	return major
}

// BuildActionRef builds an action reference string from parts. A negative version omits the suffix.
func BuildActionRef(name string, version int) string {
	if version < 0 {
		return name
	}
	return fmt.Sprintf("%s@%d", name, version)
}
