package semver

import (
	"fmt"
	"regexp"

	masterminds "github.com/Masterminds/semver/v3"
)

const resolverLogPrefix = "semver:resolver"

// looseVersionRegex splits versions such as "2.11.0a" or "2.10" into numeric core and suffix.
var looseVersionRegex = regexp.MustCompile(`^v?(\d+(?:\.\d+){0,2})(.*)$`)

// CoerceVersion parses a server-reported version string. Non-semver suffixes
// ("2.11.0a", "2.9.0b1") are turned into prerelease tags.
func CoerceVersion(version string) (*masterminds.Version, error) {
	if v, err := masterminds.NewVersion(version); err == nil {
		return v, nil
	}

	m := looseVersionRegex.FindStringSubmatch(version)
	if m == nil {
		return nil, fmt.Errorf("%s - unparseable version %q", resolverLogPrefix, version)
	}
	core, suffix := m[1], m[2]
	if suffix != "" && suffix[0] != '-' && suffix[0] != '+' {
		suffix = "-" + suffix
	}
	v, err := masterminds.NewVersion(core + suffix)
	if err != nil {
		return nil, fmt.Errorf("%s - unparseable version %q: %w", resolverLogPrefix, version, err)
	}
	return v, nil
}

// SatisfiesRange checks if a version string satisfies a range.
func SatisfiesRange(version, rangeStr string) bool {
	sv, err := CoerceVersion(version)
	if err != nil {
		return false
	}

	if IsMajorOnly(rangeStr) {
		return int(sv.Major()) == ExtractMajorFromRange(rangeStr)
	}

	constraint, err := masterminds.NewConstraint(rangeStr)
	if err != nil {
		return false
	}

	// Prerelease server builds are compared on their release core.
	if sv.Prerelease() != "" {
		released := masterminds.New(sv.Major(), sv.Minor(), sv.Patch(), "", "")
		return constraint.Check(released)
	}
	return constraint.Check(sv)
}
