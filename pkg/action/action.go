// Package action identifies remote procedures by name and API version.
package action

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/morezero/ckan-portal/pkg/semver"
)

// DefaultVersion is the API version used when none is set.
const DefaultVersion = 3

var pathPattern = regexp.MustCompile(`api/(\d+)/action/(.*)$`)

// Action is a named, versioned remote procedure. The name is immutable; the
// version may be changed after construction.
type Action struct {
	name    string
	version int
}

// New creates an Action with the default API version. The name is not
// validated; callers are responsible for well-formed names.
func New(name string) *Action {
	return &Action{name: name, version: DefaultVersion}
}

// Parse builds an Action from a reference such as "package_show" or "package_show@2".
func Parse(ref string) (*Action, error) {
	parsed, err := semver.ParseActionRef(ref)
	if err != nil {
		return nil, err
	}
	a := New(parsed.Name)
	if parsed.Major >= 0 {
		a.SetVersion(parsed.Major)
	}
	return a, nil
}

// Name returns the action name.
func (a *Action) Name() string {
	return a.name
}

// Version returns the API version.
func (a *Action) Version() int {
	return a.version
}

// SetVersion changes the API version for all subsequent URL calls.
func (a *Action) SetVersion(v int) {
	a.version = v
}

// URL returns the path of the action relative to an API base URL. It has no
// leading slash so that resolution keeps any path prefix of the base.
func (a *Action) URL() string {
	return fmt.Sprintf("api/%d/action/%s", a.version, a.name)
}

// String returns the action reference form, e.g. "package_show@3".
func (a *Action) String() string {
	return semver.BuildActionRef(a.name, a.version)
}

// FromPath recovers an Action from a resolved URL path such as
// "/data/api/3/action/package_show". It reports false when the path does not
// contain an action segment.
func FromPath(path string) (*Action, bool) {
	m := pathPattern.FindStringSubmatch(path)
	if m == nil {
		return nil, false
	}
	v, err := strconv.Atoi(m[1])
	if err != nil {
		return nil, false
	}
	return &Action{name: m[2], version: v}, true
}
