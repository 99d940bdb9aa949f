// Package profiles loads named portal endpoints from a JSON file.
package profiles

import (
	"os"
	"sort"
)

// Profile describes one CKAN site.
type Profile struct {
	URL         string `json:"url"`
	TokenEnv    string `json:"tokenEnv,omitempty"`
	Version     int    `json:"version,omitempty"`
	Description string `json:"description,omitempty"`
}

// Token reads the profile's token from its environment variable, if any.
func (p *Profile) Token() string {
	if p.TokenEnv == "" {
		return ""
	}
	return os.Getenv(p.TokenEnv)
}

// Config is the root of a profiles file.
type Config struct {
	Default  string             `json:"default,omitempty"`
	Profiles map[string]Profile `json:"profiles"`
	Aliases  map[string]string  `json:"aliases,omitempty"`
}

// Resolved provides lookups over a loaded Config.
type Resolved struct {
	defaultName string
	profiles    map[string]*Profile
	aliases     map[string]string
}

// Get returns a profile by name or alias. An empty name selects the default.
func (r *Resolved) Get(name string) *Profile {
	if name == "" {
		name = r.defaultName
	}
	if p, ok := r.profiles[name]; ok {
		return p
	}
	if target, ok := r.aliases[name]; ok {
		if p, ok := r.profiles[target]; ok {
			return p
		}
	}
	return nil
}

// DefaultName returns the name of the default profile.
func (r *Resolved) DefaultName() string {
	return r.defaultName
}

// Names returns the profile names in sorted order.
func (r *Resolved) Names() []string {
	names := make([]string, 0, len(r.profiles))
	for n := range r.profiles {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
