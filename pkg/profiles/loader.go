package profiles

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
)

const logPrefix = "profiles:loader"

// DefaultProfile is used when a profiles file does not name a default.
const DefaultProfile = "demo"

// Load reads the first readable, parseable file among paths and the default
// locations. Without one, the built-in defaults are returned. A file is merged
// over the defaults, so "demo" stays available unless redefined.
func Load(paths ...string) (*Config, error) {
	all := make([]string, 0, len(paths)+2)
	for _, p := range paths {
		if p != "" {
			all = append(all, p)
		}
	}
	all = append(all, "config/profiles.json", "profiles.json")

	for _, p := range all {
		data, err := os.ReadFile(p)
		if err != nil {
			continue
		}

		var cfg Config
		if err := json.Unmarshal(data, &cfg); err != nil {
			slog.Warn(fmt.Sprintf("%s - Failed to parse profiles file %s: %v", logPrefix, p, err))
			continue
		}
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("%s - %s: %w", logPrefix, p, err)
		}

		slog.Info(fmt.Sprintf("%s - Loaded %d profiles from %s", logPrefix, len(cfg.Profiles), p))
		return Merge(Defaults(), &cfg), nil
	}

	slog.Debug(fmt.Sprintf("%s - Using default profiles", logPrefix))
	return Defaults(), nil
}

// Defaults returns the built-in profiles.
func Defaults() *Config {
	return &Config{
		Default: DefaultProfile,
		Profiles: map[string]Profile{
			"demo": {
				URL:         "https://demo.ckan.org",
				TokenEnv:    "CKAN_API_TOKEN",
				Version:     3,
				Description: "CKAN public demo site",
			},
		},
		Aliases: map[string]string{},
	}
}

// Validate checks that every profile has a URL and that aliases and the
// default point at existing profiles.
func (c *Config) Validate() error {
	for name, p := range c.Profiles {
		if p.URL == "" {
			return fmt.Errorf("profile %q has no url", name)
		}
		if p.Version < 0 {
			return fmt.Errorf("profile %q has negative version %d", name, p.Version)
		}
	}
	for alias, target := range c.Aliases {
		if _, ok := c.Profiles[target]; !ok {
			return fmt.Errorf("alias %q points at unknown profile %q", alias, target)
		}
	}
	return nil
}

// Merge overlays override onto base. Profiles and aliases in override win.
func Merge(base, override *Config) *Config {
	merged := &Config{
		Default:  base.Default,
		Profiles: make(map[string]Profile, len(base.Profiles)+len(override.Profiles)),
		Aliases:  make(map[string]string, len(base.Aliases)+len(override.Aliases)),
	}
	for n, p := range base.Profiles {
		merged.Profiles[n] = p
	}
	for n, p := range override.Profiles {
		merged.Profiles[n] = p
	}
	for a, t := range base.Aliases {
		merged.Aliases[a] = t
	}
	for a, t := range override.Aliases {
		merged.Aliases[a] = t
	}
	if override.Default != "" {
		merged.Default = override.Default
	}
	return merged
}

// Resolve builds a Resolved for lookups.
func Resolve(cfg *Config) *Resolved {
	r := &Resolved{
		defaultName: cfg.Default,
		profiles:    make(map[string]*Profile, len(cfg.Profiles)),
		aliases:     make(map[string]string, len(cfg.Aliases)),
	}
	if r.defaultName == "" {
		r.defaultName = DefaultProfile
	}
	for n, p := range cfg.Profiles {
		p := p
		r.profiles[n] = &p
	}
	for a, t := range cfg.Aliases {
		r.aliases[a] = t
	}
	return r
}
