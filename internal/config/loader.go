package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

// Interpolation syntax for config values: ${VAR} requires the variable
// to be set, ${VAR:-fallback} substitutes the fallback when it is not.
var varPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-((?:[^}\\]|\\.)*))?\}`)

// Load reads the YAML file at path into a Config, interpolating
// environment variables first so secrets like API keys never need to
// live in the file itself.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}

	interpolated, err := interpolate(raw)
	if err != nil {
		return nil, fmt.Errorf("config: expanding variables in %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(interpolated, &cfg); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	return &cfg, nil
}

// interpolate substitutes every ${VAR} and ${VAR:-fallback} occurrence
// in the raw YAML. Variables that are unset and carry no fallback are
// collected into one joined error.
func interpolate(raw []byte) ([]byte, error) {
	var missing []error

	out := varPattern.ReplaceAllFunc(raw, func(match []byte) []byte {
		groups := varPattern.FindSubmatch(match)
		name := string(groups[1])

		if value, ok := os.LookupEnv(name); ok {
			return []byte(value)
		}
		if fallback := groups[2]; fallback != nil {
			return fallback
		}
		missing = append(missing, fmt.Errorf("unresolved variable: %s", name))
		return match
	})

	return out, errors.Join(missing...)
}
