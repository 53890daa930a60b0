package config

import (
	"slices"
	"strings"
)

// Provisioning phases by module namespace. Stores provision first so
// the services they register (conversation store, entity store) are
// visible to providers and tools provisioned after them; anything
// unlisted comes last.
var loadPhase = map[string]int{
	"store":    0,
	"provider": 1,
	"tool":     2,
}

// Resolve returns the configured module IDs in provisioning order:
// by phase, then alphabetically so the order is deterministic.
func Resolve(cfg *Config) []string {
	ids := make([]string, 0, len(cfg.Modules))
	for id := range cfg.Modules {
		ids = append(ids, id)
	}
	slices.SortFunc(ids, func(a, b string) int {
		if d := phase(a) - phase(b); d != 0 {
			return d
		}
		return strings.Compare(a, b)
	})
	return ids
}

func phase(id string) int {
	ns, _, _ := strings.Cut(id, ".")
	if p, ok := loadPhase[ns]; ok {
		return p
	}
	return len(loadPhase)
}
