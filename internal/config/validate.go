package config

import (
	"errors"
	"fmt"

	"github.com/foundryhq/foundry/internal/core"
)

// Validate checks the structural validity of a Config: the version
// field, the presence of modules, that every referenced module ID
// exists in the registry, and the numeric bounds of loop and router
// settings.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Version == "" {
		errs = append(errs, errors.New("config: version field is required"))
	} else if cfg.Version != "1" {
		errs = append(errs, fmt.Errorf("config: unsupported version %q (supported: \"1\")", cfg.Version))
	}

	if len(cfg.Modules) == 0 {
		errs = append(errs, errors.New("config: at least one module must be configured"))
	}

	for id := range cfg.Modules {
		if _, ok := core.GetModule(id); !ok {
			errs = append(errs, fmt.Errorf("config: unknown module %q", id))
		}
	}

	errs = append(errs, validateAgent(cfg.Agent)...)
	errs = append(errs, validateRouter(cfg.Router)...)

	return errors.Join(errs...)
}

func validateAgent(a AgentConfig) []error {
	var errs []error
	if a.MaxIterations < 0 {
		errs = append(errs, errors.New("config: agent.max_iterations must not be negative"))
	}
	if a.TokenBudget < 0 {
		errs = append(errs, errors.New("config: agent.token_budget must not be negative"))
	}
	if a.TimeoutSeconds < 0 {
		errs = append(errs, errors.New("config: agent.timeout_seconds must not be negative"))
	}
	return errs
}

func validateRouter(r RouterConfig) []error {
	var errs []error
	if r.Workers < 0 {
		errs = append(errs, errors.New("config: router.workers must not be negative"))
	}
	if r.InboxSize < 0 {
		errs = append(errs, errors.New("config: router.inbox_size must not be negative"))
	}
	if r.MaxIdleMinutes < 0 {
		errs = append(errs, errors.New("config: router.max_idle_minutes must not be negative"))
	}
	if r.MaxSessions < 0 {
		errs = append(errs, errors.New("config: router.max_sessions must not be negative"))
	}
	if r.MaxHistory < 0 {
		errs = append(errs, errors.New("config: router.max_history must not be negative"))
	}
	return errs
}
