// Package config handles YAML configuration loading, environment
// variable expansion, and structural validation for foundry.
package config

import "gopkg.in/yaml.v3"

// Config is the top-level configuration structure.
type Config struct {
	// Version is the config format version. Currently only "1" is
	// supported.
	Version string `yaml:"version"`

	// Modules maps module IDs to their raw YAML configuration. Keys
	// must match registered module IDs (e.g. "provider.anthropic").
	Modules map[string]yaml.Node `yaml:"modules"`

	// Agent tunes the reasoning loop.
	Agent AgentConfig `yaml:"agent,omitempty"`

	// Router tunes dispatch and conversation retention.
	Router RouterConfig `yaml:"router,omitempty"`
}

// AgentConfig holds the reasoning loop settings.
type AgentConfig struct {
	// MaxIterations caps reason-act cycles per turn.
	MaxIterations int `yaml:"max_iterations,omitempty"`

	// TokenBudget caps cumulative tokens per turn. Zero is unlimited.
	TokenBudget int `yaml:"token_budget,omitempty"`

	// TimeoutSeconds caps wall-clock time per turn.
	TimeoutSeconds int `yaml:"timeout_seconds,omitempty"`

	// SystemPrompt overrides the built-in system prompt.
	SystemPrompt string `yaml:"system_prompt,omitempty"`
}

// RouterConfig holds dispatch settings.
type RouterConfig struct {
	// Workers is the number of concurrent turn processors.
	Workers int `yaml:"workers,omitempty"`

	// InboxSize bounds the pending message queue.
	InboxSize int `yaml:"inbox_size,omitempty"`

	// MaxIdleMinutes evicts conversations idle longer than this.
	MaxIdleMinutes int `yaml:"max_idle_minutes,omitempty"`

	// MaxSessions bounds the in-memory conversation cache.
	MaxSessions int `yaml:"max_sessions,omitempty"`

	// MaxHistory bounds per-conversation history length.
	MaxHistory int `yaml:"max_history,omitempty"`
}
