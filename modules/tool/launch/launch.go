// Package launch implements the tool.launch module: the concrete tool
// catalog the agent uses to take a venture from idea to running
// resources. Side-effecting tools talk to configurable HTTP backends;
// costly and destructive tools consult standing approvals on the linked
// venture and refuse to run without one.
package launch

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/foundryhq/foundry/internal/core"
	"github.com/foundryhq/foundry/internal/entity"
	"github.com/foundryhq/foundry/internal/tool"
)

func init() {
	core.RegisterModule(&Module{})
}

// Interface guards.
var (
	_ core.Module       = (*Module)(nil)
	_ core.Configurable = (*Module)(nil)
	_ core.Provisioner  = (*Module)(nil)
	_ core.Validator    = (*Module)(nil)
)

// Config holds the backend endpoints the tools talk to.
type Config struct {
	DomainsURL  string `yaml:"domains_url"`
	ReposURL    string `yaml:"repos_url"`
	ServersURL  string `yaml:"servers_url"`
	PaymentsURL string `yaml:"payments_url"`
	SearchURL   string `yaml:"search_url"`

	// TimeoutSeconds bounds each backend call. Defaults to 30.
	TimeoutSeconds int `yaml:"timeout_seconds"`
}

func (c *Config) defaults() {
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = 30
	}
}

// Module registers the launch tool catalog into the shared tool
// registry.
type Module struct {
	config Config
	logger *slog.Logger
	client *apiClient
}

// ModuleInfo implements core.Module.
func (m *Module) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  "tool.launch",
		New: func() core.Module { return &Module{} },
	}
}

// Configure implements core.Configurable.
func (m *Module) Configure(node *yaml.Node) error {
	if err := node.Decode(&m.config); err != nil {
		return fmt.Errorf("launch: decode config: %w", err)
	}
	m.config.defaults()
	return nil
}

// Provision implements core.Provisioner. It resolves the shared tool
// registry and the entity store (optional, approvals default to denied
// without one) and registers the catalog.
func (m *Module) Provision(ctx *core.AppContext) error {
	m.logger = ctx.Logger
	m.client = &apiClient{
		http:   &http.Client{Timeout: time.Duration(m.config.TimeoutSeconds) * time.Second},
		logger: m.logger,
	}

	svc, ok := ctx.Service("tools")
	if !ok {
		return errors.New("launch: tools service not registered")
	}
	registry, ok := svc.(*tool.Registry)
	if !ok {
		return errors.New("launch: tools service has unexpected type")
	}

	var approvals entity.Store
	if svc, ok := ctx.Service("entity.store"); ok {
		if store, ok := svc.(entity.Store); ok {
			approvals = store
		}
	}

	catalog := []tool.Tool{
		&registerDomainTool{client: m.client, baseURL: m.config.DomainsURL, approvals: approvals},
		&domainLookupTool{client: m.client, baseURL: m.config.DomainsURL},
		&createRepositoryTool{client: m.client, baseURL: m.config.ReposURL},
		&deleteRepositoryTool{client: m.client, baseURL: m.config.ReposURL, approvals: approvals},
		&createChatServerTool{client: m.client, baseURL: m.config.ServersURL},
		&deleteChatServerTool{client: m.client, baseURL: m.config.ServersURL, approvals: approvals},
		&checkPaymentsTool{client: m.client, baseURL: m.config.PaymentsURL, approvals: approvals},
		&webSearchTool{client: m.client, baseURL: m.config.SearchURL},
	}

	for _, t := range catalog {
		if err := registry.Register(t); err != nil {
			return err
		}
	}

	m.logger.Info("launch tools registered", "count", len(catalog))
	return nil
}

// Validate implements core.Validator.
func (m *Module) Validate() error {
	var errs []error
	for name, raw := range map[string]string{
		"domains_url":  m.config.DomainsURL,
		"repos_url":    m.config.ReposURL,
		"servers_url":  m.config.ServersURL,
		"payments_url": m.config.PaymentsURL,
		"search_url":   m.config.SearchURL,
	} {
		if raw == "" {
			errs = append(errs, fmt.Errorf("launch: %s must not be empty", name))
			continue
		}
		if _, err := url.Parse(raw); err != nil {
			errs = append(errs, fmt.Errorf("launch: invalid %s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}
