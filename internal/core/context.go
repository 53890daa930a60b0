package core

import (
	"fmt"
	"log/slog"
	"sync"

	"gopkg.in/yaml.v3"
)

// AppContext carries shared resources available to modules during
// provisioning and at runtime.
type AppContext struct {
	// Logger for the current module scope.
	Logger *slog.Logger

	// DataDir is the root directory for persistent module data.
	DataDir string

	parentLogger  *slog.Logger
	moduleConfigs map[string]yaml.Node
	services      *serviceRegistry
}

// serviceRegistry is shared across all ForModule copies of a context.
type serviceRegistry struct {
	mu       sync.RWMutex
	services map[string]any
}

// NewAppContext creates a new AppContext with the given base logger.
func NewAppContext(logger *slog.Logger, dataDir string) *AppContext {
	if logger == nil {
		logger = slog.Default()
	}
	return &AppContext{
		Logger:       logger,
		DataDir:      dataDir,
		parentLogger: logger,
		services:     &serviceRegistry{services: make(map[string]any)},
	}
}

// WithModuleConfigs returns a copy of the AppContext with module
// configurations set. Each key is a module ID mapping to its raw YAML
// configuration node.
func (ctx *AppContext) WithModuleConfigs(configs map[string]yaml.Node) *AppContext {
	cp := *ctx
	cp.moduleConfigs = configs
	return &cp
}

// ForModule returns a new AppContext scoped to the given module ID,
// with a child logger that includes the module ID.
func (ctx *AppContext) ForModule(id ModuleID) *AppContext {
	return &AppContext{
		Logger:        ctx.parentLogger.With("module", string(id)),
		DataDir:       ctx.DataDir,
		parentLogger:  ctx.parentLogger,
		moduleConfigs: ctx.moduleConfigs,
		services:      ctx.services,
	}
}

// RegisterService publishes a shared service under name so later
// modules can fetch it during provisioning. Registering the same name
// twice is an error.
func (ctx *AppContext) RegisterService(name string, svc any) error {
	ctx.services.mu.Lock()
	defer ctx.services.mu.Unlock()

	if _, exists := ctx.services.services[name]; exists {
		return fmt.Errorf("service already registered: %s", name)
	}
	ctx.services.services[name] = svc
	return nil
}

// Service returns the service registered under name, or false.
func (ctx *AppContext) Service(name string) (any, bool) {
	ctx.services.mu.RLock()
	defer ctx.services.mu.RUnlock()

	svc, ok := ctx.services.services[name]
	return svc, ok
}

// LoadModule instantiates and provisions a module by its ID. The
// lifecycle order is:
//
//	New() → Configure() → Provision() → Validate()
//
// Returns the provisioned module instance ready for use.
func (ctx *AppContext) LoadModule(id string) (Module, error) {
	info, ok := GetModule(id)
	if !ok {
		return nil, fmt.Errorf("unknown module: %s", id)
	}

	mod := info.New()

	if c, ok := mod.(Configurable); ok {
		if node, exists := ctx.moduleConfigs[id]; exists {
			if err := c.Configure(&node); err != nil {
				return nil, fmt.Errorf("configuring module %s: %w", id, err)
			}
		}
	}

	if p, ok := mod.(Provisioner); ok {
		moduleCtx := ctx.ForModule(info.ID)
		if err := p.Provision(moduleCtx); err != nil {
			return nil, fmt.Errorf("provisioning module %s: %w", id, err)
		}
	}

	if v, ok := mod.(Validator); ok {
		if err := v.Validate(); err != nil {
			return nil, fmt.Errorf("validating module %s: %w", id, err)
		}
	}

	return mod, nil
}
