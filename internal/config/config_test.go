package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadParsesModules(t *testing.T) {
	path := writeConfig(t, `
version: "1"
modules:
  provider.anthropic:
    model: claude-sonnet-4-5
  store.sqlite:
    path: /var/lib/foundry/foundry.db
agent:
  max_iterations: 15
router:
  workers: 4
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Version != "1" {
		t.Fatalf("Version = %q", cfg.Version)
	}
	if len(cfg.Modules) != 2 {
		t.Fatalf("Modules = %d entries", len(cfg.Modules))
	}
	if cfg.Agent.MaxIterations != 15 {
		t.Fatalf("MaxIterations = %d", cfg.Agent.MaxIterations)
	}
	if cfg.Router.Workers != 4 {
		t.Fatalf("Workers = %d", cfg.Router.Workers)
	}
}

func TestLoadExpandsEnv(t *testing.T) {
	t.Setenv("FOUNDRY_TEST_KEY", "sk-secret")
	path := writeConfig(t, `
version: "1"
modules:
  provider.anthropic:
    api_key: ${FOUNDRY_TEST_KEY}
    region: ${FOUNDRY_TEST_REGION:-us-east-1}
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	node := cfg.Modules["provider.anthropic"]
	var decoded struct {
		APIKey string `yaml:"api_key"`
		Region string `yaml:"region"`
	}
	if err := node.Decode(&decoded); err != nil {
		t.Fatal(err)
	}
	if decoded.APIKey != "sk-secret" {
		t.Fatalf("APIKey = %q", decoded.APIKey)
	}
	if decoded.Region != "us-east-1" {
		t.Fatalf("Region = %q, want default applied", decoded.Region)
	}
}

func TestLoadUnresolvedVariable(t *testing.T) {
	path := writeConfig(t, `
version: "1"
modules:
  provider.anthropic:
    api_key: ${FOUNDRY_DEFINITELY_UNSET}
`)
	_, err := Load(path)
	if err == nil || !strings.Contains(err.Error(), "FOUNDRY_DEFINITELY_UNSET") {
		t.Fatalf("err = %v, want unresolved variable named", err)
	}
}

func TestResolveOrdersByPhase(t *testing.T) {
	path := writeConfig(t, `
version: "1"
modules:
  tool.launch: {}
  gateway.http: {}
  provider.anthropic: {}
  store.sqlite: {}
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	ids := Resolve(cfg)
	// Stores before providers before tools, unlisted namespaces last.
	want := []string{"store.sqlite", "provider.anthropic", "tool.launch", "gateway.http"}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("ids = %v, want %v", ids, want)
		}
	}
}

func TestValidateVersionAndModules(t *testing.T) {
	err := Validate(&Config{})
	if err == nil {
		t.Fatal("empty config must fail validation")
	}
	msg := err.Error()
	if !strings.Contains(msg, "version") || !strings.Contains(msg, "module") {
		t.Fatalf("err = %v", err)
	}
}

func TestValidateNegativeBounds(t *testing.T) {
	cfg := &Config{
		Version: "1",
		Agent:   AgentConfig{MaxIterations: -1},
		Router:  RouterConfig{Workers: -2},
	}
	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected validation errors")
	}
	msg := err.Error()
	if !strings.Contains(msg, "max_iterations") || !strings.Contains(msg, "workers") {
		t.Fatalf("err = %v", err)
	}
}
