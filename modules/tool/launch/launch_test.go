package launch

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/foundryhq/foundry/internal/entity"
	"github.com/foundryhq/foundry/internal/tool"
)

func testClient() *apiClient {
	return &apiClient{
		http:   &http.Client{Timeout: 5 * time.Second},
		logger: slog.New(slog.DiscardHandler),
	}
}

// recordingBackend captures the last request for assertions.
type recordingBackend struct {
	method string
	path   string
	query  string
	body   string
	status int
	reply  string
}

func (b *recordingBackend) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		b.method = r.Method
		b.path = r.URL.Path
		b.query = r.URL.RawQuery
		data, _ := io.ReadAll(r.Body)
		b.body = string(data)
		if b.status != 0 {
			w.WriteHeader(b.status)
		}
		_, _ = w.Write([]byte(b.reply))
	}
}

func TestRegisterDomainNeedsApproval(t *testing.T) {
	backend := &recordingBackend{reply: "registered"}
	srv := httptest.NewServer(backend.handler())
	defer srv.Close()

	rd := &registerDomainTool{client: testClient(), baseURL: srv.URL, approvals: entity.NewMemStore()}

	res, err := rd.Execute(context.Background(), json.RawMessage(`{"name":"acme.dev"}`), tool.Invocation{EntityID: "acme"})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !res.NeedsApproval {
		t.Fatal("unapproved registration must ask for approval")
	}
	if !strings.Contains(res.ApprovalPrompt, "acme.dev") {
		t.Errorf("prompt = %q, want domain named", res.ApprovalPrompt)
	}
	if backend.method != "" {
		t.Error("backend must not be called without approval")
	}
}

func TestRegisterDomainWithOverride(t *testing.T) {
	backend := &recordingBackend{reply: "registered acme.dev"}
	srv := httptest.NewServer(backend.handler())
	defer srv.Close()

	rd := &registerDomainTool{client: testClient(), baseURL: srv.URL, approvals: entity.NewMemStore()}

	res, err := rd.Execute(context.Background(),
		json.RawMessage(`{"name":"acme.dev"}`),
		tool.Invocation{EntityID: "acme", Approved: true},
	)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !res.Success {
		t.Fatalf("result = %+v", res)
	}
	if res.Data != "registered acme.dev" {
		t.Errorf("data = %q", res.Data)
	}
	if backend.method != http.MethodPost || backend.path != "/domains" {
		t.Errorf("backend saw %s %s", backend.method, backend.path)
	}
	if !strings.Contains(backend.body, `"entity":"acme"`) {
		t.Errorf("body = %q, want entity forwarded", backend.body)
	}
}

func TestRegisterDomainWithStandingApproval(t *testing.T) {
	backend := &recordingBackend{reply: "ok"}
	srv := httptest.NewServer(backend.handler())
	defer srv.Close()

	store := entity.NewMemStore()
	if err := store.Grant(context.Background(), "acme", "domain", "u1"); err != nil {
		t.Fatalf("grant: %v", err)
	}

	rd := &registerDomainTool{client: testClient(), baseURL: srv.URL, approvals: store}

	res, err := rd.Execute(context.Background(), json.RawMessage(`{"name":"acme.dev"}`), tool.Invocation{EntityID: "acme"})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !res.Success {
		t.Fatalf("standing approval should allow execution, got %+v", res)
	}
}

func TestStandingApprovalKeyedByCategoryNotToolName(t *testing.T) {
	backend := &recordingBackend{reply: "ok"}
	srv := httptest.NewServer(backend.handler())
	defer srv.Close()

	store := entity.NewMemStore()
	if err := store.Grant(context.Background(), "acme", "register_domain", "u1"); err != nil {
		t.Fatalf("grant: %v", err)
	}

	rd := &registerDomainTool{client: testClient(), baseURL: srv.URL, approvals: store}

	res, err := rd.Execute(context.Background(), json.RawMessage(`{"name":"acme.dev"}`), tool.Invocation{EntityID: "acme"})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !res.NeedsApproval {
		t.Fatalf("a grant under the tool name must not satisfy the category gate, got %+v", res)
	}
	if backend.method != "" {
		t.Error("backend must not be called without approval")
	}
}

func TestDomainLookup(t *testing.T) {
	backend := &recordingBackend{reply: `{"available":true}`}
	srv := httptest.NewServer(backend.handler())
	defer srv.Close()

	dl := &domainLookupTool{client: testClient(), baseURL: srv.URL}

	res, err := dl.Execute(context.Background(), json.RawMessage(`{"name":"acme.dev"}`), tool.Invocation{})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !res.Success {
		t.Fatalf("result = %+v", res)
	}
	if backend.method != http.MethodGet || backend.path != "/domains/acme.dev" {
		t.Errorf("backend saw %s %s", backend.method, backend.path)
	}
}

func TestCreateRepositoryUngated(t *testing.T) {
	backend := &recordingBackend{reply: "created"}
	srv := httptest.NewServer(backend.handler())
	defer srv.Close()

	cr := &createRepositoryTool{client: testClient(), baseURL: srv.URL}

	res, err := cr.Execute(context.Background(),
		json.RawMessage(`{"name":"api","private":true}`),
		tool.Invocation{EntityID: "acme"},
	)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !res.Success {
		t.Fatalf("result = %+v", res)
	}
	if !strings.Contains(backend.body, `"private":true`) {
		t.Errorf("body = %q", backend.body)
	}
}

func TestDeleteRepositoryGated(t *testing.T) {
	backend := &recordingBackend{reply: "deleted"}
	srv := httptest.NewServer(backend.handler())
	defer srv.Close()

	dr := &deleteRepositoryTool{client: testClient(), baseURL: srv.URL, approvals: entity.NewMemStore()}

	res, err := dr.Execute(context.Background(), json.RawMessage(`{"name":"api"}`), tool.Invocation{EntityID: "acme"})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !res.NeedsApproval {
		t.Fatal("destructive delete must be gated")
	}

	res, err = dr.Execute(context.Background(), json.RawMessage(`{"name":"api"}`),
		tool.Invocation{EntityID: "acme", Approved: true})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !res.Success {
		t.Fatalf("result = %+v", res)
	}
	if backend.method != http.MethodDelete || backend.path != "/repos/api" {
		t.Errorf("backend saw %s %s", backend.method, backend.path)
	}
}

func TestCheckPaymentsDefaultsPeriod(t *testing.T) {
	backend := &recordingBackend{reply: `{"balance":1200}`}
	srv := httptest.NewServer(backend.handler())
	defer srv.Close()

	cp := &checkPaymentsTool{client: testClient(), baseURL: srv.URL, approvals: entity.NewMemStore()}

	res, err := cp.Execute(context.Background(), nil, tool.Invocation{EntityID: "acme", Approved: true})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !res.Success {
		t.Fatalf("result = %+v", res)
	}
	if !strings.Contains(backend.query, "period=30d") {
		t.Errorf("query = %q, want default period", backend.query)
	}
	if !strings.Contains(backend.query, "entity=acme") {
		t.Errorf("query = %q, want entity", backend.query)
	}
}

func TestWebSearch(t *testing.T) {
	backend := &recordingBackend{reply: `["r1","r2"]`}
	srv := httptest.NewServer(backend.handler())
	defer srv.Close()

	ws := &webSearchTool{client: testClient(), baseURL: srv.URL}

	res, err := ws.Execute(context.Background(), json.RawMessage(`{"query":"dev tools market"}`), tool.Invocation{})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !res.Success {
		t.Fatalf("result = %+v", res)
	}
	if !strings.Contains(backend.query, "limit=5") {
		t.Errorf("query = %q, want default limit", backend.query)
	}
}

func TestBackendErrorBecomesToolFailure(t *testing.T) {
	backend := &recordingBackend{status: http.StatusBadGateway, reply: "upstream down"}
	srv := httptest.NewServer(backend.handler())
	defer srv.Close()

	ws := &webSearchTool{client: testClient(), baseURL: srv.URL}

	res, err := ws.Execute(context.Background(), json.RawMessage(`{"query":"x"}`), tool.Invocation{})
	if err != nil {
		t.Fatalf("backend errors must not propagate: %v", err)
	}
	if res.Success {
		t.Fatal("result should be a failure")
	}
	if !strings.Contains(res.Error, "502") {
		t.Errorf("error = %q, want status surfaced", res.Error)
	}
}

func TestInvalidArgumentsBecomeToolFailure(t *testing.T) {
	dl := &domainLookupTool{client: testClient(), baseURL: "http://unused"}

	res, err := dl.Execute(context.Background(), json.RawMessage(`{bad json`), tool.Invocation{})
	if err != nil {
		t.Fatalf("parse errors must not propagate: %v", err)
	}
	if res.Success {
		t.Fatal("result should be a failure")
	}

	res, err = dl.Execute(context.Background(), json.RawMessage(`{}`), tool.Invocation{})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if res.Success || res.Error == "" {
		t.Fatalf("missing name should fail, got %+v", res)
	}
}

func TestCatalogNamesMatchStates(t *testing.T) {
	// The full catalog must cover every tool the state registry offers.
	m := &Module{config: Config{
		DomainsURL:  "http://d",
		ReposURL:    "http://r",
		ServersURL:  "http://s",
		PaymentsURL: "http://p",
		SearchURL:   "http://q",
	}}
	m.config.defaults()
	m.logger = slog.New(slog.DiscardHandler)
	m.client = testClient()

	tools := []tool.Tool{
		&registerDomainTool{client: m.client},
		&domainLookupTool{client: m.client},
		&createRepositoryTool{client: m.client},
		&deleteRepositoryTool{client: m.client},
		&createChatServerTool{client: m.client},
		&deleteChatServerTool{client: m.client},
		&checkPaymentsTool{client: m.client},
		&webSearchTool{client: m.client},
	}

	seen := make(map[string]bool)
	for _, tl := range tools {
		if seen[tl.Name()] {
			t.Errorf("duplicate tool name %q", tl.Name())
		}
		seen[tl.Name()] = true
		if tl.Schema() == nil {
			t.Errorf("tool %q has no schema", tl.Name())
		}
		var js map[string]any
		if err := json.Unmarshal(tl.Schema(), &js); err != nil {
			t.Errorf("tool %q schema is not valid JSON: %v", tl.Name(), err)
		}
	}

	for _, name := range []string{
		"register_domain", "domain_lookup",
		"create_repository", "delete_repository",
		"create_chat_server", "delete_chat_server",
		"check_payments", "web_search",
	} {
		if !seen[name] {
			t.Errorf("catalog missing %q", name)
		}
	}
}

func TestValidateRejectsMissingURLs(t *testing.T) {
	m := &Module{config: Config{DomainsURL: "http://d"}}
	if err := m.Validate(); err == nil {
		t.Fatal("missing backend URLs should fail validation")
	}

	m = &Module{config: Config{
		DomainsURL:  "http://d",
		ReposURL:    "http://r",
		ServersURL:  "http://s",
		PaymentsURL: "http://p",
		SearchURL:   "http://q",
	}}
	if err := m.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
}
