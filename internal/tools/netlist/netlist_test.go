package netlist

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/acedergren/alecs-mcp-server-akamai-sub006/internal/domain"
	"github.com/acedergren/alecs-mcp-server-akamai-sub006/internal/infra/edgegrid"
	"github.com/acedergren/alecs-mcp-server-akamai-sub006/internal/infra/registry"
)

type sessionCall struct {
	method string
	path   string
	body   any
}

type fakeSession struct {
	mu      sync.Mutex
	calls   []sessionCall
	respond func(method, path string) (any, *domain.Error)
}

func (f *fakeSession) do(method, path string, in, out any) *domain.Error {
	f.mu.Lock()
	f.calls = append(f.calls, sessionCall{method: method, path: path, body: in})
	f.mu.Unlock()

	if f.respond == nil {
		return nil
	}
	payload, derr := f.respond(method, path)
	if derr != nil {
		return derr
	}
	if payload == nil || out == nil {
		return nil
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		panic(err)
	}
	return nil
}

func (f *fakeSession) Get(_ context.Context, path string, in, out any) *domain.Error {
	return f.do(http.MethodGet, path, in, out)
}

func (f *fakeSession) Post(_ context.Context, path string, in, out any) *domain.Error {
	return f.do(http.MethodPost, path, in, out)
}

func (f *fakeSession) Put(_ context.Context, path string, in, out any) *domain.Error {
	return f.do(http.MethodPut, path, in, out)
}

func (f *fakeSession) Delete(_ context.Context, path string, in, out any) *domain.Error {
	return f.do(http.MethodDelete, path, in, out)
}

func (f *fakeSession) recorded() []sessionCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]sessionCall, len(f.calls))
	copy(out, f.calls)
	return out
}

func testModule(fake *fakeSession) *module {
	return &module{sessions: func(domain.Credentials) edgegrid.Session { return fake }}
}

func invocation(tool string, args map[string]any) *domain.Invocation {
	return &domain.Invocation{
		Tool: tool, Domain: "netlist", Account: "default",
		Credentials: domain.Credentials{Host: "akab-test.luna.akamaiapis.net", ClientToken: "ct", ClientSecret: "cs", AccessToken: "at"},
		Args:        args, RequestID: "req-test",
	}
}

func TestRegister_DefinitionShapes(t *testing.T) {
	reg := registry.New(zap.NewNop())
	require.NoError(t, Register(reg, func(domain.Credentials) edgegrid.Session { return &fakeSession{} }))

	require.Equal(t, []string{"netlist_list", "netlist_get", "netlist_update", "netlist_activate"}, reg.Names())

	update, ok := reg.Get("netlist_update")
	require.True(t, ok)
	require.True(t, update.Annotations.IdempotentHint)
	require.Equal(t, []string{"netlist:netlist_list", "netlist:netlist_get"}, update.InvalidatePatterns)

	activate, ok := reg.Get("netlist_activate")
	require.True(t, ok)
	require.Equal(t, []string{"netlist:netlist_get"}, activate.InvalidatePatterns)
	require.NotZero(t, activate.Timeout)
	require.Contains(t, activate.InputSchema.Properties, "account")
}

func TestList_BuildsFilterQuery(t *testing.T) {
	fake := &fakeSession{respond: func(method, path string) (any, *domain.Error) {
		return map[string]any{"networkLists": []any{
			map[string]any{"uniqueId": "12345_BLOCKED", "name": "blocked", "type": "IP", "elementCount": 3, "syncPoint": 7},
		}}, nil
	}}
	m := testModule(fake)

	result, err := m.list(context.Background(), invocation("netlist_list", map[string]any{
		"search": "blocked", "listType": "IP", "includeElements": true,
	}))
	require.NoError(t, err)
	require.Equal(t, "/network-list/v2/network-lists?includeElements=true&listType=IP&search=blocked", fake.recorded()[0].path)

	shaped := result.(listResult)
	require.Equal(t, 1, shaped.TotalItems)
	require.Equal(t, "12345_BLOCKED", shaped.NetworkLists[0].UniqueID)
	require.Equal(t, 7, shaped.NetworkLists[0].SyncPoint)
}

func TestGet_IncludesElements(t *testing.T) {
	fake := &fakeSession{respond: func(method, path string) (any, *domain.Error) {
		return map[string]any{
			"uniqueId": "12345_BLOCKED", "name": "blocked", "type": "IP",
			"elementCount": 2, "syncPoint": 7,
			"list": []any{"192.0.2.0/24", "198.51.100.7"},
		}, nil
	}}
	m := testModule(fake)

	result, err := m.get(context.Background(), invocation("netlist_get", map[string]any{
		"networkListId": "12345_BLOCKED",
	}))
	require.NoError(t, err)
	require.Equal(t, "/network-list/v2/network-lists/12345_BLOCKED?includeElements=true", fake.recorded()[0].path)
	require.Equal(t, []string{"192.0.2.0/24", "198.51.100.7"}, result.(listItem).Elements)
}

func TestGet_NotFound(t *testing.T) {
	fake := &fakeSession{respond: func(method, path string) (any, *domain.Error) {
		return map[string]any{}, nil
	}}
	m := testModule(fake)

	_, err := m.get(context.Background(), invocation("netlist_get", map[string]any{
		"networkListId": "99999_MISSING",
	}))
	require.Error(t, err)
	derr := err.(*domain.Error)
	require.Equal(t, domain.CodeNotFound, derr.Code)
	require.Contains(t, derr.Message, "99999_MISSING")
}

func TestUpdate_ReplacesElements(t *testing.T) {
	fake := &fakeSession{respond: func(method, path string) (any, *domain.Error) {
		return map[string]any{
			"uniqueId": "12345_BLOCKED", "name": "blocked", "type": "IP",
			"elementCount": 1, "syncPoint": 8, "list": []any{"203.0.113.0/24"},
		}, nil
	}}
	m := testModule(fake)

	result, err := m.update(context.Background(), invocation("netlist_update", map[string]any{
		"networkListId": "12345_BLOCKED", "syncPoint": float64(7),
		"elements": []any{"203.0.113.0/24"},
	}))
	require.NoError(t, err)

	call := fake.recorded()[0]
	require.Equal(t, http.MethodPut, call.method)
	require.Equal(t, "/network-list/v2/network-lists/12345_BLOCKED", call.path)
	body := call.body.(map[string]any)
	require.Equal(t, 7, body["syncPoint"])
	require.Equal(t, []string{"203.0.113.0/24"}, body["list"])

	shaped := result.(listItem)
	require.Equal(t, 8, shaped.SyncPoint)
}

func TestUpdate_RejectsEmptyElements(t *testing.T) {
	m := testModule(&fakeSession{})

	_, err := m.update(context.Background(), invocation("netlist_update", map[string]any{
		"networkListId": "12345_BLOCKED", "syncPoint": float64(7), "elements": []any{},
	}))
	require.Error(t, err)
	require.Equal(t, domain.CodeInvalidParams, err.(*domain.Error).Code)
}

func TestActivate_PostsToEnvironment(t *testing.T) {
	fake := &fakeSession{respond: func(method, path string) (any, *domain.Error) {
		return map[string]any{"activationId": 321, "activationStatus": "PENDING_ACTIVATION", "syncPoint": 8}, nil
	}}
	m := testModule(fake)

	result, err := m.activate(context.Background(), invocation("netlist_activate", map[string]any{
		"networkListId": "12345_BLOCKED", "network": "STAGING", "comments": "tighten blocklist",
	}))
	require.NoError(t, err)

	call := fake.recorded()[0]
	require.Equal(t, http.MethodPost, call.method)
	require.Equal(t, "/network-list/v2/network-lists/12345_BLOCKED/environments/STAGING/activate", call.path)
	require.Equal(t, "tighten blocklist", call.body.(map[string]any)["comments"])

	shaped := result.(activateResult)
	require.Equal(t, "STAGING", shaped.Network)
	require.Equal(t, 321, shaped.ActivationID)
	require.Equal(t, "PENDING_ACTIVATION", shaped.ActivationStatus)
}

func TestHandlers_PropagateUpstreamErrors(t *testing.T) {
	fake := &fakeSession{respond: func(method, path string) (any, *domain.Error) {
		return nil, domain.E(domain.CodeConflict, "edgegrid.Session", "sync point is stale", nil)
	}}
	m := testModule(fake)

	_, err := m.update(context.Background(), invocation("netlist_update", map[string]any{
		"networkListId": "12345_BLOCKED", "syncPoint": float64(6), "elements": []any{"192.0.2.0/24"},
	}))
	require.Error(t, err)
	require.Equal(t, domain.CodeConflict, err.(*domain.Error).Code)
}
