package property

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

// fakeSession records every call and answers from a canned responder. The
// response payload is JSON round-tripped into out, the same shape change a
// real upstream body goes through.
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

func testModule(fake *fakeSession) (*module, *domain.Credentials) {
	var seen domain.Credentials
	return &module{sessions: func(creds domain.Credentials) edgegrid.Session {
		seen = creds
		return fake
	}}, &seen
}

func invocation(tool string, args map[string]any) *domain.Invocation {
	return &domain.Invocation{
		Tool:    tool,
		Domain:  "property",
		Account: "default",
		Credentials: domain.Credentials{
			Host:        "akab-test.luna.akamaiapis.net",
			ClientToken: "ct", ClientSecret: "cs", AccessToken: "at",
		},
		Args:      args,
		RequestID: "req-test",
	}
}

func TestRegister_DefinitionShapes(t *testing.T) {
	reg := registry.New(zap.NewNop())
	require.NoError(t, Register(reg, func(domain.Credentials) edgegrid.Session { return &fakeSession{} }))

	names := reg.Names()
	require.Equal(t, []string{
		"property_list", "property_get", "property_create", "property_activate",
		"property_activations_list", "property_rules_get", "property_hostnames_list",
	}, names)

	list, ok := reg.Get("property_list")
	require.True(t, ok)
	require.True(t, list.Cacheable)
	require.Equal(t, "property", list.EffectiveDomain())
	require.True(t, list.Annotations.ReadOnlyHint)
	require.Contains(t, list.InputSchema.Properties, "account")
	require.Contains(t, list.InputSchema.Required, "contractId")

	create, ok := reg.Get("property_create")
	require.True(t, ok)
	require.False(t, create.Cacheable)
	require.Equal(t, []string{"property"}, create.InvalidatePatterns)
	require.False(t, create.Annotations.ReadOnlyHint)

	activate, ok := reg.Get("property_activate")
	require.True(t, ok)
	require.Equal(t, []string{"property:property_get", "property:property_activations_list"}, activate.InvalidatePatterns)
	require.NotZero(t, activate.Timeout)
	require.Equal(t, "array", activate.InputSchema.Properties["notifyEmails"].Type)
}

func TestList_BuildsQueryAndShapesResult(t *testing.T) {
	fake := &fakeSession{respond: func(method, path string) (any, *domain.Error) {
		return map[string]any{"properties": map[string]any{"items": []any{
			map[string]any{"propertyId": "prp_1", "propertyName": "www", "contractId": "ctr_1", "groupId": "grp_9", "latestVersion": 4},
			map[string]any{"propertyId": "prp_2", "propertyName": "api", "contractId": "ctr_1", "groupId": "grp_9", "latestVersion": 1},
		}}}, nil
	}}
	m, seen := testModule(fake)

	result, err := m.list(context.Background(), invocation("property_list", map[string]any{
		"contractId": "ctr_1", "groupId": "grp_9",
	}))
	require.NoError(t, err)

	calls := fake.recorded()
	require.Len(t, calls, 1)
	require.Equal(t, http.MethodGet, calls[0].method)
	require.Equal(t, "/papi/v1/properties?contractId=ctr_1&groupId=grp_9", calls[0].path)
	require.Equal(t, "akab-test.luna.akamaiapis.net", seen.Host)

	shaped, ok := result.(listResult)
	require.True(t, ok)
	require.Equal(t, 2, shaped.TotalItems)
	require.Equal(t, "prp_1", shaped.Properties[0].PropertyID)
	require.Equal(t, 4, shaped.Properties[0].LatestVersion)
}

func TestList_EmptyUpstreamYieldsEmptySlice(t *testing.T) {
	fake := &fakeSession{respond: func(method, path string) (any, *domain.Error) {
		return map[string]any{"properties": map[string]any{"items": nil}}, nil
	}}
	m, _ := testModule(fake)

	result, err := m.list(context.Background(), invocation("property_list", map[string]any{
		"contractId": "ctr_1", "groupId": "grp_9",
	}))
	require.NoError(t, err)

	shaped := result.(listResult)
	require.NotNil(t, shaped.Properties)
	require.Zero(t, shaped.TotalItems)
}

func TestGet_ScopesLookupQuery(t *testing.T) {
	fake := &fakeSession{respond: func(method, path string) (any, *domain.Error) {
		return map[string]any{"properties": map[string]any{"items": []any{
			map[string]any{"propertyId": "prp_7", "propertyName": "www", "contractId": "ctr_1", "groupId": "grp_9", "latestVersion": 2},
		}}}, nil
	}}
	m, _ := testModule(fake)

	result, err := m.get(context.Background(), invocation("property_get", map[string]any{
		"propertyId": "prp_7", "contractId": "ctr_1",
	}))
	require.NoError(t, err)
	require.Equal(t, "/papi/v1/properties/prp_7?contractId=ctr_1", fake.recorded()[0].path)
	require.Equal(t, "prp_7", result.(propertyItem).PropertyID)
}

func TestGet_NotFound(t *testing.T) {
	fake := &fakeSession{respond: func(method, path string) (any, *domain.Error) {
		return map[string]any{"properties": map[string]any{"items": []any{}}}, nil
	}}
	m, _ := testModule(fake)

	_, err := m.get(context.Background(), invocation("property_get", map[string]any{
		"propertyId": "prp_404",
	}))
	require.Error(t, err)
	derr, ok := err.(*domain.Error)
	require.True(t, ok)
	require.Equal(t, domain.CodeNotFound, derr.Code)
	require.Contains(t, derr.Message, "prp_404")
}

func TestCreate_PostsBodyAndParsesLink(t *testing.T) {
	fake := &fakeSession{respond: func(method, path string) (any, *domain.Error) {
		return map[string]any{
			"propertyLink": "/papi/v1/properties/prp_173136?contractId=ctr_1&groupId=grp_9",
		}, nil
	}}
	m, _ := testModule(fake)

	result, err := m.create(context.Background(), invocation("property_create", map[string]any{
		"contractId": "ctr_1", "groupId": "grp_9",
		"productId": "prd_Fresca", "propertyName": "www.example.com",
	}))
	require.NoError(t, err)

	call := fake.recorded()[0]
	require.Equal(t, http.MethodPost, call.method)
	require.Equal(t, "/papi/v1/properties?contractId=ctr_1&groupId=grp_9", call.path)
	body := call.body.(map[string]any)
	require.Equal(t, "prd_Fresca", body["productId"])
	require.Equal(t, "www.example.com", body["propertyName"])
	require.NotContains(t, body, "ruleFormat")

	shaped := result.(createResult)
	require.Equal(t, "prp_173136", shaped.PropertyID)
	require.Equal(t, "www.example.com", shaped.PropertyName)
}

func TestCreate_PinsRuleFormatWhenGiven(t *testing.T) {
	fake := &fakeSession{respond: func(method, path string) (any, *domain.Error) {
		return map[string]any{"propertyLink": "/papi/v1/properties/prp_1"}, nil
	}}
	m, _ := testModule(fake)

	_, err := m.create(context.Background(), invocation("property_create", map[string]any{
		"contractId": "ctr_1", "groupId": "grp_9",
		"productId": "prd_Fresca", "propertyName": "www", "ruleFormat": "v2024-02-12",
	}))
	require.NoError(t, err)
	body := fake.recorded()[0].body.(map[string]any)
	require.Equal(t, "v2024-02-12", body["ruleFormat"])
}

func TestActivate_PostsActivation(t *testing.T) {
	fake := &fakeSession{respond: func(method, path string) (any, *domain.Error) {
		return map[string]any{
			"activationLink": "/papi/v1/properties/prp_1/activations/atv_8210",
		}, nil
	}}
	m, _ := testModule(fake)

	result, err := m.activate(context.Background(), invocation("property_activate", map[string]any{
		"propertyId": "prp_1", "propertyVersion": float64(3), "network": "STAGING",
		"note": "rollout", "notifyEmails": []any{"ops@example.com"},
	}))
	require.NoError(t, err)

	call := fake.recorded()[0]
	require.Equal(t, "/papi/v1/properties/prp_1/activations", call.path)
	body := call.body.(map[string]any)
	require.Equal(t, 3, body["propertyVersion"])
	require.Equal(t, "STAGING", body["network"])
	require.Equal(t, []string{"ops@example.com"}, body["notifyEmails"])

	shaped := result.(activateResult)
	require.Equal(t, "atv_8210", shaped.ActivationID)
	require.Equal(t, "STAGING", shaped.Network)
}

func TestActivate_RejectsNonPositiveVersion(t *testing.T) {
	m, _ := testModule(&fakeSession{})

	_, err := m.activate(context.Background(), invocation("property_activate", map[string]any{
		"propertyId": "prp_1", "propertyVersion": float64(0), "network": "STAGING",
	}))
	require.Error(t, err)
	derr := err.(*domain.Error)
	require.Equal(t, domain.CodeInvalidParams, derr.Code)
}

func TestActivationsList_ShapesHistory(t *testing.T) {
	fake := &fakeSession{respond: func(method, path string) (any, *domain.Error) {
		return map[string]any{"activations": map[string]any{"items": []any{
			map[string]any{"activationId": "atv_2", "propertyVersion": 3, "network": "PRODUCTION", "status": "ACTIVE"},
			map[string]any{"activationId": "atv_1", "propertyVersion": 2, "network": "STAGING", "status": "DEACTIVATED"},
		}}}, nil
	}}
	m, _ := testModule(fake)

	result, err := m.activations(context.Background(), invocation("property_activations_list", map[string]any{
		"propertyId": "prp_1",
	}))
	require.NoError(t, err)
	require.Equal(t, "/papi/v1/properties/prp_1/activations", fake.recorded()[0].path)

	shaped := result.(activationsResult)
	require.Equal(t, 2, shaped.TotalItems)
	require.Equal(t, "ACTIVE", shaped.Activations[0].Status)
}

func TestRules_PassesTreeThrough(t *testing.T) {
	fake := &fakeSession{respond: func(method, path string) (any, *domain.Error) {
		return map[string]any{
			"ruleFormat": "v2024-02-12",
			"etag":       "a1b2c3",
			"rules": map[string]any{
				"name":      "default",
				"behaviors": []any{map[string]any{"name": "caching"}},
			},
		}, nil
	}}
	m, _ := testModule(fake)

	result, err := m.rules(context.Background(), invocation("property_rules_get", map[string]any{
		"propertyId": "prp_1", "propertyVersion": float64(3),
	}))
	require.NoError(t, err)
	require.Equal(t, "/papi/v1/properties/prp_1/versions/3/rules", fake.recorded()[0].path)

	shaped := result.(rulesResult)
	require.Equal(t, "v2024-02-12", shaped.RuleFormat)
	require.Contains(t, string(shaped.Rules), "behaviors")
}

func TestHostnames_ShapesMappings(t *testing.T) {
	fake := &fakeSession{respond: func(method, path string) (any, *domain.Error) {
		return map[string]any{"hostnames": map[string]any{"items": []any{
			map[string]any{"cnameFrom": "www.example.com", "cnameTo": "www.example.com.edgesuite.net", "certProvisioningType": "DEFAULT"},
		}}}, nil
	}}
	m, _ := testModule(fake)

	result, err := m.hostnames(context.Background(), invocation("property_hostnames_list", map[string]any{
		"propertyId": "prp_1", "propertyVersion": float64(2),
	}))
	require.NoError(t, err)
	require.Equal(t, "/papi/v1/properties/prp_1/versions/2/hostnames", fake.recorded()[0].path)

	shaped := result.(hostnamesResult)
	require.Equal(t, 1, shaped.TotalItems)
	require.Equal(t, "www.example.com", shaped.Hostnames[0].CnameFrom)
}

func TestHandlers_PropagateUpstreamErrors(t *testing.T) {
	upstream := domain.E(domain.CodeForbidden, "edgegrid.Session", "upstream rejected the request", nil)
	fake := &fakeSession{respond: func(method, path string) (any, *domain.Error) {
		return nil, upstream
	}}
	m, _ := testModule(fake)

	_, err := m.list(context.Background(), invocation("property_list", map[string]any{
		"contractId": "ctr_1", "groupId": "grp_9",
	}))
	require.Error(t, err)
	require.Equal(t, domain.CodeForbidden, err.(*domain.Error).Code)
}

func TestPropertyIDFromLink(t *testing.T) {
	cases := []struct {
		link string
		want string
	}{
		{"/papi/v1/properties/prp_173136?contractId=ctr_1&groupId=grp_9", "prp_173136"},
		{"/papi/v1/properties/prp_1", "prp_1"},
		{"https://host.example/papi/v1/properties/prp_2?x=1", "prp_2"},
		{"/papi/v1/properties/", ""},
		{"not a %% link %zz", ""},
		{"", ""},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, propertyIDFromLink(tc.link), "link %q", tc.link)
	}
}
