// Package property exposes Property Manager (PAPI) operations: listing and
// inspecting CDN configurations, creating new ones, and pushing versions to
// the staging and production networks.
package property

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/acedergren/alecs-mcp-server-akamai-sub006/internal/domain"
	"github.com/acedergren/alecs-mcp-server-akamai-sub006/internal/infra/edgegrid"
	"github.com/acedergren/alecs-mcp-server-akamai-sub006/internal/infra/registry"
	"github.com/acedergren/alecs-mcp-server-akamai-sub006/internal/tools/toolkit"
)

const basePath = "/papi/v1"

type module struct {
	sessions edgegrid.SessionFactory
}

// Register wires the property tools into the registry.
func Register(reg *registry.Registry, sessions edgegrid.SessionFactory) error {
	m := &module{sessions: sessions}
	defs := []domain.ToolDefinition{
		{
			Name:        "property_list",
			Description: "List CDN properties under a contract and group.",
			InputSchema: listSchema(),
			Handler:     m.list,
			Cacheable:   true,
			CacheTTL:    5 * time.Minute,
			Annotations: toolkit.ReadOnly("List properties"),
		},
		{
			Name:        "property_get",
			Description: "Fetch one property with its version and activation summary.",
			InputSchema: getSchema(),
			Handler:     m.get,
			Cacheable:   true,
			CacheTTL:    5 * time.Minute,
			Annotations: toolkit.ReadOnly("Get property"),
		},
		{
			Name:               "property_create",
			Description:        "Create a new property on a product.",
			InputSchema:        createSchema(),
			Handler:            m.create,
			InvalidatePatterns: []string{"property"},
			Annotations:        toolkit.Mutating("Create property"),
		},
		{
			Name:               "property_activate",
			Description:        "Activate a property version on staging or production.",
			InputSchema:        activateSchema(),
			Handler:            m.activate,
			InvalidatePatterns: []string{"property:property_get", "property:property_activations_list"},
			Timeout:            60 * time.Second,
			Annotations:        toolkit.Mutating("Activate property version"),
		},
		{
			Name:        "property_activations_list",
			Description: "List the activation history of a property.",
			InputSchema: activationsListSchema(),
			Handler:     m.activations,
			Cacheable:   true,
			CacheTTL:    time.Minute,
			Annotations: toolkit.ReadOnly("List property activations"),
		},
		{
			Name:        "property_rules_get",
			Description: "Fetch the rule tree of a property version.",
			InputSchema: rulesGetSchema(),
			Handler:     m.rules,
			Cacheable:   true,
			CacheTTL:    5 * time.Minute,
			Annotations: toolkit.ReadOnly("Get rule tree"),
		},
		{
			Name:        "property_hostnames_list",
			Description: "List the hostname mappings of a property version.",
			InputSchema: hostnamesListSchema(),
			Handler:     m.hostnames,
			Cacheable:   true,
			CacheTTL:    5 * time.Minute,
			Annotations: toolkit.ReadOnly("List property hostnames"),
		},
	}
	for _, def := range defs {
		if err := reg.Register(def); err != nil {
			return err
		}
	}
	return nil
}

type propertyItem struct {
	PropertyID        string `json:"propertyId"`
	PropertyName      string `json:"propertyName"`
	ContractID        string `json:"contractId"`
	GroupID           string `json:"groupId"`
	ProductID         string `json:"productId,omitempty"`
	LatestVersion     int    `json:"latestVersion"`
	StagingVersion    *int   `json:"stagingVersion,omitempty"`
	ProductionVersion *int   `json:"productionVersion,omitempty"`
	Note              string `json:"note,omitempty"`
}

type propertiesResponse struct {
	Properties struct {
		Items []propertyItem `json:"items"`
	} `json:"properties"`
}

type listResult struct {
	Properties []propertyItem `json:"properties"`
	TotalItems int            `json:"totalItems"`
}

func (m *module) list(ctx context.Context, inv *domain.Invocation) (any, error) {
	var params struct {
		ContractID string `json:"contractId"`
		GroupID    string `json:"groupId"`
	}
	if derr := toolkit.DecodeArgs(inv.Args, &params); derr != nil {
		return nil, derr
	}

	query := url.Values{}
	query.Set("contractId", params.ContractID)
	query.Set("groupId", params.GroupID)

	var resp propertiesResponse
	if derr := m.sessions(inv.Credentials).Get(ctx, basePath+"/properties?"+query.Encode(), nil, &resp); derr != nil {
		return nil, derr
	}
	items := resp.Properties.Items
	if items == nil {
		items = []propertyItem{}
	}
	return listResult{Properties: items, TotalItems: len(items)}, nil
}

func (m *module) get(ctx context.Context, inv *domain.Invocation) (any, error) {
	var params struct {
		PropertyID string `json:"propertyId"`
		ContractID string `json:"contractId"`
		GroupID    string `json:"groupId"`
	}
	if derr := toolkit.DecodeArgs(inv.Args, &params); derr != nil {
		return nil, derr
	}

	path := basePath + "/properties/" + url.PathEscape(params.PropertyID)
	query := url.Values{}
	if params.ContractID != "" {
		query.Set("contractId", params.ContractID)
	}
	if params.GroupID != "" {
		query.Set("groupId", params.GroupID)
	}
	if len(query) > 0 {
		path += "?" + query.Encode()
	}

	var resp propertiesResponse
	if derr := m.sessions(inv.Credentials).Get(ctx, path, nil, &resp); derr != nil {
		return nil, derr
	}
	if len(resp.Properties.Items) == 0 {
		return nil, domain.E(domain.CodeNotFound, "property_get",
			fmt.Sprintf("property %s not found", params.PropertyID), nil)
	}
	return resp.Properties.Items[0], nil
}

type createResult struct {
	PropertyID   string `json:"propertyId"`
	PropertyName string `json:"propertyName"`
	ContractID   string `json:"contractId"`
	GroupID      string `json:"groupId"`
	ProductID    string `json:"productId"`
	PropertyLink string `json:"propertyLink"`
}

func (m *module) create(ctx context.Context, inv *domain.Invocation) (any, error) {
	var params struct {
		ContractID   string `json:"contractId"`
		GroupID      string `json:"groupId"`
		ProductID    string `json:"productId"`
		PropertyName string `json:"propertyName"`
		RuleFormat   string `json:"ruleFormat"`
	}
	if derr := toolkit.DecodeArgs(inv.Args, &params); derr != nil {
		return nil, derr
	}

	query := url.Values{}
	query.Set("contractId", params.ContractID)
	query.Set("groupId", params.GroupID)

	body := map[string]any{
		"productId":    params.ProductID,
		"propertyName": params.PropertyName,
	}
	if params.RuleFormat != "" {
		body["ruleFormat"] = params.RuleFormat
	}

	var resp struct {
		PropertyLink string `json:"propertyLink"`
	}
	if derr := m.sessions(inv.Credentials).Post(ctx, basePath+"/properties?"+query.Encode(), body, &resp); derr != nil {
		return nil, derr
	}
	return createResult{
		PropertyID:   propertyIDFromLink(resp.PropertyLink),
		PropertyName: params.PropertyName,
		ContractID:   params.ContractID,
		GroupID:      params.GroupID,
		ProductID:    params.ProductID,
		PropertyLink: resp.PropertyLink,
	}, nil
}

// propertyIDFromLink pulls the property identifier out of a PAPI link such as
// "/papi/v1/properties/prp_173136?contractId=ctr_1&groupId=grp_1".
func propertyIDFromLink(link string) string {
	parsed, err := url.Parse(link)
	if err != nil {
		return ""
	}
	segments := strings.Split(strings.Trim(parsed.Path, "/"), "/")
	for i, seg := range segments {
		if seg == "properties" && i+1 < len(segments) {
			return segments[i+1]
		}
	}
	return ""
}

type activateResult struct {
	ActivationID    string   `json:"activationId"`
	ActivationLink  string   `json:"activationLink"`
	PropertyID      string   `json:"propertyId"`
	PropertyVersion int      `json:"propertyVersion"`
	Network         string   `json:"network"`
	NotifyEmails    []string `json:"notifyEmails,omitempty"`
}

func (m *module) activate(ctx context.Context, inv *domain.Invocation) (any, error) {
	var params struct {
		PropertyID      string   `json:"propertyId"`
		PropertyVersion int      `json:"propertyVersion"`
		Network         string   `json:"network"`
		Note            string   `json:"note"`
		NotifyEmails    []string `json:"notifyEmails"`
	}
	if derr := toolkit.DecodeArgs(inv.Args, &params); derr != nil {
		return nil, derr
	}
	if params.PropertyVersion < 1 {
		return nil, domain.E(domain.CodeInvalidParams, "property_activate",
			"propertyVersion must be a positive version number", nil)
	}

	body := map[string]any{
		"propertyVersion": params.PropertyVersion,
		"network":         params.Network,
		"note":            params.Note,
	}
	if len(params.NotifyEmails) > 0 {
		body["notifyEmails"] = params.NotifyEmails
	}

	path := basePath + "/properties/" + url.PathEscape(params.PropertyID) + "/activations"
	var resp struct {
		ActivationLink string `json:"activationLink"`
	}
	if derr := m.sessions(inv.Credentials).Post(ctx, path, body, &resp); derr != nil {
		return nil, derr
	}
	return activateResult{
		ActivationID:    activationIDFromLink(resp.ActivationLink),
		ActivationLink:  resp.ActivationLink,
		PropertyID:      params.PropertyID,
		PropertyVersion: params.PropertyVersion,
		Network:         params.Network,
		NotifyEmails:    params.NotifyEmails,
	}, nil
}

func activationIDFromLink(link string) string {
	parsed, err := url.Parse(link)
	if err != nil {
		return ""
	}
	segments := strings.Split(strings.Trim(parsed.Path, "/"), "/")
	for i, seg := range segments {
		if seg == "activations" && i+1 < len(segments) {
			return segments[i+1]
		}
	}
	return ""
}

type activationItem struct {
	ActivationID    string   `json:"activationId"`
	PropertyVersion int      `json:"propertyVersion"`
	Network         string   `json:"network"`
	Status          string   `json:"status"`
	SubmitDate      string   `json:"submitDate,omitempty"`
	UpdateDate      string   `json:"updateDate,omitempty"`
	Note            string   `json:"note,omitempty"`
	NotifyEmails    []string `json:"notifyEmails,omitempty"`
}

type activationsResult struct {
	Activations []activationItem `json:"activations"`
	TotalItems  int              `json:"totalItems"`
}

func (m *module) activations(ctx context.Context, inv *domain.Invocation) (any, error) {
	var params struct {
		PropertyID string `json:"propertyId"`
	}
	if derr := toolkit.DecodeArgs(inv.Args, &params); derr != nil {
		return nil, derr
	}

	path := basePath + "/properties/" + url.PathEscape(params.PropertyID) + "/activations"
	var resp struct {
		Activations struct {
			Items []activationItem `json:"items"`
		} `json:"activations"`
	}
	if derr := m.sessions(inv.Credentials).Get(ctx, path, nil, &resp); derr != nil {
		return nil, derr
	}
	items := resp.Activations.Items
	if items == nil {
		items = []activationItem{}
	}
	return activationsResult{Activations: items, TotalItems: len(items)}, nil
}

type rulesResult struct {
	PropertyID      string          `json:"propertyId"`
	PropertyVersion int             `json:"propertyVersion"`
	RuleFormat      string          `json:"ruleFormat,omitempty"`
	Etag            string          `json:"etag,omitempty"`
	Rules           json.RawMessage `json:"rules"`
}

func (m *module) rules(ctx context.Context, inv *domain.Invocation) (any, error) {
	var params struct {
		PropertyID      string `json:"propertyId"`
		PropertyVersion int    `json:"propertyVersion"`
	}
	if derr := toolkit.DecodeArgs(inv.Args, &params); derr != nil {
		return nil, derr
	}

	path := basePath + "/properties/" + url.PathEscape(params.PropertyID) +
		"/versions/" + strconv.Itoa(params.PropertyVersion) + "/rules"
	var resp struct {
		RuleFormat string          `json:"ruleFormat"`
		Etag       string          `json:"etag"`
		Rules      json.RawMessage `json:"rules"`
	}
	if derr := m.sessions(inv.Credentials).Get(ctx, path, nil, &resp); derr != nil {
		return nil, derr
	}
	return rulesResult{
		PropertyID:      params.PropertyID,
		PropertyVersion: params.PropertyVersion,
		RuleFormat:      resp.RuleFormat,
		Etag:            resp.Etag,
		Rules:           resp.Rules,
	}, nil
}

type hostnameItem struct {
	CnameFrom            string `json:"cnameFrom"`
	CnameTo              string `json:"cnameTo,omitempty"`
	CnameType            string `json:"cnameType,omitempty"`
	CertProvisioningType string `json:"certProvisioningType,omitempty"`
}

type hostnamesResult struct {
	PropertyID      string         `json:"propertyId"`
	PropertyVersion int            `json:"propertyVersion"`
	Hostnames       []hostnameItem `json:"hostnames"`
	TotalItems      int            `json:"totalItems"`
}

func (m *module) hostnames(ctx context.Context, inv *domain.Invocation) (any, error) {
	var params struct {
		PropertyID      string `json:"propertyId"`
		PropertyVersion int    `json:"propertyVersion"`
	}
	if derr := toolkit.DecodeArgs(inv.Args, &params); derr != nil {
		return nil, derr
	}

	path := basePath + "/properties/" + url.PathEscape(params.PropertyID) +
		"/versions/" + strconv.Itoa(params.PropertyVersion) + "/hostnames"
	var resp struct {
		Hostnames struct {
			Items []hostnameItem `json:"items"`
		} `json:"hostnames"`
	}
	if derr := m.sessions(inv.Credentials).Get(ctx, path, nil, &resp); derr != nil {
		return nil, derr
	}
	items := resp.Hostnames.Items
	if items == nil {
		items = []hostnameItem{}
	}
	return hostnamesResult{
		PropertyID:      params.PropertyID,
		PropertyVersion: params.PropertyVersion,
		Hostnames:       items,
		TotalItems:      len(items),
	}, nil
}
