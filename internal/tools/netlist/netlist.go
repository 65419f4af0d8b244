// Package netlist exposes network list management: IP and GEO lists used by
// edge firewall policies, plus their activation to the networks.
package netlist

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/acedergren/alecs-mcp-server-akamai-sub006/internal/domain"
	"github.com/acedergren/alecs-mcp-server-akamai-sub006/internal/infra/edgegrid"
	"github.com/acedergren/alecs-mcp-server-akamai-sub006/internal/infra/registry"
	"github.com/acedergren/alecs-mcp-server-akamai-sub006/internal/tools/toolkit"
)

const basePath = "/network-list/v2"

type module struct {
	sessions edgegrid.SessionFactory
}

// Register wires the network list tools into the registry.
func Register(reg *registry.Registry, sessions edgegrid.SessionFactory) error {
	m := &module{sessions: sessions}
	defs := []domain.ToolDefinition{
		{
			Name:        "netlist_list",
			Description: "List network lists, optionally filtered by name or type.",
			InputSchema: listSchema(),
			Handler:     m.list,
			Cacheable:   true,
			CacheTTL:    5 * time.Minute,
			Annotations: toolkit.ReadOnly("List network lists"),
		},
		{
			Name:        "netlist_get",
			Description: "Fetch one network list including its elements.",
			InputSchema: getSchema(),
			Handler:     m.get,
			Cacheable:   true,
			CacheTTL:    5 * time.Minute,
			Annotations: toolkit.ReadOnly("Get network list"),
		},
		{
			Name:               "netlist_update",
			Description:        "Replace the elements of a network list.",
			InputSchema:        updateSchema(),
			Handler:            m.update,
			InvalidatePatterns: []string{"netlist:netlist_list", "netlist:netlist_get"},
			Annotations:        toolkit.Idempotent("Update network list"),
		},
		{
			Name:               "netlist_activate",
			Description:        "Activate a network list on staging or production.",
			InputSchema:        activateSchema(),
			Handler:            m.activate,
			InvalidatePatterns: []string{"netlist:netlist_get"},
			Timeout:            60 * time.Second,
			Annotations:        toolkit.Mutating("Activate network list"),
		},
	}
	for _, def := range defs {
		if err := reg.Register(def); err != nil {
			return err
		}
	}
	return nil
}

func listSchema() *jsonschema.Schema {
	return toolkit.Object(map[string]*jsonschema.Schema{
		"search":          toolkit.String("Substring filter on list names."),
		"listType":        toolkit.StringEnum("Restrict to one list type.", "IP", "GEO"),
		"includeElements": toolkit.Boolean("Include the element values in each result."),
	})
}

func getSchema() *jsonschema.Schema {
	return toolkit.Object(map[string]*jsonschema.Schema{
		"networkListId": toolkit.String("Network list identifier, e.g. 12345_BLOCKED."),
	}, "networkListId")
}

func updateSchema() *jsonschema.Schema {
	return toolkit.Object(map[string]*jsonschema.Schema{
		"networkListId": toolkit.String("Network list to update."),
		"name":          toolkit.String("List name. Unchanged when omitted."),
		"description":   toolkit.String("List description."),
		"syncPoint":     toolkit.Integer("Current sync point of the list; the update fails when stale."),
		"elements":      toolkit.StringArray("Full replacement element set, e.g. CIDR blocks or country codes."),
	}, "networkListId", "syncPoint", "elements")
}

func activateSchema() *jsonschema.Schema {
	return toolkit.Object(map[string]*jsonschema.Schema{
		"networkListId":          toolkit.String("Network list to activate."),
		"network":                toolkit.StringEnum("Target network.", "STAGING", "PRODUCTION"),
		"comments":               toolkit.String("Comment stored with the activation."),
		"notificationRecipients": toolkit.StringArray("Addresses notified when the activation completes."),
	}, "networkListId", "network")
}

type listItem struct {
	UniqueID     string   `json:"uniqueId"`
	Name         string   `json:"name"`
	Type         string   `json:"type"`
	ElementCount int      `json:"elementCount"`
	SyncPoint    int      `json:"syncPoint"`
	Description  string   `json:"description,omitempty"`
	Elements     []string `json:"list,omitempty"`
}

type listResult struct {
	NetworkLists []listItem `json:"networkLists"`
	TotalItems   int        `json:"totalItems"`
}

func (m *module) list(ctx context.Context, inv *domain.Invocation) (any, error) {
	var params struct {
		Search          string `json:"search"`
		ListType        string `json:"listType"`
		IncludeElements bool   `json:"includeElements"`
	}
	if derr := toolkit.DecodeArgs(inv.Args, &params); derr != nil {
		return nil, derr
	}

	path := basePath + "/network-lists"
	query := url.Values{}
	if params.Search != "" {
		query.Set("search", params.Search)
	}
	if params.ListType != "" {
		query.Set("listType", params.ListType)
	}
	if params.IncludeElements {
		query.Set("includeElements", "true")
	}
	if len(query) > 0 {
		path += "?" + query.Encode()
	}

	var resp struct {
		NetworkLists []listItem `json:"networkLists"`
	}
	if derr := m.sessions(inv.Credentials).Get(ctx, path, nil, &resp); derr != nil {
		return nil, derr
	}
	if resp.NetworkLists == nil {
		resp.NetworkLists = []listItem{}
	}
	return listResult{NetworkLists: resp.NetworkLists, TotalItems: len(resp.NetworkLists)}, nil
}

func (m *module) get(ctx context.Context, inv *domain.Invocation) (any, error) {
	var params struct {
		NetworkListID string `json:"networkListId"`
	}
	if derr := toolkit.DecodeArgs(inv.Args, &params); derr != nil {
		return nil, derr
	}

	path := basePath + "/network-lists/" + url.PathEscape(params.NetworkListID) + "?includeElements=true"
	var item listItem
	if derr := m.sessions(inv.Credentials).Get(ctx, path, nil, &item); derr != nil {
		return nil, derr
	}
	if item.UniqueID == "" {
		return nil, domain.E(domain.CodeNotFound, "netlist_get",
			fmt.Sprintf("network list %s not found", params.NetworkListID), nil)
	}
	return item, nil
}

func (m *module) update(ctx context.Context, inv *domain.Invocation) (any, error) {
	var params struct {
		NetworkListID string   `json:"networkListId"`
		Name          string   `json:"name"`
		Description   string   `json:"description"`
		SyncPoint     int      `json:"syncPoint"`
		Elements      []string `json:"elements"`
	}
	if derr := toolkit.DecodeArgs(inv.Args, &params); derr != nil {
		return nil, derr
	}
	if len(params.Elements) == 0 {
		return nil, domain.E(domain.CodeInvalidParams, "netlist_update",
			"elements needs at least one value; deleting a list is a separate operation", nil)
	}

	body := map[string]any{
		"syncPoint": params.SyncPoint,
		"list":      params.Elements,
	}
	if params.Name != "" {
		body["name"] = params.Name
	}
	if params.Description != "" {
		body["description"] = params.Description
	}

	path := basePath + "/network-lists/" + url.PathEscape(params.NetworkListID)
	var updated listItem
	if derr := m.sessions(inv.Credentials).Put(ctx, path, body, &updated); derr != nil {
		return nil, derr
	}
	if updated.UniqueID == "" {
		updated.UniqueID = params.NetworkListID
		updated.Elements = params.Elements
		updated.ElementCount = len(params.Elements)
	}
	return updated, nil
}

type activateResult struct {
	NetworkListID    string `json:"networkListId"`
	Network          string `json:"network"`
	ActivationID     int    `json:"activationId,omitempty"`
	ActivationStatus string `json:"activationStatus,omitempty"`
	SyncPoint        int    `json:"syncPoint,omitempty"`
}

func (m *module) activate(ctx context.Context, inv *domain.Invocation) (any, error) {
	var params struct {
		NetworkListID          string   `json:"networkListId"`
		Network                string   `json:"network"`
		Comments               string   `json:"comments"`
		NotificationRecipients []string `json:"notificationRecipients"`
	}
	if derr := toolkit.DecodeArgs(inv.Args, &params); derr != nil {
		return nil, derr
	}

	body := map[string]any{}
	if params.Comments != "" {
		body["comments"] = params.Comments
	}
	if len(params.NotificationRecipients) > 0 {
		body["notificationRecipients"] = params.NotificationRecipients
	}

	path := basePath + "/network-lists/" + url.PathEscape(params.NetworkListID) +
		"/environments/" + params.Network + "/activate"
	var resp struct {
		ActivationID     int    `json:"activationId"`
		ActivationStatus string `json:"activationStatus"`
		SyncPoint        int    `json:"syncPoint"`
	}
	if derr := m.sessions(inv.Credentials).Post(ctx, path, body, &resp); derr != nil {
		return nil, derr
	}
	return activateResult{
		NetworkListID:    params.NetworkListID,
		Network:          params.Network,
		ActivationID:     resp.ActivationID,
		ActivationStatus: resp.ActivationStatus,
		SyncPoint:        resp.SyncPoint,
	}, nil
}
