// Package dns exposes Edge DNS zone and record set management.
package dns

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/acedergren/alecs-mcp-server-akamai-sub006/internal/domain"
	"github.com/acedergren/alecs-mcp-server-akamai-sub006/internal/infra/edgegrid"
	"github.com/acedergren/alecs-mcp-server-akamai-sub006/internal/infra/registry"
	"github.com/acedergren/alecs-mcp-server-akamai-sub006/internal/tools/toolkit"
)

const basePath = "/config-dns/v2"

type module struct {
	sessions edgegrid.SessionFactory
}

// Register wires the Edge DNS tools into the registry.
func Register(reg *registry.Registry, sessions edgegrid.SessionFactory) error {
	m := &module{sessions: sessions}
	defs := []domain.ToolDefinition{
		{
			Name:        "dns_zone_list",
			Description: "List DNS zones visible to the account.",
			InputSchema: zoneListSchema(),
			Handler:     m.zoneList,
			Cacheable:   true,
			CacheTTL:    5 * time.Minute,
			Annotations: toolkit.ReadOnly("List DNS zones"),
		},
		{
			Name:        "dns_zone_get",
			Description: "Fetch one DNS zone with its activation state.",
			InputSchema: zoneGetSchema(),
			Handler:     m.zoneGet,
			Cacheable:   true,
			CacheTTL:    5 * time.Minute,
			Annotations: toolkit.ReadOnly("Get DNS zone"),
		},
		{
			Name:               "dns_zone_create",
			Description:        "Create a DNS zone.",
			InputSchema:        zoneCreateSchema(),
			Handler:            m.zoneCreate,
			InvalidatePatterns: []string{"dns:dns_zone_list"},
			Annotations:        toolkit.Mutating("Create DNS zone"),
		},
		{
			Name:        "dns_record_list",
			Description: "List the record sets of a zone.",
			InputSchema: recordListSchema(),
			Handler:     m.recordList,
			Cacheable:   true,
			CacheTTL:    time.Minute,
			Annotations: toolkit.ReadOnly("List DNS record sets"),
		},
		{
			Name:               "dns_record_upsert",
			Description:        "Create or replace one record set.",
			InputSchema:        recordUpsertSchema(),
			Handler:            m.recordUpsert,
			InvalidatePatterns: []string{"dns:dns_record_list", "dns:dns_zone_get"},
			Annotations:        toolkit.Idempotent("Upsert DNS record set"),
		},
		{
			Name:               "dns_record_delete",
			Description:        "Delete one record set.",
			InputSchema:        recordDeleteSchema(),
			Handler:            m.recordDelete,
			InvalidatePatterns: []string{"dns:dns_record_list", "dns:dns_zone_get"},
			Annotations:        toolkit.Destructive("Delete DNS record set"),
		},
	}
	for _, def := range defs {
		if err := reg.Register(def); err != nil {
			return err
		}
	}
	return nil
}

type zoneItem struct {
	Zone            string `json:"zone"`
	Type            string `json:"type"`
	ContractID      string `json:"contractId,omitempty"`
	Comment         string `json:"comment,omitempty"`
	ActivationState string `json:"activationState,omitempty"`
	VersionID       string `json:"versionId,omitempty"`
	SignAndServe    bool   `json:"signAndServe,omitempty"`
}

type zoneListResult struct {
	Zones      []zoneItem `json:"zones"`
	TotalItems int        `json:"totalItems"`
}

func (m *module) zoneList(ctx context.Context, inv *domain.Invocation) (any, error) {
	var params struct {
		Search      string `json:"search"`
		ContractIDs string `json:"contractIds"`
	}
	if derr := toolkit.DecodeArgs(inv.Args, &params); derr != nil {
		return nil, derr
	}

	path := basePath + "/zones"
	query := url.Values{}
	if params.Search != "" {
		query.Set("search", params.Search)
	}
	if params.ContractIDs != "" {
		query.Set("contractIds", params.ContractIDs)
	}
	if len(query) > 0 {
		path += "?" + query.Encode()
	}

	var resp struct {
		Zones []zoneItem `json:"zones"`
	}
	if derr := m.sessions(inv.Credentials).Get(ctx, path, nil, &resp); derr != nil {
		return nil, derr
	}
	if resp.Zones == nil {
		resp.Zones = []zoneItem{}
	}
	return zoneListResult{Zones: resp.Zones, TotalItems: len(resp.Zones)}, nil
}

func (m *module) zoneGet(ctx context.Context, inv *domain.Invocation) (any, error) {
	var params struct {
		Zone string `json:"zone"`
	}
	if derr := toolkit.DecodeArgs(inv.Args, &params); derr != nil {
		return nil, derr
	}

	var zone zoneItem
	derr := m.sessions(inv.Credentials).Get(ctx, basePath+"/zones/"+url.PathEscape(params.Zone), nil, &zone)
	if derr != nil {
		return nil, derr
	}
	if zone.Zone == "" {
		return nil, domain.E(domain.CodeNotFound, "dns_zone_get",
			fmt.Sprintf("zone %s not found", params.Zone), nil)
	}
	return zone, nil
}

func (m *module) zoneCreate(ctx context.Context, inv *domain.Invocation) (any, error) {
	var params struct {
		Zone       string   `json:"zone"`
		Type       string   `json:"type"`
		ContractID string   `json:"contractId"`
		Comment    string   `json:"comment"`
		Masters    []string `json:"masters"`
	}
	if derr := toolkit.DecodeArgs(inv.Args, &params); derr != nil {
		return nil, derr
	}
	if params.Type == "SECONDARY" && len(params.Masters) == 0 {
		return nil, domain.E(domain.CodeInvalidParams, "dns_zone_create",
			"SECONDARY zones need at least one master name server", nil)
	}

	body := map[string]any{
		"zone": params.Zone,
		"type": params.Type,
	}
	if params.Comment != "" {
		body["comment"] = params.Comment
	}
	if len(params.Masters) > 0 {
		body["masters"] = params.Masters
	}

	query := url.Values{}
	query.Set("contractId", params.ContractID)

	var created zoneItem
	derr := m.sessions(inv.Credentials).Post(ctx, basePath+"/zones?"+query.Encode(), body, &created)
	if derr != nil {
		return nil, derr
	}
	if created.Zone == "" {
		created.Zone = params.Zone
		created.Type = params.Type
	}
	return created, nil
}

type recordSet struct {
	Name  string   `json:"name"`
	Type  string   `json:"type"`
	TTL   int      `json:"ttl"`
	Rdata []string `json:"rdata"`
}

type recordListResult struct {
	Zone       string      `json:"zone"`
	Recordsets []recordSet `json:"recordsets"`
	TotalItems int         `json:"totalItems"`
}

func (m *module) recordList(ctx context.Context, inv *domain.Invocation) (any, error) {
	var params struct {
		Zone   string `json:"zone"`
		Search string `json:"search"`
		Types  string `json:"types"`
	}
	if derr := toolkit.DecodeArgs(inv.Args, &params); derr != nil {
		return nil, derr
	}

	path := basePath + "/zones/" + url.PathEscape(params.Zone) + "/recordsets"
	query := url.Values{}
	if params.Search != "" {
		query.Set("search", params.Search)
	}
	if params.Types != "" {
		query.Set("types", params.Types)
	}
	if len(query) > 0 {
		path += "?" + query.Encode()
	}

	var resp struct {
		Recordsets []recordSet `json:"recordsets"`
	}
	if derr := m.sessions(inv.Credentials).Get(ctx, path, nil, &resp); derr != nil {
		return nil, derr
	}
	if resp.Recordsets == nil {
		resp.Recordsets = []recordSet{}
	}
	return recordListResult{
		Zone:       params.Zone,
		Recordsets: resp.Recordsets,
		TotalItems: len(resp.Recordsets),
	}, nil
}

type recordWriteResult struct {
	Zone   string   `json:"zone"`
	Name   string   `json:"name"`
	Type   string   `json:"type"`
	TTL    int      `json:"ttl,omitempty"`
	Rdata  []string `json:"rdata,omitempty"`
	Action string   `json:"action"`
}

func recordPath(zone, name, recordType string) string {
	return basePath + "/zones/" + url.PathEscape(zone) +
		"/names/" + url.PathEscape(name) +
		"/types/" + url.PathEscape(recordType)
}

func (m *module) recordUpsert(ctx context.Context, inv *domain.Invocation) (any, error) {
	var params struct {
		Zone  string   `json:"zone"`
		Name  string   `json:"name"`
		Type  string   `json:"type"`
		TTL   int      `json:"ttl"`
		Rdata []string `json:"rdata"`
	}
	if derr := toolkit.DecodeArgs(inv.Args, &params); derr != nil {
		return nil, derr
	}
	if params.TTL < 1 {
		return nil, domain.E(domain.CodeInvalidParams, "dns_record_upsert",
			"ttl must be a positive number of seconds", nil)
	}
	if len(params.Rdata) == 0 {
		return nil, domain.E(domain.CodeInvalidParams, "dns_record_upsert",
			"rdata needs at least one value", nil)
	}

	body := recordSet{Name: params.Name, Type: params.Type, TTL: params.TTL, Rdata: params.Rdata}
	derr := m.sessions(inv.Credentials).Put(ctx, recordPath(params.Zone, params.Name, params.Type), body, nil)
	if derr != nil {
		return nil, derr
	}
	return recordWriteResult{
		Zone: params.Zone, Name: params.Name, Type: params.Type,
		TTL: params.TTL, Rdata: params.Rdata, Action: "upserted",
	}, nil
}

func (m *module) recordDelete(ctx context.Context, inv *domain.Invocation) (any, error) {
	var params struct {
		Zone string `json:"zone"`
		Name string `json:"name"`
		Type string `json:"type"`
	}
	if derr := toolkit.DecodeArgs(inv.Args, &params); derr != nil {
		return nil, derr
	}

	derr := m.sessions(inv.Credentials).Delete(ctx, recordPath(params.Zone, params.Name, params.Type), nil, nil)
	if derr != nil {
		return nil, derr
	}
	return recordWriteResult{
		Zone: params.Zone, Name: params.Name, Type: params.Type, Action: "deleted",
	}, nil
}
