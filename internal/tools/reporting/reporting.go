// Package reporting exposes delivery traffic reports. The report catalog is
// the one global cache entry in the server: it is static reference data and
// identical for every account.
package reporting

import (
	"context"
	"encoding/json"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/acedergren/alecs-mcp-server-akamai-sub006/internal/domain"
	"github.com/acedergren/alecs-mcp-server-akamai-sub006/internal/infra/edgegrid"
	"github.com/acedergren/alecs-mcp-server-akamai-sub006/internal/infra/registry"
	"github.com/acedergren/alecs-mcp-server-akamai-sub006/internal/tools/toolkit"
)

const (
	basePath = "/reporting-api/v1"

	trafficReport  = "bytes-by-cpcode"
	trafficVersion = 1
)

type module struct {
	sessions edgegrid.SessionFactory
}

// Register wires the reporting tools into the registry.
func Register(reg *registry.Registry, sessions edgegrid.SessionFactory) error {
	m := &module{sessions: sessions}
	defs := []domain.ToolDefinition{
		{
			Name:        "reporting_traffic",
			Description: "Report delivered bytes over a time window, optionally filtered to CP codes.",
			InputSchema: trafficSchema(),
			Handler:     m.traffic,
			Cacheable:   true,
			CacheTTL:    5 * time.Minute,
			Annotations: toolkit.ReadOnly("Traffic report"),
		},
		{
			Name:        "reporting_list_metrics",
			Description: "List the available report types and their metrics.",
			InputSchema: metricsSchema(),
			Handler:     m.listMetrics,
			Cacheable:   true,
			CacheTTL:    time.Hour,
			CacheScope:  domain.ScopeGlobal,
			Annotations: toolkit.ReadOnly("List report types"),
		},
	}
	for _, def := range defs {
		if err := reg.Register(def); err != nil {
			return err
		}
	}
	return nil
}

func trafficSchema() *jsonschema.Schema {
	return toolkit.Object(map[string]*jsonschema.Schema{
		"start":    toolkit.String("Window start, ISO 8601, e.g. 2026-08-01T00:00:00Z."),
		"end":      toolkit.String("Window end, ISO 8601."),
		"interval": toolkit.StringEnum("Aggregation interval. Defaults to HOUR.", "FIVE_MINUTES", "HOUR", "DAY"),
		"cpcodes":  toolkit.IntegerArray("CP codes to include. All traffic when omitted."),
	}, "start", "end")
}

func metricsSchema() *jsonschema.Schema {
	return toolkit.Object(map[string]*jsonschema.Schema{})
}

type trafficResult struct {
	Report   string          `json:"report"`
	Start    string          `json:"start"`
	End      string          `json:"end"`
	Interval string          `json:"interval"`
	Data     json.RawMessage `json:"data"`
	Summary  json.RawMessage `json:"summaryStatistics,omitempty"`
}

func (m *module) traffic(ctx context.Context, inv *domain.Invocation) (any, error) {
	var params struct {
		Start    string `json:"start"`
		End      string `json:"end"`
		Interval string `json:"interval"`
		CPCodes  []int  `json:"cpcodes"`
	}
	if derr := toolkit.DecodeArgs(inv.Args, &params); derr != nil {
		return nil, derr
	}
	if params.Interval == "" {
		params.Interval = "HOUR"
	}

	objectIDs := "all"
	if len(params.CPCodes) > 0 {
		codes := make([]string, len(params.CPCodes))
		for i, code := range params.CPCodes {
			codes[i] = strconv.Itoa(code)
		}
		objectIDs = strings.Join(codes, ",")
	}

	query := url.Values{}
	query.Set("start", params.Start)
	query.Set("end", params.End)
	query.Set("interval", params.Interval)
	query.Set("objectIds", objectIDs)

	path := basePath + "/reports/" + trafficReport +
		"/versions/" + strconv.Itoa(trafficVersion) +
		"/report-data?" + query.Encode()

	var resp struct {
		Data              json.RawMessage `json:"data"`
		SummaryStatistics json.RawMessage `json:"summaryStatistics"`
	}
	if derr := m.sessions(inv.Credentials).Get(ctx, path, nil, &resp); derr != nil {
		return nil, derr
	}
	return trafficResult{
		Report:   trafficReport,
		Start:    params.Start,
		End:      params.End,
		Interval: params.Interval,
		Data:     resp.Data,
		Summary:  resp.SummaryStatistics,
	}, nil
}

type reportInfo struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Status      string   `json:"status,omitempty"`
	Metrics     []string `json:"metrics,omitempty"`
}

type metricsResult struct {
	Reports    []reportInfo `json:"reports"`
	TotalItems int          `json:"totalItems"`
}

func (m *module) listMetrics(ctx context.Context, inv *domain.Invocation) (any, error) {
	var reports []reportInfo
	if derr := m.sessions(inv.Credentials).Get(ctx, basePath+"/reports", nil, &reports); derr != nil {
		return nil, derr
	}
	if reports == nil {
		reports = []reportInfo{}
	}
	return metricsResult{Reports: reports, TotalItems: len(reports)}, nil
}
