// Package purge exposes Fast Purge (CCU) invalidation by URL, CP code, and
// cache tag. Purges are fire and forget: the upstream queues them and reports
// an estimated completion time.
package purge

import (
	"context"
	"time"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/acedergren/alecs-mcp-server-akamai-sub006/internal/domain"
	"github.com/acedergren/alecs-mcp-server-akamai-sub006/internal/infra/edgegrid"
	"github.com/acedergren/alecs-mcp-server-akamai-sub006/internal/infra/registry"
	"github.com/acedergren/alecs-mcp-server-akamai-sub006/internal/tools/toolkit"
)

const (
	basePath       = "/ccu/v3"
	defaultNetwork = "production"
)

type module struct {
	sessions edgegrid.SessionFactory
}

// Register wires the fast purge tools into the registry. None of them cache
// or invalidate: a purge changes edge state, not control plane state.
func Register(reg *registry.Registry, sessions edgegrid.SessionFactory) error {
	m := &module{sessions: sessions}
	defs := []domain.ToolDefinition{
		{
			Name:        "purge_url",
			Description: "Invalidate cached objects by URL.",
			InputSchema: urlSchema(),
			Handler:     m.byURL,
			Timeout:     30 * time.Second,
			Annotations: toolkit.Destructive("Purge by URL"),
		},
		{
			Name:        "purge_cpcode",
			Description: "Invalidate every cached object under the given CP codes.",
			InputSchema: cpcodeSchema(),
			Handler:     m.byCPCode,
			Timeout:     30 * time.Second,
			Annotations: toolkit.Destructive("Purge by CP code"),
		},
		{
			Name:        "purge_tag",
			Description: "Invalidate cached objects carrying the given cache tags.",
			InputSchema: tagSchema(),
			Handler:     m.byTag,
			Timeout:     30 * time.Second,
			Annotations: toolkit.Destructive("Purge by cache tag"),
		},
	}
	for _, def := range defs {
		if err := reg.Register(def); err != nil {
			return err
		}
	}
	return nil
}

func networkSchema() *jsonschema.Schema {
	return toolkit.StringEnum("Network to purge on. Defaults to production.", "staging", "production")
}

func urlSchema() *jsonschema.Schema {
	return toolkit.Object(map[string]*jsonschema.Schema{
		"urls":    toolkit.StringArray("Fully qualified URLs to invalidate."),
		"network": networkSchema(),
	}, "urls")
}

func cpcodeSchema() *jsonschema.Schema {
	return toolkit.Object(map[string]*jsonschema.Schema{
		"cpcodes": toolkit.IntegerArray("CP codes whose cached objects to invalidate."),
		"network": networkSchema(),
	}, "cpcodes")
}

func tagSchema() *jsonschema.Schema {
	return toolkit.Object(map[string]*jsonschema.Schema{
		"tags":    toolkit.StringArray("Cache tags to invalidate."),
		"network": networkSchema(),
	}, "tags")
}

type purgeResponse struct {
	PurgeID          string `json:"purgeId"`
	EstimatedSeconds int    `json:"estimatedSeconds"`
	HTTPStatus       int    `json:"httpStatus"`
	Detail           string `json:"detail"`
	SupportID        string `json:"supportId"`
}

type purgeResult struct {
	PurgeID          string `json:"purgeId"`
	Network          string `json:"network"`
	ObjectType       string `json:"objectType"`
	ObjectCount      int    `json:"objectCount"`
	EstimatedSeconds int    `json:"estimatedSeconds"`
	Detail           string `json:"detail,omitempty"`
	SupportID        string `json:"supportId,omitempty"`
}

// invalidate posts one purge request. objectType picks the CCU endpoint:
// url, cpcode, or tag.
func (m *module) invalidate(ctx context.Context, inv *domain.Invocation, objectType, network string, objects []any) (any, error) {
	if len(objects) == 0 {
		return nil, domain.E(domain.CodeInvalidParams, "purge",
			"nothing to purge: the object list is empty", nil)
	}
	if network == "" {
		network = defaultNetwork
	}

	body := map[string]any{"objects": objects}
	path := basePath + "/invalidate/" + objectType + "/" + network

	var resp purgeResponse
	if derr := m.sessions(inv.Credentials).Post(ctx, path, body, &resp); derr != nil {
		return nil, derr
	}
	return purgeResult{
		PurgeID:          resp.PurgeID,
		Network:          network,
		ObjectType:       objectType,
		ObjectCount:      len(objects),
		EstimatedSeconds: resp.EstimatedSeconds,
		Detail:           resp.Detail,
		SupportID:        resp.SupportID,
	}, nil
}

func (m *module) byURL(ctx context.Context, inv *domain.Invocation) (any, error) {
	var params struct {
		URLs    []string `json:"urls"`
		Network string   `json:"network"`
	}
	if derr := toolkit.DecodeArgs(inv.Args, &params); derr != nil {
		return nil, derr
	}
	objects := make([]any, len(params.URLs))
	for i, u := range params.URLs {
		objects[i] = u
	}
	return m.invalidate(ctx, inv, "url", params.Network, objects)
}

func (m *module) byCPCode(ctx context.Context, inv *domain.Invocation) (any, error) {
	var params struct {
		CPCodes []int  `json:"cpcodes"`
		Network string `json:"network"`
	}
	if derr := toolkit.DecodeArgs(inv.Args, &params); derr != nil {
		return nil, derr
	}
	objects := make([]any, len(params.CPCodes))
	for i, code := range params.CPCodes {
		objects[i] = code
	}
	return m.invalidate(ctx, inv, "cpcode", params.Network, objects)
}

func (m *module) byTag(ctx context.Context, inv *domain.Invocation) (any, error) {
	var params struct {
		Tags    []string `json:"tags"`
		Network string   `json:"network"`
	}
	if derr := toolkit.DecodeArgs(inv.Args, &params); derr != nil {
		return nil, derr
	}
	objects := make([]any, len(params.Tags))
	for i, tag := range params.Tags {
		objects[i] = tag
	}
	return m.invalidate(ctx, inv, "tag", params.Network, objects)
}
