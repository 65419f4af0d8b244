// Package certs exposes CPS certificate enrollment tools: listing and
// creating enrollments and reading their network deployment status.
package certs

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/acedergren/alecs-mcp-server-akamai-sub006/internal/domain"
	"github.com/acedergren/alecs-mcp-server-akamai-sub006/internal/infra/edgegrid"
	"github.com/acedergren/alecs-mcp-server-akamai-sub006/internal/infra/registry"
	"github.com/acedergren/alecs-mcp-server-akamai-sub006/internal/tools/toolkit"
)

const basePath = "/cps/v2"

type module struct {
	sessions edgegrid.SessionFactory
}

// Register wires the certificate tools into the registry. The tool names
// start with cert_ while the cache domain is certs, so every definition sets
// Domain explicitly.
func Register(reg *registry.Registry, sessions edgegrid.SessionFactory) error {
	m := &module{sessions: sessions}
	defs := []domain.ToolDefinition{
		{
			Name:        "cert_enrollment_list",
			Domain:      "certs",
			Description: "List certificate enrollments.",
			InputSchema: listSchema(),
			Handler:     m.list,
			Cacheable:   true,
			CacheTTL:    5 * time.Minute,
			Annotations: toolkit.ReadOnly("List certificate enrollments"),
		},
		{
			Name:               "cert_enrollment_create",
			Domain:             "certs",
			Description:        "Create a certificate enrollment.",
			InputSchema:        createSchema(),
			Handler:            m.create,
			InvalidatePatterns: []string{"certs:cert_enrollment_list"},
			Annotations:        toolkit.Mutating("Create certificate enrollment"),
		},
		{
			Name:        "cert_deployment_status",
			Domain:      "certs",
			Description: "Report where an enrollment's certificate is deployed.",
			InputSchema: statusSchema(),
			Handler:     m.deployments,
			Annotations: toolkit.ReadOnly("Get certificate deployment status"),
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
		"contractId": toolkit.String("Contract to list enrollments for."),
	})
}

func createSchema() *jsonschema.Schema {
	return toolkit.Object(map[string]*jsonschema.Schema{
		"contractId":     toolkit.String("Contract the enrollment is billed under."),
		"commonName":     toolkit.String("Certificate common name, e.g. www.example.com."),
		"sans":           toolkit.StringArray("Additional subject alternative names."),
		"validationType": toolkit.StringEnum("Validation level for the certificate.", "dv", "ov", "ev", "third-party"),
	}, "contractId", "commonName", "validationType")
}

func statusSchema() *jsonschema.Schema {
	return toolkit.Object(map[string]*jsonschema.Schema{
		"enrollmentId": toolkit.String("Enrollment identifier, e.g. 10002."),
	}, "enrollmentId")
}

type enrollmentItem struct {
	EnrollmentID    string   `json:"enrollmentId"`
	Location        string   `json:"location"`
	CommonName      string   `json:"commonName"`
	SANs            []string `json:"sans,omitempty"`
	ValidationType  string   `json:"validationType,omitempty"`
	CertificateType string   `json:"certificateType,omitempty"`
	RA              string   `json:"ra,omitempty"`
	PendingChanges  []string `json:"pendingChanges,omitempty"`
}

type upstreamEnrollment struct {
	Location        string `json:"location"`
	RA              string `json:"ra"`
	ValidationType  string `json:"validationType"`
	CertificateType string `json:"certificateType"`
	CSR             struct {
		CN   string   `json:"cn"`
		SANs []string `json:"sans"`
	} `json:"csr"`
	PendingChanges []string `json:"pendingChanges"`
}

func (u upstreamEnrollment) flatten() enrollmentItem {
	return enrollmentItem{
		EnrollmentID:    enrollmentIDFromLink(u.Location),
		Location:        u.Location,
		CommonName:      u.CSR.CN,
		SANs:            u.CSR.SANs,
		ValidationType:  u.ValidationType,
		CertificateType: u.CertificateType,
		RA:              u.RA,
		PendingChanges:  u.PendingChanges,
	}
}

// enrollmentIDFromLink pulls the numeric identifier out of a CPS link such as
// "/cps/v2/enrollments/10002".
func enrollmentIDFromLink(link string) string {
	parsed, err := url.Parse(link)
	if err != nil {
		return ""
	}
	segments := strings.Split(strings.Trim(parsed.Path, "/"), "/")
	for i, seg := range segments {
		if seg == "enrollments" && i+1 < len(segments) {
			return segments[i+1]
		}
	}
	return ""
}

type listResult struct {
	Enrollments []enrollmentItem `json:"enrollments"`
	TotalItems  int              `json:"totalItems"`
}

func (m *module) list(ctx context.Context, inv *domain.Invocation) (any, error) {
	var params struct {
		ContractID string `json:"contractId"`
	}
	if derr := toolkit.DecodeArgs(inv.Args, &params); derr != nil {
		return nil, derr
	}

	path := basePath + "/enrollments"
	if params.ContractID != "" {
		query := url.Values{}
		query.Set("contractId", params.ContractID)
		path += "?" + query.Encode()
	}

	var resp struct {
		Enrollments []upstreamEnrollment `json:"enrollments"`
	}
	if derr := m.sessions(inv.Credentials).Get(ctx, path, nil, &resp); derr != nil {
		return nil, derr
	}

	items := make([]enrollmentItem, 0, len(resp.Enrollments))
	for _, e := range resp.Enrollments {
		items = append(items, e.flatten())
	}
	return listResult{Enrollments: items, TotalItems: len(items)}, nil
}

type createResult struct {
	EnrollmentID   string   `json:"enrollmentId"`
	EnrollmentLink string   `json:"enrollmentLink"`
	CommonName     string   `json:"commonName"`
	SANs           []string `json:"sans,omitempty"`
	ValidationType string   `json:"validationType"`
	Changes        []string `json:"changes,omitempty"`
}

func (m *module) create(ctx context.Context, inv *domain.Invocation) (any, error) {
	var params struct {
		ContractID     string   `json:"contractId"`
		CommonName     string   `json:"commonName"`
		SANs           []string `json:"sans"`
		ValidationType string   `json:"validationType"`
	}
	if derr := toolkit.DecodeArgs(inv.Args, &params); derr != nil {
		return nil, derr
	}

	query := url.Values{}
	query.Set("contractId", params.ContractID)

	body := map[string]any{
		"csr": map[string]any{
			"cn":   params.CommonName,
			"sans": params.SANs,
		},
		"validationType":  params.ValidationType,
		"certificateType": "san",
		"networkConfiguration": map[string]any{
			"geography": "core",
		},
	}

	var resp struct {
		Enrollment string   `json:"enrollment"`
		Changes    []string `json:"changes"`
	}
	if derr := m.sessions(inv.Credentials).Post(ctx, basePath+"/enrollments?"+query.Encode(), body, &resp); derr != nil {
		return nil, derr
	}
	return createResult{
		EnrollmentID:   enrollmentIDFromLink(resp.Enrollment),
		EnrollmentLink: resp.Enrollment,
		CommonName:     params.CommonName,
		SANs:           params.SANs,
		ValidationType: params.ValidationType,
		Changes:        resp.Changes,
	}, nil
}

type deployedCertificate struct {
	Expiry             string `json:"expiry,omitempty"`
	SignatureAlgorithm string `json:"signatureAlgorithm,omitempty"`
}

type deploymentResult struct {
	EnrollmentID string               `json:"enrollmentId"`
	Production   *deployedCertificate `json:"production,omitempty"`
	Staging      *deployedCertificate `json:"staging,omitempty"`
}

func (m *module) deployments(ctx context.Context, inv *domain.Invocation) (any, error) {
	var params struct {
		EnrollmentID string `json:"enrollmentId"`
	}
	if derr := toolkit.DecodeArgs(inv.Args, &params); derr != nil {
		return nil, derr
	}

	type upstreamSide struct {
		PrimaryCertificate deployedCertificate `json:"primaryCertificate"`
	}
	var resp struct {
		Production *upstreamSide `json:"production"`
		Staging    *upstreamSide `json:"staging"`
	}
	path := basePath + "/enrollments/" + url.PathEscape(params.EnrollmentID) + "/deployments"
	if derr := m.sessions(inv.Credentials).Get(ctx, path, nil, &resp); derr != nil {
		return nil, derr
	}

	result := deploymentResult{EnrollmentID: params.EnrollmentID}
	if resp.Production != nil {
		cert := resp.Production.PrimaryCertificate
		result.Production = &cert
	}
	if resp.Staging != nil {
		cert := resp.Staging.PrimaryCertificate
		result.Staging = &cert
	}
	return result, nil
}
