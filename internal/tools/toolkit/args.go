package toolkit

import (
	"encoding/json"

	"github.com/acedergren/alecs-mcp-server-akamai-sub006/internal/domain"
)

// DecodeArgs maps validated arguments onto a typed parameter struct
// through a JSON round trip, so json tags drive the field mapping and
// undeclared keys (like the account selector) fall away.
func DecodeArgs(args map[string]any, into any) *domain.Error {
	raw, err := json.Marshal(args)
	if err != nil {
		return domain.E(domain.CodeInvalidParams, "toolkit.DecodeArgs", "arguments are not serializable", err)
	}
	if err := json.Unmarshal(raw, into); err != nil {
		return domain.E(domain.CodeInvalidParams, "toolkit.DecodeArgs", "arguments do not match the declared shape", err)
	}
	return nil
}
