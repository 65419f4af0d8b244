package property

import (
	"github.com/google/jsonschema-go/jsonschema"

	"github.com/acedergren/alecs-mcp-server-akamai-sub006/internal/tools/toolkit"
)

func listSchema() *jsonschema.Schema {
	return toolkit.Object(map[string]*jsonschema.Schema{
		"contractId": toolkit.String("Contract the properties belong to, e.g. ctr_C-1ED34DY."),
		"groupId":    toolkit.String("Group the properties belong to, e.g. grp_12345."),
	}, "contractId", "groupId")
}

func getSchema() *jsonschema.Schema {
	return toolkit.Object(map[string]*jsonschema.Schema{
		"propertyId": toolkit.String("Property identifier, e.g. prp_12345."),
		"contractId": toolkit.String("Contract to scope the lookup to."),
		"groupId":    toolkit.String("Group to scope the lookup to."),
	}, "propertyId")
}

func createSchema() *jsonschema.Schema {
	return toolkit.Object(map[string]*jsonschema.Schema{
		"contractId":   toolkit.String("Contract the new property is billed under."),
		"groupId":      toolkit.String("Group the new property lives in."),
		"productId":    toolkit.String("Product the property is provisioned on, e.g. prd_Fresca."),
		"propertyName": toolkit.String("Human readable name for the new property."),
		"ruleFormat":   toolkit.String("Rule format version to pin, e.g. v2024-02-12. Defaults to the latest."),
	}, "contractId", "groupId", "productId", "propertyName")
}

func activateSchema() *jsonschema.Schema {
	return toolkit.Object(map[string]*jsonschema.Schema{
		"propertyId":      toolkit.String("Property to activate."),
		"propertyVersion": toolkit.Integer("Version number to push."),
		"network":         toolkit.StringEnum("Target network.", "STAGING", "PRODUCTION"),
		"note":            toolkit.String("Activation note shown in the activation history."),
		"notifyEmails":    toolkit.StringArray("Addresses notified when the activation completes."),
	}, "propertyId", "propertyVersion", "network")
}

func activationsListSchema() *jsonschema.Schema {
	return toolkit.Object(map[string]*jsonschema.Schema{
		"propertyId": toolkit.String("Property whose activation history to list."),
	}, "propertyId")
}

func rulesGetSchema() *jsonschema.Schema {
	return toolkit.Object(map[string]*jsonschema.Schema{
		"propertyId":      toolkit.String("Property whose rule tree to fetch."),
		"propertyVersion": toolkit.Integer("Version of the rule tree."),
	}, "propertyId", "propertyVersion")
}

func hostnamesListSchema() *jsonschema.Schema {
	return toolkit.Object(map[string]*jsonschema.Schema{
		"propertyId":      toolkit.String("Property whose hostname mappings to list."),
		"propertyVersion": toolkit.Integer("Version of the hostname set."),
	}, "propertyId", "propertyVersion")
}
