package dns

import (
	"github.com/google/jsonschema-go/jsonschema"

	"github.com/acedergren/alecs-mcp-server-akamai-sub006/internal/tools/toolkit"
)

func zoneListSchema() *jsonschema.Schema {
	return toolkit.Object(map[string]*jsonschema.Schema{
		"search":      toolkit.String("Substring filter on zone names."),
		"contractIds": toolkit.String("Comma separated contract identifiers to filter by."),
	})
}

func zoneGetSchema() *jsonschema.Schema {
	return toolkit.Object(map[string]*jsonschema.Schema{
		"zone": toolkit.String("Zone name, e.g. example.com."),
	}, "zone")
}

func zoneCreateSchema() *jsonschema.Schema {
	return toolkit.Object(map[string]*jsonschema.Schema{
		"zone":       toolkit.String("Zone name to create."),
		"type":       toolkit.StringEnum("Zone type.", "PRIMARY", "SECONDARY", "ALIAS"),
		"contractId": toolkit.String("Contract the zone is billed under."),
		"comment":    toolkit.String("Comment stored with the zone."),
		"masters":    toolkit.StringArray("Master name server addresses. Required for SECONDARY zones."),
	}, "zone", "type", "contractId")
}

func recordListSchema() *jsonschema.Schema {
	return toolkit.Object(map[string]*jsonschema.Schema{
		"zone":   toolkit.String("Zone whose record sets to list."),
		"search": toolkit.String("Substring filter on record names."),
		"types":  toolkit.String("Comma separated record types to include, e.g. A,CNAME."),
	}, "zone")
}

func recordUpsertSchema() *jsonschema.Schema {
	return toolkit.Object(map[string]*jsonschema.Schema{
		"zone":  toolkit.String("Zone the record set belongs to."),
		"name":  toolkit.String("Fully qualified record name, e.g. www.example.com."),
		"type":  toolkit.String("Record type, e.g. A, AAAA, CNAME, TXT."),
		"ttl":   toolkit.Integer("Time to live in seconds."),
		"rdata": toolkit.StringArray("Record data values."),
	}, "zone", "name", "type", "ttl", "rdata")
}

func recordDeleteSchema() *jsonschema.Schema {
	return toolkit.Object(map[string]*jsonschema.Schema{
		"zone": toolkit.String("Zone the record set belongs to."),
		"name": toolkit.String("Fully qualified record name to delete."),
		"type": toolkit.String("Record type to delete."),
	}, "zone", "name", "type")
}
