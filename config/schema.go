// Package config embeds the JSON schema that configuration files and the
// entries of a tasks file are validated against.
//
//go:generate go run ../build/gen-config-schema.go schema.json
package config

import _ "embed"

// SchemaFile is the resource name the schema is compiled under. Validation
// errors refer to locations within it.
const SchemaFile = "schema.json"

//go:embed schema.json
var schema []byte

// Schema returns the task configuration schema generated from the typed
// bundle options.
func Schema() []byte {
	return schema
}
