package config

import (
	"bytes"
	"encoding/json"

	"github.com/santhosh-tekuri/jsonschema/v6"
	schemareflector "github.com/swaggest/jsonschema-go"

	ext_config "github.com/taskkit/bundletask/config"
)

var rootSchema *jsonschema.Schema

func init() {
	js, err := jsonschema.UnmarshalJSON(bytes.NewReader(ext_config.Schema()))
	if err != nil {
		panic(err)
	}
	compiler := jsonschema.NewCompiler()
	compiler.DefaultDraft(jsonschema.Draft2020)
	if err := compiler.AddResource(ext_config.SchemaFile, js); err != nil {
		panic(err)
	}

	rootSchema, err = compiler.Compile(ext_config.SchemaFile)
	if err != nil {
		panic(err)
	}
}

// Validate checks a configuration document against the embedded schema.
func Validate(data []byte) error {
	_, err := Parse(data)
	return err
}

// ValidateConfig checks an already decoded configuration against the
// embedded schema.
func ValidateConfig(cfg Config) error {
	return rootSchema.Validate(map[string]any(cfg))
}

func ReflectSchema() ([]byte, error) {
	reflector := schemareflector.Reflector{}

	s, err := reflector.Reflect(Options{})
	if err != nil {
		return nil, err
	}

	return json.MarshalIndent(s, "", "  ")
}

// The option groups may be left empty in YAML:
//
//	output:
//	resolve:
//
// which decodes to null rather than an empty mapping.
func (*Output) PrepareJSONSchema(schema *schemareflector.Schema) error {
	schema.AddType(schemareflector.Null)
	return nil
}

func (*Module) PrepareJSONSchema(schema *schemareflector.Schema) error {
	schema.AddType(schemareflector.Null)
	return nil
}

func (*Resolve) PrepareJSONSchema(schema *schemareflector.Schema) error {
	schema.AddType(schemareflector.Null)
	return nil
}

func (*ResolveLoader) PrepareJSONSchema(schema *schemareflector.Schema) error {
	schema.AddType(schemareflector.Null)
	return nil
}
