package config

import (
	_ "embed"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed spell.schema.json
var spellSchemaJSON string

var spellSchema = jsonschema.MustCompileString("spell.schema.json", spellSchemaJSON)
