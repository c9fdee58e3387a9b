package router

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed request.schema.json
var requestSchemaJSON string

const requestSchemaURL = "https://objsearch.local/schemas/request.schema.json"

func compileRequestSchema() (*jsonschema.Schema, error) {
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	if err := c.AddResource(requestSchemaURL, strings.NewReader(requestSchemaJSON)); err != nil {
		return nil, fmt.Errorf("router: load request schema: %w", err)
	}
	schema, err := c.Compile(requestSchemaURL)
	if err != nil {
		return nil, fmt.Errorf("router: compile request schema: %w", err)
	}
	return schema, nil
}
