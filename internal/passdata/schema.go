package passdata

import (
	_ "embed"
	"fmt"
	"sync"

	"github.com/kaptinlin/jsonschema"

	"github.com/vbncursed/vkr/pass-service/internal/apperr"
)

//go:embed pass.schema.json
var passSchemaJSON []byte

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

func loadSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		schema, schemaErr = compiler.Compile(passSchemaJSON)
		if schemaErr != nil {
			schemaErr = fmt.Errorf("compile pass schema: %w", schemaErr)
		}
	})
	return schema, schemaErr
}

// ValidateDocument checks serialized pass.json against the embedded schema.
func ValidateDocument(data []byte) error {
	s, err := loadSchema()
	if err != nil {
		return apperr.Wrap(err, apperr.CategoryFatal, apperr.StageAssemble, "pass_schema_unavailable", "pass schema could not be loaded")
	}
	result := s.ValidateJSON(data)
	if result.IsValid() {
		return nil
	}
	return apperr.Wrap(fmt.Errorf("%v", result.Errors), apperr.CategoryInvalidInput, apperr.StageAssemble,
		"pass_schema", "pass document is missing required content")
}
