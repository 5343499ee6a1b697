package httpapi

import (
	"embed"
	"fmt"

	"github.com/xeipuuv/gojsonschema"

	"github.com/mesh-intelligence/gridbook/pkg/types"
)

//go:embed schemas/*.json
var schemaFS embed.FS

// Request schemas, compiled once.
var (
	writeSchema         = mustSchema("write.json")
	createSheetSchema   = mustSchema("create_sheet.json")
	renameSheetSchema   = mustSchema("rename_sheet.json")
	confirmImportSchema = mustSchema("confirm_import.json")
	filtersSchema       = mustSchema("filters.json")
)

func mustSchema(name string) *gojsonschema.Schema {
	data, err := schemaFS.ReadFile("schemas/" + name)
	if err != nil {
		panic(fmt.Sprintf("read schema %s: %v", name, err))
	}
	schema, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(data))
	if err != nil {
		panic(fmt.Sprintf("compile schema %s: %v", name, err))
	}
	return schema
}

// validate checks a JSON document against schema. The first violation is
// returned as a *types.FieldError.
func validate(schema *gojsonschema.Schema, doc []byte) error {
	result, err := schema.Validate(gojsonschema.NewBytesLoader(doc))
	if err != nil {
		return &types.FieldError{Message: fmt.Sprintf("malformed JSON: %v", err)}
	}
	if result.Valid() {
		return nil
	}
	first := result.Errors()[0]
	field := first.Field()
	if field == gojsonschema.STRING_CONTEXT_ROOT {
		field = ""
	}
	return &types.FieldError{Field: field, Message: first.Description()}
}
