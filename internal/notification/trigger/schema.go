package trigger

import (
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

// documentSchema is the minimum shape a record needs before any decision
// can be made about it.
var documentSchema = gojsonschema.NewGoLoader(map[string]interface{}{
	"type": "object",
	"anyOf": []interface{}{
		map[string]interface{}{
			"required": []interface{}{"$id"},
			"properties": map[string]interface{}{
				"$id": map[string]interface{}{"type": "string", "minLength": 1, "pattern": "\\S"},
			},
		},
		map[string]interface{}{
			"required": []interface{}{"id"},
			"properties": map[string]interface{}{
				"id": map[string]interface{}{"type": "string", "minLength": 1, "pattern": "\\S"},
			},
		},
	},
})

func validateDocument(doc map[string]interface{}) error {
	result, err := gojsonschema.Validate(documentSchema, gojsonschema.NewGoLoader(doc))
	if err != nil {
		return fmt.Errorf("validation error: %w", err)
	}

	if !result.Valid() {
		errs := make([]string, len(result.Errors()))
		for i, desc := range result.Errors() {
			errs[i] = desc.String()
		}
		return fmt.Errorf("document validation failed: %v", errs)
	}

	return nil
}
