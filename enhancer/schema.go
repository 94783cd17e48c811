package enhancer

import (
	"encoding/json"

	"github.com/aluiziolira/go-enrich-products/models"
	"github.com/invopop/jsonschema"
	openai "github.com/openai/openai-go/v2"
)

// ResponseSchema reflects the JSON schema of the AI field set, narrowed with
// the category vocabulary and the documented score ranges.
func ResponseSchema() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	schema := reflector.Reflect(&models.AIFields{})

	setEnum(schema, "ai_main_category", categories)
	setEnum(schema, "ai_confidence", []string{"high", "medium", "low"})
	setEnum(schema, "ai_nutrition_grade", []string{"A", "B", "C", "D", "E"})
	setRange(schema, "ai_optimal_quantity", "1", "10")
	for _, name := range []string{"ai_health_score", "ai_additive_score", "ai_environmental_score"} {
		setRange(schema, name, "1", "100")
	}
	return schema
}

func responseFormat() openai.ChatCompletionNewParamsResponseFormatUnion {
	return openai.ChatCompletionNewParamsResponseFormatUnion{
		OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{
			JSONSchema: openai.ResponseFormatJSONSchemaJSONSchemaParam{
				Name:        "product_enhancement",
				Description: openai.String("AI enrichment fields for one retail product"),
				Schema:      ResponseSchema(),
				Strict:      openai.Bool(true),
			},
		},
	}
}

func setEnum(schema *jsonschema.Schema, property string, values []string) {
	prop, ok := schema.Properties.Get(property)
	if !ok {
		return
	}
	prop.Enum = make([]any, len(values))
	for i, v := range values {
		prop.Enum[i] = v
	}
}

func setRange(schema *jsonschema.Schema, property, lo, hi string) {
	prop, ok := schema.Properties.Get(property)
	if !ok {
		return
	}
	prop.Minimum = json.Number(lo)
	prop.Maximum = json.Number(hi)
}
