package spans

import "encoding/json"

// SchemaName is the structured-output schema identifier sent with every
// batch request.
const SchemaName = "FigurasLinguagem"

const figureSchemaJSON = `{
  "type": "object",
  "properties": {
    "spans": {
      "type": "array",
      "title": "Spans",
      "items": { "$ref": "#/$defs/Span" }
    }
  },
  "required": ["spans"],
  "additionalProperties": false,
  "$defs": {
    "Span": {
      "type": "object",
      "title": "Span",
      "properties": {
        "label": {
          "type": "string",
          "title": "Label",
          "enum": [
            "metafora",
            "metonimia",
            "hiperbole",
            "ironia",
            "antitese",
            "paradoxo",
            "anafora",
            "aliteracao",
            "eufemismo",
            "gradacao",
            "prosopopeia",
            "pergunta_retórica",
            "apelo_popular",
            "analogia",
            "assonancia",
            "pleonasmo"
          ]
        },
        "start_char": { "type": "integer", "title": "Start Char", "minimum": 0 },
        "end_char": { "type": "integer", "title": "End Char", "minimum": 0 },
        "text": { "type": "string", "title": "Text" },
        "rationale": {
          "anyOf": [{ "type": "string" }, { "type": "null" }],
          "default": null,
          "title": "Rationale"
        },
        "cues": {
          "type": "array",
          "title": "Cues",
          "items": { "type": "string" },
          "default": []
        },
        "confidence": { "type": "number", "title": "Confidence", "minimum": 0, "maximum": 1 }
      },
      "required": ["label", "start_char", "end_char", "text", "rationale", "cues", "confidence"],
      "additionalProperties": false
    }
  }
}`

// FigureSchema is the strict JSON Schema constraining every response to
// one spans array of labeled character ranges.
var FigureSchema = mustParseSchema(figureSchemaJSON)

// Labels lists the figure types the schema admits, in schema order.
var Labels = []string{
	"metafora", "metonimia", "hiperbole", "ironia", "antitese", "paradoxo",
	"anafora", "aliteracao", "eufemismo", "gradacao", "prosopopeia",
	"pergunta_retórica", "apelo_popular", "analogia", "assonancia", "pleonasmo",
}

func mustParseSchema(rawSchema string) map[string]any {
	var schema map[string]any
	if err := json.Unmarshal([]byte(rawSchema), &schema); err != nil {
		panic(err)
	}
	return schema
}
