package services

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// Model output is validated against a JSON schema before decoding so a
// malformed response fails with a precise message instead of a partial
// unmarshal.

const questionsSchema = `{
	"type": "object",
	"required": ["questions"],
	"properties": {
		"totalCount": {"type": "integer"},
		"questions": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["question_text"],
				"properties": {
					"id": {"type": "string"},
					"question_text": {"type": "string"},
					"has_figure": {"type": "boolean"},
					"correct_answer": {"type": "string"},
					"explanation": {"type": "string"},
					"difficulty_level": {"type": "string"},
					"question_type": {"type": "string"},
					"domain": {"type": "string"},
					"skill": {"type": "string"},
					"is_complete": {"type": "boolean"},
					"notes": {"type": "string"},
					"options": {
						"type": "array",
						"items": {
							"type": "object",
							"required": ["id", "text"],
							"properties": {
								"id": {"type": "string"},
								"text": {"type": "string"}
							}
						}
					}
				}
			}
		}
	}
}`

const explanationsSchema = `{
	"type": "object",
	"required": ["explanations"],
	"properties": {
		"explanations": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["explanation"],
				"properties": {
					"id": {"type": "string"},
					"correct_answer": {"type": "string"},
					"explanation": {"type": "string"},
					"is_complete": {"type": "boolean"},
					"notes": {"type": "string"}
				}
			}
		}
	}
}`

func validateAgainstSchema(schema, document string) error {
	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(schema),
		gojsonschema.NewStringLoader(document),
	)
	if err != nil {
		return fmt.Errorf("schema validation: %w", err)
	}
	if result.Valid() {
		return nil
	}
	msgs := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		msgs = append(msgs, desc.String())
	}
	return fmt.Errorf("model output failed schema validation: %s", strings.Join(msgs, "; "))
}
