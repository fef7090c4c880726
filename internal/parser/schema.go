package parser

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// questionsSchema is the contract the model's parse output must satisfy before
// any of it is trusted. The response is an object (not a bare array) because
// JSON-object response mode requires an object root.
const questionsSchema = `{
  "type": "object",
  "properties": {
    "questions": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "properties": {
          "text": {"type": "string", "minLength": 1},
          "type": {"type": "string", "enum": ["CHOICE", "TEXT"]},
          "options": {
            "type": "array",
            "items": {
              "type": "object",
              "properties": {
                "key": {"type": "string", "minLength": 1},
                "text": {"type": "string"}
              },
              "required": ["key", "text"]
            }
          },
          "correctAnswer": {"type": "string", "minLength": 1},
          "points": {"type": "integer", "minimum": 1}
        },
        "required": ["text", "type", "correctAnswer"]
      }
    }
  },
  "required": ["questions"]
}`

var (
	schemaOnce     sync.Once
	schemaErr      error
	compiledSchema *jsonschema.Schema
)

// compiledQuestionsSchema compiles the schema once and caches it.
func compiledQuestionsSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		var def any
		if err := json.Unmarshal([]byte(questionsSchema), &def); err != nil {
			schemaErr = fmt.Errorf("parse schema definition: %w", err)
			return
		}
		c := jsonschema.NewCompiler()
		const schemaURL = "schema://questions.json"
		if err := c.AddResource(schemaURL, def); err != nil {
			schemaErr = fmt.Errorf("add schema resource: %w", err)
			return
		}
		compiledSchema, schemaErr = c.Compile(schemaURL)
	})
	return compiledSchema, schemaErr
}

// validateQuestionsJSON checks raw model output against the questions schema.
func validateQuestionsJSON(raw []byte) error {
	var parsed any
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	schema, err := compiledQuestionsSchema()
	if err != nil {
		return err
	}
	if err := schema.Validate(parsed); err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}
	return nil
}
