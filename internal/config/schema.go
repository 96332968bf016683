package config

import (
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed schema.json
var schemaJSON []byte

// ErrSchemaValidation is returned when a decoded config document fails
// schema validation (unknown enum value, wrong field type, out-of-range
// threshold, etc).
var ErrSchemaValidation = errors.New("config schema validation failed")

// ValidateDocument checks a decoded JSON config document (before it is
// unmarshaled into Config) against the embedded schema. raw must be valid
// JSON, which is why Load normalizes JSON5/YAML/TOML into JSON first.
func ValidateDocument(raw []byte) error {
	schemaLoader := gojsonschema.NewBytesLoader(schemaJSON)
	docLoader := gojsonschema.NewBytesLoader(raw)

	result, err := gojsonschema.Validate(schemaLoader, docLoader)
	if err != nil {
		return fmt.Errorf("evaluate config schema: %w", err)
	}

	if result.Valid() {
		return nil
	}

	messages := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		messages = append(messages, e.String())
	}

	return fmt.Errorf("%w: %s", ErrSchemaValidation, strings.Join(messages, "; "))
}
