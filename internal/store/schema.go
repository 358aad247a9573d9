package store

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
)

// Schema returns the JSON Schema of the store file, for consumers such as the
// map visualisation that read it directly.
func Schema() ([]byte, error) {
	reflector := jsonschema.Reflector{
		DoNotReference: true,
		// Store files written by older tools may carry extra fields.
		AllowAdditionalProperties: true,
	}
	schema := reflector.Reflect(Document{})
	schema.Title = "peerwatch store"
	schema.Description = `Peers keyed by "<ip>|<direction>"`

	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema: %w", err)
	}
	return data, nil
}
