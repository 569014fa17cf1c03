package arbiter

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// inputSchema validates arbitration input documents before they reach the
// resolution algorithm. Unknown fields are rejected so a typo in a limit
// name cannot silently weaken a policy.
const inputSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["contributions"],
  "additionalProperties": false,
  "properties": {
    "contributions": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["policy_id"],
        "additionalProperties": false,
        "properties": {
          "policy_id": {"type": "string", "minLength": 1},
          "limits": {
            "type": "object",
            "additionalProperties": false,
            "properties": {
              "tokens": {"type": "number", "minimum": 0},
              "cost": {"type": "number", "minimum": 0},
              "burn_rate": {"type": "number", "minimum": 0}
            }
          },
          "breach_action": {"enum": ["pause", "stop", "kill"]}
        }
      }
    }
  }
}`

var compiledInputSchema = jsonschema.MustCompileString("arbitration_input.json", inputSchema)

// ParseInput validates raw JSON against the input schema and unmarshals
// it.
func ParseInput(raw []byte) (Input, error) {
	var doc any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return Input{}, fmt.Errorf("arbiter: input is not valid JSON: %w", err)
	}
	if err := compiledInputSchema.Validate(doc); err != nil {
		return Input{}, fmt.Errorf("arbiter: input rejected by schema: %w", err)
	}
	var in Input
	if err := json.Unmarshal(raw, &in); err != nil {
		return Input{}, fmt.Errorf("arbiter: decode input: %w", err)
	}
	return in, nil
}
