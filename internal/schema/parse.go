package schema

import (
	"bytes"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Parse decodes an experiment schema from JSON or YAML and validates it.
// The returned experiment has passed every invariant in Validate and carries
// any feasibility warnings on its tables.
func Parse(data []byte) (*Experiment, error) {
	var exp Experiment

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		if err := json.Unmarshal(trimmed, &exp); err != nil {
			return nil, fmt.Errorf("failed to decode schema JSON: %w", err)
		}
	} else {
		if err := yaml.Unmarshal(data, &exp); err != nil {
			return nil, fmt.Errorf("failed to decode schema YAML: %w", err)
		}
	}

	if err := exp.Validate(); err != nil {
		return nil, err
	}
	return &exp, nil
}
