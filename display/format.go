// Package display renders CLI command output in the format the caller
// asked for. Text rendering stays with each command; this package owns
// the structured formats behind the --output flag.
package display

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Output formats accepted by the --output flag.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// MarshalJSON marshals v with pretty formatting for human-readable output
func MarshalJSON(v interface{}) ([]byte, error) {
	return json.MarshalIndent(v, "", "  ")
}

// Render prints v in the requested structured format. Callers handle
// FormatText themselves; anything else unrecognized is an error so typos
// in --output fail loudly instead of printing nothing.
func Render(format string, v interface{}) error {
	switch format {
	case FormatJSON:
		return OutputJSON(v)
	case FormatYAML:
		data, err := yaml.Marshal(v)
		if err != nil {
			return fmt.Errorf("failed to marshal YAML: %w", err)
		}
		fmt.Print(string(data))
		return nil
	default:
		return fmt.Errorf("unsupported output format: %q (supported: %s, %s, %s)",
			format, FormatText, FormatJSON, FormatYAML)
	}
}
