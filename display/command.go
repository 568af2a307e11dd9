package display

import (
	"fmt"

	"github.com/spf13/cobra"
)

// OutputFormat resolves the output format for a command from its --output
// flag, falling back to the root command's persistent flag, then to text.
func OutputFormat(cmd *cobra.Command) string {
	// Handle nil command gracefully (e.g., when called from result rendering without command context)
	if cmd == nil {
		return FormatText
	}

	// Check if --output flag was explicitly set on this command
	if cmd.Flags().Changed("output") {
		if format, _ := cmd.Flags().GetString("output"); format != "" {
			return format
		}
	}

	// Check global --output flag
	if format, _ := cmd.Root().PersistentFlags().GetString("output"); format != "" {
		return format
	}

	return FormatText
}

// Structured reports whether format requires machine-readable rendering
// instead of the command's own text output.
func Structured(format string) bool {
	return format == FormatJSON || format == FormatYAML
}

// OutputJSON marshals and prints JSON using display.MarshalJSON
func OutputJSON(v interface{}) error {
	data, err := MarshalJSON(v)
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	fmt.Println(string(data))
	return nil
}
