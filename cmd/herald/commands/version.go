package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/heraldai/herald/version"
)

// VersionCmd prints build provenance for the installed binary.
var VersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show Herald version information",
	Long:  "Display version, commit hash, build time, and platform for this Herald binary.",
	RunE:  runVersion,
}

func init() {
	VersionCmd.Flags().BoolP("json", "j", false, "Output version info as JSON")
	VersionCmd.Flags().Bool("short", false, "Print only version and commit")
}

func runVersion(cmd *cobra.Command, args []string) error {
	info := version.Get()

	if short, _ := cmd.Flags().GetBool("short"); short {
		fmt.Printf("%s (%s)\n", info.Version, info.Short())
		return nil
	}

	if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
		data, err := json.MarshalIndent(info, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to format version info: %w", err)
		}
		fmt.Println(string(data))
		return nil
	}

	fmt.Println(info.String())
	fmt.Printf("Platform: %s\n", info.Platform)
	fmt.Printf("Go: %s\n", info.GoVersion)
	return nil
}
