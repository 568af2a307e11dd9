package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/heraldai/herald/config"
	"github.com/heraldai/herald/sym"
)

// ConfigCmd manages Herald configuration
var ConfigCmd = &cobra.Command{
	Use:   "config",
	Short: sym.Cfg + " Manage Herald configuration",
	Long: sym.Cfg + ` Manage Herald configuration.

Configuration sources (in order of precedence):
1. Environment variables (HERALD_* prefix)
2. Project config (./herald.toml or ./config.toml)
3. Tool-managed overlay (~/.herald/herald_from_ui.toml)
4. User config (~/.herald/herald.toml or ~/.herald/config.toml)
5. System config (/etc/herald/config.toml)
6. Default values

Examples:
  herald config show                       # Show current configuration
  herald config show --format json         # Show configuration in JSON format
  herald config get database.path          # Get a specific config value
  herald config set chime.poll_interval_seconds 15
  herald config init                       # Write a starter config file
  herald config validate                   # Validate current configuration
  herald config validate candidate.toml    # Check a file before installing it`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long:  "Display the current Herald configuration merged from all sources",
	RunE:  runConfigShow,
}

var configGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Get a specific configuration value",
	Long:  "Get a specific configuration value using dot notation (e.g., database.path, chime.poll_interval_seconds)",
	Args:  cobra.ExactArgs(1),
	RunE:  runConfigGet,
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Persist a configuration value",
	Long: `Persist a configuration value using dot notation.

Values are written to the tool-managed overlay file
(~/.herald/herald_from_ui.toml) so hand-edited config files are never
clobbered. A running server picks the change up through its config
watcher.`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter config file",
	Long:  "Write a commented starter config to ~/.herald/herald.toml if none exists",
	RunE:  runConfigInit,
}

var configValidateCmd = &cobra.Command{
	Use:   "validate [file]",
	Short: "Validate configuration",
	Long: `Validate Herald configuration.

Without arguments, validates the merged configuration from all sources.
With a file argument, validates that single file in isolation so a
candidate config can be checked before it is installed.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runConfigValidate,
}

var configWhereCmd = &cobra.Command{
	Use:   "where",
	Short: "Show where configuration is loaded from",
	Long: `Show the configuration cascade and which files were checked.

Lists all configuration sources in order of precedence, showing
which settings each active source contributed.`,
	RunE: runConfigWhere,
}

var configFormat string

func init() {
	configShowCmd.Flags().StringVar(&configFormat, "format", "toml", "Output format: toml, json, yaml")

	ConfigCmd.AddCommand(configShowCmd)
	ConfigCmd.AddCommand(configGetCmd)
	ConfigCmd.AddCommand(configSetCmd)
	ConfigCmd.AddCommand(configInitCmd)
	ConfigCmd.AddCommand(configValidateCmd)
	ConfigCmd.AddCommand(configWhereCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Marshal to requested format
	switch configFormat {
	case "json":
		data, err := json.MarshalIndent(cfg, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal config to JSON: %w", err)
		}
		fmt.Println(string(data))

	case "yaml":
		data, err := yaml.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("failed to marshal config to YAML: %w", err)
		}
		fmt.Printf("# Herald configuration\n%s", string(data))

	case "toml":
		data, err := toml.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("failed to marshal config to TOML: %w", err)
		}
		fmt.Printf("# Herald configuration\n%s", string(data))

	default:
		return fmt.Errorf("unsupported format: %s (supported: toml, json, yaml)", configFormat)
	}

	return nil
}

func runConfigGet(cmd *cobra.Command, args []string) error {
	key := args[0]

	// Check if key exists in configuration
	v := config.GetViper()
	if !v.IsSet(key) {
		return fmt.Errorf("configuration key %q not found", key)
	}

	// Get the value as interface{} to preserve type
	value := config.Get(key)
	fmt.Println(value)
	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	key, raw := args[0], args[1]

	parts := strings.SplitN(key, ".", 2)
	if len(parts) != 2 {
		return fmt.Errorf("key must be section.name (e.g., chime.poll_interval_seconds), got %q", key)
	}

	value := parseConfigValue(raw)
	if err := config.UpdateUISetting(parts[0], parts[1], value); err != nil {
		return fmt.Errorf("failed to persist %s: %w", key, err)
	}

	fmt.Printf("%s %s = %v\n", sym.Cfg, key, value)
	fmt.Printf("  written to %s\n", config.GetUIConfigPath())
	return nil
}

// parseConfigValue keeps TOML types sensible: bare true/false become
// bools, numerics become numbers, everything else stays a string.
func parseConfigValue(raw string) interface{} {
	if raw == "true" || raw == "false" {
		return raw == "true"
	}
	if i, err := strconv.Atoi(raw); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return f
	}
	return raw
}

const starterConfig = `# Herald configuration
# Values here override built-in defaults. Environment variables
# (HERALD_* prefix) override everything.

[database]
path = "herald.db"

[server]
port = 8787
# allowed_origins = ["http://localhost:3000"]
# log_theme = "gruvbox"

[owner]
default_id = "local"

[chime]
poll_interval_seconds = 30
claim_batch_size = 25
claim_lease_seconds = 120
dispatch_timeout_seconds = 60
oneshot_max_attempts = 3
max_concurrent_dispatches = 8
catchup_window_seconds = 86400
run_retention_days = 30

[notify]
default_channel = "inapp"
max_per_minute = 30
# webhook_url = "https://example.com/herald-hook"
# command = "notify-send"

[runner]
# base_url = "http://localhost:8317"
timeout_seconds = 30
`

func runConfigInit(cmd *cobra.Command, args []string) error {
	home, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("could not determine home directory: %w", err)
	}

	heraldDir := filepath.Join(home, ".herald")
	if err := os.MkdirAll(heraldDir, config.DefaultDirPermissions); err != nil {
		return fmt.Errorf("failed to create %s: %w", heraldDir, err)
	}

	configPath := filepath.Join(heraldDir, "herald.toml")
	if _, err := os.Stat(configPath); err == nil {
		return fmt.Errorf("config already exists at %s (edit it directly, or use 'herald config set')", configPath)
	}

	if err := os.WriteFile(configPath, []byte(starterConfig), config.DefaultFilePermissions); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	fmt.Printf("%s Wrote starter config to %s\n", sym.Cfg, configPath)
	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	var cfg *config.Config
	var err error
	if len(args) == 1 {
		cfg, err = config.LoadFromFile(args[0])
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	if len(args) == 1 {
		fmt.Printf("✓ %s is valid\n", args[0])
	} else {
		fmt.Println("✓ Configuration is valid")
	}
	return nil
}

func runConfigWhere(cmd *cobra.Command, args []string) error {
	intro, err := config.GetConfigIntrospection()
	if err != nil {
		return fmt.Errorf("failed to get config introspection: %w", err)
	}

	// Show config cascade header
	fmt.Println("Configuration cascade (later overrides earlier):")
	fmt.Println("  1. [DEFAULT]  Built-in defaults")
	fmt.Println("  2. [SYSTEM]   /etc/herald/config.toml")
	fmt.Println("  3. [USER]     ~/.herald/config.toml")
	fmt.Println("  4. [USER]     ~/.herald/herald.toml (preferred)")
	fmt.Println("  5. [USER_UI]  ~/.herald/herald_from_ui.toml (tool-managed)")
	fmt.Println("  6. [PROJECT]  ./herald.toml or ./config.toml (searches up directories)")
	fmt.Println("  7. [ENV]      HERALD_* environment variables")
	fmt.Println()

	// Group settings by their actual source file
	type fileGroup struct {
		source   config.ConfigSource
		path     string
		settings []config.SettingInfo
	}

	settingsByPath := make(map[string]*fileGroup)
	for _, setting := range intro.Settings {
		key := setting.SourcePath
		if key == "" {
			// For defaults and env vars, use source as key
			key = string(setting.Source)
		}

		if group, exists := settingsByPath[key]; exists {
			group.settings = append(group.settings, setting)
		} else {
			settingsByPath[key] = &fileGroup{
				source:   setting.Source,
				path:     setting.SourcePath,
				settings: []config.SettingInfo{setting},
			}
		}
	}

	// Define source order for consistent output
	sourceOrder := []config.ConfigSource{
		config.SourceDefault,
		config.SourceSystem,
		config.SourceUser,
		config.SourceUserUI,
		config.SourceProject,
		config.SourceEnvironment,
	}

	fmt.Println("Active configuration:")
	for _, source := range sourceOrder {
		// Collect and sort file groups at this source level
		var groups []*fileGroup
		for _, group := range settingsByPath {
			if group.source == source && len(group.settings) > 0 {
				groups = append(groups, group)
			}
		}

		sort.Slice(groups, func(i, j int) bool {
			// Default/env groups carry no path and sort first
			if groups[i].path == "" {
				return true
			}
			if groups[j].path == "" {
				return false
			}
			// Put config.toml before herald.toml at the same level,
			// matching merge order
			iBase := filepath.Base(groups[i].path)
			jBase := filepath.Base(groups[j].path)
			if iBase == "config.toml" && jBase == "herald.toml" {
				return true
			}
			if iBase == "herald.toml" && jBase == "config.toml" {
				return false
			}
			return groups[i].path < groups[j].path
		})

		for _, group := range groups {
			// Print source header
			if group.path != "" {
				fmt.Printf("\n%s: %d settings from %s\n", source, len(group.settings), group.path)
			} else if source == config.SourceEnvironment {
				fmt.Printf("\n%s: %d settings from environment variables\n", source, len(group.settings))
			} else if source == config.SourceDefault {
				fmt.Printf("\n%s: %d settings\n", source, len(group.settings))
			}

			for _, setting := range group.settings {
				valueStr := fmt.Sprintf("%v", setting.Value)
				if len(valueStr) > 50 {
					valueStr = valueStr[:47] + "..."
				}
				fmt.Printf("  %s = %s\n", setting.Key, valueStr)
			}
		}
	}

	return nil
}
