package commands

import (
	"fmt"

	"github.com/heraldai/herald/sym"
	"github.com/heraldai/herald/version"
)

// printStartupBanner prints the user-friendly startup message
func printStartupBanner(port int, dbPath, owner string) {
	// ANSI escape codes
	cyan := "\033[36m"
	green := "\033[32m"
	yellow := "\033[33m"
	blue := "\033[34m"
	magenta := "\033[35m"
	bold := "\033[1m"
	reset := "\033[0m"

	versionInfo := version.Get()

	fmt.Printf("\n%s%s", cyan, bold)
	fmt.Printf("   ╔═══════════════════════════════════════════════╗\n")
	fmt.Printf("   ║                                               ║\n")
	fmt.Printf("   ║   ██  ██ ██████ █████   ████  ██     █████    ║\n")
	fmt.Printf("   ║   ██  ██ ██     ██  ██ ██  ██ ██     ██  ██   ║\n")
	fmt.Printf("   ║   ██████ █████  █████  ██████ ██     ██  ██   ║\n")
	fmt.Printf("   ║   ██  ██ ██     ██ ██  ██  ██ ██     ██  ██   ║\n")
	fmt.Printf("   ║   ██  ██ ██████ ██  ██ ██  ██ ██████ █████    ║\n")
	fmt.Printf("   ║                                               ║\n")
	fmt.Printf("   ║   %s%s%s Chime  %s%s%s Notify  %s%s%s Task  %s%s%s Agent     ║\n",
		yellow, sym.Chime, reset+cyan+bold,
		green, sym.Notify, reset+cyan+bold,
		blue, sym.Task, reset+cyan+bold,
		magenta, sym.Agent, reset+cyan+bold)
	fmt.Printf("   ║                                               ║\n")
	fmt.Printf("   ╚═══════════════════════════════════════════════╝%s\n\n", reset)

	fmt.Printf("%s%s┌─ Herald Info ───────────────────────────────────────┐%s\n", green, bold, reset)
	fmt.Printf("%s│%s Version:   %s (commit %s)\n", green, reset, versionInfo.Version, versionInfo.Short())
	fmt.Printf("%s│%s Built:     %s\n", green, reset, versionInfo.BuildTime)
	fmt.Printf("%s│%s Owner:     %s\n", green, reset, owner)
	if dbPath != "" {
		fmt.Printf("%s│%s Database:  %s\n", green, reset, dbPath)
	}
	fmt.Printf("%s└─────────────────────────────────────────────────────┘%s\n", green, reset)

	fmt.Printf("\n%s%s✨ REST API on http://localhost:%d/api, live events on /ws%s\n", yellow, bold, port, reset)
	fmt.Printf("%s💡 Press Ctrl+C to stop%s\n\n", blue, reset)
}
