package cmd

import (
	"fmt"

	"github.com/corey/weft/internal/adapters/socket"
	"github.com/corey/weft/internal/app"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show configuration",
	Long:  "Shows project root, database, socket and corpus paths, and the effective flags. Does not open the database.",
	Args:  cobra.NoArgs,
	RunE:  runConfig,
}

func runConfig(cmd *cobra.Command, args []string) error {
	root := projectRoot()
	paths := app.NewPaths(root)

	initialized := paint(colorYellow, "✗ not initialized")
	if paths.Initialized() {
		initialized = paint(colorGreen, "✓ initialized")
	}
	strategy := strategyFlag
	if strategy == "" {
		strategy = "(stored, or explore)"
	}
	sockPath := socket.SocketPath(root)
	watching := paint(colorYellow, "✗ not running")
	if socket.NewClient(sockPath).Ping() {
		watching = paint(colorGreen, "✓ running")
	}
	seed := "time-based"
	if seedFlag != 0 {
		seed = fmt.Sprintf("%d", seedFlag)
	}

	fmt.Println(paint(colorBold, "⚡ weft config"))
	fmt.Printf("  Root:       %s\n", root)
	fmt.Printf("  State:      %s %s\n", paths.Root, initialized)
	fmt.Printf("  DB:         %s\n", paths.DB)
	fmt.Printf("  Socket:     %s\n", sockPath)
	fmt.Printf("  Watch:      %s\n", watching)
	fmt.Printf("  Session:    %s\n", sessionFlag)
	fmt.Printf("  Queue:      %s\n", paths.SessionQueueDir(sessionFlag))
	fmt.Printf("  Solutions:  %s\n", paths.SessionSolutionsDir(sessionFlag))
	fmt.Printf("  Scheduler:  %s\n", schedulerFlag)
	fmt.Printf("  Strategy:   %s\n", strategy)
	fmt.Printf("  Seed:       %s\n", seed)
	return nil
}
