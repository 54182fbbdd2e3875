package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/corey/weft/internal/adapters/socket"
	"github.com/corey/weft/internal/app"
	"github.com/spf13/cobra"
)

var resetForce bool

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete the session's corpus and statistics",
	Long:  "Deletes the session snapshot and its queue and solutions directories. Seed directories are never touched. The .weft/ directory remains.",
	Args:  cobra.NoArgs,
	RunE:  runReset,
}

func init() {
	resetCmd.Flags().BoolVar(&resetForce, "force", false, "Skip confirmation prompt")
}

func runReset(cmd *cobra.Command, args []string) error {
	root := projectRoot()
	paths := app.NewPaths(root)
	if !paths.Initialized() {
		fmt.Println("no data to reset")
		return nil
	}
	if socket.NewClient(socket.SocketPath(root)).Ping() {
		return fmt.Errorf("`weft watch` is running for this project; run `weft stop` first")
	}

	if !resetForce {
		if !isStdinTTY() {
			return fmt.Errorf("refusing to reset without a terminal; pass --force")
		}
		fmt.Printf("This will delete session %s and its corpus. Continue? [y/N] ", sessionFlag)
		reader := bufio.NewReader(os.Stdin)
		answer, _ := reader.ReadString('\n')
		answer = strings.TrimSpace(strings.ToLower(answer))
		if answer != "y" && answer != "yes" {
			fmt.Println("cancelled")
			return nil
		}
	}

	if err := app.Reset(root, sessionFlag, ""); err != nil {
		if isDBLockError(err) {
			return fmt.Errorf("cannot reset: %s", diagnoseDBLock())
		}
		return err
	}
	fmt.Printf("session %s reset\n", sessionFlag)
	return nil
}
