package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a weft session in the current directory",
	Long:  "Creates .weft/ (database, corpus and log directories) and an empty session. Re-running on an initialized project is harmless.",
	Args:  cobra.NoArgs,
	RunE:  runInit,
}

func runInit(cmd *cobra.Command, args []string) error {
	a, err := openApp(false)
	if err != nil {
		return err
	}
	defer a.Close()

	if a.Restored() {
		fmt.Printf("⚡ session %s already initialized (%d entries)\n", a.SessionID, a.Corpus.Count())
		return nil
	}
	if err := a.Save(); err != nil {
		return err
	}

	stats, err := a.Stats()
	if err != nil {
		return err
	}
	fmt.Printf("⚡ weft initialized session %s in %s (%s/%s)\n",
		a.SessionID, a.Paths.Root, stats.Scheduler, stats.Strategy)
	fmt.Println("  next: weft seed <dir>")
	return nil
}
