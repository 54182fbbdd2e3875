package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var solutionCmd = &cobra.Command{
	Use:   "solution <file>...",
	Short: "Record inputs that reached an objective",
	Long:  "Copies each file into the session's solutions corpus. Solutions are counted in stats but never scheduled.",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runSolution,
}

func runSolution(cmd *cobra.Command, args []string) error {
	a, err := openApp(true)
	if err != nil {
		return err
	}
	defer a.Close()

	added, err := a.AddSolutions(args)
	if err != nil {
		return err
	}
	fmt.Printf("⚡ added %d solutions (total %d)\n", len(added), a.Solutions.Count())
	return nil
}
