package cmd

import (
	"fmt"

	"github.com/corey/weft/internal/app"
	"github.com/spf13/cobra"
)

var (
	nextCount  int
	nextRecord bool
)

var nextCmd = &cobra.Command{
	Use:   "next",
	Short: "Pick the next corpus entries to fuzz",
	Long:  "Draws entries from the scheduler and prints \"index<TAB>file\" per pick. With --record, each pick is booked as one fuzzing round so later scores reflect it.",
	Args:  cobra.NoArgs,
	RunE:  runNext,
}

func init() {
	nextCmd.Flags().IntVarP(&nextCount, "count", "n", 1, "Number of picks")
	nextCmd.Flags().BoolVar(&nextRecord, "record", false, "Book each pick as a fuzzing round")
}

func runNext(cmd *cobra.Command, args []string) error {
	client, err := watchClient(projectRoot())
	if err != nil {
		return err
	}
	if client != nil {
		res, err := client.Next(nextCount, nextRecord)
		if err != nil {
			return err
		}
		fmt.Print(formatPicks(app.PicksFromResult(*res)))
		return nil
	}

	a, err := openApp(true)
	if err != nil {
		return err
	}
	defer a.Close()

	picks, err := a.Select(nextCount, nextRecord)
	if err != nil {
		return err
	}
	fmt.Print(formatPicks(picks))
	return nil
}
