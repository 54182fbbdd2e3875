package cmd

import (
	"fmt"
	"time"

	"github.com/corey/weft/internal/app"
	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show session statistics",
	Args:  cobra.NoArgs,
	RunE:  runStats,
}

func runStats(cmd *cobra.Command, args []string) error {
	client, err := watchClient(projectRoot())
	if err != nil {
		return err
	}
	if client != nil {
		res, err := client.Stats()
		if err != nil {
			return err
		}
		fmt.Print(formatStats(app.StatsFromResult(*res), time.Now()))
		return nil
	}

	a, err := openApp(true)
	if err != nil {
		return err
	}
	defer a.Close()

	s, err := a.Stats()
	if err != nil {
		return err
	}
	fmt.Print(formatStats(s, time.Now()))
	return nil
}
