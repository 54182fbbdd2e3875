package cmd

import (
	"fmt"

	"github.com/corey/weft/internal/app"
	"github.com/spf13/cobra"
)

var corpusCmd = &cobra.Command{
	Use:   "corpus",
	Short: "List corpus entries with their scores",
	Long:  "Shows every corpus entry with depth, novelty bucket, hit count, fuzz level and selection probability. * marks the current selection.",
	Args:  cobra.NoArgs,
	RunE:  runCorpus,
}

func runCorpus(cmd *cobra.Command, args []string) error {
	client, err := watchClient(projectRoot())
	if err != nil {
		return err
	}
	if client != nil {
		res, err := client.Corpus()
		if err != nil {
			return err
		}
		fmt.Print(formatCorpus(app.EntriesFromResult(*res), res.Weighted))
		return nil
	}

	a, err := openApp(true)
	if err != nil {
		return err
	}
	defer a.Close()

	entries, err := a.Report()
	if err != nil {
		return err
	}
	fmt.Print(formatCorpus(entries, a.SchedulerName() == app.SchedulerWeighted))
	return nil
}
