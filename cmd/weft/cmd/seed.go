package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var seedCmd = &cobra.Command{
	Use:   "seed <dir>...",
	Short: "Import seed inputs from directories",
	Long:  "Walks each directory recursively and adds every non-empty regular file to the corpus. Hidden files and directories are skipped.",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runSeed,
}

func runSeed(cmd *cobra.Command, args []string) error {
	a, err := openApp(true)
	if err != nil {
		return err
	}
	defer a.Close()

	res, err := a.ImportSeeds(cmd.Context(), args)
	if err != nil {
		return err
	}

	fmt.Printf("⚡ added %d seeds (corpus %d)\n", len(res.Added), a.Corpus.Count())
	if n := len(res.Empty); n > 0 {
		fmt.Printf("  %s\n", paint(colorGray, fmt.Sprintf("skipped %d empty files", n)))
	}
	for _, path := range res.TooLarge {
		fmt.Printf("  %s %s\n", paint(colorYellow, "skipped (too large):"), path)
	}
	return nil
}
