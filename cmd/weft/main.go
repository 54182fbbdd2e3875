// weft is a corpus scheduler for coverage-guided fuzzing.
// It keeps a persistent seed corpus and decides which entry to fuzz next
// using AFL++-style power schedules.
package main

import (
	"os"

	"github.com/corey/weft/cmd/weft/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
