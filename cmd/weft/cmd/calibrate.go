package cmd

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"
)

var (
	calibrateExecTime time.Duration
	calibrateBitmap   uint64
)

var calibrateCmd = &cobra.Command{
	Use:   "calibrate <index>",
	Short: "Record a measured execution time and coverage size",
	Long:  "Feeds the speed and bitmap-size multipliers of the power schedule. Recalibrating an entry replaces its previous measurement.",
	Args:  cobra.ExactArgs(1),
	RunE:  runCalibrate,
}

func init() {
	calibrateCmd.Flags().DurationVar(&calibrateExecTime, "exec-time", 0, "Measured execution time (e.g. 850us)")
	calibrateCmd.Flags().Uint64Var(&calibrateBitmap, "bitmap", 0, "Number of coverage map entries hit")
	calibrateCmd.MarkFlagRequired("exec-time")
}

func runCalibrate(cmd *cobra.Command, args []string) error {
	idx, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid index %q", args[0])
	}
	if calibrateExecTime <= 0 {
		return fmt.Errorf("--exec-time must be positive")
	}

	a, err := openApp(true)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.Calibrate(idx, calibrateExecTime, calibrateBitmap); err != nil {
		return err
	}
	fmt.Printf("⚡ calibrated %d: %s, bitmap %d\n", idx, calibrateExecTime, calibrateBitmap)
	return nil
}
