package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/corey/weft/internal/app"
	"github.com/spf13/cobra"
)

// Persistent flags shared by every command.
var (
	strategyFlag  string
	schedulerFlag string
	seedFlag      uint64
	sessionFlag   string
	verboseFlag   bool
	noColorFlag   bool
)

var rootCmd = &cobra.Command{
	Use:           "weft",
	Short:         "weft: corpus scheduler for coverage-guided fuzzing",
	Long:          "Keeps a persistent fuzzing corpus and picks the next entry to fuzz with AFL++-style power schedules.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		setupLogging(verboseFlag)
		useColor = resolveColor(noColorFlag)
	},
}

// projectRoot returns the project root (cwd by default).
func projectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	return dir
}

// setupLogging installs a text handler on stderr. Warnings and errors only,
// unless verbose.
func setupLogging(verbose bool) {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

// appConfig builds the app configuration from the persistent flags.
func appConfig(root string) app.Config {
	return app.Config{
		ProjectRoot: root,
		SessionID:   sessionFlag,
		Strategy:    strategyFlag,
		Scheduler:   schedulerFlag,
		Seed:        seedFlag,
	}
}

// openApp opens the session for the current project. Commands other than init
// require an initialized project.
func openApp(requireInit bool) (*app.App, error) {
	root := projectRoot()
	if requireInit && !app.NewPaths(root).Initialized() {
		return nil, fmt.Errorf("no .weft/ directory here. Run: weft init")
	}
	a, err := app.New(appConfig(root))
	if err != nil {
		if isDBLockError(err) {
			return nil, fmt.Errorf("cannot open session: %s", diagnoseDBLock())
		}
		return nil, err
	}
	return a, nil
}

// Execute runs the root command.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", paint(colorRed, "error"), err)
	}
	return err
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&strategyFlag, "strategy", "", "Power schedule: explore, exploit, fast, coe, lin, quad (default: stored, or explore)")
	pf.StringVar(&schedulerFlag, "scheduler", app.SchedulerWeighted, "Scheduler: weighted or queue")
	pf.Uint64Var(&seedFlag, "seed", 0, "RNG seed for a new session (0 = time-based)")
	pf.StringVar(&sessionFlag, "session", app.DefaultSessionID, "Session name")
	pf.BoolVarP(&verboseFlag, "verbose", "v", false, "Debug logging on stderr")
	pf.BoolVar(&noColorFlag, "no-color", false, "Disable colored output")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(corpusCmd)
	rootCmd.AddCommand(nextCmd)
	rootCmd.AddCommand(calibrateCmd)
	rootCmd.AddCommand(solutionCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(resetCmd)
}
