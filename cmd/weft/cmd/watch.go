package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	fsw "github.com/corey/weft/internal/adapters/fsnotify"
	"github.com/corey/weft/internal/adapters/socket"
	"github.com/corey/weft/internal/app"
	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:   "watch <dir>",
	Short: "Import seeds as they appear in a directory",
	Long: "Watches a directory recursively and adds new or rewritten files to the corpus until interrupted. " +
		"Holds the database lock while running; stats, next and corpus are served to other weft processes over a control socket. " +
		"Logs go to .weft/log/weft.log.",
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop a running weft watch",
	Args:  cobra.NoArgs,
	RunE:  runStop,
}

func runWatch(cmd *cobra.Command, args []string) error {
	root := projectRoot()
	if socket.NewClient(socket.SocketPath(root)).Ping() {
		fmt.Println("⚡ weft watch already running for this project")
		return nil
	}

	logFile, err := setupWatchLog(app.NewPaths(root), verboseFlag)
	if err != nil {
		return err
	}
	defer logFile.Close()

	a, err := openApp(true)
	if err != nil {
		return err
	}
	defer a.Close()

	w, err := fsw.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer w.Stop()

	srv := socket.NewServer(a, socket.SocketPath(root), nil)
	if err := srv.Start(); err != nil {
		return fmt.Errorf("control socket: %w", err)
	}
	defer srv.Stop()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		select {
		case <-srv.ShutdownCh():
			stop()
		case <-ctx.Done():
		}
	}()

	fmt.Printf("⚡ watching %s (corpus %d), Ctrl-C or `weft stop` to end\n", args[0], a.Corpus.Count())
	err = a.Watch(ctx, w, args[0], func(idx int, path string) {
		fmt.Printf("  %s %s\n", paint(colorGreen, fmt.Sprintf("+%d", idx)), path)
	})
	if err != nil {
		return err
	}
	fmt.Printf("⚡ stopped (corpus %d)\n", a.Corpus.Count())
	return nil
}

// setupWatchLog sends logs to .weft/log/weft.log for the lifetime of the
// watch, leaving stderr to the progress lines.
func setupWatchLog(paths *app.Paths, verbose bool) (*os.File, error) {
	if !paths.Initialized() {
		return nil, fmt.Errorf("no .weft/ directory here. Run: weft init")
	}
	if err := os.MkdirAll(paths.LogDir, 0755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	f, err := os.OpenFile(paths.Log, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("open log: %w", err)
	}
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{Level: level})))
	return f, nil
}

func runStop(cmd *cobra.Command, args []string) error {
	client := socket.NewClient(socket.SocketPath(projectRoot()))
	if !client.Ping() {
		fmt.Println("⚡ weft watch is not running")
		return nil
	}
	if err := client.Shutdown(); err != nil {
		return err
	}
	fmt.Println("⚡ weft watch stopped")
	return nil
}
