package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/theirongolddev/aforos/internal/cli"
	"github.com/theirongolddev/aforos/internal/daemon"
	"github.com/theirongolddev/aforos/internal/forecast"
	"github.com/theirongolddev/aforos/internal/pipeline"

	"github.com/spf13/cobra"
)

var (
	flagDaemonAddr         string
	flagDaemonInterval     time.Duration
	flagDaemonDetach       bool
	flagDaemonWait         time.Duration
	flagDaemonLogFile      string
	flagDaemonEventsBuffer int
	flagDaemonChild        bool
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Serve the dataset over HTTP/SSE and reload it when the files change",
	RunE:  runDaemon,
}

var daemonStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the dataset the running daemon is serving",
	RunE:  runDaemonStatus,
}

var daemonStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running daemon",
	RunE:  runDaemonStop,
}

func init() {
	daemonCmd.PersistentFlags().StringVar(&flagDaemonAddr, "addr", "", "HTTP listen address (default from config)")
	daemonCmd.PersistentFlags().DurationVar(&flagDaemonInterval, "interval", 0, "Polling interval (default from config)")

	daemonCmd.Flags().IntVar(&flagDaemonEventsBuffer, "events-buffer", 200, "Max in-memory events retained")
	daemonCmd.Flags().BoolVar(&flagDaemonDetach, "detach", false, "Run daemon as a background process")
	daemonCmd.Flags().DurationVar(&flagDaemonWait, "wait", 10*time.Second, "How long --detach waits for the first load")
	daemonCmd.Flags().StringVar(&flagDaemonLogFile, "log-file",
		filepath.Join(pipeline.CacheDir(), "aforosd.log"), "Log file for detached mode")
	daemonCmd.Flags().BoolVar(&flagDaemonChild, "child", false, "Internal: mark detached child process")
	_ = daemonCmd.Flags().MarkHidden("child")

	daemonCmd.AddCommand(daemonStatusCmd)
	daemonCmd.AddCommand(daemonStopCmd)
	rootCmd.AddCommand(daemonCmd)
}

// applyDaemonDefaults fills address and interval from the config file when
// the flags were not given.
func applyDaemonDefaults(cmd *cobra.Command) {
	flags := cmd.Flags()
	if !flags.Changed("addr") {
		flagDaemonAddr = appCfg.Daemon.Addr
	}
	if !flags.Changed("interval") {
		flagDaemonInterval = time.Duration(appCfg.Daemon.IntervalSec) * time.Second
	}
}

func runDaemon(cmd *cobra.Command, _ []string) error {
	applyDaemonDefaults(cmd)
	if flagDaemonDetach && flagDaemonChild {
		return errors.New("invalid daemon launch mode")
	}

	client := daemon.NewClient(flagDaemonAddr)
	if err := ensureAddrFree(cmd.Context(), client); err != nil {
		return err
	}
	if flagDaemonDetach {
		return startDaemonDetached(cmd.Context(), client)
	}
	return runDaemonForeground()
}

// ensureAddrFree refuses to start when a daemon already answers at the
// configured address.
func ensureAddrFree(ctx context.Context, client *daemon.Client) error {
	st, err := client.Status(ctxOrBackground(ctx))
	switch {
	case err == nil:
		return fmt.Errorf("daemon already running at %s (pid %d)", flagDaemonAddr, st.PID)
	case errors.Is(err, daemon.ErrNotRunning):
		return nil
	default:
		return fmt.Errorf("address %s is in use: %w", flagDaemonAddr, err)
	}
}

func startDaemonDetached(ctx context.Context, client *daemon.Client) error {
	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("resolve executable: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(flagDaemonLogFile), 0o750); err != nil {
		return fmt.Errorf("create daemon log directory: %w", err)
	}
	//nolint:gosec // daemon log path is configured by the local user
	logf, err := os.OpenFile(flagDaemonLogFile, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o600)
	if err != nil {
		return fmt.Errorf("open daemon log file: %w", err)
	}
	defer func() { _ = logf.Close() }()

	child := exec.Command(exe, append(filterDetachArg(os.Args[1:]), "--child")...) //nolint:gosec // re-exec of the current binary
	child.Stdout = logf
	child.Stderr = logf
	child.Env = os.Environ()
	if err := child.Start(); err != nil {
		return fmt.Errorf("start detached daemon: %w", err)
	}
	pid := child.Process.Pid
	_ = child.Process.Release()

	fmt.Printf("  Started daemon (pid %d), log: %s\n", pid, flagDaemonLogFile)

	waitCtx, cancel := context.WithTimeout(ctxOrBackground(ctx), flagDaemonWait)
	defer cancel()
	st, err := client.WaitLoaded(waitCtx, 250*time.Millisecond)
	if err != nil {
		fmt.Printf("  Daemon not answering at %s yet; check the log\n", client.URL("/v1/status"))
		return nil
	}
	printDaemonStatus(os.Stdout, flagDaemonAddr, st, time.Now())
	return nil
}

func runDaemonForeground() error {
	svc := daemon.New(daemon.Config{
		Source:       appCfg.General.DataPath,
		Options:      sourceOptions(),
		UseCache:     !flagNoCache,
		Interval:     flagDaemonInterval,
		Addr:         flagDaemonAddr,
		EventsBuffer: flagDaemonEventsBuffer,
		Forecast:     forecast.SettingsFromConfig(appCfg.Forecast),
		Logger:       logger,
	})

	fmt.Printf("  aforos daemon listening on http://%s (pid %d)\n", flagDaemonAddr, os.Getpid())
	fmt.Printf("  Polling every %s from %s\n", flagDaemonInterval, appCfg.General.DataPath)
	fmt.Printf("  Stop with: aforos daemon stop --addr %s\n", flagDaemonAddr)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := svc.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func runDaemonStatus(cmd *cobra.Command, _ []string) error {
	applyDaemonDefaults(cmd)
	st, err := daemon.NewClient(flagDaemonAddr).Status(ctxOrBackground(cmd.Context()))
	if errors.Is(err, daemon.ErrNotRunning) {
		fmt.Printf("  Daemon: not running at %s\n", flagDaemonAddr)
		return nil
	}
	if err != nil {
		return err
	}
	printDaemonStatus(os.Stdout, flagDaemonAddr, st, time.Now())
	return nil
}

// printDaemonStatus renders what the daemon reports about itself and the
// dataset it serves.
func printDaemonStatus(w io.Writer, addr string, st daemon.Status, now time.Time) {
	p := func(format string, args ...any) { _, _ = fmt.Fprintf(w, "  "+format+"\n", args...) }

	p("Daemon: pid %d at http://%s, up %s", st.PID, addr,
		cli.FormatDuration(int64(now.Sub(st.StartedAt).Seconds())))
	p("Source: %s (%s), polled every %ds", st.Source, st.Encoding, st.PollIntervalSec)
	if st.LastPollAt.IsZero() {
		p("Last poll: pending")
	} else {
		p("Last poll: %s (%d polls)", st.LastPollAt.Local().Format(time.RFC3339), st.PollCount)
	}

	if !st.Loaded {
		p("Dataset: not loaded")
	} else {
		d := st.Dataset
		p("Records: %s across %d files", cli.FormatNumber(int64(d.Records)), d.Files)
		p("Years: %s", strings.Join(d.Years, ", "))
		if !d.First.IsZero() {
			p("Span: %s to %s", d.First.Format("2006-01"), d.Last.Format("2006-01"))
		}
		for _, src := range d.Sources {
			p("  %s", src)
		}
		p("Reloads: %d (last %s)", st.ReloadCount, st.LastReloadAt.Local().Format(time.RFC3339))
	}
	if st.LastError != "" {
		p("Last error: %s", st.LastError)
	}
	if st.SubscriberCount > 0 {
		p("Stream subscribers: %d", st.SubscriberCount)
	}
}

func runDaemonStop(cmd *cobra.Command, _ []string) error {
	applyDaemonDefaults(cmd)
	ctx := ctxOrBackground(cmd.Context())
	client := daemon.NewClient(flagDaemonAddr)

	st, err := client.Status(ctx)
	if err != nil {
		return err
	}
	if st.PID <= 0 {
		return fmt.Errorf("daemon at %s did not report a pid", flagDaemonAddr)
	}
	proc, err := os.FindProcess(st.PID)
	if err != nil {
		return fmt.Errorf("find daemon process: %w", err)
	}
	if err := proc.Signal(syscall.SIGTERM); err != nil {
		return fmt.Errorf("signal daemon process: %w", err)
	}

	deadline := time.Now().Add(8 * time.Second)
	for time.Now().Before(deadline) {
		if _, err := client.Status(ctx); errors.Is(err, daemon.ErrNotRunning) {
			fmt.Printf("  Stopped daemon (pid %d)\n", st.PID)
			return nil
		}
		time.Sleep(150 * time.Millisecond)
	}
	return fmt.Errorf("daemon (pid %d) did not exit in time", st.PID)
}

func filterDetachArg(args []string) []string {
	out := make([]string, 0, len(args))
	for _, a := range args {
		if a == "--detach" || strings.HasPrefix(a, "--detach=") {
			continue
		}
		out = append(out, a)
	}
	return out
}

func ctxOrBackground(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}
