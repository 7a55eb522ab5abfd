package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"firestige.xyz/sniffer/internal/capture"
	"firestige.xyz/sniffer/internal/log"
	"firestige.xyz/sniffer/internal/metrics"
	"firestige.xyz/sniffer/internal/sink/console"
)

var captureCmd = &cobra.Command{
	Use:   "capture",
	Short: "Capture and print IP traffic",
	Long: `Capture raw IP datagrams and print one record per datagram.

Without -i every local address is captured (one session per address).
Capture runs until interrupted, or until --count records were printed or
--duration elapsed. Session failures are reported on stderr as they occur,
followed by a per-session summary.

Examples:
  sniffer capture --all
  sniffer capture -i eth0 --format hex --count 10
  sniffer capture -i eth0 --format json --duration 30s`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := runCaptureCommand(cmd); err != nil {
			exitWithError("capture failed", err)
		}
	},
}

var (
	captureIface    string
	captureAll      bool
	captureFormat   string
	captureCount    uint64
	captureDuration time.Duration
)

func init() {
	captureCmd.Flags().StringVarP(&captureIface, "interface", "i", "",
		"interface to capture on")
	captureCmd.Flags().BoolVar(&captureAll, "all", false,
		"capture on every local address (default when -i is not given)")
	captureCmd.Flags().StringVar(&captureFormat, "format", "",
		"output format: text|json|hex (overrides output.format)")
	captureCmd.Flags().Uint64Var(&captureCount, "count", 0,
		"stop after this many records (0 = unlimited)")
	captureCmd.Flags().DurationVar(&captureDuration, "duration", 0,
		"stop after this long (0 = unlimited)")
}

// runOptions bound a capture run.
type runOptions struct {
	count       uint64
	duration    time.Duration
	stopTimeout time.Duration
}

func selectionFromFlags(iface string, all bool) (capture.Selection, error) {
	switch {
	case iface != "" && all:
		return capture.Selection{}, errors.New("--interface and --all are mutually exclusive")
	case iface != "":
		return capture.SelectInterface(iface), nil
	default:
		return capture.SelectAll(), nil
	}
}

func runCaptureCommand(cmd *cobra.Command) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if captureFormat != "" {
		cfg.Output.Format = captureFormat
	}

	sel, err := selectionFromFlags(captureIface, captureAll)
	if err != nil {
		return err
	}

	if err := log.Init(&cfg.Log); err != nil {
		return fmt.Errorf("failed to init logger: %w", err)
	}

	sink, err := console.NewSink(os.Stdout, cfg.Output.Format)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Metrics.Enabled {
		srv := metrics.NewServer(cfg.Metrics.Listen, cfg.Metrics.Path)
		if err := srv.Start(ctx); err != nil {
			return err
		}
		defer srv.Stop(context.Background())
	}

	coordinator := capture.NewCoordinator(cfg.Capture.CoordinatorOptions(), capture.SystemInterfaces{}, capture.OpenSocket)
	return runCapture(ctx, coordinator, sel, sink, runOptions{
		count:       captureCount,
		duration:    captureDuration,
		stopTimeout: cfg.Capture.StopTimeout,
	}, os.Stderr)
}

// runCapture starts c, feeds its records to sink until ctx ends or a bound is
// reached, then stops c and writes a summary to w.
func runCapture(ctx context.Context, c Capturer, sel capture.Selection, sink RecordConsumer, opts runOptions, w io.Writer) error {
	if err := c.Start(sel); err != nil {
		sf, ok := capture.IsStartFailures(err)
		if !ok {
			return fmt.Errorf("failed to start capture on %s: %w", sel, err)
		}
		for _, ae := range sf.Errors {
			fmt.Fprintf(w, "! %s (%s): %v\n", ae.Addr, ae.Interface, ae.Err)
		}
		if sf.Running == 0 {
			return fmt.Errorf("no capture session started: %w", err)
		}
	}
	defer stopCapture(c, opts.stopTimeout, w)

	if opts.duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.duration)
		defer cancel()
	}

	records, failures := c.Records(), c.Failures()
	var printed uint64
	for {
		select {
		case <-ctx.Done():
			return nil
		case f, ok := <-failures:
			if !ok {
				failures = nil
				continue
			}
			fmt.Fprintf(w, "! session %s (%s) failed: %v\n", f.Addr, f.Interface, f.Err)
		case rec, ok := <-records:
			if !ok {
				return nil
			}
			if err := sink.Consume(rec); err != nil {
				return fmt.Errorf("failed to print record: %w", err)
			}
			printed++
			if opts.count > 0 && printed >= opts.count {
				return nil
			}
		}
	}
}

// stopCapture stops c, giving up on waiting after timeout, and prints the
// session summary.
func stopCapture(c Capturer, timeout time.Duration, w io.Writer) {
	done := make(chan struct{})
	go func() {
		c.Stop()
		close(done)
	}()

	if timeout <= 0 {
		<-done
	} else {
		select {
		case <-done:
		case <-time.After(timeout):
			log.GetLogger().WithField("timeout", timeout).Warn("capture did not stop in time")
			fmt.Fprintf(w, "! capture did not stop within %s\n", timeout)
			return
		}
	}

	printSummary(c.Sessions(), c.Dropped(), w)
}

func printSummary(sessions []capture.SessionInfo, dropped uint64, w io.Writer) {
	fmt.Fprintln(w)
	fmt.Fprintf(w, "%-40s %-12s %-8s %10s %10s %10s %10s\n",
		"ADDRESS", "INTERFACE", "STATE", "RECEIVED", "EMITTED", "SHORT", "MALFORMED")
	for _, s := range sessions {
		fmt.Fprintf(w, "%-40s %-12s %-8s %10d %10d %10d %10d\n",
			s.Addr, s.Interface, s.State,
			s.Stats.Received, s.Stats.Emitted, s.Stats.TooShort, s.Stats.Malformed)
	}
	fmt.Fprintf(w, "queue drops: %d\n", dropped)
}
