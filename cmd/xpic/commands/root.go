package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/bryanchriswhite/xpic/internal/capture"
	"github.com/bryanchriswhite/xpic/internal/capture/x11"
	"github.com/bryanchriswhite/xpic/internal/config"
	"github.com/bryanchriswhite/xpic/internal/logger"
	"github.com/bryanchriswhite/xpic/internal/output"
	"github.com/bryanchriswhite/xpic/internal/window"
)

// session is a display the capture command can drive and then close.
type session interface {
	capture.Display
	Close() error
}

// openDisplay is replaced in tests.
var openDisplay = func(name string) (session, error) {
	d, err := x11.Open(name)
	if err != nil {
		return nil, err
	}
	return d, nil
}

var (
	cfgFile     string
	outputPath  string
	noComposite bool
	configMgr   *config.Manager

	rootCmd = &cobra.Command{
		Use:   "xpic [-o output_path] window_id [window_id ...]",
		Short: "xpic - Capture X11 windows to PNG",
		Long: `xpic grabs the contents of one or more X11 windows through the MIT-SHM
extension and writes each one to a PNG file.

When the Composite extension is available, windows are redirected
off-screen first so that obscured or partially off-screen windows are
captured whole. Without it, xpic falls back to reading the window directly.

Window ids may be decimal, 0x-prefixed hexadecimal or 0-prefixed octal.
Files are named xpic-<YYYYMMDDHHMMSS>-<window_id>.png unless -o is given.`,
		Example: `  # Capture the root window
  xpic 0x1e5

  # Capture two windows into the current directory
  xpic 0x3a00007 0x4200003

  # Capture a window to a chosen file
  xpic -o shot.png 0x3a00007

  # Write a single capture to stdout
  xpic -o - 0x3a00007 > shot.png`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runCapture,
	}
)

func init() {
	rootCmd.PersistentPreRunE = initConfig

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/xpic/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("display", "", "X display to connect to (default is $DISPLAY)")

	rootCmd.Flags().StringVarP(&outputPath, "output", "o", "", "output file, or - for stdout")
	rootCmd.Flags().BoolVar(&noComposite, "no-composite", false, "never redirect windows through the Composite extension")
}

// initConfig loads configuration, binds global flags over it and sets up
// logging before any command runs.
func initConfig(cmd *cobra.Command, args []string) error {
	mgr, err := config.NewManager(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	v := mgr.GetViper()
	global := cmd.Root().PersistentFlags()
	if err := v.BindPFlag("log_level", global.Lookup("log-level")); err != nil {
		return err
	}
	if err := v.BindPFlag("display", global.Lookup("display")); err != nil {
		return err
	}

	cfg := mgr.Get()
	logger.Init(logger.LogLevel(cfg.LogLevel), cfg.LogPretty)
	logger.WithComponent("config").Debug().
		Str("path", mgr.GetConfigPath()).
		Str("display", cfg.Display).
		Bool("composite", cfg.Composite).
		Msg("Configuration ready")

	configMgr = mgr
	return nil
}

func runCapture(cmd *cobra.Command, args []string) error {
	ids, err := window.ParseIDs(args)
	if err != nil {
		return err
	}
	if outputPath == output.StdoutPath && len(ids) > 1 {
		return fmt.Errorf("-o %s takes a single window id, got %d", output.StdoutPath, len(ids))
	}

	cfg := configMgr.Get()
	level, err := output.ParseCompression(cfg.PNGCompression)
	if err != nil {
		return err
	}

	d, err := openDisplay(cfg.Display)
	if err != nil {
		return err
	}
	defer d.Close()

	orch, err := capture.NewOrchestrator(d, output.NewPNGEncoder(level), capture.Options{
		DisableComposite: noComposite || !cfg.Composite,
	})
	if err != nil {
		return err
	}

	namer := output.NewNamer(output.Config{
		Dir:             cfg.OutputDir,
		Prefix:          cfg.FilenamePrefix,
		Extension:       cfg.Extension,
		TimestampLayout: cfg.TimestampLayout,
		Explicit:        outputPath,
	}, time.Now(), len(ids))

	jobs := make([]capture.Job, 0, len(ids))
	for _, id := range ids {
		jobs = append(jobs, capture.Job{Window: id.Handle, Path: namer.Path(id.Text)})
	}

	logger.WithComponent("capture").Debug().
		Int("windows", len(jobs)).
		Stringer("strategy", orch.Strategy()).
		Msg("Starting capture run")

	return orch.Run(cmd.Context(), jobs)
}

// Execute runs the root command
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "xpic: %v\n", err)
		os.Exit(1)
	}
}
