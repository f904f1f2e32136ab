// Package cmd provides the command-line interface of csim.
package cmd

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/sarchlab/csim/analysis"
	"github.com/sarchlab/csim/config"
	"github.com/sarchlab/csim/datarecording"
	"github.com/sarchlab/csim/mem/cache"
	"github.com/sarchlab/csim/mem/trace"
	"github.com/sarchlab/csim/monitoring"
	"github.com/sarchlab/csim/sim"
	"github.com/sarchlab/csim/tracing"
)

const examples = `  csim    -S 16  -K 1 -B 16 -p LRU -t traces/yi2.trace
  csim -v -S 256 -K 2 -B 16 -p LRU -t traces/yi2.trace`

type options struct {
	cfg config.Config

	configFile  string
	logLevel    string
	recordName  string
	setReport   bool
	monitor     bool
	monitorPort int
	openBrowser bool
}

// NewRootCommand creates the csim command.
func NewRootCommand() *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:   "csim",
		Short: "Replay a memory trace through a set-associative cache.",
		Long: `csim replays a memory trace through a set-associative cache ` +
			`with FIFO or LRU replacement and reports the number of hits, ` +
			`misses and evictions.`,
		Example:       examples,
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			err := run(cmd, opts)
			if errors.Is(err, config.ErrMissingArguments) {
				_ = cmd.Usage()
			}

			return err
		},
	}

	flags := rootCmd.Flags()
	flags.IntVarP(&opts.cfg.Sets, "sets", "S", 0,
		"Number of sets.           (must be > 0)")
	flags.IntVarP(&opts.cfg.Ways, "ways", "K", 0,
		"Number of lines per set.  (must be > 0)")
	flags.IntVarP(&opts.cfg.BlockSize, "block-size", "B", 0,
		"Number of bytes per line. (must be > 0)")
	flags.StringVarP(&opts.cfg.Policy, "policy", "p", "",
		"Eviction policy. (one of 'FIFO', 'LRU')")
	flags.StringVarP(&opts.cfg.Trace, "trace", "t", "", "Trace file.")
	flags.BoolVarP(&opts.cfg.Verbose, "verbose", "v", false,
		"Print the outcome of every access.")

	flags.StringVar(&opts.configFile, "config", "",
		"YAML file with the run parameters.")
	flags.StringVar(&opts.logLevel, "log-level", "warn",
		"Log level (trace, debug, info, warn, error, fatal, panic)")
	flags.StringVar(&opts.recordName, "record", "",
		"Record every access into <name>.sqlite3.")
	flags.BoolVar(&opts.setReport, "set-report", false,
		"Print how the accesses spread over the sets.")
	flags.BoolVar(&opts.monitor, "monitor", false,
		"Serve the monitoring page and keep serving after the replay.")
	flags.IntVar(&opts.monitorPort, "monitor-port", 0,
		"Port of the monitoring server. Random if below 1000.")
	flags.BoolVar(&opts.openBrowser, "open-browser", false,
		"Open the monitoring page in a browser.")

	return rootCmd
}

// Execute runs the csim command and returns the process exit code.
func Execute() int {
	err := NewRootCommand().Execute()
	if err != nil {
		return 1
	}

	return 0
}

func run(cmd *cobra.Command, opts *options) error {
	level, err := logrus.ParseLevel(opts.logLevel)
	if err != nil {
		logrus.Errorf("Invalid log level: %s", opts.logLevel)
		return err
	}

	logrus.SetLevel(level)

	cfg, err := resolveConfig(cmd, opts)
	if err != nil {
		logrus.Error(err)
		return err
	}

	logrus.WithFields(logrus.Fields{
		"sets":       cfg.Sets,
		"ways":       cfg.Ways,
		"block_size": cfg.BlockSize,
		"policy":     cfg.Policy,
		"trace":      cfg.Trace,
	}).Info("Starting replay")

	traceFile, err := os.Open(cfg.Trace)
	if err != nil {
		logrus.Error(err)
		return err
	}
	defer traceFile.Close()

	c := cfg.Builder().Build("Cache")
	replayer := trace.NewReplayer(c, cfg.BlockSize)
	out := cmd.OutOrStdout()

	if cfg.Verbose {
		attachVerbosePrinter(out, c, replayer)
	}

	if opts.recordName != "" {
		recorder := datarecording.New(opts.recordName)
		defer recorder.Close()

		tracer := tracing.NewDBTracer(recorder, sim.NewParallelIDGenerator())
		c.AcceptHook(tracer)
		replayer.AcceptHook(tracer)
	}

	var monitor *monitoring.Monitor
	var bar *monitoring.ProgressBar

	if opts.monitor {
		monitor, bar = startMonitor(opts, cfg.Trace, c, replayer)
	}

	reader := trace.NewReader(traceFile)
	if err := replayer.Replay(reader); err != nil {
		logrus.Error(err)
		return err
	}

	logrus.WithFields(logrus.Fields{
		"records": replayer.NumRecords(),
		"lines":   reader.LineNumber(),
		"skipped": reader.Skipped(),
	}).Info("Replay finished")

	printSummary(out, c.Stats())

	if opts.setReport {
		fmt.Fprintln(out, analysis.SetUsage(c))
	}

	if monitor != nil {
		monitor.CompleteProgressBar(bar)
		serveUntilInterrupted(cmd)
	}

	return nil
}

// resolveConfig layers the configuration sources. Flags only override the
// other sources when they are given explicitly.
func resolveConfig(cmd *cobra.Command, opts *options) (config.Config, error) {
	cfg := config.Default()

	if opts.configFile != "" {
		var err error

		cfg, err = config.LoadFile(opts.configFile)
		if err != nil {
			return cfg, err
		}
	}

	if err := config.ApplyEnv(&cfg); err != nil {
		return cfg, err
	}

	flags := cmd.Flags()
	if flags.Changed("sets") {
		cfg.Sets = opts.cfg.Sets
	}

	if flags.Changed("ways") {
		cfg.Ways = opts.cfg.Ways
	}

	if flags.Changed("block-size") {
		cfg.BlockSize = opts.cfg.BlockSize
	}

	if flags.Changed("policy") {
		cfg.Policy = opts.cfg.Policy
	}

	if flags.Changed("trace") {
		cfg.Trace = opts.cfg.Trace
	}

	if flags.Changed("verbose") {
		cfg.Verbose = opts.cfg.Verbose
	}

	return cfg, cfg.Validate()
}

func attachVerbosePrinter(
	out io.Writer,
	c *cache.Cache,
	replayer *trace.Replayer,
) {
	printer := tracing.NewVerbosePrinter(out)
	if out != os.Stdout {
		printer.DisableColor()
	}

	replayer.AcceptHook(printer)
	c.AcceptHook(printer)
}

func startMonitor(
	opts *options,
	tracePath string,
	c *cache.Cache,
	replayer *trace.Replayer,
) (*monitoring.Monitor, *monitoring.ProgressBar) {
	monitor := monitoring.NewMonitor().
		WithPortNumber(opts.monitorPort).
		WithGuard(replayer.Guard())
	monitor.RegisterComponent(c)

	total, err := countLines(tracePath)
	if err != nil {
		logrus.Warnf("Cannot size the progress bar: %v", err)
	}

	bar := monitor.CreateProgressBar("Replay", total)
	replayer.AcceptHook(bar)

	url := monitor.StartServer()
	if opts.openBrowser {
		if err := monitoring.OpenBrowser(url); err != nil {
			logrus.Warnf("Cannot open browser: %v", err)
		}
	}

	return monitor, bar
}

// countLines returns the number of lines in the trace, an upper bound of the
// number of records. Line length is not limited.
func countLines(path string) (uint64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	var (
		n    uint64
		last byte = '\n'
	)

	buf := make([]byte, 64*1024)

	for {
		k, err := f.Read(buf)
		if k > 0 {
			n += uint64(bytes.Count(buf[:k], []byte{'\n'}))
			last = buf[k-1]
		}

		if err == io.EOF {
			break
		}

		if err != nil {
			return n, err
		}
	}

	if last != '\n' {
		n++
	}

	return n, nil
}

func printSummary(w io.Writer, stats cache.Statistics) {
	fmt.Fprintf(w, "hits:%d misses:%d evictions:%d\n",
		stats.Hits, stats.Misses, stats.Evictions)
}

func serveUntilInterrupted(cmd *cobra.Command) {
	ctx, stop := signal.NotifyContext(cmd.Context(),
		os.Interrupt, syscall.SIGTERM)
	defer stop()

	logrus.Warn("Replay finished, monitoring server keeps running. " +
		"Press Ctrl+C to exit.")

	<-ctx.Done()
}
