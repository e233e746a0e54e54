// sweepq reconciles the Redis state of a job-queue deployment: it removes
// finished job records, regenerable metrics, expired timestamped data,
// empty duplicate queues and duplicate queued payloads, and optionally
// stale overlap locks.
package main

import (
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/not-empty/sweepq-go"
)

var version = "dev"

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	var (
		configPath   string
		redisURL     string
		prefix       string
		lockRedisURL string
		lockMarker   string
		textfile     string
		sweepOpts    sweepq.SweepOpts
		noColor      bool
		showVersion  bool
	)

	flagSet := pflag.NewFlagSet("sweepq", pflag.ContinueOnError)
	flagSet.BoolVar(&sweepOpts.DryRun, "dry-run", false, "show what would be deleted without deleting")
	flagSet.BoolVar(&sweepOpts.SkipOverlapping, "skip-overlapping", false, "skip overlapping queue cleanup")
	flagSet.BoolVar(&sweepOpts.ClearLocks, "clear-locks", false, "clear stale overlap locks (no expiration set)")
	flagSet.BoolVarP(&sweepOpts.Verbose, "verbose", "v", false, "also report keys that are kept")
	flagSet.StringVar(&configPath, "config", "", "path to a YAML or JSON configuration file")
	flagSet.StringVar(&redisURL, "redis-url", "", "queue connection URL (overrides config)")
	flagSet.StringVar(&prefix, "prefix", "", "queue key prefix (overrides config)")
	flagSet.StringVar(&lockRedisURL, "lock-redis-url", "", "lock connection URL (overrides config)")
	flagSet.StringVar(&lockMarker, "lock-marker", "", "substring identifying lock keys (overrides config)")
	flagSet.StringVar(&textfile, "metrics-textfile", "", "write run metrics to this file in Prometheus text format")
	flagSet.BoolVar(&noColor, "no-color", false, "disable coloured output")
	flagSet.BoolVar(&showVersion, "version", false, "print version and exit")
	flagSet.BoolP("help", "h", false, "show help")

	if err := flagSet.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			printHelp(flagSet)
			return nil
		}
		return err
	}
	if help, _ := flagSet.GetBool("help"); help {
		printHelp(flagSet)
		return nil
	}
	if showVersion {
		fmt.Printf("sweepq %s\n", version)
		return nil
	}

	if noColor || !term.IsTerminal(int(os.Stdout.Fd())) {
		lipgloss.SetColorProfile(termenv.Ascii)
	}

	cfg, err := sweepq.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	sweepq.ConfigFromEnv(&cfg)

	if redisURL != "" {
		cfg.Redis.URL = redisURL
	}
	if flagSet.Changed("prefix") {
		cfg.Redis.Prefix = prefix
	}
	if lockRedisURL != "" {
		cfg.Locks.URL = lockRedisURL
	}
	if lockMarker != "" {
		cfg.Locks.Marker = lockMarker
	}
	if textfile != "" {
		cfg.MetricsTextfile = textfile
	}

	clientOpts := cfg.ClientOpts()
	if !sweepOpts.ClearLocks {
		clientOpts.Locks = nil
	}
	var metrics *sweepq.Metrics
	if cfg.MetricsTextfile != "" {
		metrics = sweepq.NewMetrics()
		clientOpts.Metrics = metrics
	}

	client, err := sweepq.NewClient(clientOpts)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}

	if _, err := client.Cleanup(sweepOpts); err != nil {
		return err
	}

	if metrics != nil {
		if err := metrics.WriteTextfile(cfg.MetricsTextfile); err != nil {
			return fmt.Errorf("write metrics: %w", err)
		}
	}
	return nil
}

func printHelp(flagSet *pflag.FlagSet) {
	fmt.Println(`Usage: sweepq [options]

Cleanup Redis (job records, metrics, overlapping queues, cache locks and
related data).

Options:`)
	flagSet.PrintDefaults()
}
