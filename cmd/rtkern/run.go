package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"omibyte.io/rtkern/config"
	"omibyte.io/rtkern/logging"
	"omibyte.io/rtkern/system"
)

type runOptions struct {
	config     string
	target     string
	mode       string
	procs      int
	rounds     int
	preemptive bool
	tick       time.Duration
	logLevel   string
}

func newRunCmd() *cobra.Command {
	opts := runOptions{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a demo workload",
		Long: "Boot a kernel and run worker processes that take turns for a number of rounds, " +
			"then print the order they ran in and the stack usage report.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.config)
			if err != nil {
				return err
			}

			// Flags win over the file and the environment
			flags := cmd.Flags()
			if flags.Changed("target") {
				cfg.Target = opts.target
			}
			if flags.Changed("mode") {
				cfg.StackMode = config.StackMode(opts.mode)
			}
			if flags.Changed("preemptive") {
				cfg.Preemptive = opts.preemptive
			}
			if flags.Changed("log-level") {
				cfg.Log.Level = opts.logLevel
			}
			if cfg.StackMode == config.StackStatic {
				return fmt.Errorf("the demo workload needs emul or heap stacks")
			}

			log := logging.New(logging.ParseLevel(cfg.Log.Level), cfg.Log.Format, cmd.ErrOrStderr())
			if len(cfg.Log.Dir) > 0 {
				if err = logging.AddFileRotation(log, cfg.Log.Dir, cfg.Log.RotateCount); err != nil {
					return err
				}
			}

			return runWorkload(cmd.OutOrStdout(), cfg, log, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.config, "config", "c", os.Getenv("RTKERN_CONFIG"), "configuration file (.yaml or .toml)")
	cmd.Flags().StringVarP(&opts.target, "target", "t", "host", "target CPU")
	cmd.Flags().StringVarP(&opts.mode, "mode", "m", "emul", "stack mode (=emul, =heap)")
	cmd.Flags().IntVarP(&opts.procs, "procs", "n", 3, "number of worker processes")
	cmd.Flags().IntVarP(&opts.rounds, "rounds", "r", 2, "rounds each worker runs")
	cmd.Flags().BoolVarP(&opts.preemptive, "preemptive", "p", false, "enable time slicing")
	cmd.Flags().DurationVar(&opts.tick, "tick", time.Millisecond, "timer tick period")
	cmd.Flags().StringVar(&opts.logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	return cmd
}

func runWorkload(out io.Writer, cfg config.Config, log *logrus.Logger, opts runOptions) error {
	if opts.procs <= 0 || opts.rounds <= 0 {
		return fmt.Errorf("procs and rounds must be positive")
	}

	s, err := system.New(cfg, log)
	if err != nil {
		return err
	}
	defer s.Shutdown()
	k := s.Kernel

	heartbeats := 0
	if _, err = s.Tasks.Add(func(any) bool {
		heartbeats++
		return true
	}, 10, nil); err != nil {
		return err
	}
	s.StartTimer(opts.tick)

	base := k.Processes()
	var order []string
	for i := 0; i < opts.procs; i++ {
		name := fmt.Sprintf("worker%d", i)
		_, err = k.Create(name, func() {
			for r := 0; r < opts.rounds; r++ {
				order = append(order, k.Current().Name())
				if cfg.Preemptive {
					k.PreemptPoint()
				} else {
					k.Yield()
				}
			}
		}, i, 0, nil)
		if err != nil {
			return err
		}
	}

	// Report before the workers exit so their stacks are still monitored.
	var report []string
	if s.Monitor != nil {
		k.Yield()
		for _, e := range s.Monitor.Report() {
			report = append(report, fmt.Sprintf("%4d  %-10s %8d %8d",
				e.ID, e.Name, e.StackWords*s.Target.WordSize, e.FreeWords*s.Target.WordSize))
		}
	}

	for k.Processes() > base {
		k.Yield()
	}

	bold := color.New(color.Bold)
	bold.Fprintf(out, "target %s, %s stacks\n", s.Target.Name, cfg.StackMode)
	fmt.Fprintf(out, "run order: %s\n", strings.Join(order, " "))
	fmt.Fprintf(out, "switches: %d, ticks: %d, heartbeats: %d\n", s.Machine.Switches(), k.Ticks(), heartbeats)
	if len(report) > 0 {
		bold.Fprintf(out, "%4s  %-10s %8s %8s\n", "id", "process", "stack", "free")
		for _, line := range report {
			fmt.Fprintln(out, line)
		}
	}
	return nil
}
