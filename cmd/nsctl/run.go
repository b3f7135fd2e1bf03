package main

import (
	"context"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/joshuapare/nskit/ns/instance"
	"github.com/joshuapare/nskit/ns/tasklet"
	"github.com/joshuapare/nskit/ns/timer"
)

var (
	runDuration time.Duration
	runInterval time.Duration
)

func init() {
	cmd := newRunCmd()
	addGeometryFlags(cmd)
	cmd.Flags().DurationVar(&runDuration, "duration", 2*time.Second, "How long to run the main loop")
	cmd.Flags().DurationVar(&runInterval, "interval", 100*time.Millisecond, "Heartbeat timer period")
	rootCmd.AddCommand(cmd)
}

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the main loop on the host clock",
		Long: `The run command starts an instance on the host platform and drives
its main loop for the given duration. A periodic millisecond timer posts a
heartbeat tasklet; the counts are printed at the end. Interrupt stops early.

Example:
  nsctl run
  nsctl run --duration 10s --interval 250ms`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLoop(cmd.Context())
		},
	}
}

type runReport struct {
	Elapsed    time.Duration  `json:"elapsed"`
	Heartbeats int            `json:"heartbeats"`
	Stats      instance.Stats `json:"stats"`
}

func runLoop(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}
	interval := uint32(max(runInterval.Milliseconds(), 1))

	inst, err := instance.New(configFromFlags())
	if err != nil {
		return err
	}
	defer inst.Close()

	ctx, stop := signal.NotifyContext(parent, os.Interrupt)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, runDuration)
	defer cancel()

	beats := 0
	heartbeat := tasklet.New(inst.Tasklets(), func(*tasklet.Tasklet) {
		beats++
		printVerbose("heartbeat %d at %d ms\n", beats, inst.MilliTimers().Now())
	}, nil)
	var beatErr error
	beat := inst.MilliTimers().NewTimer(func(t *timer.Timer) {
		// the heartbeat may still be queued when the loop is late
		_ = heartbeat.Post()
		if err := t.Start(interval); err != nil {
			beatErr = err
			cancel()
		}
	}, nil)
	if err := beat.Start(interval); err != nil {
		return err
	}

	start := time.Now()
	if err := inst.Run(ctx); err != nil {
		return err
	}
	if beatErr != nil {
		return beatErr
	}

	report := runReport{Elapsed: time.Since(start), Heartbeats: beats, Stats: inst.Stats()}
	if jsonOut {
		return printJSON(report)
	}
	printInfo("Ran %s: %d heartbeats, %d timers fired, %d tasklet runs\n",
		report.Elapsed.Round(time.Millisecond), report.Heartbeats,
		report.Stats.MilliFired, report.Stats.TaskletRuns)
	return nil
}
