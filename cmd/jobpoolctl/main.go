// Command jobpoolctl runs a jobpool.Pool as a small standalone program:
// submit a batch of synthetic jobs, print periodic stats while they drain,
// and honor SIGUSR1/SIGUSR2 as external pause/resume controls so the
// pause/resume lifecycle can be exercised from outside the process.
package main

import (
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-foundations/jobpool"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	numWorkers int
	numJobs    int
	jobSleep   time.Duration
	verbose    bool
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "jobpoolctl: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "jobpoolctl",
		Short: "Run a jobpool worker pool from the command line",
	}
	root.AddCommand(newRunCmd())
	return root
}

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start a pool, submit synthetic jobs, and report stats until it drains",
		RunE:  runPool,
	}
	cmd.Flags().IntVar(&numWorkers, "workers", 4, "number of pool workers")
	cmd.Flags().IntVar(&numJobs, "jobs", 200, "number of synthetic jobs to submit")
	cmd.Flags().DurationVar(&jobSleep, "job-sleep", 20*time.Millisecond, "simulated per-job work duration")
	cmd.Flags().BoolVar(&verbose, "verbose", false, "log at debug level instead of info")
	return cmd
}

func runPool(cmd *cobra.Command, args []string) error {
	logger := logrus.New()
	if verbose {
		logger.SetLevel(logrus.DebugLevel)
	}

	cfg := jobpool.DefaultConfig()
	cfg.NumWorkers = numWorkers
	cfg.Logger = logger

	pool, err := jobpool.NewWithConfig(cfg)
	if err != nil {
		return fmt.Errorf("starting pool: %w", err)
	}
	defer pool.Destroy()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGUSR1, syscall.SIGUSR2)
	go func() {
		for sig := range sigCh {
			switch sig {
			case syscall.SIGUSR1:
				logger.Info("jobpoolctl: SIGUSR1 received, pausing pool")
				pool.Pause()
			case syscall.SIGUSR2:
				logger.Info("jobpoolctl: SIGUSR2 received, resuming pool")
				pool.Resume()
			}
		}
	}()
	defer signal.Stop(sigCh)

	payload := func(any) int {
		if jobSleep > 0 {
			time.Sleep(jobSleep)
		}
		return rand.Intn(100)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "submitting %d jobs to %d workers\n", numJobs, numWorkers)
	for i := 0; i < numJobs; i++ {
		if err := pool.AddWork(i, payload, nil); err != nil {
			return fmt.Errorf("submitting job %d: %w", i, err)
		}
	}

	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()
	for range ticker.C {
		metrics := pool.Metrics()
		queueOutLen := pool.QueueOutLen()
		fmt.Fprintf(cmd.OutOrStdout(), "working=%d queue_out=%d submitted=%d\n",
			pool.NumThreadsWorking(), queueOutLen, metrics.JobsSubmitted)
		if queueOutLen >= numJobs {
			fmt.Fprintln(cmd.OutOrStdout(), "all jobs drained")
			return nil
		}
	}
	return nil
}
