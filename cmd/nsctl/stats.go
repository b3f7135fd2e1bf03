package main

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/joshuapare/nskit/internal/format"
	"github.com/joshuapare/nskit/ns/instance"
	"github.com/joshuapare/nskit/ns/message"
)

var (
	cfgBuffers    int
	cfgBufferSize int
	cfgHeapSize   int
	workMessages  int
	workBytes     int
)

func init() {
	cmd := newStatsCmd()
	addGeometryFlags(cmd)
	addWorkloadFlags(cmd)
	rootCmd.AddCommand(cmd)
}

func addGeometryFlags(cmd *cobra.Command) {
	cmd.Flags().IntVar(&cfgBuffers, "buffers", format.DefaultNumBuffers, "Number of message buffers")
	cmd.Flags().IntVar(&cfgBufferSize, "buffer-size", format.DefaultBufferSize, "Size of one message buffer in bytes")
	cmd.Flags().IntVar(&cfgHeapSize, "heap-size", format.DefaultHeapSize, "Heap arena size in bytes")
}

func addWorkloadFlags(cmd *cobra.Command) {
	cmd.Flags().IntVar(&workMessages, "messages", 0, "Messages to allocate before reporting")
	cmd.Flags().IntVar(&workBytes, "bytes", 200, "Payload bytes per workload message")
}

func configFromFlags() instance.Config {
	cfg := instance.DefaultConfig()
	cfg.NumBuffers = cfgBuffers
	cfg.BufferSize = cfgBufferSize
	cfg.HeapSize = cfgHeapSize
	return cfg
}

func newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show pool and heap figures for a geometry",
		Long: `The stats command builds an instance with the given geometry,
optionally loads it with a workload of queued messages and heap blocks,
and reports buffer and heap usage.

Example:
  nsctl stats
  nsctl stats --buffers 128 --buffer-size 256
  nsctl stats --messages 10 --bytes 400 --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStats()
		},
	}
}

// workload keeps messages queued and heap blocks allocated.
type workload struct {
	queue  message.PriorityQueue
	blocks [][]byte
	short  int // messages that could not be allocated
}

var workPriorities = []message.Priority{
	message.PriorityNormal, message.PriorityLow, message.PriorityHigh, message.PriorityNet,
}

// runWorkload queues n messages of size bytes across all priorities and
// takes one heap block of size/4 bytes per message. Running out of buffers
// or heap is counted, not fatal.
func runWorkload(rt *simRuntime, n, size int) (*workload, error) {
	w := &workload{}
	for i := range n {
		m, err := rt.Pool().New(message.TypeIP6, 0, workPriorities[i%len(workPriorities)])
		if err == nil {
			if err = m.SetLength(size); err != nil {
				m.Free()
			}
		}
		if err != nil {
			w.short++
			continue
		}
		if err := w.queue.Enqueue(m); err != nil {
			return nil, err
		}
		if p := rt.Heap().Calloc(1, max(size/4, 1)); p != nil {
			w.blocks = append(w.blocks, p)
		}
	}
	return w, nil
}

// release frees everything the workload holds.
func (w *workload) release(rt *simRuntime) {
	for m := w.queue.Head(); m != nil; m = w.queue.Head() {
		m.Free()
	}
	for _, p := range w.blocks {
		rt.Heap().Free(p)
	}
	w.blocks = nil
}

type statsReport struct {
	Config   instance.Config `json:"config"`
	Stats    instance.Stats  `json:"stats"`
	Workload struct {
		Requested int `json:"requested"`
		Queued    int `json:"queued"`
		Short     int `json:"short"`
	} `json:"workload"`
}

func runStats() error {
	cfg := configFromFlags()
	rt, err := newSimRuntime(cfg)
	if err != nil {
		return err
	}
	defer rt.Close()

	report := statsReport{Config: cfg}
	if workMessages > 0 {
		printVerbose("Loading %d messages of %d bytes\n", workMessages, workBytes)
		w, err := runWorkload(rt, workMessages, workBytes)
		if err != nil {
			return err
		}
		defer w.release(rt)
		report.Workload.Requested = workMessages
		report.Workload.Queued = w.queue.Info().Messages
		report.Workload.Short = w.short
	}
	report.Stats = rt.Stats()

	if jsonOut {
		return printJSON(report)
	}

	pool, heap := report.Stats.Pool, report.Stats.Heap
	printInfo("\nRuntime Statistics\n")
	printInfo("%s\n\n", strings.Repeat("═", 40))

	printInfo("Message Pool:\n")
	printInfo("  Buffers: %s x %s\n", formatNumber(int64(pool.TotalBuffers)), formatBytes(int64(pool.BufferSize)))
	printInfo("  Payload per head buffer: %d bytes\n", format.HeadDataSize(pool.BufferSize))
	printInfo("  Payload per continuation buffer: %d bytes\n", format.DataSize(pool.BufferSize))
	printInfo("  Free: %s (%s in use)\n", formatNumber(int64(pool.FreeBuffers)), formatNumber(int64(pool.InUse())))
	printInfo("  Queued: %d messages in %d buffers\n\n", pool.QueuedMsgs, pool.QueuedBuffers)

	printInfo("Heap:\n")
	printInfo("  Arena: %s (%s usable)\n", formatBytes(int64(cfg.HeapSize)), formatNumber(int64(heap.Capacity)))
	printInfo("  Free: %s bytes in %d blocks (largest %s)\n",
		formatNumber(int64(heap.FreeSize)), heap.FreeBlocks, formatNumber(int64(heap.LargestFree)))
	printInfo("  Allocated: %d blocks, %s bytes\n", heap.AllocatedBlocks, formatNumber(int64(heap.AllocatedBytes)))
	printInfo("  Fragmentation: %.1f%%\n", heap.Fragmentation()*100)

	if report.Workload.Requested > 0 {
		printInfo("\nWorkload:\n")
		printInfo("  Queued %d of %d messages", report.Workload.Queued, report.Workload.Requested)
		if report.Workload.Short > 0 {
			printInfo(" (%d short of buffers)", report.Workload.Short)
		}
		printInfo("\n")
	}
	return nil
}
