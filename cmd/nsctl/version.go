package main

import (
	"runtime"

	"github.com/spf13/cobra"

	"github.com/joshuapare/nskit/internal/format"
)

// Set through -ldflags at release time.
var (
	version = ""
	commit  = "none"
	date    = "unknown"
)

type versionReport struct {
	Version    string `json:"version"`
	Commit     string `json:"commit"`
	Built      string `json:"built"`
	Go         string `json:"go"`
	NumBuffers int    `json:"num_buffers"`
	BufferSize int    `json:"buffer_size"`
	HeapSize   int    `json:"heap_size"`
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information and the default runtime geometry",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runVersion()
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

func currentVersion() versionReport {
	v := version
	if v == "" {
		v = rootCmd.Version
	}
	return versionReport{
		Version:    v,
		Commit:     commit,
		Built:      date,
		Go:         runtime.Version(),
		NumBuffers: format.DefaultNumBuffers,
		BufferSize: format.DefaultBufferSize,
		HeapSize:   format.DefaultHeapSize,
	}
}

func runVersion() error {
	rep := currentVersion()
	if jsonOut {
		return printJSON(rep)
	}
	printInfo("nsctl %s (%s)\n", rep.Version, rep.Go)
	printInfo("  commit: %s\n", rep.Commit)
	printInfo("  built:  %s\n", rep.Built)
	printVerbose("  pool:   %d x %d byte buffers\n", rep.NumBuffers, rep.BufferSize)
	printVerbose("  heap:   %s\n", formatBytes(int64(rep.HeapSize)))
	return nil
}
