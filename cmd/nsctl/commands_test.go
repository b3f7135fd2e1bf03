package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/joshuapare/nskit/pkg/types"
)

func TestSelftestPasses(t *testing.T) {
	resetFlags(t)
	out, err := captureOutput(t, runSelftest)
	require.NoError(t, err, out)

	var names []string
	for _, c := range selfChecks {
		names = append(names, c.name)
	}
	assertContains(t, out, names)
	assertContains(t, out, []string{"8/8 checks passed"})
}

func TestSelftestJSON(t *testing.T) {
	resetFlags(t)
	jsonOut = true
	selftestRun = "heap"

	out, err := captureOutput(t, runSelftest)
	require.NoError(t, err)

	var results []checkResult
	decodeJSON(t, out, &results)
	require.Equal(t, []checkResult{{Name: "heap", Passed: true}}, results)
}

func TestSelftestUnknownCheck(t *testing.T) {
	resetFlags(t)
	selftestRun = "nope"
	_, err := captureOutput(t, runSelftest)
	require.ErrorContains(t, err, `no check named "nope"`)
}

func TestStatsText(t *testing.T) {
	resetFlags(t)
	out, err := captureOutput(t, runStats)
	require.NoError(t, err)
	assertContains(t, out, []string{
		"Message Pool:",
		"Buffers: 44 x 128 B",
		"Payload per head buffer: 60 bytes",
		"Payload per continuation buffer: 124 bytes",
		"Arena: 24.0 KiB",
	})
}

func TestStatsJSONWithWorkload(t *testing.T) {
	resetFlags(t)
	jsonOut = true
	workMessages, workBytes = 10, 300

	out, err := captureOutput(t, runStats)
	require.NoError(t, err)

	var report statsReport
	decodeJSON(t, out, &report)
	require.Equal(t, 10, report.Workload.Requested)
	require.Equal(t, 10, report.Workload.Queued)
	require.Equal(t, 10, report.Stats.Pool.QueuedMsgs)
	// 300 bytes take a head and two continuation buffers
	require.Equal(t, 30, report.Stats.Pool.QueuedBuffers)
	require.Equal(t, 14, report.Stats.Pool.FreeBuffers)
	require.Equal(t, 10, report.Stats.Heap.AllocatedBlocks)
}

func TestStatsWorkloadRunsShort(t *testing.T) {
	resetFlags(t)
	jsonOut = true
	workMessages, workBytes = 50, 100

	out, err := captureOutput(t, runStats)
	require.NoError(t, err)

	var report statsReport
	decodeJSON(t, out, &report)
	require.Equal(t, 22, report.Workload.Queued)
	require.Equal(t, 28, report.Workload.Short)
	require.Zero(t, report.Stats.Pool.FreeBuffers)
}

func TestStatsRejectsGeometry(t *testing.T) {
	resetFlags(t)
	cfgHeapSize = 100
	_, err := captureOutput(t, runStats)
	require.ErrorIs(t, err, types.ErrInvalidArgs)
}

func TestDiagnoseFormats(t *testing.T) {
	resetFlags(t)
	workMessages = 12
	diagAdvance = 50

	out, err := captureOutput(t, runDiagnose)
	require.NoError(t, err)
	assertContains(t, out, []string{"No issues found"})

	diagFormat = "json"
	out, err = captureOutput(t, runDiagnose)
	require.NoError(t, err)
	var report types.DiagnosticReport
	decodeJSON(t, out, &report)
	require.False(t, report.HasErrors())

	diagFormat = "text"
	diagShowSummary = true
	out, err = captureOutput(t, runDiagnose)
	require.NoError(t, err)
	assertContains(t, out, []string{"critical: 0, errors: 0"})

	diagFormat = "yaml"
	_, err = captureOutput(t, runDiagnose)
	require.ErrorContains(t, err, "unknown format")
}

func TestDiagnoseToFile(t *testing.T) {
	resetFlags(t)
	diagOutputFile = filepath.Join(t.TempDir(), "report.txt")

	out, err := captureOutput(t, runDiagnose)
	require.NoError(t, err)
	assertContains(t, out, []string{"Report written to"})

	data, err := os.ReadFile(diagOutputFile)
	require.NoError(t, err)
	require.NotEmpty(t, data)
}

func TestRunLoop(t *testing.T) {
	resetFlags(t)
	jsonOut = true
	runDuration = 300 * time.Millisecond
	runInterval = 20 * time.Millisecond

	out, err := captureOutput(t, func() error { return runLoop(t.Context()) })
	require.NoError(t, err)

	var report runReport
	decodeJSON(t, out, &report)
	require.Positive(t, report.Heartbeats)
	require.GreaterOrEqual(t, report.Stats.MilliFired, uint64(report.Heartbeats))
}

func TestFormatHelpers(t *testing.T) {
	require.Equal(t, "999", formatNumber(999))
	require.Equal(t, "24,576", formatNumber(24576))
	require.Equal(t, "1,000,000", formatNumber(1_000_000))
	require.Equal(t, "512 B", formatBytes(512))
	require.Equal(t, "24.0 KiB", formatBytes(24576))
	require.Equal(t, "1.5 MiB", formatBytes(1536*1024))
}

func TestVersionText(t *testing.T) {
	resetFlags(t)
	verbose = true
	t.Cleanup(func() { verbose = false })

	out, err := captureOutput(t, runVersion)
	require.NoError(t, err)
	assertContains(t, out, []string{"nsctl " + rootCmd.Version, "commit: none", "44 x 128 byte buffers", "24.0 KiB"})
}

func TestVersionJSON(t *testing.T) {
	resetFlags(t)
	jsonOut = true

	out, err := captureOutput(t, runVersion)
	require.NoError(t, err)
	var rep versionReport
	decodeJSON(t, out, &rep)
	require.Equal(t, rootCmd.Version, rep.Version)
	require.Equal(t, 44, rep.NumBuffers)
	require.Equal(t, 24576, rep.HeapSize)
}
