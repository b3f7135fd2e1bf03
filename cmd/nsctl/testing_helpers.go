package main

import (
	"bytes"
	"os"
	"strings"
	"testing"

	"github.com/sugawarayuuta/sonnet"

	"github.com/joshuapare/nskit/internal/format"
)

// resetFlags restores every global flag to its default
func resetFlags(t *testing.T) {
	t.Helper()
	verbose, quiet, jsonOut, noColor, debug = false, false, false, true, false
	cfgBuffers = format.DefaultNumBuffers
	cfgBufferSize = format.DefaultBufferSize
	cfgHeapSize = format.DefaultHeapSize
	workMessages, workBytes = 0, 200
	selftestRun = ""
	diagFormat, diagOutputFile, diagShowSummary, diagAdvance = "text", "", false, 0
	t.Cleanup(func() { jsonOut, noColor = false, false })
}

// captureOutput captures stdout while running a function
func captureOutput(t *testing.T, fn func() error) (string, error) {
	t.Helper()

	origStdout := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("failed to create pipe: %v", err)
	}
	os.Stdout = w

	done := make(chan []byte)
	go func() {
		var buf bytes.Buffer
		_, _ = buf.ReadFrom(r)
		done <- buf.Bytes()
	}()

	fnErr := fn()

	w.Close()
	os.Stdout = origStdout
	out := <-done
	r.Close()

	return string(out), fnErr
}

// decodeJSON checks that output is valid JSON and decodes it into v
func decodeJSON(t *testing.T, output string, v any) {
	t.Helper()
	if err := sonnet.Unmarshal([]byte(output), v); err != nil {
		t.Fatalf("invalid JSON output: %v\nOutput: %s", err, output)
	}
}

// assertContains checks that output contains all expected strings
func assertContains(t *testing.T, output string, expected []string) {
	t.Helper()
	for _, want := range expected {
		if !strings.Contains(output, want) {
			t.Errorf("output missing expected string %q\nGot: %s", want, output)
		}
	}
}
