package types

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrKind_String(t *testing.T) {
	tests := []struct {
		name     string
		kind     ErrKind
		expected string
	}{
		{name: "no bufs", kind: ErrKindNoBufs, expected: "NoBufs"},
		{name: "already", kind: ErrKindAlready, expected: "Already"},
		{name: "not found", kind: ErrKindNotFound, expected: "NotFound"},
		{name: "failed", kind: ErrKindFailed, expected: "Failed"},
		{name: "invalid args", kind: ErrKindInvalidArgs, expected: "InvalidArgs"},
		{name: "unknown", kind: ErrKind(42), expected: "Unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.kind.String(); got != tt.expected {
				t.Errorf("ErrKind(%d).String() = %q, want %q", int(tt.kind), got, tt.expected)
			}
		})
	}
}

func TestError_Is(t *testing.T) {
	cause := errors.New("arena full")
	tests := []struct {
		name   string
		err    error
		target error
		want   bool
	}{
		{"sentinel matches itself", ErrNoBufs, ErrNoBufs, true},
		{"wrapped sentinel", fmt.Errorf("message: new: %w", ErrNoBufs), ErrNoBufs, true},
		{"same kind detail", Errorf(ErrKindNoBufs, "heap", cause), ErrNoBufs, true},
		{"different kind", ErrAlready, ErrNotFound, false},
		{"plain error", cause, ErrFailed, false},
		{"cause stays reachable", Errorf(ErrKindFailed, "check", cause), cause, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := errors.Is(tt.err, tt.target); got != tt.want {
				t.Errorf("errors.Is(%v, %v) = %v, want %v", tt.err, tt.target, got, tt.want)
			}
		})
	}
}

func TestError_Error(t *testing.T) {
	var nilErr *Error
	if got := nilErr.Error(); got != "<nil>" {
		t.Errorf("nil Error() = %q", got)
	}
	if got := ErrInvalidArgs.Error(); got != "invalid arguments" {
		t.Errorf("ErrInvalidArgs.Error() = %q", got)
	}
	e := Errorf(ErrKindFailed, "pool check", errors.New("free count drift"))
	if got := e.Error(); got != "pool check: free count drift" {
		t.Errorf("Error() = %q", got)
	}
}

func TestInfoHelpers(t *testing.T) {
	p := PoolInfo{TotalBuffers: 44, FreeBuffers: 30}
	if p.InUse() != 14 {
		t.Errorf("InUse() = %d, want 14", p.InUse())
	}

	tests := []struct {
		name string
		info HeapInfo
		used int
		frag float64
	}{
		{"empty free list", HeapInfo{Capacity: 100}, 100, 0},
		{"one free block", HeapInfo{Capacity: 100, FreeSize: 40, LargestFree: 40}, 60, 0},
		{"split free space", HeapInfo{Capacity: 100, FreeSize: 80, LargestFree: 20}, 20, 0.75},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.info.Used(); got != tt.used {
				t.Errorf("Used() = %d, want %d", got, tt.used)
			}
			if got := tt.info.Fragmentation(); got != tt.frag {
				t.Errorf("Fragmentation() = %v, want %v", got, tt.frag)
			}
		})
	}
}

func TestDiagnosticReport(t *testing.T) {
	r := NewDiagnosticReport()
	if r.HasAnyIssues() || r.Err() != nil {
		t.Fatal("new report should be empty")
	}
	if got := r.FormatTextCompact(); got != "No issues found.\n" {
		t.Errorf("FormatTextCompact() = %q", got)
	}

	r.Addf(SevWarning, "pool", -1, "pool exhausted")
	r.Addf(SevError, "heap", 14, "free size %d, counted %d", 100, 96)
	r.Addf(SevInfo, "heap", 6, "super block")
	r.Finalize()

	if !r.HasErrors() {
		t.Error("HasErrors() = false with an error present")
	}
	if r.Summary.Errors != 1 || r.Summary.Warnings != 1 || r.Summary.Info != 1 {
		t.Errorf("Summary = %+v", r.Summary)
	}
	if r.Diagnostics[0].Offset != 6 || r.Diagnostics[2].Component != "pool" {
		t.Errorf("Finalize order = %+v", r.Diagnostics)
	}
	if len(r.ByComponent["heap"]) != 2 {
		t.Errorf("ByComponent[heap] = %d entries", len(r.ByComponent["heap"]))
	}

	err := r.Err()
	if !errors.Is(err, ErrFailed) {
		t.Errorf("Err() = %v, want ErrFailed", err)
	}
	if err.Error() != "heap: free size 100, counted 96" {
		t.Errorf("Err() message = %q", err.Error())
	}
}
