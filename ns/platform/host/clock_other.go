//go:build !linux && !darwin

package host

func monotonicNanos() int64 { return fallbackNanos() }
