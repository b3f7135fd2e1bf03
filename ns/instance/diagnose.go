package instance

import (
	"github.com/joshuapare/nskit/pkg/types"
)

// Stats is a snapshot of instance resource usage.
type Stats struct {
	Pool        types.PoolInfo `json:"pool"`
	Heap        types.HeapInfo `json:"heap"`
	TaskletRuns uint64         `json:"tasklet_runs"`
	MilliFired  uint64         `json:"milli_timers_fired"`
	MicroFired  uint64         `json:"micro_timers_fired"`
	MilliTimers int            `json:"milli_timers_running"`
	MicroTimers int            `json:"micro_timers_running"`
}

// Stats reads the current figures. Call it from the main loop.
func (inst *Instance) Stats() Stats {
	st := Stats{
		Pool:        inst.pool.Info(),
		Heap:        inst.heap.Info(),
		TaskletRuns: inst.tasklets.Runs(),
		MilliFired:  inst.milli.Fired(),
		MilliTimers: inst.milli.Len(),
	}
	if inst.micro != nil {
		st.MicroFired = inst.micro.Fired()
		st.MicroTimers = inst.micro.Len()
	}
	return st
}

// Diagnose runs the structural checks of the heap, the pool and the timer
// lists and collects their findings. Call it from the main loop.
func (inst *Instance) Diagnose() *types.DiagnosticReport {
	report := types.NewDiagnosticReport()
	// each check records its own findings; the returned errors only summarize them
	_ = inst.heap.Check(report)
	_ = inst.pool.Check(report)
	_ = inst.milli.Check(report)
	if inst.micro != nil {
		_ = inst.micro.Check(report)
	}
	report.Finalize()
	return report
}
