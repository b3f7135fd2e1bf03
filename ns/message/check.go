package message

import (
	"fmt"

	"github.com/joshuapare/nskit/internal/format"
	"github.com/joshuapare/nskit/pkg/types"
)

const component = "pool"

// Check verifies buffer conservation and the all-messages ring, recording
// every issue in report. It returns an error wrapping types.ErrFailed when
// any error-level issue was found.
func (p *Pool) Check(report *types.DiagnosticReport) error {
	if report == nil {
		report = types.NewDiagnosticReport()
	}
	before := report.Summary.Errors + report.Summary.Critical
	n := len(p.links)

	owner := make([]int, n)
	for i := range owner {
		owner[i] = -1
	}

	// free list
	listed := 0
	for i := p.freeHead; i != noBuffer; i = p.links[i] {
		if int(i) >= n {
			report.Addf(types.SevCritical, component, int(i), "free list link out of range")
			break
		}
		if owner[i] != -1 {
			report.Addf(types.SevCritical, component, int(i), "free list revisits buffer")
			break
		}
		if p.kinds[i] != kindFree {
			report.Addf(types.SevError, component, int(i), "buffer on free list is %s", p.kinds[i])
		}
		owner[i] = int(i)
		listed++
	}
	if listed != p.numFree {
		report.Add(types.Diagnostic{
			Severity: types.SevError, Component: component, Offset: -1,
			Issue: "free counter disagrees with free list", Expected: listed, Actual: p.numFree,
		})
	}

	// message chains
	owned := 0
	for h := range n {
		if p.kinds[h] != kindHead {
			continue
		}
		m := &p.msgs[h]
		chain := 0
		for i := uint16(h); i != noBuffer; i = p.links[i] {
			if int(i) >= n || owner[i] != -1 {
				report.Addf(types.SevCritical, component, h, "chain of message shares buffer %d", i)
				break
			}
			if i != uint16(h) && p.kinds[i] != kindContinuation {
				report.Addf(types.SevError, component, int(i), "chained buffer is %s", p.kinds[i])
			}
			owner[i] = h
			owned++
			chain++
		}
		if m.offset > m.length {
			report.Addf(types.SevError, component, h, "offset %d past length %d", m.offset, m.length)
		}
		if got, want := chain-1, format.ChainBuffers(m.reserved+m.length, p.bufferSize); got < want {
			report.Addf(types.SevError, component, h, "chain holds %d buffers, needs %d", got, want)
		}
	}
	for i, o := range owner {
		if o == -1 {
			report.Addf(types.SevError, component, i, "%s buffer is unreachable", p.kinds[i])
		}
	}
	if listed+owned != n && listed == p.numFree {
		report.Add(types.Diagnostic{
			Severity: types.SevError, Component: component, Offset: -1,
			Issue: "buffers not conserved", Expected: n, Actual: listed + owned,
		})
	}

	p.checkAll(report)

	if report.Summary.Errors+report.Summary.Critical > before {
		return fmt.Errorf("message: pool check: %w", types.ErrFailed)
	}
	return nil
}

// checkAll walks the all-messages ring forward and verifies its back links
// and priority ordering.
func (p *Pool) checkAll(report *types.DiagnosticReport) {
	head := p.all.head(ListAll)
	if head == nil {
		return
	}
	last := head.priority
	steps := 0
	for m := head; ; {
		if !m.IsQueued() {
			report.Addf(types.SevError, component, int(m.index), "message on all-messages ring is not queued")
		}
		if m.priority > last {
			report.Addf(types.SevError, component, int(m.index), "priority %s after %s", m.priority, last)
		}
		last = m.priority
		next := p.msg(m.next[ListAll])
		if next == nil || next.prev[ListAll] != m.index {
			report.Addf(types.SevCritical, component, int(m.index), "all-messages ring link broken")
			return
		}
		steps++
		if m == p.all.tail() {
			if next != head {
				report.Addf(types.SevCritical, component, int(m.index), "tail does not link to head")
			}
			return
		}
		if steps > len(p.links) {
			report.Addf(types.SevCritical, component, -1, "all-messages ring does not reach its tail")
			return
		}
		m = next
	}
}
