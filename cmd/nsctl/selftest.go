package main

import (
	"bytes"
	"errors"
	"fmt"
	"math/rand/v2"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/joshuapare/nskit/ns/instance"
	"github.com/joshuapare/nskit/ns/message"
	"github.com/joshuapare/nskit/ns/tasklet"
	"github.com/joshuapare/nskit/ns/timer"
)

var selftestRun string

func init() {
	cmd := newSelftestCmd()
	cmd.Flags().StringVar(&selftestRun, "run", "", "Run only the named check")
	rootCmd.AddCommand(cmd)
}

func newSelftestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "selftest",
		Short: "Run the built-in runtime checks",
		Long: `The selftest command runs each check on a fresh instance with the
simulated platform and reports pass or fail per check.

Example:
  nsctl selftest
  nsctl selftest --run heap
  nsctl selftest --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSelftest()
		},
	}
}

type selfCheck struct {
	name string
	run  func(rt *simRuntime) error
}

type checkResult struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Error  string `json:"error,omitempty"`
}

var selfChecks = []selfCheck{
	{"message-queue", checkMessageQueue},
	{"priority-queue", checkPriorityQueue},
	{"message-io", checkMessageIO},
	{"heap", checkHeap},
	{"tasklet-timer", checkTaskletTimer},
	{"trickle", checkTrickle},
	{"crypto", checkCrypto},
	{"diagnose", checkDiagnose},
}

var errSelftestFailed = errors.New("selftest failed")

func runSelftest() error {
	var results []checkResult
	for _, c := range selfChecks {
		if selftestRun != "" && c.name != selftestRun {
			continue
		}
		res := checkResult{Name: c.name, Passed: true}
		rt, err := newSimRuntime(instance.DefaultConfig())
		if err == nil {
			err = c.run(rt)
			_ = rt.Close()
		}
		if err != nil {
			res.Passed = false
			res.Error = err.Error()
		}
		printVerbose("ran %s\n", c.name)
		results = append(results, res)
	}
	if len(results) == 0 {
		return fmt.Errorf("no check named %q", selftestRun)
	}

	failed := 0
	for _, r := range results {
		if !r.Passed {
			failed++
		}
	}

	if jsonOut {
		if err := printJSON(results); err != nil {
			return err
		}
	} else {
		pass, fail := passStyle(), failStyle()
		for _, r := range results {
			if r.Passed {
				printInfo("  %s  %s\n", pass.Render("PASS"), r.Name)
			} else {
				printInfo("  %s  %s: %s\n", fail.Render("FAIL"), r.Name, r.Error)
			}
		}
		printInfo("\n%d/%d checks passed\n", len(results)-failed, len(results))
	}

	if failed > 0 {
		return fmt.Errorf("%w: %d of %d checks", errSelftestFailed, failed, len(results))
	}
	return nil
}

func passStyle() lipgloss.Style {
	if noColor {
		return lipgloss.NewStyle()
	}
	return lipgloss.NewStyle().Foreground(successColor).Bold(true)
}

func failStyle() lipgloss.Style {
	if noColor {
		return lipgloss.NewStyle()
	}
	return lipgloss.NewStyle().Foreground(errorColor).Bold(true)
}

// newMessages allocates n empty messages of the given priority.
func newMessages(pool *message.Pool, n int, p message.Priority) ([]*message.Message, error) {
	msgs := make([]*message.Message, n)
	for i := range msgs {
		m, err := pool.New(message.TypeIP6, 0, p)
		if err != nil {
			return nil, err
		}
		msgs[i] = m
	}
	return msgs, nil
}

func expectOrder(got func(yield func(*message.Message) bool), want []*message.Message) error {
	i := 0
	for m := range got {
		if i >= len(want) || m != want[i] {
			return fmt.Errorf("message %d out of order", i)
		}
		i++
	}
	if i != len(want) {
		return fmt.Errorf("saw %d messages, want %d", i, len(want))
	}
	return nil
}

func checkMessageQueue(rt *simRuntime) error {
	pool := rt.Pool()
	msgs, err := newMessages(pool, 5, message.PriorityNormal)
	if err != nil {
		return err
	}

	var q message.Queue
	for _, step := range []struct {
		m      *message.Message
		atHead bool
	}{
		{msgs[0], false}, {msgs[1], false}, {msgs[2], true}, {msgs[3], false}, {msgs[4], true},
	} {
		if step.atHead {
			err = q.EnqueueAtHead(step.m)
		} else {
			err = q.Enqueue(step.m)
		}
		if err != nil {
			return err
		}
	}
	if err := expectOrder(q.Messages(), []*message.Message{msgs[4], msgs[2], msgs[0], msgs[1], msgs[3]}); err != nil {
		return err
	}
	if err := q.Dequeue(msgs[0]); err != nil {
		return err
	}
	if err := q.Dequeue(msgs[0]); err == nil {
		return errors.New("second dequeue succeeded")
	}
	if err := expectOrder(q.Messages(), []*message.Message{msgs[4], msgs[2], msgs[1], msgs[3]}); err != nil {
		return err
	}

	for _, m := range msgs {
		m.Free()
	}
	if pool.FreeBuffers() != pool.NumBuffers() {
		return fmt.Errorf("%d of %d buffers free after release", pool.FreeBuffers(), pool.NumBuffers())
	}
	return nil
}

func checkPriorityQueue(rt *simRuntime) error {
	pool := rt.Pool()
	var pq message.PriorityQueue
	byPriority := make(map[message.Priority][]*message.Message)
	for _, p := range []message.Priority{
		message.PriorityLow, message.PriorityNet, message.PriorityNormal,
		message.PriorityHigh, message.PriorityLow, message.PriorityNet,
	} {
		m, err := pool.New(message.TypeIP6, 0, p)
		if err != nil {
			return err
		}
		if err := pq.Enqueue(m); err != nil {
			return err
		}
		byPriority[p] = append(byPriority[p], m)
	}

	var want []*message.Message
	for _, p := range []message.Priority{
		message.PriorityNet, message.PriorityHigh, message.PriorityNormal, message.PriorityLow,
	} {
		want = append(want, byPriority[p]...)
	}
	if err := expectOrder(pq.Messages(), want); err != nil {
		return err
	}
	if err := expectOrder(pool.AllMessages(), want); err != nil {
		return fmt.Errorf("all messages: %w", err)
	}
	for _, m := range want {
		if pq.Head() != m {
			return errors.New("head is not the next message in priority order")
		}
		m.Free()
	}
	if !pq.Empty() {
		return errors.New("queue not empty after freeing every message")
	}
	return nil
}

func checkMessageIO(rt *simRuntime) error {
	pool := rt.Pool()
	payload := make([]byte, 1024)
	rng := rand.New(rand.NewPCG(1, 1))
	for i := range payload {
		payload[i] = byte(rng.Uint32())
	}

	m, err := pool.New(message.TypeIP6, 0, message.PriorityNormal)
	if err != nil {
		return err
	}
	defer m.Free()
	if err := m.SetLength(len(payload)); err != nil {
		return err
	}
	if n := m.Write(0, payload); n != len(payload) {
		return fmt.Errorf("wrote %d bytes", n)
	}

	clone, err := m.Clone()
	if err != nil {
		return err
	}
	defer clone.Free()

	got := make([]byte, len(payload))
	for _, src := range []*message.Message{m, clone} {
		if n := src.Read(0, got); n != len(payload) || !bytes.Equal(got, payload) {
			return errors.New("content differs after write and read back")
		}
	}
	return nil
}

func checkHeap(rt *simRuntime) error {
	h := rt.Heap()
	rng := rand.New(rand.NewPCG(2, 2))
	var live [][]byte
	for {
		p := h.Calloc(1, 1+rng.IntN(512))
		if p == nil {
			break
		}
		live = append(live, p)
	}
	if len(live) == 0 {
		return errors.New("no allocation succeeded")
	}
	if err := h.Check(nil); err != nil {
		return err
	}
	rng.Shuffle(len(live), func(i, j int) { live[i], live[j] = live[j], live[i] })
	for _, p := range live {
		h.Free(p)
	}
	if !h.IsClean() {
		return errors.New("heap not clean after freeing every block")
	}
	printVerbose("heap held %d blocks at exhaustion\n", len(live))
	return nil
}

func checkTaskletTimer(rt *simRuntime) error {
	runs := 0
	work := tasklet.New(rt.Tasklets(), func(*tasklet.Tasklet) { runs++ }, nil)
	var postErr error
	beat := rt.MilliTimers().NewTimer(func(t *timer.Timer) {
		postErr = errors.Join(postErr, work.Post(), t.Start(10))
	}, nil)
	if err := beat.Start(10); err != nil {
		return err
	}
	rt.advance(100)
	if postErr != nil {
		return postErr
	}
	if runs != 10 {
		return fmt.Errorf("tasklet ran %d times in 100ms, want 10", runs)
	}
	beat.Stop()
	return nil
}

func checkTrickle(rt *simRuntime) error {
	sent := 0
	tt := rt.NewTrickle(func(*timer.Trickle) bool { sent++; return true }, nil)
	if err := tt.Start(100, 800, timer.ModeTrickle); err != nil {
		return err
	}
	rt.advance(10_000)
	tt.Stop()
	if tt.Interval() > 800 {
		return fmt.Errorf("interval %d beyond maximum", tt.Interval())
	}
	// intervals double from at least 100 to at most 800
	if sent < 10_000/800 || sent > 10_000/50 {
		return fmt.Errorf("%d transmissions in 10s", sent)
	}
	return nil
}

func checkCrypto(rt *simRuntime) error {
	pskc, err := rt.Crypto().PSKc([]byte("12SECRETPASSWORD34"),
		[8]byte{0, 1, 2, 3, 4, 5, 6, 7}, "Test Network")
	if err != nil {
		return err
	}
	if got := fmt.Sprintf("%x", pskc); got != "c3f59368445a1b6106be420a706d4cc9" {
		return fmt.Errorf("pskc %s", got)
	}
	if !rt.Heap().IsClean() {
		return errors.New("crypto scratch not returned to the heap")
	}
	return nil
}

func checkDiagnose(rt *simRuntime) error {
	if _, err := runWorkload(rt, 8, 300); err != nil {
		return err
	}
	report := rt.Diagnose()
	if report.HasErrors() {
		fmt.Fprint(os.Stderr, report.FormatText())
		return report.Err()
	}
	return nil
}
