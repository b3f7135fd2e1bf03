package main

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	overlay "github.com/rmhubbert/bubbletea-overlay"
	"github.com/spf13/cobra"
	"github.com/sugawarayuuta/sonnet"

	"github.com/joshuapare/nskit/ns/message"
	"github.com/joshuapare/nskit/ns/tasklet"
	"github.com/joshuapare/nskit/ns/timer"
)

var (
	monitorTick time.Duration
	monitorSeed uint64
)

func init() {
	cmd := newMonitorCmd()
	addGeometryFlags(cmd)
	cmd.Flags().IntVar(&workBytes, "bytes", 200, "Largest payload of a synthetic message")
	cmd.Flags().DurationVar(&monitorTick, "tick", 100*time.Millisecond, "Simulated time per frame")
	cmd.Flags().Uint64Var(&monitorSeed, "seed", 1, "Seed of the synthetic workload")
	rootCmd.AddCommand(cmd)
}

func newMonitorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "monitor",
		Short: "Watch pool and heap usage under a synthetic workload",
		Long: `The monitor command animates an instance on the simulated platform.
Every frame allocates or drops messages and heap blocks at random, while a
transmit timer drains the priority queue highest priority first.

Keys: space pauses, r releases everything, c copies the stats as JSON,
? shows help, q quits.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := newMonitorModel()
			if err != nil {
				return err
			}
			defer m.close()
			_, err = tea.NewProgram(m, tea.WithAltScreen()).Run()
			return err
		},
	}
}

type frameMsg time.Time

const txPeriod = 50 // ms between transmissions

type monitorModel struct {
	rt   *simRuntime
	rng  *rand.Rand
	keys monitorKeys

	queue  *message.PriorityQueue
	blocks [][]byte
	tx     *timer.Timer

	frames   int
	sent     int
	dropped  int
	paused   bool
	showHelp bool
	status   string
	width    int
	tickSize uint32
}

func newMonitorModel() (*monitorModel, error) {
	rt, err := newSimRuntime(configFromFlags())
	if err != nil {
		return nil, err
	}
	m := &monitorModel{
		rt:       rt,
		rng:      rand.New(rand.NewPCG(monitorSeed, monitorSeed^0x9e3779b97f4a7c15)),
		keys:     defaultMonitorKeys(),
		queue:    new(message.PriorityQueue),
		width:    80,
		tickSize: uint32(max(monitorTick.Milliseconds(), 1)),
	}

	send := tasklet.New(rt.Tasklets(), func(*tasklet.Tasklet) {
		if head := m.queue.Head(); head != nil {
			head.Free()
			m.sent++
		}
	}, nil)
	m.tx = rt.MilliTimers().NewTimer(func(t *timer.Timer) {
		_ = send.Post()
		_ = t.Start(txPeriod)
	}, nil)
	if err := m.tx.Start(txPeriod); err != nil {
		rt.Close()
		return nil, err
	}
	return m, nil
}

func (m *monitorModel) close() {
	m.release()
	m.tx.Stop()
	_ = m.rt.Close()
}

func frame(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg { return frameMsg(t) })
}

func (m *monitorModel) Init() tea.Cmd {
	return frame(monitorTick)
}

func (m *monitorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.showHelp {
			if key.Matches(msg, m.keys.Help) || key.Matches(msg, m.keys.Quit) {
				m.showHelp = false
			}
			return m, nil
		}
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Pause):
			m.paused = !m.paused
		case key.Matches(msg, m.keys.Release):
			m.release()
			m.status = "released"
		case key.Matches(msg, m.keys.Copy):
			m.copyStats()
		case key.Matches(msg, m.keys.Help):
			m.showHelp = true
		}
	case tea.WindowSizeMsg:
		m.width = msg.Width
	case frameMsg:
		if !m.paused {
			m.step()
		}
		return m, frame(monitorTick)
	}
	return m, nil
}

// step runs one frame of workload and simulated time.
func (m *monitorModel) step() {
	m.frames++
	for range 1 + m.rng.IntN(3) {
		if m.rng.IntN(4) == 0 {
			m.dropOne()
		} else {
			m.allocOne()
		}
	}
	m.rt.advance(m.tickSize)
}

func (m *monitorModel) allocOne() {
	prio := message.Priority(m.rng.IntN(message.NumPriorities))
	msg, err := m.rt.Pool().New(message.TypeIP6, 0, prio)
	if err == nil {
		if err = msg.SetLength(1 + m.rng.IntN(max(workBytes, 1))); err != nil {
			msg.Free()
		}
	}
	if err != nil {
		m.dropped++
		return
	}
	_ = m.queue.Enqueue(msg)

	if p := m.rt.Heap().Calloc(1, 8+m.rng.IntN(256)); p != nil {
		m.blocks = append(m.blocks, p)
	}
}

func (m *monitorModel) dropOne() {
	if len(m.blocks) > 0 {
		i := m.rng.IntN(len(m.blocks))
		m.rt.Heap().Free(m.blocks[i])
		m.blocks = append(m.blocks[:i], m.blocks[i+1:]...)
	}
	if tail := m.queue.Tail(); tail != nil {
		tail.Free()
	}
}

func (m *monitorModel) release() {
	for head := m.queue.Head(); head != nil; head = m.queue.Head() {
		head.Free()
	}
	for _, p := range m.blocks {
		m.rt.Heap().Free(p)
	}
	m.blocks = nil
}

// copyStats puts the current instance stats on the system clipboard.
func (m *monitorModel) copyStats() {
	data, err := sonnet.MarshalIndent(m.rt.Stats(), "", "  ")
	if err == nil {
		err = clipboard.WriteAll(string(data))
	}
	if err != nil {
		m.status = "copy failed: " + err.Error()
		return
	}
	m.status = "stats copied to clipboard"
}

func (m *monitorModel) View() string {
	if m.showHelp {
		return overlay.New(helpView{m}, dashboardView{m}, overlay.Center, overlay.Center, 0, 0).View()
	}
	return m.dashboard()
}

func (m *monitorModel) dashboard() string {
	st := m.rt.Stats()
	barWidth := max(min(m.width-30, 50), 10)

	var b strings.Builder
	b.WriteString(headerStyle.Render("nskit monitor"))
	b.WriteString("\n")

	poolFrac := float64(st.Pool.InUse()) / float64(st.Pool.TotalBuffers)
	heapFrac := float64(st.Heap.Used()) / float64(st.Heap.Capacity)
	body := lipgloss.JoinVertical(lipgloss.Left,
		fmt.Sprintf("%s %s %d/%d buffers",
			labelStyle.Render("pool"), renderBar(poolFrac, barWidth), st.Pool.InUse(), st.Pool.TotalBuffers),
		fmt.Sprintf("%s %s %s/%s bytes",
			labelStyle.Render("heap"), renderBar(heapFrac, barWidth),
			formatNumber(int64(st.Heap.Used())), formatNumber(int64(st.Heap.Capacity))),
		"",
		m.queueLine(),
		fmt.Sprintf("%s sent %d, dropped %d, frag %.0f%%",
			labelStyle.Render("traffic"), m.sent, m.dropped, st.Heap.Fragmentation()*100),
		fmt.Sprintf("%s %d ms, %d timers fired, %d tasklet runs",
			labelStyle.Render("time"), m.rt.clock.Now(), st.MilliFired, st.TaskletRuns),
	)
	b.WriteString(paneStyle.Render(body))
	b.WriteString("\n")

	status := "space pause · r release · c copy · ? help · q quit"
	if m.paused {
		status = "paused · " + status
	}
	if m.status != "" {
		status = m.status + " · " + status
	}
	b.WriteString(statusStyle.Render(status))
	return b.String()
}

func (m *monitorModel) helpText() string {
	const keyWidth = 10
	var b strings.Builder
	b.WriteString(helpTitleStyle.Render("Keyboard Shortcuts"))
	b.WriteString("\n")
	for _, k := range m.keys.all() {
		h := k.Help()
		b.WriteString(helpKeyStyle.Width(keyWidth).Render(h.Key))
		b.WriteString("  ")
		b.WriteString(helpDescStyle.Render(h.Desc))
		b.WriteString("\n")
	}
	return modalStyle.Render(strings.TrimSuffix(b.String(), "\n"))
}

// dashboardView and helpView adapt the monitor to the overlay's
// foreground and background models. Input is handled by monitorModel.
type dashboardView struct{ m *monitorModel }

func (v dashboardView) Init() tea.Cmd                       { return nil }
func (v dashboardView) Update(tea.Msg) (tea.Model, tea.Cmd) { return v, nil }
func (v dashboardView) View() string                        { return v.m.dashboard() }

type helpView struct{ m *monitorModel }

func (v helpView) Init() tea.Cmd                       { return nil }
func (v helpView) Update(tea.Msg) (tea.Model, tea.Cmd) { return v, nil }
func (v helpView) View() string                        { return v.m.helpText() }

func (m *monitorModel) queueLine() string {
	var counts [message.NumPriorities]int
	for msg := range m.queue.Messages() {
		counts[msg.Priority()]++
	}
	parts := make([]string, 0, message.NumPriorities)
	for p := message.NumPriorities - 1; p >= 0; p-- {
		parts = append(parts, fmt.Sprintf("%s %d", message.Priority(p), counts[p]))
	}
	return labelStyle.Render("queued") + " " + strings.Join(parts, "  ")
}

func renderBar(frac float64, width int) string {
	frac = min(max(frac, 0), 1)
	filled := int(frac*float64(width) + 0.5)
	bar := strings.Repeat("█", filled)
	rest := strings.Repeat("░", width-filled)
	if noColor {
		return bar + rest
	}
	return lipgloss.NewStyle().Foreground(usageColor(frac)).Render(bar) +
		lipgloss.NewStyle().Foreground(mutedColor).Render(rest)
}
