package commands

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/roasbeef/simkernel/internal/demo"
	"github.com/roasbeef/simkernel/internal/kernel"
)

var watchTickMillis int

var watchCmd = &cobra.Command{
	Use:   "watch [scenario]",
	Short: "Run a demo scenario with a live view of the scheduling loop",
	Long: `Watch drives one of the canonical demo scenarios (spec.md §8: S1-S5)
one round at a time, rendering whether any actor is runnable, mailbox depths, and
per-actor enabled/max-considered figures after each round.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().IntVar(
		&watchTickMillis, "tick-ms", 200,
		"milliseconds between scheduling rounds",
	)
}

func runWatch(cmd *cobra.Command, args []string) error {
	name := args[0]

	build, ok := demoScenarios[name]
	if !ok {
		return fmt.Errorf(
			"watch: unknown scenario %q (known: s1-comm, s2-mutex, "+
				"s3-waitany, s4-condvar, s5-detached)", name,
		)
	}

	e, res := build()

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	m := watchModel{
		name:    name,
		engine:  e,
		res:     res,
		tick:    time.Duration(watchTickMillis) * time.Millisecond,
		spinner: sp,
	}

	_, err := tea.NewProgram(m).Run()

	return err
}

type tickMsg struct{}

func watchTick(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(time.Time) tea.Msg { return tickMsg{} })
}

// watchModel is a bubbletea model stepping a kernel.Engine one round per
// tick and rendering its scheduling state. It never blocks: a round with
// nothing runnable just advances the clock, same as Engine.Run does.
type watchModel struct {
	name    string
	engine  *kernel.Engine
	res     *demo.Result
	tick    time.Duration
	spinner spinner.Model

	rounds int
	done   bool
}

func (m watchModel) Init() tea.Cmd {
	return tea.Batch(watchTick(m.tick), m.spinner.Tick)
}

func (m watchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			return m, tea.Quit
		}

	case spinner.TickMsg:
		if m.done {
			return m, nil
		}

		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)

		return m, cmd

	case tickMsg:
		if m.done {
			return m, nil
		}

		m.stepRound()

		if !m.engine.HasRunnable() && !m.engine.AdvanceTime() {
			m.done = true
		}

		return m, watchTick(m.tick)
	}

	return m, nil
}

// stepRound drains every currently-runnable actor, mirroring the body of
// Engine.Run's inner loop (internal/kernel/engine.go) but returning to the
// caller after each quiescent point instead of looping to completion.
func (m *watchModel) stepRound() {
	for m.engine.HasRunnable() {
		id, sc, ok := m.engine.Step()
		if !ok {
			break
		}

		m.engine.Dispatch(id, sc)
	}

	m.rounds++
}

var (
	watchTitleStyle = lipgloss.NewStyle().Bold(true).
			Foreground(lipgloss.Color("86"))
	watchHeaderStyle = lipgloss.NewStyle().Bold(true).
				Foreground(lipgloss.Color("243"))
	watchDoneStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
)

func (m watchModel) View() string {
	var b strings.Builder

	status := m.spinner.View()
	if m.done {
		status = "done"
	}

	fmt.Fprintf(&b, "%s %s\n", watchTitleStyle.Render("simkernel watch: "+m.name), status)
	fmt.Fprintf(&b, "round %d   now=%v   runnable=%v\n\n",
		m.rounds, m.engine.Now(), m.engine.HasRunnable())

	fmt.Fprintln(&b, watchHeaderStyle.Render("mailboxes"))

	names := make([]string, 0, len(m.engine.Mailboxes()))
	for name := range m.engine.Mailboxes() {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		mb := m.engine.Mailboxes()[name]
		fmt.Fprintf(&b, "  %-16s pending=%-3d done=%d\n", name, mb.Len(), mb.DoneLen())
	}

	fmt.Fprintln(&b)
	fmt.Fprintln(&b, watchHeaderStyle.Render("actors"))

	statuses := m.engine.ActorStatuses()
	sort.Slice(statuses, func(i, j int) bool { return statuses[i].PID < statuses[j].PID })

	for _, st := range statuses {
		fmt.Fprintf(&b, "  pid=%-4d enabled=%-5v max_considered=%d\n",
			st.PID, st.Enabled, st.MaxConsidered)
	}

	if m.done {
		fmt.Fprintln(&b)
		fmt.Fprintln(&b, watchDoneStyle.Render("scenario quiesced; press q to quit"))

		for _, event := range m.res.Events {
			fmt.Fprintln(&b, "  "+event)
		}
	}

	fmt.Fprintln(&b, "\npress q to quit")

	return b.String()
}
