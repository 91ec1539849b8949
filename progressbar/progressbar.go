package progressbar

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/activecm/netgauge/cluster"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
	"golang.org/x/sync/errgroup"
)

const (
	padding  = 2
	barWidth = 64
)

// ProgressSpinnerMsg marks the spinner with the given id as done
type ProgressSpinnerMsg int

type Spinner struct {
	spinner spinner.Model
	id      int
	name    string
	done    bool
}

type ProgressModel struct {
	Spinners         []Spinner
	spinnerDoneCount int
	ctx              context.Context
}

func (m ProgressModel) Init() tea.Cmd {
	cmds := []tea.Cmd{tickCmd()}
	for i := range m.Spinners {
		cmds = append(cmds, m.Spinners[i].spinner.Tick)
	}
	return tea.Batch(cmds...)
}

func NewSpinner(name string, id int) Spinner {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))
	return Spinner{name: name, id: id, spinner: s}
}

func New(ctx context.Context, spinners []Spinner, opts ...tea.ProgramOption) *tea.Program {
	return tea.NewProgram(ProgressModel{
		Spinners: spinners,
		ctx:      ctx,
	}, opts...)
}

type tickMsg string

// tickCmd sends out a tickMsg every tick so that the program can be closed if context is done
func tickCmd() tea.Cmd {
	return tea.Tick(time.Second*1, func(_ time.Time) tea.Msg {
		return tickMsg("")
	})
}

func (m ProgressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		select {
		// quit the bubble tea program if the context was cancelled
		case <-m.ctx.Done():
			return m, tea.Quit
		default:
			return m, tickCmd()
		}

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		return m, nil
	case ProgressSpinnerMsg:
		for i := range m.Spinners {
			if m.Spinners[i].id == int(msg) && !m.Spinners[i].done {
				m.Spinners[i].done = true
				m.spinnerDoneCount++
			}
		}
		if m.spinnerDoneCount == len(m.Spinners) {
			return m, tea.Quit
		}
		return m, nil
	case spinner.TickMsg:
		for i := range m.Spinners {
			if m.Spinners[i].spinner.ID() == msg.ID {
				var cmd tea.Cmd
				m.Spinners[i].spinner, cmd = m.Spinners[i].spinner.Update(msg)
				return m, cmd
			}
		}
		return m, nil
	default:
		return m, nil
	}
}

func (m ProgressModel) View() string {
	pad := strings.Repeat(" ", padding)
	var render strings.Builder
	for i := range m.Spinners {
		spinnerTxt := m.Spinners[i].spinner.View()
		if m.Spinners[i].done {
			spinnerTxt = "✅"
		}
		fmt.Fprintf(&render, "\n%s%s %s\n", pad, spinnerTxt, m.Spinners[i].name)
	}
	return render.String()
}

// Spin shows a spinner named name on out while fn runs. The spinner stops when fn
// returns or ctx is cancelled.
func Spin(ctx context.Context, out io.Writer, name string, fn func(ctx context.Context) error) error {
	errGroup, ctx := errgroup.WithContext(ctx)

	program := New(ctx, []Spinner{NewSpinner(name, 0)}, tea.WithOutput(out), tea.WithInput(nil))

	errGroup.Go(func() error {
		if _, err := program.Run(); err != nil {
			return fmt.Errorf("unable to display progress for %s: %w", name, err)
		}
		return nil
	})

	errGroup.Go(func() error {
		defer program.Send(ProgressSpinnerMsg(0))
		return fn(ctx)
	})

	return errGroup.Wait()
}

// ElbowBar counts the elbow fits
type ElbowBar struct {
	progress *mpb.Progress
	bar      *mpb.Bar
}

// NewElbowBar returns a progress bar on out expecting up to total elbow fits
func NewElbowBar(out io.Writer, total int) *ElbowBar {
	progress := mpb.New(mpb.WithWidth(barWidth), mpb.WithOutput(out))
	bar := progress.New(int64(total),
		mpb.BarStyle().Lbound("╢").Filler("▌").Tip("▌").Padding("░").Rbound("╟"),
		mpb.PrependDecorators(
			// display our name with one space on the right
			decor.Name("Elbow", decor.WC{C: decor.DindentRight | decor.DextraSpace}),
			// replace ETA decorator with "done" message, OnComplete event
			decor.OnComplete(decor.Elapsed(decor.ET_STYLE_GO), "🎉"),
		),
		mpb.AppendDecorators(decor.CountersNoUnit("%d / %d")),
	)
	return &ElbowBar{progress: progress, bar: bar}
}

// Step advances the bar by one fit
func (b *ElbowBar) Step(cluster.ElbowPoint) {
	b.bar.Increment()
}

// Done completes the bar, even when fewer fits ran than expected, and waits for it to flush
func (b *ElbowBar) Done() {
	b.bar.SetTotal(-1, true)
	b.progress.Wait()
}
