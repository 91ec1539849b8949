package progressbar

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/activecm/netgauge/cluster"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"
)

func isQuit(t *testing.T, cmd tea.Cmd) bool {
	t.Helper()
	if cmd == nil {
		return false
	}
	_, ok := cmd().(tea.QuitMsg)
	return ok
}

func TestProgressModelSpinnersDone(t *testing.T) {
	m := ProgressModel{
		Spinners: []Spinner{NewSpinner("Averaging bytes", 0), NewSpinner("Counting interfaces", 1)},
		ctx:      context.Background(),
	}
	require.Contains(t, m.View(), "Averaging bytes")
	require.Contains(t, m.View(), "Counting interfaces")

	model, cmd := m.Update(ProgressSpinnerMsg(1))
	require.Nil(t, cmd, "the program should keep running while a spinner is not done")
	m = model.(ProgressModel)
	require.True(t, m.Spinners[1].done)
	require.Contains(t, m.View(), "✅ Counting interfaces")

	// a spinner reported twice only counts once
	model, cmd = m.Update(ProgressSpinnerMsg(1))
	require.Nil(t, cmd)
	m = model.(ProgressModel)

	_, cmd = m.Update(ProgressSpinnerMsg(0))
	require.True(t, isQuit(t, cmd), "the program should quit once every spinner is done")
}

func TestProgressModelContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	m := ProgressModel{Spinners: []Spinner{NewSpinner("Clustering", 0)}, ctx: ctx}

	_, cmd := m.Update(tickMsg(""))
	require.NotNil(t, cmd)

	cancel()
	_, cmd = m.Update(tickMsg(""))
	require.True(t, isQuit(t, cmd), "the program should quit when its context is cancelled")

	_, cmd = m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	require.True(t, isQuit(t, cmd))
}

func TestSpin(t *testing.T) {
	var ran bool
	err := Spin(context.Background(), io.Discard, "Checking duplicates", func(context.Context) error {
		ran = true
		return nil
	})
	require.NoError(t, err)
	require.True(t, ran)

	errFailed := errors.New("failed")
	err = Spin(context.Background(), io.Discard, "Checking duplicates", func(context.Context) error {
		return errFailed
	})
	require.ErrorIs(t, err, errFailed)
}

func TestElbowBar(t *testing.T) {
	bar := NewElbowBar(io.Discard, 7)
	for k := 1; k <= 3; k++ {
		bar.Step(cluster.ElbowPoint{Clusters: k})
	}
	// fewer fits than expected must not block
	bar.Done()
}
