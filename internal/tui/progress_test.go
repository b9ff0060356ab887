package tui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/vvka-141/graphload/pkg/graphload"
)

func update(t *testing.T, m LoadModel, msg tea.Msg) (LoadModel, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	lm, ok := next.(LoadModel)
	if !ok {
		t.Fatalf("Update returned %T, want LoadModel", next)
	}
	return lm, cmd
}

func TestLoadModel_TracksFilesInArrivalOrder(t *testing.T) {
	m := NewLoadModel(nil)

	m, _ = update(t, m, ProgressMsg{Scope: "nodes_Person.csv", Current: 1000, Total: 4000})
	m, _ = update(t, m, ProgressMsg{Scope: "nodes_City.csv", Current: 10, Total: 10})
	m, _ = update(t, m, ProgressMsg{Scope: "nodes_Person.csv", Current: 2000, Total: 4000})

	view := m.View()
	person := strings.Index(view, "nodes_Person.csv")
	city := strings.Index(view, "nodes_City.csv")
	if person < 0 || city < 0 {
		t.Fatalf("expected both files in view, got:\n%s", view)
	}
	if person > city {
		t.Errorf("expected files in arrival order, got:\n%s", view)
	}
	if !strings.Contains(view, "2,000/4,000") {
		t.Errorf("expected latest counts for Person, got:\n%s", view)
	}
	if strings.Contains(view, "1,000/4,000") {
		t.Errorf("expected stale counts to be replaced, got:\n%s", view)
	}
}

func TestLoadModel_ShowsFailuresAndFallback(t *testing.T) {
	m := NewLoadModel(nil)

	m, _ = update(t, m, BatchMsg{Scope: "edges_KNOWS.csv", Kind: graphload.KindEdge,
		Outcome: graphload.LoadOutcome{Succeeded: 8, Failed: 2, FallbackUsed: true}})
	m, _ = update(t, m, BatchMsg{Scope: "edges_KNOWS.csv", Kind: graphload.KindEdge,
		Outcome: graphload.LoadOutcome{Succeeded: 9, Failed: 1}})

	view := m.View()
	if !strings.Contains(view, "3 failed") {
		t.Errorf("expected failures summed across batches, got:\n%s", view)
	}
	if !strings.Contains(view, "(fallback)") {
		t.Errorf("expected fallback marker, got:\n%s", view)
	}
}

func TestLoadModel_QuitKeyInterrupts(t *testing.T) {
	called := 0
	m := NewLoadModel(func() { called++ })

	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyCtrlC})
	if called != 1 {
		t.Errorf("expected interrupt callback once, got %d", called)
	}
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Errorf("expected tea.QuitMsg from command")
	}
	if !strings.Contains(m.View(), "Aborting") {
		t.Errorf("expected aborting view, got:\n%s", m.View())
	}
}

func TestLoadModel_OtherKeysIgnored(t *testing.T) {
	called := false
	m := NewLoadModel(func() { called = true })

	_, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'x'}})
	if called || cmd != nil {
		t.Errorf("expected key 'x' to be ignored")
	}
}

func TestLoadModel_Done(t *testing.T) {
	m := NewLoadModel(nil)
	m, cmd := update(t, m, DoneMsg{})
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	view := m.View()
	if !strings.Contains(view, "Load finished") {
		t.Errorf("expected finished view, got:\n%s", view)
	}
	if strings.Contains(view, "abort") {
		t.Errorf("expected no help line after completion, got:\n%s", view)
	}
}

func TestFileState_Percent(t *testing.T) {
	tests := []struct {
		current, total int
		want           float64
	}{
		{0, 0, 1},
		{5, 10, 0.5},
		{12, 10, 1},
	}
	for _, tt := range tests {
		f := fileState{current: tt.current, total: tt.total}
		if got := f.percent(); got != tt.want {
			t.Errorf("percent(%d/%d) = %v, want %v", tt.current, tt.total, got, tt.want)
		}
	}
}
