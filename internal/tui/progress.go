package tui

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"

	"github.com/vvka-141/graphload/pkg/graphload"
)

const barWidth = 40

// ProgressMsg carries a progress notification into the model.
type ProgressMsg graphload.Progress

// BatchMsg carries a batch outcome into the model.
type BatchMsg graphload.BatchOutcome

// DoneMsg ends the progress view.
type DoneMsg struct{}

type fileState struct {
	name     string
	current  int
	total    int
	failed   int
	fallback bool
}

func (f *fileState) percent() float64 {
	if f.total <= 0 {
		return 1
	}
	p := float64(f.current) / float64(f.total)
	if p > 1 {
		return 1
	}
	return p
}

// LoadModel is the bubbletea model of the live progress view: a spinner
// and one bar per file that has reported progress.
type LoadModel struct {
	spinner     spinner.Model
	bar         progress.Model
	keys        KeyMap
	files       map[string]*fileState
	order       []string
	onInterrupt func()
	interrupted bool
	done        bool
}

// NewLoadModel creates the model. onInterrupt runs when the user presses
// the quit key; it may be nil.
func NewLoadModel(onInterrupt func()) LoadModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = SpinnerStyle

	return LoadModel{
		spinner:     s,
		bar:         progress.New(progress.WithDefaultGradient(), progress.WithWidth(barWidth)),
		keys:        DefaultKeyMap(),
		files:       make(map[string]*fileState),
		onInterrupt: onInterrupt,
	}
}

// Init implements tea.Model.
func (m LoadModel) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m LoadModel) file(scope string) *fileState {
	f, ok := m.files[scope]
	if !ok {
		f = &fileState{name: scope}
		m.files[scope] = f
	}
	return f
}

// Update implements tea.Model.
func (m LoadModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if key.Matches(msg, m.keys.Quit) {
			m.interrupted = true
			if m.onInterrupt != nil {
				m.onInterrupt()
			}
			return m, tea.Quit
		}

	case ProgressMsg:
		if _, seen := m.files[msg.Scope]; !seen {
			m.order = append(m.order, msg.Scope)
		}
		f := m.file(msg.Scope)
		f.current, f.total = msg.Current, msg.Total

	case BatchMsg:
		if _, seen := m.files[msg.Scope]; !seen {
			m.order = append(m.order, msg.Scope)
		}
		f := m.file(msg.Scope)
		f.failed += msg.Outcome.Failed
		f.fallback = f.fallback || msg.Outcome.FallbackUsed

	case DoneMsg:
		m.done = true
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

// View implements tea.Model.
func (m LoadModel) View() string {
	var b strings.Builder

	switch {
	case m.interrupted:
		b.WriteString(WarningStyle.Render("Aborting..."))
	case m.done:
		b.WriteString(SuccessStyle.Render(SymbolCheck + " Load finished"))
	default:
		b.WriteString(m.spinner.View() + " Loading")
	}
	b.WriteString("\n\n")

	width := 0
	for _, name := range m.order {
		width = max(width, len(name))
	}
	for _, name := range m.order {
		f := m.files[name]
		fmt.Fprintf(&b, "%-*s %s %s/%s", width, name, m.bar.ViewAs(f.percent()),
			humanize.Comma(int64(f.current)), humanize.Comma(int64(f.total)))
		if f.failed > 0 {
			b.WriteString(" " + ErrorStyle.Render(fmt.Sprintf("%s %s failed", SymbolCross, humanize.Comma(int64(f.failed)))))
		}
		if f.fallback {
			b.WriteString(" " + MutedStyle.Render("(fallback)"))
		}
		b.WriteString("\n")
	}

	if !m.done && !m.interrupted {
		b.WriteString(HelpStyle.Render(m.keys.HelpText()))
		b.WriteString("\n")
	}
	return b.String()
}

// ProgressUI runs a LoadModel and feeds it load events. It implements
// graphload.EventSink.
type ProgressUI struct {
	program *tea.Program
	done    chan struct{}
	once    sync.Once
	err     error
}

// NewProgressUI creates a progress view that draws on out.
func NewProgressUI(out io.Writer, onInterrupt func()) *ProgressUI {
	return &ProgressUI{
		program: tea.NewProgram(NewLoadModel(onInterrupt), tea.WithOutput(out)),
		done:    make(chan struct{}),
	}
}

// Start runs the view in the background.
func (u *ProgressUI) Start() {
	go func() {
		defer close(u.done)
		_, u.err = u.program.Run()
	}()
}

// Stop ends the view and waits for it to restore the terminal.
func (u *ProgressUI) Stop() error {
	u.once.Do(func() { u.program.Send(DoneMsg{}) })
	<-u.done
	return u.err
}

func (u *ProgressUI) OnProgress(p graphload.Progress) {
	u.program.Send(ProgressMsg(p))
}

func (u *ProgressUI) OnBatchOutcome(o graphload.BatchOutcome) {
	u.program.Send(BatchMsg(o))
}

var _ graphload.EventSink = (*ProgressUI)(nil)
