// Package tui renders a live view of a poll session with bubbletea.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/NimbleMarkets/ntcharts/sparkline"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/fyrsmithlabs/docctl/internal/poller"
)

const (
	sparklineWidth  = 30
	sparklineHeight = 3
	historySize     = 30
	tickInterval    = time.Second
)

// Kind selects what the model watches.
type Kind int

const (
	KindTask Kind = iota
	KindFiles
)

// JobMsg carries a task snapshot into the program.
type JobMsg poller.Snapshot

// FilesMsg carries a file-status snapshot into the program.
type FilesMsg poller.FileSnapshot

// DoneMsg ends the program when the poll session returns.
type DoneMsg struct{ Err error }

type tickMsg time.Time

// Model is the bubbletea model of one poll session.
type Model struct {
	kind        Kind
	key         string
	maxAttempts int
	cancel      context.CancelFunc

	start time.Time
	now   time.Time

	snapshots int
	job       poller.Snapshot
	sequence  []poller.JobState
	files     poller.FileSnapshot
	completed []float64

	finished bool
	err      error
	quitting bool

	progress progress.Model
}

// NewModel creates a model for the session identified by key. cancel is
// called when the user quits; it may be nil.
func NewModel(kind Kind, key string, maxAttempts int, cancel context.CancelFunc) Model {
	if maxAttempts <= 0 {
		maxAttempts = poller.DefaultJobMaxAttempts
		if kind == KindFiles {
			maxAttempts = poller.DefaultFileMaxAttempts
		}
	}
	now := time.Now()
	return Model{
		kind:        kind,
		key:         key,
		maxAttempts: maxAttempts,
		cancel:      cancel,
		start:       now,
		now:         now,
		completed:   make([]float64, 0, historySize),
		progress: progress.New(
			progress.WithGradient("#00ffff", "#00ff00"),
			progress.WithWidth(40),
		),
	}
}

func tick() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Init starts the elapsed-time ticker.
func (m Model) Init() tea.Cmd {
	return tick()
}

// Update handles snapshots, the ticker and quit keys.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.quitting = true
			if m.cancel != nil {
				m.cancel()
			}
			return m, tea.Quit
		}

	case tickMsg:
		if m.finished {
			return m, nil
		}
		m.now = time.Time(msg)
		return m, tick()

	case JobMsg:
		m.snapshots++
		m.job = poller.Snapshot(msg)
		m.sequence = append(m.sequence, m.job.Status)
		m.now = time.Now()
		return m, nil

	case FilesMsg:
		m.snapshots++
		m.files = poller.FileSnapshot(msg)
		_, completed, _ := m.files.Counts()
		m.completed = appendToHistory(m.completed, float64(completed))
		m.now = time.Now()
		return m, nil

	case DoneMsg:
		m.finished = true
		m.err = msg.Err
		m.now = time.Now()
		return m, tea.Quit
	}

	return m, nil
}

func appendToHistory(history []float64, value float64) []float64 {
	history = append(history, value)
	if len(history) > historySize {
		history = history[1:]
	}
	return history
}

// View renders the session.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	title := " docctl · task " + m.key + " "
	if m.kind == KindFiles {
		title = " docctl · document " + m.key + " files "
	}
	b.WriteString(headerStyle.Render(title) + "\n")

	ratio := float64(m.snapshots) / float64(m.maxAttempts)
	if ratio > 1 {
		ratio = 1
	}
	fmt.Fprintf(&b, "%s %s   %s %s\n",
		labelStyle.Render("Attempt"),
		valueStyle.Render(fmt.Sprintf("%d/%d", m.snapshots, m.maxAttempts)),
		labelStyle.Render("Elapsed"),
		valueStyle.Render(FormatElapsed(m.now.Sub(m.start))),
	)
	b.WriteString(m.progress.ViewAs(ratio) + "\n")

	if m.kind == KindTask {
		b.WriteString(m.renderTask())
	} else {
		b.WriteString(m.renderFiles())
	}

	switch {
	case m.err != nil:
		b.WriteString("\n" + errorStyle.Render("✗ "+m.err.Error()) + "\n")
	case m.finished:
		b.WriteString(footerStyle.Render("finished") + "\n")
	default:
		b.WriteString(footerStyle.Render("[q] cancel") + "\n")
	}
	return containerStyle.Render(b.String())
}

func (m Model) renderTask() string {
	var b strings.Builder
	b.WriteString(sectionStyle.Render("┃ Status") + "\n")
	b.WriteString("  " + jobBadge(m.job.Status) + "\n")
	if len(m.sequence) > 0 {
		steps := make([]string, len(m.sequence))
		for i, s := range m.sequence {
			steps[i] = string(s)
		}
		b.WriteString("  " + dimStyle.Render(strings.Join(steps, " → ")) + "\n")
	}
	if m.job.Error != "" {
		b.WriteString("  " + errorStyle.Render(m.job.Error) + "\n")
	}
	if len(m.job.Result) > 0 {
		b.WriteString("  " + labelStyle.Render("Result: ") + string(m.job.Result) + "\n")
	}
	return b.String()
}

func (m Model) renderFiles() string {
	var b strings.Builder
	b.WriteString(sectionStyle.Render("┃ Files") + "\n")

	if msg, failed := m.files.QueryError(); failed {
		b.WriteString("  " + errorStyle.Render("status unavailable: "+msg) + "\n")
		return b.String()
	}
	if len(m.files) == 0 {
		b.WriteString("  " + dimStyle.Render("no files reported") + "\n")
	}
	for _, f := range m.files {
		line := fmt.Sprintf("  %-32s %s  %s", f.OriginalFilename, fileBadge(f.State()), dimStyle.Render(FormatSize(f.FileSize)))
		if f.ErrorMessage != "" {
			line += "  " + errorStyle.Render(f.ErrorMessage)
		}
		b.WriteString(line + "\n")
	}

	processing, completed, failed := m.files.Counts()
	fmt.Fprintf(&b, "  %s %s  %s %s  %s %s\n",
		labelStyle.Render("completed"), valueStyle.Render(fmt.Sprint(completed)),
		labelStyle.Render("failed"), valueStyle.Render(fmt.Sprint(failed)),
		labelStyle.Render("processing"), valueStyle.Render(fmt.Sprint(processing)),
	)

	b.WriteString(sectionStyle.Render("┃ Completed per cycle") + "\n")
	b.WriteString(createSparkline(m.completed) + "\n")
	return b.String()
}

func createSparkline(data []float64) string {
	if len(data) == 0 {
		return dimStyle.Render(fmt.Sprintf("%*s", sparklineWidth, "no data"))
	}
	spark := sparkline.New(sparklineWidth, sparklineHeight)
	spark.PushAll(data)
	spark.Draw()
	return sparklineStyle.Render(spark.View())
}
