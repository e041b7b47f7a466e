// Package dashboard is the optional live-progress terminal UI a CLI
// driver may show while a mining job runs: hashrate, attempts, elapsed
// time, and host CPU/memory, with a "copy object ID" keystroke on a hit.
package dashboard

import (
	"encoding/hex"
	"fmt"
	"runtime"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	psutil "github.com/shirou/gopsutil/v3/cpu"
	psmem "github.com/shirou/gopsutil/v3/mem"

	"github.com/sui-tools/vanity-miner/internal/engine"
)

var (
	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#000000")).
			Background(lipgloss.Color("#FFFF00")).
			Padding(0, 2).
			Bold(true)

	footerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(lipgloss.Color("#4B5563")).
			Padding(0, 2)

	progressStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#34D399")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#EF4444")).
			Bold(true)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#60A5FA"))

	copyNoticeStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("#10B981")).
			Foreground(lipgloss.Color("#FFFFFF")).
			Padding(0, 2).
			Bold(true)
)

// progressMsg wraps an engine.ProgressReport as a tea.Msg.
type progressMsg engine.ProgressReport

// resultMsg wraps the job's terminal outcome as a tea.Msg.
type resultMsg struct {
	hit *engine.MiningHit
	err error
}

type resourceMsg string

type hideCopyNoticeMsg struct{}

// Model is the dashboard's bubbletea state. It reads progress reports
// off a channel supplied by the caller (cmd/vanityminer relays
// engine.EngineHandle.Progress onto it) and renders them live.
type Model struct {
	Mode    engine.Mode
	Prefix  string
	Width   int
	Height  int
	started time.Time

	progress <-chan engine.ProgressReport
	result   <-chan resultMsg

	lastReport   engine.ProgressReport
	hit          *engine.MiningHit
	runErr       error
	finished     bool
	resourceLine string

	showCopyNotice bool

	spinner spinner.Model
}

// Result is what the caller sends on the result channel once a job
// finishes — exactly one value, then the channel may be closed or left
// open.
type Result = resultMsg

// NewResult builds a Result value for the dashboard's result channel.
func NewResult(hit *engine.MiningHit, err error) Result {
	return Result{hit: hit, err: err}
}

// New builds a dashboard Model wired to a running job. progressCh is
// drained for ProgressReports until it closes; resultCh must deliver
// exactly one Result with the job's final hit/err. Call
// tea.NewProgram(m).Run() to drive it.
func New(mode engine.Mode, prefix string, progressCh <-chan engine.ProgressReport, resultCh <-chan Result) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = progressStyle

	return Model{
		Mode:     mode,
		Prefix:   prefix,
		progress: progressCh,
		result:   resultCh,
		spinner:  s,
	}
}

// Outcome reports the job's terminal hit/error once the dashboard has
// finished (m.finished is true after a resultMsg has been processed).
// Callers read this from the tea.Program's final returned model.
func (m Model) Outcome() (*engine.MiningHit, error) {
	return m.hit, m.runErr
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(waitForProgress(m.progress), waitForResult(m.result), tickResources(), m.spinner.Tick)
}

func waitForProgress(ch <-chan engine.ProgressReport) tea.Cmd {
	return func() tea.Msg {
		report, ok := <-ch
		if !ok {
			return nil
		}
		return progressMsg(report)
	}
}

func waitForResult(ch <-chan resultMsg) tea.Cmd {
	return func() tea.Msg {
		r, ok := <-ch
		if !ok {
			return nil
		}
		return r
	}
}

func tickResources() tea.Cmd {
	return tea.Tick(time.Second, func(time.Time) tea.Msg {
		cpuPercent, _ := psutil.Percent(0, false)
		memInfo, _ := psmem.VirtualMemory()
		var cpuPct float64
		if len(cpuPercent) > 0 {
			cpuPct = cpuPercent[0]
		}
		var memPct float64
		if memInfo != nil {
			memPct = memInfo.UsedPercent
		}
		return resourceMsg(fmt.Sprintf("CPU: %.1f%% | RAM: %.1f%% | Go: %s", cpuPct, memPct, runtime.Version()))
	})
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			if !m.finished {
				return m, tea.Quit
			}
			return m, tea.Quit
		case "c":
			if m.hit != nil {
				if err := clipboard.WriteAll(hex.EncodeToString(m.hit.ObjectID[:])); err == nil {
					m.showCopyNotice = true
					return m, tea.Tick(2*time.Second, func(time.Time) tea.Msg { return hideCopyNoticeMsg{} })
				}
			}
		}
		return m, nil

	case progressMsg:
		m.lastReport = engine.ProgressReport(msg)
		if m.started.IsZero() {
			m.started = time.Now()
		}
		return m, waitForProgress(m.progress)

	case resultMsg:
		m.finished = true
		m.hit = msg.hit
		m.runErr = msg.err
		return m, tea.Quit

	case resourceMsg:
		m.resourceLine = string(msg)
		return m, tickResources()

	case hideCopyNoticeMsg:
		m.showCopyNotice = false
		return m, nil

	case spinner.TickMsg:
		if m.finished {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) View() string {
	header := headerStyle.Width(max(m.Width, 40)).Render(fmt.Sprintf(" vanity-miner — %s — prefix %q", m.Mode, m.Prefix))

	var body string
	switch {
	case m.finished && m.runErr != nil:
		body = errorStyle.Render(fmt.Sprintf("error: %v", m.runErr))
	case m.finished && m.hit != nil:
		body = progressStyle.Render(fmt.Sprintf(
			"hit! nonce=%d object_index=%d\nobject_id=%s\ntx_digest=%s\n\npress c to copy the object ID",
			m.hit.Nonce, m.hit.ObjectIndex, hex.EncodeToString(m.hit.ObjectID[:]), hex.EncodeToString(m.hit.TxDigest[:]),
		))
	case m.finished:
		body = infoStyle.Render(fmt.Sprintf("cancelled at nonce %d", m.lastReport.LastNonce))
	default:
		elapsed := time.Duration(0)
		if !m.started.IsZero() {
			elapsed = time.Since(m.started)
		}
		body = m.spinner.View() + " " + infoStyle.Render(fmt.Sprintf(
			"attempts: %d   hashrate: %.0f H/s   last_nonce: %d   elapsed: %s",
			m.lastReport.Attempts, m.lastReport.Hashrate, m.lastReport.LastNonce, elapsed.Round(time.Second),
		))
	}

	footerText := m.resourceLine
	if m.showCopyNotice {
		footerText = copyNoticeStyle.Render("copied to clipboard") + "  " + footerText
	}
	footer := footerStyle.Width(max(m.Width, 40)).Render(footerText)

	return header + "\n\n" + body + "\n\n" + footer + "\n"
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
