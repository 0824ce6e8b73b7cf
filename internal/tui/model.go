// Package tui is a terminal client for the progression API. All state
// shown on screen comes from the server through a clientsync.Syncer.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/tahcohcat/gamify-web/internal/clientsync"
	"github.com/tahcohcat/gamify-web/internal/progression"
)

const (
	frameInterval  = time.Second / 30
	reconnectDelay = 3 * time.Second
)

// API is the part of clientsync.Client the TUI uses.
type API interface {
	EarnXP(ctx context.Context, actionType string, amount int) (*progression.Result, error)
	CompleteQuest(ctx context.Context, questType string) (*progression.Result, error)
	Dashboard(ctx context.Context) (*clientsync.Dashboard, error)
	Subscribe(ctx context.Context) (*clientsync.Stream, error)
}

type Options struct {
	Username string
	// Action and Amount are sent with every earn. Zero amount means the
	// server default.
	Action  string
	Amount  int
	Timings clientsync.Timings
}

// --- Bubble Tea messages ---

type frameMsg time.Time

type resultMsg struct {
	result *progression.Result
	err    error
}

type dashboardMsg struct {
	dashboard *clientsync.Dashboard
	err       error
}

type streamMsg struct {
	stream *clientsync.Stream
	err    error
}

type pushMsg struct {
	stream *clientsync.Stream
	result progression.Result
}

type pushClosedMsg struct{ err error }

type reconnectMsg struct{}

// Model is the root Bubble Tea model.
type Model struct {
	api    API
	opts   Options
	ctx    context.Context
	cancel context.CancelFunc
	now    func() time.Time

	keys   KeyMap
	help   help.Model
	bar    progress.Model
	syncer *clientsync.Syncer
	frame  clientsync.Frame
	quests *clientsync.QuestStatus

	connected bool
	pending   int
	width     int
}

func New(api API, opts Options) Model {
	ctx, cancel := context.WithCancel(context.Background())
	if opts.Action == "" {
		opts.Action = "action"
	}
	return Model{
		api:    api,
		opts:   opts,
		ctx:    ctx,
		cancel: cancel,
		now:    time.Now,
		keys:   DefaultKeyMap(),
		help:   help.New(),
		bar:    progress.New(progress.WithGradient("#7c3aed", "#a855f7"), progress.WithoutPercentage()),
		syncer: clientsync.NewSyncer(opts.Timings),
	}
}

// Init loads the dashboard, opens the push channel and starts the frame clock.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.fetchDashboard(), m.subscribe(), tick())
}

func tick() tea.Cmd {
	return tea.Tick(frameInterval, func(t time.Time) tea.Msg { return frameMsg(t) })
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.bar.Width = max(10, min(msg.Width-20, 60))
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case frameMsg:
		m.frame = m.syncer.Frame(time.Time(msg))
		return m, tick()

	case resultMsg:
		m.pending--
		if msg.err != nil {
			m.syncer.Fail(msg.err, m.now())
			return m, nil
		}
		m.syncer.Apply(*msg.result, m.now())
		if msg.result.QuestType != "" {
			return m, m.fetchDashboard()
		}
		return m, nil

	case dashboardMsg:
		if msg.err != nil {
			m.syncer.Fail(msg.err, m.now())
			return m, nil
		}
		m.quests = &msg.dashboard.Quests
		m.syncer.Refresh(clientsync.SnapshotFromProgress(msg.dashboard.Progress), m.now())
		return m, nil

	case streamMsg:
		if msg.err != nil {
			m.connected = false
			return m, reconnect()
		}
		m.connected = true
		return m, readPush(msg.stream)

	case pushMsg:
		m.syncer.Apply(msg.result, m.now())
		return m, readPush(msg.stream)

	case pushClosedMsg:
		m.connected = false
		return m, reconnect()

	case reconnectMsg:
		// Anything pushed while disconnected is picked up by the reload.
		return m, tea.Batch(m.subscribe(), m.fetchDashboard())
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.cancel()
		return m, tea.Quit

	case key.Matches(msg, m.keys.Earn):
		m.pending++
		return m, m.earn()

	case key.Matches(msg, m.keys.Daily):
		m.pending++
		return m, m.completeQuest(progression.QuestDaily)

	case key.Matches(msg, m.keys.Weekly):
		m.pending++
		return m, m.completeQuest(progression.QuestWeekly)

	case key.Matches(msg, m.keys.Refresh):
		return m, m.fetchDashboard()
	}
	return m, nil
}

func (m Model) earn() tea.Cmd {
	return func() tea.Msg {
		result, err := m.api.EarnXP(m.ctx, m.opts.Action, m.opts.Amount)
		return resultMsg{result: result, err: err}
	}
}

func (m Model) completeQuest(qt progression.QuestType) tea.Cmd {
	return func() tea.Msg {
		result, err := m.api.CompleteQuest(m.ctx, string(qt))
		return resultMsg{result: result, err: err}
	}
}

func (m Model) fetchDashboard() tea.Cmd {
	return func() tea.Msg {
		d, err := m.api.Dashboard(m.ctx)
		return dashboardMsg{dashboard: d, err: err}
	}
}

func (m Model) subscribe() tea.Cmd {
	return func() tea.Msg {
		stream, err := m.api.Subscribe(m.ctx)
		return streamMsg{stream: stream, err: err}
	}
}

func readPush(stream *clientsync.Stream) tea.Cmd {
	return func() tea.Msg {
		result, err := stream.Next()
		if err != nil {
			stream.Close()
			return pushClosedMsg{err: err}
		}
		return pushMsg{stream: stream, result: result}
	}
}

func reconnect() tea.Cmd {
	return tea.Tick(reconnectDelay, func(time.Time) tea.Msg { return reconnectMsg{} })
}

// View renders the full TUI.
func (m Model) View() string {
	if !m.syncer.Loaded() {
		return "Loading progress..."
	}

	f := m.frame
	sections := []string{
		m.renderHeader(),
		StylePanel.Render(m.renderStats(f)),
	}
	if q := m.renderQuests(); q != "" {
		sections = append(sections, q)
	}
	if c := renderCelebration(f.Celebration); c != "" {
		sections = append(sections, c)
	}
	if f.Notice != nil {
		sections = append(sections, StyleNotice.Render("! "+f.Notice.Text))
	}
	sections = append(sections, m.help.View(m.keys))

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) renderHeader() string {
	status := lipgloss.NewStyle().Foreground(ColorHealthy).Render("● live")
	if !m.connected {
		status = StyleDimmed.Render("○ offline")
	}
	title := StyleTitle.Render("Gamify")
	if m.opts.Username != "" {
		title += StyleDimmed.Render("  " + m.opts.Username)
	}
	if m.pending > 0 {
		status += StyleDimmed.Render("  syncing…")
	}
	return title + "  " + status
}

func (m Model) renderStats(f clientsync.Frame) string {
	level := lipgloss.NewStyle().Bold(true).Foreground(ColorGold).Render(fmt.Sprintf("Level %d", f.Level))
	xp := lipgloss.NewStyle().Foreground(ColorXP).Render(fmt.Sprintf("%d XP", f.TotalXP))
	points := lipgloss.NewStyle().Foreground(ColorPoints).Render(fmt.Sprintf("%d pts", f.Points))
	streak := lipgloss.NewStyle().Foreground(ColorStreak).Render(fmt.Sprintf("🔥 %d", f.StreakCount))

	bar := m.bar.ViewAs(f.Fill)
	into := StyleDimmed.Render(fmt.Sprintf(" %d/%d", f.Progress.XPIntoLevel, f.Progress.XPNeededForLevel))

	return lipgloss.JoinVertical(lipgloss.Left,
		strings.Join([]string{level, xp, points, streak}, "   "),
		bar+into,
	)
}

func (m Model) renderQuests() string {
	if m.quests == nil {
		return ""
	}
	line := func(name string, q clientsync.QuestAvailability) string {
		mark := lipgloss.NewStyle().Foreground(ColorHealthy).Render("○ available")
		if !q.Available {
			mark = StyleDimmed.Render("✓ claimed")
		}
		return fmt.Sprintf("%-7s %s  %s", name, mark, StyleDimmed.Render(fmt.Sprintf("+%d XP +%d pts", q.Reward.XP, q.Reward.Points)))
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		line("Daily", m.quests.Daily),
		line("Weekly", m.quests.Weekly),
	)
}

func renderCelebration(c *clientsync.Celebration) string {
	if c == nil {
		return ""
	}
	switch c.Kind {
	case clientsync.CelebrateLevelUp:
		return StyleLevelUp.Render(fmt.Sprintf("⭐ LEVEL UP! You reached level %d", c.Level))
	default:
		a := c.Achievement
		text := fmt.Sprintf("%s Achievement unlocked: %s", a.Icon, a.Name)
		if a.Description != "" {
			text += "\n" + a.Description
		}
		if a.XPReward > 0 || a.PointsReward > 0 {
			text += fmt.Sprintf("\n+%d XP  +%d pts", a.XPReward, a.PointsReward)
		}
		return StyleAchievement.Render(strings.TrimSpace(text))
	}
}
