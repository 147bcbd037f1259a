package cli

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"charm.land/bubbles/v2/progress"
	tea "charm.land/bubbletea/v2"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/HebesbyChloe/ingestion-control-sub001/internal/client"
	"github.com/HebesbyChloe/ingestion-control-sub001/internal/models"
	"github.com/HebesbyChloe/ingestion-control-sub001/internal/monitoring"
	"github.com/HebesbyChloe/ingestion-control-sub001/internal/validation"
)

var (
	monitorOnce     bool
	monitorStream   bool
	monitorTenant   string
	monitorService  string
	monitorAlerts   bool
	monitorQuery    string
	monitorInterval time.Duration
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Watch scheduler health, queue depth and schedule error rates",
	Long: `Show a live view of the scheduler: process status, job queue, worker
health, alerts and the schedule table with error rates. The view refreshes
every 10 seconds, or on every server push with --stream.

Keys: a toggles alerts only, r refreshes, q quits.

With --once, or when stdout is not a terminal, one snapshot is printed.`,
	Args: cobra.NoArgs,
	RunE: runMonitor,
}

func init() {
	monitorCmd.Flags().BoolVar(&monitorOnce, "once", false, "print one snapshot and exit")
	monitorCmd.Flags().BoolVar(&monitorStream, "stream", false, "receive snapshots over the server's websocket stream")
	monitorCmd.Flags().StringVar(&monitorTenant, "tenant", "", "only schedules of this tenant")
	monitorCmd.Flags().StringVar(&monitorService, "service", "", "only schedules of this service")
	monitorCmd.Flags().BoolVar(&monitorAlerts, "alerts", false, "only alerting schedules")
	monitorCmd.Flags().StringVarP(&monitorQuery, "query", "q", "", "match schedule name, endpoint or ID")
	monitorCmd.Flags().DurationVar(&monitorInterval, "interval", monitoring.DefaultInterval, "refresh interval")
}

func runMonitor(cmd *cobra.Command, args []string) error {
	filter := monitoring.Filter{
		Tenant:     monitorTenant,
		Service:    monitorService,
		AlertsOnly: monitorAlerts,
		Query:      monitorQuery,
	}
	grace := cfg.Monitoring.StaleGrace
	if grace <= 0 {
		grace = monitoring.DefaultStaleGrace
	}

	if monitorOnce || !isTerminal() {
		snap, err := apiClient.MonitoringSnapshot(cmd.Context())
		if err != nil {
			return err
		}
		if structured() {
			view := *snap
			view.Schedules = monitoring.Apply(snap.Schedules, filter)
			return printStructured(os.Stdout, view)
		}
		fmt.Print(renderDashboard(snap, filter, time.Now(), grace, plainTheme, percentText))
		return nil
	}

	return runMonitorUI(cmd.Context(), apiClient, filter, grace)
}

// =============================================================================
// THEME
// =============================================================================

// Theme holds the color scheme for the monitor view.
type Theme struct {
	Title   lipgloss.Style
	OK      lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Hint    lipgloss.Style
}

var defaultTheme = Theme{
	Title:   lipgloss.NewStyle().Foreground(lipgloss.Color("#5FAFD7")).Bold(true), // light blue
	OK:      lipgloss.NewStyle().Foreground(lipgloss.Color("#00D787")),            // green
	Warning: lipgloss.NewStyle().Foreground(lipgloss.Color("#FFAF00")),            // amber
	Error:   lipgloss.NewStyle().Foreground(lipgloss.Color("#FF005F")).Bold(true), // red
	Hint:    lipgloss.NewStyle().Foreground(lipgloss.Color("#6C6C6C")).Italic(true),
}

var plainTheme = Theme{
	Title:   lipgloss.NewStyle(),
	OK:      lipgloss.NewStyle(),
	Warning: lipgloss.NewStyle(),
	Error:   lipgloss.NewStyle(),
	Hint:    lipgloss.NewStyle(),
}

// =============================================================================
// MODEL
// =============================================================================

// tickMsg triggers a snapshot fetch.
type tickMsg time.Time

// snapshotMsg carries a fetched or pushed snapshot.
type snapshotMsg struct {
	snap *models.MonitoringSnapshot
	err  error
}

// streamClosedMsg reports the end of the websocket stream.
type streamClosedMsg struct{ err error }

// monitorModel is the bubbletea model for the monitor view.
type monitorModel struct {
	client   *client.Client
	filter   monitoring.Filter
	interval time.Duration
	grace    time.Duration
	stream   bool

	snap      *models.MonitoringSnapshot
	updatedAt time.Time
	lastErr   error
	bar       progress.Model
	theme     Theme
	quitting  bool
}

func newMonitorModel(c *client.Client, filter monitoring.Filter, interval, grace time.Duration, stream bool) monitorModel {
	return monitorModel{
		client:   c,
		filter:   filter,
		interval: interval,
		grace:    grace,
		stream:   stream,
		bar: progress.New(
			progress.WithDefaultBlend(),
			progress.WithWidth(20),
			progress.WithoutPercentage(),
		),
		theme: defaultTheme,
	}
}

// Init fetches the first snapshot unless snapshots are pushed.
func (m monitorModel) Init() tea.Cmd {
	if m.stream {
		return nil
	}
	return m.fetchSnapshot()
}

// Update handles messages and returns the updated model.
func (m monitorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyPressMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			m.quitting = true
			return m, tea.Quit
		case "a":
			m.filter.AlertsOnly = !m.filter.AlertsOnly
		case "r":
			if !m.stream {
				return m, m.fetchSnapshot()
			}
		}

	case tickMsg:
		return m, m.fetchSnapshot()

	case snapshotMsg:
		// A failed poll keeps the last good snapshot on screen.
		m.lastErr = msg.err
		if msg.err == nil && msg.snap != nil {
			m.snap = msg.snap
			m.updatedAt = time.Now()
		}
		if m.stream {
			return m, nil
		}
		return m, tickCmd(m.interval)

	case streamClosedMsg:
		m.lastErr = msg.err
		return m, tea.Quit
	}

	return m, nil
}

// View renders the monitor.
func (m monitorModel) View() tea.View {
	return tea.NewView(m.renderContent())
}

func (m monitorModel) renderContent() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	if m.snap == nil {
		if m.lastErr != nil {
			b.WriteString(m.theme.Error.Render("Monitoring unavailable: "+m.lastErr.Error()) + "\n")
		} else {
			b.WriteString("Loading monitoring data...\n")
		}
	} else {
		b.WriteString(renderDashboard(m.snap, m.filter, time.Now(), m.grace, m.theme, func(pct float64) string {
			return m.bar.ViewAs(pct)
		}))
	}

	b.WriteString("\n")
	if m.lastErr != nil && m.snap != nil {
		b.WriteString(m.theme.Error.Render("Last refresh failed: "+m.lastErr.Error()) + "\n")
	}
	status := "a alerts only • r refresh • q quit"
	if !m.updatedAt.IsZero() {
		status = fmt.Sprintf("updated %s • %s", m.updatedAt.Format(time.TimeOnly), status)
	}
	b.WriteString(m.theme.Hint.Render(status) + "\n")
	return b.String()
}

// fetchSnapshot fetches the snapshot in a command so Update never blocks.
func (m monitorModel) fetchSnapshot() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		snap, err := m.client.MonitoringSnapshot(ctx)
		return snapshotMsg{snap: snap, err: err}
	}
}

// tickCmd returns a command that sends a tick after d.
func tickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// runMonitorUI runs the interactive monitor until the user quits or ctx ends.
func runMonitorUI(ctx context.Context, c *client.Client, filter monitoring.Filter, grace time.Duration) error {
	model := newMonitorModel(c, filter, monitorInterval, grace, monitorStream)
	p := tea.NewProgram(model, tea.WithContext(ctx))

	if monitorStream {
		streamCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		go func() {
			err := c.StreamMonitoring(streamCtx, func(snap *models.MonitoringSnapshot, err error) error {
				p.Send(snapshotMsg{snap: snap, err: err})
				return nil
			})
			if streamCtx.Err() == nil {
				p.Send(streamClosedMsg{err: err})
			}
		}()
	}

	finalModel, err := p.Run()
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("monitor UI error: %w", err)
	}

	if m, ok := finalModel.(monitorModel); ok && !m.quitting && m.lastErr != nil {
		return m.lastErr
	}
	return nil
}

// =============================================================================
// RENDERING
// =============================================================================

// renderDashboard lays out a snapshot. bar draws an error rate in [0,1].
func renderDashboard(
	snap *models.MonitoringSnapshot,
	filter monitoring.Filter,
	now time.Time,
	grace time.Duration,
	theme Theme,
	bar func(float64) string,
) string {
	var b strings.Builder
	sum := monitoring.Summarize(snap, now, grace)

	// Scheduler status
	sched := snap.Scheduler
	state := theme.Error.Render("stopped")
	if sched.Running {
		state = theme.OK.Render("running")
	}
	fmt.Fprintf(&b, "%s %s", theme.Title.Render("Scheduler:"), state)
	if sched.Version != "" {
		fmt.Fprintf(&b, "  v%s", strings.TrimPrefix(sched.Version, "v"))
	}
	if sched.UptimeSeconds > 0 {
		fmt.Fprintf(&b, "  up %s", (time.Duration(sched.UptimeSeconds) * time.Second).String())
	}
	if sched.LastTickAt != nil {
		fmt.Fprintf(&b, "  last tick %s", sched.LastTickAt.Local().Format(time.TimeOnly))
	}
	b.WriteString("\n")

	fmt.Fprintf(&b, "Queue:     %d pending, %d running, %s\n",
		snap.Queue.Pending, snap.Queue.Running, countStyle(theme, snap.Queue.Failed, "failed"))
	fmt.Fprintf(&b, "Workers:   %d/%d healthy\n", sum.HealthyWorkers, sum.Workers)
	fmt.Fprintf(&b, "Schedules: %d (%d enabled), %s, %s\n\n",
		sum.Schedules, sum.Enabled, countStyle(theme, sum.Alerting, "alerting"), countStyle(theme, sum.Stale, "stale"))

	// Unhealthy workers
	for _, w := range snap.Workers {
		if w.Status == "healthy" {
			continue
		}
		fmt.Fprintf(&b, "%s worker %s is %s (%d active jobs)\n",
			theme.Warning.Render("!"), orDash(w.Name), w.Status, w.ActiveJobs)
	}

	// Scheduler alerts
	if len(snap.Alerts) > 0 {
		b.WriteString(theme.Title.Render(fmt.Sprintf("Alerts (%d)", len(snap.Alerts))) + "\n")
		for _, a := range snap.Alerts {
			style := theme.Warning
			if a.Level == "critical" {
				style = theme.Error
			}
			fmt.Fprintf(&b, "  %s %s %s\n", a.CreatedAt.Local().Format("01-02 15:04"), style.Render(fmt.Sprintf("%-8s", a.Level)), a.Message)
		}
		b.WriteString("\n")
	}

	// Schedule table
	rows := monitoring.Apply(snap.Schedules, filter)
	title := fmt.Sprintf("Schedules (%d of %d)", len(rows), len(snap.Schedules))
	if filter.AlertsOnly {
		title += " alerts only"
	}
	b.WriteString(theme.Title.Render(title) + "\n")
	if len(rows) == 0 {
		b.WriteString("  No schedules match.\n")
		return b.String()
	}

	fmt.Fprintf(&b, "%-28s %-12s %-12s %-26s %-20s %7s  %s\n", "NAME", "TENANT", "SERVICE", "WHEN", "ERRORS", "RATE", "LAST RUN")
	b.WriteString("----------------------------------------------------------------------------------------------------------------------------\n")
	for _, r := range rows {
		lastRun := "-"
		if r.LastRunAt != nil {
			lastRun = r.LastRunAt.Local().Format("01-02 15:04")
		}
		rate := fmt.Sprintf("%6.1f%%", r.ErrorRate)
		switch {
		case monitoring.IsAlert(r):
			rate = theme.Error.Render(rate)
		case r.ErrorRate > 0:
			rate = theme.Warning.Render(rate)
		}

		var flags []string
		if !r.Enabled {
			flags = append(flags, "disabled")
		}
		if monitoring.Stale(r, now, grace) {
			flags = append(flags, theme.Warning.Render("stale"))
		}

		fmt.Fprintf(&b, "%-28s %-12s %-12s %-26s %-20s %s  %s %s\n",
			truncate(r.Name, 28), truncate(orDash(r.TenantID), 12), truncate(orDash(r.Service), 12),
			truncate(validation.CronToHuman(r.Cron), 26), bar(min(r.ErrorRate, 100)/100), rate,
			lastRun, strings.Join(flags, " "))
		if r.LastError != "" && (filter.AlertsOnly || verbose) {
			fmt.Fprintf(&b, "  %s\n", theme.Hint.Render(truncate(r.LastError, 110)))
		}
	}
	return b.String()
}

func countStyle(theme Theme, n int, label string) string {
	s := fmt.Sprintf("%d %s", n, label)
	if n > 0 {
		return theme.Error.Render(s)
	}
	return s
}

// percentText is the error-rate column for non-interactive output.
func percentText(pct float64) string {
	filled := int(pct*10 + 0.5)
	return "[" + strings.Repeat("#", filled) + strings.Repeat(".", 10-filled) + "]"
}
