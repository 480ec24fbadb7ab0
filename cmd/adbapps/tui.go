package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/reactivex/rxgo/v2"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v3"

	adbapps "github.com/sephiroth74/go_adb_apps"
	"github.com/sephiroth74/go_adb_apps/events"
	"github.com/sephiroth74/go_adb_apps/logging"
	"github.com/sephiroth74/go_adb_apps/session"
	"github.com/sephiroth74/go_adb_apps/types"
)

const (
	devicesPane = iota
	appsPane
)

type keyMap struct {
	Up, Down, Switch, Select, Filter, Search, Refresh, RefreshApps, Uninstall, Extract, Copy, Quit key.Binding
}

var tuiKeys = keyMap{
	Up:          key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
	Down:        key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
	Switch:      key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "switch pane")),
	Select:      key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "select device")),
	Filter:      key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "all/user/system")),
	Search:      key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "search")),
	Refresh:     key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "scan devices")),
	RefreshApps: key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "reload apps")),
	Uninstall:   key.NewBinding(key.WithKeys("u"), key.WithHelp("u", "uninstall")),
	Extract:     key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "extract apk")),
	Copy:        key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "copy package")),
	Quit:        key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
}

type eventMsg events.AdbEvent

type tuiModel struct {
	a      *app
	sess   *session.Session
	poller *session.Poller

	spinner   spinner.Model
	search    textinput.Model
	searching bool

	pane         int
	deviceCursor int
	appCursor    int
	running      int
	status       string
	height       int
}

func (a *app) tuiCommand() *cli.Command {
	return &cli.Command{
		Name:  "tui",
		Usage: "browse devices and apps interactively",
		Flags: []cli.Flag{
			&cli.DurationFlag{
				Name:  "interval",
				Value: 3 * time.Second,
				Usage: "device scan interval",
			},
		},
		Action: a.tui,
	}
}

func (a *app) tui(ctx context.Context, cmd *cli.Command) error {
	if err := a.requireAdb(); err != nil {
		return err
	}
	interval, err := pollInterval(cmd)
	if err != nil {
		return err
	}

	// the alternate screen owns the terminal, logs go to a file
	log := zerolog.Nop()
	if cmd.Bool("verbose") {
		path := filepath.Join(filepath.Dir(a.store.Path()), "tui.log")
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err == nil {
			if f, err := os.Create(path); err == nil {
				defer f.Close()
				log = logging.New(f, true).Level(zerolog.DebugLevel)
			}
		}
	}
	client := adbapps.NewClient(a.client.AdbPath(), adbapps.WithLogger(log))

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sess := session.NewSession(client, log)
	defer func() { _ = sess.Shutdown(shutdownGrace) }()
	poller := session.NewPoller(sess, interval)

	m := newTUIModel(a, sess, poller)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))

	sess.Events().DoOnNext(func(i interface{}) {
		if event, ok := i.(events.AdbEvent); ok {
			p.Send(eventMsg(event))
		}
	}, rxgo.WithBufferedChannel(64))

	go func() { _ = poller.Run(ctx) }()
	sess.CheckAdb()

	_, err = p.Run()
	return err
}

func newTUIModel(a *app, sess *session.Session, poller *session.Poller) *tuiModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color(colorPink))

	search := textinput.New()
	search.Placeholder = "package or name"
	search.Prompt = "/ "
	search.Width = 30
	search.PromptStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(colorCyan))
	search.PlaceholderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(colorComment))

	return &tuiModel{
		a:       a,
		sess:    sess,
		poller:  poller,
		spinner: sp,
		search:  search,
		height:  24,
	}
}

func (m *tuiModel) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m *tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.height = msg.Height
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case eventMsg:
		m.handleEvent(events.AdbEvent(msg))
		return m, nil

	case tea.KeyMsg:
		if m.searching {
			return m.handleSearchKey(msg)
		}
		return m.handleKey(msg)
	}
	return m, nil
}

func (m *tuiModel) handleEvent(event events.AdbEvent) {
	switch event.Event {
	case events.OperationStarted:
		m.running++
		return
	case events.OperationFinished:
		if m.running > 0 {
			m.running--
		}
	case events.DevicesChanged:
		m.deviceCursor = clamp(m.deviceCursor, len(m.sess.Devices()))
		return
	case events.AppsLoaded:
		m.appCursor = clamp(m.appCursor, len(m.visibleApps()))
		return
	}

	if line := m.a.describe(event); line != "" {
		m.status = line
	}
}

func (m *tuiModel) handleSearchKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.search.SetValue("")
		fallthrough
	case tea.KeyEnter:
		m.searching = false
		m.search.Blur()
		m.appCursor = 0
		return m, nil
	}

	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	m.appCursor = 0
	return m, cmd
}

func (m *tuiModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, tuiKeys.Quit):
		return m, tea.Quit

	case key.Matches(msg, tuiKeys.Up):
		if m.pane == devicesPane {
			m.deviceCursor = clamp(m.deviceCursor-1, len(m.sess.Devices()))
		} else {
			m.appCursor = clamp(m.appCursor-1, len(m.visibleApps()))
		}

	case key.Matches(msg, tuiKeys.Down):
		if m.pane == devicesPane {
			m.deviceCursor = clamp(m.deviceCursor+1, len(m.sess.Devices()))
		} else {
			m.appCursor = clamp(m.appCursor+1, len(m.visibleApps()))
		}

	case key.Matches(msg, tuiKeys.Switch):
		m.pane = (m.pane + 1) % 2

	case key.Matches(msg, tuiKeys.Select):
		devices := m.sess.Devices()
		if m.pane == devicesPane && m.deviceCursor < len(devices) {
			if _, err := m.sess.SelectDevice(devices[m.deviceCursor].ID); err != nil {
				m.fail(err)
			} else {
				m.pane = appsPane
				m.appCursor = 0
			}
		}

	case key.Matches(msg, tuiKeys.Filter):
		m.sess.SetFilter((m.sess.Filter() + 1) % 3)
		m.appCursor = 0

	case key.Matches(msg, tuiKeys.Search):
		m.searching = true
		m.pane = appsPane
		m.search.Focus()
		return m, textinput.Blink

	case key.Matches(msg, tuiKeys.Refresh):
		if !m.poller.Refresh() {
			m.status = m.a.styles.help.Render("refresh already requested")
		}

	case key.Matches(msg, tuiKeys.RefreshApps):
		if _, err := m.sess.RefreshApps(); err != nil {
			m.fail(err)
		}

	case key.Matches(msg, tuiKeys.Uninstall):
		if item, ok := m.currentApp(); ok {
			if _, err := m.sess.Uninstall(item.PackageName); err != nil {
				m.fail(err)
			}
		}

	case key.Matches(msg, tuiKeys.Extract):
		if item, ok := m.currentApp(); ok {
			if _, err := m.sess.ExtractPackage(item.PackageName, "."); err != nil {
				m.fail(err)
			}
		}

	case key.Matches(msg, tuiKeys.Copy):
		if item, ok := m.currentApp(); ok {
			if err := clipboard.WriteAll(item.PackageName); err != nil {
				m.fail(err)
			} else {
				m.status = m.a.styles.success.Render("copied " + item.PackageName)
			}
		}
	}
	return m, nil
}

func (m *tuiModel) fail(err error) {
	m.status = m.a.styles.error.Render(err.Error())
}

func (m *tuiModel) visibleApps() []types.InstalledApp {
	apps, _ := m.sess.Apps()
	query := strings.ToLower(strings.TrimSpace(m.search.Value()))
	if query == "" {
		return apps
	}
	var visible []types.InstalledApp
	for _, item := range apps {
		if strings.Contains(strings.ToLower(item.DisplayName), query) || strings.Contains(item.PackageName, query) {
			visible = append(visible, item)
		}
	}
	return visible
}

func (m *tuiModel) currentApp() (types.InstalledApp, bool) {
	apps := m.visibleApps()
	if m.pane != appsPane || m.appCursor >= len(apps) {
		return types.InstalledApp{}, false
	}
	return apps[m.appCursor], true
}

func (m *tuiModel) View() string {
	s := m.a.styles

	var content strings.Builder
	content.WriteString(s.title.Render("Android apps") + "\n\n")
	content.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, m.renderDevices(), "  ", m.renderApps()))
	content.WriteString("\n\n")

	if m.searching || m.search.Value() != "" {
		content.WriteString(m.search.View() + "\n")
	}
	if m.running > 0 {
		content.WriteString(m.spinner.View() + " ")
	}
	content.WriteString(m.status + "\n")
	content.WriteString(s.help.Render(helpLine()))
	return content.String()
}

func (m *tuiModel) renderDevices() string {
	s := m.a.styles
	selected := m.sess.Selected()

	var rows []string
	rows = append(rows, s.label.Render("Devices"))
	devices := m.sess.Devices()
	if len(devices) == 0 {
		rows = append(rows, s.help.Render("none connected"))
	}
	for i, d := range devices {
		line := d.DisplayName()
		if d.ID == selected {
			line = "● " + line
		} else {
			line = "  " + line
		}
		if m.pane == devicesPane && i == m.deviceCursor {
			line = s.selected.Render(line)
		} else {
			line = s.value.Render(line)
		}
		rows = append(rows, line)
	}

	if details, ok := m.sess.Details(selected); ok {
		rows = append(rows, "",
			s.help.Render("Android "+details.AndroidVersion+" (SDK "+details.SdkVersion+")"),
			s.help.Render(details.Resolution+" "+details.Density),
			s.help.Render("RAM "+details.TotalRAM),
			s.help.Render("Storage "+details.Storage),
		)
	}
	return s.app.Width(36).Render(strings.Join(rows, "\n"))
}

func (m *tuiModel) renderApps() string {
	s := m.a.styles
	apps := m.visibleApps()

	var rows []string
	rows = append(rows, s.label.Render(fmt.Sprintf("Apps (%s, %d)", m.sess.Filter(), len(apps))))
	if m.sess.Selected() == "" {
		rows = append(rows, s.help.Render("select a device"))
	}

	limit := m.height - 12
	if limit < 5 {
		limit = 5
	}
	first := 0
	if m.appCursor >= limit {
		first = m.appCursor - limit + 1
	}
	for i := first; i < len(apps) && i < first+limit; i++ {
		item := apps[i]
		line := fmt.Sprintf("%-28s %-12s %s", truncate(item.DisplayName, 28), truncate(item.Version, 12), item.PackageName)
		switch {
		case m.pane == appsPane && i == m.appCursor:
			line = s.selected.Render(line)
		case item.IsSystem:
			line = s.system.Render(line)
		default:
			line = s.value.Render(line)
		}
		rows = append(rows, line)
	}
	return s.app.Render(strings.Join(rows, "\n"))
}

func helpLine() string {
	bindings := []key.Binding{tuiKeys.Switch, tuiKeys.Select, tuiKeys.Filter, tuiKeys.Search, tuiKeys.Refresh, tuiKeys.RefreshApps, tuiKeys.Uninstall, tuiKeys.Extract, tuiKeys.Copy, tuiKeys.Quit}
	parts := make([]string, 0, len(bindings))
	for _, b := range bindings {
		parts = append(parts, b.Help().Key+" "+b.Help().Desc)
	}
	return strings.Join(parts, " • ")
}

func clamp(i int, n int) int {
	if n == 0 || i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
