// Package tui provides the interactive Bubble Tea dashboard for aforos.
package tui

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/theirongolddev/aforos/internal/catalog"
	"github.com/theirongolddev/aforos/internal/cli"
	"github.com/theirongolddev/aforos/internal/config"
	"github.com/theirongolddev/aforos/internal/forecast"
	"github.com/theirongolddev/aforos/internal/logging"
	"github.com/theirongolddev/aforos/internal/model"
	"github.com/theirongolddev/aforos/internal/pipeline"
	"github.com/theirongolddev/aforos/internal/source"
	"github.com/theirongolddev/aforos/internal/store"
	"github.com/theirongolddev/aforos/internal/tui/components"
	"github.com/theirongolddev/aforos/internal/tui/theme"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
)

// Options configures the dashboard.
type Options struct {
	Config   config.Config
	Source   source.Options
	UseCache bool
	Logger   logging.Logger
	// NeedSetup opens the setup form once the data is loaded.
	NeedSetup bool
}

// DataLoadedMsg is sent when the data pipeline finishes.
type DataLoadedMsg struct {
	Result   *pipeline.LoadResult
	Err      error
	LoadTime time.Duration
}

// ProgressMsg reports file parsing progress.
type ProgressMsg struct {
	Current int
	Total   int
}

// Tab indexes, matching components.Tabs.
const (
	tabOverview = iota
	tabForecast
	tabTable
	tabSettings
)

// App is the root Bubble Tea model.
type App struct {
	opts       Options
	cfg        config.Config
	log        logging.Logger
	forecaster pipeline.Forecaster

	// Data
	table     *pipeline.Table
	files     int
	coerced   int
	loaded    bool
	loadErr   error
	loadTime  time.Duration
	loadedAt  time.Time
	reloading bool

	// Derived for the current selection
	sel       pipeline.Selection
	dash      model.Dashboard
	dataTable table.Model

	// UI state
	width     int
	height    int
	activeTab int
	showHelp  bool

	// Filter form; values sit behind a pointer because huh writes through it
	// while App is passed by value.
	filterForm *huh.Form
	filterVals *filterValues

	// Setup form, used on first run and from the Settings tab
	setupForm *huh.Form
	setupVals *SetupValues
	setupErr  error
	saved     bool

	// Loading: progress and completion arrive on loadSub
	spinner     spinner.Model
	progress    int
	progressMax int
	loadSub     chan tea.Msg
}

const (
	minTerminalWidth = 80
	compactWidth     = 120
	maxContentWidth  = 180
	minContentHeight = 5
)

// NewApp creates a new TUI app model.
func NewApp(opts Options) App {
	log := opts.Logger
	if log == nil {
		log = logging.Nop()
	}
	theme.SetActive(opts.Config.Appearance.Theme)

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(theme.Active.Accent).Background(theme.Active.Surface)

	return App{
		opts:       opts,
		cfg:        opts.Config,
		log:        log.WithField("component", "tui"),
		forecaster: forecast.New(forecast.SettingsFromConfig(opts.Config.Forecast), log),
		spinner:    sp,
		loadSub:    make(chan tea.Msg, 1),
	}
}

// Init implements tea.Model.
func (a App) Init() tea.Cmd {
	return tea.Batch(
		tea.EnableMouseCellMotion,
		loadDataCmd(a.opts, a.loadSub),
		a.spinner.Tick,
	)
}

// setTable installs a freshly loaded table, keeping the selection when it
// still applies.
func (a *App) setTable(res *pipeline.LoadResult) {
	a.table = res.Table
	a.files = res.TotalFiles
	a.coerced = res.CoercedCells
	if a.sel.Categories == nil || !a.table.HasYear(a.sel.DistributionYear) {
		a.sel = pipeline.DefaultSelection(a.table)
		if cats, err := categoriesFromConfig(a.cfg); err == nil && len(cats) > 0 {
			a.sel.Categories = cats
		}
		if c, err := catalog.Parse(a.cfg.Dashboard.DefaultCategory); err == nil {
			a.sel.Category = c
		}
	}
	a.recompute()
}

// recompute derives every view from the table and the current selection.
func (a *App) recompute() {
	if a.table == nil {
		return
	}
	a.dash = pipeline.BuildDashboard(a.table, a.sel, a.forecaster)
	a.rebuildDataTable()
}

func (a *App) rebuildDataTable() {
	if a.dash.Table == nil {
		a.dataTable = table.Model{}
		return
	}
	cw := a.contentWidth()
	a.dataTable = components.NewDataTable(*a.dash.Table,
		components.CardInnerWidth(cw), a.tableHeight())
}

// tableHeight is the row budget of the Table tab: the screen minus header,
// status bar, card border and card title.
func (a App) tableHeight() int {
	return max(a.height-8, 3)
}

// Update implements tea.Model.
func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		if a.setupForm != nil {
			a.setupForm = a.setupForm.WithWidth(msg.Width).WithHeight(msg.Height)
		}
		if a.filterForm != nil {
			a.filterForm = a.filterForm.WithWidth(a.contentWidth())
		}
		a.rebuildDataTable()
		return a, nil

	case tea.MouseMsg:
		if !a.loaded || a.showHelp || a.modal() {
			return a, nil
		}
		if msg.Button == tea.MouseButtonLeft && msg.Action == tea.MouseActionPress && msg.Y == 0 {
			if tab := a.tabAtX(msg.X); tab >= 0 {
				a.activeTab = tab
			}
			return a, nil
		}
		if a.activeTab == tabTable && a.dash.Table != nil {
			switch msg.Button {
			case tea.MouseButtonWheelUp:
				a.dataTable.MoveUp(1)
			case tea.MouseButtonWheelDown:
				a.dataTable.MoveDown(1)
			}
		}
		return a, nil

	case tea.KeyMsg:
		key := msg.String()
		if key == "ctrl+c" {
			return a, tea.Quit
		}
		if !a.loaded {
			if a.loadErr != nil && key == "q" {
				return a, tea.Quit
			}
			return a, nil
		}

		if a.setupForm != nil {
			return a.updateSetupForm(msg)
		}
		if a.filterForm != nil {
			return a.updateFilterForm(msg)
		}

		if key == "?" {
			a.showHelp = !a.showHelp
			return a, nil
		}
		if a.showHelp {
			a.showHelp = false
			return a, nil
		}

		switch key {
		case "q":
			return a, tea.Quit
		case "r":
			if !a.reloading {
				a.reloading = true
				return a, tea.Batch(loadDataCmd(a.opts, a.loadSub), a.spinner.Tick)
			}
			return a, nil
		case "/":
			return a.openFilterForm()
		case "left", "shift+tab":
			a.activeTab = (a.activeTab - 1 + len(components.Tabs)) % len(components.Tabs)
			return a, nil
		case "right", "tab":
			a.activeTab = (a.activeTab + 1) % len(components.Tabs)
			return a, nil
		}

		if a.activeTab == tabSettings && key == "enter" {
			return a.openSetupForm()
		}

		if r := []rune(key); len(r) == 1 {
			if idx := components.TabIdxByKey(r[0]); idx >= 0 {
				a.activeTab = idx
				return a, nil
			}
		}

		if a.activeTab == tabTable && a.dash.Table != nil {
			var cmd tea.Cmd
			a.dataTable, cmd = a.dataTable.Update(msg)
			return a, cmd
		}
		return a, nil

	case ProgressMsg:
		a.progress = msg.Current
		a.progressMax = msg.Total
		return a, waitForLoadMsg(a.loadSub)

	case DataLoadedMsg:
		reload := a.reloading
		a.reloading = false
		a.loadTime = msg.LoadTime
		if msg.Err != nil {
			a.log.WithError(msg.Err).Error("dataset load failed")
			if !a.loaded {
				a.loadErr = msg.Err
			} else {
				a.loadErr = fmt.Errorf("reload failed, showing previous data: %w", msg.Err)
			}
			return a, nil
		}
		a.loadErr = nil
		a.loaded = true
		a.loadedAt = time.Now()
		a.setTable(msg.Result)

		if a.opts.NeedSetup && !reload {
			return a.openSetupForm()
		}
		return a, nil

	case spinner.TickMsg:
		if !a.loaded || a.reloading {
			var cmd tea.Cmd
			a.spinner, cmd = a.spinner.Update(msg)
			return a, cmd
		}
		return a, nil
	}

	// Forward cursor blinks and other internal messages to an open form.
	if a.setupForm != nil {
		return a.updateSetupForm(msg)
	}
	if a.filterForm != nil {
		return a.updateFilterForm(msg)
	}
	return a, nil
}

func (a App) modal() bool {
	return a.setupForm != nil || a.filterForm != nil
}

func (a App) openFilterForm() (tea.Model, tea.Cmd) {
	vals := filterValuesFrom(a.sel)
	a.filterVals = &vals
	a.filterForm = newFilterForm(a.table, a.filterVals).WithWidth(a.contentWidth())
	return a, a.filterForm.Init()
}

func (a App) updateFilterForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	if km, ok := msg.(tea.KeyMsg); ok && km.String() == "esc" {
		a.filterForm = nil
		return a, nil
	}

	form, cmd := a.filterForm.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		a.filterForm = f
	}

	switch a.filterForm.State {
	case huh.StateCompleted:
		a.sel = a.filterVals.selection()
		a.filterForm = nil
		a.recompute()
		return a, nil
	case huh.StateAborted:
		a.filterForm = nil
		return a, nil
	}
	return a, cmd
}

func (a App) openSetupForm() (tea.Model, tea.Cmd) {
	vals := SetupValuesFrom(a.cfg)
	a.setupVals = &vals
	a.saved = false
	a.setupForm = NewSetupForm(a.setupVals)
	if a.width > 0 {
		a.setupForm = a.setupForm.WithWidth(a.width).WithHeight(a.height)
	}
	return a, a.setupForm.Init()
}

func (a App) updateSetupForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	form, cmd := a.setupForm.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		a.setupForm = f
	}

	switch a.setupForm.State {
	case huh.StateCompleted:
		cfg, err := saveSetup(*a.setupVals)
		a.setupErr = err
		a.saved = err == nil
		a.opts.NeedSetup = false
		a.setupForm = nil
		if err != nil {
			a.log.WithError(err).Warn("saving config failed")
		}
		return a.applyConfig(cfg)
	case huh.StateAborted:
		a.opts.NeedSetup = false
		a.setupForm = nil
		return a, nil
	}
	return a, cmd
}

// applyConfig adopts a new configuration. A changed dataset or encoding
// triggers a reload; forecast and category settings apply immediately.
func (a App) applyConfig(cfg config.Config) (tea.Model, tea.Cmd) {
	prev := a.cfg
	a.cfg = cfg
	a.opts.Config = cfg
	a.forecaster = forecast.New(forecast.SettingsFromConfig(cfg.Forecast), a.log)
	if cats, err := categoriesFromConfig(cfg); err == nil && len(cats) > 0 {
		a.sel.Categories = cats
	}
	a.spinner.Style = a.spinner.Style.Foreground(theme.Active.Accent).Background(theme.Active.Surface)

	if cfg.General.DataPath != prev.General.DataPath || cfg.General.Encoding != prev.General.Encoding {
		a.opts.Source.Encoding = cfg.General.Encoding
		a.reloading = true
		return a, tea.Batch(loadDataCmd(a.opts, a.loadSub), a.spinner.Tick)
	}
	a.recompute()
	return a, nil
}

func (a App) contentWidth() int {
	return min(a.width, maxContentWidth)
}

func (a App) isCompactLayout() bool {
	return a.contentWidth() < compactWidth
}

// View implements tea.Model.
func (a App) View() string {
	if a.width == 0 {
		return ""
	}
	if a.width < minTerminalWidth {
		return a.viewTooNarrow()
	}
	if !a.loaded {
		return a.viewLoading()
	}
	if a.setupForm != nil {
		return a.setupForm.View()
	}
	if a.showHelp {
		return a.viewHelp()
	}
	return a.viewMain()
}

func (a App) viewTooNarrow() string {
	h := max(a.height, 5)
	msg := fmt.Sprintf(
		"\n  Terminal too narrow (%d cols)\n\n  aforos needs at least %d columns.\n",
		a.width, minTerminalWidth,
	)
	return padHeight(truncateHeight(msg, h), h)
}

func (a App) viewLoading() string {
	t := theme.Active
	w := a.width
	h := a.height

	cardStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.BorderAccent).
		Background(t.Surface).
		Padding(2, 4)
	logoStyle := lipgloss.NewStyle().Foreground(t.AccentBright).Background(t.Surface).Bold(true)
	subtitleStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	spinnerStyle := lipgloss.NewStyle().Foreground(t.Accent).Background(t.Surface)
	countStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface)
	errStyle := lipgloss.NewStyle().Foreground(t.Red).Background(t.Surface)

	var b strings.Builder
	b.WriteString(logoStyle.Render("◈ aforos"))
	b.WriteString(subtitleStyle.Render(" · Aforos vehiculares"))
	b.WriteString("\n\n")

	switch {
	case a.loadErr != nil:
		b.WriteString(errStyle.Render(truncStr(a.loadErr.Error(), max(w-20, 20))))
		b.WriteString("\n\n")
		b.WriteString(subtitleStyle.Render("Press q to quit"))
	case a.progressMax > 0:
		barW := min(max(w-30, 20), 40)
		pct := float64(a.progress) / float64(a.progressMax)
		b.WriteString(spinnerStyle.Render(a.spinner.View()))
		b.WriteString(subtitleStyle.Render(" Parsing " + a.opts.Config.General.DataPath + "\n\n"))
		b.WriteString(components.ProgressBar(pct, barW))
		b.WriteString("\n")
		b.WriteString(countStyle.Render(cli.FormatNumber(int64(a.progress))))
		b.WriteString(subtitleStyle.Render(" / "))
		b.WriteString(countStyle.Render(cli.FormatNumber(int64(a.progressMax))))
		b.WriteString(subtitleStyle.Render(" files"))
	default:
		b.WriteString(spinnerStyle.Render(a.spinner.View()))
		b.WriteString(subtitleStyle.Render(" Reading " + a.opts.Config.General.DataPath + "..."))
	}

	card := cardStyle.Render(b.String())
	return lipgloss.Place(w, h, lipgloss.Center, lipgloss.Center, card,
		lipgloss.WithWhitespaceBackground(t.Background))
}

func (a App) viewHelp() string {
	t := theme.Active

	cardStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.BorderAccent).
		Background(t.Surface).
		Padding(1, 3)
	titleStyle := lipgloss.NewStyle().Foreground(t.AccentBright).Background(t.Surface).Bold(true)
	sectionStyle := lipgloss.NewStyle().Foreground(t.Accent).Background(t.Surface).Bold(true)
	keyStyle := lipgloss.NewStyle().Foreground(t.Cyan).Background(t.Surface).Bold(true)
	descStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	dimStyle := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)

	section := func(b *strings.Builder, title string, binds []struct{ key, desc string }) {
		b.WriteString(sectionStyle.Render(title))
		b.WriteString("\n")
		for _, bind := range binds {
			fmt.Fprintf(b, "  %s  %s\n",
				keyStyle.Render(fmt.Sprintf("%-10s", bind.key)),
				descStyle.Render(bind.desc))
		}
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("◈ Keyboard Shortcuts"))
	b.WriteString("\n\n")
	section(&b, "Navigation", []struct{ key, desc string }{
		{"o f t x", "Jump to tab"},
		{"← → tab", "Previous / Next tab"},
		{"j k", "Scroll the table"},
	})
	b.WriteString("\n")
	section(&b, "Actions", []struct{ key, desc string }{
		{"/", "Edit filters"},
		{"Enter", "Edit settings (Settings tab)"},
		{"Esc", "Close form"},
		{"r", "Reload dataset"},
		{"?", "Toggle help"},
		{"q", "Quit"},
	})
	b.WriteString("\n")
	b.WriteString(dimStyle.Render("Press any key to close"))

	return lipgloss.Place(a.width, a.height, lipgloss.Center, lipgloss.Center, cardStyle.Render(b.String()),
		lipgloss.WithWhitespaceBackground(t.Background))
}

func (a App) viewMain() string {
	t := theme.Active
	w := a.width
	cw := a.contentWidth()
	h := a.height

	header := components.RenderTabBar(a.activeTab, w) + "\n" + a.renderFilterPill(w)

	dataset := fmt.Sprintf("%s records · %d files", cli.FormatNumber(int64(a.table.Len())), a.files)
	dataAge := fmt.Sprintf("%.1fs", a.loadTime.Seconds())
	if a.reloading {
		dataAge = a.spinner.View() + " reloading"
	}
	statusBar := components.RenderStatusBar(w, dataset, dataAge)

	contentH := max(h-lipgloss.Height(header)-lipgloss.Height(statusBar), minContentHeight)

	var content string
	switch {
	case a.filterForm != nil:
		content = components.ContentCard("Filtros", a.filterForm.View(), cw)
	case a.activeTab == tabOverview:
		content = a.renderOverviewTab(cw)
	case a.activeTab == tabForecast:
		content = a.renderForecastTab(cw)
	case a.activeTab == tabTable:
		content = a.renderTableTab(cw)
	case a.activeTab == tabSettings:
		content = a.renderSettingsTab(cw)
	}
	if a.loadErr != nil {
		warn := lipgloss.NewStyle().Foreground(t.Orange).Background(t.Background)
		content = warn.Render(" "+truncStr(a.loadErr.Error(), cw-2)) + "\n" + content
	}

	content = padHeight(truncateHeight(content, contentH), contentH)
	content = fillLinesWithBackground(content, cw, t.Background)
	content = lipgloss.Place(w, contentH, lipgloss.Center, lipgloss.Top, content,
		lipgloss.WithWhitespaceBackground(t.Background))

	output := lipgloss.JoinVertical(lipgloss.Left, header, content, statusBar)
	return lipgloss.Place(w, h, lipgloss.Left, lipgloss.Top, output,
		lipgloss.WithWhitespaceBackground(t.Background))
}

// renderFilterPill summarizes the active selection under the tab bar.
func (a App) renderFilterPill(w int) string {
	t := theme.Active
	dim := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)
	accent := lipgloss.NewStyle().Foreground(t.Accent).Background(t.Surface).Bold(true)

	target := a.sel.Target()
	s := dim.Render(" ") +
		accent.Render(a.sel.Category.Label()) +
		dim.Render(" │ ") +
		accent.Render(cli.FormatMonth(target.Date())) +
		dim.Render(" │ año ") +
		accent.Render(a.sel.DistributionYear) +
		dim.Render(fmt.Sprintf(" │ %d categorías ", len(a.sel.Categories)))

	return lipgloss.NewStyle().Background(t.Surface).Width(w).Render(s)
}

// tabAtX returns the tab index at the given X coordinate, or -1 if none.
// Hitboxes follow the widths RenderTabBar uses.
func (a App) tabAtX(x int) int {
	pos := 0
	for i, tab := range components.Tabs {
		tabW := components.TabVisualWidth(tab, i == a.activeTab)
		if x >= pos && x < pos+tabW {
			return i
		}
		pos += tabW + 1 // separator
	}
	return -1
}

// loadDataCmd starts the data loading pipeline in a background goroutine.
// It streams ProgressMsg updates and a final DataLoadedMsg through sub.
func loadDataCmd(opts Options, sub chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		go func() {
			start := time.Now()

			// Non-blocking send so workers aren't stalled; a skipped update
			// is caught up by the next one.
			progressFn := func(current, total int) {
				select {
				case sub <- ProgressMsg{Current: current, Total: total}:
				default:
				}
			}

			res, err := loadTable(opts, progressFn)
			sub <- DataLoadedMsg{Result: res, Err: err, LoadTime: time.Since(start)}
		}()

		return <-sub
	}
}

// waitForLoadMsg blocks until the next message arrives from the loader goroutine.
func waitForLoadMsg(sub chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		return <-sub
	}
}

// loadTable reads the dataset through the snapshot cache when enabled,
// reparsing from scratch only when the cache itself fails.
func loadTable(opts Options, progressFn pipeline.ProgressFunc) (*pipeline.LoadResult, error) {
	path := opts.Config.General.DataPath
	if opts.UseCache {
		cache, err := store.Open(pipeline.CachePath())
		if err == nil {
			cr, loadErr := pipeline.LoadWithCache(path, opts.Source, cache, progressFn)
			_ = cache.Close()
			if loadErr == nil {
				return &cr.LoadResult, nil
			}
			if !errors.Is(loadErr, pipeline.ErrCache) {
				return nil, loadErr
			}
		}
	}
	return pipeline.Load(path, opts.Source, progressFn)
}

func categoriesFromConfig(cfg config.Config) ([]catalog.Category, error) {
	return catalog.ParseList(strings.Join(cfg.Dashboard.DefaultCategories, ","))
}

func truncStr(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit-1]) + "…"
}

func truncateHeight(s string, limit int) string {
	lines := strings.Split(s, "\n")
	if len(lines) <= limit {
		return s
	}
	return strings.Join(lines[:limit], "\n")
}

func padHeight(s string, h int) string {
	lines := strings.Split(s, "\n")
	if len(lines) >= h {
		return s
	}
	return s + strings.Repeat("\n", h-len(lines))
}

// fillLinesWithBackground pads each line to width w with background color,
// so gaps between cards keep the theme background.
func fillLinesWithBackground(s string, w int, bg lipgloss.Color) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = lipgloss.PlaceHorizontal(w, lipgloss.Left, line,
			lipgloss.WithWhitespaceBackground(bg))
	}
	return strings.Join(lines, "\n")
}
