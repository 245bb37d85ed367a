package tui

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/anntune/internal/adapters/driving/tui/components/status"
	"github.com/custodia-labs/anntune/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/anntune/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/anntune/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/anntune/internal/core/domain"
)

// sortOrder is the ordering of the trials tab.
type sortOrder int

const (
	sortStored sortOrder = iota
	sortScore
	sortRecall
	sortSearch
)

func (o sortOrder) String() string {
	switch o {
	case sortScore:
		return "score"
	case sortRecall:
		return "recall@10"
	case sortSearch:
		return "search time"
	default:
		return "table order"
	}
}

// chrome is the number of lines around the table: title, tabs, detail,
// blank line and status bar.
const chrome = 6

// App is the dashboard following the Elm architecture.
// It implements tea.Model for use with Bubbletea.
type App struct {
	ports   *Ports
	ctx     context.Context
	styles  *styles.Styles
	keymap  *keymap.KeyMap
	help    help.Model
	status  *status.Bar
	table   table.Model
	watcher *Watcher

	analysis *domain.Analysis

	// shown holds the outcomes behind the table rows, in row order.
	shown []domain.TrialOutcome

	currentView messages.ViewType
	order       sortOrder
	err         error

	width  int
	height int
	ready  bool
}

// Ensure App implements tea.Model.
var _ tea.Model = (*App)(nil)

// NewApp creates the dashboard. The results file is watched when possible;
// without a watcher the dashboard still works and reloads on demand.
func NewApp(ports *Ports) (*App, error) {
	if ports == nil {
		return nil, fmt.Errorf("creating app: %w", ErrMissingAnalysisService)
	}
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("creating app: %w", err)
	}

	s := styles.DefaultStyles()
	km := keymap.DefaultKeyMap()

	t := table.New(table.WithFocused(true))
	ts := table.DefaultStyles()
	ts.Header = s.TableHeader
	ts.Selected = s.TableSelected
	t.SetStyles(ts)

	a := &App{
		ports:  ports,
		ctx:    context.Background(),
		styles: s,
		keymap: km,
		help:   help.New(),
		status: status.NewBar(s, km),
		table:  t,
	}

	w, err := NewWatcher(ports.ResultsPath)
	if err != nil {
		a.status.SetMessage(err.Error())
	} else {
		a.watcher = w
	}
	return a, nil
}

// WithContext sets the context for the app.
func (a *App) WithContext(ctx context.Context) *App {
	a.ctx = ctx
	return a
}

// Init implements tea.Model.
func (a *App) Init() tea.Cmd {
	return tea.Batch(
		tea.SetWindowTitle("anntune dashboard"),
		a.load(),
		a.watch(),
	)
}

// Update implements tea.Model.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.SetDimensions(msg.Width, msg.Height)
		return a, nil

	case tea.KeyMsg:
		return a.handleKey(msg)

	case messages.ResultsLoaded:
		if msg.Err != nil {
			a.err = msg.Err
			a.status.SetState(status.StateError)
			a.status.SetMessage(msg.Err.Error())
			return a, nil
		}
		a.err = nil
		a.analysis = msg.Analysis
		if a.analysis == nil {
			a.analysis = &domain.Analysis{}
		}
		a.status.SetTrials(len(a.analysis.Outcomes))
		if a.watcher != nil {
			a.status.SetState(status.StateWatching)
			a.status.SetMessage("")
		} else {
			a.status.SetState(status.StateStale)
		}
		a.refreshTable()
		return a, nil

	case messages.ResultsChanged:
		return a, tea.Batch(a.load(), a.watch())

	case messages.WatchFailed:
		a.watcher = nil
		a.status.SetState(status.StateStale)
		a.status.SetMessage(msg.Err.Error())
		return a, nil

	case messages.ViewChanged:
		a.currentView = msg.View
		a.refreshTable()
		return a, nil
	}

	var cmd tea.Cmd
	a.table, cmd = a.table.Update(msg)
	return a, cmd
}

func (a *App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, a.keymap.Quit):
		return a, tea.Quit
	case key.Matches(msg, a.keymap.Help):
		a.help.ShowAll = !a.help.ShowAll
		a.resize()
		return a, nil
	case key.Matches(msg, a.keymap.NextView):
		return a.Update(messages.ViewChanged{View: a.currentView.Next()})
	case key.Matches(msg, a.keymap.PrevView):
		return a.Update(messages.ViewChanged{View: a.currentView.Prev()})
	case key.Matches(msg, a.keymap.Sort):
		if a.currentView == messages.ViewTrials {
			a.order = (a.order + 1) % (sortSearch + 1)
			a.refreshTable()
		}
		return a, nil
	case key.Matches(msg, a.keymap.Refresh):
		a.status.SetState(status.StateLoading)
		return a, a.load()
	}

	var cmd tea.Cmd
	a.table, cmd = a.table.Update(msg)
	return a, cmd
}

func (a *App) load() tea.Cmd {
	svc, ctx, topK := a.ports.Analysis, a.ctx, a.ports.TopK
	return func() tea.Msg {
		analysis, err := svc.Analyze(ctx, topK)
		return messages.ResultsLoaded{Analysis: analysis, Err: err}
	}
}

func (a *App) watch() tea.Cmd {
	if a.watcher == nil {
		return nil
	}
	return a.watcher.Wait()
}

// refreshTable rebuilds the table for the current tab.
func (a *App) refreshTable() {
	if a.analysis == nil {
		return
	}
	knobs := a.analysis.Knobs

	var columns []string
	var rows []table.Row
	a.shown = nil

	switch a.currentView {
	case messages.ViewTrials, messages.ViewFrontier:
		src := a.analysis.Frontier
		if a.currentView == messages.ViewTrials {
			src = sortOutcomes(a.analysis.Outcomes, a.order)
		}
		columns = outcomeColumns(knobs)
		for _, o := range src {
			rows = append(rows, outcomeRow(knobs, o))
		}
		a.shown = src
	case messages.ViewImpact:
		columns = []string{"Knob", "Value", "Trials", "Recall@10", "Recall@1", "Search ms", "Build s", "Pass rate"}
		for _, imp := range a.analysis.Impact {
			for _, r := range imp.Rows {
				rows = append(rows, impactRow(imp.Knob, r))
			}
		}
	default:
		return
	}

	// Rows must be cleared before the columns shrink.
	a.table.SetRows(nil)
	a.table.SetColumns(fitColumns(columns, rows))
	a.table.SetRows(rows)
	if a.table.Cursor() >= len(rows) {
		a.table.SetCursor(max(len(rows)-1, 0))
	}
}

// View implements tea.Model.
func (a *App) View() string {
	if !a.ready {
		return "Initialising..."
	}

	var b strings.Builder
	b.WriteString(a.styles.Title.Render("anntune dashboard"))
	b.WriteString("  ")
	b.WriteString(a.styles.Muted.Render(a.ports.ResultsPath))
	b.WriteString("\n")
	b.WriteString(a.renderTabs())
	b.WriteString("\n")

	switch {
	case a.analysis == nil && a.err != nil:
		b.WriteString(a.styles.Error.Render(a.err.Error()))
	case a.analysis == nil:
		b.WriteString(a.styles.Muted.Render("Loading results..."))
	case len(a.analysis.Outcomes) == 0:
		b.WriteString(a.styles.Muted.Render("No trials recorded yet. Run anntune tune to start a sweep."))
	case a.currentView == messages.ViewSummary:
		b.WriteString(a.renderSummary())
	default:
		b.WriteString(a.table.View())
		b.WriteString("\n")
		b.WriteString(a.renderDetail())
	}

	b.WriteString("\n")
	if a.help.ShowAll {
		b.WriteString(a.help.View(a.keymap))
		b.WriteString("\n")
	}
	b.WriteString(a.status.View())
	return b.String()
}

func (a *App) renderTabs() string {
	tabs := make([]string, 0, len(messages.Views()))
	for _, v := range messages.Views() {
		style := a.styles.Tab
		if v == a.currentView {
			style = a.styles.ActiveTab
		}
		tabs = append(tabs, style.Render(v.String()))
	}
	line := lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
	if a.currentView == messages.ViewTrials {
		line += a.styles.Muted.Render("  sorted by " + a.order.String())
	}
	return line
}

func (a *App) renderDetail() string {
	o, ok := a.Selected()
	if !ok {
		return ""
	}
	line := fmt.Sprintf("%s  %s  %s", o.ID, o.Configuration.Describe(a.analysis.Knobs), o.Status)
	if o.Configuration.Rationale != "" {
		line += "  " + o.Configuration.Rationale
	}
	if o.Diagnostic != "" {
		first, _, _ := strings.Cut(o.Diagnostic, "\n")
		return a.styles.Normal.Render(line) + "\n" + a.styles.Error.Render(first)
	}
	return a.styles.Normal.Render(line)
}

func (a *App) renderSummary() string {
	s := a.analysis.Summary
	knobs := a.analysis.Knobs

	var b strings.Builder
	fmt.Fprintf(&b, "Trials %d, usable %d, passing %d\n", s.Total, s.Usable, s.Passing)
	for _, st := range domain.AllStatuses() {
		if n := s.ByStatus[st]; n > 0 {
			fmt.Fprintf(&b, "  %-18s %d\n", st, n)
		}
	}
	if s.Usable > 0 {
		fmt.Fprintf(&b, "\nRecall@10   %.4f - %.4f\n", s.Recall10.Min, s.Recall10.Max)
		fmt.Fprintf(&b, "Search ms   %.0f - %.0f\n", s.SearchMs.Min, s.SearchMs.Max)
		fmt.Fprintf(&b, "Build s     %.1f - %.1f\n", s.BuildMs.Min/1000, s.BuildMs.Max/1000)
	}
	if o := s.BestRecall; o != nil {
		fmt.Fprintf(&b, "\nBest recall   %.4f  %s\n", o.Metrics.Recall10, o.Configuration.Describe(knobs))
	}
	if o := s.Fastest; o != nil {
		fmt.Fprintf(&b, "Fastest       %d ms  %s\n", o.Metrics.SearchMs, o.Configuration.Describe(knobs))
	}
	if o := s.BestScore; o != nil {
		fmt.Fprintf(&b, "Best score    %.2f  %s\n", o.Score.Value, o.Configuration.Describe(knobs))
	}

	out := b.String()
	if o := s.Recommended; o != nil {
		rec := "\n" + a.styles.Subtitle.Render("Recommended: "+o.Configuration.Describe(knobs))
		if o.Pass() {
			rec += " " + a.styles.Success.Render("meets the targets")
		} else {
			rec += " " + a.styles.Warning.Render("does not meet the targets")
		}
		out += rec
	}
	return out
}

// Selected returns the outcome under the cursor on the trials and frontier tabs.
func (a *App) Selected() (domain.TrialOutcome, bool) {
	i := a.table.Cursor()
	if i < 0 || i >= len(a.shown) {
		return domain.TrialOutcome{}, false
	}
	return a.shown[i], true
}

// CurrentView returns the active tab.
func (a *App) CurrentView() messages.ViewType {
	return a.currentView
}

// Analysis returns the last loaded analysis.
func (a *App) Analysis() *domain.Analysis {
	return a.analysis
}

// Err returns the last load error.
func (a *App) Err() error {
	return a.err
}

// Ready returns whether the app has received its dimensions.
func (a *App) Ready() bool {
	return a.ready
}

// Watching reports whether the results file is being watched.
func (a *App) Watching() bool {
	return a.watcher != nil
}

// SetDimensions sets the terminal dimensions.
func (a *App) SetDimensions(width, height int) {
	a.width = width
	a.height = height
	a.ready = true
	a.status.SetWidth(width)
	a.help.Width = width
	a.resize()
}

func (a *App) resize() {
	helpLines := 0
	if a.help.ShowAll {
		helpLines = len(a.keymap.FullHelp()[0]) + 1
	}
	a.table.SetWidth(a.width)
	a.table.SetHeight(max(a.height-chrome-helpLines, 3))
}

// Run starts the dashboard and stops watching when it exits.
func (a *App) Run() error {
	defer a.Close()
	p := tea.NewProgram(a, tea.WithAltScreen(), tea.WithContext(a.ctx))
	_, err := p.Run()
	return err
}

// Close stops the file watcher.
func (a *App) Close() {
	if a.watcher != nil {
		_ = a.watcher.Close()
		a.watcher = nil
	}
}

func sortOutcomes(outcomes []domain.TrialOutcome, order sortOrder) []domain.TrialOutcome {
	sorted := make([]domain.TrialOutcome, len(outcomes))
	copy(sorted, outcomes)
	if order == sortStored {
		return sorted
	}

	// Unusable trials sink to the bottom in table order.
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.Usable() != b.Usable() {
			return a.Usable()
		}
		if !a.Usable() {
			return false
		}
		switch order {
		case sortRecall:
			return a.Metrics.Recall10 > b.Metrics.Recall10
		case sortSearch:
			return a.Metrics.SearchMs < b.Metrics.SearchMs
		default:
			return a.Score.Value < b.Score.Value
		}
	})
	return sorted
}

func outcomeColumns(knobs []domain.Knob) []string {
	cols := []string{"#", "Trial"}
	for _, k := range knobs {
		cols = append(cols, k.DisplayLabel())
	}
	return append(cols, "Status", "Recall@10", "Search ms", "Build s", "Score", "Pass")
}

func outcomeRow(knobs []domain.Knob, o domain.TrialOutcome) table.Row {
	id := o.ID
	if len(id) > 8 {
		id = id[:8]
	}
	r := table.Row{strconv.Itoa(o.Sequence), id}
	for _, k := range knobs {
		if v, ok := o.Configuration.Get(k.Name); ok {
			r = append(r, k.Format(v))
		} else {
			r = append(r, "-")
		}
	}
	r = append(r, o.Status.String())
	if !o.Usable() {
		return append(r, "-", "-", "-", "-", "-")
	}
	pass := "no"
	if o.Score.Pass {
		pass = "yes"
	}
	return append(r,
		strconv.FormatFloat(o.Metrics.Recall10, 'f', 4, 64),
		strconv.FormatInt(o.Metrics.SearchMs, 10),
		strconv.FormatFloat(float64(o.Metrics.BuildMs)/1000, 'f', 1, 64),
		strconv.FormatFloat(o.Score.Value, 'f', 2, 64),
		pass,
	)
}

func impactRow(k domain.Knob, r domain.ImpactRow) table.Row {
	recall1 := "-"
	if r.AvgRecall1 != nil {
		recall1 = strconv.FormatFloat(*r.AvgRecall1, 'f', 4, 64)
	}
	return table.Row{
		k.DisplayLabel(),
		k.Format(r.Value),
		strconv.Itoa(r.Count),
		strconv.FormatFloat(r.AvgRecall10, 'f', 4, 64),
		recall1,
		strconv.FormatFloat(r.AvgSearchMs, 'f', 1, 64),
		strconv.FormatFloat(r.AvgBuildMs/1000, 'f', 1, 64),
		strconv.FormatFloat(r.PassRate*100, 'f', 0, 64) + "%",
	}
}

// fitColumns sizes every column to its widest cell.
func fitColumns(titles []string, rows []table.Row) []table.Column {
	cols := make([]table.Column, len(titles))
	for i, t := range titles {
		w := lipgloss.Width(t)
		for _, r := range rows {
			if i < len(r) {
				w = max(w, lipgloss.Width(r[i]))
			}
		}
		cols[i] = table.Column{Title: t, Width: w}
	}
	return cols
}
