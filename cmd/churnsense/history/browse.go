package historycmder

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"charm.land/bubbles/v2/help"
	"charm.land/bubbles/v2/key"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"
	"github.com/spf13/cobra"

	"github.com/papercomputeco/churnsense/api"
	apiclient "github.com/papercomputeco/churnsense/api/client"
	"github.com/papercomputeco/churnsense/pkg/churn"
	"github.com/papercomputeco/churnsense/pkg/cliui"
)

const browseLongDesc string = `Browse saved predictions in an interactive terminal view.

Keys:
  j/k      Move down and up
  enter    Show the selected prediction
  h/esc    Back to the list
  s        Cycle the sort field
  o        Flip the sort direction
  f        Cycle the risk filter
  x        Delete the selected prediction
  r        Refresh
  q        Quit

Examples:
  churnsense history browse
  churnsense history browse --api-target http://api:8081`

const browseShortDesc string = "Browse saved predictions interactively"

type browseView int

const (
	viewList browseView = iota
	viewDetail
)

var (
	sortOrder   = []string{"prediction_timestamp", "churn_probability", "tenure"}
	riskFilters = []string{"", string(churn.RiskHigh), string(churn.RiskMedium), string(churn.RiskLow)}
)

var (
	browseTitleStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("214"))
	browseMutedStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	browseSectionStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("252"))
	browseDividerStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("237"))
	browseHighlightStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("235")).Background(lipgloss.Color("214")).Bold(true)
	browseErrorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
)

// predictionStore is the part of the history API the browser uses.
type predictionStore interface {
	List(ctx context.Context, p apiclient.ListParams) (*api.ListResponse, error)
	Get(ctx context.Context, id string) (*api.PredictionResponse, error)
	Delete(ctx context.Context, id string) error
}

type browseKeyMap struct {
	Up     key.Binding
	Down   key.Binding
	Enter  key.Binding
	Back   key.Binding
	Sort   key.Binding
	Order  key.Binding
	Filter key.Binding
	Delete key.Binding
	Reload key.Binding
	Quit   key.Binding
}

func (k browseKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Down, k.Up, k.Enter, k.Back, k.Sort, k.Order, k.Filter, k.Delete, k.Reload, k.Quit}
}

func (k browseKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Down, k.Up, k.Enter, k.Back}, {k.Sort, k.Order, k.Filter, k.Delete, k.Reload, k.Quit}}
}

func defaultKeyMap() browseKeyMap {
	return browseKeyMap{
		Up:     key.NewBinding(key.WithKeys("k", "up"), key.WithHelp("k", "up")),
		Down:   key.NewBinding(key.WithKeys("j", "down"), key.WithHelp("j", "down")),
		Enter:  key.NewBinding(key.WithKeys("enter", "l"), key.WithHelp("enter", "open")),
		Back:   key.NewBinding(key.WithKeys("h", "esc"), key.WithHelp("h", "back")),
		Sort:   key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "sort")),
		Order:  key.NewBinding(key.WithKeys("o"), key.WithHelp("o", "order")),
		Filter: key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "risk")),
		Delete: key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "delete")),
		Reload: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
		Quit:   key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

type listLoadedMsg struct {
	resp *api.ListResponse
	err  error
}

type detailLoadedMsg struct {
	detail *api.PredictionResponse
	err    error
}

type deletedMsg struct {
	id  string
	err error
}

type browseModel struct {
	ctx       context.Context
	store     predictionStore
	params    apiclient.ListParams
	list      *api.ListResponse
	detail    *api.PredictionResponse
	view      browseView
	cursor    int
	width     int
	height    int
	sortIndex int
	riskIndex int
	err       error
	keys      browseKeyMap
	help      help.Model
}

type browseCommander struct {
	target
	limit int
}

func newBrowseCmd() *cobra.Command {
	cmder := &browseCommander{}

	cmd := &cobra.Command{
		Use:   "browse",
		Short: browseShortDesc,
		Long:  browseLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.setup(cmd)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !cliui.IsTerminal(cmd.OutOrStdout()) {
				return errors.New("browse needs a terminal, use \"churnsense history list\" instead")
			}
			return runBrowseTUI(cmd.Context(), cmder.client, apiclient.ListParams{Limit: cmder.limit})
		},
	}

	cmder.addFlags(cmd)
	cmd.Flags().IntVarP(&cmder.limit, "limit", "n", 0, "Maximum number of predictions to load")

	return cmd
}

func runBrowseTUI(ctx context.Context, store predictionStore, params apiclient.ListParams) error {
	if ctx == nil {
		ctx = context.Background()
	}

	list, err := store.List(ctx, params)
	if err != nil {
		return fmt.Errorf("listing predictions: %w", err)
	}

	program := tea.NewProgram(newBrowseModel(ctx, store, params, list), tea.WithContext(ctx))
	_, err = program.Run()
	return err
}

func newBrowseModel(ctx context.Context, store predictionStore, params apiclient.ListParams, list *api.ListResponse) browseModel {
	sortIndex := 0
	for i, s := range sortOrder {
		if s == params.Sort {
			sortIndex = i
		}
	}

	riskIndex := 0
	for i, r := range riskFilters {
		if strings.EqualFold(r, params.Risk) {
			riskIndex = i
		}
	}

	return browseModel{
		ctx:       ctx,
		store:     store,
		params:    params,
		list:      list,
		view:      viewList,
		sortIndex: sortIndex,
		riskIndex: riskIndex,
		keys:      defaultKeyMap(),
		help:      help.New(),
	}
}

func (m browseModel) Init() tea.Cmd {
	return nil
}

func (m browseModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case listLoadedMsg:
		m.err = msg.err
		if msg.err != nil {
			return m, nil
		}
		m.list = msg.resp
		m.cursor = clamp(m.cursor, len(m.predictions())-1)
		return m, nil
	case detailLoadedMsg:
		m.err = msg.err
		if msg.err != nil {
			return m, nil
		}
		m.detail = msg.detail
		m.view = viewDetail
		return m, nil
	case deletedMsg:
		m.err = msg.err
		if msg.err != nil {
			return m, nil
		}
		m.view = viewList
		m.detail = nil
		return m, m.loadList()
	case tea.KeyPressMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

func (m browseModel) View() tea.View {
	content := m.viewList()
	if m.view == viewDetail {
		content = m.viewDetail()
	}

	v := tea.NewView(content)
	v.AltScreen = true
	return v
}

func (m browseModel) handleKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		return m, tea.Quit
	case "j", "down":
		if m.view == viewList {
			m.cursor = clamp(m.cursor+1, len(m.predictions())-1)
		}
	case "k", "up":
		if m.view == viewList {
			m.cursor = clamp(m.cursor-1, len(m.predictions())-1)
		}
	case "l", "enter":
		if p := m.selected(); p != nil && m.view == viewList {
			return m, m.loadDetail(p.ID)
		}
	case "h", "esc":
		m.view = viewList
	case "s":
		m.sortIndex = (m.sortIndex + 1) % len(sortOrder)
		m.params.Sort = sortOrder[m.sortIndex]
		return m, m.loadList()
	case "o":
		if m.params.Dir == "asc" {
			m.params.Dir = "desc"
		} else {
			m.params.Dir = "asc"
		}
		return m, m.loadList()
	case "f":
		m.riskIndex = (m.riskIndex + 1) % len(riskFilters)
		m.params.Risk = riskFilters[m.riskIndex]
		m.cursor = 0
		return m, m.loadList()
	case "r":
		return m, m.loadList()
	case "x":
		id := ""
		if m.view == viewDetail && m.detail != nil {
			id = m.detail.ID
		} else if p := m.selected(); p != nil {
			id = p.ID
		}
		if id != "" {
			return m, m.deletePrediction(id)
		}
	}

	return m, nil
}

func (m browseModel) predictions() []*churn.Prediction {
	if m.list == nil {
		return nil
	}
	return m.list.Predictions
}

func (m browseModel) selected() *churn.Prediction {
	preds := m.predictions()
	if m.cursor < 0 || m.cursor >= len(preds) {
		return nil
	}
	return preds[m.cursor]
}

func (m browseModel) loadList() tea.Cmd {
	store, ctx, params := m.store, m.ctx, m.params
	return func() tea.Msg {
		resp, err := store.List(ctx, params)
		return listLoadedMsg{resp: resp, err: err}
	}
}

func (m browseModel) loadDetail(id string) tea.Cmd {
	store, ctx := m.store, m.ctx
	return func() tea.Msg {
		detail, err := store.Get(ctx, id)
		return detailLoadedMsg{detail: detail, err: err}
	}
}

func (m browseModel) deletePrediction(id string) tea.Cmd {
	store, ctx := m.store, m.ctx
	return func() tea.Msg {
		return deletedMsg{id: id, err: store.Delete(ctx, id)}
	}
}

func (m browseModel) viewList() string {
	preds := m.predictions()

	risk := m.params.Risk
	if risk == "" {
		risk = "all"
	}
	dir := m.params.Dir
	if dir == "" {
		dir = "desc"
	}

	headerLeft := browseTitleStyle.Render("churnsense history")
	headerRight := browseMutedStyle.Render(fmt.Sprintf("%d shown", len(preds)))
	lines := []string{renderHeaderLine(m.width, headerLeft, headerRight), renderRule(m.width), ""}

	if m.list != nil {
		s := m.list.Stats
		lines = append(lines,
			fmt.Sprintf("%s %d   %s %d   %s %s",
				browseSectionStyle.Render("total"), s.Total,
				browseSectionStyle.Render("high risk"), s.HighRiskCount,
				browseSectionStyle.Render("avg. churn"), percent(s.AverageProbability),
			),
			"",
		)
	}

	lines = append(lines,
		browseSectionStyle.Render(fmt.Sprintf("predictions (sort: %s %s, risk: %s)", sortOrder[m.sortIndex], dir, risk)),
		renderRule(m.width),
	)

	if len(preds) == 0 {
		lines = append(lines, browseMutedStyle.Render("no predictions"))
	} else {
		lines = append(lines, browseMutedStyle.Render("  date              churn   risk     tenure  contract          monthly"))
		start, end := visibleRange(len(preds), m.cursor, m.listHeight())
		for i := start; i < end; i++ {
			p := preds[i]
			cursor := " "
			if i == m.cursor {
				cursor = ">"
			}
			line := fmt.Sprintf("%s %-16s  %6s  %-7s  %6d  %-16s  %8s",
				cursor,
				p.CreatedAt.Local().Format("2006-01-02 15:04"),
				percent(p.Probability),
				string(p.RiskLevel),
				p.Customer.Tenure,
				cliui.TruncateCell(p.Customer.Contract, 16),
				fmt.Sprintf("$%.2f", p.Customer.MonthlyCharges),
			)
			if i == m.cursor {
				line = browseHighlightStyle.Render(line)
			}
			lines = append(lines, line)
		}
	}

	lines = append(lines, "", m.viewFooter())
	return strings.Join(lines, "\n")
}

func (m browseModel) viewDetail() string {
	if m.detail == nil {
		return browseMutedStyle.Render("no prediction selected")
	}
	p := m.detail

	headerLeft := browseTitleStyle.Render("churnsense history › " + p.ID)
	headerRight := browseMutedStyle.Render(p.CreatedAt.Local().Format("2006-01-02 15:04:05"))
	lines := []string{renderHeaderLine(m.width, headerLeft, headerRight), renderRule(m.width), ""}

	lines = append(lines, cliui.GaugeBar(p.Probability, gaugeWidth)+"  "+cliui.RiskBadge(p.RiskLevel), "")

	c := p.Customer
	lines = append(lines,
		browseSectionStyle.Render("customer"), renderRule(m.width),
		fmt.Sprintf("%-18s %s", "tenure", strconv.Itoa(c.Tenure)+" months"),
		fmt.Sprintf("%-18s %s", "contract", c.Contract),
		fmt.Sprintf("%-18s %s", "payment method", c.PaymentMethod),
		fmt.Sprintf("%-18s $%.2f / $%.2f", "monthly / total", c.MonthlyCharges, c.TotalCharges),
		fmt.Sprintf("%-18s %s", "internet service", c.InternetService),
		fmt.Sprintf("%-18s %s", "tech support", c.TechSupport),
		fmt.Sprintf("%-18s %s", "online security", c.OnlineSecurity),
		"",
	)

	if len(p.Insights) > 0 {
		lines = append(lines, browseSectionStyle.Render("retention insights"), renderRule(m.width))
		for _, insight := range p.Insights {
			lines = append(lines, "• "+insight)
		}
		lines = append(lines, "")
	}

	lines = append(lines, m.viewFooter())
	return strings.Join(lines, "\n")
}

func (m browseModel) viewFooter() string {
	footer := m.help.View(m.keys)
	if m.err != nil {
		footer = browseErrorStyle.Render(m.err.Error()) + "\n" + footer
	}
	return footer
}

// listHeight is the number of rows the list view has room for.
func (m browseModel) listHeight() int {
	if m.height <= 0 {
		return 20
	}
	return max(m.height-12, 3)
}

func clamp(value, upper int) int {
	if value > upper {
		value = upper
	}
	if value < 0 {
		return 0
	}
	return value
}

// visibleRange returns the window of size rows that keeps cursor in view.
func visibleRange(total, cursor, size int) (int, int) {
	if total <= size {
		return 0, total
	}
	start := max(cursor-size/2, 0)
	end := start + size
	if end > total {
		end = total
		start = total - size
	}
	return start, end
}

func renderHeaderLine(width int, left, right string) string {
	lineWidth := width
	if lineWidth <= 0 {
		lineWidth = 80
	}
	leftWidth := lipgloss.Width(left)
	rightWidth := lipgloss.Width(right)
	if leftWidth+rightWidth+1 >= lineWidth {
		return strings.TrimSpace(left + " " + right)
	}
	return left + strings.Repeat(" ", lineWidth-leftWidth-rightWidth) + right
}

func renderRule(width int) string {
	lineWidth := width
	if lineWidth <= 0 {
		lineWidth = 80
	}
	return browseDividerStyle.Render(strings.Repeat("─", lineWidth))
}
