package tui

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"safetyrag/internal/chunker"
	"safetyrag/internal/domain"
)

// SimilarityPort is the TUI-facing subset of the similarity service.
type SimilarityPort interface {
	FindSimilarCases(ctx context.Context, q domain.SimilarityQuery, k int) (domain.RankedResult, error)
}

// Model is the Bubble Tea model for the TUI application.
type Model struct {
	ctx       context.Context
	service   SimilarityPort
	base      domain.SimilarityQuery
	limit     int
	input     textinput.Model
	viewport  viewport.Model
	results   domain.RankedResult
	status    string
	cursor    int
	ready     bool
	searching bool
	lastQuery string
}

type resultsMsg struct {
	query   string
	results domain.RankedResult
	err     error
}

// New creates a new TUI model instance. base carries the work types, work
// name and equipment; the typed text becomes the work description.
func New(ctx context.Context, service SimilarityPort, base domain.SimilarityQuery, limit int) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "작업내용을 입력하고 Enter"
	ti.Focus()
	ti.CharLimit = 0
	vp := viewport.New(0, 0)
	return Model{
		ctx:      ctx,
		service:  service,
		base:     base,
		limit:    limit,
		input:    ti,
		viewport: vp,
		status:   "Type a work description to search.",
	}
}

// Init initializes the model (text input cursor blink).
func (m Model) Init() tea.Cmd { return textinput.Blink }

// Update handles key and window events and updates the view state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		// account for frames around result and query boxes
		_, rh := resultBoxStyle.GetFrameSize()
		_, qh := queryBoxStyle.GetFrameSize()
		totalHeaderLines := 2                                    // header + query context
		totalFooterLines := 1                                    // status
		reserved := totalHeaderLines + totalFooterLines + qh + 1 // 1 spacer
		vh := max(3, msg.Height-reserved)
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = max(3, vh-rh)
		m.viewport.SetContent(m.renderCurrentResult())
		return m, nil
	case resultsMsg:
		m.searching = false
		if msg.err != nil {
			m.status = "Error: " + msg.err.Error()
			m.results = nil
		} else {
			m.status = fmt.Sprintf("%d similar cases for %q", len(msg.results), msg.query)
			m.results = msg.results
			m.cursor = 0
			m.lastQuery = msg.query
		}
		m.viewport.SetContent(m.renderCurrentResult())
		return m, nil
	case tea.KeyMsg:
		// Global quits
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		switch msg.String() {
		case "enter":
			q := strings.TrimSpace(m.input.Value())
			if q != "" && !m.searching {
				m.searching = true
				m.status = "Searching..."
				return m, m.search(q)
			}
		case "down":
			if len(m.results) > 0 {
				m.cursor = (m.cursor + 1) % len(m.results)
				m.viewport.SetContent(m.renderCurrentResult())
				return m, nil
			}
		case "up":
			if len(m.results) > 0 {
				m.cursor = (m.cursor - 1 + len(m.results)) % len(m.results)
				m.viewport.SetContent(m.renderCurrentResult())
				return m, nil
			}
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// search runs off the update loop; the first query also waits for the
// corpus to be embedded.
func (m Model) search(description string) tea.Cmd {
	q := m.base
	q.WorkDescription = description
	return func() tea.Msg {
		res, err := m.service.FindSimilarCases(m.ctx, q, m.limit)
		return resultsMsg{query: description, results: res, err: err}
	}
}

// View renders the TUI layout and current result.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := lipgloss.NewStyle().Bold(true).Render("Similar Accident Cases")
	info := lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Render(m.describeBase())
	input := queryBoxStyle.Render(m.input.View())
	status := lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Render(m.status)
	results := resultBoxStyle.Render(m.viewport.View())
	return header + "\n" + info + "\n" + results + "\n" + input + "\n" + status
}

func (m Model) describeBase() string {
	parts := []string{"작업유형: " + strings.Join(m.base.WorkTypes, ", ")}
	if m.base.WorkName != "" {
		parts = append(parts, "작업명: "+m.base.WorkName)
	}
	if m.base.EquipmentName != "" {
		parts = append(parts, "설비명: "+m.base.EquipmentName)
	}
	return strings.Join(parts, "  ")
}

func (m Model) renderCurrentResult() string {
	if len(m.results) == 0 {
		return "No results yet."
	}
	r := m.results[m.cursor]
	c := r.Case
	title := fmt.Sprintf("Result %d/%d  distance=%.3f", m.cursor+1, len(m.results), r.Distance)

	var sb strings.Builder
	sb.WriteString(title + "\n\n")
	sb.WriteString(titleStyle.Render(c.Title))
	if c.Severity != "" {
		sb.WriteString("  " + severityStyle(c.Severity).Render(c.Severity))
	}
	sb.WriteString("\n")
	sb.WriteString(fieldStyle.Render(fmt.Sprintf("%s · %s · %s · %s %s", c.WorkType, c.Equipment, c.IncidentType, c.IncidentDate, c.IncidentTime)))
	sb.WriteString("\n\n")
	sb.WriteString(highlightBestSentence(c.Situation, m.lastQuery))
	if c.Cause != "" {
		sb.WriteString("\n\n원인: " + c.Cause)
	}
	if c.Takeaway != "" {
		sb.WriteString("\n시사점: " + c.Takeaway)
	}
	return sb.String()
}

var (
	resultBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	queryBoxStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	highlightStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	titleStyle     = lipgloss.NewStyle().Bold(true)
	fieldStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	severeStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	injuryStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	otherStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("7"))
	unicodeWordRe  = regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*`)
)

func severityStyle(severity string) lipgloss.Style {
	switch severity {
	case domain.SeveritySevere:
		return severeStyle
	case domain.SeverityOccupational:
		return injuryStyle
	default:
		return otherStyle
	}
}

// highlightBestSentence marks the sentence sharing the most tokens with the
// query.
func highlightBestSentence(text, query string) string {
	if strings.TrimSpace(text) == "" {
		return text
	}
	sentences := chunker.Sentences(text)
	best := bestSentence(sentences, query)
	if best < 0 {
		return text
	}
	sentences[best] = highlightStyle.Render(sentences[best])
	return strings.Join(sentences, " ")
}

// bestSentence returns the index of the sentence with the largest token
// overlap, or -1 when the query has no tokens. Ties go to the first one.
func bestSentence(sentences []string, query string) int {
	qTokens := toTokenSet(query)
	if len(qTokens) == 0 {
		return -1
	}
	bestIdx := 0
	bestScore := -1
	for i, s := range sentences {
		score := tokenOverlapScore(qTokens, s)
		if score > bestScore {
			bestScore = score
			bestIdx = i
		}
	}
	return bestIdx
}

func toTokenSet(s string) map[string]struct{} {
	tokens := unicodeWordRe.FindAllString(strings.ToLower(s), -1)
	m := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		m[t] = struct{}{}
	}
	return m
}

func tokenOverlapScore(queryTokens map[string]struct{}, sentence string) int {
	score := 0
	tokens := unicodeWordRe.FindAllString(strings.ToLower(sentence), -1)
	seen := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		if _, ok := queryTokens[t]; ok {
			score++
		}
	}
	return score
}
